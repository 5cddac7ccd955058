package public

import (
	"errors"

	"github.com/bookstore-next/internal/http/response"
	"github.com/bookstore-next/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	key    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackKey string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.key, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackKey, err)
}

var sendCodeErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidEmail, code: response.CodeBadRequest, key: "error.email_invalid"},
	{target: service.ErrInvalidParam, code: response.CodeBadRequest, key: "error.bad_request"},
	{target: service.ErrEmailExists, code: response.CodeBadRequest, key: "error.email_exists"},
	{target: service.ErrAccountNotFound, code: response.CodeNotFound, key: "error.user_not_found"},
	{target: service.ErrAccountInactive, code: response.CodeBadRequest, key: "error.account_inactive"},
	{target: service.ErrSendTooFrequent, code: response.CodeTooManyRequests, key: "error.verify_code_too_frequent"},
	{target: service.ErrEmailRecipientRejected, code: response.CodeBadRequest, key: "error.email_recipient_not_found"},
	{target: service.ErrEmailServiceDisabled, code: response.CodeInternal, key: "error.email_service_not_configured"},
	{target: service.ErrEmailServiceNotConfigured, code: response.CodeInternal, key: "error.email_service_not_configured"},
}

var verifyCodeErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidEmail, code: response.CodeBadRequest, key: "error.email_invalid"},
	{target: service.ErrInvalidParam, code: response.CodeBadRequest, key: "error.bad_request"},
	{target: service.ErrTokenNotFound, code: response.CodeBadRequest, key: "error.verify_code_invalid"},
	{target: service.ErrTokenExpired, code: response.CodeBadRequest, key: "error.verify_code_expired"},
}

var redeemErrorRules = []mappedHandlerError{
	{target: service.ErrCredentialInvalid, code: response.CodeBadRequest, key: "error.credential_invalid"},
	{target: service.ErrTokenNotFound, code: response.CodeBadRequest, key: "error.credential_invalid"},
	{target: service.ErrTokenExpired, code: response.CodeBadRequest, key: "error.verify_code_expired"},
	{target: service.ErrAccountNotFound, code: response.CodeNotFound, key: "error.user_not_found"},
	{target: service.ErrAccountAlreadyActive, code: response.CodeBadRequest, key: "error.account_already_active"},
	{target: service.ErrAccountInactive, code: response.CodeBadRequest, key: "error.account_inactive"},
}

var mobileOTPErrorRules = []mappedHandlerError{
	{target: service.ErrAccountNotFound, code: response.CodeNotFound, key: "error.user_not_found"},
	{target: service.ErrMobileNumberRequired, code: response.CodeBadRequest, key: "error.mobile_required"},
	{target: service.ErrInvalidParam, code: response.CodeBadRequest, key: "error.bad_request"},
	{target: service.ErrSendTooFrequent, code: response.CodeTooManyRequests, key: "error.verify_code_too_frequent"},
	{target: service.ErrTokenNotFound, code: response.CodeBadRequest, key: "error.verify_code_invalid"},
	{target: service.ErrTokenExpired, code: response.CodeBadRequest, key: "error.verify_code_expired"},
	{target: service.ErrSMSServiceDisabled, code: response.CodeInternal, key: "error.mobile_otp_failed"},
	{target: service.ErrSMSServiceNotConfigured, code: response.CodeInternal, key: "error.mobile_otp_failed"},
}
