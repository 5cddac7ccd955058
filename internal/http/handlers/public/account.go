package public

import (
	"errors"
	"strings"

	"github.com/bookstore-next/internal/constants"
	"github.com/bookstore-next/internal/http/response"
	"github.com/bookstore-next/internal/i18n"
	"github.com/bookstore-next/internal/models"
	"github.com/bookstore-next/internal/service"

	"github.com/gin-gonic/gin"
)

const timeLayoutRFC3339 = "2006-01-02T15:04:05Z07:00"

// CheckEmailRequest 邮箱可用性检查请求
type CheckEmailRequest struct {
	Email string `json:"email" binding:"required"`
}

// CheckEmail 检查邮箱是否可用于注册
func (h *Handler) CheckEmail(c *gin.Context) {
	var req CheckEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	if err := h.AccountService.CheckEmail(req.Email); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEmail):
			respondError(c, response.CodeBadRequest, "error.email_invalid", nil)
		case errors.Is(err, service.ErrEmailExists):
			respondError(c, response.CodeBadRequest, "error.email_exists", nil)
		default:
			respondError(c, response.CodeInternal, "error.internal", err)
		}
		return
	}

	response.Success(c, gin.H{"available": true})
}

// SendCodeRequest 发送验证码请求
type SendCodeRequest struct {
	Email          string                `json:"email" binding:"required"`
	CaptchaPayload CaptchaPayloadRequest `json:"captcha_payload"`
}

// SendRegisterCode 发送注册激活验证码
func (h *Handler) SendRegisterCode(c *gin.Context) {
	var req SendCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if !h.verifyCaptchaScene(c, constants.CaptchaSceneRegisterSendCode, req.CaptchaPayload) {
		return
	}

	locale := i18n.ResolveLocale(c)
	if err := h.AccountService.StartActivation(req.Email, locale); err != nil {
		respondWithMappedError(c, err, sendCodeErrorRules, response.CodeInternal, "error.send_verify_code_failed")
		return
	}

	response.Success(c, gin.H{"sent": true})
}

// VerifyCodeRequest 校验验证码请求
type VerifyCodeRequest struct {
	Email string `json:"email" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

// VerifyRegisterCode 校验注册激活码并换取注册凭据
func (h *Handler) VerifyRegisterCode(c *gin.Context) {
	var req VerifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	credential, handoff, err := h.AccountService.VerifyActivation(req.Email, req.Code)
	if err != nil {
		respondWithMappedError(c, err, verifyCodeErrorRules, response.CodeInternal, "error.activation_failed")
		return
	}

	response.Success(c, gin.H{
		"credential": credential,
		"expires_at": handoff.ExpiresAt.Format(timeLayoutRFC3339),
	})
}

// CompleteRegisterRequest 完成注册请求
type CompleteRegisterRequest struct {
	Credential  string `json:"credential" binding:"required"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password" binding:"required"`
}

// CompleteRegister 兑换注册凭据并激活账号
func (h *Handler) CompleteRegister(c *gin.Context) {
	var req CompleteRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	user, token, expiresAt, err := h.AccountService.CompleteRegistration(req.Credential, req.DisplayName, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrWeakPassword) {
			h.respondWeakPassword(c, err)
			return
		}
		respondWithMappedError(c, err, redeemErrorRules, response.CodeInternal, "error.register_failed")
		return
	}

	response.Success(c, gin.H{
		"user":       userResponse(user),
		"token":      token,
		"expires_at": expiresAt.Format(timeLayoutRFC3339),
	})
}

// SendResetCode 发送密码重置验证码
func (h *Handler) SendResetCode(c *gin.Context) {
	var req SendCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if !h.verifyCaptchaScene(c, constants.CaptchaSceneResetSendCode, req.CaptchaPayload) {
		return
	}

	locale := i18n.ResolveLocale(c)
	if err := h.AccountService.StartPasswordReset(req.Email, locale); err != nil {
		respondWithMappedError(c, err, sendCodeErrorRules, response.CodeInternal, "error.send_verify_code_failed")
		return
	}

	response.Success(c, gin.H{"sent": true})
}

// VerifyResetCode 校验密码重置码并换取重置凭据
func (h *Handler) VerifyResetCode(c *gin.Context) {
	var req VerifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	credential, handoff, err := h.AccountService.VerifyPasswordReset(req.Email, req.Code)
	if err != nil {
		respondWithMappedError(c, err, verifyCodeErrorRules, response.CodeInternal, "error.reset_failed")
		return
	}

	response.Success(c, gin.H{
		"credential": credential,
		"expires_at": handoff.ExpiresAt.Format(timeLayoutRFC3339),
	})
}

// ResetPasswordRequest 重置密码请求
type ResetPasswordRequest struct {
	Credential  string `json:"credential" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// ResetPassword 兑换重置凭据并写入新密码
func (h *Handler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	if err := h.AccountService.ResetPassword(req.Credential, req.NewPassword); err != nil {
		if errors.Is(err, service.ErrWeakPassword) {
			h.respondWeakPassword(c, err)
			return
		}
		respondWithMappedError(c, err, redeemErrorRules, response.CodeInternal, "error.reset_failed")
		return
	}

	response.Success(c, gin.H{"reset": true})
}

// UserLoginRequest 登录请求
type UserLoginRequest struct {
	Email          string                `json:"email" binding:"required"`
	Password       string                `json:"password" binding:"required"`
	RememberMe     bool                  `json:"remember_me"`
	CaptchaPayload CaptchaPayloadRequest `json:"captcha_payload"`
}

// UserLogin 用户登录
func (h *Handler) UserLogin(c *gin.Context) {
	var req UserLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.recordUserLogin(c, req.Email, 0, constants.LoginLogStatusFailed, constants.LoginLogFailReasonBadRequest)
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	if h.CaptchaService != nil {
		if captchaErr := h.CaptchaService.Verify(constants.CaptchaSceneLogin, req.CaptchaPayload.toServicePayload(), c.ClientIP()); captchaErr != nil {
			switch {
			case errors.Is(captchaErr, service.ErrCaptchaRequired):
				h.recordUserLogin(c, req.Email, 0, constants.LoginLogStatusFailed, constants.LoginLogFailReasonCaptchaRequired)
				respondError(c, response.CodeBadRequest, "error.captcha_required", nil)
				return
			case errors.Is(captchaErr, service.ErrCaptchaInvalid):
				h.recordUserLogin(c, req.Email, 0, constants.LoginLogStatusFailed, constants.LoginLogFailReasonCaptchaInvalid)
				respondError(c, response.CodeBadRequest, "error.captcha_invalid", nil)
				return
			case errors.Is(captchaErr, service.ErrCaptchaConfigInvalid):
				h.recordUserLogin(c, req.Email, 0, constants.LoginLogStatusFailed, constants.LoginLogFailReasonCaptchaVerifyFailed)
				respondError(c, response.CodeInternal, "error.captcha_config_invalid", captchaErr)
				return
			default:
				h.recordUserLogin(c, req.Email, 0, constants.LoginLogStatusFailed, constants.LoginLogFailReasonCaptchaVerifyFailed)
				respondError(c, response.CodeInternal, "error.captcha_verify_failed", captchaErr)
				return
			}
		}
	}

	user, token, expiresAt, err := h.AccountService.Login(req.Email, req.Password, req.RememberMe)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEmail):
			h.recordUserLogin(c, req.Email, 0, constants.LoginLogStatusFailed, constants.LoginLogFailReasonInvalidEmail)
			respondError(c, response.CodeBadRequest, "error.email_invalid", nil)
		case errors.Is(err, service.ErrInvalidCredentials):
			h.recordUserLogin(c, req.Email, 0, constants.LoginLogStatusFailed, constants.LoginLogFailReasonInvalidCredentials)
			respondError(c, response.CodeUnauthorized, "error.login_invalid", nil)
		case errors.Is(err, service.ErrUserNotActivated):
			h.recordUserLogin(c, req.Email, 0, constants.LoginLogStatusFailed, constants.LoginLogFailReasonUserNotActivated)
			respondError(c, response.CodeUnauthorized, "error.user_not_activated", nil)
		case errors.Is(err, service.ErrUserDisabled):
			h.recordUserLogin(c, req.Email, 0, constants.LoginLogStatusFailed, constants.LoginLogFailReasonUserDisabled)
			respondError(c, response.CodeUnauthorized, "error.user_disabled", nil)
		default:
			h.recordUserLogin(c, req.Email, 0, constants.LoginLogStatusFailed, constants.LoginLogFailReasonInternalError)
			respondError(c, response.CodeInternal, "error.login_failed", err)
		}
		return
	}

	h.recordUserLogin(c, user.Email, user.ID, constants.LoginLogStatusSuccess, "")
	response.Success(c, gin.H{
		"user":       userResponse(user),
		"token":      token,
		"expires_at": expiresAt.Format(timeLayoutRFC3339),
	})
}

// GetCurrentUser 获取当前用户信息
func (h *Handler) GetCurrentUser(c *gin.Context) {
	id, ok := getUserID(c)
	if !ok {
		return
	}

	user, err := h.AccountService.GetProfile(id)
	if err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			respondError(c, response.CodeNotFound, "error.user_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.user_fetch_failed", err)
		return
	}

	response.Success(c, userResponse(user))
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// ChangePassword 登录态下修改密码
func (h *Handler) ChangePassword(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	token, expiresAt, err := h.AccountService.ChangePassword(uid, req.OldPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWeakPassword):
			h.respondWeakPassword(c, err)
		case errors.Is(err, service.ErrInvalidCredentials):
			respondError(c, response.CodeBadRequest, "error.password_old_invalid", nil)
		case errors.Is(err, service.ErrAccountNotFound):
			respondError(c, response.CodeNotFound, "error.user_not_found", nil)
		default:
			respondError(c, response.CodeInternal, "error.password_change_failed", err)
		}
		return
	}

	response.Success(c, gin.H{
		"token":      token,
		"expires_at": expiresAt.Format(timeLayoutRFC3339),
	})
}

// UpdateProfileRequest 更新资料请求
type UpdateProfileRequest struct {
	DisplayName string `json:"display_name"`
	Locale      string `json:"locale"`
}

// UpdateProfile 更新当前用户资料
func (h *Handler) UpdateProfile(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	user, err := h.AccountService.UpdateProfile(uid, req.DisplayName, req.Locale)
	if err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			respondError(c, response.CodeNotFound, "error.user_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.profile_update_failed", err)
		return
	}

	response.Success(c, userResponse(user))
}

// SignOut 退出登录，失效当前用户已签发的登录凭证
func (h *Handler) SignOut(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	if err := h.AccountService.SignOut(uid); err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			respondError(c, response.CodeNotFound, "error.user_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.logout_failed", err)
		return
	}

	response.Success(c, gin.H{"signed_out": true})
}

// SendMobileOTPRequest 发送手机验证码请求
type SendMobileOTPRequest struct {
	MobileNumber string `json:"mobile_number"`
}

// SendMobileOTP 为当前用户发送手机验证码
func (h *Handler) SendMobileOTP(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req SendMobileOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	locale := i18n.ResolveLocale(c)
	if err := h.AccountService.SendMobileOTP(uid, req.MobileNumber, locale); err != nil {
		respondWithMappedError(c, err, mobileOTPErrorRules, response.CodeInternal, "error.mobile_otp_failed")
		return
	}

	response.Success(c, gin.H{"sent": true})
}

// VerifyMobileOTPRequest 校验手机验证码请求
type VerifyMobileOTPRequest struct {
	Code string `json:"code" binding:"required"`
}

// VerifyMobileOTP 校验当前用户手机验证码
func (h *Handler) VerifyMobileOTP(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req VerifyMobileOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	if err := h.AccountService.VerifyMobileOTP(uid, req.Code); err != nil {
		respondWithMappedError(c, err, mobileOTPErrorRules, response.CodeInternal, "error.mobile_otp_failed")
		return
	}

	response.Success(c, gin.H{"verified": true})
}

// verifyCaptchaScene 按场景执行人机验证，失败时已写入响应
func (h *Handler) verifyCaptchaScene(c *gin.Context, scene string, payload CaptchaPayloadRequest) bool {
	if h.CaptchaService == nil {
		return true
	}
	captchaErr := h.CaptchaService.Verify(scene, payload.toServicePayload(), c.ClientIP())
	if captchaErr == nil {
		return true
	}
	switch {
	case errors.Is(captchaErr, service.ErrCaptchaRequired):
		respondError(c, response.CodeBadRequest, "error.captcha_required", nil)
	case errors.Is(captchaErr, service.ErrCaptchaInvalid):
		respondError(c, response.CodeBadRequest, "error.captcha_invalid", nil)
	case errors.Is(captchaErr, service.ErrCaptchaConfigInvalid):
		respondError(c, response.CodeInternal, "error.captcha_config_invalid", captchaErr)
	default:
		respondError(c, response.CodeInternal, "error.captcha_verify_failed", captchaErr)
	}
	return false
}

func (h *Handler) respondWeakPassword(c *gin.Context, err error) {
	locale := i18n.ResolveLocale(c)
	if perr, ok := err.(interface {
		Key() string
		Args() []interface{}
	}); ok {
		msg := i18n.Sprintf(locale, perr.Key(), perr.Args()...)
		respondErrorWithMsg(c, response.CodeBadRequest, msg, nil)
		return
	}
	respondError(c, response.CodeBadRequest, "error.password_weak", nil)
}

func (h *Handler) recordUserLogin(c *gin.Context, email string, userID uint, status, failReason string) {
	if h == nil || h.UserLoginLogService == nil {
		return
	}
	requestID := ""
	if c != nil {
		if rid, ok := c.Get("request_id"); ok {
			if value, ok := rid.(string); ok {
				requestID = strings.TrimSpace(value)
			}
		}
	}
	_ = h.UserLoginLogService.Record(service.RecordUserLoginInput{
		UserID:      userID,
		Email:       email,
		Status:      status,
		FailReason:  failReason,
		ClientIP:    c.ClientIP(),
		UserAgent:   c.GetHeader("User-Agent"),
		LoginSource: constants.LoginLogSourceWeb,
		RequestID:   requestID,
	})
}

func userResponse(user *models.User) gin.H {
	if user == nil {
		return gin.H{}
	}
	return gin.H{
		"id":                 user.ID,
		"email":              user.Email,
		"display_name":       user.DisplayName,
		"locale":             user.Locale,
		"status":             user.Status,
		"mobile_number":      user.MobileNumber,
		"email_verified_at":  user.EmailVerifiedAt,
		"mobile_verified_at": user.MobileVerifiedAt,
		"last_login_at":      user.LastLoginAt,
		"created_at":         user.CreatedAt,
	}
}
