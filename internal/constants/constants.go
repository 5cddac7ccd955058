package constants

// 安全令牌用途常量
const (
	TokenPurposePasswordReset     = "password_reset"
	TokenPurposeAccountActivation = "account_activation"
	TokenPurposeMobileOTP         = "mobile_otp"
	TokenPurposeRegisterVerify    = "register_verify"
)

// 二阶段令牌所属流程常量
const (
	TokenFlowRegister = "register"
	TokenFlowReset    = "reset"
)

// 通知模板常量
const (
	NotifyTemplateAccountActivation = "account_activation"
	NotifyTemplatePasswordReset     = "password_reset"
	NotifyTemplateMobileOTP         = "mobile_otp"
)

// 用户状态常量
const (
	UserStatusPending  = "pending"
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 登录日志状态常量
const (
	LoginLogStatusSuccess = "success"
	LoginLogStatusFailed  = "failed"
)

// 登录日志失败原因常量
const (
	LoginLogFailReasonBadRequest          = "bad_request"
	LoginLogFailReasonCaptchaRequired     = "captcha_required"
	LoginLogFailReasonCaptchaInvalid      = "captcha_invalid"
	LoginLogFailReasonCaptchaVerifyFailed = "captcha_verify_failed"
	LoginLogFailReasonInvalidEmail        = "invalid_email"
	LoginLogFailReasonInvalidCredentials  = "invalid_credentials"
	LoginLogFailReasonUserNotActivated    = "user_not_activated"
	LoginLogFailReasonUserDisabled        = "user_disabled"
	LoginLogFailReasonInternalError       = "internal_error"
)

// 登录日志来源常量
const (
	LoginLogSourceWeb = "web"
)

// 验证码提供方常量
const (
	CaptchaProviderNone      = "none"
	CaptchaProviderImage     = "image"
	CaptchaProviderTurnstile = "turnstile"
)

// 验证码校验场景常量
const (
	CaptchaSceneLogin            = "login"
	CaptchaSceneRegisterSendCode = "register_send_code"
	CaptchaSceneResetSendCode    = "reset_send_code"
)

// 队列常量
const (
	QueueDefault     = "default"
	TaskTokenDeliver = "token:deliver"
)

// 通知投递渠道常量
const (
	NotifyChannelEmail = "email"
	NotifyChannelSMS   = "sms"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "bs"
)

// 站点语言常量
const (
	LocaleZhCN = "zh-CN"
	LocaleEnUS = "en-US"
)

// 支持的站点语言顺序（含回退顺序）
var SupportedLocales = []string{LocaleZhCN, LocaleEnUS}
