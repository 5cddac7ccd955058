package service

import "errors"

// 安全令牌相关错误
var (
	ErrTokenNotFound     = errors.New("验证码不存在或已失效")
	ErrTokenExpired      = errors.New("验证码已过期")
	ErrCredentialInvalid = errors.New("凭据无效")
	ErrPurposeUnknown    = errors.New("未知的令牌用途")
	ErrSendTooFrequent   = errors.New("验证码发送过于频繁")
	ErrInvalidParam      = errors.New("请求参数缺失或无效")
)

// 账号相关错误
var (
	ErrAccountNotFound      = errors.New("账号不存在")
	ErrAccountInactive      = errors.New("账号状态异常")
	ErrAccountAlreadyActive = errors.New("账号已激活")
	ErrEmailExists          = errors.New("邮箱已被注册")
	ErrInvalidEmail         = errors.New("邮箱格式不正确")
	ErrInvalidCredentials   = errors.New("邮箱或密码错误")
	ErrUserDisabled         = errors.New("账号已被禁用")
	ErrUserNotActivated     = errors.New("账号尚未激活")
	ErrMobileNumberRequired = errors.New("手机号未填写")
	ErrWeakPassword         = errors.New("密码强度不足")
)

// 验证码相关错误
var (
	ErrCaptchaRequired      = errors.New("需要完成人机验证")
	ErrCaptchaInvalid       = errors.New("人机验证未通过")
	ErrCaptchaConfigInvalid = errors.New("验证码配置无效")
	ErrCaptchaVerifyFailed  = errors.New("人机验证服务暂不可用")
)

// 通知渠道相关错误
var (
	ErrEmailServiceDisabled      = errors.New("邮件服务未启用")
	ErrEmailServiceNotConfigured = errors.New("邮件服务未配置")
	ErrEmailRecipientRejected    = errors.New("收件邮箱不存在或被拒收")
	ErrSMSServiceDisabled        = errors.New("短信服务未启用")
	ErrSMSServiceNotConfigured   = errors.New("短信服务未配置")
)
