package i18n

var catalog = map[string]map[string]string{
	LocaleZH: {
		"error.bad_request":                  "请求参数错误",
		"error.internal":                     "服务器内部错误",
		"error.unauthorized":                 "未授权，请先登录",
		"error.forbidden":                    "没有权限执行该操作",
		"error.not_found":                    "资源不存在",
		"error.jwt_secret_missing":           "服务端鉴权密钥未配置",
		"error.auth_header_missing":          "缺少认证信息",
		"error.auth_header_invalid":          "认证信息格式错误",
		"error.token_invalid":                "登录凭证无效或已过期",
		"error.token_revoked":                "登录凭证已失效，请重新登录",
		"error.user_disabled":                "账号已被禁用",
		"error.user_not_activated":           "账号尚未激活",
		"error.user_not_found":               "用户不存在",
		"error.user_id_invalid":              "用户身份缺失",
		"error.user_id_type_invalid":         "用户身份解析失败",
		"error.user_fetch_failed":            "获取用户信息失败",
		"error.user_update_failed":           "更新用户信息失败",
		"error.user_login_log_fetch_failed":  "获取登录日志失败",
		"error.rate_limited":                 "操作过于频繁，请 %d 秒后再试",
		"error.rate_limit_unavailable":       "限流服务暂不可用，请稍后再试",
		"error.email_invalid":                "邮箱格式不正确",
		"error.email_exists":                 "该邮箱已被注册",
		"error.email_recipient_not_found":    "收件邮箱不存在或被拒收",
		"error.email_service_not_configured": "邮件服务未配置",
		"error.account_inactive":             "账号状态异常",
		"error.account_already_active":       "账号已激活，无需重复操作",
		"error.verify_code_invalid":          "验证码错误或已失效",
		"error.verify_code_expired":          "验证码已过期，请重新获取",
		"error.verify_code_too_frequent":     "验证码发送过于频繁，请稍后再试",
		"error.credential_invalid":           "凭据无效，请重新验证",
		"error.login_invalid":                "邮箱或密码错误",
		"error.login_failed":                 "登录失败，请稍后再试",
		"error.register_failed":              "注册失败，请稍后再试",
		"error.activation_failed":            "激活失败，请稍后再试",
		"error.reset_failed":                 "重置密码失败，请稍后再试",
		"error.send_verify_code_failed":      "验证码发送失败，请稍后再试",
		"error.mobile_required":              "请先填写手机号",
		"error.mobile_otp_failed":            "手机验证失败，请稍后再试",
		"error.password_weak":                "密码强度不足",
		"error.password_old_invalid":         "原密码不正确",
		"error.password_change_failed":       "修改密码失败，请稍后再试",
		"error.profile_update_failed":        "更新资料失败，请稍后再试",
		"error.logout_failed":                "退出登录失败，请稍后再试",
		"error.password_min_length":          "密码长度不能少于 %d 位",
		"error.password_require_upper":       "密码需要包含大写字母",
		"error.password_require_lower":       "密码需要包含小写字母",
		"error.password_require_number":      "密码需要包含数字",
		"error.password_require_special":     "密码需要包含特殊字符",
		"error.captcha_required":             "请完成人机验证",
		"error.captcha_invalid":              "人机验证未通过",
		"error.captcha_config_invalid":       "人机验证配置错误",
		"error.captcha_verify_failed":        "人机验证服务异常",
		"error.captcha_unavailable":          "人机验证暂不可用",
		"error.captcha_generate_failed":      "验证码生成失败",
		"error.save_failed":                  "保存失败，请稍后再试",
	},
	LocaleEN: {
		"error.bad_request":                  "Invalid request parameters",
		"error.internal":                     "Internal server error",
		"error.unauthorized":                 "Unauthorized, please sign in",
		"error.forbidden":                    "You do not have permission to do this",
		"error.not_found":                    "Resource not found",
		"error.jwt_secret_missing":           "Server auth secret is not configured",
		"error.auth_header_missing":          "Missing authorization header",
		"error.auth_header_invalid":          "Malformed authorization header",
		"error.token_invalid":                "Session token is invalid or expired",
		"error.token_revoked":                "Session has been revoked, please sign in again",
		"error.user_disabled":                "This account has been disabled",
		"error.user_not_activated":           "This account is not activated yet",
		"error.user_not_found":               "User not found",
		"error.user_id_invalid":              "User identity is missing",
		"error.user_id_type_invalid":         "Failed to resolve user identity",
		"error.user_fetch_failed":            "Failed to load user profile",
		"error.user_update_failed":           "Failed to update user profile",
		"error.user_login_log_fetch_failed":  "Failed to load login logs",
		"error.rate_limited":                 "Too many requests, retry in %d seconds",
		"error.rate_limit_unavailable":       "Rate limiter unavailable, please retry later",
		"error.email_invalid":                "Invalid email address",
		"error.email_exists":                 "This email is already registered",
		"error.email_recipient_not_found":    "Recipient mailbox does not exist or rejected the message",
		"error.email_service_not_configured": "Email service is not configured",
		"error.account_inactive":             "Account is in an invalid state",
		"error.account_already_active":       "Account is already activated",
		"error.verify_code_invalid":          "Verification code is wrong or no longer valid",
		"error.verify_code_expired":          "Verification code expired, please request a new one",
		"error.verify_code_too_frequent":     "Codes are being requested too frequently, please wait",
		"error.credential_invalid":           "Credential is invalid, please verify again",
		"error.login_invalid":                "Wrong email or password",
		"error.login_failed":                 "Login failed, please retry later",
		"error.register_failed":              "Registration failed, please retry later",
		"error.activation_failed":            "Activation failed, please retry later",
		"error.reset_failed":                 "Password reset failed, please retry later",
		"error.send_verify_code_failed":      "Failed to send verification code, please retry later",
		"error.mobile_required":              "Please provide a mobile number first",
		"error.mobile_otp_failed":            "Mobile verification failed, please retry later",
		"error.password_weak":                "Password is too weak",
		"error.password_old_invalid":         "Current password is incorrect",
		"error.password_change_failed":       "Failed to change password, please retry later",
		"error.profile_update_failed":        "Failed to update profile, please retry later",
		"error.logout_failed":                "Failed to sign out, please retry later",
		"error.password_min_length":          "Password must be at least %d characters",
		"error.password_require_upper":       "Password must contain an uppercase letter",
		"error.password_require_lower":       "Password must contain a lowercase letter",
		"error.password_require_number":      "Password must contain a digit",
		"error.password_require_special":     "Password must contain a special character",
		"error.captcha_required":             "Please complete the captcha challenge",
		"error.captcha_invalid":              "Captcha verification failed",
		"error.captcha_config_invalid":       "Captcha is misconfigured",
		"error.captcha_verify_failed":        "Captcha verification service error",
		"error.captcha_unavailable":          "Captcha is temporarily unavailable",
		"error.captcha_generate_failed":      "Failed to generate captcha",
		"error.save_failed":                  "Failed to save, please retry later",
	},
}
