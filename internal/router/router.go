package router

import (
	"fmt"
	"strings"

	"github.com/bookstore-next/internal/cache"
	"github.com/bookstore-next/internal/config"
	"github.com/bookstore-next/internal/constants"
	publichandlers "github.com/bookstore-next/internal/http/handlers/public"
	"github.com/bookstore-next/internal/logger"
	"github.com/bookstore-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = constants.RedisPrefixDefault
	}
	redisClient := cache.Client()
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxRequests,
		MessageKey:    "error.rate_limited",
	}
	sendCodeRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:send_code", redisPrefix),
		WindowSeconds: cfg.Security.SendCodeRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.SendCodeRateLimit.MaxRequests,
		MessageKey:    "error.rate_limited",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		auth := apiV1.Group("/auth")
		{
			auth.POST("/email/check", publicHandler.CheckEmail)
			auth.POST("/register/send-code",
				RateLimitMiddleware(redisClient, sendCodeRule, KeyByIPAndJSONField("email")),
				publicHandler.SendRegisterCode)
			auth.POST("/register/verify-code", publicHandler.VerifyRegisterCode)
			auth.POST("/register/complete", publicHandler.CompleteRegister)
			auth.POST("/password/send-code",
				RateLimitMiddleware(redisClient, sendCodeRule, KeyByIPAndJSONField("email")),
				publicHandler.SendResetCode)
			auth.POST("/password/verify-code", publicHandler.VerifyResetCode)
			auth.POST("/password/reset", publicHandler.ResetPassword)
			auth.POST("/login",
				RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("email")),
				publicHandler.UserLogin)
		}

		apiV1.GET("/captcha/image", publicHandler.GetImageCaptcha)

		// 需要登录的用户接口
		user := apiV1.Group("/me")
		user.Use(UserJWTAuthMiddleware(cfg.JWT.SecretKey, c.UserRepo))
		{
			user.GET("", publicHandler.GetCurrentUser)
			user.PUT("/profile", publicHandler.UpdateProfile)
			user.POST("/password/change", publicHandler.ChangePassword)
			user.POST("/logout", publicHandler.SignOut)
			user.POST("/mobile/send-otp",
				RateLimitMiddleware(redisClient, sendCodeRule, KeyByIP),
				publicHandler.SendMobileOTP)
			user.POST("/mobile/verify", publicHandler.VerifyMobileOTP)
			user.GET("/login-logs", publicHandler.GetMyLoginLogs)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	return r
}
