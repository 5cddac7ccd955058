package provider

import (
	"github.com/bookstore-next/internal/cache"
	"github.com/bookstore-next/internal/codec"
	"github.com/bookstore-next/internal/config"
	"github.com/bookstore-next/internal/constants"
	"github.com/bookstore-next/internal/logger"
	"github.com/bookstore-next/internal/models"
	"github.com/bookstore-next/internal/queue"
	"github.com/bookstore-next/internal/repository"
	"github.com/bookstore-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	UserRepo          repository.UserRepository
	SecurityTokenRepo repository.SecurityTokenRepository
	UserLoginLogRepo  repository.UserLoginLogRepository

	// Services
	AuthService         *service.AuthService
	EmailService        *service.EmailService
	SMSService          *service.SMSService
	TokenService        *service.TokenService
	AccountService      *service.AccountService
	CaptchaService      *service.CaptchaService
	UserLoginLogService *service.UserLoginLogService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.UserRepo = repository.NewUserRepository(db)
	c.SecurityTokenRepo = repository.NewSecurityTokenRepository(db)
	c.UserLoginLogRepo = repository.NewUserLoginLogRepository(db)
}

func (c *Container) initServices() {
	tokenCodec, err := codec.New(c.Config.Token.Secret)
	if err != nil {
		logger.Errorw("provider_init_token_codec_failed", "error", err)
		panic(err)
	}

	c.EmailService = service.NewEmailService(&c.Config.Email)
	c.SMSService = service.NewSMSService(&c.Config.SMS)

	// 通知发送优先走队列，队列不可用时回退为同步发送
	notifiers := map[string]service.Notifier{
		constants.NotifyChannelEmail: service.NewQueueNotifier(c.QueueClient, constants.NotifyChannelEmail, service.NewEmailNotifier(c.EmailService)),
		constants.NotifyChannelSMS:   service.NewQueueNotifier(c.QueueClient, constants.NotifyChannelSMS, service.NewSMSNotifier(c.SMSService)),
	}

	c.AuthService = service.NewAuthService(c.Config)
	c.TokenService = service.NewTokenService(c.Config, c.SecurityTokenRepo, tokenCodec, notifiers)
	c.AccountService = service.NewAccountService(c.Config, c.UserRepo, c.TokenService, c.AuthService)
	c.CaptchaService = service.NewCaptchaService(c.Config.Captcha)
	c.UserLoginLogService = service.NewUserLoginLogService(c.UserLoginLogRepo)
}
