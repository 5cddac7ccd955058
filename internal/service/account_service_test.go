package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bookstore-next/internal/codec"
	"github.com/bookstore-next/internal/config"
	"github.com/bookstore-next/internal/constants"
	"github.com/bookstore-next/internal/models"
	"github.com/bookstore-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type accountServiceFixture struct {
	svc          *AccountService
	tokenService *TokenService
	userRepo     repository.UserRepository
	tokenRepo    repository.SecurityTokenRepository
	email        *recordingNotifier
	sms          *recordingNotifier
}

func setupAccountServiceTest(t *testing.T) *accountServiceFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:account_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("打开内存数据库失败: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.SecurityToken{}); err != nil {
		t.Fatalf("迁移失败: %v", err)
	}

	cfg := &config.Config{}
	cfg.JWT.SecretKey = "account-service-test-jwt-secret-key"
	cfg.JWT.ExpireHours = 24
	cfg.JWT.RememberMeExpireHours = 168
	cfg.Token.Secret = "account-service-test-token-secret"
	cfg.Token.SendIntervalSeconds = 1
	cfg.Security.PasswordPolicy.MinLength = 8
	cfg.Security.PasswordPolicy.RequireNumber = true

	tokenCodec, err := codec.New(cfg.Token.Secret)
	if err != nil {
		t.Fatalf("创建凭据编解码器失败: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewSecurityTokenRepository(db)
	email := &recordingNotifier{}
	sms := &recordingNotifier{}
	tokenService := NewTokenService(cfg, tokenRepo, tokenCodec, map[string]Notifier{
		constants.NotifyChannelEmail: email,
		constants.NotifyChannelSMS:   sms,
	})
	authService := NewAuthService(cfg)

	return &accountServiceFixture{
		svc:          NewAccountService(cfg, userRepo, tokenService, authService),
		tokenService: tokenService,
		userRepo:     userRepo,
		tokenRepo:    tokenRepo,
		email:        email,
		sms:          sms,
	}
}

// lastDeliveredCode 从通知记录里取最近一次投递的验证码
func (f *accountServiceFixture) lastDeliveredCode(t *testing.T, n *recordingNotifier) string {
	t.Helper()
	if len(n.deliveries) == 0 {
		t.Fatal("未捕获到任何通知投递")
	}
	code := n.deliveries[len(n.deliveries)-1].tctx["code"]
	if code == "" {
		t.Fatal("通知上下文缺少验证码")
	}
	return code
}

func TestAccountServiceCheckEmail(t *testing.T) {
	f := setupAccountServiceTest(t)

	if err := f.svc.CheckEmail("new@example.com"); err != nil {
		t.Fatalf("未注册邮箱应可用: %v", err)
	}
	if err := f.svc.CheckEmail("not an email"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}

	if err := f.userRepo.Create(&models.User{Email: "taken@example.com", Status: constants.UserStatusActive}); err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}
	if err := f.svc.CheckEmail("taken@example.com"); !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}

	// 待激活占位账号不占用邮箱
	if err := f.userRepo.Create(&models.User{Email: "pending@example.com", Status: constants.UserStatusPending}); err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}
	if err := f.svc.CheckEmail("pending@example.com"); err != nil {
		t.Fatalf("待激活邮箱应可继续注册: %v", err)
	}
}

func TestAccountServiceRegistrationFlow(t *testing.T) {
	f := setupAccountServiceTest(t)

	if err := f.svc.StartActivation("Reader@Example.com", constants.LocaleZhCN); err != nil {
		t.Fatalf("发起激活失败: %v", err)
	}

	placeholder, err := f.userRepo.GetByEmail("reader@example.com")
	if err != nil || placeholder == nil {
		t.Fatalf("应创建待激活占位账号: %v", err)
	}
	if placeholder.Status != constants.UserStatusPending {
		t.Fatalf("占位账号状态应为待激活, got %q", placeholder.Status)
	}

	code := f.lastDeliveredCode(t, f.email)
	credential, handoff, err := f.svc.VerifyActivation("reader@example.com", code)
	if err != nil {
		t.Fatalf("校验激活码失败: %v", err)
	}
	if handoff.Purpose != constants.TokenPurposeRegisterVerify {
		t.Fatalf("unexpected handoff purpose %q", handoff.Purpose)
	}

	user, jwtToken, expiresAt, err := f.svc.CompleteRegistration(credential, "书虫", "BookLover99")
	if err != nil {
		t.Fatalf("完成注册失败: %v", err)
	}
	if jwtToken == "" || !expiresAt.After(time.Now()) {
		t.Fatal("注册成功应返回有效登录态")
	}
	if user.Status != constants.UserStatusActive {
		t.Fatalf("注册完成后账号应激活, got %q", user.Status)
	}
	if user.EmailVerifiedAt == nil {
		t.Fatal("注册完成应记录邮箱验证时间")
	}
	if user.DisplayName != "书虫" {
		t.Fatalf("unexpected display name %q", user.DisplayName)
	}

	// 凭据一次性有效
	if _, _, _, err := f.svc.CompleteRegistration(credential, "", "BookLover99"); err == nil {
		t.Fatal("重复兑换注册凭据应失败")
	}
}

func TestAccountServiceStartActivationExistingActive(t *testing.T) {
	f := setupAccountServiceTest(t)

	if err := f.userRepo.Create(&models.User{Email: "taken@example.com", Status: constants.UserStatusActive}); err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}
	if err := f.svc.StartActivation("taken@example.com", ""); !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
}

func TestAccountServiceCompleteRegistrationWeakPassword(t *testing.T) {
	f := setupAccountServiceTest(t)

	if err := f.svc.StartActivation("reader@example.com", ""); err != nil {
		t.Fatalf("发起激活失败: %v", err)
	}
	code := f.lastDeliveredCode(t, f.email)
	credential, _, err := f.svc.VerifyActivation("reader@example.com", code)
	if err != nil {
		t.Fatalf("校验激活码失败: %v", err)
	}

	if _, _, _, err := f.svc.CompleteRegistration(credential, "", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	// 弱密码在兑换前拦截，凭据应保持可用
	if _, _, _, err := f.svc.CompleteRegistration(credential, "", "BookLover99"); err != nil {
		t.Fatalf("凭据应在弱密码拦截后仍可兑换: %v", err)
	}
}

func TestAccountServicePasswordResetFlow(t *testing.T) {
	f := setupAccountServiceTest(t)

	// 先走完注册
	if err := f.svc.StartActivation("reader@example.com", ""); err != nil {
		t.Fatalf("发起激活失败: %v", err)
	}
	credential, _, err := f.svc.VerifyActivation("reader@example.com", f.lastDeliveredCode(t, f.email))
	if err != nil {
		t.Fatalf("校验激活码失败: %v", err)
	}
	registered, _, _, err := f.svc.CompleteRegistration(credential, "", "OldPassword1")
	if err != nil {
		t.Fatalf("完成注册失败: %v", err)
	}

	if err := f.svc.StartPasswordReset("reader@example.com", ""); err != nil {
		t.Fatalf("发起密码重置失败: %v", err)
	}
	resetCredential, _, err := f.svc.VerifyPasswordReset("reader@example.com", f.lastDeliveredCode(t, f.email))
	if err != nil {
		t.Fatalf("校验重置码失败: %v", err)
	}
	if err := f.svc.ResetPassword(resetCredential, "NewPassword2"); err != nil {
		t.Fatalf("重置密码失败: %v", err)
	}

	updated, err := f.userRepo.GetByID(registered.ID)
	if err != nil || updated == nil {
		t.Fatalf("查询用户失败: %v", err)
	}
	if updated.TokenVersion != registered.TokenVersion+1 {
		t.Fatal("重置密码应提升 token 版本")
	}
	if updated.TokenInvalidBefore == nil {
		t.Fatal("重置密码应记录登录态失效时间")
	}

	if _, _, _, err := f.svc.Login("reader@example.com", "OldPassword1", false); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("旧密码应失效, got %v", err)
	}
	if _, _, _, err := f.svc.Login("reader@example.com", "NewPassword2", false); err != nil {
		t.Fatalf("新密码应可登录: %v", err)
	}
}

func TestAccountServiceStartPasswordResetGuards(t *testing.T) {
	f := setupAccountServiceTest(t)

	if err := f.svc.StartPasswordReset("ghost@example.com", ""); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}

	if err := f.userRepo.Create(&models.User{Email: "pending@example.com", Status: constants.UserStatusPending}); err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}
	if err := f.svc.StartPasswordReset("pending@example.com", ""); !errors.Is(err, ErrAccountInactive) {
		t.Fatalf("expected ErrAccountInactive, got %v", err)
	}
}

func TestAccountServiceCrossFlowCredentialRejected(t *testing.T) {
	f := setupAccountServiceTest(t)

	if err := f.svc.StartActivation("reader@example.com", ""); err != nil {
		t.Fatalf("发起激活失败: %v", err)
	}
	registerCredential, _, err := f.svc.VerifyActivation("reader@example.com", f.lastDeliveredCode(t, f.email))
	if err != nil {
		t.Fatalf("校验激活码失败: %v", err)
	}

	// 注册流程的凭据不能用于密码重置
	if err := f.svc.ResetPassword(registerCredential, "NewPassword2"); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
}

func TestAccountServiceLoginGuards(t *testing.T) {
	f := setupAccountServiceTest(t)

	authService := NewAuthService(f.svc.cfg)
	hash, err := authService.HashPassword("Password123")
	if err != nil {
		t.Fatalf("生成密码哈希失败: %v", err)
	}

	users := []*models.User{
		{Email: "pending@example.com", PasswordHash: hash, Status: constants.UserStatusPending},
		{Email: "disabled@example.com", PasswordHash: hash, Status: constants.UserStatusDisabled},
		{Email: "active@example.com", PasswordHash: hash, Status: constants.UserStatusActive},
	}
	for _, u := range users {
		if err := f.userRepo.Create(u); err != nil {
			t.Fatalf("创建用户失败: %v", err)
		}
	}

	if _, _, _, err := f.svc.Login("pending@example.com", "Password123", false); !errors.Is(err, ErrUserNotActivated) {
		t.Fatalf("expected ErrUserNotActivated, got %v", err)
	}
	if _, _, _, err := f.svc.Login("disabled@example.com", "Password123", false); !errors.Is(err, ErrUserDisabled) {
		t.Fatalf("expected ErrUserDisabled, got %v", err)
	}
	if _, _, _, err := f.svc.Login("active@example.com", "WrongPassword1", false); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, _, err := f.svc.Login("ghost@example.com", "Password123", false); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("未注册邮箱登录应与密码错误同响应, got %v", err)
	}

	user, token, _, err := f.svc.Login("active@example.com", "Password123", false)
	if err != nil {
		t.Fatalf("登录失败: %v", err)
	}
	if token == "" {
		t.Fatal("登录成功应返回 JWT")
	}
	if user.LastLoginAt == nil {
		t.Fatal("登录成功应记录最近登录时间")
	}
}

func TestAccountServiceLoginRememberMe(t *testing.T) {
	f := setupAccountServiceTest(t)

	authService := NewAuthService(f.svc.cfg)
	hash, err := authService.HashPassword("Password123")
	if err != nil {
		t.Fatalf("生成密码哈希失败: %v", err)
	}
	if err := f.userRepo.Create(&models.User{Email: "active@example.com", PasswordHash: hash, Status: constants.UserStatusActive}); err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}

	_, _, normalExpiry, err := f.svc.Login("active@example.com", "Password123", false)
	if err != nil {
		t.Fatalf("登录失败: %v", err)
	}
	_, _, rememberedExpiry, err := f.svc.Login("active@example.com", "Password123", true)
	if err != nil {
		t.Fatalf("登录失败: %v", err)
	}
	if !rememberedExpiry.After(normalExpiry.Add(24 * time.Hour)) {
		t.Fatal("记住我登录应显著延长过期时间")
	}
}

func TestAccountServiceChangePassword(t *testing.T) {
	f := setupAccountServiceTest(t)

	authService := NewAuthService(f.svc.cfg)
	hash, err := authService.HashPassword("OldPassword1")
	if err != nil {
		t.Fatalf("生成密码哈希失败: %v", err)
	}
	user := &models.User{Email: "reader@example.com", PasswordHash: hash, Status: constants.UserStatusActive}
	if err := f.userRepo.Create(user); err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}

	if _, _, err := f.svc.ChangePassword(user.ID, "WrongOld1", "NewPassword2"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("旧密码错误应返回 ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := f.svc.ChangePassword(user.ID, "OldPassword1", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("弱新密码应返回 ErrWeakPassword, got %v", err)
	}
	if _, _, err := f.svc.ChangePassword(user.ID+100, "OldPassword1", "NewPassword2"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}

	token, expiresAt, err := f.svc.ChangePassword(user.ID, "OldPassword1", "NewPassword2")
	if err != nil {
		t.Fatalf("修改密码失败: %v", err)
	}
	if token == "" || !expiresAt.After(time.Now()) {
		t.Fatal("修改密码成功应返回新的登录凭证")
	}

	updated, err := f.userRepo.GetByID(user.ID)
	if err != nil || updated == nil {
		t.Fatalf("查询用户失败: %v", err)
	}
	if updated.TokenVersion != user.TokenVersion+1 {
		t.Fatal("修改密码应提升 token 版本")
	}
	if updated.TokenInvalidBefore == nil {
		t.Fatal("修改密码应记录登录态失效时间")
	}

	if _, _, _, err := f.svc.Login("reader@example.com", "OldPassword1", false); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("旧密码应失效, got %v", err)
	}
	if _, _, _, err := f.svc.Login("reader@example.com", "NewPassword2", false); err != nil {
		t.Fatalf("新密码应可登录: %v", err)
	}
}

func TestAccountServiceUpdateProfile(t *testing.T) {
	f := setupAccountServiceTest(t)

	user := &models.User{Email: "reader@example.com", DisplayName: "reader", Locale: constants.LocaleZhCN, Status: constants.UserStatusActive}
	if err := f.userRepo.Create(user); err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}

	updated, err := f.svc.UpdateProfile(user.ID, "藏书家", constants.LocaleEnUS)
	if err != nil {
		t.Fatalf("更新资料失败: %v", err)
	}
	if updated.DisplayName != "藏书家" || updated.Locale != constants.LocaleEnUS {
		t.Fatalf("资料未按请求更新: %+v", updated)
	}

	// 空字段保持原值
	kept, err := f.svc.UpdateProfile(user.ID, "", " ")
	if err != nil {
		t.Fatalf("更新资料失败: %v", err)
	}
	if kept.DisplayName != "藏书家" || kept.Locale != constants.LocaleEnUS {
		t.Fatalf("空字段不应覆盖原值: %+v", kept)
	}

	if _, err := f.svc.UpdateProfile(user.ID+100, "ghost", ""); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestAccountServiceSignOut(t *testing.T) {
	f := setupAccountServiceTest(t)

	authService := NewAuthService(f.svc.cfg)
	hash, err := authService.HashPassword("Password123")
	if err != nil {
		t.Fatalf("生成密码哈希失败: %v", err)
	}
	user := &models.User{Email: "reader@example.com", PasswordHash: hash, Status: constants.UserStatusActive}
	if err := f.userRepo.Create(user); err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}

	if err := f.svc.SignOut(user.ID); err != nil {
		t.Fatalf("退出登录失败: %v", err)
	}

	updated, err := f.userRepo.GetByID(user.ID)
	if err != nil || updated == nil {
		t.Fatalf("查询用户失败: %v", err)
	}
	if updated.TokenVersion != user.TokenVersion+1 {
		t.Fatal("退出登录应提升 token 版本")
	}
	if updated.TokenInvalidBefore == nil {
		t.Fatal("退出登录应记录登录态失效时间")
	}

	if err := f.svc.SignOut(user.ID + 100); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestAccountServiceMobileOTPFlow(t *testing.T) {
	f := setupAccountServiceTest(t)

	user := &models.User{Email: "reader@example.com", Status: constants.UserStatusActive}
	if err := f.userRepo.Create(user); err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}

	if err := f.svc.SendMobileOTP(user.ID, "", ""); !errors.Is(err, ErrMobileNumberRequired) {
		t.Fatalf("expected ErrMobileNumberRequired, got %v", err)
	}

	if err := f.svc.SendMobileOTP(user.ID, "+8613800138000", ""); err != nil {
		t.Fatalf("发送手机验证码失败: %v", err)
	}
	if len(f.sms.deliveries) != 1 {
		t.Fatalf("应走短信渠道投递一次, got %d", len(f.sms.deliveries))
	}
	if f.sms.deliveries[0].destination != "+8613800138000" {
		t.Fatalf("unexpected destination %q", f.sms.deliveries[0].destination)
	}

	if err := f.svc.VerifyMobileOTP(user.ID, f.lastDeliveredCode(t, f.sms)); err != nil {
		t.Fatalf("校验手机验证码失败: %v", err)
	}

	updated, err := f.userRepo.GetByID(user.ID)
	if err != nil || updated == nil {
		t.Fatalf("查询用户失败: %v", err)
	}
	if updated.MobileVerifiedAt == nil {
		t.Fatal("验证通过应记录手机验证时间")
	}
	if updated.MobileNumber != "+8613800138000" {
		t.Fatalf("unexpected mobile number %q", updated.MobileNumber)
	}
}
