package service

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/bookstore-next/internal/cache"
	"github.com/bookstore-next/internal/config"
	"github.com/bookstore-next/internal/constants"
	"github.com/bookstore-next/internal/models"
	"github.com/bookstore-next/internal/repository"
)

// AccountService 账号服务
// 承载注册激活、密码重置、手机验证与登录等完整业务流
type AccountService struct {
	cfg          *config.Config
	userRepo     repository.UserRepository
	tokenService *TokenService
	authService  *AuthService
}

// NewAccountService 创建账号服务
func NewAccountService(cfg *config.Config, userRepo repository.UserRepository, tokenService *TokenService, authService *AuthService) *AccountService {
	return &AccountService{
		cfg:          cfg,
		userRepo:     userRepo,
		tokenService: tokenService,
		authService:  authService,
	}
}

// CheckEmail 检查邮箱是否可用于注册
func (s *AccountService) CheckEmail(email string) error {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	user, err := s.userRepo.GetByEmail(normalized)
	if err != nil {
		return err
	}
	if user != nil && strings.ToLower(user.Status) == constants.UserStatusActive {
		return ErrEmailExists
	}
	return nil
}

// StartActivation 注册第一步：发放账号激活验证码
// 未注册邮箱会创建待激活占位账号，重复请求复用该账号
func (s *AccountService) StartActivation(email, locale string) error {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	user, err := s.userRepo.GetByEmail(normalized)
	if err != nil {
		return err
	}
	switch {
	case user == nil:
		user = &models.User{
			Email:       normalized,
			DisplayName: resolveNicknameFromEmail(normalized),
			Locale:      resolveUserLocale(locale),
			Status:      constants.UserStatusPending,
		}
		if err := s.userRepo.Create(user); err != nil {
			return err
		}
	case strings.ToLower(user.Status) == constants.UserStatusActive:
		return ErrEmailExists
	case strings.ToLower(user.Status) == constants.UserStatusDisabled:
		return ErrAccountInactive
	}

	_, err = s.tokenService.IssueAndDeliver(constants.TokenPurposeAccountActivation, normalized, &user.ID, nil, resolveUserLocale(locale))
	return err
}

// VerifyActivation 注册第二步：校验激活码并换取二阶段凭据
func (s *AccountService) VerifyActivation(email, code string) (string, *models.SecurityToken, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return "", nil, err
	}
	handoff, encoded, err := s.tokenService.ValidateWithHandoff(constants.TokenPurposeAccountActivation, normalized, code, constants.TokenFlowRegister)
	if err != nil {
		return "", nil, err
	}
	return encoded, handoff, nil
}

// CompleteRegistration 注册第三步：兑换凭据并激活账号
func (s *AccountService) CompleteRegistration(credential, displayName, password string) (*models.User, string, time.Time, error) {
	if err := s.authService.ValidatePassword(password); err != nil {
		return nil, "", time.Time{}, err
	}

	handoff, err := s.tokenService.Redeem(credential, constants.TokenFlowRegister)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	user, err := s.findUserByHandoff(handoff)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if user == nil {
		return nil, "", time.Time{}, ErrAccountNotFound
	}
	if strings.ToLower(user.Status) == constants.UserStatusActive {
		return nil, "", time.Time{}, ErrAccountAlreadyActive
	}
	if strings.ToLower(user.Status) == constants.UserStatusDisabled {
		return nil, "", time.Time{}, ErrAccountInactive
	}

	hash, err := s.authService.HashPassword(password)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	now := time.Now()
	user.PasswordHash = hash
	user.Status = constants.UserStatusActive
	user.EmailVerifiedAt = &now
	user.LastLoginAt = &now
	if name := strings.TrimSpace(displayName); name != "" {
		user.DisplayName = name
	}
	if err := s.userRepo.Update(user); err != nil {
		return nil, "", time.Time{}, err
	}

	token, expiresAt, err := s.authService.GenerateUserJWT(user, 0)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	_ = cache.SetUserAuthState(context.Background(), cache.BuildUserAuthState(user))
	return user, token, expiresAt, nil
}

// StartPasswordReset 密码重置第一步：发放重置验证码
// 与账号激活使用相互隔离的专用令牌用途
func (s *AccountService) StartPasswordReset(email, locale string) error {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	user, err := s.userRepo.GetByEmail(normalized)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrAccountNotFound
	}
	if strings.ToLower(user.Status) != constants.UserStatusActive {
		return ErrAccountInactive
	}
	if strings.TrimSpace(user.Locale) != "" {
		locale = user.Locale
	}

	_, err = s.tokenService.IssueAndDeliver(constants.TokenPurposePasswordReset, normalized, &user.ID, nil, resolveUserLocale(locale))
	return err
}

// VerifyPasswordReset 密码重置第二步：校验重置码并换取二阶段凭据
func (s *AccountService) VerifyPasswordReset(email, code string) (string, *models.SecurityToken, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return "", nil, err
	}
	handoff, encoded, err := s.tokenService.ValidateWithHandoff(constants.TokenPurposePasswordReset, normalized, code, constants.TokenFlowReset)
	if err != nil {
		return "", nil, err
	}
	return encoded, handoff, nil
}

// ResetPassword 密码重置第三步：兑换凭据并写入新密码
// 全量失效既有登录态
func (s *AccountService) ResetPassword(credential, newPassword string) error {
	if err := s.authService.ValidatePassword(newPassword); err != nil {
		return err
	}

	handoff, err := s.tokenService.Redeem(credential, constants.TokenFlowReset)
	if err != nil {
		return err
	}

	user, err := s.findUserByHandoff(handoff)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrAccountNotFound
	}

	hash, err := s.authService.HashPassword(newPassword)
	if err != nil {
		return err
	}

	now := time.Now()
	user.PasswordHash = hash
	user.TokenVersion++
	user.TokenInvalidBefore = &now
	if err := s.userRepo.Update(user); err != nil {
		return err
	}
	_ = cache.SetUserAuthState(context.Background(), cache.BuildUserAuthState(user))
	return nil
}

// SendMobileOTP 为登录用户发放手机验证码
// mobileNumber 非空时先更新用户手机号
func (s *AccountService) SendMobileOTP(userID uint, mobileNumber, locale string) error {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrAccountNotFound
	}

	number := strings.TrimSpace(mobileNumber)
	if number != "" && number != user.MobileNumber {
		user.MobileNumber = number
		user.MobileVerifiedAt = nil
		if err := s.userRepo.Update(user); err != nil {
			return err
		}
	}
	if strings.TrimSpace(user.MobileNumber) == "" {
		return ErrMobileNumberRequired
	}
	if strings.TrimSpace(user.Locale) != "" {
		locale = user.Locale
	}

	_, err = s.tokenService.IssueAndDeliver(constants.TokenPurposeMobileOTP, user.MobileNumber, &user.ID, nil, resolveUserLocale(locale))
	return err
}

// VerifyMobileOTP 校验手机验证码并标记手机号已验证
func (s *AccountService) VerifyMobileOTP(userID uint, code string) error {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrAccountNotFound
	}
	if strings.TrimSpace(user.MobileNumber) == "" {
		return ErrMobileNumberRequired
	}

	if _, err := s.tokenService.Validate(constants.TokenPurposeMobileOTP, user.MobileNumber, code); err != nil {
		return err
	}

	now := time.Now()
	user.MobileVerifiedAt = &now
	if err := s.userRepo.Update(user); err != nil {
		return err
	}
	_ = cache.SetUserAuthState(context.Background(), cache.BuildUserAuthState(user))
	return nil
}

// Login 用户登录
func (s *AccountService) Login(email, password string, rememberMe bool) (*models.User, string, time.Time, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	user, err := s.userRepo.GetByEmail(normalized)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if user == nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}
	switch strings.ToLower(user.Status) {
	case constants.UserStatusPending:
		return nil, "", time.Time{}, ErrUserNotActivated
	case constants.UserStatusDisabled:
		return nil, "", time.Time{}, ErrUserDisabled
	}
	if err := s.authService.VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}

	expireHours := s.cfg.JWT.ExpireHours
	if rememberMe && s.cfg.JWT.RememberMeExpireHours > 0 {
		expireHours = s.cfg.JWT.RememberMeExpireHours
	}
	token, expiresAt, err := s.authService.GenerateUserJWT(user, expireHours)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.userRepo.Update(user); err != nil {
		return nil, "", time.Time{}, err
	}
	_ = cache.SetUserAuthState(context.Background(), cache.BuildUserAuthState(user))

	return user, token, expiresAt, nil
}

// ChangePassword 登录态下修改密码：校验旧密码后写入新密码
// 全量失效既有登录态，返回新的登录凭证让当前会话无感续期
func (s *AccountService) ChangePassword(userID uint, oldPassword, newPassword string) (string, time.Time, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return "", time.Time{}, err
	}
	if user == nil {
		return "", time.Time{}, ErrAccountNotFound
	}
	if err := s.authService.VerifyPassword(user.PasswordHash, oldPassword); err != nil {
		return "", time.Time{}, ErrInvalidCredentials
	}
	if err := s.authService.ValidatePassword(newPassword); err != nil {
		return "", time.Time{}, err
	}

	hash, err := s.authService.HashPassword(newPassword)
	if err != nil {
		return "", time.Time{}, err
	}

	now := time.Now()
	user.PasswordHash = hash
	user.TokenVersion++
	user.TokenInvalidBefore = &now
	if err := s.userRepo.Update(user); err != nil {
		return "", time.Time{}, err
	}

	token, expiresAt, err := s.authService.GenerateUserJWT(user, 0)
	if err != nil {
		return "", time.Time{}, err
	}
	_ = cache.SetUserAuthState(context.Background(), cache.BuildUserAuthState(user))
	return token, expiresAt, nil
}

// UpdateProfile 更新用户资料，空字段保持原值
func (s *AccountService) UpdateProfile(userID uint, displayName, locale string) (*models.User, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrAccountNotFound
	}

	if name := strings.TrimSpace(displayName); name != "" {
		user.DisplayName = name
	}
	if loc := strings.TrimSpace(locale); loc != "" {
		user.Locale = loc
	}
	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}
	_ = cache.SetUserAuthState(context.Background(), cache.BuildUserAuthState(user))
	return user, nil
}

// SignOut 退出登录：提升 token 版本使已签发的登录凭证全部失效
func (s *AccountService) SignOut(userID uint) error {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrAccountNotFound
	}

	now := time.Now()
	user.TokenVersion++
	user.TokenInvalidBefore = &now
	if err := s.userRepo.Update(user); err != nil {
		return err
	}
	_ = cache.SetUserAuthState(context.Background(), cache.BuildUserAuthState(user))
	return nil
}

// GetProfile 获取用户资料
func (s *AccountService) GetProfile(userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrAccountNotFound
	}
	return user, nil
}

// findUserByHandoff 按二阶段凭据还原用户，优先走用户关联，退回标识匹配
func (s *AccountService) findUserByHandoff(handoff *models.SecurityToken) (*models.User, error) {
	if handoff == nil {
		return nil, nil
	}
	if handoff.UserID != nil && *handoff.UserID != 0 {
		return s.userRepo.GetByID(*handoff.UserID)
	}
	return s.userRepo.GetByEmail(handoff.Identifier)
}

func normalizeEmail(email string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(email))
	if trimmed == "" {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed {
		return "", ErrInvalidEmail
	}
	return trimmed, nil
}

func resolveNicknameFromEmail(email string) string {
	local := strings.SplitN(email, "@", 2)[0]
	if local == "" {
		return "reader"
	}
	return local
}

func resolveUserLocale(locale string) string {
	trimmed := strings.TrimSpace(locale)
	if trimmed == "" {
		return constants.LocaleZhCN
	}
	return trimmed
}
