package service

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"github.com/bookstore-next/internal/codec"
	"github.com/bookstore-next/internal/config"
	"github.com/bookstore-next/internal/constants"
	"github.com/bookstore-next/internal/logger"
	"github.com/bookstore-next/internal/models"
	"github.com/bookstore-next/internal/repository"
)

const tokenCodeSpace = 10000

// tokenMetadataFlowKey 二阶段令牌元数据中的流程标记键
const tokenMetadataFlowKey = "flow"

// tokenPurposeProfile 单个令牌用途的发放参数
type tokenPurposeProfile struct {
	expireMinutes int
	templateID    string
	channel       string
}

// TokenService 安全令牌服务
// 负责验证码的发放、校验、二阶段凭据的铸造与兑换
type TokenService struct {
	cfg       *config.Config
	tokenRepo repository.SecurityTokenRepository
	codec     *codec.Codec
	notifiers map[string]Notifier

	// 时间与随机源可注入，便于测试确定性
	now  func() time.Time
	rand io.Reader
}

// NewTokenService 创建安全令牌服务，notifiers 按投递渠道注册
func NewTokenService(cfg *config.Config, tokenRepo repository.SecurityTokenRepository, tokenCodec *codec.Codec, notifiers map[string]Notifier) *TokenService {
	return &TokenService{
		cfg:       cfg,
		tokenRepo: tokenRepo,
		codec:     tokenCodec,
		notifiers: notifiers,
		now:       time.Now,
		rand:      rand.Reader,
	}
}

func (s *TokenService) resolveProfile(purpose string) (tokenPurposeProfile, error) {
	tokenCfg := config.TokenConfig{}
	if s.cfg != nil {
		tokenCfg = s.cfg.Token
	}
	switch purpose {
	case constants.TokenPurposeAccountActivation:
		return tokenPurposeProfile{
			expireMinutes: resolvePositiveInt(tokenCfg.ActivationExpireMinutes, 15),
			templateID:    constants.NotifyTemplateAccountActivation,
			channel:       constants.NotifyChannelEmail,
		}, nil
	case constants.TokenPurposePasswordReset:
		return tokenPurposeProfile{
			expireMinutes: resolvePositiveInt(tokenCfg.ResetExpireMinutes, 15),
			templateID:    constants.NotifyTemplatePasswordReset,
			channel:       constants.NotifyChannelEmail,
		}, nil
	case constants.TokenPurposeMobileOTP:
		return tokenPurposeProfile{
			expireMinutes: resolvePositiveInt(tokenCfg.OTPExpireMinutes, 5),
			templateID:    constants.NotifyTemplateMobileOTP,
			channel:       constants.NotifyChannelSMS,
		}, nil
	case constants.TokenPurposeRegisterVerify:
		return tokenPurposeProfile{
			expireMinutes: resolvePositiveInt(tokenCfg.VerifyExpireMinutes, 30),
		}, nil
	default:
		return tokenPurposeProfile{}, ErrPurposeUnknown
	}
}

func (s *TokenService) resolveSendInterval() time.Duration {
	seconds := 60
	if s.cfg != nil {
		seconds = resolvePositiveInt(s.cfg.Token.SendIntervalSeconds, 60)
	}
	return time.Duration(seconds) * time.Second
}

// generateCode 生成均匀分布的 4 位零填充数字验证码
func (s *TokenService) generateCode() (string, error) {
	n, err := rand.Int(s.rand, big.NewInt(tokenCodeSpace))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}

// Issue 发放新令牌，同一标识同一用途下旧的有效令牌全部作废
func (s *TokenService) Issue(purpose, identifier string, userID *uint, metadata map[string]string) (*models.SecurityToken, error) {
	profile, err := s.resolveProfile(purpose)
	if err != nil {
		return nil, err
	}
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" {
		return nil, ErrInvalidParam
	}

	now := s.now()

	// 发送间隔节流：仅对可投递的验证码用途生效
	if profile.templateID != "" {
		live, err := s.tokenRepo.FindLive(identifier, purpose, now)
		if err != nil {
			return nil, err
		}
		if live != nil && now.Sub(live.IssuedAt) < s.resolveSendInterval() {
			return nil, ErrSendTooFrequent
		}
	}

	code, err := s.generateCode()
	if err != nil {
		return nil, err
	}

	token := &models.SecurityToken{
		UserID:     userID,
		Identifier: identifier,
		Purpose:    purpose,
		Code:       code,
		Metadata:   encodeTokenMetadata(metadata),
		IssuedAt:   now,
		ExpiresAt:  now.Add(time.Duration(profile.expireMinutes) * time.Minute),
	}
	// 作废旧令牌与写入新令牌在同一事务内完成
	// 并发重发不会互相清空，事务外的读取也不会看到两条有效令牌
	if err := s.tokenRepo.CreateExclusive(token, now); err != nil {
		return nil, err
	}
	return token, nil
}

// IssueAndDeliver 发放令牌并异步投递通知
// 投递失败只记录日志，不影响令牌发放结果
func (s *TokenService) IssueAndDeliver(purpose, identifier string, userID *uint, metadata map[string]string, locale string) (*models.SecurityToken, error) {
	token, err := s.Issue(purpose, identifier, userID, metadata)
	if err != nil {
		return nil, err
	}

	profile, err := s.resolveProfile(purpose)
	if err != nil {
		return nil, err
	}
	notifier := s.notifiers[profile.channel]
	if profile.templateID == "" || notifier == nil {
		return token, nil
	}

	tctx := map[string]string{
		"code":           token.Code,
		"expire_minutes": fmt.Sprintf("%d", profile.expireMinutes),
	}
	if err := notifier.Deliver(token.Identifier, profile.templateID, locale, tctx); err != nil {
		logger.Warnw("token_deliver_failed",
			"purpose", purpose,
			"channel", profile.channel,
			"template_id", profile.templateID,
			"error", err,
		)
	}
	return token, nil
}

// Validate 校验验证码并一次性消费对应令牌
func (s *TokenService) Validate(purpose, identifier, code string) (*models.SecurityToken, error) {
	if _, err := s.resolveProfile(purpose); err != nil {
		return nil, err
	}
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	code = strings.TrimSpace(code)
	if identifier == "" || code == "" {
		return nil, ErrInvalidParam
	}

	token, err := s.tokenRepo.FindByCode(identifier, purpose, code)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, ErrTokenNotFound
	}

	now := s.now()
	if !token.Live(now) {
		return nil, ErrTokenExpired
	}

	won, err := s.tokenRepo.Consume(token.ID, now)
	if err != nil {
		return nil, err
	}
	if !won {
		// 并发校验只有一方能赢得消费
		return nil, ErrTokenNotFound
	}
	token.ExpiresAt = now
	token.ConsumedAt = &now
	return token, nil
}

// ValidateWithHandoff 校验验证码并铸造二阶段交接凭据
// 交接令牌继承用户关联，通过元数据流程标记隔离不同业务流
func (s *TokenService) ValidateWithHandoff(purpose, identifier, code, flow string) (*models.SecurityToken, string, error) {
	token, err := s.Validate(purpose, identifier, code)
	if err != nil {
		return nil, "", err
	}

	handoff, err := s.Issue(constants.TokenPurposeRegisterVerify, token.Identifier, token.UserID, map[string]string{
		tokenMetadataFlowKey: flow,
	})
	if err != nil {
		return nil, "", err
	}

	encoded, err := s.codec.Encode(uint64(handoff.ID))
	if err != nil {
		return nil, "", err
	}
	return handoff, encoded, nil
}

// Redeem 兑换二阶段交接凭据，凭据一次性有效
func (s *TokenService) Redeem(encoded, wantFlow string) (*models.SecurityToken, error) {
	id, err := s.codec.Decode(encoded)
	if err != nil {
		if errors.Is(err, codec.ErrDecode) {
			return nil, ErrCredentialInvalid
		}
		return nil, err
	}

	token, err := s.tokenRepo.GetByID(uint(id))
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, ErrTokenNotFound
	}
	// 用途或流程不匹配时不暴露记录存在性
	if token.Purpose != constants.TokenPurposeRegisterVerify {
		return nil, ErrTokenNotFound
	}
	if decodeTokenMetadata(token.Metadata)[tokenMetadataFlowKey] != wantFlow {
		return nil, ErrTokenNotFound
	}

	now := s.now()
	if !token.Live(now) {
		return nil, ErrTokenExpired
	}

	won, err := s.tokenRepo.Consume(token.ID, now)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, ErrTokenNotFound
	}
	token.ExpiresAt = now
	token.ConsumedAt = &now
	return token, nil
}

func encodeTokenMetadata(metadata map[string]string) string {
	if len(metadata) == 0 {
		return ""
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return ""
	}
	return string(raw)
}

func decodeTokenMetadata(raw string) map[string]string {
	if strings.TrimSpace(raw) == "" {
		return map[string]string{}
	}
	var metadata map[string]string
	if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
		return map[string]string{}
	}
	return metadata
}

func resolvePositiveInt(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}
