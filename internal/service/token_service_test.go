package service

import (
	"errors"
	"fmt"
	"regexp"
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

type recordingNotifier struct {
	deliveries []recordedDelivery
	failWith   error
}

type recordedDelivery struct {
	destination string
	templateID  string
	locale      string
	tctx        map[string]string
}

func (n *recordingNotifier) Deliver(destination, templateID, locale string, tctx map[string]string) error {
	n.deliveries = append(n.deliveries, recordedDelivery{
		destination: destination,
		templateID:  templateID,
		locale:      locale,
		tctx:        tctx,
	})
	return n.failWith
}

func setupTokenServiceTest(t *testing.T) (*TokenService, repository.SecurityTokenRepository, *recordingNotifier) {
	t.Helper()

	dsn := fmt.Sprintf("file:token_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("打开内存数据库失败: %v", err)
	}
	if err := db.AutoMigrate(&models.SecurityToken{}); err != nil {
		t.Fatalf("迁移失败: %v", err)
	}

	cfg := &config.Config{}
	cfg.Token.Secret = "token-service-test-secret"
	cfg.Token.ActivationExpireMinutes = 15
	cfg.Token.ResetExpireMinutes = 15
	cfg.Token.OTPExpireMinutes = 5
	cfg.Token.VerifyExpireMinutes = 30
	cfg.Token.SendIntervalSeconds = 60

	tokenCodec, err := codec.New(cfg.Token.Secret)
	if err != nil {
		t.Fatalf("创建凭据编解码器失败: %v", err)
	}

	repo := repository.NewSecurityTokenRepository(db)
	notifier := &recordingNotifier{}
	svc := NewTokenService(cfg, repo, tokenCodec, map[string]Notifier{
		constants.NotifyChannelEmail: notifier,
	})
	return svc, repo, notifier
}

func setServiceNow(svc *TokenService, at time.Time) {
	svc.now = func() time.Time { return at }
}

func TestTokenServiceIssueGeneratesUniformCode(t *testing.T) {
	svc, _, _ := setupTokenServiceTest(t)

	codePattern := regexp.MustCompile(`^\d{4}$`)
	token, err := svc.Issue(constants.TokenPurposeAccountActivation, "Reader@Example.COM ", nil, nil)
	if err != nil {
		t.Fatalf("发放令牌失败: %v", err)
	}
	if !codePattern.MatchString(token.Code) {
		t.Fatalf("验证码应为 4 位零填充数字, got %q", token.Code)
	}
	if token.Identifier != "reader@example.com" {
		t.Fatalf("标识应归一化为小写, got %q", token.Identifier)
	}
	if !token.Live(time.Now()) {
		t.Fatal("新发放的令牌应处于有效状态")
	}
}

func TestTokenServiceIssueUnknownPurpose(t *testing.T) {
	svc, _, _ := setupTokenServiceTest(t)

	if _, err := svc.Issue("session_refresh", "reader@example.com", nil, nil); !errors.Is(err, ErrPurposeUnknown) {
		t.Fatalf("expected ErrPurposeUnknown, got %v", err)
	}
}

func TestTokenServiceBlankInputRejected(t *testing.T) {
	svc, _, _ := setupTokenServiceTest(t)

	if _, err := svc.Issue(constants.TokenPurposeAccountActivation, "   ", nil, nil); !errors.Is(err, ErrInvalidParam) {
		t.Fatalf("空标识发放应返回 ErrInvalidParam, got %v", err)
	}
	if _, err := svc.Validate(constants.TokenPurposeAccountActivation, "", "1234"); !errors.Is(err, ErrInvalidParam) {
		t.Fatalf("空标识校验应返回 ErrInvalidParam, got %v", err)
	}
	if _, err := svc.Validate(constants.TokenPurposeAccountActivation, "reader@example.com", "  "); !errors.Is(err, ErrInvalidParam) {
		t.Fatalf("空验证码校验应返回 ErrInvalidParam, got %v", err)
	}
}

func TestTokenServiceReissueInvalidatesPrevious(t *testing.T) {
	svc, repo, _ := setupTokenServiceTest(t)

	base := time.Now()
	setServiceNow(svc, base)
	first, err := svc.Issue(constants.TokenPurposeAccountActivation, "reader@example.com", nil, nil)
	if err != nil {
		t.Fatalf("首次发放失败: %v", err)
	}

	// 跨过发送间隔后重发
	setServiceNow(svc, base.Add(2*time.Minute))
	second, err := svc.Issue(constants.TokenPurposeAccountActivation, "reader@example.com", nil, nil)
	if err != nil {
		t.Fatalf("重发失败: %v", err)
	}

	live, err := repo.FindLive("reader@example.com", constants.TokenPurposeAccountActivation, base.Add(3*time.Minute))
	if err != nil {
		t.Fatalf("查询有效令牌失败: %v", err)
	}
	if live == nil || live.ID != second.ID {
		t.Fatal("同一主体同一用途应只保留最新令牌有效")
	}

	stale, err := repo.GetByID(first.ID)
	if err != nil {
		t.Fatalf("查询旧令牌失败: %v", err)
	}
	if stale.Live(base.Add(3 * time.Minute)) {
		t.Fatal("旧令牌应随重发立即失效")
	}
}

func TestTokenServiceIssueThrottled(t *testing.T) {
	svc, _, _ := setupTokenServiceTest(t)

	base := time.Now()
	setServiceNow(svc, base)
	if _, err := svc.Issue(constants.TokenPurposeAccountActivation, "reader@example.com", nil, nil); err != nil {
		t.Fatalf("首次发放失败: %v", err)
	}

	setServiceNow(svc, base.Add(30*time.Second))
	if _, err := svc.Issue(constants.TokenPurposeAccountActivation, "reader@example.com", nil, nil); !errors.Is(err, ErrSendTooFrequent) {
		t.Fatalf("间隔内重发应被节流, got %v", err)
	}

	setServiceNow(svc, base.Add(61*time.Second))
	if _, err := svc.Issue(constants.TokenPurposeAccountActivation, "reader@example.com", nil, nil); err != nil {
		t.Fatalf("跨过间隔后重发应放行, got %v", err)
	}
}

func TestTokenServiceValidateConsumesOnce(t *testing.T) {
	svc, _, _ := setupTokenServiceTest(t)

	token, err := svc.Issue(constants.TokenPurposeAccountActivation, "reader@example.com", nil, nil)
	if err != nil {
		t.Fatalf("发放令牌失败: %v", err)
	}

	consumed, err := svc.Validate(constants.TokenPurposeAccountActivation, "reader@example.com", token.Code)
	if err != nil {
		t.Fatalf("首次校验应成功: %v", err)
	}
	if consumed.ConsumedAt == nil {
		t.Fatal("消费成功后应记录消费时间")
	}

	if _, err := svc.Validate(constants.TokenPurposeAccountActivation, "reader@example.com", token.Code); !errors.Is(err, ErrTokenExpired) && !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("二次校验应失败, got %v", err)
	}
}

func TestTokenServiceValidateExpired(t *testing.T) {
	svc, _, _ := setupTokenServiceTest(t)

	base := time.Now()
	setServiceNow(svc, base)
	token, err := svc.Issue(constants.TokenPurposeAccountActivation, "reader@example.com", nil, nil)
	if err != nil {
		t.Fatalf("发放令牌失败: %v", err)
	}

	setServiceNow(svc, base.Add(16*time.Minute))
	if _, err := svc.Validate(constants.TokenPurposeAccountActivation, "reader@example.com", token.Code); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("过期令牌应返回 ErrTokenExpired, got %v", err)
	}
}

func TestTokenServiceValidatePurposeIsolation(t *testing.T) {
	svc, _, _ := setupTokenServiceTest(t)

	token, err := svc.Issue(constants.TokenPurposeAccountActivation, "reader@example.com", nil, nil)
	if err != nil {
		t.Fatalf("发放令牌失败: %v", err)
	}

	// 激活码不能用于密码重置流程
	if _, err := svc.Validate(constants.TokenPurposePasswordReset, "reader@example.com", token.Code); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("跨用途校验应返回 ErrTokenNotFound, got %v", err)
	}

	// 隔离失败的尝试不消费原令牌
	if _, err := svc.Validate(constants.TokenPurposeAccountActivation, "reader@example.com", token.Code); err != nil {
		t.Fatalf("原用途校验应仍然成功: %v", err)
	}
}

func TestTokenServiceValidateWrongCode(t *testing.T) {
	svc, _, _ := setupTokenServiceTest(t)

	token, err := svc.Issue(constants.TokenPurposeAccountActivation, "reader@example.com", nil, nil)
	if err != nil {
		t.Fatalf("发放令牌失败: %v", err)
	}

	wrong := "0000"
	if wrong == token.Code {
		wrong = "0001"
	}
	if _, err := svc.Validate(constants.TokenPurposeAccountActivation, "reader@example.com", wrong); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("错误验证码应返回 ErrTokenNotFound, got %v", err)
	}
}

func TestTokenServiceIssueAndDeliver(t *testing.T) {
	svc, _, notifier := setupTokenServiceTest(t)

	userID := uint(7)
	token, err := svc.IssueAndDeliver(constants.TokenPurposeAccountActivation, "reader@example.com", &userID, nil, constants.LocaleEnUS)
	if err != nil {
		t.Fatalf("发放并投递失败: %v", err)
	}
	if len(notifier.deliveries) != 1 {
		t.Fatalf("应投递一次通知, got %d", len(notifier.deliveries))
	}
	delivery := notifier.deliveries[0]
	if delivery.destination != "reader@example.com" {
		t.Fatalf("unexpected destination %q", delivery.destination)
	}
	if delivery.templateID != constants.NotifyTemplateAccountActivation {
		t.Fatalf("unexpected template %q", delivery.templateID)
	}
	if delivery.tctx["code"] != token.Code {
		t.Fatal("通知上下文应携带验证码")
	}
}

func TestTokenServiceIssueAndDeliverToleratesNotifierFailure(t *testing.T) {
	svc, _, notifier := setupTokenServiceTest(t)
	notifier.failWith = errors.New("smtp unreachable")

	token, err := svc.IssueAndDeliver(constants.TokenPurposeAccountActivation, "reader@example.com", nil, nil, constants.LocaleZhCN)
	if err != nil {
		t.Fatalf("投递失败不应影响发放结果: %v", err)
	}
	if _, err := svc.Validate(constants.TokenPurposeAccountActivation, "reader@example.com", token.Code); err != nil {
		t.Fatalf("投递失败后令牌应仍可校验: %v", err)
	}
}

func TestTokenServiceHandoffRoundTrip(t *testing.T) {
	svc, _, _ := setupTokenServiceTest(t)

	userID := uint(11)
	token, err := svc.Issue(constants.TokenPurposeAccountActivation, "reader@example.com", &userID, nil)
	if err != nil {
		t.Fatalf("发放令牌失败: %v", err)
	}

	handoff, encoded, err := svc.ValidateWithHandoff(constants.TokenPurposeAccountActivation, "reader@example.com", token.Code, constants.TokenFlowRegister)
	if err != nil {
		t.Fatalf("换取二阶段凭据失败: %v", err)
	}
	if encoded == "" {
		t.Fatal("二阶段凭据不应为空")
	}
	if handoff.Purpose != constants.TokenPurposeRegisterVerify {
		t.Fatalf("unexpected handoff purpose %q", handoff.Purpose)
	}
	if handoff.UserID == nil || *handoff.UserID != userID {
		t.Fatal("交接令牌应继承用户关联")
	}

	redeemed, err := svc.Redeem(encoded, constants.TokenFlowRegister)
	if err != nil {
		t.Fatalf("兑换凭据失败: %v", err)
	}
	if redeemed.ID != handoff.ID {
		t.Fatal("兑换结果应指向交接令牌本身")
	}
}

func TestTokenServiceRedeemWrongFlow(t *testing.T) {
	svc, _, _ := setupTokenServiceTest(t)

	token, err := svc.Issue(constants.TokenPurposeAccountActivation, "reader@example.com", nil, nil)
	if err != nil {
		t.Fatalf("发放令牌失败: %v", err)
	}
	_, encoded, err := svc.ValidateWithHandoff(constants.TokenPurposeAccountActivation, "reader@example.com", token.Code, constants.TokenFlowRegister)
	if err != nil {
		t.Fatalf("换取二阶段凭据失败: %v", err)
	}

	// 注册流程的凭据不能用于密码重置
	if _, err := svc.Redeem(encoded, constants.TokenFlowReset); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("跨流程兑换应返回 ErrTokenNotFound, got %v", err)
	}
}

func TestTokenServiceRedeemSingleUse(t *testing.T) {
	svc, _, _ := setupTokenServiceTest(t)

	token, err := svc.Issue(constants.TokenPurposePasswordReset, "reader@example.com", nil, nil)
	if err != nil {
		t.Fatalf("发放令牌失败: %v", err)
	}
	_, encoded, err := svc.ValidateWithHandoff(constants.TokenPurposePasswordReset, "reader@example.com", token.Code, constants.TokenFlowReset)
	if err != nil {
		t.Fatalf("换取二阶段凭据失败: %v", err)
	}

	if _, err := svc.Redeem(encoded, constants.TokenFlowReset); err != nil {
		t.Fatalf("首次兑换应成功: %v", err)
	}
	if _, err := svc.Redeem(encoded, constants.TokenFlowReset); !errors.Is(err, ErrTokenExpired) && !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("重复兑换应失败, got %v", err)
	}
}

func TestTokenServiceRedeemTamperedCredential(t *testing.T) {
	svc, _, _ := setupTokenServiceTest(t)

	if _, err := svc.Redeem("not-a-real-credential", constants.TokenFlowRegister); !errors.Is(err, ErrCredentialInvalid) {
		t.Fatalf("伪造凭据应返回 ErrCredentialInvalid, got %v", err)
	}
}
