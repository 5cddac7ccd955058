package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/bookstore-next/internal/constants"
	"github.com/bookstore-next/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupSecurityTokenRepositoryTest(t *testing.T) (*GormSecurityTokenRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:security_token_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.SecurityToken{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewSecurityTokenRepository(db), db
}

func newTestToken(identifier, purpose, code string, issuedAt time.Time, ttl time.Duration) *models.SecurityToken {
	return &models.SecurityToken{
		Identifier: identifier,
		Purpose:    purpose,
		Code:       code,
		IssuedAt:   issuedAt,
		ExpiresAt:  issuedAt.Add(ttl),
	}
}

func TestSecurityTokenRepositoryFindLive(t *testing.T) {
	repo, _ := setupSecurityTokenRepositoryTest(t)
	now := time.Now().UTC().Truncate(time.Second)

	stale := newTestToken("alice@example.com", constants.TokenPurposePasswordReset, "0001", now.Add(-time.Hour), 15*time.Minute)
	if err := repo.Create(stale); err != nil {
		t.Fatalf("create stale token failed: %v", err)
	}
	fresh := newTestToken("alice@example.com", constants.TokenPurposePasswordReset, "0002", now, 15*time.Minute)
	if err := repo.Create(fresh); err != nil {
		t.Fatalf("create fresh token failed: %v", err)
	}

	got, err := repo.FindLive("alice@example.com", constants.TokenPurposePasswordReset, now)
	if err != nil {
		t.Fatalf("FindLive failed: %v", err)
	}
	if got == nil || got.ID != fresh.ID {
		t.Fatalf("FindLive returned %+v, want id %d", got, fresh.ID)
	}

	// 恰好到达过期时刻的令牌不再视为有效
	got, err = repo.FindLive("alice@example.com", constants.TokenPurposePasswordReset, fresh.ExpiresAt)
	if err != nil {
		t.Fatalf("FindLive at boundary failed: %v", err)
	}
	if got != nil {
		t.Fatalf("token at expiry boundary should not be live, got id %d", got.ID)
	}

	got, err = repo.FindLive("bob@example.com", constants.TokenPurposePasswordReset, now)
	if err != nil {
		t.Fatalf("FindLive for unknown identifier failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for unknown identifier, got id %d", got.ID)
	}
}

func TestSecurityTokenRepositoryFindLivePurposeIsolation(t *testing.T) {
	repo, _ := setupSecurityTokenRepositoryTest(t)
	now := time.Now().UTC().Truncate(time.Second)

	reset := newTestToken("carol@example.com", constants.TokenPurposePasswordReset, "1111", now, 15*time.Minute)
	if err := repo.Create(reset); err != nil {
		t.Fatalf("create reset token failed: %v", err)
	}
	activation := newTestToken("carol@example.com", constants.TokenPurposeAccountActivation, "2222", now, 15*time.Minute)
	if err := repo.Create(activation); err != nil {
		t.Fatalf("create activation token failed: %v", err)
	}

	got, err := repo.FindByCode("carol@example.com", constants.TokenPurposeAccountActivation, "1111")
	if err != nil {
		t.Fatalf("FindByCode failed: %v", err)
	}
	if got != nil {
		t.Fatalf("code from another purpose must not match, got id %d", got.ID)
	}

	got, err = repo.FindLive("carol@example.com", constants.TokenPurposeAccountActivation, now)
	if err != nil {
		t.Fatalf("FindLive failed: %v", err)
	}
	if got == nil || got.ID != activation.ID {
		t.Fatalf("FindLive crossed purposes: got %+v", got)
	}
}

func TestSecurityTokenRepositoryExpireAllLive(t *testing.T) {
	repo, _ := setupSecurityTokenRepositoryTest(t)
	now := time.Now().UTC().Truncate(time.Second)

	first := newTestToken("dave@example.com", constants.TokenPurposeAccountActivation, "3333", now.Add(-time.Minute), 15*time.Minute)
	if err := repo.Create(first); err != nil {
		t.Fatalf("create first token failed: %v", err)
	}
	second := newTestToken("dave@example.com", constants.TokenPurposeAccountActivation, "4444", now, 15*time.Minute)
	if err := repo.Create(second); err != nil {
		t.Fatalf("create second token failed: %v", err)
	}
	otherPurpose := newTestToken("dave@example.com", constants.TokenPurposeMobileOTP, "5555", now, 5*time.Minute)
	if err := repo.Create(otherPurpose); err != nil {
		t.Fatalf("create other purpose token failed: %v", err)
	}

	if err := repo.ExpireAllLive("dave@example.com", constants.TokenPurposeAccountActivation, now, second.ID); err != nil {
		t.Fatalf("ExpireAllLive failed: %v", err)
	}

	got, err := repo.GetByID(first.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Live(now) {
		t.Fatalf("first token should have been expired")
	}

	got, err = repo.GetByID(second.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !got.Live(now) {
		t.Fatalf("excepted token must stay live")
	}

	got, err = repo.GetByID(otherPurpose.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !got.Live(now) {
		t.Fatalf("token of another purpose must not be touched")
	}
}

func TestSecurityTokenRepositoryCreateExclusive(t *testing.T) {
	repo, db := setupSecurityTokenRepositoryTest(t)
	now := time.Now().UTC().Truncate(time.Second)

	first := newTestToken("grace@example.com", constants.TokenPurposeAccountActivation, "0001", now.Add(-time.Minute), 15*time.Minute)
	if err := repo.CreateExclusive(first, now.Add(-time.Minute)); err != nil {
		t.Fatalf("CreateExclusive first failed: %v", err)
	}
	second := newTestToken("grace@example.com", constants.TokenPurposeAccountActivation, "0002", now, 15*time.Minute)
	if err := repo.CreateExclusive(second, now); err != nil {
		t.Fatalf("CreateExclusive second failed: %v", err)
	}

	var liveCount int64
	if err := db.Model(&models.SecurityToken{}).
		Where("identifier = ? AND purpose = ? AND expires_at > ?", "grace@example.com", constants.TokenPurposeAccountActivation, now).
		Count(&liveCount).Error; err != nil {
		t.Fatalf("count live tokens failed: %v", err)
	}
	if liveCount != 1 {
		t.Fatalf("live token count want 1 got %d", liveCount)
	}

	live, err := repo.FindLive("grace@example.com", constants.TokenPurposeAccountActivation, now)
	if err != nil {
		t.Fatalf("FindLive failed: %v", err)
	}
	if live == nil || live.ID != second.ID {
		t.Fatalf("surviving token should be the latest issue")
	}

	stale, err := repo.GetByID(first.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stale.Live(now) {
		t.Fatalf("previous token should be expired")
	}
	// 被重发顶掉的令牌是失效而非消费
	if stale.ConsumedAt != nil {
		t.Fatalf("superseded token must not be marked consumed")
	}
}

func TestSecurityTokenRepositoryConsumeOnce(t *testing.T) {
	repo, _ := setupSecurityTokenRepositoryTest(t)
	now := time.Now().UTC().Truncate(time.Second)

	token := newTestToken("erin@example.com", constants.TokenPurposeMobileOTP, "6666", now, 5*time.Minute)
	if err := repo.Create(token); err != nil {
		t.Fatalf("create token failed: %v", err)
	}

	ok, err := repo.Consume(token.ID, now)
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if !ok {
		t.Fatalf("first Consume should win")
	}

	ok, err = repo.Consume(token.ID, now)
	if err != nil {
		t.Fatalf("second Consume failed: %v", err)
	}
	if ok {
		t.Fatalf("second Consume must lose")
	}

	got, err := repo.GetByID(token.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.ConsumedAt == nil {
		t.Fatalf("consumed_at should be stamped")
	}
	if got.Live(now) {
		t.Fatalf("consumed token must not be live")
	}
}

func TestSecurityTokenRepositoryConsumeExpired(t *testing.T) {
	repo, _ := setupSecurityTokenRepositoryTest(t)
	now := time.Now().UTC().Truncate(time.Second)

	token := newTestToken("frank@example.com", constants.TokenPurposeRegisterVerify, "7777", now.Add(-time.Hour), 30*time.Minute)
	if err := repo.Create(token); err != nil {
		t.Fatalf("create token failed: %v", err)
	}

	ok, err := repo.Consume(token.ID, now)
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if ok {
		t.Fatalf("expired token must not be consumable")
	}

	got, err := repo.GetByID(token.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.ConsumedAt != nil {
		t.Fatalf("expired token must not be marked consumed")
	}
}
