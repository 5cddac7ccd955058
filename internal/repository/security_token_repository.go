package repository

import (
	"errors"
	"time"

	"github.com/bookstore-next/internal/models"

	"gorm.io/gorm"
)

// SecurityTokenRepository 安全令牌数据访问接口
type SecurityTokenRepository interface {
	Create(token *models.SecurityToken) error
	CreateExclusive(token *models.SecurityToken, now time.Time) error
	GetByID(id uint) (*models.SecurityToken, error)
	FindLive(identifier, purpose string, now time.Time) (*models.SecurityToken, error)
	FindByCode(identifier, purpose, code string) (*models.SecurityToken, error)
	ExpireAllLive(identifier, purpose string, now time.Time, exceptID uint) error
	Consume(id uint, now time.Time) (bool, error)
}

// GormSecurityTokenRepository GORM 实现
type GormSecurityTokenRepository struct {
	db *gorm.DB
}

// NewSecurityTokenRepository 创建安全令牌仓库
func NewSecurityTokenRepository(db *gorm.DB) *GormSecurityTokenRepository {
	return &GormSecurityTokenRepository{db: db}
}

// Create 创建令牌记录
func (r *GormSecurityTokenRepository) Create(token *models.SecurityToken) error {
	return r.db.Create(token).Error
}

// CreateExclusive 在同一事务内先作废旧的有效令牌再插入新令牌
// 并发重发按任意次序交错时，同一标识同一用途仍恰好保留一条有效令牌
func (r *GormSecurityTokenRepository) CreateExclusive(token *models.SecurityToken, now time.Time) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.SecurityToken{}).
			Where("identifier = ? AND purpose = ? AND expires_at > ?", token.Identifier, token.Purpose, now).
			Update("expires_at", now).Error; err != nil {
			return err
		}
		return tx.Create(token).Error
	})
}

// GetByID 根据 ID 获取令牌
func (r *GormSecurityTokenRepository) GetByID(id uint) (*models.SecurityToken, error) {
	var record models.SecurityToken
	if err := r.db.First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// FindLive 获取指定标识与用途下最新的未过期令牌
func (r *GormSecurityTokenRepository) FindLive(identifier, purpose string, now time.Time) (*models.SecurityToken, error) {
	var record models.SecurityToken
	if err := r.db.Where("identifier = ? AND purpose = ? AND expires_at > ?", identifier, purpose, now).
		Order("issued_at desc, id desc").
		First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// FindByCode 按验证码获取最新匹配令牌（不区分是否过期）
func (r *GormSecurityTokenRepository) FindByCode(identifier, purpose, code string) (*models.SecurityToken, error) {
	var record models.SecurityToken
	if err := r.db.Where("identifier = ? AND purpose = ? AND code = ?", identifier, purpose, code).
		Order("issued_at desc, id desc").
		First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// ExpireAllLive 将指定标识与用途下所有未过期令牌立即失效
// exceptID 非零时保留该条记录，保证同一主体同一用途至多一条有效令牌
func (r *GormSecurityTokenRepository) ExpireAllLive(identifier, purpose string, now time.Time, exceptID uint) error {
	query := r.db.Model(&models.SecurityToken{}).
		Where("identifier = ? AND purpose = ? AND expires_at > ?", identifier, purpose, now)
	if exceptID != 0 {
		query = query.Where("id <> ?", exceptID)
	}
	return query.Update("expires_at", now).Error
}

// Consume 以条件更新方式消费令牌，返回是否由本次调用完成消费
// 过期时间充当原子闸门：只有仍未过期的记录才会被置为已消费
func (r *GormSecurityTokenRepository) Consume(id uint, now time.Time) (bool, error) {
	result := r.db.Model(&models.SecurityToken{}).
		Where("id = ? AND expires_at > ?", id, now).
		Updates(map[string]interface{}{
			"expires_at":  now,
			"consumed_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
