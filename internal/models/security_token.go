package models

import "time"

// SecurityToken 安全验证令牌记录
// 每条记录绑定标识（邮箱或手机号）与用途，过期时间为排他边界
type SecurityToken struct {
	ID         uint       `gorm:"primarykey" json:"id"`                           // 主键
	UserID     *uint      `gorm:"index" json:"user_id"`                           // 关联用户ID（可空）
	Identifier string     `gorm:"index:idx_token_subject;not null" json:"-"`      // 标识（邮箱/手机号）
	Purpose    string     `gorm:"index:idx_token_subject;not null" json:"purpose"` // 用途
	Code       string     `gorm:"not null" json:"-"`                              // 4 位数字验证码（不返回给前端）
	Metadata   string     `gorm:"type:text" json:"-"`                             // 附加元数据（JSON）
	IssuedAt   time.Time  `gorm:"index;not null" json:"issued_at"`                // 签发时间
	ExpiresAt  time.Time  `gorm:"index;not null" json:"expires_at"`               // 过期时间（不含）
	ConsumedAt *time.Time `gorm:"index" json:"-"`                                 // 消费时间
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`                        // 创建时间
}

// TableName 指定表名
func (SecurityToken) TableName() string {
	return "security_tokens"
}

// Live 判断令牌在给定时刻是否仍然有效
func (t *SecurityToken) Live(now time.Time) bool {
	if t == nil {
		return false
	}
	return now.Before(t.ExpiresAt)
}
