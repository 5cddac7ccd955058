package models

import (
	"strings"
	"time"

	"github.com/bookstore-next/internal/constants"
	"github.com/bookstore-next/internal/logger"

	"golang.org/x/crypto/bcrypt"
)

// InitDemoUser 初始化演示用户账号（已激活，可直接登录）
func InitDemoUser(email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}

	var count int64
	DB.Model(&User{}).Where("email = ?", email).Count(&count)
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	now := time.Now()
	user := User{
		Email:           email,
		PasswordHash:    string(hash),
		DisplayName:     strings.SplitN(email, "@", 2)[0],
		Status:          constants.UserStatusActive,
		EmailVerifiedAt: &now,
	}
	if err := DB.Create(&user).Error; err != nil {
		return err
	}

	logger.Warnw("demo_user_created", "email", email, "password_hidden", true)
	return nil
}
