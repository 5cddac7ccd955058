package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/bookstore-next/internal/config"
	"github.com/bookstore-next/internal/constants"
	"github.com/bookstore-next/internal/logger"
	"github.com/bookstore-next/internal/models"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	now := time.Now()
	users := []struct {
		Email    string
		Password string
		Name     string
		Locale   string
		Status   string
		Verified bool
	}{
		{Email: "reader@example.com", Password: "Reader2026!", Name: "书虫", Locale: constants.LocaleZhCN, Status: constants.UserStatusActive, Verified: true},
		{Email: "collector@example.com", Password: "Collector2026!", Name: "collector", Locale: constants.LocaleEnUS, Status: constants.UserStatusActive, Verified: true},
		{Email: "pending@example.com", Password: "", Name: "pending", Locale: constants.LocaleEnUS, Status: constants.UserStatusPending, Verified: false},
		{Email: "banned@example.com", Password: "Banned2026!", Name: "banned", Locale: constants.LocaleZhCN, Status: constants.UserStatusDisabled, Verified: true},
	}

	for _, seed := range users {
		email := strings.ToLower(seed.Email)
		var existing models.User
		if err := models.DB.Where("email = ?", email).First(&existing).Error; err == nil {
			stdLog.Printf("User already exists: %s", email)
			continue
		}

		user := models.User{
			Email:       email,
			DisplayName: seed.Name,
			Locale:      seed.Locale,
			Status:      seed.Status,
		}
		if seed.Password != "" {
			hash, err := bcrypt.GenerateFromPassword([]byte(seed.Password), bcrypt.DefaultCost)
			if err != nil {
				stdLog.Printf("Failed to hash password for %s: %v", email, err)
				continue
			}
			user.PasswordHash = string(hash)
		}
		if seed.Verified {
			verifiedAt := now
			user.EmailVerifiedAt = &verifiedAt
		}

		if err := models.DB.Create(&user).Error; err != nil {
			stdLog.Printf("Failed to create user %s: %v", email, err)
		} else {
			stdLog.Printf("Created user: %s (%s)", email, seed.Status)
		}
	}

	fmt.Println("\n✅ Seed data created successfully!")
	fmt.Println("Summary:")
	fmt.Println("- 2 active users (reader@example.com / collector@example.com)")
	fmt.Println("- 1 pending user awaiting activation")
	fmt.Println("- 1 disabled user")
}
