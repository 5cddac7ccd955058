package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/bookstore-next/internal/config"
	"github.com/bookstore-next/internal/constants"
)

func TestEmailServiceDisabledOrNotConfigured(t *testing.T) {
	svc := NewEmailService(&config.EmailConfig{Enabled: false})
	err := svc.SendTokenCode("reader@example.com", constants.NotifyTemplateAccountActivation, constants.LocaleZhCN, map[string]string{"code": "1234"})
	if !errors.Is(err, ErrEmailServiceDisabled) {
		t.Fatalf("disabled service err want ErrEmailServiceDisabled got %v", err)
	}

	svc = NewEmailService(&config.EmailConfig{Enabled: true})
	err = svc.SendTokenCode("reader@example.com", constants.NotifyTemplateAccountActivation, constants.LocaleZhCN, map[string]string{"code": "1234"})
	if !errors.Is(err, ErrEmailServiceNotConfigured) {
		t.Fatalf("unconfigured service err want ErrEmailServiceNotConfigured got %v", err)
	}
}

func TestEmailServiceRejectsInvalidRecipient(t *testing.T) {
	svc := NewEmailService(&config.EmailConfig{
		Enabled: true,
		Host:    "smtp.example.com",
		Port:    465,
		From:    "noreply@example.com",
	})
	err := svc.SendTokenCode("not-an-email", constants.NotifyTemplatePasswordReset, constants.LocaleZhCN, map[string]string{"code": "1234"})
	if !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("invalid recipient err want ErrInvalidEmail got %v", err)
	}
}

func TestBuildTokenCodeContent(t *testing.T) {
	tctx := map[string]string{"code": "0427", "expire_minutes": "15"}

	subject, body := buildTokenCodeContent(constants.NotifyTemplateAccountActivation, constants.LocaleZhCN, tctx)
	if subject != "账号激活验证码" {
		t.Fatalf("zh activation subject got %s", subject)
	}
	if !strings.Contains(body, "0427") || !strings.Contains(body, "15") {
		t.Fatalf("zh body should contain code and expire minutes: %s", body)
	}

	subject, body = buildTokenCodeContent(constants.NotifyTemplatePasswordReset, constants.LocaleEnUS, tctx)
	if subject != "Password Reset Code" {
		t.Fatalf("en reset subject got %s", subject)
	}
	if !strings.Contains(body, "password reset") {
		t.Fatalf("en reset body should mention purpose: %s", body)
	}

	subject, _ = buildTokenCodeContent(constants.NotifyTemplateMobileOTP, "en", tctx)
	if subject != "One-Time Code" {
		t.Fatalf("en otp subject got %s", subject)
	}

	subject, _ = buildTokenCodeContent("unknown-template", "", tctx)
	if subject != "验证码" {
		t.Fatalf("fallback subject got %s", subject)
	}
}

func TestIsEmailRecipientRejected(t *testing.T) {
	cases := []struct {
		message string
		want    bool
	}{
		{"550 5.1.1 no such recipient here", true},
		{"recipient address rejected: access denied", true},
		{"550 mailbox unavailable", true},
		{"450 temporary failure", false},
		{"connection refused", false},
		{"", false},
	}
	for _, tc := range cases {
		var err error
		if tc.message != "" {
			err = errors.New(tc.message)
		}
		if got := isEmailRecipientRejected(err); got != tc.want {
			t.Fatalf("message %q want %v got %v", tc.message, tc.want, got)
		}
	}
}
