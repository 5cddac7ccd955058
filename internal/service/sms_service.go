package service

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bookstore-next/internal/config"
	"github.com/bookstore-next/internal/constants"
	"github.com/bookstore-next/internal/i18n"
)

// SMSService 短信发送服务（Twilio 风格 REST 网关）
type SMSService struct {
	cfg        *config.SMSConfig
	httpClient *http.Client
}

// NewSMSService 创建短信服务
func NewSMSService(cfg *config.SMSConfig) *SMSService {
	timeout := 5 * time.Second
	if cfg != nil && cfg.TimeoutMS > 0 {
		timeout = time.Duration(cfg.TimeoutMS) * time.Millisecond
	}
	return &SMSService{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// smsGatewayResponse 网关响应体
type smsGatewayResponse struct {
	SID          string `json:"sid"`
	Status       string `json:"status"`
	ErrorCode    *int   `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// SendTokenCode 按模板发送验证码短信
func (s *SMSService) SendTokenCode(toNumber, templateID, locale string, tctx map[string]string) error {
	body := buildSMSTokenCodeContent(templateID, locale, tctx)
	return s.sendMessage(toNumber, body)
}

func (s *SMSService) sendMessage(toNumber, body string) error {
	if s.cfg == nil || !s.cfg.Enabled {
		return ErrSMSServiceDisabled
	}
	if s.cfg.AccountSID == "" || s.cfg.AuthToken == "" || s.cfg.FromNumber == "" {
		return ErrSMSServiceNotConfigured
	}

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json",
		strings.TrimRight(s.cfg.APIBase, "/"), s.cfg.AccountSID)

	form := url.Values{}
	form.Set("To", strings.TrimSpace(toNumber))
	form.Set("From", s.cfg.FromNumber)
	form.Set("Body", body)

	req, err := http.NewRequest(http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(s.cfg.AccountSID, s.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var gateway smsGatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&gateway); err != nil {
		return fmt.Errorf("短信网关响应解析失败: %w", err)
	}
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("短信网关返回异常状态 %d: %s", resp.StatusCode, gateway.ErrorMessage)
	}
	if gateway.ErrorCode != nil {
		return fmt.Errorf("短信发送失败 code=%d: %s", *gateway.ErrorCode, gateway.ErrorMessage)
	}
	return nil
}

func buildSMSTokenCodeContent(templateID, locale string, tctx map[string]string) string {
	code := tctx["code"]
	expireMinutes := tctx["expire_minutes"]

	if normalizeEmailLocale(locale) == i18n.LocaleEN {
		switch templateID {
		case constants.NotifyTemplateMobileOTP:
			return fmt.Sprintf("Your one-time code is %s. It expires in %s minutes.", code, expireMinutes)
		default:
			return fmt.Sprintf("Your verification code is %s. It expires in %s minutes.", code, expireMinutes)
		}
	}
	switch templateID {
	case constants.NotifyTemplateMobileOTP:
		return fmt.Sprintf("您的一次性验证码是 %s，%s 分钟内有效。", code, expireMinutes)
	default:
		return fmt.Sprintf("您的验证码是 %s，%s 分钟内有效。", code, expireMinutes)
	}
}
