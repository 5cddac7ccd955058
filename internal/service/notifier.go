package service

import (
	"github.com/bookstore-next/internal/constants"
	"github.com/bookstore-next/internal/queue"
)

// Notifier 令牌通知投递接口
// 投递目标可以是邮箱或手机号，由具体实现决定渠道
type Notifier interface {
	Deliver(destination, templateID, locale string, tctx map[string]string) error
}

// EmailNotifier 邮件渠道投递实现
type EmailNotifier struct {
	emailService *EmailService
}

// NewEmailNotifier 创建邮件投递器
func NewEmailNotifier(emailService *EmailService) *EmailNotifier {
	return &EmailNotifier{emailService: emailService}
}

// Deliver 通过 SMTP 同步投递验证码
func (n *EmailNotifier) Deliver(destination, templateID, locale string, tctx map[string]string) error {
	if n == nil || n.emailService == nil {
		return ErrEmailServiceNotConfigured
	}
	return n.emailService.SendTokenCode(destination, templateID, locale, tctx)
}

// SMSNotifier 短信渠道投递实现
type SMSNotifier struct {
	smsService *SMSService
}

// NewSMSNotifier 创建短信投递器
func NewSMSNotifier(smsService *SMSService) *SMSNotifier {
	return &SMSNotifier{smsService: smsService}
}

// Deliver 通过短信网关同步投递验证码
func (n *SMSNotifier) Deliver(destination, templateID, locale string, tctx map[string]string) error {
	if n == nil || n.smsService == nil {
		return ErrSMSServiceNotConfigured
	}
	return n.smsService.SendTokenCode(destination, templateID, locale, tctx)
}

// QueueNotifier 队列渠道投递实现
// 将投递任务推入异步队列，由 worker 按渠道实际发送；队列不可用时回退为同步投递
type QueueNotifier struct {
	client   *queue.Client
	channel  string
	fallback Notifier
}

// NewQueueNotifier 创建队列投递器
func NewQueueNotifier(client *queue.Client, channel string, fallback Notifier) *QueueNotifier {
	if channel == "" {
		channel = constants.NotifyChannelEmail
	}
	return &QueueNotifier{client: client, channel: channel, fallback: fallback}
}

// Deliver 推送投递任务，入队失败或队列关闭时走同步回退
func (n *QueueNotifier) Deliver(destination, templateID, locale string, tctx map[string]string) error {
	if n != nil && n.client.Enabled() {
		err := n.client.EnqueueTokenDeliver(queue.TokenDeliverPayload{
			Destination: destination,
			Channel:     n.channel,
			TemplateID:  templateID,
			Locale:      locale,
			Context:     tctx,
		})
		if err == nil {
			return nil
		}
	}
	if n != nil && n.fallback != nil {
		return n.fallback.Deliver(destination, templateID, locale, tctx)
	}
	return ErrEmailServiceNotConfigured
}
