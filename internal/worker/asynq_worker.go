package worker

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/bookstore-next/internal/constants"
	"github.com/bookstore-next/internal/logger"
	"github.com/bookstore-next/internal/provider"
	"github.com/bookstore-next/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskTokenDeliver, c.handleTokenDeliver)
}

func (c *Consumer) handleTokenDeliver(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_token_deliver_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.TokenDeliverPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_token_deliver_unmarshal_failed", "error", err)
		return err
	}

	destination := strings.TrimSpace(payload.Destination)
	if destination == "" || payload.TemplateID == "" {
		logger.Debugw("worker_token_deliver_skip_invalid_payload",
			"destination", destination,
			"template_id", payload.TemplateID,
		)
		return nil
	}

	switch payload.Channel {
	case constants.NotifyChannelEmail:
		if c.EmailService == nil {
			logger.Warnw("worker_token_deliver_skip_email_service_nil", "template_id", payload.TemplateID)
			return nil
		}
		if err := c.EmailService.SendTokenCode(destination, payload.TemplateID, payload.Locale, payload.Context); err != nil {
			logger.Warnw("worker_token_deliver_email_failed",
				"template_id", payload.TemplateID,
				"error", err,
			)
			return err
		}
	case constants.NotifyChannelSMS:
		if c.SMSService == nil {
			logger.Warnw("worker_token_deliver_skip_sms_service_nil", "template_id", payload.TemplateID)
			return nil
		}
		if err := c.SMSService.SendTokenCode(destination, payload.TemplateID, payload.Locale, payload.Context); err != nil {
			logger.Warnw("worker_token_deliver_sms_failed",
				"template_id", payload.TemplateID,
				"error", err,
			)
			return err
		}
	default:
		logger.Debugw("worker_token_deliver_skip_unknown_channel", "channel", payload.Channel)
		return nil
	}

	logger.Debugw("worker_token_deliver_done",
		"channel", payload.Channel,
		"template_id", payload.TemplateID,
	)
	return nil
}
