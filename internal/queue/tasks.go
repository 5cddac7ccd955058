package queue

import (
	"encoding/json"

	"github.com/bookstore-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskTokenDeliver 令牌通知投递任务
	TaskTokenDeliver = constants.TaskTokenDeliver
)

// TokenDeliverPayload 令牌通知投递任务载荷
type TokenDeliverPayload struct {
	Destination string            `json:"destination"`
	Channel     string            `json:"channel"`
	TemplateID  string            `json:"template_id"`
	Locale      string            `json:"locale"`
	Context     map[string]string `json:"context"`
}

// NewTokenDeliverTask 创建令牌投递任务
func NewTokenDeliverTask(payload TokenDeliverPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTokenDeliver, body), nil
}
