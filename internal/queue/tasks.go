package queue

import (
	"encoding/json"
	"time"

	"github.com/release-unlock/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskFraudObserve 失败尝试欺诈观察任务
	TaskFraudObserve = constants.TaskFraudObserve
)

// FraudObservePayload 欺诈观察任务载荷
type FraudObservePayload struct {
	UserID     uint      `json:"user_id"`
	Code       string    `json:"code"`
	ClientIP   string    `json:"client_ip"`
	DeviceHash string    `json:"device_hash"`
	At         time.Time `json:"at"`
}

// NewFraudObserveTask 创建欺诈观察任务
func NewFraudObserveTask(payload FraudObservePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFraudObserve, body), nil
}
