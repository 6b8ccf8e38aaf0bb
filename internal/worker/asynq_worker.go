package worker

import (
	"context"
	"encoding/json"

	"github.com/release-unlock/internal/logger"
	"github.com/release-unlock/internal/provider"
	"github.com/release-unlock/internal/queue"
	"github.com/release-unlock/internal/service"

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
	mux.HandleFunc(queue.TaskFraudObserve, c.handleFraudObserve)
}

func (c *Consumer) handleFraudObserve(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_fraud_observe_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.FraudObservePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_fraud_observe_unmarshal_failed", "error", err)
		return err
	}
	if c.FraudDetector == nil {
		logger.Warnw("worker_fraud_observe_skip_detector_nil", "code", payload.Code)
		return nil
	}
	c.FraudDetector.Observe(ctx, service.FraudAttempt{
		UserID:     payload.UserID,
		Code:       payload.Code,
		ClientIP:   payload.ClientIP,
		DeviceHash: payload.DeviceHash,
		At:         payload.At,
	})
	return nil
}
