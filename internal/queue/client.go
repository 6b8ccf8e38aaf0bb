package queue

import (
	"context"
	"fmt"
	"strings"

	"github.com/release-unlock/internal/config"
	"github.com/release-unlock/internal/constants"
	"github.com/release-unlock/internal/logger"
	"github.com/release-unlock/internal/service"

	"github.com/hibiken/asynq"
)

const (
	// DefaultQueue 默认队列名称
	DefaultQueue = constants.QueueDefault
)

// Client 队列客户端封装
type Client struct {
	client       *asynq.Client
	enabled      bool
	defaultQueue string
}

// NewClient 创建队列客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{enabled: false, defaultQueue: DefaultQueue}, nil
	}
	opt := buildRedisOpt(cfg)
	client := asynq.NewClient(opt)
	return &Client{
		client:       client,
		enabled:      true,
		defaultQueue: DefaultQueue,
	}, nil
}

// Enabled 判断是否启用
func (c *Client) Enabled() bool {
	return c != nil && c.enabled && c.client != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueFraudObservation 推送欺诈观察任务
func (c *Client) EnqueueFraudObservation(ctx context.Context, payload FraudObservePayload, opts ...asynq.Option) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewFraudObserveTask(payload)
	if err != nil {
		return err
	}
	options := append([]asynq.Option{asynq.Queue(c.defaultQueue)}, opts...)
	_, err = c.client.EnqueueContext(ctx, task, options...)
	return err
}

// AsyncFraudObserver 异步欺诈观察入口
// 入队失败时降级为同步检测，观察永不丢失。
type AsyncFraudObserver struct {
	client   *Client
	fallback service.FraudObserver
}

// NewAsyncFraudObserver 创建异步欺诈观察入口
func NewAsyncFraudObserver(client *Client, fallback service.FraudObserver) *AsyncFraudObserver {
	return &AsyncFraudObserver{client: client, fallback: fallback}
}

// Observe 推送观察任务到队列
func (o *AsyncFraudObserver) Observe(ctx context.Context, attempt service.FraudAttempt) {
	if o == nil {
		return
	}
	if !o.client.Enabled() {
		if o.fallback != nil {
			o.fallback.Observe(ctx, attempt)
		}
		return
	}
	err := o.client.EnqueueFraudObservation(ctx, FraudObservePayload{
		UserID:     attempt.UserID,
		Code:       attempt.Code,
		ClientIP:   attempt.ClientIP,
		DeviceHash: attempt.DeviceHash,
		At:         attempt.At,
	})
	if err != nil {
		logger.Warnw("fraud observe enqueue failed", "error", err)
		if o.fallback != nil {
			o.fallback.Observe(ctx, attempt)
		}
	}
}

// BuildServerConfig 生成队列服务配置
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	opt := buildRedisOpt(cfg)
	concurrency := 10
	if cfg != nil && cfg.Concurrency > 0 {
		concurrency = cfg.Concurrency
	}
	queues := map[string]int{DefaultQueue: 1}
	if cfg != nil && len(cfg.Queues) > 0 {
		queues = cfg.Queues
	}
	return opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      queues,
	}
}

func buildRedisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	host := "127.0.0.1"
	port := 6379
	password := ""
	db := 0
	if cfg != nil {
		if strings.TrimSpace(cfg.Host) != "" {
			host = strings.TrimSpace(cfg.Host)
		}
		if cfg.Port > 0 {
			port = cfg.Port
		}
		password = cfg.Password
		db = cfg.DB
	}
	return asynq.RedisClientOpt{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	}
}
