package service

import (
	"context"
	"strconv"
	"time"

	"github.com/release-unlock/internal/constants"
	"github.com/release-unlock/internal/repository"
)

// AttemptCounterStore 失败计数存储
// Increment 必须是单次原子操作，窗口语义由实现保证。
type AttemptCounterStore interface {
	Count(ctx context.Context, identifier, kind string, window time.Duration) (int, error)
	Increment(ctx context.Context, identifier, kind string, window time.Duration) (int, error)
	BlockedUntil(ctx context.Context, identifier, kind string) (*time.Time, error)
	Block(ctx context.Context, identifier, kind string, until time.Time) error
}

// RateLimiterOptions 限流参数
type RateLimiterOptions struct {
	MaxAttempts   int
	Window        time.Duration
	BlockDuration time.Duration
}

func (o RateLimiterOptions) normalized() RateLimiterOptions {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.Window <= 0 {
		o.Window = 10 * time.Minute
	}
	if o.BlockDuration <= 0 {
		o.BlockDuration = 30 * time.Minute
	}
	return o
}

// LimitSubject 一次尝试涉及的限流标识集合
type LimitSubject struct {
	ClientIP   string
	UserID     uint
	DeviceHash string
}

func (s LimitSubject) identifiers() map[string]string {
	result := make(map[string]string, 3)
	if s.ClientIP != "" {
		result[constants.RateLimitKindIP] = s.ClientIP
	}
	if s.UserID > 0 {
		result[constants.RateLimitKindUser] = strconv.FormatUint(uint64(s.UserID), 10)
	}
	if s.DeviceHash != "" {
		result[constants.RateLimitKindDevice] = s.DeviceHash
	}
	return result
}

// RateLimiter 兑换尝试限流器
// 尝试前 Check，失败后 RecordFailure；成功不计数。
type RateLimiter struct {
	store AttemptCounterStore
	opts  RateLimiterOptions
}

// NewRateLimiter 创建限流器
func NewRateLimiter(store AttemptCounterStore, opts RateLimiterOptions) *RateLimiter {
	return &RateLimiter{store: store, opts: opts.normalized()}
}

// Check 判断本次尝试是否放行
// 任一标识处于封禁或已达阈值即拒绝。
func (l *RateLimiter) Check(ctx context.Context, subject LimitSubject) error {
	if l == nil || l.store == nil {
		return nil
	}
	for kind, identifier := range subject.identifiers() {
		blockedUntil, err := l.store.BlockedUntil(ctx, identifier, kind)
		if err != nil {
			return ErrCodeFetchFailed
		}
		if blockedUntil != nil && blockedUntil.After(time.Now()) {
			return ErrRateLimited
		}
		count, err := l.store.Count(ctx, identifier, kind, l.opts.Window)
		if err != nil {
			return ErrCodeFetchFailed
		}
		if count >= l.opts.MaxAttempts {
			return ErrRateLimited
		}
	}
	return nil
}

// RecordFailure 记录一次失败尝试
// 达到阈值的标识写入临时封禁标记。
func (l *RateLimiter) RecordFailure(ctx context.Context, subject LimitSubject) error {
	if l == nil || l.store == nil {
		return nil
	}
	now := time.Now()
	for kind, identifier := range subject.identifiers() {
		count, err := l.store.Increment(ctx, identifier, kind, l.opts.Window)
		if err != nil {
			return err
		}
		if count >= l.opts.MaxAttempts {
			if err := l.store.Block(ctx, identifier, kind, now.Add(l.opts.BlockDuration)); err != nil {
				return err
			}
		}
	}
	return nil
}

// DatabaseCounterStore 数据库失败计数存储
// Redis 未启用时的兜底实现，计数语义与 Redis 实现一致。
type DatabaseCounterStore struct {
	repo repository.RateLimitRepository
}

// NewDatabaseCounterStore 创建数据库失败计数存储
func NewDatabaseCounterStore(repo repository.RateLimitRepository) *DatabaseCounterStore {
	return &DatabaseCounterStore{repo: repo}
}

// Count 读取当前窗口计数
func (s *DatabaseCounterStore) Count(ctx context.Context, identifier, kind string, window time.Duration) (int, error) {
	record, err := s.repo.Get(identifier, kind)
	if err != nil {
		return 0, err
	}
	if record == nil {
		return 0, nil
	}
	if record.WindowStartedAt.Before(time.Now().Add(-window)) {
		return 0, nil
	}
	return record.AttemptCount, nil
}

// Increment 原子自增失败计数
func (s *DatabaseCounterStore) Increment(ctx context.Context, identifier, kind string, window time.Duration) (int, error) {
	return s.repo.IncrementFailure(identifier, kind, time.Now(), window)
}

// BlockedUntil 读取封禁截止时间
func (s *DatabaseCounterStore) BlockedUntil(ctx context.Context, identifier, kind string) (*time.Time, error) {
	record, err := s.repo.Get(identifier, kind)
	if err != nil {
		return nil, err
	}
	if record == nil || record.BlockedUntil == nil {
		return nil, nil
	}
	if !record.BlockedUntil.After(time.Now()) {
		return nil, nil
	}
	return record.BlockedUntil, nil
}

// Block 写入封禁截止时间
func (s *DatabaseCounterStore) Block(ctx context.Context, identifier, kind string, until time.Time) error {
	return s.repo.Block(identifier, kind, until)
}
