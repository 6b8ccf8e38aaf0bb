package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// attemptScript 原子自增并在首次写入时设置窗口过期
var attemptScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// RedisCounterStore Redis 尝试计数存储
// 计数窗口靠 key 过期实现，封禁标记为带 TTL 的时间戳 key。
type RedisCounterStore struct {
	client *redis.Client
}

// NewRedisCounterStore 创建 Redis 尝试计数存储
func NewRedisCounterStore(client *redis.Client) *RedisCounterStore {
	return &RedisCounterStore{client: client}
}

func attemptKey(kind, identifier string) string {
	return buildKey(fmt.Sprintf("limit:attempt:%s:%s", kind, identifier))
}

func blockKey(kind, identifier string) string {
	return buildKey(fmt.Sprintf("limit:block:%s:%s", kind, identifier))
}

// Count 读取当前窗口计数，不自增
func (s *RedisCounterStore) Count(ctx context.Context, identifier, kind string, window time.Duration) (int, error) {
	val, err := s.client.Get(ctx, attemptKey(kind, identifier)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	count, err := strconv.Atoi(val)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Increment 原子自增失败计数，返回自增后的值
func (s *RedisCounterStore) Increment(ctx context.Context, identifier, kind string, window time.Duration) (int, error) {
	seconds := int(window / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	result, err := attemptScript.Run(ctx, s.client, []string{attemptKey(kind, identifier)}, seconds).Int64()
	if err != nil {
		return 0, err
	}
	return int(result), nil
}

// BlockedUntil 读取封禁截止时间，未封禁时返回 nil
func (s *RedisCounterStore) BlockedUntil(ctx context.Context, identifier, kind string) (*time.Time, error) {
	val, err := s.client.Get(ctx, blockKey(kind, identifier)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	unix, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return nil, err
	}
	until := time.Unix(unix, 0)
	if !until.After(time.Now()) {
		return nil, nil
	}
	return &until, nil
}

// Block 写入封禁标记，TTL 与封禁时长一致
func (s *RedisCounterStore) Block(ctx context.Context, identifier, kind string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, blockKey(kind, identifier), strconv.FormatInt(until.Unix(), 10), ttl).Err()
}
