package models

import "time"

// RateLimitRecord 限流计数表
// 数据库兜底实现使用；Redis 启用时计数走 Redis。
// 计数自增必须通过单条条件 UPDATE 完成，不允许读改写。
type RateLimitRecord struct {
	ID              uint       `gorm:"primarykey" json:"id"`                                         // 主键
	Identifier      string     `gorm:"uniqueIndex:idx_identifier_kind;type:varchar(128);not null" json:"identifier"` // 标识值
	Kind            string     `gorm:"uniqueIndex:idx_identifier_kind;type:varchar(16);not null" json:"kind"`        // 标识类型（ip/user/device）
	AttemptCount    int        `gorm:"not null;default:0" json:"attempt_count"`                      // 窗口内失败次数
	WindowStartedAt time.Time  `gorm:"index;not null" json:"window_started_at"`                      // 窗口起点
	BlockedUntil    *time.Time `gorm:"index" json:"blocked_until"`                                   // 封禁截止时间
	UpdatedAt       time.Time  `gorm:"index" json:"updated_at"`                                      // 更新时间
}

// TableName 指定表名
func (RateLimitRecord) TableName() string {
	return "rate_limit_records"
}
