package models

import "time"

// RedemptionLog 兑换尝试日志表
// 说明：记录每一次校验或兑换尝试，只追加，从不修改。
type RedemptionLog struct {
	ID          uint      `gorm:"primarykey" json:"id"`                     // 主键
	Code        string    `gorm:"index" json:"code"`                        // 提交的兑换码（规范化后）
	UserID      uint      `gorm:"index" json:"user_id"`                     // 用户ID（匿名校验时可为0）
	Action      string    `gorm:"type:varchar(16);index;not null" json:"action"` // 动作（validate/redeem）
	Result      string    `gorm:"type:varchar(16);index;not null" json:"result"` // 结果（success/failed）
	FailReason  string    `gorm:"type:varchar(64);index" json:"fail_reason"`     // 失败原因枚举
	ClientIP    string    `gorm:"type:varchar(64);index" json:"client_ip"`       // 客户端IP
	DeviceHash  string    `gorm:"type:varchar(128);index" json:"device_hash"`    // 设备指纹
	UserAgent   string    `gorm:"type:text" json:"user_agent"`                   // 客户端UA
	RequestID   string    `gorm:"type:varchar(64);index" json:"request_id"`      // 请求追踪ID
	CreatedAt   time.Time `gorm:"index" json:"created_at"`                       // 记录时间
}

// TableName 指定表名
func (RedemptionLog) TableName() string {
	return "redemption_logs"
}
