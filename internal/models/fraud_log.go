package models

import "time"

// FraudLog 欺诈标记表
// 由欺诈检测器创建，仅管理端处理流程可以将其标记为已解决。
type FraudLog struct {
	ID             uint        `gorm:"primarykey" json:"id"`                        // 主键
	UserID         uint        `gorm:"index" json:"user_id"`                        // 相关用户ID（可为0）
	ClientIP       string      `gorm:"type:varchar(64);index" json:"client_ip"`     // 客户端IP
	DeviceHash     string      `gorm:"type:varchar(128);index" json:"device_hash"`  // 设备指纹
	CodesAttempted StringArray `gorm:"type:json" json:"codes_attempted"`            // 尝试过的兑换码集合
	Reason         string      `gorm:"type:varchar(64);index;not null" json:"reason"` // 标记原因
	Resolved       bool        `gorm:"index;not null;default:false" json:"resolved"`  // 是否已解决
	ResolvedBy     *uint       `gorm:"index" json:"resolved_by,omitempty"`          // 处理管理员ID
	ResolvedAt     *time.Time  `json:"resolved_at"`                                 // 处理时间
	ResolutionNote string      `gorm:"type:text" json:"resolution_note"`            // 处理备注
	FlaggedAt      time.Time   `gorm:"index;not null" json:"flagged_at"`            // 标记时间
	CreatedAt      time.Time   `gorm:"index" json:"created_at"`                     // 创建时间
	UpdatedAt      time.Time   `gorm:"index" json:"updated_at"`                     // 更新时间
}

// TableName 指定表名
func (FraudLog) TableName() string {
	return "fraud_logs"
}
