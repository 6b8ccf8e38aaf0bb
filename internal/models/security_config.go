package models

import "time"

// SecurityConfig 安全开关表（单行）
// 核心链路每次请求读取一次，只读不写；写入属于管理端。
type SecurityConfig struct {
	ID                    uint      `gorm:"primarykey" json:"id"`                                    // 主键（固定为1）
	DeviceLockEnabled     bool      `gorm:"not null;default:false" json:"device_lock_enabled"`       // 设备锁开关
	IPLockEnabled         bool      `gorm:"not null;default:false" json:"ip_lock_enabled"`           // IP 锁开关
	FraudDetectionEnabled bool      `gorm:"not null;default:true" json:"fraud_detection_enabled"`    // 欺诈检测开关
	UpdatedBy             *uint     `gorm:"index" json:"updated_by,omitempty"`                       // 最后修改管理员ID
	UpdatedAt             time.Time `gorm:"index" json:"updated_at"`                                 // 更新时间
}

// TableName 指定表名
func (SecurityConfig) TableName() string {
	return "security_configs"
}
