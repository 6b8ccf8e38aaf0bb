package models

import (
	"time"

	"gorm.io/gorm"
)

// UnlockCode 兑换码表
// 状态只允许 unused -> redeemed（兑换事务）、unused -> invalid 与
// invalid -> unused（管理端），redeemed 为终态。
type UnlockCode struct {
	ID             uint           `gorm:"primarykey" json:"id"`                // 主键
	Code           string         `gorm:"uniqueIndex;not null" json:"code"`    // 兑换码（规范格式）
	ReleaseID      uint           `gorm:"index;not null" json:"release_id"`    // 所属发行内容ID
	BatchID        *uint          `gorm:"index" json:"batch_id,omitempty"`     // 批次ID
	Status         string         `gorm:"index;not null" json:"status"`        // 状态（unused/redeemed/invalid）
	RedeemedUserID *uint          `gorm:"index" json:"redeemed_user_id,omitempty"` // 兑换用户ID
	RedeemedAt     *time.Time     `gorm:"index" json:"redeemed_at"`            // 兑换时间
	DeviceLock     *string        `gorm:"type:varchar(128)" json:"-"`          // 设备锁指纹
	IPLock         *string        `gorm:"type:varchar(64)" json:"-"`           // IP 锁
	Cost           *Money         `gorm:"type:decimal(10,2)" json:"cost,omitempty"` // 单码成本
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`             // 创建时间
	UpdatedAt      time.Time      `gorm:"index" json:"updated_at"`             // 更新时间
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`                      // 软删除时间

	Release *Release   `gorm:"foreignKey:ReleaseID" json:"release,omitempty"` // 发行内容
	Batch   *CodeBatch `gorm:"foreignKey:BatchID" json:"batch,omitempty"`     // 批次信息
}

// TableName 指定表名
func (UnlockCode) TableName() string {
	return "unlock_codes"
}
