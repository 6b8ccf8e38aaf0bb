package models

import (
	"time"

	"gorm.io/gorm"
)

// CodeBatch 兑换码批次表
type CodeBatch struct {
	ID            uint           `gorm:"primarykey" json:"id"`                 // 主键
	BatchNo       string         `gorm:"uniqueIndex;not null" json:"batch_no"` // 批次号
	ReleaseID     uint           `gorm:"index;not null" json:"release_id"`     // 发行内容ID
	Quantity      int            `gorm:"not null" json:"quantity"`             // 数量
	TotalCost     Money          `gorm:"type:decimal(10,2)" json:"total_cost"` // 总成本
	PaymentMethod string         `gorm:"type:varchar(32)" json:"payment_method"` // 支付方式（上游已结算）
	Status        string         `gorm:"index;not null" json:"status"`         // 批次状态
	Note          string         `gorm:"type:text" json:"note"`                // 备注
	CreatedBy     *uint          `gorm:"index" json:"created_by,omitempty"`    // 创建管理员ID
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`              // 创建时间
	UpdatedAt     time.Time      `gorm:"index" json:"updated_at"`              // 更新时间
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`                       // 软删除时间
}

// TableName 指定表名
func (CodeBatch) TableName() string {
	return "code_batches"
}
