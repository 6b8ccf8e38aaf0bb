package models

import "time"

// Purchase 兑换产生的购买记录表
// 与授权行在同一事务内创建，用于财务与管理端对账。
type Purchase struct {
	ID        uint      `gorm:"primarykey" json:"id"`              // 主键
	UserID    uint      `gorm:"index;not null" json:"user_id"`     // 用户ID
	ReleaseID uint      `gorm:"index;not null" json:"release_id"`  // 发行内容ID
	CodeID    *uint     `gorm:"index" json:"code_id,omitempty"`    // 兑换码ID
	Source    string    `gorm:"type:varchar(32)" json:"source"`    // 来源
	Cost      *Money    `gorm:"type:decimal(10,2)" json:"cost"`    // 成本
	CreatedAt time.Time `gorm:"index" json:"created_at"`           // 创建时间
}

// TableName 指定表名
func (Purchase) TableName() string {
	return "purchases"
}
