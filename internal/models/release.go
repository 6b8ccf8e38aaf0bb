package models

import (
	"time"

	"gorm.io/gorm"
)

// Release 数字发行内容表
type Release struct {
	ID        uint           `gorm:"primarykey" json:"id"`               // 主键
	Title     string         `gorm:"not null" json:"title"`              // 标题
	Slug      string         `gorm:"uniqueIndex;not null" json:"slug"`   // 标识符
	Artist    string         `gorm:"index" json:"artist"`                // 创作者
	Status    string         `gorm:"index;default:'published'" json:"status"` // 状态
	CreatedAt time.Time      `gorm:"index" json:"created_at"`            // 创建时间
	UpdatedAt time.Time      `gorm:"index" json:"updated_at"`            // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                     // 软删除时间
}

// TableName 指定表名
func (Release) TableName() string {
	return "releases"
}

// ReleaseSummary 对外返回的发行内容摘要
type ReleaseSummary struct {
	ID     uint   `json:"id"`
	Title  string `json:"title"`
	Slug   string `json:"slug"`
	Artist string `json:"artist"`
}

// Summary 转换为摘要
func (r *Release) Summary() *ReleaseSummary {
	if r == nil {
		return nil
	}
	return &ReleaseSummary{
		ID:     r.ID,
		Title:  r.Title,
		Slug:   r.Slug,
		Artist: r.Artist,
	}
}
