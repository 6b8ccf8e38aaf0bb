package models

import "time"

// ReleaseAccess 发行内容访问授权表
// (release_id, user_id) 唯一，一次兑换只允许产生一行。
type ReleaseAccess struct {
	ID        uint      `gorm:"primarykey" json:"id"`                                        // 主键
	ReleaseID uint      `gorm:"uniqueIndex:idx_release_user;not null" json:"release_id"`     // 发行内容ID
	UserID    uint      `gorm:"uniqueIndex:idx_release_user;index;not null" json:"user_id"`  // 用户ID
	Source    string    `gorm:"type:varchar(32);not null" json:"source"`                     // 授权来源
	CodeID    *uint     `gorm:"index" json:"code_id,omitempty"`                              // 兑换码ID（来源为兑换码时）
	GrantedAt time.Time `gorm:"index;not null" json:"granted_at"`                            // 授权时间
	CreatedAt time.Time `gorm:"index" json:"created_at"`                                     // 创建时间

	Release *Release `gorm:"foreignKey:ReleaseID" json:"release,omitempty"` // 发行内容
}

// TableName 指定表名
func (ReleaseAccess) TableName() string {
	return "release_accesses"
}
