package repository

import (
	"errors"
	"time"

	"github.com/release-unlock/internal/models"

	"gorm.io/gorm"
)

// SecurityConfigRepository 安全开关仓储接口
type SecurityConfigRepository interface {
	Get() (*models.SecurityConfig, error)
	Upsert(cfg *models.SecurityConfig) error
}

// GormSecurityConfigRepository GORM 安全开关仓储实现
type GormSecurityConfigRepository struct {
	db *gorm.DB
}

// NewSecurityConfigRepository 创建安全开关仓储
func NewSecurityConfigRepository(db *gorm.DB) *GormSecurityConfigRepository {
	return &GormSecurityConfigRepository{db: db}
}

// Get 读取安全开关行
func (r *GormSecurityConfigRepository) Get() (*models.SecurityConfig, error) {
	var cfg models.SecurityConfig
	if err := r.db.Order("id asc").First(&cfg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cfg, nil
}

// Upsert 写入安全开关行（管理端）
func (r *GormSecurityConfigRepository) Upsert(cfg *models.SecurityConfig) error {
	if cfg == nil {
		return errors.New("invalid security config")
	}
	existing, err := r.Get()
	if err != nil {
		return err
	}
	cfg.UpdatedAt = time.Now()
	if existing == nil {
		return r.db.Create(cfg).Error
	}
	cfg.ID = existing.ID
	return r.db.Save(cfg).Error
}
