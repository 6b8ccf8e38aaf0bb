package repository

import (
	"errors"

	"github.com/release-unlock/internal/models"

	"gorm.io/gorm"
)

// PurchaseRepository 购买记录仓储接口
type PurchaseRepository interface {
	Create(purchase *models.Purchase) error
	ExistsByReleaseAndUser(releaseID, userID uint) (bool, error)
	WithTx(tx *gorm.DB) *GormPurchaseRepository
}

// GormPurchaseRepository GORM 购买记录仓储实现
type GormPurchaseRepository struct {
	db *gorm.DB
}

// NewPurchaseRepository 创建购买记录仓储
func NewPurchaseRepository(db *gorm.DB) *GormPurchaseRepository {
	return &GormPurchaseRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPurchaseRepository) WithTx(tx *gorm.DB) *GormPurchaseRepository {
	if tx == nil {
		return r
	}
	return &GormPurchaseRepository{db: tx}
}

// Create 创建购买记录
func (r *GormPurchaseRepository) Create(purchase *models.Purchase) error {
	if purchase == nil {
		return errors.New("invalid purchase")
	}
	return r.db.Create(purchase).Error
}

// ExistsByReleaseAndUser 判断用户是否已购买发行内容
func (r *GormPurchaseRepository) ExistsByReleaseAndUser(releaseID, userID uint) (bool, error) {
	if releaseID == 0 || userID == 0 {
		return false, nil
	}
	var count int64
	if err := r.db.Model(&models.Purchase{}).
		Where("release_id = ? AND user_id = ?", releaseID, userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
