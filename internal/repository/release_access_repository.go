package repository

import (
	"errors"

	"github.com/release-unlock/internal/models"

	"gorm.io/gorm"
)

// ReleaseAccessRepository 访问授权仓储接口
type ReleaseAccessRepository interface {
	GetByReleaseAndUser(releaseID, userID uint) (*models.ReleaseAccess, error)
	Create(access *models.ReleaseAccess) error
	ListByUser(userID uint) ([]models.ReleaseAccess, error)
	WithTx(tx *gorm.DB) *GormReleaseAccessRepository
}

// GormReleaseAccessRepository GORM 访问授权仓储实现
type GormReleaseAccessRepository struct {
	db *gorm.DB
}

// NewReleaseAccessRepository 创建访问授权仓储
func NewReleaseAccessRepository(db *gorm.DB) *GormReleaseAccessRepository {
	return &GormReleaseAccessRepository{db: db}
}

// WithTx 绑定事务
func (r *GormReleaseAccessRepository) WithTx(tx *gorm.DB) *GormReleaseAccessRepository {
	if tx == nil {
		return r
	}
	return &GormReleaseAccessRepository{db: tx}
}

// GetByReleaseAndUser 查询用户对发行内容的授权
func (r *GormReleaseAccessRepository) GetByReleaseAndUser(releaseID, userID uint) (*models.ReleaseAccess, error) {
	if releaseID == 0 || userID == 0 {
		return nil, nil
	}
	var access models.ReleaseAccess
	if err := r.db.Where("release_id = ? AND user_id = ?", releaseID, userID).First(&access).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &access, nil
}

// Create 创建授权行
// 唯一索引 (release_id, user_id) 是重复授权的最终防线。
func (r *GormReleaseAccessRepository) Create(access *models.ReleaseAccess) error {
	if access == nil {
		return errors.New("invalid release access")
	}
	return r.db.Create(access).Error
}

// ListByUser 查询用户全部授权
func (r *GormReleaseAccessRepository) ListByUser(userID uint) ([]models.ReleaseAccess, error) {
	if userID == 0 {
		return []models.ReleaseAccess{}, nil
	}
	var accesses []models.ReleaseAccess
	if err := r.db.Preload("Release").Where("user_id = ?", userID).Order("id desc").Find(&accesses).Error; err != nil {
		return nil, err
	}
	return accesses, nil
}
