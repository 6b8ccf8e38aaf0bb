package repository

import (
	"errors"
	"strings"

	"github.com/release-unlock/internal/models"

	"gorm.io/gorm"
)

// ReleaseRepository 发行内容仓储接口
type ReleaseRepository interface {
	GetByID(id uint) (*models.Release, error)
	GetBySlug(slug string) (*models.Release, error)
	Create(release *models.Release) error
	Update(release *models.Release) error
	List(page, pageSize int) ([]models.Release, int64, error)
}

// GormReleaseRepository GORM 发行内容仓储实现
type GormReleaseRepository struct {
	db *gorm.DB
}

// NewReleaseRepository 创建发行内容仓储
func NewReleaseRepository(db *gorm.DB) *GormReleaseRepository {
	return &GormReleaseRepository{db: db}
}

// GetByID 根据 ID 查询发行内容
func (r *GormReleaseRepository) GetByID(id uint) (*models.Release, error) {
	if id == 0 {
		return nil, nil
	}
	var release models.Release
	if err := r.db.First(&release, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &release, nil
}

// GetBySlug 根据标识符查询发行内容
func (r *GormReleaseRepository) GetBySlug(slug string) (*models.Release, error) {
	slug = strings.TrimSpace(strings.ToLower(slug))
	if slug == "" {
		return nil, nil
	}
	var release models.Release
	if err := r.db.Where("slug = ?", slug).First(&release).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &release, nil
}

// Create 创建发行内容
func (r *GormReleaseRepository) Create(release *models.Release) error {
	if release == nil {
		return errors.New("invalid release")
	}
	return r.db.Create(release).Error
}

// Update 保存发行内容
func (r *GormReleaseRepository) Update(release *models.Release) error {
	if release == nil || release.ID == 0 {
		return errors.New("invalid release")
	}
	return r.db.Save(release).Error
}

// List 查询发行内容列表
func (r *GormReleaseRepository) List(page, pageSize int) ([]models.Release, int64, error) {
	query := r.db.Model(&models.Release{})
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if pageSize > 0 {
		offset := (page - 1) * pageSize
		if offset < 0 {
			offset = 0
		}
		query = query.Limit(pageSize).Offset(offset)
	}
	var releases []models.Release
	if err := query.Order("id desc").Find(&releases).Error; err != nil {
		return nil, 0, err
	}
	return releases, total, nil
}
