package repository

import (
	"errors"
	"strings"

	"github.com/release-unlock/internal/models"

	"gorm.io/gorm"
)

// CodeBatchListFilter 批次列表筛选
type CodeBatchListFilter struct {
	ReleaseID uint
	BatchNo   string
	Status    string
	Page      int
	PageSize  int
}

// CodeBatchRepository 兑换码批次仓储接口
type CodeBatchRepository interface {
	GetByID(id uint) (*models.CodeBatch, error)
	GetByBatchNo(batchNo string) (*models.CodeBatch, error)
	List(filter CodeBatchListFilter) ([]models.CodeBatch, int64, error)
	Update(batch *models.CodeBatch) error
	WithTx(tx *gorm.DB) *GormCodeBatchRepository
}

// GormCodeBatchRepository GORM 兑换码批次仓储实现
type GormCodeBatchRepository struct {
	db *gorm.DB
}

// NewCodeBatchRepository 创建兑换码批次仓储
func NewCodeBatchRepository(db *gorm.DB) *GormCodeBatchRepository {
	return &GormCodeBatchRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCodeBatchRepository) WithTx(tx *gorm.DB) *GormCodeBatchRepository {
	if tx == nil {
		return r
	}
	return &GormCodeBatchRepository{db: tx}
}

// GetByID 根据 ID 查询批次
func (r *GormCodeBatchRepository) GetByID(id uint) (*models.CodeBatch, error) {
	if id == 0 {
		return nil, nil
	}
	var batch models.CodeBatch
	if err := r.db.First(&batch, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &batch, nil
}

// GetByBatchNo 根据批次号查询批次
func (r *GormCodeBatchRepository) GetByBatchNo(batchNo string) (*models.CodeBatch, error) {
	batchNo = strings.TrimSpace(strings.ToUpper(batchNo))
	if batchNo == "" {
		return nil, nil
	}
	var batch models.CodeBatch
	if err := r.db.Where("batch_no = ?", batchNo).First(&batch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &batch, nil
}

// List 查询批次列表
func (r *GormCodeBatchRepository) List(filter CodeBatchListFilter) ([]models.CodeBatch, int64, error) {
	query := r.db.Model(&models.CodeBatch{})
	if filter.ReleaseID > 0 {
		query = query.Where("release_id = ?", filter.ReleaseID)
	}
	if batchNo := strings.TrimSpace(strings.ToUpper(filter.BatchNo)); batchNo != "" {
		query = query.Where("batch_no LIKE ?", "%"+batchNo+"%")
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		if offset < 0 {
			offset = 0
		}
		query = query.Limit(filter.PageSize).Offset(offset)
	}
	var batches []models.CodeBatch
	if err := query.Order("id desc").Find(&batches).Error; err != nil {
		return nil, 0, err
	}
	return batches, total, nil
}

// Update 更新批次
func (r *GormCodeBatchRepository) Update(batch *models.CodeBatch) error {
	if batch == nil || batch.ID == 0 {
		return errors.New("invalid code batch")
	}
	return r.db.Save(batch).Error
}
