package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/release-unlock/internal/constants"
	"github.com/release-unlock/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UnlockCodeListFilter 兑换码列表筛选
type UnlockCodeListFilter struct {
	Code           string
	Status         string
	ReleaseID      uint
	BatchNo        string
	RedeemedUserID uint
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
	RedeemedFrom   *time.Time
	RedeemedTo     *time.Time
	Page           int
	PageSize       int
}

// UnlockCodeRepository 兑换码仓储接口
type UnlockCodeRepository interface {
	CreateBatch(batch *models.CodeBatch, codes []models.UnlockCode) error
	GetByID(id uint) (*models.UnlockCode, error)
	GetByCode(code string) (*models.UnlockCode, error)
	GetByCodeForUpdate(code string) (*models.UnlockCode, error)
	MarkRedeemed(codeID uint, userID uint, deviceLock, ipLock *string, redeemedAt time.Time) (int64, error)
	UpdateStatus(codeID uint, fromStatus, toStatus string, updatedAt time.Time) (int64, error)
	List(filter UnlockCodeListFilter) ([]models.UnlockCode, int64, error)
	ListByBatchID(batchID uint) ([]models.UnlockCode, error)
	WithTx(tx *gorm.DB) *GormUnlockCodeRepository
}

// GormUnlockCodeRepository GORM 兑换码仓储实现
type GormUnlockCodeRepository struct {
	db *gorm.DB
}

// NewUnlockCodeRepository 创建兑换码仓储
func NewUnlockCodeRepository(db *gorm.DB) *GormUnlockCodeRepository {
	return &GormUnlockCodeRepository{db: db}
}

// WithTx 绑定事务
func (r *GormUnlockCodeRepository) WithTx(tx *gorm.DB) *GormUnlockCodeRepository {
	if tx == nil {
		return r
	}
	return &GormUnlockCodeRepository{db: tx}
}

// CreateBatch 创建批次与兑换码
func (r *GormUnlockCodeRepository) CreateBatch(batch *models.CodeBatch, codes []models.UnlockCode) error {
	if batch == nil {
		return errors.New("invalid code batch")
	}
	if err := r.db.Create(batch).Error; err != nil {
		return err
	}
	if len(codes) == 0 {
		return nil
	}
	for idx := range codes {
		codes[idx].BatchID = &batch.ID
	}
	return r.db.Create(&codes).Error
}

// GetByID 根据 ID 查询兑换码
func (r *GormUnlockCodeRepository) GetByID(id uint) (*models.UnlockCode, error) {
	if id == 0 {
		return nil, nil
	}
	var code models.UnlockCode
	if err := r.db.Preload("Release").Preload("Batch").First(&code, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &code, nil
}

// GetByCode 根据兑换码查询
func (r *GormUnlockCodeRepository) GetByCode(code string) (*models.UnlockCode, error) {
	code = strings.TrimSpace(strings.ToUpper(code))
	if code == "" {
		return nil, nil
	}
	var record models.UnlockCode
	if err := r.db.Preload("Release").Where("code = ?", code).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// GetByCodeForUpdate 根据兑换码加锁查询
func (r *GormUnlockCodeRepository) GetByCodeForUpdate(code string) (*models.UnlockCode, error) {
	code = strings.TrimSpace(strings.ToUpper(code))
	if code == "" {
		return nil, nil
	}
	var record models.UnlockCode
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("code = ?", code).
		First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// MarkRedeemed 条件更新完成 unused -> redeemed 状态迁移
// RowsAffected 为 0 表示状态已被并发兑换者抢先迁移。
func (r *GormUnlockCodeRepository) MarkRedeemed(codeID uint, userID uint, deviceLock, ipLock *string, redeemedAt time.Time) (int64, error) {
	if codeID == 0 || userID == 0 {
		return 0, errors.New("invalid unlock code update")
	}
	updates := map[string]interface{}{
		"status":           constants.UnlockCodeStatusRedeemed,
		"redeemed_user_id": userID,
		"redeemed_at":      redeemedAt,
		"updated_at":       redeemedAt,
	}
	if deviceLock != nil {
		updates["device_lock"] = *deviceLock
	}
	if ipLock != nil {
		updates["ip_lock"] = *ipLock
	}
	result := r.db.Model(&models.UnlockCode{}).
		Where("id = ? AND status = ? AND redeemed_user_id IS NULL", codeID, constants.UnlockCodeStatusUnused).
		Updates(updates)
	return result.RowsAffected, result.Error
}

// UpdateStatus 条件更新兑换码状态（管理端作废/恢复）
func (r *GormUnlockCodeRepository) UpdateStatus(codeID uint, fromStatus, toStatus string, updatedAt time.Time) (int64, error) {
	if codeID == 0 {
		return 0, nil
	}
	result := r.db.Model(&models.UnlockCode{}).
		Where("id = ? AND status = ?", codeID, fromStatus).
		Updates(map[string]interface{}{
			"status":     toStatus,
			"updated_at": updatedAt,
		})
	return result.RowsAffected, result.Error
}

// List 查询兑换码列表
func (r *GormUnlockCodeRepository) List(filter UnlockCodeListFilter) ([]models.UnlockCode, int64, error) {
	query := r.db.Model(&models.UnlockCode{}).Preload("Release").Preload("Batch")
	if code := strings.TrimSpace(strings.ToUpper(filter.Code)); code != "" {
		query = query.Where("code LIKE ?", "%"+code+"%")
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if filter.ReleaseID > 0 {
		query = query.Where("release_id = ?", filter.ReleaseID)
	}
	if batchNo := strings.TrimSpace(strings.ToUpper(filter.BatchNo)); batchNo != "" {
		query = query.Joins("LEFT JOIN code_batches ON code_batches.id = unlock_codes.batch_id").
			Where("code_batches.batch_no LIKE ?", "%"+batchNo+"%")
	}
	if filter.RedeemedUserID > 0 {
		query = query.Where("redeemed_user_id = ?", filter.RedeemedUserID)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("unlock_codes.created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("unlock_codes.created_at <= ?", *filter.CreatedTo)
	}
	if filter.RedeemedFrom != nil {
		query = query.Where("redeemed_at >= ?", *filter.RedeemedFrom)
	}
	if filter.RedeemedTo != nil {
		query = query.Where("redeemed_at <= ?", *filter.RedeemedTo)
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

	var codes []models.UnlockCode
	if err := query.Order("unlock_codes.id desc").Find(&codes).Error; err != nil {
		return nil, 0, err
	}
	return codes, total, nil
}

// ListByBatchID 查询批次下的兑换码
func (r *GormUnlockCodeRepository) ListByBatchID(batchID uint) ([]models.UnlockCode, error) {
	if batchID == 0 {
		return []models.UnlockCode{}, nil
	}
	var codes []models.UnlockCode
	if err := r.db.Where("batch_id = ?", batchID).Order("id asc").Find(&codes).Error; err != nil {
		return nil, err
	}
	return codes, nil
}
