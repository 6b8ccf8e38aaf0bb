package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/release-unlock/internal/models"

	"gorm.io/gorm"
)

// FraudLogListFilter 欺诈标记列表筛选
type FraudLogListFilter struct {
	ClientIP   string
	DeviceHash string
	UserID     uint
	Reason     string
	Resolved   *bool
	Page       int
	PageSize   int
}

// FraudLogRepository 欺诈标记仓储接口
type FraudLogRepository interface {
	Create(log *models.FraudLog) error
	GetByID(id uint) (*models.FraudLog, error)
	HasOpenFlag(ip, deviceHash string) (bool, error)
	HasOpenFlagSince(ip, deviceHash string, since time.Time) (bool, error)
	List(filter FraudLogListFilter) ([]models.FraudLog, int64, error)
	Resolve(id uint, adminID uint, note string, resolvedAt time.Time) (int64, error)
}

// GormFraudLogRepository GORM 欺诈标记仓储实现
type GormFraudLogRepository struct {
	db *gorm.DB
}

// NewFraudLogRepository 创建欺诈标记仓储
func NewFraudLogRepository(db *gorm.DB) *GormFraudLogRepository {
	return &GormFraudLogRepository{db: db}
}

// Create 创建欺诈标记
func (r *GormFraudLogRepository) Create(log *models.FraudLog) error {
	if log == nil {
		return errors.New("invalid fraud log")
	}
	return r.db.Create(log).Error
}

// GetByID 根据 ID 查询欺诈标记
func (r *GormFraudLogRepository) GetByID(id uint) (*models.FraudLog, error) {
	if id == 0 {
		return nil, nil
	}
	var log models.FraudLog
	if err := r.db.First(&log, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &log, nil
}

// HasOpenFlag 判断 IP 或设备是否存在未解决的欺诈标记
func (r *GormFraudLogRepository) HasOpenFlag(ip, deviceHash string) (bool, error) {
	return r.hasOpenFlag(ip, deviceHash, nil)
}

// HasOpenFlagSince 判断窗口内 IP 或设备是否存在未解决的欺诈标记
func (r *GormFraudLogRepository) HasOpenFlagSince(ip, deviceHash string, since time.Time) (bool, error) {
	return r.hasOpenFlag(ip, deviceHash, &since)
}

func (r *GormFraudLogRepository) hasOpenFlag(ip, deviceHash string, since *time.Time) (bool, error) {
	ip = strings.TrimSpace(ip)
	deviceHash = strings.TrimSpace(deviceHash)
	if ip == "" && deviceHash == "" {
		return false, nil
	}
	query := r.db.Model(&models.FraudLog{}).Where("resolved = ?", false)
	switch {
	case ip != "" && deviceHash != "":
		query = query.Where("client_ip = ? OR device_hash = ?", ip, deviceHash)
	case ip != "":
		query = query.Where("client_ip = ?", ip)
	default:
		query = query.Where("device_hash = ?", deviceHash)
	}
	if since != nil {
		query = query.Where("flagged_at >= ?", *since)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// List 查询欺诈标记列表
func (r *GormFraudLogRepository) List(filter FraudLogListFilter) ([]models.FraudLog, int64, error) {
	query := r.db.Model(&models.FraudLog{})
	if ip := strings.TrimSpace(filter.ClientIP); ip != "" {
		query = query.Where("client_ip = ?", ip)
	}
	if device := strings.TrimSpace(filter.DeviceHash); device != "" {
		query = query.Where("device_hash = ?", device)
	}
	if filter.UserID > 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if reason := strings.TrimSpace(strings.ToLower(filter.Reason)); reason != "" {
		query = query.Where("reason = ?", reason)
	}
	if filter.Resolved != nil {
		query = query.Where("resolved = ?", *filter.Resolved)
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
	var logs []models.FraudLog
	if err := query.Order("id desc").Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// Resolve 标记欺诈记录为已解决
func (r *GormFraudLogRepository) Resolve(id uint, adminID uint, note string, resolvedAt time.Time) (int64, error) {
	if id == 0 {
		return 0, nil
	}
	result := r.db.Model(&models.FraudLog{}).
		Where("id = ? AND resolved = ?", id, false).
		Updates(map[string]interface{}{
			"resolved":        true,
			"resolved_by":     adminID,
			"resolved_at":     resolvedAt,
			"resolution_note": strings.TrimSpace(note),
			"updated_at":      resolvedAt,
		})
	return result.RowsAffected, result.Error
}
