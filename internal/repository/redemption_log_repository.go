package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/release-unlock/internal/models"

	"gorm.io/gorm"
)

// RedemptionLogListFilter 兑换日志列表筛选
type RedemptionLogListFilter struct {
	Code        string
	UserID      uint
	ClientIP    string
	DeviceHash  string
	Action      string
	Result      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Page        int
	PageSize    int
}

// RedemptionLogRepository 兑换日志仓储接口
type RedemptionLogRepository interface {
	Create(log *models.RedemptionLog) error
	List(filter RedemptionLogListFilter) ([]models.RedemptionLog, int64, error)
	CountDistinctCodesByIP(ip string, since time.Time) (int64, error)
	CountDistinctCodesByDevice(deviceHash string, since time.Time) (int64, error)
	CountDistinctUsersByCode(code string, since time.Time) (int64, error)
	ListRecentCodes(ip, deviceHash string, since time.Time, limit int) ([]string, error)
	WithTx(tx *gorm.DB) *GormRedemptionLogRepository
}

// GormRedemptionLogRepository GORM 兑换日志仓储实现
type GormRedemptionLogRepository struct {
	db *gorm.DB
}

// NewRedemptionLogRepository 创建兑换日志仓储
func NewRedemptionLogRepository(db *gorm.DB) *GormRedemptionLogRepository {
	return &GormRedemptionLogRepository{db: db}
}

// WithTx 绑定事务
func (r *GormRedemptionLogRepository) WithTx(tx *gorm.DB) *GormRedemptionLogRepository {
	if tx == nil {
		return r
	}
	return &GormRedemptionLogRepository{db: tx}
}

// Create 追加兑换日志
func (r *GormRedemptionLogRepository) Create(log *models.RedemptionLog) error {
	if log == nil {
		return errors.New("invalid redemption log")
	}
	return r.db.Create(log).Error
}

// List 查询兑换日志列表
func (r *GormRedemptionLogRepository) List(filter RedemptionLogListFilter) ([]models.RedemptionLog, int64, error) {
	query := r.db.Model(&models.RedemptionLog{})
	if code := strings.TrimSpace(strings.ToUpper(filter.Code)); code != "" {
		query = query.Where("code LIKE ?", "%"+code+"%")
	}
	if filter.UserID > 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if ip := strings.TrimSpace(filter.ClientIP); ip != "" {
		query = query.Where("client_ip = ?", ip)
	}
	if device := strings.TrimSpace(filter.DeviceHash); device != "" {
		query = query.Where("device_hash = ?", device)
	}
	if action := strings.TrimSpace(strings.ToLower(filter.Action)); action != "" {
		query = query.Where("action = ?", action)
	}
	if result := strings.TrimSpace(strings.ToLower(filter.Result)); result != "" {
		query = query.Where("result = ?", result)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
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
	var logs []models.RedemptionLog
	if err := query.Order("id desc").Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// CountDistinctCodesByIP 统计窗口内某 IP 尝试过的不同兑换码数量
func (r *GormRedemptionLogRepository) CountDistinctCodesByIP(ip string, since time.Time) (int64, error) {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return 0, nil
	}
	var count int64
	err := r.db.Model(&models.RedemptionLog{}).
		Where("client_ip = ? AND created_at >= ?", ip, since).
		Distinct("code").
		Count(&count).Error
	return count, err
}

// CountDistinctCodesByDevice 统计窗口内某设备尝试过的不同兑换码数量
func (r *GormRedemptionLogRepository) CountDistinctCodesByDevice(deviceHash string, since time.Time) (int64, error) {
	deviceHash = strings.TrimSpace(deviceHash)
	if deviceHash == "" {
		return 0, nil
	}
	var count int64
	err := r.db.Model(&models.RedemptionLog{}).
		Where("device_hash = ? AND created_at >= ?", deviceHash, since).
		Distinct("code").
		Count(&count).Error
	return count, err
}

// CountDistinctUsersByCode 统计窗口内针对某兑换码出现过的不同用户数量
func (r *GormRedemptionLogRepository) CountDistinctUsersByCode(code string, since time.Time) (int64, error) {
	code = strings.TrimSpace(strings.ToUpper(code))
	if code == "" {
		return 0, nil
	}
	var count int64
	err := r.db.Model(&models.RedemptionLog{}).
		Where("code = ? AND created_at >= ? AND user_id > 0", code, since).
		Distinct("user_id").
		Count(&count).Error
	return count, err
}

// ListRecentCodes 查询窗口内某 IP 或设备尝试过的兑换码集合
func (r *GormRedemptionLogRepository) ListRecentCodes(ip, deviceHash string, since time.Time, limit int) ([]string, error) {
	ip = strings.TrimSpace(ip)
	deviceHash = strings.TrimSpace(deviceHash)
	if ip == "" && deviceHash == "" {
		return []string{}, nil
	}
	query := r.db.Model(&models.RedemptionLog{}).Where("created_at >= ?", since)
	switch {
	case ip != "" && deviceHash != "":
		query = query.Where("client_ip = ? OR device_hash = ?", ip, deviceHash)
	case ip != "":
		query = query.Where("client_ip = ?", ip)
	default:
		query = query.Where("device_hash = ?", deviceHash)
	}
	if limit <= 0 {
		limit = 50
	}
	var codes []string
	if err := query.Distinct("code").Limit(limit).Pluck("code", &codes).Error; err != nil {
		return nil, err
	}
	return codes, nil
}
