package repository

import (
	"strings"
	"time"

	"github.com/release-unlock/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RateLimitRepository 限流计数仓储接口
// 计数自增通过单条条件 UPDATE 完成，并发自增不会互相覆盖。
type RateLimitRepository interface {
	Get(identifier, kind string) (*models.RateLimitRecord, error)
	IncrementFailure(identifier, kind string, now time.Time, window time.Duration) (int, error)
	Block(identifier, kind string, until time.Time) error
}

// GormRateLimitRepository GORM 限流计数仓储实现
type GormRateLimitRepository struct {
	db *gorm.DB
}

// NewRateLimitRepository 创建限流计数仓储
func NewRateLimitRepository(db *gorm.DB) *GormRateLimitRepository {
	return &GormRateLimitRepository{db: db}
}

// Get 查询限流计数行
func (r *GormRateLimitRepository) Get(identifier, kind string) (*models.RateLimitRecord, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || kind == "" {
		return nil, nil
	}
	var record models.RateLimitRecord
	if err := r.db.Where("identifier = ? AND kind = ?", identifier, kind).First(&record).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// IncrementFailure 原子自增失败计数，窗口过期时重置窗口
// 返回自增后的计数值。
func (r *GormRateLimitRepository) IncrementFailure(identifier, kind string, now time.Time, window time.Duration) (int, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || kind == "" {
		return 0, nil
	}
	cutoff := now.Add(-window)

	// 当前窗口内自增
	result := r.db.Model(&models.RateLimitRecord{}).
		Where("identifier = ? AND kind = ? AND window_started_at > ?", identifier, kind, cutoff).
		Updates(map[string]interface{}{
			"attempt_count": gorm.Expr("attempt_count + 1"),
			"updated_at":    now,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		// 窗口已过期：重置为新窗口
		reset := r.db.Model(&models.RateLimitRecord{}).
			Where("identifier = ? AND kind = ? AND window_started_at <= ?", identifier, kind, cutoff).
			Updates(map[string]interface{}{
				"attempt_count":     1,
				"window_started_at": now,
				"blocked_until":     nil,
				"updated_at":        now,
			})
		if reset.Error != nil {
			return 0, reset.Error
		}
		if reset.RowsAffected == 0 {
			// 尚无计数行：惰性创建，冲突时说明并发请求已建行，回到自增路径
			record := models.RateLimitRecord{
				Identifier:      identifier,
				Kind:            kind,
				AttemptCount:    1,
				WindowStartedAt: now,
				UpdatedAt:       now,
			}
			created := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record)
			if created.Error != nil {
				return 0, created.Error
			}
			if created.RowsAffected == 0 {
				retry := r.db.Model(&models.RateLimitRecord{}).
					Where("identifier = ? AND kind = ?", identifier, kind).
					Updates(map[string]interface{}{
						"attempt_count": gorm.Expr("attempt_count + 1"),
						"updated_at":    now,
					})
				if retry.Error != nil {
					return 0, retry.Error
				}
			}
		}
	}

	current, err := r.Get(identifier, kind)
	if err != nil {
		return 0, err
	}
	if current == nil {
		return 0, nil
	}
	return current.AttemptCount, nil
}

// Block 写入封禁截止时间
func (r *GormRateLimitRepository) Block(identifier, kind string, until time.Time) error {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || kind == "" {
		return nil
	}
	return r.db.Model(&models.RateLimitRecord{}).
		Where("identifier = ? AND kind = ?", identifier, kind).
		Updates(map[string]interface{}{
			"blocked_until": until,
			"updated_at":    until,
		}).Error
}
