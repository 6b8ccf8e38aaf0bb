package service

import (
	"time"

	"github.com/release-unlock/internal/logger"
	"github.com/release-unlock/internal/models"
	"github.com/release-unlock/internal/repository"

	"gorm.io/gorm"
)

// RedemptionLogService 兑换日志服务
// 日志只追加，从不修改或删除。
type RedemptionLogService struct {
	repo repository.RedemptionLogRepository
}

// NewRedemptionLogService 创建兑换日志服务
func NewRedemptionLogService(repo repository.RedemptionLogRepository) *RedemptionLogService {
	return &RedemptionLogService{repo: repo}
}

// RecordAttemptInput 兑换日志输入
type RecordAttemptInput struct {
	Code       string
	UserID     uint
	Action     string
	Result     string
	FailReason string
	ClientIP   string
	DeviceHash string
	UserAgent  string
	RequestID  string
}

func buildRedemptionLog(input RecordAttemptInput) *models.RedemptionLog {
	return &models.RedemptionLog{
		Code:       NormalizeCode(input.Code),
		UserID:     input.UserID,
		Action:     input.Action,
		Result:     input.Result,
		FailReason: input.FailReason,
		ClientIP:   input.ClientIP,
		DeviceHash: input.DeviceHash,
		UserAgent:  input.UserAgent,
		RequestID:  input.RequestID,
		CreatedAt:  time.Now(),
	}
}

// RecordInTx 在事务内追加日志（成功路径，与状态迁移同生共死）
func (s *RedemptionLogService) RecordInTx(tx *gorm.DB, input RecordAttemptInput) error {
	if s == nil || s.repo == nil {
		return nil
	}
	return s.repo.WithTx(tx).Create(buildRedemptionLog(input))
}

// Record 追加日志（失败路径，尽力而为）
func (s *RedemptionLogService) Record(input RecordAttemptInput) {
	if s == nil || s.repo == nil {
		return
	}
	if err := s.repo.Create(buildRedemptionLog(input)); err != nil {
		logger.Warnw("redemption log write failed", "code", input.Code, "action", input.Action, "error", err)
	}
}

// ListRedemptionLogsInput 兑换日志列表输入
type ListRedemptionLogsInput struct {
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

// List 获取兑换日志列表（管理端）
func (s *RedemptionLogService) List(input ListRedemptionLogsInput) ([]models.RedemptionLog, int64, error) {
	if s == nil || s.repo == nil {
		return nil, 0, ErrRedemptionLogFetchFailed
	}
	logs, total, err := s.repo.List(repository.RedemptionLogListFilter{
		Code:        input.Code,
		UserID:      input.UserID,
		ClientIP:    input.ClientIP,
		DeviceHash:  input.DeviceHash,
		Action:      input.Action,
		Result:      input.Result,
		CreatedFrom: input.CreatedFrom,
		CreatedTo:   input.CreatedTo,
		Page:        input.Page,
		PageSize:    input.PageSize,
	})
	if err != nil {
		return nil, 0, ErrRedemptionLogFetchFailed
	}
	return logs, total, nil
}
