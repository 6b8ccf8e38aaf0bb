package service

import (
	"encoding/csv"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/release-unlock/internal/constants"
	"github.com/release-unlock/internal/models"
	"github.com/release-unlock/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const maxBatchQuantity = 10000

// CodeBatchService 兑换码批次与管理服务
type CodeBatchService struct {
	codeRepo    repository.UnlockCodeRepository
	batchRepo   repository.CodeBatchRepository
	releaseRepo repository.ReleaseRepository
	generator   *CodeGenerator
}

// NewCodeBatchService 创建兑换码批次服务
func NewCodeBatchService(codeRepo repository.UnlockCodeRepository, batchRepo repository.CodeBatchRepository, releaseRepo repository.ReleaseRepository, generator *CodeGenerator) *CodeBatchService {
	return &CodeBatchService{
		codeRepo:    codeRepo,
		batchRepo:   batchRepo,
		releaseRepo: releaseRepo,
		generator:   generator,
	}
}

// GenerateCodesInput 生成批次输入
type GenerateCodesInput struct {
	ReleaseID     uint
	Quantity      int
	UnitCost      models.Money
	PaymentMethod string
	Note          string
	CreatedBy     *uint
}

// GenerateCodes 生成兑换码批次
// 批次与兑换码在同一事务内落库，码的唯一性由唯一索引兜底。
func (s *CodeBatchService) GenerateCodes(input GenerateCodesInput) (*models.CodeBatch, []models.UnlockCode, error) {
	if s == nil || s.codeRepo == nil || s.generator == nil {
		return nil, nil, ErrCodeCreateFailed
	}
	if input.ReleaseID == 0 {
		return nil, nil, ErrCodeInvalid
	}
	if input.Quantity <= 0 || input.Quantity > maxBatchQuantity {
		return nil, nil, ErrCodeInvalid
	}
	unitCost := input.UnitCost.Decimal.Round(2)
	if unitCost.LessThan(decimal.Zero) {
		return nil, nil, ErrCodeInvalid
	}

	release, err := s.releaseRepo.GetByID(input.ReleaseID)
	if err != nil {
		return nil, nil, ErrReleaseFetchFailed
	}
	if release == nil {
		return nil, nil, ErrReleaseNotFound
	}

	codeValues, err := s.generator.GenerateSet(input.Quantity)
	if err != nil {
		return nil, nil, ErrCodeCreateFailed
	}

	now := time.Now()
	totalCost := unitCost.Mul(decimal.NewFromInt(int64(input.Quantity)))
	batch := &models.CodeBatch{
		BatchNo:       generateCodeBatchNo(now),
		ReleaseID:     input.ReleaseID,
		Quantity:      input.Quantity,
		TotalCost:     models.NewMoneyFromDecimal(totalCost),
		PaymentMethod: strings.TrimSpace(input.PaymentMethod),
		Status:        constants.CodeBatchStatusActive,
		Note:          strings.TrimSpace(input.Note),
		CreatedBy:     input.CreatedBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	cost := models.NewMoneyFromDecimal(unitCost)
	codes := make([]models.UnlockCode, 0, input.Quantity)
	for _, value := range codeValues {
		codes = append(codes, models.UnlockCode{
			Code:      value,
			ReleaseID: input.ReleaseID,
			Status:    constants.UnlockCodeStatusUnused,
			Cost:      &cost,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.codeRepo.WithTx(tx).CreateBatch(batch, codes); err != nil {
			return ErrCodeBatchCreateFailed
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrCodeBatchCreateFailed) {
			return nil, nil, ErrCodeBatchCreateFailed
		}
		return nil, nil, ErrCodeCreateFailed
	}
	return batch, codes, nil
}

// ListCodesInput 兑换码列表输入
type ListCodesInput struct {
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

// ListCodes 获取兑换码列表（管理端）
func (s *CodeBatchService) ListCodes(input ListCodesInput) ([]models.UnlockCode, int64, error) {
	if s == nil || s.codeRepo == nil {
		return nil, 0, ErrCodeFetchFailed
	}
	codes, total, err := s.codeRepo.List(repository.UnlockCodeListFilter{
		Code:           input.Code,
		Status:         strings.TrimSpace(strings.ToLower(input.Status)),
		ReleaseID:      input.ReleaseID,
		BatchNo:        input.BatchNo,
		RedeemedUserID: input.RedeemedUserID,
		CreatedFrom:    input.CreatedFrom,
		CreatedTo:      input.CreatedTo,
		RedeemedFrom:   input.RedeemedFrom,
		RedeemedTo:     input.RedeemedTo,
		Page:           input.Page,
		PageSize:       input.PageSize,
	})
	if err != nil {
		return nil, 0, ErrCodeFetchFailed
	}
	return codes, total, nil
}

// ListBatches 获取批次列表（管理端）
func (s *CodeBatchService) ListBatches(releaseID uint, page, pageSize int) ([]models.CodeBatch, int64, error) {
	if s == nil || s.batchRepo == nil {
		return nil, 0, ErrCodeBatchFetchFailed
	}
	batches, total, err := s.batchRepo.List(repository.CodeBatchListFilter{
		ReleaseID: releaseID,
		Page:      page,
		PageSize:  pageSize,
	})
	if err != nil {
		return nil, 0, ErrCodeBatchFetchFailed
	}
	return batches, total, nil
}

// InvalidateCode 作废兑换码（仅 unused 可作废）
func (s *CodeBatchService) InvalidateCode(id uint) (*models.UnlockCode, error) {
	return s.transitionCode(id, constants.UnlockCodeStatusUnused, constants.UnlockCodeStatusInvalid)
}

// RestoreCode 恢复被作废的兑换码
// 历史锁字段保留不清除，恢复后依旧生效。
func (s *CodeBatchService) RestoreCode(id uint) (*models.UnlockCode, error) {
	return s.transitionCode(id, constants.UnlockCodeStatusInvalid, constants.UnlockCodeStatusUnused)
}

func (s *CodeBatchService) transitionCode(id uint, fromStatus, toStatus string) (*models.UnlockCode, error) {
	if s == nil || s.codeRepo == nil || id == 0 {
		return nil, ErrCodeInvalid
	}
	code, err := s.codeRepo.GetByID(id)
	if err != nil {
		return nil, ErrCodeFetchFailed
	}
	if code == nil {
		return nil, ErrCodeNotFound
	}
	if code.Status == constants.UnlockCodeStatusRedeemed {
		return nil, ErrCodeAlreadyRedeemed
	}
	if code.Status != fromStatus {
		return nil, ErrCodeInvalidStatus
	}
	rows, err := s.codeRepo.UpdateStatus(id, fromStatus, toStatus, time.Now())
	if err != nil {
		return nil, ErrCodeUpdateFailed
	}
	if rows == 0 {
		return nil, ErrCodeInvalidStatus
	}
	return s.codeRepo.GetByID(id)
}

// ExportBatchCodes 导出批次兑换码（csv/txt）
func (s *CodeBatchService) ExportBatchCodes(batchID uint, format string) ([]byte, string, error) {
	if s == nil || s.codeRepo == nil || s.batchRepo == nil {
		return nil, "", ErrCodeFetchFailed
	}
	batch, err := s.batchRepo.GetByID(batchID)
	if err != nil {
		return nil, "", ErrCodeBatchFetchFailed
	}
	if batch == nil {
		return nil, "", ErrCodeBatchFetchFailed
	}
	normalizedFormat := strings.TrimSpace(strings.ToLower(format))
	if normalizedFormat != "csv" && normalizedFormat != "txt" {
		return nil, "", ErrCodeInvalid
	}
	codes, err := s.codeRepo.ListByBatchID(batchID)
	if err != nil {
		return nil, "", ErrCodeFetchFailed
	}
	if len(codes) == 0 {
		return nil, "", ErrCodeNotFound
	}

	if normalizedFormat == "txt" {
		lines := make([]string, 0, len(codes))
		for _, code := range codes {
			lines = append(lines, code.Code)
		}
		return []byte(strings.Join(lines, "\n")), "text/plain; charset=utf-8", nil
	}

	builder := &strings.Builder{}
	writer := csv.NewWriter(builder)
	if err := writer.Write([]string{"id", "batch_no", "code", "release_id", "status", "redeemed_user_id", "redeemed_at", "created_at"}); err != nil {
		return nil, "", ErrCodeFetchFailed
	}
	for _, code := range codes {
		redeemedUserID := ""
		if code.RedeemedUserID != nil {
			redeemedUserID = strconv.FormatUint(uint64(*code.RedeemedUserID), 10)
		}
		record := []string{
			strconv.FormatUint(uint64(code.ID), 10),
			batch.BatchNo,
			code.Code,
			strconv.FormatUint(uint64(code.ReleaseID), 10),
			code.Status,
			redeemedUserID,
			formatNullableTime(code.RedeemedAt),
			code.CreatedAt.Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return nil, "", ErrCodeFetchFailed
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, "", ErrCodeFetchFailed
	}
	return []byte(builder.String()), "text/csv; charset=utf-8", nil
}

func formatNullableTime(raw *time.Time) string {
	if raw == nil || raw.IsZero() {
		return ""
	}
	return raw.Format(time.RFC3339)
}
