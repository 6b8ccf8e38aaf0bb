package service

import (
	"regexp"
	"strings"

	"github.com/release-unlock/internal/constants"
	"github.com/release-unlock/internal/models"
	"github.com/release-unlock/internal/repository"
)

var codePattern = regexp.MustCompile(`^SHF-[A-Z0-9]{4}-[A-Z0-9]{4}$`)

// NormalizeCode 规范化兑换码输入：去首尾空白并转大写
func NormalizeCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// ValidCodeFormat 判断兑换码是否符合规范格式
func ValidCodeFormat(code string) bool {
	return codePattern.MatchString(code)
}

// ValidateResult 兑换码校验结果
// Valid 为 false 时 FailReason 给出稳定的失败原因枚举。
type ValidateResult struct {
	Valid        bool                   `json:"valid"`
	Code         string                 `json:"code"`
	Status       string                 `json:"status,omitempty"`
	FailReason   string                 `json:"fail_reason,omitempty"`
	AlreadyOwned bool                   `json:"already_owned"`
	Release      *models.ReleaseSummary `json:"release,omitempty"`
}

// CodeValidator 兑换码校验器
// 纯读路径：不改动任何状态，不产生限流或欺诈副作用。
type CodeValidator struct {
	codeRepo   repository.UnlockCodeRepository
	accessRepo repository.ReleaseAccessRepository
}

// NewCodeValidator 创建兑换码校验器
func NewCodeValidator(codeRepo repository.UnlockCodeRepository, accessRepo repository.ReleaseAccessRepository) *CodeValidator {
	return &CodeValidator{codeRepo: codeRepo, accessRepo: accessRepo}
}

// Validate 校验兑换码
// 业务上的无效通过结果值表达，只有存储故障返回错误。
func (v *CodeValidator) Validate(rawCode string, userID uint) (*ValidateResult, error) {
	if v == nil || v.codeRepo == nil {
		return nil, ErrCodeFetchFailed
	}
	code := NormalizeCode(rawCode)
	result := &ValidateResult{Code: code}
	if !ValidCodeFormat(code) {
		result.FailReason = FailReasonInvalidFormat
		return result, nil
	}

	record, err := v.codeRepo.GetByCode(code)
	if err != nil {
		return nil, ErrCodeFetchFailed
	}
	if record == nil {
		result.FailReason = FailReasonNotFound
		return result, nil
	}
	result.Status = record.Status

	switch record.Status {
	case constants.UnlockCodeStatusRedeemed:
		result.FailReason = FailReasonAlreadyRedeemed
		return result, nil
	case constants.UnlockCodeStatusInvalid:
		result.FailReason = FailReasonInvalidated
		return result, nil
	case constants.UnlockCodeStatusUnused:
	default:
		result.FailReason = FailReasonInvalidated
		return result, nil
	}
	if record.RedeemedUserID != nil {
		result.FailReason = FailReasonAlreadyRedeemed
		return result, nil
	}

	result.Valid = true
	result.Release = record.Release.Summary()
	if userID > 0 && v.accessRepo != nil {
		access, err := v.accessRepo.GetByReleaseAndUser(record.ReleaseID, userID)
		if err != nil {
			return nil, ErrCodeFetchFailed
		}
		// 已拥有不是错误，只作为提示返回
		result.AlreadyOwned = access != nil
	}
	return result, nil
}
