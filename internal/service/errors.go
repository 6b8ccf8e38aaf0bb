package service

import "errors"

// 兑换码核心错误
var (
	ErrCodeInvalidFormat     = errors.New("unlock code format invalid")
	ErrCodeNotFound          = errors.New("unlock code not found")
	ErrCodeAlreadyRedeemed   = errors.New("unlock code already redeemed")
	ErrCodeInvalidStatus     = errors.New("unlock code invalidated")
	ErrCodeOwnershipConflict = errors.New("release already owned")
	ErrRateLimited           = errors.New("too many attempts")
	ErrFraudBlocked          = errors.New("blocked by fraud flag")
	ErrDeviceMismatch        = errors.New("device lock mismatch")
	ErrIPMismatch            = errors.New("ip lock mismatch")
)

// 兑换码存储错误
var (
	ErrCodeInvalid           = errors.New("unlock code request invalid")
	ErrCodeFetchFailed       = errors.New("unlock code fetch failed")
	ErrCodeUpdateFailed      = errors.New("unlock code update failed")
	ErrCodeCreateFailed      = errors.New("unlock code create failed")
	ErrCodeBatchCreateFailed = errors.New("code batch create failed")
	ErrCodeBatchFetchFailed  = errors.New("code batch fetch failed")
	ErrAccessGrantFailed     = errors.New("release access grant failed")
)

// 发行内容错误
var (
	ErrReleaseNotFound     = errors.New("release not found")
	ErrReleaseInvalid      = errors.New("release request invalid")
	ErrReleaseSlugExists   = errors.New("release slug exists")
	ErrReleaseFetchFailed  = errors.New("release fetch failed")
	ErrReleaseCreateFailed = errors.New("release create failed")
	ErrReleaseUpdateFailed = errors.New("release update failed")
)

// 审计与欺诈错误
var (
	ErrRedemptionLogFetchFailed = errors.New("redemption log fetch failed")
	ErrFraudLogNotFound         = errors.New("fraud log not found")
	ErrFraudLogResolved         = errors.New("fraud log already resolved")
	ErrFraudLogFetchFailed      = errors.New("fraud log fetch failed")
	ErrFraudLogUpdateFailed     = errors.New("fraud log update failed")
)

// 安全开关错误
var (
	ErrSecurityConfigFetchFailed  = errors.New("security config fetch failed")
	ErrSecurityConfigUpdateFailed = errors.New("security config update failed")
)

// 账号与鉴权错误
var (
	ErrNotFound           = errors.New("record not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserDisabled       = errors.New("user disabled")
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrWeakPassword       = errors.New("weak password")
)

// 失败原因枚举值，写入兑换日志并返回给调用方
const (
	FailReasonInvalidFormat     = "invalid_format"
	FailReasonNotFound          = "not_found"
	FailReasonAlreadyRedeemed   = "already_redeemed"
	FailReasonInvalidated       = "invalidated"
	FailReasonOwnershipConflict = "ownership_conflict"
	FailReasonRateLimited       = "rate_limited"
	FailReasonFraudBlocked      = "fraud_blocked"
	FailReasonDeviceMismatch    = "device_mismatch"
	FailReasonIPMismatch        = "ip_mismatch"
	FailReasonInternal          = "internal"
)

// FailReasonForError 将核心错误映射为稳定的失败原因枚举
func FailReasonForError(err error) string {
	switch {
	case errors.Is(err, ErrCodeInvalidFormat):
		return FailReasonInvalidFormat
	case errors.Is(err, ErrCodeNotFound):
		return FailReasonNotFound
	case errors.Is(err, ErrCodeAlreadyRedeemed):
		return FailReasonAlreadyRedeemed
	case errors.Is(err, ErrCodeInvalidStatus):
		return FailReasonInvalidated
	case errors.Is(err, ErrCodeOwnershipConflict):
		return FailReasonOwnershipConflict
	case errors.Is(err, ErrRateLimited):
		return FailReasonRateLimited
	case errors.Is(err, ErrFraudBlocked):
		return FailReasonFraudBlocked
	case errors.Is(err, ErrDeviceMismatch):
		return FailReasonDeviceMismatch
	case errors.Is(err, ErrIPMismatch):
		return FailReasonIPMismatch
	default:
		return FailReasonInternal
	}
}
