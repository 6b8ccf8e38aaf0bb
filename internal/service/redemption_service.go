package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/release-unlock/internal/constants"
	"github.com/release-unlock/internal/logger"
	"github.com/release-unlock/internal/models"
	"github.com/release-unlock/internal/repository"

	"gorm.io/gorm"
)

// FraudObserver 失败尝试的欺诈观察入口
// 队列启用时由异步实现承接，否则同步调用检测器。
type FraudObserver interface {
	Observe(ctx context.Context, attempt FraudAttempt)
}

// RedemptionService 兑换引擎
// 状态迁移、授权与成功日志在同一事务内提交；
// 失败路径的日志、限流计数与欺诈观察在事务外执行。
type RedemptionService struct {
	codeRepo     repository.UnlockCodeRepository
	accessRepo   repository.ReleaseAccessRepository
	purchaseRepo repository.PurchaseRepository
	validator    *CodeValidator
	limiter      *RateLimiter
	detector     *FraudDetector
	observer     FraudObserver
	securitySvc  *SecurityConfigService
	logSvc       *RedemptionLogService
}

// NewRedemptionService 创建兑换引擎
func NewRedemptionService(
	codeRepo repository.UnlockCodeRepository,
	accessRepo repository.ReleaseAccessRepository,
	purchaseRepo repository.PurchaseRepository,
	validator *CodeValidator,
	limiter *RateLimiter,
	detector *FraudDetector,
	securitySvc *SecurityConfigService,
	logSvc *RedemptionLogService,
) *RedemptionService {
	return &RedemptionService{
		codeRepo:     codeRepo,
		accessRepo:   accessRepo,
		purchaseRepo: purchaseRepo,
		validator:    validator,
		limiter:      limiter,
		detector:     detector,
		observer:     detector,
		securitySvc:  securitySvc,
		logSvc:       logSvc,
	}
}

// SetFraudObserver 替换欺诈观察入口（队列启用时）
func (s *RedemptionService) SetFraudObserver(observer FraudObserver) {
	if s == nil || observer == nil {
		return
	}
	s.observer = observer
}

// RedeemInput 兑换输入
// UserID 必须来自已验证的身份，不接受调用方自报。
type RedeemInput struct {
	UserID     uint
	Code       string
	ClientIP   string
	DeviceHash string
	UserAgent  string
	RequestID  string
}

// RedeemResult 兑换结果
type RedeemResult struct {
	Code    *models.UnlockCode     `json:"code"`
	Release *models.ReleaseSummary `json:"release"`
	Access  *models.ReleaseAccess  `json:"access"`
}

func (input RedeemInput) limitSubject() LimitSubject {
	return LimitSubject{
		ClientIP:   input.ClientIP,
		UserID:     input.UserID,
		DeviceHash: input.DeviceHash,
	}
}

// Validate 校验兑换码（读路径，带限流与欺诈前置检查）
func (s *RedemptionService) Validate(ctx context.Context, input RedeemInput) (*ValidateResult, error) {
	if s == nil || s.validator == nil {
		return nil, ErrCodeFetchFailed
	}
	if err := s.precheck(ctx, input); err != nil {
		s.afterFailure(ctx, input, constants.RedemptionActionValidate, err)
		return nil, err
	}
	result, err := s.validator.Validate(input.Code, input.UserID)
	if err != nil {
		s.afterFailure(ctx, input, constants.RedemptionActionValidate, err)
		return nil, err
	}
	logResult := constants.RedemptionResultSuccess
	if !result.Valid {
		logResult = constants.RedemptionResultFailed
	}
	s.logSvc.Record(RecordAttemptInput{
		Code:       input.Code,
		UserID:     input.UserID,
		Action:     constants.RedemptionActionValidate,
		Result:     logResult,
		FailReason: result.FailReason,
		ClientIP:   input.ClientIP,
		DeviceHash: input.DeviceHash,
		UserAgent:  input.UserAgent,
		RequestID:  input.RequestID,
	})
	if !result.Valid {
		s.recordFailureSideEffects(ctx, input)
	}
	return result, nil
}

// Redeem 兑换兑换码
// 五个写操作（状态迁移、授权、购买记录、成功日志）同事务提交，
// 任一失败全部回滚，兑换码保持原状态。
func (s *RedemptionService) Redeem(ctx context.Context, input RedeemInput) (*RedeemResult, error) {
	if s == nil || s.codeRepo == nil {
		return nil, ErrCodeFetchFailed
	}
	if input.UserID == 0 {
		return nil, ErrCodeInvalid
	}

	code := NormalizeCode(input.Code)
	input.Code = code
	if !ValidCodeFormat(code) {
		s.afterFailure(ctx, input, constants.RedemptionActionRedeem, ErrCodeInvalidFormat)
		return nil, ErrCodeInvalidFormat
	}
	if err := s.precheck(ctx, input); err != nil {
		s.afterFailure(ctx, input, constants.RedemptionActionRedeem, err)
		return nil, err
	}

	security, err := s.securitySvc.Current()
	if err != nil {
		s.afterFailure(ctx, input, constants.RedemptionActionRedeem, err)
		return nil, err
	}

	now := time.Now()
	result := &RedeemResult{}
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		codeRepo := s.codeRepo.WithTx(tx)
		record, err := codeRepo.GetByCodeForUpdate(code)
		if err != nil {
			return ErrCodeFetchFailed
		}
		if record == nil {
			return ErrCodeNotFound
		}
		// 权威状态复查：校验结果不作数，以锁定行为准
		switch record.Status {
		case constants.UnlockCodeStatusRedeemed:
			return ErrCodeAlreadyRedeemed
		case constants.UnlockCodeStatusInvalid:
			return ErrCodeInvalidStatus
		case constants.UnlockCodeStatusUnused:
		default:
			return ErrCodeInvalidStatus
		}
		if record.RedeemedUserID != nil {
			return ErrCodeAlreadyRedeemed
		}

		// 锁存在即校验，不存在则在本次更新中落锁
		var deviceLock, ipLock *string
		if security.DeviceLockEnabled {
			device := strings.TrimSpace(input.DeviceHash)
			if record.DeviceLock != nil && *record.DeviceLock != "" {
				if device == "" || device != *record.DeviceLock {
					return ErrDeviceMismatch
				}
			} else if device != "" {
				deviceLock = &device
			}
		}
		if security.IPLockEnabled {
			ip := strings.TrimSpace(input.ClientIP)
			if record.IPLock != nil && *record.IPLock != "" {
				if ip == "" || ip != *record.IPLock {
					return ErrIPMismatch
				}
			} else if ip != "" {
				ipLock = &ip
			}
		}

		// 已拥有该发行内容时中止，兑换码不被消耗
		accessRepo := s.accessRepo.WithTx(tx)
		existing, err := accessRepo.GetByReleaseAndUser(record.ReleaseID, input.UserID)
		if err != nil {
			return ErrCodeFetchFailed
		}
		if existing != nil {
			return ErrCodeOwnershipConflict
		}

		rows, err := codeRepo.MarkRedeemed(record.ID, input.UserID, deviceLock, ipLock, now)
		if err != nil {
			return ErrCodeUpdateFailed
		}
		// 并发兑换者抢先完成了迁移
		if rows == 0 {
			return ErrCodeAlreadyRedeemed
		}

		access := &models.ReleaseAccess{
			ReleaseID: record.ReleaseID,
			UserID:    input.UserID,
			Source:    constants.AccessSourceUnlockCode,
			CodeID:    &record.ID,
			GrantedAt: now,
			CreatedAt: now,
		}
		if err := accessRepo.Create(access); err != nil {
			return ErrAccessGrantFailed
		}
		if err := s.purchaseRepo.WithTx(tx).Create(&models.Purchase{
			UserID:    input.UserID,
			ReleaseID: record.ReleaseID,
			CodeID:    &record.ID,
			Source:    constants.AccessSourceUnlockCode,
			Cost:      record.Cost,
			CreatedAt: now,
		}); err != nil {
			return ErrAccessGrantFailed
		}
		if err := s.logSvc.RecordInTx(tx, RecordAttemptInput{
			Code:       code,
			UserID:     input.UserID,
			Action:     constants.RedemptionActionRedeem,
			Result:     constants.RedemptionResultSuccess,
			ClientIP:   input.ClientIP,
			DeviceHash: input.DeviceHash,
			UserAgent:  input.UserAgent,
			RequestID:  input.RequestID,
		}); err != nil {
			return ErrCodeUpdateFailed
		}

		record.Status = constants.UnlockCodeStatusRedeemed
		record.RedeemedUserID = &input.UserID
		record.RedeemedAt = &now
		if deviceLock != nil {
			record.DeviceLock = deviceLock
		}
		if ipLock != nil {
			record.IPLock = ipLock
		}
		result.Code = record
		result.Access = access
		return nil
	})
	if err != nil {
		mapped := s.mapRedeemError(err)
		s.afterFailure(ctx, input, constants.RedemptionActionRedeem, mapped)
		return nil, mapped
	}

	if result.Code != nil {
		if release, err := s.releaseSummary(result.Code); err == nil {
			result.Release = release
		}
	}
	return result, nil
}

func (s *RedemptionService) releaseSummary(code *models.UnlockCode) (*models.ReleaseSummary, error) {
	if code.Release != nil {
		return code.Release.Summary(), nil
	}
	full, err := s.codeRepo.GetByID(code.ID)
	if err != nil || full == nil {
		return nil, ErrReleaseFetchFailed
	}
	return full.Release.Summary(), nil
}

// precheck 入口防线：限流封禁与欺诈标记拦截
func (s *RedemptionService) precheck(ctx context.Context, input RedeemInput) error {
	if err := s.limiter.Check(ctx, input.limitSubject()); err != nil {
		if errors.Is(err, ErrRateLimited) {
			return ErrRateLimited
		}
		// 计数存储故障只放行限流本身，欺诈拦截独立继续执行
		logger.Warnw("rate limit check failed", "error", err)
	}
	security, err := s.securitySvc.Current()
	if err != nil {
		return err
	}
	if security.FraudDetectionEnabled && s.detector != nil {
		blocked, err := s.detector.IsBlocked(input.ClientIP, input.DeviceHash)
		if err != nil {
			logger.Warnw("fraud block check failed", "error", err)
			return nil
		}
		if blocked {
			return ErrFraudBlocked
		}
	}
	return nil
}

// mapRedeemError 存储内部错误不外泄，统一映射为通用失败
func (s *RedemptionService) mapRedeemError(err error) error {
	switch {
	case errors.Is(err, ErrCodeNotFound),
		errors.Is(err, ErrCodeAlreadyRedeemed),
		errors.Is(err, ErrCodeInvalidStatus),
		errors.Is(err, ErrCodeOwnershipConflict),
		errors.Is(err, ErrDeviceMismatch),
		errors.Is(err, ErrIPMismatch),
		errors.Is(err, ErrRateLimited),
		errors.Is(err, ErrFraudBlocked):
		return err
	case errors.Is(err, ErrCodeFetchFailed), errors.Is(err, ErrAccessGrantFailed):
		return err
	default:
		logger.Errorw("redeem transaction failed", "error", err)
		return ErrCodeUpdateFailed
	}
}

// afterFailure 失败路径的审计与防御动作
// 无论具体失败原因为何都执行，重复探测即使每次都因格式错误失败也会被限流。
func (s *RedemptionService) afterFailure(ctx context.Context, input RedeemInput, action string, cause error) {
	s.logSvc.Record(RecordAttemptInput{
		Code:       input.Code,
		UserID:     input.UserID,
		Action:     action,
		Result:     constants.RedemptionResultFailed,
		FailReason: FailReasonForError(cause),
		ClientIP:   input.ClientIP,
		DeviceHash: input.DeviceHash,
		UserAgent:  input.UserAgent,
		RequestID:  input.RequestID,
	})
	if errors.Is(cause, ErrRateLimited) {
		// 已封禁的请求不再延长计数
		return
	}
	s.recordFailureSideEffects(ctx, input)
}

func (s *RedemptionService) recordFailureSideEffects(ctx context.Context, input RedeemInput) {
	if err := s.limiter.RecordFailure(ctx, input.limitSubject()); err != nil {
		logger.Warnw("rate limit increment failed", "error", err)
	}
	security, err := s.securitySvc.Current()
	if err != nil || !security.FraudDetectionEnabled {
		return
	}
	if s.observer != nil {
		s.observer.Observe(ctx, FraudAttempt{
			UserID:     input.UserID,
			Code:       NormalizeCode(input.Code),
			ClientIP:   input.ClientIP,
			DeviceHash: input.DeviceHash,
			At:         time.Now(),
		})
	}
}
