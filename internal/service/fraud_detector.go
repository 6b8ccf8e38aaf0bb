package service

import (
	"context"
	"strings"
	"time"

	"github.com/release-unlock/internal/constants"
	"github.com/release-unlock/internal/logger"
	"github.com/release-unlock/internal/models"
	"github.com/release-unlock/internal/repository"
)

// FraudAttempt 欺诈检测观察到的一次失败尝试
type FraudAttempt struct {
	UserID     uint      `json:"user_id"`
	Code       string    `json:"code"`
	ClientIP   string    `json:"client_ip"`
	DeviceHash string    `json:"device_hash"`
	At         time.Time `json:"at"`
}

// FraudHeuristic 可插拔欺诈判定规则
// Inspect 返回 nil 表示本次尝试未触发该规则。
type FraudHeuristic interface {
	Name() string
	Inspect(attempt FraudAttempt) (*models.FraudLog, error)
}

// FraudDetectorOptions 欺诈检测参数
type FraudDetectorOptions struct {
	EnumerationThreshold int
	TargetingThreshold   int
	Window               time.Duration
}

func (o FraudDetectorOptions) normalized() FraudDetectorOptions {
	if o.EnumerationThreshold <= 0 {
		o.EnumerationThreshold = 8
	}
	if o.TargetingThreshold <= 0 {
		o.TargetingThreshold = 5
	}
	if o.Window <= 0 {
		o.Window = time.Hour
	}
	return o
}

// EnumerationHeuristic 枚举攻击规则
// 窗口内同一 IP 或设备尝试的不同兑换码数量达到阈值即标记。
type EnumerationHeuristic struct {
	logRepo   repository.RedemptionLogRepository
	threshold int
	window    time.Duration
}

// Name 规则名
func (h *EnumerationHeuristic) Name() string {
	return constants.FraudReasonCodeEnumeration
}

// Inspect 检查枚举攻击
func (h *EnumerationHeuristic) Inspect(attempt FraudAttempt) (*models.FraudLog, error) {
	since := attempt.At.Add(-h.window)
	var triggered bool
	if ip := strings.TrimSpace(attempt.ClientIP); ip != "" {
		count, err := h.logRepo.CountDistinctCodesByIP(ip, since)
		if err != nil {
			return nil, err
		}
		triggered = count >= int64(h.threshold)
	}
	if !triggered {
		if device := strings.TrimSpace(attempt.DeviceHash); device != "" {
			count, err := h.logRepo.CountDistinctCodesByDevice(device, since)
			if err != nil {
				return nil, err
			}
			triggered = count >= int64(h.threshold)
		}
	}
	if !triggered {
		return nil, nil
	}
	codes, err := h.logRepo.ListRecentCodes(attempt.ClientIP, attempt.DeviceHash, since, 50)
	if err != nil {
		return nil, err
	}
	return &models.FraudLog{
		UserID:         attempt.UserID,
		ClientIP:       attempt.ClientIP,
		DeviceHash:     attempt.DeviceHash,
		CodesAttempted: codes,
		Reason:         constants.FraudReasonCodeEnumeration,
		FlaggedAt:      attempt.At,
	}, nil
}

// TargetingHeuristic 定向攻击规则
// 窗口内针对同一兑换码出现的不同用户数量达到阈值即标记。
type TargetingHeuristic struct {
	logRepo   repository.RedemptionLogRepository
	threshold int
	window    time.Duration
}

// Name 规则名
func (h *TargetingHeuristic) Name() string {
	return constants.FraudReasonCodeTargeting
}

// Inspect 检查定向攻击
func (h *TargetingHeuristic) Inspect(attempt FraudAttempt) (*models.FraudLog, error) {
	code := NormalizeCode(attempt.Code)
	if code == "" {
		return nil, nil
	}
	since := attempt.At.Add(-h.window)
	count, err := h.logRepo.CountDistinctUsersByCode(code, since)
	if err != nil {
		return nil, err
	}
	if count < int64(h.threshold) {
		return nil, nil
	}
	return &models.FraudLog{
		UserID:         attempt.UserID,
		ClientIP:       attempt.ClientIP,
		DeviceHash:     attempt.DeviceHash,
		CodesAttempted: models.StringArray{code},
		Reason:         constants.FraudReasonCodeTargeting,
		FlaggedAt:      attempt.At,
	}, nil
}

// FraudDetector 欺诈检测器
// 标记写入为尽力而为：任何失败只记 warn 日志，绝不影响兑换结果。
type FraudDetector struct {
	fraudRepo  repository.FraudLogRepository
	heuristics []FraudHeuristic
	window     time.Duration
}

// NewFraudDetector 创建欺诈检测器，内置枚举与定向两条规则
func NewFraudDetector(fraudRepo repository.FraudLogRepository, logRepo repository.RedemptionLogRepository, opts FraudDetectorOptions) *FraudDetector {
	opts = opts.normalized()
	return &FraudDetector{
		fraudRepo: fraudRepo,
		heuristics: []FraudHeuristic{
			&EnumerationHeuristic{logRepo: logRepo, threshold: opts.EnumerationThreshold, window: opts.Window},
			&TargetingHeuristic{logRepo: logRepo, threshold: opts.TargetingThreshold, window: opts.Window},
		},
		window: opts.Window,
	}
}

// Register 追加自定义规则
func (d *FraudDetector) Register(heuristic FraudHeuristic) {
	if d == nil || heuristic == nil {
		return
	}
	d.heuristics = append(d.heuristics, heuristic)
}

// Observe 对一次失败尝试运行所有规则
// 同一 IP/设备在窗口内已有未解决标记时不再重复开标记。
func (d *FraudDetector) Observe(ctx context.Context, attempt FraudAttempt) {
	if d == nil || d.fraudRepo == nil {
		return
	}
	if attempt.At.IsZero() {
		attempt.At = time.Now()
	}
	for _, heuristic := range d.heuristics {
		flag, err := heuristic.Inspect(attempt)
		if err != nil {
			logger.Warnw("fraud heuristic inspect failed", "heuristic", heuristic.Name(), "error", err)
			continue
		}
		if flag == nil {
			continue
		}
		open, err := d.fraudRepo.HasOpenFlagSince(attempt.ClientIP, attempt.DeviceHash, attempt.At.Add(-d.window))
		if err != nil {
			logger.Warnw("fraud flag dedup check failed", "heuristic", heuristic.Name(), "error", err)
			continue
		}
		if open {
			continue
		}
		if err := d.fraudRepo.Create(flag); err != nil {
			logger.Warnw("fraud flag write failed", "heuristic", heuristic.Name(), "error", err)
		}
	}
}

// IsBlocked 判断 IP 或设备是否被未解决的欺诈标记拦截
func (d *FraudDetector) IsBlocked(ip, deviceHash string) (bool, error) {
	if d == nil || d.fraudRepo == nil {
		return false, nil
	}
	blocked, err := d.fraudRepo.HasOpenFlag(ip, deviceHash)
	if err != nil {
		return false, ErrFraudLogFetchFailed
	}
	return blocked, nil
}

// ListFraudLogsInput 欺诈标记列表输入
type ListFraudLogsInput struct {
	ClientIP   string
	DeviceHash string
	UserID     uint
	Reason     string
	Resolved   *bool
	Page       int
	PageSize   int
}

// ListFraudLogs 获取欺诈标记列表（管理端）
func (d *FraudDetector) ListFraudLogs(input ListFraudLogsInput) ([]models.FraudLog, int64, error) {
	if d == nil || d.fraudRepo == nil {
		return nil, 0, ErrFraudLogFetchFailed
	}
	logs, total, err := d.fraudRepo.List(repository.FraudLogListFilter{
		ClientIP:   input.ClientIP,
		DeviceHash: input.DeviceHash,
		UserID:     input.UserID,
		Reason:     input.Reason,
		Resolved:   input.Resolved,
		Page:       input.Page,
		PageSize:   input.PageSize,
	})
	if err != nil {
		return nil, 0, ErrFraudLogFetchFailed
	}
	return logs, total, nil
}

// ResolveFraudLog 将欺诈标记置为已解决（管理端）
func (d *FraudDetector) ResolveFraudLog(id uint, adminID uint, note string) (*models.FraudLog, error) {
	if d == nil || d.fraudRepo == nil || id == 0 {
		return nil, ErrFraudLogUpdateFailed
	}
	flag, err := d.fraudRepo.GetByID(id)
	if err != nil {
		return nil, ErrFraudLogFetchFailed
	}
	if flag == nil {
		return nil, ErrFraudLogNotFound
	}
	if flag.Resolved {
		return nil, ErrFraudLogResolved
	}
	rows, err := d.fraudRepo.Resolve(id, adminID, note, time.Now())
	if err != nil {
		return nil, ErrFraudLogUpdateFailed
	}
	if rows == 0 {
		return nil, ErrFraudLogResolved
	}
	return d.fraudRepo.GetByID(id)
}
