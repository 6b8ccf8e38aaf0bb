package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/release-unlock/internal/constants"
	"github.com/release-unlock/internal/models"
	"github.com/release-unlock/internal/repository"

	"gorm.io/gorm"
)

func newRedeemEnv(t *testing.T) (*gorm.DB, *RedemptionService, *SecurityConfigService) {
	t.Helper()
	db := setupTestDB(t)
	codeRepo := repository.NewUnlockCodeRepository(db)
	accessRepo := repository.NewReleaseAccessRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)
	logRepo := repository.NewRedemptionLogRepository(db)

	limiter := NewRateLimiter(NewDatabaseCounterStore(repository.NewRateLimitRepository(db)), RateLimiterOptions{
		MaxAttempts:   3,
		Window:        time.Minute,
		BlockDuration: time.Minute,
	})
	detector := NewFraudDetector(repository.NewFraudLogRepository(db), logRepo, FraudDetectorOptions{
		EnumerationThreshold: 50,
		TargetingThreshold:   50,
		Window:               time.Hour,
	})
	securitySvc := NewSecurityConfigService(repository.NewSecurityConfigRepository(db), SecurityDefaults{
		FraudDetectionEnabled: true,
	})
	if err := securitySvc.EnsureSeeded(); err != nil {
		t.Fatalf("seed security config failed: %v", err)
	}

	svc := NewRedemptionService(
		codeRepo,
		accessRepo,
		purchaseRepo,
		NewCodeValidator(codeRepo, accessRepo),
		limiter,
		detector,
		securitySvc,
		NewRedemptionLogService(logRepo),
	)
	return db, svc, securitySvc
}

func enableLocks(t *testing.T, securitySvc *SecurityConfigService, device, ip bool) {
	t.Helper()
	if _, err := securitySvc.Update(UpdateSecurityConfigInput{
		DeviceLockEnabled: &device,
		IPLockEnabled:     &ip,
	}); err != nil {
		t.Fatalf("update security config failed: %v", err)
	}
}

func TestRedeemSuccess(t *testing.T) {
	db, svc, _ := newRedeemEnv(t)
	release := seedRelease(t, db, "debut-ep")
	seedUnlockCode(t, db, release.ID, "SHF-GOOD-2345")
	user := seedUser(t, db, "fan@example.com")

	result, err := svc.Redeem(context.Background(), RedeemInput{
		UserID:    user.ID,
		Code:      " shf-good-2345 ",
		ClientIP:  "1.1.1.1",
		UserAgent: "test-agent",
		RequestID: "req-1",
	})
	if err != nil {
		t.Fatalf("redeem failed: %v", err)
	}
	if result.Code == nil || result.Code.Status != constants.UnlockCodeStatusRedeemed {
		t.Fatalf("code should be redeemed, got %+v", result.Code)
	}
	if result.Code.RedeemedUserID == nil || *result.Code.RedeemedUserID != user.ID {
		t.Fatalf("redeemed user want %d got %v", user.ID, result.Code.RedeemedUserID)
	}
	if result.Release == nil || result.Release.Slug != "debut-ep" {
		t.Fatalf("result should carry release summary, got %+v", result.Release)
	}

	var access models.ReleaseAccess
	if err := db.Where("release_id = ? AND user_id = ?", release.ID, user.ID).First(&access).Error; err != nil {
		t.Fatalf("access row should exist: %v", err)
	}
	if access.Source != constants.AccessSourceUnlockCode {
		t.Fatalf("access source want %s got %s", constants.AccessSourceUnlockCode, access.Source)
	}

	var purchaseCount int64
	db.Model(&models.Purchase{}).Where("user_id = ?", user.ID).Count(&purchaseCount)
	if purchaseCount != 1 {
		t.Fatalf("purchase row want 1 got %d", purchaseCount)
	}

	var log models.RedemptionLog
	if err := db.Where("code = ? AND result = ?", "SHF-GOOD-2345", constants.RedemptionResultSuccess).First(&log).Error; err != nil {
		t.Fatalf("success log should exist: %v", err)
	}
	if log.Action != constants.RedemptionActionRedeem || log.RequestID != "req-1" {
		t.Fatalf("unexpected success log: %+v", log)
	}
}

func TestRedeemTwiceFails(t *testing.T) {
	db, svc, _ := newRedeemEnv(t)
	release := seedRelease(t, db, "double-ep")
	seedUnlockCode(t, db, release.ID, "SHF-ONCE-2345")
	first := seedUser(t, db, "first@example.com")
	second := seedUser(t, db, "second@example.com")

	ctx := context.Background()
	if _, err := svc.Redeem(ctx, RedeemInput{UserID: first.ID, Code: "SHF-ONCE-2345", ClientIP: "1.1.1.2"}); err != nil {
		t.Fatalf("first redeem failed: %v", err)
	}
	if _, err := svc.Redeem(ctx, RedeemInput{UserID: second.ID, Code: "SHF-ONCE-2345", ClientIP: "1.1.1.3"}); !errors.Is(err, ErrCodeAlreadyRedeemed) {
		t.Fatalf("second redeem want ErrCodeAlreadyRedeemed got %v", err)
	}

	// 失败尝试也要落日志
	var failCount int64
	db.Model(&models.RedemptionLog{}).
		Where("result = ? AND fail_reason = ?", constants.RedemptionResultFailed, FailReasonAlreadyRedeemed).
		Count(&failCount)
	if failCount != 1 {
		t.Fatalf("failure log want 1 got %d", failCount)
	}

	var accessCount int64
	db.Model(&models.ReleaseAccess{}).Where("release_id = ?", release.ID).Count(&accessCount)
	if accessCount != 1 {
		t.Fatalf("access rows want 1 got %d", accessCount)
	}
}

func TestRedeemRejectsMalformedCode(t *testing.T) {
	db, svc, _ := newRedeemEnv(t)
	user := seedUser(t, db, "fmt@example.com")

	_, err := svc.Redeem(context.Background(), RedeemInput{UserID: user.ID, Code: "hello", ClientIP: "1.1.1.4"})
	if !errors.Is(err, ErrCodeInvalidFormat) {
		t.Fatalf("want ErrCodeInvalidFormat got %v", err)
	}

	var log models.RedemptionLog
	if err := db.Where("fail_reason = ?", FailReasonInvalidFormat).First(&log).Error; err != nil {
		t.Fatalf("malformed attempt should be logged: %v", err)
	}
}

func TestRedeemRequiresAuthenticatedUser(t *testing.T) {
	_, svc, _ := newRedeemEnv(t)
	if _, err := svc.Redeem(context.Background(), RedeemInput{UserID: 0, Code: "SHF-ANON-2345"}); !errors.Is(err, ErrCodeInvalid) {
		t.Fatalf("anonymous redeem want ErrCodeInvalid got %v", err)
	}
}

func TestRedeemOwnershipConflictKeepsCodeUnused(t *testing.T) {
	db, svc, _ := newRedeemEnv(t)
	release := seedRelease(t, db, "owned-album")
	code := seedUnlockCode(t, db, release.ID, "SHF-OWND-2345")
	user := seedUser(t, db, "collector@example.com")
	if err := db.Create(&models.ReleaseAccess{
		ReleaseID: release.ID,
		UserID:    user.ID,
		Source:    constants.AccessSourcePurchase,
		GrantedAt: time.Now(),
	}).Error; err != nil {
		t.Fatalf("seed access failed: %v", err)
	}

	_, err := svc.Redeem(context.Background(), RedeemInput{UserID: user.ID, Code: "SHF-OWND-2345", ClientIP: "1.1.1.5"})
	if !errors.Is(err, ErrCodeOwnershipConflict) {
		t.Fatalf("want ErrCodeOwnershipConflict got %v", err)
	}

	var reloaded models.UnlockCode
	if err := db.First(&reloaded, code.ID).Error; err != nil {
		t.Fatalf("reload code failed: %v", err)
	}
	if reloaded.Status != constants.UnlockCodeStatusUnused || reloaded.RedeemedUserID != nil {
		t.Fatalf("conflict must not consume the code, got %+v", reloaded)
	}
}

func TestRedeemStampsDeviceAndIPLocks(t *testing.T) {
	db, svc, securitySvc := newRedeemEnv(t)
	enableLocks(t, securitySvc, true, true)
	release := seedRelease(t, db, "locked-album")
	code := seedUnlockCode(t, db, release.ID, "SHF-LOCK-2345")
	user := seedUser(t, db, "locked@example.com")

	_, err := svc.Redeem(context.Background(), RedeemInput{
		UserID:     user.ID,
		Code:       "SHF-LOCK-2345",
		ClientIP:   "2.2.2.2",
		DeviceHash: "device-xyz",
	})
	if err != nil {
		t.Fatalf("redeem failed: %v", err)
	}

	var reloaded models.UnlockCode
	if err := db.First(&reloaded, code.ID).Error; err != nil {
		t.Fatalf("reload code failed: %v", err)
	}
	if reloaded.DeviceLock == nil || *reloaded.DeviceLock != "device-xyz" {
		t.Fatalf("device lock should be stamped on first redeem, got %v", reloaded.DeviceLock)
	}
	if reloaded.IPLock == nil || *reloaded.IPLock != "2.2.2.2" {
		t.Fatalf("ip lock should be stamped on first redeem, got %v", reloaded.IPLock)
	}
}

func TestRedeemEnforcesExistingDeviceLock(t *testing.T) {
	db, svc, securitySvc := newRedeemEnv(t)
	enableLocks(t, securitySvc, true, false)
	release := seedRelease(t, db, "device-bound")
	code := seedUnlockCode(t, db, release.ID, "SHF-DEVC-2345")
	bound := "trusted-device"
	db.Model(code).Update("device_lock", bound)
	user := seedUser(t, db, "roamer@example.com")

	ctx := context.Background()
	_, err := svc.Redeem(ctx, RedeemInput{UserID: user.ID, Code: "SHF-DEVC-2345", ClientIP: "3.3.3.3", DeviceHash: "other-device"})
	if !errors.Is(err, ErrDeviceMismatch) {
		t.Fatalf("want ErrDeviceMismatch got %v", err)
	}

	if _, err := svc.Redeem(ctx, RedeemInput{UserID: user.ID, Code: "SHF-DEVC-2345", ClientIP: "3.3.3.3", DeviceHash: bound}); err != nil {
		t.Fatalf("matching device should pass: %v", err)
	}
}

func TestRedeemEnforcesExistingIPLock(t *testing.T) {
	db, svc, securitySvc := newRedeemEnv(t)
	enableLocks(t, securitySvc, false, true)
	release := seedRelease(t, db, "ip-bound")
	code := seedUnlockCode(t, db, release.ID, "SHF-ADDR-2345")
	db.Model(code).Update("ip_lock", "4.4.4.4")
	user := seedUser(t, db, "mobile@example.com")

	_, err := svc.Redeem(context.Background(), RedeemInput{UserID: user.ID, Code: "SHF-ADDR-2345", ClientIP: "4.4.4.5"})
	if !errors.Is(err, ErrIPMismatch) {
		t.Fatalf("want ErrIPMismatch got %v", err)
	}
}

func TestRedeemIgnoresLocksWhenDisabled(t *testing.T) {
	db, svc, _ := newRedeemEnv(t)
	release := seedRelease(t, db, "open-album")
	code := seedUnlockCode(t, db, release.ID, "SHF-OPEN-2345")
	db.Model(code).Update("device_lock", "trusted-device")
	user := seedUser(t, db, "open@example.com")

	// 开关关闭时历史锁不生效
	if _, err := svc.Redeem(context.Background(), RedeemInput{UserID: user.ID, Code: "SHF-OPEN-2345", ClientIP: "5.5.5.1", DeviceHash: "other-device"}); err != nil {
		t.Fatalf("disabled lock should not block redeem: %v", err)
	}
}

func TestRedeemRateLimitsRepeatedFailures(t *testing.T) {
	db, svc, _ := newRedeemEnv(t)
	user := seedUser(t, db, "bruteforce@example.com")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		code := fmt.Sprintf("SHF-MISS-%04d", i)
		if _, err := svc.Redeem(ctx, RedeemInput{UserID: user.ID, Code: code, ClientIP: "6.6.6.1"}); !errors.Is(err, ErrCodeNotFound) {
			t.Fatalf("attempt %d want ErrCodeNotFound got %v", i, err)
		}
	}

	_, err := svc.Redeem(ctx, RedeemInput{UserID: user.ID, Code: "SHF-MISS-9999", ClientIP: "6.6.6.1"})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("want ErrRateLimited got %v", err)
	}

	var log models.RedemptionLog
	if err := db.Where("fail_reason = ?", FailReasonRateLimited).First(&log).Error; err != nil {
		t.Fatalf("rate limited attempt should be logged: %v", err)
	}
}

func TestRedeemBlockedByOpenFraudFlag(t *testing.T) {
	db, svc, _ := newRedeemEnv(t)
	release := seedRelease(t, db, "flagged-album")
	seedUnlockCode(t, db, release.ID, "SHF-FLAG-2345")
	user := seedUser(t, db, "suspect@example.com")
	if err := db.Create(&models.FraudLog{
		ClientIP:  "7.7.7.1",
		Reason:    constants.FraudReasonCodeEnumeration,
		FlaggedAt: time.Now(),
	}).Error; err != nil {
		t.Fatalf("seed fraud log failed: %v", err)
	}

	_, err := svc.Redeem(context.Background(), RedeemInput{UserID: user.ID, Code: "SHF-FLAG-2345", ClientIP: "7.7.7.1"})
	if !errors.Is(err, ErrFraudBlocked) {
		t.Fatalf("want ErrFraudBlocked got %v", err)
	}
}

func TestValidateWritesAuditLog(t *testing.T) {
	db, svc, _ := newRedeemEnv(t)
	release := seedRelease(t, db, "audit-album")
	seedUnlockCode(t, db, release.ID, "SHF-AUDT-2345")

	result, err := svc.Validate(context.Background(), RedeemInput{Code: "SHF-AUDT-2345", ClientIP: "8.8.8.1"})
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !result.Valid {
		t.Fatalf("code should validate, fail reason %s", result.FailReason)
	}

	var log models.RedemptionLog
	if err := db.Where("action = ?", constants.RedemptionActionValidate).First(&log).Error; err != nil {
		t.Fatalf("validate attempt should be logged: %v", err)
	}
	if log.Result != constants.RedemptionResultSuccess {
		t.Fatalf("validate log result want success got %s", log.Result)
	}

	// 校验是只读路径，码保持未用
	var reloaded models.UnlockCode
	if err := db.Where("code = ?", "SHF-AUDT-2345").First(&reloaded).Error; err != nil {
		t.Fatalf("reload code failed: %v", err)
	}
	if reloaded.Status != constants.UnlockCodeStatusUnused {
		t.Fatalf("validate must not change status, got %s", reloaded.Status)
	}
}

type downCounterStore struct{}

func (downCounterStore) Count(context.Context, string, string, time.Duration) (int, error) {
	return 0, errors.New("counter store unavailable")
}

func (downCounterStore) Increment(context.Context, string, string, time.Duration) (int, error) {
	return 0, errors.New("counter store unavailable")
}

func (downCounterStore) BlockedUntil(context.Context, string, string) (*time.Time, error) {
	return nil, errors.New("counter store unavailable")
}

func (downCounterStore) Block(context.Context, string, string, time.Time) error {
	return errors.New("counter store unavailable")
}

func newRedeemEnvWithDownCounter(t *testing.T) (*gorm.DB, *RedemptionService) {
	t.Helper()
	db := setupTestDB(t)
	codeRepo := repository.NewUnlockCodeRepository(db)
	accessRepo := repository.NewReleaseAccessRepository(db)
	logRepo := repository.NewRedemptionLogRepository(db)

	limiter := NewRateLimiter(downCounterStore{}, RateLimiterOptions{
		MaxAttempts:   3,
		Window:        time.Minute,
		BlockDuration: time.Minute,
	})
	detector := NewFraudDetector(repository.NewFraudLogRepository(db), logRepo, FraudDetectorOptions{
		EnumerationThreshold: 50,
		TargetingThreshold:   50,
		Window:               time.Hour,
	})
	securitySvc := NewSecurityConfigService(repository.NewSecurityConfigRepository(db), SecurityDefaults{
		FraudDetectionEnabled: true,
	})
	if err := securitySvc.EnsureSeeded(); err != nil {
		t.Fatalf("seed security config failed: %v", err)
	}

	svc := NewRedemptionService(
		codeRepo,
		accessRepo,
		repository.NewPurchaseRepository(db),
		NewCodeValidator(codeRepo, accessRepo),
		limiter,
		detector,
		securitySvc,
		NewRedemptionLogService(logRepo),
	)
	return db, svc
}

func TestRedeemFraudGateSurvivesCounterOutage(t *testing.T) {
	db, svc := newRedeemEnvWithDownCounter(t)
	release := seedRelease(t, db, "outage-album")
	seedUnlockCode(t, db, release.ID, "SHF-DOWN-2345")
	user := seedUser(t, db, "outage@example.com")
	if err := db.Create(&models.FraudLog{
		ClientIP:  "9.9.9.9",
		Reason:    constants.FraudReasonCodeEnumeration,
		FlaggedAt: time.Now(),
	}).Error; err != nil {
		t.Fatalf("seed fraud log failed: %v", err)
	}

	// 计数存储故障只放行限流，欺诈拦截必须继续生效
	_, err := svc.Redeem(context.Background(), RedeemInput{UserID: user.ID, Code: "SHF-DOWN-2345", ClientIP: "9.9.9.9"})
	if !errors.Is(err, ErrFraudBlocked) {
		t.Fatalf("want ErrFraudBlocked got %v", err)
	}

	var reloaded models.UnlockCode
	if err := db.Where("code = ?", "SHF-DOWN-2345").First(&reloaded).Error; err != nil {
		t.Fatalf("reload code failed: %v", err)
	}
	if reloaded.Status != constants.UnlockCodeStatusUnused {
		t.Fatalf("blocked attempt must not consume the code, got %s", reloaded.Status)
	}
}

func TestRedeemSucceedsDuringCounterOutage(t *testing.T) {
	db, svc := newRedeemEnvWithDownCounter(t)
	release := seedRelease(t, db, "resilient-album")
	seedUnlockCode(t, db, release.ID, "SHF-KEEP-2345")
	user := seedUser(t, db, "resilient@example.com")

	result, err := svc.Redeem(context.Background(), RedeemInput{UserID: user.ID, Code: "SHF-KEEP-2345", ClientIP: "9.9.9.10"})
	if err != nil {
		t.Fatalf("counter outage alone should not block redeem: %v", err)
	}
	if result.Code == nil || result.Code.Status != constants.UnlockCodeStatusRedeemed {
		t.Fatalf("code should be redeemed, got %+v", result.Code)
	}
}

func TestRedeemConcurrentSingleWinner(t *testing.T) {
	db, svc, _ := newRedeemEnv(t)
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	release := seedRelease(t, db, "race-album")
	seedUnlockCode(t, db, release.ID, "SHF-RACE-2345")

	const contenders = 8
	users := make([]*models.User, contenders)
	for i := range users {
		users[i] = seedUser(t, db, fmt.Sprintf("racer%d@example.com", i))
	}

	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Redeem(context.Background(), RedeemInput{
				UserID:   users[i].ID,
				Code:     "SHF-RACE-2345",
				ClientIP: fmt.Sprintf("11.0.0.%d", i+1),
			})
		}(i)
	}
	wg.Wait()

	winners, losers := 0, 0
	for i, err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, ErrCodeAlreadyRedeemed):
			losers++
		default:
			t.Fatalf("contender %d unexpected error: %v", i, err)
		}
	}
	if winners != 1 {
		t.Fatalf("winners want 1 got %d", winners)
	}
	if losers != contenders-1 {
		t.Fatalf("losers want %d got %d", contenders-1, losers)
	}

	var accessCount int64
	db.Model(&models.ReleaseAccess{}).Where("release_id = ?", release.ID).Count(&accessCount)
	if accessCount != 1 {
		t.Fatalf("access rows want 1 got %d", accessCount)
	}

	var reloaded models.UnlockCode
	if err := db.Where("code = ?", "SHF-RACE-2345").First(&reloaded).Error; err != nil {
		t.Fatalf("reload code failed: %v", err)
	}
	if reloaded.Status != constants.UnlockCodeStatusRedeemed || reloaded.RedeemedUserID == nil {
		t.Fatalf("code should be redeemed exactly once, got %+v", reloaded)
	}
}
