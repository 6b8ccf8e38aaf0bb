package service

import (
	"testing"

	"github.com/release-unlock/internal/models"
	"github.com/release-unlock/internal/repository"
)

func TestSecurityConfigDefaultsBeforeSeed(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSecurityConfigService(repository.NewSecurityConfigRepository(db), SecurityDefaults{
		DeviceLockEnabled:     true,
		FraudDetectionEnabled: true,
	})

	cfg, err := svc.Current()
	if err != nil {
		t.Fatalf("current failed: %v", err)
	}
	if !cfg.DeviceLockEnabled || cfg.IPLockEnabled || !cfg.FraudDetectionEnabled {
		t.Fatalf("unseeded config should mirror defaults, got %+v", cfg)
	}
}

func TestSecurityConfigEnsureSeeded(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSecurityConfigService(repository.NewSecurityConfigRepository(db), SecurityDefaults{
		FraudDetectionEnabled: true,
	})

	if err := svc.EnsureSeeded(); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	// 重复播种不应产生第二行
	if err := svc.EnsureSeeded(); err != nil {
		t.Fatalf("second seed failed: %v", err)
	}

	var count int64
	db.Model(&models.SecurityConfig{}).Count(&count)
	if count != 1 {
		t.Fatalf("config rows want 1 got %d", count)
	}
}

func TestSecurityConfigPartialUpdate(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSecurityConfigService(repository.NewSecurityConfigRepository(db), SecurityDefaults{
		FraudDetectionEnabled: true,
	})
	if err := svc.EnsureSeeded(); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	enabled := true
	updated, err := svc.Update(UpdateSecurityConfigInput{
		DeviceLockEnabled: &enabled,
		AdminID:           3,
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !updated.DeviceLockEnabled {
		t.Fatalf("device lock should be enabled")
	}
	if !updated.FraudDetectionEnabled {
		t.Fatalf("untouched toggle must keep its value")
	}
	if updated.UpdatedBy == nil || *updated.UpdatedBy != 3 {
		t.Fatalf("update should stamp admin, got %v", updated.UpdatedBy)
	}

	current, err := svc.Current()
	if err != nil {
		t.Fatalf("current failed: %v", err)
	}
	if !current.DeviceLockEnabled {
		t.Fatalf("update should persist, got %+v", current)
	}
}
