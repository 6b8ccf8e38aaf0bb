package service

import (
	"testing"
	"time"

	"github.com/release-unlock/internal/constants"
	"github.com/release-unlock/internal/models"
	"github.com/release-unlock/internal/repository"
)

func TestValidateUnusedCode(t *testing.T) {
	db := setupTestDB(t)
	release := seedRelease(t, db, "first-album")
	seedUnlockCode(t, db, release.ID, "SHF-AB2C-XY9Z")

	v := NewCodeValidator(repository.NewUnlockCodeRepository(db), repository.NewReleaseAccessRepository(db))
	result, err := v.Validate(" shf-ab2c-xy9z ", 0)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !result.Valid {
		t.Fatalf("unused code should be valid, fail reason %s", result.FailReason)
	}
	if result.Release == nil || result.Release.Slug != "first-album" {
		t.Fatalf("validate should return release summary, got %+v", result.Release)
	}
	if result.AlreadyOwned {
		t.Fatalf("anonymous validation should not report ownership")
	}
}

func TestValidateInvalidFormat(t *testing.T) {
	db := setupTestDB(t)
	v := NewCodeValidator(repository.NewUnlockCodeRepository(db), repository.NewReleaseAccessRepository(db))

	result, err := v.Validate("not-a-code", 0)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if result.Valid {
		t.Fatalf("malformed code should be invalid")
	}
	if result.FailReason != FailReasonInvalidFormat {
		t.Fatalf("fail reason want %s got %s", FailReasonInvalidFormat, result.FailReason)
	}
}

func TestValidateNotFound(t *testing.T) {
	db := setupTestDB(t)
	v := NewCodeValidator(repository.NewUnlockCodeRepository(db), repository.NewReleaseAccessRepository(db))

	result, err := v.Validate("SHF-AAAA-BBBB", 0)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if result.Valid || result.FailReason != FailReasonNotFound {
		t.Fatalf("unknown code want fail reason %s got %s", FailReasonNotFound, result.FailReason)
	}
}

func TestValidateRedeemedAndInvalidated(t *testing.T) {
	db := setupTestDB(t)
	release := seedRelease(t, db, "second-album")
	redeemed := seedUnlockCode(t, db, release.ID, "SHF-AAAA-2222")
	now := time.Now()
	userID := uint(7)
	db.Model(redeemed).Updates(map[string]interface{}{
		"status":           constants.UnlockCodeStatusRedeemed,
		"redeemed_user_id": userID,
		"redeemed_at":      now,
	})
	invalidated := seedUnlockCode(t, db, release.ID, "SHF-BBBB-3333")
	db.Model(invalidated).Update("status", constants.UnlockCodeStatusInvalid)

	v := NewCodeValidator(repository.NewUnlockCodeRepository(db), repository.NewReleaseAccessRepository(db))

	result, err := v.Validate("SHF-AAAA-2222", 0)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if result.Valid || result.FailReason != FailReasonAlreadyRedeemed {
		t.Fatalf("redeemed code want fail reason %s got %s", FailReasonAlreadyRedeemed, result.FailReason)
	}

	result, err = v.Validate("SHF-BBBB-3333", 0)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if result.Valid || result.FailReason != FailReasonInvalidated {
		t.Fatalf("invalidated code want fail reason %s got %s", FailReasonInvalidated, result.FailReason)
	}
}

func TestValidateReportsExistingOwnership(t *testing.T) {
	db := setupTestDB(t)
	release := seedRelease(t, db, "third-album")
	seedUnlockCode(t, db, release.ID, "SHF-CCCC-4444")
	user := seedUser(t, db, "owner@example.com")
	if err := db.Create(&models.ReleaseAccess{
		ReleaseID: release.ID,
		UserID:    user.ID,
		Source:    constants.AccessSourceUnlockCode,
		GrantedAt: time.Now(),
	}).Error; err != nil {
		t.Fatalf("seed access failed: %v", err)
	}

	v := NewCodeValidator(repository.NewUnlockCodeRepository(db), repository.NewReleaseAccessRepository(db))
	result, err := v.Validate("SHF-CCCC-4444", user.ID)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !result.Valid {
		t.Fatalf("owned release should not invalidate the code, fail reason %s", result.FailReason)
	}
	if !result.AlreadyOwned {
		t.Fatalf("validation should report existing ownership")
	}
}
