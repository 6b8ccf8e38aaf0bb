package service

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/release-unlock/internal/constants"
	"github.com/release-unlock/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupTestDB 打开独立的内存库并替换全局 DB，测试结束后还原
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db failed: %v", err)
	}

	prev := models.DB
	models.DB = db
	t.Cleanup(func() {
		models.DB = prev
	})

	if err := models.AutoMigrate(); err != nil {
		t.Fatalf("migrate test db failed: %v", err)
	}
	return db
}

func seedRelease(t *testing.T, db *gorm.DB, slug string) *models.Release {
	t.Helper()
	release := &models.Release{
		Title:  "Test Release " + slug,
		Slug:   slug,
		Artist: "tester",
		Status: "published",
	}
	if err := db.Create(release).Error; err != nil {
		t.Fatalf("seed release failed: %v", err)
	}
	return release
}

func seedUnlockCode(t *testing.T, db *gorm.DB, releaseID uint, code string) *models.UnlockCode {
	t.Helper()
	now := time.Now()
	record := &models.UnlockCode{
		Code:      code,
		ReleaseID: releaseID,
		Status:    constants.UnlockCodeStatusUnused,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.Create(record).Error; err != nil {
		t.Fatalf("seed unlock code failed: %v", err)
	}
	return record
}

func seedUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{
		Email:        email,
		PasswordHash: "x",
		Status:       constants.UserStatusActive,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("seed user failed: %v", err)
	}
	return user
}
