package service

import (
	"errors"
	"testing"

	"github.com/release-unlock/internal/config"
	"github.com/release-unlock/internal/repository"

	"gorm.io/gorm"
)

func newUserAuthService(t *testing.T) (*gorm.DB, *UserAuthService) {
	t.Helper()
	db := setupTestDB(t)
	cfg := &config.Config{}
	cfg.UserJWT.SecretKey = "test-user-secret-key-0123456789abcdef"
	cfg.UserJWT.ExpireHours = 24
	cfg.UserJWT.RememberMeExpireHours = 720
	cfg.Security.PasswordPolicy = config.PasswordPolicyConfig{MinLength: 8}
	return db, NewUserAuthService(cfg, repository.NewUserRepository(db))
}

func TestUserRegisterAndLogin(t *testing.T) {
	_, svc := newUserAuthService(t)

	user, token, _, err := svc.Register(" Fan@Example.COM ", "longenough")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if user.Email != "fan@example.com" {
		t.Fatalf("email should be normalized, got %s", user.Email)
	}
	if user.DisplayName != "fan" {
		t.Fatalf("display name want fan got %s", user.DisplayName)
	}
	if token == "" {
		t.Fatalf("register should issue a token")
	}

	claims, err := svc.ParseUserJWT(token)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if claims.UserID != user.ID || claims.Email != user.Email {
		t.Fatalf("claims mismatch: %+v", claims)
	}

	if _, _, _, err := svc.Login("fan@example.com", "longenough"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if _, _, _, err := svc.Login("fan@example.com", "wrongpassword"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password want ErrInvalidCredentials got %v", err)
	}
}

func TestUserRegisterRejectsDuplicateAndWeakInput(t *testing.T) {
	_, svc := newUserAuthService(t)

	if _, _, _, err := svc.Register("dup@example.com", "longenough"); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, _, _, err := svc.Register("dup@example.com", "longenough"); !errors.Is(err, ErrEmailExists) {
		t.Fatalf("duplicate email want ErrEmailExists got %v", err)
	}
	if _, _, _, err := svc.Register("not-an-email", "longenough"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("bad email want ErrInvalidEmail got %v", err)
	}
	if _, _, _, err := svc.Register("short@example.com", "tiny"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("short password want ErrWeakPassword got %v", err)
	}
}

func TestUserChangePasswordInvalidatesOldTokens(t *testing.T) {
	_, svc := newUserAuthService(t)

	user, _, _, err := svc.Register("rotate@example.com", "longenough")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if err := svc.ChangePassword(user.ID, "wrongpassword", "evenlonger1"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("wrong old password want ErrInvalidPassword got %v", err)
	}
	if err := svc.ChangePassword(user.ID, "longenough", "tiny"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("weak new password want ErrWeakPassword got %v", err)
	}
	if err := svc.ChangePassword(user.ID, "longenough", "evenlonger1"); err != nil {
		t.Fatalf("change password failed: %v", err)
	}

	updated, err := svc.GetUserByID(user.ID)
	if err != nil {
		t.Fatalf("reload user failed: %v", err)
	}
	if updated.TokenVersion != user.TokenVersion+1 {
		t.Fatalf("token version should rotate, got %d", updated.TokenVersion)
	}
	if updated.TokenInvalidBefore == nil {
		t.Fatalf("token invalid before should be stamped")
	}

	if _, _, _, err := svc.Login("rotate@example.com", "longenough"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password should be rejected, got %v", err)
	}
	if _, _, _, err := svc.Login("rotate@example.com", "evenlonger1"); err != nil {
		t.Fatalf("new password login failed: %v", err)
	}
}

func TestGetUserByIDNotFound(t *testing.T) {
	_, svc := newUserAuthService(t)
	if _, err := svc.GetUserByID(0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("zero id want ErrNotFound got %v", err)
	}
	if _, err := svc.GetUserByID(42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing user want ErrNotFound got %v", err)
	}
}
