package service

import (
	"errors"
	"testing"

	"github.com/release-unlock/internal/config"
)

func TestValidatePassword(t *testing.T) {
	full := config.PasswordPolicyConfig{
		MinLength:      8,
		RequireUpper:   true,
		RequireLower:   true,
		RequireNumber:  true,
		RequireSpecial: true,
	}

	tests := []struct {
		name     string
		policy   config.PasswordPolicyConfig
		password string
		wantWeak bool
	}{
		{"满足全部要求", full, "Unlock#2026", false},
		{"长度不足", full, "Un#1", true},
		{"缺少大写", full, "unlock#2026", true},
		{"缺少小写", full, "UNLOCK#2026", true},
		{"缺少数字", full, "Unlock#code", true},
		{"缺少特殊字符", full, "Unlock2026ok", true},
		{"仅限制长度", config.PasswordPolicyConfig{MinLength: 8}, "justlongenough", false},
		{"空策略放行", config.PasswordPolicyConfig{}, "x", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePassword(tt.policy, tt.password)
			if tt.wantWeak {
				if !errors.Is(err, ErrWeakPassword) {
					t.Fatalf("want ErrWeakPassword got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("want nil got %v", err)
			}
		})
	}
}

func TestValidatePasswordCountsRunes(t *testing.T) {
	policy := config.PasswordPolicyConfig{MinLength: 6}
	// 多字节字符按字符数计，不按字节数
	if err := validatePassword(policy, "密码口令字符"); err != nil {
		t.Fatalf("six runes should satisfy min length 6, got %v", err)
	}
}
