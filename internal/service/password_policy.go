package service

import (
	"fmt"
	"unicode"

	"github.com/release-unlock/internal/config"
)

// validatePassword 按配置的密码策略校验
// 不满足策略时返回包裹 ErrWeakPassword 的错误，消息说明缺少的要素。
func validatePassword(policy config.PasswordPolicyConfig, password string) error {
	if policy.MinLength > 0 && len([]rune(password)) < policy.MinLength {
		return fmt.Errorf("%w: 长度不能少于 %d 位", ErrWeakPassword, policy.MinLength)
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasNumber = true
		default:
			hasSpecial = true
		}
	}

	switch {
	case policy.RequireUpper && !hasUpper:
		return fmt.Errorf("%w: 需要包含大写字母", ErrWeakPassword)
	case policy.RequireLower && !hasLower:
		return fmt.Errorf("%w: 需要包含小写字母", ErrWeakPassword)
	case policy.RequireNumber && !hasNumber:
		return fmt.Errorf("%w: 需要包含数字", ErrWeakPassword)
	case policy.RequireSpecial && !hasSpecial:
		return fmt.Errorf("%w: 需要包含特殊字符", ErrWeakPassword)
	}
	return nil
}
