package service

import (
	"time"

	"github.com/release-unlock/internal/models"
	"github.com/release-unlock/internal/repository"
)

// SecurityDefaults 安全开关的配置默认值
type SecurityDefaults struct {
	DeviceLockEnabled     bool
	IPLockEnabled         bool
	FraudDetectionEnabled bool
}

// SecurityConfigService 安全开关服务
// 核心链路每次请求读取一次快照，写入只发生在管理端。
type SecurityConfigService struct {
	repo     repository.SecurityConfigRepository
	defaults SecurityDefaults
}

// NewSecurityConfigService 创建安全开关服务
func NewSecurityConfigService(repo repository.SecurityConfigRepository, defaults SecurityDefaults) *SecurityConfigService {
	return &SecurityConfigService{repo: repo, defaults: defaults}
}

// Current 读取当前安全开关快照
// 尚未落库时返回配置默认值。
func (s *SecurityConfigService) Current() (*models.SecurityConfig, error) {
	if s == nil || s.repo == nil {
		return nil, ErrSecurityConfigFetchFailed
	}
	cfg, err := s.repo.Get()
	if err != nil {
		return nil, ErrSecurityConfigFetchFailed
	}
	if cfg == nil {
		return &models.SecurityConfig{
			DeviceLockEnabled:     s.defaults.DeviceLockEnabled,
			IPLockEnabled:         s.defaults.IPLockEnabled,
			FraudDetectionEnabled: s.defaults.FraudDetectionEnabled,
		}, nil
	}
	return cfg, nil
}

// EnsureSeeded 首次启动时将默认值落库
func (s *SecurityConfigService) EnsureSeeded() error {
	if s == nil || s.repo == nil {
		return ErrSecurityConfigFetchFailed
	}
	cfg, err := s.repo.Get()
	if err != nil {
		return ErrSecurityConfigFetchFailed
	}
	if cfg != nil {
		return nil
	}
	seed := &models.SecurityConfig{
		DeviceLockEnabled:     s.defaults.DeviceLockEnabled,
		IPLockEnabled:         s.defaults.IPLockEnabled,
		FraudDetectionEnabled: s.defaults.FraudDetectionEnabled,
		UpdatedAt:             time.Now(),
	}
	if err := s.repo.Upsert(seed); err != nil {
		return ErrSecurityConfigUpdateFailed
	}
	return nil
}

// UpdateSecurityConfigInput 安全开关更新输入
type UpdateSecurityConfigInput struct {
	DeviceLockEnabled     *bool
	IPLockEnabled         *bool
	FraudDetectionEnabled *bool
	AdminID               uint
}

// Update 更新安全开关（管理端）
func (s *SecurityConfigService) Update(input UpdateSecurityConfigInput) (*models.SecurityConfig, error) {
	if s == nil || s.repo == nil {
		return nil, ErrSecurityConfigUpdateFailed
	}
	current, err := s.Current()
	if err != nil {
		return nil, err
	}
	if input.DeviceLockEnabled != nil {
		current.DeviceLockEnabled = *input.DeviceLockEnabled
	}
	if input.IPLockEnabled != nil {
		current.IPLockEnabled = *input.IPLockEnabled
	}
	if input.FraudDetectionEnabled != nil {
		current.FraudDetectionEnabled = *input.FraudDetectionEnabled
	}
	if input.AdminID > 0 {
		current.UpdatedBy = &input.AdminID
	}
	if err := s.repo.Upsert(current); err != nil {
		return nil, ErrSecurityConfigUpdateFailed
	}
	return current, nil
}
