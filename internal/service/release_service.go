package service

import (
	"strings"

	"github.com/release-unlock/internal/models"
	"github.com/release-unlock/internal/repository"
)

// ReleaseService 发行内容服务
type ReleaseService struct {
	releaseRepo repository.ReleaseRepository
}

// NewReleaseService 创建发行内容服务
func NewReleaseService(releaseRepo repository.ReleaseRepository) *ReleaseService {
	return &ReleaseService{releaseRepo: releaseRepo}
}

// CreateReleaseInput 创建发行内容输入
type CreateReleaseInput struct {
	Title  string
	Slug   string
	Artist string
	Status string
}

func normalizeReleaseStatus(status string) string {
	status = strings.TrimSpace(strings.ToLower(status))
	if status == "" {
		return "published"
	}
	return status
}

// Create 创建发行内容
func (s *ReleaseService) Create(input CreateReleaseInput) (*models.Release, error) {
	if s == nil || s.releaseRepo == nil {
		return nil, ErrReleaseFetchFailed
	}
	title := strings.TrimSpace(input.Title)
	slug := strings.TrimSpace(strings.ToLower(input.Slug))
	if title == "" || slug == "" {
		return nil, ErrReleaseInvalid
	}
	existing, err := s.releaseRepo.GetBySlug(slug)
	if err != nil {
		return nil, ErrReleaseFetchFailed
	}
	if existing != nil {
		return nil, ErrReleaseSlugExists
	}
	release := &models.Release{
		Title:  title,
		Slug:   slug,
		Artist: strings.TrimSpace(input.Artist),
		Status: normalizeReleaseStatus(input.Status),
	}
	if err := s.releaseRepo.Create(release); err != nil {
		return nil, ErrReleaseCreateFailed
	}
	return release, nil
}

// Update 更新发行内容
func (s *ReleaseService) Update(id uint, input CreateReleaseInput) (*models.Release, error) {
	if s == nil || s.releaseRepo == nil {
		return nil, ErrReleaseFetchFailed
	}
	release, err := s.releaseRepo.GetByID(id)
	if err != nil {
		return nil, ErrReleaseFetchFailed
	}
	if release == nil {
		return nil, ErrReleaseNotFound
	}
	if title := strings.TrimSpace(input.Title); title != "" {
		release.Title = title
	}
	if slug := strings.TrimSpace(strings.ToLower(input.Slug)); slug != "" && slug != release.Slug {
		existing, err := s.releaseRepo.GetBySlug(slug)
		if err != nil {
			return nil, ErrReleaseFetchFailed
		}
		if existing != nil && existing.ID != release.ID {
			return nil, ErrReleaseSlugExists
		}
		release.Slug = slug
	}
	if artist := strings.TrimSpace(input.Artist); artist != "" {
		release.Artist = artist
	}
	if status := strings.TrimSpace(input.Status); status != "" {
		release.Status = normalizeReleaseStatus(status)
	}
	if err := s.releaseRepo.Update(release); err != nil {
		return nil, ErrReleaseUpdateFailed
	}
	return release, nil
}

// GetByID 查询发行内容
func (s *ReleaseService) GetByID(id uint) (*models.Release, error) {
	if s == nil || s.releaseRepo == nil {
		return nil, ErrReleaseFetchFailed
	}
	release, err := s.releaseRepo.GetByID(id)
	if err != nil {
		return nil, ErrReleaseFetchFailed
	}
	if release == nil {
		return nil, ErrReleaseNotFound
	}
	return release, nil
}

// List 查询发行内容列表
func (s *ReleaseService) List(page, pageSize int) ([]models.Release, int64, error) {
	if s == nil || s.releaseRepo == nil {
		return nil, 0, ErrReleaseFetchFailed
	}
	releases, total, err := s.releaseRepo.List(page, pageSize)
	if err != nil {
		return nil, 0, ErrReleaseFetchFailed
	}
	return releases, total, nil
}
