package service

import (
	"errors"
	"testing"

	"github.com/release-unlock/internal/repository"
)

func TestCreateReleaseNormalizesSlug(t *testing.T) {
	db := setupTestDB(t)
	svc := NewReleaseService(repository.NewReleaseRepository(db))

	release, err := svc.Create(CreateReleaseInput{Title: "Midnight Tape", Slug: " Midnight-Tape ", Artist: "nova"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if release.Slug != "midnight-tape" {
		t.Fatalf("slug should be lowercased, got %s", release.Slug)
	}
	if release.Status != "published" {
		t.Fatalf("default status want published got %s", release.Status)
	}
}

func TestCreateReleaseRejectsDuplicateSlug(t *testing.T) {
	db := setupTestDB(t)
	svc := NewReleaseService(repository.NewReleaseRepository(db))
	seedRelease(t, db, "taken-slug")

	if _, err := svc.Create(CreateReleaseInput{Title: "Other", Slug: "taken-slug"}); !errors.Is(err, ErrReleaseSlugExists) {
		t.Fatalf("want ErrReleaseSlugExists got %v", err)
	}
	if _, err := svc.Create(CreateReleaseInput{Title: "", Slug: "x"}); !errors.Is(err, ErrReleaseInvalid) {
		t.Fatalf("blank title want ErrReleaseInvalid got %v", err)
	}
}

func TestUpdateRelease(t *testing.T) {
	db := setupTestDB(t)
	svc := NewReleaseService(repository.NewReleaseRepository(db))
	release := seedRelease(t, db, "old-slug")
	seedRelease(t, db, "occupied")

	updated, err := svc.Update(release.ID, CreateReleaseInput{Title: "New Title", Slug: "new-slug"})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Title != "New Title" || updated.Slug != "new-slug" {
		t.Fatalf("update not applied: %+v", updated)
	}

	if _, err := svc.Update(release.ID, CreateReleaseInput{Slug: "occupied"}); !errors.Is(err, ErrReleaseSlugExists) {
		t.Fatalf("conflicting slug want ErrReleaseSlugExists got %v", err)
	}
	if _, err := svc.Update(9999, CreateReleaseInput{Title: "x"}); !errors.Is(err, ErrReleaseNotFound) {
		t.Fatalf("unknown release want ErrReleaseNotFound got %v", err)
	}
}
