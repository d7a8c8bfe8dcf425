// Package settings exposes the operator override record.
package settings

import (
	"context"
	"time"

	"attendancewizard/internal/model"
)

// Repository is the slice of the store settings needs.
type Repository interface {
	LoadSettings(ctx context.Context, now time.Time) (model.Settings, error)
	SaveSettings(ctx context.Context, s model.Settings) (model.Settings, error)
}

// Service reads and writes the singleton settings record.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a settings service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Get returns the current settings; the first read persists the defaults.
func (s *Service) Get(ctx context.Context) (model.Settings, error) {
	return s.repo.LoadSettings(ctx, s.now().UTC())
}

// SetTimeRestrictionsDisabled toggles the time-window override.
func (s *Service) SetTimeRestrictionsDisabled(ctx context.Context, disabled bool) (model.Settings, error) {
	return s.repo.SaveSettings(ctx, model.Settings{
		DisableTimeRestrictions: disabled,
		UpdatedAt:               s.now().UTC(),
	})
}
