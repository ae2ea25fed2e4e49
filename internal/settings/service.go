// Package settings serves the runtime settings record, cached in memory and
// refreshed on every update.
package settings

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/kenyawebs/Tana-Delta/internal/apperr"
	"github.com/kenyawebs/Tana-Delta/internal/models"
	"github.com/kenyawebs/Tana-Delta/internal/repository"
)

type Service struct {
	repo     repository.Settings
	validate *validator.Validate

	mu     sync.RWMutex
	cached *models.Settings
}

func NewService(repo repository.Settings) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

func (s *Service) Get(ctx context.Context) (models.Settings, error) {
	s.mu.RLock()
	if s.cached != nil {
		out := *s.cached
		s.mu.RUnlock()
		return out, nil
	}
	s.mu.RUnlock()

	loaded, err := s.repo.Get(ctx)
	if err != nil {
		return models.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	s.mu.Lock()
	s.cached = &loaded
	s.mu.Unlock()
	return loaded, nil
}

// Update validates and stores next, replacing the cached copy.
func (s *Service) Update(ctx context.Context, next models.Settings) (models.Settings, error) {
	if err := s.validate.Struct(next); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return models.Settings{}, apperr.Invalid(fe.Field(), "failed %s validation", fe.Tag())
		}
		return models.Settings{}, apperr.Invalid("settings", "%v", err)
	}
	if err := s.repo.Save(ctx, next); err != nil {
		return models.Settings{}, err
	}
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
	return s.Get(ctx)
}
