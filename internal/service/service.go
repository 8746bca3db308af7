// Package service implements the roster, pairing, chat and export operations.
package service

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/xiaot623/pairtalk/internal/config"
	"github.com/xiaot623/pairtalk/internal/domain"
	"github.com/xiaot623/pairtalk/internal/export"
	"github.com/xiaot623/pairtalk/internal/hub"
	"github.com/xiaot623/pairtalk/internal/pairing"
	"github.com/xiaot623/pairtalk/internal/policy"
	"github.com/xiaot623/pairtalk/internal/repository"
	"github.com/xiaot623/pairtalk/internal/transcript"
)

type Service struct {
	store        repository.Store
	generator    *pairing.Generator
	transcripts  *transcript.Store
	policyEngine *policy.Engine
	hub          *hub.Hub
	exporter     *export.Exporter
	config       *config.Config
	sessions     *sessionRegistry
	now          func() time.Time
}

func New(store repository.Store, generator *pairing.Generator, transcripts *transcript.Store, policyEngine *policy.Engine, h *hub.Hub, exporter *export.Exporter, cfg *config.Config) *Service {
	return &Service{
		store:        store,
		generator:    generator,
		transcripts:  transcripts,
		policyEngine: policyEngine,
		hub:          h,
		exporter:     exporter,
		config:       cfg,
		sessions:     newSessionRegistry(),
		now:          time.Now,
	}
}

// SetClock replaces the clock used to stamp transcript lines.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Hub returns the event hub sessions subscribe to.
func (s *Service) Hub() *hub.Hub {
	return s.hub
}

// RefreshInterval is the polling interval advertised to clients.
func (s *Service) RefreshInterval() time.Duration {
	return s.config.RefreshInterval()
}

// Settings returns the saved settings, or the configured defaults.
func (s *Service) Settings(ctx context.Context) (domain.Settings, error) {
	saved, err := s.store.GetSettings(ctx)
	if err != nil {
		return domain.Settings{}, errors.Wrap(err, "get settings")
	}
	if saved == nil {
		return s.config.DefaultSettings(), nil
	}
	return *saved, nil
}

// UpdateSettings validates and stores new settings.
func (s *Service) UpdateSettings(ctx context.Context, req *domain.UpdateSettingsRequest) (domain.Settings, error) {
	if !domain.ValidLanguage(req.Language) {
		return domain.Settings{}, errors.Wrapf(domain.ErrUnsupportedLanguage, "language %q", req.Language)
	}
	if _, err := s.generator.Catalogue(req.Language); err != nil {
		return domain.Settings{}, errors.Wrapf(err, "language %q", req.Language)
	}
	settings := domain.Settings{
		Language:           req.Language,
		SharedTopicEnabled: req.SharedTopicEnabled,
		SharedTopic:        req.SharedTopic,
		MaxWordsPerMessage: req.MaxWordsPerMessage,
		MaxCharsPerRefresh: req.MaxCharsPerRefresh,
	}
	if err := s.store.SaveSettings(ctx, &settings); err != nil {
		return domain.Settings{}, errors.Wrap(err, "save settings")
	}
	return settings, nil
}

// SessionCount returns the number of open chat sessions.
func (s *Service) SessionCount() int {
	return s.sessions.count()
}
