package service

import (
	"context"
	"fmt"

	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/xiaot623/pairtalk/internal/domain"
	"github.com/xiaot623/pairtalk/internal/hub"
	"github.com/xiaot623/pairtalk/internal/pairing"
	"github.com/xiaot623/pairtalk/internal/roster"
)

// UploadRoster replaces the stored roster with names and, when generate is
// set, immediately regenerates the pairing from it.
func (s *Service) UploadRoster(ctx context.Context, names []string, generate bool, sharedTopic string) (*domain.UploadRosterResponse, error) {
	names = roster.Clean(names)
	if len(names) == 0 || (generate && len(names) < 2) {
		return nil, errors.Wrapf(domain.ErrInsufficientParticipants, "roster has %d names", len(names))
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			return nil, errors.Wrapf(domain.ErrDuplicateParticipant, "%q", n)
		}
		seen[n] = true
	}

	if err := s.store.ReplaceRoster(ctx, names); err != nil {
		return nil, errors.Wrap(err, "replace roster")
	}
	log.Infof("roster replaced: %d participants", len(names))

	resp := &domain.UploadRosterResponse{Count: len(names), Names: names}
	if !generate {
		return resp, nil
	}
	gen, err := s.GeneratePairing(ctx, &domain.GeneratePairingRequest{SharedTopic: sharedTopic})
	if err != nil {
		return nil, err
	}
	resp.Pairing = gen.Pairing
	return resp, nil
}

// GetRoster returns the stored roster.
func (s *Service) GetRoster(ctx context.Context) ([]string, error) {
	names, err := s.store.GetRoster(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "get roster")
	}
	return names, nil
}

// GeneratePairing shuffles the stored roster into a new pairing and swaps it
// in as a whole.
func (s *Service) GeneratePairing(ctx context.Context, req *domain.GeneratePairingRequest) (*domain.GeneratePairingResponse, error) {
	names, err := s.store.GetRoster(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "get roster")
	}
	settings, err := s.Settings(ctx)
	if err != nil {
		return nil, err
	}

	opts := pairing.Options{SharedTopic: req.SharedTopic, Language: req.Language}
	if opts.SharedTopic == "" {
		opts.SharedTopic = settings.EffectiveSharedTopic()
	}
	if opts.Language == "" {
		opts.Language = settings.Language
	}

	result, err := s.generator.Generate(names, opts)
	if err != nil {
		return nil, errors.Wrap(err, "generate pairing")
	}
	if err := s.store.ReplacePairing(ctx, result); err != nil {
		return nil, errors.Wrap(err, "replace pairing")
	}
	s.hub.Publish(hub.AllTopics, hub.EventPairing)
	log.Infof("pairing v%d generated: %d pairs, %d unpaired", result.Version, len(result.Pairs), len(result.Unpaired))

	resp := &domain.GeneratePairingResponse{Pairing: result}
	for _, name := range result.Unpaired {
		resp.Warnings = append(resp.Warnings, domain.Warning{
			Code:    domain.WarningUnpaired,
			Message: fmt.Sprintf("%s has no partner", name),
		})
	}
	return resp, nil
}

// GetPairing returns the visible pairing, or an empty one if none exists.
func (s *Service) GetPairing(ctx context.Context) (*domain.Pairing, error) {
	p, err := s.store.GetPairing(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "get pairing")
	}
	if p == nil {
		return &domain.Pairing{Pairs: []domain.Pair{}}, nil
	}
	return p, nil
}

// UpdateTopic sets a new topic on one pair.
func (s *Service) UpdateTopic(ctx context.Context, pairID, topic string) (*domain.Pair, error) {
	if err := s.store.UpdatePairTopic(ctx, pairID, topic); err != nil {
		return nil, errors.Wrapf(err, "update topic of %s", pairID)
	}
	pair, err := s.store.GetPair(ctx, pairID)
	if err != nil {
		return nil, errors.Wrapf(err, "get pair %s", pairID)
	}
	s.hub.Publish(pair.Key(), hub.EventPairing)
	return pair, nil
}

// DeleteAllPairs removes the visible pairing. Transcripts are kept.
func (s *Service) DeleteAllPairs(ctx context.Context) error {
	if err := s.store.DeleteAllPairs(ctx); err != nil {
		return errors.Wrap(err, "delete pairs")
	}
	s.hub.Publish(hub.AllTopics, hub.EventPairing)
	log.Info("all pairs deleted")
	return nil
}
