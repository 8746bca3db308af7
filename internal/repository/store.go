// Package repository defines the storage interface and implementations.
package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xiaot623/pairtalk/internal/domain"
)

// Store defines the interface for data persistence.
type Store interface {
	// Roster operations
	ReplaceRoster(ctx context.Context, names []string) error
	GetRoster(ctx context.Context) ([]string, error)

	// Pairing operations
	ReplacePairing(ctx context.Context, pairing *domain.Pairing) error
	GetPairing(ctx context.Context) (*domain.Pairing, error)
	ListPairs(ctx context.Context) ([]domain.Pair, error)
	GetPair(ctx context.Context, pairID string) (*domain.Pair, error)
	FindPairByParticipant(ctx context.Context, name string) (*domain.Pair, error)
	UpdatePairTopic(ctx context.Context, pairID, topic string) error
	DeleteAllPairs(ctx context.Context) error

	// Settings operations
	GetSettings(ctx context.Context) (*domain.Settings, error)
	SaveSettings(ctx context.Context, settings *domain.Settings) error

	// Lifecycle
	Close() error
}

// preparePairing assigns ids and positions and enforces that every
// participant belongs to at most one pair and every pair has its own key.
func preparePairing(pairing *domain.Pairing, version int64, now time.Time) error {
	if key := domain.KeyConflict(pairing.Pairs); key != "" {
		return fmt.Errorf("%w: %s", domain.ErrPairKeyConflict, key)
	}
	seen := make(map[string]bool, len(pairing.Pairs)*2)
	for i := range pairing.Pairs {
		p := &pairing.Pairs[i]
		for _, name := range p.Members() {
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("pair %d has an empty participant", i)
			}
			if seen[name] {
				return fmt.Errorf("%w: %s", domain.ErrDuplicateParticipant, name)
			}
			seen[name] = true
		}
		if p.PairID == "" {
			p.PairID = "pair_" + uuid.New().String()[:8]
		}
		p.Version = version
		p.Position = i
		if p.Language == "" {
			p.Language = pairing.Language
		}
		p.CreatedAt = now
	}
	for _, name := range pairing.Unpaired {
		if seen[name] {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateParticipant, name)
		}
	}
	pairing.Version = version
	if pairing.GeneratedAt.IsZero() {
		pairing.GeneratedAt = now
	}
	return nil
}
