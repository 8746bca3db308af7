// Package pairing shuffles a roster into pairs and assigns topics.
package pairing

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/xiaot623/pairtalk/internal/domain"
)

// Shuffler permutes n elements through swap. *rand.Rand satisfies it.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// Options control a single generation.
type Options struct {
	// SharedTopic, when non-blank, is assigned to every pair.
	SharedTopic string
	Language    string
}

// shuffleAttempts bounds the reshuffles spent avoiding pair key conflicts.
const shuffleAttempts = 16

// Generator produces pairings from rosters.
type Generator struct {
	catalogues Catalogues
	mu         sync.Mutex
	shuffler   Shuffler
}

// NewGenerator creates a generator. A nil shuffler uses a time-seeded source.
func NewGenerator(catalogues Catalogues, shuffler Shuffler) *Generator {
	if shuffler == nil {
		shuffler = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if catalogues == nil {
		catalogues = DefaultCatalogues()
	}
	return &Generator{catalogues: catalogues, shuffler: shuffler}
}

// Catalogue returns the catalogue for lang.
func (g *Generator) Catalogue(lang string) (Catalogue, error) {
	return g.catalogues.Get(lang)
}

// Generate shuffles names and splits them into consecutive pairs. With an odd
// roster the last shuffled name is reported in Unpaired.
func (g *Generator) Generate(names []string, opts Options) (*domain.Pairing, error) {
	if len(names) < 2 {
		return nil, fmt.Errorf("%w: got %d", domain.ErrInsufficientParticipants, len(names))
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateParticipant, n)
		}
		seen[n] = true
	}

	lang := opts.Language
	if lang == "" {
		lang = string(domain.LanguageGerman)
	}
	catalogue, err := g.catalogues.Get(lang)
	if err != nil {
		return nil, err
	}
	shared := strings.TrimSpace(opts.SharedTopic)

	shuffled := append([]string(nil), names...)
	for attempt := 1; ; attempt++ {
		g.mu.Lock()
		g.shuffler.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		g.mu.Unlock()

		pairing := build(shuffled, catalogue, shared, lang)
		key := domain.KeyConflict(pairing.Pairs)
		if key == "" {
			return pairing, nil
		}
		if attempt == shuffleAttempts {
			return nil, fmt.Errorf("%w: %s", domain.ErrPairKeyConflict, key)
		}
	}
}

// build splits shuffled into consecutive pairs.
func build(shuffled []string, catalogue Catalogue, shared, lang string) *domain.Pairing {
	pairing := &domain.Pairing{
		Pairs:       make([]domain.Pair, 0, len(shuffled)/2),
		SharedTopic: shared,
		Language:    lang,
		GeneratedAt: time.Now(),
	}
	for i := 0; i+1 < len(shuffled); i += 2 {
		topic := shared
		if topic == "" {
			topic = catalogue.Topic(i / 2)
		}
		pairing.Pairs = append(pairing.Pairs, domain.Pair{
			Position:     i / 2,
			ParticipantA: shuffled[i],
			ParticipantB: shuffled[i+1],
			Topic:        topic,
			Language:     lang,
		})
	}
	if len(shuffled)%2 == 1 {
		pairing.Unpaired = []string{shuffled[len(shuffled)-1]}
	}
	return pairing
}
