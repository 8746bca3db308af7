package pairing

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/pairtalk/internal/domain"
)

// fixedOrder rearranges elements so that position k holds the element at index order[k].
type fixedOrder []int

func (o fixedOrder) Shuffle(n int, swap func(i, j int)) {
	cur := make([]int, n)
	for i := range cur {
		cur[i] = i
	}
	for k, want := range o {
		for j := k; j < n; j++ {
			if cur[j] == want {
				swap(k, j)
				cur[k], cur[j] = cur[j], cur[k]
				break
			}
		}
	}
}

func roster(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("student%02d", i)
	}
	return names
}

func flatten(p *domain.Pairing) []string {
	var out []string
	for _, pair := range p.Pairs {
		out = append(out, pair.ParticipantA, pair.ParticipantB)
	}
	return append(out, p.Unpaired...)
}

func TestGenerateScenario(t *testing.T) {
	g := NewGenerator(DefaultCatalogues(), fixedOrder{1, 3, 0, 2})

	pairing, err := g.Generate([]string{"Alice", "Bob", "Carol", "Dave"}, Options{})
	require.NoError(t, err)
	require.Len(t, pairing.Pairs, 2)
	assert.Equal(t, "Bob & Dave", pairing.Pairs[0].Name())
	assert.Equal(t, "Umweltschutz", pairing.Pairs[0].Topic)
	assert.Equal(t, "Alice & Carol", pairing.Pairs[1].Name())
	assert.Equal(t, "Technologie", pairing.Pairs[1].Topic)
	assert.Empty(t, pairing.Unpaired)
	assert.Equal(t, "de", pairing.Language)
}

func TestGenerateEvenRosterPartitions(t *testing.T) {
	g := NewGenerator(nil, rand.New(rand.NewSource(7)))
	names := roster(10)

	pairing, err := g.Generate(names, Options{})
	require.NoError(t, err)
	assert.Len(t, pairing.Pairs, 5)
	assert.Empty(t, pairing.Unpaired)
	assert.ElementsMatch(t, names, flatten(pairing))
}

func TestGenerateOddRosterSurfacesUnpaired(t *testing.T) {
	g := NewGenerator(nil, rand.New(rand.NewSource(7)))
	names := roster(7)

	pairing, err := g.Generate(names, Options{})
	require.NoError(t, err)
	assert.Len(t, pairing.Pairs, 3)
	require.Len(t, pairing.Unpaired, 1)
	assert.ElementsMatch(t, names, flatten(pairing))
}

func TestGenerateDeterministicWithSeed(t *testing.T) {
	names := roster(12)
	a, err := NewGenerator(nil, rand.New(rand.NewSource(42))).Generate(names, Options{})
	require.NoError(t, err)
	b, err := NewGenerator(nil, rand.New(rand.NewSource(42))).Generate(names, Options{})
	require.NoError(t, err)
	assert.Equal(t, flatten(a), flatten(b))
}

func TestGenerateUnseededDiffers(t *testing.T) {
	g := NewGenerator(nil, nil)
	names := roster(10)

	a, err := g.Generate(names, Options{})
	require.NoError(t, err)
	b, err := g.Generate(names, Options{})
	require.NoError(t, err)
	assert.NotEqual(t, flatten(a), flatten(b))
	assert.Equal(t, roster(10), names, "input must not be reordered")
}

func TestGenerateSharedTopic(t *testing.T) {
	g := NewGenerator(nil, rand.New(rand.NewSource(1)))

	pairing, err := g.Generate(roster(8), Options{SharedTopic: "  Klimawandel "})
	require.NoError(t, err)
	for _, p := range pairing.Pairs {
		assert.Equal(t, "Klimawandel", p.Topic)
	}
	assert.Equal(t, "Klimawandel", pairing.SharedTopic)

	pairing, err = g.Generate(roster(4), Options{SharedTopic: "   "})
	require.NoError(t, err)
	assert.NotEqual(t, pairing.Pairs[0].Topic, pairing.Pairs[1].Topic)
}

func TestGenerateTopicsWrap(t *testing.T) {
	g := NewGenerator(nil, rand.New(rand.NewSource(3)))

	pairing, err := g.Generate(roster(60), Options{Language: "en"})
	require.NoError(t, err)
	require.Len(t, pairing.Pairs, 30)
	cat, err := g.Catalogue("en")
	require.NoError(t, err)
	assert.Equal(t, cat.Topics[0], pairing.Pairs[8].Topic)
	assert.Equal(t, cat.Topics[29%len(cat.Topics)], pairing.Pairs[29].Topic)
}

func TestGenerateErrors(t *testing.T) {
	g := NewGenerator(nil, nil)

	_, err := g.Generate(nil, Options{})
	assert.ErrorIs(t, err, domain.ErrInsufficientParticipants)
	_, err = g.Generate([]string{"Alice"}, Options{})
	assert.ErrorIs(t, err, domain.ErrInsufficientParticipants)

	_, err = g.Generate([]string{"Alice", "Bob", "Alice"}, Options{})
	assert.ErrorIs(t, err, domain.ErrDuplicateParticipant)

	_, err = g.Generate([]string{"Alice", "Bob"}, Options{Language: "it"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedLanguage)
}

// orders applies one fixedOrder per call and repeats the last one.
type orders struct {
	calls int
	seq   []fixedOrder
}

func (o *orders) Shuffle(n int, swap func(i, j int)) {
	i := o.calls
	if i >= len(o.seq) {
		i = len(o.seq) - 1
	}
	o.seq[i].Shuffle(n, swap)
	o.calls++
}

// Underscores in names let two different pairs map to one key.
var collidingRoster = []string{"Ann_Lee", "Max", "Ann", "Lee_Max"}

func TestGenerateReshufflesOnKeyConflict(t *testing.T) {
	shuffler := &orders{seq: []fixedOrder{{0, 1, 2, 3}, {0, 2, 1, 3}}}
	g := NewGenerator(nil, shuffler)

	pairing, err := g.Generate(collidingRoster, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, shuffler.calls)
	assert.Empty(t, domain.KeyConflict(pairing.Pairs))
	assert.Equal(t, "Ann_Lee & Ann", pairing.Pairs[0].Name())
	assert.Equal(t, "Max & Lee_Max", pairing.Pairs[1].Name())
}

func TestGenerateGivesUpOnKeyConflict(t *testing.T) {
	shuffler := &orders{seq: []fixedOrder{{0, 1, 2, 3}}}
	g := NewGenerator(nil, shuffler)

	_, err := g.Generate(collidingRoster, Options{})
	assert.ErrorIs(t, err, domain.ErrPairKeyConflict)
	assert.Equal(t, shuffleAttempts, shuffler.calls)
}
