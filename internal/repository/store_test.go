package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/pairtalk/internal/domain"
)

// testStoreContract runs the behaviour every backend must share.
func testStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("RosterMissingThenReplaced", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		_, err := store.GetRoster(ctx)
		assert.ErrorIs(t, err, domain.ErrMissingRoster)

		require.NoError(t, store.ReplaceRoster(ctx, []string{"Alice", "Bob", "Carol"}))
		require.NoError(t, store.ReplaceRoster(ctx, []string{"Dave", "Eve"}))

		names, err := store.GetRoster(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"Dave", "Eve"}, names)
	})

	t.Run("PairingLifecycle", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		got, err := store.GetPairing(ctx)
		require.NoError(t, err)
		assert.Nil(t, got)

		pairing := &domain.Pairing{
			Language: "de",
			Pairs: []domain.Pair{
				{ParticipantA: "Bob", ParticipantB: "Dave", Topic: "Reisen"},
				{ParticipantA: "Alice", ParticipantB: "Carol", Topic: "Sport"},
			},
			Unpaired: []string{"Eve"},
		}
		require.NoError(t, store.ReplacePairing(ctx, pairing))
		assert.NotZero(t, pairing.Version)
		assert.NotEmpty(t, pairing.Pairs[0].PairID)

		got, err = store.GetPairing(ctx)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, pairing.Version, got.Version)
		assert.Equal(t, []string{"Eve"}, got.Unpaired)
		require.Len(t, got.Pairs, 2)
		assert.Equal(t, "Bob & Dave", got.Pairs[0].Name())
		assert.Equal(t, "de", got.Pairs[0].Language)

		pair, err := store.FindPairByParticipant(ctx, "Carol")
		require.NoError(t, err)
		assert.Equal(t, "Alice & Carol", pair.Name())

		_, err = store.FindPairByParticipant(ctx, "Eve")
		assert.ErrorIs(t, err, domain.ErrUnassignedParticipant)

		require.NoError(t, store.UpdatePairTopic(ctx, pair.PairID, "Freundschaft"))
		updated, err := store.GetPair(ctx, pair.PairID)
		require.NoError(t, err)
		assert.Equal(t, "Freundschaft", updated.Topic)

		assert.ErrorIs(t, store.UpdatePairTopic(ctx, "pair_missing", "x"), domain.ErrPairNotFound)

		require.NoError(t, store.DeleteAllPairs(ctx))
		pairs, err := store.ListPairs(ctx)
		require.NoError(t, err)
		assert.Empty(t, pairs)
		_, err = store.FindPairByParticipant(ctx, "Bob")
		assert.ErrorIs(t, err, domain.ErrUnassignedParticipant)
	})

	t.Run("ReplaceSwapsWholeSet", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		first := &domain.Pairing{Pairs: []domain.Pair{{ParticipantA: "A", ParticipantB: "B", Topic: "t1"}}}
		require.NoError(t, store.ReplacePairing(ctx, first))
		oldID := first.Pairs[0].PairID

		second := &domain.Pairing{Pairs: []domain.Pair{{ParticipantA: "A", ParticipantB: "C", Topic: "t2"}}}
		require.NoError(t, store.ReplacePairing(ctx, second))
		assert.Greater(t, second.Version, first.Version)

		_, err := store.GetPair(ctx, oldID)
		assert.ErrorIs(t, err, domain.ErrPairNotFound)

		pair, err := store.FindPairByParticipant(ctx, "A")
		require.NoError(t, err)
		assert.Equal(t, "C", pair.ParticipantB)

		_, err = store.FindPairByParticipant(ctx, "B")
		assert.ErrorIs(t, err, domain.ErrUnassignedParticipant)
	})

	t.Run("RejectsSharedKey", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		good := &domain.Pairing{Pairs: []domain.Pair{{ParticipantA: "A", ParticipantB: "B", Topic: "t"}}}
		require.NoError(t, store.ReplacePairing(ctx, good))

		bad := &domain.Pairing{Pairs: []domain.Pair{
			{ParticipantA: "Ann", ParticipantB: "Lee_Max", Topic: "t"},
			{ParticipantA: "Ann_Lee", ParticipantB: "Max", Topic: "t"},
		}}
		err := store.ReplacePairing(ctx, bad)
		assert.True(t, errors.Is(err, domain.ErrPairKeyConflict), "got %v", err)

		_, err = store.FindPairByParticipant(ctx, "Ann")
		assert.ErrorIs(t, err, domain.ErrUnassignedParticipant)
		pairs, err := store.ListPairs(ctx)
		require.NoError(t, err)
		require.Len(t, pairs, 1)
		assert.Equal(t, "A & B", pairs[0].Name())
	})

	t.Run("RejectsDuplicateMembership", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		good := &domain.Pairing{Pairs: []domain.Pair{{ParticipantA: "A", ParticipantB: "B", Topic: "t"}}}
		require.NoError(t, store.ReplacePairing(ctx, good))

		bad := &domain.Pairing{Pairs: []domain.Pair{
			{ParticipantA: "A", ParticipantB: "B", Topic: "t"},
			{ParticipantA: "B", ParticipantB: "C", Topic: "t"},
		}}
		err := store.ReplacePairing(ctx, bad)
		assert.True(t, errors.Is(err, domain.ErrDuplicateParticipant), "got %v", err)

		pairs, err := store.ListPairs(ctx)
		require.NoError(t, err)
		require.Len(t, pairs, 1)
		assert.Equal(t, "A & B", pairs[0].Name())
	})

	t.Run("ReadersNeverSeeEmptyPairing", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		require.NoError(t, store.ReplacePairing(ctx, &domain.Pairing{Pairs: []domain.Pair{{ParticipantA: "A", ParticipantB: "B", Topic: "t"}}}))

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				_ = store.ReplacePairing(ctx, &domain.Pairing{Pairs: []domain.Pair{{ParticipantA: "A", ParticipantB: "B", Topic: "t"}}})
			}
		}()
		for i := 0; i < 50; i++ {
			pairs, err := store.ListPairs(ctx)
			require.NoError(t, err)
			assert.Len(t, pairs, 1)
		}
		wg.Wait()
	})

	t.Run("Settings", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		got, err := store.GetSettings(ctx)
		require.NoError(t, err)
		assert.Nil(t, got)

		want := &domain.Settings{Language: "en", SharedTopicEnabled: true, SharedTopic: "Space", MaxWordsPerMessage: 20, MaxCharsPerRefresh: 300}
		require.NoError(t, store.SaveSettings(ctx, want))
		got, err = store.GetSettings(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})
}
