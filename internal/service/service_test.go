package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/pairtalk/internal/domain"
	"github.com/xiaot623/pairtalk/tests/helpers"
)

// identity keeps the roster order so pairs are (0,1), (2,3), ...
type identity struct{}

func (identity) Shuffle(int, func(i, j int)) {}

var classroom = []string{"Alice", "Bob", "Carol", "Dave"}

func setup(t *testing.T, names ...string) *helpers.TestEnv {
	t.Helper()
	env := helpers.NewTestService(t, identity{})
	if len(names) > 0 {
		_, err := env.Service.UploadRoster(context.Background(), names, true, "")
		require.NoError(t, err)
	}
	return env
}

func TestUploadRosterGeneratesPairing(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	resp, err := env.Service.UploadRoster(ctx, []string{" Alice", "Bob ", "", "Carol", "Dave"}, true, "")
	require.NoError(t, err)
	assert.Equal(t, 4, resp.Count)
	assert.Equal(t, classroom, resp.Names)
	require.NotNil(t, resp.Pairing)
	require.Len(t, resp.Pairing.Pairs, 2)
	assert.Equal(t, "Alice & Bob", resp.Pairing.Pairs[0].Name())
	assert.Equal(t, "Umweltschutz", resp.Pairing.Pairs[0].Topic)
	assert.Equal(t, "Carol & Dave", resp.Pairing.Pairs[1].Name())
	assert.Equal(t, "Technologie", resp.Pairing.Pairs[1].Topic)

	stored, err := env.Service.GetPairing(ctx)
	require.NoError(t, err)
	assert.Equal(t, resp.Pairing.Version, stored.Version)
}

func TestUploadRosterErrors(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	_, err := env.Service.UploadRoster(ctx, []string{"Alice", "Bob", "Alice"}, true, "")
	assert.ErrorIs(t, err, domain.ErrDuplicateParticipant)

	_, err = env.Service.UploadRoster(ctx, []string{"Alice"}, true, "")
	assert.ErrorIs(t, err, domain.ErrInsufficientParticipants)

	_, err = env.Service.UploadRoster(ctx, []string{"  "}, false, "")
	assert.ErrorIs(t, err, domain.ErrInsufficientParticipants)

	_, err = env.Service.GetRoster(ctx)
	assert.ErrorIs(t, err, domain.ErrMissingRoster)
}

func TestGeneratePairingOddRosterWarns(t *testing.T) {
	env := setup(t, "Alice", "Bob", "Carol")

	resp, err := env.Service.GeneratePairing(context.Background(), &domain.GeneratePairingRequest{SharedTopic: "Mars"})
	require.NoError(t, err)
	require.Len(t, resp.Pairing.Pairs, 1)
	assert.Equal(t, "Mars", resp.Pairing.Pairs[0].Topic)
	assert.Equal(t, []string{"Carol"}, resp.Pairing.Unpaired)
	require.Len(t, resp.Warnings, 1)
	assert.Equal(t, domain.WarningUnpaired, resp.Warnings[0].Code)

	_, err = env.Service.OpenSession(context.Background(), "Carol")
	assert.ErrorIs(t, err, domain.ErrUnassignedParticipant)
}

func TestGeneratePairingUsesSettings(t *testing.T) {
	env := setup(t, classroom...)
	ctx := context.Background()

	_, err := env.Service.UpdateSettings(ctx, &domain.UpdateSettingsRequest{
		Language:           "en",
		SharedTopicEnabled: true,
		SharedTopic:        "Robots",
		MaxWordsPerMessage: 10,
		MaxCharsPerRefresh: 100,
	})
	require.NoError(t, err)

	resp, err := env.Service.GeneratePairing(ctx, &domain.GeneratePairingRequest{})
	require.NoError(t, err)
	assert.Equal(t, "en", resp.Pairing.Language)
	for _, p := range resp.Pairing.Pairs {
		assert.Equal(t, "Robots", p.Topic)
	}
}

func TestGeneratePairingWithoutRoster(t *testing.T) {
	env := setup(t)
	_, err := env.Service.GeneratePairing(context.Background(), &domain.GeneratePairingRequest{})
	assert.ErrorIs(t, err, domain.ErrMissingRoster)
}

func TestSettingsDefaultsAndValidation(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	settings, err := env.Service.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "de", settings.Language)
	assert.Equal(t, 50, settings.MaxWordsPerMessage)

	_, err = env.Service.UpdateSettings(ctx, &domain.UpdateSettingsRequest{Language: "it", MaxWordsPerMessage: 1, MaxCharsPerRefresh: 1})
	assert.ErrorIs(t, err, domain.ErrUnsupportedLanguage)
}

func TestOpenSessionErrors(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	_, err := env.Service.OpenSession(ctx, "Alice")
	assert.ErrorIs(t, err, domain.ErrMissingRoster)

	_, err = env.Service.UploadRoster(ctx, classroom, false, "")
	require.NoError(t, err)
	_, err = env.Service.OpenSession(ctx, "Alice")
	assert.ErrorIs(t, err, domain.ErrUnassignedParticipant)

	_, err = env.Service.GeneratePairing(ctx, &domain.GeneratePairingRequest{})
	require.NoError(t, err)
	_, err = env.Service.OpenSession(ctx, "Zoe")
	assert.ErrorIs(t, err, domain.ErrUnassignedParticipant)
}

func TestChatScenario(t *testing.T) {
	env := setup(t, classroom...)
	ctx := context.Background()

	alice, err := env.Service.OpenSession(ctx, "Alice")
	require.NoError(t, err)
	assert.Equal(t, "Bob", alice.Partner)
	assert.Equal(t, "Umweltschutz", alice.Topic)
	bob, err := env.Service.OpenSession(ctx, "Bob")
	require.NoError(t, err)

	_, err = env.Service.SendMessage(ctx, alice.SessionID, "hi")
	require.NoError(t, err)
	resp, err := env.Service.SendMessage(ctx, bob.SessionID, "hello")
	require.NoError(t, err)
	assert.Equal(t, 2, resp.LineCount)

	view, err := env.Service.Render(ctx, alice.SessionID)
	require.NoError(t, err)
	require.Len(t, view.Lines, 2)
	assert.Equal(t, "[10:15] Alice: hi", view.Lines[0].Raw)
	assert.True(t, view.Lines[0].Own)
	assert.Equal(t, domain.SideLeft, view.Lines[0].Side)
	assert.Equal(t, "[10:15] Bob: hello", view.Lines[1].Raw)
	assert.False(t, view.Lines[1].Own)
	assert.Equal(t, domain.SideRight, view.Lines[1].Side)
	assert.Equal(t, "Alice & Bob", view.PairName)
	assert.Equal(t, int64(200), view.RefreshIntervalMs)

	lines, err := env.Transcripts.Lines("Alice_Bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"[10:15] Alice: hi", "[10:15] Bob: hello"}, lines)
}

func TestSendMessageRejections(t *testing.T) {
	env := setup(t, classroom...)
	ctx := context.Background()
	alice, err := env.Service.OpenSession(ctx, "Alice")
	require.NoError(t, err)

	_, err = env.Service.SendMessage(ctx, alice.SessionID, strings.Repeat("word ", 51))
	assert.ErrorIs(t, err, domain.ErrMessageTooLong)
	_, err = env.Service.SendMessage(ctx, alice.SessionID, "   ")
	assert.ErrorIs(t, err, domain.ErrEmptyMessage)
	_, err = env.Service.SendMessage(ctx, "chat_missing", "hi")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	lines, err := env.Transcripts.Lines("Alice_Bob")
	require.NoError(t, err)
	assert.Empty(t, lines)

	_, err = env.Service.SendMessage(ctx, alice.SessionID, strings.TrimSpace(strings.Repeat("word ", 50)))
	assert.NoError(t, err)
}

func TestUploadRosterRejectsSharedTranscriptKey(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	_, err := env.Service.UploadRoster(ctx, []string{"Ann_Lee", "Max", "Ann", "Lee_Max"}, true, "")
	assert.ErrorIs(t, err, domain.ErrPairKeyConflict)
	assert.Equal(t, domain.CodePairKeyConflict, domain.ErrorCode(err))

	_, err = env.Service.OpenSession(ctx, "Ann")
	assert.ErrorIs(t, err, domain.ErrUnassignedParticipant)
}

func TestRenderVolumeWarning(t *testing.T) {
	env := setup(t, classroom...)
	ctx := context.Background()
	_, err := env.Service.UpdateSettings(ctx, &domain.UpdateSettingsRequest{
		Language: "de", MaxWordsPerMessage: 50, MaxCharsPerRefresh: 30,
	})
	require.NoError(t, err)

	alice, err := env.Service.OpenSession(ctx, "Alice")
	require.NoError(t, err)
	bob, err := env.Service.OpenSession(ctx, "Bob")
	require.NoError(t, err)

	_, err = env.Service.SendMessage(ctx, bob.SessionID, "this message is clearly longer than thirty characters")
	require.NoError(t, err)

	view, err := env.Service.Render(ctx, bob.SessionID)
	require.NoError(t, err)
	require.Len(t, view.Warnings, 1, "own messages count towards the volume")
	assert.Equal(t, domain.WarningVolume, view.Warnings[0].Code)

	view, err = env.Service.Render(ctx, alice.SessionID)
	require.NoError(t, err)
	require.Len(t, view.Warnings, 1)
	assert.Equal(t, domain.WarningVolume, view.Warnings[0].Code)

	view, err = env.Service.Render(ctx, alice.SessionID)
	require.NoError(t, err)
	assert.Empty(t, view.Warnings)
}

func TestRenderVolumeWarningForFlooding(t *testing.T) {
	env := setup(t, classroom...)
	ctx := context.Background()
	_, err := env.Service.UpdateSettings(ctx, &domain.UpdateSettingsRequest{
		Language: "de", MaxWordsPerMessage: 50, MaxCharsPerRefresh: 30,
	})
	require.NoError(t, err)

	alice, err := env.Service.OpenSession(ctx, "Alice")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err = env.Service.SendMessage(ctx, alice.SessionID, "one two three four five six seven eight nine ten")
		require.NoError(t, err)
	}

	view, err := env.Service.Render(ctx, alice.SessionID)
	require.NoError(t, err)
	require.Len(t, view.Warnings, 1)
	assert.Equal(t, domain.WarningVolume, view.Warnings[0].Code)
	assert.Greater(t, view.CharCount, 30)
}

func TestSessionFollowsTopicChange(t *testing.T) {
	env := setup(t, classroom...)
	ctx := context.Background()
	alice, err := env.Service.OpenSession(ctx, "Alice")
	require.NoError(t, err)

	_, err = env.Service.UpdateTopic(ctx, alice.Pair.PairID, "Weltraum")
	require.NoError(t, err)
	_, err = env.Service.UpdateTopic(ctx, "pair_missing", "x")
	assert.ErrorIs(t, err, domain.ErrPairNotFound)

	view, err := env.Service.Render(ctx, alice.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "Weltraum", view.Topic)

	require.NoError(t, env.Service.DeleteAllPairs(ctx))
	_, err = env.Service.Render(ctx, alice.SessionID)
	assert.ErrorIs(t, err, domain.ErrUnassignedParticipant)
}

func TestCloseSession(t *testing.T) {
	env := setup(t, classroom...)
	ctx := context.Background()
	alice, err := env.Service.OpenSession(ctx, "Alice")
	require.NoError(t, err)
	assert.Equal(t, 1, env.Service.SessionCount())

	require.NoError(t, env.Service.CloseSession(alice.SessionID))
	assert.ErrorIs(t, env.Service.CloseSession(alice.SessionID), domain.ErrSessionNotFound)
	_, err = env.Service.Render(ctx, alice.SessionID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestWaitForUpdateWakesOnMessage(t *testing.T) {
	env := setup(t, classroom...)
	env.Config.RefreshIntervalMs = 5000
	ctx := context.Background()
	alice, err := env.Service.OpenSession(ctx, "Alice")
	require.NoError(t, err)
	bob, err := env.Service.OpenSession(ctx, "Bob")
	require.NoError(t, err)

	done := make(chan *domain.TranscriptView, 1)
	go func() {
		view, err := env.Service.WaitForUpdate(ctx, alice.SessionID, 0)
		assert.NoError(t, err)
		done <- view
	}()

	time.Sleep(50 * time.Millisecond)
	_, err = env.Service.SendMessage(ctx, bob.SessionID, "ping")
	require.NoError(t, err)

	select {
	case view := <-done:
		require.NotNil(t, view)
		require.Len(t, view.Lines, 1)
		assert.Equal(t, "ping", view.Lines[0].Text)
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForUpdate did not wake up")
	}
}

func TestWaitForUpdateTimesOut(t *testing.T) {
	env := setup(t, classroom...)
	ctx := context.Background()
	alice, err := env.Service.OpenSession(ctx, "Alice")
	require.NoError(t, err)

	start := time.Now()
	view, err := env.Service.WaitForUpdate(ctx, alice.SessionID, 0)
	require.NoError(t, err)
	assert.Empty(t, view.Lines)
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestExportAndBatchOperations(t *testing.T) {
	env := setup(t, classroom...)
	ctx := context.Background()
	alice, err := env.Service.OpenSession(ctx, "Alice")
	require.NoError(t, err)

	_, err = env.Service.ExportSession(ctx, alice.SessionID)
	assert.ErrorIs(t, err, domain.ErrNoTranscript)

	_, err = env.Service.SendMessage(ctx, alice.SessionID, "hi")
	require.NoError(t, err)
	doc, err := env.Service.ExportSession(ctx, alice.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "Alice_Bob.pdf", doc.Name)
	assert.Len(t, doc.Lines, 3)

	pairing, err := env.Service.GetPairing(ctx)
	require.NoError(t, err)
	_, err = env.Service.ExportPair(ctx, pairing.Pairs[1].PairID)
	assert.ErrorIs(t, err, domain.ErrNoTranscript)

	names, err := env.Service.ListExports()
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice_Bob.pdf"}, names)

	bundle, err := env.Service.BundleExports()
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice_Bob.pdf"}, bundle.Processed)
	_, err = env.Service.OpenExport(bundle.Output)
	assert.NoError(t, err)

	archived, err := env.Service.ArchiveExports()
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice_Bob.pdf"}, archived.Processed)
	names, err = env.Service.ListExports()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestDeleteTranscript(t *testing.T) {
	env := setup(t, classroom...)
	ctx := context.Background()
	alice, err := env.Service.OpenSession(ctx, "Alice")
	require.NoError(t, err)
	_, err = env.Service.SendMessage(ctx, alice.SessionID, "hi")
	require.NoError(t, err)

	require.NoError(t, env.Service.DeleteTranscript(ctx, alice.Pair.PairID))
	view, err := env.Service.Render(ctx, alice.SessionID)
	require.NoError(t, err)
	assert.Empty(t, view.Lines)

	assert.ErrorIs(t, env.Service.DeleteTranscript(ctx, "pair_missing"), domain.ErrPairNotFound)
}
