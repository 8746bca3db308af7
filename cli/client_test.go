package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	handler "github.com/xiaot623/pairtalk/internal/transport/http"
	"github.com/xiaot623/pairtalk/internal/transport/ws"
	"github.com/xiaot623/pairtalk/tests/helpers"
)

type identity struct{}

func (identity) Shuffle(int, func(i, j int)) {}

// syncBuffer lets the test read what the client goroutines draw.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	env := helpers.NewTestService(t, identity{})
	_, err := env.Service.UploadRoster(context.Background(), []string{"Alice", "Bob"}, true, "")
	require.NoError(t, err)
	srv := httptest.NewServer(handler.NewServer(env.Service, ws.NewServer(env.Config, env.Service)))
	t.Cleanup(srv.Close)
	return srv
}

func TestWSURL(t *testing.T) {
	assert.Equal(t, "ws://localhost:8080/ws", wsURL("http://localhost:8080"))
	assert.Equal(t, "wss://school.example/ws", wsURL("https://school.example/"))
	assert.Equal(t, "ws://localhost:8080/ws", wsURL("localhost:8080"))
	assert.Equal(t, "ws://localhost:8080/ws", wsURL("ws://localhost:8080/ws"))
}

func TestPollClient(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()

	var aliceOut, bobOut syncBuffer
	alice := NewPollClient(srv.URL, 50*time.Millisecond, &aliceOut)
	bob := NewPollClient(srv.URL, 50*time.Millisecond, &bobOut)
	defer alice.Close()
	defer bob.Close()

	require.NoError(t, alice.Join(ctx, "Alice"))
	require.NoError(t, bob.Join(ctx, "Bob"))
	assert.Contains(t, aliceOut.String(), "Alice & Bob")

	require.NoError(t, alice.Send(ctx, "Hallo Bob"))
	assert.Contains(t, aliceOut.String(), "\n[10:15] Alice: Hallo Bob\n")

	assert.Eventually(t, func() bool {
		return bytes.Contains([]byte(bobOut.String()), []byte(" [10:15] Alice: Hallo Bob\n"))
	}, 2*time.Second, 20*time.Millisecond)

	err := alice.Send(ctx, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty_message")
}

func TestPollClientUnknownName(t *testing.T) {
	srv := newServer(t)
	c := NewPollClient(srv.URL, time.Second, &syncBuffer{})
	err := c.Join(context.Background(), "Zed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unassigned_participant")
	assert.NoError(t, c.Close())
}

func TestWSClient(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()

	var out syncBuffer
	c, err := DialWS(srv.URL, &out)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Join(ctx, "Bob"))
	require.NoError(t, c.Send(ctx, "Servus"))
	assert.Eventually(t, func() bool {
		return bytes.Contains([]byte(out.String()), []byte("\n[10:15] Bob: Servus\n"))
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, c.Send(ctx, strings.Repeat("wort ", 51)))
	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "message exceeds the word limit")
	}, 2*time.Second, 20*time.Millisecond)
}

func TestWSClientJoinError(t *testing.T) {
	srv := newServer(t)
	c, err := DialWS(srv.URL, &syncBuffer{})
	require.NoError(t, err)
	defer c.Close()

	err = c.Join(context.Background(), "Zed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unassigned_participant")
}
