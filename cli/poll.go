package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/xiaot623/pairtalk/internal/domain"
)

// PollClient re-renders the whole transcript over HTTP on a fixed interval.
type PollClient struct {
	baseURL  string
	interval time.Duration
	http     *http.Client
	out      io.Writer

	mu        sync.Mutex
	sessionID string
	stop      context.CancelFunc
}

// NewPollClient creates a polling client. A zero interval uses the value the
// server reports when the session opens.
func NewPollClient(server string, interval time.Duration, out io.Writer) *PollClient {
	return &PollClient{
		baseURL:  strings.TrimRight(server, "/"),
		interval: interval,
		http:     &http.Client{Timeout: 10 * time.Second},
		out:      out,
	}
}

// Join opens a session and starts the refresh loop.
func (c *PollClient) Join(ctx context.Context, name string) error {
	var resp struct {
		Session           domain.ChatSession `json:"session"`
		RefreshIntervalMs int64              `json:"refresh_interval_ms"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/sessions", domain.OpenSessionRequest{Name: name}, &resp); err != nil {
		return err
	}
	log.Printf("Joined %s, topic: %s", resp.Session.Pair.Name(), resp.Session.Topic)

	interval := c.interval
	if interval <= 0 {
		interval = time.Duration(resp.RefreshIntervalMs) * time.Millisecond
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.sessionID = resp.Session.SessionID
	c.stop = cancel
	c.mu.Unlock()

	if err := c.Refresh(ctx); err != nil {
		log.Printf("Refresh failed: %v", err)
	}
	go c.loop(loopCtx, interval)
	return nil
}

func (c *PollClient) loop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil && ctx.Err() == nil {
				log.Printf("Refresh failed: %v", err)
			}
		}
	}
}

// Refresh fetches and draws the transcript.
func (c *PollClient) Refresh(ctx context.Context) error {
	var view domain.TranscriptView
	if err := c.do(ctx, http.MethodGet, "/v1/sessions/"+c.session()+"/transcript", nil, &view); err != nil {
		return err
	}
	render(c.out, &view)
	return nil
}

// Send posts a message and redraws immediately.
func (c *PollClient) Send(ctx context.Context, text string) error {
	if err := c.do(ctx, http.MethodPost, "/v1/sessions/"+c.session()+"/messages", domain.SendMessageRequest{Text: text}, nil); err != nil {
		return err
	}
	return c.Refresh(ctx)
}

// Close stops polling and ends the session.
func (c *PollClient) Close() error {
	c.mu.Lock()
	stop, id := c.stop, c.sessionID
	c.mu.Unlock()
	if stop == nil {
		return nil
	}
	stop()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return c.do(ctx, http.MethodDelete, "/v1/sessions/"+id, nil, nil)
}

func (c *PollClient) session() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// apiError is the error body the server returns.
type apiError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (c *PollClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Error == "" {
			return fmt.Errorf("server returned %s", resp.Status)
		}
		if apiErr.Code != "" {
			return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Error)
		}
		return fmt.Errorf("%s", apiErr.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
