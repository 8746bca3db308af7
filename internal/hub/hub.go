// Package hub fans transcript change events out to subscribers.
package hub

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
)

// Event kinds.
const (
	EventTranscript = "transcript"
	EventPairing    = "pairing"
)

// Event tells subscribers that the state behind Topic changed.
type Event struct {
	Topic string    `json:"topic"`
	Kind  string    `json:"kind"`
	At    time.Time `json:"at"`
}

// AllTopics subscribers receive every event; events published on AllTopics
// reach every subscriber.
const AllTopics = "*"

// Subscription receives events for one topic. C holds at most one pending
// event: subscribers re-read the whole state, so later events coalesce.
type Subscription struct {
	ID    string
	Topic string
	C     chan Event
}

// Hub manages subscriptions keyed by topic (a pair key).
type Hub struct {
	// Subscriptions indexed by subscription ID
	subs map[string]*Subscription

	// Topics maps topic to set of subscription IDs
	topics map[string]map[string]bool

	register   chan *Subscription
	unregister chan *Subscription
	broadcast  chan Event
	done       chan struct{}

	mu sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		subs:       make(map[string]*Subscription),
		topics:     make(map[string]map[string]bool),
		register:   make(chan *Subscription),
		unregister: make(chan *Subscription),
		broadcast:  make(chan Event, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop and returns when ctx is done. Remaining
// subscriptions are closed on exit.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		h.mu.Lock()
		for id, sub := range h.subs {
			close(sub.C)
			delete(h.subs, id)
		}
		h.topics = make(map[string]map[string]bool)
		h.mu.Unlock()
	}()
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			return

		case sub := <-h.register:
			h.mu.Lock()
			h.subs[sub.ID] = sub
			if h.topics[sub.Topic] == nil {
				h.topics[sub.Topic] = make(map[string]bool)
			}
			h.topics[sub.Topic][sub.ID] = true
			h.mu.Unlock()
			log.Debugf("subscription registered: %s (topic: %s)", sub.ID, sub.Topic)

		case sub := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.subs[sub.ID]; ok {
				delete(h.subs, sub.ID)
				delete(h.topics[sub.Topic], sub.ID)
				if len(h.topics[sub.Topic]) == 0 {
					delete(h.topics, sub.Topic)
				}
				close(sub.C)
			}
			h.mu.Unlock()
			log.Debugf("subscription unregistered: %s", sub.ID)

		case ev := <-h.broadcast:
			h.mu.RLock()
			if ev.Topic == AllTopics {
				for _, sub := range h.subs {
					notify(sub, ev)
				}
			} else {
				h.deliver(ev, h.topics[ev.Topic])
				h.deliver(ev, h.topics[AllTopics])
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) deliver(ev Event, ids map[string]bool) {
	for id := range ids {
		if sub, ok := h.subs[id]; ok {
			notify(sub, ev)
		}
	}
}

func notify(sub *Subscription, ev Event) {
	select {
	case sub.C <- ev:
	default:
		// An undelivered event is already pending.
	}
}

// Subscribe registers a subscription for topic. It returns nil once the hub
// has stopped.
func (h *Hub) Subscribe(topic string) *Subscription {
	sub := &Subscription{
		ID:    uuid.New().String(),
		Topic: topic,
		C:     make(chan Event, 1),
	}
	select {
	case h.register <- sub:
		return sub
	case <-h.done:
		return nil
	}
}

// Unsubscribe removes sub and closes its channel.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	select {
	case h.unregister <- sub:
	case <-h.done:
	}
}

// Publish notifies the subscribers of topic.
func (h *Hub) Publish(topic, kind string) {
	ev := Event{Topic: topic, Kind: kind, At: time.Now()}
	select {
	case h.broadcast <- ev:
	case <-h.done:
	}
}

// SubscriberCount returns the number of subscriptions on topic.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// TopicCount returns the number of topics with at least one subscriber.
func (h *Hub) TopicCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics)
}
