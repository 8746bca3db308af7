// Package domain defines the core domain models for pairtalk.
package domain

import (
	"strings"
	"time"
)

// PairSeparator joins the two participant names of a pair for display.
const PairSeparator = " & "

// Pair represents two participants assigned to talk about a topic.
type Pair struct {
	PairID       string    `json:"pair_id" db:"pair_id"`
	Version      int64     `json:"version" db:"version"`
	Position     int       `json:"position" db:"position"`
	ParticipantA string    `json:"participant_a" db:"participant_a"`
	ParticipantB string    `json:"participant_b" db:"participant_b"`
	Topic        string    `json:"topic" db:"topic"`
	Language     string    `json:"language,omitempty" db:"language"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Name renders the pair as "A & B".
func (p Pair) Name() string {
	return p.ParticipantA + PairSeparator + p.ParticipantB
}

// Key is the file stem used for the pair's transcript and exported document.
func (p Pair) Key() string {
	key := strings.ReplaceAll(p.Name(), PairSeparator, "_")
	key = strings.NewReplacer("/", "", "\\", "", "\x00", "").Replace(key)
	key = strings.TrimLeft(key, ".")
	if key == "" {
		return p.PairID
	}
	return key
}

// KeyConflict returns the first key shared by two of pairs, or "".
// Names may contain the separator, so "A_B & C" and "A & B_C" collide.
func KeyConflict(pairs []Pair) string {
	seen := make(map[string]bool, len(pairs))
	for _, p := range pairs {
		key := p.Key()
		if seen[key] {
			return key
		}
		seen[key] = true
	}
	return ""
}

// Has reports whether name is one of the two members.
func (p Pair) Has(name string) bool {
	return p.ParticipantA == name || p.ParticipantB == name
}

// Partner returns the other member of the pair, or "" if name is not a member.
func (p Pair) Partner(name string) string {
	switch name {
	case p.ParticipantA:
		return p.ParticipantB
	case p.ParticipantB:
		return p.ParticipantA
	}
	return ""
}

// Members returns both participant names.
func (p Pair) Members() []string {
	return []string{p.ParticipantA, p.ParticipantB}
}

// Pairing is one generated set of pairs. Only a single pairing is visible at a time.
type Pairing struct {
	Version     int64     `json:"version"`
	Pairs       []Pair    `json:"pairs"`
	Unpaired    []string  `json:"unpaired,omitempty"`
	SharedTopic string    `json:"shared_topic,omitempty"`
	Language    string    `json:"language"`
	GeneratedAt time.Time `json:"generated_at"`
}

// ChatSession is the per-connection state of one participant in a chat.
type ChatSession struct {
	SessionID         string    `json:"session_id"`
	Participant       string    `json:"participant"`
	Partner           string    `json:"partner"`
	Pair              Pair      `json:"pair"`
	Topic             string    `json:"topic"`
	LastObservedChars int       `json:"-"`
	CreatedAt         time.Time `json:"created_at"`
}

// Settings holds the teacher-controlled options.
type Settings struct {
	Language           string `json:"language"`
	SharedTopicEnabled bool   `json:"shared_topic_enabled"`
	SharedTopic        string `json:"shared_topic,omitempty"`
	MaxWordsPerMessage int    `json:"max_words_per_message"`
	MaxCharsPerRefresh int    `json:"max_chars_per_refresh"`
}

// EffectiveSharedTopic returns the override topic, or "" when none applies.
func (s Settings) EffectiveSharedTopic() string {
	if !s.SharedTopicEnabled {
		return ""
	}
	return strings.TrimSpace(s.SharedTopic)
}

// Document is a rendered export.
type Document struct {
	Name  string   `json:"name"`
	Path  string   `json:"-"`
	Lines []string `json:"lines"`
}

// BatchFailure records one item a bulk document operation could not process.
type BatchFailure struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// BatchResult is the outcome of a best-effort bulk document operation.
type BatchResult struct {
	Output    string         `json:"output,omitempty"`
	Processed []string       `json:"processed"`
	Failed    []BatchFailure `json:"failed,omitempty"`
}
