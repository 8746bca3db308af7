package domain

import (
	"sort"
	"strings"
	"time"
)

// TimeLayout is the minute-resolution timestamp written in front of each line.
const TimeLayout = "15:04"

// TranscriptLine is one message of a pair's conversation.
type TranscriptLine struct {
	Time   string `json:"time"`
	Author string `json:"author"`
	Text   string `json:"text"`
}

// NewTranscriptLine stamps a message with the given clock reading.
func NewTranscriptLine(at time.Time, author, text string) TranscriptLine {
	return TranscriptLine{Time: at.Format(TimeLayout), Author: author, Text: text}
}

// String renders the stored form "[HH:MM] name: message".
func (l TranscriptLine) String() string {
	if l.Time == "" && l.Author == "" {
		return l.Text
	}
	return "[" + l.Time + "] " + l.Author + ": " + l.Text
}

// ParseTranscriptLine splits a stored line. The author is matched exactly
// against members (longest name first) so that a name contained in another
// name, or in the message body, is not mistaken for the author. Lines written
// by someone outside members fall back to the text before the first ": ".
func ParseTranscriptLine(raw string, members []string) TranscriptLine {
	raw = strings.TrimRight(raw, "\r\n")
	if !strings.HasPrefix(raw, "[") {
		return TranscriptLine{Text: raw}
	}
	end := strings.Index(raw, "] ")
	if end < 0 {
		return TranscriptLine{Text: raw}
	}
	line := TranscriptLine{Time: raw[1:end]}
	rest := raw[end+2:]

	sorted := append([]string(nil), members...)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	for _, m := range sorted {
		if m != "" && strings.HasPrefix(rest, m+": ") {
			line.Author = m
			line.Text = rest[len(m)+2:]
			return line
		}
	}

	if idx := strings.Index(rest, ": "); idx >= 0 {
		line.Author = rest[:idx]
		line.Text = rest[idx+2:]
		return line
	}
	line.Text = rest
	return line
}

// ViewLine is a transcript line as seen by one participant.
type ViewLine struct {
	TranscriptLine
	Raw  string `json:"raw"`
	Own  bool   `json:"own"`
	Side Side   `json:"side"`
}

// TranscriptView is the display projection of a transcript for one viewer.
type TranscriptView struct {
	SessionID         string     `json:"session_id,omitempty"`
	PairID            string     `json:"pair_id"`
	PairName          string     `json:"pair_name"`
	Topic             string     `json:"topic"`
	Viewer            string     `json:"viewer"`
	Partner           string     `json:"partner"`
	Lines             []ViewLine `json:"lines"`
	CharCount         int        `json:"char_count"`
	Warnings          []Warning  `json:"warnings,omitempty"`
	RefreshIntervalMs int64      `json:"refresh_interval_ms"`
}

// Project builds the viewer's projection of raw transcript lines.
func Project(raw []string, pair Pair, viewer string) []ViewLine {
	members := pair.Members()
	lines := make([]ViewLine, 0, len(raw))
	for _, r := range raw {
		parsed := ParseTranscriptLine(r, members)
		own := parsed.Author == viewer
		side := SideRight
		if own {
			side = SideLeft
		}
		lines = append(lines, ViewLine{
			TranscriptLine: parsed,
			Raw:            strings.TrimRight(r, "\r\n"),
			Own:            own,
			Side:           side,
		})
	}
	return lines
}
