// Package protocol defines the WebSocket message protocol between chat clients and the server.
package protocol

import "github.com/xiaot623/pairtalk/internal/domain"

// Message types from client to server
const (
	TypeJoin   = "join"
	TypeSend   = "send"
	TypeRender = "render"
)

// Message types from server to client
const (
	TypeJoined     = "joined"
	TypeTranscript = "transcript"
	TypeWarning    = "warning"
	TypeError      = "error"
)

// BaseMessage contains common fields for all messages.
type BaseMessage struct {
	Type      string `json:"type"`
	Ts        int64  `json:"ts"`
	RequestID string `json:"request_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// JoinMessage is sent by the client to open a chat session.
type JoinMessage struct {
	BaseMessage
	Name string `json:"name"`
}

// SendMessage carries one chat message.
type SendMessage struct {
	BaseMessage
	Text string `json:"text"`
}

// RenderMessage asks for a full transcript re-render.
type RenderMessage struct {
	BaseMessage
}

// JoinedMessage confirms a join.
type JoinedMessage struct {
	BaseMessage
	Participant string `json:"participant"`
	Partner     string `json:"partner"`
	PairName    string `json:"pair_name"`
	Topic       string `json:"topic"`
}

// TranscriptMessage pushes the viewer's whole transcript.
type TranscriptMessage struct {
	BaseMessage
	View *domain.TranscriptView `json:"view"`
}

// WarningMessage is an advisory that does not block the client.
type WarningMessage struct {
	BaseMessage
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorMessage is sent when a request fails.
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Protocol level error codes. Domain failures use the HTTP API codes.
const (
	ErrorCodeInvalidMessage  = "invalid_message"
	ErrorCodeSessionRequired = "session_required"
	ErrorCodeRateLimited     = "rate_limited"
	ErrorCodeInternalError   = "internal_error"
)
