package domain

import (
	"errors"
	"fmt"
)

var (
	ErrMissingRoster            = errors.New("no roster has been uploaded")
	ErrInsufficientParticipants = errors.New("at least two participants are required")
	ErrDuplicateParticipant     = errors.New("participant appears more than once in roster")
	ErrPairKeyConflict          = errors.New("two pairs share the same transcript key")
	ErrUnassignedParticipant    = errors.New("participant is not assigned to a pair")
	ErrMessageTooLong           = errors.New("message exceeds the word limit")
	ErrEmptyMessage             = errors.New("message is empty")
	ErrNoTranscript             = errors.New("no chat data to export")
	ErrSessionNotFound          = errors.New("session not found")
	ErrPairNotFound             = errors.New("pair not found")
	ErrExportNotFound           = errors.New("export not found")
	ErrUnsupportedLanguage      = errors.New("unsupported language")
)

// StorageError wraps a failure of the underlying store. It is always retryable.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Retryable reports that the caller may try the operation again.
func (e *StorageError) Retryable() bool {
	return true
}

// NewStorageError wraps err unless it is nil or already a domain sentinel.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) || IsDomainError(err) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// IsDomainError reports whether err is one of the sentinel errors above.
func IsDomainError(err error) bool {
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return true
		}
	}
	return false
}

// Stable error codes shared by the HTTP and WebSocket transports.
const (
	CodeMissingRoster            = "missing_roster"
	CodeInsufficientParticipants = "insufficient_participants"
	CodeDuplicateParticipant     = "duplicate_participant"
	CodePairKeyConflict          = "pair_key_conflict"
	CodeUnassignedParticipant    = "unassigned_participant"
	CodeMessageTooLong           = "message_too_long"
	CodeEmptyMessage             = "empty_message"
	CodeNoTranscript             = "no_transcript"
	CodeSessionNotFound          = "session_not_found"
	CodePairNotFound             = "pair_not_found"
	CodeExportNotFound           = "export_not_found"
	CodeUnsupportedLanguage      = "unsupported_language"
	CodeStorageUnavailable       = "storage_unavailable"
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrMissingRoster, CodeMissingRoster},
	{ErrInsufficientParticipants, CodeInsufficientParticipants},
	{ErrDuplicateParticipant, CodeDuplicateParticipant},
	{ErrPairKeyConflict, CodePairKeyConflict},
	{ErrUnassignedParticipant, CodeUnassignedParticipant},
	{ErrMessageTooLong, CodeMessageTooLong},
	{ErrEmptyMessage, CodeEmptyMessage},
	{ErrNoTranscript, CodeNoTranscript},
	{ErrSessionNotFound, CodeSessionNotFound},
	{ErrPairNotFound, CodePairNotFound},
	{ErrExportNotFound, CodeExportNotFound},
	{ErrUnsupportedLanguage, CodeUnsupportedLanguage},
}

// ErrorCode returns the stable code for err, or "" if err is not a domain or
// storage error.
func ErrorCode(err error) string {
	var se *StorageError
	if errors.As(err, &se) {
		return CodeStorageUnavailable
	}
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return ""
}
