// Package policy evaluates chat message rules with OPA.
package policy

import (
	"context"
	"fmt"
	"strings"

	"github.com/open-policy-agent/opa/rego"
)

// Message decisions.
const (
	DecisionAllow         = "allow"
	DecisionRejectEmpty   = "reject_empty"
	DecisionRejectTooLong = "reject_too_long"
)

// Engine is the OPA policy engine.
type Engine struct {
	message rego.PreparedEvalQuery
	volume  rego.PreparedEvalQuery
}

// NewEngine prepares the message and volume queries of policyContent.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	module := rego.Module("pairtalk.rego", policyContent)

	message, err := rego.New(rego.Query("data.pairtalk.message_decision"), module).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare message rule: %w", err)
	}
	volume, err := rego.New(rego.Query("data.pairtalk.volume_warning"), module).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare volume rule: %w", err)
	}
	return &Engine{message: message, volume: volume}, nil
}

// WordCount counts whitespace separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// CheckMessage decides whether text may be sent under a limit of maxWords.
func (e *Engine) CheckMessage(ctx context.Context, text string, maxWords int) (string, error) {
	input := map[string]interface{}{
		"text":       text,
		"word_count": WordCount(text),
		"max_words":  maxWords,
	}
	results, err := e.message.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate message policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return DecisionAllow, nil
	}
	if s, ok := results[0].Expressions[0].Value.(string); ok {
		return s, nil
	}
	return "", fmt.Errorf("message policy returned %T", results[0].Expressions[0].Value)
}

// VolumeExceeded reports whether charsAdded since the last render is above maxChars.
func (e *Engine) VolumeExceeded(ctx context.Context, charsAdded, maxChars int) (bool, error) {
	input := map[string]interface{}{
		"chars_added": charsAdded,
		"max_chars":   maxChars,
	}
	results, err := e.volume.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, fmt.Errorf("failed to evaluate volume policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return false, nil
	}
	exceeded, _ := results[0].Expressions[0].Value.(bool)
	return exceeded, nil
}

// DefaultPolicy rejects empty and over-long messages and warns when a
// participant receives more than the allowed volume between two renders.
const DefaultPolicy = `
package pairtalk

default message_decision = "allow"

message_decision = "reject_empty" {
	input.word_count == 0
}

message_decision = "reject_too_long" {
	input.word_count > input.max_words
}

default volume_warning = false

volume_warning {
	input.chars_added > input.max_chars
}
`
