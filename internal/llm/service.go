package llm

import (
	"context"
	"errors"
	"fmt"
)

// Completer is the language-model capability used by the pipeline. There
// is exactly one production implementation (Client); tests substitute a
// deterministic stub. The completer performs one outbound call per
// invocation and never retries; retry policy lives in the pipeline.
type Completer interface {
	Complete(ctx context.Context, req Request) (Completion, error)
}

// Request is a single completion request
type Request struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Completion is the raw model output for one request
type Completion struct {
	Text string
}

// Kind classifies a completion failure
type Kind string

const (
	KindRateLimited       Kind = "rate_limited"
	KindTimeout           Kind = "timeout"
	KindAuthFailure       Kind = "auth_failure"
	KindMalformedResponse Kind = "malformed_response"
	KindUnknown           Kind = "unknown"
)

// Transient reports whether a failure of this kind is worth retrying
func (k Kind) Transient() bool {
	return k == KindRateLimited || k == KindTimeout
}

// CallError is a classified completion failure
type CallError struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *CallError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("llm call failed (%s): %s: %v", e.Kind, e.Message, e.Cause)
	}

	return fmt.Sprintf("llm call failed (%s): %s", e.Kind, e.Message)
}

func (e *CallError) Unwrap() error {
	return e.Cause
}

// KindOf returns the failure kind for an error from Complete
func KindOf(err error) Kind {
	var callErr *CallError
	if errors.As(err, &callErr) {
		return callErr.Kind
	}

	return KindUnknown
}
