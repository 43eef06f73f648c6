// Package pipeline drives the generate, extract, validate, execute loop
// for one natural-language question. The orchestrator owns retry policy
// and termination; no statement reaches the executor without passing all
// three validation stages.
package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/askduck/askduck/internal/errors"
	"github.com/askduck/askduck/internal/extract"
	"github.com/askduck/askduck/internal/llm"
	"github.com/askduck/askduck/internal/logging"
	"github.com/askduck/askduck/internal/prompt"
	"github.com/askduck/askduck/internal/validate"
)

// State identifies where a run is in its lifecycle
type State string

const (
	StateIdle       State = "idle"
	StateGenerating State = "generating"
	StateExtracting State = "extracting"
	StateValidating State = "validating"
	StateExecuting  State = "executing"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// GenerationAttempt records one generate-extract-validate cycle
type GenerationAttempt struct {
	Index     int               `json:"index"`
	Prompt    string            `json:"prompt"`
	RawOutput string            `json:"raw_output"`
	SQL       string            `json:"sql,omitempty"` // empty when extraction failed
	Verdict   *validate.Verdict `json:"verdict,omitempty"`
	Rejection string            `json:"rejection,omitempty"` // reason code
	Detail    string            `json:"detail,omitempty"`
}

// QueryResult is the outcome of a successful run
type QueryResult struct {
	SQL      string        `json:"sql"`
	Columns  []string      `json:"columns"`
	Rows     [][]any       `json:"rows"`
	Duration time.Duration `json:"duration"`
	Metrics  Metrics       `json:"metrics"`
}

// Status is the terminal status of a run
type Status string

const (
	StatusAccepted Status = "accepted"
	StatusFailed   Status = "failed"
)

// Response carries the final result and the full ordered attempt history,
// which is returned even on failure for observability
type Response struct {
	RequestID string              `json:"request_id"`
	Question  string              `json:"question"`
	Status    Status              `json:"status"`
	Result    *QueryResult        `json:"result,omitempty"`
	Attempts  []GenerationAttempt `json:"attempts"`
	Error     string              `json:"error,omitempty"`
}

// Executor runs an accepted statement against the data engine
type Executor interface {
	Execute(ctx context.Context, sql string) (columns []string, rows [][]any, err error)
}

// Options is the immutable per-orchestrator configuration
type Options struct {
	MaxAttempts      int           // correction attempts per question
	TransientRetries int           // extra completer calls on rate_limited/timeout
	BackoffBase      time.Duration // first transient retry delay, doubled per retry
	MaxTokens        int
	Temperature      float64
	RowLimit         int // hard cap on returned rows, 0 disables
	Weights          Weights
}

// DefaultOptions returns the default pipeline configuration
func DefaultOptions() Options {
	return Options{
		MaxAttempts:      3,
		TransientRetries: 3,
		BackoffBase:      time.Second,
		MaxTokens:        4000,
		Temperature:      0.0,
		RowLimit:         1000,
		Weights:          DefaultWeights(),
	}
}

// Orchestrator coordinates one question through the pipeline. It is
// stateless across runs; a single orchestrator may serve concurrent
// questions as long as each run's executor connection allows it.
type Orchestrator struct {
	completer llm.Completer
	builder   *prompt.Builder
	validator *validate.Validator
	executor  Executor
	opts      Options
	logger    *logging.Logger

	sleep func(ctx context.Context, d time.Duration)
}

// New creates an orchestrator
func New(
	completer llm.Completer,
	builder *prompt.Builder,
	validator *validate.Validator,
	executor Executor,
	opts Options,
) *Orchestrator {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}

	if opts.BackoffBase <= 0 {
		opts.BackoffBase = time.Second
	}

	return &Orchestrator{
		completer: completer,
		builder:   builder,
		validator: validator,
		executor:  executor,
		opts:      opts,
		logger:    logging.GetLogger(),
		sleep:     sleepContext,
	}
}

// sleepContext waits for d or until ctx is cancelled, whichever is first
func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Query processes one natural-language question. The returned Response is
// non-nil even when err is non-nil, so callers can always inspect the
// attempt history and the last rejection.
func (o *Orchestrator) Query(ctx context.Context, question, customInstructions string) (*Response, error) {
	resp := &Response{
		RequestID: uuid.New().String(),
		Question:  question,
		Status:    StatusFailed,
	}

	logger := o.logger.WithField("request_id", resp.RequestID)
	logger.Debugf("processing question: %s", question)

	var correction *prompt.Correction

	for index := 1; index <= o.opts.MaxAttempts; index++ {
		promptText := o.builder.BuildGeneration(question, customInstructions, correction)

		completion, err := o.complete(ctx, promptText)
		if err != nil {
			resp.Error = err.Error()
			return resp, o.classifyCompleterError(err)
		}

		attempt := GenerationAttempt{
			Index:     index,
			Prompt:    promptText,
			RawOutput: completion.Text,
		}

		sql, err := extract.Extract(completion.Text)
		if err != nil {
			// Extraction failure is a rejection: it consumes a correction
			// attempt and feeds the correction loop.
			var extractErr *extract.Error
			reason, detail := "extraction_failed", err.Error()

			if stderrors.As(err, &extractErr) {
				reason, detail = string(extractErr.Reason), extractErr.Detail
			}

			attempt.Rejection = reason
			attempt.Detail = detail
			resp.Attempts = append(resp.Attempts, attempt)

			logger.Warnf("attempt %d: extraction rejected (%s): %s", index, reason, detail)

			correction = &prompt.Correction{
				PreviousSQL: truncateForPrompt(completion.Text),
				Reason:      reason,
				Detail:      detail,
			}

			resp.Error = detail

			continue
		}

		attempt.SQL = sql

		verdict := o.validator.Validate(ctx, sql)
		attempt.Verdict = &verdict

		if !verdict.Accepted() {
			attempt.Rejection = string(verdict.Reason)
			attempt.Detail = verdict.Detail
			resp.Attempts = append(resp.Attempts, attempt)

			logger.Warnf("attempt %d: validation rejected (%s): %s", index, verdict.Reason, verdict.Detail)

			correction = &prompt.Correction{
				PreviousSQL: sql,
				Reason:      string(verdict.Reason),
				Detail:      verdict.Detail,
			}

			resp.Error = verdict.Detail

			continue
		}

		resp.Attempts = append(resp.Attempts, attempt)

		logger.Debugf("attempt %d: accepted SQL: %s", index, sql)

		result, err := o.execute(ctx, sql)
		if err != nil {
			// Execution failure after acceptance is fatal for this
			// request; re-validating the same statement would be
			// redundant.
			resp.Error = err.Error()
			return resp, errors.Wrap(err, errors.ErrTypeExecution, "query execution failed")
		}

		resp.Status = StatusAccepted
		resp.Result = result
		resp.Error = ""

		return resp, nil
	}

	return resp, errors.Newf(errors.ErrTypeValidation,
		"no valid SQL after %d attempts: %s", o.opts.MaxAttempts, resp.Error)
}

// Explain produces a natural-language description of a known SQL string.
// A degenerate one-step pipeline: single completion, no validation loop.
func (o *Orchestrator) Explain(ctx context.Context, sql string) (string, error) {
	completion, err := o.complete(ctx, o.builder.BuildExplanation(sql))
	if err != nil {
		return "", o.classifyCompleterError(err)
	}

	return strings.TrimSpace(completion.Text), nil
}

// Suggest returns up to count related questions for the loaded schema
func (o *Orchestrator) Suggest(ctx context.Context, question string, count int) ([]string, error) {
	if count <= 0 {
		count = 3
	}

	completion, err := o.complete(ctx, o.builder.BuildSuggestion(question, count))
	if err != nil {
		return nil, o.classifyCompleterError(err)
	}

	return parseSuggestions(completion.Text, count), nil
}

// complete invokes the completer, retrying transient failures with
// exponential backoff up to the transient bound. Transient retries do not
// consume correction attempts.
func (o *Orchestrator) complete(ctx context.Context, promptText string) (llm.Completion, error) {
	req := llm.Request{
		Prompt:      promptText,
		MaxTokens:   o.opts.MaxTokens,
		Temperature: o.opts.Temperature,
	}

	delay := o.opts.BackoffBase

	for try := 0; ; try++ {
		completion, err := o.completer.Complete(ctx, req)
		if err == nil {
			return completion, nil
		}

		kind := llm.KindOf(err)
		if !kind.Transient() || try >= o.opts.TransientRetries {
			return llm.Completion{}, err
		}

		o.logger.Warnf("transient model failure (%s), retrying in %s", kind, delay)
		o.sleep(ctx, delay)
		delay *= 2

		// The sleep returns early on cancellation; do not issue another
		// model call for an abandoned request.
		if ctx.Err() != nil {
			return llm.Completion{}, &llm.CallError{
				Kind:    llm.KindTimeout,
				Message: "request abandoned",
				Cause:   ctx.Err(),
			}
		}
	}
}

func (o *Orchestrator) execute(ctx context.Context, sql string) (*QueryResult, error) {
	stmt := sql
	if o.opts.RowLimit > 0 {
		// Cap the result set regardless of whether the model added its
		// own LIMIT. The reported SQL stays the accepted statement.
		stmt = fmt.Sprintf("SELECT * FROM (%s) AS q LIMIT %d", sql, o.opts.RowLimit)
	}

	start := time.Now()

	columns, rows, err := o.executor.Execute(ctx, stmt)
	if err != nil {
		return nil, err
	}

	return &QueryResult{
		SQL:      sql,
		Columns:  columns,
		Rows:     rows,
		Duration: time.Since(start),
		Metrics:  AnalyzeQuery(sql, o.opts.Weights),
	}, nil
}

func (o *Orchestrator) classifyCompleterError(err error) error {
	kind := llm.KindOf(err)
	if kind.Transient() {
		return errors.Wrap(err, errors.ErrTypeLLMTransient, "model unavailable after retries")
	}

	return errors.Wrap(err, errors.ErrTypeLLMFatal, "model call failed")
}

func truncateForPrompt(text string) string {
	const limit = 500
	if len(text) > limit {
		return text[:limit] + "..."
	}

	return text
}

// parseSuggestions pulls numbered or bulleted lines out of a completion
func parseSuggestions(text string, count int) []string {
	var suggestions []string

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		first := line[0]
		if (first < '0' || first > '9') && first != '-' && first != '*' {
			continue
		}

		cleaned := strings.TrimLeft(line, "0123456789.-*) ")
		if cleaned != "" {
			suggestions = append(suggestions, cleaned)
		}

		if len(suggestions) == count {
			break
		}
	}

	return suggestions
}
