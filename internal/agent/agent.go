// Package agent orchestrates the question-to-answer loop: generate SQL from
// a natural-language question, execute it read-only, feed execution errors
// back to the model for a bounded number of refinements, and synthesize a
// natural-language answer from the final result.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sqlscout/sqlscout/internal/database"
	"github.com/sqlscout/sqlscout/internal/llm"
	"github.com/sqlscout/sqlscout/internal/observability"
	"github.com/sqlscout/sqlscout/internal/render"
)

// Executor is the slice of the database manager the loop needs.
type Executor interface {
	Dialect() database.Dialect
	SchemaSummary(ctx context.Context) (string, error)
	RunReadOnly(ctx context.Context, sqlText string) (*database.QueryResult, error)
}

// Archiver receives terminal responses for out-of-band persistence. Archive
// failures must stay internal to the implementation; the loop never checks.
type Archiver interface {
	Archive(ctx context.Context, question string, resp *Response)
}

// Attempt records one execution of a candidate statement.
type Attempt struct {
	SQL      string
	Error    string
	Duration time.Duration
}

// Response is the immutable terminal outcome of one run. Exactly one of the
// two shapes occurs: success (Result and Answer set, Error empty) or
// exhaustion (Result nil, Error carrying the final attempt's diagnostic).
// History holds every attempt either way.
type Response struct {
	SQL      string
	Result   *database.QueryResult
	Error    string
	Attempts int
	Answer   string
	History  []Attempt
}

// Succeeded reports whether the run produced a result.
func (r *Response) Succeeded() bool {
	return r.Error == ""
}

// GenerationError marks a failed model call. It aborts the run without
// consuming retry budget; the caller sees no Response.
type GenerationError struct {
	Phase string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("model %s failed: %v", e.Phase, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

type Agent struct {
	db         Executor
	llm        llm.Client
	maxRetries int
	logger     *slog.Logger
	archiver   Archiver
}

type Option func(*Agent)

// WithArchiver attaches a run archive sink.
func WithArchiver(archiver Archiver) Option {
	return func(a *Agent) {
		a.archiver = archiver
	}
}

// New builds an orchestrator. maxRetries is the total execution budget per
// run, at least 1; values below 1 are raised to the default of 3.
func New(db Executor, client llm.Client, maxRetries int, logger *slog.Logger, opts ...Option) *Agent {
	if maxRetries < 1 {
		maxRetries = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	a := &Agent{
		db:         db,
		llm:        client,
		maxRetries: maxRetries,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Ask runs the full loop for one question. It returns a Response for both
// terminal domain outcomes, success and exhaustion. A non-nil error means
// the run aborted before reaching a terminal state: a *ConnectivityError
// from schema introspection or a *GenerationError from a model call.
func (a *Agent) Ask(ctx context.Context, question string) (*Response, error) {
	schema, err := a.db.SchemaSummary(ctx)
	if err != nil {
		return nil, err
	}
	dialect := string(a.db.Dialect())

	candidate, err := a.modelSQL(ctx, "generate", func() (string, error) {
		return a.llm.GenerateSQL(ctx, llm.GenerateRequest{
			Dialect:       dialect,
			SchemaSummary: schema,
			Question:      question,
		})
	})
	if err != nil {
		return nil, err
	}

	history := make([]Attempt, 0, a.maxRetries)
	for attempt := 1; attempt <= a.maxRetries; attempt++ {
		start := time.Now()
		result, execErr := a.db.RunReadOnly(ctx, candidate)
		elapsed := time.Since(start)

		if execErr == nil {
			history = append(history, Attempt{SQL: candidate, Duration: elapsed})
			return a.succeed(ctx, question, candidate, result, attempt, history)
		}

		history = append(history, Attempt{SQL: candidate, Error: execErr.Error(), Duration: elapsed})
		a.logger.Warn("query attempt failed",
			"attempt", attempt,
			"max_retries", a.maxRetries,
			"error", execErr.Error(),
		)

		if attempt == a.maxRetries {
			resp := &Response{
				SQL:      candidate,
				Error:    execErr.Error(),
				Attempts: attempt,
				History:  history,
			}
			observability.RecordAgentRun("exhausted", attempt)
			a.archive(ctx, question, resp)
			return resp, nil
		}

		candidate, err = a.modelSQL(ctx, "refine", func() (string, error) {
			return a.llm.RefineSQL(ctx, llm.RefineRequest{
				Dialect:       dialect,
				SchemaSummary: schema,
				Question:      question,
				PreviousSQL:   candidate,
				ErrorMessage:  execErr.Error(),
			})
		})
		if err != nil {
			return nil, err
		}
	}

	// Unreachable: the loop always returns at attempt == maxRetries.
	return nil, fmt.Errorf("retry budget accounting broke at %d", a.maxRetries)
}

func (a *Agent) succeed(ctx context.Context, question, sqlText string, result *database.QueryResult, attempts int, history []Attempt) (*Response, error) {
	start := time.Now()
	answer, err := a.llm.SynthesizeAnswer(ctx, llm.AnswerRequest{
		Question:    question,
		SQL:         sqlText,
		ResultsText: render.PromptText(result),
	})
	observability.RecordModelCall("answer", time.Since(start))
	if err != nil {
		return nil, &GenerationError{Phase: "answer", Err: err}
	}

	resp := &Response{
		SQL:      sqlText,
		Result:   result,
		Attempts: attempts,
		Answer:   answer,
		History:  history,
	}
	observability.RecordAgentRun("succeeded", attempts)
	a.archive(ctx, question, resp)
	return resp, nil
}

func (a *Agent) modelSQL(ctx context.Context, phase string, call func() (string, error)) (string, error) {
	start := time.Now()
	sqlText, err := call()
	observability.RecordModelCall(phase, time.Since(start))
	if err != nil {
		return "", &GenerationError{Phase: phase, Err: err}
	}
	return sqlText, nil
}

func (a *Agent) archive(ctx context.Context, question string, resp *Response) {
	if a.archiver == nil {
		return
	}
	a.archiver.Archive(ctx, question, resp)
}
