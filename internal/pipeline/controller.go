package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/statement-extractor/internal/document"
	"github.com/dvloznov/statement-extractor/internal/domain"
	"github.com/dvloznov/statement-extractor/internal/logger"
	"github.com/rs/zerolog"
)

// State is a controller state. Attempting is the only non-terminal one.
type State int

const (
	Attempting State = iota
	Succeeded
	Exhausted
	Fatal
)

func (s State) String() string {
	switch s {
	case Attempting:
		return "attempting"
	case Succeeded:
		return "succeeded"
	case Exhausted:
		return "exhausted"
	case Fatal:
		return "fatal"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Controller drives the extract/validate/retry loop for one document at a
// time per Run call. A Controller holds no per-run state, so one value may
// serve many documents concurrently.
type Controller struct {
	extractor Extractor
	validator Validator
	cfg       Config
}

// NewController creates a controller. A zero MaxAttempts means DefaultMaxAttempts.
func NewController(extractor Extractor, validator Validator, cfg Config) (*Controller, error) {
	if extractor == nil || validator == nil {
		return nil, fmt.Errorf("%w: extractor and validator are required", ErrInvalidConfig)
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Controller{extractor: extractor, validator: validator, cfg: cfg}, nil
}

// Config returns the effective configuration.
func (c *Controller) Config() Config {
	return c.cfg
}

// Run processes doc until validation passes, the attempt budget runs out, or
// a stage reports a hard failure. All three end in a returned Outcome.
//
// An error is returned only for conditions outside that protocol: a stage
// failing for infrastructure reasons, the caller cancelling ctx, or a
// validator returning an inconsistent verdict.
func (c *Controller) Run(ctx context.Context, doc document.Document) (Outcome, error) {
	r := &run{
		c:       c,
		doc:     doc,
		state:   Attempting,
		attempt: 1,
		log:     logger.FromContext(ctx).With().Str("document", doc.Name).Logger(),
	}

	for r.state == Attempting {
		if err := r.step(ctx); err != nil {
			r.log.Error().Err(err).Int("attempt", r.attempt).Msg("Run aborted")
			return Outcome{}, fmt.Errorf("Run: %s: attempt %d: %w", doc.Name, r.attempt, err)
		}
	}

	out := r.outcome()
	r.log.Info().
		Str("status", string(out.Status)).
		Int("attempt", out.Attempt).
		Int("transactions", len(out.Transactions)).
		Int("issues", len(out.Issues)).
		Msg("Run finished")

	return out, nil
}

// run is the state of a single Run call.
type run struct {
	c   *Controller
	doc document.Document
	log zerolog.Logger

	state    State
	attempt  int
	feedback []domain.Issue
	history  []AttemptRecord

	// last completed cycle
	records []domain.Transaction
	verdict domain.Verdict

	fatal error
}

// step performs one cycle and moves the state machine. A returned error
// aborts the run.
func (r *run) step(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.log.Info().Int("attempt", r.attempt).Int("feedback_issues", len(r.feedback)).Msg("Starting attempt")

	var extracted []domain.Transaction
	err := r.c.callStage(ctx, func(stageCtx context.Context) error {
		var err error
		extracted, err = r.c.extractor.Extract(stageCtx, r.doc, domain.CloneIssues(r.feedback))
		return err
	})
	if err != nil {
		if domain.IsHardFailure(err) {
			r.fail(fmt.Errorf("extract: %w", err))
			return nil
		}
		return fmt.Errorf("extract: %w", err)
	}

	records := domain.CloneTransactions(extracted)
	if err := domain.ValidateRecords(records); err != nil {
		r.fail(fmt.Errorf("extract: %w: %v", domain.ErrMalformedOutput, err))
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	var verdict domain.Verdict
	err = r.c.callStage(ctx, func(stageCtx context.Context) error {
		var err error
		verdict, err = r.c.validator.Validate(stageCtx, r.doc, domain.CloneTransactions(records))
		return err
	})
	if err != nil {
		if domain.IsHardFailure(err) {
			r.fail(fmt.Errorf("validate: %w", err))
			return nil
		}
		return fmt.Errorf("validate: %w", err)
	}
	if err := verdict.Check(); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	verdict = verdict.Clone()

	r.records = records
	r.verdict = verdict
	if !r.c.cfg.DisableHistory {
		r.history = append(r.history, AttemptRecord{
			Attempt:      r.attempt,
			Transactions: domain.CloneTransactions(records),
			Verdict:      verdict.Clone(),
		})
	}

	r.log.Info().
		Int("attempt", r.attempt).
		Bool("passed", verdict.Passed).
		Int("issues", len(verdict.Issues)).
		Msg("Attempt validated")

	if verdict.Passed {
		r.state = Succeeded
		return nil
	}

	r.feedback = verdict.Issues
	if r.attempt >= r.c.cfg.MaxAttempts {
		r.state = Exhausted
		return nil
	}
	r.attempt++
	return nil
}

func (r *run) fail(err error) {
	r.state = Fatal
	r.fatal = err
	r.log.Warn().Err(err).Int("attempt", r.attempt).Msg("Hard failure, stopping")
}

func (r *run) outcome() Outcome {
	out := Outcome{Attempt: r.attempt}

	switch r.state {
	case Succeeded:
		out.Status = StatusSuccess
		out.Transactions = domain.CloneTransactions(r.records)
	case Exhausted:
		out.Status = StatusExhausted
		out.Transactions = domain.CloneTransactions(r.records)
		out.Issues = domain.CloneIssues(r.verdict.Issues)
	case Fatal:
		out.Status = StatusFatal
		out.Error = r.fatal.Error()
		out.Cause = r.fatal
	}

	if r.history != nil {
		out.History = make([]AttemptRecord, len(r.history))
		for i, h := range r.history {
			out.History[i] = h.Clone()
		}
	}

	return out
}

// callStage runs fn under the configured stage timeout. A stage that runs
// past its own deadline while the caller's context is still live becomes
// domain.ErrStageTimeout.
func (c *Controller) callStage(ctx context.Context, fn func(context.Context) error) error {
	if c.cfg.StageTimeout <= 0 {
		return fn(ctx)
	}

	stageCtx, cancel := context.WithTimeout(ctx, c.cfg.StageTimeout)
	defer cancel()

	err := fn(stageCtx)
	if err != nil && ctx.Err() == nil && errors.Is(stageCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: after %s", domain.ErrStageTimeout, c.cfg.StageTimeout)
	}
	return err
}

// Stats describes the controller's configuration and stages.
type Stats struct {
	MaxAttempts     int    `json:"max_attempts"`
	HistoryRetained bool   `json:"history_retained"`
	StageTimeout    string `json:"stage_timeout,omitempty"`
	Extractor       string `json:"extractor"`
	Validator       string `json:"validator"`
}

// Stats reports how the controller is set up.
func (c *Controller) Stats() Stats {
	st := Stats{
		MaxAttempts:     c.cfg.MaxAttempts,
		HistoryRetained: !c.cfg.DisableHistory,
		Extractor:       fmt.Sprintf("%T", c.extractor),
		Validator:       fmt.Sprintf("%T", c.validator),
	}
	if c.cfg.StageTimeout > 0 {
		st.StageTimeout = c.cfg.StageTimeout.String()
	}
	return st
}
