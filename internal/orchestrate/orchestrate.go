// Package orchestrate drives the external generator through a bounded
// escalation sequence, applying remap → structural gate → coverage audit →
// rule battery on each attempt, and decides the final returned result.
//
// One Run call processes one word sequence start to finish. All attempt
// state, including the best result seen so far, is local to the call, so
// concurrent Run invocations on the same Orchestrator share nothing.
package orchestrate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ajanderson1/flowsegment/internal/coverage"
	"github.com/ajanderson1/flowsegment/internal/llm"
	"github.com/ajanderson1/flowsegment/internal/remap"
	"github.com/ajanderson1/flowsegment/internal/rules"
	"github.com/ajanderson1/flowsegment/internal/schema"
	"github.com/ajanderson1/flowsegment/internal/structural"
)

// Generator produces one raw candidate for a compact word list at a given
// sampling temperature. llm.(*Client).Generate satisfies this signature.
type Generator func(ctx context.Context, words []schema.CompactWord, temperature float64) (raw string, usage *schema.TokenUsage, err error)

// Attempt is one escalation step: the sampling temperature for the call and
// the delay to wait before the next attempt if this one fails. Escalating
// temperature nudges the generator toward a different candidate instead of
// deterministically repeating a rejected one; a provider with a single fixed
// sampling parameter degenerates to a constant-temperature table with only
// the delays varying, which needs no special handling here.
type Attempt struct {
	Temperature float64
	Delay       time.Duration
}

// DefaultEscalation is the standard three-step schedule.
var DefaultEscalation = []Attempt{
	{Temperature: 0.3, Delay: 0},
	{Temperature: 0.7, Delay: 500 * time.Millisecond},
	{Temperature: 1.0, Delay: 1200 * time.Millisecond},
}

// Orchestrator runs the retry loop. Construct with New; safe for concurrent
// use.
type Orchestrator struct {
	gen         Generator
	engine      *rules.Engine
	schedule    []Attempt
	maxAttempts int
	log         *zap.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithSchedule replaces the escalation table. Attempts beyond the table
// length reuse its last entry.
func WithSchedule(schedule []Attempt) Option {
	return func(o *Orchestrator) {
		if len(schedule) > 0 {
			o.schedule = schedule
		}
	}
}

// WithMaxAttempts bounds the retry loop.
func WithMaxAttempts(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

// WithLogger attaches a structured logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(o *Orchestrator) {
		if log != nil {
			o.log = log
		}
	}
}

func New(gen Generator, engine *rules.Engine, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		gen:         gen,
		engine:      engine,
		schedule:    DefaultEscalation,
		maxAttempts: len(DefaultEscalation),
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// scored is a structurally valid result together with its rule-battery
// outcome, tracked as the degraded-acceptance fallback.
type scored struct {
	result  *schema.Result
	outcome rules.Outcome
}

// betterThan compares two battery outcomes for best-result tracking:
// error count first, then total violation count. A flat count would let one
// orphan-punctuation error beat two mild warnings, which inverts the
// severity philosophy of the battery.
func betterThan(a, b rules.Outcome) bool {
	aErr, _ := rules.Count(a.Violations)
	bErr, _ := rules.Count(b.Violations)
	if aErr != bErr {
		return aErr < bErr
	}
	return len(a.Violations) < len(b.Violations)
}

// Run drives the generator until an attempt passes the rule battery, the
// budget is exhausted, or a non-retryable failure occurs.
//
// On exhaustion the best structurally valid result seen is returned
// (degraded acceptance — an imperfect segmentation beats none). Only when
// no attempt ever produced a structurally valid result does Run fail, with
// the last underlying error attached. Credential and authorization failures
// abort immediately without consuming remaining attempts or delays.
func (o *Orchestrator) Run(ctx context.Context, words []schema.Word) (*schema.Result, error) {
	if len(words) == 0 {
		return nil, fmt.Errorf("orchestrate: empty word sequence")
	}

	log := o.log.With(zap.String("request_id", uuid.NewString()))
	mapping := remap.Compact(words)

	var best *scored
	var lastErr error

	for n := 1; n <= o.maxAttempts; n++ {
		step := o.schedule[min(n-1, len(o.schedule)-1)]
		alog := log.With(zap.Int("attempt", n), zap.Float64("temperature", step.Temperature))

		raw, usage, err := o.gen(ctx, mapping.Words, step.Temperature)
		if err != nil {
			if llm.IsAuth(err) {
				alog.Error("authorization failure, aborting", zap.Error(err))
				return nil, err
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			alog.Warn("generate failed", zap.Error(err))
			lastErr = err
			if err := o.wait(ctx, n, step.Delay); err != nil {
				return nil, err
			}
			continue
		}

		cand, err := llm.ParseCandidate(raw)
		if err != nil {
			alog.Warn("candidate unparseable", zap.Error(err))
			lastErr = err
			if err := o.wait(ctx, n, step.Delay); err != nil {
				return nil, err
			}
			continue
		}

		blocks := remap.Expand(cand.Blocks, mapping)
		if err := structural.Validate(blocks, words); err != nil {
			alog.Warn("structural validation failed", zap.Error(err))
			lastErr = err
			if err := o.wait(ctx, n, step.Delay); err != nil {
				return nil, err
			}
			continue
		}

		for _, gap := range coverage.Audit(blocks, words) {
			alog.Warn("coverage gap", zap.String("gap", gap.String()))
		}

		outcome := o.engine.Validate(blocks)
		result := &schema.Result{Blocks: blocks, TokenUsage: usage}

		if !outcome.ShouldRetry {
			alog.Info("segmentation accepted",
				zap.Int("blocks", len(blocks)),
				zap.Int("violations", len(outcome.Violations)))
			return result, nil
		}

		errCount, warnCount := rules.Count(outcome.Violations)
		alog.Warn("semantic validation requests retry",
			zap.Int("errors", errCount),
			zap.Int("warnings", warnCount))
		if best == nil || betterThan(outcome, best.outcome) {
			best = &scored{result: result, outcome: outcome}
		}
		lastErr = fmt.Errorf("semantic validation: %d violations (%d errors)",
			len(outcome.Violations), errCount)

		if err := o.wait(ctx, n, step.Delay); err != nil {
			return nil, err
		}
	}

	if best != nil {
		errCount, warnCount := rules.Count(best.outcome.Violations)
		log.Warn("attempts exhausted, accepting best imperfect result",
			zap.Int("errors", errCount),
			zap.Int("warnings", warnCount))
		return best.result, nil
	}
	return nil, fmt.Errorf("segmentation failed after %d attempts: %w", o.maxAttempts, lastErr)
}

// wait sleeps the attempt's escalation delay before the next attempt, unless
// this was the final attempt. Cancelling the context cuts the wait short.
func (o *Orchestrator) wait(ctx context.Context, attempt int, delay time.Duration) error {
	if attempt >= o.maxAttempts || delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
