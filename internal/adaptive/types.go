package adaptive

import (
	"time"

	"github.com/zkorum/agora/internal/engine"
	"github.com/zkorum/agora/internal/logging"
	"github.com/zkorum/agora/internal/result"
	"github.com/zkorum/agora/internal/scaling"
)

// Outcome describes how a solve ended.
type Outcome string

const (
	// OutcomeHeld means the first result was kept without a retry.
	OutcomeHeld Outcome = "held"

	// OutcomeKeptFirst means a retry was made but the first result was more balanced.
	OutcomeKeptFirst Outcome = "retried_kept_first"

	// OutcomeKeptRetry means the retry was at least as balanced and replaced the first result.
	OutcomeKeptRetry Outcome = "retried_kept_retry"

	// OutcomeEmpty means the engine reported insufficient data.
	OutcomeEmpty Outcome = "empty"

	// OutcomeError means the solve failed.
	OutcomeError Outcome = "error"
)

// Attempt is one engine call's normalized result and its balance.
type Attempt struct {
	Constraint engine.Constraint
	Result     *result.CanonicalResult
	Counts     []int
	Imbalance  float64
}

// Groups returns the number of groups in the attempt.
func (a *Attempt) Groups() int {
	return len(a.Counts)
}

// Report is the full account of one solve.
type Report struct {
	Result   *result.CanonicalResult
	Outcome  Outcome
	Decision scaling.Decision
	// Attempts holds each completed engine call in order.
	Attempts []*Attempt
	// Kept is the attempt whose result was returned, or nil for an empty result.
	Kept *Attempt
}

// EngineCalls returns how many times the engine was invoked, including a
// call that reported insufficient data.
func (r *Report) EngineCalls() int {
	n := len(r.Attempts)
	if r.Outcome == OutcomeEmpty {
		n++
	}
	return n
}

// Recorder receives solve telemetry. Implementations must be safe for
// concurrent use.
type Recorder interface {
	EngineCall(c engine.Constraint)
	Decision(d scaling.Decision)
	Solved(o Outcome, imbalance float64, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) EngineCall(engine.Constraint)           {}
func (nopRecorder) Decision(scaling.Decision)              {}
func (nopRecorder) Solved(Outcome, float64, time.Duration) {}

// Option configures a Controller.
type Option func(*Controller)

// WithPolicy sets the scaling policy consulted after the first call.
func WithPolicy(p *scaling.Policy) Option {
	return func(c *Controller) {
		if p != nil {
			c.policy = p
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRecorder sets the telemetry recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithGroupField sets the participant field holding the group assignment.
func WithGroupField(field string) Option {
	return func(c *Controller) {
		if field != "" {
			c.groupField = field
		}
	}
}
