package adaptive

import (
	"context"
	"time"

	"github.com/zkorum/agora/internal/engine"
	"github.com/zkorum/agora/internal/errors"
	"github.com/zkorum/agora/internal/logging"
	"github.com/zkorum/agora/internal/result"
	"github.com/zkorum/agora/internal/scaling"
)

const (
	// DefaultMaxGroupCount is used when the caller passes 0.
	DefaultMaxGroupCount = 6

	// DefaultGroupField is the participant field holding the group assignment.
	DefaultGroupField = "cluster_id"

	// MinGroupCount is the smallest count a retry may force.
	MinGroupCount = 2

	maxEngineCalls = 2
)

// Controller orchestrates engine calls and the scaling policy.
type Controller struct {
	engine     engine.Engine
	policy     *scaling.Policy
	logger     *logging.Logger
	recorder   Recorder
	groupField string
}

// NewController creates a Controller running eng.
func NewController(eng engine.Engine, opts ...Option) *Controller {
	c := &Controller{
		engine:     eng,
		policy:     scaling.NewPolicy(),
		logger:     logging.NopLogger(),
		recorder:   nopRecorder{},
		groupField: DefaultGroupField,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Solve clusters votes and returns the most balanced result it found.
// A maxGroupCount of 0 selects DefaultMaxGroupCount.
func (c *Controller) Solve(ctx context.Context, votes []engine.VoteRecord, minVoteThreshold, maxGroupCount int) (*result.CanonicalResult, error) {
	report, err := c.Run(ctx, votes, minVoteThreshold, maxGroupCount)
	if err != nil {
		return nil, err
	}
	return report.Result, nil
}

// Run is Solve with the full report of what happened.
func (c *Controller) Run(ctx context.Context, votes []engine.VoteRecord, minVoteThreshold, maxGroupCount int) (*Report, error) {
	if maxGroupCount == 0 {
		maxGroupCount = DefaultMaxGroupCount
	}
	if err := validateBounds(minVoteThreshold, maxGroupCount); err != nil {
		return nil, err
	}

	start := time.Now()
	report, err := c.run(ctx, votes, minVoteThreshold, maxGroupCount)
	elapsed := time.Since(start)
	if err != nil {
		c.recorder.Solved(OutcomeError, 0, elapsed)
		c.logger.Failure("solve failed", err, "duration_ms", elapsed.Milliseconds())
		return nil, err
	}

	var imbalance float64
	if report.Kept != nil {
		imbalance = report.Kept.Imbalance
	}
	c.recorder.Solved(report.Outcome, imbalance, elapsed)
	c.logger.Info("solve complete",
		"outcome", string(report.Outcome),
		"engine_calls", report.EngineCalls(),
		"imbalance", imbalance,
		"duration_ms", elapsed.Milliseconds(),
	)
	return report, nil
}

func (c *Controller) run(ctx context.Context, votes []engine.VoteRecord, minVoteThreshold, maxGroupCount int) (*Report, error) {
	report := &Report{}
	constraint := engine.MaxGroups(maxGroupCount)

	for call := 1; call <= maxEngineCalls; call++ {
		current, err := c.attempt(ctx, votes, minVoteThreshold, constraint)
		if errors.Is(err, errors.ErrInsufficientData) {
			c.logger.Info("insufficient data, returning empty result",
				"engine_call", call,
				"constraint", constraint.String(),
			)
			report.Result = result.Empty()
			report.Outcome = OutcomeEmpty
			report.Kept = nil
			return report, nil
		}
		if err != nil {
			return nil, err
		}
		report.Attempts = append(report.Attempts, current)

		if call > 1 {
			prior := report.Attempts[0]
			report.Kept, report.Outcome = current, OutcomeKeptRetry
			if prior.Imbalance < current.Imbalance {
				report.Kept, report.Outcome = prior, OutcomeKeptFirst
			}
			c.logger.Info("retry compared",
				"first_groups", prior.Groups(),
				"first_imbalance", prior.Imbalance,
				"retry_groups", current.Groups(),
				"retry_imbalance", current.Imbalance,
				"outcome", string(report.Outcome),
			)
			report.Result = report.Kept.Result
			return report, nil
		}

		decision := c.policy.Decide(current.Counts, scaling.Total(current.Counts))
		report.Decision = decision
		c.recorder.Decision(decision)
		c.logger.Info("scaling decision",
			"action", decision.Action.String(),
			"rule", decision.Rule,
			"groups", current.Groups(),
			"counts", current.Counts,
			"imbalance", current.Imbalance,
			"reason", decision.Reason,
		)

		if decision.Action == scaling.ActionHold {
			report.Kept, report.Outcome, report.Result = current, OutcomeHeld, current.Result
			return report, nil
		}
		constraint = engine.ForceGroups(max(MinGroupCount, current.Groups()+decision.Delta))
	}

	// Not reached while maxEngineCalls is 2.
	first := report.Attempts[0]
	report.Kept, report.Outcome, report.Result = first, OutcomeKeptFirst, first.Result
	return report, nil
}

// attempt makes one engine call and measures its group balance.
func (c *Controller) attempt(ctx context.Context, votes []engine.VoteRecord, minVoteThreshold int, constraint engine.Constraint) (*Attempt, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrapf(err, "before engine call with %s", constraint)
	}

	c.recorder.EngineCall(constraint)
	c.logger.Debug("calling engine", "constraint", constraint.String(), "votes", len(votes))

	raw, err := c.engine.Run(ctx, engine.Request{
		Votes:            votes,
		MinVoteThreshold: minVoteThreshold,
		Constraint:       constraint,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "engine call with %s", constraint)
	}

	res, err := result.Normalize(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "normalize result of %s", constraint)
	}
	counts, err := result.MemberCounts(res.Participants, c.groupField)
	if err != nil {
		return nil, errors.Wrapf(err, "count group members of %s", constraint)
	}

	return &Attempt{
		Constraint: constraint,
		Result:     res,
		Counts:     counts,
		Imbalance:  scaling.Imbalance(counts),
	}, nil
}

func validateBounds(minVoteThreshold, maxGroupCount int) error {
	if minVoteThreshold < 1 {
		return errors.NewValidationError("must be at least 1").
			WithField("min_vote_threshold").
			WithValue(minVoteThreshold)
	}
	if maxGroupCount < MinGroupCount {
		return errors.NewValidationError("must be at least 2").
			WithField("max_group_count").
			WithValue(maxGroupCount)
	}
	return nil
}
