package scaling

import "fmt"

// Thresholds holds every numeric breakpoint used by the policy rules.
// The values are empirical; each one is tuned on its own and none is
// derived from another.
type Thresholds struct {
	// SmallPopulation: below this total only group collapse is judged (rules 2, 3)
	// and it is the lower bound of the small-pair band (rule 7).
	SmallPopulation int
	// PairPopulation is the upper bound of rule 7 and lower bound of rule 8.
	PairPopulation int
	// MediumPopulation is the upper bound of rule 8 and lower bound of rule 9.
	MediumPopulation int
	// LargePopulation is the lower bound of rule 10.
	LargePopulation int
	// CrowdPopulation: totals above this are judged by rules 5 and 6.
	CrowdPopulation int

	// MinGroupSize: a group smaller than this has collapsed (rules 2, 4, 7).
	MinGroupSize int
	// MinGroupsToShrink: collapse only triggers scale down with at least this many groups.
	MinGroupsToShrink int
	// SparseGroupSize: crowd rules fire only when the smallest group is below this.
	SparseGroupSize int

	CrowdImbalance     float64 // rules 5 and 6
	SmallPairImbalance float64 // rule 7
	PairImbalance      float64 // rule 8
	MediumImbalance    float64 // rule 9
	LargeImbalance     float64 // rule 10

	// MediumMaxGroups: rule 9 applies below this group count.
	MediumMaxGroups int
	// LargeMaxGroups: rule 10 applies below this group count.
	LargeMaxGroups int
}

// DefaultThresholds returns the reference thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SmallPopulation:    10,
		PairPopulation:     20,
		MediumPopulation:   30,
		LargePopulation:    50,
		CrowdPopulation:    100,
		MinGroupSize:       2,
		MinGroupsToShrink:  3,
		SparseGroupSize:    10,
		CrowdImbalance:     0.9,
		SmallPairImbalance: 0.8,
		PairImbalance:      0.6,
		MediumImbalance:    0.6,
		LargeImbalance:     0.5,
		MediumMaxGroups:    4,
		LargeMaxGroups:     6,
	}
}

// Option configures a Policy.
type Option func(*Policy)

// WithThresholds replaces all thresholds.
func WithThresholds(t Thresholds) Option {
	return func(p *Policy) { p.t = t }
}

// Policy maps a clustering outcome to a scaling decision.
type Policy struct {
	t Thresholds
}

// NewPolicy creates a Policy with the given options.
// Unset options use DefaultThresholds.
func NewPolicy(opts ...Option) *Policy {
	p := &Policy{t: DefaultThresholds()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Thresholds returns a copy of the policy's thresholds.
func (p *Policy) Thresholds() Thresholds {
	return p.t
}

type rule struct {
	action Action
	match  func(t *Thresholds, d Distribution) bool
	reason func(t *Thresholds, d Distribution) string
}

// rules are evaluated in order; the first match wins.
var rules = []rule{
	{ // 1
		action: ActionHold,
		match:  func(_ *Thresholds, d Distribution) bool { return d.Groups < 2 },
		reason: func(_ *Thresholds, d Distribution) string {
			return fmt.Sprintf("%d group(s), nothing to compare", d.Groups)
		},
	},
	{ // 2
		action: ActionScaleDown,
		match: func(t *Thresholds, d Distribution) bool {
			return d.Total < t.SmallPopulation && d.MinSize < t.MinGroupSize && d.Groups >= t.MinGroupsToShrink
		},
		reason: func(t *Thresholds, d Distribution) string {
			return fmt.Sprintf("small population %d has a collapsed group of %d across %d groups", d.Total, d.MinSize, d.Groups)
		},
	},
	{ // 3
		action: ActionHold,
		match:  func(t *Thresholds, d Distribution) bool { return d.Total < t.SmallPopulation },
		reason: func(t *Thresholds, d Distribution) string {
			return fmt.Sprintf("small population %d (< %d), spread not judged", d.Total, t.SmallPopulation)
		},
	},
	{ // 4
		action: ActionScaleDown,
		match: func(t *Thresholds, d Distribution) bool {
			return d.MinSize < t.MinGroupSize && d.Groups >= t.MinGroupsToShrink
		},
		reason: func(t *Thresholds, d Distribution) string {
			return fmt.Sprintf("group of %d collapsed across %d groups", d.MinSize, d.Groups)
		},
	},
	{ // 5
		action: ActionScaleDown,
		match: func(t *Thresholds, d Distribution) bool {
			return d.Total > t.CrowdPopulation && d.MinSize < t.SparseGroupSize &&
				d.Imbalance > t.CrowdImbalance && d.Groups > 2
		},
		reason: func(t *Thresholds, d Distribution) string {
			return fmt.Sprintf("imbalance %.3f > %.2f with sparse group of %d across %d groups", d.Imbalance, t.CrowdImbalance, d.MinSize, d.Groups)
		},
	},
	{ // 6
		action: ActionScaleUp,
		match: func(t *Thresholds, d Distribution) bool {
			return d.Groups == 2 && d.Total > t.CrowdPopulation && d.MinSize < t.SparseGroupSize &&
				d.Imbalance > t.CrowdImbalance
		},
		reason: func(t *Thresholds, d Distribution) string {
			return fmt.Sprintf("two groups with imbalance %.3f > %.2f and sparse group of %d", d.Imbalance, t.CrowdImbalance, d.MinSize)
		},
	},
	{ // 7
		action: ActionScaleUp,
		match: func(t *Thresholds, d Distribution) bool {
			return d.Total >= t.SmallPopulation && d.Total < t.PairPopulation && d.Groups == 2 &&
				d.Imbalance > t.SmallPairImbalance && d.MinSize < t.MinGroupSize
		},
		reason: func(t *Thresholds, d Distribution) string {
			return fmt.Sprintf("two groups, one collapsed to %d, imbalance %.3f > %.2f", d.MinSize, d.Imbalance, t.SmallPairImbalance)
		},
	},
	{ // 8
		action: ActionScaleUp,
		match: func(t *Thresholds, d Distribution) bool {
			return d.Total >= t.PairPopulation && d.Total < t.MediumPopulation && d.Groups == 2 &&
				d.Imbalance > t.PairImbalance
		},
		reason: func(t *Thresholds, d Distribution) string {
			return fmt.Sprintf("two groups with imbalance %.3f > %.2f", d.Imbalance, t.PairImbalance)
		},
	},
	{ // 9
		action: ActionScaleUp,
		match: func(t *Thresholds, d Distribution) bool {
			return d.Total >= t.MediumPopulation && d.Groups < t.MediumMaxGroups && d.Imbalance > t.MediumImbalance
		},
		reason: func(t *Thresholds, d Distribution) string {
			return fmt.Sprintf("%d groups with imbalance %.3f > %.2f", d.Groups, d.Imbalance, t.MediumImbalance)
		},
	},
	{ // 10
		action: ActionScaleUp,
		match: func(t *Thresholds, d Distribution) bool {
			return d.Total >= t.LargePopulation && d.Groups < t.LargeMaxGroups && d.Imbalance > t.LargeImbalance
		},
		reason: func(t *Thresholds, d Distribution) string {
			return fmt.Sprintf("%d groups with imbalance %.3f > %.2f", d.Groups, d.Imbalance, t.LargeImbalance)
		},
	},
}

// Decide evaluates the rules against counts and the total population.
func (p *Policy) Decide(counts []int, total int) Decision {
	d := Summarize(counts, total)

	for i, r := range rules {
		if !r.match(&p.t, d) {
			continue
		}
		return Decision{
			Action:       r.action,
			Delta:        delta(r.action),
			Rule:         i + 1,
			Reason:       r.reason(&p.t, d),
			Distribution: d,
		}
	}

	return Decision{
		Action:       ActionHold,
		Reason:       fmt.Sprintf("%d groups balanced enough (imbalance %.3f)", d.Groups, d.Imbalance),
		Distribution: d,
	}
}

func delta(a Action) int {
	switch a {
	case ActionScaleUp:
		return 1
	case ActionScaleDown:
		return -1
	default:
		return 0
	}
}
