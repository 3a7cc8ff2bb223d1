package scaling

// Action represents a scaling decision action.
type Action string

const (
	// ActionScaleUp requests one more group than was realized.
	ActionScaleUp Action = "scale_up"

	// ActionScaleDown requests one fewer group than was realized.
	ActionScaleDown Action = "scale_down"

	// ActionHold keeps the current outcome.
	ActionHold Action = "hold"
)

// String returns the string representation of the action.
func (a Action) String() string {
	return string(a)
}

// Decision is the result of evaluating the scaling policy against one
// clustering outcome.
type Decision struct {
	// Action is the recommended scaling action.
	Action Action

	// Delta is the change to apply to the realized group count:
	// +1 for scale up, -1 for scale down, 0 for hold.
	Delta int

	// Rule is the 1-based position of the rule that fired, or 0 when no
	// rule matched and the policy fell through to hold.
	Rule int

	// Reason is a human-readable explanation of the decision.
	Reason string

	// Distribution is the summary the rules were evaluated against.
	Distribution Distribution
}

// Distribution summarizes a member-count vector.
type Distribution struct {
	Groups    int     // number of realized groups
	Total     int     // population the policy was asked about
	MinSize   int     // smallest group; 0 when there are no groups
	Imbalance float64 // coefficient of variation of the group sizes
}
