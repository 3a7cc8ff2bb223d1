package result

// Record is one flattened row: field name to plain value.
type Record map[string]any

// Consensus holds statements with broad cross-group agreement or disagreement.
type Consensus struct {
	Agree    []Record `json:"agree"`
	Disagree []Record `json:"disagree"`
}

// CanonicalResult is the normalized clustering result.
type CanonicalResult struct {
	Statements        []Record            `json:"statements_df"`
	Participants      []Record            `json:"participants_df"`
	Repness           map[string][]Record `json:"repness"`
	GroupCommentStats map[string][]Record `json:"group_comment_stats"`
	Consensus         Consensus           `json:"consensus"`
}

// Empty returns the result reported when clustering is impossible.
// Every collection is present and empty so it serializes as [] or {}.
func Empty() *CanonicalResult {
	return &CanonicalResult{
		Statements:        []Record{},
		Participants:      []Record{},
		Repness:           map[string][]Record{},
		GroupCommentStats: map[string][]Record{},
		Consensus: Consensus{
			Agree:    []Record{},
			Disagree: []Record{},
		},
	}
}

// IsEmpty reports whether r carries no clustering data at all.
func (r *CanonicalResult) IsEmpty() bool {
	return len(r.Statements) == 0 && len(r.Participants) == 0 &&
		len(r.Repness) == 0 && len(r.GroupCommentStats) == 0 &&
		len(r.Consensus.Agree) == 0 && len(r.Consensus.Disagree) == 0
}
