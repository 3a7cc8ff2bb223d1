package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is a participant, statement or conversation identifier. On the wire
// it may be a JSON string or a JSON integer; the original form is kept so
// it round-trips to the engine unchanged.
type ID struct {
	raw     string
	numeric bool
}

// StringID returns a string identifier.
func StringID(s string) ID {
	return ID{raw: s}
}

// IntID returns an integer identifier.
func IntID(n int64) ID {
	return ID{raw: strconv.FormatInt(n, 10), numeric: true}
}

// IsZero reports whether the identifier was never set.
func (id ID) IsZero() bool {
	return id.raw == "" && !id.numeric
}

// IsNumeric reports whether the identifier is an integer.
func (id ID) IsNumeric() bool {
	return id.numeric
}

// String returns the identifier's text.
func (id ID) String() string {
	return id.raw
}

// MarshalJSON implements json.Marshaler.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.numeric {
		return []byte(id.raw), nil
	}
	return json.Marshal(id.raw)
}

// UnmarshalJSON implements json.Unmarshaler. Only strings and integers
// are accepted.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = StringID(s)
		return nil
	}

	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("identifier must be a string or an integer, got %s", data)
	}
	*id = IntID(n)
	return nil
}

// VoteRecord is one participant's vote on one statement.
type VoteRecord struct {
	ParticipantID  ID       `json:"participant_id"`
	StatementID    ID       `json:"statement_id"`
	Vote           int      `json:"vote"`
	ConversationID *ID      `json:"conversation_id,omitempty"`
	Datetime       *string  `json:"datetime,omitempty"`
	Modified       *float64 `json:"modified,omitempty"`
	WeightX32767   *int     `json:"weight_x_32767,omitempty"`
}

// Constraint is the group-count constraint of one engine call: either an
// upper bound or an exact forced count, never both.
type Constraint struct {
	count  int
	forced bool
}

// MaxGroups lets the engine pick any group count up to n.
func MaxGroups(n int) Constraint {
	return Constraint{count: n}
}

// ForceGroups demands exactly n groups.
func ForceGroups(n int) Constraint {
	return Constraint{count: n, forced: true}
}

// Count returns the bound or the forced count.
func (c Constraint) Count() int {
	return c.count
}

// Forced reports whether the count is exact.
func (c Constraint) Forced() bool {
	return c.forced
}

// Kind returns "force" or "max".
func (c Constraint) Kind() string {
	if c.forced {
		return "force"
	}
	return "max"
}

// String renders the constraint the way it is sent to the engine.
func (c Constraint) String() string {
	if c.forced {
		return fmt.Sprintf("force_group_count=%d", c.count)
	}
	return fmt.Sprintf("max_group_count=%d", c.count)
}

// Request is the input of one engine invocation.
type Request struct {
	Votes            []VoteRecord
	MinVoteThreshold int
	Constraint       Constraint
}

// Frame is a table as emitted by the engine: optional index columns
// (one tuple per row, or a bare scalar for a single-level index) followed
// by data columns.
type Frame struct {
	IndexNames []string `json:"index_names,omitempty"`
	Index      []any    `json:"index,omitempty"`
	Columns    []string `json:"columns"`
	Data       [][]any  `json:"data"`
}

// Consensus holds statements with broad cross-group agreement or disagreement.
type Consensus struct {
	Agree    []map[string]any `json:"agree"`
	Disagree []map[string]any `json:"disagree"`
}

// RawResult is the engine's output before normalization.
type RawResult struct {
	Statements   Frame `json:"statements"`
	Participants Frame `json:"participants"`
	// GroupCommentStats is indexed by (group_id, statement_id).
	GroupCommentStats Frame                       `json:"group_comment_stats"`
	Repness           map[string][]map[string]any `json:"repness"`
	Consensus         Consensus                   `json:"consensus"`
}
