package api

import (
	"fmt"

	"github.com/zkorum/agora/internal/engine"
	"github.com/zkorum/agora/internal/errors"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-Id"

// MathRequest is the body of POST /math.
type MathRequest struct {
	ConversationSlugID string              `json:"conversation_slug_id"`
	ConversationID     *int64              `json:"conversation_id"`
	Votes              []engine.VoteRecord `json:"votes"`
}

// Validate reports the first missing or malformed field.
func (r *MathRequest) Validate() error {
	if r.ConversationSlugID == "" {
		return errors.NewValidationError("is required").WithField("conversation_slug_id")
	}
	if r.ConversationID == nil {
		return errors.NewValidationError("is required").WithField("conversation_id")
	}
	if r.Votes == nil {
		return errors.NewValidationError("is required").WithField("votes")
	}
	return ValidateVotes(r.Votes)
}

// ValidateVotes checks that every vote names a participant and a statement.
func ValidateVotes(votes []engine.VoteRecord) error {
	for i, v := range votes {
		if v.ParticipantID.IsZero() {
			return errors.NewValidationError("is required").WithField(fmt.Sprintf("votes[%d].participant_id", i))
		}
		if v.StatementID.IsZero() {
			return errors.NewValidationError("is required").WithField(fmt.Sprintf("votes[%d].statement_id", i))
		}
	}
	return nil
}

// ErrorResponse is the body of every non-200 /math response.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}
