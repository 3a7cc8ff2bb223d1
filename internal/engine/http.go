package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zkorum/agora/internal/errors"
)

// Compile-time interface check.
var _ Engine = (*HTTPEngine)(nil)

// ClusterPath is the engine endpoint that runs one clustering pass.
const ClusterPath = "/cluster"

// maxErrorBody bounds how much of a failed response is kept in the error.
const maxErrorBody = 4 << 10

// HTTPEngine runs the clustering engine over HTTP/JSON.
type HTTPEngine struct {
	baseURL string
	http    *http.Client
}

// ClientOption configures an HTTPEngine.
type ClientOption func(*HTTPEngine)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(e *HTTPEngine) {
		e.http.Timeout = d
	}
}

// WithHTTPClient replaces the underlying *http.Client entirely.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(e *HTTPEngine) {
		e.http = hc
	}
}

// NewHTTPEngine creates an engine client for the service at baseURL.
func NewHTTPEngine(baseURL string, opts ...ClientOption) *HTTPEngine {
	e := &HTTPEngine{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 240 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// clusterRequest is the wire form of Request. Exactly one of the group
// count fields is set.
type clusterRequest struct {
	Votes                []VoteRecord `json:"votes"`
	MinUserVoteThreshold int          `json:"min_user_vote_threshold"`
	MaxGroupCount        *int         `json:"max_group_count,omitempty"`
	ForceGroupCount      *int         `json:"force_group_count,omitempty"`
}

func newClusterRequest(req Request) clusterRequest {
	votes := req.Votes
	if votes == nil {
		votes = []VoteRecord{}
	}
	wire := clusterRequest{
		Votes:                votes,
		MinUserVoteThreshold: req.MinVoteThreshold,
	}
	n := req.Constraint.Count()
	if req.Constraint.Forced() {
		wire.ForceGroupCount = &n
	} else {
		wire.MaxGroupCount = &n
	}
	return wire
}

// Run posts req to the engine and decodes its RawResult.
//
// A 422 response means the engine found too little data and maps to
// errors.ErrInsufficientData. Other non-2xx responses become an
// *errors.EngineError; transport failures wrap errors.ErrEngineUnavailable.
func (e *HTTPEngine) Run(ctx context.Context, req Request) (*RawResult, error) {
	body, err := json.Marshal(newClusterRequest(req))
	if err != nil {
		return nil, errors.Wrap(err, "engine: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+ClusterPath, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "engine: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := e.http.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Wrapf(ctxErr, "engine: %s", req.Constraint)
		}
		return nil, fmt.Errorf("%w: %v", errors.ErrEngineUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnprocessableEntity:
		io.Copy(io.Discard, resp.Body)
		return nil, errors.NewEngineError("not enough data to cluster", errors.ErrInsufficientData).
			WithStatusCode(resp.StatusCode).
			WithConstraint(req.Constraint.String())
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, errors.NewEngineError(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), nil).
			WithStatusCode(resp.StatusCode).
			WithConstraint(req.Constraint.String())
	}

	var raw RawResult
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decode engine response: %v", errors.ErrMalformedResult, err)
	}
	return &raw, nil
}
