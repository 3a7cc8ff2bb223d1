package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/zkorum/agora/internal/adaptive"
	"github.com/zkorum/agora/internal/errors"
	"github.com/zkorum/agora/internal/logging"
)

const (
	// maxBodyBytes bounds a /math request body.
	maxBodyBytes = 256 << 20

	// retryAfterSeconds is advertised on transient 503 responses.
	retryAfterSeconds = "5"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleMath(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, requestID)
	log := s.logger.WithRequest(requestID)

	status, body := s.solve(w, r, log)
	if status != http.StatusOK {
		if err, ok := body.(error); ok {
			if status == http.StatusServiceUnavailable && errors.IsRetryable(err) {
				w.Header().Set("Retry-After", retryAfterSeconds)
			}
			body = errorResponse(err, status, requestID)
		}
	}
	s.metrics.Request(status)
	writeJSON(w, status, body)
}

// solve returns the status and either the result or the error to report.
func (s *Server) solve(w http.ResponseWriter, r *http.Request, log *logging.Logger) (int, any) {
	var req MathRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		log.Warn("rejected request body", "error", err)
		return http.StatusBadRequest, errors.NewValidationError("request body is not valid JSON").WithCause(err)
	}
	if err := req.Validate(); err != nil {
		log.Warn("rejected request", "error", err)
		return http.StatusBadRequest, err
	}
	log = log.WithConversation(req.ConversationSlugID, *req.ConversationID)
	log.Info("math request", "votes", len(req.Votes))

	// One policy for both the cache key and the solve, so a concurrent
	// reload cannot file a result under the wrong thresholds.
	policy := s.Policy()

	var key CacheKey
	if s.cache != nil {
		var err error
		key, err = NewCacheKey(*req.ConversationID, req.Votes, s.cfg.MinVoteThreshold, s.cfg.MaxGroupCount, policy.Thresholds())
		if err != nil {
			return http.StatusInternalServerError, errors.Wrap(err, "hash request")
		}
		if res, ok := s.cache.Get(key); ok {
			s.metrics.CacheLookup(true)
			log.Info("served cached result")
			return http.StatusOK, res
		}
		s.metrics.CacheLookup(false)
	}

	ctx := r.Context()
	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	if err := s.workers.Acquire(ctx, 1); err != nil {
		log.Warn("no solve slot available", "error", err)
		return http.StatusServiceUnavailable, errors.NewTimeoutError("waiting for a solve slot", s.cfg.RequestTimeout).WithCause(err)
	}
	defer s.workers.Release(1)
	defer s.metrics.TrackInFlight()()

	ctrl := adaptive.NewController(s.engine,
		adaptive.WithPolicy(policy),
		adaptive.WithLogger(log),
		adaptive.WithRecorder(s.metrics),
		adaptive.WithGroupField(s.cfg.GroupField),
	)
	res, err := ctrl.Solve(ctx, req.Votes, s.cfg.MinVoteThreshold, s.cfg.MaxGroupCount)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = errors.NewTimeoutError("solve", s.cfg.RequestTimeout).WithCause(err)
		}
		return statusFor(err), err
	}

	if s.cache != nil && !res.IsEmpty() {
		s.cache.Put(key, res)
	}
	return http.StatusOK, res
}

// statusFor maps a solve error to an HTTP status. Engine failures that may
// succeed later are 503; the rest are 502.
func statusFor(err error) int {
	var engErr *errors.EngineError
	switch {
	case errors.Is(err, errors.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	case errors.As(err, &engErr), errors.Is(err, errors.ErrEngineUnavailable):
		if errors.IsRetryable(err) {
			return http.StatusServiceUnavailable
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorResponse hides internal detail unless the error is meant for clients.
func errorResponse(err error, status int, requestID string) ErrorResponse {
	msg := http.StatusText(status)
	if errors.IsUserFacing(err) {
		msg = err.Error()
	}
	return ErrorResponse{Error: msg, RequestID: requestID}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
