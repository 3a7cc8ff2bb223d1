// Package api serves the clustering controller over HTTP.
//
// Routes:
//
//	POST /math     solve a conversation's votes, respond with the canonical result
//	GET  /health   liveness probe
//	GET  /metrics  Prometheus metrics
//
// Solves are bounded by a weighted semaphore sized to the configured worker
// count; excess requests wait for a slot until their deadline.
// Successful non-empty results are cached for a short time, keyed by a hash
// of the request inputs.
package api
