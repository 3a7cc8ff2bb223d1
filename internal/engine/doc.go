// Package engine defines the contract of the external clustering engine
// and an HTTP client for it.
//
// The engine takes a vote matrix (as [VoteRecord]s), a minimum number of
// votes a participant needs to be included, and exactly one group-count
// [Constraint]: either an upper bound it may choose below, or an exact
// count it must produce. It answers with a [RawResult] (tabular frames plus
// representativeness and consensus structures) or with an error wrapping
// errors.ErrInsufficientData when there is not enough data to cluster.
//
// Nothing in this repository reproduces the engine's math; callers depend
// only on the [Engine] interface. [HTTPEngine] talks to a remote engine,
// and [Func] adapts a plain function (used heavily in tests).
package engine
