// Package result turns the engine's raw output into the canonical,
// serialization-ready result returned to callers.
//
// Every tabular frame is flattened into a list of plain records with its
// index columns promoted to ordinary fields. Group comment statistics are
// bucketed by group id. All values are reduced to JSON primitives, and
// non-finite floats become null.
package result
