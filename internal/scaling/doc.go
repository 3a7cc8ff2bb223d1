// Package scaling decides whether a clustering outcome should be retried
// with a different number of opinion groups.
//
// The inputs are the realized group sizes of one clustering attempt (the
// member-count vector) and the total number of grouped participants. Two
// pieces live here:
//
//   - [Imbalance]: the population coefficient of variation of the group
//     sizes; 0 means perfectly even groups.
//   - [Policy]: an ordered list of rules mapping (counts, total) to a
//     [Decision] of scale up, scale down, or hold. The first rule that
//     matches wins, so rule order is part of the contract.
//
// Small populations are judged only by whether a group collapsed to a
// single member. Larger populations are judged by an imbalance threshold
// that tightens as the population grows. Every numeric breakpoint is a
// field of [Thresholds] and can be tuned independently.
//
// # Usage
//
//	policy := scaling.NewPolicy(scaling.WithThresholds(cfg.Scaling.Thresholds()))
//	d := policy.Decide([]int{110, 5}, 115)
//	// d.Action == scaling.ActionScaleUp, d.Delta == +1, d.Rule == 6
//
// # Thread Safety
//
// [Policy] is immutable after construction and safe for concurrent use.
package scaling
