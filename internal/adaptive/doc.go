// Package adaptive runs the clustering engine with self-correcting group
// counts.
//
// The [Controller] makes a first engine call bounded by the caller's
// maximum group count, measures how evenly participants landed across the
// groups, and asks the scaling policy whether the count should change. When
// the policy asks for one more or one fewer group, a single retry is made
// with the group count forced to the new value. The controller then keeps
// whichever of the two results is more balanced, so a retry can never make
// the outcome worse.
//
// # Engine Calls
//
// A solve makes at most two engine calls:
//
//   - The first call uses max_group_count and lets the engine pick the count.
//   - The second call, if any, uses force_group_count = max(2, n + delta)
//     where n is the first result's group count.
//
// If the engine reports insufficient data on either call, the solve returns
// the empty result without an error.
//
// # Basic Usage
//
//	ctrl := adaptive.NewController(eng,
//	    adaptive.WithPolicy(scaling.NewPolicy()),
//	    adaptive.WithLogger(logger),
//	)
//	res, err := ctrl.Solve(ctx, votes, 4, 6)
//
// # Thread Safety
//
// A [Controller] holds no per-solve state and may be shared between
// goroutines as long as its engine, logger and recorder are safe for
// concurrent use.
package adaptive
