package engine

import "context"

// Engine runs one clustering pass.
//
// Run returns an error wrapping errors.ErrInsufficientData when the votes
// cannot support any grouping. Any other error is a real failure.
type Engine interface {
	Run(ctx context.Context, req Request) (*RawResult, error)
}

// Func adapts an ordinary function to the Engine interface.
type Func func(ctx context.Context, req Request) (*RawResult, error)

// Run calls f(ctx, req).
func (f Func) Run(ctx context.Context, req Request) (*RawResult, error) {
	return f(ctx, req)
}
