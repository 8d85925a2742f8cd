package routine

import "context"

// Func adapts a plain function into a Routine.
func Func(meta Meta, fn func(ctx context.Context, s Sailer) (Result, error)) Routine {
	return funcRoutine{meta: meta, fn: fn}
}

type funcRoutine struct {
	meta Meta
	fn   func(ctx context.Context, s Sailer) (Result, error)
}

func (r funcRoutine) Meta() Meta { return r.meta }

func (r funcRoutine) Start(ctx context.Context, s Sailer) (Result, error) {
	return r.fn(ctx, s)
}
