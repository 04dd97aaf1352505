package application

import "context"

type sagaDepthKey struct{}

// sagaDepth is the number of saga hops that led to the current dispatch, 0 for a command from outside.
func sagaDepth(ctx context.Context) int {
	depth, _ := ctx.Value(sagaDepthKey{}).(int)
	return depth
}

func withSagaDepth(ctx context.Context, depth int) context.Context {
	return context.WithValue(ctx, sagaDepthKey{}, depth)
}
