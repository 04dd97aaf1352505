package application

import "context"

// ActionPublisher publishes one saga generated action, e.g. a command.
type ActionPublisher[A any] interface {
	Publish(ctx context.Context, action A) error
}

// ActionPublisherFunc adapts a function to an ActionPublisher.
type ActionPublisherFunc[A any] func(ctx context.Context, action A) error

func (f ActionPublisherFunc[A]) Publish(ctx context.Context, action A) error {
	return f(ctx, action)
}

// Dispatcher routes a command to the runtime that handles it, e.g. a command bus.
type Dispatcher[C any] interface {
	Dispatch(ctx context.Context, command C) error
}

// LocalActionPublisher publishes by dispatching in the same process.
type LocalActionPublisher[A any] struct {
	dispatcher Dispatcher[A]
}

func NewLocalActionPublisher[A any](dispatcher Dispatcher[A]) LocalActionPublisher[A] {
	return LocalActionPublisher[A]{dispatcher: dispatcher}
}

func (p LocalActionPublisher[A]) Publish(ctx context.Context, action A) error {
	return p.dispatcher.Dispatch(ctx, action)
}
