package buffer

// Option configures a buffer at construction time.
type Option[T any] func(*bufferOptions[T])

type bufferOptions[T any] struct {
	overflowPolicy OverflowPolicy
	dropCallback   func(T)
}

func defaultOptions[T any]() *bufferOptions[T] {
	return &bufferOptions[T]{
		overflowPolicy: DropOldest,
	}
}

// WithOverflowPolicy sets the behavior when the buffer is full.
func WithOverflowPolicy[T any](policy OverflowPolicy) Option[T] {
	return func(o *bufferOptions[T]) {
		o.overflowPolicy = policy
	}
}

// WithDropCallback registers a callback invoked with each dropped item.
func WithDropCallback[T any](fn func(T)) Option[T] {
	return func(o *bufferOptions[T]) {
		o.dropCallback = fn
	}
}
