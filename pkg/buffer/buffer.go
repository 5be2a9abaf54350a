// Package buffer provides a generic, thread-safe circular buffer with
// configurable overflow policies. It backs components that must absorb
// bursts without unbounded growth, such as the bot message buffer that
// accumulates analysis output between frame callbacks.
package buffer

// Buffer is a generic bounded buffer.
type Buffer[T any] interface {
	// Write adds an item to the buffer. Behavior when the buffer is full
	// depends on the overflow policy.
	Write(item T) error

	// Read retrieves and removes one item from the buffer.
	// Returns the zero value and false if the buffer is empty.
	Read() (T, bool)

	// ReadBatch retrieves and removes up to max items from the buffer.
	ReadBatch(max int) []T

	// Size returns the current number of items in the buffer.
	Size() int

	// Capacity returns the maximum number of items the buffer can hold.
	Capacity() int

	// Clear removes all items from the buffer.
	Clear()

	// Stats returns buffer statistics.
	Stats() Statistics
}

// OverflowPolicy defines how the buffer behaves when it reaches capacity.
type OverflowPolicy int

const (
	// DropOldest removes the oldest item to make room for new items.
	DropOldest OverflowPolicy = iota

	// DropNewest drops new items when the buffer is full.
	DropNewest
)

// String returns a human-readable representation of the overflow policy.
func (p OverflowPolicy) String() string {
	switch p {
	case DropOldest:
		return "DropOldest"
	case DropNewest:
		return "DropNewest"
	default:
		return "Unknown"
	}
}

// Statistics tracks buffer activity counters.
type Statistics struct {
	Writes    int64
	Reads     int64
	Drops     int64
	Overflows int64
}

// New creates a circular buffer with the given capacity.
func New[T any](capacity int, opts ...Option[T]) Buffer[T] {
	options := defaultOptions[T]()
	for _, opt := range opts {
		opt(options)
	}
	return newCircularBuffer(capacity, options)
}
