package streams

// Publisher is a lazy producer of a sequence of T, emitting according to
// the demand received from its Subscriber.
//
// Publishers are single-subscription: exactly one Subscribe call is valid
// over a Publisher's lifetime. A second call is a contract violation and
// panics.
type Publisher[T any] interface {
	// Subscribe starts the flow of data. The subscriber receives exactly
	// one OnSubscribe before any other signal.
	Subscribe(s Subscriber[T])
}

// Subscriber receives exactly one OnSubscribe, then zero or more OnNext
// calls, then exactly one terminal signal (OnComplete or OnError). No
// signal is delivered after a terminal signal.
type Subscriber[T any] interface {
	OnSubscribe(s Subscription)
	OnNext(t T)
	OnError(err error)
	OnComplete()
}

// Subscription is the flow-control handle for one Publisher/Subscriber
// pairing. Request adds demand; Cancel releases the subscription. Cancel
// is idempotent and safe to call reentrantly from inside signal delivery.
type Subscription interface {
	Request(n int)
	Cancel()
}

// Observer is the emission sink handed to source implementations. Unlike
// Subscriber it carries no flow-control responsibility; the surrounding
// subscription enforces demand.
type Observer[T any] interface {
	OnNext(t T)
	OnError(err error)
	OnComplete()
}

// DropCounter is implemented by subscriptions of best-effort sources.
// Dropped reports how many emissions were discarded for lack of demand.
type DropCounter interface {
	Dropped() int64
}

// lifecycle is the explicit ownership tag for a subscription instance.
// Terminal transitions raised inside a drain loop move the instance to
// terminating; the loop resolves it to terminated once it unwinds.
type lifecycle int

const (
	stateActive lifecycle = iota
	stateTerminating
	stateTerminated
)

// claim marks a publisher as consumed. Publishers are single-subscription.
func claim(subscribed *bool) {
	if *subscribed {
		panic("streams: publisher already subscribed, publishers are single-subscription")
	}
	*subscribed = true
}

// checkDemand validates a Request argument.
func checkDemand(n int) {
	if n < 1 {
		panic("streams: Request demand must be at least 1")
	}
}

// SubscriberFuncs assembles a Subscriber from individual functions.
// Nil fields are safe: missing handlers are no-ops.
type SubscriberFuncs[T any] struct {
	Subscribed func(Subscription)
	Next       func(T)
	Error      func(error)
	Complete   func()
}

// OnSubscribe implements Subscriber.
func (s *SubscriberFuncs[T]) OnSubscribe(sub Subscription) {
	if s.Subscribed != nil {
		s.Subscribed(sub)
	}
}

// OnNext implements Subscriber.
func (s *SubscriberFuncs[T]) OnNext(t T) {
	if s.Next != nil {
		s.Next(t)
	}
}

// OnError implements Subscriber.
func (s *SubscriberFuncs[T]) OnError(err error) {
	if s.Error != nil {
		s.Error(err)
	}
}

// OnComplete implements Subscriber.
func (s *SubscriberFuncs[T]) OnComplete() {
	if s.Complete != nil {
		s.Complete()
	}
}

// Process drains src one item at a time, invoking onNext for each item and
// exactly one of onComplete or onError at the end. Nil callbacks are
// skipped. It is the standard way to terminate an operator chain in an
// external sink.
func Process[T any](src Publisher[T], onNext func(T), onComplete func(), onError func(error)) {
	var source Subscription
	src.Subscribe(&SubscriberFuncs[T]{
		Subscribed: func(s Subscription) {
			source = s
			source.Request(1)
		},
		Next: func(t T) {
			if onNext != nil {
				onNext(t)
			}
			source.Request(1)
		},
		Complete: onComplete,
		Error:    onError,
	})
}
