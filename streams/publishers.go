package streams

import "sync/atomic"

// GeneratorFunc produces up to n items into sink from state. It may call
// sink.OnComplete or sink.OnError to terminate the sequence. It must not
// emit more than n items per invocation.
type GeneratorFunc[S, T any] func(state *S, n int, sink Observer[T])

// Generate builds a cold, exact-demand publisher from a stateful
// generator. create runs once per subscription, so every subscription
// gets fresh state. The generator is never asked for more items than the
// subscriber's outstanding demand permits.
func Generate[S, T any](create func() *S, gen GeneratorFunc[S, T]) Publisher[T] {
	return &generatorPublisher[S, T]{create: create, gen: gen}
}

// Of emits the given values in order, then completes.
func Of[T any](values ...T) Publisher[T] {
	type ofState struct {
		data []T
		idx  int
	}
	return Generate(
		func() *ofState { return &ofState{data: values} },
		func(s *ofState, n int, sink Observer[T]) {
			for i := 0; i < n && s.idx < len(s.data); i++ {
				sink.OnNext(s.data[s.idx])
				s.idx++
			}
			if s.idx == len(s.data) {
				sink.OnComplete()
			}
		})
}

// Range emits the integers [from, to) in order, then completes.
func Range(from, to int) Publisher[int] {
	return Generate(
		func() *int { v := from; return &v },
		func(cur *int, n int, sink Observer[int]) {
			for i := 0; i < n && *cur < to; i++ {
				sink.OnNext(*cur)
				*cur++
			}
			if *cur >= to {
				sink.OnComplete()
			}
		})
}

// Empty completes immediately without emitting.
func Empty[T any]() Publisher[T] {
	return &emptyPublisher[T]{}
}

// Error fails immediately with err.
func Error[T any](err error) Publisher[T] {
	return &errorPublisher[T]{err: err}
}

// Async wraps an externally driven producer as a hot, best-effort
// publisher. init receives the Observer the producer should push into;
// emissions that arrive with no outstanding demand are dropped rather
// than delivered or queued. This is deliberate: live, high-rate sources
// (camera feeds, inbound channel data) must not buffer unboundedly, and
// a stale frame is worth less than a fresh one. The subscription handed
// to the subscriber implements DropCounter.
func Async[T any](init func(Observer[T])) Publisher[T] {
	return &asyncPublisher[T]{init: init}
}

// Merge concatenates the given publishers: each is consumed to completion
// before the next is subscribed. It is sequential, not concurrent.
func Merge[T any](pubs ...Publisher[T]) Publisher[T] {
	return FlatMap(Of(pubs...), func(p Publisher[T]) Publisher[T] { return p })
}

// generator publisher ------------------------------------------------------

type generatorPublisher[S, T any] struct {
	create     func() *S
	gen        GeneratorFunc[S, T]
	subscribed bool
}

func (p *generatorPublisher[S, T]) Subscribe(s Subscriber[T]) {
	claim(&p.subscribed)
	s.OnSubscribe(&generatorSubscription[S, T]{
		gen:   p.gen,
		sink:  s,
		state: p.create(),
	})
}

// generatorSubscription drives a generator under demand. It is both the
// Subscription seen downstream and the Observer the generator emits into.
type generatorSubscription[S, T any] struct {
	gen   GeneratorFunc[S, T]
	sink  Subscriber[T]
	state *S

	status      lifecycle
	inDrain     bool
	outstanding int
}

func (g *generatorSubscription[S, T]) Request(n int) {
	checkDemand(n)
	if g.status != stateActive {
		return
	}
	g.outstanding += n
	g.drain()
}

func (g *generatorSubscription[S, T]) drain() {
	if g.inDrain {
		// reentrant call from inside the generator
		return
	}
	g.inDrain = true
	for g.status == stateActive && g.outstanding > 0 {
		before := g.outstanding
		g.gen(g.state, g.outstanding, g)
		if g.status == stateActive && g.outstanding == before {
			// no progress: the generator has nothing to emit right now,
			// demand stays outstanding until it can
			break
		}
	}
	g.inDrain = false
	if g.status == stateTerminating {
		g.finalize()
	}
}

func (g *generatorSubscription[S, T]) Cancel() {
	if g.status != stateActive {
		return
	}
	g.status = stateTerminating
	if !g.inDrain {
		g.finalize()
	}
}

func (g *generatorSubscription[S, T]) finalize() {
	g.status = stateTerminated
	g.state = nil
}

func (g *generatorSubscription[S, T]) OnNext(t T) {
	g.outstanding--
	g.sink.OnNext(t)
}

func (g *generatorSubscription[S, T]) OnError(err error) {
	if g.status != stateActive {
		return
	}
	g.status = stateTerminating
	g.sink.OnError(err)
	if !g.inDrain {
		g.finalize()
	}
}

func (g *generatorSubscription[S, T]) OnComplete() {
	if g.status != stateActive {
		return
	}
	g.status = stateTerminating
	g.sink.OnComplete()
	if !g.inDrain {
		g.finalize()
	}
}

// empty / error publishers -------------------------------------------------

type nopSubscription struct{}

func (nopSubscription) Request(int) {}
func (nopSubscription) Cancel()     {}

type emptyPublisher[T any] struct {
	subscribed bool
}

func (p *emptyPublisher[T]) Subscribe(s Subscriber[T]) {
	claim(&p.subscribed)
	s.OnSubscribe(nopSubscription{})
	s.OnComplete()
}

type errorPublisher[T any] struct {
	err        error
	subscribed bool
}

func (p *errorPublisher[T]) Subscribe(s Subscriber[T]) {
	claim(&p.subscribed)
	s.OnSubscribe(nopSubscription{})
	s.OnError(p.err)
}

// async publisher -----------------------------------------------------------

type asyncPublisher[T any] struct {
	init       func(Observer[T])
	subscribed bool
}

func (p *asyncPublisher[T]) Subscribe(s Subscriber[T]) {
	claim(&p.subscribed)
	sub := &asyncSubscription[T]{sink: s}
	p.init(sub)
	s.OnSubscribe(sub)
}

// asyncSubscription bridges an external producer to a subscriber. The
// producer may run on any goroutine, so demand accounting is atomic.
type asyncSubscription[T any] struct {
	sink        Subscriber[T]
	outstanding atomic.Int64
	done        atomic.Bool
	dropped     atomic.Int64
}

func (a *asyncSubscription[T]) Request(n int) {
	checkDemand(n)
	a.outstanding.Add(int64(n))
}

func (a *asyncSubscription[T]) Cancel() {
	a.done.Store(true)
}

// Dropped implements DropCounter.
func (a *asyncSubscription[T]) Dropped() int64 {
	return a.dropped.Load()
}

func (a *asyncSubscription[T]) OnNext(t T) {
	if a.done.Load() {
		return
	}
	if a.outstanding.Add(-1) < 0 {
		a.outstanding.Add(1)
		a.dropped.Add(1)
		return
	}
	a.sink.OnNext(t)
}

func (a *asyncSubscription[T]) OnError(err error) {
	if a.done.CompareAndSwap(false, true) {
		a.sink.OnError(err)
	}
}

func (a *asyncSubscription[T]) OnComplete() {
	if a.done.CompareAndSwap(false, true) {
		a.sink.OnComplete()
	}
}
