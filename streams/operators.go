package streams

// Map transforms each item of source with fn. Demand and terminal signals
// pass through unchanged.
func Map[S, T any](source Publisher[S], fn func(S) T) Publisher[T] {
	return &mapPublisher[S, T]{source: source, fn: fn}
}

// Take re-emits the first k items of source, then cancels the upstream
// subscription and completes downstream, even if the upstream has not
// completed. Demand forwarded upstream never exceeds the remaining budget.
func Take[T any](source Publisher[T], k int) Publisher[T] {
	return &takePublisher[T]{source: source, k: k}
}

// Head is Take(source, 1).
func Head[T any](source Publisher[T]) Publisher[T] {
	return Take(source, 1)
}

// FlatMap maps each item of source to an inner publisher and concatenates
// the inner sequences. Outer items are pulled one at a time; at most one
// inner publisher is active at any time; the active inner receives all
// currently outstanding downstream demand. The result completes only
// after the outer source has completed and the last active inner has
// completed.
func FlatMap[S, T any](source Publisher[S], fn func(S) Publisher[T]) Publisher[T] {
	return &flatMapPublisher[S, T]{source: source, fn: fn}
}

// DoFinally runs fn exactly once when the subscription reaches any of its
// terminal paths: completion, error, or cancellation.
func DoFinally[T any](source Publisher[T], fn func()) Publisher[T] {
	return &doFinallyPublisher[T]{source: source, fn: fn}
}

// map ------------------------------------------------------------------------

type mapPublisher[S, T any] struct {
	source     Publisher[S]
	fn         func(S) T
	subscribed bool
}

func (p *mapPublisher[S, T]) Subscribe(sink Subscriber[T]) {
	claim(&p.subscribed)
	p.source.Subscribe(&mapInstance[S, T]{fn: p.fn, sink: sink})
}

type mapInstance[S, T any] struct {
	fn     func(S) T
	sink   Subscriber[T]
	source Subscription
}

func (m *mapInstance[S, T]) OnSubscribe(s Subscription) {
	m.source = s
	m.sink.OnSubscribe(m)
}

func (m *mapInstance[S, T]) OnNext(v S)        { m.sink.OnNext(m.fn(v)) }
func (m *mapInstance[S, T]) OnError(err error) { m.sink.OnError(err) }
func (m *mapInstance[S, T]) OnComplete()       { m.sink.OnComplete() }
func (m *mapInstance[S, T]) Request(n int)     { m.source.Request(n) }
func (m *mapInstance[S, T]) Cancel()           { m.source.Cancel() }

// take -----------------------------------------------------------------------

type takePublisher[T any] struct {
	source     Publisher[T]
	k          int
	subscribed bool
}

func (p *takePublisher[T]) Subscribe(sink Subscriber[T]) {
	claim(&p.subscribed)
	p.source.Subscribe(&takeInstance[T]{remaining: p.k, sink: sink})
}

type takeInstance[T any] struct {
	remaining   int
	outstanding int
	sink        Subscriber[T]
	source      Subscription
	done        bool
}

func (t *takeInstance[T]) OnSubscribe(s Subscription) {
	t.source = s
	t.sink.OnSubscribe(t)
	if t.remaining <= 0 && !t.done {
		// zero budget: nothing will ever be requested upstream
		t.done = true
		t.source.Cancel()
		t.sink.OnComplete()
	}
}

func (t *takeInstance[T]) OnNext(v T) {
	if t.done {
		return
	}
	t.sink.OnNext(v)
	t.remaining--
	t.outstanding--
	if t.remaining == 0 {
		t.done = true
		t.source.Cancel()
		t.sink.OnComplete()
	}
}

func (t *takeInstance[T]) OnError(err error) {
	if t.done {
		return
	}
	t.done = true
	t.sink.OnError(err)
}

func (t *takeInstance[T]) OnComplete() {
	if t.done {
		return
	}
	t.done = true
	t.sink.OnComplete()
}

func (t *takeInstance[T]) Request(n int) {
	checkDemand(n)
	if t.done {
		return
	}
	actual := t.remaining - t.outstanding
	if n < actual {
		actual = n
	}
	if actual <= 0 {
		return
	}
	t.outstanding += actual
	t.source.Request(actual)
}

func (t *takeInstance[T]) Cancel() {
	if t.done {
		return
	}
	t.done = true
	t.source.Cancel()
}

// flat_map --------------------------------------------------------------------

type flatMapPublisher[S, T any] struct {
	source     Publisher[S]
	fn         func(S) Publisher[T]
	subscribed bool
}

func (p *flatMapPublisher[S, T]) Subscribe(sink Subscriber[T]) {
	claim(&p.subscribed)
	p.source.Subscribe(&flatMapInstance[S, T]{fn: p.fn, sink: sink})
}

// flatMapInstance is the outer subscriber and the downstream subscription.
// Demand is owned here: outstanding counts items still owed downstream,
// innerRequested counts demand already forwarded to the active inner, so
// demand is never double-counted across the outer/inner boundary.
type flatMapInstance[S, T any] struct {
	fn   func(S) Publisher[T]
	sink Subscriber[T]

	source Subscription
	inner  *flatMapInner[S, T]

	status         lifecycle
	inDrain        bool
	sourceDone     bool
	requestedOuter bool
	outstanding    int
	innerRequested int
}

func (f *flatMapInstance[S, T]) OnSubscribe(s Subscription) {
	f.source = s
	f.sink.OnSubscribe(f)
}

func (f *flatMapInstance[S, T]) OnNext(v S) {
	// one outer item at a time, so no inner may be active here
	f.requestedOuter = false
	inner := &flatMapInner[S, T]{parent: f}
	f.inner = inner
	f.innerRequested = 0
	f.fn(v).Subscribe(inner)
	f.drain()
}

func (f *flatMapInstance[S, T]) OnError(err error) {
	if f.status != stateActive {
		return
	}
	f.status = stateTerminating
	if f.inner != nil {
		f.inner.cancel()
		f.inner = nil
	}
	f.sink.OnError(err)
	if !f.inDrain {
		f.finalize()
	}
}

func (f *flatMapInstance[S, T]) OnComplete() {
	f.sourceDone = true
	if f.inner == nil {
		f.complete()
	}
	// otherwise the active inner finishes the sequence
}

func (f *flatMapInstance[S, T]) Request(n int) {
	checkDemand(n)
	if f.status != stateActive {
		return
	}
	f.outstanding += n
	f.drain()
}

func (f *flatMapInstance[S, T]) Cancel() {
	if f.status != stateActive {
		return
	}
	f.status = stateTerminating
	f.source.Cancel()
	if f.inner != nil {
		f.inner.cancel()
		f.inner = nil
	}
	if !f.inDrain {
		f.finalize()
	}
}

func (f *flatMapInstance[S, T]) drain() {
	if f.status != stateActive || f.inDrain {
		return
	}
	f.inDrain = true
	for f.status == stateActive && f.outstanding > 0 {
		if f.inner == nil {
			if f.sourceDone {
				f.complete()
				break
			}
			f.requestedOuter = true
			f.source.Request(1)
			if f.inner == nil && f.requestedOuter {
				// next outer item has not arrived yet
				break
			}
			continue
		}
		want := f.outstanding - f.innerRequested
		if want <= 0 {
			// the active inner already holds all outstanding demand
			break
		}
		f.innerRequested += want
		f.inner.request(want)
	}
	f.inDrain = false
	if f.status == stateTerminating {
		f.finalize()
	}
}

func (f *flatMapInstance[S, T]) complete() {
	if f.status != stateActive {
		return
	}
	f.status = stateTerminating
	f.sink.OnComplete()
	if !f.inDrain {
		f.finalize()
	}
}

func (f *flatMapInstance[S, T]) innerNext(v T) {
	f.outstanding--
	f.innerRequested--
	f.sink.OnNext(v)
}

func (f *flatMapInstance[S, T]) innerComplete() {
	f.inner = nil
	f.innerRequested = 0
	if f.sourceDone {
		f.complete()
		return
	}
	f.drain()
}

func (f *flatMapInstance[S, T]) innerError(err error) {
	if f.status != stateActive {
		return
	}
	f.status = stateTerminating
	f.inner = nil
	f.source.Cancel()
	f.sink.OnError(err)
	if !f.inDrain {
		f.finalize()
	}
}

func (f *flatMapInstance[S, T]) finalize() {
	f.status = stateTerminated
	f.inner = nil
}

// flatMapInner subscribes to one inner publisher and forwards its items
// through the parent's demand accounting.
type flatMapInner[S, T any] struct {
	parent *flatMapInstance[S, T]
	source Subscription
}

func (i *flatMapInner[S, T]) OnSubscribe(s Subscription) { i.source = s }
func (i *flatMapInner[S, T]) OnNext(v T)                 { i.parent.innerNext(v) }
func (i *flatMapInner[S, T]) OnError(err error)          { i.parent.innerError(err) }
func (i *flatMapInner[S, T]) OnComplete()                { i.parent.innerComplete() }

func (i *flatMapInner[S, T]) request(n int) {
	if i.source != nil {
		i.source.Request(n)
	}
}

func (i *flatMapInner[S, T]) cancel() {
	if i.source != nil {
		i.source.Cancel()
	}
}

// do_finally -------------------------------------------------------------------

type doFinallyPublisher[T any] struct {
	source     Publisher[T]
	fn         func()
	subscribed bool
}

func (p *doFinallyPublisher[T]) Subscribe(sink Subscriber[T]) {
	claim(&p.subscribed)
	p.source.Subscribe(&doFinallyInstance[T]{fn: p.fn, sink: sink})
}

type doFinallyInstance[T any] struct {
	fn     func()
	sink   Subscriber[T]
	source Subscription
	fired  bool
}

func (d *doFinallyInstance[T]) OnSubscribe(s Subscription) {
	d.source = s
	d.sink.OnSubscribe(d)
}

func (d *doFinallyInstance[T]) OnNext(v T) { d.sink.OnNext(v) }

func (d *doFinallyInstance[T]) OnError(err error) {
	d.sink.OnError(err)
	d.runFinally()
}

func (d *doFinallyInstance[T]) OnComplete() {
	d.sink.OnComplete()
	d.runFinally()
}

func (d *doFinallyInstance[T]) Request(n int) { d.source.Request(n) }

func (d *doFinallyInstance[T]) Cancel() {
	d.source.Cancel()
	d.runFinally()
}

func (d *doFinallyInstance[T]) runFinally() {
	if d.fired {
		return
	}
	d.fired = true
	d.fn()
}
