package streams

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder captures every signal a publisher delivers. If requestOnSubscribe
// is nonzero it issues that demand from inside OnSubscribe.
type recorder[T any] struct {
	sub                Subscription
	items              []T
	completes          int
	errs               []error
	requestOnSubscribe int
}

func (r *recorder[T]) OnSubscribe(s Subscription) {
	r.sub = s
	if r.requestOnSubscribe > 0 {
		s.Request(r.requestOnSubscribe)
	}
}

func (r *recorder[T]) OnNext(t T)        { r.items = append(r.items, t) }
func (r *recorder[T]) OnError(err error) { r.errs = append(r.errs, err) }
func (r *recorder[T]) OnComplete()       { r.completes++ }

func (r *recorder[T]) terminalCount() int { return r.completes + len(r.errs) }

func TestOf_EmitsAllThenCompletes(t *testing.T) {
	var got []int
	var completed bool

	Process(Of(1, 2, 3), func(v int) { got = append(got, v) },
		func() { completed = true }, nil)

	assert.Equal(t, []int{1, 2, 3}, got)
	assert.True(t, completed)
}

func TestRange_RespectsDemand(t *testing.T) {
	rec := &recorder[int]{}
	Range(0, 5).Subscribe(rec)

	require.NotNil(t, rec.sub)
	assert.Empty(t, rec.items, "nothing may be emitted before demand arrives")

	rec.sub.Request(2)
	assert.Equal(t, []int{0, 1}, rec.items)
	assert.Zero(t, rec.terminalCount())

	rec.sub.Request(3)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, rec.items)
	assert.Equal(t, 1, rec.completes)
	assert.Empty(t, rec.errs)
}

func TestRange_ExcessDemandCompletesOnce(t *testing.T) {
	rec := &recorder[int]{requestOnSubscribe: 100}
	Range(0, 3).Subscribe(rec)

	assert.Equal(t, []int{0, 1, 2}, rec.items)
	assert.Equal(t, 1, rec.terminalCount())
}

func TestEmpty(t *testing.T) {
	rec := &recorder[string]{}
	Empty[string]().Subscribe(rec)

	require.NotNil(t, rec.sub, "OnSubscribe must precede the terminal signal")
	assert.Empty(t, rec.items)
	assert.Equal(t, 1, rec.completes)
}

func TestError(t *testing.T) {
	boom := errors.New("boom")
	rec := &recorder[string]{}
	Error[string](boom).Subscribe(rec)

	require.NotNil(t, rec.sub)
	require.Len(t, rec.errs, 1)
	assert.ErrorIs(t, rec.errs[0], boom)
	assert.Zero(t, rec.completes)
}

func TestGenerate_FreshStatePerSubscription(t *testing.T) {
	makeCounter := func() Publisher[int] {
		return Generate(
			func() *int { v := 0; return &v },
			func(cur *int, n int, sink Observer[int]) {
				for i := 0; i < n && *cur < 2; i++ {
					sink.OnNext(*cur)
					*cur++
				}
				if *cur >= 2 {
					sink.OnComplete()
				}
			})
	}

	for i := 0; i < 2; i++ {
		rec := &recorder[int]{requestOnSubscribe: 10}
		makeCounter().Subscribe(rec)
		assert.Equal(t, []int{0, 1}, rec.items)
	}
}

func TestGenerate_NoProgressLeavesDemandOutstanding(t *testing.T) {
	calls := 0
	pub := Generate(
		func() *struct{} { return &struct{}{} },
		func(_ *struct{}, n int, sink Observer[int]) {
			calls++
			// emits nothing on the first call
			if calls > 1 {
				sink.OnNext(42)
				sink.OnComplete()
			}
		})

	rec := &recorder[int]{}
	pub.Subscribe(rec)

	rec.sub.Request(1)
	assert.Equal(t, 1, calls, "drain must not spin on a generator making no progress")
	assert.Empty(t, rec.items)

	rec.sub.Request(1)
	assert.Equal(t, []int{42}, rec.items)
	assert.Equal(t, 1, rec.completes)
}

func TestCancel_SuppressesTerminalAndFurtherItems(t *testing.T) {
	rec := &recorder[int]{}
	Range(0, 10).Subscribe(rec)

	rec.sub.Request(2)
	rec.sub.Cancel()
	rec.sub.Request(5) // ignored after cancel
	rec.sub.Cancel()   // idempotent

	assert.Equal(t, []int{0, 1}, rec.items)
	assert.Zero(t, rec.terminalCount())
}

func TestDoubleSubscribePanics(t *testing.T) {
	pub := Of(1)
	pub.Subscribe(&recorder[int]{})
	assert.Panics(t, func() { pub.Subscribe(&recorder[int]{}) })
}

func TestRequestInvalidDemandPanics(t *testing.T) {
	rec := &recorder[int]{}
	Range(0, 3).Subscribe(rec)

	assert.Panics(t, func() { rec.sub.Request(0) })
	assert.Panics(t, func() { rec.sub.Request(-1) })
}

func TestAsync_DropsWithoutDemand(t *testing.T) {
	var emit Observer[int]
	rec := &recorder[int]{}
	Async(func(o Observer[int]) { emit = o }).Subscribe(rec)
	require.NotNil(t, emit)

	rec.sub.Request(2)
	emit.OnNext(1)
	emit.OnNext(2)
	emit.OnNext(3) // no demand left, dropped
	emit.OnNext(4) // dropped

	assert.Equal(t, []int{1, 2}, rec.items)

	counter, ok := rec.sub.(DropCounter)
	require.True(t, ok, "async subscriptions report drops")
	assert.Equal(t, int64(2), counter.Dropped())

	rec.sub.Request(1)
	emit.OnNext(5)
	assert.Equal(t, []int{1, 2, 5}, rec.items)
}

func TestAsync_TerminalDeliveredOnce(t *testing.T) {
	var emit Observer[int]
	rec := &recorder[int]{}
	Async(func(o Observer[int]) { emit = o }).Subscribe(rec)

	emit.OnComplete()
	emit.OnComplete()
	emit.OnError(errors.New("late"))

	assert.Equal(t, 1, rec.completes)
	assert.Empty(t, rec.errs)
}

func TestAsync_SilentAfterCancel(t *testing.T) {
	var emit Observer[int]
	rec := &recorder[int]{requestOnSubscribe: 10}
	Async(func(o Observer[int]) { emit = o }).Subscribe(rec)

	rec.sub.Cancel()
	emit.OnNext(1)
	emit.OnError(errors.New("late"))

	assert.Empty(t, rec.items)
	assert.Zero(t, rec.terminalCount())
}

func TestProcess_ErrorPath(t *testing.T) {
	boom := errors.New("boom")
	var got []int
	var gotErr error

	Process(Error[int](boom), func(v int) { got = append(got, v) },
		nil, func(err error) { gotErr = err })

	assert.Empty(t, got)
	assert.ErrorIs(t, gotErr, boom)
}
