package rx

import (
	"errors"
	"io"
	"iter"
	"sync"
	"sync/atomic"
	"time"

	reactive "github.com/iamtaegu/reactiveProgramming"
	"github.com/iamtaegu/reactiveProgramming/scheduler"
)

// SourceFunc produces the next item of a lazily pulled sequence. Returning
// io.EOF completes the stream, any other error fails it.
type SourceFunc[T any] func() (T, error)

// cursor is the per-subscription state of a pulled source.
type cursor[T any] interface {
	next() (T, error)
	// exhausted reports whether a sized source has nothing left, so it can
	// complete without a further request.
	exhausted() bool
	close()
}

type sliceCursor[T any] struct {
	items []T
	index int
}

func (c *sliceCursor[T]) next() (T, error) {
	if c.index >= len(c.items) {
		var t0 T
		return t0, io.EOF
	}
	v := c.items[c.index]
	c.index++
	return v, nil
}

func (c *sliceCursor[T]) exhausted() bool { return c.index >= len(c.items) }

func (c *sliceCursor[T]) close() {}

type rangeCursor struct {
	cur, end int
}

func (c *rangeCursor) next() (int, error) {
	if c.cur >= c.end {
		return 0, io.EOF
	}
	v := c.cur
	c.cur++
	return v, nil
}

func (c *rangeCursor) exhausted() bool { return c.cur >= c.end }

func (c *rangeCursor) close() {}

type funcCursor[T any] struct {
	f SourceFunc[T]
}

func (c *funcCursor[T]) next() (t T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = reactive.RuntimeError(r)
		}
	}()
	return c.f()
}

func (c *funcCursor[T]) exhausted() bool { return false }

func (c *funcCursor[T]) close() {}

type iterCursor[T any] struct {
	pull func() (T, bool)
	stop func()
}

func (c *iterCursor[T]) next() (T, error) {
	v, ok := c.pull()
	if !ok {
		return v, io.EOF
	}
	return v, nil
}

func (c *iterCursor[T]) exhausted() bool { return false }

func (c *iterCursor[T]) close() { c.stop() }

// pullSubscription emits items of a cursor as demand allows. All signals are
// produced inside drain, which only one goroutine runs at a time; requests
// arriving while it runs, re-entrant ones included, are picked up by the
// running loop.
type pullSubscription[T any] struct {
	op        string
	cur       cursor[T]
	actual    Subscriber[T]
	requested atomic.Int64
	wip       atomic.Int32
	cancelled atomic.Bool
	invalid   atomic.Pointer[int64]
	emitted   int64
	done      bool
}

func pullPublisher[T any](op string, open func() cursor[T]) Publisher[T] {
	return PublisherFunc[T](func(s Subscriber[T]) {
		ps := &pullSubscription[T]{op: op, cur: open(), actual: s}
		s.OnSubscribe(ps)
		ps.drain()
	})
}

func (ps *pullSubscription[T]) Request(n int64) {
	if n <= 0 {
		ps.invalid.CompareAndSwap(nil, &n)
	} else {
		addCap(&ps.requested, n)
	}
	ps.drain()
}

func (ps *pullSubscription[T]) Cancel() {
	ps.cancelled.Store(true)
	ps.drain()
}

// stopped handles cancellation and invalid requests. Only called from drain.
func (ps *pullSubscription[T]) stopped() bool {
	if ps.done {
		return true
	}
	if ps.cancelled.Load() {
		ps.done = true
		ps.cur.close()
		return true
	}
	if n := ps.invalid.Load(); n != nil {
		ps.done = true
		ps.cur.close()
		ps.actual.OnError(badRequest(ps.op, *n))
		return true
	}
	return false
}

func (ps *pullSubscription[T]) finish(err error) {
	ps.done = true
	ps.cur.close()
	if errors.Is(err, io.EOF) {
		ps.actual.OnComplete()
		return
	}
	ps.actual.OnError(reactive.E(reactive.UpstreamFailure, ps.op, err))
}

func (ps *pullSubscription[T]) drain() {
	if ps.wip.Add(1) != 1 {
		return
	}
	missed := int32(1)
	for {
		if ps.stopped() {
			return
		}
		r := ps.requested.Load()
		for ps.emitted != r {
			v, err := ps.cur.next()
			if err != nil {
				ps.finish(err)
				return
			}
			ps.actual.OnNext(v)
			ps.emitted++
			if ps.stopped() {
				return
			}
		}
		if ps.cur.exhausted() {
			ps.finish(io.EOF)
			return
		}
		missed = ps.wip.Add(-missed)
		if missed == 0 {
			return
		}
	}
}

// ===== sources =====

// Just emits the given items in order, then completes.
func Just[T any](items ...T) Publisher[T] {
	return FromSlice(items)
}

func FromSlice[T any](slice []T) Publisher[T] {
	return pullPublisher("fromSlice", func() cursor[T] {
		return &sliceCursor[T]{items: slice}
	})
}

// FromIter pulls items lazily from seq, one per unit of demand. The iterator
// is stopped on cancellation.
func FromIter[T any](seq iter.Seq[T]) Publisher[T] {
	return pullPublisher("fromIter", func() cursor[T] {
		next, stop := iter.Pull(seq)
		return &iterCursor[T]{pull: next, stop: stop}
	})
}

// FromFunc pulls items from f, one per unit of demand.
func FromFunc[T any](f SourceFunc[T]) Publisher[T] {
	return pullPublisher("fromFunc", func() cursor[T] {
		return &funcCursor[T]{f: f}
	})
}

// Range emits start, start+1, ..., start+count-1.
func Range(start, count int) Publisher[int] {
	if count < 0 {
		panic(reactive.Errorf(reactive.InvalidArgument, "range", "count must not be negative, got %d", count))
	}
	return pullPublisher("range", func() cursor[int] {
		return &rangeCursor{cur: start, end: start + count}
	})
}

func Empty[T any]() Publisher[T] {
	return FromSlice[T](nil)
}

// Error fails every subscriber with err right after OnSubscribe.
func Error[T any](err error) Publisher[T] {
	return PublisherFunc[T](func(s Subscriber[T]) {
		s.OnSubscribe(noopSubscription{})
		s.OnError(err)
	})
}

// Never signals nothing after OnSubscribe.
func Never[T any]() Publisher[T] {
	return PublisherFunc[T](func(s Subscriber[T]) {
		s.OnSubscribe(noopSubscription{})
	})
}

// Defer calls f for every subscription.
func Defer[T any](f func() Publisher[T]) Publisher[T] {
	return PublisherFunc[T](func(s Subscriber[T]) {
		f().Subscribe(s)
	})
}

// ===== interval =====

// Interval emits 0, 1, 2, ... every period on sched. A tick without
// outstanding demand fails the stream with an Overflow error.
func Interval(period time.Duration, sched scheduler.Scheduler) Publisher[int64] {
	return PublisherFunc[int64](func(s Subscriber[int64]) {
		is := &intervalSubscription{actual: Serialize(s)}
		s.OnSubscribe(is)
		task := sched.SchedulePeriodic(period, period, is.tick)
		is.mu.Lock()
		is.task = task
		cancelled := is.cancelled.Load()
		is.mu.Unlock()
		if cancelled {
			task.Dispose()
		}
	})
}

type intervalSubscription struct {
	mu        sync.Mutex
	actual    Subscriber[int64]
	task      scheduler.Disposable
	requested atomic.Int64
	cancelled atomic.Bool
	count     int64
}

func (is *intervalSubscription) tick() {
	if is.cancelled.Load() {
		return
	}
	if is.count < is.requested.Load() {
		is.actual.OnNext(is.count)
		is.count++
		return
	}
	is.Cancel()
	is.actual.OnError(reactive.Errorf(reactive.Overflow, "interval", "could not emit tick %d due to lack of requests", is.count))
}

func (is *intervalSubscription) Request(n int64) {
	if n <= 0 {
		is.Cancel()
		is.actual.OnError(badRequest("interval", n))
		return
	}
	addCap(&is.requested, n)
}

func (is *intervalSubscription) Cancel() {
	if is.cancelled.Swap(true) {
		return
	}
	is.mu.Lock()
	task := is.task
	is.mu.Unlock()
	if task != nil {
		task.Dispose()
	}
}
