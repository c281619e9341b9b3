package rx

import (
	"fmt"
	"sync"
	"sync/atomic"

	reactive "github.com/iamtaegu/reactiveProgramming"
)

type Pair[A, B any] struct {
	First  A
	Second B
}

func (p Pair[A, B]) String() string {
	return fmt.Sprintf("(%v, %v)", p.First, p.Second)
}

// Zip pairs the nth item of a with the nth item of b.
func Zip[A, B any](a Publisher[A], b Publisher[B]) Publisher[Pair[A, B]] {
	return ZipWith(a, b, func(x A, y B) Pair[A, B] {
		return Pair[A, B]{First: x, Second: y}
	})
}

// ZipWith combines the nth items of a and b with f. Both upstreams are pulled
// one item at a time; the result completes as soon as either side completes
// without a pending item, and fails on the first error, cancelling the other
// side.
func ZipWith[A, B, R any](a Publisher[A], b Publisher[B], f func(A, B) R) Publisher[R] {
	return PublisherFunc[R](func(s Subscriber[R]) {
		zs := &zipSubscription[A, B, R]{actual: s, combine: f}
		zs.left.upstream.op = "zip"
		zs.left.upstream.pending = 1
		zs.right.upstream.op = "zip"
		zs.right.upstream.pending = 1
		s.OnSubscribe(zs)
		if !zs.cancelled.Load() {
			a.Subscribe(&zipLeft[A, B, R]{zs})
		}
		if !zs.cancelled.Load() {
			b.Subscribe(&zipRight[A, B, R]{zs})
		}
	})
}

type zipSlot[V any] struct {
	upstream upstreamRef
	value    V
	has      bool
	done     bool
}

type zipSubscription[A, B, R any] struct {
	actual    Subscriber[R]
	combine   func(A, B) R
	requested atomic.Int64
	wip       atomic.Int32
	cancelled atomic.Bool

	mu    sync.Mutex
	left  zipSlot[A]
	right zipSlot[B]
	err   error

	// owned by drain
	emitted int64
	done    bool
}

func (zs *zipSubscription[A, B, R]) Request(n int64) {
	if n <= 0 {
		zs.setError(badRequest("zip", n))
	} else {
		addCap(&zs.requested, n)
	}
	zs.drain()
}

func (zs *zipSubscription[A, B, R]) Cancel() {
	if zs.cancelled.Swap(true) {
		return
	}
	zs.cancelBoth()
}

func (zs *zipSubscription[A, B, R]) cancelBoth() {
	zs.left.upstream.cancel()
	zs.right.upstream.cancel()
}

func (zs *zipSubscription[A, B, R]) setError(err error) {
	zs.mu.Lock()
	if zs.err != nil {
		zs.mu.Unlock()
		OnErrorDropped(err)
		return
	}
	zs.err = err
	zs.mu.Unlock()
}

func (zs *zipSubscription[A, B, R]) apply(a A, b B) (r R, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = reactive.RuntimeError(p)
		}
	}()
	return zs.combine(a, b), nil
}

func (zs *zipSubscription[A, B, R]) drain() {
	if zs.wip.Add(1) != 1 {
		return
	}
	missed := int32(1)
	for {
		for {
			if zs.done || zs.cancelled.Load() {
				zs.done = true
				return
			}

			zs.mu.Lock()
			err := zs.err
			exhausted := (zs.left.done && !zs.left.has) || (zs.right.done && !zs.right.has)
			ready := zs.left.has && zs.right.has
			zs.mu.Unlock()

			if err != nil {
				zs.done = true
				zs.cancelBoth()
				zs.actual.OnError(err)
				return
			}
			if exhausted {
				zs.done = true
				zs.cancelBoth()
				zs.actual.OnComplete()
				return
			}
			if !ready || zs.emitted == zs.requested.Load() {
				break
			}

			zs.mu.Lock()
			a, b := zs.left.value, zs.right.value
			var a0 A
			var b0 B
			zs.left.value, zs.left.has = a0, false
			zs.right.value, zs.right.has = b0, false
			zs.mu.Unlock()

			r, err := zs.apply(a, b)
			if err != nil {
				zs.done = true
				zs.cancelBoth()
				zs.actual.OnError(err)
				return
			}
			zs.actual.OnNext(r)
			zs.emitted++
			zs.left.upstream.request(1)
			zs.right.upstream.request(1)
		}
		missed = zs.wip.Add(-missed)
		if missed == 0 {
			return
		}
	}
}

func offer[A, B, R, V any](zs *zipSubscription[A, B, R], slot *zipSlot[V], v V) {
	zs.mu.Lock()
	if slot.done {
		zs.mu.Unlock()
		OnErrorDropped(reactive.Errorf(reactive.ProtocolViolation, "zip", "onNext after terminal signal"))
		return
	}
	if slot.has {
		zs.mu.Unlock()
		zs.setError(reactive.Errorf(reactive.ProtocolViolation, "zip", "upstream emitted more than requested"))
		zs.drain()
		return
	}
	slot.value, slot.has = v, true
	zs.mu.Unlock()
	zs.drain()
}

func finish[A, B, R, V any](zs *zipSubscription[A, B, R], slot *zipSlot[V], err error) {
	zs.mu.Lock()
	if slot.done {
		zs.mu.Unlock()
		if err != nil {
			OnErrorDropped(err)
		}
		return
	}
	slot.done = true
	zs.mu.Unlock()
	if err != nil {
		zs.setError(err)
	}
	zs.drain()
}

type zipLeft[A, B, R any] struct {
	zs *zipSubscription[A, B, R]
}

func (z *zipLeft[A, B, R]) OnSubscribe(s Subscription) {
	if _, err := z.zs.left.upstream.set(s); err != nil {
		finish(z.zs, &z.zs.left, err)
	}
}

func (z *zipLeft[A, B, R]) OnNext(v A)        { offer(z.zs, &z.zs.left, v) }
func (z *zipLeft[A, B, R]) OnError(err error) { finish(z.zs, &z.zs.left, err) }
func (z *zipLeft[A, B, R]) OnComplete()       { finish(z.zs, &z.zs.left, nil) }

type zipRight[A, B, R any] struct {
	zs *zipSubscription[A, B, R]
}

func (z *zipRight[A, B, R]) OnSubscribe(s Subscription) {
	if _, err := z.zs.right.upstream.set(s); err != nil {
		finish(z.zs, &z.zs.right, err)
	}
}

func (z *zipRight[A, B, R]) OnNext(v B)        { offer(z.zs, &z.zs.right, v) }
func (z *zipRight[A, B, R]) OnError(err error) { finish(z.zs, &z.zs.right, err) }
func (z *zipRight[A, B, R]) OnComplete()       { finish(z.zs, &z.zs.right, nil) }
