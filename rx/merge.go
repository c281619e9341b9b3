package rx

import (
	"sync"
	"sync/atomic"

	reactive "github.com/iamtaegu/reactiveProgramming"
)

// Merge relays items of all publishers in the order they arrive. It completes
// once every publisher completed; the first error cancels the others and is
// relayed at once. Each publisher has at most reactive.Prefetch() items
// requested but not yet relayed.
func Merge[T any](pubs ...Publisher[T]) Publisher[T] {
	return PublisherFunc[T](func(s Subscriber[T]) {
		prefetch := int64(reactive.Prefetch())
		ms := &mergeSubscription[T]{
			actual: s,
			limit:  prefetch - prefetch>>2,
			active: len(pubs),
		}
		ms.inners = make([]*mergeInner[T], len(pubs))
		for i := range pubs {
			in := &mergeInner[T]{parent: ms}
			in.upstream.op = "merge"
			in.upstream.pending = prefetch
			ms.inners[i] = in
		}
		s.OnSubscribe(ms)
		for i, pub := range pubs {
			if ms.cancelled.Load() {
				break
			}
			pub.Subscribe(ms.inners[i])
		}
		ms.drain()
	})
}

// MergeWith merges pub with others.
func MergeWith[T any](pub Publisher[T], others ...Publisher[T]) Publisher[T] {
	return Merge(append([]Publisher[T]{pub}, others...)...)
}

type mergeItem[T any] struct {
	inner *mergeInner[T]
	value T
}

type mergeSubscription[T any] struct {
	actual    Subscriber[T]
	inners    []*mergeInner[T]
	limit     int64
	requested atomic.Int64
	wip       atomic.Int32
	cancelled atomic.Bool

	mu     sync.Mutex
	queue  []mergeItem[T]
	active int
	err    error

	// owned by drain
	emitted int64
	done    bool
}

func (ms *mergeSubscription[T]) Request(n int64) {
	if n <= 0 {
		ms.setError(badRequest("merge", n))
	} else {
		addCap(&ms.requested, n)
	}
	ms.drain()
}

func (ms *mergeSubscription[T]) Cancel() {
	if ms.cancelled.Swap(true) {
		return
	}
	ms.cancelInners()
	ms.drain()
}

func (ms *mergeSubscription[T]) cancelInners() {
	for _, in := range ms.inners {
		in.upstream.cancel()
	}
}

func (ms *mergeSubscription[T]) setError(err error) {
	ms.mu.Lock()
	if ms.err != nil {
		ms.mu.Unlock()
		OnErrorDropped(err)
		return
	}
	ms.err = err
	ms.mu.Unlock()
}

func (ms *mergeSubscription[T]) drain() {
	if ms.wip.Add(1) != 1 {
		return
	}
	missed := int32(1)
	for {
		for {
			if ms.done {
				return
			}
			if ms.cancelled.Load() {
				ms.done = true
				ms.mu.Lock()
				ms.queue = nil
				ms.mu.Unlock()
				return
			}

			ms.mu.Lock()
			err := ms.err
			empty := len(ms.queue) == 0
			active := ms.active
			ms.mu.Unlock()

			if err != nil {
				ms.done = true
				ms.cancelInners()
				ms.mu.Lock()
				ms.queue = nil
				ms.mu.Unlock()
				ms.actual.OnError(err)
				return
			}
			if empty {
				if active == 0 {
					ms.done = true
					ms.actual.OnComplete()
					return
				}
				break
			}
			if ms.emitted == ms.requested.Load() {
				break
			}

			ms.mu.Lock()
			item := ms.queue[0]
			var zero mergeItem[T]
			ms.queue[0] = zero
			ms.queue = ms.queue[1:]
			ms.mu.Unlock()

			ms.actual.OnNext(item.value)
			ms.emitted++
			item.inner.consumed()
		}
		missed = ms.wip.Add(-missed)
		if missed == 0 {
			return
		}
	}
}

type mergeInner[T any] struct {
	parent   *mergeSubscription[T]
	upstream upstreamRef
	// owned by the parent's drain
	relayed int64
	// upstream signals are serial, so done needs no lock
	done bool
}

// consumed replenishes the upstream in batches of limit.
func (in *mergeInner[T]) consumed() {
	in.relayed++
	if in.relayed >= in.parent.limit {
		n := in.relayed
		in.relayed = 0
		in.upstream.request(n)
	}
}

func (in *mergeInner[T]) OnSubscribe(s Subscription) {
	if _, err := in.upstream.set(s); err != nil {
		in.OnError(err)
	}
}

func (in *mergeInner[T]) OnNext(v T) {
	if in.done {
		OnErrorDropped(reactive.Errorf(reactive.ProtocolViolation, "merge", "onNext after terminal signal"))
		return
	}
	ms := in.parent
	ms.mu.Lock()
	ms.queue = append(ms.queue, mergeItem[T]{inner: in, value: v})
	ms.mu.Unlock()
	ms.drain()
}

func (in *mergeInner[T]) OnError(err error) {
	if in.done {
		OnErrorDropped(err)
		return
	}
	in.done = true
	in.parent.setError(err)
	in.parent.drain()
}

func (in *mergeInner[T]) OnComplete() {
	if in.done {
		return
	}
	in.done = true
	ms := in.parent
	ms.mu.Lock()
	ms.active--
	ms.mu.Unlock()
	ms.drain()
}
