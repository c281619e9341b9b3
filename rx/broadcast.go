package rx

import (
	"sync"

	reactive "github.com/iamtaegu/reactiveProgramming"
)

// Broadcast returns a hot processor relaying one upstream to any number of
// subscribers. The upstream is pulled in lockstep with the slowest subscriber:
// it is only asked for as many items as every current subscriber has
// requested. A subscriber without demand when an item arrives misses it.
// Subscribers arriving after termination receive the terminal signal only.
func Broadcast[T any]() Processor[T, T] {
	b := &broadcast[T]{}
	b.upstream.op = "broadcast"
	return b
}

type broadcast[T any] struct {
	mu       sync.Mutex
	upstream upstreamRef
	subs     []*broadcastSub[T]
	inflight int64
	done     bool
	err      error
}

type broadcastSub[T any] struct {
	parent      *broadcast[T]
	actual      Subscriber[T]
	outstanding int64
	removed     bool
}

// ===== Publisher-Part =====

func (b *broadcast[T]) Subscribe(s Subscriber[T]) {
	mustSubscriber(s)
	bs := &broadcastSub[T]{parent: b, actual: s}
	b.mu.Lock()
	if b.done {
		err := b.err
		b.mu.Unlock()
		s.OnSubscribe(noopSubscription{})
		if err != nil {
			s.OnError(err)
			return
		}
		s.OnComplete()
		return
	}
	b.subs = append(b.subs, bs)
	b.mu.Unlock()
	s.OnSubscribe(bs)
}

func (bs *broadcastSub[T]) Request(n int64) {
	b := bs.parent
	if n <= 0 {
		bs.Cancel()
		bs.actual.OnError(badRequest("broadcast", n))
		return
	}
	b.mu.Lock()
	if bs.removed {
		b.mu.Unlock()
		return
	}
	bs.outstanding = addCapInt(bs.outstanding, n)
	b.mu.Unlock()
	b.pull()
}

func (bs *broadcastSub[T]) Cancel() {
	b := bs.parent
	b.mu.Lock()
	if bs.removed {
		b.mu.Unlock()
		return
	}
	bs.removed = true
	for i, sub := range b.subs {
		if sub == bs {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			break
		}
	}
	b.mu.Unlock()
	b.pull()
}

// pull asks the upstream for the demand every subscriber agrees on.
func (b *broadcast[T]) pull() {
	b.mu.Lock()
	if b.done || len(b.subs) == 0 {
		b.mu.Unlock()
		return
	}
	agreed := Unbounded
	for _, sub := range b.subs {
		if sub.outstanding < agreed {
			agreed = sub.outstanding
		}
	}
	var n int64
	switch {
	case b.inflight == Unbounded:
	case agreed == Unbounded:
		n = Unbounded
		b.inflight = Unbounded
	case agreed > b.inflight:
		n = agreed - b.inflight
		b.inflight = agreed
	}
	b.mu.Unlock()
	if n > 0 {
		b.upstream.request(n)
	}
}

// ===== Subscriber-Part =====

func (b *broadcast[T]) OnSubscribe(s Subscription) {
	ok, err := b.upstream.set(s)
	if err != nil {
		b.terminate(err)
	}
	if ok {
		b.pull()
	}
}

func (b *broadcast[T]) OnNext(v T) {
	b.mu.Lock()
	if b.done {
		b.mu.Unlock()
		OnErrorDropped(reactive.Errorf(reactive.ProtocolViolation, "broadcast", "onNext after terminal signal"))
		return
	}
	if b.inflight != Unbounded && b.inflight > 0 {
		b.inflight--
	}
	targets := make([]Subscriber[T], 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.outstanding == 0 {
			continue
		}
		if sub.outstanding != Unbounded {
			sub.outstanding--
		}
		targets = append(targets, sub.actual)
	}
	b.mu.Unlock()
	for _, t := range targets {
		t.OnNext(v)
	}
}

func (b *broadcast[T]) OnError(err error) {
	b.terminate(err)
}

func (b *broadcast[T]) OnComplete() {
	b.terminate(nil)
}

func (b *broadcast[T]) terminate(err error) {
	b.mu.Lock()
	if b.done {
		b.mu.Unlock()
		if err != nil {
			OnErrorDropped(err)
		}
		return
	}
	b.done = true
	b.err = err
	subs := b.subs
	b.subs = nil
	for _, sub := range subs {
		sub.removed = true
	}
	b.mu.Unlock()
	for _, sub := range subs {
		if err != nil {
			sub.actual.OnError(err)
			continue
		}
		sub.actual.OnComplete()
	}
}
