package verify

import (
	"fmt"
	"sync"

	"github.com/iamtaegu/reactiveProgramming/rx"
)

// violation is a signal the publisher was not allowed to send. at is the
// number of valid signals recorded before it.
type violation struct {
	at       int
	expected string
	actual   string
}

// recorder keeps every signal it receives, in arrival order, and the first
// signal that broke the demand or terminal rules.
type recorder[T any] struct {
	mu        sync.Mutex
	sub       rx.Subscription
	initial   int64
	requested int64
	delivered int64
	finished  bool
	cancelled bool
	bad       *violation
	signals   []rx.Signal[T]
	notify    chan struct{}
}

func newRecorder[T any](initial int64) *recorder[T] {
	return &recorder[T]{
		initial: initial,
		notify:  make(chan struct{}, 1),
	}
}

func (r *recorder[T]) OnSubscribe(s rx.Subscription) {
	r.mu.Lock()
	if r.sub != nil {
		r.violate("a single onSubscribe", "onSubscribe()")
		r.mu.Unlock()
		s.Cancel()
		r.wake()
		return
	}
	r.sub = s
	r.requested = max(r.initial, 0)
	r.mu.Unlock()
	if r.initial > 0 {
		s.Request(r.initial)
	}
}

func (r *recorder[T]) OnNext(v T) {
	r.record(rx.NextSignal(v))
}

func (r *recorder[T]) OnError(err error) {
	r.record(rx.ErrorSignal[T](err))
}

func (r *recorder[T]) OnComplete() {
	r.record(rx.CompleteSignal[T]())
}

func (r *recorder[T]) record(sig rx.Signal[T]) {
	r.mu.Lock()
	switch {
	case r.finished:
		r.violate("no signal after a terminal signal", sig.String())
	case sig.IsNext() && r.requested != rx.Unbounded && r.delivered >= r.requested:
		r.violate(fmt.Sprintf("at most %d onNext", r.requested), sig.String())
	default:
		if sig.IsNext() {
			r.delivered++
		} else {
			r.finished = true
		}
		r.signals = append(r.signals, sig)
	}
	r.mu.Unlock()
	r.wake()
}

// violate keeps the first violation; signals racing a cancel are allowed.
// r.mu must be held.
func (r *recorder[T]) violate(expected, actual string) {
	if r.bad != nil || r.cancelled {
		return
	}
	r.bad = &violation{at: len(r.signals), expected: expected, actual: actual}
}

func (r *recorder[T]) wake() {
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// at returns the i-th signal, or the violation once every valid signal before
// it was consumed.
func (r *recorder[T]) at(i int) (rx.Signal[T], *violation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bad != nil && i >= r.bad.at {
		return rx.Signal[T]{}, r.bad, true
	}
	if i < len(r.signals) {
		return r.signals[i], nil, true
	}
	return rx.Signal[T]{}, nil, false
}

func (r *recorder[T]) broken() *violation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bad
}

// request adds n to the demand and forwards it. It reports false when the
// publisher never called OnSubscribe.
func (r *recorder[T]) request(n int64) bool {
	r.mu.Lock()
	s := r.sub
	if s != nil && n > 0 && r.requested != rx.Unbounded {
		if r.requested += n; r.requested < 0 {
			r.requested = rx.Unbounded
		}
	}
	r.mu.Unlock()
	if s == nil {
		return false
	}
	s.Request(n)
	return true
}

// cancel cancels the subscription, if any, and reports whether there was one.
func (r *recorder[T]) cancel() bool {
	r.mu.Lock()
	s := r.sub
	r.cancelled = true
	r.mu.Unlock()
	if s == nil {
		return false
	}
	s.Cancel()
	return true
}
