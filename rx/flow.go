package rx

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	reactive "github.com/iamtaegu/reactiveProgramming"
)

// ErrSkip returned by a MapErr function drops the current item.
var ErrSkip = errors.New("skip")

// IOlet is the view a Flow handler has of its processor: Pull and Cancel talk
// to the upstream, Push, Error and Complete to the downstream.
type IOlet[K any] interface {
	Pull(n int64)
	Cancel()
	Push(K)
	Error(error)
	Complete()
}

// Flow describes a single upstream operator by its reactions to signals. Nil
// handlers fall back to plain relaying: pulls are forwarded upstream one to
// one, items are pushed unchanged and terminal signals passed on.
type Flow[T, K any] struct {
	OnStart  func(IOlet[K])
	OnPull   func(IOlet[K], int64)
	OnCancel func(IOlet[K])

	OnPush     func(IOlet[K], T)
	OnError    func(IOlet[K], error)
	OnComplete func(IOlet[K])
}

func (f Flow[T, K]) HandleStart(io IOlet[K]) {
	if f.OnStart != nil {
		f.OnStart(io)
	}
}

func (f Flow[T, K]) HandlePull(io IOlet[K], n int64) {
	if f.OnPull != nil {
		f.OnPull(io, n)
		return
	}
	io.Pull(n)
}

func (f Flow[T, K]) HandleCancel(io IOlet[K]) {
	if f.OnCancel != nil {
		f.OnCancel(io)
		return
	}
	io.Cancel()
}

func (f Flow[T, K]) HandlePush(io IOlet[K], v T) {
	if f.OnPush != nil {
		f.OnPush(io, v)
		return
	}
	if k, ok := any(v).(K); ok {
		io.Push(k)
		return
	}
	var k0 K
	io.Cancel()
	io.Error(reactive.Errorf(reactive.ProtocolViolation, "flow", "unsupported type %T needs %T", v, k0))
}

func (f Flow[T, K]) HandleError(io IOlet[K], err error) {
	if f.OnError != nil {
		f.OnError(io, err)
		return
	}
	io.Error(err)
}

func (f Flow[T, K]) HandleComplete(io IOlet[K]) {
	if f.OnComplete != nil {
		f.OnComplete(io)
		return
	}
	io.Complete()
}

// ==============================================

type flowProcessor[T, K any] struct {
	name       string
	handler    Flow[T, K]
	io         flowIO[T, K]
	downstream Subscriber[K]
	upstream   upstreamRef
	attached   atomic.Bool
	// done is set once the downstream got a terminal signal or cancelled.
	done atomic.Bool
	// finished is set once the upstream sent a terminal signal.
	finished atomic.Bool
}

// NewFlow builds a processor from a Flow handler.
func NewFlow[T, K any](name string, handler Flow[T, K]) Processor[T, K] {
	p := &flowProcessor[T, K]{
		name:    name,
		handler: handler,
	}
	p.io = flowIO[T, K]{p}
	p.upstream.op = name
	return p
}

// FlowOperator wraps a Flow factory into an Operator; newFlow is called once
// per subscription, so state captured in it is per subscription.
func FlowOperator[T, K any](name string, newFlow func() Flow[T, K]) Operator[T, K] {
	return func() Processor[T, K] {
		return NewFlow(name, newFlow())
	}
}

// ===== Publisher-Part =====

func (p *flowProcessor[T, K]) Subscribe(s Subscriber[K]) {
	mustSubscriber(s)
	if !p.attached.CompareAndSwap(false, true) {
		s.OnSubscribe(noopSubscription{})
		s.OnError(reactive.Errorf(reactive.ProtocolViolation, p.name, "processor allows a single subscriber"))
		return
	}
	p.downstream = Serialize(s)
}

func (p *flowProcessor[T, K]) Request(n int64) {
	if n <= 0 {
		p.upstream.cancel()
		p.fail(badRequest(p.name, n))
		return
	}
	if p.done.Load() {
		return
	}
	p.guard(func() { p.handler.HandlePull(p.io, n) })
}

func (p *flowProcessor[T, K]) Cancel() {
	if p.done.Swap(true) {
		return
	}
	p.handler.HandleCancel(p.io)
}

// ===== Subscriber-Part =====

func (p *flowProcessor[T, K]) OnSubscribe(s Subscription) {
	if !p.attached.Load() {
		s.Cancel()
		OnErrorDropped(reactive.Errorf(reactive.ProtocolViolation, p.name, "processor subscribed upstream before a downstream was attached"))
		return
	}
	ok, err := p.upstream.set(s)
	if err != nil {
		p.fail(err)
	}
	if !ok {
		return
	}
	p.downstream.OnSubscribe(p)
	p.guard(func() { p.handler.HandleStart(p.io) })
}

func (p *flowProcessor[T, K]) OnNext(v T) {
	if p.finished.Load() {
		OnErrorDropped(reactive.Errorf(reactive.ProtocolViolation, p.name, "onNext after terminal signal"))
		return
	}
	if p.done.Load() {
		onNextDropped(v)
		return
	}
	p.guard(func() { p.handler.HandlePush(p.io, v) })
}

func (p *flowProcessor[T, K]) OnError(err error) {
	if p.finished.Swap(true) || p.done.Load() {
		OnErrorDropped(err)
		return
	}
	p.guard(func() { p.handler.HandleError(p.io, err) })
}

func (p *flowProcessor[T, K]) OnComplete() {
	if p.finished.Swap(true) || p.done.Load() {
		return
	}
	p.guard(func() { p.handler.HandleComplete(p.io) })
}

// guard turns a panic in a handler into an UpstreamFailure.
func (p *flowProcessor[T, K]) guard(f func()) {
	defer func() {
		if r := recover(); r != nil {
			p.upstream.cancel()
			p.fail(reactive.RuntimeError(r))
		}
	}()
	f()
}

func (p *flowProcessor[T, K]) fail(err error) {
	if p.done.Swap(true) {
		OnErrorDropped(err)
		return
	}
	p.downstream.OnError(err)
}

// ===== IOlet =====

type flowIO[T, K any] struct {
	p *flowProcessor[T, K]
}

func (o flowIO[T, K]) Pull(n int64) {
	o.p.upstream.request(n)
}

func (o flowIO[T, K]) Cancel() {
	o.p.upstream.cancel()
}

func (o flowIO[T, K]) Push(v K) {
	if o.p.done.Load() {
		onNextDropped(v)
		return
	}
	o.p.downstream.OnNext(v)
}

func (o flowIO[T, K]) Error(err error) {
	o.p.fail(err)
}

func (o flowIO[T, K]) Complete() {
	if o.p.done.Swap(true) {
		return
	}
	o.p.downstream.OnComplete()
}

// ===== flows =====

// Map transforms every item with f.
func Map[T, K any](f func(T) K) Operator[T, K] {
	return FlowOperator("map", func() Flow[T, K] {
		return Flow[T, K]{
			OnPush: func(io IOlet[K], v T) {
				io.Push(f(v))
			},
		}
	})
}

// MapErr transforms every item with f. An error fails the stream with an
// UpstreamFailure; ErrSkip drops the item and io.EOF completes the stream.
func MapErr[T, K any](f func(T) (K, error)) Operator[T, K] {
	return FlowOperator("map", func() Flow[T, K] {
		return Flow[T, K]{
			OnPush: func(i IOlet[K], v T) {
				k, err := f(v)
				if err != nil {
					if errors.Is(err, io.EOF) {
						i.Cancel()
						i.Complete()
						return
					}
					if errors.Is(err, ErrSkip) {
						i.Pull(1)
						return
					}
					i.Cancel()
					i.Error(reactive.E(reactive.UpstreamFailure, "map", err))
					return
				}
				i.Push(k)
			},
		}
	})
}

// Filter drops items failing f and requests a replacement for each of them.
func Filter[T any](f func(T) bool) Operator[T, T] {
	return FlowOperator("filter", func() Flow[T, T] {
		return Flow[T, T]{
			OnPush: func(io IOlet[T], v T) {
				if f(v) {
					io.Push(v)
					return
				}
				io.Pull(1)
			},
		}
	})
}

// Distinct drops items equal to one emitted before in the same subscription.
func Distinct[T comparable]() Operator[T, T] {
	return DistinctBy(func(v T) T { return v })
}

// DistinctBy drops items whose key was seen before in the same subscription.
func DistinctBy[T any, K comparable](key func(T) K) Operator[T, T] {
	return FlowOperator("distinct", func() Flow[T, T] {
		seen := make(map[K]struct{})
		return Flow[T, T]{
			OnPush: func(io IOlet[T], v T) {
				k := key(v)
				if _, ok := seen[k]; ok {
					io.Pull(1)
					return
				}
				seen[k] = struct{}{}
				io.Push(v)
			},
		}
	})
}

// Skip drops the first n items.
func Skip[T any](n int64) Operator[T, T] {
	return FlowOperator("skip", func() Flow[T, T] {
		var count int64
		return Flow[T, T]{
			OnPush: func(io IOlet[T], v T) {
				if count < n {
					count++
					io.Pull(1)
					return
				}
				io.Push(v)
			},
		}
	})
}

// SkipWhile drops items while f holds, then relays everything.
func SkipWhile[T any](f func(T) bool) Operator[T, T] {
	return FlowOperator("skipWhile", func() Flow[T, T] {
		skipping := true
		return Flow[T, T]{
			OnPush: func(io IOlet[T], v T) {
				if skipping && f(v) {
					io.Pull(1)
					return
				}
				skipping = false
				io.Push(v)
			},
		}
	})
}

// Take relays the first n items, then cancels the upstream and completes. It
// never requests more than n items upstream.
func Take[T any](n int64) Operator[T, T] {
	if n < 0 {
		panic(reactive.Errorf(reactive.InvalidArgument, "take", "count must not be negative, got %d", n))
	}
	return FlowOperator("take", func() Flow[T, T] {
		var mu sync.Mutex
		var pulled, pushed int64
		return Flow[T, T]{
			OnStart: func(io IOlet[T]) {
				if n == 0 {
					io.Cancel()
					io.Complete()
				}
			},
			OnPull: func(io IOlet[T], r int64) {
				mu.Lock()
				allowed := n - pulled
				if r < allowed {
					allowed = r
				}
				pulled += allowed
				mu.Unlock()
				if allowed > 0 {
					io.Pull(allowed)
				}
			},
			OnPush: func(io IOlet[T], v T) {
				pushed++
				io.Push(v)
				if pushed == n {
					io.Cancel()
					io.Complete()
				}
			},
		}
	})
}

// TakeWhile relays items while f holds, then cancels and completes.
func TakeWhile[T any](f func(T) bool) Operator[T, T] {
	return FlowOperator("takeWhile", func() Flow[T, T] {
		return Flow[T, T]{
			OnPush: func(io IOlet[T], v T) {
				if f(v) {
					io.Push(v)
					return
				}
				io.Cancel()
				io.Complete()
			},
		}
	})
}

// Fold accumulates all items into one value, emitted on completion.
func Fold[T, K any](k K, f func(K, T) K) Operator[T, K] {
	return FlowOperator("fold", func() Flow[T, K] {
		return aggregate(&k, func(acc *K, v T) *K {
			next := f(*acc, v)
			return &next
		})
	})
}

// Reduce combines items pairwise, the first item being the initial value. An
// empty upstream completes without an item.
func Reduce[T any](f func(T, T) T) Operator[T, T] {
	return FlowOperator("reduce", func() Flow[T, T] {
		return aggregate[T, T](nil, func(acc *T, v T) *T {
			if acc == nil {
				return &v
			}
			next := f(*acc, v)
			return &next
		})
	})
}

func aggregate[T, K any](seed *K, f func(*K, T) *K) Flow[T, K] {
	var m sync.Mutex
	acc := seed
	var started, demanded, complete, emitted bool

	flush := func(io IOlet[K]) {
		m.Lock()
		if !complete || !demanded || emitted {
			m.Unlock()
			return
		}
		emitted = true
		v := acc
		m.Unlock()
		if v != nil {
			io.Push(*v)
		}
		io.Complete()
	}

	return Flow[T, K]{
		OnPush: func(io IOlet[K], v T) {
			m.Lock()
			defer m.Unlock()
			acc = f(acc, v)
		},
		OnComplete: func(io IOlet[K]) {
			m.Lock()
			complete = true
			m.Unlock()
			flush(io)
		},
		OnPull: func(io IOlet[K], _ int64) {
			m.Lock()
			demanded = true
			first := !started
			started = true
			m.Unlock()
			if first {
				io.Pull(Unbounded)
			}
			flush(io)
		},
	}
}

func (p *flowProcessor[T, K]) String() string {
	return fmt.Sprintf("flow(%s)", p.name)
}
