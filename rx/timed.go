package rx

import (
	"sync"
	"time"

	"github.com/iamtaegu/reactiveProgramming/scheduler"
)

// SkipFor drops items arriving before d has passed on sched since the
// subscription started. An item arriving exactly at d is relayed.
func SkipFor[T any](d time.Duration, sched scheduler.Scheduler) Operator[T, T] {
	return FlowOperator("skipFor", func() Flow[T, T] {
		// a synchronous upstream may push before OnStart runs
		start := sched.Now()
		return Flow[T, T]{
			OnPush: func(io IOlet[T], v T) {
				if sched.Now().Sub(start) < d {
					io.Pull(1)
					return
				}
				io.Push(v)
			},
		}
	})
}

// TakeFor relays items until d has passed on sched since the subscription
// started, then cancels the upstream and completes.
func TakeFor[T any](d time.Duration, sched scheduler.Scheduler) Operator[T, T] {
	return FlowOperator("takeFor", func() Flow[T, T] {
		var mu sync.Mutex
		var timer scheduler.Disposable
		var stopped bool
		start := sched.Now()

		stop := func() {
			mu.Lock()
			t := timer
			stopped = true
			mu.Unlock()
			if t != nil {
				t.Dispose()
			}
		}

		return Flow[T, T]{
			OnStart: func(io IOlet[T]) {
				mu.Lock()
				late := stopped
				mu.Unlock()
				if late {
					return
				}
				t := sched.Schedule(max(d-sched.Now().Sub(start), 0), func() {
					io.Cancel()
					io.Complete()
				})
				mu.Lock()
				timer = t
				late = stopped
				mu.Unlock()
				if late {
					t.Dispose()
				}
			},
			OnPush: func(io IOlet[T], v T) {
				if sched.Now().Sub(start) >= d {
					stop()
					io.Cancel()
					io.Complete()
					return
				}
				io.Push(v)
			},
			OnError: func(io IOlet[T], err error) {
				stop()
				io.Error(err)
			},
			OnComplete: func(io IOlet[T]) {
				stop()
				io.Complete()
			},
			OnCancel: func(io IOlet[T]) {
				stop()
				io.Cancel()
			},
		}
	})
}

// DelayElements shifts every item by d: items are requested from upstream one
// at a time and each one is relayed d after it arrived, provided there is
// downstream demand by then. Errors are relayed immediately.
func DelayElements[T any](d time.Duration, sched scheduler.Scheduler) Operator[T, T] {
	return FlowOperator("delayElements", func() Flow[T, T] {
		var mu sync.Mutex
		var demand int64
		var started, upstreamDone, inflight, stopped bool
		var pending, ready *T
		var timer scheduler.Disposable

		// emit relays the ready item if there is demand, then pulls the next
		// one or completes.
		var emit func(io IOlet[T])
		emit = func(io IOlet[T]) {
			mu.Lock()
			if ready == nil || demand == 0 || inflight || stopped {
				mu.Unlock()
				return
			}
			v := *ready
			ready = nil
			inflight = true
			if demand != Unbounded {
				demand--
			}
			mu.Unlock()

			io.Push(v)

			mu.Lock()
			inflight = false
			done := upstreamDone
			mu.Unlock()
			if done {
				io.Complete()
				return
			}
			io.Pull(1)
		}

		stop := func() {
			mu.Lock()
			stopped = true
			t := timer
			mu.Unlock()
			if t != nil {
				t.Dispose()
			}
		}

		return Flow[T, T]{
			OnPull: func(io IOlet[T], n int64) {
				mu.Lock()
				demand = addCapInt(demand, n)
				first := !started
				started = true
				mu.Unlock()
				if first {
					io.Pull(1)
					return
				}
				emit(io)
			},
			OnPush: func(io IOlet[T], v T) {
				mu.Lock()
				if stopped {
					mu.Unlock()
					return
				}
				pending = &v
				mu.Unlock()
				t := sched.Schedule(d, func() {
					mu.Lock()
					ready = pending
					pending = nil
					mu.Unlock()
					emit(io)
				})
				mu.Lock()
				timer = t
				mu.Unlock()
			},
			OnComplete: func(io IOlet[T]) {
				mu.Lock()
				upstreamDone = true
				busy := pending != nil || ready != nil || inflight
				mu.Unlock()
				if !busy {
					io.Complete()
				}
			},
			OnError: func(io IOlet[T], err error) {
				stop()
				io.Error(err)
			},
			OnCancel: func(io IOlet[T]) {
				stop()
				io.Cancel()
			},
		}
	})
}

// DelaySubscription subscribes to pub only after d has passed on sched.
// Requests made in the meantime are handed over once subscribed.
func DelaySubscription[T any](pub Publisher[T], d time.Duration, sched scheduler.Scheduler) Publisher[T] {
	return PublisherFunc[T](func(s Subscriber[T]) {
		ds := &delayedSubscription[T]{actual: Serialize(s)}
		ds.upstream.op = "delaySubscription"
		s.OnSubscribe(ds)
		task := sched.Schedule(d, func() {
			if ds.upstream.isCancelled() {
				return
			}
			pub.Subscribe(ds)
		})
		ds.mu.Lock()
		ds.task = task
		ds.mu.Unlock()
		if ds.upstream.isCancelled() {
			task.Dispose()
		}
	})
}

type delayedSubscription[T any] struct {
	mu       sync.Mutex
	actual   Subscriber[T]
	upstream upstreamRef
	task     scheduler.Disposable
}

func (ds *delayedSubscription[T]) Request(n int64) {
	if n <= 0 {
		ds.Cancel()
		ds.actual.OnError(badRequest("delaySubscription", n))
		return
	}
	ds.upstream.request(n)
}

func (ds *delayedSubscription[T]) Cancel() {
	ds.upstream.cancel()
	ds.mu.Lock()
	task := ds.task
	ds.mu.Unlock()
	if task != nil {
		task.Dispose()
	}
}

func (ds *delayedSubscription[T]) OnSubscribe(s Subscription) {
	if _, err := ds.upstream.set(s); err != nil {
		ds.Cancel()
		ds.actual.OnError(err)
	}
}

func (ds *delayedSubscription[T]) OnNext(v T) {
	ds.actual.OnNext(v)
}

func (ds *delayedSubscription[T]) OnError(err error) {
	ds.actual.OnError(err)
}

func (ds *delayedSubscription[T]) OnComplete() {
	ds.actual.OnComplete()
}
