package rx

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Sink bundles the callbacks of a terminal subscriber. Every field is
// optional: without OnSubscribe the sink requests Unbounded, without OnError
// the failure is logged.
type Sink[T any] struct {
	OnSubscribe func(Subscription)
	OnNext      func(T)
	OnError     func(error)
	OnComplete  func()
}

func (s Sink[T]) HandleSubscribe(sub Subscription) {
	if s.OnSubscribe != nil {
		s.OnSubscribe(sub)
		return
	}
	sub.Request(Unbounded)
}

func (s Sink[T]) HandleNext(v T) {
	if s.OnNext != nil {
		s.OnNext(v)
	}
}

func (s Sink[T]) HandleError(id string, err error) {
	if s.OnError != nil {
		s.OnError(err)
		return
	}
	log.WithField("subscriber", id).WithError(err).Error("unhandled error")
}

func (s Sink[T]) HandleComplete() {
	if s.OnComplete != nil {
		s.OnComplete()
	}
}

// Subscribe attaches sink to pub and returns the subscription, which may be
// used to cancel from outside the callbacks.
func Subscribe[T any](pub Publisher[T], sink Sink[T]) Subscription {
	ls := &lambdaSubscriber[T]{
		id:   uuid.NewString(),
		sink: sink,
	}
	ls.upstream.op = "subscribe"
	pub.Subscribe(ls)
	return ls
}

// ForEach subscribes with unbounded demand and calls f for every item.
// Failures are logged.
func ForEach[T any](pub Publisher[T], f func(T)) Subscription {
	return Subscribe(pub, Sink[T]{OnNext: f})
}

type lambdaSubscriber[T any] struct {
	id       string
	sink     Sink[T]
	upstream upstreamRef
	done     atomic.Bool
}

func (ls *lambdaSubscriber[T]) OnSubscribe(s Subscription) {
	ok, err := ls.upstream.set(s)
	if err != nil {
		ls.OnError(err)
	}
	if !ok {
		return
	}
	log.WithField("subscriber", ls.id).Debug("subscribed")
	ls.sink.HandleSubscribe(ls)
}

func (ls *lambdaSubscriber[T]) OnNext(v T) {
	if ls.done.Load() {
		onNextDropped(v)
		return
	}
	ls.sink.HandleNext(v)
}

func (ls *lambdaSubscriber[T]) OnError(err error) {
	if !ls.done.CompareAndSwap(false, true) {
		OnErrorDropped(err)
		return
	}
	ls.sink.HandleError(ls.id, err)
}

func (ls *lambdaSubscriber[T]) OnComplete() {
	if !ls.done.CompareAndSwap(false, true) {
		return
	}
	log.WithField("subscriber", ls.id).Debug("completed")
	ls.sink.HandleComplete()
}

func (ls *lambdaSubscriber[T]) Request(n int64) {
	if n <= 0 {
		ls.upstream.cancel()
		ls.OnError(badRequest("subscribe", n))
		return
	}
	ls.upstream.request(n)
}

func (ls *lambdaSubscriber[T]) Cancel() {
	ls.done.Store(true)
	ls.upstream.cancel()
}
