// Package rx implements the reactive streams contract (Publisher, Subscriber,
// Subscription, Processor) with demand-driven delivery, plus a library of
// operators composed through Via and Pipe.
package rx

import (
	"math"

	reactive "github.com/iamtaegu/reactiveProgramming"
)

// Unbounded is the demand that never runs out.
const Unbounded int64 = math.MaxInt64

// Publisher is a source of a potentially unbounded sequence of items. Every
// call to Subscribe starts an independent subscription.
type Publisher[T any] interface {
	Subscribe(Subscriber[T])
}

// Subscription is the link between one Publisher and one Subscriber.
// Request and Cancel never block and may be called from inside a signal.
type Subscription interface {
	Request(n int64)
	Cancel()
}

// Subscriber receives OnSubscribe exactly once, then up to the requested
// number of OnNext calls, then at most one of OnError or OnComplete. Calls are
// never concurrent.
type Subscriber[T any] interface {
	OnSubscribe(Subscription)
	OnNext(T)
	OnError(error)
	OnComplete()
}

// Processor is a stage that subscribes to a Publisher[T] and publishes K. The
// downstream has to be subscribed before the processor is subscribed upstream.
type Processor[T, K any] interface {
	Subscriber[T]
	Publisher[K]
}

// Operator creates a fresh processor for every subscription.
type Operator[T, K any] func() Processor[T, K]

type PublisherFunc[T any] func(Subscriber[T])

func (f PublisherFunc[T]) Subscribe(s Subscriber[T]) {
	mustSubscriber(s)
	f(s)
}

func mustSubscriber[T any](s Subscriber[T]) {
	if s == nil {
		panic(reactive.Errorf(reactive.InvalidArgument, "subscribe", "subscriber must not be nil"))
	}
}

// Via applies op to pub.
func Via[T, K any](pub Publisher[T], op Operator[T, K]) Publisher[K] {
	return PublisherFunc[K](func(s Subscriber[K]) {
		proc := op()
		proc.Subscribe(s)
		pub.Subscribe(proc)
	})
}

// Pipe applies type preserving operators from left to right.
func Pipe[T any](pub Publisher[T], ops ...Operator[T, T]) Publisher[T] {
	for _, op := range ops {
		pub = Via(pub, op)
	}
	return pub
}

// To subscribes every subscriber to pub.
func To[T any](pub Publisher[T], subs ...Subscriber[T]) {
	for _, sub := range subs {
		pub.Subscribe(sub)
	}
}
