package rx

import (
	"context"
	"sync"

	reactive "github.com/iamtaegu/reactiveProgramming"
)

// ToChan subscribes to pub and forwards its signals to the returned channel,
// which is closed after the terminal signal. At most buffer items are
// requested ahead of the consumer. Cancelling ctx cancels the subscription
// and delivers ctx.Err() as the terminal signal.
func ToChan[T any](ctx context.Context, pub Publisher[T], buffer int) <-chan Signal[T] {
	if buffer < 1 {
		buffer = 1
	}
	out := make(chan Signal[T], 1)
	in := make(chan Signal[T], buffer+1)
	var sub Subscription
	var subMu sync.Mutex
	ready := make(chan struct{})

	pub.Subscribe(Serialize[T](&chanSubscriber[T]{
		in: in,
		onSubscribe: func(s Subscription) {
			subMu.Lock()
			sub = s
			subMu.Unlock()
			close(ready)
			s.Request(int64(buffer))
		},
	}))

	go func() {
		defer close(out)
		select {
		case <-ready:
		case <-ctx.Done():
			out <- ErrorSignal[T](ctx.Err())
			return
		}
		subMu.Lock()
		s := sub
		subMu.Unlock()
		for {
			if err := ctx.Err(); err != nil {
				s.Cancel()
				out <- ErrorSignal[T](err)
				return
			}
			select {
			case <-ctx.Done():
				s.Cancel()
				out <- ErrorSignal[T](ctx.Err())
				return
			case sig := <-in:
				select {
				case out <- sig:
				case <-ctx.Done():
					s.Cancel()
					out <- ErrorSignal[T](ctx.Err())
					return
				}
				if sig.IsTerminal() {
					return
				}
				s.Request(1)
			}
		}
	}()
	return out
}

type chanSubscriber[T any] struct {
	in          chan<- Signal[T]
	onSubscribe func(Subscription)
	once        sync.Once
	first       Subscription
}

func (c *chanSubscriber[T]) OnSubscribe(s Subscription) {
	called := false
	c.once.Do(func() {
		called = true
		c.first = s
		c.onSubscribe(s)
	})
	if called {
		return
	}
	s.Cancel()
	c.first.Cancel()
	err := duplicateSubscription("toChan")
	select {
	case c.in <- ErrorSignal[T](err):
	default:
		OnErrorDropped(err)
	}
}

func (c *chanSubscriber[T]) OnNext(v T) {
	c.in <- NextSignal(v)
}

func (c *chanSubscriber[T]) OnError(err error) {
	c.in <- ErrorSignal[T](err)
}

func (c *chanSubscriber[T]) OnComplete() {
	c.in <- CompleteSignal[T]()
}

// Collect blocks until pub terminates and returns every item it emitted.
func Collect[T any](ctx context.Context, pub Publisher[T]) ([]T, error) {
	result := make([]T, 0)
	for sig := range ToChan(ctx, pub, reactive.Prefetch()) {
		switch {
		case sig.IsNext():
			result = append(result, sig.Value)
		case sig.IsError():
			return result, sig.Err
		}
	}
	return result, nil
}

// Last blocks until pub terminates and returns its last item. ok is false
// when pub completed empty.
func Last[T any](ctx context.Context, pub Publisher[T]) (last T, ok bool, err error) {
	for sig := range ToChan(ctx, pub, 1) {
		switch {
		case sig.IsNext():
			last, ok = sig.Value, true
		case sig.IsError():
			return last, ok, sig.Err
		}
	}
	return last, ok, nil
}
