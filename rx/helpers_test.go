package rx_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iamtaegu/reactiveProgramming/rx"
)

// testSub is a subscriber whose demand is driven by the test.
type testSub[T any] struct {
	mu         sync.Mutex
	initial    int64
	sub        rx.Subscription
	subscribed int
	items      []T
	err        error
	errors     int
	completed  int
}

func newTestSub[T any](initial int64) *testSub[T] {
	return &testSub[T]{initial: initial}
}

func (p *testSub[T]) OnSubscribe(s rx.Subscription) {
	p.mu.Lock()
	p.subscribed++
	p.sub = s
	p.mu.Unlock()
	if p.initial > 0 {
		s.Request(p.initial)
	}
}

func (p *testSub[T]) OnNext(v T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = append(p.items, v)
}

func (p *testSub[T]) OnError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errors++
	p.err = err
}

func (p *testSub[T]) OnComplete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed++
}

func (p *testSub[T]) Items() []T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]T(nil), p.items...)
}

func (p *testSub[T]) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *testSub[T]) Terminals() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.errors + p.completed
}

func (p *testSub[T]) Completed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completed == 1
}

func (p *testSub[T]) Request(t *testing.T, n int64) {
	p.mu.Lock()
	s := p.sub
	p.mu.Unlock()
	require.NotNil(t, s)
	s.Request(n)
}

func (p *testSub[T]) Cancel() {
	p.mu.Lock()
	s := p.sub
	p.mu.Unlock()
	s.Cancel()
}

// recoverError runs f and returns the error it panicked with.
func recoverError(t *testing.T, f func()) (err error) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic")
		var ok bool
		err, ok = r.(error)
		require.True(t, ok, "panic value %v is not an error", r)
	}()
	f()
	return nil
}

// tracked is a Subscription that records what it was asked for.
type tracked struct {
	mu        sync.Mutex
	requested int64
	cancelled bool
}

func (s *tracked) Request(n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requested += n
}

func (s *tracked) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = true
}

func (s *tracked) Cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

// subscribesTwice misbehaves by calling OnSubscribe with first and then second.
func subscribesTwice[T any](first, second *tracked) rx.Publisher[T] {
	return rx.PublisherFunc[T](func(s rx.Subscriber[T]) {
		s.OnSubscribe(first)
		s.OnSubscribe(second)
	})
}
