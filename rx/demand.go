package rx

import (
	"sync"
	"sync/atomic"

	reactive "github.com/iamtaegu/reactiveProgramming"
)

// addCap adds n to the cumulative demand in r, saturating at Unbounded, and
// returns the previous value.
func addCap(r *atomic.Int64, n int64) int64 {
	for {
		cur := r.Load()
		if cur == Unbounded {
			return cur
		}
		next := cur + n
		if next < 0 {
			next = Unbounded
		}
		if r.CompareAndSwap(cur, next) {
			return cur
		}
	}
}

func addCapInt(cur, n int64) int64 {
	if cur == Unbounded {
		return cur
	}
	if next := cur + n; next >= 0 {
		return next
	}
	return Unbounded
}

func badRequest(op string, n int64) error {
	return reactive.Errorf(reactive.ProtocolViolation, op, "request amount must be positive, got %d", n)
}

func duplicateSubscription(op string) error {
	return reactive.Errorf(reactive.ProtocolViolation, op, "onSubscribe called more than once")
}

type noopSubscription struct{}

func (noopSubscription) Request(int64) {}

func (noopSubscription) Cancel() {}

// upstreamRef holds a Subscription that may arrive after the first Request or
// Cancel. Demand requested early is accumulated and handed over on set, a
// cancel before set cancels the subscription as soon as it arrives. A second
// subscription is a ProtocolViolation: both are cancelled and set returns the
// error for the owner to signal downstream.
type upstreamRef struct {
	mu        sync.Mutex
	op        string
	sub       Subscription
	pending   int64
	cancelled bool
}

func (u *upstreamRef) set(s Subscription) (bool, error) {
	u.mu.Lock()
	if u.sub != nil {
		first := u.sub
		wasCancelled := u.cancelled
		u.cancelled = true
		u.mu.Unlock()
		s.Cancel()
		if !wasCancelled {
			first.Cancel()
		}
		return false, duplicateSubscription(u.op)
	}
	if u.cancelled {
		u.mu.Unlock()
		s.Cancel()
		return false, nil
	}
	u.sub = s
	n := u.pending
	u.pending = 0
	u.mu.Unlock()
	if n > 0 {
		s.Request(n)
	}
	return true, nil
}

func (u *upstreamRef) request(n int64) {
	u.mu.Lock()
	if u.cancelled {
		u.mu.Unlock()
		return
	}
	s := u.sub
	if s == nil {
		u.pending = addCapInt(u.pending, n)
		u.mu.Unlock()
		return
	}
	u.mu.Unlock()
	s.Request(n)
}

func (u *upstreamRef) cancel() {
	u.mu.Lock()
	if u.cancelled {
		u.mu.Unlock()
		return
	}
	u.cancelled = true
	s := u.sub
	u.mu.Unlock()
	if s != nil {
		s.Cancel()
	}
}

func (u *upstreamRef) isCancelled() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.cancelled
}
