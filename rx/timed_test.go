package rx_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamtaegu/reactiveProgramming/rx"
	"github.com/iamtaegu/reactiveProgramming/scheduler"
	"github.com/iamtaegu/reactiveProgramming/verify"
)

func perSecond(vs scheduler.Scheduler, items ...string) rx.Publisher[string] {
	return rx.Via(rx.Just(items...), rx.DelayElements[string](time.Second, vs))
}

func TestSkipFor(t *testing.T) {
	vs := scheduler.NewVirtual()
	pub := rx.Via(perSecond(vs, "one", "two", "skip a few", "ninety nine", "one hundred"),
		rx.SkipFor[string](4*time.Second, vs))
	err := verify.Create(pub, verify.WithVirtualTime(vs)).
		ExpectNext("ninety nine", "one hundred").
		VerifyComplete()
	require.NoError(t, err)
}

func TestTakeFor(t *testing.T) {
	vs := scheduler.NewVirtual()
	pub := rx.Via(perSecond(vs, "Yellowstone", "Yosemite", "Grand Canyon", "Zion", "Grand Teton"),
		rx.TakeFor[string](3500*time.Millisecond, vs))
	err := verify.Create(pub, verify.WithVirtualTime(vs)).
		ExpectNext("Yellowstone", "Yosemite", "Grand Canyon").
		VerifyComplete()
	require.NoError(t, err)
	assert.Equal(t, 3500*time.Millisecond, vs.Elapsed())
	assert.Equal(t, 0, vs.Pending())
}

func TestTakeForUpstreamFinishesFirst(t *testing.T) {
	vs := scheduler.NewVirtual()
	pub := rx.Via(rx.Just(1, 2), rx.TakeFor[int](time.Minute, vs))
	require.NoError(t, verify.Create(pub, verify.WithVirtualTime(vs)).ExpectNext(1, 2).VerifyComplete())
	assert.Equal(t, 0, vs.Pending())
}

func TestSkipForSynchronousSource(t *testing.T) {
	vs := scheduler.NewVirtual()
	pub := rx.Via(rx.Just(1, 2), rx.SkipFor[int](time.Minute, vs))
	require.NoError(t, verify.Create(pub, verify.WithVirtualTime(vs)).VerifyComplete())
}

func TestDelayElements(t *testing.T) {
	vs := scheduler.NewVirtual()
	pub := rx.Via(rx.Just(1, 2, 3), rx.DelayElements[int](time.Second, vs))
	require.NoError(t, verify.Create(pub, verify.WithVirtualTime(vs)).ExpectNext(1, 2, 3).VerifyComplete())
	assert.Equal(t, 3*time.Second, vs.Elapsed())
}

func TestDelayElementsWaitsForDemand(t *testing.T) {
	vs := scheduler.NewVirtual()
	pub := rx.Via(rx.Just(1, 2, 3), rx.DelayElements[int](time.Second, vs))
	err := verify.Create(pub, verify.WithVirtualTime(vs), verify.WithInitialRequest(1)).
		ExpectNext(1).
		ThenAwait(5*time.Second).
		ThenRequest(2).
		ExpectNext(2, 3).
		ExpectComplete().
		Verify()
	require.NoError(t, err)
	assert.Equal(t, 7*time.Second, vs.Elapsed())
}

func TestDelayElementsRelaysErrorsAtOnce(t *testing.T) {
	boom := errors.New("boom")
	vs := scheduler.NewVirtual()
	pub := rx.Via(rx.Error[int](boom), rx.DelayElements[int](time.Hour, vs))
	require.NoError(t, verify.Create(pub, verify.WithVirtualTime(vs)).VerifyError(boom))
	assert.Equal(t, time.Duration(0), vs.Elapsed())
}

func TestDelayElementsCancel(t *testing.T) {
	vs := scheduler.NewVirtual()
	p := newTestSub[int](rx.Unbounded)
	rx.Via(rx.Just(1, 2), rx.DelayElements[int](time.Second, vs)).Subscribe(p)
	assert.Equal(t, 1, vs.Pending())
	p.Cancel()
	assert.Equal(t, 0, vs.Pending())
	vs.AdvanceBy(time.Minute)
	assert.Empty(t, p.Items())
}

func TestDelaySubscription(t *testing.T) {
	vs := scheduler.NewVirtual()
	subscribed := time.Duration(-1)
	pub := rx.DelaySubscription(rx.Defer(func() rx.Publisher[int] {
		subscribed = vs.Elapsed()
		return rx.Just(1, 2)
	}), 2*time.Second, vs)

	err := verify.Create(pub, verify.WithVirtualTime(vs)).ExpectNext(1, 2).VerifyComplete()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, subscribed)
}

func TestDelaySubscriptionCancelledEarly(t *testing.T) {
	vs := scheduler.NewVirtual()
	subscribed := false
	pub := rx.DelaySubscription(rx.Defer(func() rx.Publisher[int] {
		subscribed = true
		return rx.Just(1)
	}), time.Second, vs)

	p := newTestSub[int](1)
	pub.Subscribe(p)
	p.Cancel()
	vs.AdvanceBy(time.Minute)
	assert.False(t, subscribed)
	assert.Equal(t, 0, vs.Pending())
}
