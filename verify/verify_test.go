package verify

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	reactive "github.com/iamtaegu/reactiveProgramming"
	"github.com/iamtaegu/reactiveProgramming/rx"
	"github.com/iamtaegu/reactiveProgramming/scheduler"
)

func TestVerifyComplete(t *testing.T) {
	err := Create(rx.Just("Apple", "Orange", "Grape")).
		ExpectNext("Apple").
		ExpectNextMatches(func(s string) bool { return s == "Orange" }).
		ExpectNextCount(1).
		VerifyComplete()
	require.NoError(t, err)
}

func TestVerifyMismatchOnValue(t *testing.T) {
	err := Create(rx.Just(1, 2, 3)).ExpectNext(1, 5).VerifyComplete()
	require.Error(t, err)
	assert.ErrorIs(t, err, reactive.ErrVerificationMismatch)
	assert.Equal(t, reactive.VerificationMismatch, reactive.KindOf(err))

	var mismatch *MismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, 2, mismatch.Position)
	assert.Equal(t, "onNext(5)", mismatch.Expected)
	assert.Equal(t, "onNext(2)", mismatch.Actual)
}

func TestVerifyMismatchOnTerminal(t *testing.T) {
	err := Create(rx.Just(1)).ExpectNext(1).ExpectNext(2).Verify()
	var mismatch *MismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "onComplete()", mismatch.Actual)

	err = Create(rx.Just(1, 2)).ExpectNext(1).VerifyComplete()
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "onComplete()", mismatch.Expected)
	assert.Equal(t, "onNext(2)", mismatch.Actual)
}

func TestVerifyError(t *testing.T) {
	boom := errors.New("boom")
	require.NoError(t, Create(rx.Error[int](boom)).VerifyError(boom))
	require.NoError(t, Create(rx.Error[int](boom)).VerifyError(nil))

	err := Create(rx.Error[int](boom)).VerifyError(reactive.ErrOverflow)
	assert.ErrorIs(t, err, reactive.ErrVerificationMismatch)

	err = Create(rx.Just(1)).ExpectNext(1).VerifyError(nil)
	assert.ErrorIs(t, err, reactive.ErrVerificationMismatch)
}

func TestVerifyInitialRequestAndThenRequest(t *testing.T) {
	err := Create(rx.Range(1, 5), WithInitialRequest(2)).
		ExpectNext(1, 2).
		ThenRequest(3).
		ExpectNext(3, 4, 5).
		VerifyComplete()
	require.NoError(t, err)
}

func TestVerifyThenCancel(t *testing.T) {
	err := Create(rx.Range(1, 1000), WithInitialRequest(1)).
		ExpectNext(1).
		ThenCancel().
		Verify()
	require.NoError(t, err)
}

func TestVerifyTimeout(t *testing.T) {
	err := Create(rx.Never[int](), WithTimeout(10*time.Millisecond)).VerifyComplete()
	var mismatch *MismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, 1, mismatch.Position)
	assert.Contains(t, mismatch.Actual, "nothing within")
}

func TestVerifyVirtualTime(t *testing.T) {
	vs := scheduler.NewVirtual()
	pub := rx.Via(rx.Interval(time.Hour, vs), rx.Take[int64](3))
	err := Create(pub, WithVirtualTime(vs)).
		ExpectNext(0).
		ThenAwait(2*time.Hour).
		ExpectNext(1, 2).
		VerifyComplete()
	require.NoError(t, err)
	assert.Equal(t, 3*time.Hour, vs.Elapsed())
}

func TestVerifyThenAwaitRealTime(t *testing.T) {
	start := time.Now()
	err := Create(rx.Just(1)).ThenAwait(5*time.Millisecond).ExpectNext(1).VerifyComplete()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
}

func TestVerifyRealTimeSource(t *testing.T) {
	pub := rx.Via(rx.Just("a", "b"), rx.DelayElements[string](time.Millisecond, scheduler.NewTimer()))
	require.NoError(t, Create(pub).ExpectNext("a", "b").VerifyComplete())
}

// idle is a subscription that ignores every call.
type idle struct{}

func (idle) Request(int64) {}
func (idle) Cancel()       {}

func TestVerifyCancelsOpenEndedScript(t *testing.T) {
	vs := scheduler.NewVirtual()
	err := Create(rx.Interval(time.Second, vs), WithVirtualTime(vs)).
		ExpectNext(0, 1).
		Verify()
	require.NoError(t, err)
	assert.Equal(t, 0, vs.Pending())
}

func TestVerifyWithoutSubscription(t *testing.T) {
	silent := rx.PublisherFunc[int](func(rx.Subscriber[int]) {})
	var mismatch *MismatchError

	err := Create[int](silent, WithInitialRequest(0)).ThenRequest(1).Verify()
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, 1, mismatch.Position)
	assert.Equal(t, "no onSubscribe", mismatch.Actual)

	err = Create[int](silent).ThenCancel().Verify()
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "no onSubscribe", mismatch.Actual)
}

func TestVerifySignalAfterTerminal(t *testing.T) {
	pub := rx.PublisherFunc[int](func(s rx.Subscriber[int]) {
		s.OnSubscribe(idle{})
		s.OnComplete()
		s.OnNext(1)
	})
	err := Create[int](pub).VerifyComplete()
	var mismatch *MismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "no signal after a terminal signal", mismatch.Expected)
	assert.Equal(t, "onNext(1)", mismatch.Actual)
}

func TestVerifyItemBeyondDemand(t *testing.T) {
	pub := rx.PublisherFunc[int](func(s rx.Subscriber[int]) {
		s.OnSubscribe(idle{})
		s.OnNext(1)
		s.OnNext(2)
		s.OnComplete()
	})
	err := Create[int](pub, WithInitialRequest(1)).ExpectNext(1, 2).VerifyComplete()
	var mismatch *MismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, 2, mismatch.Position)
	assert.Equal(t, "at most 1 onNext", mismatch.Expected)
	assert.Equal(t, "onNext(2)", mismatch.Actual)
}
