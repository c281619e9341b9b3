package rx_test

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	reactive "github.com/iamtaegu/reactiveProgramming"
	"github.com/iamtaegu/reactiveProgramming/rx"
	"github.com/iamtaegu/reactiveProgramming/verify"
)

func even(v int) bool { return v%2 == 0 }

func TestMap(t *testing.T) {
	pub := rx.Via(rx.Just("apple", "orange"), rx.Map(strings.ToUpper))
	require.NoError(t, verify.Create(pub).ExpectNext("APPLE", "ORANGE").VerifyComplete())

	lengths := rx.Via(rx.Just("apple", "fig"), rx.Map(func(s string) int { return len(s) }))
	require.NoError(t, verify.Create(lengths).ExpectNext(5, 3).VerifyComplete())
}

func TestMapErr(t *testing.T) {
	boom := errors.New("boom")
	f := func(v int) (int, error) {
		switch v {
		case 2:
			return 0, rx.ErrSkip
		case 4:
			return 0, io.EOF
		case 9:
			return 0, boom
		}
		return v * 10, nil
	}
	pub := rx.Via(rx.Range(1, 10), rx.MapErr(f))
	require.NoError(t, verify.Create(pub).ExpectNext(10, 30).VerifyComplete())

	failing := rx.Via(rx.Just(1, 9, 1), rx.MapErr(f))
	err := verify.Create(failing).
		ExpectNext(10).
		ExpectErrorMatches(func(err error) bool {
			return errors.Is(err, reactive.ErrUpstreamFailure) && errors.Is(err, boom)
		}).
		Verify()
	require.NoError(t, err)
}

func TestMapPanicFailsStream(t *testing.T) {
	pub := rx.Via(rx.Just(1, 2), rx.Map(func(v int) int {
		if v == 2 {
			panic("bad taco")
		}
		return v
	}))
	require.NoError(t, verify.Create(pub).ExpectNext(1).VerifyError(reactive.ErrUpstreamFailure))
}

func TestFilterReplenishesDemand(t *testing.T) {
	p := newTestSub[int](2)
	rx.Via(rx.Range(1, 10), rx.Filter(even)).Subscribe(p)
	assert.Equal(t, []int{2, 4}, p.Items())
	assert.Equal(t, 0, p.Terminals())

	p.Request(t, rx.Unbounded)
	assert.Equal(t, []int{2, 4, 6, 8, 10}, p.Items())
	assert.True(t, p.Completed())
}

func TestDistinct(t *testing.T) {
	pub := rx.Via(rx.Just("dog", "cat", "bird", "dog", "bird", "anteater"), rx.Distinct[string]())
	require.NoError(t, verify.Create(pub).ExpectNext("dog", "cat", "bird", "anteater").VerifyComplete())
}

func TestDistinctBy(t *testing.T) {
	pub := rx.Via(rx.Just("dog", "cat", "bird", "fish", "anteater"), rx.DistinctBy(func(s string) int { return len(s) }))
	require.NoError(t, verify.Create(pub).ExpectNext("dog", "bird", "anteater").VerifyComplete())
}

func TestDistinctStateIsPerSubscription(t *testing.T) {
	pub := rx.Via(rx.Just(1, 1, 2), rx.Distinct[int]())
	require.NoError(t, verify.Create(pub).ExpectNext(1, 2).VerifyComplete())
	require.NoError(t, verify.Create(pub).ExpectNext(1, 2).VerifyComplete())
}

func TestSkip(t *testing.T) {
	pub := rx.Via(rx.Just("one", "two", "skip a few", "ninety nine", "one hundred"), rx.Skip[string](3))
	require.NoError(t, verify.Create(pub).ExpectNext("ninety nine", "one hundred").VerifyComplete())

	all := rx.Via(rx.Range(1, 3), rx.Skip[int](5))
	require.NoError(t, verify.Create(all).VerifyComplete())
}

func TestSkipWhile(t *testing.T) {
	pub := rx.Via(rx.Just(1, 2, 5, 1, 7), rx.SkipWhile(func(v int) bool { return v < 3 }))
	require.NoError(t, verify.Create(pub).ExpectNext(5, 1, 7).VerifyComplete())
}

func TestTake(t *testing.T) {
	pub := rx.Via(rx.Just("Yellowstone", "Yosemite", "Grand Canyon", "Zion", "Grand Teton"), rx.Take[string](3))
	require.NoError(t, verify.Create(pub).ExpectNext("Yellowstone", "Yosemite", "Grand Canyon").VerifyComplete())
}

func TestTakeZeroCompletesImmediately(t *testing.T) {
	pub := rx.Via(rx.Never[int](), rx.Take[int](0))
	require.NoError(t, verify.Create(pub).VerifyComplete())
}

func TestTakeMoreThanAvailable(t *testing.T) {
	pub := rx.Via(rx.Range(1, 2), rx.Take[int](5))
	require.NoError(t, verify.Create(pub).ExpectNext(1, 2).VerifyComplete())
}

func TestTakeLimitsUpstreamDemand(t *testing.T) {
	pulls := 0
	src := rx.FromFunc(func() (int, error) {
		pulls++
		return pulls, nil
	})
	require.NoError(t, verify.Create(rx.Via(src, rx.Take[int](3))).ExpectNext(1, 2, 3).VerifyComplete())
	assert.Equal(t, 3, pulls)
}

func TestTakeRejectsNegativeCount(t *testing.T) {
	err := recoverError(t, func() { rx.Take[int](-1) })
	assert.ErrorIs(t, err, reactive.ErrInvalidArgument)
}

func TestTakeWhile(t *testing.T) {
	pub := rx.Via(rx.Range(1, 10), rx.TakeWhile(func(v int) bool { return v < 4 }))
	require.NoError(t, verify.Create(pub).ExpectNext(1, 2, 3).VerifyComplete())
}

func TestPipe(t *testing.T) {
	pub := rx.Pipe(rx.Range(1, 100), rx.Filter(even), rx.Skip[int](1), rx.Take[int](3))
	require.NoError(t, verify.Create(pub).ExpectNext(4, 6, 8).VerifyComplete())
}

func TestFold(t *testing.T) {
	sum := rx.Via(rx.Range(1, 5), rx.Fold(0, func(acc, v int) int { return acc + v }))
	require.NoError(t, verify.Create(sum).ExpectNext(15).VerifyComplete())

	joined := rx.Via(rx.Just("a", "b", "c"), rx.Fold("", func(acc, v string) string { return acc + v }))
	require.NoError(t, verify.Create(joined).ExpectNext("abc").VerifyComplete())
	require.NoError(t, verify.Create(joined).ExpectNext("abc").VerifyComplete())

	seed := rx.Via(rx.Empty[int](), rx.Fold(42, func(acc, v int) int { return acc + v }))
	require.NoError(t, verify.Create(seed).ExpectNext(42).VerifyComplete())
}

func TestFoldWaitsForDemand(t *testing.T) {
	sum := rx.Via(rx.Range(1, 4), rx.Fold(0, func(acc, v int) int { return acc + v }))
	err := verify.Create(sum, verify.WithInitialRequest(0)).
		ThenRequest(1).
		ExpectNext(10).
		ExpectComplete().
		Verify()
	require.NoError(t, err)
}

func TestReduce(t *testing.T) {
	longest := rx.Via(rx.Just("dog", "anteater", "cat"), rx.Reduce(func(a, b string) string {
		if len(b) > len(a) {
			return b
		}
		return a
	}))
	require.NoError(t, verify.Create(longest).ExpectNext("anteater").VerifyComplete())

	empty := rx.Via(rx.Empty[int](), rx.Reduce(func(a, b int) int { return a + b }))
	require.NoError(t, verify.Create(empty).VerifyComplete())
}

func TestProcessorAcceptsOneSubscriber(t *testing.T) {
	proc := rx.Map(func(v int) int { return v })()
	first := newTestSub[int](rx.Unbounded)
	second := newTestSub[int](rx.Unbounded)
	proc.Subscribe(first)
	proc.Subscribe(second)
	assert.ErrorIs(t, second.Err(), reactive.ErrProtocolViolation)

	rx.Just(1, 2).Subscribe(proc)
	assert.Equal(t, []int{1, 2}, first.Items())
	assert.True(t, first.Completed())
}

func TestProcessorSecondUpstreamIsFatal(t *testing.T) {
	proc := rx.Map(func(v int) int { return v * 10 })()
	p := newTestSub[int](rx.Unbounded)
	proc.Subscribe(p)

	first, second := &tracked{}, &tracked{}
	proc.OnSubscribe(first)
	proc.OnNext(1)
	proc.OnSubscribe(second)
	assert.True(t, first.Cancelled())
	assert.True(t, second.Cancelled())
	assert.ErrorIs(t, p.Err(), reactive.ErrProtocolViolation)

	proc.OnNext(2)
	proc.OnComplete()
	assert.Equal(t, []int{10}, p.Items())
	assert.Equal(t, 1, p.Terminals())
}

func TestProcessorBadRequest(t *testing.T) {
	p := newTestSub[int](0)
	rx.Via(rx.Range(1, 5), rx.Filter(even)).Subscribe(p)
	p.Request(t, -3)
	assert.ErrorIs(t, p.Err(), reactive.ErrProtocolViolation)
	p.Request(t, 10)
	assert.Empty(t, p.Items())
	assert.Equal(t, 1, p.Terminals())
}

func TestProcessorCancel(t *testing.T) {
	p := newTestSub[int](2)
	rx.Via(rx.Range(1, 10), rx.Map(func(v int) int { return v * 2 })).Subscribe(p)
	p.Cancel()
	p.Request(t, 10)
	assert.Equal(t, []int{2, 4}, p.Items())
	assert.Equal(t, 0, p.Terminals())
}

func TestCustomFlow(t *testing.T) {
	// emits each word twice, pulling the next one after both copies went out
	twice := rx.FlowOperator("twice", func() rx.Flow[string, string] {
		return rx.Flow[string, string]{
			OnPull: func(io rx.IOlet[string], n int64) {
				io.Pull(1)
			},
			OnPush: func(io rx.IOlet[string], v string) {
				io.Push(v)
				io.Push(v)
				io.Pull(1)
			},
		}
	})
	pub := rx.Via(rx.Just("a", "b"), twice)
	require.NoError(t, verify.Create(pub).ExpectNext("a", "a", "b", "b").VerifyComplete())
}
