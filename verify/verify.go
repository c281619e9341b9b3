// Package verify scripts expectations against the signals of a publisher.
//
//	err := verify.Create(rx.Just(1, 2, 3)).
//		ExpectNext(1, 2).
//		ExpectNextCount(1).
//		VerifyComplete()
package verify

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"

	reactive "github.com/iamtaegu/reactiveProgramming"
	"github.com/iamtaegu/reactiveProgramming/rx"
	"github.com/iamtaegu/reactiveProgramming/scheduler"
)

var log = reactive.NewLogger("verify")

// MismatchError reports the first step whose expectation was not met.
type MismatchError struct {
	Position int
	Expected string
	Actual   string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("verify: step %d: expected %s, got %s", e.Position, e.Expected, e.Actual)
}

// Unwrap exposes the VerificationMismatch kind to errors.Is and
// reactive.KindOf.
func (e *MismatchError) Unwrap() error {
	return &reactive.Error{Kind: reactive.VerificationMismatch, Op: "verify"}
}

type Option func(*options)

type options struct {
	initial int64
	virtual *scheduler.Virtual
	timeout time.Duration
	horizon time.Duration
}

// WithInitialRequest makes the verifier request n items on subscribe instead
// of Unbounded. Further demand comes from ThenRequest steps.
func WithInitialRequest(n int64) Option {
	return func(o *options) {
		o.initial = n
	}
}

// WithVirtualTime drives vs while waiting for signals, and makes ThenAwait
// advance it instead of sleeping.
func WithVirtualTime(vs *scheduler.Virtual) Option {
	return func(o *options) {
		o.virtual = vs
	}
}

// WithTimeout bounds the real time spent waiting for a single signal.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

type stepFunc[T any] func(run *run[T]) error

// Step is a verification script under construction. Steps run in the order
// they were added once Verify is called.
type Step[T any] struct {
	pub   rx.Publisher[T]
	opts  options
	steps []stepFunc[T]
}

func Create[T any](pub rx.Publisher[T], opts ...Option) *Step[T] {
	o := options{
		initial: rx.Unbounded,
		timeout: reactive.VerifyTimeout(),
		horizon: reactive.VerifyHorizon(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Step[T]{pub: pub, opts: o}
}

func (s *Step[T]) then(f stepFunc[T]) *Step[T] {
	s.steps = append(s.steps, f)
	return s
}

// ExpectNext expects the next signals to be items equal to vs, in order.
func (s *Step[T]) ExpectNext(vs ...T) *Step[T] {
	for _, v := range vs {
		want := v
		s.then(func(r *run[T]) error {
			sig, err := r.next()
			if err != nil {
				return err
			}
			if !sig.IsNext() || !reflect.DeepEqual(sig.Value, want) {
				return r.mismatch(fmt.Sprintf("onNext(%v)", want), sig.String())
			}
			return nil
		})
	}
	return s
}

func (s *Step[T]) ExpectNextMatches(pred func(T) bool) *Step[T] {
	return s.then(func(r *run[T]) error {
		sig, err := r.next()
		if err != nil {
			return err
		}
		if !sig.IsNext() || !pred(sig.Value) {
			return r.mismatch("onNext matching predicate", sig.String())
		}
		return nil
	})
}

// ExpectNextCount expects n more items of any value.
func (s *Step[T]) ExpectNextCount(n int) *Step[T] {
	return s.then(func(r *run[T]) error {
		for i := 0; i < n; i++ {
			sig, err := r.next()
			if err != nil {
				return err
			}
			if !sig.IsNext() {
				return r.mismatch(fmt.Sprintf("%d more onNext", n-i), sig.String())
			}
		}
		return nil
	})
}

func (s *Step[T]) ThenRequest(n int64) *Step[T] {
	return s.then(func(r *run[T]) error {
		if !r.rec.request(n) {
			return r.mismatch(fmt.Sprintf("a subscription to request(%d)", n), "no onSubscribe")
		}
		return nil
	})
}

// ThenAwait lets d pass, virtually when running on a virtual scheduler.
func (s *Step[T]) ThenAwait(d time.Duration) *Step[T] {
	return s.then(func(r *run[T]) error {
		if r.opts.virtual != nil {
			r.opts.virtual.AdvanceBy(d)
			return nil
		}
		time.Sleep(d)
		return nil
	})
}

// ThenCancel cancels the subscription and ends the script.
func (s *Step[T]) ThenCancel() *Step[T] {
	return s.then(func(r *run[T]) error {
		if !r.rec.cancel() {
			return r.mismatch("a subscription to cancel", "no onSubscribe")
		}
		r.cancelled = true
		return nil
	})
}

func (s *Step[T]) ExpectComplete() *Step[T] {
	return s.then(func(r *run[T]) error {
		sig, err := r.next()
		if err != nil {
			return err
		}
		if !sig.IsComplete() {
			return r.mismatch("onComplete()", sig.String())
		}
		return nil
	})
}

// ExpectError expects a failure matching target with errors.Is. A nil target
// accepts any failure.
func (s *Step[T]) ExpectError(target error) *Step[T] {
	want := "onError(any)"
	if target != nil {
		want = fmt.Sprintf("onError(%v)", target)
	}
	return s.ExpectErrorMatches(func(err error) bool {
		return target == nil || errors.Is(err, target)
	}, want)
}

// ExpectErrorMatches expects a failure accepted by pred. desc names the
// expectation in a MismatchError.
func (s *Step[T]) ExpectErrorMatches(pred func(error) bool, desc ...string) *Step[T] {
	want := "onError matching predicate"
	if len(desc) > 0 {
		want = desc[0]
	}
	return s.then(func(r *run[T]) error {
		sig, err := r.next()
		if err != nil {
			return err
		}
		if !sig.IsError() || !pred(sig.Err) {
			return r.mismatch(want, sig.String())
		}
		return nil
	})
}

// Verify subscribes and runs the script. It returns a *MismatchError for the
// first unmet expectation, or for a signal beyond the requested demand or
// after a terminal signal. The subscription is cancelled before returning.
func (s *Step[T]) Verify() error {
	r := &run[T]{
		id:   uuid.NewString(),
		opts: s.opts,
		rec:  newRecorder[T](s.opts.initial),
	}
	logger := log.WithField("run", r.id)
	logger.Debugf("verifying %d steps", len(s.steps))
	s.pub.Subscribe(r.rec)
	err := s.runSteps(r)
	r.rec.cancel()
	if err != nil {
		logger.WithError(err).Debug("verification failed")
		return err
	}
	logger.Debug("verified")
	return nil
}

func (s *Step[T]) runSteps(r *run[T]) error {
	for i, step := range s.steps {
		r.position = i + 1
		if err := step(r); err != nil {
			return err
		}
		if r.cancelled {
			return nil
		}
	}
	if v := r.rec.broken(); v != nil {
		return r.mismatch(v.expected, v.actual)
	}
	return nil
}

func (s *Step[T]) VerifyComplete() error {
	return s.ExpectComplete().Verify()
}

func (s *Step[T]) VerifyError(target error) error {
	return s.ExpectError(target).Verify()
}

type run[T any] struct {
	id        string
	opts      options
	rec       *recorder[T]
	position  int
	cursor    int
	cancelled bool
}

func (r *run[T]) mismatch(expected, actual string) error {
	return &MismatchError{Position: r.position, Expected: expected, Actual: actual}
}

// take consumes the next recorded signal, if there is one.
func (r *run[T]) take() (rx.Signal[T], bool, error) {
	sig, bad, ok := r.rec.at(r.cursor)
	if !ok {
		return sig, false, nil
	}
	if bad != nil {
		return sig, true, r.mismatch(bad.expected, bad.actual)
	}
	r.cursor++
	return sig, true, nil
}

// next waits for the signal after the last one consumed. On a virtual
// scheduler pending tasks are run one at a time, up to the horizon, before
// falling back to waiting in real time.
func (r *run[T]) next() (rx.Signal[T], error) {
	if vs := r.opts.virtual; vs != nil {
		limit := vs.Now().Add(r.opts.horizon)
		for {
			if sig, ok, err := r.take(); ok {
				return sig, err
			}
			due, ok := vs.NextDue()
			if !ok || due.After(limit) {
				break
			}
			vs.RunNext()
		}
	}
	deadline := time.NewTimer(r.opts.timeout)
	defer deadline.Stop()
	for {
		if sig, ok, err := r.take(); ok {
			return sig, err
		}
		select {
		case <-r.rec.notify:
		case <-deadline.C:
			return rx.Signal[T]{}, r.mismatch("a signal", fmt.Sprintf("nothing within %v", r.opts.timeout))
		}
	}
}
