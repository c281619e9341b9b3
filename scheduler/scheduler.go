// Package scheduler provides the time sources used by timed operators: a
// virtual clock for deterministic tests and a real timer based one.
package scheduler

import "time"

type Disposable interface {
	Dispose()
}

type DisposableFunc func()

func (f DisposableFunc) Dispose() {
	f()
}

// Scheduler runs tasks after a delay. Tasks may run on any goroutine; a
// disposed task never starts afterwards, though one already running finishes.
type Scheduler interface {
	Now() time.Time
	Schedule(delay time.Duration, task func()) Disposable
	// SchedulePeriodic runs task after initial and then every period at a
	// fixed rate.
	SchedulePeriodic(initial, period time.Duration, task func()) Disposable
}
