package scheduler

import (
	"sync"
	"time"

	reactive "github.com/iamtaegu/reactiveProgramming"
)

// Timer schedules on the wall clock through time.AfterFunc.
type Timer struct{}

func NewTimer() *Timer {
	return &Timer{}
}

func (*Timer) Now() time.Time {
	return time.Now()
}

func (*Timer) Schedule(delay time.Duration, task func()) Disposable {
	t := time.AfterFunc(delay, task)
	return DisposableFunc(func() { t.Stop() })
}

func (*Timer) SchedulePeriodic(initial, period time.Duration, task func()) Disposable {
	if period <= 0 {
		panic(reactive.Errorf(reactive.InvalidArgument, "schedule", "period must be positive, got %v", period))
	}
	p := &periodic{task: task, period: period, next: time.Now().Add(initial)}
	p.mu.Lock()
	p.timer = time.AfterFunc(initial, p.tick)
	p.mu.Unlock()
	return DisposableFunc(p.stop)
}

type periodic struct {
	mu      sync.Mutex
	task    func()
	period  time.Duration
	next    time.Time
	timer   *time.Timer
	stopped bool
}

func (p *periodic) tick() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	p.task()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.next = p.next.Add(p.period)
	p.timer = time.AfterFunc(time.Until(p.next), p.tick)
}

func (p *periodic) stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
	if p.timer != nil {
		p.timer.Stop()
	}
}
