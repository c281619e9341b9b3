package scheduler

import (
	"container/heap"
	"sync"
	"time"

	reactive "github.com/iamtaegu/reactiveProgramming"
)

// Epoch is the instant a Virtual scheduler starts at.
var Epoch = time.Unix(0, 0).UTC()

type vtask struct {
	due    time.Time
	seq    uint64
	period time.Duration
	run    func()
	index  int
}

type taskQueue []*vtask

func (q taskQueue) Len() int { return len(q) }

// Less orders by due time, then by scheduling order.
func (q taskQueue) Less(i, j int) bool {
	if q[i].due.Equal(q[j].due) {
		return q[i].seq < q[j].seq
	}
	return q[i].due.Before(q[j].due)
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x interface{}) {
	t := x.(*vtask)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *taskQueue) Pop() interface{} {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}

// Virtual is a simulated clock. Time only moves when AdvanceBy, AdvanceTo or
// RunNext is called, and due tasks run on the calling goroutine. Tasks due at
// the same instant run in the order they were scheduled.
type Virtual struct {
	mu    sync.Mutex
	now   time.Time
	seq   uint64
	tasks taskQueue
}

func NewVirtual() *Virtual {
	return &Virtual{now: Epoch}
}

func (v *Virtual) Now() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

// Elapsed is the virtual time passed since Epoch.
func (v *Virtual) Elapsed() time.Duration {
	return v.Now().Sub(Epoch)
}

func (v *Virtual) Schedule(delay time.Duration, task func()) Disposable {
	return v.schedule(delay, 0, task)
}

func (v *Virtual) SchedulePeriodic(initial, period time.Duration, task func()) Disposable {
	if period <= 0 {
		panic(reactive.Errorf(reactive.InvalidArgument, "schedule", "period must be positive, got %v", period))
	}
	return v.schedule(initial, period, task)
}

func (v *Virtual) schedule(delay, period time.Duration, run func()) Disposable {
	if delay < 0 {
		delay = 0
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	t := &vtask{due: v.now.Add(delay), period: period, run: run}
	v.push(t)
	return DisposableFunc(func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		if t.index >= 0 {
			heap.Remove(&v.tasks, t.index)
		}
		t.period = 0
	})
}

func (v *Virtual) push(t *vtask) {
	v.seq++
	t.seq = v.seq
	heap.Push(&v.tasks, t)
}

// pop removes the next task due at or before limit, moves the clock to its due
// time and requeues it when periodic. Callers hold mu.
func (v *Virtual) pop(limit *time.Time) (*vtask, bool) {
	if len(v.tasks) == 0 {
		return nil, false
	}
	next := v.tasks[0]
	if limit != nil && next.due.After(*limit) {
		return nil, false
	}
	heap.Pop(&v.tasks)
	if next.due.After(v.now) {
		v.now = next.due
	}
	if next.period > 0 {
		next.due = next.due.Add(next.period)
		v.push(next)
	}
	return next, true
}

// RunNext advances the clock to the earliest pending task and runs it. It
// reports false when nothing is pending.
func (v *Virtual) RunNext() bool {
	v.mu.Lock()
	t, ok := v.pop(nil)
	v.mu.Unlock()
	if !ok {
		return false
	}
	t.run()
	return true
}

// AdvanceTo runs every task due up to and including t, then sets the clock to
// t. Tasks scheduled by running tasks are honoured if they fall inside the
// window.
func (v *Virtual) AdvanceTo(t time.Time) {
	for {
		v.mu.Lock()
		task, ok := v.pop(&t)
		if !ok {
			if t.After(v.now) {
				v.now = t
			}
			v.mu.Unlock()
			return
		}
		v.mu.Unlock()
		task.run()
	}
}

func (v *Virtual) AdvanceBy(d time.Duration) {
	v.AdvanceTo(v.Now().Add(d))
}

// Pending is the number of scheduled tasks.
func (v *Virtual) Pending() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.tasks)
}

// NextDue returns the due time of the earliest pending task.
func (v *Virtual) NextDue() (time.Time, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.tasks) == 0 {
		return time.Time{}, false
	}
	return v.tasks[0].due, true
}
