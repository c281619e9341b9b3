package rx

import "sync"

// Serialize wraps s so OnNext, OnError and OnComplete can be called from
// several goroutines, or re-entrantly, without overlapping. Calls made while
// another is in progress are queued and delivered by the goroutine already
// emitting. Signals after a terminal signal are dropped.
func Serialize[T any](s Subscriber[T]) Subscriber[T] {
	if ser, ok := s.(*serializer[T]); ok {
		return ser
	}
	return &serializer[T]{actual: s}
}

type serializer[T any] struct {
	mu       sync.Mutex
	actual   Subscriber[T]
	queue    []Signal[T]
	emitting bool
	done     bool
}

func (s *serializer[T]) OnSubscribe(sub Subscription) {
	s.actual.OnSubscribe(sub)
}

func (s *serializer[T]) OnNext(v T) {
	s.emit(NextSignal(v))
}

func (s *serializer[T]) OnError(err error) {
	s.emit(ErrorSignal[T](err))
}

func (s *serializer[T]) OnComplete() {
	s.emit(CompleteSignal[T]())
}

func (s *serializer[T]) isDone() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

func (s *serializer[T]) emit(sig Signal[T]) {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		if sig.IsError() {
			OnErrorDropped(sig.Err)
		} else if sig.IsNext() {
			onNextDropped(sig.Value)
		}
		return
	}
	if sig.IsTerminal() {
		s.done = true
	}
	s.queue = append(s.queue, sig)
	if s.emitting {
		s.mu.Unlock()
		return
	}
	s.emitting = true
	for {
		if len(s.queue) == 0 {
			s.emitting = false
			s.mu.Unlock()
			return
		}
		batch := s.queue
		s.queue = nil
		s.mu.Unlock()
		for _, queued := range batch {
			queued.Dispatch(s.actual)
		}
		s.mu.Lock()
	}
}
