package rx

import "fmt"

type SignalType int

const (
	OnSubscribeSignal SignalType = iota
	OnNextSignal
	OnErrorSignal
	OnCompleteSignal
)

func (t SignalType) String() string {
	switch t {
	case OnSubscribeSignal:
		return "onSubscribe"
	case OnNextSignal:
		return "onNext"
	case OnErrorSignal:
		return "onError"
	case OnCompleteSignal:
		return "onComplete"
	default:
		return "unknown"
	}
}

// Signal is one Subscriber callback captured as a value.
type Signal[T any] struct {
	Type  SignalType
	Value T
	Err   error
}

func NextSignal[T any](v T) Signal[T] {
	return Signal[T]{Type: OnNextSignal, Value: v}
}

func ErrorSignal[T any](err error) Signal[T] {
	return Signal[T]{Type: OnErrorSignal, Err: err}
}

func CompleteSignal[T any]() Signal[T] {
	return Signal[T]{Type: OnCompleteSignal}
}

func (s Signal[T]) IsNext() bool {
	return s.Type == OnNextSignal
}

func (s Signal[T]) IsError() bool {
	return s.Type == OnErrorSignal
}

func (s Signal[T]) IsComplete() bool {
	return s.Type == OnCompleteSignal
}

func (s Signal[T]) IsTerminal() bool {
	return s.IsError() || s.IsComplete()
}

// Dispatch replays the signal on sub. OnSubscribe signals are ignored.
func (s Signal[T]) Dispatch(sub Subscriber[T]) {
	switch s.Type {
	case OnNextSignal:
		sub.OnNext(s.Value)
	case OnErrorSignal:
		sub.OnError(s.Err)
	case OnCompleteSignal:
		sub.OnComplete()
	}
}

func (s Signal[T]) String() string {
	switch s.Type {
	case OnNextSignal:
		return fmt.Sprintf("onNext(%v)", s.Value)
	case OnErrorSignal:
		return fmt.Sprintf("onError(%v)", s.Err)
	default:
		return s.Type.String() + "()"
	}
}
