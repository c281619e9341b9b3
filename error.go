package reactive

import (
	stderrors "errors"

	"github.com/pkg/errors"
)

// Kind classifies failures raised by the runtime.
type Kind int

const (
	Unknown Kind = iota
	// InvalidArgument is returned to the caller directly, never through a stream.
	InvalidArgument
	// ProtocolViolation covers broken Publisher/Subscriber rules: a non-positive
	// request, a second OnSubscribe, signals after a terminal signal.
	ProtocolViolation
	// UpstreamFailure is a source or user function failing.
	UpstreamFailure
	// Overflow means a producer had an item but no outstanding demand for it.
	Overflow
	// VerificationMismatch is raised by the verify harness.
	VerificationMismatch
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid argument"
	case ProtocolViolation:
		return "protocol violation"
	case UpstreamFailure:
		return "upstream failure"
	case Overflow:
		return "overflow"
	case VerificationMismatch:
		return "verification mismatch"
	default:
		return "unknown"
	}
}

var (
	ErrInvalidArgument      = &Error{Kind: InvalidArgument}
	ErrProtocolViolation    = &Error{Kind: ProtocolViolation}
	ErrUpstreamFailure      = &Error{Kind: UpstreamFailure}
	ErrOverflow             = &Error{Kind: Overflow}
	ErrVerificationMismatch = &Error{Kind: VerificationMismatch}
)

type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the bare sentinels (ErrProtocolViolation, ...) by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

// E builds an *Error of the given kind, attaching a stack trace to err.
func E(kind Kind, op string, err error) error {
	if err != nil {
		var re *Error
		if stderrors.As(err, &re) && re.Kind == kind {
			return err
		}
		err = errors.WithStack(err)
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func Errorf(kind Kind, op, format string, args ...interface{}) error {
	return &Error{Kind: kind, Op: op, Err: errors.Errorf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var re *Error
	if stderrors.As(err, &re) {
		return re.Kind
	}
	return Unknown
}

// RuntimeError converts a recovered panic value into an UpstreamFailure.
func RuntimeError(v interface{}) error {
	if err, ok := v.(error); ok {
		return E(UpstreamFailure, "panic", err)
	}
	return &Error{Kind: UpstreamFailure, Op: "panic", Err: errors.Errorf("runtime-error: %v", v)}
}
