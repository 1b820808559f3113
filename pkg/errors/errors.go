package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrWrongMessage marks a stage that received a message of the wrong
	// kind. Correct wiring never produces it; seeing one means a bug in
	// the pipeline layout, not bad input.
	ErrWrongMessage = errors.New("unexpected message kind")

	ErrEmptyIndex = errors.New("index is empty")
	ErrMergeDone  = errors.New("merge already finished")
	ErrBadSegment = errors.New("malformed segment file")
)

// Kind classifies a failure for reporting.
type Kind int

const (
	// KindRecoverable failures skip one document and let the run continue.
	KindRecoverable Kind = iota
	// KindFatal failures abort the whole run.
	KindFatal
	// KindInvariant failures signal broken internal wiring.
	KindInvariant
)

func (k Kind) String() string {
	switch k {
	case KindRecoverable:
		return "recoverable"
	case KindFatal:
		return "fatal"
	case KindInvariant:
		return "invariant"
	default:
		return "unknown"
	}
}

// OpError records a failed operation on a document or segment file.
type OpError struct {
	Op   string
	Path string
	Err  error
}

func (e *OpError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Err.Error())
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Err.Error())
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func New(op string, path string, err error) *OpError {
	return &OpError{
		Op:   op,
		Path: path,
		Err:  err,
	}
}

func Newf(op string, path string, format string, args ...any) *OpError {
	return &OpError{
		Op:   op,
		Path: path,
		Err:  fmt.Errorf(format, args...),
	}
}

// Op extracts the operation name from an error chain, or "unknown".
func Op(err error) string {
	var opErr *OpError
	if errors.As(err, &opErr) {
		return opErr.Op
	}
	return "unknown"
}

// KindOf classifies an error for logging and metrics.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrWrongMessage):
		return KindInvariant
	case errors.Is(err, ErrMergeDone), errors.Is(err, ErrBadSegment):
		return KindFatal
	default:
		return KindRecoverable
	}
}
