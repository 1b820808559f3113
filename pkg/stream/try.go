package stream

// Try is a container for a value or an error. Stages whose per-item work
// can fail yield Try values so that a failure travels the pipeline as
// data instead of aborting it.
type Try[T any] struct {
	Value T
	Err   error
}

// OK wraps a successful value.
func OK[T any](value T) Try[T] {
	return Try[T]{Value: value}
}

// Fail wraps a failure.
func Fail[T any](err error) Try[T] {
	return Try[T]{Err: err}
}

// Wrap converts a (value, error) pair into a Try container.
func Wrap[T any](value T, err error) Try[T] {
	return Try[T]{Value: value, Err: err}
}
