package stream

import (
	"context"
	"sync"
)

// ErrorSink collects failures diverted out of one or more pipeline
// stages. Sends are serialized by the underlying channel, so any number
// of stages may share a single sink. The channel is bounded: when the
// consumer falls behind by more than the capacity, senders block until
// it catches up.
//
// The owner must keep draining Errors until it has called Close and the
// channel reports closed; stopping earlier can leave a sender blocked.
type ErrorSink struct {
	ch   chan error
	once sync.Once
}

// NewErrorSink returns a sink whose channel holds up to capacity
// undelivered failures. Non-positive capacity selects DefaultCapacity.
func NewErrorSink(capacity int) *ErrorSink {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &ErrorSink{ch: make(chan error, capacity)}
}

// Send forwards one failure to the sink, blocking while the channel is
// full. Send must not be called after Close.
func (s *ErrorSink) Send(err error) {
	s.ch <- err
}

// Close marks the sink complete. Call it only after every stage that can
// Send has finished; closing a pipeline joins its workers, so closing
// the sink after pipeline teardown is safe. Close is idempotent.
func (s *ErrorSink) Close() {
	s.once.Do(func() { close(s.ch) })
}

// Errors exposes the failure channel for a consumer to range over. The
// channel closes after Close once all buffered failures are delivered.
func (s *ErrorSink) Errors() <-chan error {
	return s.ch
}

// DivertErrors splits a Try stream: successful values pass through in
// their original order, failures are forwarded to sink exactly once and
// removed from the stream. Every input item ends up in exactly one of
// the two places.
func DivertErrors[T any](p *Pipeline[Try[T]], sink *ErrorSink) *Pipeline[T] {
	return &Pipeline[T]{
		create: func(ctx context.Context) Iterator[T] {
			return &divertIter[T]{source: p.create(ctx), sink: sink}
		},
	}
}

type divertIter[T any] struct {
	source Iterator[Try[T]]
	sink   *ErrorSink
}

func (it *divertIter[T]) Next(ctx context.Context) (T, bool, error) {
	for {
		try, ok, err := it.source.Next(ctx)
		if err != nil || !ok {
			var zero T
			return zero, false, err
		}
		if try.Err != nil {
			it.sink.Send(try.Err)
			continue
		}
		return try.Value, true, nil
	}
}

func (it *divertIter[T]) Close() error { return it.source.Close() }
