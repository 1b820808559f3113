package stream

import "context"

// DefaultCapacity is the channel capacity used by OffThread and
// NewErrorSink when the caller passes a non-positive value.
const DefaultCapacity = 1024

// OffThread moves production of p onto a dedicated worker goroutine.
// The worker pulls values from the upstream iterator and pushes them into
// a bounded channel; the returned pipeline yields the same values in the
// same order. A full channel blocks the worker, so at most capacity items
// sit between the two stages at any instant.
//
// The worker exits when the upstream is exhausted, when it forwards an
// upstream error, or when the downstream closes the stage. Close waits
// for the worker to finish before closing the upstream, so no goroutine
// outlives the stage.
func OffThread[T any](p *Pipeline[T], capacity int) *Pipeline[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Pipeline[T]{
		create: func(ctx context.Context) Iterator[T] {
			source := p.create(ctx)
			workerCtx, cancel := context.WithCancel(ctx)
			ch := make(chan result[T], capacity)
			done := make(chan struct{})

			go func() {
				defer close(done)
				defer close(ch)
				for {
					val, ok, err := source.Next(workerCtx)
					if err != nil {
						select {
						case ch <- result[T]{err: err}:
						case <-workerCtx.Done():
						}
						return
					}
					if !ok {
						return
					}
					select {
					case ch <- result[T]{val: val, ok: true}:
					case <-workerCtx.Done():
						return
					}
				}
			}()

			return &channelIter[T]{
				ch: ch,
				closer: func() error {
					cancel()
					<-done
					return source.Close()
				},
			}
		},
	}
}
