package stream

import "context"

// Map transforms each value using fn.
func Map[I, O any](p *Pipeline[I], fn func(context.Context, I) (O, error)) *Pipeline[O] {
	return &Pipeline[O]{
		create: func(ctx context.Context) Iterator[O] {
			return &mapIter[I, O]{source: p.create(ctx), fn: fn}
		},
	}
}

// Filter keeps only values that satisfy the predicate.
func Filter[T any](p *Pipeline[T], fn func(T) bool) *Pipeline[T] {
	return &Pipeline[T]{
		create: func(ctx context.Context) Iterator[T] {
			return &filterIter[T]{source: p.create(ctx), fn: fn}
		},
	}
}

// Numbered pairs a value with its 0-based position in the stream.
type Numbered[T any] struct {
	N     int
	Value T
}

// Enumerate tags each value with its position, counting from zero.
func Enumerate[T any](p *Pipeline[T]) *Pipeline[Numbered[T]] {
	return &Pipeline[Numbered[T]]{
		create: func(ctx context.Context) Iterator[Numbered[T]] {
			return &enumerateIter[T]{source: p.create(ctx)}
		},
	}
}

type mapIter[I, O any] struct {
	source Iterator[I]
	fn     func(context.Context, I) (O, error)
}

func (it *mapIter[I, O]) Next(ctx context.Context) (O, bool, error) {
	val, ok, err := it.source.Next(ctx)
	if err != nil || !ok {
		var zero O
		return zero, false, err
	}
	out, err := it.fn(ctx, val)
	if err != nil {
		var zero O
		return zero, false, err
	}
	return out, true, nil
}

func (it *mapIter[I, O]) Close() error { return it.source.Close() }

type filterIter[T any] struct {
	source Iterator[T]
	fn     func(T) bool
}

func (it *filterIter[T]) Next(ctx context.Context) (T, bool, error) {
	for {
		val, ok, err := it.source.Next(ctx)
		if err != nil || !ok {
			return val, false, err
		}
		if it.fn(val) {
			return val, true, nil
		}
	}
}

func (it *filterIter[T]) Close() error { return it.source.Close() }

type enumerateIter[T any] struct {
	source Iterator[T]
	n      int
}

func (it *enumerateIter[T]) Next(ctx context.Context) (Numbered[T], bool, error) {
	val, ok, err := it.source.Next(ctx)
	if err != nil || !ok {
		return Numbered[T]{}, false, err
	}
	numbered := Numbered[T]{N: it.n, Value: val}
	it.n++
	return numbered, true, nil
}

func (it *enumerateIter[T]) Close() error { return it.source.Close() }
