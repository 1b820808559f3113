package stream

import "context"

// StepFunc folds one item into the accumulator. ok is false only when
// the source produced no items at all; item is then the zero value and
// must be ignored. Returning (value, true) emits value downstream; a
// step that emits is responsible for resetting the accumulator it
// mutated before returning.
type StepFunc[A, T any] func(acc *A, item T, ok bool) (A, bool)

// Emission is one output of Accumulate. Ready reports whether Value is
// an emitted accumulator; emissions with Ready false are markers meaning
// "still accumulating, nothing ready yet" and must be filtered out by
// the consumer.
type Emission[A any] struct {
	Value A
	Ready bool
}

// Accumulate folds p into a running accumulator seeded by seed, calling
// step once per input item. Each step call yields one Emission: a ready
// value when step emits, a marker otherwise.
//
// The combinator reads one item ahead so it knows, while folding the
// final item, that no more input follows. If the final step call does
// not emit, the accumulator is swapped for a fresh seed and the swapped
// value is emitted anyway, so partial state is never dropped. An empty
// source produces a single step call with ok=false, and the seed value
// is flushed.
func Accumulate[T, A any](p *Pipeline[T], seed func() A, step StepFunc[A, T]) *Pipeline[Emission[A]] {
	return &Pipeline[Emission[A]]{
		create: func(ctx context.Context) Iterator[Emission[A]] {
			return &accumIter[T, A]{
				source: p.create(ctx),
				seed:   seed,
				step:   step,
				acc:    seed(),
			}
		},
	}
}

type accumIter[T, A any] struct {
	source   Iterator[T]
	seed     func() A
	step     StepFunc[A, T]
	acc      A
	ahead    T
	hasAhead bool
	done     bool
}

func (it *accumIter[T, A]) Next(ctx context.Context) (Emission[A], bool, error) {
	if it.done {
		return Emission[A]{}, false, nil
	}

	var item T
	var hasItem bool
	if it.hasAhead {
		item, hasItem = it.ahead, true
		var zero T
		it.ahead, it.hasAhead = zero, false
	} else {
		val, ok, err := it.source.Next(ctx)
		if err != nil {
			return Emission[A]{}, false, err
		}
		item, hasItem = val, ok
	}

	// Peek one item ahead so the step below runs knowing whether the
	// stream is about to end.
	if hasItem {
		val, ok, err := it.source.Next(ctx)
		if err != nil {
			return Emission[A]{}, false, err
		}
		if ok {
			it.ahead, it.hasAhead = val, true
		} else {
			it.done = true
		}
	} else {
		it.done = true
	}

	value, emit := it.step(&it.acc, item, hasItem)
	switch {
	case emit:
		return Emission[A]{Value: value, Ready: true}, true, nil
	case !it.done:
		return Emission[A]{}, true, nil
	default:
		// Input exhausted with state still pending: flush it.
		flushed := it.acc
		it.acc = it.seed()
		return Emission[A]{Value: flushed, Ready: true}, true, nil
	}
}

func (it *accumIter[T, A]) Close() error { return it.source.Close() }
