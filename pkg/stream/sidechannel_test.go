package stream

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
)

func TestDivertErrors_SplitsValuesAndFailures(t *testing.T) {
	input := []Try[int]{OK(1), Fail[int](errors.New("a")), OK(2), Fail[int](errors.New("b")), OK(3)}
	sink := NewErrorSink(4)

	values, err := Collect(context.Background(), DivertErrors(FromSlice(input), sink))
	if err != nil {
		t.Fatal(err)
	}
	sink.Close()

	var failures []error
	for e := range sink.Errors() {
		failures = append(failures, e)
	}

	if !slices.Equal(values, []int{1, 2, 3}) {
		t.Errorf("values = %v, want [1 2 3]", values)
	}
	if len(failures) != 2 {
		t.Fatalf("got %d failures, want 2", len(failures))
	}
	if failures[0].Error() != "a" || failures[1].Error() != "b" {
		t.Errorf("failures out of order: %v", failures)
	}
	if len(values)+len(failures) != len(input) {
		t.Errorf("item accounting broken: %d values + %d failures != %d inputs",
			len(values), len(failures), len(input))
	}
}

func TestDivertErrors_AllFailures(t *testing.T) {
	input := []Try[string]{Fail[string](errors.New("x")), Fail[string](errors.New("y"))}
	sink := NewErrorSink(4)

	values, err := Collect(context.Background(), DivertErrors(FromSlice(input), sink))
	if err != nil {
		t.Fatal(err)
	}
	sink.Close()

	if len(values) != 0 {
		t.Errorf("expected no values, got %v", values)
	}
	count := 0
	for range sink.Errors() {
		count++
	}
	if count != 2 {
		t.Errorf("got %d failures, want 2", count)
	}
}

func TestDivertErrors_SharedSinkAcrossStages(t *testing.T) {
	// Two fallible stages divert into one sink while running off-thread,
	// mimicking the read and write stages of a real run.
	const n = 200
	input := make([]int, n)
	for i := range input {
		input[i] = i
	}
	sink := NewErrorSink(8)

	first := Map(FromSlice(input), func(_ context.Context, v int) (Try[int], error) {
		if v%10 == 3 {
			return Fail[int](fmt.Errorf("first stage rejected %d", v)), nil
		}
		return OK(v), nil
	})
	survivors := OffThread(DivertErrors(first, sink), 4)

	second := Map(survivors, func(_ context.Context, v int) (Try[int], error) {
		if v%10 == 7 {
			return Fail[int](fmt.Errorf("second stage rejected %d", v)), nil
		}
		return OK(v), nil
	})
	final := OffThread(DivertErrors(second, sink), 4)

	done := make(chan []error)
	go func() {
		var failures []error
		for e := range sink.Errors() {
			failures = append(failures, e)
		}
		done <- failures
	}()

	values, err := Collect(context.Background(), final)
	if err != nil {
		t.Fatal(err)
	}
	sink.Close()
	failures := <-done

	if len(values)+len(failures) != n {
		t.Errorf("%d values + %d failures != %d inputs", len(values), len(failures), n)
	}
	if len(failures) != n/10*2 {
		t.Errorf("got %d failures, want %d", len(failures), n/10*2)
	}
	if !slices.IsSorted(values) {
		t.Error("surviving values lost their order")
	}
}

func TestErrorSink_CloseIdempotent(t *testing.T) {
	sink := NewErrorSink(1)
	sink.Close()
	sink.Close()
	if _, open := <-sink.Errors(); open {
		t.Error("channel still open after Close")
	}
}

func TestErrorSink_BlocksWhenFull(t *testing.T) {
	sink := NewErrorSink(1)
	sink.Send(errors.New("first"))

	started := make(chan struct{})
	delivered := make(chan struct{})
	go func() {
		close(started)
		sink.Send(errors.New("second"))
		close(delivered)
	}()

	<-started
	select {
	case <-delivered:
		t.Fatal("second send did not block on a full sink")
	default:
	}

	<-sink.Errors()
	<-delivered
	sink.Close()
}
