package stream

import (
	"context"
	"errors"
	"slices"
	"testing"
)

func TestFromSlice_Collect(t *testing.T) {
	p := FromSlice([]int{1, 2, 3})
	got, err := Collect(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got, []int{1, 2, 3}) {
		t.Errorf("got %v, want [1 2 3]", got)
	}
}

func TestFromSlice_Empty(t *testing.T) {
	p := FromSlice([]int{})
	got, err := Collect(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty, got %v", got)
	}
}

func TestMap(t *testing.T) {
	p := FromSlice([]int{1, 2, 3})
	doubled := Map(p, func(_ context.Context, n int) (int, error) {
		return n * 2, nil
	})
	got, err := Collect(context.Background(), doubled)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got, []int{2, 4, 6}) {
		t.Errorf("got %v, want [2 4 6]", got)
	}
}

func TestMap_Error(t *testing.T) {
	p := FromSlice([]int{1, 2, 3})
	fail := Map(p, func(_ context.Context, n int) (int, error) {
		if n == 2 {
			return 0, errors.New("bad value")
		}
		return n, nil
	})
	got, err := Collect(context.Background(), fail)
	if err == nil {
		t.Fatal("expected error")
	}
	if !slices.Equal(got, []int{1}) {
		t.Errorf("expected [1] before error, got %v", got)
	}
}

func TestFilter(t *testing.T) {
	p := FromSlice([]int{1, 2, 3, 4, 5, 6})
	even := Filter(p, func(n int) bool { return n%2 == 0 })
	got, err := Collect(context.Background(), even)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got, []int{2, 4, 6}) {
		t.Errorf("got %v, want [2 4 6]", got)
	}
}

func TestEnumerate(t *testing.T) {
	p := FromSlice([]string{"a", "b", "c"})
	numbered, err := Collect(context.Background(), Enumerate(p))
	if err != nil {
		t.Fatal(err)
	}
	if len(numbered) != 3 {
		t.Fatalf("expected 3 values, got %d", len(numbered))
	}
	for i, n := range numbered {
		if n.N != i {
			t.Errorf("position %d numbered %d", i, n.N)
		}
	}
	if numbered[2].Value != "c" {
		t.Errorf("value at 2 = %q, want c", numbered[2].Value)
	}
}

func TestEnumerate_AfterFilter(t *testing.T) {
	p := FromSlice([]int{10, 11, 12, 13})
	kept := Filter(p, func(n int) bool { return n%2 == 0 })
	numbered, err := Collect(context.Background(), Enumerate(kept))
	if err != nil {
		t.Fatal(err)
	}
	// Positions count surviving values, not original ones.
	if len(numbered) != 2 || numbered[0].N != 0 || numbered[1].N != 1 {
		t.Errorf("got %v, want positions 0 and 1", numbered)
	}
}

func TestForEach_StopsOnError(t *testing.T) {
	p := FromSlice([]int{1, 2, 3, 4})
	var seen []int
	stop := errors.New("stop")
	err := ForEach(context.Background(), p, func(_ context.Context, n int) error {
		seen = append(seen, n)
		if n == 2 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Fatalf("expected stop error, got %v", err)
	}
	if !slices.Equal(seen, []int{1, 2}) {
		t.Errorf("saw %v, want [1 2]", seen)
	}
}

func TestIter_ManualPull(t *testing.T) {
	iter := FromSlice([]int{7}).Iter(context.Background())
	defer iter.Close()

	val, ok, err := iter.Next(context.Background())
	if err != nil || !ok || val != 7 {
		t.Fatalf("first pull = (%d, %v, %v), want (7, true, nil)", val, ok, err)
	}
	_, ok, err = iter.Next(context.Background())
	if err != nil || ok {
		t.Fatalf("second pull = (_, %v, %v), want exhausted", ok, err)
	}
}
