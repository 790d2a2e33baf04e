package stream

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestMap(t *testing.T) {
	ctx := context.Background()
	src := FromSlice([]Tuple{NewTuple("a", "x"), NewTuple("b", "y")})
	upper := Map(src, func(_ context.Context, t Tuple) (Tuple, error) {
		return t.WithValue(strings.ToUpper(t.Value.(string))), nil
	})

	res, err := Collect(ctx, upper, CombineString)
	if err != nil {
		t.Fatal(err)
	}
	if res["a"] != "X" || res["b"] != "Y" {
		t.Errorf("unexpected result %v", res)
	}
}

func TestMap_Error(t *testing.T) {
	ctx := context.Background()
	src := FromSlice([]Tuple{NewTuple("a", 1)})
	fail := Map(src, func(_ context.Context, t Tuple) (Tuple, error) {
		return Tuple{}, errors.New("bad value")
	})
	if _, err := Collect(ctx, fail, CombineArray); err == nil {
		t.Fatal("expected error")
	}
}

func TestPipe_ClosesDestination(t *testing.T) {
	ctx := context.Background()
	dst := NewChannel(ctx, 4)
	src := FromSlice([]Tuple{NewTuple("a", 1), NewTuple("a", 2)})
	if err := Pipe(ctx, src, dst); err != nil {
		t.Fatal(err)
	}
	res, err := Collect(ctx, dst.Reader(), CombineArray)
	if err != nil {
		t.Fatal(err)
	}
	vals := res["a"].([]any)
	if len(vals) != 2 || vals[0] != 1 || vals[1] != 2 {
		t.Errorf("unexpected values %v", vals)
	}
}

func TestPipe_PreventClose(t *testing.T) {
	ctx := context.Background()
	dst := NewChannel(ctx, 4)
	if err := Pipe(ctx, FromSlice([]Tuple{NewTuple("a", "1")}), dst, PreventClose()); err != nil {
		t.Fatal(err)
	}
	if err := Pipe(ctx, FromSlice([]Tuple{NewTuple("a", "2")}), dst); err != nil {
		t.Fatalf("shared destination should still accept writes: %v", err)
	}
	res, err := Collect(ctx, dst.Reader(), CombineString)
	if err != nil {
		t.Fatal(err)
	}
	if res["a"] != "12" {
		t.Errorf("expected %q, got %v", "12", res["a"])
	}
}

func TestPipe_SourceErrorAbortsDestination(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	src := Map(FromSlice([]Tuple{NewTuple("a", 1)}), func(_ context.Context, t Tuple) (Tuple, error) {
		return Tuple{}, boom
	})
	dst := NewChannel(ctx, 1)
	if err := Pipe(ctx, src, dst); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if !errors.Is(dst.Aborted(), boom) {
		t.Errorf("destination should be aborted with boom, got %v", dst.Aborted())
	}
}

func TestAll_StopsEarly(t *testing.T) {
	ctx := context.Background()
	n := 0
	for _, err := range All(ctx, FromSlice([]int{1, 2, 3})) {
		if err != nil {
			t.Fatal(err)
		}
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Errorf("expected to stop after 2 values, got %d", n)
	}
}

func TestKeepOpen_EarlyStopLeavesChannelReadable(t *testing.T) {
	ctx := context.Background()
	ch := FromTuples(ctx, []Tuple{NewTuple("a", 1), NewTuple("b", 2), NewTuple("c", 3)})
	reader := ch.Reader()

	for _, err := range All(ctx, KeepOpen(reader)) {
		if err != nil {
			t.Fatal(err)
		}
		break
	}
	if err := ch.Aborted(); err != nil {
		t.Fatalf("channel aborted after early stop: %v", err)
	}
	got, ok, err := reader.Next(ctx)
	if err != nil || !ok || got.Key != "b" {
		t.Errorf("Next() = %v, %v, %v; want b", got, ok, err)
	}
}
