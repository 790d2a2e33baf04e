package stream

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestChannel_WriteNextClose(t *testing.T) {
	ctx := context.Background()
	c := NewChannel(ctx, 4)
	for i := range 3 {
		if err := c.Write(NewTuple(IndexKey(i), i)); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	for i := range 3 {
		got, ok, err := c.Next(ctx)
		if err != nil || !ok {
			t.Fatalf("next %d: ok=%v err=%v", i, ok, err)
		}
		if got.Key != IndexKey(i) || got.Value != i {
			t.Errorf("got %+v, want key %d", got, i)
		}
	}
	_, ok, err := c.Next(ctx)
	if ok || err != nil {
		t.Fatalf("expected clean end, got ok=%v err=%v", ok, err)
	}
}

func TestChannel_WriteAfterClose(t *testing.T) {
	c := NewChannel(context.Background(), 1)
	_ = c.Close()
	if err := c.Write(NewTuple("k", "v")); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second close should be a no-op, got %v", err)
	}
}

func TestChannel_Backpressure(t *testing.T) {
	ctx := context.Background()
	c := NewChannel(ctx, 1)
	if err := c.Write(NewTuple("a", 1)); err != nil {
		t.Fatal(err)
	}

	written := make(chan struct{})
	go func() {
		_ = c.Write(NewTuple("b", 2))
		close(written)
	}()

	select {
	case <-written:
		t.Fatal("write should block while the buffer is full")
	case <-time.After(50 * time.Millisecond):
	}

	if _, _, err := c.Next(ctx); err != nil {
		t.Fatal(err)
	}
	select {
	case <-written:
	case <-time.After(time.Second):
		t.Fatal("write did not resume after the consumer read")
	}
}

func TestChannel_AbortUnblocksWriterAndReader(t *testing.T) {
	ctx := context.Background()
	c := NewChannel(ctx, 1)
	_ = c.Write(NewTuple("a", 1))

	boom := errors.New("boom")
	errCh := make(chan error, 1)
	go func() { errCh <- c.Write(NewTuple("b", 2)) }()

	time.Sleep(10 * time.Millisecond)
	c.Abort(boom)
	c.Abort(errors.New("second cause ignored"))

	select {
	case err := <-errCh:
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("blocked writer was not released by abort")
	}

	// Drain the buffered tuple, then the abort must surface.
	for {
		_, ok, err := c.Next(ctx)
		if err != nil {
			if !errors.Is(err, boom) {
				t.Fatalf("expected boom, got %v", err)
			}
			break
		}
		if !ok {
			t.Fatal("aborted channel must not end cleanly")
		}
	}
	if !errors.Is(c.Aborted(), boom) {
		t.Errorf("Aborted() = %v, want boom", c.Aborted())
	}
}

func TestChannel_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancelCause(context.Background())
	c := NewChannel(ctx, 1)
	cause := errors.New("run failed")

	done := make(chan error, 1)
	go func() {
		_, _, err := c.Next(context.Background())
		done <- err
	}()
	cancel(cause)

	select {
	case err := <-done:
		if !errors.Is(err, cause) {
			t.Fatalf("expected cancellation cause, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("reader was not released by cancellation")
	}
}

func TestFromTuples(t *testing.T) {
	ctx := context.Background()
	c := FromTuples(ctx, Args{"b": 2, "a": 1}.Tuples())
	var keys []string
	for tup, err := range All(ctx, c.Reader()) {
		if err != nil {
			t.Fatal(err)
		}
		keys = append(keys, tup.Key)
	}
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Errorf("expected sorted keys [a b], got %v", keys)
	}
}

func TestFromTuples_Empty(t *testing.T) {
	ctx := context.Background()
	c := FromTuples(ctx, nil)
	_, ok, err := c.Next(ctx)
	if ok || err != nil {
		t.Fatalf("expected empty closed channel, got ok=%v err=%v", ok, err)
	}
}

func TestReaderClose_AbortsProducer(t *testing.T) {
	c := NewChannel(context.Background(), 1)
	r := c.Reader()
	_ = c.Write(NewTuple("a", 1))
	_ = r.Close()
	if err := c.Write(NewTuple("b", 2)); !errors.Is(err, ErrAborted) {
		t.Fatalf("expected ErrAborted after reader close, got %v", err)
	}
}
