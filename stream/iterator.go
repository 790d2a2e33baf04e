package stream

import (
	"context"
	"iter"
)

// Iterator provides pull-based sequential access to a stream of values.
type Iterator[T any] interface {
	// Next returns the next value. Returns (zero, false, nil) when exhausted
	// and a non-nil error when the stream ended abnormally.
	Next(ctx context.Context) (T, bool, error)
	// Close releases the iterator. Closing before exhaustion cancels the producer.
	Close() error
}

// FromSlice returns an Iterator over items.
func FromSlice[T any](items []T) Iterator[T] {
	return &sliceIter[T]{items: items}
}

// Map transforms each value of src using fn.
func Map[I, O any](src Iterator[I], fn func(context.Context, I) (O, error)) Iterator[O] {
	return &mapIter[I, O]{source: src, fn: fn}
}

// All adapts it into a range-over-func sequence. Iteration stops after the
// first error, which is yielded with a zero value. The iterator is closed when
// the sequence finishes.
func All[T any](ctx context.Context, it Iterator[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		defer it.Close()
		for {
			val, ok, err := it.Next(ctx)
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			if !ok {
				return
			}
			if !yield(val, nil) {
				return
			}
		}
	}
}

// KeepOpen wraps it so that Close is a no-op. The caller stays responsible
// for draining or closing it.
func KeepOpen[T any](it Iterator[T]) Iterator[T] {
	return keepOpen[T]{it}
}

type keepOpen[T any] struct{ Iterator[T] }

func (keepOpen[T]) Close() error { return nil }

type pipeOptions struct {
	preventClose bool
}

// PipeOption configures Pipe.
type PipeOption func(*pipeOptions)

// PreventClose keeps dst open after src is exhausted, so other writers can
// continue to share it.
func PreventClose() PipeOption {
	return func(o *pipeOptions) { o.preventClose = true }
}

// Pipe copies every tuple of src into dst, waiting for buffer space before
// each write. When src is exhausted dst is closed unless PreventClose is set.
// When src fails dst is aborted with the same error.
func Pipe(ctx context.Context, src Iterator[Tuple], dst *Channel, opts ...PipeOption) error {
	var o pipeOptions
	for _, opt := range opts {
		opt(&o)
	}
	for {
		t, ok, err := src.Next(ctx)
		if err != nil {
			dst.Abort(err)
			return err
		}
		if !ok {
			break
		}
		if err := dst.Write(t); err != nil {
			_ = src.Close()
			return err
		}
	}
	if o.preventClose {
		return nil
	}
	return dst.Close()
}

// --- Iterator implementations ---

type sliceIter[T any] struct {
	items []T
	index int
}

func (it *sliceIter[T]) Next(_ context.Context) (T, bool, error) {
	if it.index >= len(it.items) {
		var zero T
		return zero, false, nil
	}
	val := it.items[it.index]
	it.index++
	return val, true, nil
}

func (it *sliceIter[T]) Close() error { return nil }

type mapIter[I, O any] struct {
	source Iterator[I]
	fn     func(context.Context, I) (O, error)
}

func (it *mapIter[I, O]) Next(ctx context.Context) (O, bool, error) {
	var zero O
	val, ok, err := it.source.Next(ctx)
	if err != nil || !ok {
		return zero, false, err
	}
	out, err := it.fn(ctx, val)
	if err != nil {
		return zero, false, err
	}
	return out, true, nil
}

func (it *mapIter[I, O]) Close() error { return it.source.Close() }
