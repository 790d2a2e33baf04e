package stream

import "context"

// Tee splits src into two readers with identical content. Each branch keeps
// the original order; the branches are not ordered relative to each other.
//
// Both branches are buffered independently with size slots, so one branch may
// run ahead of the other by at most size tuples before the slower consumer
// paces the source. A failure reading src aborts both branches; a failure
// writing one branch aborts the other.
func Tee(ctx context.Context, src Iterator[Tuple], size int) (Iterator[Tuple], Iterator[Tuple]) {
	a := NewChannel(ctx, size)
	b := NewChannel(ctx, size)
	go func() {
		for {
			t, ok, err := src.Next(ctx)
			if err != nil {
				a.Abort(err)
				b.Abort(err)
				return
			}
			if !ok {
				_ = a.Close()
				_ = b.Close()
				return
			}
			if err := a.Write(t); err != nil {
				b.Abort(err)
				_ = src.Close()
				return
			}
			if err := b.Write(t); err != nil {
				a.Abort(err)
				_ = src.Close()
				return
			}
		}
	}()
	return a.Reader(), b.Reader()
}
