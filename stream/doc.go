// Package stream provides the transport layer of pipekit: ordered streams of
// key-tagged values with bounded buffers and cooperative backpressure.
//
// A Channel connects exactly one producer to one consumer. Write blocks while
// the buffer is full, so a fast producer is paced by its consumer. Every
// blocking call also returns when the channel is aborted or its run context is
// cancelled, which is how failures unwind a running graph.
//
// # Operators
//
//   - FromTuples / Args.Tuples: seed a closed channel from values
//   - Map: transform each value of an Iterator
//   - Pipe: copy an Iterator into a Channel, optionally keeping it open
//   - Tee: split one Iterator into two independent readers
//   - Collect: drain an Iterator into a Result map
//
// # Usage
//
//	in := stream.FromTuples(ctx, stream.Args{"name": "ada"}.Tuples())
//	upper := stream.Map(in.Reader(), func(_ context.Context, t stream.Tuple) (stream.Tuple, error) {
//	    return t.WithValue(strings.ToUpper(t.Value.(string))), nil
//	})
//	res, err := stream.Collect(ctx, upper, stream.CombineString)
package stream
