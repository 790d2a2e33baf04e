// Package pipes is the pipeline execution runtime.
//
// A Node yields a Piece, which is either a draining function that writes to
// the context's output itself, or a lazy sequence of values the runtime
// forwards. Stream starts a node over seed arguments and returns its output
// as a tuple iterator; Run drains that iterator into a Result.
//
//	seq := pipes.NewSequence(nodes.NewSuffix("a"), nodes.NewSuffix("b"))
//	res, err := pipes.Run(ctx, seq, stream.Args{"hello": ""})
//	// res: {"hello": "ab", "0.hello": "a"}
//
// A failing node cancels the whole run. Consumers observe the failure as the
// stream's terminal error; Run never returns a partial result.
package pipes
