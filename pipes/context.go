package pipes

import (
	"context"
	"iter"

	"github.com/kbukum/pipekit/logger"
	"github.com/kbukum/pipekit/observability"
	"github.com/kbukum/pipekit/stream"
)

// DefaultOutputKey labels values emitted without a key.
const DefaultOutputKey = "output"

// ContextConfig configures NewContext.
type ContextConfig struct {
	// Context is the run context. Defaults to context.Background.
	Context context.Context
	// Cancel asserts the run's cancellation. When nil a cancellable child of
	// Context is created and owned by the returned Context.
	Cancel context.CancelCauseFunc
	// Args are the run's named arguments.
	Args stream.Args
	// Input is the inbound stream. When nil it is seeded from Args.
	Input stream.Iterator[stream.Tuple]

	OutputKey  string
	BufferSize int
	RunID      string
	Logger     *logger.Logger
	Metrics    *observability.Metrics
}

// env is shared by every context of one run.
type env struct {
	outputKey  string
	bufferSize int
	runID      string
	log        *logger.Logger
	metrics    *observability.Metrics
}

// Context is the per-invocation bundle handed to a node: one input stream,
// one fresh output channel, the run's cancellation and its options.
type Context struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
	args   stream.Args
	input  stream.Iterator[stream.Tuple]
	output *stream.Channel
	env    *env
}

// NewContext builds a context with a new output channel and returns both.
func NewContext(cfg ContextConfig) (*Context, *stream.Channel) {
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}
	cancel := cfg.Cancel
	if cancel == nil {
		ctx, cancel = context.WithCancelCause(ctx)
	}
	e := &env{
		outputKey:  cfg.OutputKey,
		bufferSize: cfg.BufferSize,
		runID:      cfg.RunID,
		log:        cfg.Logger,
		metrics:    cfg.Metrics,
	}
	if e.outputKey == "" {
		e.outputKey = DefaultOutputKey
	}
	if e.bufferSize <= 0 {
		e.bufferSize = stream.DefaultBufferSize
	}
	if e.log == nil {
		e.log = logger.Get("pipes")
	}
	input := cfg.Input
	if input == nil {
		input = stream.FromTuples(ctx, cfg.Args.Tuples()).Reader()
	}
	return newContext(ctx, cancel, cfg.Args, input, e)
}

func newContext(ctx context.Context, cancel context.CancelCauseFunc, args stream.Args, input stream.Iterator[stream.Tuple], e *env) (*Context, *stream.Channel) {
	out := stream.NewChannel(ctx, e.bufferSize)
	return &Context{
		ctx:    ctx,
		cancel: cancel,
		args:   args,
		input:  input,
		output: out,
		env:    e,
	}, out
}

// Child returns a context reading input that shares c's cancellation, args
// and options, with its own output channel.
func (c *Context) Child(input stream.Iterator[stream.Tuple]) (*Context, *stream.Channel) {
	return newContext(c.ctx, c.cancel, c.args, input, c.env)
}

// Context returns the run context. It is done once the run is cancelled.
func (c *Context) Context() context.Context { return c.ctx }

// Args returns the run's named arguments.
func (c *Context) Args() stream.Args { return c.args }

// Input returns the inbound stream.
func (c *Context) Input() stream.Iterator[stream.Tuple] { return c.input }

// Output returns the outbound channel.
func (c *Context) Output() *stream.Channel { return c.output }

// OutputKey returns the label given to unkeyed values.
func (c *Context) OutputKey() string { return c.env.outputKey }

// BufferSize returns the channel buffer size used for this run.
func (c *Context) BufferSize() int { return c.env.bufferSize }

// RunID identifies the run in logs and spans.
func (c *Context) RunID() string { return c.env.runID }

// Logger returns the run's logger.
func (c *Context) Logger() *logger.Logger { return c.env.log }

// Next reads the next inbound tuple.
func (c *Context) Next() (stream.Tuple, bool, error) {
	return c.input.Next(c.ctx)
}

// Inputs ranges over the inbound stream. The first read error is yielded and
// ends the sequence. Stopping early leaves the input open; whatever the node
// did not read is drained once it finishes.
func (c *Context) Inputs() iter.Seq2[stream.Tuple, error] {
	return stream.All(c.ctx, stream.KeepOpen(c.input))
}

// Emit writes v to the output, waiting for buffer space. A stream.Tuple keeps
// its key unless the key is empty; any other value is labelled with the
// output key.
func (c *Context) Emit(v any) error {
	return c.output.Write(c.label(v))
}

func (c *Context) label(v any) stream.Tuple {
	switch t := v.(type) {
	case stream.Tuple:
		if t.Key == "" {
			t.Key = c.env.outputKey
		}
		return t
	case *stream.Tuple:
		if t == nil {
			return stream.NewTuple(c.env.outputKey, nil)
		}
		return c.label(*t)
	default:
		return stream.NewTuple(c.env.outputKey, v)
	}
}

// Abort cancels the whole run with err as the cause. Only the first cause is
// kept.
func (c *Context) Abort(err error) {
	c.cancel(err)
}

// Err returns the run's cancellation cause, or nil while it is live.
func (c *Context) Err() error {
	return context.Cause(c.ctx)
}

// withContext returns a copy of c running under ctx, which must be derived
// from c's run context.
func (c *Context) withContext(ctx context.Context) *Context {
	cp := *c
	cp.ctx = ctx
	return &cp
}
