package pipes

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/pipekit/errors"
	"github.com/kbukum/pipekit/logger"
	"github.com/kbukum/pipekit/observability"
	"github.com/kbukum/pipekit/stream"
)

// Consume starts node on c and returns the reader of c's output. The output
// is closed when the node completes. When the node fails the run is
// cancelled with the failure as cause and the output is aborted.
func Consume(c *Context, node Node) stream.Iterator[stream.Tuple] {
	go execute(c, node)
	return c.output.Reader()
}

func execute(c *Context, node Node) {
	err := invoke(c, node)
	if err == nil {
		_ = c.output.Close()
		discard(c)
		return
	}

	live := c.Err() == nil
	name := NameOf(node)
	c.Abort(nodeError(name, err))
	c.output.Abort(c.Err())

	log := c.env.log.WithRun(c.env.runID)
	if live {
		log.Error("node failed", logger.Fields(logger.FieldNode, name, logger.FieldError, err.Error()))
	} else {
		log.Debug("node stopped", logger.Fields(logger.FieldNode, name, logger.FieldError, err.Error()))
	}
}

func invoke(c *Context, node Node) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipes: node panicked: %v", r)
		}
	}()

	return runPiece(c, node.Piece())
}

// runPiece executes p on c without closing the output.
func runPiece(c *Context, p Piece) error {
	switch p.kind {
	case Draining:
		if p.drain == nil {
			return fmt.Errorf("pipes: draining piece without a function")
		}
		return p.drain(c)
	case Lazy:
		if p.lazy == nil {
			return fmt.Errorf("pipes: lazy piece without a generator")
		}
		for v, err := range p.lazy(c) {
			if err != nil {
				return err
			}
			if err := c.Emit(v); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("pipes: unknown piece kind %s", p.kind)
	}
}

// discard reads whatever input a finished node left unread so upstream
// producers can complete.
func discard(c *Context) {
	for {
		_, ok, err := c.input.Next(c.ctx)
		if err != nil || !ok {
			return
		}
	}
}

func nodeError(name string, err error) error {
	if _, ok := errors.AsAppError(err); ok {
		return err
	}
	return errors.NodeFailed(name, err)
}

func runError(err error) error {
	if _, ok := errors.AsAppError(err); ok {
		return err
	}
	return errors.RunAborted(err)
}

// Stream seeds a run from args, starts node and returns its output. Cancelling
// ctx cancels the run. The iterator ends with an error if any node fails or
// the run is cancelled; closing it early cancels the run.
func Stream(ctx context.Context, node Node, args stream.Args, opts ...Option) stream.Iterator[stream.Tuple] {
	o := newOptions(opts)
	if o.runID == "" {
		o.runID = uuid.NewString()
	}

	scope := observability.NewRunScope(o.runID, o.metrics)
	ctx, span := scope.Start(ctx)
	runCtx, cancel := context.WithCancelCause(ctx)

	seed := o.seed
	if seed == nil {
		seed = args.Tuples()
	}
	c, out := NewContext(ContextConfig{
		Context:    runCtx,
		Cancel:     cancel,
		Args:       args,
		Input:      stream.FromTuples(runCtx, seed).Reader(),
		OutputKey:  o.outputKey,
		BufferSize: o.bufferSize,
		RunID:      o.runID,
		Logger:     o.log,
		Metrics:    o.metrics,
	})

	stop := func() bool { return false }
	if len(o.onAbort) > 0 {
		callbacks := o.onAbort
		stop = context.AfterFunc(runCtx, func() {
			cause := runError(context.Cause(runCtx))
			for _, fn := range callbacks {
				fn(cause)
			}
		})
	}

	log := o.log.WithRun(o.runID)
	log.Debug("run started", logger.Fields(logger.FieldNode, NameOf(node), "seed", len(seed)))

	go execute(c, node)

	return &runStream{
		ctx:    runCtx,
		cancel: cancel,
		reader: out.Reader(),
		node:   NameOf(node),
		stop:   stop,
		scope:  scope,
		span:   span,
		log:    log,
	}
}

// Run streams node over args and collects the output. It returns either the
// complete result or an error, never both.
func Run(ctx context.Context, node Node, args stream.Args, opts ...Option) (stream.Result, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	mode := o.combine
	if mode == "" {
		mode = stream.CombineString
	}
	return stream.Collect(ctx, Stream(ctx, node, args, opts...), mode)
}

// runStream is the caller's view of a run.
type runStream struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
	reader stream.Iterator[stream.Tuple]
	node   string
	stop   func() bool
	scope  *observability.RunScope
	span   trace.Span
	log    *logger.Logger

	mu     sync.Mutex
	done   bool
	err    error
	tuples int
}

func (s *runStream) Next(ctx context.Context) (stream.Tuple, bool, error) {
	s.mu.Lock()
	if s.done {
		err := s.err
		s.mu.Unlock()
		return stream.Tuple{}, false, err
	}
	s.mu.Unlock()

	t, ok, err := s.reader.Next(ctx)
	switch {
	case err != nil:
		return stream.Tuple{}, false, s.finish(runError(err))
	case !ok:
		// A failure racing the final close still wins.
		if cause := context.Cause(s.ctx); cause != nil {
			return stream.Tuple{}, false, s.finish(runError(cause))
		}
		return stream.Tuple{}, false, s.finish(nil)
	}

	s.mu.Lock()
	s.tuples++
	s.mu.Unlock()
	return t, true, nil
}

func (s *runStream) Close() error {
	s.finish(runError(stream.ErrAborted))
	return s.reader.Close()
}

// finish records the outcome once and releases the run.
func (s *runStream) finish(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return s.err
	}
	s.done = true
	s.err = err

	if err == nil {
		s.stop()
		s.cancel(nil)
	} else {
		s.cancel(err)
	}
	if s.scope.Metrics != nil {
		s.scope.Metrics.RecordTuples(s.ctx, s.node, int64(s.tuples))
	}
	s.scope.End(s.ctx, s.span, err)

	fields := logger.DurationFields("run", s.scope.Duration())
	fields["tuples"] = s.tuples
	if err != nil {
		s.log.WithError(err).Debug("run ended with error", fields)
	} else {
		s.log.Debug("run finished", fields)
	}
	return err
}
