package pipes

import (
	"encoding/json"
	"time"

	"github.com/kbukum/pipekit/errors"
	"github.com/kbukum/pipekit/logger"
	"github.com/kbukum/pipekit/observability"
	"github.com/kbukum/pipekit/serde"
)

// wrapped decorates a node while keeping its name and serialized form.
type wrapped struct {
	inner  Node
	around func(c *Context, name string, run func(*Context) error) error
}

func (w *wrapped) Name() string { return NameOf(w.inner) }

func (w *wrapped) Piece() Piece {
	inner := w.inner.Piece()
	name := w.Name()
	return DrainPiece(func(c *Context) error {
		return w.around(c, name, func(c *Context) error { return runPiece(c, inner) })
	})
}

// Record returns the inner node's record.
func (w *wrapped) Record() serde.Record {
	if s, ok := w.inner.(serde.Serializable); ok {
		return s.Record()
	}
	return serde.Record{}
}

// MarshalJSON encodes the inner node.
func (w *wrapped) MarshalJSON() ([]byte, error) {
	if _, ok := w.inner.(serde.Serializable); !ok {
		return nil, errors.NotSerializable(NameOf(w.inner))
	}
	return json.Marshal(w.inner)
}

// Unwrap returns the decorated node.
func (w *wrapped) Unwrap() Node { return w.inner }

// WithTracing wraps node with an OpenTelemetry span named "{prefix}.{name}".
// The span is the parent of any span the node starts through its context.
func WithTracing(node Node, prefix string) Node {
	return &wrapped{inner: node, around: func(c *Context, name string, run func(*Context) error) error {
		ctx, span := observability.StartSpan(c.Context(), prefix+"."+name)
		defer span.End()

		observability.SetSpanAttribute(ctx, observability.AttrNode, name)
		observability.SetSpanAttribute(ctx, observability.AttrRunID, c.RunID())

		err := run(c.withContext(ctx))
		if err != nil {
			observability.SetSpanError(ctx, err)
		}
		return err
	}}
}

// WithMetrics wraps node with invocation count, duration and error metrics.
func WithMetrics(node Node, metrics *observability.Metrics) Node {
	return &wrapped{inner: node, around: func(c *Context, name string, run func(*Context) error) error {
		start := time.Now()
		err := run(c)
		status := "ok"
		if err != nil {
			status = "error"
			metrics.RecordError(c.Context(), "node", name)
		}
		metrics.RecordNode(c.Context(), name, status, time.Since(start))
		return err
	}}
}

// WithLogging wraps node with completion logging.
func WithLogging(node Node, log *logger.Logger) Node {
	return &wrapped{inner: node, around: func(c *Context, name string, run func(*Context) error) error {
		start := time.Now()
		err := run(c)

		fields := logger.DurationFields("node", time.Since(start))
		fields[logger.FieldNode] = name
		fields[logger.FieldRunID] = c.RunID()
		if err != nil {
			fields[logger.FieldError] = err.Error()
			log.Error("node failed", fields)
		} else {
			log.Debug("node completed", fields)
		}
		return err
	}}
}
