package pipes

import (
	"github.com/kbukum/pipekit/logger"
	"github.com/kbukum/pipekit/observability"
	"github.com/kbukum/pipekit/stream"
)

type options struct {
	outputKey  string
	combine    stream.CombineMode
	bufferSize int
	seed       []stream.Tuple
	runID      string
	log        *logger.Logger
	metrics    *observability.Metrics
	onAbort    []func(error)
}

// Option configures Stream and Run.
type Option func(*options)

func newOptions(opts []Option) *options {
	o := &options{
		outputKey:  DefaultOutputKey,
		combine:    stream.CombineString,
		bufferSize: stream.DefaultBufferSize,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = logger.Get("pipes")
	}
	return o
}

// WithOutputKey sets the label given to values emitted without a key.
func WithOutputKey(key string) Option {
	return func(o *options) {
		if key != "" {
			o.outputKey = key
		}
	}
}

// WithCombine selects how Run combines repeated keys.
func WithCombine(mode stream.CombineMode) Option {
	return func(o *options) {
		if mode != "" {
			o.combine = mode
		}
	}
}

// WithBufferSize sets the capacity of every channel in the run.
func WithBufferSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.bufferSize = n
		}
	}
}

// WithSeed replaces the args-derived seed stream with tuples, in order.
func WithSeed(tuples []stream.Tuple) Option {
	return func(o *options) { o.seed = tuples }
}

// WithRunID sets the run identifier. A random UUID is used otherwise.
func WithRunID(id string) Option {
	return func(o *options) { o.runID = id }
}

// WithLogger sets the run's logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithRunMetrics records run-level metrics on m.
func WithRunMetrics(m *observability.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// OnAbort registers fn to be called once with the cause when the run is
// cancelled before it completes. Several callbacks may be registered.
func OnAbort(fn func(cause error)) Option {
	return func(o *options) { o.onAbort = append(o.onAbort, fn) }
}
