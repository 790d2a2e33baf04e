package pipes

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/kbukum/pipekit/errors"
	"github.com/kbukum/pipekit/serde"
	"github.com/kbukum/pipekit/stream"
)

// Registry identifiers for the Sequence constructor and the Chain function.
var (
	SequenceIdentifier = []string{"pipekit", "pipes", "sequence", "Sequence"}
	ChainIdentifier    = []string{"pipekit", "pipes", "sequence", "chain"}
)

// Sequence chains steps so each step's output is the next step's input.
// The output of every step but the last is also written to the sequence's
// output with keys prefixed by "{index}.".
type Sequence struct {
	serde.Base
	steps []Node
}

// NewSequence builds a Sequence over steps.
func NewSequence(steps ...Node) *Sequence {
	return newSequence(serde.KindConstructor, SequenceIdentifier, steps)
}

// Chain is the function form of NewSequence.
func Chain(steps ...Node) *Sequence {
	return newSequence(serde.KindFunction, ChainIdentifier, steps)
}

func newSequence(kind serde.Kind, identifier []string, steps []Node) *Sequence {
	args := make([]any, len(steps))
	for i, step := range steps {
		args[i] = step
	}
	return &Sequence{
		Base:  serde.NewBase(kind, identifier, args...),
		steps: slices.Clone(steps),
	}
}

// Name implements Named.
func (s *Sequence) Name() string { return "Sequence" }

// Steps returns the chained nodes.
func (s *Sequence) Steps() []Node { return slices.Clone(s.steps) }

// MarshalJSON fails when a step has no serialized form.
func (s *Sequence) MarshalJSON() ([]byte, error) {
	for i, step := range s.steps {
		if _, ok := step.(serde.Serializable); !ok {
			return nil, errors.NotSerializable(fmt.Sprintf("sequence step %d (%s)", i, NameOf(step)))
		}
	}
	return json.Marshal(s.Base)
}

// Piece implements Node.
func (s *Sequence) Piece() Piece { return DrainPiece(s.run) }

func (s *Sequence) run(c *Context) error {
	ctx := c.Context()
	if len(s.steps) == 0 {
		return stream.Pipe(ctx, c.Input(), c.Output(), stream.PreventClose())
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		c.Abort(err)
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	working := c.Input()
	last := len(s.steps) - 1
	for i, step := range s.steps {
		child, _ := c.Child(working)
		working = Consume(child, step)
		if i == last {
			break
		}

		var tap stream.Iterator[stream.Tuple]
		working, tap = stream.Tee(ctx, working, c.BufferSize())
		prefix := stream.IndexKey(i) + "."
		tagged := stream.Map(tap, func(_ context.Context, t stream.Tuple) (stream.Tuple, error) {
			return t.WithKey(prefix + t.Key), nil
		})
		wg.Go(func() {
			if err := stream.Pipe(ctx, tagged, c.Output(), stream.PreventClose()); err != nil {
				fail(err)
			}
		})
	}

	if err := stream.Pipe(ctx, working, c.Output(), stream.PreventClose()); err != nil {
		fail(err)
	}
	wg.Wait()
	return firstErr
}

// Register adds the Sequence constructor and the Chain function to reg.
func Register(reg *serde.Registry) {
	reg.RegisterConstructor(SequenceIdentifier, func(args ...any) (any, error) {
		steps, err := nodeArgs(args)
		if err != nil {
			return nil, err
		}
		return NewSequence(steps...), nil
	})
	reg.RegisterFunction(ChainIdentifier, func(args ...any) (any, error) {
		steps, err := nodeArgs(args)
		if err != nil {
			return nil, err
		}
		return Chain(steps...), nil
	})
}

func nodeArgs(args []any) ([]Node, error) {
	steps := make([]Node, len(args))
	for i, arg := range args {
		n, ok := arg.(Node)
		if !ok {
			return nil, fmt.Errorf("pipes: argument %d is %T, not a node", i, arg)
		}
		steps[i] = n
	}
	return steps, nil
}
