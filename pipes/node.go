package pipes

import (
	"fmt"
	"iter"

	"github.com/kbukum/pipekit/serde"
)

// Kind tags the shape of a Piece.
type Kind int

const (
	// Draining pieces write to the output themselves and signal completion
	// by returning.
	Draining Kind = iota
	// Lazy pieces yield values that the runtime forwards to the output.
	Lazy
)

func (k Kind) String() string {
	switch k {
	case Draining:
		return "draining"
	case Lazy:
		return "lazy"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Piece is the runnable form of a node.
type Piece struct {
	kind  Kind
	drain func(*Context) error
	lazy  func(*Context) iter.Seq2[any, error]
}

// DrainPiece returns a Draining piece.
func DrainPiece(fn func(*Context) error) Piece {
	return Piece{kind: Draining, drain: fn}
}

// LazyPiece returns a Lazy piece. Values yielded as stream.Tuple keep their
// key; any other value is labelled with the context's output key.
func LazyPiece(fn func(*Context) iter.Seq2[any, error]) Piece {
	return Piece{kind: Lazy, lazy: fn}
}

// Kind reports the piece's shape.
func (p Piece) Kind() Kind { return p.kind }

// Node is a unit of computation.
type Node interface {
	Piece() Piece
}

// DrainFunc adapts a function into a Draining node.
type DrainFunc func(*Context) error

func (f DrainFunc) Piece() Piece { return DrainPiece(f) }

// LazyFunc adapts a generator into a Lazy node.
type LazyFunc func(*Context) iter.Seq2[any, error]

func (f LazyFunc) Piece() Piece { return LazyPiece(f) }

// Named is implemented by nodes that report a display name.
type Named interface {
	Name() string
}

// NameOf returns a display name for node: its Name, the last segment of its
// serialized identifier, or its Go type.
func NameOf(node Node) string {
	if n, ok := node.(Named); ok {
		return n.Name()
	}
	if s, ok := node.(serde.Serializable); ok {
		if id := s.Record().Identifier; len(id) > 0 {
			return id[len(id)-1]
		}
	}
	return fmt.Sprintf("%T", node)
}
