package nodes

import (
	"iter"

	"github.com/kbukum/pipekit/pipes"
	"github.com/kbukum/pipekit/serde"
)

// Registry identifiers of the text nodes.
var (
	IdentityIdentifier = []string{"pipekit", "nodes", "text", "Identity"}
	SuffixIdentifier   = []string{"pipekit", "nodes", "text", "Suffix"}
	PrefixIdentifier   = []string{"pipekit", "nodes", "text", "Prefix"}
)

// Identity forwards its input unchanged.
type Identity struct {
	serde.Base
}

// NewIdentity returns an Identity node.
func NewIdentity() *Identity {
	return &Identity{Base: serde.Constructed(IdentityIdentifier)}
}

func (n *Identity) Piece() pipes.Piece {
	return pipes.LazyPiece(func(c *pipes.Context) iter.Seq2[any, error] {
		return func(yield func(any, error) bool) {
			for t, err := range c.Inputs() {
				if !yield(t, err) {
					return
				}
			}
		}
	})
}

// Suffix appends Text to every string value. Other values pass unchanged.
type Suffix struct {
	serde.Base
	Text string
}

// NewSuffix returns a Suffix node.
func NewSuffix(text string) *Suffix {
	return &Suffix{Base: serde.Constructed(SuffixIdentifier, text), Text: text}
}

func (n *Suffix) Piece() pipes.Piece {
	return mapStrings(func(s string) string { return s + n.Text })
}

// Prefix prepends Text to every string value. Other values pass unchanged.
type Prefix struct {
	serde.Base
	Text string
}

// NewPrefix returns a Prefix node.
func NewPrefix(text string) *Prefix {
	return &Prefix{Base: serde.Constructed(PrefixIdentifier, text), Text: text}
}

func (n *Prefix) Piece() pipes.Piece {
	return mapStrings(func(s string) string { return n.Text + s })
}

func mapStrings(fn func(string) string) pipes.Piece {
	return pipes.LazyPiece(func(c *pipes.Context) iter.Seq2[any, error] {
		return func(yield func(any, error) bool) {
			for t, err := range c.Inputs() {
				if err != nil {
					yield(nil, err)
					return
				}
				if s, ok := t.Value.(string); ok {
					t = t.WithValue(fn(s))
				}
				if !yield(t, nil) {
					return
				}
			}
		}
	})
}

// Rename relabels tuples whose key appears in Mapping.
type Rename struct {
	serde.Base
	Mapping map[string]string
}

// RenameIdentifier is the registry identifier of Rename.
var RenameIdentifier = []string{"pipekit", "nodes", "text", "Rename"}

// NewRename returns a Rename node.
func NewRename(mapping map[string]string) *Rename {
	return &Rename{Base: serde.Constructed(RenameIdentifier, mapping), Mapping: mapping}
}

func (n *Rename) Piece() pipes.Piece {
	return pipes.DrainPiece(func(c *pipes.Context) error {
		for t, err := range c.Inputs() {
			if err != nil {
				return err
			}
			if to, ok := n.Mapping[t.Key]; ok {
				t = t.WithKey(to)
			}
			if err := c.Emit(t); err != nil {
				return err
			}
		}
		return nil
	})
}
