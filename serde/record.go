package serde

import (
	"encoding/json"
	"slices"

	"github.com/kbukum/pipekit/errors"
)

// Version is the only record version this package reads and writes.
const Version = 1

// Kind selects how a record's symbol is invoked when revived.
type Kind string

const (
	KindConstructor Kind = "constructor"
	KindFunction    Kind = "function"
)

// Record is the serialized form of a node.
type Record struct {
	V          int      `json:"v"`
	Type       Kind     `json:"type"`
	Identifier []string `json:"identifier"`
	Arguments  []any    `json:"arguments"`
}

// Serializable is implemented by values that have a serialized form.
type Serializable interface {
	Record() Record
}

// Base is embedded by serializable nodes. It remembers the identifier and the
// exact arguments the node was built with.
type Base struct {
	record Record
}

// NewBase builds a Base for a value created by invoking identifier with args.
func NewBase(kind Kind, identifier []string, args ...any) Base {
	if args == nil {
		args = []any{}
	}
	return Base{record: Record{
		V:          Version,
		Type:       kind,
		Identifier: slices.Clone(identifier),
		Arguments:  args,
	}}
}

// Constructed is shorthand for NewBase(KindConstructor, ...).
func Constructed(identifier []string, args ...any) Base {
	return NewBase(KindConstructor, identifier, args...)
}

// Record returns the serialized form.
func (b Base) Record() Record {
	r := b.record
	r.Identifier = slices.Clone(r.Identifier)
	r.Arguments = slices.Clone(r.Arguments)
	return r
}

// MarshalJSON encodes the record. Arguments that are themselves serializable
// are encoded through their own MarshalJSON.
func (b Base) MarshalJSON() ([]byte, error) {
	if b.record.V == 0 {
		return nil, errors.NotSerializable("value with an empty serde.Base")
	}
	return json.Marshal(b.record)
}

// Serialize encodes v, which must have a serialized form.
func Serialize(v any) ([]byte, error) {
	if _, ok := v.(Serializable); !ok {
		return nil, errors.NotSerializable(typeName(v))
	}
	return json.Marshal(v)
}
