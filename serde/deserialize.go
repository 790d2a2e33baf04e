package serde

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/kbukum/pipekit/errors"
)

// Deserialize parses data and revives every serialized record in it through
// reg. Numbers are kept as json.Number so that revived values re-serialize to
// the same text. No partially revived value is returned on error.
func Deserialize(data []byte, reg *Registry) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.InvalidRecord(nil, err.Error()).WithCause(err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.InvalidRecord(nil, "trailing data after JSON value")
	}
	return Revive(raw, reg)
}

// DeserializeAs deserializes data and asserts the result to T.
func DeserializeAs[T any](data []byte, reg *Registry) (T, error) {
	var zero T
	v, err := Deserialize(data, reg)
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, errors.InvalidRecord(identifierOf(v),
			fmt.Sprintf("revived %s, want %T", typeName(v), zero))
	}
	return out, nil
}

// Revive walks an already decoded JSON value, replacing serialized records
// with the values their symbols build.
func Revive(v any, reg *Registry) (any, error) {
	switch x := v.(type) {
	case map[string]any:
		if isRecord(x) {
			return reviveRecord(x, reg)
		}
		out := make(map[string]any, len(x))
		for k, field := range x {
			revived, err := Revive(field, reg)
			if err != nil {
				return nil, err
			}
			out[k] = revived
		}
		return out, nil
	case []any:
		out := make([]any, len(x))
		for i, elem := range x {
			revived, err := Revive(elem, reg)
			if err != nil {
				return nil, err
			}
			out[i] = revived
		}
		return out, nil
	default:
		return v, nil
	}
}

// isRecord reports whether m is a serialized record: every record field is
// present and v is the supported version. Anything else is a plain object.
func isRecord(m map[string]any) bool {
	for _, field := range []string{"v", "type", "identifier", "arguments"} {
		if _, ok := m[field]; !ok {
			return false
		}
	}
	return isVersion(m["v"])
}

func reviveRecord(m map[string]any, reg *Registry) (any, error) {
	rec, err := parseRecord(m)
	if err != nil {
		return nil, err
	}

	sym, ok := reg.Lookup(rec.Identifier)
	if !ok {
		return nil, errors.UnknownIdentifier(rec.Identifier)
	}
	var build Factory
	switch rec.Type {
	case KindConstructor:
		build = sym.Constructor
	case KindFunction:
		build = sym.Function
	}
	if build == nil {
		return nil, errors.NotInvokable(rec.Identifier, string(rec.Type))
	}

	args := make([]any, len(rec.Arguments))
	for i, arg := range rec.Arguments {
		revived, err := Revive(arg, reg)
		if err != nil {
			return nil, err
		}
		args[i] = revived
	}

	out, err := build(args...)
	if err != nil {
		return nil, errors.ConstructionFailed(rec.Identifier, err).WithDetail("reason", err.Error())
	}
	return out, nil
}

func parseRecord(m map[string]any) (Record, error) {
	identifier, ok := stringList(m["identifier"])
	if !ok || len(identifier) == 0 {
		return Record{}, errors.InvalidRecord(nil, "identifier must be a non-empty list of strings")
	}
	kind, _ := m["type"].(string)
	if Kind(kind) != KindConstructor && Kind(kind) != KindFunction {
		return Record{}, errors.InvalidRecord(identifier, fmt.Sprintf("invalid type %q", kind))
	}
	args, ok := m["arguments"].([]any)
	if !ok {
		return Record{}, errors.InvalidRecord(identifier, "arguments must be a list")
	}
	return Record{V: Version, Type: Kind(kind), Identifier: identifier, Arguments: args}, nil
}

func isVersion(v any) bool {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		return err == nil && i == Version
	case float64:
		return n == Version
	case int:
		return n == Version
	}
	return false
}

func stringList(v any) ([]string, bool) {
	items, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out[i] = s
	}
	return out, true
}

func identifierOf(v any) []string {
	if s, ok := v.(Serializable); ok {
		return s.Record().Identifier
	}
	return nil
}
