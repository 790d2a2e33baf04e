package stream

import (
	"sort"
	"strconv"
)

// Tuple is a single key-tagged value flowing through a Channel.
// Keys are not unique within a stream.
type Tuple struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// NewTuple builds a Tuple.
func NewTuple(key string, value any) Tuple {
	return Tuple{Key: key, Value: value}
}

// IndexKey returns the key used for integer-indexed tuples.
func IndexKey(i int) string {
	return strconv.Itoa(i)
}

// WithKey returns a copy of t carrying key.
func (t Tuple) WithKey(key string) Tuple {
	t.Key = key
	return t
}

// WithValue returns a copy of t carrying value.
func (t Tuple) WithValue(value any) Tuple {
	t.Value = value
	return t
}

// Args are the named seed values of a run.
type Args map[string]any

// Tuples returns one tuple per entry, ordered by key.
func (a Args) Tuples() []Tuple {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Tuple, len(keys))
	for i, k := range keys {
		out[i] = Tuple{Key: k, Value: a[k]}
	}
	return out
}
