package stream

import (
	"context"
	"fmt"
	"strings"
)

// CombineMode selects how Collect accumulates repeated keys.
type CombineMode string

const (
	// CombineString concatenates a key's values when all of them are strings
	// and keeps the list otherwise.
	CombineString CombineMode = "string"
	// CombineArray keeps every key's values as a list in arrival order.
	CombineArray CombineMode = "array"
)

// ParseCombineMode validates s. The empty string selects CombineString.
func ParseCombineMode(s string) (CombineMode, error) {
	switch CombineMode(s) {
	case "", CombineString:
		return CombineString, nil
	case CombineArray:
		return CombineArray, nil
	default:
		return "", fmt.Errorf("stream: unknown combine mode %q (want %q or %q)", s, CombineString, CombineArray)
	}
}

// Result maps each output key to its combined value: a string or a []any.
type Result map[string]any

// Collect drains it and combines the tuples by key. A key that never appears
// is absent from the result. If the stream ends with an error no partial
// result is returned.
func Collect(ctx context.Context, it Iterator[Tuple], mode CombineMode) (Result, error) {
	defer it.Close()

	grouped := make(map[string][]any)
	for {
		t, ok, err := it.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		grouped[t.Key] = append(grouped[t.Key], t.Value)
	}

	result := make(Result, len(grouped))
	for key, values := range grouped {
		if mode != CombineArray {
			if s, ok := joinStrings(values); ok {
				result[key] = s
				continue
			}
		}
		result[key] = values
	}
	return result, nil
}

// joinStrings concatenates values when every one of them is a string.
func joinStrings(values []any) (string, bool) {
	var b strings.Builder
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			return "", false
		}
		b.WriteString(s)
	}
	return b.String(), true
}
