package serde

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// DecodeArgs decodes a revived argument into out, typically a pointer to a
// config struct. Field names follow `json` tags; json.Number and duration
// strings are converted to the field types.
func DecodeArgs(arg any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return fmt.Errorf("serde: building decoder: %w", err)
	}
	if err := dec.Decode(arg); err != nil {
		return fmt.Errorf("serde: decoding arguments: %w", err)
	}
	return nil
}

// Arg returns args[i] decoded as T.
func Arg[T any](args []any, i int) (T, error) {
	var out T
	if i >= len(args) {
		return out, fmt.Errorf("serde: missing argument %d", i)
	}
	if v, ok := args[i].(T); ok {
		return v, nil
	}
	if err := DecodeArgs(args[i], &out); err != nil {
		return out, fmt.Errorf("serde: argument %d: %w", i, err)
	}
	return out, nil
}

// Arity checks that exactly n arguments were supplied.
func Arity(args []any, n int) error {
	if len(args) != n {
		return fmt.Errorf("serde: got %d arguments, want %d", len(args), n)
	}
	return nil
}
