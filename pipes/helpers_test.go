package pipes

import (
	"iter"
	"testing"

	"github.com/kbukum/pipekit/errors"
	"github.com/kbukum/pipekit/logger"
	"github.com/kbukum/pipekit/serde"
	"github.com/kbukum/pipekit/stream"
)

var appendID = []string{"test", "pipes", "Append"}

// appendNode appends its text to every string value.
type appendNode struct {
	serde.Base
	text string
}

func appendText(text string) *appendNode {
	return &appendNode{Base: serde.Constructed(appendID, text), text: text}
}

func (n *appendNode) Piece() Piece {
	return LazyPiece(func(c *Context) iter.Seq2[any, error] {
		return func(yield func(any, error) bool) {
			for t, err := range c.Inputs() {
				if err != nil {
					yield(nil, err)
					return
				}
				if s, ok := t.Value.(string); ok {
					t.Value = s + n.text
				}
				if !yield(t, nil) {
					return
				}
			}
		}
	})
}

func testRegistry() *serde.Registry {
	reg := serde.NewRegistry()
	Register(reg)
	reg.RegisterConstructor(appendID, func(args ...any) (any, error) {
		text, err := serde.Arg[string](args, 0)
		if err != nil {
			return nil, err
		}
		return appendText(text), nil
	})
	return reg
}

func failing(err error) Node {
	return DrainFunc(func(*Context) error { return err })
}

func quiet() Option { return WithLogger(logger.Nop()) }

func assertResult(t *testing.T, got stream.Result, want map[string]any) {
	t.Helper()
	if len(got) != len(want) {
		t.Errorf("result has %d keys, want %d: %v", len(got), len(want), got)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("result[%q] = %#v, want %#v", k, got[k], v)
		}
	}
}

func assertCode(t *testing.T, err error, code errors.ErrorCode) {
	t.Helper()
	appErr, ok := errors.AsAppError(err)
	if !ok {
		t.Fatalf("expected AppError with code %s, got %T: %v", code, err, err)
	}
	if appErr.Code != code {
		t.Errorf("code = %s, want %s (%v)", appErr.Code, code, err)
	}
}
