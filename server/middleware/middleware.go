package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/kbukum/pipekit/errors"
)

// Middleware wraps an http.Handler with additional behavior. The server
// applies the whole stack around its root mux so every route, including
// streaming ones, sees the same chain.
type Middleware func(http.Handler) http.Handler

// Chain composes multiple middleware. The first in the list is the outermost
// (runs first on a request, last on a response).
func Chain(middlewares ...Middleware) Middleware {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// WriteError renders err as the standard JSON error body with its HTTP status.
func WriteError(w http.ResponseWriter, err *errors.AppError) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(err.HTTPStatus)
	_ = json.NewEncoder(w).Encode(err.ToResponse())
}
