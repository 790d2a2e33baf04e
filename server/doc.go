// Package server exposes pipelines over HTTP using Gin, with h2c support and
// a net/http middleware stack applied around every route.
//
// # Routes
//
//   - POST /v1/run: run a pipeline and return the combined result
//   - POST /v1/stream: run a pipeline and stream its tuples as server-sent events
//   - GET /v1/registry: list registered identifiers
//   - GET /health: component health aggregation
//   - GET /version: build version information
//
// # Middleware
//
// Built-in middleware (server/middleware):
//
//   - Recovery: panic recovery with structured logging
//   - RequestID: request ID generation and propagation
//   - CORS: cross-origin resource sharing
//   - BodySizeLimit: request body size limits
//   - RequestLogger: request logging with duration tracking
//   - Auth: HMAC-signed JWT bearer tokens
package server
