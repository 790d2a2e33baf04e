package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/pipekit/logger"
	"github.com/kbukum/pipekit/server"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Server is a pipekit server listening on a local httptest port.
type Server struct {
	*server.Server
	ts *httptest.Server
}

// NewServer wires the pipeline routes, probes and middleware, starts an
// httptest server and closes it when the test ends. configure may adjust the
// server config before defaults are applied.
func NewServer(t testing.TB, pcfg server.PipelinesConfig, configure ...func(*server.Config)) *Server {
	t.Helper()

	cfg := server.Config{Host: "127.0.0.1"}
	for _, fn := range configure {
		fn(&cfg)
	}
	cfg.ApplyDefaults()

	if pcfg.Logger == nil {
		pcfg.Logger = logger.Nop()
	}
	srv := server.New(cfg, pcfg.Logger)
	pipelines := server.NewPipelines(pcfg)
	srv.RegisterPipelines(pipelines)
	srv.RegisterDefaultEndpoints("pipekit-test", "test", pipelines)
	srv.ApplyMiddleware()

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &Server{Server: srv, ts: ts}
}

// URL returns the base URL, e.g. "http://127.0.0.1:PORT".
func (s *Server) URL() string {
	return s.ts.URL
}

// Do sends a request to path with an optional JSON body and header pairs.
func (s *Server) Do(t testing.TB, method, path string, body any, header ...string) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequestWithContext(t.Context(), method, s.ts.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := s.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// PostJSON is Do with POST.
func (s *Server) PostJSON(t testing.TB, path string, body any, header ...string) *http.Response {
	t.Helper()
	return s.Do(t, http.MethodPost, path, body, header...)
}

// DecodeJSON decodes resp's body into out.
func DecodeJSON(t testing.TB, resp *http.Response, out any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}
