package server_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/pipekit/errors"
	"github.com/kbukum/pipekit/nodes"
	"github.com/kbukum/pipekit/observability"
	"github.com/kbukum/pipekit/pipes"
	"github.com/kbukum/pipekit/serde"
	"github.com/kbukum/pipekit/server"
	"github.com/kbukum/pipekit/server/testutil"
)

const failRecord = `{"v":1,"type":"constructor","identifier":["test","Fail"],"arguments":[]}`

func testRegistry() *serde.Registry {
	reg := serde.NewRegistry()
	pipes.Register(reg)
	nodes.Register(reg)
	reg.RegisterConstructor([]string{"test", "Fail"}, func(...any) (any, error) {
		return pipes.DrainFunc(func(*pipes.Context) error { return fmt.Errorf("boom") }), nil
	})
	reg.RegisterConstructor([]string{"test", "Number"}, func(...any) (any, error) {
		return 42, nil
	})
	return reg
}

func abPipeline(t *testing.T) json.RawMessage {
	t.Helper()
	raw, err := serde.Serialize(pipes.NewSequence(nodes.NewSuffix("a"), nodes.NewSuffix("b")))
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	return raw
}

type runEnvelope struct {
	Data server.RunResponse `json:"data"`
}

func decodeError(t *testing.T, resp *http.Response) errors.ErrorBody {
	t.Helper()
	var body errors.ErrorResponse
	testutil.DecodeJSON(t, resp, &body)
	return body.Error
}

func TestRun_Inline(t *testing.T) {
	srv := testutil.NewServer(t, server.PipelinesConfig{Registry: testRegistry()})

	resp := srv.PostJSON(t, "/v1/run", server.RunRequest{
		Pipeline: abPipeline(t),
		Args:     map[string]any{"input": "x"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var env runEnvelope
	testutil.DecodeJSON(t, resp, &env)

	if env.Data.RunID == "" {
		t.Error("expected run_id")
	}
	want := map[string]any{"input": "xab", "0.input": "xa"}
	for k, v := range want {
		if env.Data.Result[k] != v {
			t.Errorf("result[%q] = %v, want %v", k, env.Data.Result[k], v)
		}
	}
	if len(env.Data.Result) != len(want) {
		t.Errorf("unexpected result %v", env.Data.Result)
	}
}

func TestRun_ArrayCombine(t *testing.T) {
	srv := testutil.NewServer(t, server.PipelinesConfig{Registry: testRegistry()})

	resp := srv.PostJSON(t, "/v1/run", server.RunRequest{
		Pipeline: abPipeline(t),
		Args:     map[string]any{"input": "x"},
		Combine:  "array",
		RunID:    "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
	})
	var env runEnvelope
	testutil.DecodeJSON(t, resp, &env)

	if env.Data.RunID != "6ba7b810-9dad-11d1-80b4-00c04fd430c8" {
		t.Errorf("run_id = %q, want the requested one", env.Data.RunID)
	}
	got, ok := env.Data.Result["input"].([]any)
	if !ok || len(got) != 1 || got[0] != "xab" {
		t.Fatalf("input = %#v", env.Data.Result["input"])
	}
}

func TestRun_ByName(t *testing.T) {
	dir := t.TempDir()
	def := `
v: 1
type: constructor
identifier: [pipekit, nodes, text, Suffix]
arguments: ["!"]
`
	if err := os.WriteFile(filepath.Join(dir, "shout.yaml"), []byte(def), 0o644); err != nil {
		t.Fatal(err)
	}
	reg := testRegistry()
	srv := testutil.NewServer(t, server.PipelinesConfig{
		Registry: reg,
		Loader:   serde.NewFileLoader(reg, dir),
	})

	resp := srv.PostJSON(t, "/v1/run", server.RunRequest{Name: "shout", Args: map[string]any{"output": "hi"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var env runEnvelope
	testutil.DecodeJSON(t, resp, &env)
	if env.Data.Result["output"] != "hi!" {
		t.Errorf("result = %v", env.Data.Result)
	}

	missing := srv.PostJSON(t, "/v1/run", server.RunRequest{Name: "whisper"})
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("missing: status = %d", missing.StatusCode)
	}
}

func TestRun_Errors(t *testing.T) {
	srv := testutil.NewServer(t, server.PipelinesConfig{Registry: testRegistry()})

	unknown := `{"v":1,"type":"constructor","identifier":["nope"],"arguments":[]}`
	number := `{"v":1,"type":"constructor","identifier":["test","Number"],"arguments":[]}`
	tests := []struct {
		name   string
		body   any
		status int
		code   errors.ErrorCode
	}{
		{"malformed body", "{", http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"nothing selected", server.RunRequest{}, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"both selected", server.RunRequest{Pipeline: abPipeline(t), Name: "x"}, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"bad combine", server.RunRequest{Pipeline: abPipeline(t), Combine: "sum"}, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"unknown identifier", server.RunRequest{Pipeline: json.RawMessage(unknown)}, http.StatusBadRequest, errors.ErrCodeUnknownIdentifier},
		{"bad run id", server.RunRequest{Pipeline: abPipeline(t), RunID: "run-1"}, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"not a node", server.RunRequest{Pipeline: json.RawMessage(number)}, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"no loader", server.RunRequest{Name: "x"}, http.StatusNotFound, errors.ErrCodeNotFound},
		{"node fails", server.RunRequest{Pipeline: json.RawMessage(failRecord)}, http.StatusUnprocessableEntity, errors.ErrCodeNodeFailed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := srv.PostJSON(t, "/v1/run", tc.body)
			if resp.StatusCode != tc.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.status)
			}
			if body := decodeError(t, resp); body.Code != tc.code {
				t.Errorf("code = %s, want %s", body.Code, tc.code)
			}
		})
	}
}

func TestRun_Timeout(t *testing.T) {
	reg := testRegistry()
	reg.RegisterConstructor([]string{"test", "Hang"}, func(...any) (any, error) {
		return pipes.DrainFunc(func(c *pipes.Context) error {
			<-c.Context().Done()
			return c.Context().Err()
		}), nil
	})
	srv := testutil.NewServer(t, server.PipelinesConfig{Registry: reg, Timeout: 50 * time.Millisecond})

	hang := `{"v":1,"type":"constructor","identifier":["test","Hang"],"arguments":[]}`
	resp := srv.PostJSON(t, "/v1/run", server.RunRequest{Pipeline: json.RawMessage(hang)})
	if resp.StatusCode != http.StatusGatewayTimeout {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body := decodeError(t, resp); body.Code != errors.ErrCodeTimeout {
		t.Errorf("code = %s", body.Code)
	}
}

func readEvents(t *testing.T, resp *http.Response) string {
	t.Helper()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("content type = %q", ct)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

func TestStream(t *testing.T) {
	srv := testutil.NewServer(t, server.PipelinesConfig{Registry: testRegistry()})

	resp := srv.PostJSON(t, "/v1/stream", server.RunRequest{
		Pipeline: abPipeline(t),
		Args:     map[string]any{"input": "x"},
	})
	body := readEvents(t, resp)

	if n := strings.Count(body, "event:tuple"); n != 2 {
		t.Errorf("expected 2 tuple events, got %d:\n%s", n, body)
	}
	for _, want := range []string{`"key":"0.input","value":"xa"`, `"key":"input","value":"xab"`, "event:done"} {
		if !strings.Contains(body, want) {
			t.Errorf("missing %s in:\n%s", want, body)
		}
	}
	if strings.Contains(body, "event:error") {
		t.Errorf("unexpected error event:\n%s", body)
	}
}

func TestStream_Error(t *testing.T) {
	srv := testutil.NewServer(t, server.PipelinesConfig{Registry: testRegistry()})

	resp := srv.PostJSON(t, "/v1/stream", server.RunRequest{Pipeline: json.RawMessage(failRecord)})
	body := readEvents(t, resp)

	if !strings.Contains(body, "event:error") || !strings.Contains(body, string(errors.ErrCodeNodeFailed)) {
		t.Errorf("expected NODE_FAILED error event:\n%s", body)
	}
	if strings.Contains(body, "event:done") {
		t.Errorf("unexpected done event:\n%s", body)
	}
}

func TestRegistry(t *testing.T) {
	srv := testutil.NewServer(t, server.PipelinesConfig{Registry: testRegistry()})

	resp := srv.Do(t, http.MethodGet, "/v1/registry", nil)
	var env struct {
		Data []serde.Entry `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &env)

	found := false
	for _, e := range env.Data {
		if strings.Join(e.Identifier, "/") == strings.Join(pipes.SequenceIdentifier, "/") {
			found = e.Constructor
		}
	}
	if !found {
		t.Errorf("sequence constructor not listed: %+v", env.Data)
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name string
		reg  *serde.Registry
		want observability.HealthStatus
	}{
		{"populated registry", testRegistry(), observability.HealthStatusUp},
		{"empty registry", serde.NewRegistry(), observability.HealthStatusDegraded},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := testutil.NewServer(t, server.PipelinesConfig{Registry: tc.reg})
			resp := srv.Do(t, http.MethodGet, "/health", nil)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d", resp.StatusCode)
			}
			var report observability.ServiceHealth
			testutil.DecodeJSON(t, resp, &report)
			if report.Status != tc.want {
				t.Errorf("status = %s, want %s", report.Status, tc.want)
			}
			if len(report.Components) != 1 || report.Components[0].Name != "registry" {
				t.Errorf("components = %+v", report.Components)
			}
		})
	}
}

func TestVersion(t *testing.T) {
	srv := testutil.NewServer(t, server.PipelinesConfig{Registry: testRegistry()})

	resp := srv.Do(t, http.MethodGet, "/version", nil)
	var info map[string]any
	testutil.DecodeJSON(t, resp, &info)
	if info["version"] == "" || info["version"] == nil {
		t.Errorf("missing version: %v", info)
	}
}

func TestAuth(t *testing.T) {
	srv := testutil.NewServer(t, server.PipelinesConfig{Registry: testRegistry()}, func(c *server.Config) {
		c.Auth.Enabled = true
		c.Auth.Secret = "s3cret"
	})

	if resp := srv.Do(t, http.MethodGet, "/health", nil); resp.StatusCode != http.StatusOK {
		t.Errorf("health: status = %d", resp.StatusCode)
	}
	if resp := srv.Do(t, http.MethodGet, "/v1/registry", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token: status = %d", resp.StatusCode)
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "ci"}).SignedString([]byte("s3cret"))
	if err != nil {
		t.Fatal(err)
	}
	resp := srv.Do(t, http.MethodGet, "/v1/registry", nil, "Authorization", "Bearer "+token)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("with token: status = %d", resp.StatusCode)
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv := testutil.NewServer(t, server.PipelinesConfig{Registry: testRegistry()})

	resp := srv.Do(t, http.MethodGet, "/version", nil, "X-Request-Id", "req-1")
	if got := resp.Header.Get("X-Request-Id"); got != "req-1" {
		t.Errorf("X-Request-Id = %q", got)
	}
}

func TestRoutes(t *testing.T) {
	srv := testutil.NewServer(t, server.PipelinesConfig{Registry: testRegistry()})

	var got []string
	for _, r := range srv.Routes() {
		got = append(got, r.Method+" "+r.Path)
	}
	want := []string{
		"GET /v1/registry",
		"POST /v1/run",
		"POST /v1/stream",
		"GET /health",
		"GET /version",
	}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("routes = %v, want %v", got, want)
	}
}

func TestConfig(t *testing.T) {
	var cfg server.Config
	cfg.ApplyDefaults()
	if cfg.Port != 8080 || cfg.MaxBodySize != "10MB" || cfg.WriteTimeout != 5*time.Minute {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}

	cfg.Auth.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for auth without secret")
	}

	cfg = server.Config{Port: 70000}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for out of range port")
	}
}
