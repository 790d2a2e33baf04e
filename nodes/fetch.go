package nodes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kbukum/pipekit/pipes"
	"github.com/kbukum/pipekit/serde"
)

// FetchIdentifier is the registry identifier of Fetch.
var FetchIdentifier = []string{"pipekit", "nodes", "http", "Fetch"}

const defaultMaxBytes = 10 << 20

// FetchConfig configures a Fetch node.
type FetchConfig struct {
	// Timeout bounds each request. Zero means no timeout beyond the run's.
	Timeout time.Duration `json:"timeout,omitempty"`
	// Headers are added to every request.
	Headers map[string]string `json:"headers,omitempty"`
	// MaxBytes caps the body read per response. Defaults to 10 MiB.
	MaxBytes int64 `json:"max_bytes,omitempty"`
}

// Fetch treats every string input value as a URL, GETs it and emits the
// response body text under the output key. A non-2xx response fails the node.
type Fetch struct {
	serde.Base
	Config FetchConfig
	client *http.Client
}

// NewFetch returns a Fetch node using an instrumented HTTP client.
func NewFetch(cfg FetchConfig) *Fetch {
	return NewFetchWithClient(cfg, &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)})
}

// NewFetchWithClient returns a Fetch node using client.
func NewFetchWithClient(cfg FetchConfig, client *http.Client) *Fetch {
	return &Fetch{Base: serde.Constructed(FetchIdentifier, cfg), Config: cfg, client: client}
}

func (n *Fetch) Piece() pipes.Piece {
	return pipes.DrainPiece(func(c *pipes.Context) error {
		for t, err := range c.Inputs() {
			if err != nil {
				return err
			}
			url, ok := t.Value.(string)
			if !ok {
				return fmt.Errorf("fetch: value of %q is %T, not a URL", t.Key, t.Value)
			}
			body, err := n.get(c, url)
			if err != nil {
				return err
			}
			if err := c.Emit(body); err != nil {
				return err
			}
		}
		return nil
	})
}

func (n *Fetch) get(c *pipes.Context, url string) (string, error) {
	ctx := c.Context()
	if n.Config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.Config.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("fetch: building request: %w", err)
	}
	for k, v := range n.Config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("HTTP error %d", resp.StatusCode)
	}

	limit := n.Config.MaxBytes
	if limit <= 0 {
		limit = defaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return "", fmt.Errorf("fetch: reading body: %w", err)
	}
	return string(data), nil
}
