package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kbukum/pipekit/errors"
	"github.com/kbukum/pipekit/logger"
	"github.com/kbukum/pipekit/observability"
	"github.com/kbukum/pipekit/pipes"
	"github.com/kbukum/pipekit/serde"
	"github.com/kbukum/pipekit/stream"
	"github.com/kbukum/pipekit/validation"
)

// RunRequest selects a pipeline, either inline as a serialized record or by
// name through the configured loader, and the arguments to seed it with.
type RunRequest struct {
	Pipeline json.RawMessage `json:"pipeline,omitempty"`
	Name     string          `json:"name,omitempty"`
	Args     map[string]any  `json:"args,omitempty"`
	Combine  string          `json:"combine,omitempty" validate:"omitempty,oneof=string array"`
	// RunID must be a UUID when set. One is generated otherwise.
	RunID string `json:"run_id,omitempty"`
}

func (r *RunRequest) runID() string {
	if r.RunID != "" {
		return r.RunID
	}
	return uuid.NewString()
}

// RunResponse is the body of a successful POST /v1/run.
type RunResponse struct {
	RunID  string        `json:"run_id"`
	Result stream.Result `json:"result"`
}

// Pipelines serves the run, stream and registry routes.
type Pipelines struct {
	registry *serde.Registry
	loader   serde.Loader
	options  []pipes.Option
	timeout  time.Duration
	log      *logger.Logger
}

// PipelinesConfig configures Pipelines. Loader is optional; without it only
// inline pipelines are accepted.
type PipelinesConfig struct {
	Registry *serde.Registry
	Loader   serde.Loader
	Options  []pipes.Option
	// Timeout bounds every run started over HTTP. Zero means no limit.
	Timeout time.Duration
	Logger  *logger.Logger
}

// NewPipelines creates the pipeline handlers.
func NewPipelines(cfg PipelinesConfig) *Pipelines {
	log := cfg.Logger
	if log == nil {
		log = logger.Get("server")
	}
	return &Pipelines{
		registry: cfg.Registry,
		loader:   cfg.Loader,
		options:  cfg.Options,
		timeout:  cfg.Timeout,
		log:      log,
	}
}

// Register mounts the routes on r.
func (p *Pipelines) Register(r gin.IRoutes) {
	r.POST("/v1/run", p.Run)
	r.POST("/v1/stream", p.Stream)
	r.GET("/v1/registry", p.Registry)
}

// RegisterPipelines mounts the pipeline routes on the server's engine.
func (s *Server) RegisterPipelines(p *Pipelines) {
	p.Register(s.engine)
}

// Run executes a pipeline to completion and returns the combined result.
func (p *Pipelines) Run(c *gin.Context) {
	node, req, err := p.bind(c)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	ctx, cancel := p.runContext(c.Request.Context())
	defer cancel()

	runID := req.runID()
	result, err := pipes.Run(ctx, node, stream.Args(req.Args), p.runOptions(c, runID, req)...)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, RunResponse{RunID: runID, Result: result})
}

// Stream executes a pipeline and forwards each output tuple as a server-sent
// "tuple" event. The stream ends with a "done" event carrying the run ID, or
// an "error" event carrying the error body.
func (p *Pipelines) Stream(c *gin.Context) {
	node, req, err := p.bind(c)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	ctx, cancel := p.runContext(c.Request.Context())
	defer cancel()

	runID := req.runID()
	it := pipes.Stream(ctx, node, stream.Args(req.Args), p.runOptions(c, runID, req)...)

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	for t, err := range stream.All(ctx, it) {
		if err != nil {
			c.SSEvent("error", errors.From(err).ToResponse())
			c.Writer.Flush()
			return
		}
		c.SSEvent("tuple", t)
		c.Writer.Flush()
	}
	c.SSEvent("done", gin.H{"run_id": runID})
	c.Writer.Flush()
}

// Registry lists every registered identifier.
func (p *Pipelines) Registry(c *gin.Context) {
	RespondOK(c, p.registry.List())
}

// CheckHealth reports the registry as degraded while it is empty.
func (p *Pipelines) CheckHealth(_ context.Context) observability.Health {
	n := p.registry.Len()
	h := observability.Health{
		Name:    "registry",
		Status:  observability.HealthStatusUp,
		Details: map[string]string{"symbols": fmt.Sprint(n)},
	}
	if n == 0 {
		h.Status = observability.HealthStatusDegraded
		h.Message = "no symbols registered"
	}
	return h
}

func (p *Pipelines) bind(c *gin.Context) (pipes.Node, *RunRequest, error) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, nil, errors.InvalidInput("", err.Error())
	}
	if err := validation.Validate(&req); err != nil {
		return nil, nil, err
	}
	hasInline := len(req.Pipeline) > 0 && string(req.Pipeline) != "null"
	err := validation.New().
		Custom(hasInline != (req.Name != ""), "pipeline", "exactly one of pipeline or name is required").
		OptionalUUID("run_id", req.RunID).
		Validate()
	if err != nil {
		return nil, nil, err
	}

	var v any
	if hasInline {
		v, err = serde.Deserialize(req.Pipeline, p.registry)
	} else {
		v, err = p.load(req.Name)
	}
	if err != nil {
		return nil, nil, err
	}
	node, ok := v.(pipes.Node)
	if !ok {
		return nil, nil, errors.InvalidInput("pipeline", fmt.Sprintf("%T is not a node", v))
	}
	return node, &req, nil
}

func (p *Pipelines) load(name string) (any, error) {
	if p.loader == nil {
		return nil, errors.PipelineNotFound(name)
	}
	return p.loader.Load(name)
}

func (p *Pipelines) runContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout > 0 {
		return context.WithTimeout(ctx, p.timeout)
	}
	return context.WithCancel(ctx)
}

func (p *Pipelines) runOptions(c *gin.Context, runID string, req *RunRequest) []pipes.Option {
	log := p.log
	if id := c.GetHeader("X-Request-Id"); id != "" {
		log = log.WithFields(logger.Fields(logger.FieldRequestID, id))
	}
	opts := slices.Clone(p.options)
	opts = append(opts, pipes.WithRunID(runID), pipes.WithLogger(log))
	if req.Combine != "" {
		opts = append(opts, pipes.WithCombine(stream.CombineMode(req.Combine)))
	}
	return opts
}
