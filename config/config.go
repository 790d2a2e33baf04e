package config

import (
	"time"

	"github.com/kbukum/pipekit/logger"
	"github.com/kbukum/pipekit/observability"
	"github.com/kbukum/pipekit/pipes"
	"github.com/kbukum/pipekit/server"
	"github.com/kbukum/pipekit/stream"
	"github.com/kbukum/pipekit/validation"
)

// ServiceConfig contains the fields every pipekit process needs.
type ServiceConfig struct {
	Name        string        `yaml:"name" mapstructure:"name" validate:"required"`
	Environment string        `yaml:"environment" mapstructure:"environment" validate:"oneof=development staging production"`
	Version     string        `yaml:"version" mapstructure:"version"`
	Debug       bool          `yaml:"debug" mapstructure:"debug"`
	Logging     logger.Config `yaml:"logging" mapstructure:"logging"`
}

// ApplyDefaults applies default values to the service fields. Development
// turns on debug, and debug lowers the default log level.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	if c.Version == "" {
		c.Version = "dev"
	}
	if c.Debug && c.Logging.Level == "" {
		c.Logging.Level = "debug"
	}
	c.Logging.ApplyDefaults()
}

// RuntimeConfig holds the defaults applied to every run.
type RuntimeConfig struct {
	// BufferSize is the capacity of every channel in a run.
	BufferSize int `yaml:"buffer_size" mapstructure:"buffer_size" validate:"gte=0"`
	// OutputKey labels values emitted without a key.
	OutputKey string `yaml:"output_key" mapstructure:"output_key"`
	// Combine is "string" or "array".
	Combine string `yaml:"combine" mapstructure:"combine" validate:"omitempty,oneof=string array"`
	// Timeout bounds each run. Zero means no limit.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`
	// PipelineDirs are searched, in order, for named pipeline definitions.
	PipelineDirs []string `yaml:"pipeline_dirs" mapstructure:"pipeline_dirs"`
}

// ApplyDefaults fills unset runtime fields.
func (c *RuntimeConfig) ApplyDefaults() {
	if c.BufferSize == 0 {
		c.BufferSize = stream.DefaultBufferSize
	}
	if c.OutputKey == "" {
		c.OutputKey = pipes.DefaultOutputKey
	}
	if c.Combine == "" {
		c.Combine = string(stream.CombineString)
	}
	if len(c.PipelineDirs) == 0 {
		c.PipelineDirs = []string{"./pipelines"}
	}
}

// Options converts the runtime config into run options.
func (c *RuntimeConfig) Options() []pipes.Option {
	return []pipes.Option{
		pipes.WithBufferSize(c.BufferSize),
		pipes.WithOutputKey(c.OutputKey),
		pipes.WithCombine(stream.CombineMode(c.Combine)),
	}
}

// TelemetryConfig controls OTLP export of traces and metrics.
type TelemetryConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Endpoint is the OTLP HTTP host:port.
	Endpoint       string        `yaml:"endpoint" mapstructure:"endpoint" validate:"required_if=Enabled true"`
	Insecure       bool          `yaml:"insecure" mapstructure:"insecure"`
	SampleRate     float64       `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`
	MetricInterval time.Duration `yaml:"metric_interval" mapstructure:"metric_interval" validate:"gte=0"`
}

// ApplyDefaults fills unset telemetry fields from the observability defaults.
func (c *TelemetryConfig) ApplyDefaults() {
	tracer := observability.DefaultTracerConfig("")
	meter := observability.DefaultMeterConfig("")
	if c.Endpoint == "" {
		c.Endpoint = tracer.Endpoint
	}
	if c.SampleRate == 0 {
		c.SampleRate = tracer.SampleRate
	}
	if c.MetricInterval == 0 {
		c.MetricInterval = meter.Interval
	}
}

// Tracer builds the tracer config for svc.
func (c *TelemetryConfig) Tracer(svc *ServiceConfig) *observability.TracerConfig {
	return &observability.TracerConfig{
		ServiceName:    svc.Name,
		ServiceVersion: svc.Version,
		Environment:    svc.Environment,
		Endpoint:       c.Endpoint,
		Insecure:       c.Insecure,
		SampleRate:     c.SampleRate,
	}
}

// Meter builds the meter config for svc.
func (c *TelemetryConfig) Meter(svc *ServiceConfig) *observability.MeterConfig {
	return &observability.MeterConfig{
		ServiceName:    svc.Name,
		ServiceVersion: svc.Version,
		Environment:    svc.Environment,
		Endpoint:       c.Endpoint,
		Insecure:       c.Insecure,
		Interval:       c.MetricInterval,
	}
}

// Config is the complete configuration of a pipekit process.
type Config struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Runtime       RuntimeConfig   `yaml:"runtime" mapstructure:"runtime"`
	Telemetry     TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`
	Server        server.Config   `yaml:"server" mapstructure:"server"`
}

// ApplyDefaults applies defaults to every section.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Runtime.ApplyDefaults()
	c.Telemetry.ApplyDefaults()
	c.Server.ApplyDefaults()
}

// Validate checks every section. The returned error is an INVALID_INPUT
// AppError naming the failing fields.
func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if err := validation.Validate(c); err != nil {
		return err
	}
	return c.Server.Validate()
}
