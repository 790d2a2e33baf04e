package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/kbukum/pipekit/config"
	"github.com/kbukum/pipekit/logger"
	"github.com/kbukum/pipekit/nodes"
	"github.com/kbukum/pipekit/observability"
	"github.com/kbukum/pipekit/pipes"
	"github.com/kbukum/pipekit/serde"
)

// app holds everything a command needs after bootstrap.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	registry *serde.Registry
	loader   *serde.FileLoader
	metrics  *observability.Metrics
	shutdown []func(context.Context) error
}

func newApp(ctx context.Context, flags *globalFlags) (*app, error) {
	var opts []config.LoaderOption
	if flags.configFile != "" {
		opts = append(opts, config.WithConfigFile(flags.configFile))
	}
	if flags.envFile != "" {
		opts = append(opts, config.WithEnvFile(flags.envFile))
	}
	cfg, err := config.Load(serviceName, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
		if err := cfg.Logging.Validate(); err != nil {
			return nil, err
		}
	}

	log := logger.New(&cfg.Logging, cfg.Name)
	logger.SetGlobalLogger(log)
	for _, component := range []string{"pipes", "server"} {
		logger.Register(component, log.WithComponent(component))
	}

	reg := serde.NewRegistry()
	pipes.Register(reg)
	nodes.Register(reg)

	a := &app{
		cfg:      cfg,
		log:      log,
		registry: reg,
		loader:   serde.NewFileLoader(reg, cfg.Runtime.PipelineDirs...),
	}
	if err := a.initTelemetry(ctx); err != nil {
		_ = a.close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *app) initTelemetry(ctx context.Context) error {
	if a.cfg.Telemetry.Enabled {
		tp, err := observability.InitTracer(ctx, a.cfg.Telemetry.Tracer(&a.cfg.ServiceConfig))
		if err != nil {
			return fmt.Errorf("initializing tracer: %w", err)
		}
		a.shutdown = append(a.shutdown, tp.Shutdown)

		mp, err := observability.InitMeter(ctx, a.cfg.Telemetry.Meter(&a.cfg.ServiceConfig))
		if err != nil {
			return fmt.Errorf("initializing meter: %w", err)
		}
		a.shutdown = append(a.shutdown, mp.Shutdown)
		a.log.Info("Telemetry enabled", logger.Fields("endpoint", a.cfg.Telemetry.Endpoint))
	}

	// Falls back to the no-op global meter when telemetry is off.
	m, err := observability.NewMetrics(observability.Meter(serviceName))
	if err != nil {
		return err
	}
	a.metrics = m
	return nil
}

// runOptions are the options every run started by this process gets.
func (a *app) runOptions() []pipes.Option {
	return append(a.cfg.Runtime.Options(),
		pipes.WithLogger(logger.Get("pipes")),
		pipes.WithRunMetrics(a.metrics),
	)
}

// instrument wraps the top-level node with spans and node metrics when
// telemetry is on.
func (a *app) instrument(node pipes.Node) pipes.Node {
	if !a.cfg.Telemetry.Enabled {
		return node
	}
	return pipes.WithTracing(pipes.WithMetrics(node, a.metrics), serviceName)
}

func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.shutdown) - 1; i >= 0; i-- {
		errs = append(errs, a.shutdown[i](ctx))
	}
	a.shutdown = nil
	return errors.Join(errs...)
}
