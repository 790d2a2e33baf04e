// Package observability provides OpenTelemetry tracing and metrics for
// pipeline runs.
//
// Tracing:
//
//	cfg := observability.DefaultTracerConfig("pipekit")
//	tp, err := observability.InitTracer(ctx, &cfg)
//	defer tp.Shutdown(ctx)
//
// Metrics:
//
//	metrics, err := observability.NewMetrics(observability.Meter("pipekit"))
//	metrics.RecordNode(ctx, "suffix", "ok", duration)
//
// A RunScope ties the run span and the run metrics together:
//
//	scope := observability.NewRunScope(runID, metrics)
//	ctx, span := scope.Start(ctx)
//	defer scope.End(ctx, span, err)
package observability
