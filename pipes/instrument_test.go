package pipes

import (
	"bytes"
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric/noop"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/pipekit/logger"
	"github.com/kbukum/pipekit/observability"
	"github.com/kbukum/pipekit/serde"
	"github.com/kbukum/pipekit/stream"
)

func TestInstrumentation_PreservesBehaviourAndForm(t *testing.T) {
	metrics, err := observability.NewMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatal(err)
	}
	base := appendText("a")
	wrapped := WithTracing(WithMetrics(WithLogging(base, logger.Nop()), metrics), "test")

	want, _ := serde.Serialize(base)
	got, err := serde.Serialize(wrapped)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if string(got) != string(want) {
		t.Errorf("wrapped form %s, want %s", got, want)
	}
	if NameOf(wrapped) != "Append" {
		t.Errorf("NameOf(wrapped) = %q", NameOf(wrapped))
	}

	res, err := Run(context.Background(), NewSequence(wrapped, appendText("b")), stream.Args{"k": ""})
	if err != nil {
		t.Fatal(err)
	}
	assertResult(t, res, map[string]any{"k": "ab", "0.k": "a"})
}

func TestWithTracing_RecordsSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	}()

	_, err := Run(context.Background(), WithTracing(appendText("a"), "pipekit.node"), stream.Args{"k": ""}, WithRunID("run-42"))
	if err != nil {
		t.Fatal(err)
	}

	names := map[string]bool{}
	for _, span := range exporter.GetSpans() {
		names[span.Name] = true
	}
	if !names["pipekit.node.Append"] || !names[observability.SpanRun] {
		t.Errorf("unexpected spans %v", names)
	}
}

func TestWithLogging_LogsFailure(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json"}, "test", &buf)

	sentinel := stderrors.New("nope")
	_, err := Run(context.Background(), WithLogging(failing(sentinel), log), nil, quiet())
	if !stderrors.Is(err, sentinel) {
		t.Fatalf("expected sentinel, got %v", err)
	}
	if !strings.Contains(buf.String(), `"message":"node failed"`) || !strings.Contains(buf.String(), "nope") {
		t.Errorf("expected failure log, got %q", buf.String())
	}
}

func TestWithMetrics_NotSerializableInner(t *testing.T) {
	metrics, _ := observability.NewMetrics(noop.NewMeterProvider().Meter("test"))
	if _, err := serde.Serialize(WithMetrics(identity(), metrics)); err == nil {
		t.Error("expected error serializing a wrapped non-serializable node")
	}
}
