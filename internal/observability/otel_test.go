package observability

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/tbourn/go-job-backend/internal/config"
)

// keepGlobals restores the otel globals and the zerolog logger after t, and
// returns a buffer receiving the log output meanwhile.
func keepGlobals(t *testing.T) *bytes.Buffer {
	t.Helper()
	tp, prop, eh := otel.GetTracerProvider(), otel.GetTextMapPropagator(), otel.GetErrorHandler()
	prevLog := log.Logger
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(prop)
		otel.SetErrorHandler(eh)
		log.Logger = prevLog
	})
	var buf bytes.Buffer
	log.Logger = zerolog.New(&buf)
	return &buf
}

func collectorConfig() config.OTELConfig {
	return config.OTELConfig{
		Enabled:     true,
		Insecure:    true,
		Endpoint:    "localhost:4317",
		ServiceName: "jobboard-api",
		SampleRatio: 0.5,
	}
}

func TestSetupOTel_DisabledLeavesGlobals(t *testing.T) {
	buf := keepGlobals(t)
	before := otel.GetTracerProvider()

	cfg := collectorConfig()
	cfg.Enabled = false
	shutdown, err := SetupOTel(context.Background(), cfg, "v0")
	if err != nil || shutdown == nil {
		t.Fatalf("disabled setup: shutdown=%v err=%v", shutdown != nil, err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("no-op shutdown: %v", err)
	}
	if otel.GetTracerProvider() != before {
		t.Fatalf("tracer provider replaced while tracing is disabled")
	}
	if strings.Contains(buf.String(), "tracing enabled") {
		t.Fatalf("disabled setup must not log: %s", buf.String())
	}
}

func TestSetupOTel_EnabledInstallsProviderAndRoutesErrors(t *testing.T) {
	buf := keepGlobals(t)

	shutdown, err := SetupOTel(context.Background(), collectorConfig(), "v1.2.3")
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
		defer cancel()
		_ = shutdown(ctx)
	}()

	if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
		t.Fatalf("expected sdk tracer provider, got %T", otel.GetTracerProvider())
	}
	fields := otel.GetTextMapPropagator().Fields()
	if !strings.Contains(strings.Join(fields, ","), "traceparent") || !strings.Contains(strings.Join(fields, ","), "baggage") {
		t.Fatalf("propagator fields = %v", fields)
	}

	otel.Handle(errors.New("dropped 3 spans"))
	out := buf.String()
	if !strings.Contains(out, `"message":"tracing enabled"`) || !strings.Contains(out, `"sample_ratio":0.5`) {
		t.Fatalf("missing startup log: %s", out)
	}
	if !strings.Contains(out, "dropped 3 spans") || !strings.Contains(out, `"component":"otel"`) {
		t.Fatalf("SDK error not routed to zerolog: %s", out)
	}
}

func TestSetupOTel_FailuresKeepGlobals(t *testing.T) {
	cases := map[string]func(){
		"exporter": func() {
			newOTLPExporterFn = func(context.Context, otlptrace.Client) (*otlptrace.Exporter, error) {
				return nil, errors.New("collector refused")
			}
		},
		"resource": func() {
			newServiceResourceFn = func(context.Context, string, string) (*resource.Resource, error) {
				return nil, errors.New("bad resource")
			}
		},
	}
	for name, breakSeam := range cases {
		t.Run(name, func(t *testing.T) {
			keepGlobals(t)
			exp, res := newOTLPExporterFn, newServiceResourceFn
			t.Cleanup(func() { newOTLPExporterFn, newServiceResourceFn = exp, res })
			breakSeam()

			before := otel.GetTracerProvider()
			if _, err := SetupOTel(context.Background(), collectorConfig(), "v0"); err == nil {
				t.Fatalf("expected error")
			}
			if otel.GetTracerProvider() != before {
				t.Fatalf("tracer provider replaced on failure")
			}
		})
	}
}

func TestServiceResource_Attributes(t *testing.T) {
	res, err := newServiceResourceFn(context.Background(), "jobboard-api", "v1.0.0")
	if err != nil {
		t.Fatalf("resource: %v", err)
	}
	got := map[string]string{}
	for _, kv := range res.Attributes() {
		got[string(kv.Key)] = kv.Value.Emit()
	}
	for k, v := range map[string]string{
		"service.name":      "jobboard-api",
		"service.version":   "v1.0.0",
		"service.namespace": "jobboard",
	} {
		if got[k] != v {
			t.Fatalf("%s = %q; want %q", k, got[k], v)
		}
	}
	if got["process.pid"] == "" {
		t.Fatalf("process.pid missing: %v", got)
	}
}
