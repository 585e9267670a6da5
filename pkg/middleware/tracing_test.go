package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTestTracer installs an in-memory span exporter, restoring the previous
// global tracer provider when the test ends.
func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	t.Cleanup(func() {
		tp.Shutdown(context.Background()) //nolint:errcheck
		otel.SetTracerProvider(prev)
	})

	return exporter
}

// tracedRequest routes one GET through the Tracing middleware and returns the
// recorder.
func tracedRequest(pattern, target string, status int, mutate func(*http.Request)) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Use(Tracing("fitmatch"))
	r.Get(pattern, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})

	req := httptest.NewRequest(http.MethodGet, target, nil)
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestTracing_SpanNamedByRoutePattern(t *testing.T) {
	exporter := setupTestTracer(t)

	rec := tracedRequest("/compatible/{sku}", "/compatible/FB-1001", http.StatusOK, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	spans := exporter.GetSpans()
	require.NotEmpty(t, spans)

	// The span is renamed to the chi pattern so SKUs don't explode span
	// cardinality.
	assert.Equal(t, "GET /compatible/{sku}", spans[0].Name)
}

func TestTracing_RecordsStatusCode(t *testing.T) {
	exporter := setupTestTracer(t)

	tracedRequest("/compatible/{sku}", "/compatible/NO-SUCH", http.StatusNotFound, nil)

	spans := exporter.GetSpans()
	require.NotEmpty(t, spans)

	var status int64 = -1
	for _, attr := range spans[0].Attributes {
		if string(attr.Key) == "http.status_code" {
			status = attr.Value.AsInt64()
		}
	}
	assert.EqualValues(t, http.StatusNotFound, status)
}

func TestTracing_ServerErrorSetsSpanError(t *testing.T) {
	exporter := setupTestTracer(t)

	tracedRequest("/status", "/status", http.StatusInternalServerError, nil)

	spans := exporter.GetSpans()
	require.NotEmpty(t, spans)
	// codes.Error = 1 in the Go SDK.
	assert.EqualValues(t, 1, spans[0].Status.Code)
}

func TestTracing_ClientErrorLeavesSpanUnset(t *testing.T) {
	exporter := setupTestTracer(t)

	tracedRequest("/status", "/status", http.StatusBadRequest, nil)

	spans := exporter.GetSpans()
	require.NotEmpty(t, spans)
	// 4xx is the caller's fault; only 5xx marks the span as an error.
	assert.EqualValues(t, 0, spans[0].Status.Code)
}

func TestTracing_ContinuesInboundTrace(t *testing.T) {
	exporter := setupTestTracer(t)

	const inboundTraceID = "4bf92f3577b34da6a3ce929d0e0e4736"
	rec := tracedRequest("/status", "/status", http.StatusOK, func(req *http.Request) {
		req.Header.Set("traceparent", "00-"+inboundTraceID+"-00f067aa0ba902b7-01")
	})

	spans := exporter.GetSpans()
	require.NotEmpty(t, spans)

	assert.Equal(t, inboundTraceID, spans[0].SpanContext.TraceID().String())
	assert.NotEmpty(t, rec.Header().Get("traceparent"), "response should carry trace context")
}

func TestTracing_InjectsResponseHeaders(t *testing.T) {
	setupTestTracer(t)

	rec := tracedRequest("/status", "/status", http.StatusOK, nil)

	assert.NotEmpty(t, rec.Header().Get("traceparent"))
}
