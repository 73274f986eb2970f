package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"productory/internal/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	prevTP, prevProp := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})
	return recorder
}

func TestTracing(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		wantStatus codes.Code
	}{
		{"ok", http.StatusOK, codes.Unset},
		{"client error", http.StatusNotFound, codes.Unset},
		{"server error", http.StatusBadGateway, codes.Error},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := recordSpans(t)

			handler := Tracing(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/jobs", nil))

			spans := recorder.Ended()
			if len(spans) != 1 {
				t.Fatalf("expected 1 span, got %d", len(spans))
			}
			if spans[0].Name() != "HTTP GET" {
				t.Errorf("unexpected span name %q", spans[0].Name())
			}
			if spans[0].Status().Code != tt.wantStatus {
				t.Errorf("expected span status %v, got %v", tt.wantStatus, spans[0].Status().Code)
			}
		})
	}
}

func TestTracing_ContinuesIncomingTrace(t *testing.T) {
	recorder := recordSpans(t)
	const traceID = "4bf92f3577b34da6a3ce929d0e0e4736"

	req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
	req.Header.Set("traceparent", "00-"+traceID+"-00f067aa0ba902b7-01")
	Tracing(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(httptest.NewRecorder(), req)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if got := spans[0].SpanContext().TraceID().String(); got != traceID {
		t.Errorf("expected trace %s, got %s", traceID, got)
	}
	if !spans[0].Parent().IsRemote() {
		t.Error("expected a remote parent")
	}
}

func TestAccessLog_IncludesTraceID(t *testing.T) {
	recordSpans(t)

	var buf bytes.Buffer
	base := logger.NewWithWriter(&buf, "info")
	handler := Tracing(AccessLog(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if !strings.Contains(buf.String(), `"trace_id"`) {
		t.Errorf("expected trace_id in access log, got %s", buf.String())
	}
}
