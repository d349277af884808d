package observe

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// instrumentedAPI wires the middleware around a stub podcasts handler the
// way the server wires it around the gin engine, with in-memory metric and
// span collectors.
func instrumentedAPI(t *testing.T, h http.HandlerFunc) (http.Handler, *sdkmetric.ManualReader, *tracetest.InMemoryExporter) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	origTP := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(origTP) })

	return Middleware(m)(h), reader, exp
}

func serve(handler http.Handler, method, path string, hdr http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware_EchoesCorrelationID(t *testing.T) {
	var seen string
	handler, _, _ := instrumentedAPI(t, func(w http.ResponseWriter, r *http.Request) {
		seen = CorrelationID(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rec := serve(handler, http.MethodGet, "/api/podcasts", nil)

	if len(seen) != 32 {
		t.Fatalf("handler saw correlation ID %q, want 32 hex chars", seen)
	}
	if got := rec.Header().Get("X-Correlation-ID"); got != seen {
		t.Errorf("X-Correlation-ID = %q, want %q", got, seen)
	}
}

func TestMiddleware_NamesSpanAfterRequest(t *testing.T) {
	handler, _, exp := instrumentedAPI(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	serve(handler, http.MethodPost, "/api/podcasts", nil)

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "HTTP POST /api/podcasts" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "HTTP POST /api/podcasts")
	}
}

func TestMiddleware_RecordsLatencyHistogram(t *testing.T) {
	handler, reader, _ := instrumentedAPI(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	serve(handler, http.MethodGet, "/api/podcasts/42", nil)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	met := findMetric(rm, "unipod.http.request.duration")
	if met == nil {
		t.Fatal("unipod.http.request.duration was not recorded")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("metric data is %T, want Histogram[float64]", met.Data)
	}
	if len(hist.DataPoints) != 1 {
		t.Fatalf("got %d data points, want 1", len(hist.DataPoints))
	}

	dp := hist.DataPoints[0]
	if dp.Count != 1 {
		t.Errorf("sample count = %d, want 1", dp.Count)
	}
	var method, path string
	for _, kv := range dp.Attributes.ToSlice() {
		switch string(kv.Key) {
		case "method":
			method = kv.Value.AsString()
		case "path":
			path = kv.Value.AsString()
		}
	}
	if method != "GET" || path != "/api/podcasts/42" {
		t.Errorf("attributes = (%q, %q), want (GET, /api/podcasts/42)", method, path)
	}
}

func TestMiddleware_SpanCarriesStatusCode(t *testing.T) {
	handler, _, exp := instrumentedAPI(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rec := serve(handler, http.MethodGet, "/api/podcasts/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("response status = %d, want 404", rec.Code)
	}

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatal("no span recorded")
	}
	var status int64
	for _, a := range spans[0].Attributes {
		if string(a.Key) == "http.response.status_code" {
			status = a.Value.AsInt64()
		}
	}
	if status != http.StatusNotFound {
		t.Errorf("span http.response.status_code = %d, want 404", status)
	}
}

func TestMiddleware_JoinsUpstreamTrace(t *testing.T) {
	const upstream = "4bf92f3577b34da6a3ce929d0e0e4736"

	var seen string
	handler, _, _ := instrumentedAPI(t, func(w http.ResponseWriter, r *http.Request) {
		seen = CorrelationID(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	hdr := http.Header{}
	hdr.Set("traceparent", "00-"+upstream+"-00f067aa0ba902b7-01")
	rec := serve(handler, http.MethodGet, "/api/podcasts", hdr)

	if seen != upstream {
		t.Errorf("handler correlation ID = %q, want upstream trace %q", seen, upstream)
	}
	if got := rec.Header().Get("X-Correlation-ID"); got != upstream {
		t.Errorf("X-Correlation-ID = %q, want %q", got, upstream)
	}
}

func TestMiddleware_HealthPollsNotLogged(t *testing.T) {
	var buf bytes.Buffer
	orig := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(orig) })

	handler, _, _ := instrumentedAPI(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	serve(handler, http.MethodGet, "/healthz", nil)
	if buf.Len() != 0 {
		t.Errorf("health poll produced a log line: %s", buf.String())
	}

	serve(handler, http.MethodGet, "/api/podcasts", nil)
	if !bytes.Contains(buf.Bytes(), []byte("request completed")) {
		t.Errorf("API request did not produce a completion log, got: %s", buf.String())
	}
}
