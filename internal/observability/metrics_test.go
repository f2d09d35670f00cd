package observability

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestWritePrometheusExposition(t *testing.T) {
	m := New()
	m.ObserveAPI("POST", "/api/ask", "200", 30*time.Millisecond)
	m.ObserveVectorStoreOperation("pgvector", "query", "success", 2*time.Millisecond)
	m.IncAnswer("empty_context")

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"# TYPE docqa_api_requests_total counter",
		`docqa_api_requests_total{method="POST",route="/api/ask",status="200"} 1`,
		`docqa_vector_store_operation_duration_seconds_count{provider="pgvector",operation="query",status="success"} 1`,
		`docqa_answers_total{outcome="empty_context"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("exposition missing %q\n%s", want, out)
		}
	}
}

func TestHistogramBucketsAreCumulative(t *testing.T) {
	h := NewHistogramVec("x_seconds", "x", []string{"op"}, []float64{1, 2})
	h.Observe(0.5, "a")
	h.Observe(1.5, "a")
	h.Observe(3, "a")

	var buf bytes.Buffer
	if err := h.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`x_seconds_bucket{op="a",le="1"} 1`,
		`x_seconds_bucket{op="a",le="2"} 2`,
		`x_seconds_bucket{op="a",le="+Inf"} 3`,
		`x_seconds_count{op="a"} 3`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("histogram missing %q\n%s", want, out)
		}
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/", "200", time.Millisecond)
	m.IncEmbedRetry("rate_limited")
	if err := m.WritePrometheus(&bytes.Buffer{}); err != nil {
		t.Fatalf("nil WritePrometheus: %v", err)
	}
}

func TestLabelEscaping(t *testing.T) {
	got := labelString([]string{"k"}, []string{"a\"b\nc"})
	if got != `{k="a\"b\nc"}` {
		t.Fatalf("labelString: got=%s", got)
	}
}
