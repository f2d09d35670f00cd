package observability

import (
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/yungbote/docqa-backend/internal/platform/envutil"
	"github.com/yungbote/docqa-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge

	ingestStage     *HistogramVec
	ingestDocuments *CounterVec
	ingestChunks    *CounterVec

	embedBatches *CounterVec
	embedRetries *CounterVec

	vectorOps       *HistogramVec
	vectorBootstrap *CounterVec

	llmRequests *CounterVec
	llmLatency  *HistogramVec

	answers     *CounterVec
	cacheLookup *CounterVec
}

var (
	initMu   sync.Mutex
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

func Current() *Metrics {
	initMu.Lock()
	defer initMu.Unlock()
	return instance
}

// Init installs the process metrics registry when METRICS_ENABLED is set.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initMu.Lock()
	defer initMu.Unlock()
	if instance == nil {
		instance = New()
		if log != nil {
			log.Info("metrics enabled")
		}
	}
	return instance
}

// New builds a standalone registry; Init is the process-wide entry point.
func New() *Metrics {
	stageBuckets := []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120, 300}
	return &Metrics{
		apiRequests: NewCounterVec("docqa_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"docqa_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		),
		apiInflight: NewGauge("docqa_api_inflight_requests", "In-flight API requests."),

		ingestStage:     NewHistogramVec("docqa_ingest_stage_duration_seconds", "Ingestion stage latency by stage/status.", []string{"stage", "status"}, stageBuckets),
		ingestDocuments: NewCounterVec("docqa_ingest_documents_total", "Ingestion outcomes by final status and failure kind.", []string{"status", "kind"}),
		ingestChunks:    NewCounterVec("docqa_ingest_chunks_total", "Chunks persisted by ingestion.", []string{"provider"}),

		embedBatches: NewCounterVec("docqa_embed_batches_total", "Embedding batches by status.", []string{"status"}),
		embedRetries: NewCounterVec("docqa_embed_retries_total", "Embedding batch retries.", []string{"reason"}),

		vectorOps: NewHistogramVec(
			"docqa_vector_store_operation_duration_seconds",
			"Vector store operation latency by provider/operation/status.",
			[]string{"provider", "operation", "status"},
			[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		),
		vectorBootstrap: NewCounterVec("docqa_vector_store_bootstrap_total", "Vector store bootstrap attempts by provider/status/code.", []string{"provider", "status", "code"}),

		llmRequests: NewCounterVec("docqa_llm_requests_total", "LLM requests by model/endpoint/status.", []string{"model", "endpoint", "status"}),
		llmLatency: NewHistogramVec(
			"docqa_llm_request_duration_seconds",
			"LLM request latency by model/endpoint/status.",
			[]string{"model", "endpoint", "status"},
			[]float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		),

		answers:     NewCounterVec("docqa_answers_total", "Answers by outcome (answered, no_content, error).", []string{"outcome"}),
		cacheLookup: NewCounterVec("docqa_query_embedding_cache_total", "Query embedding cache lookups by result.", []string{"result"}),
	}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	writers := []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.ingestStage, m.ingestDocuments, m.ingestChunks,
		m.embedBatches, m.embedRetries,
		m.vectorOps, m.vectorBootstrap,
		m.llmRequests, m.llmLatency,
		m.answers, m.cacheLookup,
	}
	for _, mw := range writers {
		if err := mw.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) ApiInflightInc() {
	if m != nil {
		m.apiInflight.Inc()
	}
}

func (m *Metrics) ApiInflightDec() {
	if m != nil {
		m.apiInflight.Dec()
	}
}

func (m *Metrics) ObserveIngestStage(stage, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.ingestStage.Observe(dur.Seconds(), stage, status)
}

func (m *Metrics) IncIngestOutcome(status, kind string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "none"
	}
	m.ingestDocuments.Inc(status, kind)
}

func (m *Metrics) AddIngestChunks(provider string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ingestChunks.Add(float64(n), provider)
}

func (m *Metrics) IncEmbedBatch(status string) {
	if m == nil {
		return
	}
	m.embedBatches.Inc(status)
}

func (m *Metrics) IncEmbedRetry(reason string) {
	if m == nil {
		return
	}
	m.embedRetries.Inc(reason)
}

func (m *Metrics) ObserveVectorStoreOperation(provider, operation, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.vectorOps.Observe(dur.Seconds(), provider, operation, status)
}

func (m *Metrics) ObserveVectorStoreBootstrap(provider, status, code string) {
	if m == nil {
		return
	}
	m.vectorBootstrap.Inc(provider, status, code)
}

func (m *Metrics) ObserveLLMRequest(model, endpoint, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.llmRequests.Inc(model, endpoint, status)
	m.llmLatency.Observe(dur.Seconds(), model, endpoint, status)
}

func (m *Metrics) IncAnswer(outcome string) {
	if m == nil {
		return
	}
	m.answers.Inc(outcome)
}

func (m *Metrics) IncCacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookup.Inc(result)
}
