// Package metrics exposes Prometheus instrumentation for the QA pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pdfqa"

// Pipeline stage labels.
const (
	StageRetrieve = "retrieve"
	StageExpand   = "expand"
	StageDraft    = "draft"
	StageVerify   = "verify"
	StageEnforce  = "enforce"
	StageIndex    = "index"
)

// Retrieval outcome labels.
const (
	RetrievalHit   = "hit"
	RetrievalEmpty = "empty"
	RetrievalError = "error"
)

// Answer outcome labels.
const (
	AnswerGrounded = "grounded"
	AnswerNoAnswer = "no_answer"
)

// Recorder owns the pipeline metrics and their registry.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	stageDuration *prometheus.HistogramVec
	insertions    *prometheus.CounterVec
	fallbacks     prometheus.Counter
	dropped       prometheus.Counter
	retrievals    *prometheus.CounterVec
	answers       *prometheus.CounterVec
	indexedChunks prometheus.Counter
}

// New creates a Recorder backed by a fresh registry that also carries the Go and process collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Pipeline stage duration in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"stage"},
		),
		insertions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "citation_insertions_total",
				Help:      "Citation tokens appended by the enforcement engine",
			},
			[]string{"tier"},
		),
		fallbacks: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "citation_fallbacks_total",
				Help:      "Answers that needed the forced enforcement pass",
			},
		),
		dropped: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "unknown_citation_sentences_dropped_total",
				Help:      "Sentences removed for citing identifiers outside the context block",
			},
		),
		retrievals: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retrievals_total",
				Help:      "Retrieval calls by outcome",
			},
			[]string{"outcome"},
		),
		answers: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "answers_total",
				Help:      "Answers returned by outcome",
			},
			[]string{"outcome"},
		),
		indexedChunks: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "indexed_chunks_total",
				Help:      "Chunks written to the vector store",
			},
		),
	}
}

// ObserveStage records the duration of one pipeline stage.
func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// StartStage returns a function that records the elapsed time of stage when called.
func (r *Recorder) StartStage(stage string) func() {
	start := time.Now()
	return func() {
		r.ObserveStage(stage, time.Since(start))
	}
}

// AddInsertions counts citation tokens appended by an enforcement tier.
func (r *Recorder) AddInsertions(tier string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.insertions.WithLabelValues(tier).Add(float64(n))
}

// IncFallback counts an activation of the forced enforcement pass.
func (r *Recorder) IncFallback() {
	if r == nil {
		return
	}
	r.fallbacks.Inc()
}

// AddDropped counts sentences removed by the verification guard.
func (r *Recorder) AddDropped(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.dropped.Add(float64(n))
}

// IncRetrieval counts a retrieval call by outcome.
func (r *Recorder) IncRetrieval(outcome string) {
	if r == nil {
		return
	}
	r.retrievals.WithLabelValues(outcome).Inc()
}

// IncAnswer counts a returned answer by outcome.
func (r *Recorder) IncAnswer(outcome string) {
	if r == nil {
		return
	}
	r.answers.WithLabelValues(outcome).Inc()
}

// AddIndexedChunks counts chunks written during indexing.
func (r *Recorder) AddIndexedChunks(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.indexedChunks.Add(float64(n))
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
