// Package metrics holds the Prometheus collectors shared by the extraction pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "vetrecords"

var (
	Extractions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "extractions_total",
		Help:      "Extraction requests by final status.",
	}, []string{"status"})

	DocumentsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "documents_total",
		Help:      "Uploaded documents, split by whether the result came from the cache.",
	}, []string{"cached"})

	ModelAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "model_attempts_total",
		Help:      "Model calls by provider, model and outcome.",
	}, []string{"provider", "model", "outcome"})

	ModelLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "model_latency_seconds",
		Help:      "Latency of a single model attempt.",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
	}, []string{"provider", "model"})

	SanitizeRepairs = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sanitize_repairs_total",
		Help:      "Repairs applied to lenient model output.",
	})
)

// Outcome labels for ModelAttempts.
const (
	OutcomeSuccess     = "success"
	OutcomeCallError   = "call_error"
	OutcomeInvalidJSON = "invalid_output"
	OutcomeRateLimited = "rate_limited"
	OutcomeCanceled    = "canceled"
)
