package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// loadAttemptsTotal counts model load attempts by outcome.
	// Labels: status (success, error)
	loadAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "faqbot",
		Subsystem: "gateway",
		Name:      "load_attempts_total",
		Help:      "Model load attempts by outcome.",
	}, []string{"status"})

	modelLoadedGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "faqbot",
		Subsystem: "gateway",
		Name:      "model_loaded",
		Help:      "1 when the shared model handle is populated.",
	})

	// generationSeconds measures generate calls including queueing for a slot.
	// Labels: status (success, empty, error)
	generationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "faqbot",
		Subsystem: "gateway",
		Name:      "generation_seconds",
		Help:      "Duration of generate calls in seconds.",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"status"})

	// tokensTotal counts tokens by direction (prompt, completion).
	tokensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "faqbot",
		Subsystem: "gateway",
		Name:      "tokens_total",
		Help:      "Tokens sent to and produced by the model.",
	}, []string{"direction"})
)
