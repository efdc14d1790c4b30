package manager

import (
	"github.com/prometheus/client_golang/prometheus"

	"streamd/internal/controller"
)

var (
	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "streamd",
			Subsystem: "generation",
			Name:      "requests_total",
			Help:      "Finished generations by finish reason",
		},
		[]string{"model", "finish_reason"},
	)

	generationErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "streamd",
			Subsystem: "generation",
			Name:      "errors_total",
			Help:      "Failed generations by error kind",
		},
		[]string{"model", "kind"},
	)

	tokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "streamd",
			Subsystem: "generation",
			Name:      "tokens_total",
			Help:      "Tokens processed, by phase (prompt, completion, extra)",
		},
		[]string{"model", "phase"},
	)

	queueWaitSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "streamd",
			Subsystem: "generation",
			Name:      "queue_wait_seconds",
			Help:      "Time spent waiting for the session lease",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		},
		[]string{"model"},
	)

	promptEvalSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "streamd",
			Subsystem: "generation",
			Name:      "prompt_eval_seconds",
			Help:      "Prompt evaluation duration",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"model"},
	)

	generationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "streamd",
			Subsystem: "generation",
			Name:      "duration_seconds",
			Help:      "Generation duration from lease to completion",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"model"},
	)

	instanceEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "streamd",
			Subsystem: "manager",
			Name:      "instance_events_total",
			Help:      "Instance lifecycle transitions (load, load_error, evict, unload)",
		},
		[]string{"event"},
	)
)

func init() {
	prometheus.MustRegister(generationsTotal, generationErrorsTotal, tokensTotal,
		queueWaitSeconds, promptEvalSeconds, generationSeconds, instanceEventsTotal)
}

func observeResult(modelID string, res controller.Result, err error) {
	queueWaitSeconds.WithLabelValues(modelID).Observe(res.QueueWait.Seconds())
	tokensTotal.WithLabelValues(modelID, "prompt").Add(float64(res.PromptTokens))
	tokensTotal.WithLabelValues(modelID, "completion").Add(float64(res.GeneratedTokens))
	tokensTotal.WithLabelValues(modelID, "extra").Add(float64(res.ExtraTokens))
	if err != nil {
		generationErrorsTotal.WithLabelValues(modelID, controller.KindOf(err).String()).Inc()
		return
	}
	promptEvalSeconds.WithLabelValues(modelID).Observe(res.PromptEval.Seconds())
	generationSeconds.WithLabelValues(modelID).Observe(res.Duration.Seconds())
	generationsTotal.WithLabelValues(modelID, string(res.FinishReason)).Inc()
}
