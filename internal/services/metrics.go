package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"solace/internal/session"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	// Chat pipeline metrics
	ChatRequests       prometheus.Counter
	ChatRequestLatency prometheus.Histogram
	ChatErrors         *prometheus.CounterVec

	// Proactive policy metrics
	ProactiveDecisions *prometheus.CounterVec
	ProactiveFeedback  *prometheus.CounterVec

	// Provider call latency by operation (stt, classify, generate, tts)
	ProviderLatency *prometheus.HistogramVec
}

var globalMetrics *Metrics

// InitMetrics initializes the Prometheus metrics
func InitMetrics(store *session.Store) *Metrics {
	metrics := &Metrics{
		ChatRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "solace_chat_requests_total",
			Help: "Total number of chat requests processed",
		}),

		ChatRequestLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "solace_chat_request_duration_seconds",
			Help:    "Chat request latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}, // STT + LLM + TTS round trips
		}),

		ChatErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "solace_chat_errors_total",
			Help: "Total number of chat errors by type",
		}, []string{"error_type"}),

		ProactiveDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "solace_proactive_decisions_total",
			Help: "Proactive policy decisions by action",
		}, []string{"action"}),

		ProactiveFeedback: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "solace_proactive_feedback_total",
			Help: "Suggestion feedback by type and outcome",
		}, []string{"suggestion_type", "outcome"}),

		ProviderLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "solace_provider_call_duration_seconds",
			Help:    "External provider call latency by operation",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"operation"}),
	}

	// Live session count straight from the store
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "solace_sessions_active",
			Help: "Current number of live sessions",
		},
		func() float64 {
			if store != nil {
				return float64(store.Count())
			}
			return 0
		},
	))

	globalMetrics = metrics
	return metrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	return globalMetrics
}

// RecordDecision records a proactive policy decision
func (m *Metrics) RecordDecision(action string) {
	m.ProactiveDecisions.WithLabelValues(action).Inc()
}

// RecordFeedback records a suggestion accept/reject
func (m *Metrics) RecordFeedback(suggestionType string, accepted bool) {
	outcome := "rejected"
	if accepted {
		outcome = "accepted"
	}
	m.ProactiveFeedback.WithLabelValues(suggestionType, outcome).Inc()
}

// RecordChatError records a chat pipeline error
func (m *Metrics) RecordChatError(errorType string) {
	m.ChatErrors.WithLabelValues(errorType).Inc()
}
