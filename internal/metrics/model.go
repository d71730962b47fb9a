package metrics

import "github.com/prometheus/client_golang/prometheus"

// Gemini model Prometheus metrics.
var (
	ModelRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "moneyez",
			Name:      "model_requests_total",
			Help:      "Total number of model generation requests",
		},
		[]string{"model", "status"},
	)

	ModelRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "moneyez",
			Name:      "model_request_duration_seconds",
			Help:      "Model generation request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"model"},
	)

	ModelTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "moneyez",
			Name:      "model_tokens_total",
			Help:      "Total model tokens consumed",
		},
		[]string{"model", "type"}, // type: "prompt" / "completion"
	)

	ToolCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "moneyez",
			Name:      "tool_calls_total",
			Help:      "Total agent tool invocations",
		},
		[]string{"tool", "status"},
	)
)

var modelMetricsRegistered bool

// RegisterModelMetrics registers Prometheus model metrics. Must be called once from main.
func RegisterModelMetrics() {
	if modelMetricsRegistered {
		return
	}
	prometheus.MustRegister(ModelRequestsTotal)
	prometheus.MustRegister(ModelRequestDuration)
	prometheus.MustRegister(ModelTokensTotal)
	prometheus.MustRegister(ToolCallsTotal)
	modelMetricsRegistered = true
}
