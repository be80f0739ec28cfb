package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Business metrics
	pipelineRuns      *prometheus.CounterVec
	stageDuration     *prometheus.HistogramVec
	ideasGenerated    *prometheus.CounterVec
	ideasGated        *prometheus.CounterVec
	llmCalls          *prometheus.CounterVec
	notificationsSent *prometheus.CounterVec
	portfolioValue    prometheus.Gauge
	portfolioStocks   prometheus.Gauge
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	// Business metrics
	r.pipelineRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coach_pipeline_runs_total",
			Help: "Total number of daily pipeline runs",
		},
		[]string{"status"},
	)
	r.stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coach_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		},
		[]string{"stage"},
	)
	r.ideasGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coach_ideas_generated_total",
			Help: "Total number of trade ideas generated",
		},
		[]string{"source", "action"},
	)
	r.ideasGated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coach_ideas_gated_total",
			Help: "Total number of trade ideas passed through the risk gate",
		},
		[]string{"verdict"},
	)
	r.llmCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coach_llm_calls_total",
			Help: "Total number of LLM chat completions",
		},
		[]string{"provider", "status"},
	)
	r.notificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coach_notifications_sent_total",
			Help: "Total number of report notifications sent",
		},
		[]string{"notifier", "status"},
	)
	r.portfolioValue = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "coach_portfolio_value_inr",
			Help: "Last captured total portfolio value in INR",
		},
	)
	r.portfolioStocks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "coach_portfolio_stocks",
			Help: "Number of holdings in the last captured snapshot",
		},
	)

	reg.MustRegister(r.pipelineRuns)
	reg.MustRegister(r.stageDuration)
	reg.MustRegister(r.ideasGenerated)
	reg.MustRegister(r.ideasGated)
	reg.MustRegister(r.llmCalls)
	reg.MustRegister(r.notificationsSent)
	reg.MustRegister(r.portfolioValue)
	reg.MustRegister(r.portfolioStocks)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordPipelineRun records a completed pipeline run.
func (r *Registry) RecordPipelineRun(status string) {
	r.pipelineRuns.WithLabelValues(status).Inc()
}

// RecordStage records a pipeline stage duration.
func (r *Registry) RecordStage(stage string, duration float64) {
	r.stageDuration.WithLabelValues(stage).Observe(duration)
}

// RecordIdea records a generated trade idea.
func (r *Registry) RecordIdea(source, action string) {
	r.ideasGenerated.WithLabelValues(source, action).Inc()
}

// RecordGate records a risk gate verdict.
func (r *Registry) RecordGate(verdict string) {
	r.ideasGated.WithLabelValues(verdict).Inc()
}

// RecordLLMCall records an LLM chat completion attempt.
func (r *Registry) RecordLLMCall(provider, status string) {
	r.llmCalls.WithLabelValues(provider, status).Inc()
}

// RecordNotification records a notification delivery attempt.
func (r *Registry) RecordNotification(notifier, status string) {
	r.notificationsSent.WithLabelValues(notifier, status).Inc()
}

// SetPortfolio sets the last captured portfolio gauges.
func (r *Registry) SetPortfolio(totalValue float64, stocks int) {
	r.portfolioValue.Set(totalValue)
	r.portfolioStocks.Set(float64(stocks))
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
