package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "leadconv"

// MessagingMetrics exposes counters/histograms for WhatsApp traffic.
type MessagingMetrics struct {
	inboundTotal  *prometheus.CounterVec
	outboundTotal *prometheus.CounterVec
	sendLatency   *prometheus.HistogramVec
}

func NewMessagingMetrics(reg prometheus.Registerer) *MessagingMetrics {
	m := &MessagingMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "messaging",
			Name:      "inbound_total",
			Help:      "Total inbound WhatsApp messages dispatched",
		}, []string{"outcome"}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "messaging",
			Name:      "outbound_total",
			Help:      "Total outbound WhatsApp sends",
		}, []string{"outcome"}),
		sendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "messaging",
			Name:      "send_latency_seconds",
			Help:      "Latency of outbound WhatsApp sends",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.outboundTotal, m.sendLatency)
	return m
}

func (m *MessagingMetrics) ObserveInbound(outcome string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(outcome).Inc()
}

func (m *MessagingMetrics) ObserveOutbound(outcome string, latencySeconds float64) {
	if m == nil {
		return
	}
	m.outboundTotal.WithLabelValues(outcome).Inc()
	m.sendLatency.WithLabelValues(outcome).Observe(latencySeconds)
}

// LLMMetrics tracks model calls, token usage and estimated spend.
type LLMMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	tokens   *prometheus.CounterVec
	cost     *prometheus.CounterVec
}

func NewLLMMetrics(reg prometheus.Registerer) *LLMMetrics {
	m := &LLMMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "requests_total",
			Help:      "Total model calls by outcome",
		}, []string{"model", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "latency_seconds",
			Help:      "Model call latency",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		}, []string{"model", "status"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Tokens consumed by model calls",
		}, []string{"model", "type"}),
		cost: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "cost_usd_total",
			Help:      "Estimated spend on model calls in USD",
		}, []string{"model"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requests, m.latency, m.tokens, m.cost)
	return m
}

// ObserveCompletion records one model call.
func (m *LLMMetrics) ObserveCompletion(model, status string, inputTokens, outputTokens int, costUSD, latencySeconds float64) {
	if m == nil {
		return
	}
	if model == "" {
		model = "unknown"
	}
	m.requests.WithLabelValues(model, status).Inc()
	m.latency.WithLabelValues(model, status).Observe(latencySeconds)
	if inputTokens > 0 {
		m.tokens.WithLabelValues(model, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		m.tokens.WithLabelValues(model, "output").Add(float64(outputTokens))
	}
	if costUSD > 0 {
		m.cost.WithLabelValues(model).Add(costUSD)
	}
}

// ReminderMetrics counts reminder sweep outcomes.
type ReminderMetrics struct {
	processed *prometheus.CounterVec
}

func NewReminderMetrics(reg prometheus.Registerer) *ReminderMetrics {
	m := &ReminderMetrics{
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reminders",
			Name:      "processed_total",
			Help:      "Reminders processed by the sweeper",
		}, []string{"type", "outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.processed)
	return m
}

func (m *ReminderMetrics) ObserveReminder(reminderType, outcome string) {
	if m == nil {
		return
	}
	m.processed.WithLabelValues(reminderType, outcome).Inc()
}
