package metrics

import "github.com/prometheus/client_golang/prometheus"

// ConversationMetrics exposes counters/histograms for message processing.
type ConversationMetrics struct {
	messagesTotal       *prometheus.CounterVec
	flowTransitions     *prometheus.CounterVec
	classifierFallbacks prometheus.Counter
	llmLatency          prometheus.Histogram
}

func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	m := &ConversationMetrics{
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "atende",
			Subsystem: "conversation",
			Name:      "messages_total",
			Help:      "Total processed inbound messages",
		}, []string{"intent", "status"}),
		flowTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "atende",
			Subsystem: "conversation",
			Name:      "flow_transitions_total",
			Help:      "Total booking flow step transitions",
		}, []string{"from", "to"}),
		classifierFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "atende",
			Subsystem: "conversation",
			Name:      "classifier_fallback_total",
			Help:      "Total intent classifications served by the keyword table",
		}),
		llmLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "atende",
			Subsystem: "conversation",
			Name:      "llm_latency_seconds",
			Help:      "Latency of LLM completion calls",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.messagesTotal, m.flowTransitions, m.classifierFallbacks, m.llmLatency)
	return m
}

func (m *ConversationMetrics) ObserveMessage(intent, status string) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(intent, status).Inc()
}

func (m *ConversationMetrics) ObserveFlowTransition(from, to string) {
	if m == nil {
		return
	}
	m.flowTransitions.WithLabelValues(from, to).Inc()
}

func (m *ConversationMetrics) ObserveClassifierFallback() {
	if m == nil {
		return
	}
	m.classifierFallbacks.Inc()
}

func (m *ConversationMetrics) ObserveLLMLatency(seconds float64) {
	if m == nil {
		return
	}
	m.llmLatency.Observe(seconds)
}
