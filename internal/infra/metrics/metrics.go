package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics — счётчики ОТК. Нулевой указатель допустим: все методы ничего не делают.
type Metrics struct {
	Evaluations   *prometheus.CounterVec
	Receipts      *prometheus.CounterVec
	Transitions   *prometheus.CounterVec
	Notifications *prometheus.CounterVec
	Dispatch      prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "qms_requirement_evaluations_total",
			Help: "Requirement rule evaluations by test and outcome",
		}, []string{"test", "required"}),
		Receipts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "qms_receipts_processed_total",
			Help: "ProcessReceipt calls by outcome",
		}, []string{"outcome"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "qms_receipt_transitions_total",
			Help: "Receipt status transitions by target status",
		}, []string{"to"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "qms_notifications_total",
			Help: "Outbox deliveries by result",
		}, []string{"result"}),
		Dispatch: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "qms_notification_dispatch_seconds",
			Help:    "Duration of one dispatcher batch",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Evaluations, m.Receipts, m.Transitions, m.Notifications, m.Dispatch)
	}
	return m
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func (m *Metrics) Evaluated(test string, required bool) {
	if m == nil {
		return
	}
	m.Evaluations.WithLabelValues(test, boolLabel(required)).Inc()
}

// ReceiptProcessed: outcome — created, duplicate, receipt_only, error.
func (m *Metrics) ReceiptProcessed(outcome string) {
	if m == nil {
		return
	}
	m.Receipts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Transitioned(to string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(to).Inc()
}

// Delivered: result — sent, retry, failed.
func (m *Metrics) Delivered(result string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveDispatch(seconds float64) {
	if m == nil {
		return
	}
	m.Dispatch.Observe(seconds)
}
