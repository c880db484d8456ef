package metrics

import "github.com/prometheus/client_golang/prometheus"

// QuizMetrics exposes counters/histograms for the estimate quiz.
type QuizMetrics struct {
	stepsTotal       *prometheus.CounterVec
	validationErrors *prometheus.CounterVec
	submissionsTotal *prometheus.CounterVec
	estimateTotal    *prometheus.HistogramVec
	leadsDelivered   *prometheus.CounterVec
}

func NewQuizMetrics(reg prometheus.Registerer) *QuizMetrics {
	m := &QuizMetrics{
		stepsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cleaning",
			Subsystem: "quiz",
			Name:      "steps_total",
			Help:      "Quiz step answers by outcome",
		}, []string{"step", "outcome"}),
		validationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cleaning",
			Subsystem: "quiz",
			Name:      "validation_errors_total",
			Help:      "Inline validation errors by step and field",
		}, []string{"step", "field"}),
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cleaning",
			Subsystem: "quiz",
			Name:      "submissions_total",
			Help:      "Contact submissions by outcome",
		}, []string{"outcome"}),
		estimateTotal: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cleaning",
			Subsystem: "quiz",
			Name:      "estimate_rub",
			Help:      "Live estimate totals shown on the contacts step",
			Buckets:   []float64{2500, 5000, 7500, 10000, 15000, 25000, 50000, 100000},
		}, []string{"service"}),
		leadsDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cleaning",
			Subsystem: "leads",
			Name:      "delivered_total",
			Help:      "Lead events delivered from the outbox",
		}, []string{"event_type", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.stepsTotal, m.validationErrors, m.submissionsTotal, m.estimateTotal, m.leadsDelivered)
	return m
}

func (m *QuizMetrics) ObserveStep(step, outcome string) {
	if m == nil {
		return
	}
	m.stepsTotal.WithLabelValues(step, outcome).Inc()
}

func (m *QuizMetrics) ObserveValidationError(step, field string) {
	if m == nil {
		return
	}
	m.validationErrors.WithLabelValues(step, field).Inc()
}

func (m *QuizMetrics) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(outcome).Inc()
}

func (m *QuizMetrics) ObserveEstimate(service string, total int) {
	if m == nil {
		return
	}
	m.estimateTotal.WithLabelValues(service).Observe(float64(total))
}

// ObserveDelivery counts outbox deliveries; status is "ok" or "error".
func (m *QuizMetrics) ObserveDelivery(eventType, status string) {
	if m == nil {
		return
	}
	m.leadsDelivered.WithLabelValues(eventType, status).Inc()
}
