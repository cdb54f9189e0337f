package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts facilitator operations by outcome.
type Metrics struct {
	VerifyTotal *prometheus.CounterVec
	SettleTotal *prometheus.CounterVec
}

// New registers the facilitator metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		VerifyTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "facilitator",
			Name:      "verify_total",
			Help:      "Verification requests by outcome.",
		}, []string{"result"}),
		SettleTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "facilitator",
			Name:      "settle_total",
			Help:      "Settlement requests by outcome.",
		}, []string{"result"}),
	}
}

// ObserveVerify records one verification outcome.
func (m *Metrics) ObserveVerify(valid bool) {
	if m == nil {
		return
	}
	m.VerifyTotal.WithLabelValues(result(valid)).Inc()
}

// ObserveSettle records one settlement outcome.
func (m *Metrics) ObserveSettle(success bool) {
	if m == nil {
		return
	}
	m.SettleTotal.WithLabelValues(result(success)).Inc()
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "rejected"
}
