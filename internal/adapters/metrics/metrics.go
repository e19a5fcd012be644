package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"bannedemails/internal/domain"
)

// BanMetrics counts checkout checks by outcome.
type BanMetrics struct {
	Checks *prometheus.CounterVec
}

// NewBanMetrics registers the checkout check counter with reg, reusing an
// already registered collector of the same name.
func NewBanMetrics(reg prometheus.Registerer) (*BanMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	checks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bannedemails",
		Subsystem: "checkout",
		Name:      "checks_total",
		Help:      "Checkout ban checks partitioned by result (banned, allowed).",
	}, []string{"result"})

	if err := reg.Register(checks); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, err
		}
		existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, err
		}
		checks = existing
	}
	return &BanMetrics{Checks: checks}, nil
}

// RecordCheck implements domain.BanRecorder.
func (m *BanMetrics) RecordCheck(banned bool) {
	result := "allowed"
	if banned {
		result = "banned"
	}
	m.Checks.WithLabelValues(result).Inc()
}

var _ domain.BanRecorder = (*BanMetrics)(nil)
