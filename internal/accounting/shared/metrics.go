package shared

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for ledger writes and reads.
type Metrics struct {
	journals   *prometheus.CounterVec
	unbalanced prometheus.Counter
	isolation  *prometheus.CounterVec
	cache      *prometheus.CounterVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the ledger metrics against the provided registerer. When the
// registerer is nil the default Prometheus registerer is used.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		journals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odyssey_ledger_journals_total",
			Help: "Journal writes grouped by action.",
		}, []string{"action"}),
		unbalanced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "odyssey_ledger_unbalanced_rejections_total",
			Help: "Journal writes rejected because debit and credit differ.",
		}),
		isolation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odyssey_ledger_isolation_violations_total",
			Help: "Rows caught crossing an entity boundary.",
		}, []string{"component"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odyssey_ledger_report_cache_total",
			Help: "Report cache lookups grouped by result.",
		}, []string{"result"}),
	}
	m.journals = registerCounterVec(registerer, m.journals)
	m.isolation = registerCounterVec(registerer, m.isolation)
	m.cache = registerCounterVec(registerer, m.cache)
	if err := registerer.Register(m.unbalanced); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				m.unbalanced = existing
			}
		}
	}
	return m
}

func registerCounterVec(registerer prometheus.Registerer, vec *prometheus.CounterVec) *prometheus.CounterVec {
	if err := registerer.Register(vec); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
	}
	return vec
}

// JournalWritten counts a successful journal write.
func (m *Metrics) JournalWritten(action string) {
	if m == nil {
		return
	}
	m.journals.WithLabelValues(action).Inc()
}

// UnbalancedRejected counts a rejected unbalanced journal.
func (m *Metrics) UnbalancedRejected() {
	if m == nil {
		return
	}
	m.unbalanced.Inc()
}

// IsolationViolation counts a failed tenant check.
func (m *Metrics) IsolationViolation(component string) {
	if m == nil {
		return
	}
	m.isolation.WithLabelValues(component).Inc()
}

// CacheResult counts a report cache lookup ("hit", "miss" or "error").
func (m *Metrics) CacheResult(result string) {
	if m == nil {
		return
	}
	m.cache.WithLabelValues(result).Inc()
}
