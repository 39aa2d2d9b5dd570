package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ScopeMetrics tracks unit-of-work outcomes. All methods are nil-safe so
// callers that run without metrics (tests, one-off tools) can pass nil.
type ScopeMetrics struct {
	commits          prometheus.Counter
	rollbacks        prometheus.Counter
	conflicts        prometheus.Counter
	commitDuration   prometheus.Histogram
	mutationsFlushed prometheus.Counter
}

// NewScopeMetrics registers the unit-of-work metrics with the given registerer
func NewScopeMetrics(reg prometheus.Registerer) *ScopeMetrics {
	factory := promauto.With(reg)

	return &ScopeMetrics{
		commits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "trackd",
			Subsystem: "uow",
			Name:      "commits_total",
			Help:      "Number of unit-of-work scopes committed successfully",
		}),
		rollbacks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "trackd",
			Subsystem: "uow",
			Name:      "rollbacks_total",
			Help:      "Number of unit-of-work scopes rolled back",
		}),
		conflicts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "trackd",
			Subsystem: "uow",
			Name:      "conflicts_total",
			Help:      "Number of commits rejected by optimistic concurrency",
		}),
		commitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "trackd",
			Subsystem: "uow",
			Name:      "commit_duration_seconds",
			Help:      "Time spent flushing and committing a scope",
			Buckets:   prometheus.DefBuckets,
		}),
		mutationsFlushed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "trackd",
			Subsystem: "uow",
			Name:      "mutations_flushed_total",
			Help:      "Number of aggregate mutations flushed at commit time",
		}),
	}
}

// ObserveCommit records a successful commit and its duration
func (m *ScopeMetrics) ObserveCommit(duration time.Duration, mutations int) {
	if m == nil {
		return
	}
	m.commits.Inc()
	m.commitDuration.Observe(duration.Seconds())
	m.mutationsFlushed.Add(float64(mutations))
}

// ObserveRollback records a rolled back scope
func (m *ScopeMetrics) ObserveRollback() {
	if m == nil {
		return
	}
	m.rollbacks.Inc()
}

// ObserveConflict records a commit rejected by a version mismatch
func (m *ScopeMetrics) ObserveConflict() {
	if m == nil {
		return
	}
	m.conflicts.Inc()
}
