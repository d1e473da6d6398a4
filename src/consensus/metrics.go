package consensus

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the Prometheus instruments of a consensus engine. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	candidatesBuilt    prometheus.Counter
	candidatesReceived prometheus.Counter
	favouritesReceived prometheus.Counter
	rejected           *prometheus.CounterVec
	deltasPublished    prometheus.Counter
	publishFailures    prometheus.Counter
	chainAdvances      prometheus.Counter
	lastDeltaTime      prometheus.Gauge
	lastDeltaEntries   prometheus.Gauge
}

// NewMetrics creates the instruments and registers them on registerer.
func NewMetrics(namespace string, registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		candidatesBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_built",
			Help:      "Number of candidates built by this node",
		}),
		candidatesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_received",
			Help:      "Number of candidates accepted by the voter",
		}),
		favouritesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "favourites_received",
			Help:      "Number of favourite votes accepted by the elector",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "violations",
			Help:      "Number of rejected messages, by violation",
		}, []string{"violation"}),
		deltasPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deltas_published",
			Help:      "Number of deltas published to the DFS",
		}),
		publishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_failures",
			Help:      "Number of deltas that could not be published after all retries",
		}),
		chainAdvances: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chain_advances",
			Help:      "Number of times the chain pointer moved",
		}),
		lastDeltaTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_delta_timestamp_seconds",
			Help:      "Timestamp of the latest confirmed delta",
		}),
		lastDeltaEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_delta_entries",
			Help:      "Number of entries in the latest confirmed delta",
		}),
	}

	err := errors.Join(
		registerer.Register(m.candidatesBuilt),
		registerer.Register(m.candidatesReceived),
		registerer.Register(m.favouritesReceived),
		registerer.Register(m.rejected),
		registerer.Register(m.deltasPublished),
		registerer.Register(m.publishFailures),
		registerer.Register(m.chainAdvances),
		registerer.Register(m.lastDeltaTime),
		registerer.Register(m.lastDeltaEntries),
	)
	return m, err
}

func (m *Metrics) candidateBuilt() {
	if m != nil {
		m.candidatesBuilt.Inc()
	}
}

func (m *Metrics) candidateReceived() {
	if m != nil {
		m.candidatesReceived.Inc()
	}
}

func (m *Metrics) favouriteReceived() {
	if m != nil {
		m.favouritesReceived.Inc()
	}
}

func (m *Metrics) violation(kind ViolationKind) {
	if m != nil {
		m.rejected.WithLabelValues(kind.String()).Inc()
	}
}

func (m *Metrics) published(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.deltasPublished.Inc()
	} else {
		m.publishFailures.Inc()
	}
}

func (m *Metrics) advanced(timestamp int64, entries int) {
	if m == nil {
		return
	}
	m.chainAdvances.Inc()
	m.lastDeltaTime.Set(float64(timestamp) / 1e9)
	m.lastDeltaEntries.Set(float64(entries))
}
