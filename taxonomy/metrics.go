package taxonomy

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics instruments the taxonomy core. A nil *Metrics records nothing.
type Metrics struct {
	RootsCreated    prometheus.Counter
	Commands        *prometheus.CounterVec
	SubtreeDuration prometheus.Histogram
	SubtreeSize     prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg if it is not nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		RootsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "taxonomy",
			Subsystem: "root",
			Name:      "created_total",
			Help:      "Taxonomy roots created on first access",
		}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taxonomy",
			Subsystem: "editor",
			Name:      "commands_total",
			Help:      "Content repository commands issued by the taxonomy core",
		}, []string{"command", "status"}),
		SubtreeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "taxonomy",
			Subsystem: "subtree",
			Name:      "resolve_duration_seconds",
			Help:      "Time to resolve and order a taxonomy subtree",
			Buckets:   []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
		}),
		SubtreeSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "taxonomy",
			Subsystem: "subtree",
			Name:      "nodes",
			Help:      "Nodes in a resolved taxonomy subtree",
			Buckets:   []float64{1, 10, 100, 1000, 10000},
		}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.RootsCreated, m.Commands, m.SubtreeDuration, m.SubtreeSize} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) rootCreated() {
	if m != nil {
		m.RootsCreated.Inc()
	}
}

func (m *Metrics) command(name string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.Commands.WithLabelValues(name, status).Inc()
}

func (m *Metrics) subtreeResolved(start time.Time, nodes int) {
	if m == nil {
		return
	}
	m.SubtreeDuration.Observe(time.Since(start).Seconds())
	m.SubtreeSize.Observe(float64(nodes))
}
