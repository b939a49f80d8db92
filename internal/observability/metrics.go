package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegenCollector bundles Prometheus metrics for the regeneration planner.
type RegenCollector struct {
	gatherer prometheus.Gatherer

	RegenAttempts       *prometheus.CounterVec
	RegenDuration       prometheus.Histogram
	RegenDegradations   prometheus.Counter
	RegenUnrecoverable  prometheus.Counter
	MembershipLinks     prometheus.Gauge
	SubnetworkCount     prometheus.Gauge
}

// NewRegenCollector registers regeneration-planner Prometheus metrics against
// the provided registerer, defaulting to the global Prometheus registry when
// nil.
func NewRegenCollector(reg prometheus.Registerer) (*RegenCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "regen_attempts_total",
		Help: "Total number of activate_protocol invocations, labeled by outcome.",
	}, []string{"outcome"})
	attempts, err := registerCounterVec(reg, attempts, "regen_attempts_total")
	if err != nil {
		return nil, err
	}

	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "regen_duration_seconds",
		Help:    "Wall-clock duration of a full regeneration invocation.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	})
	duration, err = registerHistogram(reg, duration, "regen_duration_seconds")
	if err != nil {
		return nil, err
	}

	degradations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "regen_degradations_total",
		Help: "Cumulative number of solver-retry degradation steps taken across all subnetworks.",
	})
	degradations, err = registerCounter(reg, degradations, "regen_degradations_total")
	if err != nil {
		return nil, err
	}

	unrecoverable := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "regen_unrecoverable_total",
		Help: "Cumulative number of regenerations that terminated Unrecoverable.",
	})
	unrecoverable, err = registerCounter(reg, unrecoverable, "regen_unrecoverable_total")
	if err != nil {
		return nil, err
	}

	membershipLinks, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "regen_membership_links",
		Help: "Number of links in the membership subnetwork of the most recent regeneration.",
	}), "regen_membership_links")
	if err != nil {
		return nil, err
	}

	subnetworks, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "regen_subnetwork_count",
		Help: "Number of per-source-node subnetworks produced by the most recent regeneration.",
	}), "regen_subnetwork_count")
	if err != nil {
		return nil, err
	}

	return &RegenCollector{
		gatherer:            gatherer,
		RegenAttempts:       attempts,
		RegenDuration:       duration,
		RegenDegradations:   degradations,
		RegenUnrecoverable:  unrecoverable,
		MembershipLinks:     membershipLinks,
		SubnetworkCount:     subnetworks,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *RegenCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveOutcome records one activate_protocol invocation outcome (e.g.
// "done" or "unrecoverable").
func (c *RegenCollector) ObserveOutcome(outcome string) {
	if c == nil || c.RegenAttempts == nil {
		return
	}
	c.RegenAttempts.WithLabelValues(outcome).Inc()
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
