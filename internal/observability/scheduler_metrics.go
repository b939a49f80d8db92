package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RoutingCollector exposes routing/utilization-planner Prometheus metrics.
type RoutingCollector struct {
	gatherer prometheus.Gatherer

	PathComputationDuration prometheus.Histogram
	FramesRouted            prometheus.Counter
	LinkUtilization         *prometheus.GaugeVec
	MaxLinkUtilization      prometheus.Gauge
	HyperPeriodNanoseconds  prometheus.Gauge
}

// NewRoutingCollector registers routing-planner metrics against the provided
// registerer.
func NewRoutingCollector(reg prometheus.Registerer) (*RoutingCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	pathHistogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "routing_path_computation_duration_seconds",
		Help:    "Duration of per-(sender,receiver) simple-path enumeration and selection.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})
	pathHistogram, err := registerHistogram(reg, pathHistogram, "routing_path_computation_duration_seconds")
	if err != nil {
		return nil, err
	}

	framesRouted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "routing_frames_routed_total",
		Help: "Cumulative number of (frame, receiver) path assignments made by the planner.",
	})
	framesRouted, err = registerCounter(reg, framesRouted, "routing_frames_routed_total")
	if err != nil {
		return nil, err
	}

	linkUtil := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "routing_link_utilization_ratio",
		Help: "Fraction of the hyper-period occupied on each link, labeled by link index.",
	}, []string{"link"})
	linkUtil, err = registerGaugeVec(reg, linkUtil, "routing_link_utilization_ratio")
	if err != nil {
		return nil, err
	}

	maxUtil := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "routing_max_link_utilization_ratio",
		Help: "Utilization ratio of the most-loaded link in the network.",
	})
	maxUtil, err = registerGauge(reg, maxUtil, "routing_max_link_utilization_ratio")
	if err != nil {
		return nil, err
	}

	hyperPeriod := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "routing_hyper_period_nanoseconds",
		Help: "Hyper-period of the most recently routed network, in nanoseconds.",
	})
	hyperPeriod, err = registerGauge(reg, hyperPeriod, "routing_hyper_period_nanoseconds")
	if err != nil {
		return nil, err
	}

	return &RoutingCollector{
		gatherer:               gatherer,
		PathComputationDuration: pathHistogram,
		FramesRouted:           framesRouted,
		LinkUtilization:        linkUtil,
		MaxLinkUtilization:     maxUtil,
		HyperPeriodNanoseconds: hyperPeriod,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *RoutingCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObservePathComputation records a path computation duration measurement.
func (c *RoutingCollector) ObservePathComputation(d time.Duration) {
	if c == nil || c.PathComputationDuration == nil {
		return
	}
	c.PathComputationDuration.Observe(d.Seconds())
}

// IncFramesRouted increments the routed-frame counter.
func (c *RoutingCollector) IncFramesRouted() {
	if c == nil || c.FramesRouted == nil {
		return
	}
	c.FramesRouted.Inc()
}

// SetLinkUtilization records the utilization ratio for one link index.
func (c *RoutingCollector) SetLinkUtilization(linkIndex int, ratio float64) {
	if c == nil || c.LinkUtilization == nil {
		return
	}
	c.LinkUtilization.WithLabelValues(fmt.Sprintf("%d", linkIndex)).Set(ratio)
}

// SetMaxLinkUtilization sets the peak link-utilization gauge.
func (c *RoutingCollector) SetMaxLinkUtilization(ratio float64) {
	if c == nil || c.MaxLinkUtilization == nil {
		return
	}
	c.MaxLinkUtilization.Set(ratio)
}

// SetHyperPeriod records the computed hyper-period.
func (c *RoutingCollector) SetHyperPeriod(ns int64) {
	if c == nil || c.HyperPeriodNanoseconds == nil {
		return
	}
	c.HyperPeriodNanoseconds.Set(float64(ns))
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
