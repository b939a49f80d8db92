// Package routing assigns one simple path per (sender, receiver) pair to
// greedily balance per-link utilization, and computes the network
// hyper-period and feasibility verdict.
package routing

import (
	"context"
	"fmt"
	"time"

	"github.com/signalsfoundry/ttnet-toolchain/graph"
	"github.com/signalsfoundry/ttnet-toolchain/internal/logging"
	"github.com/signalsfoundry/ttnet-toolchain/internal/observability"
	"github.com/signalsfoundry/ttnet-toolchain/traffic"
)

// Planner holds the graph, the accumulated per-link utilization vector, and
// the protocol-reservation parameters needed to route a frame set.
type Planner struct {
	g                *graph.Graph
	utilization      []int64 // nanoseconds occupied per link index within one hyper-period
	hyperPeriodNS    int64
	periodProtocolNS int64
	timeProtocolNS   int64

	log       logging.Logger
	collector *observability.RoutingCollector

	frameLinks map[int]map[int]bool // frame index -> set of link indices already charged
}

// NewPlanner constructs a Planner over g. periodProtocolNS and
// timeProtocolNS configure the protocol-reservation accrual per link.
func NewPlanner(g *graph.Graph, periodProtocolNS, timeProtocolNS int64, log logging.Logger, collector *observability.RoutingCollector) *Planner {
	if log == nil {
		log = logging.Noop()
	}
	return &Planner{
		g:                g,
		periodProtocolNS: periodProtocolNS,
		timeProtocolNS:   timeProtocolNS,
		log:              log,
		collector:        collector,
		frameLinks:       make(map[int]map[int]bool),
	}
}

// HyperPeriod returns the most recently computed hyper-period in
// nanoseconds. It is zero until Route or SetHyperPeriod has run.
func (p *Planner) HyperPeriod() int64 { return p.hyperPeriodNS }

// SetHyperPeriod pins the planner's hyper-period instead of letting Route
// derive it from the passed frame set — used when routing a subgraph that
// must stay consistent with an already-established network-wide
// hyper-period, such as a regeneration's membership subnetwork.
func (p *Planner) SetHyperPeriod(ns int64) {
	p.hyperPeriodNS = ns
	if p.utilization == nil {
		p.utilization = make([]int64, p.g.LinkCount())
		if p.periodProtocolNS > 0 {
			reservation := (p.hyperPeriodNS / p.periodProtocolNS) * p.timeProtocolNS
			for idx := range p.utilization {
				if link, err := p.g.Link(idx); err == nil && !link.Removed {
					p.utilization[idx] = reservation
				}
			}
		}
	}
}

// Preload charges path's marginal utilization for frame without routing it,
// so pre-existing traffic can be accounted for before new frames are routed
// against the same link set.
func (p *Planner) Preload(frame *traffic.Frame, path []int) {
	if p.utilization == nil {
		p.utilization = make([]int64, p.g.LinkCount())
	}
	if p.frameLinks[frame.Index] == nil {
		p.frameLinks[frame.Index] = make(map[int]bool)
	}
	p.chargePath(frame, path)
}

// Utilization returns the normalized [0,1] utilization ratio for link.
func (p *Planner) Utilization(link int) float64 {
	if link < 0 || link >= len(p.utilization) || p.hyperPeriodNS == 0 {
		return 0
	}
	return float64(p.utilization[link]) / float64(p.hyperPeriodNS)
}

// AverageUtilization returns the mean of the per-link utilization ratios
// across every non-removed link — the network-wide average reported
// alongside per-link figures, distinct from a single global ratio.
func (p *Planner) AverageUtilization() float64 {
	if p.hyperPeriodNS == 0 {
		return 0
	}
	var total float64
	var count int
	for idx := range p.utilization {
		link, err := p.g.Link(idx)
		if err != nil || link.Removed {
			continue
		}
		total += p.Utilization(idx)
		count++
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

// Feasible reports whether every link's accumulated utilization is at most
// one full hyper-period.
func (p *Planner) Feasible() bool {
	for idx := range p.utilization {
		link, err := p.g.Link(idx)
		if err != nil || link.Removed {
			continue
		}
		if p.utilization[idx] > p.hyperPeriodNS {
			return false
		}
	}
	return true
}

// Route computes the hyper-period, seeds per-link protocol reservation, and
// assigns a path to every (frame, receiver) pair, greedily minimizing added
// utilization. It returns the feasibility verdict; infeasibility is reported
// via the return value, not an error.
func (p *Planner) Route(ctx context.Context, frames []*traffic.Frame) (bool, error) {
	start := time.Now()
	if p.hyperPeriodNS == 0 {
		periods := make([]int64, 0, len(frames))
		for _, f := range frames {
			periods = append(periods, f.PeriodNS)
		}
		p.hyperPeriodNS = lcmAll(periods)
	}

	if p.utilization == nil {
		p.utilization = make([]int64, p.g.LinkCount())
		if p.periodProtocolNS > 0 {
			reservation := (p.hyperPeriodNS / p.periodProtocolNS) * p.timeProtocolNS
			for idx := range p.utilization {
				link, err := p.g.Link(idx)
				if err != nil || link.Removed {
					continue
				}
				p.utilization[idx] = reservation
			}
		}
	}

	p.g.LockRouting()

	for _, frame := range frames {
		if p.frameLinks[frame.Index] == nil {
			p.frameLinks[frame.Index] = make(map[int]bool)
		}
		for ri, receiver := range frame.Receivers {
			path, err := p.routeOne(frame, receiver)
			if err != nil {
				return false, err
			}
			frame.Paths[ri] = path
			p.chargePath(frame, path)
			p.log.Debug(ctx, "assigned frame path",
				logging.Int("frame", frame.Index),
				logging.Int("receiver", receiver),
				logging.Any("path", path),
			)
		}
	}

	feasible := p.Feasible()
	if p.collector != nil {
		p.collector.ObservePathComputation(time.Since(start))
		p.collector.SetHyperPeriod(p.hyperPeriodNS)
		var maxUtil float64
		for idx := range p.utilization {
			ratio := p.Utilization(idx)
			p.collector.SetLinkUtilization(idx, ratio)
			if ratio > maxUtil {
				maxUtil = ratio
			}
		}
		p.collector.SetMaxLinkUtilization(maxUtil)
	}

	if feasible {
		p.log.Info(ctx, "routing complete", logging.Int("hyper_period_ns", int(p.hyperPeriodNS)))
	} else {
		p.log.Warn(ctx, "routing complete but infeasible", logging.Int("hyper_period_ns", int(p.hyperPeriodNS)))
	}
	return feasible, nil
}

func (p *Planner) routeOne(frame *traffic.Frame, receiver int) ([]int, error) {
	candidates, err := p.g.SimplePaths(frame.Sender, receiver)
	if err != nil {
		return nil, err
	}
	filtered := candidates[:0]
	for _, path := range candidates {
		if p.intermediatesAreSwitches(path, frame.Sender, receiver) {
			filtered = append(filtered, path)
		}
	}
	if len(filtered) == 0 {
		return nil, fmt.Errorf("%w: frame %d sender %d receiver %d", ErrNoPath, frame.Index, frame.Sender, receiver)
	}

	marginal := marginalUtilizationNS(frame.SizeBytes, frame.PeriodNS, p.hyperPeriodNS, p.g)

	var best []int
	var bestCost int64 = -1
	for _, path := range filtered {
		cost := p.pathCost(frame, path, marginal)
		if bestCost == -1 || cost < bestCost || (cost == bestCost && isBetterTieBreak(path, best)) {
			bestCost = cost
			best = path
		}
	}
	return best, nil
}

func (p *Planner) intermediatesAreSwitches(path []int, sender, receiver int) bool {
	current := sender
	for i, linkIdx := range path {
		next, err := p.g.OtherEndpoint(linkIdx, current)
		if err != nil {
			return false
		}
		if i < len(path)-1 {
			node, err := p.g.Node(next)
			if err != nil || node.Kind != graph.KindSwitch {
				return false
			}
		}
		current = next
	}
	return current == receiver
}

func (p *Planner) pathCost(frame *traffic.Frame, path []int, marginal func(linkIdx int) int64) int64 {
	charged := p.frameLinks[frame.Index]
	var cost int64
	for _, linkIdx := range path {
		cost += p.utilization[linkIdx]
		if !charged[linkIdx] {
			cost += marginal(linkIdx)
		}
	}
	return cost
}

func (p *Planner) chargePath(frame *traffic.Frame, path []int) {
	charged := p.frameLinks[frame.Index]
	for _, linkIdx := range path {
		if charged[linkIdx] {
			continue
		}
		link, err := p.g.Link(linkIdx)
		if err != nil {
			continue
		}
		p.utilization[linkIdx] += marginalForLink(frame.SizeBytes, frame.PeriodNS, p.hyperPeriodNS, link.SpeedMbps)
		charged[linkIdx] = true
	}
}

// isBetterTieBreak reports whether candidate should replace incumbent when
// their costs are equal: shorter path length wins, then lexicographically
// smaller link-index sequence.
func isBetterTieBreak(candidate, incumbent []int) bool {
	if len(candidate) != len(incumbent) {
		return len(candidate) < len(incumbent)
	}
	for i := range candidate {
		if candidate[i] != incumbent[i] {
			return candidate[i] < incumbent[i]
		}
	}
	return false
}

func marginalUtilizationNS(sizeBytes int, periodNS, hyperPeriodNS int64, g *graph.Graph) func(linkIdx int) int64 {
	return func(linkIdx int) int64 {
		link, err := g.Link(linkIdx)
		if err != nil {
			return 0
		}
		return marginalForLink(sizeBytes, periodNS, hyperPeriodNS, link.SpeedMbps)
	}
}

// marginalForLink is floor(size_bytes * 8 * 1000 / speed_mbps) * (hyper_period / period_ns).
func marginalForLink(sizeBytes int, periodNS, hyperPeriodNS int64, speedMbps int) int64 {
	if speedMbps <= 0 || periodNS <= 0 {
		return 0
	}
	perInstance := int64(sizeBytes) * 8 * 1000 / int64(speedMbps)
	instances := hyperPeriodNS / periodNS
	return perInstance * instances
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		return -a
	}
	return a
}

func lcm(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	return a / gcd(a, b) * b
}

func lcmAll(values []int64) int64 {
	var result int64 = 1
	seen := make(map[int64]bool)
	for _, v := range values {
		if v <= 0 || seen[v] {
			continue
		}
		seen[v] = true
		result = lcm(result, v)
	}
	if len(seen) == 0 {
		return 0
	}
	return result
}
