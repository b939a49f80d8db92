package regen

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/signalsfoundry/ttnet-toolchain/graph"
	"github.com/signalsfoundry/ttnet-toolchain/internal/logging"
	"github.com/signalsfoundry/ttnet-toolchain/internal/observability"
	"github.com/signalsfoundry/ttnet-toolchain/solver"
	"github.com/signalsfoundry/ttnet-toolchain/traffic"
	"github.com/signalsfoundry/ttnet-toolchain/xmlio"
)

// Config bundles the regeneration planner's degradable and structural
// parameters.
type Config struct {
	PeriodProtocolNS         int64
	TimeProtocolNS           int64
	MinimumSwitchResidencyNS int64
	TimeBetweenFramesNS      int64
	// CandidatePathCount is K: the number of shortest candidate recovery
	// paths retained. Zero means defaultCandidatePathCount.
	CandidatePathCount int
	// Parallel solves per-node subnetworks concurrently, aggregating
	// results deterministically by subnetwork index.
	Parallel bool
}

// Planner is the evaluator's regeneration state machine: on a link
// failure it builds a membership subnetwork, shards it by source node,
// and drives the external solver (with degradation) over each shard.
type Planner struct {
	g             *graph.Graph
	frames        []*traffic.Frame
	hyperPeriodNS int64

	periodProtocolNS         int64
	timeProtocolNS           int64
	minimumSwitchResidencyNS int64
	timeBetweenFramesNS      int64
	candidatePathCount       int
	parallel                 bool

	solver    solver.Descriptor
	workspace *Workspace

	log              logging.Logger
	collector        *observability.RegenCollector
	routingCollector *observability.RoutingCollector

	state state
}

// NewPlanner constructs a regeneration Planner over the network-wide
// graph, its routed frame set, and the already-established hyper-period
// (the membership subnetwork must stay consistent with it).
func NewPlanner(g *graph.Graph, frames []*traffic.Frame, hyperPeriodNS int64, cfg Config, sd solver.Descriptor, ws *Workspace, log logging.Logger, collector *observability.RegenCollector, routingCollector *observability.RoutingCollector) *Planner {
	if log == nil {
		log = logging.Noop()
	}
	return &Planner{
		g:                        g,
		frames:                   frames,
		hyperPeriodNS:            hyperPeriodNS,
		periodProtocolNS:         cfg.PeriodProtocolNS,
		timeProtocolNS:           cfg.TimeProtocolNS,
		minimumSwitchResidencyNS: cfg.MinimumSwitchResidencyNS,
		timeBetweenFramesNS:      cfg.TimeBetweenFramesNS,
		candidatePathCount:       cfg.CandidatePathCount,
		parallel:                 cfg.Parallel,
		solver:                   sd,
		workspace:                ws,
		log:                      log,
		collector:                collector,
		routingCollector:         routingCollector,
		state:                    stateIdle,
	}
}

// State returns the planner's current state name.
func (p *Planner) State() string { return p.state.String() }

// ActivateProtocol runs the full regeneration pipeline for the loss of
// failedLink observed at atNS: impact analysis, membership subnetwork
// construction, per-source-node sharding, and solver invocation with
// degradation. All intermediate buffers are discarded on the next call.
func (p *Planner) ActivateProtocol(ctx context.Context, failedLink int, atNS int64) (*Result, error) {
	p.state = stateIdle
	result := &Result{FailedLink: failedLink}

	analyzeCtx, analyzeSpan := observability.StartSpan(ctx, "regen.analyzing")
	p.state = stateAnalyzing
	membership, warnings, err := p.buildMembership(analyzeCtx, failedLink, atNS)
	analyzeSpan.End()
	result.Warnings = warnings
	if err != nil {
		return p.fail(result, err)
	}

	for _, e := range membership.Entries {
		if e.affected {
			result.AffectedFrames = append(result.AffectedFrames, e.frame.Index)
		}
	}

	if p.workspace != nil {
		if err := p.workspace.Prepare(); err != nil {
			return p.fail(result, err)
		}
		if err := p.writeMembershipArtifact(membership); err != nil {
			return p.fail(result, err)
		}
		result.MembershipPath = p.workspace.MembershipPath()
	}

	_, builtSpan := observability.StartSpan(ctx, "regen.membership_built")
	p.state = stateMembershipBuilt
	builtSpan.End()
	if p.collector != nil {
		p.collector.MembershipLinks.Set(float64(membership.Graph.LinkCount()))
	}

	_, shardSpan := observability.StartSpan(ctx, "regen.sharded")
	p.state = stateSharded
	subnets := shardMembership(membership)
	shardSpan.End()
	if p.collector != nil {
		p.collector.SubnetworkCount.Set(float64(len(subnets)))
	}

	var results []*SubnetworkResult
	if p.parallel {
		results, err = p.solveAllParallel(ctx, membership, subnets)
	} else {
		results, err = p.solveAllSequential(ctx, membership, subnets)
	}
	if err != nil {
		return p.fail(result, err)
	}

	for _, sr := range results {
		if sr == nil {
			continue
		}
		result.Subnetworks = append(result.Subnetworks, sr)
		result.NodeNetworkPaths = append(result.NodeNetworkPaths, sr.NetworkPath)
		result.NodeSchedulePaths = append(result.NodeSchedulePaths, sr.SchedulePath)
	}

	p.state = stateDone
	result.State = p.state.String()
	if p.collector != nil {
		p.collector.ObserveOutcome("done")
	}
	return result, nil
}

func (p *Planner) fail(result *Result, err error) (*Result, error) {
	p.state = stateFailed
	result.State = p.state.String()
	result.Unrecoverable = errors.Is(err, ErrUnrecoverable)
	if p.collector != nil {
		if result.Unrecoverable {
			p.collector.RegenUnrecoverable.Inc()
			p.collector.ObserveOutcome("unrecoverable")
		} else {
			p.collector.ObserveOutcome("error")
		}
	}
	return result, err
}

func (p *Planner) solveAllSequential(ctx context.Context, m *Membership, subnets []*NodeSubnetwork) ([]*SubnetworkResult, error) {
	results := make([]*SubnetworkResult, len(subnets))
	for i, sn := range subnets {
		_, span := observability.StartSpan(ctx, fmt.Sprintf("regen.solving[%d]", i))
		p.state = stateSolving
		sr, err := p.solveSubnetwork(ctx, m, sn, i)
		span.End()
		if err != nil {
			return nil, err
		}
		results[i] = sr
	}
	return results, nil
}

// solveAllParallel solves every subnetwork concurrently, but aggregates
// into a result slice indexed by subnetwork position so the outcome is
// deterministic regardless of completion order, per the single-cancel
// fan-out/fan-in discipline.
func (p *Planner) solveAllParallel(ctx context.Context, m *Membership, subnets []*NodeSubnetwork) ([]*SubnetworkResult, error) {
	results := make([]*SubnetworkResult, len(subnets))
	errs := make([]error, len(subnets))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.state = stateSolving
	var wg sync.WaitGroup
	for i, sn := range subnets {
		wg.Add(1)
		go func(i int, sn *NodeSubnetwork) {
			defer wg.Done()
			_, span := observability.StartSpan(ctx, fmt.Sprintf("regen.solving[%d]", i))
			sr, err := p.solveSubnetwork(ctx, m, sn, i)
			span.End()
			if err != nil {
				errs[i] = err
				cancel()
				return
			}
			results[i] = sr
		}(i, sn)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

func (p *Planner) writeMembershipArtifact(m *Membership) error {
	f, err := os.Create(p.workspace.MembershipPath())
	if err != nil {
		return err
	}
	memberFrames := membershipFramesForEncoding(m)
	encErr := xmlio.EncodeNetwork(f, m.Graph, memberFrames, m.RoutingPlanner)
	closeErr := f.Close()
	if encErr != nil {
		return encErr
	}
	return closeErr
}

// membershipFramesForEncoding builds one single-receiver traffic.Frame per
// membership entry, expressed entirely in member-local indices, so the
// membership network can reuse xmlio.EncodeNetwork unchanged.
func membershipFramesForEncoding(m *Membership) []*traffic.Frame {
	frames := make([]*traffic.Frame, 0, len(m.Entries))
	for _, e := range m.Entries {
		f := traffic.NewFrame(e.frame.Index, e.senderMember, []int{e.receiverMember})
		f.PeriodNS = e.periodNS
		f.DeadlineNS = e.frame.DeadlineNS
		f.SizeBytes = e.sizeBytes
		f.EndToEndNS = e.endToEndNS
		f.Paths[0] = e.path
		frames = append(frames, f)
	}
	return frames
}
