package regen

import (
	"context"
	"fmt"
	"sort"

	"github.com/signalsfoundry/ttnet-toolchain/graph"
	"github.com/signalsfoundry/ttnet-toolchain/internal/logging"
	"github.com/signalsfoundry/ttnet-toolchain/routing"
	"github.com/signalsfoundry/ttnet-toolchain/traffic"
)

// defaultCandidatePathCount is K in spec terms: the number of shortest
// candidate recovery paths retained between a failed link's endpoints.
const defaultCandidatePathCount = 2

// syntheticIndexMultiplier spaces out synthetic per-receiver frame indices
// used only to route affected frames in the member graph, so they never
// collide with real frame indices in routing.Planner's internal bookkeeping.
const syntheticIndexMultiplier = 1_000_000

// Membership is the derived subnetwork built from the candidate recovery
// paths around a failed link: a fresh graph containing only the
// participating nodes and links, the old↔new index mappings, and every
// frame entry (pre-existing and newly affected) touching it.
type Membership struct {
	Graph *graph.Graph

	OldToNewNode map[int]int
	NewToOldNode map[int]int
	OldToNewLink map[int]int
	NewToOldLink map[int]int

	CandidatePaths [][]int
	Entries        []*memberFrameEntry

	// RoutingPlanner is the planner used to route affected entries in the
	// member graph; kept so the membership artifact can report the same
	// hyper-period/feasibility/utilization figures it routed against.
	RoutingPlanner *routing.Planner
}

// segment is one maximal run of consecutive member links within a frame's
// original path.
type segment struct {
	links    []int
	startPos int
	endPos   int
}

func (p *Planner) buildMembership(ctx context.Context, failedLink int, atNS int64) (*Membership, []Warning, error) {
	link, err := p.g.Link(failedLink)
	if err != nil {
		return nil, nil, err
	}
	source, dest := link.Source, link.Dest

	working := p.g.Clone()
	if err := working.RemoveLink(failedLink); err != nil {
		return nil, nil, err
	}
	candidates, err := working.SimplePaths(source, dest)
	if err != nil {
		return nil, nil, err
	}
	sort.Slice(candidates, func(i, j int) bool { return len(candidates[i]) < len(candidates[j]) })

	k := p.candidatePathCount
	if k <= 0 {
		k = defaultCandidatePathCount
	}
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	if len(candidates) == 0 {
		return nil, nil, fmt.Errorf("%w: no candidate recovery path between node %d and node %d", ErrUnrecoverable, source, dest)
	}

	var memberLinksOrder []int
	memberLinkSet := make(map[int]bool)
	for _, path := range candidates {
		for _, l := range path {
			if !memberLinkSet[l] {
				memberLinkSet[l] = true
				memberLinksOrder = append(memberLinksOrder, l)
			}
		}
	}

	var memberNodesOrder []int
	seenNode := make(map[int]bool)
	addNode := func(n int) {
		if !seenNode[n] {
			seenNode[n] = true
			memberNodesOrder = append(memberNodesOrder, n)
		}
	}
	addNode(source)
	addNode(dest)
	for _, l := range memberLinksOrder {
		ln, err := p.g.Link(l)
		if err != nil {
			return nil, nil, err
		}
		addNode(ln.Source)
		addNode(ln.Dest)
	}

	mg := graph.New()
	oldToNewNode := make(map[int]int, len(memberNodesOrder))
	newToOldNode := make(map[int]int, len(memberNodesOrder))
	for _, n := range memberNodesOrder {
		idx := mg.AddNode(graph.KindEndSystem)
		oldToNewNode[n] = idx
		newToOldNode[idx] = n
	}

	oldToNewLink := make(map[int]int, len(memberLinksOrder))
	newToOldLink := make(map[int]int, len(memberLinksOrder))
	for _, l := range memberLinksOrder {
		ln, err := p.g.Link(l)
		if err != nil {
			return nil, nil, err
		}
		newIdx, err := mg.AddLink(oldToNewNode[ln.Source], oldToNewNode[ln.Dest], ln.Kind, ln.SpeedMbps)
		if err != nil {
			return nil, nil, err
		}
		oldToNewLink[l] = newIdx
		newToOldLink[newIdx] = l
	}

	m := &Membership{
		Graph:          mg,
		OldToNewNode:   oldToNewNode,
		NewToOldNode:   newToOldNode,
		OldToNewLink:   oldToNewLink,
		NewToOldLink:   newToOldLink,
		CandidatePaths: candidates,
	}

	var warnings []Warning

	for _, frame := range p.frames {
		for ri, path := range frame.Paths {
			if pos := indexOf(path, failedLink); pos >= 0 {
				entry, err := p.buildAffectedEntry(frame, ri, path, pos, atNS, oldToNewNode)
				if err != nil {
					return nil, nil, err
				}
				m.Entries = append(m.Entries, entry)
				continue
			}

			segments := restrictedSegments(path, memberLinkSet)
			if len(segments) == 0 {
				continue
			}
			segments = dedupeSegments(segments)
			if len(segments) > 1 {
				detail := fmt.Sprintf("frame %d receiver %d restricted path yielded %d disjoint segments; proceeding with the first", frame.Index, ri, len(segments))
				warnings = append(warnings, Warning{
					Kind:        "multiple_restricted_segments",
					FrameIndex:  frame.Index,
					ReceiverIdx: ri,
					Detail:      detail,
				})
				p.log.Warn(ctx, "frame restricted path has multiple disjoint segments",
					logging.Int("frame", frame.Index), logging.Int("receiver", ri), logging.Int("segments", len(segments)))
			}

			entry, err := p.buildNonAffectedEntry(frame, ri, path, segments[0], atNS, oldToNewNode, oldToNewLink)
			if err != nil {
				return nil, nil, err
			}
			m.Entries = append(m.Entries, entry)
		}
	}

	if err := p.routeAffectedEntries(ctx, m); err != nil {
		return nil, nil, err
	}

	return m, warnings, nil
}

func (p *Planner) buildNonAffectedEntry(frame *traffic.Frame, ri int, path []int, seg segment, atNS int64, oldToNewNode, oldToNewLink map[int]int) (*memberFrameEntry, error) {
	nodes, err := walkNodes(p.g, frame.Sender, path)
	if err != nil {
		return nil, err
	}

	instance := int64(0)
	if frame.PeriodNS > 0 {
		instance = atNS / frame.PeriodNS
	}

	windowStart := frame.PeriodNS * instance
	if predEnd, ok := frame.PredecessorEndingTime(path, seg.startPos, int(instance)); ok {
		windowStart = predEnd + p.minimumSwitchResidencyNS
	}

	windowEnd := frame.PeriodNS*instance + frame.DeadlineNS
	if succStart, ok := frame.SuccessorStartingTime(path, seg.endPos, int(instance)); ok {
		// Intentionally preserved source behavior: this link's own transmission duration is not subtracted.
		windowEnd = succStart
	}

	memberPath := make([]int, len(seg.links))
	for i, l := range seg.links {
		memberPath[i] = oldToNewLink[l]
	}

	return &memberFrameEntry{
		frame:          frame,
		receiverIdx:    ri,
		affected:       false,
		senderMember:   oldToNewNode[nodes[seg.startPos]],
		receiverMember: oldToNewNode[nodes[seg.endPos+1]],
		path:           memberPath,
		windowStartNS:  windowStart,
		windowEndNS:    windowEnd,
		periodNS:       frame.PeriodNS,
		sizeBytes:      frame.SizeBytes,
		endToEndNS:     frame.EndToEndNS,
	}, nil
}

func (p *Planner) buildAffectedEntry(frame *traffic.Frame, ri int, path []int, pos int, atNS int64, oldToNewNode map[int]int) (*memberFrameEntry, error) {
	nodes, err := walkNodes(p.g, frame.Sender, path)
	if err != nil {
		return nil, err
	}

	instance := int64(0)
	if frame.PeriodNS > 0 {
		instance = atNS / frame.PeriodNS
	}

	windowStart := frame.PeriodNS * instance
	var consumed int64
	if predEnd, ok := frame.PredecessorEndingTime(path, pos, int(instance)); ok {
		windowStart = predEnd + p.minimumSwitchResidencyNS
		consumed = predEnd - frame.PeriodNS*instance
	}

	windowEnd := frame.PeriodNS*instance + frame.DeadlineNS
	if succStart, ok := frame.SuccessorStartingTime(path, pos, int(instance)); ok {
		windowEnd = succStart
	}

	return &memberFrameEntry{
		frame:                  frame,
		receiverIdx:            ri,
		affected:               true,
		senderMember:           oldToNewNode[nodes[pos]],
		receiverMember:         oldToNewNode[nodes[pos+1]],
		windowStartNS:          windowStart,
		windowEndNS:            windowEnd,
		consumedBeforeMemberNS: consumed,
		periodNS:               frame.PeriodNS,
		sizeBytes:              frame.SizeBytes,
		endToEndNS:             frame.EndToEndNS,
	}, nil
}

// routeAffectedEntries charges the member graph with every non-affected
// entry's existing utilization, then routes every affected entry against
// it in one batch so the greedy marginal-utilization tie-break still
// balances load across the member link set.
func (p *Planner) routeAffectedEntries(ctx context.Context, m *Membership) error {
	mp := routing.NewPlanner(m.Graph, p.periodProtocolNS, p.timeProtocolNS, p.log, p.routingCollector)
	mp.SetHyperPeriod(p.hyperPeriodNS)
	m.RoutingPlanner = mp

	for _, e := range m.Entries {
		if e.affected {
			continue
		}
		preload := traffic.NewFrame(e.frame.Index, e.senderMember, []int{e.receiverMember})
		preload.SizeBytes = e.sizeBytes
		preload.PeriodNS = e.periodNS
		mp.Preload(preload, e.path)
	}

	var synthetic []*traffic.Frame
	var affectedEntries []*memberFrameEntry
	for _, e := range m.Entries {
		if !e.affected {
			continue
		}
		sf := traffic.NewFrame(e.frame.Index*syntheticIndexMultiplier+e.receiverIdx, e.senderMember, []int{e.receiverMember})
		sf.PeriodNS = e.periodNS
		sf.SizeBytes = e.sizeBytes
		sf.EndToEndNS = e.endToEndNS
		e.syntheticFrame = sf
		synthetic = append(synthetic, sf)
		affectedEntries = append(affectedEntries, e)
	}
	if len(synthetic) == 0 {
		return nil
	}
	if _, err := mp.Route(ctx, synthetic); err != nil {
		return err
	}
	for _, e := range affectedEntries {
		e.path = e.syntheticFrame.Paths[0]
	}
	return nil
}

func indexOf(path []int, target int) int {
	for i, l := range path {
		if l == target {
			return i
		}
	}
	return -1
}

func walkNodes(g *graph.Graph, sender int, path []int) ([]int, error) {
	nodes := make([]int, len(path)+1)
	nodes[0] = sender
	current := sender
	for i, l := range path {
		next, err := g.OtherEndpoint(l, current)
		if err != nil {
			return nil, err
		}
		nodes[i+1] = next
		current = next
	}
	return nodes, nil
}

func restrictedSegments(path []int, memberLinkSet map[int]bool) []segment {
	var segments []segment
	var cur segment
	inRun := false
	for i, l := range path {
		if memberLinkSet[l] {
			if !inRun {
				cur = segment{startPos: i}
				inRun = true
			}
			cur.links = append(cur.links, l)
			cur.endPos = i
			continue
		}
		if inRun {
			segments = append(segments, cur)
			inRun = false
		}
	}
	if inRun {
		segments = append(segments, cur)
	}
	return segments
}

func dedupeSegments(segments []segment) []segment {
	var out []segment
	for _, s := range segments {
		duplicate := false
		for _, o := range out {
			if linksEqual(s.links, o.links) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			out = append(out, s)
		}
	}
	return out
}

func linksEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
