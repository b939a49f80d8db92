package regen

import (
	"context"
	"os"
	"sort"
	"testing"

	"github.com/signalsfoundry/ttnet-toolchain/solver"
	"github.com/signalsfoundry/ttnet-toolchain/traffic"
)

func triangleScenario(t *testing.T) (*Planner, int) {
	t.Helper()
	g, l0, l1, l2, _ := triangleGraph(t)
	_ = l1
	_ = l2
	frame := traffic.NewFrame(0, 0, []int{1})
	frame.PeriodNS = 1_000_000
	frame.DeadlineNS = 1_000_000
	frame.SizeBytes = 100
	frame.EndToEndNS = 1_000_000
	frame.Paths[0] = []int{l0}
	return newTestPlanner(t, g, []*traffic.Frame{frame}, frame.PeriodNS, alwaysSucceedSolver()), l0
}

func TestActivateProtocolScenarioS2EndToEnd(t *testing.T) {
	p, l0 := triangleScenario(t)

	result, err := p.ActivateProtocol(context.Background(), l0, 0)
	if err != nil {
		t.Fatalf("ActivateProtocol: %v", err)
	}
	if result.Unrecoverable {
		t.Fatalf("did not expect Unrecoverable")
	}
	if result.State != "done" {
		t.Fatalf("expected state done, got %s", result.State)
	}
	if len(result.AffectedFrames) != 1 || result.AffectedFrames[0] != 0 {
		t.Fatalf("expected affected frames [0], got %v", result.AffectedFrames)
	}
	if len(result.Subnetworks) != 2 {
		t.Fatalf("expected 2 per-source-node subnetworks, got %d", len(result.Subnetworks))
	}
	if _, err := os.Stat(result.MembershipPath); err != nil {
		t.Fatalf("expected membership artifact on disk: %v", err)
	}
	for _, sr := range result.Subnetworks {
		if _, err := os.Stat(sr.NetworkPath); err != nil {
			t.Fatalf("expected subnetwork artifact on disk: %v", err)
		}
		if _, err := os.Stat(sr.SchedulePath); err != nil {
			t.Fatalf("expected schedule artifact on disk: %v", err)
		}
	}
}

// countingRunner fails to produce output for the first failUntil calls,
// then succeeds, modeling scenario S5 (degradation success).
type countingRunner struct {
	failUntil int
	calls     int
}

func (r *countingRunner) Run(ctx context.Context, name string, args []string, stdin string) (string, string, error) {
	r.calls++
	if r.calls <= r.failUntil {
		return "", "", nil
	}
	if len(args) > 0 {
		_ = os.WriteFile(args[len(args)-1], []byte("<FramesTransmission></FramesTransmission>"), 0o644)
	}
	return "", "", nil
}

func TestActivateProtocolScenarioS5Degradation(t *testing.T) {
	g, l0, l1, l2, _ := triangleGraph(t)
	_ = l1
	_ = l2
	frame := traffic.NewFrame(0, 0, []int{1})
	frame.PeriodNS = 1_000_000
	frame.DeadlineNS = 1_000_000
	frame.SizeBytes = 100
	frame.EndToEndNS = 1_000_000
	frame.Paths[0] = []int{l0}

	runner := &countingRunner{failUntil: 1}
	sd := solver.Descriptor{
		Path:         "./Scheduler",
		ArgsTemplate: func(in, out string) []string { return []string{in, out} },
		Runner:       runner,
	}
	p := newTestPlanner(t, g, []*traffic.Frame{frame}, frame.PeriodNS, sd)

	result, err := p.ActivateProtocol(context.Background(), l0, 0)
	if err != nil {
		t.Fatalf("ActivateProtocol: %v", err)
	}
	if len(result.Subnetworks) != 2 {
		t.Fatalf("expected 2 subnetworks, got %d", len(result.Subnetworks))
	}

	sorted := append([]*SubnetworkResult(nil), result.Subnetworks...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	first := sorted[0]
	if first.DegradationSteps != 1 {
		t.Fatalf("expected the first subnetwork to have taken one degradation step, got %d", first.DegradationSteps)
	}
	if first.TimeBetweenFramesNS != 250 {
		t.Fatalf("expected time_between_frames_ns halved to 250, got %d", first.TimeBetweenFramesNS)
	}

	second := sorted[1]
	if second.DegradationSteps != 0 {
		t.Fatalf("expected the second subnetwork to succeed without degradation, got %d steps", second.DegradationSteps)
	}
}

func TestActivateProtocolUnrecoverablePropagatesResult(t *testing.T) {
	g, l0, l1, l2, _ := triangleGraph(t)
	_ = l1
	_ = l2
	frame := traffic.NewFrame(0, 0, []int{1})
	frame.PeriodNS = 1_000_000
	frame.DeadlineNS = 1_000_000
	frame.SizeBytes = 100
	frame.Paths[0] = []int{l0}

	// A runner that never produces output exhausts degradation on every
	// subnetwork and must surface Unrecoverable.
	runner := &countingRunner{failUntil: 1 << 30}
	sd := solver.Descriptor{
		Path:         "./Scheduler",
		ArgsTemplate: func(in, out string) []string { return []string{in, out} },
		Runner:       runner,
	}
	p := newTestPlanner(t, g, []*traffic.Frame{frame}, frame.PeriodNS, sd)

	result, err := p.ActivateProtocol(context.Background(), l0, 0)
	if err == nil {
		t.Fatalf("expected an error")
	}
	if !result.Unrecoverable {
		t.Fatalf("expected result.Unrecoverable to be set")
	}
	if result.State != "failed" {
		t.Fatalf("expected state failed, got %s", result.State)
	}
}

// TestRegenerationInvariants covers spec property 5 (a)-(d).
func TestRegenerationInvariants(t *testing.T) {
	g, l0, l1, l2, _ := triangleGraph(t)
	frame := traffic.NewFrame(0, 0, []int{1})
	frame.PeriodNS = 1_000_000
	frame.DeadlineNS = 1_000_000
	frame.SizeBytes = 100
	frame.EndToEndNS = 1_000_000
	frame.Paths[0] = []int{l0}

	p := newTestPlanner(t, g, []*traffic.Frame{frame}, frame.PeriodNS, alwaysSucceedSolver())
	m, _, err := p.buildMembership(context.Background(), l0, 0)
	if err != nil {
		t.Fatalf("buildMembership: %v", err)
	}

	// (a) the failed link cannot appear in any recovered path, since it was
	// removed before candidate-path enumeration.
	if _, ok := m.OldToNewLink[l0]; ok {
		t.Fatalf("failed link %d must not be part of the membership link set", l0)
	}

	for _, e := range m.Entries {
		if !e.affected {
			continue
		}
		// (b) every affected frame's new path ends at its original destination.
		originalDest := e.frame.Receivers[e.receiverIdx]
		recoveredDest := m.NewToOldNode[e.receiverMember]
		if len(e.path) > 0 {
			lastLink := m.NewToOldLink[e.path[len(e.path)-1]]
			ln, err := g.Link(lastLink)
			if err != nil {
				t.Fatalf("Link: %v", err)
			}
			recoveredDest = ln.Dest
			if recoveredDest != originalDest {
				t.Fatalf("expected recovered path to end at original destination %d, got %d", originalDest, recoveredDest)
			}
		}

		// (c) sum of per-link window lengths along the new path covers at
		// least the transmission duration.
		var total int64
		for _, w := range entryLinkWindows(e) {
			total += w.end - w.start
		}
		minimum := traffic.TransmissionDurationNS(e.sizeBytes, 100)
		if total < minimum {
			t.Fatalf("expected total window length >= %d, got %d", minimum, total)
		}
	}

	// (d) per-node subnetwork link sets are pairwise disjoint and their
	// union equals the membership link set.
	subnets := shardMembership(m)
	seen := make(map[int]bool)
	var totalLinks int
	for _, sn := range subnets {
		for _, l := range sn.Links {
			if seen[l] {
				t.Fatalf("link %d appears in more than one per-node subnetwork", l)
			}
			seen[l] = true
			totalLinks++
		}
	}
	if totalLinks != m.Graph.LinkCount() {
		t.Fatalf("expected the union of per-node subnetworks to cover all %d membership links, got %d", m.Graph.LinkCount(), totalLinks)
	}
	_ = l1
	_ = l2
}
