package topology

import (
	"errors"
	"testing"

	"github.com/signalsfoundry/ttnet-toolchain/graph"
)

func TestBuildTreeLinearChain(t *testing.T) {
	// root(switch 0) -> 1 child switch -> 1 child switch -> 1 end system leaf.
	g, err := BuildTree("1;1;-1", "w100;w100;w100")
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}
	if g.NodeCount() != 4 {
		t.Fatalf("NodeCount = %d, want 4", g.NodeCount())
	}
	if g.LinkCount() != 3 {
		t.Fatalf("LinkCount = %d, want 3", g.LinkCount())
	}
	node3, err := g.Node(3)
	if err != nil {
		t.Fatalf("Node(3): %v", err)
	}
	if node3.Kind != graph.KindEndSystem {
		t.Fatalf("node 3 kind = %v, want end_system", node3.Kind)
	}
}

func TestBuildTreeZeroTokenDemotesRoot(t *testing.T) {
	g, err := BuildTree("0", "")
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}
	node0, err := g.Node(0)
	if err != nil {
		t.Fatalf("Node(0): %v", err)
	}
	if node0.Kind != graph.KindEndSystem {
		t.Fatalf("node 0 kind = %v, want end_system", node0.Kind)
	}
}

func TestBuildTreeOrphanTokenFails(t *testing.T) {
	if _, err := BuildTree("0;5", "w100"); !errors.Is(err, ErrBadTopology) {
		t.Fatalf("expected ErrBadTopology for orphan token, got %v", err)
	}
}

func TestBuildTreeUnusedLinkDescriptorFails(t *testing.T) {
	if _, err := BuildTree("-1", "w100;w100"); !errors.Is(err, ErrBadTopology) {
		t.Fatalf("expected ErrBadTopology for unused link descriptor, got %v", err)
	}
}

func TestBuildTreeUnknownLinkKindFails(t *testing.T) {
	if _, err := BuildTree("-1", "z100"); !errors.Is(err, ErrBadTopology) {
		t.Fatalf("expected ErrBadTopology for unknown link kind, got %v", err)
	}
}

func TestBuildTreeBroadcastStar(t *testing.T) {
	// root switch with 4 end-system children: models a single-hop star.
	g, err := BuildTree("-4", "w100;w100;w100;w100")
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}
	if g.NodeCount() != 5 || g.LinkCount() != 4 {
		t.Fatalf("got %d nodes / %d links, want 5 / 4", g.NodeCount(), g.LinkCount())
	}
}

func TestBuildCyclicTriangle(t *testing.T) {
	records := []CyclicNodeRecord{
		{Kind: graph.KindEndSystem, Connections: []CyclicConnection{
			{Peer: 1, Kind: graph.LinkWired, SpeedMbps: 100},
			{Peer: 2, Kind: graph.LinkWired, SpeedMbps: 100},
		}},
		{Kind: graph.KindSwitch, Connections: []CyclicConnection{
			{Peer: 0, Kind: graph.LinkWired, SpeedMbps: 100},
			{Peer: 2, Kind: graph.LinkWired, SpeedMbps: 100},
		}},
		{Kind: graph.KindEndSystem, Connections: []CyclicConnection{
			{Peer: 0, Kind: graph.LinkWired, SpeedMbps: 100},
			{Peer: 1, Kind: graph.LinkWired, SpeedMbps: 100},
		}},
	}
	g, err := BuildCyclic(records)
	if err != nil {
		t.Fatalf("BuildCyclic: %v", err)
	}
	if g.NodeCount() != 3 || g.LinkCount() != 3 {
		t.Fatalf("got %d nodes / %d links, want 3 / 3", g.NodeCount(), g.LinkCount())
	}
}

func TestBuildCyclicSelfLoopFails(t *testing.T) {
	records := []CyclicNodeRecord{
		{Kind: graph.KindSwitch, Connections: []CyclicConnection{{Peer: 0, Kind: graph.LinkWired, SpeedMbps: 100}}},
	}
	if _, err := BuildCyclic(records); !errors.Is(err, ErrBadTopology) {
		t.Fatalf("expected ErrBadTopology for self-loop, got %v", err)
	}
}

func TestBuildCyclicInconsistentReciprocalFails(t *testing.T) {
	records := []CyclicNodeRecord{
		{Kind: graph.KindSwitch, Connections: []CyclicConnection{{Peer: 1, Kind: graph.LinkWired, SpeedMbps: 100}}},
		{Kind: graph.KindSwitch, Connections: []CyclicConnection{{Peer: 0, Kind: graph.LinkWireless, SpeedMbps: 50}}},
	}
	if _, err := BuildCyclic(records); !errors.Is(err, ErrBadTopology) {
		t.Fatalf("expected ErrBadTopology for inconsistent reciprocal edge, got %v", err)
	}
}

func TestBuildCyclicMissingReciprocalFails(t *testing.T) {
	records := []CyclicNodeRecord{
		{Kind: graph.KindSwitch, Connections: []CyclicConnection{{Peer: 1, Kind: graph.LinkWired, SpeedMbps: 100}}},
		{Kind: graph.KindSwitch},
	}
	if _, err := BuildCyclic(records); !errors.Is(err, ErrBadTopology) {
		t.Fatalf("expected ErrBadTopology for missing reciprocal edge, got %v", err)
	}
}
