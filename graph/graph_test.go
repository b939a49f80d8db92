package graph

import (
	"errors"
	"reflect"
	"testing"
)

func buildLine(t *testing.T, n int) (*Graph, []int) {
	t.Helper()
	g := New()
	nodes := make([]int, n)
	for i := range nodes {
		nodes[i] = g.AddNode(KindSwitch)
	}
	for i := 0; i < n-1; i++ {
		if _, err := g.AddLink(nodes[i], nodes[i+1], LinkWired, 100); err != nil {
			t.Fatalf("AddLink: %v", err)
		}
	}
	return g, nodes
}

func TestAddLinkRejectsSelfLoop(t *testing.T) {
	g := New()
	a := g.AddNode(KindSwitch)
	if _, err := g.AddLink(a, a, LinkWired, 100); !errors.Is(err, ErrBadTopology) {
		t.Fatalf("expected ErrBadTopology, got %v", err)
	}
}

func TestAddLinkRejectsOutOfRangeNode(t *testing.T) {
	g := New()
	a := g.AddNode(KindSwitch)
	if _, err := g.AddLink(a, 42, LinkWired, 100); !errors.Is(err, ErrBadTopology) {
		t.Fatalf("expected ErrBadTopology, got %v", err)
	}
}

func TestRemoveLinkTombstonesWithoutRenumbering(t *testing.T) {
	g, nodes := buildLine(t, 3)
	if err := g.RemoveLink(0); err != nil {
		t.Fatalf("RemoveLink: %v", err)
	}
	link, err := g.Link(0)
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	if !link.Removed {
		t.Fatalf("expected link 0 to be tombstoned")
	}
	if link.Index != 0 {
		t.Fatalf("expected link to keep its original index, got %d", link.Index)
	}
	// The surviving link must keep its own original index, 1.
	survivor, err := g.Link(1)
	if err != nil {
		t.Fatalf("Link(1): %v", err)
	}
	if survivor.Removed {
		t.Fatalf("did not expect link 1 to be removed")
	}
	if neighbors := g.Neighbors(nodes[0]); len(neighbors) != 0 {
		t.Fatalf("expected node 0 to have no neighbors after removal, got %v", neighbors)
	}
}

func TestRemoveLinkTwiceErrors(t *testing.T) {
	g, _ := buildLine(t, 2)
	if err := g.RemoveLink(0); err != nil {
		t.Fatalf("RemoveLink: %v", err)
	}
	if err := g.RemoveLink(0); !errors.Is(err, ErrBadTopology) {
		t.Fatalf("expected ErrBadTopology on double removal, got %v", err)
	}
}

func TestDemoteToEndSystemOnceOnly(t *testing.T) {
	g := New()
	a := g.AddNode(KindSwitch)
	if err := g.DemoteToEndSystem(a); err != nil {
		t.Fatalf("first demotion: %v", err)
	}
	node, _ := g.Node(a)
	if node.Kind != KindEndSystem {
		t.Fatalf("expected node to be an end system")
	}
	if err := g.DemoteToEndSystem(a); !errors.Is(err, ErrBadTopology) {
		t.Fatalf("expected ErrBadTopology on second demotion attempt, got %v", err)
	}
}

func TestDemoteToEndSystemRejectedAfterRoutingLocked(t *testing.T) {
	g := New()
	a := g.AddNode(KindSwitch)
	g.LockRouting()
	if err := g.DemoteToEndSystem(a); !errors.Is(err, ErrBadTopology) {
		t.Fatalf("expected ErrBadTopology after LockRouting, got %v", err)
	}
}

func TestSimplePathsFindsUniquePathOnLine(t *testing.T) {
	g, nodes := buildLine(t, 4)
	paths, err := g.SimplePaths(nodes[0], nodes[3])
	if err != nil {
		t.Fatalf("SimplePaths: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("expected exactly one simple path on a line graph, got %d", len(paths))
	}
	want := []int{0, 1, 2}
	if !reflect.DeepEqual(paths[0], want) {
		t.Fatalf("path = %v, want %v", paths[0], want)
	}
}

func TestSimplePathsFindsMultiplePathsOnCycle(t *testing.T) {
	g := New()
	a := g.AddNode(KindSwitch)
	b := g.AddNode(KindSwitch)
	c := g.AddNode(KindSwitch)
	d := g.AddNode(KindSwitch)
	if _, err := g.AddLink(a, b, LinkWired, 100); err != nil {
		t.Fatalf("AddLink: %v", err)
	}
	if _, err := g.AddLink(b, c, LinkWired, 100); err != nil {
		t.Fatalf("AddLink: %v", err)
	}
	if _, err := g.AddLink(c, d, LinkWired, 100); err != nil {
		t.Fatalf("AddLink: %v", err)
	}
	if _, err := g.AddLink(d, a, LinkWired, 100); err != nil {
		t.Fatalf("AddLink: %v", err)
	}
	paths, err := g.SimplePaths(a, c)
	if err != nil {
		t.Fatalf("SimplePaths: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected two simple paths around the cycle, got %d: %v", len(paths), paths)
	}
}

func TestOtherEndpointRejectsNonEndpoint(t *testing.T) {
	g, nodes := buildLine(t, 3)
	if _, err := g.OtherEndpoint(0, nodes[2]); !errors.Is(err, ErrBadTopology) {
		t.Fatalf("expected ErrBadTopology, got %v", err)
	}
}

func TestLinkBetweenIsDirectionAgnostic(t *testing.T) {
	g, nodes := buildLine(t, 2)
	if idx, ok := g.LinkBetween(nodes[1], nodes[0]); !ok || idx != 0 {
		t.Fatalf("LinkBetween(1,0) = (%d, %v), want (0, true)", idx, ok)
	}
}
