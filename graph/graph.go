// Package graph models the node/link topology shared by the network
// generator and the regeneration evaluator: a dense, append-only index space
// over nodes and links, with tombstone-on-remove semantics so that no index
// is ever reused or renumbered once assigned.
package graph

import "fmt"

// NodeKind distinguishes switches (which may forward frames they do not
// originate or terminate) from end systems (frame sources and sinks only).
type NodeKind int

const (
	KindSwitch NodeKind = iota
	KindEndSystem
)

func (k NodeKind) String() string {
	if k == KindEndSystem {
		return "end_system"
	}
	return "switch"
}

// LinkKind distinguishes wired from wireless physical links; both kinds
// carry the same directed-edge shape and the same speed-based
// transmission-duration math.
type LinkKind int

const (
	LinkWired LinkKind = iota
	LinkWireless
)

// Node is one entry in the dense node index. Index is assigned once at
// AddNode time and never reused.
type Node struct {
	Index    int
	Kind     NodeKind
	demoted  bool
	Removed  bool
}

// Link is a directed logical edge between two node indices, but represents an
// undirected physical connection: it may be traversed from Source to Dest or
// from Dest to Source, and occupies exactly one slot in the link table
// regardless of traversal direction. Removed links are tombstoned, not
// deleted, so that every other link keeps its original index.
type Link struct {
	Index     int
	Source    int
	Dest      int
	Kind      LinkKind
	SpeedMbps int
	Removed   bool
}

// Graph is the mutable node/link aggregate. It is not safe for concurrent
// mutation; callers needing concurrent reads during regeneration should take
// their own snapshot.
type Graph struct {
	nodes          []Node
	links          []Link
	adjacency      map[int][]int // node index -> incident, non-removed link indices
	routingStarted bool
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{adjacency: make(map[int][]int)}
}

// AddNode appends a new node of the given kind and returns its index.
func (g *Graph) AddNode(kind NodeKind) int {
	idx := len(g.nodes)
	g.nodes = append(g.nodes, Node{Index: idx, Kind: kind})
	return idx
}

// NodeCount returns the number of node slots, including removed ones.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// LinkCount returns the number of link slots, including removed ones.
func (g *Graph) LinkCount() int { return len(g.links) }

// EndSystems returns the indices of every node of kind KindEndSystem, in
// index order.
func (g *Graph) EndSystems() []int {
	var out []int
	for idx, n := range g.nodes {
		if n.Kind == KindEndSystem {
			out = append(out, idx)
		}
	}
	return out
}

// Node returns the node at idx.
func (g *Graph) Node(idx int) (Node, error) {
	if idx < 0 || idx >= len(g.nodes) {
		return Node{}, fmt.Errorf("%w: node index %d out of range", ErrBadTopology, idx)
	}
	return g.nodes[idx], nil
}

// Link returns the link at idx.
func (g *Graph) Link(idx int) (Link, error) {
	if idx < 0 || idx >= len(g.links) {
		return Link{}, fmt.Errorf("%w: link index %d out of range", ErrBadTopology, idx)
	}
	return g.links[idx], nil
}

// AddLink appends a new undirected link between source and dest and returns
// its index. Self-loops and links to out-of-range nodes are rejected.
func (g *Graph) AddLink(source, dest int, kind LinkKind, speedMbps int) (int, error) {
	if source == dest {
		return -1, fmt.Errorf("%w: self-loop at node %d", ErrBadTopology, source)
	}
	if _, err := g.Node(source); err != nil {
		return -1, err
	}
	if _, err := g.Node(dest); err != nil {
		return -1, err
	}
	idx := len(g.links)
	g.links = append(g.links, Link{
		Index:     idx,
		Source:    source,
		Dest:      dest,
		Kind:      kind,
		SpeedMbps: speedMbps,
	})
	g.adjacency[source] = append(g.adjacency[source], idx)
	g.adjacency[dest] = append(g.adjacency[dest], idx)
	return idx, nil
}

// RemoveLink tombstones a link: it remains present in the link table at its
// original index but is excluded from adjacency, traversal, and path
// enumeration from this point on.
func (g *Graph) RemoveLink(idx int) error {
	link, err := g.Link(idx)
	if err != nil {
		return err
	}
	if link.Removed {
		return fmt.Errorf("%w: link %d already removed", ErrBadTopology, idx)
	}
	g.links[idx].Removed = true
	g.adjacency[link.Source] = removeIndex(g.adjacency[link.Source], idx)
	g.adjacency[link.Dest] = removeIndex(g.adjacency[link.Dest], idx)
	return nil
}

func removeIndex(indices []int, target int) []int {
	out := indices[:0]
	for _, i := range indices {
		if i != target {
			out = append(out, i)
		}
	}
	return out
}

// LockRouting marks the graph as having entered routing; after this point
// DemoteToEndSystem rejects further kind mutations, matching the rule that
// node roles must be fixed before the utilization planner runs.
func (g *Graph) LockRouting() { g.routingStarted = true }

// DemoteToEndSystem converts a switch into an end system. It may be called
// exactly once per node, only on a switch, and never after LockRouting.
func (g *Graph) DemoteToEndSystem(idx int) error {
	node, err := g.Node(idx)
	if err != nil {
		return err
	}
	if g.routingStarted {
		return fmt.Errorf("%w: cannot change kind of node %d after routing has started", ErrBadTopology, idx)
	}
	if node.Kind == KindEndSystem {
		return fmt.Errorf("%w: node %d is already an end system", ErrBadTopology, idx)
	}
	if node.demoted {
		return fmt.Errorf("%w: node %d has already been demoted once", ErrBadTopology, idx)
	}
	g.nodes[idx].Kind = KindEndSystem
	g.nodes[idx].demoted = true
	return nil
}

// Clone returns a deep copy of the graph, safe to mutate (e.g. remove a
// link to analyze impact) without affecting the original.
func (g *Graph) Clone() *Graph {
	clone := &Graph{
		nodes:          append([]Node(nil), g.nodes...),
		links:          append([]Link(nil), g.links...),
		adjacency:      make(map[int][]int, len(g.adjacency)),
		routingStarted: g.routingStarted,
	}
	for node, links := range g.adjacency {
		clone.adjacency[node] = append([]int(nil), links...)
	}
	return clone
}

// Neighbors returns the non-removed link indices incident to node.
func (g *Graph) Neighbors(node int) []int {
	existing := g.adjacency[node]
	out := make([]int, len(existing))
	copy(out, existing)
	return out
}

// OtherEndpoint returns the node at the far end of link from the perspective
// of from, i.e. Source if from == Dest, or Dest if from == Source.
func (g *Graph) OtherEndpoint(linkIdx, from int) (int, error) {
	link, err := g.Link(linkIdx)
	if err != nil {
		return -1, err
	}
	switch from {
	case link.Source:
		return link.Dest, nil
	case link.Dest:
		return link.Source, nil
	default:
		return -1, fmt.Errorf("%w: node %d is not an endpoint of link %d", ErrBadTopology, from, linkIdx)
	}
}

// LinkBetween returns the non-removed link index directly connecting a and
// b, in either direction, if one exists.
func (g *Graph) LinkBetween(a, b int) (int, bool) {
	for _, idx := range g.adjacency[a] {
		link := g.links[idx]
		if link.Source == b || link.Dest == b {
			return idx, true
		}
	}
	return -1, false
}

// SimplePaths enumerates every simple path (no repeated node) from source to
// dest, each expressed as an ordered slice of link indices. Paths are
// returned in DFS discovery order.
func (g *Graph) SimplePaths(source, dest int) ([][]int, error) {
	if _, err := g.Node(source); err != nil {
		return nil, err
	}
	if _, err := g.Node(dest); err != nil {
		return nil, err
	}
	var results [][]int
	visited := make(map[int]bool)
	var path []int
	visited[source] = true
	g.walk(source, dest, visited, path, &results)
	return results, nil
}

func (g *Graph) walk(current, dest int, visited map[int]bool, path []int, results *[][]int) {
	if current == dest {
		found := make([]int, len(path))
		copy(found, path)
		*results = append(*results, found)
		return
	}
	for _, linkIdx := range g.adjacency[current] {
		link := g.links[linkIdx]
		next, _ := g.OtherEndpoint(linkIdx, current)
		if visited[next] {
			continue
		}
		visited[next] = true
		path = append(path, linkIdx)
		g.walk(next, dest, visited, path, results)
		path = path[:len(path)-1]
		visited[next] = false
		_ = link
	}
}
