package topology

import (
	"fmt"

	"github.com/signalsfoundry/ttnet-toolchain/graph"
)

// CyclicConnection is one adjacency-list entry: a link from the owning
// record's node to Peer, described by Kind and SpeedMbps.
type CyclicConnection struct {
	Peer      int
	Kind      graph.LinkKind
	SpeedMbps int
}

// CyclicNodeRecord is one node's adjacency-list record in a cyclic topology
// description.
type CyclicNodeRecord struct {
	Kind        graph.NodeKind
	Connections []CyclicConnection
}

// BuildCyclic constructs a graph from an explicit adjacency list: one record
// per node carrying its kind and its outgoing connections. Every connection
// must be mirrored by a matching reciprocal connection on the peer's record
// (same kind and speed); self-referential connections and unmatched or
// mismatched reciprocal edges fail with ErrBadTopology.
func BuildCyclic(records []CyclicNodeRecord) (*graph.Graph, error) {
	g := graph.New()
	for _, rec := range records {
		g.AddNode(rec.Kind)
	}

	type pairKey struct{ a, b int }
	seen := make(map[pairKey]CyclicConnection)
	matched := make(map[pairKey]bool)
	var order []pairKey

	for i, rec := range records {
		for _, conn := range rec.Connections {
			if conn.Peer == i {
				return nil, fmt.Errorf("%w: node %d has a self-referential connection", ErrBadTopology, i)
			}
			if conn.Peer < 0 || conn.Peer >= len(records) {
				return nil, fmt.Errorf("%w: node %d references unknown peer %d", ErrBadTopology, i, conn.Peer)
			}
			key := orderedPair(i, conn.Peer)
			if existing, ok := seen[key]; ok {
				if existing.Kind != conn.Kind || existing.SpeedMbps != conn.SpeedMbps {
					return nil, fmt.Errorf("%w: inconsistent reciprocal edge between nodes %d and %d", ErrBadTopology, i, conn.Peer)
				}
				matched[key] = true
				continue
			}
			seen[key] = conn
			order = append(order, key)
		}
	}

	for _, key := range order {
		if !matched[key] {
			return nil, fmt.Errorf("%w: edge between nodes %d and %d is missing its reciprocal entry", ErrBadTopology, key.a, key.b)
		}
		conn := seen[key]
		if _, err := g.AddLink(key.a, key.b, conn.Kind, conn.SpeedMbps); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func orderedPair(a, b int) struct{ a, b int } {
	if a < b {
		return struct{ a, b int }{a, b}
	}
	return struct{ a, b int }{b, a}
}
