package regen

import "sort"

// NodeSubnetwork is the projection of the membership subnetwork containing
// only the links whose source is SourceNode, plus every frame window
// constraint touching any of them.
type NodeSubnetwork struct {
	SourceNode int
	Links      []int // member-local link indices
	Entries    []*shardEntry
}

// shardEntry is one (frame, link, window) constraint within a per-node
// subnetwork.
type shardEntry struct {
	entry         *memberFrameEntry
	linkIndex     int
	windowStartNS int64
	windowEndNS   int64
}

// shardMembership partitions the membership link set by link source node,
// producing one subnetwork per distinct source — a partition by
// construction, since every link belongs to exactly one source node.
func shardMembership(m *Membership) []*NodeSubnetwork {
	bySource := make(map[int]*NodeSubnetwork)
	var sources []int
	for idx := 0; idx < m.Graph.LinkCount(); idx++ {
		link, err := m.Graph.Link(idx)
		if err != nil || link.Removed {
			continue
		}
		sn, ok := bySource[link.Source]
		if !ok {
			sn = &NodeSubnetwork{SourceNode: link.Source}
			bySource[link.Source] = sn
			sources = append(sources, link.Source)
		}
		sn.Links = append(sn.Links, idx)
	}
	sort.Ints(sources)

	subnets := make([]*NodeSubnetwork, len(sources))
	linkToSubnet := make(map[int]*NodeSubnetwork)
	for i, src := range sources {
		subnets[i] = bySource[src]
		for _, l := range bySource[src].Links {
			linkToSubnet[l] = bySource[src]
		}
	}

	for _, e := range m.Entries {
		for _, w := range entryLinkWindows(e) {
			sn := linkToSubnet[w.link]
			if sn == nil {
				continue
			}
			sn.Entries = append(sn.Entries, &shardEntry{
				entry:         e,
				linkIndex:     w.link,
				windowStartNS: w.start,
				windowEndNS:   w.end,
			})
		}
	}
	return subnets
}
