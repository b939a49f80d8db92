package regen

import (
	"context"
	"fmt"
	"os"

	"github.com/signalsfoundry/ttnet-toolchain/xmlio"
)

// defaultDegradeFloor is the lower bound degradation halves toward; no
// floor above zero is introduced (DESIGN.md open question 3), so both
// axes are allowed to reach exactly zero before Unrecoverable is raised.
const defaultDegradeFloor = 0

// solveSubnetwork invokes the external solver against sn, rewriting and
// retrying with degraded temporal slack parameters on a missing output
// file: first time_between_frames_ns is halved, then
// minimum_switch_residency_ns, alternating, until one retry succeeds or
// both parameters are exhausted.
func (p *Planner) solveSubnetwork(ctx context.Context, m *Membership, sn *NodeSubnetwork, idx int) (*SubnetworkResult, error) {
	timeBetween := p.timeBetweenFramesNS
	minResidency := p.minimumSwitchResidencyNS
	degradeTimeBetweenNext := true
	steps := 0

	networkPath := p.workspace.NodeNetworkPath(idx)
	schedulePath := p.workspace.NodeSchedulePath(idx)

	for {
		doc := buildSubnetworkDocument(m, sn, timeBetween, minResidency)
		if err := writeSubnetworkDocument(networkPath, doc); err != nil {
			return nil, err
		}

		os.Remove(schedulePath)
		produced, err := p.solver.Invoke(ctx, networkPath, schedulePath)
		if err != nil {
			return nil, err
		}
		if produced {
			return &SubnetworkResult{
				Index:                    idx,
				SourceNode:               sn.SourceNode,
				TimeBetweenFramesNS:      timeBetween,
				MinimumSwitchResidencyNS: minResidency,
				DegradationSteps:         steps,
				NetworkPath:              networkPath,
				SchedulePath:             schedulePath,
			}, nil
		}

		if p.collector != nil {
			p.collector.RegenDegradations.Inc()
		}

		var exhausted bool
		timeBetween, minResidency, degradeTimeBetweenNext, exhausted = degradeStep(timeBetween, minResidency, degradeTimeBetweenNext)
		if exhausted {
			return nil, fmt.Errorf("%w: subnetwork %d exhausted degradation", ErrUnrecoverable, idx)
		}
		steps++
	}
}

// degradeStep halves whichever of the two axes is due next, falling back
// to the other axis if the due one is already at its floor; the axis due
// after this step is the one that was not halved. It reports exhausted
// when both axes are already at the floor.
func degradeStep(timeBetween, minResidency int64, degradeTimeBetweenNext bool) (newTimeBetween, newMinResidency int64, nextAxis bool, exhausted bool) {
	if degradeTimeBetweenNext {
		switch {
		case timeBetween > defaultDegradeFloor:
			timeBetween /= 2
		case minResidency > defaultDegradeFloor:
			minResidency /= 2
			return timeBetween, minResidency, true, false
		default:
			return timeBetween, minResidency, degradeTimeBetweenNext, true
		}
	} else {
		switch {
		case minResidency > defaultDegradeFloor:
			minResidency /= 2
		case timeBetween > defaultDegradeFloor:
			timeBetween /= 2
			return timeBetween, minResidency, false, false
		default:
			return timeBetween, minResidency, degradeTimeBetweenNext, true
		}
	}
	return timeBetween, minResidency, !degradeTimeBetweenNext, false
}

func writeSubnetworkDocument(path string, doc xmlio.SubnetworkDocument) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	encErr := xmlio.EncodeSubnetwork(f, doc)
	closeErr := f.Close()
	if encErr != nil {
		return encErr
	}
	return closeErr
}

func buildSubnetworkDocument(m *Membership, sn *NodeSubnetwork, timeBetween, minResidency int64) xmlio.SubnetworkDocument {
	doc := xmlio.SubnetworkDocument{
		TimeBetweenFramesNS:      timeBetween,
		MinimumSwitchResidencyNS: minResidency,
	}
	for _, l := range sn.Links {
		link, err := m.Graph.Link(l)
		if err != nil {
			continue
		}
		doc.Links = append(doc.Links, xmlio.SubnetworkLink{
			ID:          l,
			Speed:       link.SpeedMbps,
			Source:      link.Source,
			Destination: link.Dest,
		})
	}

	grouped := make(map[*memberFrameEntry]*xmlio.SubnetworkFrame)
	var order []*memberFrameEntry
	for _, se := range sn.Entries {
		fr, ok := grouped[se.entry]
		if !ok {
			fr = &xmlio.SubnetworkFrame{
				FrameIndex: se.entry.frame.Index,
				Period:     se.entry.periodNS,
				Size:       se.entry.sizeBytes,
				Affected:   se.entry.affected,
			}
			grouped[se.entry] = fr
			order = append(order, se.entry)
		}
		fr.Links = append(fr.Links, xmlio.SubnetworkFrameLink{
			LinkID:      se.linkIndex,
			WindowStart: se.windowStartNS,
			WindowEnd:   se.windowEndNS,
		})
	}
	for _, e := range order {
		doc.Frames = append(doc.Frames, *grouped[e])
	}
	return doc
}
