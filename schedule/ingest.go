// Package schedule ingests an externally produced Schedule XML artifact
// into the per-frame, per-link offset map defined in traffic.Frame.
package schedule

import (
	"fmt"
	"io"

	"github.com/signalsfoundry/ttnet-toolchain/graph"
	"github.com/signalsfoundry/ttnet-toolchain/traffic"
	"github.com/signalsfoundry/ttnet-toolchain/xmlio"
)

// ErrBadSchedule wraps xmlio.ErrBadConfig: the schedule document does not
// match the frame set it is meant to populate, or an offset's duration does
// not match the size/speed-derived minimum.
var ErrBadSchedule = xmlio.ErrBadConfig

// Result is the ingestion outcome: the same frames slice passed in, now
// carrying populated Offsets maps.
type Result struct {
	Frames []*traffic.Frame
}

// Ingest decodes a Schedule XML document from r and populates frames'
// Offsets maps, matching schedule entries to frames positionally (the
// schema carries no frame identifier). g supplies link speeds for the
// per-instance duration validation.
func Ingest(r io.Reader, g *graph.Graph, frames []*traffic.Frame) (*Result, error) {
	doc, err := xmlio.DecodeSchedule(r)
	if err != nil {
		return nil, err
	}
	if len(doc.Frames) != len(frames) {
		return nil, fmt.Errorf("%w: schedule has %d frame entries, expected %d", ErrBadSchedule, len(doc.Frames), len(frames))
	}

	for i, sf := range doc.Frames {
		frame := frames[i]
		if frame.Offsets == nil {
			frame.Offsets = make(map[int]*traffic.Offset)
		}
		for _, link := range sf.Links {
			off := &traffic.Offset{LinkIndex: link.LinkIndex}
			for _, inst := range link.Instances {
				off.Starting = append(off.Starting, inst.TransmissionTimeNS)
				off.Ending = append(off.Ending, inst.EndingTimeNS)
			}
			frame.Offsets[link.LinkIndex] = off
		}
	}

	if err := validate(g, frames); err != nil {
		return nil, err
	}
	return &Result{Frames: frames}, nil
}

// validate checks that every (frame, link) pair on a frame's paths has an
// offset, and that each instance's duration matches the size/speed-derived
// minimum transmission time.
func validate(g *graph.Graph, frames []*traffic.Frame) error {
	for _, frame := range frames {
		for _, path := range frame.Paths {
			for _, linkIdx := range path {
				off, ok := frame.Offsets[linkIdx]
				if !ok {
					return fmt.Errorf("%w: frame %d has no offset for link %d on its path", ErrBadSchedule, frame.Index, linkIdx)
				}
				link, err := g.Link(linkIdx)
				if err != nil {
					return err
				}
				want := traffic.TransmissionDurationNS(frame.SizeBytes, link.SpeedMbps)
				for k := range off.Starting {
					if off.Ending[k]-off.Starting[k] != want {
						return fmt.Errorf("%w: frame %d link %d instance %d duration %d, want %d",
							ErrBadSchedule, frame.Index, linkIdx, k, off.Ending[k]-off.Starting[k], want)
					}
				}
			}
		}
	}
	return nil
}
