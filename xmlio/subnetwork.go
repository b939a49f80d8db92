package xmlio

import (
	"encoding/xml"
	"io"
)

// SubnetworkLink is one link definition in a per-node subnetwork descriptor.
type SubnetworkLink struct {
	ID          int `xml:"ID"`
	Speed       int `xml:"Speed"`
	Source      int `xml:"Source"`
	Destination int `xml:"Destination"`
}

// SubnetworkFrameLink is one (frame, link) window constraint within a
// subnetwork descriptor.
type SubnetworkFrameLink struct {
	LinkID      int   `xml:"LinkID"`
	WindowStart int64 `xml:"WindowStart"`
	WindowEnd   int64 `xml:"WindowEnd"`
}

// SubnetworkFrame groups every link window constraint for one frame within
// a subnetwork descriptor, mirroring the Schedule XML's per-frame grouping
// so the solver's eventual output lines up positionally.
type SubnetworkFrame struct {
	FrameIndex int                   `xml:"FrameIndex"`
	Period     int64                 `xml:"Period"`
	Size       int                   `xml:"Size"`
	Affected   bool                  `xml:"Affected"`
	Links      []SubnetworkFrameLink `xml:"Links>Link"`
}

// SubnetworkDocument is the constraint problem handed to the external
// solver for one per-source-node subnetwork: its links, its degradable
// temporal-slack parameters, and every frame window constraint touching it.
type SubnetworkDocument struct {
	XMLName                  xml.Name          `xml:"Subnetwork"`
	TimeBetweenFramesNS      int64             `xml:"TimeBetweenFramesNS"`
	MinimumSwitchResidencyNS int64             `xml:"MinimumSwitchResidencyNS"`
	Links                    []SubnetworkLink  `xml:"Links>Link"`
	Frames                   []SubnetworkFrame `xml:"Frames>Frame"`
}

// EncodeSubnetwork writes doc as a Subnetwork XML descriptor.
func EncodeSubnetwork(w io.Writer, doc SubnetworkDocument) error {
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	return enc.Encode(doc)
}
