package xmlio

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/signalsfoundry/ttnet-toolchain/graph"
	"github.com/signalsfoundry/ttnet-toolchain/topology"
	"github.com/signalsfoundry/ttnet-toolchain/traffic"
)

type unitValue struct {
	Unit  string  `xml:"unit,attr"`
	Value float64 `xml:",chardata"`
}

type configDocument struct {
	XMLName  xml.Name       `xml:"Configuration"`
	Topology topologySchema `xml:"Topology"`
	Traffic  trafficSchema  `xml:"Traffic"`
}

type topologySchema struct {
	Information topologyInformation `xml:"TopologyInformation"`
	Description descriptionSchema   `xml:"Description"`
}

type topologyInformation struct {
	MinTimeSwitch     unitValue `xml:"MinTimeSwitch"`
	PeriodProtocol    unitValue `xml:"PeriodProtocol"`
	TimeProtocol      unitValue `xml:"TimeProtocol"`
	TimeBetweenFrames unitValue `xml:"TimeBetweenFrames"`
}

type descriptionSchema struct {
	Bifurcations []bifurcationSchema `xml:"Bifurcation"`
	Nodes        []nodeSchema        `xml:"Node"`
}

type bifurcationSchema struct {
	NumberLinks int            `xml:"NumberLinks,attr"`
	Links       []linkSchema   `xml:"Link"`
}

type linkSchema struct {
	Category string    `xml:"category,attr"`
	Speed    unitValue `xml:"Speed"`
}

type nodeSchema struct {
	Category    string             `xml:"category,attr"`
	Connections []connectionSchema `xml:"Connection"`
}

type connectionSchema struct {
	NodeID int        `xml:"NodeID"`
	Link   linkSchema `xml:"Link"`
}

type trafficSchema struct {
	Information      trafficInformation  `xml:"TrafficInformation"`
	FrameDescriptions []frameTypeSchema  `xml:"FrameDescription>FrameType"`
}

type trafficInformation struct {
	NumberFrames int     `xml:"NumberFrames"`
	Single       float64 `xml:"Single"`
	Local        float64 `xml:"Local"`
	Multiple     float64 `xml:"Multiple"`
	Broadcast    float64 `xml:"Broadcast"`
}

type frameTypeSchema struct {
	Period     unitValue  `xml:"Period"`
	Deadline   *unitValue `xml:"Deadline"`
	EndToEnd   unitValue  `xml:"EndToEnd"`
	Size       float64    `xml:"Size"`
	Percentage float64    `xml:"Percentage"`
}

// Config is the normalized, nanosecond/MB-per-second form of Configuration
// XML, ready to feed the topology builder and the frame generator.
type Config struct {
	MinTimeSwitchNS     int64
	PeriodProtocolNS    int64
	TimeProtocolNS      int64
	TimeBetweenFramesNS int64

	IsTree bool
	// Tree-form fields.
	TreeTokens []int
	TreeLinks  []topology.LinkSpec
	// Cyclic-form fields.
	CyclicRecords []topology.CyclicNodeRecord

	GeneratorConfig traffic.GeneratorConfig
}

// DecodeConfig reads a Configuration XML document and normalizes every unit
// to nanoseconds / MB-per-second.
func DecodeConfig(r io.Reader) (*Config, error) {
	var doc configDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadConfig, err)
	}

	cfg := &Config{}
	var err error
	if cfg.MinTimeSwitchNS, err = NormalizeTimeNS(doc.Topology.Information.MinTimeSwitch.Value, doc.Topology.Information.MinTimeSwitch.Unit); err != nil {
		return nil, err
	}
	if cfg.PeriodProtocolNS, err = NormalizeTimeNS(doc.Topology.Information.PeriodProtocol.Value, doc.Topology.Information.PeriodProtocol.Unit); err != nil {
		return nil, err
	}
	if cfg.TimeProtocolNS, err = NormalizeTimeNS(doc.Topology.Information.TimeProtocol.Value, doc.Topology.Information.TimeProtocol.Unit); err != nil {
		return nil, err
	}
	if cfg.TimeBetweenFramesNS, err = NormalizeTimeNS(doc.Topology.Information.TimeBetweenFrames.Value, doc.Topology.Information.TimeBetweenFrames.Unit); err != nil {
		return nil, err
	}

	if len(doc.Topology.Description.Bifurcations) > 0 && len(doc.Topology.Description.Nodes) > 0 {
		return nil, fmt.Errorf("%w: Description carries both Bifurcation and Node elements", ErrBadConfig)
	}

	if len(doc.Topology.Description.Bifurcations) > 0 {
		cfg.IsTree = true
		for _, b := range doc.Topology.Description.Bifurcations {
			cfg.TreeTokens = append(cfg.TreeTokens, b.NumberLinks)
			for _, l := range b.Links {
				spec, err := linkSchemaToSpec(l)
				if err != nil {
					return nil, err
				}
				cfg.TreeLinks = append(cfg.TreeLinks, spec)
			}
		}
	} else {
		for _, n := range doc.Topology.Description.Nodes {
			kind, err := parseNodeCategory(n.Category)
			if err != nil {
				return nil, err
			}
			record := topology.CyclicNodeRecord{Kind: kind}
			for _, conn := range n.Connections {
				spec, err := linkSchemaToSpec(conn.Link)
				if err != nil {
					return nil, err
				}
				record.Connections = append(record.Connections, topology.CyclicConnection{
					Peer:      conn.NodeID,
					Kind:      spec.Kind(),
					SpeedMbps: spec.Speed(),
				})
			}
			cfg.CyclicRecords = append(cfg.CyclicRecords, record)
		}
	}

	cfg.GeneratorConfig.Count = doc.Traffic.Information.NumberFrames
	cfg.GeneratorConfig.ClassWeights = traffic.ClassWeights{
		Single:    doc.Traffic.Information.Single,
		Local:     doc.Traffic.Information.Local,
		Multiple:  doc.Traffic.Information.Multiple,
		Broadcast: doc.Traffic.Information.Broadcast,
	}
	for _, ft := range doc.Traffic.FrameDescriptions {
		period, err := NormalizeTimeNS(ft.Period.Value, ft.Period.Unit)
		if err != nil {
			return nil, err
		}
		var deadline int64
		if ft.Deadline != nil {
			deadline, err = NormalizeTimeNS(ft.Deadline.Value, ft.Deadline.Unit)
			if err != nil {
				return nil, err
			}
		}
		endToEnd, err := NormalizeTimeNS(ft.EndToEnd.Value, ft.EndToEnd.Unit)
		if err != nil {
			return nil, err
		}
		cfg.GeneratorConfig.AttributeClasses = append(cfg.GeneratorConfig.AttributeClasses, traffic.AttributeClass{
			PeriodNS:   period,
			DeadlineNS: deadline,
			SizeBytes:  int(ft.Size),
			EndToEndNS: endToEnd,
			Weight:     ft.Percentage,
		})
	}

	return cfg, nil
}

func linkSchemaToSpec(l linkSchema) (topology.LinkSpec, error) {
	kind, err := parseLinkCategory(l.Category)
	if err != nil {
		return topology.LinkSpec{}, err
	}
	speed, err := NormalizeSpeedMBps(l.Speed.Value, l.Speed.Unit)
	if err != nil {
		return topology.LinkSpec{}, err
	}
	return topology.NewLinkSpec(kind, speed), nil
}

func parseLinkCategory(category string) (graph.LinkKind, error) {
	switch category {
	case "wired":
		return graph.LinkWired, nil
	case "wireless":
		return graph.LinkWireless, nil
	default:
		return 0, fmt.Errorf("%w: unknown link category %q", ErrBadConfig, category)
	}
}

func parseNodeCategory(category string) (graph.NodeKind, error) {
	switch category {
	case "switch":
		return graph.KindSwitch, nil
	case "end_system":
		return graph.KindEndSystem, nil
	default:
		return 0, fmt.Errorf("%w: unknown node category %q", ErrBadConfig, category)
	}
}

// BuildGraph constructs the topology graph described by cfg.
func (cfg *Config) BuildGraph() (*graph.Graph, error) {
	if cfg.IsTree {
		return topology.BuildTreeFromSpec(cfg.TreeTokens, cfg.TreeLinks)
	}
	return topology.BuildCyclic(cfg.CyclicRecords)
}
