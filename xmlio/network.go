package xmlio

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/signalsfoundry/ttnet-toolchain/graph"
	"github.com/signalsfoundry/ttnet-toolchain/routing"
	"github.com/signalsfoundry/ttnet-toolchain/traffic"
)

type networkDocument struct {
	XMLName     xml.Name                 `xml:"Network"`
	General     generalInformation       `xml:"GeneralInformation"`
	Description networkDescriptionSchema `xml:"NetworkDescription"`
	Traffic     networkTrafficSchema     `xml:"TrafficInformation"`
}

type generalInformation struct {
	NumberNodes        int     `xml:"NumberNodes"`
	NumberLinks        int     `xml:"NumberLinks"`
	NumberFrames       int     `xml:"NumberFrames"`
	HyperPeriod        int64   `xml:"HyperPeriod"`
	AverageUtilization float64 `xml:"AverageUtilization"`
	Schedulable        bool    `xml:"Schedulable"`
}

type networkDescriptionSchema struct {
	Nodes []networkNodeSchema `xml:"Nodes>Node"`
	Links []networkLinkSchema `xml:"Links>Link"`
}

type networkNodeSchema struct {
	Category    string `xml:"category,attr"`
	ID          int    `xml:"ID"`
	Connections []int  `xml:"Connections>Link"`
}

type networkLinkSchema struct {
	Category    string `xml:"category,attr"`
	ID          int    `xml:"ID"`
	Speed       int    `xml:"Speed"`
	Source      int    `xml:"Source"`
	Destination int    `xml:"Destination"`
}

type networkTrafficSchema struct {
	Frames []networkFrameSchema `xml:"Frames>Frame"`
}

type networkFrameSchema struct {
	ID       int      `xml:"ID"`
	Period   int64    `xml:"Period"`
	Starting int64    `xml:"Starting"`
	Deadline int64    `xml:"Deadline"`
	Size     int      `xml:"Size"`
	EndToEnd int64    `xml:"EndToEnd"`
	Paths    []string `xml:"Paths>Path"`
	Splits   []string `xml:"Splits>Split"`
}

// EncodeNetwork writes the Network XML artifact for g, frames, and the
// planner's routing results.
func EncodeNetwork(w io.Writer, g *graph.Graph, frames []*traffic.Frame, planner *routing.Planner) error {
	doc := networkDocument{
		General: generalInformation{
			NumberNodes:        g.NodeCount(),
			NumberLinks:        g.LinkCount(),
			NumberFrames:       len(frames),
			HyperPeriod:        planner.HyperPeriod(),
			AverageUtilization: planner.AverageUtilization(),
			Schedulable:        planner.Feasible(),
		},
	}

	for idx := 0; idx < g.NodeCount(); idx++ {
		node, err := g.Node(idx)
		if err != nil {
			return err
		}
		doc.Description.Nodes = append(doc.Description.Nodes, networkNodeSchema{
			Category:    node.Kind.String(),
			ID:          node.Index,
			Connections: g.Neighbors(idx),
		})
	}
	for idx := 0; idx < g.LinkCount(); idx++ {
		link, err := g.Link(idx)
		if err != nil {
			return err
		}
		if link.Removed {
			continue
		}
		category := "wired"
		if link.Kind == graph.LinkWireless {
			category = "wireless"
		}
		doc.Description.Links = append(doc.Description.Links, networkLinkSchema{
			Category:    category,
			ID:          link.Index,
			Speed:       link.SpeedMbps,
			Source:      link.Source,
			Destination: link.Dest,
		})
	}

	for _, f := range frames {
		entry := networkFrameSchema{
			ID:       f.Index,
			Period:   f.PeriodNS,
			Starting: f.StartingNS,
			Deadline: f.DeadlineNS,
			Size:     f.SizeBytes,
			EndToEnd: f.EndToEndNS,
		}
		for _, path := range f.Paths {
			entry.Paths = append(entry.Paths, joinInts(path))
		}
		for _, split := range routing.Splits(f) {
			entry.Splits = append(entry.Splits, strconv.Itoa(split))
		}
		doc.Traffic.Frames = append(doc.Traffic.Frames, entry)
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	return enc.Encode(doc)
}

// DecodeNetwork reads a Network XML artifact back into a graph, frame set,
// and the persisted network-wide hyper-period, reversing EncodeNetwork.
func DecodeNetwork(r io.Reader) (*graph.Graph, []*traffic.Frame, int64, error) {
	var doc networkDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, nil, 0, fmt.Errorf("%w: %v", ErrBadConfig, err)
	}

	g := graph.New()
	for _, n := range doc.Description.Nodes {
		kind, err := parseNodeCategory(n.Category)
		if err != nil {
			return nil, nil, 0, err
		}
		g.AddNode(kind)
	}
	for _, l := range doc.Description.Links {
		kind, err := parseLinkCategory(l.Category)
		if err != nil {
			return nil, nil, 0, err
		}
		if _, err := g.AddLink(l.Source, l.Destination, kind, l.Speed); err != nil {
			return nil, nil, 0, err
		}
	}

	var frames []*traffic.Frame
	for _, fr := range doc.Traffic.Frames {
		var receivers [][]int
		for _, p := range fr.Paths {
			path, err := parseInts(p)
			if err != nil {
				return nil, nil, 0, err
			}
			receivers = append(receivers, path)
		}
		var recvNodes []int
		for _, path := range receivers {
			if len(path) == 0 {
				recvNodes = append(recvNodes, -1)
				continue
			}
			last, err := g.Link(path[len(path)-1])
			if err != nil {
				return nil, nil, 0, err
			}
			recvNodes = append(recvNodes, last.Dest)
		}
		frame := traffic.NewFrame(fr.ID, 0, recvNodes)
		frame.PeriodNS = fr.Period
		frame.StartingNS = fr.Starting
		frame.DeadlineNS = fr.Deadline
		frame.SizeBytes = fr.Size
		frame.EndToEndNS = fr.EndToEnd
		frame.Paths = receivers
		if len(receivers) > 0 && len(receivers[0]) > 0 {
			first, err := g.Link(receivers[0][0])
			if err != nil {
				return nil, nil, 0, err
			}
			frame.Sender = first.Source
		}
		frames = append(frames, frame)
	}

	return g, frames, doc.General.HyperPeriod, nil
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ";")
}

func parseInts(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ";")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid link index %q", ErrBadConfig, p)
		}
		out = append(out, v)
	}
	return out, nil
}
