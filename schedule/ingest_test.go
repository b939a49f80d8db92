package schedule

import (
	"errors"
	"strings"
	"testing"

	"github.com/signalsfoundry/ttnet-toolchain/graph"
	"github.com/signalsfoundry/ttnet-toolchain/traffic"
)

func buildChain(t *testing.T) (*graph.Graph, *traffic.Frame) {
	t.Helper()
	g := graph.New()
	a := g.AddNode(graph.KindEndSystem)
	b := g.AddNode(graph.KindEndSystem)
	if _, err := g.AddLink(a, b, graph.LinkWired, 100); err != nil {
		t.Fatalf("AddLink: %v", err)
	}
	frame := traffic.NewFrame(0, a, []int{b})
	frame.SizeBytes = 100
	frame.Paths[0] = []int{0}
	return g, frame
}

func TestIngestPopulatesOffsets(t *testing.T) {
	g, frame := buildChain(t)
	doc := `<FramesTransmission>
  <Frame>
    <Period>1000000</Period><Starting>0</Starting><Deadline>1000000</Deadline><Size>100</Size><EndToEnd>1000000</EndToEnd>
    <Path><Link><LinkID>0</LinkID><Instance><TransmissionTime>0</TransmissionTime><EndingTime>8000</EndingTime></Instance></Link></Path>
  </Frame>
</FramesTransmission>`
	result, err := Ingest(strings.NewReader(doc), g, []*traffic.Frame{frame})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	off := result.Frames[0].Offsets[0]
	if off == nil || len(off.Starting) != 1 || off.Ending[0] != 8000 {
		t.Fatalf("unexpected offset: %+v", off)
	}
}

func TestIngestRejectsWrongDuration(t *testing.T) {
	g, frame := buildChain(t)
	doc := `<FramesTransmission>
  <Frame>
    <Period>1000000</Period><Starting>0</Starting><Deadline>1000000</Deadline><Size>100</Size><EndToEnd>1000000</EndToEnd>
    <Path><Link><LinkID>0</LinkID><Instance><TransmissionTime>0</TransmissionTime><EndingTime>1</EndingTime></Instance></Link></Path>
  </Frame>
</FramesTransmission>`
	if _, err := Ingest(strings.NewReader(doc), g, []*traffic.Frame{frame}); !errors.Is(err, ErrBadSchedule) {
		t.Fatalf("expected ErrBadSchedule, got %v", err)
	}
}

func TestIngestRejectsMissingOffsetForPathLink(t *testing.T) {
	g, frame := buildChain(t)
	doc := `<FramesTransmission><Frame><Period>1</Period><Starting>0</Starting><Deadline>1</Deadline><Size>100</Size><EndToEnd>1</EndToEnd></Frame></FramesTransmission>`
	if _, err := Ingest(strings.NewReader(doc), g, []*traffic.Frame{frame}); !errors.Is(err, ErrBadSchedule) {
		t.Fatalf("expected ErrBadSchedule for missing offset, got %v", err)
	}
}

func TestIngestRejectsFrameCountMismatch(t *testing.T) {
	g, frame := buildChain(t)
	doc := `<FramesTransmission></FramesTransmission>`
	if _, err := Ingest(strings.NewReader(doc), g, []*traffic.Frame{frame}); !errors.Is(err, ErrBadSchedule) {
		t.Fatalf("expected ErrBadSchedule for frame count mismatch, got %v", err)
	}
}
