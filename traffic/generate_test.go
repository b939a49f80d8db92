package traffic

import (
	"math/rand/v2"
	"testing"

	"github.com/signalsfoundry/ttnet-toolchain/graph"
)

func starGraph(t *testing.T, leaves int) (*graph.Graph, int, []int) {
	t.Helper()
	g := graph.New()
	center := g.AddNode(graph.KindSwitch)
	var ends []int
	for i := 0; i < leaves; i++ {
		es := g.AddNode(graph.KindEndSystem)
		if _, err := g.AddLink(center, es, graph.LinkWired, 100); err != nil {
			t.Fatalf("AddLink: %v", err)
		}
		ends = append(ends, es)
	}
	return g, center, ends
}

func TestGenerateBroadcastIncludesEveryOtherEndSystem(t *testing.T) {
	g, _, ends := starGraph(t, 4)
	cfg := GeneratorConfig{
		Count:        20,
		ClassWeights: ClassWeights{Broadcast: 1},
		AttributeClasses: []AttributeClass{
			{PeriodNS: 1_000_000, SizeBytes: 100, EndToEndNS: 1_000_000, Weight: 1},
		},
	}
	rng := rand.New(rand.NewPCG(1, 2))
	frames, err := Generate(g, ends, cfg, rng)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, f := range frames {
		if len(f.Receivers) != len(ends)-1 {
			t.Fatalf("broadcast frame has %d receivers, want %d", len(f.Receivers), len(ends)-1)
		}
		for _, r := range f.Receivers {
			if r == f.Sender {
				t.Fatalf("broadcast frame receivers include sender")
			}
		}
	}
}

func TestGenerateSingleHasExactlyOneReceiver(t *testing.T) {
	g, _, ends := starGraph(t, 4)
	cfg := GeneratorConfig{
		Count:        20,
		ClassWeights: ClassWeights{Single: 1},
		AttributeClasses: []AttributeClass{
			{PeriodNS: 1_000_000, SizeBytes: 100, EndToEndNS: 1_000_000, Weight: 1},
		},
	}
	rng := rand.New(rand.NewPCG(3, 4))
	frames, err := Generate(g, ends, cfg, rng)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, f := range frames {
		if len(f.Receivers) != 1 {
			t.Fatalf("single frame has %d receivers, want 1", len(f.Receivers))
		}
	}
}

func TestGenerateDeadlineDefaultsToPeriod(t *testing.T) {
	g, _, ends := starGraph(t, 3)
	cfg := GeneratorConfig{
		Count:        5,
		ClassWeights: ClassWeights{Single: 1},
		AttributeClasses: []AttributeClass{
			{PeriodNS: 2_000_000, DeadlineNS: 0, SizeBytes: 64, EndToEndNS: 2_000_000, Weight: 1},
		},
	}
	rng := rand.New(rand.NewPCG(5, 6))
	frames, err := Generate(g, ends, cfg, rng)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, f := range frames {
		if f.DeadlineNS != f.PeriodNS {
			t.Fatalf("deadline = %d, want equal to period %d", f.DeadlineNS, f.PeriodNS)
		}
	}
}

func TestGenerateLocalIncludesAllTiedMinimumDistance(t *testing.T) {
	// Two switches in series: ES0 hangs off S0, while ES1 and ES2 both hang
	// off S1, so ES1 and ES2 are each three hops from ES0 and tie at the
	// minimum distance.
	g := graph.New()
	s0 := g.AddNode(graph.KindSwitch)
	s1 := g.AddNode(graph.KindSwitch)
	es0 := g.AddNode(graph.KindEndSystem)
	es1 := g.AddNode(graph.KindEndSystem)
	es2 := g.AddNode(graph.KindEndSystem)
	mustLink(t, g, s0, s1)
	mustLink(t, g, s0, es0)
	mustLink(t, g, s1, es1)
	mustLink(t, g, s1, es2)

	ends := []int{es0, es1, es2}
	cfg := GeneratorConfig{
		Count:        1,
		ClassWeights: ClassWeights{Local: 1},
		AttributeClasses: []AttributeClass{
			{PeriodNS: 1_000_000, SizeBytes: 64, EndToEndNS: 1_000_000, Weight: 1},
		},
	}
	rng := rand.New(rand.NewPCG(7, 8))
	// Generate draws the sender uniformly itself, so exercise localReceivers
	// directly with es0 as the sender for determinism.
	receivers, err := localReceivers(g, []int{es1, es2}, es0)
	if err != nil {
		t.Fatalf("localReceivers: %v", err)
	}
	if len(receivers) != 2 {
		t.Fatalf("expected both tied end systems, got %v", receivers)
	}
	_, _ = Generate(g, ends, cfg, rng)
}

func mustLink(t *testing.T, g *graph.Graph, a, b int) {
	t.Helper()
	if _, err := g.AddLink(a, b, graph.LinkWired, 100); err != nil {
		t.Fatalf("AddLink: %v", err)
	}
}

func TestTransmissionDurationRoundsUp(t *testing.T) {
	// 100 bytes at 100 Mbps: 100*8000/100 = 8000ns exactly.
	if got := TransmissionDurationNS(100, 100); got != 8000 {
		t.Fatalf("TransmissionDurationNS = %d, want 8000", got)
	}
	// 1 byte at 3 Mbps: 8000/3 = 2666.67 -> rounds up to 2667.
	if got := TransmissionDurationNS(1, 3); got != 2667 {
		t.Fatalf("TransmissionDurationNS = %d, want 2667", got)
	}
}
