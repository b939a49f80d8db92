package traffic

import (
	"fmt"
	"math/rand/v2"

	"github.com/signalsfoundry/ttnet-toolchain/graph"
)

// Class identifies one of the four receiver-selection policies a generated
// frame may draw.
type Class int

const (
	ClassBroadcast Class = iota
	ClassSingle
	ClassMultiple
	ClassLocal
)

// ClassWeights are the four raw (not necessarily normalized) receiver-class
// weights from the traffic configuration.
type ClassWeights struct {
	Broadcast float64
	Single    float64
	Multiple  float64
	Local     float64
}

func (w ClassWeights) normalized() ([4]float64, error) {
	total := w.Broadcast + w.Single + w.Multiple + w.Local
	if total <= 0 {
		return [4]float64{}, fmt.Errorf("traffic class weights must sum to a positive value, got %v", w)
	}
	return [4]float64{w.Broadcast / total, w.Single / total, w.Multiple / total, w.Local / total}, nil
}

// AttributeClass is one frame-type row from the configuration: a
// (period, deadline, size, end-to-end, weight) tuple. DeadlineNS of zero
// means "deadline defaults to period" per the attribute-assignment rule.
type AttributeClass struct {
	PeriodNS   int64
	DeadlineNS int64
	SizeBytes  int
	EndToEndNS int64
	Weight     float64
}

// GeneratorConfig bundles the inputs to Generate: how many frames to
// produce, the receiver-class weights, and the attribute classes to draw
// (period, deadline, size, end-to-end) from.
type GeneratorConfig struct {
	Count            int
	ClassWeights     ClassWeights
	AttributeClasses []AttributeClass
}

// Generate produces Count frames over the given graph's end-system set,
// drawing a sender uniformly at random, a receiver class from the
// normalized class weights, and an attribute class from the normalized
// per-class weights, using rng as the sole source of randomness so the
// result is fully deterministic given a seeded generator.
func Generate(g *graph.Graph, endSystems []int, cfg GeneratorConfig, rng *rand.Rand) ([]*Frame, error) {
	if len(endSystems) < 2 {
		return nil, fmt.Errorf("at least two end systems are required to generate traffic, got %d", len(endSystems))
	}
	classProbs, err := cfg.ClassWeights.normalized()
	if err != nil {
		return nil, err
	}
	attrProbs, err := normalizeAttributeWeights(cfg.AttributeClasses)
	if err != nil {
		return nil, err
	}

	frames := make([]*Frame, 0, cfg.Count)
	for i := 0; i < cfg.Count; i++ {
		sender := endSystems[rng.IntN(len(endSystems))]
		receivers, err := pickReceivers(g, endSystems, sender, classProbs, rng)
		if err != nil {
			return nil, err
		}
		frame := NewFrame(i, sender, receivers)
		attr := cfg.AttributeClasses[pickWeightedIndex(attrProbs, rng)]
		frame.PeriodNS = attr.PeriodNS
		frame.DeadlineNS = attr.DeadlineNS
		if frame.DeadlineNS == 0 {
			frame.DeadlineNS = attr.PeriodNS
		}
		frame.SizeBytes = attr.SizeBytes
		frame.EndToEndNS = attr.EndToEndNS
		frames = append(frames, frame)
	}
	return frames, nil
}

func pickReceivers(g *graph.Graph, endSystems []int, sender int, classProbs [4]float64, rng *rand.Rand) ([]int, error) {
	others := make([]int, 0, len(endSystems)-1)
	for _, es := range endSystems {
		if es != sender {
			others = append(others, es)
		}
	}
	switch pickWeightedIndex(classProbs[:], rng) {
	case int(ClassBroadcast):
		return others, nil
	case int(ClassSingle):
		return []int{others[rng.IntN(len(others))]}, nil
	case int(ClassMultiple):
		n := 1 + rng.IntN(len(others))
		shuffled := append([]int(nil), others...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		return append([]int(nil), shuffled[:n]...), nil
	case int(ClassLocal):
		return localReceivers(g, others, sender)
	default:
		return nil, fmt.Errorf("unknown frame class")
	}
}

// localReceivers returns every end system in others whose hop distance from
// sender (over all graph edges, not just end systems) equals the minimum
// such distance among others; ties include all of them.
func localReceivers(g *graph.Graph, others []int, sender int) ([]int, error) {
	dist, err := hopDistances(g, sender)
	if err != nil {
		return nil, err
	}
	minDist := -1
	for _, es := range others {
		d, ok := dist[es]
		if !ok {
			continue
		}
		if minDist == -1 || d < minDist {
			minDist = d
		}
	}
	if minDist == -1 {
		return nil, fmt.Errorf("no end system reachable from sender %d", sender)
	}
	var out []int
	for _, es := range others {
		if dist[es] == minDist {
			out = append(out, es)
		}
	}
	return out, nil
}

func hopDistances(g *graph.Graph, source int) (map[int]int, error) {
	if _, err := g.Node(source); err != nil {
		return nil, err
	}
	dist := map[int]int{source: 0}
	queue := []int{source}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, linkIdx := range g.Neighbors(n) {
			next, err := g.OtherEndpoint(linkIdx, n)
			if err != nil {
				return nil, err
			}
			if _, visited := dist[next]; visited {
				continue
			}
			dist[next] = dist[n] + 1
			queue = append(queue, next)
		}
	}
	return dist, nil
}

func normalizeAttributeWeights(classes []AttributeClass) ([]float64, error) {
	if len(classes) == 0 {
		return nil, fmt.Errorf("at least one attribute class is required")
	}
	var total float64
	for _, c := range classes {
		total += c.Weight
	}
	if total <= 0 {
		return nil, fmt.Errorf("attribute class weights must sum to a positive value")
	}
	out := make([]float64, len(classes))
	for i, c := range classes {
		out[i] = c.Weight / total
	}
	return out, nil
}

// pickWeightedIndex draws one index from probs (assumed to sum to ~1) using
// rng, via cumulative-weight selection.
func pickWeightedIndex(probs []float64, rng *rand.Rand) int {
	r := rng.Float64()
	var cumulative float64
	for i, p := range probs {
		cumulative += p
		if r < cumulative {
			return i
		}
	}
	return len(probs) - 1
}
