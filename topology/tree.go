package topology

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/signalsfoundry/ttnet-toolchain/graph"
)

// BuildTree constructs a graph from a depth-first tree description: a
// semicolon-separated sequence of signed integers, interpreted depth-first
// starting at root switch 0, paired with a parallel semicolon-separated
// sequence of link descriptors of the form "(w|x)<speed>" decorating each
// edge in creation order.
//
// Positive n at the current node means: create n child switches and recurse
// into each in order. Negative n means: attach |n| end systems as children,
// with no recursion. Zero means the current node has no children and is
// itself an end system, so it is demoted from switch.
func BuildTree(description, links string) (*graph.Graph, error) {
	tokens, err := parseIntTokens(description)
	if err != nil {
		return nil, err
	}
	linkDescs, err := parseLinkTokens(links)
	if err != nil {
		return nil, err
	}
	return BuildTreeFromSpec(tokens, linkDescs)
}

// LinkSpec is a parsed link descriptor: a link kind and speed, independent
// of whichever wire format (compact string or XML element) produced it.
type LinkSpec = linkDesc

// BuildTreeFromSpec builds the same depth-first tree topology as BuildTree,
// but from already-parsed node tokens and link specs rather than the
// semicolon-separated text form — the entry point used when the tree
// description arrives as structured Bifurcation/Link XML elements instead
// of compact strings.
func BuildTreeFromSpec(tokens []int, links []LinkSpec) (*graph.Graph, error) {
	g := graph.New()
	root := g.AddNode(graph.KindSwitch)

	b := &treeBuilder{g: g, tokens: tokens, links: links}
	if err := b.visit(root); err != nil {
		return nil, err
	}
	if b.tokenPos != len(b.tokens) {
		return nil, fmt.Errorf("%w: %d orphan node token(s) after tree description", ErrBadTopology, len(b.tokens)-b.tokenPos)
	}
	if b.linkPos != len(b.links) {
		return nil, fmt.Errorf("%w: %d unused link descriptor(s)", ErrBadTopology, len(b.links)-b.linkPos)
	}
	return g, nil
}

type treeBuilder struct {
	g        *graph.Graph
	tokens   []int
	links    []linkDesc
	tokenPos int
	linkPos  int
}

func (b *treeBuilder) visit(node int) error {
	if b.tokenPos >= len(b.tokens) {
		return fmt.Errorf("%w: tree description ends before node %d was described", ErrBadTopology, node)
	}
	token := b.tokens[b.tokenPos]
	b.tokenPos++

	switch {
	case token > 0:
		for i := 0; i < token; i++ {
			child := b.g.AddNode(graph.KindSwitch)
			if err := b.addLink(node, child); err != nil {
				return err
			}
			if err := b.visit(child); err != nil {
				return err
			}
		}
	case token < 0:
		for i := 0; i < -token; i++ {
			child := b.g.AddNode(graph.KindEndSystem)
			if err := b.addLink(node, child); err != nil {
				return err
			}
		}
	default: // token == 0
		if err := b.g.DemoteToEndSystem(node); err != nil {
			return err
		}
	}
	return nil
}

func (b *treeBuilder) addLink(parent, child int) error {
	if b.linkPos >= len(b.links) {
		return fmt.Errorf("%w: ran out of link descriptors before edge (%d,%d)", ErrBadTopology, parent, child)
	}
	desc := b.links[b.linkPos]
	b.linkPos++
	if _, err := b.g.AddLink(parent, child, desc.kind, desc.speedMbps); err != nil {
		return err
	}
	return nil
}

type linkDesc struct {
	kind      graph.LinkKind
	speedMbps int
}

// NewLinkSpec constructs a LinkSpec from an already-known kind and speed,
// for callers (such as xmlio) building tree input from structured data
// rather than compact descriptor strings.
func NewLinkSpec(kind graph.LinkKind, speedMbps int) LinkSpec {
	return linkDesc{kind: kind, speedMbps: speedMbps}
}

// Kind returns the link kind carried by the spec.
func (d linkDesc) Kind() graph.LinkKind { return d.kind }

// Speed returns the link speed (MB/s, post unit-normalization) carried by
// the spec.
func (d linkDesc) Speed() int { return d.speedMbps }

func parseIntTokens(description string) ([]int, error) {
	raw := splitNonEmpty(description)
	tokens := make([]int, len(raw))
	for i, tok := range raw {
		n, err := strconv.Atoi(strings.TrimSpace(tok))
		if err != nil {
			return nil, fmt.Errorf("%w: node token %q is not an integer", ErrBadTopology, tok)
		}
		tokens[i] = n
	}
	return tokens, nil
}

func parseLinkTokens(links string) ([]linkDesc, error) {
	raw := splitNonEmpty(links)
	descs := make([]linkDesc, len(raw))
	for i, tok := range raw {
		d, err := parseLinkDesc(tok)
		if err != nil {
			return nil, err
		}
		descs[i] = d
	}
	return descs, nil
}

func parseLinkDesc(tok string) (linkDesc, error) {
	tok = strings.TrimSpace(tok)
	if len(tok) < 2 {
		return linkDesc{}, fmt.Errorf("%w: malformed link descriptor %q", ErrBadTopology, tok)
	}
	var kind graph.LinkKind
	switch tok[0] {
	case 'w':
		kind = graph.LinkWired
	case 'x':
		kind = graph.LinkWireless
	default:
		return linkDesc{}, fmt.Errorf("%w: unknown link kind %q", ErrBadTopology, string(tok[0]))
	}
	speed, err := strconv.Atoi(tok[1:])
	if err != nil || speed <= 0 {
		return linkDesc{}, fmt.Errorf("%w: invalid link speed in %q", ErrBadTopology, tok)
	}
	return linkDesc{kind: kind, speedMbps: speed}, nil
}

func splitNonEmpty(s string) []string {
	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
