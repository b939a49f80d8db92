// Package xmlio implements the three wire schemas exchanged with the
// external tooling: Configuration XML (generator input), Network XML
// (generator output / evaluator input), and Schedule XML (external solver
// output / evaluator input). All three are decoded and encoded with the
// standard library's encoding/xml — see DESIGN.md for why no third-party XML
// library from the examples corpus applies here.
package xmlio

import "errors"

// ErrBadConfig is returned when a configuration document is absent,
// malformed, or names an unrecognized unit.
var ErrBadConfig = errors.New("bad config")
