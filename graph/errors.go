package graph

import "errors"

// ErrBadTopology is the sentinel wrapped by every structural error the graph
// package returns: out-of-range indices, invalid node-kind mutations, removed
// links referenced by index, and similar invariant violations.
var ErrBadTopology = errors.New("bad topology")
