package topology

import "github.com/signalsfoundry/ttnet-toolchain/graph"

// ErrBadTopology is re-exported from graph so topology-construction callers
// can errors.Is against a single name regardless of which layer detected the
// problem.
var ErrBadTopology = graph.ErrBadTopology
