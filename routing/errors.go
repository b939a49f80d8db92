package routing

import (
	"errors"

	"github.com/signalsfoundry/ttnet-toolchain/graph"
)

// ErrInfeasible is a status flag, not a fatal error: callers may check it
// with errors.Is after inspecting Planner.Feasible(), but Route itself never
// returns it as a failure — infeasibility is reported, not fatal to artifact
// emission, per the routing component's design.
var ErrInfeasible = errors.New("infeasible")

// ErrNoPath is returned when no simple path exists between a frame's sender
// and one of its receivers once intermediate-switch filtering is applied. It
// is a distinct sentinel and does not wrap graph.ErrBadTopology.
var ErrNoPath = errors.New("no route satisfies the switch-only intermediate-node constraint")

// ErrBadTopology is re-exported so routing callers have one name to check.
var ErrBadTopology = graph.ErrBadTopology
