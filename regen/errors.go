// Package regen implements the self-regenerating evaluator: on a single
// link failure it identifies affected frames, builds a membership
// subnetwork of candidate recovery paths, shards it by source node, and
// hands each shard to an external solver, degrading temporal slack
// parameters and retrying on solver miss.
package regen

import (
	"errors"

	"github.com/signalsfoundry/ttnet-toolchain/routing"
)

// ErrUnrecoverable is returned when a regeneration cannot succeed even
// after exhausting degradation: no candidate recovery paths exist, or
// every per-node subnetwork solver retry has been exhausted.
var ErrUnrecoverable = errors.New("unrecoverable")

// ErrInfeasible re-exports routing.ErrInfeasible for convenience when a
// degraded reroute still cannot fit within the hyper-period.
var ErrInfeasible = routing.ErrInfeasible
