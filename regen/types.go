package regen

import "github.com/signalsfoundry/ttnet-toolchain/traffic"

// Warning is a non-fatal anomaly surfaced during a regeneration, such as a
// frame whose restricted member path yielded more than one disjoint
// segment (see DESIGN.md open question 1).
type Warning struct {
	Kind        string
	FrameIndex  int
	ReceiverIdx int
	Detail      string
}

// Result is the outcome of one ActivateProtocol invocation.
type Result struct {
	FailedLink        int
	State             string
	AffectedFrames    []int
	MembershipPath    string
	NodeNetworkPaths  []string
	NodeSchedulePaths []string
	Subnetworks       []*SubnetworkResult
	Warnings          []Warning
	Unrecoverable     bool
}

// SubnetworkResult records the outcome of solving one per-source-node
// subnetwork, including the final (possibly degraded) parameter values
// that produced a successful solver run.
type SubnetworkResult struct {
	Index                    int
	SourceNode                int
	TimeBetweenFramesNS       int64
	MinimumSwitchResidencyNS  int64
	DegradationSteps          int
	NetworkPath               string
	SchedulePath              string
}

// memberFrameEntry is one (frame, restricted-path) record placed into the
// membership subnetwork, either a pre-existing frame whose path intersects
// the candidate recovery region, or a newly affected frame being rerouted.
type memberFrameEntry struct {
	frame       *traffic.Frame
	receiverIdx int
	affected    bool

	senderMember   int
	receiverMember int
	path           []int // member-local link indices

	windowStartNS int64
	windowEndNS   int64
	// consumedBeforeMemberNS is the time already spent on the frame's
	// original path before it enters the member region; used to cap an
	// affected frame's slack at its remaining end-to-end budget.
	consumedBeforeMemberNS int64

	periodNS   int64
	sizeBytes  int
	endToEndNS int64

	syntheticFrame *traffic.Frame // set only for affected entries, post-routing
}
