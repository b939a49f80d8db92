// Package traffic models periodic frame traffic: the Frame aggregate, its
// optional per-link schedule offsets, and the generator/attribute-assigner
// that populates a frame set from class weights before routing.
package traffic

import "fmt"

// Offset holds the per-instance scheduled (starting, ending) pair for one
// frame on one link, as ingested from an external solver's schedule output.
type Offset struct {
	LinkIndex int
	Starting  []int64
	Ending    []int64
}

// NumInstances returns the number of scheduled instances recorded in the
// offset.
func (o *Offset) NumInstances() int {
	if o == nil {
		return 0
	}
	return len(o.Starting)
}

// Frame is a periodic traffic entity. NewFrame allocates Offsets empty; it
// stays empty until a schedule has been ingested for this frame. FrameOffset
// is represented by composition, not a distinct type.
type Frame struct {
	Index       int
	Sender      int
	Receivers   []int
	PeriodNS    int64
	DeadlineNS  int64
	SizeBytes   int
	StartingNS  int64
	EndToEndNS  int64
	Paths       [][]int // one ordered link-index list per receiver, parallel to Receivers
	Offsets     map[int]*Offset
}

// NewFrame constructs a Frame with its per-instance containers allocated at
// construction time rather than left as nil-by-default class attributes.
func NewFrame(index, sender int, receivers []int) *Frame {
	paths := make([][]int, len(receivers))
	return &Frame{
		Index:     index,
		Sender:    sender,
		Receivers: append([]int(nil), receivers...),
		Paths:     paths,
		Offsets:   make(map[int]*Offset),
	}
}

// Instances returns the number of instances of this frame within the given
// hyper-period.
func (f *Frame) Instances(hyperPeriodNS int64) int64 {
	if f.PeriodNS <= 0 {
		return 0
	}
	return hyperPeriodNS / f.PeriodNS
}

// PathFor returns the stored path to receiver, if receiver is one of this
// frame's receivers.
func (f *Frame) PathFor(receiver int) ([]int, error) {
	for i, r := range f.Receivers {
		if r == receiver {
			return f.Paths[i], nil
		}
	}
	return nil, fmt.Errorf("frame %d has no receiver %d", f.Index, receiver)
}

// PredecessorEndingTime returns the scheduled ending time, for the given
// instance, on the link immediately preceding path[pos] on path. It returns
// false when pos is the first link in path (no predecessor).
func (f *Frame) PredecessorEndingTime(path []int, pos, instance int) (int64, bool) {
	if pos <= 0 || pos >= len(path) {
		return 0, false
	}
	off := f.Offsets[path[pos-1]]
	if off == nil || instance >= len(off.Ending) {
		return 0, false
	}
	return off.Ending[instance], true
}

// SuccessorStartingTime returns the scheduled starting time, for the given
// instance, on the link immediately following path[pos] on path. It returns
// false when pos is the last link in path (no successor).
func (f *Frame) SuccessorStartingTime(path []int, pos, instance int) (int64, bool) {
	if pos < 0 || pos >= len(path)-1 {
		return 0, false
	}
	off := f.Offsets[path[pos+1]]
	if off == nil || instance >= len(off.Starting) {
		return 0, false
	}
	return off.Starting[instance], true
}

// TransmissionDurationNS returns the minimum transmission duration in
// nanoseconds for sizeBytes on a link of speedMbps, rounded up, matching the
// Offset invariant ending[k] - starting[k] == size_bytes*8000/speed_mbps.
func TransmissionDurationNS(sizeBytes, speedMbps int) int64 {
	if speedMbps <= 0 {
		return 0
	}
	numerator := int64(sizeBytes) * 8000
	denominator := int64(speedMbps)
	return (numerator + denominator - 1) / denominator
}
