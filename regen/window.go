package regen

// linkWindow is one (member-local link, earliest start, latest end)
// constraint derived from a membership entry.
type linkWindow struct {
	link  int
	start int64
	end   int64
}

// entryLinkWindows expands one membership entry into its per-link window
// constraints. Non-affected frames carry the same membership window on
// every link of their restricted path. Affected frames divide the
// membership window evenly across the L hops of their new path, per
// position p: window_start = window_start_member + floor(p/L*slack),
// window_end = window_end_member - floor((L-1-p)/L*slack), where slack is
// further capped at the frame's remaining end-to-end budget.
func entryLinkWindows(e *memberFrameEntry) []linkWindow {
	if !e.affected {
		out := make([]linkWindow, len(e.path))
		for i, l := range e.path {
			out[i] = linkWindow{link: l, start: e.windowStartNS, end: e.windowEndNS}
		}
		return out
	}

	L := int64(len(e.path))
	if L == 0 {
		return nil
	}
	slack := e.windowEndNS - e.windowStartNS
	if e.endToEndNS > 0 {
		if budget := e.endToEndNS - e.consumedBeforeMemberNS; budget < slack {
			slack = budget
		}
	}
	if slack < 0 {
		slack = 0
	}

	out := make([]linkWindow, len(e.path))
	for p, l := range e.path {
		pp := int64(p)
		out[p] = linkWindow{
			link:  l,
			start: e.windowStartNS + (pp*slack)/L,
			end:   e.windowEndNS - ((L-1-pp)*slack)/L,
		}
	}
	return out
}
