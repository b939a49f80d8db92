package routing

import "github.com/signalsfoundry/ttnet-toolchain/traffic"

// Splits returns the link indices at which frame's per-receiver paths
// diverge from a shared prefix, recursively: a broadcast or multiple-class
// frame whose receivers fan out from a common trunk reports one entry per
// link leaving each branch point (so a branch point with four outgoing
// branches contributes four entries), including branch points nested
// further down an already-diverged branch.
func Splits(frame *traffic.Frame) []int {
	if len(frame.Paths) < 2 {
		return nil
	}
	return splitsRec(frame.Paths, 0)
}

func splitsRec(group [][]int, pos int) []int {
	if len(group) <= 1 {
		return nil
	}

	allSame := true
	shared := -1
	for _, path := range group {
		if pos >= len(path) {
			allSame = false
			break
		}
		if shared == -1 {
			shared = path[pos]
		} else if path[pos] != shared {
			allSame = false
			break
		}
	}
	if allSame && shared != -1 {
		return splitsRec(group, pos+1)
	}

	buckets := make(map[int][][]int)
	var order []int
	for _, path := range group {
		if pos >= len(path) {
			continue
		}
		link := path[pos]
		if _, ok := buckets[link]; !ok {
			order = append(order, link)
		}
		buckets[link] = append(buckets[link], path)
	}

	var result []int
	for _, link := range order {
		result = append(result, link)
		result = append(result, splitsRec(buckets[link], pos+1)...)
	}
	return result
}
