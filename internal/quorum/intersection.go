package quorum

import "github.com/bosagora-go/agora-node/pkg/types"

// IntersectionCheckLimit is the largest validator population the
// brute-force intersection checker will examine; above this, the
// 2^N subset enumeration is too costly and the caller should skip it.
const IntersectionCheckLimit = 8

// CheckIntersection reports whether the network described by slices
// enjoys quorum intersection: no two disjoint sets of nodes each
// contain a quorum. For populations above IntersectionCheckLimit it
// returns true without checking, mirroring the Stellar SCP
// implementation's exponential-cost opt-out.
func CheckIntersection(slices map[types.PublicKey]Slice) bool {
	nodes := make([]types.PublicKey, 0, len(slices))
	for k := range slices {
		nodes = append(nodes, k)
	}
	if len(nodes) > IntersectionCheckLimit {
		return true
	}

	n := len(nodes)
	// Enumerate every bipartition of nodes into (U, complement). Subset
	// 0 and the all-ones subset are both degenerate (one side empty),
	// so only interior masks matter.
	for mask := uint(1); mask < uint(1)<<n-1; mask++ {
		var u, v []types.PublicKey
		for i, node := range nodes {
			if mask&(1<<uint(i)) != 0 {
				u = append(u, node)
			} else {
				v = append(v, node)
			}
		}
		if containsQuorum(u, slices) && containsQuorum(v, slices) {
			return false
		}
	}
	return true
}

// containsQuorum reports whether nodes contains a quorum: a non-empty
// subset Q where every member of Q has at least its slice's threshold
// of members also in Q. Computed by repeatedly discarding members that
// fail this locally, until a fixed point.
func containsQuorum(nodes []types.PublicKey, slices map[types.PublicKey]Slice) bool {
	set := make(map[types.PublicKey]bool, len(nodes))
	for _, n := range nodes {
		set[n] = true
	}

	for {
		changed := false
		for n := range set {
			slice, ok := slices[n]
			if !ok {
				delete(set, n)
				changed = true
				continue
			}
			count := 0
			for _, m := range slice.Members {
				if set[m] {
					count++
				}
			}
			if count < slice.Threshold {
				delete(set, n)
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return len(set) > 0
}
