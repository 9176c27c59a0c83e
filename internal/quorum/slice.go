// Package quorum builds the per-validator quorum slices an FBA
// network needs for Byzantine agreement: a stake-weighted, seed-driven
// assignment that gives every node a trusted set of peers, chosen so
// the network as a whole enjoys quorum intersection.
package quorum

import (
	"errors"
	"fmt"
	"math"

	"github.com/bosagora-go/agora-node/pkg/types"
)

// MinNodesInQuorum and MaxNodesInQuorum bound the size of every slice
// the builder produces, regardless of how the stake-weighted draw
// would otherwise terminate.
const (
	MinNodesInQuorum = 3
	MaxNodesInQuorum = 7
)

// Validator is one enrolled node's identity and stake, as the builder
// needs it — callers resolve this from the enrollment manager's
// active set and the UTXO amounts backing each enrollment.
type Validator struct {
	PublicKey types.PublicKey
	Stake     types.Amount
}

// Slice is one validator's trust set: threshold of members must agree
// for that validator to consider a statement ratified.
type Slice struct {
	Threshold int
	Members   []types.PublicKey // Sorted ascending, always includes the owning validator.
}

// SanityCheck reports the first rule s violates, or nil if admissible:
// non-empty, threshold within [1, len(members)], and no duplicate
// member.
func SanityCheck(s Slice) error {
	if len(s.Members) == 0 {
		return errors.New("quorum slice: empty members")
	}
	if s.Threshold < 1 || s.Threshold > len(s.Members) {
		return fmt.Errorf("quorum slice: threshold %d out of range [1,%d]", s.Threshold, len(s.Members))
	}
	seen := make(map[types.PublicKey]bool, len(s.Members))
	for _, m := range s.Members {
		if seen[m] {
			return fmt.Errorf("quorum slice: duplicate member %s", m)
		}
		seen[m] = true
	}
	return nil
}

// Normalize flattens trivially nested single-member sub-quorums. This
// builder's Slice is already a flat (threshold, members) pair with no
// nested inner-set structure, so there is nothing to flatten — kept
// as an explicit no-op so callers that expect a normalization pass
// (mirroring the design's two-stage sanity check) have one to call.
func Normalize(s Slice) Slice {
	return s
}

func thresholdFor(memberCount int) int {
	t := int(math.Ceil(0.67 * float64(memberCount)))
	if t < 1 {
		t = 1
	}
	return t
}
