package quorum

import (
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/bosagora-go/agora-node/pkg/crypto"
	"github.com/bosagora-go/agora-node/pkg/types"
	"github.com/zeebo/blake3"
)

// BuildSlices computes a QuorumSlice for every validator in validators,
// stake-weighted and seeded by randSeed so independent nodes running
// the same inputs converge on identical slices (§4.8).
func BuildSlices(validators []Validator, randSeed types.Hash) (map[types.PublicKey]Slice, error) {
	if len(validators) == 0 {
		return nil, fmt.Errorf("quorum: no validators to build slices for")
	}

	var totalStake uint64
	for _, v := range validators {
		totalStake += uint64(v.Stake)
	}
	minQuorumAmount := uint64(0.67 * float64(totalStake))

	sorted := make([]Validator, len(validators))
	copy(sorted, validators)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Stake > sorted[j].Stake })

	slices := make(map[types.PublicKey]Slice, len(sorted))
	for _, node := range sorted {
		slices[node.PublicKey] = buildSliceFor(node, sorted, minQuorumAmount, randSeed)
	}

	assignLeftoverNodes(slices, sorted, randSeed)

	return slices, nil
}

// buildSliceFor draws node's quorum slice: the node itself plus a
// stake-weighted, seed-deterministic selection of peers, continuing
// until the accumulated stake clears minQuorumAmount or the slice hits
// MaxNodesInQuorum, but never stopping before MinNodesInQuorum (capped
// to the total validator count).
func buildSliceFor(node Validator, all []Validator, minQuorumAmount uint64, randSeed types.Hash) Slice {
	minSize := MinNodesInQuorum
	if len(all) < minSize {
		minSize = len(all)
	}

	candidates := make([]Validator, 0, len(all)-1)
	for _, v := range all {
		if v.PublicKey == node.PublicKey {
			continue
		}
		candidates = append(candidates, v)
	}
	// Fixed base ordering before weighted draws, so the PRNG's output
	// stream maps to the same candidate at the same draw on every node.
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].PublicKey.Less(candidates[j].PublicKey) })

	weights := make([]uint64, len(candidates))
	for i, c := range candidates {
		weights[i] = uint64(c.Stake)
	}

	members := []types.PublicKey{node.PublicKey}
	sumStake := uint64(node.Stake)

	rng := newNodePRNG(node.PublicKey, randSeed)
	for len(candidates) > 0 {
		haveMin := len(members) >= minSize
		haveStake := sumStake >= minQuorumAmount
		atMax := len(members) >= MaxNodesInQuorum
		if atMax || (haveMin && haveStake) {
			break
		}

		idx := rng.weightedIndex(weights)
		chosen := candidates[idx]
		members = append(members, chosen.PublicKey)
		sumStake += uint64(chosen.Stake)

		candidates = append(candidates[:idx], candidates[idx+1:]...)
		weights = append(weights[:idx], weights[idx+1:]...)
	}

	sortedMembers := crypto.SortPublicKeys(members)
	return Slice{Threshold: thresholdFor(len(sortedMembers)), Members: sortedMembers}
}

// assignLeftoverNodes folds in any validator the stake-weighted draw
// never selected into another slice — every enrolled validator must
// appear in at least one slice for the network to reason about it.
// Each leftover is assigned to a seed-deterministic target slice; the
// check below that decides "already covered" must treat inclusion as
// a reason to skip, not a reason to assign again.
func assignLeftoverNodes(slices map[types.PublicKey]Slice, all []Validator, randSeed types.Hash) {
	included := make(map[types.PublicKey]bool, len(all))
	for _, s := range slices {
		for _, m := range s.Members {
			included[m] = true
		}
	}

	for _, v := range all {
		if included[v.PublicKey] {
			continue
		}

		rng := newNodePRNG(v.PublicKey, randSeed)
		target := all[rng.uint64()%uint64(len(all))]

		slice := slices[target.PublicKey]
		slice.Members = crypto.SortPublicKeys(append(slice.Members, v.PublicKey))
		slice.Threshold = thresholdFor(len(slice.Members))
		slices[target.PublicKey] = slice

		included[v.PublicKey] = true
	}
}

// nodePRNG is a deterministic keyed byte stream used as the
// stake-weighted sampler's randomness source: blake3's XOF mode seeded
// from hashMulti(node_key, rand_seed) stands in for the design's
// libsodium crypto_shorthash, since both just need a short deterministic
// key-derived stream and blake3 is already this module's hash primitive.
type nodePRNG struct {
	r io.Reader
}

func newNodePRNG(nodeKey types.PublicKey, seed types.Hash) *nodePRNG {
	challenge := crypto.HashMulti(nodeKey[:], seed[:])
	h := blake3.New()
	h.Write(challenge[:])
	return &nodePRNG{r: h.Digest()}
}

func (p *nodePRNG) uint64() uint64 {
	var buf [8]byte
	if _, err := io.ReadFull(p.r, buf[:]); err != nil {
		panic("quorum: prng stream read failed: " + err.Error())
	}
	return binary.LittleEndian.Uint64(buf[:])
}

// weightedIndex draws an index into weights proportional to its
// value. Assumes len(weights) > 0.
func (p *nodePRNG) weightedIndex(weights []uint64) int {
	var total uint64
	for _, w := range weights {
		total += w
	}
	if total == 0 {
		return int(p.uint64() % uint64(len(weights)))
	}

	r := p.uint64() % total
	var cum uint64
	for i, w := range weights {
		cum += w
		if r < cum {
			return i
		}
	}
	return len(weights) - 1
}
