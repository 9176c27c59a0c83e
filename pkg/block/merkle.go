package block

import (
	"github.com/bosagora-go/agora-node/pkg/crypto"
	"github.com/bosagora-go/agora-node/pkg/types"
)

// ComputeMerkleRoot calculates the merkle root of transaction hashes.
//
// Algorithm:
//   - 0 hashes: returns zero hash
//   - 1 hash: returns that hash
//   - Otherwise: pairwise hash, duplicating the last element if odd count,
//     then recurse on the resulting layer until one hash remains.
func ComputeMerkleRoot(txHashes []types.Hash) types.Hash {
	if len(txHashes) == 0 {
		return types.Hash{}
	}
	if len(txHashes) == 1 {
		return txHashes[0]
	}

	// Work on a copy so we don't mutate the caller's slice.
	level := make([]types.Hash, len(txHashes))
	copy(level, txHashes)

	for len(level) > 1 {
		// If odd, duplicate the last element.
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}

		next := make([]types.Hash, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next[i/2] = crypto.HashConcat(level[i], level[i+1])
		}
		level = next
	}

	return level[0]
}

// MerklePath returns the sibling hashes needed to recompute the merkle
// root from txHashes[index], in bottom-up order, along with a bitmask
// of which side each sibling falls on (bit set = sibling is on the
// right). Returns false if index is out of range.
func MerklePath(txHashes []types.Hash, index int) ([]types.Hash, []bool, bool) {
	if index < 0 || index >= len(txHashes) {
		return nil, nil, false
	}
	if len(txHashes) == 1 {
		return nil, nil, true
	}

	level := make([]types.Hash, len(txHashes))
	copy(level, txHashes)

	var path []types.Hash
	var isRight []bool
	idx := index

	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}

		if idx%2 == 0 {
			path = append(path, level[idx+1])
			isRight = append(isRight, true)
		} else {
			path = append(path, level[idx-1])
			isRight = append(isRight, false)
		}

		next := make([]types.Hash, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next[i/2] = crypto.HashConcat(level[i], level[i+1])
		}
		level = next
		idx /= 2
	}

	return path, isRight, true
}

// VerifyMerklePath recomputes the merkle root from leaf using path and
// isRight (as returned by MerklePath) and reports whether it matches root.
func VerifyMerklePath(leaf types.Hash, path []types.Hash, isRight []bool, root types.Hash) bool {
	cur := leaf
	for i, sibling := range path {
		if isRight[i] {
			cur = crypto.HashConcat(cur, sibling)
		} else {
			cur = crypto.HashConcat(sibling, cur)
		}
	}
	return cur == root
}
