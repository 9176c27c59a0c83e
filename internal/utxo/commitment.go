package utxo

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/bosagora-go/agora-node/pkg/block"
	"github.com/bosagora-go/agora-node/pkg/crypto"
	"github.com/bosagora-go/agora-node/pkg/tx"
	"github.com/bosagora-go/agora-node/pkg/types"
)

// Commitment computes a merkle root over every UTXO in the store,
// letting a node's on-disk set be attested to without shipping the
// whole thing.
func Commitment(store *Store) (types.Hash, error) {
	var hashes []types.Hash

	err := store.ForEach(func(outpoint types.Outpoint, u tx.UTXO) error {
		hashes = append(hashes, hashUTXO(outpoint, u))
		return nil
	})
	if err != nil {
		return types.Hash{}, fmt.Errorf("utxo commitment: %w", err)
	}

	if len(hashes) == 0 {
		return types.Hash{}, nil
	}

	sort.Slice(hashes, func(i, j int) bool {
		return hashes[i].Less(hashes[j])
	})

	return block.ComputeMerkleRoot(hashes), nil
}

// hashUTXO produces a deterministic hash of a UTXO record: the
// storage key hash, value, source type, and unlock height.
func hashUTXO(outpoint types.Outpoint, u tx.UTXO) types.Hash {
	var buf []byte
	buf = append(buf, outpoint.TxID[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(u.Output.Value))
	buf = append(buf, byte(u.SourceType))
	buf = binary.LittleEndian.AppendUint64(buf, u.UnlockHeight)
	return crypto.Hash(buf)
}
