package block

import (
	"errors"
	"fmt"

	"github.com/bosagora-go/agora-node/config"
	"github.com/bosagora-go/agora-node/pkg/tx"
	"github.com/bosagora-go/agora-node/pkg/types"
)

// Validation errors.
var (
	ErrNilHeader            = errors.New("block has nil header")
	ErrBadGenesis           = errors.New("height-0 block does not match configured genesis")
	ErrNoParent             = errors.New("non-genesis block requires a parent header")
	ErrBadHeight            = errors.New("height is not parent height + 1")
	ErrBadPrevHash          = errors.New("prev_block_hash does not match parent hash")
	ErrWrongTxCount         = errors.New("transaction count does not match TxsInBlock")
	ErrBadTxOrder           = errors.New("transactions not sorted ascending by hash")
	ErrBadMerkleRoot        = errors.New("merkle root mismatch")
	ErrTooFewValidators     = errors.New("active validator count below MinValidatorCount")
	ErrDuplicateBlockInput  = errors.New("duplicate input across transactions in block")
)

// ValidationContext supplies the chain state Validate needs beyond the
// block itself: the block package owns none of it (the Ledger does).
type ValidationContext struct {
	// GenesisHash is the hash the height-0 block must reproduce.
	GenesisHash types.Hash
	// Parent is the previous block's header; required for every block
	// except height 0.
	Parent *Header
	// ActiveValidatorCount is the number of validators already active
	// before this block's new enrollments are applied.
	ActiveValidatorCount int
	// UTXOs resolves transaction inputs against the UTXO set as of
	// this block's height.
	UTXOs tx.UTXOProvider
}

// Validate checks block structure, chain linkage, transaction
// well-formedness against the UTXO set, and the minimum validator
// count. It does not verify AggregateSignature against a quorum slice
// set — that is the Ledger's responsibility once it resolves the
// active validator set's public keys.
func (b *Block) Validate(vctx ValidationContext) error {
	if b.Header == nil {
		return ErrNilHeader
	}

	if b.Header.Height == 0 {
		if b.Hash() != vctx.GenesisHash {
			return fmt.Errorf("%w: got %s, want %s", ErrBadGenesis, b.Hash(), vctx.GenesisHash)
		}
		return b.validateTxs(vctx)
	}

	if vctx.Parent == nil {
		return ErrNoParent
	}
	if b.Header.Height != vctx.Parent.Height+1 {
		return fmt.Errorf("%w: got %d, parent %d", ErrBadHeight, b.Header.Height, vctx.Parent.Height)
	}
	if b.Header.PrevBlockHash != vctx.Parent.Hash() {
		return fmt.Errorf("%w: got %s, want %s", ErrBadPrevHash, b.Header.PrevBlockHash, vctx.Parent.Hash())
	}

	if err := b.validateTxs(vctx); err != nil {
		return err
	}

	if vctx.ActiveValidatorCount+len(b.Header.Enrollments) < config.MinValidatorCount {
		return fmt.Errorf("%w: active=%d, new=%d, min=%d",
			ErrTooFewValidators, vctx.ActiveValidatorCount, len(b.Header.Enrollments), config.MinValidatorCount)
	}

	return nil
}

// validateTxs checks the fixed tx count, ascending hash order, merkle
// root, and per-tx structural/UTXO validity shared by genesis and
// non-genesis blocks.
func (b *Block) validateTxs(vctx ValidationContext) error {
	if len(b.Transactions) != config.TxsInBlock {
		return fmt.Errorf("%w: got %d, want %d", ErrWrongTxCount, len(b.Transactions), config.TxsInBlock)
	}

	txHashes := b.TxHashes()
	for i := 1; i < len(txHashes); i++ {
		if !txHashes[i-1].Less(txHashes[i]) {
			return fmt.Errorf("%w: tx %d hash >= tx %d hash", ErrBadTxOrder, i-1, i)
		}
	}

	expectedRoot := ComputeMerkleRoot(txHashes)
	if b.Header.MerkleRoot != expectedRoot {
		return fmt.Errorf("%w: header=%s computed=%s", ErrBadMerkleRoot, b.Header.MerkleRoot, expectedRoot)
	}

	allInputs := make(map[types.Outpoint]int, len(b.Transactions))
	for i, t := range b.Transactions {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("tx %d: %w", i, err)
		}
		if vctx.UTXOs != nil {
			if _, err := t.ValidateWithUTXOs(b.Header.Height, vctx.UTXOs); err != nil {
				return fmt.Errorf("tx %d: %w", i, err)
			}
		}
		for _, in := range t.Inputs {
			if t.Type == tx.Coinbase {
				continue
			}
			if prevTx, exists := allInputs[in.PrevOut]; exists {
				return fmt.Errorf("tx %d: %w: outpoint %s also spent in tx %d",
					i, ErrDuplicateBlockInput, in.PrevOut, prevTx)
			}
			allInputs[in.PrevOut] = i
		}
	}

	return nil
}
