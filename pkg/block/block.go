// Package block defines the Block type and the per-tx, per-header
// validation rules blocks must satisfy before the Ledger accepts them.
package block

import (
	"github.com/bosagora-go/agora-node/pkg/tx"
	"github.com/bosagora-go/agora-node/pkg/types"
)

// Block is a header plus its fixed-count, hash-sorted transaction set.
type Block struct {
	Header       *Header           `json:"header"`
	Transactions []*tx.Transaction `json:"transactions"`
}

// NewBlock creates a new block with the given header and transactions.
func NewBlock(header *Header, txs []*tx.Transaction) *Block {
	return &Block{Header: header, Transactions: txs}
}

// Hash returns the block header hash.
func (b *Block) Hash() types.Hash {
	if b.Header == nil {
		return types.Hash{}
	}
	return b.Header.Hash()
}

// TxHashes returns the hash of every transaction, in block order.
func (b *Block) TxHashes() []types.Hash {
	hashes := make([]types.Hash, len(b.Transactions))
	for i, t := range b.Transactions {
		hashes[i] = t.Hash()
	}
	return hashes
}
