// Package utxo manages the unspent-output set: a keyed mapping from
// hashMulti(tx_hash, out_index) to UTXO record, plus the per-block
// used-set wrapper that turns a Set into a double-spend detector.
package utxo

import (
	"github.com/bosagora-go/agora-node/pkg/tx"
	"github.com/bosagora-go/agora-node/pkg/types"
)

// UnlockDelta values added to the accepting block's height to produce
// a UTXO's UnlockHeight, selected by what spent what to produce it.
const (
	// PaymentFromPaymentDelta applies to Payment outputs of a Payment
	// transaction that spent only Payment inputs.
	PaymentFromPaymentDelta = 1
	// PaymentFromFreezeDelta applies to Payment outputs of a Payment
	// transaction that melted Freeze inputs — these stay locked for the
	// full unfreezing period.
	PaymentFromFreezeDelta = types.MeltLockBlocks
	// FreezeDelta applies to the output of a Freeze transaction.
	FreezeDelta = 1
)

// Set is the storage interface the ledger mutates as blocks and
// transactions are accepted. It satisfies tx.UTXOProvider so the
// transaction/block validators can resolve inputs directly against it.
type Set interface {
	tx.UTXOProvider

	Put(outpoint types.Outpoint, u tx.UTXO) error
	Delete(outpoint types.Outpoint) error
	Has(outpoint types.Outpoint) (bool, error)
	ForEach(fn func(types.Outpoint, tx.UTXO) error) error
}
