package utxo

import (
	"fmt"

	"github.com/bosagora-go/agora-node/pkg/tx"
	"github.com/bosagora-go/agora-node/pkg/types"
)

// UpdateCache applies transaction's effect on set at height: every
// input's referenced UTXO is removed, and every output is inserted
// with an UnlockHeight derived from the unlock delta its source
// implies. txHash is the accepted transaction's hash (output
// outpoints are txHash:index).
func UpdateCache(set Set, transaction *tx.Transaction, txHash types.Hash, height uint64) error {
	delta, err := unlockDelta(set, transaction)
	if err != nil {
		return err
	}

	for _, in := range transaction.Inputs {
		if in.PrevOut.IsZero() {
			continue // Coinbase input: nothing to remove.
		}
		if err := set.Delete(in.PrevOut); err != nil {
			return fmt.Errorf("update cache: delete %s: %w", in.PrevOut, err)
		}
	}

	for i, out := range transaction.Outputs {
		outpoint := types.Outpoint{TxID: txHash, Index: uint32(i)}
		u := tx.UTXO{
			Output:       out,
			SourceType:   transaction.Type,
			UnlockHeight: height + delta,
		}
		if err := set.Put(outpoint, u); err != nil {
			return fmt.Errorf("update cache: put %s: %w", outpoint, err)
		}
	}
	return nil
}

// unlockDelta determines the UnlockHeight offset for transaction's
// outputs, per §4.5: a Freeze transaction's output always carries
// FreezeDelta; a Payment transaction carries PaymentFromFreezeDelta if
// any of its resolved inputs melted a Freeze UTXO, else
// PaymentFromPaymentDelta. Coinbase outputs spend nothing, so they get
// the minimal delta.
func unlockDelta(set Set, transaction *tx.Transaction) (uint64, error) {
	switch transaction.Type {
	case tx.Freeze:
		return FreezeDelta, nil
	case tx.Coinbase:
		return PaymentFromPaymentDelta, nil
	}

	for _, in := range transaction.Inputs {
		if in.PrevOut.IsZero() {
			continue
		}
		u, ok := set.FindUTXO(in.PrevOut)
		if !ok {
			return 0, fmt.Errorf("update cache: input %s not found", in.PrevOut)
		}
		if u.SourceType == tx.Freeze {
			return PaymentFromFreezeDelta, nil
		}
	}
	return PaymentFromPaymentDelta, nil
}
