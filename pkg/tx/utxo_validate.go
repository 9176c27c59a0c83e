package tx

import (
	"errors"
	"fmt"

	"github.com/bosagora-go/agora-node/pkg/script"
	"github.com/bosagora-go/agora-node/pkg/types"
)

// UTXO-aware validation errors.
var (
	ErrInputNotFound      = errors.New("input UTXO not found")
	ErrInputSumInvalid    = errors.New("input sum overflows")
	ErrInsufficientFee    = errors.New("sum(outputs) exceeds sum(inputs)")
	ErrFreezeSourceType   = errors.New("freeze transaction input does not reference a Payment UTXO")
	ErrFreezeAmountTooLow = errors.New("freeze transaction input sum below minimum freeze amount")
	ErrMixedInputTypes    = errors.New("payment transaction mixes Freeze and Payment inputs")
	ErrMeltingLocked      = errors.New("input UTXO is still within its melting lock")
)

// UTXO is the view of a referenced previous output the validator needs:
// enough to re-derive the freeze/melt and signature rules without
// depending on how the caller stores its UTXO set.
type UTXO struct {
	Output       types.Output
	SourceType   TxType
	UnlockHeight uint64
}

// UTXOProvider resolves the outpoints referenced by a transaction's
// inputs against the UTXO set at some implicit height.
type UTXOProvider interface {
	FindUTXO(outpoint types.Outpoint) (UTXO, bool)
}

// ValidateWithUTXOs performs full validation of tx against the UTXO set
// as of height: structural rules, the freeze/melt invariants of §3,
// signature verification, and the inputs ≥ outputs economic rule. It
// returns the fee (sum(inputs) - sum(outputs)) on success.
func (tx *Transaction) ValidateWithUTXOs(height uint64, provider UTXOProvider) (types.Amount, error) {
	if err := tx.Validate(); err != nil {
		return 0, err
	}

	if tx.Type == Coinbase {
		return tx.validateCoinbase()
	}

	refs := make([]UTXO, len(tx.Inputs))
	for i, in := range tx.Inputs {
		utxo, ok := provider.FindUTXO(in.PrevOut)
		if !ok {
			return 0, fmt.Errorf("input %d (%s): %w", i, in.PrevOut, ErrInputNotFound)
		}
		refs[i] = utxo
	}

	if err := checkSourceTypeRules(tx.Type, refs); err != nil {
		return 0, err
	}

	values := make([]types.Amount, len(refs))
	for i, utxo := range refs {
		values[i] = utxo.Output.Value
	}
	totalInput, validity := types.SumAmounts(values)
	if validity == types.AmountInvalid {
		return 0, ErrInputSumInvalid
	}

	if tx.Type == Freeze && totalInput < types.MinFreezeAmount {
		return 0, fmt.Errorf("%w: sum=%d, min=%d", ErrFreezeAmountTooLow, totalInput, types.MinFreezeAmount)
	}

	for i, utxo := range refs {
		if height < utxo.UnlockHeight {
			return 0, fmt.Errorf("input %d: %w: height=%d, unlocks at %d", i, ErrMeltingLocked, height, utxo.UnlockHeight)
		}
	}

	for i, in := range tx.Inputs {
		ctx := tx.Context()
		if err := script.Evaluate(refs[i].Output.Lock, in.Unlock, ctx, i); err != nil {
			return 0, fmt.Errorf("input %d: %w", i, err)
		}
	}

	totalOutput, outValidity := tx.TotalOutputValue()
	if outValidity != types.AmountValid {
		return 0, ErrOutputSumInvalid
	}
	if totalInput < totalOutput {
		return 0, fmt.Errorf("%w: inputs=%d outputs=%d", ErrInsufficientFee, totalInput, totalOutput)
	}

	fee, _ := types.Sub(totalInput, totalOutput)
	return fee, nil
}

// checkSourceTypeRules enforces the §3 freeze/melt source-type
// invariants: a Freeze tx's inputs must all come from Payment UTXOs; a
// Payment tx's inputs must be uniformly Freeze (melting initiation) or
// uniformly Payment, never a mix of the two.
func checkSourceTypeRules(txType TxType, refs []UTXO) error {
	switch txType {
	case Freeze:
		for i, utxo := range refs {
			if utxo.SourceType != Payment {
				return fmt.Errorf("input %d: %w: source is %s", i, ErrFreezeSourceType, utxo.SourceType)
			}
		}
	case Payment:
		if len(refs) == 0 {
			return nil
		}
		want := refs[0].SourceType
		if want != Payment && want != Freeze {
			return fmt.Errorf("input 0: %w: source is %s", ErrMixedInputTypes, want)
		}
		for i, utxo := range refs {
			if utxo.SourceType != want {
				return fmt.Errorf("input %d: %w", i, ErrMixedInputTypes)
			}
		}
	}
	return nil
}

// validateCoinbase skips UTXO lookups and signature checks entirely:
// a Coinbase transaction's single input is a zeroed outpoint that
// creates value rather than spending it, so it pays no fee.
func (tx *Transaction) validateCoinbase() (types.Amount, error) {
	if _, validity := tx.TotalOutputValue(); validity != types.AmountValid {
		return 0, ErrOutputSumInvalid
	}
	return 0, nil
}
