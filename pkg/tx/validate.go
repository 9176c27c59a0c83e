package tx

import (
	"errors"
	"fmt"

	"github.com/bosagora-go/agora-node/config"
	"github.com/bosagora-go/agora-node/pkg/types"
)

// Structural validation errors.
var (
	ErrNoInputs           = errors.New("transaction has no inputs")
	ErrNoOutputs          = errors.New("transaction has no outputs")
	ErrDuplicateInput     = errors.New("duplicate input")
	ErrTooManyInputs      = errors.New("too many inputs")
	ErrTooManyOutputs     = errors.New("too many outputs")
	ErrScriptDataTooLarge = errors.New("lock data too large")
	ErrInvalidOutputValue = errors.New("output value is zero, overflowing, or underflowing")
	ErrOutputSumInvalid   = errors.New("output sum overflows")
	ErrUnknownTxType      = errors.New("unknown transaction type")
)

// Validate checks transaction structure and the invariants that do not
// require UTXO access: input/output counts, duplicate inputs, lock data
// size, and per-output value validity.
func (tx *Transaction) Validate() error {
	if !tx.Type.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownTxType, tx.Type)
	}
	if len(tx.Inputs) == 0 {
		return ErrNoInputs
	}
	if len(tx.Outputs) == 0 {
		return ErrNoOutputs
	}
	if len(tx.Inputs) > config.MaxTxInputs {
		return fmt.Errorf("%w: %d inputs, max %d", ErrTooManyInputs, len(tx.Inputs), config.MaxTxInputs)
	}
	if len(tx.Outputs) > config.MaxTxOutputs {
		return fmt.Errorf("%w: %d outputs, max %d", ErrTooManyOutputs, len(tx.Outputs), config.MaxTxOutputs)
	}

	seen := make(map[types.Outpoint]bool, len(tx.Inputs))
	for i, in := range tx.Inputs {
		if tx.Type != Coinbase && seen[in.PrevOut] {
			return fmt.Errorf("input %d: %w", i, ErrDuplicateInput)
		}
		seen[in.PrevOut] = true
	}

	for i, out := range tx.Outputs {
		if out.Value.Validity() != types.AmountValid {
			return fmt.Errorf("output %d: %w", i, ErrInvalidOutputValue)
		}
		if len(out.Lock.Data) > config.MaxScriptData {
			return fmt.Errorf("output %d: %w: %d bytes, max %d", i, ErrScriptDataTooLarge, len(out.Lock.Data), config.MaxScriptData)
		}
	}

	if _, validity := tx.TotalOutputValue(); validity != types.AmountValid {
		return ErrOutputSumInvalid
	}

	return nil
}
