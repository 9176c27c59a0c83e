// Package tx defines the Transaction type, its structural/economic
// validation rules, and the signature-challenge construction the
// script engine calls back into.
package tx

import (
	"encoding/binary"
	"fmt"

	"github.com/bosagora-go/agora-node/pkg/crypto"
	"github.com/bosagora-go/agora-node/pkg/types"
)

// Transaction is a Payment, Freeze, or Coinbase transaction.
type Transaction struct {
	Type TxType `json:"type"`

	Inputs  []types.Input  `json:"inputs"`
	Outputs []types.Output `json:"outputs"`

	// UnlockHeight gates the earliest height at which this
	// transaction's outputs become spendable again after melting; zero
	// for transactions that do not participate in the freeze/melt cycle.
	UnlockHeight uint64 `json:"unlock_height,omitempty"`

	// SequenceID is non-zero only for Flash update/settlement
	// transactions; VERIFY_TX_SEQ compares against it.
	SequenceID uint64 `json:"sequence_id,omitempty"`
}

// TxType is re-exported from the shared types package so call sites
// that only import pkg/tx do not also need pkg/types for this enum.
type TxType = types.TxType

const (
	Payment  = types.TxPayment
	Freeze   = types.TxFreeze
	Coinbase = types.TxCoinbase
)

// Hash computes the transaction id: the hash of its signing bytes.
// Inputs' Unlock data is excluded so that signing a transaction does
// not change its own id.
func (tx *Transaction) Hash() types.Hash {
	return crypto.Hash(tx.signingBytes(-1, false))
}

// SigningBytes returns the canonical byte representation signed by
// SigHash.All: every input's outpoint and unlock age, but none of the
// inputs' unlock data, plus every output.
func (tx *Transaction) SigningBytes() []byte {
	return tx.signingBytes(-1, false)
}

// SigningBytesNoInput returns the canonical byte representation signed
// by SigHash.NoInput: identical to SigningBytes except the input at
// blankIndex is replaced with a zeroed Input, so a signature computed
// this way stays valid even if that input's outpoint later changes.
func (tx *Transaction) SigningBytesNoInput(blankIndex int) []byte {
	return tx.signingBytes(blankIndex, true)
}

func (tx *Transaction) signingBytes(blankIndex int, blank bool) []byte {
	var buf []byte

	buf = append(buf, byte(tx.Type))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(tx.Inputs)))
	for i, in := range tx.Inputs {
		if blank && i == blankIndex {
			var zero types.Outpoint
			buf = append(buf, zero.TxID[:]...)
			buf = binary.LittleEndian.AppendUint32(buf, 0)
			buf = binary.LittleEndian.AppendUint32(buf, 0)
			continue
		}
		buf = append(buf, in.PrevOut.TxID[:]...)
		buf = binary.LittleEndian.AppendUint32(buf, in.PrevOut.Index)
		buf = binary.LittleEndian.AppendUint32(buf, in.UnlockAge)
	}

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(out.Value))
		buf = append(buf, byte(out.Lock.Type))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(out.Lock.Data)))
		buf = append(buf, out.Lock.Data...)
	}

	buf = binary.LittleEndian.AppendUint64(buf, tx.UnlockHeight)
	buf = binary.LittleEndian.AppendUint64(buf, tx.SequenceID)

	return buf
}

// TotalOutputValue returns the saturating-checked sum of all output
// values.
func (tx *Transaction) TotalOutputValue() (types.Amount, types.AmountValidity) {
	values := make([]types.Amount, len(tx.Outputs))
	for i, out := range tx.Outputs {
		values[i] = out.Value
	}
	return types.SumAmounts(values)
}

// Clone returns a deep copy of tx, used by the Flash layer when it hands
// out update and settlement transactions, and anywhere a transaction must
// be mutated without aliasing the original's slices.
func (tx *Transaction) Clone() *Transaction {
	clone := &Transaction{
		Type:         tx.Type,
		UnlockHeight: tx.UnlockHeight,
		SequenceID:   tx.SequenceID,
		Inputs:       make([]types.Input, len(tx.Inputs)),
		Outputs:      make([]types.Output, len(tx.Outputs)),
	}
	for i, in := range tx.Inputs {
		clone.Inputs[i] = types.Input{
			PrevOut:   in.PrevOut,
			UnlockAge: in.UnlockAge,
			Unlock:    append([]byte(nil), in.Unlock...),
		}
	}
	for i, out := range tx.Outputs {
		clone.Outputs[i] = types.Output{
			Value: out.Value,
			Lock:  types.Lock{Type: out.Lock.Type, Data: append([]byte(nil), out.Lock.Data...)},
		}
	}
	return clone
}

// String is a short human-readable summary, useful in log lines.
func (tx *Transaction) String() string {
	h := tx.Hash()
	return fmt.Sprintf("%s(%s, %d in, %d out)", tx.Type, h.String()[:16], len(tx.Inputs), len(tx.Outputs))
}
