package tx

import (
	"fmt"

	"github.com/bosagora-go/agora-node/pkg/crypto"
	"github.com/bosagora-go/agora-node/pkg/types"
)

// Builder constructs transactions incrementally.
type Builder struct {
	tx *Transaction
}

// NewBuilder starts a new Payment transaction builder. Call SetType to
// build a Freeze or Coinbase transaction instead.
func NewBuilder() *Builder {
	return &Builder{tx: &Transaction{Type: Payment}}
}

// SetType overrides the transaction type.
func (b *Builder) SetType(t TxType) *Builder {
	b.tx.Type = t
	return b
}

// AddInput adds an input referencing a previous output. The unlock
// bytes are left empty; call a Sign method afterward to fill them in.
func (b *Builder) AddInput(prevOut types.Outpoint, unlockAge uint32) *Builder {
	b.tx.Inputs = append(b.tx.Inputs, types.Input{PrevOut: prevOut, UnlockAge: unlockAge})
	return b
}

// AddOutput adds an output locking value behind lock.
func (b *Builder) AddOutput(value types.Amount, lock types.Lock) *Builder {
	b.tx.Outputs = append(b.tx.Outputs, types.Output{Value: value, Lock: lock})
	return b
}

// SetUnlockHeight sets the melt-cycle unlock height this transaction
// records on its outputs.
func (b *Builder) SetUnlockHeight(height uint64) *Builder {
	b.tx.UnlockHeight = height
	return b
}

// SetSequenceID sets the Flash sequence id compared by VERIFY_TX_SEQ.
func (b *Builder) SetSequenceID(seq uint64) *Builder {
	b.tx.SequenceID = seq
	return b
}

// SignKey fills every input's unlock with a bare signature, for inputs
// whose referenced output uses a Key lock and share the single signer
// key. Coinbase inputs (zero outpoint) are left untouched.
func (b *Builder) SignKey(key *crypto.PrivateKey) error {
	for i, in := range b.tx.Inputs {
		if in.PrevOut.IsZero() {
			continue
		}
		challenge, err := b.tx.GetChallenge(types.SigHashAll, i)
		if err != nil {
			return fmt.Errorf("challenge for input %d: %w", i, err)
		}
		sig, err := key.Sign(challenge)
		if err != nil {
			return fmt.Errorf("sign input %d: %w", i, err)
		}
		b.tx.Inputs[i].Unlock = sig.Bytes()
	}
	return nil
}

// SignKeyHash fills every input's unlock with signature‖pubkey, for
// inputs whose referenced output uses a KeyHash lock.
func (b *Builder) SignKeyHash(key *crypto.PrivateKey) error {
	pub := key.PublicKey()
	for i, in := range b.tx.Inputs {
		if in.PrevOut.IsZero() {
			continue
		}
		challenge, err := b.tx.GetChallenge(types.SigHashAll, i)
		if err != nil {
			return fmt.Errorf("challenge for input %d: %w", i, err)
		}
		sig, err := key.Sign(challenge)
		if err != nil {
			return fmt.Errorf("sign input %d: %w", i, err)
		}
		unlock := append(sig.Bytes(), pub.Bytes()...)
		b.tx.Inputs[i].Unlock = unlock
	}
	return nil
}

// Build returns the constructed transaction. It does not validate —
// call tx.Validate() or tx.ValidateWithUTXOs() separately.
func (b *Builder) Build() *Transaction {
	return b.tx
}
