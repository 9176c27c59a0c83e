package tx

import (
	"errors"
	"fmt"

	"github.com/bosagora-go/agora-node/pkg/crypto"
	"github.com/bosagora-go/agora-node/pkg/script"
	"github.com/bosagora-go/agora-node/pkg/types"
)

// ErrInvalidSigHash is returned by GetChallenge for any SigHash mode
// other than All or NoInput.
var ErrInvalidSigHash = errors.New("tx: invalid sig hash mode")

// GetChallenge computes the message hash a signature over this
// transaction's input at inputIndex commits to.
//
//   - SigHash.All signs the whole transaction; inputIndex must still be
//     a valid index even though it does not change the hash content.
//   - SigHash.NoInput signs the transaction's signing bytes with
//     inputs[inputIndex] replaced by a zeroed Input, so the resulting
//     signature survives that input's outpoint changing later (used by
//     floating Eltoo update/settlement transactions).
func (tx *Transaction) GetChallenge(sigHash types.SigHash, inputIndex int) (types.Hash, error) {
	if !sigHash.Valid() {
		return types.Hash{}, fmt.Errorf("%w: %d", ErrInvalidSigHash, sigHash)
	}
	if inputIndex < 0 || inputIndex >= len(tx.Inputs) {
		return types.Hash{}, fmt.Errorf("tx: input index %d out of range", inputIndex)
	}

	modeByte := []byte{byte(sigHash)}
	switch sigHash {
	case types.SigHashAll:
		return crypto.HashMulti(tx.SigningBytes(), modeByte), nil
	case types.SigHashNoInput:
		return crypto.HashMulti(tx.SigningBytesNoInput(inputIndex), modeByte), nil
	default:
		return types.Hash{}, fmt.Errorf("%w: %d", ErrInvalidSigHash, sigHash)
	}
}

// scriptContext adapts a Transaction to the script.Context interface.
type scriptContext struct {
	tx *Transaction
}

// Context returns a script.Context view of tx, used by the script
// engine to resolve signature challenges and input/sequence state.
func (tx *Transaction) Context() script.Context {
	return &scriptContext{tx: tx}
}

func (c *scriptContext) Challenge(sigHash types.SigHash, inputIndex int) (types.Hash, error) {
	return c.tx.GetChallenge(sigHash, inputIndex)
}

func (c *scriptContext) InputUnlockAge(inputIndex int) uint32 {
	if inputIndex < 0 || inputIndex >= len(c.tx.Inputs) {
		return 0
	}
	return c.tx.Inputs[inputIndex].UnlockAge
}

func (c *scriptContext) SequenceID() uint64 {
	return c.tx.SequenceID
}
