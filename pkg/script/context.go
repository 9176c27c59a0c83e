package script

import "github.com/bosagora-go/agora-node/pkg/types"

// Context is the slice of transaction state the engine needs without
// importing pkg/tx directly (pkg/tx imports pkg/script, so the
// dependency must run this direction only). pkg/tx provides the
// concrete implementation passed into Evaluate and Execute.
type Context interface {
	// Challenge returns get_challenge(tx, sigHash, inputIndex).
	Challenge(sigHash types.SigHash, inputIndex int) (types.Hash, error)
	// InputUnlockAge returns the unlock age recorded on the given input.
	InputUnlockAge(inputIndex int) uint32
	// SequenceID returns the transaction's Flash sequence number (zero
	// for ordinary payment/freeze transactions).
	SequenceID() uint64
}
