package script

import (
	"github.com/bosagora-go/agora-node/pkg/crypto"
	"github.com/bosagora-go/agora-node/pkg/types"
)

// Evaluate checks that unlock satisfies lock for the input at
// inputIndex, using ctx to resolve signature challenges and
// input/sequence state. It returns nil on success and a descriptive
// error otherwise; it never panics.
func Evaluate(lock types.Lock, unlock []byte, ctx Context, inputIndex int) error {
	switch lock.Type {
	case types.LockKey:
		return evaluateKey(lock, unlock, ctx, inputIndex)
	case types.LockKeyHash:
		return evaluateKeyHash(lock, unlock, ctx, inputIndex)
	case types.LockScript:
		return evaluateScript(lock, unlock, ctx, inputIndex)
	case types.LockScriptHash:
		return evaluateScriptHash(lock, unlock, ctx, inputIndex)
	default:
		return ErrInvalidLockData
	}
}

func evaluateKey(lock types.Lock, unlock []byte, ctx Context, inputIndex int) error {
	if len(lock.Data) != types.PublicKeySize {
		return ErrInvalidLockData
	}
	if len(unlock) != types.SignatureSize {
		return ErrInvalidUnlockData
	}
	var pub types.PublicKey
	copy(pub[:], lock.Data)
	var sig types.Signature
	copy(sig[:], unlock)

	challenge, err := ctx.Challenge(types.SigHashAll, inputIndex)
	if err != nil {
		return err
	}
	if !crypto.VerifySignature(challenge, sig, pub) {
		return ErrSignatureInvalid
	}
	return nil
}

func evaluateKeyHash(lock types.Lock, unlock []byte, ctx Context, inputIndex int) error {
	if len(lock.Data) != types.HashSize {
		return ErrInvalidLockData
	}
	if len(unlock) != types.SignatureSize+types.PublicKeySize {
		return ErrInvalidUnlockData
	}
	var sig types.Signature
	copy(sig[:], unlock[:types.SignatureSize])
	var pub types.PublicKey
	copy(pub[:], unlock[types.SignatureSize:])

	var wantHash types.Hash
	copy(wantHash[:], lock.Data)
	if crypto.Hash(pub[:]) != wantHash {
		return ErrSignatureInvalid
	}

	challenge, err := ctx.Challenge(types.SigHashAll, inputIndex)
	if err != nil {
		return err
	}
	if !crypto.VerifySignature(challenge, sig, pub) {
		return ErrSignatureInvalid
	}
	return nil
}

func evaluateScript(lock types.Lock, unlock []byte, ctx Context, inputIndex int) error {
	st := newStack()
	if err := Execute(unlock, st, ctx, inputIndex); err != nil {
		return err
	}
	if err := Execute(lock.Data, st, ctx, inputIndex); err != nil {
		return err
	}
	return requireTrueTop(st)
}

func evaluateScriptHash(lock types.Lock, unlock []byte, ctx Context, inputIndex int) error {
	if len(lock.Data) != types.HashSize {
		return ErrInvalidLockData
	}

	st := newStack()
	if err := Execute(unlock, st, ctx, inputIndex); err != nil {
		return err
	}

	redeem, err := st.pop()
	if err != nil {
		return ErrMissingRedeemScript
	}

	var wantHash types.Hash
	copy(wantHash[:], lock.Data)
	if crypto.Hash(redeem) != wantHash {
		return ErrScriptHashMismatch
	}

	if err := Execute(redeem, st, ctx, inputIndex); err != nil {
		return err
	}
	return requireTrueTop(st)
}

func requireTrueTop(st *stack) error {
	top, err := st.top()
	if err != nil {
		return ErrFinalValueNotTrue
	}
	if !truthy(top) {
		return ErrFinalValueNotTrue
	}
	return nil
}
