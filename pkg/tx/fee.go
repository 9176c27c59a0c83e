package tx

import "github.com/bosagora-go/agora-node/pkg/types"

// EstimateTxFee returns the minimum fee for a transaction with the given
// number of inputs and outputs at the given fee rate (base units per
// byte), based on the SigningBytes layout (which excludes unlock data):
//
//	type(1) + inputCount(4) + inputs(72*n) + outputCount(4) + outputs(perOut*n) + unlockHeight(8) + sequenceID(8)
//
// perOutput defaults to a Key-locked output (8 value + 1 lock type + 4
// len + 33-byte pubkey); pass extraOutputBytes to size for a larger
// lock, e.g. types.HashSize for KeyHash/ScriptHash outputs.
func EstimateTxFee(numInputs, numOutputs int, feeRate uint64, extraOutputBytes ...int) uint64 {
	const overhead = 1 + 4 + 4 + 8 + 8 // type + inputCount + outputCount + unlockHeight + sequenceID
	const perInput = types.HashSize + 4 + 4
	const perOutput = 8 + 1 + 4 + types.PublicKeySize

	extra := 0
	if len(extraOutputBytes) > 0 {
		extra = extraOutputBytes[0]
	}

	size := overhead + perInput*numInputs + (perOutput+extra)*numOutputs
	return uint64(size) * feeRate
}

// RequiredFee returns the exact minimum fee for a fully built
// transaction at the given fee rate (base units per byte of
// SigningBytes).
func RequiredFee(transaction *Transaction, feeRate uint64) uint64 {
	return uint64(len(transaction.SigningBytes())) * feeRate
}
