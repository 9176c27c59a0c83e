// Package flash implements Agora's off-chain payment channel layer: the
// Eltoo on-chain script generators, the per-channel state machine, and
// the node-level surface that coordinates signing with a remote peer.
package flash

import (
	"encoding/binary"
	"fmt"

	"github.com/bosagora-go/agora-node/pkg/script"
	"github.com/bosagora-go/agora-node/pkg/types"
)

// pushData encodes a literal data push for data of any length this
// engine accepts (1..script.MaxStackItemSize), choosing the shortest
// encoding: a single-byte length opcode for payloads up to 64 bytes,
// OP_PUSH_DATA1 up to 255 bytes, OP_PUSH_DATA2 beyond that.
func pushData(code []byte, data []byte) ([]byte, error) {
	n := len(data)
	switch {
	case n >= 1 && n <= int(script.OpPushBytes64):
		code = append(code, script.Opcode(n))
	case n > int(script.OpPushBytes64) && n <= 255:
		code = append(code, script.OpPushData1, byte(n))
	case n > 255 && n <= script.MaxStackItemSize:
		code = append(code, script.OpPushData2, byte(n), byte(n>>8))
	default:
		return nil, fmt.Errorf("flash: cannot push %d bytes (must be 1..%d)", n, script.MaxStackItemSize)
	}
	return append(code, data...), nil
}

// appendUint64LE appends n as a plain little-endian 8-byte immediate,
// the encoding OpVerifyInputLock/OpVerifyTxSeq read inline.
func appendUint64LE(code []byte, n uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], n)
	return append(code, buf[:]...)
}

// CreateLockEltoo builds the two-branch lock script an Eltoo funding or
// update output is locked with, per the whitepaper's "OnChainScripts"
// construction:
//
//   - IF branch (settlement path): VERIFY_INPUT_LOCK <age>, then
//     VERIFY_SIG against settleX — spendable once the output has aged
//     at least age blocks.
//   - ELSE branch (update path): VERIFY_TX_SEQ <seqID+1>, then
//     VERIFY_SIG against updateX — spendable only by a transaction whose
//     sequence id is exactly seqID+1 (VERIFY_TX_SEQ checks equality).
//
// The unlock script selects the branch by pushing TRUE or FALSE ahead
// of the signature, which the lock script's leading IF consumes before
// either branch's own pushes run.
func CreateLockEltoo(age uint64, settleX, updateX types.PublicKey, seqID uint64) (types.Lock, error) {
	code := []byte{script.OpIf}

	code = append(code, script.OpVerifyInputLock)
	code = appendUint64LE(code, age)
	code, err := pushData(code, settleX.Bytes())
	if err != nil {
		return types.Lock{}, err
	}
	code = append(code, script.OpVerifySig)
	code = append(code, script.OpTrue)

	code = append(code, script.OpElse)

	code = append(code, script.OpVerifyTxSeq)
	code = appendUint64LE(code, seqID+1)
	code, err = pushData(code, updateX.Bytes())
	if err != nil {
		return types.Lock{}, err
	}
	code = append(code, script.OpVerifySig)
	code = append(code, script.OpTrue)

	code = append(code, script.OpEndIf)

	return types.LockScriptFor(code), nil
}

// CreateUnlockSettle builds the unlock script for the settlement
// (IF) branch of an Eltoo lock: signature, SigHash.NoInput mode byte,
// then TRUE to select the settlement path.
func CreateUnlockSettle(sig types.Signature) ([]byte, error) {
	return createUnlockEltoo(sig, script.OpTrue)
}

// CreateUnlockUpdate builds the unlock script for the update (ELSE)
// branch of an Eltoo lock: signature, SigHash.NoInput mode byte, then
// FALSE to select the update path.
func CreateUnlockUpdate(sig types.Signature) ([]byte, error) {
	return createUnlockEltoo(sig, script.OpFalse)
}

func createUnlockEltoo(sig types.Signature, branch script.Opcode) ([]byte, error) {
	code, err := pushData(nil, sig.Bytes())
	if err != nil {
		return nil, err
	}
	code, err = pushData(code, []byte{byte(types.SigHashNoInput)})
	if err != nil {
		return nil, err
	}
	return append(code, branch), nil
}
