// Package script implements the stack-based lock/unlock interpreter
// used to spend Agora outputs: push opcodes, scoped conditionals,
// hashing/signature verification, and the four lock modes (Key,
// KeyHash, Script, ScriptHash).
package script

// Opcode is a single byte of script bytecode.
type Opcode = byte

const (
	// OpFalse pushes an empty (falsy) item.
	OpFalse Opcode = 0x00

	// OpPushBytes1..OpPushBytes64: the opcode value itself is the
	// number of literal bytes that follow and are pushed verbatim.
	OpPushBytes1  Opcode = 0x01
	OpPushBytes64 Opcode = 0x40

	// OpPushData1: next 1 byte is a size (1..255), followed by that
	// many literal bytes.
	OpPushData1 Opcode = 0x4c
	// OpPushData2: next 2 bytes (little-endian) are a size (1..512),
	// followed by that many literal bytes.
	OpPushData2 Opcode = 0x4d

	// OpTrue pushes a single non-empty truthy byte.
	OpTrue Opcode = 0x51

	// OpDup duplicates the top stack item.
	OpDup Opcode = 0x76

	// OpHash pops one item and pushes its 64-byte hash.
	OpHash Opcode = 0xa8
	// OpCheckSig pops a pubkey, a SigHash mode byte, then a signature,
	// pushes TRUE/FALSE.
	OpCheckSig Opcode = 0xac
	// OpVerifySig is OpCheckSig but fails the script on a false result.
	OpVerifySig Opcode = 0xad

	// OpCheckEqual pops two items, pushes TRUE/FALSE.
	OpCheckEqual Opcode = 0x87
	// OpVerifyEqual is OpCheckEqual but fails the script on mismatch.
	OpVerifyEqual Opcode = 0x88

	// OpIf pops a boolean and opens a new conditional scope executed
	// only when the popped value is truthy.
	OpIf Opcode = 0x63
	// OpNotIf is OpIf with the popped boolean's sense inverted.
	OpNotIf Opcode = 0x64
	// OpElse flips the branch taken within the current scope.
	OpElse Opcode = 0x67
	// OpEndIf closes the current conditional scope.
	OpEndIf Opcode = 0x68

	// OpVerifyInputLock <n>: fails unless the current input's unlock
	// age is at least n blocks.
	OpVerifyInputLock Opcode = 0xb0
	// OpVerifyTxSeq <n>: fails unless the transaction's sequence
	// number equals n exactly.
	OpVerifyTxSeq Opcode = 0xb1
)

// MaxStackItemSize is the maximum size, in bytes, of a single stack item.
const MaxStackItemSize = 512

// MaxStackTotalSize is the maximum combined size, in bytes, of every
// item on the stack at once.
const MaxStackTotalSize = 16384

// IsPushBytes reports whether op is one of the literal-length push
// opcodes (0x01..0x40), and if so returns the payload length.
func IsPushBytes(op Opcode) (int, bool) {
	if op >= OpPushBytes1 && op <= OpPushBytes64 {
		return int(op), true
	}
	return 0, false
}

// KnownOpcode reports whether op is one this engine recognizes. The
// engine refuses unknown bytes at syntax-check time rather than at
// execution time.
func KnownOpcode(op Opcode) bool {
	if _, ok := IsPushBytes(op); ok {
		return true
	}
	switch op {
	case OpFalse, OpPushData1, OpPushData2, OpTrue, OpDup,
		OpHash, OpCheckSig, OpVerifySig,
		OpCheckEqual, OpVerifyEqual,
		OpIf, OpNotIf, OpElse, OpEndIf,
		OpVerifyInputLock, OpVerifyTxSeq:
		return true
	default:
		return false
	}
}
