package script

import "errors"

// Sentinel errors returned by script syntax checking and execution.
// Every failure is a plain error value; the engine never panics.
var (
	ErrUnknownOpcode       = errors.New("script: unknown opcode")
	ErrTruncatedPush       = errors.New("script: push opcode truncated before end of script")
	ErrPushSizeOutOfRange  = errors.New("script: push size out of range (1..512)")
	ErrStackItemTooLarge   = errors.New("script: stack item exceeds maximum size")
	ErrStackTotalTooLarge  = errors.New("script: combined stack size exceeds maximum")
	ErrStackUnderflow      = errors.New("script: opcode requires an item on the stack")
	ErrUnbalancedIf        = errors.New("script: unterminated IF scope at end of script")
	ErrElseWithoutIf       = errors.New("script: ELSE without matching IF")
	ErrEndIfWithoutIf      = errors.New("script: END_IF without matching IF")
	ErrHashFailed          = errors.New("script: HASH opcode requires an item on the stack")
	ErrSignatureInvalid    = errors.New("script: VERIFY_SIG signature failed validation")
	ErrEqualityFailed      = errors.New("script: VERIFY_EQUAL items are not equal")
	ErrInputLockNotMet     = errors.New("script: VERIFY_INPUT_LOCK unlock age below required minimum")
	ErrTxSeqMismatch       = errors.New("script: VERIFY_TX_SEQ mismatch")
	ErrFinalValueNotTrue   = errors.New("script: final stack value is not TRUE")
	ErrInvalidLockData     = errors.New("script: lock data has the wrong size for its type")
	ErrInvalidUnlockData   = errors.New("script: unlock data has the wrong size for its lock type")
	ErrScriptHashMismatch  = errors.New("script: redeem script hash does not match lock")
	ErrMissingRedeemScript = errors.New("script: ScriptHash unlock is missing the redeem script")
	ErrInvalidSigHash      = errors.New("script: invalid or unsupported SigHash mode")
)
