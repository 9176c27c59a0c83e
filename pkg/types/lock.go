package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// LockType selects how an Output's Lock is interpreted by the script
// engine's two-phase evaluation.
type LockType uint8

const (
	// LockKey locks directly to a 33-byte compressed public key; the
	// unlock is a bare 65-byte signature verified against the per-input
	// challenge hash, with no stack evaluation at all.
	LockKey LockType = iota
	// LockKeyHash locks to hash(pubkey); the unlock carries the
	// signature and the revealed public key.
	LockKeyHash
	// LockScript locks to a raw opcode stream, executed against the
	// unlock script's stack.
	LockScript
	// LockScriptHash locks to hash(redeem_script); the unlock's top
	// stack item (after its own pushes execute) must be the redeem
	// script whose hash matches, and that script is then evaluated.
	LockScriptHash
)

// String returns a human-readable lock type name.
func (lt LockType) String() string {
	switch lt {
	case LockKey:
		return "Key"
	case LockKeyHash:
		return "KeyHash"
	case LockScript:
		return "Script"
	case LockScriptHash:
		return "ScriptHash"
	default:
		return "Unknown"
	}
}

// Lock is the tagged union describing how an Output may be spent.
type Lock struct {
	Type LockType `json:"type"`
	Data []byte   `json:"data"`
}

// lockJSON is the wire representation with hex-encoded Data.
type lockJSON struct {
	Type LockType `json:"type"`
	Data string   `json:"data"`
}

// MarshalJSON encodes the lock with hex-encoded data.
func (l Lock) MarshalJSON() ([]byte, error) {
	return json.Marshal(lockJSON{Type: l.Type, Data: hex.EncodeToString(l.Data)})
}

// UnmarshalJSON decodes a lock with hex-encoded data.
func (l *Lock) UnmarshalJSON(data []byte) error {
	var j lockJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	l.Type = j.Type
	if j.Data != "" {
		b, err := hex.DecodeString(j.Data)
		if err != nil {
			return fmt.Errorf("invalid lock data hex: %w", err)
		}
		l.Data = b
	} else {
		l.Data = nil
	}
	return nil
}

// LockKeyFor builds a direct-key lock from a public key.
func LockKeyFor(pub PublicKey) Lock {
	return Lock{Type: LockKey, Data: pub.Bytes()}
}

// LockKeyHashFor builds a key-hash lock from a 64-byte pubkey hash.
func LockKeyHashFor(h Hash) Lock {
	return Lock{Type: LockKeyHash, Data: h.Bytes()}
}

// LockScriptFor builds a raw-script lock from opcode bytes.
func LockScriptFor(opcodes []byte) Lock {
	return Lock{Type: LockScript, Data: opcodes}
}

// LockScriptHashFor builds a script-hash lock from a 64-byte script hash.
func LockScriptHashFor(h Hash) Lock {
	return Lock{Type: LockScriptHash, Data: h.Bytes()}
}

// SigHash selects which bytes of a transaction a signature commits to.
type SigHash uint8

const (
	// SigHashAll signs the entire transaction.
	SigHashAll SigHash = iota
	// SigHashNoInput signs the transaction with the matching input
	// blanked, so the same signature remains valid after the input's
	// prior-output reference changes (used by floating Eltoo txs).
	SigHashNoInput
)

// String returns a human-readable SigHash name.
func (s SigHash) String() string {
	switch s {
	case SigHashAll:
		return "All"
	case SigHashNoInput:
		return "NoInput"
	default:
		return "Unknown"
	}
}

// Valid reports whether s is a recognized SigHash mode.
func (s SigHash) Valid() bool {
	return s == SigHashAll || s == SigHashNoInput
}
