package script

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/bosagora-go/agora-node/pkg/crypto"
	"github.com/bosagora-go/agora-node/pkg/types"
)

// CheckSyntax walks a script verifying every opcode byte is known and
// every push/immediate has enough trailing bytes, without executing
// anything. The engine refuses unknown bytes at this stage rather than
// at execution time.
func CheckSyntax(code []byte) error {
	i := 0
	for i < len(code) {
		op := code[i]
		if n, ok := IsPushBytes(op); ok {
			i++
			if i+n > len(code) {
				return ErrTruncatedPush
			}
			i += n
			continue
		}
		switch op {
		case OpPushData1:
			if i+1 >= len(code) {
				return ErrTruncatedPush
			}
			n := int(code[i+1])
			if n < 1 || n > MaxStackItemSize {
				return ErrPushSizeOutOfRange
			}
			i += 2
			if i+n > len(code) {
				return ErrTruncatedPush
			}
			i += n
		case OpPushData2:
			if i+2 >= len(code) {
				return ErrTruncatedPush
			}
			n := int(binary.LittleEndian.Uint16(code[i+1 : i+3]))
			if n < 1 || n > MaxStackItemSize {
				return ErrPushSizeOutOfRange
			}
			i += 3
			if i+n > len(code) {
				return ErrTruncatedPush
			}
			i += n
		case OpVerifyInputLock, OpVerifyTxSeq:
			if i+1+8 > len(code) {
				return ErrTruncatedPush
			}
			i += 1 + 8
		case OpFalse, OpTrue, OpDup, OpHash, OpCheckSig, OpVerifySig,
			OpCheckEqual, OpVerifyEqual, OpIf, OpNotIf, OpElse, OpEndIf:
			i++
		default:
			return fmt.Errorf("%w: 0x%02x", ErrUnknownOpcode, op)
		}
	}
	return nil
}

// Execute runs code against st, using ctx to resolve signature
// challenges and input/sequence state, and inputIndex to identify the
// input currently being spent. It returns an error immediately on any
// execution failure; scripts never panic.
func Execute(code []byte, st *stack, ctx Context, inputIndex int) error {
	if err := CheckSyntax(code); err != nil {
		return err
	}

	cond := newCondStack()
	i := 0
	for i < len(code) {
		op := code[i]

		if n, ok := IsPushBytes(op); ok {
			i++
			payload := code[i : i+n]
			i += n
			if cond.executing() {
				if err := st.push(append([]byte(nil), payload...)); err != nil {
					return err
				}
			}
			continue
		}

		switch op {
		case OpPushData1:
			n := int(code[i+1])
			i += 2
			payload := code[i : i+n]
			i += n
			if cond.executing() {
				if err := st.push(append([]byte(nil), payload...)); err != nil {
					return err
				}
			}

		case OpPushData2:
			n := int(binary.LittleEndian.Uint16(code[i+1 : i+3]))
			i += 3
			payload := code[i : i+n]
			i += n
			if cond.executing() {
				if err := st.push(append([]byte(nil), payload...)); err != nil {
					return err
				}
			}

		case OpFalse:
			i++
			if cond.executing() {
				if err := st.push(falseItem); err != nil {
					return err
				}
			}

		case OpTrue:
			i++
			if cond.executing() {
				if err := st.push(trueItem); err != nil {
					return err
				}
			}

		case OpDup:
			i++
			if cond.executing() {
				top, err := st.top()
				if err != nil {
					return err
				}
				if err := st.push(append([]byte(nil), top...)); err != nil {
					return err
				}
			}

		case OpHash:
			i++
			if cond.executing() {
				item, err := st.pop()
				if err != nil {
					return ErrHashFailed
				}
				h := crypto.Hash(item)
				if err := st.push(h[:]); err != nil {
					return err
				}
			}

		case OpCheckSig, OpVerifySig:
			i++
			if cond.executing() {
				ok, err := evalCheckSig(st, ctx, inputIndex)
				if err != nil && op == OpVerifySig {
					return err
				}
				if op == OpCheckSig {
					if ok {
						if err := st.push(trueItem); err != nil {
							return err
						}
					} else {
						if err := st.push(falseItem); err != nil {
							return err
						}
					}
				}
			}

		case OpCheckEqual, OpVerifyEqual:
			i++
			if cond.executing() {
				a, err := st.pop()
				if err != nil {
					return err
				}
				b, err := st.pop()
				if err != nil {
					return err
				}
				eq := bytes.Equal(a, b)
				if op == OpVerifyEqual {
					if !eq {
						return ErrEqualityFailed
					}
				} else {
					if eq {
						if err := st.push(trueItem); err != nil {
							return err
						}
					} else {
						if err := st.push(falseItem); err != nil {
							return err
						}
					}
				}
			}

		case OpIf, OpNotIf:
			i++
			if cond.executing() {
				item, err := st.pop()
				if err != nil {
					return err
				}
				want := truthy(item)
				if op == OpNotIf {
					want = !want
				}
				cond.pushIf(want)
			} else {
				cond.pushIf(false)
			}

		case OpElse:
			i++
			if err := cond.handleElse(); err != nil {
				return err
			}

		case OpEndIf:
			i++
			if err := cond.handleEndIf(); err != nil {
				return err
			}

		case OpVerifyInputLock:
			n := binary.LittleEndian.Uint64(code[i+1 : i+9])
			i += 9
			if cond.executing() {
				if uint64(ctx.InputUnlockAge(inputIndex)) < n {
					return ErrInputLockNotMet
				}
			}

		case OpVerifyTxSeq:
			n := binary.LittleEndian.Uint64(code[i+1 : i+9])
			i += 9
			if cond.executing() {
				if ctx.SequenceID() != n {
					return ErrTxSeqMismatch
				}
			}

		default:
			return fmt.Errorf("%w: 0x%02x", ErrUnknownOpcode, op)
		}
	}

	if !cond.balanced() {
		return ErrUnbalancedIf
	}
	return nil
}

// evalCheckSig pops (pubkey, sigHash-mode byte, signature) off the
// stack — in that order, top to bottom — and verifies the signature
// against the challenge hash for the given mode and input index.
func evalCheckSig(st *stack, ctx Context, inputIndex int) (bool, error) {
	pubBytes, err := st.pop()
	if err != nil {
		return false, err
	}
	modeBytes, err := st.pop()
	if err != nil {
		return false, err
	}
	sigBytes, err := st.pop()
	if err != nil {
		return false, err
	}

	if len(pubBytes) != types.PublicKeySize {
		return false, ErrInvalidUnlockData
	}
	if len(sigBytes) != types.SignatureSize {
		return false, ErrInvalidUnlockData
	}
	if len(modeBytes) != 1 {
		return false, ErrInvalidSigHash
	}

	sigHash := types.SigHash(modeBytes[0])
	if !sigHash.Valid() {
		return false, ErrInvalidSigHash
	}

	var pub types.PublicKey
	copy(pub[:], pubBytes)
	var sig types.Signature
	copy(sig[:], sigBytes)

	challenge, err := ctx.Challenge(sigHash, inputIndex)
	if err != nil {
		return false, err
	}

	if !crypto.VerifySignature(challenge, sig, pub) {
		return false, ErrSignatureInvalid
	}
	return true, nil
}
