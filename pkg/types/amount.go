package types

import "math"

// MinFreezeAmount is the minimum sum of Payment UTXOs a Freeze
// transaction may lock to confer validator eligibility.
const MinFreezeAmount = 40_000

// MeltLockBlocks is the number of blocks a Payment UTXO that melted
// from a Freeze must wait before it is spendable again.
const MeltLockBlocks = 2016

// AmountValidity distinguishes the three states an Amount computation
// can settle into, so overflow is never silently confused with zero.
type AmountValidity uint8

const (
	// AmountValid indicates a well-defined, non-overflowing value.
	AmountValid AmountValidity = iota
	// AmountZero indicates a well-defined value of exactly zero.
	AmountZero
	// AmountInvalid indicates the computation overflowed or underflowed.
	AmountInvalid
)

// Amount is a non-negative integer quantity of the base unit, with
// saturating-checked arithmetic that reports overflow/underflow instead
// of wrapping.
type Amount uint64

// Validity reports which of AmountValid/AmountZero/AmountInvalid this
// amount represents. An Amount constructed directly (not via Add/Sub) is
// always either AmountZero or AmountValid.
func (a Amount) Validity() AmountValidity {
	if a == 0 {
		return AmountZero
	}
	return AmountValid
}

// IsValid reports true for every Amount: any uint64 value is usable. A
// failed Add, Sub or SumAmounts is reported through its AmountValidity
// result, not through a sentinel Amount.
func (a Amount) IsValid() bool {
	return true
}

// Add returns a+b and an AmountValidity; on uint64 overflow it returns
// (0, AmountInvalid) rather than wrapping.
func Add(a, b Amount) (Amount, AmountValidity) {
	if a > math.MaxUint64-b {
		return 0, AmountInvalid
	}
	sum := a + b
	if sum == 0 {
		return 0, AmountZero
	}
	return sum, AmountValid
}

// Sub returns a-b and an AmountValidity; on underflow (b > a) it returns
// (0, AmountInvalid).
func Sub(a, b Amount) (Amount, AmountValidity) {
	if b > a {
		return 0, AmountInvalid
	}
	diff := a - b
	if diff == 0 {
		return 0, AmountZero
	}
	return diff, AmountValid
}

// SumAmounts adds a slice of amounts with saturating-checked overflow
// detection, short-circuiting on the first overflow.
func SumAmounts(amounts []Amount) (Amount, AmountValidity) {
	var total Amount
	for _, a := range amounts {
		next, validity := Add(total, a)
		if validity == AmountInvalid {
			return 0, AmountInvalid
		}
		total = next
	}
	if total == 0 {
		return 0, AmountZero
	}
	return total, AmountValid
}
