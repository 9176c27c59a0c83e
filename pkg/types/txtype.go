package types

// TxType discriminates the three transaction kinds the ledger knows
// about. Validation rules (§3) branch on this tag.
type TxType uint8

const (
	// TxPayment spends Payment or Freeze UTXOs to produce new UTXOs
	// usable as plain value.
	TxPayment TxType = iota
	// TxFreeze locks Payment UTXOs into a single validator-eligible
	// Freeze UTXO of at least MinFreezeAmount.
	TxFreeze
	// TxCoinbase is the block-reward transaction; its single input is
	// a zeroed outpoint and it is exempt from signature checks.
	TxCoinbase
)

// String returns a human-readable transaction type name.
func (t TxType) String() string {
	switch t {
	case TxPayment:
		return "Payment"
	case TxFreeze:
		return "Freeze"
	case TxCoinbase:
		return "Coinbase"
	default:
		return "Unknown"
	}
}

// Valid reports whether t is a recognized transaction type.
func (t TxType) Valid() bool {
	return t == TxPayment || t == TxFreeze || t == TxCoinbase
}
