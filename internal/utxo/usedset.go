package utxo

import (
	"github.com/bosagora-go/agora-node/pkg/tx"
	"github.com/bosagora-go/agora-node/pkg/types"
)

// UsedSet wraps a tx.UTXOProvider so that a second lookup of the same
// outpoint within one block fails, turning block-local double-spends
// into ordinary "input not found" validation errors without the
// underlying Set being touched until the block actually commits.
type UsedSet struct {
	base tx.UTXOProvider
	seen map[types.Outpoint]bool
}

// NewUsedSet wraps base for the duration of a single block's
// validation pass.
func NewUsedSet(base tx.UTXOProvider) *UsedSet {
	return &UsedSet{base: base, seen: make(map[types.Outpoint]bool)}
}

// FindUTXO implements tx.UTXOProvider. The first lookup of an outpoint
// delegates to base and marks it seen; every subsequent lookup of the
// same outpoint reports not found, regardless of base's state.
func (u *UsedSet) FindUTXO(outpoint types.Outpoint) (tx.UTXO, bool) {
	if u.seen[outpoint] {
		return tx.UTXO{}, false
	}
	found, ok := u.base.FindUTXO(outpoint)
	if ok {
		u.seen[outpoint] = true
	}
	return found, ok
}
