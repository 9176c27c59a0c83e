package ledger

import "github.com/bosagora-go/agora-node/pkg/types"

// State holds the current chain tip.
type State struct {
	Height  uint64
	TipHash types.Hash
}

// IsGenesis reports whether no blocks have been accepted yet.
func (s *State) IsGenesis() bool {
	return s.Height == 0 && s.TipHash.IsZero()
}
