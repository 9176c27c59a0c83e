package ledger

import (
	"sort"

	"github.com/bosagora-go/agora-node/pkg/tx"
	"github.com/bosagora-go/agora-node/pkg/types"
)

// ConsensusData is the payload nodes nominate and vote on: the set of
// transactions and enrollments a block should contain next.
type ConsensusData struct {
	TxSet   []*tx.Transaction  `json:"tx_set"`
	Enrolls []types.Enrollment `json:"enrolls"`
}

// sortTxSet orders a transaction set by ascending hash, the
// deterministic order a block's transactions must appear in.
func sortTxSet(txs []*tx.Transaction) {
	sort.Slice(txs, func(i, j int) bool {
		hi, hj := txs[i].Hash(), txs[j].Hash()
		return lessHash(hi, hj)
	})
}

func lessHash(a, b types.Hash) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
