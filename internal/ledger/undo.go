package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/bosagora-go/agora-node/pkg/tx"
	"github.com/bosagora-go/agora-node/pkg/types"
)

// spentOutput pairs a spent outpoint with the UTXO it used to point to,
// so it can be recreated on rollback.
type spentOutput struct {
	Outpoint types.Outpoint `json:"outpoint"`
	UTXO     tx.UTXO        `json:"utxo"`
}

// undoRecord captures everything AcceptBlock needs to reverse if the
// block turns out to be invalid partway through application, and
// everything a later rollback (spec §4.7's atomic-commit semantics)
// needs to unwind an already-committed block.
type undoRecord struct {
	SpentOutputs     []spentOutput    `json:"spent_outputs"`
	CreatedOutpoints []types.Outpoint `json:"created_outpoints"`
	EnrolledUTXOKeys []types.Hash     `json:"enrolled_utxo_keys"`
	PrevHeight       uint64           `json:"prev_height"`
	PrevTipHash      types.Hash       `json:"prev_tip_hash"`
}

func (u *undoRecord) marshal() ([]byte, error) {
	data, err := json.Marshal(u)
	if err != nil {
		return nil, fmt.Errorf("undo marshal: %w", err)
	}
	return data, nil
}

func unmarshalUndo(data []byte) (*undoRecord, error) {
	var u undoRecord
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("undo unmarshal: %w", err)
	}
	return &u, nil
}
