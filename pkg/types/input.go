package types

import (
	"encoding/hex"
	"encoding/json"
)

// Input references a previous output and carries the data needed to
// satisfy its lock. UnlockAge is the number of blocks that have passed
// since the referenced UTXO became spendable at the time the spending
// transaction is built; the script engine's VERIFY_INPUT_LOCK opcode
// checks it against a minimum.
type Input struct {
	PrevOut   Outpoint `json:"prev_out"`
	UnlockAge uint32   `json:"unlock_age"`
	Unlock    []byte   `json:"unlock"`
}

// inputJSON is the wire representation with hex-encoded Unlock.
type inputJSON struct {
	PrevOut   Outpoint `json:"prev_out"`
	UnlockAge uint32   `json:"unlock_age"`
	Unlock    string   `json:"unlock"`
}

// MarshalJSON encodes the input with hex-encoded unlock data.
func (in Input) MarshalJSON() ([]byte, error) {
	return json.Marshal(inputJSON{
		PrevOut:   in.PrevOut,
		UnlockAge: in.UnlockAge,
		Unlock:    hex.EncodeToString(in.Unlock),
	})
}

// UnmarshalJSON decodes a hex-encoded unlock field into an input.
func (in *Input) UnmarshalJSON(data []byte) error {
	var j inputJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	in.PrevOut = j.PrevOut
	in.UnlockAge = j.UnlockAge
	if j.Unlock != "" {
		b, err := hex.DecodeString(j.Unlock)
		if err != nil {
			return err
		}
		in.Unlock = b
	} else {
		in.Unlock = nil
	}
	return nil
}
