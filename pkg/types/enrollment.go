package types

import (
	"encoding/hex"
	"encoding/json"
)

// DefaultCycleLength is the number of blocks a validator stays active
// after enrollment before it must re-enroll.
const DefaultCycleLength = 1008

// Enrollment is a validator's declaration of intent to participate,
// bound to a specific Freeze UTXO and the head of a reverse hash chain.
type Enrollment struct {
	// UTXOKey is hashMulti(tx_hash, out_index) of the Freeze UTXO this
	// enrollment stakes.
	UTXOKey Hash `json:"utxo_key"`
	// CycleLength is the number of blocks this enrollment stays active.
	CycleLength uint32 `json:"cycle_length"`
	// RandomSeed is the head of the validator's pre-image chain:
	// hash(hash(...hash(secret)...)) applied CycleLength times.
	RandomSeed Hash `json:"random_seed"`
	// EnrollSig signs (UTXOKey, CycleLength, RandomSeed) with the key
	// controlling the staked UTXO.
	EnrollSig Signature `json:"enroll_sig"`
}

// enrollmentJSON is the wire representation with a hex-encoded signature.
type enrollmentJSON struct {
	UTXOKey     Hash   `json:"utxo_key"`
	CycleLength uint32 `json:"cycle_length"`
	RandomSeed  Hash   `json:"random_seed"`
	EnrollSig   string `json:"enroll_sig"`
}

// SigningBytes returns the canonical bytes an enrollment signature
// commits to.
func (e Enrollment) SigningBytes() []byte {
	buf := make([]byte, 0, HashSize*2+4)
	buf = append(buf, e.UTXOKey[:]...)
	buf = append(buf, byte(e.CycleLength), byte(e.CycleLength>>8), byte(e.CycleLength>>16), byte(e.CycleLength>>24))
	buf = append(buf, e.RandomSeed[:]...)
	return buf
}

// MarshalJSON encodes the enrollment with a hex-encoded signature.
func (e Enrollment) MarshalJSON() ([]byte, error) {
	return json.Marshal(enrollmentJSON{
		UTXOKey:     e.UTXOKey,
		CycleLength: e.CycleLength,
		RandomSeed:  e.RandomSeed,
		EnrollSig:   hex.EncodeToString(e.EnrollSig[:]),
	})
}

// UnmarshalJSON decodes a hex-encoded signature into the enrollment.
func (e *Enrollment) UnmarshalJSON(data []byte) error {
	var j enrollmentJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	e.UTXOKey = j.UTXOKey
	e.CycleLength = j.CycleLength
	e.RandomSeed = j.RandomSeed
	if j.EnrollSig != "" {
		b, err := hex.DecodeString(j.EnrollSig)
		if err != nil {
			return err
		}
		sig, err := SignatureFromBytes(b)
		if err != nil {
			return err
		}
		e.EnrollSig = sig
	}
	return nil
}
