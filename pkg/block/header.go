package block

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"

	"github.com/bosagora-go/agora-node/pkg/crypto"
	"github.com/bosagora-go/agora-node/pkg/types"
)

// Header contains block metadata: chain linkage, the externalized
// validator set's combined signature over the block, and any new
// enrollments this block admits.
type Header struct {
	PrevBlockHash types.Hash `json:"prev_block_hash"`
	Height        uint64     `json:"height"`
	MerkleRoot    types.Hash `json:"merkle_root"`

	// ValidatorBitmask has one bit per member of the active validator
	// set, sorted by public key, set when that validator contributed
	// to AggregateSignature.
	ValidatorBitmask []byte `json:"validator_bitmask"`
	// AggregateSignature is the Schnorr sum of every signing
	// validator's partial signature over SigningBytes.
	AggregateSignature types.Signature `json:"aggregate_signature"`

	Enrollments []types.Enrollment `json:"enrollments"`
}

// headerJSON is the wire representation with hex-encoded bitmask.
type headerJSON struct {
	PrevBlockHash      types.Hash        `json:"prev_block_hash"`
	Height             uint64            `json:"height"`
	MerkleRoot         types.Hash        `json:"merkle_root"`
	ValidatorBitmask   string            `json:"validator_bitmask"`
	AggregateSignature types.Signature   `json:"aggregate_signature"`
	Enrollments        []types.Enrollment `json:"enrollments"`
}

// MarshalJSON encodes the header with a hex-encoded validator bitmask.
func (h *Header) MarshalJSON() ([]byte, error) {
	return json.Marshal(headerJSON{
		PrevBlockHash:      h.PrevBlockHash,
		Height:             h.Height,
		MerkleRoot:         h.MerkleRoot,
		ValidatorBitmask:   hex.EncodeToString(h.ValidatorBitmask),
		AggregateSignature: h.AggregateSignature,
		Enrollments:        h.Enrollments,
	})
}

// UnmarshalJSON decodes a header with a hex-encoded validator bitmask.
func (h *Header) UnmarshalJSON(data []byte) error {
	var j headerJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	h.PrevBlockHash = j.PrevBlockHash
	h.Height = j.Height
	h.MerkleRoot = j.MerkleRoot
	h.AggregateSignature = j.AggregateSignature
	h.Enrollments = j.Enrollments
	if j.ValidatorBitmask != "" {
		b, err := hex.DecodeString(j.ValidatorBitmask)
		if err != nil {
			return err
		}
		h.ValidatorBitmask = b
	}
	return nil
}

// Hash computes the block header hash, used as PrevBlockHash by the
// next block. It covers the same bytes as SigningBytes, so a block's
// hash does not change once its signature is attached.
func (h *Header) Hash() types.Hash {
	return crypto.Hash(h.SigningBytes())
}

// SigningBytes returns the canonical bytes the combined validator
// signature commits to: chain linkage, merkle root, and the new
// enrollments, but neither the bitmask nor the signature itself (both
// are produced only once the signing round completes).
func (h *Header) SigningBytes() []byte {
	buf := make([]byte, 0, types.HashSize*2+8+4)
	buf = append(buf, h.PrevBlockHash[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, h.Height)
	buf = append(buf, h.MerkleRoot[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(h.Enrollments)))
	for _, e := range h.Enrollments {
		buf = append(buf, e.SigningBytes()...)
	}
	return buf
}

// BitSet reports whether the validator at sorted index i contributed
// to AggregateSignature.
func (h *Header) BitSet(i int) bool {
	byteIdx := i / 8
	if byteIdx >= len(h.ValidatorBitmask) {
		return false
	}
	return h.ValidatorBitmask[byteIdx]&(1<<uint(i%8)) != 0
}

// SetBit marks the validator at sorted index i as having contributed
// to AggregateSignature, growing the bitmask if needed.
func (h *Header) SetBit(i int) {
	byteIdx := i / 8
	for len(h.ValidatorBitmask) <= byteIdx {
		h.ValidatorBitmask = append(h.ValidatorBitmask, 0)
	}
	h.ValidatorBitmask[byteIdx] |= 1 << uint(i%8)
}
