package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// PublicKeySize is the length of a public key in bytes. The original
// design encodes curve points as 32-byte values (Ed25519); this node
// backs the same algebra with compressed secp256k1 points (33 bytes),
// so every "32-byte public key" in the design maps to this constant.
const PublicKeySize = 33

// ScalarSize is the length of a scalar value in bytes.
const ScalarSize = 32

// SignatureSize is the length of a Schnorr signature: a compressed
// curve point (R) followed by a 32-byte scalar (s). The design's
// Ed25519 encoding packs a signature into 64 bytes because Ed25519
// points have a unique 32-byte encoding; this node's secp256k1 points
// need a sign bit alongside the x-coordinate to round-trip through
// point addition during aggregation, so R is carried as the full
// 33-byte compressed point rather than an x-only 32-byte value.
const SignatureSize = PublicKeySize + ScalarSize

// PublicKeyHRP is the bech32 human-readable part used to render a
// PublicKey as a string.
const PublicKeyHRP = "agp"

// PublicKey is a compressed curve point identifying a validator,
// channel party, or output owner.
type PublicKey [PublicKeySize]byte

// IsZero reports whether the key is the zero value (never a valid point).
func (p PublicKey) IsZero() bool {
	return p == PublicKey{}
}

// Bytes returns a copy of the key as a byte slice.
func (p PublicKey) Bytes() []byte {
	b := make([]byte, PublicKeySize)
	copy(b, p[:])
	return b
}

// String returns the bech32-encoded public key.
func (p PublicKey) String() string {
	s, err := Bech32Encode(PublicKeyHRP, p[:])
	if err != nil {
		return hex.EncodeToString(p[:])
	}
	return s
}

// Less orders two public keys lexicographically. The quorum builder and
// signature aggregator require a deterministic sort order over signers.
func (p PublicKey) Less(other PublicKey) bool {
	for i := range p {
		if p[i] != other[i] {
			return p[i] < other[i]
		}
	}
	return false
}

// MarshalJSON encodes the public key as a hex string.
func (p PublicKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(p[:]))
}

// UnmarshalJSON decodes a hex string into a public key.
func (p *PublicKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*p = PublicKey{}
		return nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("invalid public key hex: %w", err)
	}
	if len(b) != PublicKeySize {
		return fmt.Errorf("public key must be %d bytes, got %d", PublicKeySize, len(b))
	}
	copy(p[:], b)
	return nil
}

// PublicKeyFromBytes builds a PublicKey from a byte slice of the right length.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	if len(b) != PublicKeySize {
		return PublicKey{}, fmt.Errorf("public key must be %d bytes, got %d", PublicKeySize, len(b))
	}
	var p PublicKey
	copy(p[:], b)
	return p, nil
}

// ParsePublicKey parses either a bech32-encoded or raw-hex public key string.
func ParsePublicKey(s string) (PublicKey, error) {
	if s == "" {
		return PublicKey{}, fmt.Errorf("empty public key")
	}
	if _, data, err := Bech32Decode(s); err == nil && len(data) == PublicKeySize {
		var p PublicKey
		copy(p[:], data)
		return p, nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return PublicKey{}, fmt.Errorf("invalid public key: %w", err)
	}
	return PublicKeyFromBytes(b)
}

// Scalar is a value modulo the curve order, used for nonces, signature
// scalars, and the per-sequence settlement-key offsets in Flash.
type Scalar [ScalarSize]byte

// Bytes returns a copy of the scalar as a byte slice.
func (s Scalar) Bytes() []byte {
	b := make([]byte, ScalarSize)
	copy(b, s[:])
	return b
}

// Signature is a Schnorr signature: 33-byte compressed R followed by
// 32-byte s.
type Signature [SignatureSize]byte

// Bytes returns a copy of the signature as a byte slice.
func (s Signature) Bytes() []byte {
	b := make([]byte, SignatureSize)
	copy(b, s[:])
	return b
}

// IsZero reports whether the signature is the zero value.
func (s Signature) IsZero() bool {
	return s == Signature{}
}

// String returns the hex-encoded signature.
func (s Signature) String() string {
	return hex.EncodeToString(s[:])
}

// MarshalJSON encodes the signature as a hex string.
func (s Signature) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a hex string into a signature.
func (s *Signature) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	if str == "" {
		*s = Signature{}
		return nil
	}
	b, err := hex.DecodeString(str)
	if err != nil {
		return fmt.Errorf("invalid signature hex: %w", err)
	}
	if len(b) != SignatureSize {
		return fmt.Errorf("signature must be %d bytes, got %d", SignatureSize, len(b))
	}
	copy(s[:], b)
	return nil
}

// SignatureFromBytes builds a Signature from a byte slice of the right length.
func SignatureFromBytes(b []byte) (Signature, error) {
	if len(b) != SignatureSize {
		return Signature{}, fmt.Errorf("signature must be %d bytes, got %d", SignatureSize, len(b))
	}
	var s Signature
	copy(s[:], b)
	return s, nil
}
