// Package crypto provides the cryptographic primitives Agora's core
// subsystems build on: hashing, Schnorr signing/verification, and
// multi-signature aggregation.
package crypto

import (
	"io"

	"github.com/bosagora-go/agora-node/pkg/types"
	"github.com/zeebo/blake3"
)

// Hash computes the 64-byte BLAKE3 digest of data. BLAKE3 is an
// extendable-output function; Agora widens the conventional 32-byte
// digest to 64 bytes by reading further from the same sponge rather
// than hashing twice, so Hash(a) and Hash(a) agree in their first 32
// bytes with the narrower digest other BLAKE3 users compute.
func Hash(data []byte) types.Hash {
	h := blake3.New()
	h.Write(data)
	var out types.Hash
	if _, err := io.ReadFull(h.Digest(), out[:]); err != nil {
		panic("crypto: blake3 digest read failed: " + err.Error())
	}
	return out
}

// HashFull is an alias for Hash kept for call sites that mirror the
// design's "hashFull" naming (pre-image chains, quorum seed derivation).
func HashFull(data []byte) types.Hash {
	return Hash(data)
}

// HashMulti hashes the concatenation of an arbitrary number of byte
// slices. Order is significant: hashMulti(a,b,c) != hashMulti(c,b,a).
func HashMulti(parts ...[]byte) types.Hash {
	h := blake3.New()
	for _, p := range parts {
		h.Write(p)
	}
	var out types.Hash
	if _, err := io.ReadFull(h.Digest(), out[:]); err != nil {
		panic("crypto: blake3 digest read failed: " + err.Error())
	}
	return out
}

// DoubleHash computes Hash(Hash(data).Bytes()).
func DoubleHash(data []byte) types.Hash {
	first := Hash(data)
	return Hash(first[:])
}

// HashConcat hashes the concatenation of two hashes. Used for Merkle
// tree construction.
func HashConcat(a, b types.Hash) types.Hash {
	var buf [types.HashSize * 2]byte
	copy(buf[:types.HashSize], a[:])
	copy(buf[types.HashSize:], b[:])
	return Hash(buf[:])
}
