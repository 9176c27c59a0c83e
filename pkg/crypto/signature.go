package crypto

import (
	"crypto/rand"
	"fmt"

	"github.com/bosagora-go/agora-node/pkg/types"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Signer signs challenge hashes with a private key.
type Signer interface {
	// Sign produces a Schnorr signature over a challenge hash.
	Sign(hash types.Hash) (types.Signature, error)
	// PublicKey returns the compressed public key.
	PublicKey() types.PublicKey
}

// Verifier verifies Schnorr signatures.
type Verifier interface {
	Verify(hash types.Hash, signature types.Signature, publicKey types.PublicKey) bool
}

// PrivateKey wraps a secp256k1 scalar used as a signing or nonce key.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// GenerateKey creates a new random private key.
func GenerateKey() (*PrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &PrivateKey{key: key}, nil
}

// PrivateKeyFromBytes creates a PrivateKey from a 32-byte scalar.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != types.ScalarSize {
		return nil, fmt.Errorf("private key must be %d bytes, got %d", types.ScalarSize, len(b))
	}
	return &PrivateKey{key: secp256k1.PrivKeyFromBytes(b)}, nil
}

// PublicKey returns the compressed public key.
func (pk *PrivateKey) PublicKey() types.PublicKey {
	pub, _ := types.PublicKeyFromBytes(pk.key.PubKey().SerializeCompressed())
	return pub
}

// scalar returns the private scalar as a ModNScalar for use in the
// aggregation arithmetic in aggregate.go.
func (pk *PrivateKey) scalar() secp256k1.ModNScalar {
	var s secp256k1.ModNScalar
	s.SetByteSlice(pk.key.Serialize())
	return s
}

// Serialize returns the 32-byte private key scalar.
func (pk *PrivateKey) Serialize() []byte {
	return pk.key.Serialize()
}

// Zero securely zeroes the private key memory.
func (pk *PrivateKey) Zero() {
	pk.key.Zero()
}

// Sign produces a single-signer Schnorr signature over a challenge
// hash, drawing a fresh random nonce. It is the n=1 case of the
// aggregation protocol in aggregate.go.
func (pk *PrivateKey) Sign(hash types.Hash) (types.Signature, error) {
	nonce, err := GenerateKey()
	if err != nil {
		return types.Signature{}, fmt.Errorf("generate nonce: %w", err)
	}
	defer nonce.Zero()

	R := nonce.PublicKey()
	P := pk.PublicKey()

	s, err := SignPartial(pk, nonce, R, P, hash)
	if err != nil {
		return types.Signature{}, err
	}
	return AggregateSignatures(R, []types.Scalar{s}), nil
}

// randomNonceBytes returns 32 cryptographically random bytes.
func randomNonceBytes() ([]byte, error) {
	b := make([]byte, types.ScalarSize)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// VerifySignature checks a (possibly aggregate) Schnorr signature
// against a challenge hash and a public key. Returns false on any
// malformed input or failed verification.
func VerifySignature(hash types.Hash, signature types.Signature, publicKey types.PublicKey) bool {
	return VerifyAggregate(publicKey, signature, hash)
}

// SchnorrVerifier implements the Verifier interface.
type SchnorrVerifier struct{}

// Verify checks a Schnorr signature against a hash and compressed public key.
func (v SchnorrVerifier) Verify(hash types.Hash, signature types.Signature, publicKey types.PublicKey) bool {
	return VerifySignature(hash, signature, publicKey)
}
