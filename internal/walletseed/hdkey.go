package walletseed

import (
	"fmt"

	"github.com/bosagora-go/agora-node/pkg/crypto"
	"github.com/tyler-smith/go-bip32"
)

// Derivation path constants, in the style of BIP-44's
// m/purpose'/coin_type'/role'/branch/index, but rooted at a role
// (validator enrollment key vs. Flash base key) instead of an account.
const (
	// PurposeAgora is the purpose field (hardened).
	PurposeAgora = bip32.FirstHardenedChild + 44

	// CoinTypeAgora is our registered (placeholder) coin type (hardened).
	// TODO: register an actual SLIP-44 coin type.
	CoinTypeAgora = bip32.FirstHardenedChild + 8888

	// RoleValidator selects the validator enrollment key branch (hardened).
	RoleValidator = bip32.FirstHardenedChild + 0

	// RoleFlash selects the Flash signing key branch (hardened).
	RoleFlash = bip32.FirstHardenedChild + 1

	// flashBaseIndex is the Flash base signing key, at branch/index 0/0.
	flashBaseBranch = 0
	flashBaseIndex  = 0

	// flashNonceBranch holds per-channel nonce keys, indexed by channel
	// sequence number so each channel gets an independent nonce key
	// without needing extra keystore state.
	flashNonceBranch = 1
)

// HDKey wraps a BIP-32 extended key.
type HDKey struct {
	key *bip32.Key
}

// NewMasterKey creates a master HD key from a 64-byte seed.
func NewMasterKey(seed []byte) (*HDKey, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", SeedSize, len(seed))
	}
	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("create master key: %w", err)
	}
	return &HDKey{key: master}, nil
}

// DeriveChild derives a child key at the given index. For hardened
// derivation, add bip32.FirstHardenedChild to the index.
func (k *HDKey) DeriveChild(index uint32) (*HDKey, error) {
	child, err := k.key.NewChildKey(index)
	if err != nil {
		return nil, fmt.Errorf("derive child %d: %w", index, err)
	}
	return &HDKey{key: child}, nil
}

// DerivePath derives a key along a sequence of indices.
func (k *HDKey) DerivePath(indices ...uint32) (*HDKey, error) {
	current := k
	for _, idx := range indices {
		child, err := current.DeriveChild(idx)
		if err != nil {
			return nil, err
		}
		current = child
	}
	return current, nil
}

// DeriveValidatorKey derives this seed's validator enrollment key, at
// m/44'/8888'/0'/0/0. This is the key enrolled via a Freeze UTXO and
// used to sign pre-image reveals.
func (k *HDKey) DeriveValidatorKey() (*HDKey, error) {
	return k.DerivePath(PurposeAgora, CoinTypeAgora, RoleValidator, flashBaseBranch, flashBaseIndex)
}

// DeriveFlashBaseKey derives this seed's Flash base signing key, at
// m/44'/8888'/1'/0/0.
func (k *HDKey) DeriveFlashBaseKey() (*HDKey, error) {
	return k.DerivePath(PurposeAgora, CoinTypeAgora, RoleFlash, flashBaseBranch, flashBaseIndex)
}

// DeriveFlashNonceKey derives a per-channel nonce key at
// m/44'/8888'/1'/1/seq, keeping each channel's nonce independent of the
// base signing key without additional keystore bookkeeping.
func (k *HDKey) DeriveFlashNonceKey(seq uint32) (*HDKey, error) {
	return k.DerivePath(PurposeAgora, CoinTypeAgora, RoleFlash, flashNonceBranch, seq)
}

// PrivateKeyBytes returns the raw 32-byte private key, or nil if this is
// a public-only key.
func (k *HDKey) PrivateKeyBytes() []byte {
	if !k.key.IsPrivate {
		return nil
	}
	raw := k.key.Key
	if len(raw) == 33 && raw[0] == 0 {
		return raw[1:]
	}
	return raw
}

// PublicKeyBytes returns the compressed 33-byte public key.
func (k *HDKey) PublicKeyBytes() []byte {
	pub := k.key.PublicKey()
	return pub.Key
}

// Signer returns a crypto.PrivateKey usable for Schnorr signing. Returns
// an error if this is a public-only key.
func (k *HDKey) Signer() (*crypto.PrivateKey, error) {
	priv := k.PrivateKeyBytes()
	if priv == nil {
		return nil, fmt.Errorf("cannot create signer from public key")
	}
	return crypto.PrivateKeyFromBytes(priv)
}

// IsPrivate returns true if this key contains a private key.
func (k *HDKey) IsPrivate() bool {
	return k.key.IsPrivate
}

// Depth returns the derivation depth (0 for master).
func (k *HDKey) Depth() uint8 {
	return k.key.Depth
}

// Neuter returns a public-key-only copy.
func (k *HDKey) Neuter() *HDKey {
	return &HDKey{key: k.key.PublicKey()}
}
