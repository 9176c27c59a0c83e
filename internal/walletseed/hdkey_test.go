package walletseed

import (
	"bytes"
	"testing"

	"github.com/bosagora-go/agora-node/pkg/crypto"
)

// testSeed returns a deterministic seed for testing, using the BIP-39
// test vector "abandon" x11 + "about" with passphrase "TREZOR".
func testSeed(t *testing.T) []byte {
	t.Helper()
	mnemonic := "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	seed, err := SeedFromMnemonic(mnemonic, "TREZOR")
	if err != nil {
		t.Fatalf("SeedFromMnemonic() error: %v", err)
	}
	return seed
}

func TestNewMasterKey(t *testing.T) {
	seed := testSeed(t)
	master, err := NewMasterKey(seed)
	if err != nil {
		t.Fatalf("NewMasterKey() error: %v", err)
	}

	if !master.IsPrivate() {
		t.Error("master key should be private")
	}
	if master.Depth() != 0 {
		t.Errorf("master key depth = %d, want 0", master.Depth())
	}

	priv := master.PrivateKeyBytes()
	if len(priv) != 32 {
		t.Errorf("private key length = %d, want 32", len(priv))
	}
	pub := master.PublicKeyBytes()
	if len(pub) != 33 {
		t.Errorf("public key length = %d, want 33", len(pub))
	}
}

func TestNewMasterKey_InvalidSeedLength(t *testing.T) {
	tests := []struct {
		name string
		seed []byte
	}{
		{"empty", []byte{}},
		{"too short", make([]byte, 32)},
		{"too long", make([]byte, 128)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewMasterKey(tt.seed); err == nil {
				t.Error("expected error for invalid seed length")
			}
		})
	}
}

func TestDeriveChild(t *testing.T) {
	seed := testSeed(t)
	master, _ := NewMasterKey(seed)

	child, err := master.DeriveChild(0)
	if err != nil {
		t.Fatalf("DeriveChild(0) error: %v", err)
	}
	if child.Depth() != 1 {
		t.Errorf("child depth = %d, want 1", child.Depth())
	}
	if !child.IsPrivate() {
		t.Error("child derived from private key should be private")
	}

	child2, err := master.DeriveChild(1)
	if err != nil {
		t.Fatalf("DeriveChild(1) error: %v", err)
	}
	if bytes.Equal(child.PrivateKeyBytes(), child2.PrivateKeyBytes()) {
		t.Error("different indices should produce different keys")
	}
}

func TestDerivePath(t *testing.T) {
	seed := testSeed(t)
	master, _ := NewMasterKey(seed)

	c1, _ := master.DeriveChild(PurposeAgora)
	c2, _ := c1.DeriveChild(CoinTypeAgora)

	combined, err := master.DerivePath(PurposeAgora, CoinTypeAgora)
	if err != nil {
		t.Fatalf("DerivePath() error: %v", err)
	}
	if !bytes.Equal(c2.PrivateKeyBytes(), combined.PrivateKeyBytes()) {
		t.Error("DerivePath should equal sequential DeriveChild")
	}
}

func TestDeriveValidatorKey(t *testing.T) {
	seed := testSeed(t)
	master, _ := NewMasterKey(seed)

	key, err := master.DeriveValidatorKey()
	if err != nil {
		t.Fatalf("DeriveValidatorKey() error: %v", err)
	}
	if key.Depth() != 5 {
		t.Errorf("validator key depth = %d, want 5", key.Depth())
	}
	if !key.IsPrivate() {
		t.Error("derived validator key should be private")
	}
}

func TestDeriveFlashBaseKey_DiffersFromValidator(t *testing.T) {
	seed := testSeed(t)
	master, _ := NewMasterKey(seed)

	validatorKey, err := master.DeriveValidatorKey()
	if err != nil {
		t.Fatalf("DeriveValidatorKey() error: %v", err)
	}
	flashKey, err := master.DeriveFlashBaseKey()
	if err != nil {
		t.Fatalf("DeriveFlashBaseKey() error: %v", err)
	}

	if bytes.Equal(validatorKey.PrivateKeyBytes(), flashKey.PrivateKeyBytes()) {
		t.Error("validator and Flash base keys should differ")
	}
}

func TestDeriveFlashNonceKey_PerChannel(t *testing.T) {
	seed := testSeed(t)
	master, _ := NewMasterKey(seed)

	n1, err := master.DeriveFlashNonceKey(0)
	if err != nil {
		t.Fatalf("DeriveFlashNonceKey(0) error: %v", err)
	}
	n2, err := master.DeriveFlashNonceKey(1)
	if err != nil {
		t.Fatalf("DeriveFlashNonceKey(1) error: %v", err)
	}
	if bytes.Equal(n1.PrivateKeyBytes(), n2.PrivateKeyBytes()) {
		t.Error("different channel sequence numbers should produce different nonce keys")
	}

	n1Again, err := master.DeriveFlashNonceKey(0)
	if err != nil {
		t.Fatalf("DeriveFlashNonceKey(0) error: %v", err)
	}
	if !bytes.Equal(n1.PrivateKeyBytes(), n1Again.PrivateKeyBytes()) {
		t.Error("DeriveFlashNonceKey should be deterministic for the same sequence number")
	}
}

func TestNeuter(t *testing.T) {
	seed := testSeed(t)
	master, _ := NewMasterKey(seed)

	pub := master.Neuter()
	if pub.IsPrivate() {
		t.Error("neutered key should not be private")
	}
	if pub.PrivateKeyBytes() != nil {
		t.Error("neutered key PrivateKeyBytes() should return nil")
	}
	if !bytes.Equal(master.PublicKeyBytes(), pub.PublicKeyBytes()) {
		t.Error("neutered key should have same public key")
	}
}

func TestSigner(t *testing.T) {
	seed := testSeed(t)
	master, _ := NewMasterKey(seed)
	key, err := master.DeriveValidatorKey()
	if err != nil {
		t.Fatalf("DeriveValidatorKey() error: %v", err)
	}

	signer, err := key.Signer()
	if err != nil {
		t.Fatalf("Signer() error: %v", err)
	}

	hash := crypto.Hash([]byte("test message"))
	sig, err := signer.Sign(hash)
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	if !crypto.VerifySignature(hash, sig, signer.PublicKey()) {
		t.Error("signature from HD-derived key should verify")
	}
}

func TestSigner_PublicKeyOnly(t *testing.T) {
	seed := testSeed(t)
	master, _ := NewMasterKey(seed)
	pub := master.Neuter()

	if _, err := pub.Signer(); err == nil {
		t.Error("Signer() from public key should return error")
	}
}

func TestFullSeedFlow(t *testing.T) {
	mnemonic, err := GenerateMnemonic()
	if err != nil {
		t.Fatalf("GenerateMnemonic() error: %v", err)
	}
	seed, err := SeedFromMnemonic(mnemonic, "")
	if err != nil {
		t.Fatalf("SeedFromMnemonic() error: %v", err)
	}
	master, err := NewMasterKey(seed)
	if err != nil {
		t.Fatalf("NewMasterKey() error: %v", err)
	}

	key, err := master.DeriveValidatorKey()
	if err != nil {
		t.Fatalf("DeriveValidatorKey() error: %v", err)
	}

	signer, err := key.Signer()
	if err != nil {
		t.Fatalf("Signer() error: %v", err)
	}

	hash := crypto.Hash([]byte("enrollment data"))
	sig, err := signer.Sign(hash)
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	if !crypto.VerifySignature(hash, sig, signer.PublicKey()) {
		t.Error("full seed flow: signature should verify")
	}
}
