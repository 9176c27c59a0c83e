package enrollment

import (
	"errors"
	"testing"

	"github.com/bosagora-go/agora-node/pkg/crypto"
	"github.com/bosagora-go/agora-node/pkg/tx"
	"github.com/bosagora-go/agora-node/pkg/types"
)

type mockFinder map[types.Outpoint]tx.UTXO

func (m mockFinder) FindUTXO(op types.Outpoint) (tx.UTXO, bool) {
	u, ok := m[op]
	return u, ok
}

func buildEnrollment(t *testing.T, key *crypto.PrivateKey, utxoKey types.Hash, seed types.Hash) types.Enrollment {
	t.Helper()
	e := types.Enrollment{
		UTXOKey:     utxoKey,
		CycleLength: types.DefaultCycleLength,
		RandomSeed:  seed,
	}
	challenge := crypto.Hash(e.SigningBytes())
	sig, err := key.Sign(challenge)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	e.EnrollSig = sig
	return e
}

func TestAddValidator_Valid(t *testing.T) {
	key, _ := crypto.GenerateKey()
	utxoKey := types.Hash{0x01}
	finder := mockFinder{
		{TxID: utxoKey}: {
			Output:       types.Output{Value: types.MinFreezeAmount, Lock: types.LockKeyFor(key.PublicKey())},
			SourceType:   tx.Freeze,
			UnlockHeight: 1,
		},
	}
	e := buildEnrollment(t, key, utxoKey, types.Hash{0x02})

	m := NewManager()
	if err := m.AddValidator(e, 10, finder, key.PublicKey()); err != nil {
		t.Fatalf("AddValidator: %v", err)
	}
	if m.ValidatorCount() != 1 {
		t.Errorf("ValidatorCount = %d, want 1", m.ValidatorCount())
	}
}

func TestAddValidator_UTXONotFound(t *testing.T) {
	key, _ := crypto.GenerateKey()
	utxoKey := types.Hash{0x01}
	e := buildEnrollment(t, key, utxoKey, types.Hash{0x02})

	m := NewManager()
	err := m.AddValidator(e, 10, mockFinder{}, key.PublicKey())
	if !errors.Is(err, ErrUTXONotFound) {
		t.Errorf("expected ErrUTXONotFound, got: %v", err)
	}
}

func TestAddValidator_NotFreeze(t *testing.T) {
	key, _ := crypto.GenerateKey()
	utxoKey := types.Hash{0x01}
	finder := mockFinder{
		{TxID: utxoKey}: {
			Output:       types.Output{Value: types.MinFreezeAmount, Lock: types.LockKeyFor(key.PublicKey())},
			SourceType:   tx.Payment,
			UnlockHeight: 1,
		},
	}
	e := buildEnrollment(t, key, utxoKey, types.Hash{0x02})

	m := NewManager()
	err := m.AddValidator(e, 10, finder, key.PublicKey())
	if !errors.Is(err, ErrNotFreeze) {
		t.Errorf("expected ErrNotFreeze, got: %v", err)
	}
}

func TestAddValidator_AmountTooLow(t *testing.T) {
	key, _ := crypto.GenerateKey()
	utxoKey := types.Hash{0x01}
	finder := mockFinder{
		{TxID: utxoKey}: {
			Output:       types.Output{Value: types.MinFreezeAmount - 1, Lock: types.LockKeyFor(key.PublicKey())},
			SourceType:   tx.Freeze,
			UnlockHeight: 1,
		},
	}
	e := buildEnrollment(t, key, utxoKey, types.Hash{0x02})

	m := NewManager()
	err := m.AddValidator(e, 10, finder, key.PublicKey())
	if !errors.Is(err, ErrAmountTooLow) {
		t.Errorf("expected ErrAmountTooLow, got: %v", err)
	}
}

func TestAddValidator_NotYetUnlocked(t *testing.T) {
	key, _ := crypto.GenerateKey()
	utxoKey := types.Hash{0x01}
	finder := mockFinder{
		{TxID: utxoKey}: {
			Output:       types.Output{Value: types.MinFreezeAmount, Lock: types.LockKeyFor(key.PublicKey())},
			SourceType:   tx.Freeze,
			UnlockHeight: 100,
		},
	}
	e := buildEnrollment(t, key, utxoKey, types.Hash{0x02})

	m := NewManager()
	err := m.AddValidator(e, 10, finder, key.PublicKey())
	if !errors.Is(err, ErrNotYetUnlocked) {
		t.Errorf("expected ErrNotYetUnlocked, got: %v", err)
	}
}

func TestAddValidator_BadSignature(t *testing.T) {
	key, _ := crypto.GenerateKey()
	other, _ := crypto.GenerateKey()
	utxoKey := types.Hash{0x01}
	finder := mockFinder{
		{TxID: utxoKey}: {
			Output:       types.Output{Value: types.MinFreezeAmount, Lock: types.LockKeyFor(key.PublicKey())},
			SourceType:   tx.Freeze,
			UnlockHeight: 1,
		},
	}
	e := buildEnrollment(t, other, utxoKey, types.Hash{0x02})

	m := NewManager()
	err := m.AddValidator(e, 10, finder, key.PublicKey())
	if !errors.Is(err, ErrBadSignature) {
		t.Errorf("expected ErrBadSignature, got: %v", err)
	}
}

func TestAddValidator_AlreadyEnrolled(t *testing.T) {
	key, _ := crypto.GenerateKey()
	utxoKey := types.Hash{0x01}
	finder := mockFinder{
		{TxID: utxoKey}: {
			Output:       types.Output{Value: types.MinFreezeAmount, Lock: types.LockKeyFor(key.PublicKey())},
			SourceType:   tx.Freeze,
			UnlockHeight: 1,
		},
	}
	e := buildEnrollment(t, key, utxoKey, types.Hash{0x02})

	m := NewManager()
	if err := m.AddValidator(e, 10, finder, key.PublicKey()); err != nil {
		t.Fatalf("first AddValidator: %v", err)
	}
	err := m.AddValidator(e, 10, finder, key.PublicKey())
	if !errors.Is(err, ErrAlreadyEnrolled) {
		t.Errorf("expected ErrAlreadyEnrolled, got: %v", err)
	}
}

func TestRevealPreimage(t *testing.T) {
	key, _ := crypto.GenerateKey()
	utxoKey := types.Hash{0x01}
	preimage := types.Hash{0x09}
	seed := crypto.Hash(preimage[:])

	finder := mockFinder{
		{TxID: utxoKey}: {
			Output:       types.Output{Value: types.MinFreezeAmount, Lock: types.LockKeyFor(key.PublicKey())},
			SourceType:   tx.Freeze,
			UnlockHeight: 1,
		},
	}
	e := buildEnrollment(t, key, utxoKey, seed)

	m := NewManager()
	if err := m.AddValidator(e, 10, finder, key.PublicKey()); err != nil {
		t.Fatalf("AddValidator: %v", err)
	}

	if err := m.RevealPreimage(utxoKey, preimage); err != nil {
		t.Fatalf("RevealPreimage: %v", err)
	}
}

func TestRevealPreimage_Mismatch(t *testing.T) {
	key, _ := crypto.GenerateKey()
	utxoKey := types.Hash{0x01}
	seed := types.Hash{0x02}

	finder := mockFinder{
		{TxID: utxoKey}: {
			Output:       types.Output{Value: types.MinFreezeAmount, Lock: types.LockKeyFor(key.PublicKey())},
			SourceType:   tx.Freeze,
			UnlockHeight: 1,
		},
	}
	e := buildEnrollment(t, key, utxoKey, seed)

	m := NewManager()
	if err := m.AddValidator(e, 10, finder, key.PublicKey()); err != nil {
		t.Fatalf("AddValidator: %v", err)
	}

	err := m.RevealPreimage(utxoKey, types.Hash{0xff})
	if !errors.Is(err, ErrPreimageMismatch) {
		t.Errorf("expected ErrPreimageMismatch, got: %v", err)
	}
}

func TestRevealPreimage_UnknownValidator(t *testing.T) {
	m := NewManager()
	err := m.RevealPreimage(types.Hash{0x01}, types.Hash{0x02})
	if !errors.Is(err, ErrUnknownValidator) {
		t.Errorf("expected ErrUnknownValidator, got: %v", err)
	}
}

func TestClearExpired(t *testing.T) {
	key, _ := crypto.GenerateKey()
	utxoKey := types.Hash{0x01}
	finder := mockFinder{
		{TxID: utxoKey}: {
			Output:       types.Output{Value: types.MinFreezeAmount, Lock: types.LockKeyFor(key.PublicKey())},
			SourceType:   tx.Freeze,
			UnlockHeight: 1,
		},
	}
	e := buildEnrollment(t, key, utxoKey, types.Hash{0x02})
	e.CycleLength = 100

	m := NewManager()
	if err := m.AddValidator(e, 10, finder, key.PublicKey()); err != nil {
		t.Fatalf("AddValidator: %v", err)
	}

	if removed := m.ClearExpired(50); removed != 0 {
		t.Errorf("ClearExpired(50) removed %d, want 0", removed)
	}
	if removed := m.ClearExpired(110); removed != 1 {
		t.Errorf("ClearExpired(110) removed %d, want 1", removed)
	}
	if m.ValidatorCount() != 0 {
		t.Error("validator should be gone after ClearExpired past its cycle")
	}
}

func TestGetEnrolledUTXOsAndPublicKey(t *testing.T) {
	key, _ := crypto.GenerateKey()
	utxoKey := types.Hash{0x01}
	finder := mockFinder{
		{TxID: utxoKey}: {
			Output:       types.Output{Value: types.MinFreezeAmount, Lock: types.LockKeyFor(key.PublicKey())},
			SourceType:   tx.Freeze,
			UnlockHeight: 1,
		},
	}
	e := buildEnrollment(t, key, utxoKey, types.Hash{0x02})

	m := NewManager()
	_ = m.AddValidator(e, 10, finder, key.PublicKey())

	utxos := m.GetEnrolledUTXOs()
	if len(utxos) != 1 || utxos[0] != utxoKey {
		t.Errorf("GetEnrolledUTXOs = %v, want [%s]", utxos, utxoKey)
	}

	pk, ok := m.GetEnrollmentPublicKey(utxoKey)
	if !ok || pk != key.PublicKey() {
		t.Error("GetEnrollmentPublicKey should return the enrolling key")
	}

	if _, ok := m.GetEnrollmentPublicKey(types.Hash{0xff}); ok {
		t.Error("GetEnrollmentPublicKey should report false for unknown key")
	}
}

func TestGetRandomSeed_XORCombination(t *testing.T) {
	key1, _ := crypto.GenerateKey()
	key2, _ := crypto.GenerateKey()
	utxoKey1, utxoKey2 := types.Hash{0x01}, types.Hash{0x02}
	seed1, seed2 := types.Hash{0xaa}, types.Hash{0x55}

	finder := mockFinder{
		{TxID: utxoKey1}: {Output: types.Output{Value: types.MinFreezeAmount, Lock: types.LockKeyFor(key1.PublicKey())}, SourceType: tx.Freeze, UnlockHeight: 1},
		{TxID: utxoKey2}: {Output: types.Output{Value: types.MinFreezeAmount, Lock: types.LockKeyFor(key2.PublicKey())}, SourceType: tx.Freeze, UnlockHeight: 1},
	}
	e1 := buildEnrollment(t, key1, utxoKey1, seed1)
	e2 := buildEnrollment(t, key2, utxoKey2, seed2)

	m := NewManager()
	_ = m.AddValidator(e1, 10, finder, key1.PublicKey())
	_ = m.AddValidator(e2, 10, finder, key2.PublicKey())

	sortedKeys := m.SortedPublicKeys()
	got := m.GetRandomSeed(sortedKeys)

	var want types.Hash
	for i := range want {
		want[i] = seed1[i] ^ seed2[i]
	}
	if got != want {
		t.Errorf("GetRandomSeed = %x, want %x", got, want)
	}
}
