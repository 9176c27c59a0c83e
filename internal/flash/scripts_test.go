package flash

import (
	"testing"

	"github.com/bosagora-go/agora-node/pkg/crypto"
	"github.com/bosagora-go/agora-node/pkg/script"
	"github.com/bosagora-go/agora-node/pkg/tx"
	"github.com/bosagora-go/agora-node/pkg/types"
)

// buildTestPair returns an Eltoo-locked funding output plus a candidate
// update transaction spending it, for the given settle/update keys.
func buildTestPair(t *testing.T, age uint64, settleX, updateX types.PublicKey, seqID uint64) (*tx.Transaction, types.Lock) {
	t.Helper()
	lock, err := CreateLockEltoo(age, settleX, updateX, seqID)
	if err != nil {
		t.Fatalf("CreateLockEltoo: %v", err)
	}
	spend := &tx.Transaction{
		Type:       tx.Payment,
		SequenceID: seqID + 1,
		Inputs:     []types.Input{{PrevOut: types.Outpoint{TxID: crypto.HashFull([]byte("funding"))}}},
		Outputs:    []types.Output{{Value: 100, Lock: types.LockKeyFor(settleX)}},
	}
	return spend, lock
}

func TestEltoo_UpdatePath_Valid(t *testing.T) {
	settlePriv, _ := crypto.GenerateKey()
	updatePriv, _ := crypto.GenerateKey()

	spendTx, lock := buildTestPair(t, 10, settlePriv.PublicKey(), updatePriv.PublicKey(), 4)

	challenge, err := spendTx.GetChallenge(types.SigHashNoInput, 0)
	if err != nil {
		t.Fatalf("GetChallenge: %v", err)
	}
	sig, err := updatePriv.Sign(challenge)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	unlock, err := CreateUnlockUpdate(sig)
	if err != nil {
		t.Fatalf("CreateUnlockUpdate: %v", err)
	}

	if err := script.Evaluate(lock, unlock, spendTx.Context(), 0); err != nil {
		t.Fatalf("update path should validate, got %v", err)
	}
}

func TestEltoo_UpdatePath_RejectsLowerSequence(t *testing.T) {
	// S8: an output locked at seq=4 only accepts a spend whose own
	// SequenceID is exactly 5 (the immediate next step in the chain); a
	// stale lower sequence id is rejected by VERIFY_TX_SEQ.
	settlePriv, _ := crypto.GenerateKey()
	updatePriv, _ := crypto.GenerateKey()

	_, lock := buildTestPair(t, 10, settlePriv.PublicKey(), updatePriv.PublicKey(), 4)

	staleTx := &tx.Transaction{
		Type:       tx.Payment,
		SequenceID: 3, // not > 4
		Inputs:     []types.Input{{PrevOut: types.Outpoint{TxID: crypto.HashFull([]byte("funding"))}}},
		Outputs:    []types.Output{{Value: 100, Lock: types.LockKeyFor(settlePriv.PublicKey())}},
	}
	challenge, err := staleTx.GetChallenge(types.SigHashNoInput, 0)
	if err != nil {
		t.Fatalf("GetChallenge: %v", err)
	}
	sig, err := updatePriv.Sign(challenge)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	unlock, err := CreateUnlockUpdate(sig)
	if err != nil {
		t.Fatalf("CreateUnlockUpdate: %v", err)
	}

	if err := script.Evaluate(lock, unlock, staleTx.Context(), 0); err == nil {
		t.Error("spend at seq <= locked seq should be rejected by VERIFY_TX_SEQ")
	}
}

func TestEltoo_SettlePath_AgeGated(t *testing.T) {
	// S7: the settlement branch only validates once the input has aged
	// at least the locked age.
	settlePriv, _ := crypto.GenerateKey()
	updatePriv, _ := crypto.GenerateKey()

	lock, err := CreateLockEltoo(10, settlePriv.PublicKey(), updatePriv.PublicKey(), 0)
	if err != nil {
		t.Fatalf("CreateLockEltoo: %v", err)
	}

	buildSettle := func(age uint32) *tx.Transaction {
		return &tx.Transaction{
			Type:    tx.Payment,
			Inputs:  []types.Input{{PrevOut: types.Outpoint{TxID: crypto.HashFull([]byte("funding"))}, UnlockAge: age}},
			Outputs: []types.Output{{Value: 100, Lock: types.LockKeyFor(settlePriv.PublicKey())}},
		}
	}

	sign := func(st *tx.Transaction) []byte {
		challenge, err := st.GetChallenge(types.SigHashNoInput, 0)
		if err != nil {
			t.Fatalf("GetChallenge: %v", err)
		}
		sig, err := settlePriv.Sign(challenge)
		if err != nil {
			t.Fatalf("Sign: %v", err)
		}
		unlock, err := CreateUnlockSettle(sig)
		if err != nil {
			t.Fatalf("CreateUnlockSettle: %v", err)
		}
		return unlock
	}

	tooYoung := buildSettle(9)
	if err := script.Evaluate(lock, sign(tooYoung), tooYoung.Context(), 0); err == nil {
		t.Error("settlement below the locked age should be rejected")
	}

	agedEnough := buildSettle(10)
	if err := script.Evaluate(lock, sign(agedEnough), agedEnough.Context(), 0); err != nil {
		t.Errorf("settlement at the locked age should validate, got %v", err)
	}
}

func TestEltoo_RejectsWrongKey(t *testing.T) {
	settlePriv, _ := crypto.GenerateKey()
	updatePriv, _ := crypto.GenerateKey()
	other, _ := crypto.GenerateKey()

	spendTx, lock := buildTestPair(t, 10, settlePriv.PublicKey(), updatePriv.PublicKey(), 0)
	challenge, err := spendTx.GetChallenge(types.SigHashNoInput, 0)
	if err != nil {
		t.Fatalf("GetChallenge: %v", err)
	}
	sig, err := other.Sign(challenge)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	unlock, err := CreateUnlockUpdate(sig)
	if err != nil {
		t.Fatalf("CreateUnlockUpdate: %v", err)
	}

	if err := script.Evaluate(lock, unlock, spendTx.Context(), 0); err == nil {
		t.Error("signature from an unrelated key should fail verification")
	}
}
