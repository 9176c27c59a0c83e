package tx

import (
	"testing"

	"github.com/bosagora-go/agora-node/pkg/crypto"
	"github.com/bosagora-go/agora-node/pkg/types"
)

func sampleTx() *Transaction {
	return &Transaction{
		Type:    Payment,
		Inputs:  []types.Input{{PrevOut: types.Outpoint{TxID: types.Hash{0x01}, Index: 0}}},
		Outputs: []types.Output{{Value: 1000, Lock: types.Lock{Type: types.LockKey, Data: make([]byte, types.PublicKeySize)}}},
	}
}

func TestTransaction_Hash_Deterministic(t *testing.T) {
	tx := sampleTx()
	h1 := tx.Hash()
	h2 := tx.Hash()
	if h1 != h2 {
		t.Error("Hash() should be deterministic")
	}
	if h1.IsZero() {
		t.Error("Hash() should not be zero")
	}
}

func TestTransaction_Hash_ChangesWithContent(t *testing.T) {
	tx1 := sampleTx()
	tx2 := sampleTx()
	tx2.Outputs[0].Value = 2000

	if tx1.Hash() == tx2.Hash() {
		t.Error("different transactions should have different hashes")
	}
}

func TestTransaction_Hash_IgnoresUnlockData(t *testing.T) {
	tx := sampleTx()
	h1 := tx.Hash()

	tx.Inputs[0].Unlock = []byte("some signature bytes")

	if h2 := tx.Hash(); h1 != h2 {
		t.Error("Hash() should not depend on Unlock data")
	}
}

func TestSigningBytesNoInput_BlanksOnlyTargetInput(t *testing.T) {
	tx := &Transaction{
		Type: Payment,
		Inputs: []types.Input{
			{PrevOut: types.Outpoint{TxID: types.Hash{0x01}, Index: 0}, UnlockAge: 3},
			{PrevOut: types.Outpoint{TxID: types.Hash{0x02}, Index: 1}, UnlockAge: 4},
		},
		Outputs: []types.Output{{Value: 1000, Lock: types.Lock{Type: types.LockKey, Data: make([]byte, types.PublicKeySize)}}},
	}

	blanked0 := tx.SigningBytesNoInput(0)
	blanked1 := tx.SigningBytesNoInput(1)
	if string(blanked0) == string(blanked1) {
		t.Error("blanking different inputs should produce different signing bytes")
	}

	full := tx.SigningBytes()
	if string(full) == string(blanked0) {
		t.Error("SigningBytesNoInput should differ from SigningBytes")
	}
}

func TestTransaction_Clone_Independent(t *testing.T) {
	tx := sampleTx()
	tx.Inputs[0].Unlock = []byte{0x01, 0x02}

	clone := tx.Clone()
	clone.Inputs[0].Unlock[0] = 0xFF
	clone.Outputs[0].Value = 9999

	if tx.Inputs[0].Unlock[0] == 0xFF {
		t.Error("Clone should deep-copy input unlock bytes")
	}
	if tx.Outputs[0].Value == 9999 {
		t.Error("Clone should deep-copy outputs")
	}
}

func TestTotalOutputValue_Overflow(t *testing.T) {
	tx := &Transaction{
		Type: Payment,
		Outputs: []types.Output{
			{Value: types.Amount(1<<63 - 1)},
			{Value: types.Amount(1<<63 - 1)},
			{Value: 3},
		},
	}
	if _, validity := tx.TotalOutputValue(); validity != types.AmountInvalid {
		t.Errorf("TotalOutputValue() validity = %v, want AmountInvalid", validity)
	}
}

func TestGetChallenge_AllVsNoInput(t *testing.T) {
	tx := &Transaction{
		Type: Payment,
		Inputs: []types.Input{
			{PrevOut: types.Outpoint{TxID: types.Hash{0x01}, Index: 0}},
		},
		Outputs: []types.Output{{Value: 1000, Lock: types.Lock{Type: types.LockKey, Data: make([]byte, types.PublicKeySize)}}},
	}

	all, err := tx.GetChallenge(types.SigHashAll, 0)
	if err != nil {
		t.Fatalf("GetChallenge(All): %v", err)
	}
	noInput, err := tx.GetChallenge(types.SigHashNoInput, 0)
	if err != nil {
		t.Fatalf("GetChallenge(NoInput): %v", err)
	}
	if all == noInput {
		t.Error("SigHash.All and SigHash.NoInput should produce different challenges")
	}

	if _, err := tx.GetChallenge(types.SigHashAll, 5); err == nil {
		t.Error("GetChallenge with out-of-range input index should fail")
	}
	if _, err := tx.GetChallenge(types.SigHash(99), 0); err == nil {
		t.Error("GetChallenge with invalid sig hash mode should fail")
	}
}

func TestSignAndVerify_ViaChallenge(t *testing.T) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	tx := sampleTx()
	copy(tx.Outputs[0].Lock.Data, priv.PublicKey().Bytes())

	challenge, err := tx.GetChallenge(types.SigHashAll, 0)
	if err != nil {
		t.Fatalf("GetChallenge: %v", err)
	}
	sig, err := priv.Sign(challenge)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !crypto.VerifySignature(challenge, sig, priv.PublicKey()) {
		t.Error("VerifySignature should accept a signature over its own challenge")
	}
}
