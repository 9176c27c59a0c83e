package utxo

import (
	"testing"

	"github.com/bosagora-go/agora-node/internal/storage"
	"github.com/bosagora-go/agora-node/pkg/crypto"
	"github.com/bosagora-go/agora-node/pkg/tx"
	"github.com/bosagora-go/agora-node/pkg/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(storage.NewMemory())
}

func makeOutpoint(data string, index uint32) types.Outpoint {
	return types.Outpoint{
		TxID:  crypto.Hash([]byte(data)),
		Index: index,
	}
}

func makeUTXO(value types.Amount, sourceType tx.TxType) tx.UTXO {
	key, _ := crypto.GenerateKey()
	return tx.UTXO{
		Output:       types.Output{Value: value, Lock: types.LockKeyFor(key.PublicKey())},
		SourceType:   sourceType,
		UnlockHeight: 1,
	}
}

func TestStore_PutAndFind(t *testing.T) {
	s := testStore(t)
	op := makeOutpoint("tx1", 0)
	u := makeUTXO(5000, tx.Payment)

	if err := s.Put(op, u); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	got, ok := s.FindUTXO(op)
	if !ok {
		t.Fatal("FindUTXO() should find stored UTXO")
	}
	if got.Output.Value != u.Output.Value {
		t.Errorf("Value = %d, want %d", got.Output.Value, u.Output.Value)
	}
	if got.SourceType != u.SourceType {
		t.Errorf("SourceType = %v, want %v", got.SourceType, u.SourceType)
	}
	if got.UnlockHeight != u.UnlockHeight {
		t.Errorf("UnlockHeight = %d, want %d", got.UnlockHeight, u.UnlockHeight)
	}
}

func TestStore_FindMissing(t *testing.T) {
	s := testStore(t)
	if _, ok := s.FindUTXO(makeOutpoint("nope", 0)); ok {
		t.Error("FindUTXO() should report not-found for a missing outpoint")
	}
}

func TestStore_Delete(t *testing.T) {
	s := testStore(t)
	op := makeOutpoint("tx1", 0)
	u := makeUTXO(1000, tx.Payment)
	if err := s.Put(op, u); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if err := s.Delete(op); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, ok := s.FindUTXO(op); ok {
		t.Error("FindUTXO() should not find a deleted UTXO")
	}
}

func TestStore_Has(t *testing.T) {
	s := testStore(t)
	op := makeOutpoint("tx1", 0)

	has, err := s.Has(op)
	if err != nil {
		t.Fatalf("Has() error: %v", err)
	}
	if has {
		t.Error("Has() should be false before Put")
	}

	_ = s.Put(op, makeUTXO(1000, tx.Payment))

	has, err = s.Has(op)
	if err != nil {
		t.Fatalf("Has() error: %v", err)
	}
	if !has {
		t.Error("Has() should be true after Put")
	}
}

func TestStore_ForEach(t *testing.T) {
	s := testStore(t)
	_ = s.Put(makeOutpoint("tx1", 0), makeUTXO(1000, tx.Payment))
	_ = s.Put(makeOutpoint("tx2", 0), makeUTXO(2000, tx.Freeze))

	count := 0
	err := s.ForEach(func(_ types.Outpoint, u tx.UTXO) error {
		count++
		return nil
	})
	if err != nil {
		t.Fatalf("ForEach() error: %v", err)
	}
	if count != 2 {
		t.Errorf("ForEach() visited %d entries, want 2", count)
	}
}

func TestStore_FreezeOutpoints(t *testing.T) {
	s := testStore(t)
	freezeOp := makeOutpoint("freeze1", 0)
	_ = s.Put(makeOutpoint("pay1", 0), makeUTXO(1000, tx.Payment))
	_ = s.Put(freezeOp, makeUTXO(types.MinFreezeAmount, tx.Freeze))

	keys, err := s.FreezeOutpoints()
	if err != nil {
		t.Fatalf("FreezeOutpoints() error: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("FreezeOutpoints() returned %d keys, want 1", len(keys))
	}
	if keys[0] != Key(freezeOp) {
		t.Error("FreezeOutpoints() key does not match the Freeze outpoint's key")
	}
}

func TestStore_ClearAll(t *testing.T) {
	s := testStore(t)
	_ = s.Put(makeOutpoint("tx1", 0), makeUTXO(1000, tx.Payment))
	_ = s.Put(makeOutpoint("tx2", 0), makeUTXO(types.MinFreezeAmount, tx.Freeze))

	if err := s.ClearAll(); err != nil {
		t.Fatalf("ClearAll() error: %v", err)
	}

	count := 0
	_ = s.ForEach(func(types.Outpoint, tx.UTXO) error { count++; return nil })
	if count != 0 {
		t.Errorf("ClearAll() left %d entries, want 0", count)
	}
	keys, _ := s.FreezeOutpoints()
	if len(keys) != 0 {
		t.Error("ClearAll() should also clear the freeze index")
	}
}

func TestKey_Deterministic(t *testing.T) {
	op := makeOutpoint("tx1", 3)
	if Key(op) != Key(op) {
		t.Error("Key() should be deterministic")
	}
	if Key(op) == Key(makeOutpoint("tx1", 4)) {
		t.Error("Key() should differ by index")
	}
}
