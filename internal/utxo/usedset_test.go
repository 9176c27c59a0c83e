package utxo

import (
	"testing"

	"github.com/bosagora-go/agora-node/pkg/tx"
)

func TestUsedSet_FirstLookupDelegates(t *testing.T) {
	s := testStore(t)
	op := makeOutpoint("tx1", 0)
	u := makeUTXO(1000, tx.Payment)
	_ = s.Put(op, u)

	used := NewUsedSet(s)
	got, ok := used.FindUTXO(op)
	if !ok {
		t.Fatal("first lookup should delegate to base and succeed")
	}
	if got.Output.Value != u.Output.Value {
		t.Errorf("Value = %d, want %d", got.Output.Value, u.Output.Value)
	}
}

func TestUsedSet_SecondLookupFails(t *testing.T) {
	s := testStore(t)
	op := makeOutpoint("tx1", 0)
	_ = s.Put(op, makeUTXO(1000, tx.Payment))

	used := NewUsedSet(s)
	if _, ok := used.FindUTXO(op); !ok {
		t.Fatal("first lookup should succeed")
	}
	if _, ok := used.FindUTXO(op); ok {
		t.Error("second lookup of the same outpoint should report not-found (double-spend)")
	}
}

func TestUsedSet_BaseUntouched(t *testing.T) {
	s := testStore(t)
	op := makeOutpoint("tx1", 0)
	_ = s.Put(op, makeUTXO(1000, tx.Payment))

	used := NewUsedSet(s)
	_, _ = used.FindUTXO(op)
	_, _ = used.FindUTXO(op)

	if _, ok := s.FindUTXO(op); !ok {
		t.Error("underlying store should be untouched by UsedSet lookups")
	}
}

func TestUsedSet_MissingOutpointStaysMissing(t *testing.T) {
	s := testStore(t)
	used := NewUsedSet(s)

	if _, ok := used.FindUTXO(makeOutpoint("ghost", 0)); ok {
		t.Error("missing outpoint should report not-found")
	}
	if _, ok := used.FindUTXO(makeOutpoint("ghost", 0)); ok {
		t.Error("missing outpoint should still report not-found on repeat lookup")
	}
}

func TestUsedSet_IndependentOutpoints(t *testing.T) {
	s := testStore(t)
	op1 := makeOutpoint("tx1", 0)
	op2 := makeOutpoint("tx1", 1)
	_ = s.Put(op1, makeUTXO(1000, tx.Payment))
	_ = s.Put(op2, makeUTXO(2000, tx.Payment))

	used := NewUsedSet(s)
	if _, ok := used.FindUTXO(op1); !ok {
		t.Error("op1 first lookup should succeed")
	}
	if _, ok := used.FindUTXO(op2); !ok {
		t.Error("op2 first lookup should succeed independently of op1")
	}
}
