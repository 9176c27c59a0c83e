package types

import "testing"

func TestEnrollment_JSONRoundTrip(t *testing.T) {
	e := Enrollment{
		UTXOKey:     Hash{0x01},
		CycleLength: DefaultCycleLength,
		RandomSeed:  Hash{0x02},
		EnrollSig:   Signature{0x03},
	}

	data, err := e.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	var got Enrollment
	if err := got.UnmarshalJSON(data); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}
	if got != e {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, e)
	}
}

func TestEnrollment_SigningBytesDeterministic(t *testing.T) {
	e1 := Enrollment{UTXOKey: Hash{0x01}, CycleLength: 1008, RandomSeed: Hash{0x02}}
	e2 := Enrollment{UTXOKey: Hash{0x01}, CycleLength: 1008, RandomSeed: Hash{0x02}}
	e3 := Enrollment{UTXOKey: Hash{0x01}, CycleLength: 1009, RandomSeed: Hash{0x02}}

	if string(e1.SigningBytes()) != string(e2.SigningBytes()) {
		t.Error("identical enrollments should produce identical signing bytes")
	}
	if string(e1.SigningBytes()) == string(e3.SigningBytes()) {
		t.Error("different cycle length should change signing bytes")
	}
}
