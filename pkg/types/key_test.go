package types

import "testing"

func TestPublicKey_StringRoundTrip(t *testing.T) {
	var p PublicKey
	p[0] = 0x02
	for i := 1; i < PublicKeySize; i++ {
		p[i] = byte(i)
	}
	s := p.String()
	got, err := ParsePublicKey(s)
	if err != nil {
		t.Fatalf("ParsePublicKey(%q): %v", s, err)
	}
	if got != p {
		t.Errorf("round trip mismatch: got %x, want %x", got, p)
	}
}

func TestPublicKey_Less(t *testing.T) {
	a := PublicKey{0x01}
	b := PublicKey{0x02}
	if !a.Less(b) {
		t.Error("expected a < b")
	}
	if a.Less(a) {
		t.Error("a should not be less than itself")
	}
}

func TestPublicKeyFromBytes_WrongLength(t *testing.T) {
	if _, err := PublicKeyFromBytes(make([]byte, 10)); err == nil {
		t.Error("expected error for wrong-length input")
	}
}

func TestSignature_JSONRoundTrip(t *testing.T) {
	var sig Signature
	for i := range sig {
		sig[i] = byte(i)
	}
	data, err := sig.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	var got Signature
	if err := got.UnmarshalJSON(data); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}
	if got != sig {
		t.Error("round trip mismatch")
	}
}
