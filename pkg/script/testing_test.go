package script

import "github.com/bosagora-go/agora-node/pkg/types"

// fakeContext is a minimal Context implementation for table-driven tests.
type fakeContext struct {
	challenge types.Hash
	age       uint32
	seq       uint64
}

func (f *fakeContext) Challenge(sigHash types.SigHash, inputIndex int) (types.Hash, error) {
	return f.challenge, nil
}

func (f *fakeContext) InputUnlockAge(inputIndex int) uint32 {
	return f.age
}

func (f *fakeContext) SequenceID() uint64 {
	return f.seq
}
