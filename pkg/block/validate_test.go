package block

import (
	"errors"
	"testing"

	"github.com/bosagora-go/agora-node/config"
	"github.com/bosagora-go/agora-node/pkg/crypto"
	"github.com/bosagora-go/agora-node/pkg/tx"
	"github.com/bosagora-go/agora-node/pkg/types"
)

// testCoinbase returns a minimal coinbase transaction.
func testCoinbase(key *crypto.PrivateKey, value types.Amount) *tx.Transaction {
	return &tx.Transaction{
		Type:    tx.Coinbase,
		Inputs:  []types.Input{{PrevOut: types.Outpoint{}}},
		Outputs: []types.Output{{Value: value, Lock: types.LockKeyFor(key.PublicKey())}},
	}
}

// fillBlockTxs pads txs out to config.TxsInBlock with additional
// coinbase-style filler transactions (all zero outpoint, so duplicate
// detection does not apply to them), and sorts the fillers and the given
// txs together into ascending hash order.
func fillBlockTxs(t *testing.T, key *crypto.PrivateKey, txs []*tx.Transaction) []*tx.Transaction {
	t.Helper()
	for i := len(txs); i < config.TxsInBlock; i++ {
		txs = append(txs, testCoinbase(key, types.Amount(1000+i)))
	}
	sortTxsByHash(txs)
	return txs
}

func sortTxsByHash(txs []*tx.Transaction) {
	for i := 1; i < len(txs); i++ {
		for j := i; j > 0; j-- {
			hj, hj1 := txs[j].Hash(), txs[j-1].Hash()
			if hj.Less(hj1) {
				txs[j], txs[j-1] = txs[j-1], txs[j]
			} else {
				break
			}
		}
	}
}

// validBlock builds a minimal valid genesis block (height 0) signed by
// no one (AggregateSignature/ValidatorBitmask are outside Validate's
// scope — the Ledger checks those against the quorum set separately).
func validBlock(t *testing.T) (*Block, ValidationContext) {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	txs := fillBlockTxs(t, key, nil)
	hashes := make([]types.Hash, len(txs))
	for i, tr := range txs {
		hashes[i] = tr.Hash()
	}
	root := ComputeMerkleRoot(hashes)

	header := &Header{
		PrevBlockHash: types.Hash{},
		Height:        0,
		MerkleRoot:    root,
	}
	blk := NewBlock(header, txs)

	vctx := ValidationContext{GenesisHash: blk.Hash()}
	return blk, vctx
}

func TestBlock_Validate_Valid(t *testing.T) {
	blk, vctx := validBlock(t)
	if err := blk.Validate(vctx); err != nil {
		t.Errorf("valid genesis block should pass: %v", err)
	}
}

func TestBlock_Validate_NilHeader(t *testing.T) {
	blk := &Block{Header: nil}
	err := blk.Validate(ValidationContext{})
	if !errors.Is(err, ErrNilHeader) {
		t.Errorf("expected ErrNilHeader, got: %v", err)
	}
}

func TestBlock_Validate_BadGenesis(t *testing.T) {
	blk, vctx := validBlock(t)
	vctx.GenesisHash = types.Hash{0xff}
	err := blk.Validate(vctx)
	if !errors.Is(err, ErrBadGenesis) {
		t.Errorf("expected ErrBadGenesis, got: %v", err)
	}
}

func TestBlock_Validate_NoParent(t *testing.T) {
	key, _ := crypto.GenerateKey()
	txs := fillBlockTxs(t, key, nil)
	hashes := make([]types.Hash, len(txs))
	for i, tr := range txs {
		hashes[i] = tr.Hash()
	}
	blk := NewBlock(&Header{Height: 1, MerkleRoot: ComputeMerkleRoot(hashes)}, txs)

	err := blk.Validate(ValidationContext{})
	if !errors.Is(err, ErrNoParent) {
		t.Errorf("expected ErrNoParent, got: %v", err)
	}
}

func TestBlock_Validate_BadHeight(t *testing.T) {
	key, _ := crypto.GenerateKey()
	parent := &Header{Height: 5, MerkleRoot: types.Hash{0x01}}

	txs := fillBlockTxs(t, key, nil)
	hashes := make([]types.Hash, len(txs))
	for i, tr := range txs {
		hashes[i] = tr.Hash()
	}
	blk := NewBlock(&Header{
		PrevBlockHash: parent.Hash(),
		Height:        7, // should be 6
		MerkleRoot:    ComputeMerkleRoot(hashes),
	}, txs)

	err := blk.Validate(ValidationContext{Parent: parent, ActiveValidatorCount: config.MinValidatorCount})
	if !errors.Is(err, ErrBadHeight) {
		t.Errorf("expected ErrBadHeight, got: %v", err)
	}
}

func TestBlock_Validate_BadPrevHash(t *testing.T) {
	key, _ := crypto.GenerateKey()
	parent := &Header{Height: 5, MerkleRoot: types.Hash{0x01}}

	txs := fillBlockTxs(t, key, nil)
	hashes := make([]types.Hash, len(txs))
	for i, tr := range txs {
		hashes[i] = tr.Hash()
	}
	blk := NewBlock(&Header{
		PrevBlockHash: types.Hash{0xde, 0xad},
		Height:        6,
		MerkleRoot:    ComputeMerkleRoot(hashes),
	}, txs)

	err := blk.Validate(ValidationContext{Parent: parent, ActiveValidatorCount: config.MinValidatorCount})
	if !errors.Is(err, ErrBadPrevHash) {
		t.Errorf("expected ErrBadPrevHash, got: %v", err)
	}
}

func TestBlock_Validate_WrongTxCount(t *testing.T) {
	key, _ := crypto.GenerateKey()
	txs := []*tx.Transaction{testCoinbase(key, 1000)} // far short of TxsInBlock
	hashes := []types.Hash{txs[0].Hash()}

	blk := NewBlock(&Header{
		Height:     0,
		MerkleRoot: ComputeMerkleRoot(hashes),
	}, txs)

	err := blk.Validate(ValidationContext{GenesisHash: blk.Hash()})
	if !errors.Is(err, ErrWrongTxCount) {
		t.Errorf("expected ErrWrongTxCount, got: %v", err)
	}
}

func TestBlock_Validate_BadTxOrder(t *testing.T) {
	key, _ := crypto.GenerateKey()
	txs := fillBlockTxs(t, key, nil)
	hashes := make([]types.Hash, len(txs))
	for i, tr := range txs {
		hashes[i] = tr.Hash()
	}
	root := ComputeMerkleRoot(hashes)

	// Swap two entries out of order after computing the (now stale) root
	// isn't useful — instead recompute the root over the reordered
	// hashes so only the ordering check fails, not the merkle check.
	txs[0], txs[len(txs)-1] = txs[len(txs)-1], txs[0]

	blk := NewBlock(&Header{Height: 0, MerkleRoot: root}, txs)
	err := blk.Validate(ValidationContext{GenesisHash: blk.Hash()})
	if err == nil {
		t.Error("reordered block should fail validation")
	}
	// Either the order check or the merkle-root check (since swapping
	// changes TxHashes order, which ComputeMerkleRoot is sensitive to
	// only if hashes differ; here the set is the same but order isn't,
	// so the order check fires first).
	if !errors.Is(err, ErrBadTxOrder) && !errors.Is(err, ErrBadMerkleRoot) {
		t.Errorf("expected ErrBadTxOrder or ErrBadMerkleRoot, got: %v", err)
	}
}

func TestBlock_Validate_BadMerkleRoot(t *testing.T) {
	blk, vctx := validBlock(t)
	blk.Header.MerkleRoot = types.Hash{0xde, 0xad}
	err := blk.Validate(ValidationContext{GenesisHash: vctx.GenesisHash})
	if !errors.Is(err, ErrBadMerkleRoot) {
		t.Errorf("expected ErrBadMerkleRoot, got: %v", err)
	}
}

func TestBlock_Validate_InvalidTransaction(t *testing.T) {
	key, _ := crypto.GenerateKey()
	txs := fillBlockTxs(t, key, nil)
	// Corrupt one tx to be structurally invalid (no outputs).
	txs[0].Outputs = nil

	hashes := make([]types.Hash, len(txs))
	for i, tr := range txs {
		hashes[i] = tr.Hash()
	}
	blk := NewBlock(&Header{Height: 0, MerkleRoot: ComputeMerkleRoot(hashes)}, txs)

	err := blk.Validate(ValidationContext{GenesisHash: blk.Hash()})
	if err == nil {
		t.Error("block with structurally invalid tx should fail validation")
	}
}

func TestBlock_Validate_DuplicateInputAcrossTxs(t *testing.T) {
	key, _ := crypto.GenerateKey()
	prevOut := types.Outpoint{TxID: types.Hash{0x01}, Index: 0}

	b1 := tx.NewBuilder().AddInput(prevOut, 0).AddOutput(900, types.LockKeyFor(key.PublicKey()))
	_ = b1.SignKey(key)
	b2 := tx.NewBuilder().AddInput(prevOut, 0).AddOutput(800, types.LockKeyFor(key.PublicKey()))
	_ = b2.SignKey(key)

	txs := []*tx.Transaction{b1.Build(), b2.Build()}
	txs = fillBlockTxs(t, key, txs)

	hashes := make([]types.Hash, len(txs))
	for i, tr := range txs {
		hashes[i] = tr.Hash()
	}
	blk := NewBlock(&Header{Height: 0, MerkleRoot: ComputeMerkleRoot(hashes)}, txs)

	err := blk.Validate(ValidationContext{GenesisHash: blk.Hash()})
	if !errors.Is(err, ErrDuplicateBlockInput) {
		t.Errorf("expected ErrDuplicateBlockInput, got: %v", err)
	}
}

func TestBlock_Validate_TooFewValidators(t *testing.T) {
	key, _ := crypto.GenerateKey()
	parent := &Header{Height: 5, MerkleRoot: types.Hash{0x01}}

	txs := fillBlockTxs(t, key, nil)
	hashes := make([]types.Hash, len(txs))
	for i, tr := range txs {
		hashes[i] = tr.Hash()
	}
	blk := NewBlock(&Header{
		PrevBlockHash: parent.Hash(),
		Height:        6,
		MerkleRoot:    ComputeMerkleRoot(hashes),
	}, txs)

	err := blk.Validate(ValidationContext{Parent: parent, ActiveValidatorCount: 1})
	if !errors.Is(err, ErrTooFewValidators) {
		t.Errorf("expected ErrTooFewValidators, got: %v", err)
	}
}

func TestBlock_Validate_EnrollmentsCountTowardValidatorMinimum(t *testing.T) {
	key, _ := crypto.GenerateKey()
	parent := &Header{Height: 5, MerkleRoot: types.Hash{0x01}}

	txs := fillBlockTxs(t, key, nil)
	hashes := make([]types.Hash, len(txs))
	for i, tr := range txs {
		hashes[i] = tr.Hash()
	}
	header := &Header{
		PrevBlockHash: parent.Hash(),
		Height:        6,
		MerkleRoot:    ComputeMerkleRoot(hashes),
		Enrollments:   make([]types.Enrollment, config.MinValidatorCount-1),
	}
	blk := NewBlock(header, txs)

	err := blk.Validate(ValidationContext{Parent: parent, ActiveValidatorCount: 1})
	if err != nil {
		t.Errorf("enrollments should make up the shortfall: %v", err)
	}
}

func TestBlock_Hash(t *testing.T) {
	blk, _ := validBlock(t)
	h := blk.Hash()
	if h.IsZero() {
		t.Error("Block.Hash() should not be zero")
	}

	blk2 := &Block{}
	if !blk2.Hash().IsZero() {
		t.Error("Block.Hash() with nil header should be zero")
	}
}

func TestHeader_Hash_Deterministic(t *testing.T) {
	h := &Header{
		PrevBlockHash: types.Hash{0x01},
		Height:        1,
		MerkleRoot:    types.Hash{0x02},
	}
	h1 := h.Hash()
	h2 := h.Hash()
	if h1 != h2 {
		t.Error("Header.Hash() should be deterministic")
	}
	if h1.IsZero() {
		t.Error("Header.Hash() should not be zero")
	}
}

func TestHeader_Hash_IgnoresBitmaskAndSignature(t *testing.T) {
	h := &Header{
		PrevBlockHash: types.Hash{0x01},
		Height:        1,
		MerkleRoot:    types.Hash{0x02},
	}
	h1 := h.Hash()

	h.SetBit(3)
	h.AggregateSignature = types.Signature{0x09}
	h2 := h.Hash()

	if h1 != h2 {
		t.Error("Header.Hash() should not change when bitmask/signature are set")
	}
}

func TestHeader_BitSetAndSetBit(t *testing.T) {
	h := &Header{}
	if h.BitSet(0) {
		t.Error("BitSet should be false before SetBit")
	}
	h.SetBit(9)
	if !h.BitSet(9) {
		t.Error("BitSet(9) should be true after SetBit(9)")
	}
	if h.BitSet(8) || h.BitSet(10) {
		t.Error("SetBit(9) should not affect adjacent bits")
	}
}
