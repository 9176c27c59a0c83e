package ledger

import (
	"testing"

	"github.com/bosagora-go/agora-node/internal/storage"
	"github.com/bosagora-go/agora-node/pkg/block"
	"github.com/bosagora-go/agora-node/pkg/crypto"
	"github.com/bosagora-go/agora-node/pkg/tx"
	"github.com/bosagora-go/agora-node/pkg/types"
)

func testBlock(t *testing.T, height uint64, prev types.Hash) *block.Block {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	txs := []*tx.Transaction{{
		Type:    tx.Coinbase,
		Inputs:  []types.Input{{PrevOut: types.Outpoint{}}},
		Outputs: []types.Output{{Value: 1000, Lock: types.LockKeyFor(key.PublicKey())}},
	}}
	root := block.ComputeMerkleRoot([]types.Hash{txs[0].Hash()})
	header := &block.Header{PrevBlockHash: prev, Height: height, MerkleRoot: root}
	return block.NewBlock(header, txs)
}

func TestBlockStore_PutGetBlock(t *testing.T) {
	bs := NewBlockStore(storage.NewMemory())
	blk := testBlock(t, 0, types.Hash{})

	if err := bs.PutBlock(blk); err != nil {
		t.Fatalf("PutBlock: %v", err)
	}

	got, err := bs.GetBlock(blk.Hash())
	if err != nil {
		t.Fatalf("GetBlock: %v", err)
	}
	if got.Header.Height != blk.Header.Height {
		t.Errorf("height mismatch: got %d, want %d", got.Header.Height, blk.Header.Height)
	}
}

func TestBlockStore_GetBlockByHeight(t *testing.T) {
	bs := NewBlockStore(storage.NewMemory())
	blk := testBlock(t, 5, types.Hash{0x01})
	if err := bs.PutBlock(blk); err != nil {
		t.Fatalf("PutBlock: %v", err)
	}

	got, err := bs.GetBlockByHeight(5)
	if err != nil {
		t.Fatalf("GetBlockByHeight: %v", err)
	}
	if got.Hash() != blk.Hash() {
		t.Error("block retrieved by height does not match what was stored")
	}
}

func TestBlockStore_HasBlock(t *testing.T) {
	bs := NewBlockStore(storage.NewMemory())
	blk := testBlock(t, 0, types.Hash{})

	if has, _ := bs.HasBlock(blk.Hash()); has {
		t.Error("block should not exist before it is stored")
	}
	if err := bs.PutBlock(blk); err != nil {
		t.Fatalf("PutBlock: %v", err)
	}
	if has, _ := bs.HasBlock(blk.Hash()); !has {
		t.Error("block should exist after it is stored")
	}
}

func TestBlockStore_TipRoundTrip(t *testing.T) {
	bs := NewBlockStore(storage.NewMemory())

	hash, height, err := bs.GetTip()
	if err != nil {
		t.Fatalf("GetTip on fresh store: %v", err)
	}
	if !hash.IsZero() || height != 0 {
		t.Errorf("fresh store should report zero tip, got hash=%s height=%d", hash, height)
	}

	want := types.Hash{0xaa}
	if err := bs.SetTip(want, 42); err != nil {
		t.Fatalf("SetTip: %v", err)
	}
	got, gotHeight, err := bs.GetTip()
	if err != nil {
		t.Fatalf("GetTip: %v", err)
	}
	if got != want || gotHeight != 42 {
		t.Errorf("GetTip: got hash=%s height=%d, want hash=%s height=%d", got, gotHeight, want, 42)
	}
}

func TestBlockStore_TxLocation(t *testing.T) {
	bs := NewBlockStore(storage.NewMemory())
	blk := testBlock(t, 3, types.Hash{0x02})
	if err := bs.PutBlock(blk); err != nil {
		t.Fatalf("PutBlock: %v", err)
	}

	height, blockHash, err := bs.GetTxLocation(blk.Transactions[0].Hash())
	if err != nil {
		t.Fatalf("GetTxLocation: %v", err)
	}
	if height != 3 || blockHash != blk.Hash() {
		t.Errorf("GetTxLocation: got height=%d blockHash=%s, want height=3 blockHash=%s", height, blockHash, blk.Hash())
	}
}

func TestBlockStore_UndoRoundTrip(t *testing.T) {
	bs := NewBlockStore(storage.NewMemory())
	hash := types.Hash{0x07}
	data := []byte(`{"prev_height":3}`)

	if err := bs.PutUndo(hash, data); err != nil {
		t.Fatalf("PutUndo: %v", err)
	}
	got, err := bs.GetUndo(hash)
	if err != nil {
		t.Fatalf("GetUndo: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("GetUndo: got %s, want %s", got, data)
	}
}

func TestBlockStore_GetBlock_NotFound(t *testing.T) {
	bs := NewBlockStore(storage.NewMemory())
	if _, err := bs.GetBlock(types.Hash{0x99}); err == nil {
		t.Error("GetBlock for an unstored hash should error")
	}
}
