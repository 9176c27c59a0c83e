// Package ledger is the single authoritative chain state: it owns
// the UTXO set, the active validator roster, and the append-only
// block store, and is the only component allowed to commit a block.
package ledger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bosagora-go/agora-node/internal/enrollment"
	"github.com/bosagora-go/agora-node/internal/mempool"
	"github.com/bosagora-go/agora-node/internal/quorum"
	"github.com/bosagora-go/agora-node/internal/storage"
	"github.com/bosagora-go/agora-node/internal/utxo"
	"github.com/bosagora-go/agora-node/pkg/block"
	"github.com/bosagora-go/agora-node/pkg/crypto"
	"github.com/bosagora-go/agora-node/pkg/tx"
	"github.com/bosagora-go/agora-node/pkg/types"
)

// Ledger errors.
var (
	ErrBlockInvalid     = errors.New("ledger: block failed validation")
	ErrBadAggregateSig  = errors.New("ledger: aggregate signature does not verify against active validator set")
	ErrHeightNotFound   = errors.New("ledger: no block at requested height")
	ErrTxNotFound       = errors.New("ledger: transaction hash not indexed")
	ErrConsensusDataBad = errors.New("ledger: consensus data failed validation")
)

// NotifyFunc is called once a block is durably committed.
// validatorSetChanged reports whether the accepted block altered the active validator
// set (new enrollments or pre-image-triggered cycle expiry), which
// callers use to know when they must rebuild quorum slices.
type NotifyFunc func(blk *block.Block, validatorSetChanged bool)

// Ledger ties together the UTXO set, the enrollment manager, and
// block storage into the ledger's atomic accept_block operation.
type Ledger struct {
	mu sync.Mutex

	genesisHash types.Hash
	store       *BlockStore
	utxos       *utxo.Store
	enrolls     *enrollment.Manager
	pool        *mempool.Pool

	height  uint64
	tipHash types.Hash

	onAccept NotifyFunc
}

// New constructs a Ledger over db, rebuilding state from any
// previously stored blocks. genesis is the block that must occupy
// height 0; it is accepted immediately if the store is empty.
func New(db storage.DB, genesis *block.Block, pool *mempool.Pool, onAccept NotifyFunc) (*Ledger, error) {
	l := &Ledger{
		genesisHash: genesis.Hash(),
		store:       NewBlockStore(db),
		utxos:       utxo.NewStore(db),
		enrolls:     enrollment.NewManager(),
		pool:        pool,
		onAccept:    onAccept,
	}

	tipHash, height, err := l.store.GetTip()
	if err != nil {
		return nil, fmt.Errorf("ledger init: read tip: %w", err)
	}
	if tipHash.IsZero() {
		if err := l.acceptLocked(genesis); err != nil {
			return nil, fmt.Errorf("ledger init: accept genesis: %w", err)
		}
		return l, nil
	}

	l.height = height
	l.tipHash = tipHash
	stored, err := l.store.GetBlockByHeight(0)
	if err != nil {
		return nil, fmt.Errorf("ledger init: read stored genesis: %w", err)
	}
	if stored.Hash() != l.genesisHash {
		return nil, fmt.Errorf("ledger init: stored genesis %s differs from configured genesis %s", stored.Hash(), l.genesisHash)
	}
	if err := l.rebuild(); err != nil {
		return nil, fmt.Errorf("ledger init: rebuild: %w", err)
	}
	return l, nil
}

// rebuild replays every stored block from height 0 through the
// current tip, reconstructing the UTXO set and enrollment history.
// The enrollment manager only needs state for validators whose cycle
// has not yet expired, so replay naturally self-prunes as ClearExpired
// runs each step.
func (l *Ledger) rebuild() error {
	if err := l.utxos.ClearAll(); err != nil {
		return fmt.Errorf("clear utxo set: %w", err)
	}
	l.enrolls = enrollment.NewManager()

	tip := l.height
	for h := uint64(0); h <= tip; h++ {
		blk, err := l.store.GetBlockByHeight(h)
		if err != nil {
			return fmt.Errorf("height %d: %w", h, err)
		}
		if err := l.applyBlock(blk); err != nil {
			return fmt.Errorf("height %d: %w", h, err)
		}
	}
	return nil
}

// AcceptBlock validates blk against current state and, if admissible,
// commits it atomically: the UTXO set, enrollment roster, and block
// store all move forward together, or none do.
func (l *Ledger) AcceptBlock(blk *block.Block) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var parent *block.Header
	if l.height > 0 || !l.tipHash.IsZero() {
		tip, err := l.store.GetBlock(l.tipHash)
		if err != nil {
			return false, fmt.Errorf("load tip: %w", err)
		}
		parent = tip.Header
	}

	vctx := block.ValidationContext{
		GenesisHash:          l.genesisHash,
		Parent:               parent,
		ActiveValidatorCount: l.enrolls.ValidatorCount(),
		UTXOs:                utxo.NewUsedSet(l.utxos),
	}
	if err := blk.Validate(vctx); err != nil {
		return false, fmt.Errorf("%w: %v", ErrBlockInvalid, err)
	}

	if blk.Header.Height > 0 {
		if err := l.verifyAggregateSignature(blk.Header); err != nil {
			return false, err
		}
	}

	changed, err := l.commitBlock(blk)
	if err != nil {
		return false, err
	}

	if l.pool != nil {
		l.pool.RemoveConfirmed(blk.Transactions)
	}
	if l.onAccept != nil {
		l.onAccept(blk, changed)
	}
	return true, nil
}

// acceptLocked is AcceptBlock's body for the genesis block, called
// before l.mu exists in any caller's hands but while New still owns
// exclusive access.
func (l *Ledger) acceptLocked(blk *block.Block) error {
	vctx := block.ValidationContext{GenesisHash: l.genesisHash, UTXOs: nil}
	if err := blk.Validate(vctx); err != nil {
		return fmt.Errorf("%w: %v", ErrBlockInvalid, err)
	}
	_, err := l.commitBlock(blk)
	return err
}

// verifyAggregateSignature checks that blk.Header.AggregateSignature
// is a valid Schnorr aggregate over the subset of the active
// validator set its ValidatorBitmask marks as signing, and that the
// signing subset meets its slice thresholds is left to the consensus
// layer — the ledger only checks cryptographic validity here.
func (l *Ledger) verifyAggregateSignature(h *block.Header) error {
	sorted := l.enrolls.SortedPublicKeys()
	var signers []types.PublicKey
	for i, pub := range sorted {
		if h.BitSet(i) {
			signers = append(signers, pub)
		}
	}
	if len(signers) == 0 {
		return fmt.Errorf("%w: no signers marked in bitmask", ErrBadAggregateSig)
	}
	psum, err := crypto.SumPoints(crypto.SortPublicKeys(signers))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadAggregateSig, err)
	}
	if !crypto.VerifyAggregate(psum, h.AggregateSignature, crypto.Hash(h.SigningBytes())) {
		return ErrBadAggregateSig
	}
	return nil
}

// commitBlock applies blk to the UTXO set and enrollment manager,
// recording an undo record, then advances the block store's tip.
// Returns whether the active validator set changed as a result.
func (l *Ledger) commitBlock(blk *block.Block) (bool, error) {
	undo := &undoRecord{PrevHeight: l.height, PrevTipHash: l.tipHash}
	changed := false

	for _, t := range blk.Transactions {
		txHash := t.Hash()
		for _, in := range t.Inputs {
			if in.PrevOut.IsZero() {
				continue
			}
			spent, ok := l.utxos.FindUTXO(in.PrevOut)
			if !ok {
				return false, fmt.Errorf("commit: missing input %s", in.PrevOut)
			}
			undo.SpentOutputs = append(undo.SpentOutputs, spentOutput{Outpoint: in.PrevOut, UTXO: spent})
		}
		for i := range t.Outputs {
			undo.CreatedOutpoints = append(undo.CreatedOutpoints, types.Outpoint{TxID: txHash, Index: uint32(i)})
		}
		if err := utxo.UpdateCache(l.utxos, t, txHash, blk.Header.Height); err != nil {
			return false, fmt.Errorf("commit: %w", err)
		}
	}

	for _, e := range blk.Header.Enrollments {
		lockUTXO, ok := l.utxos.FindUTXO(types.Outpoint{TxID: e.UTXOKey})
		if !ok {
			return false, fmt.Errorf("commit: enrollment references missing utxo %s", e.UTXOKey)
		}
		enrollerKey, err := enrollment.EnrollerKeyFromLock(lockUTXO.Output.Lock)
		if err != nil {
			return false, fmt.Errorf("commit: %w", err)
		}
		if err := l.enrolls.AddValidator(e, blk.Header.Height, l.utxos, enrollerKey); err != nil {
			return false, fmt.Errorf("commit: enrollment rejected: %w", err)
		}
		undo.EnrolledUTXOKeys = append(undo.EnrolledUTXOKeys, e.UTXOKey)
		changed = true
	}

	if l.enrolls.ClearExpired(blk.Header.Height) > 0 {
		changed = true
	}

	if err := l.store.PutBlock(blk); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	undoData, err := undo.marshal()
	if err != nil {
		return false, err
	}
	if err := l.store.PutUndo(blk.Hash(), undoData); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	if err := l.store.SetTip(blk.Hash(), blk.Header.Height); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}

	l.height = blk.Header.Height
	l.tipHash = blk.Hash()
	return changed, nil
}

// applyBlock replays blk through commitBlock (which also rewrites its
// undo record), used only during startup replay where a failure aborts
// the whole rebuild.
func (l *Ledger) applyBlock(blk *block.Block) error {
	_, err := l.commitBlock(blk)
	return err
}

// AcceptTransaction validates transaction against the current UTXO
// set and, if admissible, queues it in the mempool for the next
// nominating round.
func (l *Ledger) AcceptTransaction(transaction *tx.Transaction) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pool == nil {
		return false, fmt.Errorf("ledger: no mempool configured")
	}
	if _, err := l.pool.Add(transaction); err != nil {
		return false, err
	}
	return true, nil
}

// PrepareNominatingSet selects up to maxTxs pending transactions and
// any admissible pending enrollments, sorted by transaction hash, for
// this node to nominate next.
func (l *Ledger) PrepareNominatingSet(maxTxs int, candidates []types.Enrollment) ConsensusData {
	l.mu.Lock()
	defer l.mu.Unlock()

	var txSet []*tx.Transaction
	if l.pool != nil {
		txSet = l.pool.SelectForBlock(maxTxs)
	}
	sortTxSet(txSet)

	var enrolls []types.Enrollment
	for _, e := range candidates {
		lockUTXO, ok := l.utxos.FindUTXO(types.Outpoint{TxID: e.UTXOKey})
		if !ok {
			continue
		}
		enrollerKey, err := enrollment.EnrollerKeyFromLock(lockUTXO.Output.Lock)
		if err != nil {
			continue
		}
		probe := enrollment.NewManager()
		if err := probe.AddValidator(e, l.height, l.utxos, enrollerKey); err != nil {
			continue
		}
		enrolls = append(enrolls, e)
	}

	return ConsensusData{TxSet: txSet, Enrolls: enrolls}
}

// ValidateConsensusData reports whether data's transactions and
// enrollments would all still be admissible against current state.
func (l *Ledger) ValidateConsensusData(data ConsensusData) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	used := utxo.NewUsedSet(l.utxos)
	for i, t := range data.TxSet {
		if i > 0 {
			hPrev, hCur := data.TxSet[i-1].Hash(), t.Hash()
			if !lessHash(hPrev, hCur) {
				return fmt.Errorf("%w: tx set not sorted ascending at index %d", ErrConsensusDataBad, i)
			}
		}
		if err := t.Validate(); err != nil {
			return fmt.Errorf("%w: tx %d: %v", ErrConsensusDataBad, i, err)
		}
		if _, err := t.ValidateWithUTXOs(l.height, used); err != nil {
			return fmt.Errorf("%w: tx %d: %v", ErrConsensusDataBad, i, err)
		}
	}

	for _, e := range data.Enrolls {
		lockUTXO, ok := l.utxos.FindUTXO(types.Outpoint{TxID: e.UTXOKey})
		if !ok {
			return fmt.Errorf("%w: enrollment references missing utxo %s", ErrConsensusDataBad, e.UTXOKey)
		}
		enrollerKey, err := enrollment.EnrollerKeyFromLock(lockUTXO.Output.Lock)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrConsensusDataBad, err)
		}
		probe := enrollment.NewManager()
		if err := probe.AddValidator(e, l.height, l.utxos, enrollerKey); err != nil {
			return fmt.Errorf("%w: enrollment %s: %v", ErrConsensusDataBad, e.UTXOKey, err)
		}
	}
	return nil
}

// GetBlockHeight returns the current chain tip height.
func (l *Ledger) GetBlockHeight() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.height
}

// GetBlocksFrom returns every block from startHeight through the
// current tip, inclusive.
func (l *Ledger) GetBlocksFrom(startHeight uint64) ([]*block.Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if startHeight > l.height {
		return nil, nil
	}
	blocks := make([]*block.Block, 0, l.height-startHeight+1)
	for h := startHeight; h <= l.height; h++ {
		blk, err := l.store.GetBlockByHeight(h)
		if err != nil {
			return nil, fmt.Errorf("%w: height %d: %v", ErrHeightNotFound, h, err)
		}
		blocks = append(blocks, blk)
	}
	return blocks, nil
}

// GetMerklePath returns the sibling path proving txHash is included
// in the block at height, along with the block's merkle root.
func (l *Ledger) GetMerklePath(height uint64, txHash types.Hash) ([]types.Hash, []bool, types.Hash, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	blk, err := l.store.GetBlockByHeight(height)
	if err != nil {
		return nil, nil, types.Hash{}, fmt.Errorf("%w: height %d: %v", ErrHeightNotFound, height, err)
	}

	hashes := blk.TxHashes()
	index := -1
	for i, h := range hashes {
		if h == txHash {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, nil, types.Hash{}, fmt.Errorf("%w: %s not in block at height %d", ErrTxNotFound, txHash, height)
	}

	path, isRight, ok := block.MerklePath(hashes, index)
	if !ok {
		return nil, nil, types.Hash{}, fmt.Errorf("ledger: merkle path computation failed for height %d", height)
	}
	return path, isRight, blk.Header.MerkleRoot, nil
}

// GetValidatorRandomSeed returns the XOR-combined revealed pre-images
// of the currently active validator set, the shared randomness the
// quorum builder uses when re-deriving slices for config.
func (l *Ledger) GetValidatorRandomSeed() types.Hash {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enrolls.GetRandomSeed(l.enrolls.SortedPublicKeys())
}

// ActiveValidators returns the stake-weighted validator list the
// quorum builder needs, derived from the enrollment manager's active
// roster and the UTXO set's recorded Freeze amounts.
func (l *Ledger) ActiveValidators() ([]quorum.Validator, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []quorum.Validator
	for _, utxoKey := range l.enrolls.GetEnrolledUTXOs() {
		pub, ok := l.enrolls.GetEnrollmentPublicKey(utxoKey)
		if !ok {
			continue
		}
		stakeUTXO, ok := l.utxos.FindUTXO(types.Outpoint{TxID: utxoKey})
		if !ok {
			return nil, fmt.Errorf("ledger: enrolled utxo %s missing from utxo set", utxoKey)
		}
		out = append(out, quorum.Validator{PublicKey: pub, Stake: stakeUTXO.Output.Value})
	}
	return out, nil
}
