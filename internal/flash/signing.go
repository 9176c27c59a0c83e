package flash

import (
	"fmt"

	"github.com/bosagora-go/agora-node/pkg/crypto"
	"github.com/bosagora-go/agora-node/pkg/tx"
	"github.com/bosagora-go/agora-node/pkg/types"
)

// errNoFunding is returned by any operation that needs the funding
// outpoint before PinFunding has recorded one.
var errNoFunding = fmt.Errorf("flash: funding outpoint not yet known")

// PinFunding records the outpoint the channel's first (seq 0) update
// transaction spends. The funder computes this once it has built (but
// not yet broadcast) its funding transaction; both parties must agree
// on it before the Setup round can be built, since the update
// transaction's lock script is part of what gets signed.
func (c *Channel) PinFunding(outpoint types.Outpoint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateSetup {
		return fmt.Errorf("flash: funding already pinned past Setup (state=%s)", c.state)
	}
	c.fundingOutpoint = outpoint
	c.fundingPinned = true
	return nil
}

func (c *Channel) prevOutpointLocked() (types.Outpoint, error) {
	if c.current != nil {
		return types.Outpoint{TxID: c.current.updateTx.Hash(), Index: 0}, nil
	}
	if !c.fundingPinned {
		return types.Outpoint{}, errNoFunding
	}
	return c.fundingOutpoint, nil
}

// buildRoundLocked constructs the candidate update/settlement transaction
// pair for seq against whatever output the previous round (or the
// funding transaction, for seq 0) left behind.
func (c *Channel) buildRoundLocked(seq uint64, funderBalance, peerBalance types.Amount) (*round, error) {
	total, validity := types.Add(funderBalance, peerBalance)
	if validity != types.AmountValid && validity != types.AmountZero {
		return nil, fmt.Errorf("flash: balance overflow")
	}
	if total > c.cfg.Capacity {
		return nil, fmt.Errorf("%w: proposed total %d exceeds capacity %d", errExceedsCapacity, total, c.cfg.Capacity)
	}

	prevOut, err := c.prevOutpointLocked()
	if err != nil {
		return nil, err
	}

	settleX, err := c.settleAggregatePub(seq)
	if err != nil {
		return nil, fmt.Errorf("derive settlement aggregate key: %w", err)
	}
	updateX, err := c.updateAggregatePub()
	if err != nil {
		return nil, fmt.Errorf("derive update aggregate key: %w", err)
	}

	lock, err := CreateLockEltoo(uint64(c.cfg.SettleTime), settleX, updateX, seq)
	if err != nil {
		return nil, fmt.Errorf("build eltoo lock: %w", err)
	}

	updateTx := &tx.Transaction{
		Type:       tx.Payment,
		SequenceID: seq,
		Inputs:     []types.Input{{PrevOut: prevOut}},
		Outputs:    []types.Output{{Value: c.cfg.Capacity, Lock: lock}},
	}

	var settleOutputs []types.Output
	if funderBalance > 0 {
		settleOutputs = append(settleOutputs, types.Output{Value: funderBalance, Lock: types.LockKeyFor(c.cfg.FunderPK)})
	}
	if peerBalance > 0 {
		settleOutputs = append(settleOutputs, types.Output{Value: peerBalance, Lock: types.LockKeyFor(c.cfg.PeerPK)})
	}
	settleTx := &tx.Transaction{
		Type:    tx.Payment,
		Inputs:  []types.Input{{PrevOut: types.Outpoint{TxID: updateTx.Hash(), Index: 0}, UnlockAge: uint32(c.cfg.SettleTime)}},
		Outputs: settleOutputs,
	}

	settleNonce, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate settle nonce: %w", err)
	}
	updateNonce, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate update nonce: %w", err)
	}

	return &round{
		seqID:            seq,
		funderBalance:    funderBalance,
		peerBalance:      peerBalance,
		updateTx:         updateTx,
		settleTx:         settleTx,
		localSettleNonce: settleNonce,
		localUpdateNonce: updateNonce,
	}, nil
}

// errExceedsCapacity is wrapped into ErrExceedsMaximumPayment by
// callers that translate round-building failures into a Result.
var errExceedsCapacity = fmt.Errorf("flash: balance exceeds channel capacity")

// BeginRound starts a new signing round proposing funderBalance /
// peerBalance at the next sequence id (0 for the Setup round). It
// returns the local nonce pair to send to the counterparty. Only one
// round may be in flight at a time.
func (c *Channel) BeginRound(funderBalance, peerBalance types.Amount) (NoncePair, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending != nil {
		return NoncePair{}, errSigningInProcess
	}
	if c.state != StateSetup && c.state != StateOpen {
		return NoncePair{}, fmt.Errorf("flash: cannot begin a round in state %s", c.state)
	}

	seq := c.nextSeqLocked()
	r, err := c.buildRoundLocked(seq, funderBalance, peerBalance)
	if err != nil {
		return NoncePair{}, err
	}
	c.pending = r

	return NoncePair{
		SettleNonce: r.localSettleNonce.PublicKey(),
		UpdateNonce: r.localUpdateNonce.PublicKey(),
	}, nil
}

var errSigningInProcess = fmt.Errorf("flash: a signing round is already in progress")

// HandleProposal services an incoming proposal from the counterparty:
// it mirrors the same round construction locally, records the
// proposer's nonces, and returns this side's settlement signature
// share — the first of the two shares spec's ordering requires
// ("the other party returns its settlement-sig, then its update-sig").
func (c *Channel) HandleProposal(seq uint64, funderBalance, peerBalance types.Amount, remoteNonces NoncePair) (SigShare, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending != nil {
		return SigShare{}, errSigningInProcess
	}
	if seq != c.nextSeqLocked() {
		return SigShare{}, errInvalidSequenceID
	}

	r, err := c.buildRoundLocked(seq, funderBalance, peerBalance)
	if err != nil {
		return SigShare{}, err
	}
	r.remoteSettleNonce = remoteNonces.SettleNonce
	r.remoteUpdateNonce = remoteNonces.UpdateNonce
	r.haveRemoteNonces = true
	c.pending = r

	share, err := c.settleShareLocked(r)
	if err != nil {
		return SigShare{}, err
	}
	return SigShare{Nonce: r.localSettleNonce.PublicKey(), Partial: share}, nil
}

// SettleShareForPending returns this side's settlement share for an
// already-pending round at seq, without rebuilding it — used when the
// round was already constructed by an earlier step (the Setup
// handshake pins its seq-0 round during HandleOpenChannel, before
// request_settle_sig is ever called for it).
func (c *Channel) SettleShareForPending(seq uint64) (SigShare, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := c.pending
	if r == nil || r.seqID != seq || !r.haveRemoteNonces {
		return SigShare{}, errInvalidSequenceID
	}
	share, err := c.settleShareLocked(r)
	if err != nil {
		return SigShare{}, err
	}
	return SigShare{Nonce: r.localSettleNonce.PublicKey(), Partial: share}, nil
}

// recordRemoteNonces attaches a counterparty's nonce pair to the
// pending round at seq, used when the nonces arrived bundled with an
// open_channel call rather than a later request_settle_sig call.
func (c *Channel) recordRemoteNonces(seq uint64, nonces NoncePair) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil || c.pending.seqID != seq {
		return
	}
	c.pending.remoteSettleNonce = nonces.SettleNonce
	c.pending.remoteUpdateNonce = nonces.UpdateNonce
	c.pending.haveRemoteNonces = true
}

// PendingSeq returns the sequence id of the in-flight round, or false
// if no round is pending.
func (c *Channel) PendingSeq() (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return 0, false
	}
	return c.pending.seqID, true
}

func (c *Channel) settleShareLocked(r *round) (types.Scalar, error) {
	Rsum, err := crypto.SumPoints([]types.PublicKey{r.localSettleNonce.PublicKey(), r.remoteSettleNonce})
	if err != nil {
		return types.Scalar{}, fmt.Errorf("sum settle nonces: %w", err)
	}
	Psum, err := c.settleAggregatePub(r.seqID)
	if err != nil {
		return types.Scalar{}, err
	}
	localSettlePriv, err := derivedSettlePriv(c.localSettleBase, r.seqID)
	if err != nil {
		return types.Scalar{}, err
	}
	challenge, err := r.settleTx.GetChallenge(types.SigHashNoInput, 0)
	if err != nil {
		return types.Scalar{}, fmt.Errorf("settlement challenge: %w", err)
	}
	return crypto.SignPartial(localSettlePriv, r.localSettleNonce, Rsum, Psum, challenge)
}

func (c *Channel) updateShareLocked(r *round) (types.Scalar, error) {
	Rsum, err := crypto.SumPoints([]types.PublicKey{r.localUpdateNonce.PublicKey(), r.remoteUpdateNonce})
	if err != nil {
		return types.Scalar{}, fmt.Errorf("sum update nonces: %w", err)
	}
	Psum, err := c.updateAggregatePub()
	if err != nil {
		return types.Scalar{}, err
	}
	challenge, err := r.updateTx.GetChallenge(types.SigHashNoInput, 0)
	if err != nil {
		return types.Scalar{}, fmt.Errorf("update challenge: %w", err)
	}
	return crypto.SignPartial(c.localUpdateKey, r.localUpdateNonce, Rsum, Psum, challenge)
}

// ReceiveSettleShare is called by the proposing side once the
// counterparty's settlement share (from HandleProposal's response) has
// arrived. It finalizes and verifies the aggregate settlement
// signature and returns this side's own update-signature share,
// together with the finalized settlement signature to forward to the
// counterparty — only after the settlement is co-signed is it safe to
// hand out an update share (the asymmetric-risk invariant).
func (c *Channel) ReceiveSettleShare(seq uint64, share SigShare) (types.Signature, types.Scalar, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := c.pending
	if r == nil || r.seqID != seq {
		return types.Signature{}, types.Scalar{}, errInvalidSequenceID
	}

	r.remoteSettleNonce = share.Nonce
	r.haveRemoteNonces = true

	localShare, err := c.settleShareLocked(r)
	if err != nil {
		return types.Signature{}, types.Scalar{}, err
	}

	Rsum, err := crypto.SumPoints([]types.PublicKey{r.localSettleNonce.PublicKey(), r.remoteSettleNonce})
	if err != nil {
		return types.Signature{}, types.Scalar{}, err
	}
	Psum, err := c.settleAggregatePub(r.seqID)
	if err != nil {
		return types.Signature{}, types.Scalar{}, err
	}
	sig := crypto.AggregateSignatures(Rsum, []types.Scalar{localShare, share.Partial})

	challenge, err := r.settleTx.GetChallenge(types.SigHashNoInput, 0)
	if err != nil {
		return types.Signature{}, types.Scalar{}, err
	}
	if !crypto.VerifyAggregate(Psum, sig, challenge) {
		return types.Signature{}, types.Scalar{}, errInvalidSignature
	}

	r.settleSig = sig
	r.settleSigned = true

	updateShare, err := c.updateShareLocked(r)
	if err != nil {
		return types.Signature{}, types.Scalar{}, err
	}
	return sig, updateShare, nil
}

var (
	errInvalidSequenceID = fmt.Errorf("flash: sequence id does not match the channel's next expected round")
	errInvalidSignature  = fmt.Errorf("flash: aggregate signature failed verification")
)

// HandleUpdateRequest is called on the responding side once the
// proposer has a finalized settlement signature and its own update
// share ready. It verifies the settlement signature (refusing to
// proceed otherwise, per the asymmetric-risk invariant), computes its
// own update share, finalizes the update signature, commits the round,
// and returns the finalized update signature for the proposer to
// cross-check.
func (c *Channel) HandleUpdateRequest(seq uint64, settleSig types.Signature, remoteUpdateShare types.Scalar) (types.Signature, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := c.pending
	if r == nil || r.seqID != seq {
		return types.Signature{}, errInvalidSequenceID
	}

	Psettle, err := c.settleAggregatePub(r.seqID)
	if err != nil {
		return types.Signature{}, err
	}
	settleChallenge, err := r.settleTx.GetChallenge(types.SigHashNoInput, 0)
	if err != nil {
		return types.Signature{}, err
	}
	if !crypto.VerifyAggregate(Psettle, settleSig, settleChallenge) {
		return types.Signature{}, errSettleNotReceived
	}
	r.settleSig = settleSig
	r.settleSigned = true

	localUpdateShare, err := c.updateShareLocked(r)
	if err != nil {
		return types.Signature{}, err
	}

	Rsum, err := crypto.SumPoints([]types.PublicKey{r.localUpdateNonce.PublicKey(), r.remoteUpdateNonce})
	if err != nil {
		return types.Signature{}, err
	}
	Pupdate, err := c.updateAggregatePub()
	if err != nil {
		return types.Signature{}, err
	}
	updateSig := crypto.AggregateSignatures(Rsum, []types.Scalar{localUpdateShare, remoteUpdateShare})

	updateChallenge, err := r.updateTx.GetChallenge(types.SigHashNoInput, 0)
	if err != nil {
		return types.Signature{}, err
	}
	if !crypto.VerifyAggregate(Pupdate, updateSig, updateChallenge) {
		return types.Signature{}, errInvalidSignature
	}
	r.updateSig = updateSig
	r.updateSigned = true

	if err := c.commitRoundLocked(); err != nil {
		return types.Signature{}, err
	}
	return updateSig, nil
}

var errSettleNotReceived = fmt.Errorf("flash: settlement signature not received or not yet valid")

// FinalizeRound is called on the proposing side once the counterparty
// has returned the finalized update signature from HandleUpdateRequest.
// It re-verifies and commits the round.
func (c *Channel) FinalizeRound(seq uint64, updateSig types.Signature) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := c.pending
	if r == nil || r.seqID != seq {
		return errInvalidSequenceID
	}
	if !r.settleSigned {
		return errSettleNotReceived
	}

	Pupdate, err := c.updateAggregatePub()
	if err != nil {
		return err
	}
	challenge, err := r.updateTx.GetChallenge(types.SigHashNoInput, 0)
	if err != nil {
		return err
	}
	if !crypto.VerifyAggregate(Pupdate, updateSig, challenge) {
		return errInvalidSignature
	}
	r.updateSig = updateSig
	r.updateSigned = true

	return c.commitRoundLocked()
}

// commitRoundLocked promotes the pending round to current and advances
// the channel's state. Callers must hold c.mu and must have already
// verified both signatures.
func (c *Channel) commitRoundLocked() error {
	r := c.pending
	if r == nil || !r.settleSigned || !r.updateSigned {
		return fmt.Errorf("flash: cannot commit an incomplete round")
	}

	c.current = r
	c.pending = nil

	if c.state == StateSetup {
		return c.advanceState(StateWaitingForFunding)
	}
	return nil
}

// FundingPublished marks a channel whose seq-0 round has completed as
// funded: the funding transaction has been observed on-chain (or, for
// the funder, has just been published) and balance updates may begin.
func (c *Channel) FundingPublished() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateWaitingForFunding {
		return fmt.Errorf("flash: FundingPublished called from state %s, want WaitingForFunding", c.state)
	}
	return c.advanceState(StateOpen)
}

// LatestUpdateTx returns the update transaction of the latest
// fully-signed round, with its unlock filled in and ready to publish.
func (c *Channel) LatestUpdateTx() (*tx.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil, fmt.Errorf("flash: no signed round yet")
	}
	unlock, err := CreateUnlockUpdate(c.current.updateSig)
	if err != nil {
		return nil, err
	}
	out := c.current.updateTx.Clone()
	out.Inputs[0].Unlock = unlock
	return out, nil
}

// LatestSettleTx returns the settlement transaction of the latest
// fully-signed round, with its unlock filled in and the input's
// UnlockAge set to the observed age (the real age can only be known at
// broadcast time, which is why the signature committed to a blanked
// input via SigHash.NoInput).
func (c *Channel) LatestSettleTx(observedAge uint32) (*tx.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil, fmt.Errorf("flash: no signed round yet")
	}
	unlock, err := CreateUnlockSettle(c.current.settleSig)
	if err != nil {
		return nil, err
	}
	out := c.current.settleTx.Clone()
	out.Inputs[0].UnlockAge = observedAge
	out.Inputs[0].Unlock = unlock
	return out, nil
}

// BeginClose moves the channel to PendingClose and returns the latest
// update transaction to publish. The settlement transaction follows
// once settle_time blocks have passed (see LatestSettleTx).
func (c *Channel) BeginClose() (*tx.Transaction, error) {
	c.mu.Lock()
	if c.state != StateOpen {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: close requires state Open, got %s", errChannelNotOpen, c.state)
	}
	if err := c.advanceState(StatePendingClose); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.mu.Unlock()
	return c.LatestUpdateTx()
}

// FinishClose marks the channel Closed. PublishSettlement calls it
// right after handing the settlement transaction to the publisher,
// without waiting for on-chain confirmation.
func (c *Channel) FinishClose() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StatePendingClose {
		return fmt.Errorf("flash: FinishClose called from state %s, want PendingClose", c.state)
	}
	return c.advanceState(StateClosed)
}

var errChannelNotOpen = fmt.Errorf("flash: channel is not open")
