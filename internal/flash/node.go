package flash

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bosagora-go/agora-node/pkg/crypto"
	"github.com/bosagora-go/agora-node/pkg/tx"
	"github.com/bosagora-go/agora-node/pkg/types"
)

// TxPublisher broadcasts a fully-unlocked transaction to the network.
// Injected rather than called directly on a Ledger/PeerTransport to
// break the circular Channel↔FlashNode dependency the node's signing
// rounds would otherwise require.
type TxPublisher func(t *tx.Transaction) error

// FlashPeer is the RPC surface a remote Flash node exposes to its
// channel counterparty. A FlashNode calls these methods on whichever
// transport handle corresponds to the channel's peer public key; it
// never manipulates the counterparty's Channel value directly.
type FlashPeer interface {
	// OpenChannel proposes a new channel and exchanges the Setup
	// round's nonce pair in one round trip. fundingOutpoint is the
	// funder's not-yet-broadcast funding transaction output both
	// parties' seq-0 update transaction must spend.
	OpenChannel(cfg ChannelConfig, fundingOutpoint types.Outpoint, peerNonce NoncePair) Result[NoncePair]
	// RequestSettleSig proposes balances at seq and returns the
	// responder's settlement signature share.
	RequestSettleSig(chanID types.Hash, seq uint64, funderBalance, peerBalance types.Amount, peerNonce NoncePair) Result[SigShare]
	// RequestUpdateSig forwards the finalized settlement signature and
	// this side's update share, and returns the finalized update
	// signature once the responder has verified and combined it.
	RequestUpdateSig(chanID types.Hash, seq uint64, settleSig types.Signature, updateShare types.Scalar) Result[types.Signature]
	// CloseChannel requests a collaborative close at seq.
	CloseChannel(chanID types.Hash, seq uint64, peerNonce types.PublicKey, fee types.Amount) Result[types.Signature]
	// GetChannelState queries the peer's view of a channel's state.
	GetChannelState(chanID types.Hash) Result[State]
}

// PeerDirectory resolves a channel's counterparty public key to the
// transport handle used to reach it, mirroring the design notes'
// "map from PublicKey to an opaque transport handle" replacement for
// the original associative array of enrolled-node clients.
type PeerDirectory interface {
	Peer(pubKey types.PublicKey) (FlashPeer, bool)
}

// Node coordinates every channel this party holds, dispatching signing
// rounds against the counterparty via PeerDirectory and publishing
// finalized transactions via the injected TxPublisher.
type Node struct {
	mu sync.RWMutex

	selfPK      types.PublicKey
	genesisHash types.Hash
	minFunding  types.Amount
	maxFunding  types.Amount
	minSettle   uint32
	maxSettle   uint32

	peers     PeerDirectory
	publish   TxPublisher
	channels  map[types.Hash]*Channel
	byPeer    map[types.PublicKey][]types.Hash
}

// NodeConfig collects the bounds a Node enforces on channels it opens
// or accepts, taken from flash.{min_funding, max_funding,
// min_settle_time, max_settle_time}.
type NodeConfig struct {
	SelfPK      types.PublicKey
	GenesisHash types.Hash
	MinFunding  types.Amount
	MaxFunding  types.Amount
	MinSettle   uint32
	MaxSettle   uint32
}

// NewNode constructs a Flash node bound to peers and publish.
func NewNode(cfg NodeConfig, peers PeerDirectory, publish TxPublisher) *Node {
	return &Node{
		selfPK:      cfg.SelfPK,
		genesisHash: cfg.GenesisHash,
		minFunding:  cfg.MinFunding,
		maxFunding:  cfg.MaxFunding,
		minSettle:   cfg.MinSettle,
		maxSettle:   cfg.MaxSettle,
		peers:       peers,
		publish:     publish,
		channels:    make(map[types.Hash]*Channel),
		byPeer:      make(map[types.PublicKey][]types.Hash),
	}
}

func (n *Node) peerFor(chanID types.Hash) (*Channel, FlashPeer, ErrorCode) {
	n.mu.RLock()
	ch, ok := n.channels[chanID]
	n.mu.RUnlock()
	if !ok {
		return nil, nil, ErrWrongChannelID
	}
	peerPK := ch.cfg.PeerPK
	if peerPK == n.selfPK {
		peerPK = ch.cfg.FunderPK
	}
	peer, ok := n.peers.Peer(peerPK)
	if !ok {
		return ch, nil, ErrWrongChannelID
	}
	return ch, peer, ErrNone
}

func (n *Node) registerChannel(ch *Channel, peerPK types.PublicKey) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.channels[ch.cfg.ChanID] = ch
	n.byPeer[peerPK] = append(n.byPeer[peerPK], ch.cfg.ChanID)
}

// OpenChannel is the local-initiator half of channel creation: it
// derives a channel id from the (not-yet-broadcast) funding outpoint,
// builds the local Channel, exchanges Setup-round nonces with the
// peer, and drives the Setup signing round (balances capacity/0) to
// completion so the funding transaction can be safely published
// immediately afterward.
func (n *Node) OpenChannel(peerPK types.PublicKey, fundingOutpoint types.Outpoint, capacity types.Amount, settleTime uint32, localSettleBase, localUpdateKey *crypto.PrivateKey, remoteSettlePub0, remoteUpdatePub types.PublicKey) (*Channel, Result[types.Signature]) {
	if capacity < n.minFunding {
		return nil, Fail[types.Signature](ErrFundingTooLow, fmt.Sprintf("capacity %d below minimum %d", capacity, n.minFunding))
	}
	if n.maxFunding != 0 && capacity > n.maxFunding {
		return nil, Fail[types.Signature](ErrFundingTooLow, fmt.Sprintf("capacity %d exceeds maximum %d", capacity, n.maxFunding))
	}
	if settleTime < n.minSettle || (n.maxSettle != 0 && settleTime > n.maxSettle) {
		return nil, Fail[types.Signature](ErrInvalidChannelID, fmt.Sprintf("settle_time %d outside [%d,%d]", settleTime, n.minSettle, n.maxSettle))
	}

	chanID := DeriveChannelID(fundingOutpoint.TxID, fundingOutpoint.Index, n.selfPK, peerPK, n.genesisHash)

	n.mu.RLock()
	_, exists := n.channels[chanID]
	n.mu.RUnlock()
	if exists {
		return nil, Fail[types.Signature](ErrDuplicateChannelID, "channel id already in use")
	}

	cfg := ChannelConfig{
		ChanID:      chanID,
		GenesisHash: n.genesisHash,
		FunderPK:    n.selfPK,
		PeerPK:      peerPK,
		Capacity:    capacity,
		SettleTime:  settleTime,
	}
	ch := NewChannel(cfg, true, localSettleBase, localUpdateKey, remoteSettlePub0, remoteUpdatePub)
	if err := ch.PinFunding(fundingOutpoint); err != nil {
		return nil, Fail[types.Signature](ErrInvalidChannelID, err.Error())
	}

	peer, ok := n.peers.Peer(peerPK)
	if !ok {
		return nil, Fail[types.Signature](ErrWrongChannelID, "no transport for peer")
	}

	localNonces, err := ch.BeginRound(capacity, 0)
	if err != nil {
		return nil, Fail[types.Signature](ErrSigningInProcess, err.Error())
	}

	peerNonceResult := peer.OpenChannel(cfg, fundingOutpoint, localNonces)
	if !peerNonceResult.IsOK() {
		return nil, Fail[types.Signature](peerNonceResult.Error, peerNonceResult.Message)
	}

	settleResult := peer.RequestSettleSig(chanID, 0, capacity, 0, localNonces)
	if !settleResult.IsOK() {
		return nil, Fail[types.Signature](settleResult.Error, settleResult.Message)
	}

	settleSig, updateShare, err := ch.ReceiveSettleShare(0, settleResult.Value)
	if err != nil {
		return nil, Fail[types.Signature](ErrInvalidSignature, err.Error())
	}

	updateResult := peer.RequestUpdateSig(chanID, 0, settleSig, updateShare)
	if !updateResult.IsOK() {
		return nil, Fail[types.Signature](updateResult.Error, updateResult.Message)
	}

	if err := ch.FinalizeRound(0, updateResult.Value); err != nil {
		return nil, Fail[types.Signature](ErrInvalidSignature, err.Error())
	}

	n.registerChannel(ch, peerPK)
	return ch, Ok(updateResult.Value)
}

// HandleOpenChannel services an incoming open_channel call: it builds
// the responding side's Channel and returns this party's Setup-round
// nonce pair.
func (n *Node) HandleOpenChannel(cfg ChannelConfig, fundingOutpoint types.Outpoint, peerNonce NoncePair, localSettleBase, localUpdateKey *crypto.PrivateKey, remoteSettlePub0, remoteUpdatePub types.PublicKey) Result[NoncePair] {
	if cfg.GenesisHash != n.genesisHash {
		return Fail[NoncePair](ErrInvalidGenesisHash, "channel genesis does not match this node's chain")
	}
	if cfg.Capacity < n.minFunding {
		return Fail[NoncePair](ErrFundingTooLow, fmt.Sprintf("capacity %d below minimum %d", cfg.Capacity, n.minFunding))
	}
	wantChanID := DeriveChannelID(fundingOutpoint.TxID, fundingOutpoint.Index, cfg.FunderPK, cfg.PeerPK, cfg.GenesisHash)
	if wantChanID != cfg.ChanID {
		return Fail[NoncePair](ErrInvalidChannelID, "channel id does not match funding outpoint")
	}

	n.mu.RLock()
	_, exists := n.channels[cfg.ChanID]
	n.mu.RUnlock()
	if exists {
		return Fail[NoncePair](ErrDuplicateChannelID, "channel id already in use")
	}

	ch := NewChannel(cfg, false, localSettleBase, localUpdateKey, remoteSettlePub0, remoteUpdatePub)
	if err := ch.PinFunding(fundingOutpoint); err != nil {
		return Fail[NoncePair](ErrInvalidChannelID, err.Error())
	}

	localNonces, err := ch.BeginRound(cfg.Capacity, 0)
	if err != nil {
		return Fail[NoncePair](ErrSigningInProcess, err.Error())
	}
	ch.recordRemoteNonces(0, peerNonce)

	n.registerChannel(ch, cfg.FunderPK)
	return Ok(localNonces)
}

// HandleRequestSettleSig services an incoming request_settle_sig call.
func (n *Node) HandleRequestSettleSig(chanID types.Hash, seq uint64, funderBalance, peerBalance types.Amount, peerNonce NoncePair) Result[SigShare] {
	n.mu.RLock()
	ch, ok := n.channels[chanID]
	n.mu.RUnlock()
	if !ok {
		return Fail[SigShare](ErrWrongChannelID, "unknown channel")
	}

	if pendingSeq, ok := ch.PendingSeq(); ok && pendingSeq == seq {
		share, err := ch.SettleShareForPending(seq)
		if err != nil {
			return errToResult[SigShare](err)
		}
		return Ok(share)
	}

	share, err := ch.HandleProposal(seq, funderBalance, peerBalance, peerNonce)
	if err != nil {
		return errToResult[SigShare](err)
	}
	return Ok(share)
}

// HandleRequestUpdateSig services an incoming request_update_sig call.
func (n *Node) HandleRequestUpdateSig(chanID types.Hash, seq uint64, settleSig types.Signature, updateShare types.Scalar) Result[types.Signature] {
	n.mu.RLock()
	ch, ok := n.channels[chanID]
	n.mu.RUnlock()
	if !ok {
		return Fail[types.Signature](ErrWrongChannelID, "unknown channel")
	}

	sig, err := ch.HandleUpdateRequest(seq, settleSig, updateShare)
	if err != nil {
		return errToResult[types.Signature](err)
	}
	return Ok(sig)
}

// ChannelsForPeer returns every channel id this node holds with the
// given counterparty public key, satisfying the secondary funder-key
// index channels are required to be reachable by.
func (n *Node) ChannelsForPeer(peerPK types.PublicKey) []types.Hash {
	n.mu.RLock()
	defer n.mu.RUnlock()
	ids := n.byPeer[peerPK]
	out := make([]types.Hash, len(ids))
	copy(out, ids)
	return out
}

// GetChannelState returns a channel's current lifecycle state.
func (n *Node) GetChannelState(chanID types.Hash) Result[State] {
	n.mu.RLock()
	ch, ok := n.channels[chanID]
	n.mu.RUnlock()
	if !ok {
		return Fail[State](ErrWrongChannelID, "unknown channel")
	}
	return Ok(ch.State())
}

// ProposePayment drives a full balance-update round at the next
// sequence id, moving the channel to the given funderBalance and
// peerBalance. Publishing the resulting update transaction is left to
// the caller via LatestUpdateTx.
func (n *Node) ProposePayment(chanID types.Hash, funderBalance, peerBalance types.Amount) Result[types.Signature] {
	ch, peer, code := n.peerFor(chanID)
	if code != ErrNone {
		return Fail[types.Signature](code, "cannot resolve channel peer")
	}
	if ch.State() != StateOpen {
		return Fail[types.Signature](ErrChannelNotOpen, fmt.Sprintf("channel is %s, not Open", ch.State()))
	}

	localNonces, err := ch.BeginRound(funderBalance, peerBalance)
	if err != nil {
		return Fail[types.Signature](ErrSigningInProcess, err.Error())
	}
	seq, _ := ch.PendingSeq()

	settleResult := peer.RequestSettleSig(chanID, seq, funderBalance, peerBalance, localNonces)
	if !settleResult.IsOK() {
		return Fail[types.Signature](settleResult.Error, settleResult.Message)
	}

	settleSig, updateShare, err := ch.ReceiveSettleShare(seq, settleResult.Value)
	if err != nil {
		return Fail[types.Signature](ErrInvalidSignature, err.Error())
	}

	updateResult := peer.RequestUpdateSig(chanID, seq, settleSig, updateShare)
	if !updateResult.IsOK() {
		return Fail[types.Signature](updateResult.Error, updateResult.Message)
	}

	if err := ch.FinalizeRound(seq, updateResult.Value); err != nil {
		return Fail[types.Signature](ErrInvalidSignature, err.Error())
	}
	return Ok(updateResult.Value)
}

// ProposeUpdate is an alias for ProposePayment kept distinct at the
// API boundary per the external-interfaces split between a payment (a
// balance shift) and a raw update (any new balance pair, including
// restoring an earlier split during a dispute) — both drive the exact
// same signing round.
func (n *Node) ProposeUpdate(chanID types.Hash, funderBalance, peerBalance types.Amount) Result[types.Signature] {
	return n.ProposePayment(chanID, funderBalance, peerBalance)
}

// BeginCollaborativeClose asks the peer to co-sign a direct spend of
// the latest update output at its current balances, short-circuiting
// the publish-then-wait-settle_time unilateral path.
func (n *Node) BeginCollaborativeClose(chanID types.Hash, fee types.Amount) Result[types.Signature] {
	ch, peer, code := n.peerFor(chanID)
	if code != ErrNone {
		return Fail[types.Signature](code, "cannot resolve channel peer")
	}
	if ch.State() != StateOpen {
		return Fail[types.Signature](ErrChannelNotOpen, fmt.Sprintf("channel is %s, not Open", ch.State()))
	}

	closeNonce, err := crypto.GenerateKey()
	if err != nil {
		return Fail[types.Signature](ErrInvalidSignature, err.Error())
	}

	seq := ch.CurrentSequence()
	result := peer.CloseChannel(chanID, seq, closeNonce.PublicKey(), fee)
	if !result.IsOK() {
		return Fail[types.Signature](result.Error, result.Message)
	}
	return result
}

// PublishClose publishes the latest update transaction and moves the
// channel to PendingClose. The settlement transaction follows once
// settle_time blocks have elapsed; see PublishSettlement.
func (n *Node) PublishClose(chanID types.Hash) Result[types.Hash] {
	n.mu.RLock()
	ch, ok := n.channels[chanID]
	n.mu.RUnlock()
	if !ok {
		return Fail[types.Hash](ErrWrongChannelID, "unknown channel")
	}

	updateTx, err := ch.LatestUpdateTx()
	if err != nil {
		return Fail[types.Hash](ErrChannelNotFunded, err.Error())
	}
	if _, err := ch.BeginClose(); err != nil {
		return Fail[types.Hash](ErrChannelNotOpen, err.Error())
	}
	if err := n.publish(updateTx); err != nil {
		return Fail[types.Hash](ErrChannelNotOpen, err.Error())
	}
	return Ok(updateTx.Hash())
}

// PublishSettlement builds the settlement transaction with its input's
// unlock age set to observedAge, publishes it and marks the channel
// Closed. It does not compare observedAge with settle_time itself; the
// update output's lock script enforces the age when the transaction is
// validated.
func (n *Node) PublishSettlement(chanID types.Hash, observedAge uint32) Result[types.Hash] {
	n.mu.RLock()
	ch, ok := n.channels[chanID]
	n.mu.RUnlock()
	if !ok {
		return Fail[types.Hash](ErrWrongChannelID, "unknown channel")
	}

	settleTx, err := ch.LatestSettleTx(observedAge)
	if err != nil {
		return Fail[types.Hash](ErrChannelNotFunded, err.Error())
	}
	if err := n.publish(settleTx); err != nil {
		return Fail[types.Hash](ErrChannelNotOpen, err.Error())
	}
	if err := ch.FinishClose(); err != nil {
		return Fail[types.Hash](ErrChannelNotOpen, err.Error())
	}
	return Ok(settleTx.Hash())
}

func errToResult[T any](err error) Result[T] {
	switch {
	case errors.Is(err, errInvalidSequenceID):
		return Fail[T](ErrInvalidSequenceID, err.Error())
	case errors.Is(err, errInvalidSignature):
		return Fail[T](ErrInvalidSignature, err.Error())
	case errors.Is(err, errSettleNotReceived):
		return Fail[T](ErrSettleNotReceived, err.Error())
	case errors.Is(err, errSigningInProcess):
		return Fail[T](ErrSigningInProcess, err.Error())
	case errors.Is(err, errExceedsCapacity):
		return Fail[T](ErrExceedsMaximumPayment, err.Error())
	default:
		return Fail[T](ErrInvalidChannelID, err.Error())
	}
}
