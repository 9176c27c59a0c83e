package flash

import (
	"testing"

	"github.com/bosagora-go/agora-node/pkg/crypto"
	"github.com/bosagora-go/agora-node/pkg/tx"
	"github.com/bosagora-go/agora-node/pkg/types"
)

// loopbackPeer adapts a *Node's Handle* methods into the FlashPeer
// interface its counterparty calls, standing in for a real network
// transport in these in-process tests.
type loopbackPeer struct {
	node                             *Node
	localSettleBase, localUpdateKey  *crypto.PrivateKey
	remoteSettlePub0, remoteUpdatePub types.PublicKey
}

func (p *loopbackPeer) OpenChannel(cfg ChannelConfig, fundingOutpoint types.Outpoint, peerNonce NoncePair) Result[NoncePair] {
	return p.node.HandleOpenChannel(cfg, fundingOutpoint, peerNonce, p.localSettleBase, p.localUpdateKey, p.remoteSettlePub0, p.remoteUpdatePub)
}

func (p *loopbackPeer) RequestSettleSig(chanID types.Hash, seq uint64, funderBalance, peerBalance types.Amount, peerNonce NoncePair) Result[SigShare] {
	return p.node.HandleRequestSettleSig(chanID, seq, funderBalance, peerBalance, peerNonce)
}

func (p *loopbackPeer) RequestUpdateSig(chanID types.Hash, seq uint64, settleSig types.Signature, updateShare types.Scalar) Result[types.Signature] {
	return p.node.HandleRequestUpdateSig(chanID, seq, settleSig, updateShare)
}

func (p *loopbackPeer) CloseChannel(chanID types.Hash, seq uint64, peerNonce types.PublicKey, fee types.Amount) Result[types.Signature] {
	return Fail[types.Signature](ErrChannelNotOpen, "collaborative close not exercised by this fixture")
}

func (p *loopbackPeer) GetChannelState(chanID types.Hash) Result[State] {
	return p.node.GetChannelState(chanID)
}

// singlePeerDirectory always resolves to the one peer it was built with.
type singlePeerDirectory struct {
	peer FlashPeer
}

func (d *singlePeerDirectory) Peer(types.PublicKey) (FlashPeer, bool) {
	return d.peer, true
}

// nodePairFixture bundles everything pairedNodes builds, so tests can
// reach the raw key material without threading it back out as return
// values nobody would read.
type nodePairFixture struct {
	funder, peer               *Node
	funderPK, peerPK           types.PublicKey
	funderSettleBase           *crypto.PrivateKey
	funderUpdateKey            *crypto.PrivateKey
	peerSettleBase             *crypto.PrivateKey
	peerUpdateKey              *crypto.PrivateKey
	fundingOutpoint            types.Outpoint
	published                  *[]*tx.Transaction
}

// pairedNodes builds two Nodes wired to loopback peers pointing at each
// other, sharing a genesis hash and a recording TxPublisher.
func pairedNodes(t *testing.T, minFunding types.Amount) *nodePairFixture {
	t.Helper()

	funderSettleBase, _ := crypto.GenerateKey()
	funderUpdateKey, _ := crypto.GenerateKey()
	peerSettleBase, _ := crypto.GenerateKey()
	peerUpdateKey, _ := crypto.GenerateKey()

	funderPK := funderSettleBase.PublicKey()
	peerPK := peerSettleBase.PublicKey()
	genesisHash := crypto.HashFull([]byte("genesis"))

	var log []*tx.Transaction
	publish := func(t *tx.Transaction) error {
		log = append(log, t)
		return nil
	}

	funderNode := NewNode(NodeConfig{
		SelfPK:      funderPK,
		GenesisHash: genesisHash,
		MinFunding:  minFunding,
		MinSettle:   6,
		MaxSettle:   144,
	}, nil, publish)
	peerNode := NewNode(NodeConfig{
		SelfPK:      peerPK,
		GenesisHash: genesisHash,
		MinFunding:  minFunding,
		MinSettle:   6,
		MaxSettle:   144,
	}, nil, publish)

	funderNode.peers = &singlePeerDirectory{peer: &loopbackPeer{
		node:             peerNode,
		localSettleBase:  peerSettleBase,
		localUpdateKey:   peerUpdateKey,
		remoteSettlePub0: funderPK,
		remoteUpdatePub:  funderUpdateKey.PublicKey(),
	}}
	peerNode.peers = &singlePeerDirectory{peer: &loopbackPeer{
		node:             funderNode,
		localSettleBase:  funderSettleBase,
		localUpdateKey:   funderUpdateKey,
		remoteSettlePub0: peerPK,
		remoteUpdatePub:  peerUpdateKey.PublicKey(),
	}}

	return &nodePairFixture{
		funder:           funderNode,
		peer:             peerNode,
		funderPK:         funderPK,
		peerPK:           peerPK,
		funderSettleBase: funderSettleBase,
		funderUpdateKey:  funderUpdateKey,
		peerSettleBase:   peerSettleBase,
		peerUpdateKey:    peerUpdateKey,
		fundingOutpoint:  types.Outpoint{TxID: crypto.HashFull([]byte("funding")), Index: 0},
		published:        &log,
	}
}

func TestNode_OpenChannel_EndToEnd(t *testing.T) {
	f := pairedNodes(t, 40_000)

	ch, result := f.funder.OpenChannel(f.peerPK, f.fundingOutpoint, 1_000_000, 10, f.funderSettleBase, f.funderUpdateKey, f.peerSettleBase.PublicKey(), f.peerUpdateKey.PublicKey())
	if !result.IsOK() {
		t.Fatalf("OpenChannel failed: %s %s", result.Error, result.Message)
	}
	if ch.State() != StateWaitingForFunding {
		t.Errorf("channel state = %s, want WaitingForFunding", ch.State())
	}

	if err := ch.FundingPublished(); err != nil {
		t.Fatalf("FundingPublished: %v", err)
	}

	payResult := f.funder.ProposePayment(ch.ChanID(), 700_000, 300_000)
	if !payResult.IsOK() {
		t.Fatalf("ProposePayment failed: %s %s", payResult.Error, payResult.Message)
	}
	if ch.CurrentSequence() != 1 {
		t.Errorf("sequence after one payment = %d, want 1", ch.CurrentSequence())
	}

	closeResult := f.funder.PublishClose(ch.ChanID())
	if !closeResult.IsOK() {
		t.Fatalf("PublishClose failed: %s %s", closeResult.Error, closeResult.Message)
	}
	if len(*f.published) != 1 {
		t.Fatalf("published %d transactions, want 1", len(*f.published))
	}
	if ch.State() != StatePendingClose {
		t.Errorf("channel state = %s, want PendingClose", ch.State())
	}

	settleResult := f.funder.PublishSettlement(ch.ChanID(), 10)
	if !settleResult.IsOK() {
		t.Fatalf("PublishSettlement failed: %s %s", settleResult.Error, settleResult.Message)
	}
	if ch.State() != StateClosed {
		t.Errorf("channel state = %s, want Closed", ch.State())
	}
	if len(*f.published) != 2 {
		t.Fatalf("published %d transactions, want 2", len(*f.published))
	}
}

func TestNode_OpenChannel_RejectsBelowMinFunding(t *testing.T) {
	f := pairedNodes(t, 40_000)

	_, result := f.funder.OpenChannel(f.peerPK, f.fundingOutpoint, 1_000, 10, f.funderSettleBase, f.funderUpdateKey, f.peerSettleBase.PublicKey(), f.peerUpdateKey.PublicKey())
	if result.Error != ErrFundingTooLow {
		t.Errorf("error = %s, want FundingTooLow", result.Error)
	}
}

func TestNode_GetChannelState_UnknownChannel(t *testing.T) {
	n := NewNode(NodeConfig{}, &singlePeerDirectory{}, func(*tx.Transaction) error { return nil })
	result := n.GetChannelState(crypto.HashFull([]byte("nope")))
	if result.Error != ErrWrongChannelID {
		t.Errorf("error = %s, want WrongChannelID", result.Error)
	}
}
