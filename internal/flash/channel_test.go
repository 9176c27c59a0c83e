package flash

import (
	"testing"

	"github.com/bosagora-go/agora-node/pkg/crypto"
	"github.com/bosagora-go/agora-node/pkg/types"
)

// pairedChannels builds two Channel values, funder and peer, that share
// the same config and have each other's public key material wired up —
// the fixture every signing-round test in this file starts from.
func pairedChannels(t *testing.T, capacity types.Amount, settleTime uint32) (funder, peer *Channel, fundingOutpoint types.Outpoint) {
	t.Helper()

	funderSettleBase, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	funderUpdateKey, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	peerSettleBase, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	peerUpdateKey, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	funderPK := funderSettleBase.PublicKey()
	peerPK := peerSettleBase.PublicKey()

	fundingOutpoint = types.Outpoint{TxID: crypto.HashFull([]byte("funding tx")), Index: 0}
	genesisHash := crypto.HashFull([]byte("genesis"))
	chanID := DeriveChannelID(fundingOutpoint.TxID, fundingOutpoint.Index, funderPK, peerPK, genesisHash)

	cfg := ChannelConfig{
		ChanID:      chanID,
		GenesisHash: genesisHash,
		FunderPK:    funderPK,
		PeerPK:      peerPK,
		Capacity:    capacity,
		SettleTime:  settleTime,
	}

	funder = NewChannel(cfg, true, funderSettleBase, funderUpdateKey, peerSettleBase.PublicKey(), peerUpdateKey.PublicKey())
	if err := funder.PinFunding(fundingOutpoint); err != nil {
		t.Fatalf("PinFunding: %v", err)
	}
	peer = NewChannel(cfg, false, peerSettleBase, peerUpdateKey, funderSettleBase.PublicKey(), funderUpdateKey.PublicKey())
	if err := peer.PinFunding(fundingOutpoint); err != nil {
		t.Fatalf("PinFunding: %v", err)
	}
	return funder, peer, fundingOutpoint
}

// runRound drives a complete two-message signing round between funder
// (the proposer) and peer (the responder), mirroring what Node wires
// together over FlashPeer but called directly in-process.
func runRound(t *testing.T, funder, peer *Channel, seq uint64, funderBalance, peerBalance types.Amount) {
	t.Helper()

	localNonces, err := funder.BeginRound(funderBalance, peerBalance)
	if err != nil {
		t.Fatalf("funder.BeginRound: %v", err)
	}

	settleShare, err := peer.HandleProposal(seq, funderBalance, peerBalance, localNonces)
	if err != nil {
		t.Fatalf("peer.HandleProposal: %v", err)
	}

	settleSig, updateShare, err := funder.ReceiveSettleShare(seq, settleShare)
	if err != nil {
		t.Fatalf("funder.ReceiveSettleShare: %v", err)
	}

	finalUpdateSig, err := peer.HandleUpdateRequest(seq, settleSig, updateShare)
	if err != nil {
		t.Fatalf("peer.HandleUpdateRequest: %v", err)
	}

	if err := funder.FinalizeRound(seq, finalUpdateSig); err != nil {
		t.Fatalf("funder.FinalizeRound: %v", err)
	}
}

func TestChannel_SetupRound_OpensChannel(t *testing.T) {
	funder, peer, _ := pairedChannels(t, 1_000_000, 10)

	runRound(t, funder, peer, 0, 1_000_000, 0)

	if got := funder.State(); got != StateWaitingForFunding {
		t.Errorf("funder state = %s, want WaitingForFunding", got)
	}
	if got := peer.State(); got != StateWaitingForFunding {
		t.Errorf("peer state = %s, want WaitingForFunding", got)
	}

	if err := funder.FundingPublished(); err != nil {
		t.Fatalf("FundingPublished: %v", err)
	}
	if got := funder.State(); got != StateOpen {
		t.Errorf("funder state = %s, want Open", got)
	}
}

func TestChannel_BalanceUpdate_AdvancesSequence(t *testing.T) {
	funder, peer, _ := pairedChannels(t, 1_000_000, 10)
	runRound(t, funder, peer, 0, 1_000_000, 0)
	if err := funder.FundingPublished(); err != nil {
		t.Fatalf("FundingPublished: %v", err)
	}
	if err := peer.FundingPublished(); err != nil {
		t.Fatalf("FundingPublished: %v", err)
	}

	runRound(t, funder, peer, 1, 700_000, 300_000)

	if got := funder.CurrentSequence(); got != 1 {
		t.Errorf("funder sequence = %d, want 1", got)
	}
	if got := peer.CurrentSequence(); got != 1 {
		t.Errorf("peer sequence = %d, want 1", got)
	}

	updateTx, err := funder.LatestUpdateTx()
	if err != nil {
		t.Fatalf("LatestUpdateTx: %v", err)
	}
	if updateTx.SequenceID != 1 {
		t.Errorf("update tx sequence = %d, want 1", updateTx.SequenceID)
	}
}

// TestChannel_SettleSig_RequiredBeforeUpdateShare is property 9 from the
// testable-properties list: a settlement-share request at a sequence
// id other than the channel's next one is refused, and the update share
// for the pending round is never handed out before the matching
// settlement signature has verified.
func TestChannel_SettleSig_RequiredBeforeUpdateShare(t *testing.T) {
	funder, peer, _ := pairedChannels(t, 1_000_000, 10)
	runRound(t, funder, peer, 0, 1_000_000, 0)
	if err := funder.FundingPublished(); err != nil {
		t.Fatalf("FundingPublished: %v", err)
	}
	if err := peer.FundingPublished(); err != nil {
		t.Fatalf("FundingPublished: %v", err)
	}

	localNonces, err := funder.BeginRound(600_000, 400_000)
	if err != nil {
		t.Fatalf("BeginRound: %v", err)
	}

	// Wrong sequence id: the channel's next expected round is seq 1.
	if _, err := peer.HandleProposal(5, 600_000, 400_000, localNonces); err == nil {
		t.Error("HandleProposal at a mismatched sequence id should fail")
	}

	// A garbage settlement signature must not unlock an update share.
	if _, err := funder.HandleUpdateRequest(1, types.Signature{}, types.Scalar{}); err == nil {
		t.Error("HandleUpdateRequest with an unverifiable settlement signature should fail")
	}
}

func TestChannel_BeginRound_RejectsConcurrentRounds(t *testing.T) {
	funder, peer, _ := pairedChannels(t, 1_000_000, 10)
	runRound(t, funder, peer, 0, 1_000_000, 0)
	if err := funder.FundingPublished(); err != nil {
		t.Fatalf("FundingPublished: %v", err)
	}

	if _, err := funder.BeginRound(900_000, 100_000); err != nil {
		t.Fatalf("first BeginRound: %v", err)
	}
	if _, err := funder.BeginRound(800_000, 200_000); err == nil {
		t.Error("a second concurrent BeginRound should be rejected")
	}
}

func TestChannel_BeginRound_RejectsOverCapacity(t *testing.T) {
	funder, _, _ := pairedChannels(t, 1_000_000, 10)
	if _, err := funder.BeginRound(900_000, 200_000); err == nil {
		t.Error("balances summing above capacity should be rejected")
	}
}

func TestChannel_StateNeverRegresses(t *testing.T) {
	funder, _, _ := pairedChannels(t, 1_000_000, 10)
	if err := funder.advanceState(StateOpen); err != nil {
		t.Fatalf("advanceState(Open): %v", err)
	}
	if err := funder.advanceState(StateSetup); err == nil {
		t.Error("advancing back to an earlier state should fail")
	}
}
