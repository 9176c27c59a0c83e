package peer

import (
	"testing"

	libp2ppeer "github.com/libp2p/go-libp2p/core/peer"
)

func TestBanManager_ScoreAccumulation(t *testing.T) {
	bm := NewBanManager(nil, nil)
	id := libp2ppeer.ID("test-peer")

	bm.RecordOffense(id, PenaltyInvalidTx, "bad tx 1")
	if bm.IsBanned(id) {
		t.Error("peer should not be banned after 20 points")
	}

	bm.RecordOffense(id, PenaltyInvalidTx, "bad tx 2")
	if bm.IsBanned(id) {
		t.Error("peer should not be banned after 40 points")
	}
}

func TestBanManager_ThresholdBan(t *testing.T) {
	bm := NewBanManager(nil, nil)
	id := libp2ppeer.ID("test-peer")

	bm.RecordOffense(id, PenaltyInvalidBlock, "bad block 1")
	bm.RecordOffense(id, PenaltyInvalidBlock, "bad block 2")

	if !bm.IsBanned(id) {
		t.Error("peer should be banned at threshold")
	}
}

func TestBanManager_InstantBan(t *testing.T) {
	bm := NewBanManager(nil, nil)
	id := libp2ppeer.ID("test-peer")

	bm.RecordOffense(id, PenaltyHandshakeFail, "genesis mismatch")

	if !bm.IsBanned(id) {
		t.Error("peer should be banned after handshake fail")
	}
}

func TestBanManager_IsBanned_NotBanned(t *testing.T) {
	bm := NewBanManager(nil, nil)

	if bm.IsBanned(libp2ppeer.ID("unknown")) {
		t.Error("unknown peer should not be banned")
	}
}

func TestBanManager_Unban(t *testing.T) {
	bm := NewBanManager(nil, nil)
	id := libp2ppeer.ID("test-peer")

	bm.RecordOffense(id, PenaltyHandshakeFail, "bad handshake")
	if !bm.IsBanned(id) {
		t.Fatal("peer should be banned")
	}

	bm.Unban(id)
	if bm.IsBanned(id) {
		t.Error("peer should not be banned after Unban")
	}
}

func TestBanManager_BanList(t *testing.T) {
	bm := NewBanManager(nil, nil)
	id1 := libp2ppeer.ID("peer-1")
	id2 := libp2ppeer.ID("peer-2")

	bm.RecordOffense(id1, PenaltyHandshakeFail, "bad handshake")
	bm.RecordOffense(id2, PenaltyInvalidTx, "bad tx")

	list := bm.BanList()
	if len(list) != 1 {
		t.Errorf("BanList length = %d, want 1 (only id1 crossed threshold)", len(list))
	}
}
