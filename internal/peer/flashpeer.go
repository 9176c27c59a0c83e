package peer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/bosagora-go/agora-node/internal/flash"
	"github.com/bosagora-go/agora-node/pkg/types"
	"github.com/libp2p/go-libp2p/core/network"
	libp2ppeer "github.com/libp2p/go-libp2p/core/peer"
)

const (
	flashCallTimeout  = 15 * time.Second
	maxFlashMsgBytes  = 64 * 1024
)

// flashMethod names one of the FlashPeer RPC methods carried over
// FlashProtocol.
type flashMethod string

const (
	methodOpenChannel      flashMethod = "open_channel"
	methodRequestSettleSig flashMethod = "request_settle_sig"
	methodRequestUpdateSig flashMethod = "request_update_sig"
	methodCloseChannel     flashMethod = "close_channel"
	methodGetChannelState  flashMethod = "get_channel_state"
)

// flashRequest is the single wire envelope for every FlashPeer method;
// unused fields are omitted per the method being called.
type flashRequest struct {
	Method flashMethod `json:"method"`

	ChanID types.Hash `json:"chan_id,omitempty"`
	Seq    uint64     `json:"seq,omitempty"`

	Config          flash.ChannelConfig `json:"config,omitempty"`
	FundingOutpoint types.Outpoint      `json:"funding_outpoint,omitempty"`
	PeerNoncePair   flash.NoncePair     `json:"peer_nonce_pair,omitempty"`
	PeerNonce       types.PublicKey     `json:"peer_nonce,omitempty"`

	FunderBalance types.Amount    `json:"funder_balance,omitempty"`
	PeerBalance   types.Amount    `json:"peer_balance,omitempty"`
	SettleSig     types.Signature `json:"settle_sig,omitempty"`
	UpdateShare   types.Scalar    `json:"update_share,omitempty"`
	Fee           types.Amount    `json:"fee,omitempty"`
}

// flashResponse carries a generic flash.Result with its Value left raw so
// the caller can decode it into the type the method it invoked returns.
type flashResponse struct {
	Error   flash.ErrorCode `json:"error"`
	Message string          `json:"message,omitempty"`
	Value   json.RawMessage `json:"value,omitempty"`
}

// FlashHandler installs the FlashProtocol stream handler, dispatching
// incoming FlashPeer calls to a local flash.Node.
type FlashHandler struct {
	node *Node
	srv  *flash.Node
}

// NewFlashHandler binds srv as the local Flash node every FlashProtocol
// stream is dispatched against.
func NewFlashHandler(n *Node, srv *flash.Node) *FlashHandler {
	return &FlashHandler{node: n, srv: srv}
}

// Register installs the FlashProtocol stream handler on the transport host.
func (h *FlashHandler) Register() {
	h.node.host.SetStreamHandler(FlashProtocol, h.handleStream)
}

func (h *FlashHandler) handleStream(stream network.Stream) {
	defer stream.Close()

	_ = stream.SetReadDeadline(time.Now().Add(flashCallTimeout))

	var req flashRequest
	if err := json.NewDecoder(io.LimitReader(stream, maxFlashMsgBytes)).Decode(&req); err != nil {
		return
	}

	resp := h.dispatch(req)
	_ = json.NewEncoder(stream).Encode(&resp)
}

func (h *FlashHandler) dispatch(req flashRequest) flashResponse {
	switch req.Method {
	case methodOpenChannel:
		return encodeResult(h.srv.OpenChannel(req.Config, req.FundingOutpoint, req.PeerNoncePair))
	case methodRequestSettleSig:
		return encodeResult(h.srv.HandleRequestSettleSig(req.ChanID, req.Seq, req.FunderBalance, req.PeerBalance, req.PeerNoncePair))
	case methodRequestUpdateSig:
		return encodeResult(h.srv.HandleRequestUpdateSig(req.ChanID, req.Seq, req.SettleSig, req.UpdateShare))
	case methodCloseChannel:
		return encodeResult(h.srv.CloseChannel(req.ChanID, req.Seq, req.PeerNonce, req.Fee))
	case methodGetChannelState:
		return encodeResult(h.srv.GetChannelState(req.ChanID))
	default:
		return flashResponse{Error: flash.ErrInvalidChannelID, Message: fmt.Sprintf("unknown method %q", req.Method)}
	}
}

func encodeResult[T any](r flash.Result[T]) flashResponse {
	raw, err := json.Marshal(r.Value)
	if err != nil {
		return flashResponse{Error: flash.ErrInvalidChannelID, Message: err.Error()}
	}
	return flashResponse{Error: r.Error, Message: r.Message, Value: raw}
}

// remoteFlashPeer implements flash.FlashPeer by dialing FlashProtocol
// streams against a single remote libp2p peer.
type remoteFlashPeer struct {
	node *Node
	id   libp2ppeer.ID
}

func (p *remoteFlashPeer) call(req flashRequest) flashResponse {
	ctx, cancel := context.WithTimeout(p.node.ctx, flashCallTimeout)
	defer cancel()

	stream, err := p.node.host.NewStream(ctx, p.id, FlashProtocol)
	if err != nil {
		return flashResponse{Error: flash.ErrInvalidChannelID, Message: err.Error()}
	}
	defer stream.Close()

	if err := json.NewEncoder(stream).Encode(&req); err != nil {
		return flashResponse{Error: flash.ErrInvalidChannelID, Message: err.Error()}
	}
	stream.CloseWrite()

	_ = stream.SetReadDeadline(time.Now().Add(flashCallTimeout))
	var resp flashResponse
	if err := json.NewDecoder(io.LimitReader(stream, maxFlashMsgBytes)).Decode(&resp); err != nil {
		return flashResponse{Error: flash.ErrInvalidChannelID, Message: err.Error()}
	}
	return resp
}

func decodeValue[T any](resp flashResponse) flash.Result[T] {
	var v T
	if len(resp.Value) > 0 {
		_ = json.Unmarshal(resp.Value, &v)
	}
	if resp.Error != flash.ErrNone {
		return flash.Fail[T](resp.Error, resp.Message)
	}
	return flash.Ok(v)
}

func (p *remoteFlashPeer) OpenChannel(cfg flash.ChannelConfig, fundingOutpoint types.Outpoint, peerNonce flash.NoncePair) flash.Result[flash.NoncePair] {
	resp := p.call(flashRequest{
		Method:          methodOpenChannel,
		Config:          cfg,
		FundingOutpoint: fundingOutpoint,
		PeerNoncePair:   peerNonce,
	})
	return decodeValue[flash.NoncePair](resp)
}

func (p *remoteFlashPeer) RequestSettleSig(chanID types.Hash, seq uint64, funderBalance, peerBalance types.Amount, peerNonce flash.NoncePair) flash.Result[flash.SigShare] {
	resp := p.call(flashRequest{
		Method:        methodRequestSettleSig,
		ChanID:        chanID,
		Seq:           seq,
		FunderBalance: funderBalance,
		PeerBalance:   peerBalance,
		PeerNoncePair: peerNonce,
	})
	return decodeValue[flash.SigShare](resp)
}

func (p *remoteFlashPeer) RequestUpdateSig(chanID types.Hash, seq uint64, settleSig types.Signature, updateShare types.Scalar) flash.Result[types.Signature] {
	resp := p.call(flashRequest{
		Method:      methodRequestUpdateSig,
		ChanID:      chanID,
		Seq:         seq,
		SettleSig:   settleSig,
		UpdateShare: updateShare,
	})
	return decodeValue[types.Signature](resp)
}

func (p *remoteFlashPeer) CloseChannel(chanID types.Hash, seq uint64, peerNonce types.PublicKey, fee types.Amount) flash.Result[types.Signature] {
	resp := p.call(flashRequest{
		Method:    methodCloseChannel,
		ChanID:    chanID,
		Seq:       seq,
		PeerNonce: peerNonce,
		Fee:       fee,
	})
	return decodeValue[types.Signature](resp)
}

func (p *remoteFlashPeer) GetChannelState(chanID types.Hash) flash.Result[flash.State] {
	resp := p.call(flashRequest{Method: methodGetChannelState, ChanID: chanID})
	return decodeValue[flash.State](resp)
}

// FlashDirectory implements flash.PeerDirectory by resolving a channel
// counterparty's public key to the transport peer bound to it during
// handshake (see recordFlashIdentity).
type FlashDirectory struct {
	node *Node
}

// NewFlashDirectory wraps n as a flash.PeerDirectory.
func NewFlashDirectory(n *Node) *FlashDirectory {
	return &FlashDirectory{node: n}
}

// Peer resolves pubKey to a live FlashPeer handle, or false if no
// connected transport peer has announced that Flash public key.
func (d *FlashDirectory) Peer(pubKey types.PublicKey) (flash.FlashPeer, bool) {
	d.node.flashMu.RLock()
	id, ok := d.node.flashByPubKey[pubKey]
	d.node.flashMu.RUnlock()
	if !ok {
		return nil, false
	}
	return &remoteFlashPeer{node: d.node, id: id}, true
}
