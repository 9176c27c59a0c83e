package peer

import (
	"github.com/libp2p/go-libp2p/core/protocol"
)

// GossipSub topic names.
const (
	TopicTransactions = "/agora/tx/1.0.0"
	TopicBlocks       = "/agora/block/1.0.0"
	TopicHeartbeat    = "/agora/heartbeat/1.0.0"
)

// Handshake protocol constants.
const (
	// HandshakeProtocol is the stream protocol ID for peer compatibility checking.
	HandshakeProtocol = protocol.ID("/agora/handshake/1.0.0")

	// ProtocolVersion is the current protocol version advertised during handshake.
	ProtocolVersion uint32 = 1

	// MinProtocolVersion is the minimum protocol version we accept from peers.
	MinProtocolVersion uint32 = 1
)

// SyncProtocol is the protocol ID for chain synchronization.
const SyncProtocol = protocol.ID("/agora/sync/1.0.0")

// HeightProtocol is the protocol ID for querying chain height.
const HeightProtocol = protocol.ID("/agora/height/1.0.0")

// FlashProtocol is the protocol ID for the Flash channel RPC surface
// (OpenChannel/RequestSettleSig/RequestUpdateSig/CloseChannel/GetChannelState),
// multiplexed over a single stream protocol by a method tag.
const FlashProtocol = protocol.ID("/agora/flash/1.0.0")

// MessageType identifies the type of gossiped payload.
type MessageType uint8

const (
	MsgTx    MessageType = iota + 1 // Transaction broadcast.
	MsgBlock                        // Block broadcast.
)
