package peer

import (
	"time"

	libp2ppeer "github.com/libp2p/go-libp2p/core/peer"
)

// Peer represents a connected transport-layer peer. Its ID is the
// libp2p host identity, distinct from any validator or Flash signing
// public key a peer may separately announce during handshake.
type Peer struct {
	ID          libp2ppeer.ID
	ConnectedAt time.Time
	Source      string // "dht", "mdns", "seed", "gossip"
}
