// Package peer implements the node's transport layer: libp2p-based peer
// discovery and gossip, block/transaction relay, validator heartbeat
// broadcast, peer and ban persistence, and the Flash channel RPC surface
// over a dedicated stream protocol.
package peer

import (
	"time"

	"github.com/bosagora-go/agora-node/pkg/block"
	"github.com/bosagora-go/agora-node/pkg/tx"
	libp2ppeer "github.com/libp2p/go-libp2p/core/peer"
)

// BlockStorage is the subset of the ledger a syncer needs to serve and
// absorb blocks on behalf of the transport layer, without depending on
// ledger's full package (UTXO/enrollment wiring, consensus data, etc).
type BlockStorage interface {
	// GetBlockHeight returns the current chain tip height.
	GetBlockHeight() uint64
	// GetBlocksFrom returns consecutive blocks starting at startHeight,
	// in ascending height order.
	GetBlocksFrom(startHeight uint64) ([]*block.Block, error)
	// AcceptBlock validates and commits a block received from a peer.
	AcceptBlock(blk *block.Block) (bool, error)
}

// PeerTransport is the networking surface the rest of the node drives:
// start/stop the libp2p host, relay transactions and blocks, and report
// who it is connected to. Node implements this directly.
type PeerTransport interface {
	Start() error
	Stop() error
	BroadcastTx(t *tx.Transaction) error
	BroadcastBlock(b *block.Block) error
	PeerCount() int
	PeerList() []*Peer
}

// PeerSet tracks known peer addresses across restarts. PeerStore
// implements this directly.
type PeerSet interface {
	Save(rec PeerRecord) error
	Load(id libp2ppeer.ID) (*PeerRecord, error)
	LoadAll() ([]PeerRecord, error)
	Delete(id libp2ppeer.ID) error
	PruneStale(threshold time.Duration) (int, error)
}

// BanManagerIface is the offense-scoring/ban surface the transport and
// handshake layers drive. BanManager implements this directly; declared
// separately from the concrete type so callers (e.g. a future RPC admin
// surface) can depend on the contract rather than the libp2p-specific
// implementation.
type BanManagerIface interface {
	RecordOffense(id libp2ppeer.ID, penalty int, reason string)
	IsBanned(id libp2ppeer.ID) bool
	Unban(id libp2ppeer.ID)
	BanList() []BanRecord
}
