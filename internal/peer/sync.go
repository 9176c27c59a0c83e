package peer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/bosagora-go/agora-node/pkg/block"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	libp2ppeer "github.com/libp2p/go-libp2p/core/peer"
)

const (
	// syncReadTimeout is the max time to read a sync response.
	syncReadTimeout = 30 * time.Second

	// maxSyncResponseBytes limits sync response size (10 MB).
	maxSyncResponseBytes = 10 * 1024 * 1024

	// maxBlocksPerSyncResponse caps how many blocks a single request returns.
	maxBlocksPerSyncResponse = 500
)

// SyncRequest asks a peer for blocks starting at a given height.
type SyncRequest struct {
	FromHeight uint64 `json:"from_height"`
	MaxBlocks  uint32 `json:"max_blocks"`
}

// SyncResponse contains blocks returned by a peer.
type SyncResponse struct {
	Blocks []*block.Block `json:"blocks"`
}

// Syncer serves and requests block ranges over SyncProtocol/HeightProtocol,
// backed by a BlockStorage view of the node's ledger.
type Syncer struct {
	host    host.Host
	storage BlockStorage
}

// NewSyncer creates a syncer that serves blocks from storage over h.
func NewSyncer(h host.Host, storage BlockStorage) *Syncer {
	return &Syncer{host: h, storage: storage}
}

// RegisterHandlers installs the sync and height stream handlers.
func (s *Syncer) RegisterHandlers() {
	s.host.SetStreamHandler(SyncProtocol, s.handleSyncStream)
	s.host.SetStreamHandler(HeightProtocol, s.handleHeightStream)
}

func (s *Syncer) handleSyncStream(stream network.Stream) {
	defer stream.Close()

	var req SyncRequest
	if err := json.NewDecoder(io.LimitReader(stream, maxSyncResponseBytes)).Decode(&req); err != nil {
		return
	}
	if req.MaxBlocks == 0 || req.MaxBlocks > maxBlocksPerSyncResponse {
		req.MaxBlocks = maxBlocksPerSyncResponse
	}

	blocks, err := s.storage.GetBlocksFrom(req.FromHeight)
	if err != nil {
		return
	}
	if uint32(len(blocks)) > req.MaxBlocks {
		blocks = blocks[:req.MaxBlocks]
	}

	resp := SyncResponse{Blocks: blocks}
	json.NewEncoder(stream).Encode(&resp)
}

// HeightResponse contains a peer's chain height.
type HeightResponse struct {
	Height uint64 `json:"height"`
}

func (s *Syncer) handleHeightStream(stream network.Stream) {
	defer stream.Close()
	resp := HeightResponse{Height: s.storage.GetBlockHeight()}
	json.NewEncoder(stream).Encode(&resp)
}

// RequestBlocks asks a specific peer for blocks starting at fromHeight.
func (s *Syncer) RequestBlocks(ctx context.Context, peerID libp2ppeer.ID, fromHeight uint64, maxBlocks uint32) ([]*block.Block, error) {
	stream, err := s.host.NewStream(ctx, peerID, SyncProtocol)
	if err != nil {
		return nil, fmt.Errorf("open sync stream: %w", err)
	}
	defer stream.Close()

	req := SyncRequest{FromHeight: fromHeight, MaxBlocks: maxBlocks}
	if err := json.NewEncoder(stream).Encode(&req); err != nil {
		return nil, fmt.Errorf("send sync request: %w", err)
	}
	stream.CloseWrite()

	_ = stream.SetReadDeadline(time.Now().Add(syncReadTimeout))

	var resp SyncResponse
	if err := json.NewDecoder(io.LimitReader(stream, maxSyncResponseBytes)).Decode(&resp); err != nil {
		return nil, fmt.Errorf("read sync response: %w", err)
	}
	return resp.Blocks, nil
}

// RequestHeight queries a peer for its chain height.
func (s *Syncer) RequestHeight(ctx context.Context, peerID libp2ppeer.ID) (*HeightResponse, error) {
	stream, err := s.host.NewStream(ctx, peerID, HeightProtocol)
	if err != nil {
		return nil, fmt.Errorf("open height stream: %w", err)
	}
	defer stream.Close()

	stream.CloseWrite()
	_ = stream.SetReadDeadline(time.Now().Add(heightReadTimeout))

	var resp HeightResponse
	if err := json.NewDecoder(io.LimitReader(stream, 1024)).Decode(&resp); err != nil {
		return nil, fmt.Errorf("read height response: %w", err)
	}
	return &resp, nil
}

const heightReadTimeout = 5 * time.Second

// CatchUp pulls blocks from peerID starting one above the local tip height
// and commits each through storage, stopping at the first rejected block.
// It runs only when called; the node sets up no timer that calls it.
func (s *Syncer) CatchUp(ctx context.Context, peerID libp2ppeer.ID) (int, error) {
	accepted := 0
	for {
		from := s.storage.GetBlockHeight() + 1
		blocks, err := s.RequestBlocks(ctx, peerID, from, maxBlocksPerSyncResponse)
		if err != nil {
			return accepted, err
		}
		if len(blocks) == 0 {
			return accepted, nil
		}
		for _, blk := range blocks {
			ok, err := s.storage.AcceptBlock(blk)
			if err != nil || !ok {
				return accepted, err
			}
			accepted++
		}
	}
}
