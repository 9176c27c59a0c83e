// Agora full node daemon: ledger, quorum, enrollment, and Flash channels
// over a libp2p transport.
//
// Usage:
//
//	agora-node [options]   Run node
//	agora-node --help      Show help
//
// Keystore passwords for validator.seed and flash.seed are read from the
// AGORA_VALIDATOR_PASSWORD and AGORA_FLASH_PASSWORD environment variables.
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bosagora-go/agora-node/config"
	"github.com/bosagora-go/agora-node/internal/enrollment"
	"github.com/bosagora-go/agora-node/internal/flash"
	"github.com/bosagora-go/agora-node/internal/keystore"
	"github.com/bosagora-go/agora-node/internal/ledger"
	klog "github.com/bosagora-go/agora-node/internal/log"
	"github.com/bosagora-go/agora-node/internal/mempool"
	"github.com/bosagora-go/agora-node/internal/metrics"
	"github.com/bosagora-go/agora-node/internal/peer"
	"github.com/bosagora-go/agora-node/internal/quorum"
	"github.com/bosagora-go/agora-node/internal/storage"
	"github.com/bosagora-go/agora-node/internal/utxo"
	"github.com/bosagora-go/agora-node/internal/walletseed"
	"github.com/bosagora-go/agora-node/pkg/block"
	"github.com/bosagora-go/agora-node/pkg/crypto"
	"github.com/bosagora-go/agora-node/pkg/tx"
	"github.com/bosagora-go/agora-node/pkg/types"
	libp2ppeer "github.com/libp2p/go-libp2p/core/peer"
	"github.com/rs/zerolog"
)

func main() {
	// ── 1. Load config (defaults → file → flags) ────────────────────────
	cfg, _, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// ── 2. Init logger ───────────────────────────────────────────────────
	logFile := ""
	for _, sink := range cfg.Logging {
		if strings.HasPrefix(sink, "file:") {
			logFile = strings.TrimPrefix(sink, "file:")
		}
	}
	if logFile == "" {
		logsDir := cfg.LogsDir()
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating logs dir: %v\n", err)
			os.Exit(1)
		}
		logFile = logsDir + "/agora-node.log"
	}
	if err := klog.Init("info", false, logFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	logger := klog.WithComponent("node")

	// ── 3. Genesis ────────────────────────────────────────────────────────
	genesis := config.GenesisFor(cfg.Network)
	genesisHash, err := genesis.Hash()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to hash genesis config")
	}

	logger.Info().
		Str("chain_id", genesis.ChainID).
		Str("network", string(cfg.Network)).
		Msg("Starting Agora node")

	// ── 4. Open storage ───────────────────────────────────────────────────
	db, err := storage.NewBadger(cfg.ChainDataDir())
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.ChainDataDir()).Msg("Failed to open database")
	}
	defer db.Close()

	utxoStore := utxo.NewStore(db)
	logger.Info().Str("path", cfg.ChainDataDir()).Msg("Database opened")

	// ── 5. Genesis block + ledger ─────────────────────────────────────────
	genesisBlock, err := buildGenesisBlock(genesis)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build genesis block")
	}

	metricsCollector := metrics.New()

	var coreLedger *ledger.Ledger
	pool := mempool.New(utxoStore, func() uint64 { return coreLedger.GetBlockHeight() }, 5000)

	coreLedger, err = ledger.New(db, genesisBlock, pool, func(blk *block.Block, validatorSetChanged bool) {
		metricsCollector.LedgerHeight.Set(float64(blk.Header.Height))
		metricsCollector.BlocksAccepted.Inc()
		metricsCollector.MempoolSize.Set(float64(pool.Count()))
		if validatorSetChanged {
			logger.Info().Uint64("height", blk.Header.Height).Msg("Validator set changed, quorum slices will be rebuilt on next nomination")
		}
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open ledger")
	}

	logger.Info().Uint64("height", coreLedger.GetBlockHeight()).Msg("Ledger ready")

	// ── 6. Validator liveness tracker ────────────────────────────────────
	tracker := enrollment.NewTracker(cfg.Validator.PreimageRevealInterval)

	// ── 7. Resolve validator/Flash signing keys ──────────────────────────
	var validatorSigner *crypto.PrivateKey
	if cfg.Validator.Enabled && cfg.Validator.Seed != "" {
		seed, err := keystore.ResolveSeed(cfg.Validator.Seed, os.Getenv("AGORA_VALIDATOR_PASSWORD"))
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to resolve validator seed")
		}
		master, err := walletseed.NewMasterKey(seed)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to derive validator master key")
		}
		hdKey, err := master.DeriveValidatorKey()
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to derive validator enrollment key")
		}
		validatorSigner, err = hdKey.Signer()
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to build validator signer")
		}
		defer validatorSigner.Zero()
		logger.Info().Msg("Validator enrollment key loaded")
	}

	var flashSigner *crypto.PrivateKey
	if cfg.Flash.Enabled && cfg.Flash.Seed != "" {
		seed, err := keystore.ResolveSeed(cfg.Flash.Seed, os.Getenv("AGORA_FLASH_PASSWORD"))
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to resolve Flash seed")
		}
		master, err := walletseed.NewMasterKey(seed)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to derive Flash master key")
		}
		hdKey, err := master.DeriveFlashBaseKey()
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to derive Flash base key")
		}
		flashSigner, err = hdKey.Signer()
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to build Flash signer")
		}
		defer flashSigner.Zero()
		logger.Info().Msg("Flash base key loaded")
	}

	// ── 8. Transport (libp2p) ────────────────────────────────────────────
	transport := peer.New(peer.Config{
		ListenAddr: "0.0.0.0",
		Port:       cfg.Node.StatsListeningPort,
		Seeds:      cfg.NetworkPeers,
		MaxPeers:   cfg.Node.MaxListeners,
		NoDiscover: false,
		DB:         db,
		DHTServer:  false,
		NetworkID:  genesis.ChainID,
		DataDir:    cfg.ChainDataDir(),
	}, tracker)

	transport.SetGenesisHash(genesisHash)
	transport.SetHeightFn(coreLedger.GetBlockHeight)
	transport.BindStorage(coreLedger)

	transport.SetBlockHandler(func(from libp2ppeer.ID, data []byte) {
		var blk block.Block
		if err := json.Unmarshal(data, &blk); err != nil {
			logger.Debug().Err(err).Msg("Failed to unmarshal gossiped block")
			return
		}
		changed, err := coreLedger.AcceptBlock(&blk)
		if err != nil {
			logger.Debug().Err(err).Msg("Rejected gossiped block")
			metricsCollector.BlocksRejected.Inc()
			return
		}
		pool.RemoveConfirmed(blk.Transactions)
		logger.Info().Uint64("height", blk.Header.Height).Bool("validator_set_changed", changed).Msg("Block accepted from peer")
	})

	transport.SetTxHandler(func(from libp2ppeer.ID, data []byte) {
		var t tx.Transaction
		if err := json.Unmarshal(data, &t); err != nil {
			logger.Debug().Err(err).Msg("Failed to unmarshal gossiped transaction")
			return
		}
		if _, err := pool.Add(&t); err != nil {
			logger.Debug().Err(err).Msg("Rejected gossiped transaction")
			metricsCollector.TxsRejected.Inc()
			return
		}
		metricsCollector.TxsAccepted.Inc()
	})

	if validatorSigner != nil {
		transport.SetHeartbeatHandler(func(msg *peer.HeartbeatMessage) {
			tracker.RecordHeartbeat(msg.PubKey)
		})
	}

	if err := transport.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start transport")
	}
	defer transport.Stop()

	logger.Info().Str("id", transport.ID().String()).Int("port", cfg.Node.StatsListeningPort).Msg("Transport started")

	// ── 9. Flash channel layer ───────────────────────────────────────────
	if cfg.Flash.Enabled && flashSigner != nil {
		flashDirectory := peer.NewFlashDirectory(transport)
		transport.SetFlashPubKey(flashSigner.PublicKey())

		flashNode := flash.NewNode(flash.NodeConfig{
			SelfPK:      flashSigner.PublicKey(),
			GenesisHash: genesisHash,
			MinFunding:  cfg.Flash.MinFunding,
			MaxFunding:  cfg.Flash.MaxFunding,
			MinSettle:   cfg.Flash.MinSettleTime,
			MaxSettle:   cfg.Flash.MaxSettleTime,
		}, flashDirectory, func(t *tx.Transaction) error {
			if _, err := pool.Add(t); err != nil {
				return err
			}
			return transport.BroadcastTx(t)
		})

		peer.NewFlashHandler(transport, flashNode).Register()
		logger.Info().Msg("Flash channel layer enabled")
	}

	// ── 10. Validator heartbeat loop ──────────────────────────────────────
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if validatorSigner != nil {
		go runHeartbeat(ctx, transport, validatorSigner, coreLedger, 60*time.Second)
	}

	// ── 11. Quorum slice rebuild loop (periodic, informational logging) ──
	go runQuorumWatch(ctx, coreLedger, metricsCollector, 30*time.Second)

	// ── 12. Admin/metrics HTTP surface ───────────────────────────────────
	if cfg.Admin.Enabled {
		addr := fmt.Sprintf("%s:%d", cfg.Admin.Address, cfg.Admin.Port)
		mux := newAdminMux(metricsCollector, transport)
		go serveAdmin(addr, mux, logger)
	}

	// ── 13. Wait for shutdown ─────────────────────────────────────────────
	logger.Info().Uint64("height", coreLedger.GetBlockHeight()).Msg("Node started successfully")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")

	cancel()
	logger.Info().Msg("Goodbye!")
}

// runHeartbeat signs and broadcasts this validator's liveness beacon at
// a fixed interval. It does not record anything in the local tracker.
func runHeartbeat(ctx context.Context, transport *peer.Node, signer *crypto.PrivateKey, l *ledger.Ledger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	send := func() {
		pubKey := signer.PublicKey()
		height := l.GetBlockHeight()
		ts := time.Now().Unix()
		data := peer.HeartbeatSigningBytes(pubKey, height, ts)
		hash := crypto.Hash(data)
		sig, err := signer.Sign(hash)
		if err != nil {
			klog.P2P.Error().Err(err).Msg("Failed to sign heartbeat")
			return
		}
		msg := &peer.HeartbeatMessage{PubKey: pubKey, Height: height, Timestamp: ts, Signature: sig}
		if err := transport.BroadcastHeartbeat(msg); err != nil {
			klog.P2P.Debug().Err(err).Msg("Failed to broadcast heartbeat")
		}
	}

	send()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			send()
		}
	}
}

// runQuorumWatch periodically rebuilds quorum slices from the ledger's
// active validator set purely to keep the quorum-size metric current;
// the actual FBA nomination/ratification round consumes ledger state
// directly rather than a cached slice map.
func runQuorumWatch(ctx context.Context, l *ledger.Ledger, m *metrics.Collector, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			validators, err := l.ActiveValidators()
			if err != nil {
				continue
			}
			m.ValidatorCount.Set(float64(len(validators)))
			slices, err := quorum.BuildSlices(validators, l.GetValidatorRandomSeed())
			if err != nil {
				continue
			}
			if len(slices) > 0 {
				for _, s := range slices {
					m.QuorumSliceSize.Set(float64(len(s.Members)))
					break
				}
			}
		}
	}
}

// buildGenesisBlock constructs the height-0 block from genesis config.
// Agora's ledger requires a fixed transaction count per block; genesis
// pads with coinbase filler outputs locked to the zero public key
// until real allocations (config.Genesis.Alloc) replace them.
func buildGenesisBlock(gen *config.Genesis) (*block.Block, error) {
	var txs []*tx.Transaction
	for addr, amount := range gen.Alloc {
		pub, err := allocPublicKey(addr)
		if err != nil {
			return nil, fmt.Errorf("genesis alloc %q: %w", addr, err)
		}
		txs = append(txs, &tx.Transaction{
			Type:    tx.Coinbase,
			Inputs:  []types.Input{{PrevOut: types.Outpoint{}}},
			Outputs: []types.Output{{Value: types.Amount(amount), Lock: types.LockKeyFor(pub)}},
		})
	}
	for i := len(txs); i < config.TxsInBlock; i++ {
		txs = append(txs, &tx.Transaction{
			Type:    tx.Coinbase,
			Inputs:  []types.Input{{PrevOut: types.Outpoint{}}},
			Outputs: []types.Output{{Value: 0, Lock: types.LockKeyFor(types.PublicKey{})}},
		})
	}
	sortByHash(txs)

	hashes := make([]types.Hash, len(txs))
	for i, t := range txs {
		hashes[i] = t.Hash()
	}
	root := block.ComputeMerkleRoot(hashes)
	header := &block.Header{Height: 0, MerkleRoot: root}
	return block.NewBlock(header, txs), nil
}

func sortByHash(txs []*tx.Transaction) {
	for i := 1; i < len(txs); i++ {
		for j := i; j > 0; j-- {
			hj, hj1 := txs[j].Hash(), txs[j-1].Hash()
			if hj.Less(hj1) {
				txs[j], txs[j-1] = txs[j-1], txs[j]
			} else {
				break
			}
		}
	}
}

// allocPublicKey decodes a genesis alloc key, which names a compressed
// secp256k1 public key in hex (33 bytes) rather than a wallet address,
// since this domain has no Address type — ownership is expressed
// directly as a pay-to-key Lock (pkg/types/lock.go).
func allocPublicKey(hexKey string) (types.PublicKey, error) {
	var pub types.PublicKey
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return pub, err
	}
	if len(raw) != len(pub) {
		return pub, fmt.Errorf("expected %d-byte public key, got %d", len(pub), len(raw))
	}
	copy(pub[:], raw)
	return pub, nil
}

// newAdminMux builds the local admin surface: Prometheus metrics plus a
// minimal peer-count/height probe, matching the teacher's stdlib-mux RPC
// style (internal/rpc/server.go) rather than any third-party router.
func newAdminMux(m *metrics.Collector, transport *peer.Node) *http.ServeMux {
	mux := http.NewServeMux()
	m.RegisterOn(mux, "/metrics")
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "peers=%d\n", transport.PeerCount())
	})
	return mux
}

func serveAdmin(addr string, mux *http.ServeMux, logger zerolog.Logger) {
	logger.Info().Str("addr", addr).Msg("Admin interface listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error().Err(err).Msg("Admin interface stopped")
	}
}
