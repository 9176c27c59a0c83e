// Package config handles application configuration.
//
// Configuration is split into two categories:
//   - Protocol rules: defined in genesis, immutable, must match across all nodes
//   - Node settings: runtime configuration, can vary per node
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/bosagora-go/agora-node/pkg/types"
)

// NetworkType identifies mainnet or testnet.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
)

// =============================================================================
// Node Configuration (runtime, per-node settings)
// =============================================================================

// Config holds node-specific runtime configuration.
// These settings can vary between nodes without breaking consensus.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`

	Node          NodeSettings
	Validator     ValidatorConfig
	Flash         FlashConfig
	BanMan        BanManConfig
	Admin         AdminConfig
	EventHandlers EventHandlersConfig

	// Network peers this node dials on startup, beyond discovery
	// ("network[]" in the spec's key listing; conf key is
	// network_peers to avoid colliding with the mainnet/testnet
	// selector's own "network" key).
	NetworkPeers []string `conf:"network_peers"`
	// DNS seed hostnames resolved for additional peer addresses.
	DNS []string `conf:"dns"`
	// Logging sinks, e.g. "file:/var/log/agora-node.log". The node always
	// logs to the console at level info; the last "file:" entry names the
	// log file, <datadir>/logs/agora-node.log when there is none. Entries
	// without the "file:" prefix are ignored.
	Logging []string `conf:"logging"`

	// Maintenance (not persisted in config file)
	RebuildIndexes bool
}

// NodeSettings holds the `node.*` options: listener bounds, retry/timeout
// behavior, discovery and catchup cadence, and mempool relay policy.
type NodeSettings struct {
	DataDir string `conf:"node.data_dir"`

	MinListeners int `conf:"node.min_listeners"`
	MaxListeners int `conf:"node.max_listeners"`

	RetryDelay time.Duration `conf:"node.retry_delay"`
	MaxRetries int           `conf:"node.max_retries"`
	Timeout    time.Duration `conf:"node.timeout"`

	StatsListeningPort int `conf:"node.stats_listening_port"`

	BlockTimeOffsetTolerance time.Duration `conf:"node.block_time_offset_tolerance_secs"`
	NetworkDiscoveryInterval time.Duration `conf:"node.network_discovery_interval_secs"`
	BlockCatchupInterval     time.Duration `conf:"node.block_catchup_interval_secs"`

	RelayTxMaxNum      int           `conf:"node.relay_tx_max_num"`
	RelayTxInterval    time.Duration `conf:"node.relay_tx_interval_secs"`
	RelayTxMinFee      types.Amount  `conf:"node.relay_tx_min_fee"`
	RelayTxCacheExpiry time.Duration `conf:"node.relay_tx_cache_exp_secs"`
}

// ValidatorConfig holds the `validator.*` options governing whether this
// node participates in enrollment and block signing.
type ValidatorConfig struct {
	Enabled bool `conf:"validator.enabled"`
	// Seed is the validator's signing seed, either inline (hex/mnemonic)
	// or a path to a keystore file — resolved the same way flash.seed is.
	Seed                   string        `conf:"validator.seed"`
	RegistryAddress        string        `conf:"validator.registry_address"`
	AddressesToRegister    []string      `conf:"validator.addresses_to_register"`
	RecurringEnrollment    bool          `conf:"validator.recurring_enrollment"`
	PreimageRevealInterval time.Duration `conf:"validator.preimage_reveal_interval"`
}

// FlashConfig holds the `flash.*` options governing this node's payment
// channel layer. MinSettleTime and MaxSettleTime default to 6 and 144
// per spec — roughly an hour to a day of blocks at a one-block-per-
// ten-minutes cadence.
type FlashConfig struct {
	Enabled bool          `conf:"flash.enabled"`
	Timeout time.Duration `conf:"flash.timeout"`
	// Seed is the base key material channels derive their settle/update
	// key pairs from, either inline or a keystore path.
	Seed            string        `conf:"flash.seed"`
	ListenerAddress string        `conf:"flash.listener_address"`
	MinFunding      types.Amount  `conf:"flash.min_funding"`
	MaxFunding      types.Amount  `conf:"flash.max_funding"`
	MinSettleTime   uint32        `conf:"flash.min_settle_time"`
	MaxSettleTime   uint32        `conf:"flash.max_settle_time"`
	MaxRetryTime    time.Duration `conf:"flash.max_retry_time"`
}

// BanManConfig holds the `banman.*` options governing when a misbehaving
// peer gets cut off.
type BanManConfig struct {
	MaxFailedRequests int           `conf:"banman.max_failed_requests"`
	BanDuration       time.Duration `conf:"banman.ban_duration"`
}

// AdminConfig holds the `admin.*` options for the local administrative
// interface (stats, manual enrollment triggers, Flash channel control).
type AdminConfig struct {
	Enabled bool   `conf:"admin.enabled"`
	Address string `conf:"admin.address"`
	Port    int    `conf:"admin.port"`
}

// EventHandlersConfig holds webhook URLs the node posts notifications to.
// Empty means the corresponding event is not forwarded anywhere.
type EventHandlersConfig struct {
	BlockExternalized   string `conf:"event_handlers.block_externalized"`
	PreimageReceived    string `conf:"event_handlers.preimage_received"`
	TransactionReceived string `conf:"event_handlers.transaction_received"`
}

// =============================================================================
// Directory helpers
// =============================================================================

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.agora-node
//	macOS:   ~/Library/Application Support/AgoraNode
//	Windows: %APPDATA%\AgoraNode
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".agora-node"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "AgoraNode")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "AgoraNode")
		}
		return filepath.Join(home, "AppData", "Roaming", "AgoraNode")
	default:
		return filepath.Join(home, ".agora-node")
	}
}

// ChainDataDir returns the network-specific data directory.
func (c *Config) ChainDataDir() string {
	return filepath.Join(c.Node.DataDir, string(c.Network))
}

// BlocksDir returns the block storage directory.
func (c *Config) BlocksDir() string {
	return filepath.Join(c.ChainDataDir(), "blocks")
}

// UTXODir returns the UTXO database directory.
func (c *Config) UTXODir() string {
	return filepath.Join(c.ChainDataDir(), "utxo")
}

// EnrollmentDir returns the enrollment database directory.
func (c *Config) EnrollmentDir() string {
	return filepath.Join(c.ChainDataDir(), "enrollment")
}

// MempoolDir returns the mempool database directory.
func (c *Config) MempoolDir() string {
	return filepath.Join(c.ChainDataDir(), "mempool")
}

// KeystoreDir returns the keystore directory.
func (c *Config) KeystoreDir() string {
	return filepath.Join(c.ChainDataDir(), "keystore")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.Node.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.Node.DataDir, "agora-node.conf")
}
