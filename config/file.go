package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bosagora-go/agora-node/pkg/types"
)

// LoadFile loads node configuration from a .conf file.
// Format: key = value (one per line, # for comments)
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse key = value
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values, scanner.Err()
}

// ApplyFileConfig applies file configuration to a Config struct.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// setConfigValue sets a node config value by key.
// Only node-operational settings, NOT protocol rules.
func setConfigValue(cfg *Config, key, value string) error {
	switch key {
	// Core
	case "network":
		cfg.Network = NetworkType(value)
	case "network_peers":
		cfg.NetworkPeers = parseStringList(value)
	case "dns":
		cfg.DNS = parseStringList(value)
	case "logging":
		cfg.Logging = parseStringList(value)

	// node.*
	case "node.data_dir":
		cfg.Node.DataDir = value
	case "node.min_listeners":
		return parseIntInto(&cfg.Node.MinListeners, value)
	case "node.max_listeners":
		return parseIntInto(&cfg.Node.MaxListeners, value)
	case "node.retry_delay":
		return parseDurationInto(&cfg.Node.RetryDelay, value)
	case "node.max_retries":
		return parseIntInto(&cfg.Node.MaxRetries, value)
	case "node.timeout":
		return parseDurationInto(&cfg.Node.Timeout, value)
	case "node.stats_listening_port":
		return parseIntInto(&cfg.Node.StatsListeningPort, value)
	case "node.block_time_offset_tolerance_secs":
		return parseDurationInto(&cfg.Node.BlockTimeOffsetTolerance, value)
	case "node.network_discovery_interval_secs":
		return parseDurationInto(&cfg.Node.NetworkDiscoveryInterval, value)
	case "node.block_catchup_interval_secs":
		return parseDurationInto(&cfg.Node.BlockCatchupInterval, value)
	case "node.relay_tx_max_num":
		return parseIntInto(&cfg.Node.RelayTxMaxNum, value)
	case "node.relay_tx_interval_secs":
		return parseDurationInto(&cfg.Node.RelayTxInterval, value)
	case "node.relay_tx_min_fee":
		return parseAmountInto(&cfg.Node.RelayTxMinFee, value)
	case "node.relay_tx_cache_exp_secs":
		return parseDurationInto(&cfg.Node.RelayTxCacheExpiry, value)

	// validator.*
	case "validator.enabled":
		cfg.Validator.Enabled = parseBool(value)
	case "validator.seed":
		cfg.Validator.Seed = value
	case "validator.registry_address":
		cfg.Validator.RegistryAddress = value
	case "validator.addresses_to_register":
		cfg.Validator.AddressesToRegister = parseStringList(value)
	case "validator.recurring_enrollment":
		cfg.Validator.RecurringEnrollment = parseBool(value)
	case "validator.preimage_reveal_interval":
		return parseDurationInto(&cfg.Validator.PreimageRevealInterval, value)

	// flash.*
	case "flash.enabled":
		cfg.Flash.Enabled = parseBool(value)
	case "flash.timeout":
		return parseDurationInto(&cfg.Flash.Timeout, value)
	case "flash.seed":
		cfg.Flash.Seed = value
	case "flash.listener_address":
		cfg.Flash.ListenerAddress = value
	case "flash.min_funding":
		return parseAmountInto(&cfg.Flash.MinFunding, value)
	case "flash.max_funding":
		return parseAmountInto(&cfg.Flash.MaxFunding, value)
	case "flash.min_settle_time":
		return parseUint32Into(&cfg.Flash.MinSettleTime, value)
	case "flash.max_settle_time":
		return parseUint32Into(&cfg.Flash.MaxSettleTime, value)
	case "flash.max_retry_time":
		return parseDurationInto(&cfg.Flash.MaxRetryTime, value)

	// banman.*
	case "banman.max_failed_requests":
		return parseIntInto(&cfg.BanMan.MaxFailedRequests, value)
	case "banman.ban_duration":
		return parseDurationInto(&cfg.BanMan.BanDuration, value)

	// admin.*
	case "admin.enabled":
		cfg.Admin.Enabled = parseBool(value)
	case "admin.address":
		cfg.Admin.Address = value
	case "admin.port":
		return parseIntInto(&cfg.Admin.Port, value)

	// event_handlers.*
	case "event_handlers.block_externalized":
		cfg.EventHandlers.BlockExternalized = value
	case "event_handlers.preimage_received":
		cfg.EventHandlers.PreimageReceived = value
	case "event_handlers.transaction_received":
		cfg.EventHandlers.TransactionReceived = value

	default:
		// Unknown keys are ignored
	}
	return nil
}

func parseIntInto(dst *int, s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func parseUint32Into(dst *uint32, s string) error {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return err
	}
	*dst = uint32(n)
	return nil
}

func parseAmountInto(dst *types.Amount, s string) error {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return err
	}
	*dst = types.Amount(n)
	return nil
}

func parseDurationInto(dst *time.Duration, s string) error {
	if d, err := time.ParseDuration(s); err == nil {
		*dst = d
		return nil
	}
	// Bare integers in *_secs keys are seconds, not nanoseconds.
	secs, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q", s)
	}
	*dst = time.Duration(secs) * time.Second
	return nil
}

// parseBool parses a boolean value.
func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// parseStringList parses a comma-separated list.
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// WriteDefaultConfig writes a default node configuration file.
func WriteDefaultConfig(path string, network NetworkType) error {
	content := `# Agora node configuration
#
# This file contains NODE settings only. Protocol rules (consensus
# membership, quorum thresholds) live in the genesis configuration and
# cannot be changed without a hard fork.

# Network: mainnet or testnet
network = ` + string(network) + `

# Additional peers dialed on startup, beyond discovery (comma-separated)
# network_peers = peer1.example.com:3836,peer2.example.com:3836

# DNS seed hostnames resolved for peer addresses (comma-separated)
# dns = seed.example.com

# Logging sinks (comma-separated): console, file:<path>
logging = console

# ============================================================================
# Node
# ============================================================================

# node.data_dir = ~/.agora-node
node.min_listeners = 4
node.max_listeners = 64
node.retry_delay = 5s
node.max_retries = 5
node.timeout = 30s
node.stats_listening_port = ` + defaultStatsPort(network) + `
node.block_time_offset_tolerance_secs = 60s
node.network_discovery_interval_secs = 5m
node.block_catchup_interval_secs = 20s
node.relay_tx_max_num = 10000
node.relay_tx_interval_secs = 15s
node.relay_tx_min_fee = 0
node.relay_tx_cache_exp_secs = 20m

# ============================================================================
# Validator (enrollment + block signing)
# ============================================================================

validator.enabled = false
# validator.seed = <path-to-keystore-or-hex-seed>
# validator.registry_address = <address>
# validator.addresses_to_register = <address1>,<address2>
validator.recurring_enrollment = true
validator.preimage_reveal_interval = 6h

# ============================================================================
# Flash (payment channels)
# ============================================================================

flash.enabled = false
flash.timeout = 30s
# flash.seed = <path-to-keystore-or-hex-seed>
# flash.listener_address = 0.0.0.0:3837
flash.min_funding = 1000000
flash.max_funding = 0
flash.min_settle_time = 6
flash.max_settle_time = 144
flash.max_retry_time = 5m

# ============================================================================
# Ban manager
# ============================================================================

banman.max_failed_requests = 10
banman.ban_duration = 24h

# ============================================================================
# Admin interface
# ============================================================================

admin.enabled = false
admin.address = 127.0.0.1
admin.port = ` + defaultAdminPort(network) + `

# ============================================================================
# Event handlers (webhook URLs, empty disables forwarding)
# ============================================================================

# event_handlers.block_externalized =
# event_handlers.preimage_received =
# event_handlers.transaction_received =
`
	return os.WriteFile(path, []byte(content), 0644)
}

func defaultStatsPort(network NetworkType) string {
	if network == Testnet {
		return "9191"
	}
	return "9091"
}

func defaultAdminPort(network NetworkType) string {
	if network == Testnet {
		return "2828"
	}
	return "2827"
}
