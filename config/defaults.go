package config

import "time"

// DefaultMainnet returns the default node configuration for mainnet.
func DefaultMainnet() *Config {
	return &Config{
		Network: Mainnet,
		Node: NodeSettings{
			DataDir:                  DefaultDataDir(),
			MinListeners:             4,
			MaxListeners:             64,
			RetryDelay:               5 * time.Second,
			MaxRetries:               5,
			Timeout:                  30 * time.Second,
			StatsListeningPort:       9091,
			BlockTimeOffsetTolerance: 60 * time.Second,
			NetworkDiscoveryInterval: 5 * time.Minute,
			BlockCatchupInterval:     20 * time.Second,
			RelayTxMaxNum:            10_000,
			RelayTxInterval:          15 * time.Second,
			RelayTxMinFee:            0,
			RelayTxCacheExpiry:       20 * time.Minute,
		},
		Validator: ValidatorConfig{
			Enabled:                false,
			RecurringEnrollment:    true,
			PreimageRevealInterval: 6 * time.Hour,
		},
		Flash: FlashConfig{
			Enabled:       false,
			Timeout:       30 * time.Second,
			MinFunding:    1_000_000,
			MaxFunding:    0, // 0 = no upper bound
			MinSettleTime: 6,
			MaxSettleTime: 144,
			MaxRetryTime:  5 * time.Minute,
		},
		BanMan: BanManConfig{
			MaxFailedRequests: 10,
			BanDuration:       24 * time.Hour,
		},
		Admin: AdminConfig{
			Enabled: false,
			Address: "127.0.0.1",
			Port:    2827,
		},
		Logging: []string{"console"},
	}
}

// DefaultTestnet returns the default node configuration for testnet.
func DefaultTestnet() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Testnet
	cfg.Node.StatsListeningPort = 9191
	cfg.Admin.Port = 2828
	return cfg
}

// Default returns the default node configuration for the given network.
func Default(network NetworkType) *Config {
	switch network {
	case Testnet:
		return DefaultTestnet()
	default:
		return DefaultMainnet()
	}
}
