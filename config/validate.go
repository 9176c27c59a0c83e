package config

import "fmt"

// Validate checks runtime node config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Network != Mainnet && cfg.Network != Testnet {
		return fmt.Errorf("network must be %q or %q", Mainnet, Testnet)
	}

	if cfg.Node.MinListeners < 0 {
		return fmt.Errorf("node.min_listeners must be >= 0")
	}
	if cfg.Node.MaxListeners > 0 && cfg.Node.MinListeners > cfg.Node.MaxListeners {
		return fmt.Errorf("node.min_listeners must be <= node.max_listeners")
	}
	if cfg.Node.MaxRetries < 0 {
		return fmt.Errorf("node.max_retries must be >= 0")
	}
	if cfg.Node.StatsListeningPort < 0 || cfg.Node.StatsListeningPort > 65535 {
		return fmt.Errorf("node.stats_listening_port must be in range [0, 65535]")
	}

	if cfg.Admin.Port < 0 || cfg.Admin.Port > 65535 {
		return fmt.Errorf("admin.port must be in range [0, 65535]")
	}
	if cfg.Admin.Enabled && cfg.Admin.Address == "" {
		return fmt.Errorf("admin.address must be set when admin.enabled is true")
	}

	if cfg.Validator.Enabled && cfg.Validator.Seed == "" {
		return fmt.Errorf("validator.seed must be set when validator.enabled is true")
	}

	if cfg.Flash.Enabled {
		if cfg.Flash.Seed == "" {
			return fmt.Errorf("flash.seed must be set when flash.enabled is true")
		}
		if cfg.Flash.MaxFunding != 0 && cfg.Flash.MinFunding > cfg.Flash.MaxFunding {
			return fmt.Errorf("flash.min_funding must be <= flash.max_funding")
		}
		if cfg.Flash.MinSettleTime == 0 {
			return fmt.Errorf("flash.min_settle_time must be > 0")
		}
		if cfg.Flash.MaxSettleTime != 0 && cfg.Flash.MinSettleTime > cfg.Flash.MaxSettleTime {
			return fmt.Errorf("flash.min_settle_time must be <= flash.max_settle_time")
		}
	}

	if cfg.BanMan.MaxFailedRequests < 0 {
		return fmt.Errorf("banman.max_failed_requests must be >= 0")
	}

	for _, sink := range cfg.Logging {
		switch {
		case sink == "console":
		case len(sink) > len("file:") && sink[:len("file:")] == "file:":
		default:
			return fmt.Errorf("logging sink %q must be \"console\" or \"file:<path>\"", sink)
		}
	}

	return nil
}
