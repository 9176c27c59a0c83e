package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

// Flags holds parsed command-line flags. Only the settings an operator
// commonly needs to override at the command line are exposed here; the
// rest live in the config file.
type Flags struct {
	// Commands
	Help    bool
	Version bool

	// Core
	Network string
	DataDir string
	Config  string

	// node.*
	MinListeners int
	MaxListeners int

	// validator.*
	Validator     bool
	ValidatorSeed string

	// flash.*
	Flash     bool
	FlashSeed string

	// admin.*
	Admin     bool
	AdminAddr string
	AdminPort int

	// Peers dialed on startup
	Peers string

	// Remaining args
	Args []string

	// Explicitly-set bool flags (for true/false overrides).
	SetValidator bool
	SetFlash     bool
	SetAdmin     bool
}

// ParseFlags parses command-line flags.
func ParseFlags() *Flags {
	f := &Flags{}
	fs := flag.NewFlagSet("agora-node", flag.ContinueOnError)

	// Commands
	fs.BoolVar(&f.Help, "help", false, "Show help message")
	fs.BoolVar(&f.Help, "h", false, "Show help message (shorthand)")
	fs.BoolVar(&f.Version, "version", false, "Show version information")
	fs.BoolVar(&f.Version, "v", false, "Show version (shorthand)")

	// Core
	fs.StringVar(&f.Network, "network", "", "Network type (mainnet or testnet)")
	var testnet bool
	fs.BoolVar(&testnet, "testnet", false, "Use testnet (shorthand for --network=testnet)")
	fs.StringVar(&f.DataDir, "datadir", "", "Data directory path")
	fs.StringVar(&f.Config, "config", "", "Config file path")
	fs.StringVar(&f.Config, "c", "", "Config file path (shorthand)")

	// Node
	fs.IntVar(&f.MinListeners, "min-listeners", 0, "Minimum peer connections to maintain")
	fs.IntVar(&f.MaxListeners, "max-listeners", 0, "Maximum peer connections to accept")
	fs.StringVar(&f.Peers, "peers", "", "Additional peer addresses to dial, comma-separated")

	// Validator
	fs.BoolVar(&f.Validator, "validator", false, "Enable validator enrollment and block signing")
	fs.StringVar(&f.ValidatorSeed, "validator-seed", "", "Validator signing seed (keystore path or hex seed)")

	// Flash
	fs.BoolVar(&f.Flash, "flash", false, "Enable the Flash payment channel layer")
	fs.StringVar(&f.FlashSeed, "flash-seed", "", "Flash base key seed (keystore path or hex seed)")

	// Admin
	fs.BoolVar(&f.Admin, "admin", false, "Enable the local admin interface")
	fs.StringVar(&f.AdminAddr, "admin-addr", "", "Admin interface listen address")
	fs.IntVar(&f.AdminPort, "admin-port", 0, "Admin interface listen port")

	// Custom usage
	fs.Usage = func() {
		printUsage()
	}

	// Parse
	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	// Handle --testnet shorthand
	if testnet {
		f.Network = "testnet"
	}
	f.SetValidator = isFlagSet(fs, "validator")
	f.SetFlash = isFlagSet(fs, "flash")
	f.SetAdmin = isFlagSet(fs, "admin")

	f.Args = fs.Args()

	// Detect unparsed flags caused by positional arguments stopping the parser.
	// This catches mistakes like "--validator enroll --flash" where "enroll"
	// is not a flag value (--validator is a bool) and stops all further parsing.
	for _, arg := range f.Args {
		if strings.HasPrefix(arg, "-") {
			fmt.Fprintf(os.Stderr, "Error: flag %q was not parsed (positional argument stopped parsing)\n", arg)
			fmt.Fprintf(os.Stderr, "Hint: --validator is a boolean flag. Use --validator (not --validator <name>)\n")
			os.Exit(1)
		}
	}

	return f
}

// ApplyFlags applies command-line flags to a Config struct.
func ApplyFlags(cfg *Config, f *Flags) {
	// Core
	if f.Network != "" {
		cfg.Network = NetworkType(f.Network)
	}
	if f.DataDir != "" {
		cfg.Node.DataDir = f.DataDir
	}

	// Node
	if f.MinListeners != 0 {
		cfg.Node.MinListeners = f.MinListeners
	}
	if f.MaxListeners != 0 {
		cfg.Node.MaxListeners = f.MaxListeners
	}
	if f.Peers != "" {
		cfg.NetworkPeers = parseStringList(f.Peers)
	}

	// Validator
	if f.SetValidator {
		cfg.Validator.Enabled = f.Validator
	}
	if f.ValidatorSeed != "" {
		cfg.Validator.Seed = f.ValidatorSeed
	}

	// Flash
	if f.SetFlash {
		cfg.Flash.Enabled = f.Flash
	}
	if f.FlashSeed != "" {
		cfg.Flash.Seed = f.FlashSeed
	}

	// Admin
	if f.SetAdmin {
		cfg.Admin.Enabled = f.Admin
	}
	if f.AdminAddr != "" {
		cfg.Admin.Address = f.AdminAddr
	}
	if f.AdminPort != 0 {
		cfg.Admin.Port = f.AdminPort
	}
}

// isFlagSet checks if a flag was explicitly set.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func printUsage() {
	usage := `Agora node - federated Byzantine agreement blockchain node

Usage:
  agora-node [options]
  agora-node --help

Commands:
  --help, -h      Show this help message
  --version, -v   Show version information

Core Options:
  --network       Network type: mainnet (default) or testnet
  --testnet       Shorthand for --network=testnet
  --datadir       Data directory (default: ~/.agora-node)
  --config, -c    Config file path (default: <datadir>/agora-node.conf)

Node Options:
  --min-listeners   Minimum peer connections to maintain
  --max-listeners   Maximum peer connections to accept
  --peers           Additional peer addresses to dial, comma-separated

Validator Options:
  --validator        Enable validator enrollment and block signing
  --validator-seed    Validator signing seed (keystore path or hex seed)

Flash Options:
  --flash         Enable the Flash payment channel layer
  --flash-seed    Flash base key seed (keystore path or hex seed)

Admin Options:
  --admin         Enable the local admin interface
  --admin-addr    Admin interface listen address
  --admin-port    Admin interface listen port

Examples:
  # Start mainnet node
  agora-node

  # Start testnet node
  agora-node --network=testnet

  # Start as a validator
  agora-node --validator --validator-seed=~/.agora-node/validator.key

  # Start with custom data directory
  agora-node --datadir=/path/to/data

Note:
  Consensus rules (quorum thresholds, block interval) are hardcoded in
  the genesis configuration and cannot be changed at runtime. Data
  directories are created automatically on first start.
`
	fmt.Print(usage)
}

// Load loads configuration with the following precedence:
// 1. Default values
// 2. Auto-create data dirs + default config (idempotent)
// 3. Config file
// 4. Command-line flags
func Load() (*Config, *Flags, error) {
	flags := ParseFlags()

	// Handle help/version
	if flags.Help {
		printUsage()
		os.Exit(0)
	}
	if flags.Version {
		fmt.Println("agora-node version 0.1.0")
		os.Exit(0)
	}

	// Determine network first (needed for defaults)
	network := Mainnet
	if flags.Network == "testnet" || strings.ToLower(flags.Network) == "testnet" {
		network = Testnet
	}

	// Start with defaults
	cfg := Default(network)

	// Override datadir if specified
	if flags.DataDir != "" {
		cfg.Node.DataDir = flags.DataDir
	}

	// Auto-create data directories and default config on first start.
	if err := EnsureDataDirs(cfg); err != nil {
		return nil, nil, fmt.Errorf("ensuring data dirs: %w", err)
	}

	// Determine config file path
	configPath := flags.Config
	if configPath == "" {
		configPath = cfg.ConfigFile()
	}

	// Load config file
	fileValues, err := LoadFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config file: %w", err)
	}

	// Apply file config
	if err := ApplyFileConfig(cfg, fileValues); err != nil {
		return nil, nil, fmt.Errorf("applying config file: %w", err)
	}

	// Apply flags (highest precedence)
	ApplyFlags(cfg, flags)
	if err := Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, flags, nil
}

// LoadFromFile loads config from defaults + conf file only (no CLI flags).
func LoadFromFile(dataDir string, network NetworkType) (*Config, error) {
	cfg := Default(network)
	if dataDir != "" {
		cfg.Node.DataDir = dataDir
	}
	if err := EnsureDataDirs(cfg); err != nil {
		return nil, fmt.Errorf("ensuring data dirs: %w", err)
	}
	fileValues, err := LoadFile(cfg.ConfigFile())
	if err != nil {
		return nil, fmt.Errorf("loading config file: %w", err)
	}
	if err := ApplyFileConfig(cfg, fileValues); err != nil {
		return nil, fmt.Errorf("applying config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// EnsureDataDirs creates the data directory structure and a default config
// file if they don't already exist. This is idempotent — safe to call on
// every startup.
func EnsureDataDirs(cfg *Config) error {
	dirs := []string{
		cfg.Node.DataDir,
		cfg.ChainDataDir(),
		cfg.BlocksDir(),
		cfg.UTXODir(),
		cfg.EnrollmentDir(),
		cfg.MempoolDir(),
		cfg.KeystoreDir(),
		cfg.LogsDir(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	// Create default config if it doesn't exist.
	configPath := cfg.ConfigFile()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := WriteDefaultConfig(configPath, cfg.Network); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}
	}

	return nil
}
