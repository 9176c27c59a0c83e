package keystore

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/bosagora-go/agora-node/internal/walletseed"
)

// ResolveSeed resolves a validator.seed/flash.seed config value (§6) to a
// raw 64-byte seed. value may be a path to an encrypted keystore file, a
// BIP-39 mnemonic, or a hex-encoded seed — tried in that order.
func ResolveSeed(value, password string) ([]byte, error) {
	if value == "" {
		return nil, fmt.Errorf("seed value is empty")
	}

	if _, err := os.Stat(value); err == nil {
		return Load(value, password)
	}

	if walletseed.ValidateMnemonic(value) {
		return walletseed.SeedFromMnemonic(value, password)
	}

	if raw, err := hex.DecodeString(value); err == nil && len(raw) == walletseed.SeedSize {
		return raw, nil
	}

	return nil, fmt.Errorf("could not resolve seed: not a keystore file, mnemonic, or %d-byte hex seed", walletseed.SeedSize)
}
