// Package config loads the device configuration from a YAML file with
// environment variable overrides. A .env file next to the working
// directory is honored, so a device can be configured entirely through
// environment when no config file exists.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/roach88/walletsync/internal/domain"
)

// Defaults applied before the file and environment are consulted.
const (
	DefaultDBPath   = "wallet.db"
	DefaultListen   = "127.0.0.1:9180"
	DefaultRelayURL = "ws://127.0.0.1:9100/ws"
)

// Sync configures the transport. Mode selects the variant; the peer
// variant reads FamilyName and Slot, the document variant WalletID.
type Sync struct {
	Enabled    bool   `yaml:"enabled"`
	Mode       string `yaml:"mode"`
	FamilyName string `yaml:"familyName"`
	Slot       int    `yaml:"slot"`
	WalletID   string `yaml:"walletId"`
	RelayURL   string `yaml:"relayUrl"`
}

// Config is the full device configuration.
type Config struct {
	DBPath string `yaml:"dbPath"`
	Listen string `yaml:"listen"`
	Sync   Sync   `yaml:"sync"`
}

// Load reads configuration in ascending precedence: defaults, the YAML
// file at path (optional; empty path or a missing default file is not
// an error), then WALLETSYNC_* environment variables. A .env file is
// loaded first when present.
func Load(path string) (*Config, error) {
	// Missing .env is the common case, not an error.
	_ = godotenv.Load()

	cfg := &Config{
		DBPath: DefaultDBPath,
		Listen: DefaultListen,
		Sync:   Sync{RelayURL: DefaultRelayURL},
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString("WALLETSYNC_DB", &cfg.DBPath)
	setString("WALLETSYNC_LISTEN", &cfg.Listen)
	setString("WALLETSYNC_SYNC_MODE", &cfg.Sync.Mode)
	setString("WALLETSYNC_FAMILY", &cfg.Sync.FamilyName)
	setString("WALLETSYNC_WALLET_ID", &cfg.Sync.WalletID)
	setString("WALLETSYNC_RELAY_URL", &cfg.Sync.RelayURL)

	if v := os.Getenv("WALLETSYNC_SLOT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Sync.Slot = n
		}
	}
	if v := os.Getenv("WALLETSYNC_SYNC_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Sync.Enabled = b
		}
	}
}

func (c *Config) validate() error {
	if !c.Sync.Enabled {
		return nil
	}
	switch domain.SyncMode(c.Sync.Mode) {
	case domain.SyncModePeer:
		if c.Sync.FamilyName == "" {
			return fmt.Errorf("config: peer sync requires familyName")
		}
		if c.Sync.Slot != 1 && c.Sync.Slot != 2 {
			return fmt.Errorf("config: peer sync slot must be 1 or 2, got %d", c.Sync.Slot)
		}
		if c.Sync.RelayURL == "" {
			return fmt.Errorf("config: peer sync requires relayUrl")
		}
	case domain.SyncModeDocument:
		if c.Sync.WalletID == "" {
			return fmt.Errorf("config: document sync requires walletId")
		}
	default:
		return fmt.Errorf("config: unknown sync mode %q", c.Sync.Mode)
	}
	return nil
}
