package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultDBPath, cfg.DBPath)
	assert.Equal(t, DefaultListen, cfg.Listen)
	assert.Equal(t, DefaultRelayURL, cfg.Sync.RelayURL)
	assert.False(t, cfg.Sync.Enabled)
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultDBPath, cfg.DBPath)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
dbPath: /var/lib/walletsync/wallet.db
sync:
  enabled: true
  mode: peer
  familyName: smith
  slot: 2
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/walletsync/wallet.db", cfg.DBPath)
	assert.True(t, cfg.Sync.Enabled)
	assert.Equal(t, "peer", cfg.Sync.Mode)
	assert.Equal(t, 2, cfg.Sync.Slot)
	// Unset file fields keep their defaults.
	assert.Equal(t, DefaultListen, cfg.Listen)
	assert.Equal(t, DefaultRelayURL, cfg.Sync.RelayURL)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dbPath: from-file.db\n"), 0o644))

	t.Setenv("WALLETSYNC_DB", "from-env.db")
	t.Setenv("WALLETSYNC_SYNC_ENABLED", "true")
	t.Setenv("WALLETSYNC_SYNC_MODE", "document")
	t.Setenv("WALLETSYNC_WALLET_ID", "fam-1")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env.db", cfg.DBPath)
	assert.Equal(t, "document", cfg.Sync.Mode)
	assert.Equal(t, "fam-1", cfg.Sync.WalletID)
}

func TestLoadValidatesEnabledSync(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"peer without family", map[string]string{
			"WALLETSYNC_SYNC_MODE": "peer", "WALLETSYNC_SLOT": "1",
		}},
		{"peer with bad slot", map[string]string{
			"WALLETSYNC_SYNC_MODE": "peer", "WALLETSYNC_FAMILY": "smith", "WALLETSYNC_SLOT": "3",
		}},
		{"document without wallet id", map[string]string{
			"WALLETSYNC_SYNC_MODE": "document",
		}},
		{"unknown mode", map[string]string{
			"WALLETSYNC_SYNC_MODE": "carrier-pigeon",
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("WALLETSYNC_SYNC_ENABLED", "true")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dbPath: [unterminated"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
