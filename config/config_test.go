package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	require := require.New(t)

	cfg, err := Load("")
	require.NoError(err)
	require.Equal(":8765", cfg.Address)
	require.Equal("pgpchat.db", cfg.DBPath)
	require.Equal("/tmp/pgpchat.sock", cfg.ControlSocket)
	require.Equal(30, cfg.WriteTimeout)
	require.Equal("INFO", cfg.Logging.Level)
	require.False(cfg.Logging.Disable)
}

func TestLoadFile(t *testing.T) {
	require := require.New(t)

	raw := `
Address = ":9000"
DBPath = "relay.db"
WriteTimeout = 5

[Logging]
Level = "debug"
`
	path := filepath.Join(t.TempDir(), "pgpchat.toml")
	require.NoError(os.WriteFile(path, []byte(raw), 0600))

	cfg, err := Load(path)
	require.NoError(err)
	require.Equal(":9000", cfg.Address)
	require.Equal("relay.db", cfg.DBPath)
	require.Equal(5, cfg.WriteTimeout)
	require.Equal("DEBUG", cfg.Logging.Level)
	// Untouched fields keep their defaults.
	require.Equal("/tmp/pgpchat.sock", cfg.ControlSocket)
}

func TestEnvOverridesFile(t *testing.T) {
	require := require.New(t)

	raw := `Address = ":9000"`
	path := filepath.Join(t.TempDir(), "pgpchat.toml")
	require.NoError(os.WriteFile(path, []byte(raw), 0600))

	t.Setenv("PGPCHAT_ADDR", ":7000")
	t.Setenv("PGPCHAT_WRITE_TIMEOUT", "12")

	cfg, err := Load(path)
	require.NoError(err)
	require.Equal(":7000", cfg.Address)
	require.Equal(12, cfg.WriteTimeout)
}

func TestInvalidLogLevel(t *testing.T) {
	require := require.New(t)

	t.Setenv("PGPCHAT_LOG_LEVEL", "LOUD")
	_, err := Load("")
	require.Error(err)
}
