package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "carbon_registry", cfg.Database.DBName)
	assert.Equal(t, "escrow.marketplace", cfg.Marketplace.EscrowAccount)
	assert.Equal(t, 512, cfg.Registry.MaxFieldLength)
}

func TestFileOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"server":{"port":9090},"registry":{"owner":"0xboot","orchestrator":"svc.orchestrator","certificate_uri":"https://x","max_field_length":128}}`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0xboot", cfg.Registry.Owner)
	assert.Equal(t, 128, cfg.Registry.MaxFieldLength)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("REGISTRY_OWNER", "0xenvowner")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "0xenvowner", cfg.Registry.Owner)
}

func TestDatabaseURL(t *testing.T) {
	cfg := DatabaseConfig{
		Host: "db", Port: 5432, User: "u", Password: "p", DBName: "registry", SSLMode: "disable",
	}
	assert.Equal(t, "postgres://u:p@db:5432/registry?sslmode=disable", cfg.GetDatabaseURL())
}
