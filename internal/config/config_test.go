package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/beaconoracle/internal/oracle"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(flags)
	require.NoError(t, flags.Parse(args))
	return flags
}

func load(t *testing.T, args ...string) (Config, error) {
	v, err := NewViper(newFlags(t, args...))
	require.NoError(t, err)
	return Load(v)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(t)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, oracle.DefaultConfig(), cfg.OracleConfig())
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "oracled.yaml")
	require.NoError(t, os.WriteFile(file, []byte("data-dir: from-file\nlisten-addr: 127.0.0.1:1\ntrusted-cap: 7\n"), 0o600))

	t.Setenv("ORACLE_LISTEN_ADDR", "127.0.0.1:2")
	t.Setenv("ORACLE_VERIFYING_CAP", "5")

	cfg, err := load(t, "--config", file, "--trusted-cap", "9")
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.DataDir)
	assert.Equal(t, "127.0.0.1:2", cfg.ListenAddr)
	assert.Equal(t, uint32(5), cfg.VerifyingCap)
	assert.Equal(t, uint32(9), cfg.TrustedCap)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("ORACLE_LOG_LEVEL=debug\n"), 0o600))
	t.Setenv("ORACLE_LOG_LEVEL", "")
	require.NoError(t, os.Unsetenv("ORACLE_LOG_LEVEL"))

	require.NoError(t, LoadDotEnv(path))
	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))

	cfg, err := load(t)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.DataDir = ""
	cfg.TrustedCap = 0
	cfg.BeaconCacheSize = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data-dir is required")
	assert.Contains(t, err.Error(), "beacon-cache-size must be positive")
	assert.Contains(t, err.Error(), "delivery caps must be positive")
}

func TestKeyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.key")

	priv, err := WriteKey(path)
	require.NoError(t, err)

	loaded, err := LoadKey(path)
	require.NoError(t, err)
	assert.Equal(t, priv, loaded)

	_, err = WriteKey(path)
	assert.Error(t, err, "existing key must not be overwritten")

	require.NoError(t, os.WriteFile(path, []byte("abcd"), 0o600))
	_, err = LoadKey(path)
	assert.ErrorContains(t, err, "want 32")
}
