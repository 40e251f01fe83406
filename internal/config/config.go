// Package config loads the settings of oracled from flags, ORACLE_
// environment variables, an optional .env file and an optional config file,
// in that order of precedence.
package config

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/eigerco/beaconoracle/internal/oracle"
)

const EnvPrefix = "ORACLE"

// Flag names double as config file keys.
const (
	FlagConfig             = "config"
	FlagDataDir            = "data-dir"
	FlagListenAddr         = "listen-addr"
	FlagMetricsAddr        = "metrics-addr"
	FlagKeyFile            = "key-file"
	FlagLogLevel           = "log-level"
	FlagLogFormat          = "log-format"
	FlagBeaconCacheSize    = "beacon-cache-size"
	FlagVerifyingCap       = "verifying-cap"
	FlagTrustedCap         = "trusted-cap"
	FlagIncentivesPerRound = "incentives-per-round"
)

type Config struct {
	DataDir            string `mapstructure:"data-dir"`
	ListenAddr         string `mapstructure:"listen-addr"`
	MetricsAddr        string `mapstructure:"metrics-addr"`
	KeyFile            string `mapstructure:"key-file"`
	LogLevel           string `mapstructure:"log-level"`
	LogFormat          string `mapstructure:"log-format"`
	BeaconCacheSize    int    `mapstructure:"beacon-cache-size"`
	VerifyingCap       uint32 `mapstructure:"verifying-cap"`
	TrustedCap         uint32 `mapstructure:"trusted-cap"`
	IncentivesPerRound uint32 `mapstructure:"incentives-per-round"`
}

func Default() Config {
	return Config{
		DataDir:            "oracle-data",
		ListenAddr:         "0.0.0.0:9000",
		MetricsAddr:        "",
		KeyFile:            "oracle.key",
		LogLevel:           "info",
		LogFormat:          "console",
		BeaconCacheSize:    1024,
		VerifyingCap:       oracle.DefaultVerifyingCap,
		TrustedCap:         oracle.DefaultTrustedCap,
		IncentivesPerRound: oracle.DefaultIncentivesPerRound,
	}
}

// AddFlags registers the node settings on flags with their defaults.
func AddFlags(flags *pflag.FlagSet) {
	d := Default()
	flags.String(FlagConfig, "", "path to a config file (yaml, toml or json)")
	flags.String(FlagDataDir, d.DataDir, "directory of the oracle database")
	flags.String(FlagListenAddr, d.ListenAddr, "QUIC listen address")
	flags.String(FlagMetricsAddr, d.MetricsAddr, "prometheus listen address, empty to disable")
	flags.String(FlagKeyFile, d.KeyFile, "file holding the hex ed25519 seed of the node key")
	flags.String(FlagLogLevel, d.LogLevel, "log level (trace, debug, info, warn, error)")
	flags.String(FlagLogFormat, d.LogFormat, "log format (console or json)")
	flags.Int(FlagBeaconCacheSize, d.BeaconCacheSize, "number of beacons cached in memory")
	flags.Uint32(FlagVerifyingCap, d.VerifyingCap, "jobs delivered per verified round submission")
	flags.Uint32(FlagTrustedCap, d.TrustedCap, "jobs delivered per trusted round submission")
	flags.Uint32(FlagIncentivesPerRound, d.IncentivesPerRound, "submitters paid per round")
}

// NewViper returns a viper bound to flags and to ORACLE_ environment
// variables (ORACLE_DATA_DIR for --data-dir).
func NewViper(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}
	return v, nil
}

// LoadDotEnv loads path into the environment if it exists. Variables that
// are already set win.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads the config file named by the config key, if any, and decodes
// the settings.
func Load(v *viper.Viper) (Config, error) {
	if file := v.GetString(FlagConfig); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var result *multierror.Error
	if c.DataDir == "" {
		result = multierror.Append(result, fmt.Errorf("%s is required", FlagDataDir))
	}
	if c.KeyFile == "" {
		result = multierror.Append(result, fmt.Errorf("%s is required", FlagKeyFile))
	}
	if c.BeaconCacheSize <= 0 {
		result = multierror.Append(result, fmt.Errorf("%s must be positive", FlagBeaconCacheSize))
	}
	if c.VerifyingCap == 0 || c.TrustedCap == 0 {
		result = multierror.Append(result, fmt.Errorf("delivery caps must be positive"))
	}
	return result.ErrorOrNil()
}

// OracleConfig returns the oracle settings for the mainnet chain.
func (c Config) OracleConfig() oracle.Config {
	cfg := oracle.DefaultConfig()
	cfg.VerifyingCap = c.VerifyingCap
	cfg.TrustedCap = c.TrustedCap
	cfg.IncentivesPerRound = c.IncentivesPerRound
	return cfg
}

// LoadKey reads a hex encoded ed25519 seed from path.
func LoadKey(path string) (ed25519.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key: %w", err)
	}
	seed, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("decode key %s: %w", path, err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("key %s has %d bytes, want %d", path, len(seed), ed25519.SeedSize)
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

// WriteKey generates a new key and stores its seed at path. An existing file
// is never overwritten.
func WriteKey(path string) (ed25519.PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create key: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(hex.EncodeToString(priv.Seed()) + "\n"); err != nil {
		return nil, fmt.Errorf("write key: %w", err)
	}
	return priv, nil
}
