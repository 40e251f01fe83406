// Package cmd implements the oracled command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eigerco/beaconoracle/internal/config"
	"github.com/eigerco/beaconoracle/internal/oracle"
	"github.com/eigerco/beaconoracle/internal/store"
	"github.com/eigerco/beaconoracle/internal/treasury"
	"github.com/eigerco/beaconoracle/pkg/db/pebble"
	"github.com/eigerco/beaconoracle/pkg/log"
)

var (
	flagEnvFile string
	v           *viper.Viper
	cfg         config.Config
)

var rootCmd = &cobra.Command{
	Use:           "oracled",
	Short:         "drand randomness oracle",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := config.LoadDotEnv(flagEnvFile); err != nil {
			return err
		}
		var err error
		if v, err = config.NewViper(cmd.Flags()); err != nil {
			return err
		}
		if cfg, err = config.Load(v); err != nil {
			return err
		}
		return initLog(cfg)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", ".env", "dotenv file loaded before reading ORACLE_ variables")
	config.AddFlags(rootCmd.PersistentFlags())
}

func initLog(c config.Config) error {
	level, err := log.ParseLogLevel(c.LogLevel)
	if err != nil {
		return err
	}
	format, err := log.ParseLoggerType(c.LogFormat)
	if err != nil {
		return err
	}
	log.Init(log.Options{LogLevel: level, Type: format, Output: os.Stderr})
	return nil
}

// state is the local oracle database.
type state struct {
	kv     *pebble.KVStore
	store  *store.Store
	ledger *treasury.Ledger
}

func openState(c config.Config) (*state, error) {
	kv, err := pebble.Open(c.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", c.DataDir, err)
	}
	s, err := store.NewWithCacheSize(kv, c.BeaconCacheSize)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}
	return &state{kv: kv, store: s, ledger: treasury.NewLedger(kv)}, nil
}

func (s *state) Close() error {
	return s.store.Close()
}

func (s *state) oracle(c config.Config, m oracle.Metrics) *oracle.Oracle {
	return oracle.New(s.store, s.ledger, m, c.OracleConfig())
}
