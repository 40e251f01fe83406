package cmd

import (
	"crypto/ed25519"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eigerco/beaconoracle/internal/address"
	"github.com/eigerco/beaconoracle/internal/config"
	"github.com/eigerco/beaconoracle/internal/metrics"
	"github.com/eigerco/beaconoracle/internal/node"
	"github.com/eigerco/beaconoracle/internal/oracle"
	"github.com/eigerco/beaconoracle/internal/treasury"
)

var (
	flagAdmin           string
	flagMinRound        uint64
	flagIncentiveAmount uint64
	flagIncentiveDenom  string
	flagFundAmount      uint64
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate the node key and print its address",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		priv, err := config.WriteKey(cfg.KeyFile)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), address.FromPublicKey(priv.Public().(ed25519.PublicKey)))
		return nil
	},
}

var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Print the address of the node key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		priv, err := config.LoadKey(cfg.KeyFile)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), address.FromPublicKey(priv.Public().(ed25519.PublicKey)))
		return nil
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Instantiate the oracle in the local database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		admin := flagAdmin
		if admin == "" {
			priv, err := config.LoadKey(cfg.KeyFile)
			if err != nil {
				return fmt.Errorf("no --admin given and %w", err)
			}
			admin = address.FromPublicKey(priv.Public().(ed25519.PublicKey))
		}

		st, err := openState(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		host := node.NewHost(st.oracle(cfg, metrics.NewNoopCollector()), st.ledger, nil)
		err = host.Instantiate(oracle.InstantiateMsg{
			Admin:           admin,
			MinRound:        flagMinRound,
			IncentiveAmount: flagIncentiveAmount,
			IncentiveDenom:  flagIncentiveDenom,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "oracle instantiated, admin %s\n", admin)
		return nil
	},
}

var fundCmd = &cobra.Command{
	Use:   "fund",
	Short: "Credit the incentive treasury",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := openState(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		cfgResp, err := st.oracle(cfg, metrics.NewNoopCollector()).QueryConfig()
		if err != nil {
			return err
		}
		coin := treasury.Coin{Denom: cfgResp.IncentiveDenom, Amount: flagFundAmount}
		if err := st.ledger.Fund(coin); err != nil {
			return err
		}
		balance, err := st.ledger.Balance(coin.Denom)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "treasury balance %s\n", treasury.Coin{Denom: coin.Denom, Amount: balance})
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&flagAdmin, "admin", "", "admin address, defaults to the address of the node key")
	initCmd.Flags().Uint64Var(&flagMinRound, "min-round", 0, "lowest round accepted from submitters")
	initCmd.Flags().Uint64Var(&flagIncentiveAmount, "incentive-amount", 0, "amount paid per accepted submission")
	initCmd.Flags().StringVar(&flagIncentiveDenom, "incentive-denom", "", "denomination of incentives")
	fundCmd.Flags().Uint64Var(&flagFundAmount, "amount", 0, "amount credited in the incentive denomination")

	rootCmd.AddCommand(keygenCmd, addressCmd, initCmd, fundCmd)
}
