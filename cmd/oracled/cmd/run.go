package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/eigerco/beaconoracle/internal/config"
	"github.com/eigerco/beaconoracle/internal/drand"
	"github.com/eigerco/beaconoracle/internal/metrics"
	"github.com/eigerco/beaconoracle/internal/node"
	"github.com/eigerco/beaconoracle/internal/oracle"
	"github.com/eigerco/beaconoracle/pkg/log"
	network "github.com/eigerco/beaconoracle/pkg/network/node"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Serve the oracle",
	RunE:  run,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func run(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	key, err := config.LoadKey(cfg.KeyFile)
	if err != nil {
		return err
	}
	st, err := openState(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	var collector oracle.Metrics = metrics.NewNoopCollector()
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		collector = metrics.NewOracleCollector(reg)
		srv := metrics.NewServer(log.Root, cfg.MetricsAddr, reg)
		if err := srv.Start(); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	host := node.NewHost(st.oracle(cfg, collector), st.ledger, nil)

	n, err := network.New(ctx, network.Config{
		PrivateKey: key,
		ListenAddr: cfg.ListenAddr,
		ChainHash:  drand.ChainHash,
	})
	if err != nil {
		return err
	}
	n.ServeOracle(host)
	host.SetPacketSender(n)
	if err := n.Start(); err != nil {
		return err
	}
	log.Root.Info().Str("address", n.Address()).Msg("oracle running")

	<-ctx.Done()
	log.Root.Info().Msg("shutting down")
	return n.Stop()
}
