package cmd

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/eigerco/beaconoracle/internal/config"
	"github.com/eigerco/beaconoracle/internal/drand"
	"github.com/eigerco/beaconoracle/internal/oracle"
	packet "github.com/eigerco/beaconoracle/internal/protocol"
	"github.com/eigerco/beaconoracle/pkg/network/handlers"
	network "github.com/eigerco/beaconoracle/pkg/network/node"
	"github.com/eigerco/beaconoracle/pkg/serialization"
)

var (
	flagOracle            string
	flagTimeout           time.Duration
	flagAfter             string
	flagJobID             string
	flagWait              bool
	flagRound             uint64
	flagSignature         string
	flagPreviousSignature string
)

// dial connects to the oracle with the node key, or with a throwaway key
// when anonymous is set.
func dial(ctx context.Context, anonymous bool, receiver handlers.BeaconReceiver) (*network.Node, *handlers.Client, error) {
	var key ed25519.PrivateKey
	var err error
	if anonymous {
		_, key, err = ed25519.GenerateKey(nil)
	} else {
		key, err = config.LoadKey(cfg.KeyFile)
	}
	if err != nil {
		return nil, nil, err
	}

	n, err := network.New(ctx, network.Config{PrivateKey: key, ChainHash: drand.ChainHash})
	if err != nil {
		return nil, nil, err
	}
	if receiver != nil {
		n.ServeDeliveries(receiver)
	}
	client, err := n.Connect(ctx, flagOracle)
	if err != nil {
		_ = n.Stop()
		return nil, nil, err
	}
	return n, client, nil
}

func printJSON(w io.Writer, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

var wire = serialization.NewWireSerializer()

var queryCmd = &cobra.Command{
	Use:     "query <json>",
	Short:   "Query the oracle",
	Example: `  oracled query '{"beacons":{"order":"descending","limit":5}}'`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var msg oracle.QueryMsg
		if err := wire.Decode([]byte(args[0]), &msg); err != nil {
			return fmt.Errorf("parse query: %w", err)
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), flagTimeout)
		defer cancel()

		n, client, err := dial(ctx, true, nil)
		if err != nil {
			return err
		}
		defer n.Stop()

		var result json.RawMessage
		if err := client.Query(ctx, msg, &result); err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), result)
	},
}

var executeCmd = &cobra.Command{
	Use:     "execute <json>",
	Short:   "Execute a message signed by the node key",
	Example: `  oracled execute '{"register_bot":{"moniker":"mybot"}}'`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var msg oracle.ExecuteMsg
		if err := wire.Decode([]byte(args[0]), &msg); err != nil {
			return fmt.Errorf("parse message: %w", err)
		}
		return execute(cmd, msg)
	},
}

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a drand round for verification",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		sig, err := hex.DecodeString(flagSignature)
		if err != nil {
			return fmt.Errorf("decode signature: %w", err)
		}
		prev, err := hex.DecodeString(flagPreviousSignature)
		if err != nil {
			return fmt.Errorf("decode previous signature: %w", err)
		}
		return execute(cmd, oracle.ExecuteMsg{AddRound: &oracle.AddRoundMsg{
			Round:             flagRound,
			PreviousSignature: prev,
			Signature:         sig,
		}})
	},
}

func execute(cmd *cobra.Command, msg oracle.ExecuteMsg) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), flagTimeout)
	defer cancel()

	n, client, err := dial(ctx, false, nil)
	if err != nil {
		return err
	}
	defer n.Stop()

	res, err := client.Execute(ctx, msg)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), res)
}

// beaconPrinter prints delivered beacons and signals the first one.
type beaconPrinter struct {
	w    io.Writer
	once sync.Once
	done chan struct{}
}

func (p *beaconPrinter) ReceiveBeacon(_ context.Context, _ string, beacon packet.DeliverBeaconPacket) error {
	defer p.once.Do(func() { close(p.done) })
	return printJSON(p.w, beacon)
}

var requestCmd = &cobra.Command{
	Use:   "request",
	Short: "Request the randomness of the first round published after a time",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		after := time.Now()
		if flagAfter != "" {
			var err error
			if after, err = time.Parse(time.RFC3339, flagAfter); err != nil {
				return fmt.Errorf("parse --after: %w", err)
			}
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), flagTimeout)
		defer cancel()

		printer := &beaconPrinter{w: cmd.OutOrStdout(), done: make(chan struct{})}
		n, client, err := dial(ctx, false, printer)
		if err != nil {
			return err
		}
		defer n.Stop()

		ack, err := client.RequestBeacon(ctx, packet.RequestBeaconPacket{
			After:  packet.NewTimestamp(after),
			Sender: n.Address(),
			JobID:  flagJobID,
		})
		if err != nil {
			return err
		}
		if err := printJSON(cmd.OutOrStdout(), ack); err != nil {
			return err
		}
		if !flagWait {
			return nil
		}
		select {
		case <-printer.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	},
}

func init() {
	for _, c := range []*cobra.Command{queryCmd, executeCmd, submitCmd, requestCmd} {
		c.Flags().StringVar(&flagOracle, "oracle", "127.0.0.1:9000", "address of the oracle")
		c.Flags().DurationVar(&flagTimeout, "timeout", 30*time.Second, "overall timeout")
		rootCmd.AddCommand(c)
	}
	submitCmd.Flags().Uint64Var(&flagRound, "round", 0, "drand round")
	submitCmd.Flags().StringVar(&flagSignature, "signature", "", "hex signature of the round")
	submitCmd.Flags().StringVar(&flagPreviousSignature, "previous-signature", "", "hex signature of the previous round")
	requestCmd.Flags().StringVar(&flagAfter, "after", "", "RFC3339 time, defaults to now")
	requestCmd.Flags().StringVar(&flagJobID, "job-id", "", "job id echoed back with the beacon")
	requestCmd.Flags().BoolVar(&flagWait, "wait", false, "wait for the beacon to be delivered")
}
