// Package oracle implements the randomness oracle: it verifies drand rounds,
// archives their randomness, answers requests for future rounds and pays
// incentives to the bots submitting rounds.
//
// Every call runs in one store transaction that commits only if the call
// succeeds. Calls must be serialized by the caller.
package oracle

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/eigerco/beaconoracle/internal/address"
	"github.com/eigerco/beaconoracle/internal/drand"
	"github.com/eigerco/beaconoracle/internal/protocol"
	"github.com/eigerco/beaconoracle/internal/store"
	"github.com/eigerco/beaconoracle/internal/treasury"
	"github.com/eigerco/beaconoracle/pkg/log"
	"github.com/eigerco/beaconoracle/pkg/serialization"
)

var wire = serialization.NewWireSerializer()

// Metrics is what the oracle reports about committed calls.
type Metrics interface {
	RoundAdded(verifying bool, archived bool)
	JobQueued()
	JobsDelivered(verifying bool, delivered int, left uint32)
	ImmediateDelivery()
	IncentivePaid(amount uint64)
	IncentiveSkipped()
	PacketReceived(errorAck bool)
	ForeignError()
}

// Env describes the environment of a call.
type Env struct {
	Time time.Time
}

// Info identifies the caller.
type Info struct {
	Sender string
	// Funds attached to the call.
	Funds []treasury.Coin
}

type Config struct {
	// Pubkey is the hex encoded drand group key. Defaults to mainnet.
	Pubkey             string
	VerifyingCap       uint32
	TrustedCap         uint32
	IncentivesPerRound uint32
}

func DefaultConfig() Config {
	return Config{
		Pubkey:             drand.MainnetPubkey,
		VerifyingCap:       DefaultVerifyingCap,
		TrustedCap:         DefaultTrustedCap,
		IncentivesPerRound: DefaultIncentivesPerRound,
	}
}

type Oracle struct {
	store      *store.Store
	router     *Router
	incentives *IncentiveAllocator
	pubkey     string
	metrics    Metrics
}

func New(s *store.Store, balances treasury.Balances, m Metrics, cfg Config) *Oracle {
	return &Oracle{
		store:      s,
		router:     NewRouter(cfg.VerifyingCap, cfg.TrustedCap),
		incentives: NewIncentiveAllocator(cfg.IncentivesPerRound, balances),
		pubkey:     cfg.Pubkey,
		metrics:    m,
	}
}

// execute runs fn in a transaction, committing only if fn succeeds.
func execute[T any](s *store.Store, fn func(tx *store.Tx) (T, error)) (T, error) {
	var zero T
	tx, err := s.Begin()
	if err != nil {
		return zero, err
	}
	defer tx.Discard() //nolint:errcheck

	result, err := fn(tx)
	if err != nil {
		return zero, err
	}
	if err := tx.Commit(); err != nil {
		return zero, err
	}
	return result, nil
}

func (o *Oracle) Instantiate(info Info, msg InstantiateMsg) (*Response, error) {
	if _, err := address.Validate(msg.Admin); err != nil {
		return nil, err
	}
	return execute(o.store, func(tx *store.Tx) (*Response, error) {
		_, err := tx.Config.Load()
		if err == nil {
			return nil, ErrAlreadyInstantiated
		}
		if !errors.Is(err, store.ErrConfigNotFound) {
			return nil, err
		}
		cfg := store.Config{
			Admin:           msg.Admin,
			MinRound:        msg.MinRound,
			IncentiveAmount: msg.IncentiveAmount,
			IncentiveDenom:  msg.IncentiveDenom,
		}
		if err := tx.Config.Save(cfg); err != nil {
			return nil, err
		}
		log.Oracle.Info().Str("admin", msg.Admin).Uint64("min_round", msg.MinRound).Str("creator", info.Sender).Msg("oracle instantiated")
		return &Response{}, nil
	})
}

// Execute dispatches msg to the matching operation.
func (o *Oracle) Execute(env Env, info Info, msg ExecuteMsg) (*Response, error) {
	switch {
	case msg.AddRound != nil:
		return o.AddRound(env, info, msg.AddRound.Round, msg.AddRound.PreviousSignature, msg.AddRound.Signature)
	case msg.AddVerifiedRound != nil:
		return o.AddVerifiedRound(env, info, msg.AddVerifiedRound.Round, msg.AddVerifiedRound.Randomness)
	case msg.RegisterBot != nil:
		return o.RegisterBot(info, msg.RegisterBot.Moniker)
	case msg.UpdateWhitelistBots != nil:
		return o.UpdateWhitelistBots(info, msg.UpdateWhitelistBots.Add, msg.UpdateWhitelistBots.Remove)
	case msg.SetDrandAddr != nil:
		return o.SetDrandAddr(info, msg.SetDrandAddr.Addr)
	default:
		return nil, errors.New("empty execute message")
	}
}

// AddRound verifies a drand round submitted by info.Sender, records the
// submission, evaluates its incentive and delivers queued jobs of the round.
func (o *Oracle) AddRound(env Env, info Info, round uint64, previousSignature, signature []byte) (*Response, error) {
	if len(info.Funds) > 0 {
		return nil, ErrFundsSent
	}

	var (
		beacon    NewBeacon
		incentive *Incentive
	)
	resp, err := execute(o.store, func(tx *store.Tx) (*Response, error) {
		cfg, err := o.config(tx)
		if err != nil {
			return nil, err
		}
		randomness, err := drand.NewVerifier(o.pubkey, cfg.MinRound).VerifyAndDerive(round, previousSignature, signature)
		if err != nil {
			return nil, err
		}

		exists, err := tx.Submissions.Has(round, info.Sender)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrSubmissionExists
		}
		rank, err := tx.Submissions.Save(round, info.Sender, env.Time)
		if err != nil {
			return nil, err
		}

		resp := &Response{}
		resp.addAttribute("round", strconv.FormatUint(round, 10))
		resp.addAttribute("randomness", hex.EncodeToString(randomness))
		resp.addAttribute("worker", info.Sender)

		incentive, err = o.incentives.Evaluate(tx, cfg, info.Sender, rank)
		if err != nil {
			return nil, err
		}
		if incentive != nil {
			resp.addAttribute("bot_incentive", incentive.Coin.String())
			if incentive.Funded {
				resp.Messages = append(resp.Messages, BankSend{ToAddress: info.Sender, Amount: incentive.Coin})
			}
		}

		beacon, err = o.router.NewBeacon(tx, env.Time, round, randomness, true)
		if err != nil {
			return nil, err
		}
		resp.Messages = append(resp.Messages, beacon.Messages...)
		resp.addAttribute("jobs_processed", strconv.FormatUint(uint64(beacon.JobsProcessed), 10))
		resp.addAttribute("jobs_left", strconv.FormatUint(uint64(beacon.JobsLeft), 10))
		return resp, nil
	})
	if err != nil {
		return nil, err
	}

	o.metrics.RoundAdded(true, beacon.Archived)
	o.metrics.JobsDelivered(true, int(beacon.JobsProcessed), beacon.JobsLeft)
	if incentive != nil {
		if incentive.Funded {
			o.metrics.IncentivePaid(incentive.Coin.Amount)
		} else {
			o.metrics.IncentiveSkipped()
		}
	}
	log.Oracle.Debug().
		Uint64("round", round).
		Str("worker", info.Sender).
		Bool("archived", beacon.Archived).
		Uint32("jobs_processed", beacon.JobsProcessed).
		Uint32("jobs_left", beacon.JobsLeft).
		Msg("round added")
	return resp, nil
}

// AddVerifiedRound takes randomness verified elsewhere. Only the configured
// drand address may call it.
func (o *Oracle) AddVerifiedRound(env Env, info Info, round uint64, randomness []byte) (*Response, error) {
	if len(info.Funds) > 0 {
		return nil, ErrFundsSent
	}
	if len(randomness) != 32 {
		return nil, fmt.Errorf("%w: got %d bytes, want 32", ErrInvalidRandomness, len(randomness))
	}

	var beacon NewBeacon
	resp, err := execute(o.store, func(tx *store.Tx) (*Response, error) {
		cfg, err := o.config(tx)
		if err != nil {
			return nil, err
		}
		if cfg.Drand == "" || info.Sender != cfg.Drand {
			return nil, ErrUnauthorized
		}

		beacon, err = o.router.NewBeacon(tx, env.Time, round, randomness, false)
		if err != nil {
			return nil, err
		}
		resp := &Response{Messages: beacon.Messages}
		resp.addAttribute("round", strconv.FormatUint(round, 10))
		resp.addAttribute("jobs_processed", strconv.FormatUint(uint64(beacon.JobsProcessed), 10))
		resp.addAttribute("jobs_left", strconv.FormatUint(uint64(beacon.JobsLeft), 10))
		return resp, nil
	})
	if err != nil {
		return nil, err
	}

	o.metrics.RoundAdded(false, beacon.Archived)
	o.metrics.JobsDelivered(false, int(beacon.JobsProcessed), beacon.JobsLeft)
	log.Oracle.Debug().Uint64("round", round).Bool("archived", beacon.Archived).Uint32("jobs_processed", beacon.JobsProcessed).Msg("verified round added")
	return resp, nil
}

// RegisterBot registers info.Sender as a bot or renames it. The number of
// rounds added is kept across renames.
func (o *Oracle) RegisterBot(info Info, moniker string) (*Response, error) {
	if err := validateMoniker(moniker); err != nil {
		return nil, err
	}
	return execute(o.store, func(tx *store.Tx) (*Response, error) {
		bot, _, err := tx.Bots.Get(info.Sender)
		if err != nil {
			return nil, err
		}
		bot.Moniker = moniker
		if err := tx.Bots.Save(info.Sender, bot); err != nil {
			return nil, err
		}
		return &Response{}, nil
	})
}

// UpdateWhitelistBots removes and then adds whitelist entries. Every
// address is validated before anything changes.
func (o *Oracle) UpdateWhitelistBots(info Info, add, remove []string) (*Response, error) {
	var result *multierror.Error
	for _, addr := range append(append([]string{}, add...), remove...) {
		if _, err := address.Validate(addr); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}

	return execute(o.store, func(tx *store.Tx) (*Response, error) {
		if err := o.requireAdmin(tx, info); err != nil {
			return nil, err
		}
		for _, addr := range remove {
			if err := tx.Whitelist.Remove(addr); err != nil {
				return nil, err
			}
		}
		for _, addr := range add {
			if err := tx.Whitelist.Add(addr); err != nil {
				return nil, err
			}
		}
		return &Response{}, nil
	})
}

// SetDrandAddr sets the address trusted to add verified rounds. It can be
// set once.
func (o *Oracle) SetDrandAddr(info Info, addr string) (*Response, error) {
	if _, err := address.Validate(addr); err != nil {
		return nil, err
	}
	return execute(o.store, func(tx *store.Tx) (*Response, error) {
		cfg, err := o.config(tx)
		if err != nil {
			return nil, err
		}
		if info.Sender != cfg.Admin {
			return nil, ErrUnauthorized
		}
		if cfg.Drand != "" {
			return nil, ErrDrandAddrAlreadySet
		}
		cfg.Drand = addr
		if err := tx.Config.Save(cfg); err != nil {
			return nil, err
		}
		resp := &Response{}
		resp.addAttribute("drand_addr", addr)
		return resp, nil
	})
}

// ReceivePacket handles a beacon request arriving on channel. It never fails:
// any error becomes an error acknowledgement and leaves the state untouched.
func (o *Oracle) ReceivePacket(env Env, channel string, data []byte) *ReceiveResponse {
	var receipt RoutingReceipt
	resp, err := execute(o.store, func(tx *store.Tx) (*ReceiveResponse, error) {
		var packet protocol.RequestBeaconPacket
		if err := wire.Decode(data, &packet); err != nil {
			return nil, fmt.Errorf("unmarshal request beacon packet: %w", err)
		}
		if err := validateJobID(packet.JobID); err != nil {
			return nil, err
		}
		job := store.Job{Sender: packet.Sender, JobID: packet.JobID, Origin: packet.Origin}

		var err error
		receipt, err = o.router.Route(tx, env.Time, channel, packet.After.Time, job)
		if err != nil {
			return nil, err
		}
		ack, err := protocol.SuccessAck(receipt.Ack)
		if err != nil {
			return nil, err
		}
		ackData, err := ack.Marshal()
		if err != nil {
			return nil, err
		}
		resp := &ReceiveResponse{Ack: ackData}
		resp.Messages = receipt.Messages
		resp.addAttribute("action", "receive_request_beacon")
		return resp, nil
	})
	if err == nil {
		if receipt.Ack.Queued != nil {
			o.metrics.JobQueued()
		} else {
			o.metrics.ImmediateDelivery()
		}
	}
	return o.ackFromResult(channel, resp, err)
}

// ackFromResult turns the result of handling an inbound packet into the
// response carrying its acknowledgement.
func (o *Oracle) ackFromResult(channel string, resp *ReceiveResponse, err error) *ReceiveResponse {
	o.metrics.PacketReceived(err != nil)
	if err == nil {
		return resp
	}
	log.Oracle.Warn().Err(err).Str("channel", channel).Msg("request beacon failed")
	// an error ack always marshals
	data, _ := protocol.ErrorAck(fmt.Sprintf("Error processing packet: %v", err)).Marshal()
	errResp := &ReceiveResponse{Ack: data}
	errResp.addAttribute("action", "receive_request_beacon")
	return errResp
}

// PacketAck handles the acknowledgement of a delivery packet. An error
// acknowledgement is returned as a *ForeignError.
func (o *Oracle) PacketAck(data []byte) (*Response, error) {
	ack, err := protocol.UnmarshalAck(data)
	if err != nil {
		return nil, err
	}
	if ack.IsError() {
		o.metrics.ForeignError()
		return nil, &ForeignError{Err: *ack.Error}
	}
	var delivered protocol.DeliverBeaconPacketAck
	if err := wire.Decode(ack.Result, &delivered); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedDeliveryAck, err)
	}
	if delivered.Delivered == nil {
		return nil, ErrMalformedDeliveryAck
	}
	resp := &Response{}
	resp.addAttribute("action", "packet_ack")
	resp.addAttribute("job_id", delivered.Delivered.JobID)
	return resp, nil
}

func (o *Oracle) config(tx *store.Tx) (store.Config, error) {
	cfg, err := tx.Config.Load()
	if errors.Is(err, store.ErrConfigNotFound) {
		return store.Config{}, ErrNotInstantiated
	}
	return cfg, err
}

func (o *Oracle) requireAdmin(tx *store.Tx, info Info) error {
	cfg, err := o.config(tx)
	if err != nil {
		return err
	}
	if info.Sender != cfg.Admin {
		return ErrUnauthorized
	}
	return nil
}
