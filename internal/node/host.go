// Package node hosts the oracle: it serializes calls into it and carries out
// the messages those calls emit.
package node

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/eigerco/beaconoracle/internal/oracle"
	"github.com/eigerco/beaconoracle/internal/treasury"
	"github.com/eigerco/beaconoracle/pkg/log"
)

// PacketSender delivers a packet to the peer behind channel and returns the
// acknowledgement the peer replied with.
type PacketSender interface {
	SendPacket(ctx context.Context, channel string, data []byte) ([]byte, error)
}

// Bank pays incentives out of the treasury.
type Bank interface {
	Send(addr string, coin treasury.Coin) error
}

// Host runs one oracle call at a time.
type Host struct {
	mu     sync.Mutex
	oracle *oracle.Oracle
	bank   Bank
	sender PacketSender
	now    func() time.Time
}

func NewHost(o *oracle.Oracle, bank Bank, sender PacketSender) *Host {
	return &Host{
		oracle: o,
		bank:   bank,
		sender: sender,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetPacketSender sets the sender used for deliveries. The network layer is
// created after the host, so it is wired in afterwards.
func (h *Host) SetPacketSender(sender PacketSender) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sender = sender
}

func (h *Host) env() oracle.Env {
	return oracle.Env{Time: h.now()}
}

// Instantiate is a no-op if the oracle is already instantiated with the
// same admin.
func (h *Host) Instantiate(msg oracle.InstantiateMsg) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := h.oracle.Instantiate(oracle.Info{Sender: msg.Admin}, msg)
	if errors.Is(err, oracle.ErrAlreadyInstantiated) {
		cfg, qerr := h.oracle.QueryConfig()
		if qerr != nil {
			return qerr
		}
		if cfg.Admin == msg.Admin {
			return nil
		}
	}
	return err
}

// ReceivePacket handles a beacon request from channel and returns the
// acknowledgement for it.
func (h *Host) ReceivePacket(ctx context.Context, channel string, data []byte) []byte {
	h.mu.Lock()
	resp := h.oracle.ReceivePacket(h.env(), channel, data)
	packets := h.pay(resp.Messages)
	h.mu.Unlock()

	h.deliver(ctx, packets)
	return resp.Ack
}

// Execute runs msg on behalf of sender.
func (h *Host) Execute(ctx context.Context, sender string, msg oracle.ExecuteMsg) (*oracle.Response, error) {
	h.mu.Lock()
	resp, err := h.oracle.Execute(h.env(), oracle.Info{Sender: sender}, msg)
	if err != nil {
		h.mu.Unlock()
		return nil, err
	}
	packets := h.pay(resp.Messages)
	h.mu.Unlock()

	h.deliver(ctx, packets)
	return resp, nil
}

func (h *Host) Query(msg oracle.QueryMsg) (interface{}, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.oracle.Query(msg)
}

// pay carries out the bank sends in msgs and returns the packets left to
// deliver. It runs under the lock so the next call sees the new balance.
func (h *Host) pay(msgs []oracle.Message) []oracle.SendPacket {
	var packets []oracle.SendPacket
	for _, msg := range msgs {
		switch m := msg.(type) {
		case oracle.BankSend:
			if err := h.bank.Send(m.ToAddress, m.Amount); err != nil {
				log.Oracle.Error().Err(err).Str("to", m.ToAddress).Stringer("amount", m.Amount).Msg("paying incentive failed")
				continue
			}
			log.Oracle.Debug().Str("to", m.ToAddress).Stringer("amount", m.Amount).Msg("incentive paid")
		case oracle.SendPacket:
			packets = append(packets, m)
		}
	}
	return packets
}

// deliver sends packets one by one and hands every acknowledgement back to
// the oracle. A packet is dropped once its timeout passes.
// Delivery is best-effort: the job already left the queue, so a packet that
// cannot be sent is logged and not retried.
func (h *Host) deliver(ctx context.Context, packets []oracle.SendPacket) {
	h.mu.Lock()
	sender := h.sender
	h.mu.Unlock()
	if sender == nil {
		if len(packets) > 0 {
			log.Oracle.Warn().Int("packets", len(packets)).Msg("no packet sender, dropping deliveries")
		}
		return
	}

	for _, p := range packets {
		sendCtx, cancel := context.WithDeadline(ctx, p.Timeout)
		ack, err := sender.SendPacket(sendCtx, p.ChannelID, p.Data)
		cancel()
		if err != nil {
			log.Oracle.Warn().Err(err).Str("channel", p.ChannelID).Msg("delivering beacon failed")
			continue
		}

		h.mu.Lock()
		_, err = h.oracle.PacketAck(ack)
		h.mu.Unlock()
		if err != nil {
			log.Oracle.Warn().Err(err).Str("channel", p.ChannelID).Msg("delivery not acknowledged")
		}
	}
}
