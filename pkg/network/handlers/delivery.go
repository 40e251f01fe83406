package handlers

import (
	"context"
	"crypto/ed25519"
	"fmt"

	"github.com/quic-go/quic-go"

	"github.com/eigerco/beaconoracle/internal/address"
	packet "github.com/eigerco/beaconoracle/internal/protocol"
	"github.com/eigerco/beaconoracle/pkg/log"
)

// BeaconReceiver consumes the beacons an oracle delivers to a requester.
type BeaconReceiver interface {
	ReceiveBeacon(ctx context.Context, oracleAddr string, beacon packet.DeliverBeaconPacket) error
}

// DeliverHandler runs on the requester side and acknowledges deliveries.
type DeliverHandler struct {
	receiver BeaconReceiver
}

func NewDeliverHandler(receiver BeaconReceiver) *DeliverHandler {
	return &DeliverHandler{receiver: receiver}
}

func (h *DeliverHandler) HandleStream(ctx context.Context, stream quic.Stream, peerKey ed25519.PublicKey) error {
	oracleAddr := address.FromPublicKey(peerKey)
	return serve(ctx, stream, func(ctx context.Context, req []byte) []byte {
		var beacon packet.DeliverBeaconPacket
		if err := wire.Decode(req, &beacon); err != nil {
			return errorAck(fmt.Errorf("decode deliver beacon packet: %w", err))
		}
		if err := h.receiver.ReceiveBeacon(ctx, oracleAddr, beacon); err != nil {
			log.Network.Warn().Err(err).Str("source_id", beacon.SourceID).Msg("beacon rejected")
			return errorAck(err)
		}
		return successAck(packet.DeliverBeaconPacketAck{Delivered: &packet.JobIDAck{JobID: beacon.JobID}})
	})
}
