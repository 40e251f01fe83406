package handlers

import (
	"context"
	"crypto/ed25519"
	"fmt"

	"github.com/quic-go/quic-go"

	"github.com/eigerco/beaconoracle/internal/address"
	"github.com/eigerco/beaconoracle/internal/oracle"
	packet "github.com/eigerco/beaconoracle/internal/protocol"
	"github.com/eigerco/beaconoracle/pkg/log"
	"github.com/eigerco/beaconoracle/pkg/serialization"
)

var wire = serialization.NewWireSerializer()

// OracleHost is what the oracle side of the protocol serves. *node.Host
// implements it.
type OracleHost interface {
	ReceivePacket(ctx context.Context, channel string, data []byte) []byte
	Execute(ctx context.Context, sender string, msg oracle.ExecuteMsg) (*oracle.Response, error)
	Query(msg oracle.QueryMsg) (interface{}, error)
}

// ExecuteResult is the result of a successful execute stream.
type ExecuteResult struct {
	Attributes []oracle.Attribute `json:"attributes"`
}

// Attribute returns the value of the first attribute named key.
func (r ExecuteResult) Attribute(key string) (string, bool) {
	resp := oracle.Response{Attributes: r.Attributes}
	return resp.Attribute(key)
}

func errorAck(err error) []byte {
	data, _ := packet.ErrorAck(err.Error()).Marshal()
	return data
}

func successAck(v interface{}) []byte {
	ack, err := packet.SuccessAck(v)
	if err != nil {
		return errorAck(err)
	}
	data, err := ack.Marshal()
	if err != nil {
		return errorAck(err)
	}
	return data
}

// PacketHandler receives beacon requests. The channel of a request is the
// address of the peer that sent it, so deliveries go back over the same peer.
type PacketHandler struct {
	host OracleHost
}

func NewPacketHandler(host OracleHost) *PacketHandler {
	return &PacketHandler{host: host}
}

func (h *PacketHandler) HandleStream(ctx context.Context, stream quic.Stream, peerKey ed25519.PublicKey) error {
	channel := address.FromPublicKey(peerKey)
	return serve(ctx, stream, func(ctx context.Context, req []byte) []byte {
		return h.host.ReceivePacket(ctx, channel, req)
	})
}

// ExecuteHandler runs execute messages on behalf of the peer's address.
type ExecuteHandler struct {
	host OracleHost
}

func NewExecuteHandler(host OracleHost) *ExecuteHandler {
	return &ExecuteHandler{host: host}
}

func (h *ExecuteHandler) HandleStream(ctx context.Context, stream quic.Stream, peerKey ed25519.PublicKey) error {
	sender := address.FromPublicKey(peerKey)
	return serve(ctx, stream, func(ctx context.Context, req []byte) []byte {
		var msg oracle.ExecuteMsg
		if err := wire.Decode(req, &msg); err != nil {
			return errorAck(fmt.Errorf("decode execute message: %w", err))
		}
		resp, err := h.host.Execute(ctx, sender, msg)
		if err != nil {
			log.Network.Debug().Err(err).Str("sender", sender).Msg("execute failed")
			return errorAck(err)
		}
		return successAck(ExecuteResult{Attributes: resp.Attributes})
	})
}

type QueryHandler struct {
	host OracleHost
}

func NewQueryHandler(host OracleHost) *QueryHandler {
	return &QueryHandler{host: host}
}

func (h *QueryHandler) HandleStream(ctx context.Context, stream quic.Stream, _ ed25519.PublicKey) error {
	return serve(ctx, stream, func(_ context.Context, req []byte) []byte {
		var msg oracle.QueryMsg
		if err := wire.Decode(req, &msg); err != nil {
			return errorAck(fmt.Errorf("decode query message: %w", err))
		}
		resp, err := h.host.Query(msg)
		if err != nil {
			return errorAck(err)
		}
		return successAck(resp)
	})
}
