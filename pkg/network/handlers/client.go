package handlers

import (
	"context"
	"fmt"

	"github.com/quic-go/quic-go"

	"github.com/eigerco/beaconoracle/internal/oracle"
	packet "github.com/eigerco/beaconoracle/internal/protocol"
	"github.com/eigerco/beaconoracle/pkg/network/protocol"
)

// StreamOpener opens a stream of a given kind. *protocol.ProtocolConn
// implements it.
type StreamOpener interface {
	OpenStream(ctx context.Context, kind protocol.StreamKind) (quic.Stream, error)
}

// RemoteError is an error acknowledgement returned by the peer.
type RemoteError struct {
	Msg string
}

func (e *RemoteError) Error() string {
	return e.Msg
}

// Client speaks the oracle protocols over one connection.
type Client struct {
	conn StreamOpener
}

func NewClient(conn StreamOpener) *Client {
	return &Client{conn: conn}
}

func (c *Client) roundTrip(ctx context.Context, kind protocol.StreamKind, request []byte) ([]byte, error) {
	stream, err := c.conn.OpenStream(ctx, kind)
	if err != nil {
		return nil, err
	}
	return exchange(ctx, stream, request)
}

// call sends v on a kind stream and decodes the result of the
// acknowledgement into out.
func (c *Client) call(ctx context.Context, kind protocol.StreamKind, v interface{}, out interface{}) error {
	request, err := wire.Encode(v)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", kind, err)
	}
	data, err := c.roundTrip(ctx, kind, request)
	if err != nil {
		return err
	}
	ack, err := packet.UnmarshalAck(data)
	if err != nil {
		return err
	}
	if ack.IsError() {
		return &RemoteError{Msg: *ack.Error}
	}
	if out == nil {
		return nil
	}
	if err := wire.Decode(ack.Result, out); err != nil {
		return fmt.Errorf("decode %s result: %w", kind, err)
	}
	return nil
}

// RequestBeacon sends a beacon request packet to the oracle.
func (c *Client) RequestBeacon(ctx context.Context, req packet.RequestBeaconPacket) (packet.RequestBeaconPacketAck, error) {
	var ack packet.RequestBeaconPacketAck
	err := c.call(ctx, protocol.StreamKindPacket, req, &ack)
	return ack, err
}

func (c *Client) Execute(ctx context.Context, msg oracle.ExecuteMsg) (ExecuteResult, error) {
	var res ExecuteResult
	err := c.call(ctx, protocol.StreamKindExecute, msg, &res)
	return res, err
}

// Query decodes the result of msg into out.
func (c *Client) Query(ctx context.Context, msg oracle.QueryMsg, out interface{}) error {
	return c.call(ctx, protocol.StreamKindQuery, msg, out)
}

// Deliver sends an encoded delivery packet and returns the raw
// acknowledgement, error acknowledgements included.
func (c *Client) Deliver(ctx context.Context, data []byte) ([]byte, error) {
	return c.roundTrip(ctx, protocol.StreamKindDeliver, data)
}
