package protocol

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"io"

	"github.com/quic-go/quic-go"

	"github.com/eigerco/beaconoracle/internal/address"
	"github.com/eigerco/beaconoracle/pkg/log"
)

// ErrStreamRejected is returned by AcceptStream for a stream that was
// dropped while the connection itself is still usable.
var ErrStreamRejected = errors.New("stream rejected")

// TransportConn is the part of *transport.Conn a ProtocolConn uses.
type TransportConn interface {
	OpenStream(ctx context.Context) (quic.Stream, error)
	AcceptStream() (quic.Stream, error)
	Context() context.Context
	PeerKey() ed25519.PublicKey
	Close() error
}

// ProtocolConn tags outgoing streams with their kind and dispatches incoming
// streams to the registered handler.
type ProtocolConn struct {
	TConn    TransportConn
	Registry *Registry
}

func NewProtocolConn(tConn TransportConn, registry *Registry) *ProtocolConn {
	return &ProtocolConn{TConn: tConn, Registry: registry}
}

// Address is the account address of the peer.
func (pc *ProtocolConn) Address() string {
	return address.FromPublicKey(pc.TConn.PeerKey())
}

func (pc *ProtocolConn) OpenStream(ctx context.Context, kind StreamKind) (quic.Stream, error) {
	stream, err := pc.TConn.OpenStream(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := stream.Write([]byte{byte(kind)}); err != nil {
		stream.Close()
		return nil, fmt.Errorf("failed to write stream kind: %w", err)
	}
	return stream, nil
}

// AcceptStream waits for the next incoming stream and hands it to its
// handler in a new goroutine.
func (pc *ProtocolConn) AcceptStream() error {
	stream, err := pc.TConn.AcceptStream()
	if err != nil {
		return err
	}

	kind := make([]byte, 1)
	if _, err := io.ReadFull(stream, kind); err != nil {
		stream.Close()
		return fmt.Errorf("%w: failed to read stream kind: %v", ErrStreamRejected, err)
	}
	handler, err := pc.Registry.GetHandler(kind[0])
	if err != nil {
		stream.CancelRead(0)
		stream.Close()
		return fmt.Errorf("%w: %v", ErrStreamRejected, err)
	}

	go func() {
		if err := handler.HandleStream(pc.TConn.Context(), stream, pc.TConn.PeerKey()); err != nil {
			log.Network.Warn().Err(err).
				Stringer("kind", StreamKind(kind[0])).
				Str("peer", pc.Address()).
				Msg("stream handler failed")
		}
	}()
	return nil
}

func (pc *ProtocolConn) Close() error {
	return pc.TConn.Close()
}
