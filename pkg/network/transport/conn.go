package transport

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"net"
	"time"

	"github.com/quic-go/quic-go"
)

// StreamTimeout bounds a single request/response exchange on a stream.
const StreamTimeout = 5 * time.Second

// Conn is an authenticated QUIC connection to a peer. Its context is
// cancelled when either side closes the connection.
type Conn struct {
	qConn   quic.Connection
	peerKey ed25519.PublicKey
	ctx     context.Context
	cancel  context.CancelFunc
}

func newConn(qConn quic.Connection, parent context.Context) *Conn {
	ctx, cancel := context.WithCancel(parent)
	c := &Conn{
		qConn:  qConn,
		ctx:    ctx,
		cancel: cancel,
	}
	go func() {
		select {
		case <-qConn.Context().Done():
			cancel()
		case <-ctx.Done():
		}
	}()
	return c
}

func (c *Conn) QConn() quic.Connection {
	return c.qConn
}

func (c *Conn) OpenStream(ctx context.Context) (quic.Stream, error) {
	stream, err := c.qConn.OpenStreamSync(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open QUIC stream: %w", err)
	}
	return stream, nil
}

// AcceptStream blocks until the peer opens a stream or the connection ends.
func (c *Conn) AcceptStream() (quic.Stream, error) {
	stream, err := c.qConn.AcceptStream(c.ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to accept QUIC stream: %w", err)
	}
	return stream, nil
}

func (c *Conn) PeerKey() ed25519.PublicKey {
	return c.peerKey
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.qConn.RemoteAddr()
}

func (c *Conn) Close() error {
	c.cancel()
	return c.qConn.CloseWithError(0, "")
}

func (c *Conn) Context() context.Context {
	return c.ctx
}
