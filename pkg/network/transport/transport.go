// Package transport runs QUIC connections between oracle peers. Both sides
// present self-signed ed25519 certificates and each side checks the other.
package transport

import (
	"context"
	"crypto/ed25519"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/eigerco/beaconoracle/pkg/log"
)

const MaxIdleTimeout = 30 * time.Minute

// CertValidator checks peer certificates and extracts the peer key from them.
type CertValidator interface {
	ValidateCertificate(cert *x509.Certificate) error
	ExtractPublicKey(cert *x509.Certificate) (ed25519.PublicKey, error)
}

// ConnectionHandler is told about every established connection.
type ConnectionHandler interface {
	// OnConnection is called once the handshake completes. Returning an
	// error closes the connection.
	OnConnection(conn *Conn) error
	// GetProtocols returns the ALPN protocols offered and accepted.
	GetProtocols() []string
	// ValidateConnection checks the negotiated TLS parameters.
	ValidateConnection(tlsState tls.ConnectionState) error
}

type Config struct {
	TLSCert       *tls.Certificate
	ListenAddr    string
	CertValidator CertValidator
	Handler       ConnectionHandler
	// Context bounds the lifetime of the transport and every connection.
	Context context.Context
}

type Transport struct {
	config   Config
	listener *quic.Listener
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewTransport(config Config) (*Transport, error) {
	if config.TLSCert == nil {
		return nil, fmt.Errorf("TLS certificate required")
	}
	if config.CertValidator == nil {
		return nil, fmt.Errorf("certificate validator required")
	}
	if config.Handler == nil {
		return nil, fmt.Errorf("connection handler required")
	}
	if err := config.CertValidator.ValidateCertificate(config.TLSCert.Leaf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCertificate, err)
	}

	parent := config.Context
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Transport{
		config: config,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

func (t *Transport) tlsConfig() *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{*t.config.TLSCert},
		NextProtos:   t.config.Handler.GetProtocols(),
		ClientAuth:   tls.RequireAnyClientCert,
		MinVersion:   tls.VersionTLS13,
		// Peers use self-signed certificates; VerifyConnection does the checking.
		InsecureSkipVerify: true,
		VerifyConnection:   t.verifyConnection,
	}
}

func (t *Transport) verifyConnection(cs tls.ConnectionState) error {
	if len(cs.PeerCertificates) == 0 {
		return fmt.Errorf("%w: no peer certificate provided", ErrInvalidCertificate)
	}
	if err := t.config.CertValidator.ValidateCertificate(cs.PeerCertificates[0]); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCertificate, err)
	}
	if err := t.config.Handler.ValidateConnection(cs); err != nil {
		return fmt.Errorf("connection validation failed: %w", err)
	}
	return nil
}

func quicConfig() *quic.Config {
	return &quic.Config{
		MaxIdleTimeout:  MaxIdleTimeout,
		KeepAlivePeriod: MaxIdleTimeout / 2,
	}
}

// Start listens on the configured address and accepts connections until Stop.
func (t *Transport) Start() error {
	listener, err := quic.ListenAddr(t.config.ListenAddr, t.tlsConfig(), quicConfig())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrListenerFailed, err)
	}
	t.listener = listener
	t.done = make(chan struct{})
	go func() {
		t.acceptLoop()
		close(t.done)
	}()
	log.Network.Info().Str("addr", listener.Addr().String()).Msg("listening")
	return nil
}

// Addr is the address the transport listens on.
func (t *Transport) Addr() (net.Addr, error) {
	if t.listener == nil {
		return nil, ErrNotStarted
	}
	return t.listener.Addr(), nil
}

// Stop closes the listener and cancels every connection.
func (t *Transport) Stop() error {
	t.cancel()
	if t.listener == nil {
		return nil
	}
	if err := t.listener.Close(); err != nil {
		return fmt.Errorf("failed to close listener: %w", err)
	}
	<-t.done
	return nil
}

// Connect dials a peer. A transport does not need to be started to dial.
func (t *Transport) Connect(ctx context.Context, addr string) (*Conn, error) {
	qConn, err := quic.DialAddr(ctx, addr, t.tlsConfig(), quicConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDialFailed, err)
	}
	conn, err := t.handleConnection(qConn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnFailed, err)
	}
	return conn, nil
}

func (t *Transport) acceptLoop() {
	for {
		qConn, err := t.listener.Accept(t.ctx)
		if err != nil {
			if t.ctx.Err() != nil || errors.Is(err, quic.ErrServerClosed) {
				return
			}
			log.Network.Warn().Err(err).Msg("failed to accept connection")
			continue
		}
		go func() {
			if _, err := t.handleConnection(qConn); err != nil {
				log.Network.Warn().Err(err).Str("remote", qConn.RemoteAddr().String()).Msg("rejected connection")
			}
		}()
	}
}

func (t *Transport) handleConnection(qConn quic.Connection) (*Conn, error) {
	certs := qConn.ConnectionState().TLS.PeerCertificates
	if len(certs) == 0 {
		_ = qConn.CloseWithError(0, ErrInvalidCertificate.Error())
		return nil, ErrInvalidCertificate
	}
	peerKey, err := t.config.CertValidator.ExtractPublicKey(certs[0])
	if err != nil {
		_ = qConn.CloseWithError(0, fmt.Sprintf("%s: %v", ErrInvalidCertificate, err))
		return nil, err
	}

	conn := newConn(qConn, t.ctx)
	conn.peerKey = peerKey
	if err := t.config.Handler.OnConnection(conn); err != nil {
		conn.cancel()
		_ = qConn.CloseWithError(0, err.Error())
		return nil, err
	}
	return conn, nil
}
