package protocol

import (
	"crypto/tls"
	"errors"
	"fmt"

	"github.com/eigerco/beaconoracle/pkg/log"
)

type Config struct {
	// ChainHash is the hex drand chain hash; only its first 8 nibbles are
	// negotiated.
	ChainHash string
}

// Manager owns the stream registry and checks protocol negotiation.
type Manager struct {
	Registry *Registry
	id       *ProtocolID
}

func NewManager(config Config) (*Manager, error) {
	if config.ChainHash == "" {
		return nil, fmt.Errorf("chain hash required")
	}
	id := NewProtocolID(config.ChainHash)
	if _, err := ParseProtocolID(id.String()); err != nil {
		return nil, fmt.Errorf("invalid chain hash format: %w", err)
	}
	return &Manager{Registry: NewRegistry(), id: id}, nil
}

// OnConnection wraps conn and serves its incoming streams until it closes.
func (m *Manager) OnConnection(conn TransportConn) *ProtocolConn {
	pc := m.NewConn(conn)
	go m.Serve(pc)
	return pc
}

func (m *Manager) NewConn(conn TransportConn) *ProtocolConn {
	return NewProtocolConn(conn, m.Registry)
}

// Serve dispatches the incoming streams of pc until the connection fails,
// then closes it.
func (m *Manager) Serve(pc *ProtocolConn) {
	defer pc.Close()
	for {
		err := pc.AcceptStream()
		if err == nil {
			continue
		}
		if errors.Is(err, ErrStreamRejected) {
			log.Network.Debug().Err(err).Str("peer", pc.Address()).Msg("stream rejected")
			continue
		}
		log.Network.Debug().Err(err).Str("peer", pc.Address()).Msg("connection closed")
		return
	}
}

func (m *Manager) GetProtocols() []string {
	return []string{m.id.String()}
}

// ValidateConnection accepts only connections that negotiated our chain.
func (m *Manager) ValidateConnection(tlsState tls.ConnectionState) error {
	if tlsState.NegotiatedProtocol == "" {
		return fmt.Errorf("no protocol negotiated")
	}
	id, err := ParseProtocolID(tlsState.NegotiatedProtocol)
	if err != nil {
		return fmt.Errorf("invalid protocol: %w", err)
	}
	if id.ChainHash != m.id.ChainHash {
		return fmt.Errorf("chain hash mismatch: got %s, want %s", id.ChainHash, m.id.ChainHash)
	}
	return nil
}
