// Package node runs an oracle network endpoint: a QUIC transport, the
// stream handlers registered on it and the set of connected peers.
package node

import (
	"context"
	"crypto/ed25519"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/eigerco/beaconoracle/internal/address"
	"github.com/eigerco/beaconoracle/pkg/log"
	"github.com/eigerco/beaconoracle/pkg/network/cert"
	"github.com/eigerco/beaconoracle/pkg/network/handlers"
	"github.com/eigerco/beaconoracle/pkg/network/protocol"
	"github.com/eigerco/beaconoracle/pkg/network/transport"
)

var ErrPeerNotConnected = errors.New("peer not connected")

type Config struct {
	PrivateKey ed25519.PrivateKey
	// ListenAddr is only used by Start; a node that only dials can leave it empty.
	ListenAddr string
	// ChainHash is the hex drand chain hash peers must agree on.
	ChainHash    string
	CertValidity time.Duration
}

// Node is both a server for the peers that dial it and a client of the
// peers it dials. Peers are identified by the address of their key.
type Node struct {
	ctx       context.Context
	cancel    context.CancelFunc
	address   string
	manager   *protocol.Manager
	transport *transport.Transport

	mu    sync.RWMutex
	peers map[string]*protocol.ProtocolConn
}

func New(ctx context.Context, cfg Config) (*Node, error) {
	if len(cfg.PrivateKey) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid node key size %d", len(cfg.PrivateKey))
	}
	validity := cfg.CertValidity
	if validity == 0 {
		validity = cert.DefaultValidity
	}
	tlsCert, err := cert.Generate(cfg.PrivateKey, validity)
	if err != nil {
		return nil, fmt.Errorf("failed to generate certificate: %w", err)
	}
	manager, err := protocol.NewManager(protocol.Config{ChainHash: cfg.ChainHash})
	if err != nil {
		return nil, fmt.Errorf("failed to create protocol manager: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	n := &Node{
		ctx:     ctx,
		cancel:  cancel,
		address: address.FromPublicKey(cfg.PrivateKey.Public().(ed25519.PublicKey)),
		manager: manager,
		peers:   make(map[string]*protocol.ProtocolConn),
	}
	tr, err := transport.NewTransport(transport.Config{
		TLSCert:       tlsCert,
		ListenAddr:    cfg.ListenAddr,
		CertValidator: cert.NewValidator(),
		Handler:       n,
		Context:       ctx,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}
	n.transport = tr
	return n, nil
}

// Address is the account address of the node's own key.
func (n *Node) Address() string {
	return n.address
}

// ServeOracle registers the oracle side of the protocol.
func (n *Node) ServeOracle(host handlers.OracleHost) {
	n.manager.Registry.RegisterHandler(protocol.StreamKindPacket, handlers.NewPacketHandler(host))
	n.manager.Registry.RegisterHandler(protocol.StreamKindExecute, handlers.NewExecuteHandler(host))
	n.manager.Registry.RegisterHandler(protocol.StreamKindQuery, handlers.NewQueryHandler(host))
}

// ServeDeliveries registers the requester side of the protocol.
func (n *Node) ServeDeliveries(receiver handlers.BeaconReceiver) {
	n.manager.Registry.RegisterHandler(protocol.StreamKindDeliver, handlers.NewDeliverHandler(receiver))
}

func (n *Node) Start() error {
	return n.transport.Start()
}

func (n *Node) Addr() (net.Addr, error) {
	return n.transport.Addr()
}

func (n *Node) Stop() error {
	n.cancel()
	return n.transport.Stop()
}

// Connect dials addr and returns a client for the peer listening there.
func (n *Node) Connect(ctx context.Context, addr string) (*handlers.Client, error) {
	conn, err := n.transport.Connect(ctx, addr)
	if err != nil {
		return nil, err
	}
	pc, ok := n.peer(address.FromPublicKey(conn.PeerKey()))
	if !ok {
		return nil, ErrPeerNotConnected
	}
	return handlers.NewClient(pc), nil
}

// OnConnection implements transport.ConnectionHandler. A newer connection
// from the same peer replaces the older one. The peer is registered before
// its streams are served so handlers can reply over it.
func (n *Node) OnConnection(conn *transport.Conn) error {
	pc := n.manager.NewConn(conn)
	peer := pc.Address()

	n.mu.Lock()
	old, exists := n.peers[peer]
	n.peers[peer] = pc
	n.mu.Unlock()
	if exists {
		log.Network.Debug().Str("peer", peer).Msg("replacing connection")
		_ = old.Close()
	}
	log.Network.Info().Str("peer", peer).Stringer("remote", conn.RemoteAddr()).Msg("peer connected")

	go n.manager.Serve(pc)
	go func() {
		<-conn.Context().Done()
		n.mu.Lock()
		if n.peers[peer] == pc {
			delete(n.peers, peer)
		}
		n.mu.Unlock()
		log.Network.Info().Str("peer", peer).Msg("peer disconnected")
	}()
	return nil
}

func (n *Node) GetProtocols() []string {
	return n.manager.GetProtocols()
}

func (n *Node) ValidateConnection(tlsState tls.ConnectionState) error {
	return n.manager.ValidateConnection(tlsState)
}

func (n *Node) peer(addr string) (*protocol.ProtocolConn, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	pc, ok := n.peers[addr]
	return pc, ok
}

// Peers returns the addresses of the connected peers in order.
func (n *Node) Peers() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	peers := make([]string, 0, len(n.peers))
	for p := range n.peers {
		peers = append(peers, p)
	}
	sort.Strings(peers)
	return peers
}

// SendPacket delivers data to the peer whose address is channel and returns
// its acknowledgement.
func (n *Node) SendPacket(ctx context.Context, channel string, data []byte) ([]byte, error) {
	pc, ok := n.peer(channel)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPeerNotConnected, channel)
	}
	ctx, cancel := context.WithTimeout(ctx, transport.StreamTimeout)
	defer cancel()
	return handlers.NewClient(pc).Deliver(ctx, data)
}
