package protocol

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"sync"

	"github.com/quic-go/quic-go"
)

// StreamKind is the first byte written on every stream. All oracle streams
// are ephemeral: one request, one response.
type StreamKind byte

const (
	// StreamKindPacket carries a beacon request packet to the oracle.
	StreamKindPacket StreamKind = 128
	// StreamKindExecute carries an execute message signed by the peer key.
	StreamKindExecute StreamKind = 129
	StreamKindQuery   StreamKind = 130
	// StreamKindDeliver carries a beacon delivery from the oracle to a requester.
	StreamKindDeliver StreamKind = 131
)

func (k StreamKind) String() string {
	switch k {
	case StreamKindPacket:
		return "packet"
	case StreamKindExecute:
		return "execute"
	case StreamKindQuery:
		return "query"
	case StreamKindDeliver:
		return "deliver"
	default:
		return fmt.Sprintf("unknown(%d)", byte(k))
	}
}

type StreamHandler interface {
	HandleStream(ctx context.Context, stream quic.Stream, peerKey ed25519.PublicKey) error
}

// Registry maps stream kinds to their handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[StreamKind]StreamHandler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[StreamKind]StreamHandler)}
}

func ValidateKind(kindByte byte) error {
	switch StreamKind(kindByte) {
	case StreamKindPacket, StreamKindExecute, StreamKindQuery, StreamKindDeliver:
		return nil
	}
	return fmt.Errorf("invalid stream kind: %d", kindByte)
}

func (r *Registry) RegisterHandler(kind StreamKind, handler StreamHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = handler
}

func (r *Registry) GetHandler(kindByte byte) (StreamHandler, error) {
	if err := ValidateKind(kindByte); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	handler, ok := r.handlers[StreamKind(kindByte)]
	if !ok {
		return nil, fmt.Errorf("no handler for kind %s", StreamKind(kindByte))
	}
	return handler, nil
}
