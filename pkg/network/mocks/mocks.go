// Package mocks provides test doubles for the network layer.
package mocks

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"sync"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/stretchr/testify/mock"
)

// MockTransportConn stands in for a *transport.Conn.
type MockTransportConn struct {
	mock.Mock
	ctx     context.Context
	cancel  context.CancelFunc
	peerKey ed25519.PublicKey
}

func NewMockTransportConn() *MockTransportConn {
	ctx, cancel := context.WithCancel(context.Background())
	peerKey, _, _ := ed25519.GenerateKey(nil)
	return &MockTransportConn{ctx: ctx, cancel: cancel, peerKey: peerKey}
}

func (m *MockTransportConn) OpenStream(ctx context.Context) (quic.Stream, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(quic.Stream), args.Error(1)
}

func (m *MockTransportConn) AcceptStream() (quic.Stream, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(quic.Stream), args.Error(1)
}

func (m *MockTransportConn) Context() context.Context {
	return m.ctx
}

func (m *MockTransportConn) PeerKey() ed25519.PublicKey {
	return m.peerKey
}

func (m *MockTransportConn) Close() error {
	m.cancel()
	return m.Called().Error(0)
}

// MockStream is a quic.Stream over two buffers: the handler reads In and
// writes Out.
type MockStream struct {
	mu          sync.Mutex
	In          *bytes.Buffer
	Out         *bytes.Buffer
	CloseCalled bool
	Deadline    time.Time
	ReadErr     error
	WriteErr    error
}

func NewMockStream() *MockStream {
	return &MockStream{In: new(bytes.Buffer), Out: new(bytes.Buffer)}
}

func (s *MockStream) StreamID() quic.StreamID { return 1 }

func (s *MockStream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ReadErr != nil {
		return 0, s.ReadErr
	}
	return s.In.Read(p)
}

func (s *MockStream) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.WriteErr != nil {
		return 0, s.WriteErr
	}
	return s.Out.Write(p)
}

func (s *MockStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CloseCalled = true
	return nil
}

func (s *MockStream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.CloseCalled
}

func (s *MockStream) CancelRead(quic.StreamErrorCode)  {}
func (s *MockStream) CancelWrite(quic.StreamErrorCode) {}

func (s *MockStream) Context() context.Context { return context.Background() }

func (s *MockStream) SetDeadline(t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Deadline = t
	return nil
}

func (s *MockStream) SetReadDeadline(t time.Time) error  { return s.SetDeadline(t) }
func (s *MockStream) SetWriteDeadline(t time.Time) error { return s.SetDeadline(t) }

// MockStreamHandler records the streams handed to it.
type MockStreamHandler struct {
	mock.Mock
}

func (m *MockStreamHandler) HandleStream(ctx context.Context, stream quic.Stream, peerKey ed25519.PublicKey) error {
	return m.Called(ctx, stream, peerKey).Error(0)
}
