package node

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/beaconoracle/internal/address"
	"github.com/eigerco/beaconoracle/internal/oracle"
	packet "github.com/eigerco/beaconoracle/internal/protocol"
)

const testChainHash = "8990e7a9aaed2ffed73dbd7092123d6f289930540d7651336225dc172e51b2ce"

// echoHost answers every request by delivering a beacon back over the
// requesting channel before acknowledging.
type echoHost struct {
	node      *Node
	delivered chan []byte
}

func (h *echoHost) ReceivePacket(ctx context.Context, channel string, data []byte) []byte {
	var req packet.RequestBeaconPacket
	if err := json.Unmarshal(data, &req); err != nil {
		ack, _ := packet.ErrorAck(err.Error()).Marshal()
		return ack
	}
	beacon, _ := json.Marshal(packet.DeliverBeaconPacket{
		Randomness: packet.HexBytes{1, 2, 3},
		SourceID:   "drand:test:1",
		JobID:      req.JobID,
	})
	ack, err := h.node.SendPacket(ctx, channel, beacon)
	if err == nil {
		h.delivered <- ack
	}
	result, _ := packet.SuccessAck(packet.ProcessedAck("drand:test:1"))
	data, _ = result.Marshal()
	return data
}

func (h *echoHost) Execute(_ context.Context, sender string, _ oracle.ExecuteMsg) (*oracle.Response, error) {
	return &oracle.Response{Attributes: []oracle.Attribute{{Key: "sender", Value: sender}}}, nil
}

func (h *echoHost) Query(oracle.QueryMsg) (interface{}, error) {
	return oracle.JobStatsResponse{Round: 1}, nil
}

type beaconInbox chan packet.DeliverBeaconPacket

func (b beaconInbox) ReceiveBeacon(_ context.Context, _ string, beacon packet.DeliverBeaconPacket) error {
	b <- beacon
	return nil
}

func newTestNode(t *testing.T, listen string) *Node {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	n, err := New(context.Background(), Config{
		PrivateKey: priv,
		ListenAddr: listen,
		ChainHash:  testChainHash,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = n.Stop() })
	return n
}

func TestRequestAndDeliverOverQUIC(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	oracleNode := newTestNode(t, "127.0.0.1:0")
	host := &echoHost{node: oracleNode, delivered: make(chan []byte, 1)}
	oracleNode.ServeOracle(host)
	require.NoError(t, oracleNode.Start())
	addr, err := oracleNode.Addr()
	require.NoError(t, err)

	requester := newTestNode(t, "")
	inbox := make(beaconInbox, 1)
	requester.ServeDeliveries(inbox)

	client, err := requester.Connect(ctx, addr.String())
	require.NoError(t, err)
	assert.Equal(t, []string{oracleNode.Address()}, requester.Peers())

	ack, err := client.RequestBeacon(ctx, packet.RequestBeaconPacket{
		After: packet.NewTimestamp(time.Now()),
		JobID: "job-1",
	})
	require.NoError(t, err)
	require.NotNil(t, ack.Processed)

	select {
	case beacon := <-inbox:
		assert.Equal(t, "job-1", beacon.JobID)
		assert.Equal(t, packet.HexBytes{1, 2, 3}, beacon.Randomness)
	case <-ctx.Done():
		t.Fatal("beacon was not delivered")
	}

	deliveryAck, err := packet.UnmarshalAck(<-host.delivered)
	require.NoError(t, err)
	assert.False(t, deliveryAck.IsError())

	res, err := client.Execute(ctx, oracle.ExecuteMsg{RegisterBot: &oracle.RegisterBotMsg{Moniker: "bot"}})
	require.NoError(t, err)
	sender, _ := res.Attribute("sender")
	assert.Equal(t, requester.Address(), sender)
}

func TestSendPacketToUnknownPeer(t *testing.T) {
	n := newTestNode(t, "")
	_, err := n.SendPacket(context.Background(), address.FromPublicKey(make([]byte, ed25519.PublicKeySize)), nil)
	assert.ErrorIs(t, err, ErrPeerNotConnected)
}

func TestNodeRejectsOtherChain(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	oracleNode := newTestNode(t, "127.0.0.1:0")
	require.NoError(t, oracleNode.Start())
	addr, err := oracleNode.Addr()
	require.NoError(t, err)

	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	other, err := New(ctx, Config{
		PrivateKey: priv,
		ChainHash:  "dbd506d6ef76e5f386f41c651dcb808c5bcbd75471cc4eafa3f4df7ad4e4c493",
	})
	require.NoError(t, err)
	defer other.Stop()

	_, err = other.Connect(ctx, addr.String())
	assert.Error(t, err)
}
