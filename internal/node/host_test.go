package node

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/beaconoracle/internal/drand"
	"github.com/eigerco/beaconoracle/internal/metrics"
	"github.com/eigerco/beaconoracle/internal/oracle"
	"github.com/eigerco/beaconoracle/internal/protocol"
	"github.com/eigerco/beaconoracle/internal/store"
	"github.com/eigerco/beaconoracle/internal/testutils"
	"github.com/eigerco/beaconoracle/internal/treasury"
	"github.com/eigerco/beaconoracle/pkg/db/pebble"
)

type sentPacket struct {
	channel string
	packet  protocol.DeliverBeaconPacket
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentPacket
	fail bool
	// unreachable fails every send before it reaches the requester
	unreachable bool
	attempts    int
}

func (f *fakeSender) SendPacket(ctx context.Context, channel string, data []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("delivery without deadline")
	}
	f.attempts++
	if f.unreachable {
		return nil, errors.New("peer not connected")
	}
	var packet protocol.DeliverBeaconPacket
	if err := json.Unmarshal(data, &packet); err != nil {
		return nil, err
	}
	f.sent = append(f.sent, sentPacket{channel: channel, packet: packet})
	if f.fail {
		return protocol.ErrorAck("rejected").Marshal()
	}
	ack, err := protocol.SuccessAck(protocol.DeliverBeaconPacketAck{Delivered: &protocol.JobIDAck{JobID: packet.JobID}})
	if err != nil {
		return nil, err
	}
	return ack.Marshal()
}

type hostFixture struct {
	host   *Host
	ledger *treasury.Ledger
	sender *fakeSender
	admin  string
}

func newHostFixture(t *testing.T) *hostFixture {
	kv, err := pebble.NewKVStore()
	require.NoError(t, err)
	s, err := store.New(kv)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})

	ledger := treasury.NewLedger(kv)
	o := oracle.New(s, ledger, metrics.NewNoopCollector(), oracle.DefaultConfig())
	sender := &fakeSender{}
	h := NewHost(o, ledger, sender)
	h.now = func() time.Time { return time.Date(2022, 10, 11, 12, 0, 0, 0, time.UTC) }

	admin := testutils.RandomAddress(t)
	require.NoError(t, h.Instantiate(oracle.InstantiateMsg{
		Admin:           admin,
		MinRound:        72785,
		IncentiveAmount: 100,
		IncentiveDenom:  "unois",
	}))
	return &hostFixture{host: h, ledger: ledger, sender: sender, admin: admin}
}

func requestData(t *testing.T, round uint64, jobID string) []byte {
	data, err := json.Marshal(protocol.RequestBeaconPacket{
		After: protocol.NewTimestamp(drand.PublishTime(round - 1)),
		JobID: jobID,
	})
	require.NoError(t, err)
	return data
}

func addRoundMsg(round uint64) oracle.ExecuteMsg {
	r := testutils.DrandMainnetRound(round)
	return oracle.ExecuteMsg{AddRound: &oracle.AddRoundMsg{
		Round:             round,
		PreviousSignature: r.PreviousSignatureBytes(),
		Signature:         r.SignatureBytes(),
	}}
}

func TestHostInstantiateIsIdempotent(t *testing.T) {
	f := newHostFixture(t)

	require.NoError(t, f.host.Instantiate(oracle.InstantiateMsg{Admin: f.admin}))
	err := f.host.Instantiate(oracle.InstantiateMsg{Admin: testutils.RandomAddress(t)})
	require.ErrorIs(t, err, oracle.ErrAlreadyInstantiated)
}

func TestHostDeliversQueuedJobsAndPaysIncentive(t *testing.T) {
	f := newHostFixture(t)
	ctx := context.Background()
	require.NoError(t, f.ledger.Fund(treasury.Coin{Denom: "unois", Amount: 150}))

	bot := testutils.RandomAddress(t)
	_, err := f.host.Execute(ctx, bot, oracle.ExecuteMsg{RegisterBot: &oracle.RegisterBotMsg{Moniker: "host bot"}})
	require.NoError(t, err)
	_, err = f.host.Execute(ctx, f.admin, oracle.ExecuteMsg{UpdateWhitelistBots: &oracle.UpdateWhitelistBotsMsg{Add: []string{bot}}})
	require.NoError(t, err)

	ack := f.host.ReceivePacket(ctx, "requester", requestData(t, 72785, "j1"))
	decoded, err := protocol.UnmarshalAck(ack)
	require.NoError(t, err)
	require.False(t, decoded.IsError())
	assert.Empty(t, f.sender.sent)

	_, err = f.host.Execute(ctx, bot, addRoundMsg(72785))
	require.NoError(t, err)

	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, "requester", f.sender.sent[0].channel)
	assert.Equal(t, "j1", f.sender.sent[0].packet.JobID)

	paid, err := f.ledger.AccountBalance(bot, "unois")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), paid)

	// the second round finds the treasury short and pays nothing
	_, err = f.host.Execute(ctx, bot, addRoundMsg(72786))
	require.NoError(t, err)
	paid, err = f.ledger.AccountBalance(bot, "unois")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), paid)
	balance, err := f.ledger.Balance("unois")
	require.NoError(t, err)
	assert.Equal(t, uint64(50), balance)
}

func TestHostDeliversArchivedRoundImmediately(t *testing.T) {
	f := newHostFixture(t)
	ctx := context.Background()

	_, err := f.host.Execute(ctx, testutils.RandomAddress(t), addRoundMsg(72785))
	require.NoError(t, err)

	f.sender.fail = true
	ack := f.host.ReceivePacket(ctx, "late", requestData(t, 72785, "j2"))
	decoded, err := protocol.UnmarshalAck(ack)
	require.NoError(t, err)
	require.False(t, decoded.IsError())

	// a rejected delivery does not undo the request
	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, "late", f.sender.sent[0].channel)
	stats, err := f.host.Query(oracle.QueryMsg{JobStats: &oracle.RoundQuery{Round: 72785}})
	require.NoError(t, err)
	assert.Equal(t, uint32(1), stats.(oracle.JobStatsResponse).Processed)
}

func TestHostFailedExecuteSendsNothing(t *testing.T) {
	f := newHostFixture(t)
	ctx := context.Background()
	f.host.ReceivePacket(ctx, "requester", requestData(t, 72785, "j1"))

	msg := addRoundMsg(72785)
	msg.AddRound.Signature = msg.AddRound.Signature[:10]
	_, err := f.host.Execute(ctx, testutils.RandomAddress(t), msg)
	require.ErrorIs(t, err, drand.ErrInvalidSignature)
	assert.Empty(t, f.sender.sent)
}

func TestHostDeliveryIsNotRetried(t *testing.T) {
	f := newHostFixture(t)
	ctx := context.Background()
	f.host.ReceivePacket(ctx, "offline", requestData(t, 72785, "j1"))

	f.sender.unreachable = true
	_, err := f.host.Execute(ctx, testutils.RandomAddress(t), addRoundMsg(72785))
	require.NoError(t, err)
	assert.Equal(t, 1, f.sender.attempts)
	assert.Empty(t, f.sender.sent)

	stats, err := f.host.Query(oracle.QueryMsg{JobStats: &oracle.RoundQuery{Round: 72785}})
	require.NoError(t, err)
	assert.Equal(t, uint32(1), stats.(oracle.JobStatsResponse).Processed)
	assert.Zero(t, stats.(oracle.JobStatsResponse).Unprocessed)

	// the peer coming back does not bring the job back
	f.sender.unreachable = false
	_, err = f.host.Execute(ctx, testutils.RandomAddress(t), addRoundMsg(72785))
	require.NoError(t, err)
	assert.Equal(t, 1, f.sender.attempts)
	assert.Empty(t, f.sender.sent)
}
