package oracle

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/beaconoracle/internal/drand"
	"github.com/eigerco/beaconoracle/internal/protocol"
	"github.com/eigerco/beaconoracle/internal/testutils"
)

// assertAck checks that data is a success ack of the given kind and returns
// the source id it carries.
func assertAck(t *testing.T, data []byte, kind string) string {
	t.Helper()
	ack, err := protocol.UnmarshalAck(data)
	require.NoError(t, err)
	require.False(t, ack.IsError(), "unexpected error ack: %s", data)

	var inner protocol.RequestBeaconPacketAck
	require.NoError(t, json.Unmarshal(ack.Result, &inner))
	switch kind {
	case "queued":
		require.NotNil(t, inner.Queued)
		require.Nil(t, inner.Processed)
		return inner.Queued.SourceID
	case "processed":
		require.NotNil(t, inner.Processed)
		require.Nil(t, inner.Queued)
		return inner.Processed.SourceID
	}
	t.Fatalf("unknown ack kind %s", kind)
	return ""
}

func TestReceivePacketQueuesJob(t *testing.T) {
	f := setup(t)

	resp := f.requestBeacon(t, "channel-1", 72785, "job")
	sourceID := assertAck(t, resp.Ack, "queued")
	assert.Equal(t, drand.SourceID(72785), sourceID)
	assert.Empty(t, resp.Messages)

	stats, err := f.oracle.QueryJobStats(72785)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), stats.Unprocessed)
	assert.Zero(t, stats.Processed)
}

func TestReceivePacketDeliversArchivedRound(t *testing.T) {
	f := setup(t)
	_, err := f.addRound(testutils.RandomAddress(t), 72785)
	require.NoError(t, err)

	resp := f.requestBeacon(t, "channel-9", 72785, "late-job")
	sourceID := assertAck(t, resp.Ack, "processed")
	assert.Equal(t, drand.SourceID(72785), sourceID)

	delivered := packets(&resp.Response)
	require.Len(t, delivered, 1)
	assert.Equal(t, "channel-9", delivered[0].ChannelID)
	var packet protocol.DeliverBeaconPacket
	require.NoError(t, json.Unmarshal(delivered[0].Data, &packet))
	assert.Equal(t, "late-job", packet.JobID)
	assert.Equal(t, testutils.DrandMainnetRound(72785).RandomnessBytes(), []byte(packet.Randomness))

	// the queue is bypassed but the job is counted
	stats, err := f.oracle.QueryJobStats(72785)
	require.NoError(t, err)
	assert.Equal(t, JobStatsResponse{Round: 72785, Unprocessed: 0, Processed: 1}, stats)
}

func TestReceivePacketWithOrigin(t *testing.T) {
	f := setup(t)
	data, err := json.Marshal(protocol.RequestBeaconPacket{
		After:  protocol.NewTimestamp(drand.PublishTime(72784)),
		Origin: []byte(`{"id":"abc"}`),
	})
	require.NoError(t, err)

	resp := f.oracle.ReceivePacket(Env{Time: testNow}, "channel-2", data)
	assertAck(t, resp.Ack, "queued")

	drain, err := f.addRound(testutils.RandomAddress(t), 72785)
	require.NoError(t, err)
	delivered := packets(drain)
	require.Len(t, delivered, 1)
	var packet protocol.DeliverBeaconPacket
	require.NoError(t, json.Unmarshal(delivered[0].Data, &packet))
	assert.Equal(t, []byte(`{"id":"abc"}`), packet.Origin)
	assert.Empty(t, packet.JobID)
}

func TestReceivePacketErrorAck(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{
			name: "job id too long",
			data: []byte(`{"after":"1660941000000000000","sender":"s","job_id":"` + strings.Repeat("x", MaxJobIDLength+1) + `"}`),
			want: ErrJobIDTooLong.Error(),
		},
		{
			name: "malformed packet",
			data: []byte(`{"after":1660941000}`),
			want: "unmarshal request beacon packet",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := setup(t)

			resp := f.oracle.ReceivePacket(Env{Time: testNow}, "channel-1", tc.data)
			require.NotNil(t, resp)
			assert.Empty(t, resp.Messages)

			ack, err := protocol.UnmarshalAck(resp.Ack)
			require.NoError(t, err)
			require.True(t, ack.IsError())
			assert.True(t, strings.HasPrefix(*ack.Error, "Error processing packet: "))
			assert.Contains(t, *ack.Error, tc.want)

			stats, err := f.oracle.QueryJobStats(drand.RoundAfter(time.Unix(1660941000, 0)))
			require.NoError(t, err)
			assert.Zero(t, stats.Unprocessed)
		})
	}
}

func TestReceivePacketAcceptsMaxLengthJobID(t *testing.T) {
	f := setup(t)

	resp := f.requestBeacon(t, "channel-1", 72785, strings.Repeat("x", MaxJobIDLength))
	assertAck(t, resp.Ack, "queued")
}

func TestPacketAck(t *testing.T) {
	f := setup(t)

	ack, err := protocol.SuccessAck(protocol.DeliverBeaconPacketAck{Delivered: &protocol.JobIDAck{JobID: "job-1"}})
	require.NoError(t, err)
	data, err := ack.Marshal()
	require.NoError(t, err)
	resp, err := f.oracle.PacketAck(data)
	require.NoError(t, err)
	jobID, _ := resp.Attribute("job_id")
	assert.Equal(t, "job-1", jobID)

	data, err = protocol.ErrorAck("out of gas").Marshal()
	require.NoError(t, err)
	_, err = f.oracle.PacketAck(data)
	var foreign *ForeignError
	require.True(t, errors.As(err, &foreign), "got %v", err)
	assert.Equal(t, "out of gas", foreign.Err)

	_, err = f.oracle.PacketAck([]byte(`{}`))
	require.ErrorIs(t, err, protocol.ErrMalformedAck)
}

func TestPacketAckRejectsResultWithoutDelivery(t *testing.T) {
	results := map[string][]byte{
		"empty object":  []byte(`{}`),
		"null":          []byte(`null`),
		"unknown field": []byte(`{"foo":1}`),
		"not an object": []byte(`[1]`),
	}
	for name, result := range results {
		t.Run(name, func(t *testing.T) {
			f := setup(t)

			data, err := protocol.StdAck{Result: result}.Marshal()
			require.NoError(t, err)
			resp, err := f.oracle.PacketAck(data)
			require.ErrorIs(t, err, ErrMalformedDeliveryAck)
			assert.Nil(t, resp)
		})
	}
}
