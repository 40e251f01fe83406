// Package protocol defines the packets exchanged between the oracle and the
// parties requesting randomness, and the acknowledgements sent in reply.
// All packets are JSON encoded.
package protocol

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/eigerco/beaconoracle/pkg/serialization"
)

var wire = serialization.NewWireSerializer()

// DeliverBeaconPacketLifetime is how long a delivery packet stays valid
// after it is emitted.
const DeliverBeaconPacketLifetime = 7 * 24 * time.Hour

// Timestamp is a point in time encoded as a string of nanoseconds since the
// unix epoch.
type Timestamp struct {
	time.Time
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// TimestampFromSeconds is a convenience for whole second timestamps.
func TimestampFromSeconds(s int64) Timestamp {
	return Timestamp{Time: time.Unix(s, 0).UTC()}
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatInt(t.UnixNano(), 10))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	nanos, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("timestamp %q: %w", s, err)
	}
	t.Time = time.Unix(0, nanos).UTC()
	return nil
}

// HexBytes is a byte string encoded as lower case hex.
type HexBytes []byte

func (h HexBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(h))
}

func (h *HexBytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("hex: %w", err)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("hex: %w", err)
	}
	*h = b
	return nil
}

// RequestBeaconPacket asks for the randomness of the first round published
// after After. The requester identifies the job either with Origin or with
// the (Sender, JobID) pair; both are echoed back in the delivery.
type RequestBeaconPacket struct {
	After  Timestamp `json:"after"`
	Sender string    `json:"sender,omitempty"`
	JobID  string    `json:"job_id,omitempty"`
	Origin []byte    `json:"origin,omitempty"`
}

// SourceIDAck carries the source id of the round a request was committed to.
type SourceIDAck struct {
	SourceID string `json:"source_id"`
}

// RequestBeaconPacketAck is exactly one of Queued or Processed.
type RequestBeaconPacketAck struct {
	Queued    *SourceIDAck `json:"queued,omitempty"`
	Processed *SourceIDAck `json:"processed,omitempty"`
}

func QueuedAck(sourceID string) RequestBeaconPacketAck {
	return RequestBeaconPacketAck{Queued: &SourceIDAck{SourceID: sourceID}}
}

func ProcessedAck(sourceID string) RequestBeaconPacketAck {
	return RequestBeaconPacketAck{Processed: &SourceIDAck{SourceID: sourceID}}
}

// DeliverBeaconPacket carries the randomness of a round back to a requester.
type DeliverBeaconPacket struct {
	Randomness HexBytes `json:"randomness"`
	SourceID   string   `json:"source_id"`
	Sender     string   `json:"sender,omitempty"`
	JobID      string   `json:"job_id,omitempty"`
	Origin     []byte   `json:"origin,omitempty"`
}

type JobIDAck struct {
	JobID string `json:"job_id"`
}

type DeliverBeaconPacketAck struct {
	Delivered *JobIDAck `json:"delivered,omitempty"`
}

var ErrMalformedAck = errors.New("acknowledgement must be either result or error")

// StdAck is the acknowledgement envelope of every packet: either a result
// holding the JSON encoded response, or an error message.
type StdAck struct {
	Result []byte  `json:"result,omitempty"`
	Error  *string `json:"error,omitempty"`
}

// SuccessAck encodes v as the result of an acknowledgement.
func SuccessAck(v interface{}) (StdAck, error) {
	data, err := wire.Encode(v)
	if err != nil {
		return StdAck{}, fmt.Errorf("marshal ack result: %w", err)
	}
	return StdAck{Result: data}, nil
}

func ErrorAck(msg string) StdAck {
	return StdAck{Error: &msg}
}

func (a StdAck) IsError() bool {
	return a.Error != nil
}

// Validate checks that exactly one of result and error is set.
func (a StdAck) Validate() error {
	if (a.Result == nil) == (a.Error == nil) {
		return ErrMalformedAck
	}
	return nil
}

func (a StdAck) Marshal() ([]byte, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return wire.Encode(a)
}

func UnmarshalAck(data []byte) (StdAck, error) {
	var ack StdAck
	if err := wire.Decode(data, &ack); err != nil {
		return StdAck{}, fmt.Errorf("unmarshal ack: %w", err)
	}
	if err := ack.Validate(); err != nil {
		return StdAck{}, err
	}
	return ack, nil
}
