package oracle

import (
	"fmt"
	"time"

	"github.com/eigerco/beaconoracle/internal/drand"
	"github.com/eigerco/beaconoracle/internal/protocol"
	"github.com/eigerco/beaconoracle/internal/store"
)

const (
	// DefaultVerifyingCap is the number of jobs drained by a submission that
	// verified a signature in the same call.
	DefaultVerifyingCap uint32 = 3
	// DefaultTrustedCap is the number of jobs drained by a submission of
	// randomness verified elsewhere.
	DefaultTrustedCap uint32 = 14
)

// Router matches requests with archived randomness. Both submission paths
// share it, they only differ in how many queued jobs one call may drain.
type Router struct {
	verifyingCap uint32
	trustedCap   uint32
}

func NewRouter(verifyingCap, trustedCap uint32) *Router {
	return &Router{verifyingCap: verifyingCap, trustedCap: trustedCap}
}

// RoutingReceipt is the outcome of routing one request.
type RoutingReceipt struct {
	Ack      protocol.RequestBeaconPacketAck
	Messages []Message
	Round    uint64
}

// NewBeacon is the outcome of a new (or repeated) beacon for a round.
type NewBeacon struct {
	Messages      []Message
	Archived      bool
	JobsProcessed uint32
	JobsLeft      uint32
}

// Route commits a request to the first round published after `after`. If
// that round is archived the delivery is emitted right away, otherwise the
// job is queued for the round.
func (r *Router) Route(tx *store.Tx, now time.Time, channel string, after time.Time, job store.Job) (RoutingReceipt, error) {
	round, sourceID := drand.CommitToRound(after)
	job.SourceID = sourceID
	job.Channel = channel

	randomness, found, err := tx.Beacons.Lookup(round)
	if err != nil {
		return RoutingReceipt{}, err
	}
	if !found {
		if err := tx.Jobs.Enqueue(round, job); err != nil {
			return RoutingReceipt{}, err
		}
		return RoutingReceipt{Ack: protocol.QueuedAck(sourceID), Round: round}, nil
	}

	if err := tx.Jobs.IncrementProcessed(round); err != nil {
		return RoutingReceipt{}, err
	}
	msg, err := deliverBeaconMessage(now, job, randomness)
	if err != nil {
		return RoutingReceipt{}, err
	}
	return RoutingReceipt{
		Ack:      protocol.ProcessedAck(sourceID),
		Messages: []Message{msg},
		Round:    round,
	}, nil
}

// NewBeacon archives the randomness of a round, unless archived already, and
// drains up to the path's cap of the round's queued jobs. Jobs over the cap
// stay queued until the next submission for the round.
func (r *Router) NewBeacon(tx *store.Tx, now time.Time, round uint64, randomness []byte, verifying bool) (NewBeacon, error) {
	archived, err := tx.Beacons.Store(round, randomness, now)
	if err != nil {
		return NewBeacon{}, err
	}
	// Deliveries always carry the archived value.
	randomness, _, err = tx.Beacons.Lookup(round)
	if err != nil {
		return NewBeacon{}, err
	}

	limit := r.trustedCap
	if verifying {
		limit = r.verifyingCap
	}

	result := NewBeacon{Archived: archived}
	for result.JobsProcessed < limit {
		job, found, err := tx.Jobs.Dequeue(round)
		if err != nil {
			return NewBeacon{}, err
		}
		if !found {
			break
		}
		if err := tx.Jobs.IncrementProcessed(round); err != nil {
			return NewBeacon{}, err
		}
		msg, err := deliverBeaconMessage(now, job, randomness)
		if err != nil {
			return NewBeacon{}, err
		}
		result.Messages = append(result.Messages, msg)
		result.JobsProcessed++
	}

	result.JobsLeft, err = tx.Jobs.Len(round)
	if err != nil {
		return NewBeacon{}, err
	}
	return result, nil
}

func deliverBeaconMessage(now time.Time, job store.Job, randomness []byte) (SendPacket, error) {
	packet := protocol.DeliverBeaconPacket{
		Randomness: randomness,
		SourceID:   job.SourceID,
		Sender:     job.Sender,
		JobID:      job.JobID,
		Origin:     job.Origin,
	}
	data, err := wire.Encode(packet)
	if err != nil {
		return SendPacket{}, fmt.Errorf("marshal deliver beacon packet: %w", err)
	}
	return SendPacket{
		ChannelID: job.Channel,
		Data:      data,
		Timeout:   now.Add(protocol.DeliverBeaconPacketLifetime),
	}, nil
}
