package oracle

import (
	"time"

	"github.com/eigerco/beaconoracle/internal/treasury"
)

// Message is an outbound effect of a call. The host executes messages only
// after the call committed.
type Message interface {
	isMessage()
}

// SendPacket delivers Data to the peer behind ChannelID.
type SendPacket struct {
	ChannelID string
	Data      []byte
	// Timeout is when the packet stops being valid.
	Timeout time.Time
}

// BankSend pays Amount from the oracle's treasury to ToAddress.
type BankSend struct {
	ToAddress string
	Amount    treasury.Coin
}

func (SendPacket) isMessage() {}
func (BankSend) isMessage()   {}

type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Response is the result of a successful call.
type Response struct {
	Messages   []Message
	Attributes []Attribute
}

func (r *Response) addAttribute(key, value string) {
	r.Attributes = append(r.Attributes, Attribute{Key: key, Value: value})
}

// Attribute returns the value of the first attribute named key.
func (r *Response) Attribute(key string) (string, bool) {
	for _, a := range r.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// ReceiveResponse is the result of handling an inbound packet. Ack is
// always set, even when handling failed.
type ReceiveResponse struct {
	Response
	Ack []byte
}
