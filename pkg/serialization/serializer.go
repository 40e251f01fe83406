package serialization

import "github.com/eigerco/beaconoracle/pkg/serialization/codec"

// Serializer provides methods to encode and decode using a specified codec.
type Serializer struct {
	codec codec.Codec
}

// NewSerializer initializes a new Serializer with the given codec.
func NewSerializer(c codec.Codec) *Serializer {
	return &Serializer{codec: c}
}

// NewRecordSerializer returns the serializer used for persisted records.
func NewRecordSerializer() (*Serializer, error) {
	c, err := codec.NewCBORCodec()
	if err != nil {
		return nil, err
	}
	return NewSerializer(c), nil
}

// NewWireSerializer returns the serializer used for packets.
func NewWireSerializer() *Serializer {
	return NewSerializer(&codec.JSONCodec{})
}

// Encode serializes the given value using the codec.
func (s *Serializer) Encode(v interface{}) ([]byte, error) {
	return s.codec.Marshal(v)
}

// Decode deserializes the given data into the specified value using the codec.
func (s *Serializer) Decode(data []byte, v interface{}) error {
	return s.codec.Unmarshal(data, v)
}
