package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProtocolID(t *testing.T) {
	id := NewProtocolID("8990E7A9aaed2ffed73dbd7092123d6f289930540d7651336225dc172e51b2ce")
	assert.Equal(t, "beacon-oracle/0/8990e7a9", id.String())
}

func TestParseProtocolID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		err   string
	}{
		{name: "valid", input: "beacon-oracle/0/8990e7a9"},
		{name: "empty", input: "", err: "invalid protocol format"},
		{name: "prefix", input: "jamnp-s/0/8990e7a9", err: "invalid protocol prefix"},
		{name: "version", input: "beacon-oracle/9/8990e7a9", err: "unsupported protocol version"},
		{name: "short hash", input: "beacon-oracle/0/8990e7", err: "invalid chain hash length"},
		{name: "hash characters", input: "beacon-oracle/0/8990e7zz", err: "invalid chain hash character"},
		{name: "too many parts", input: "beacon-oracle/0/8990e7a9/relay", err: "invalid protocol format"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			id, err := ParseProtocolID(tc.input)
			if tc.err != "" {
				assert.ErrorContains(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.input, id.String())
		})
	}
}
