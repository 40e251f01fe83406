package protocol

import (
	"fmt"
	"strings"
)

const (
	protocolPrefix = "beacon-oracle"
	currentVersion = "0"

	// ChainHashLength is the number of leading chain hash nibbles in the
	// protocol id.
	ChainHashLength = 8
)

// ProtocolID is an ALPN protocol identifier of the form
// beacon-oracle/<version>/<chain-hash>, where chain-hash is the first 8 hex
// nibbles of the drand chain hash the oracle verifies.
type ProtocolID struct {
	Version   string
	ChainHash string
}

func NewProtocolID(chainHash string) *ProtocolID {
	if len(chainHash) > ChainHashLength {
		chainHash = chainHash[:ChainHashLength]
	}
	return &ProtocolID{Version: currentVersion, ChainHash: strings.ToLower(chainHash)}
}

func (p *ProtocolID) String() string {
	return strings.Join([]string{protocolPrefix, p.Version, p.ChainHash}, "/")
}

func ParseProtocolID(protocol string) (*ProtocolID, error) {
	parts := strings.Split(protocol, "/")
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid protocol format: %s", protocol)
	}
	if parts[0] != protocolPrefix {
		return nil, fmt.Errorf("invalid protocol prefix: %s", parts[0])
	}
	if parts[1] != currentVersion {
		return nil, fmt.Errorf("unsupported protocol version: %s", parts[1])
	}

	chainHash := parts[2]
	if len(chainHash) != ChainHashLength {
		return nil, fmt.Errorf("invalid chain hash length: %s", chainHash)
	}
	for _, c := range chainHash {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return nil, fmt.Errorf("invalid chain hash character: %c", c)
		}
	}
	return &ProtocolID{Version: parts[1], ChainHash: chainHash}, nil
}
