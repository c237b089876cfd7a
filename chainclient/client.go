package chainclient

import (
	"context"
	"time"

	"miner-node/logging"

	"github.com/pkg/errors"
)

// Participant is one entry of the ledger's peer registry, in registry order.
type Participant struct {
	Address  string  `json:"address"`
	Stake    float64 `json:"stake"`
	Active   bool    `json:"active"`
	Endpoint string  `json:"endpoint"`
}

// NetworkStatus describes the chain the node is connected to.
type NetworkStatus struct {
	NetworkId   string `json:"network_id"`
	BlockHeight int64  `json:"block_height"`
}

// WeightPair is one committed (peer index, normalized weight) entry.
type WeightPair struct {
	PeerIndex int     `json:"peer_index"`
	Weight    float64 `json:"weight"`
}

// ChainBridge is the ledger surface this node depends on: registry reads
// and weight submission. Implementations must be safe for concurrent use.
type ChainBridge interface {
	GetNetworkStatus(ctx context.Context) (*NetworkStatus, error)
	GetParticipants(ctx context.Context) ([]Participant, error)
	SubmitWeights(ctx context.Context, submitter string, pairs []WeightPair, waitForInclusion bool) error
}

// NewChainClientWithRetry dials the chain node, retrying the initial status
// probe. Chain nodes routinely come up after the miner in compose setups.
func NewChainClientWithRetry(ctx context.Context, url string, maxRetries int, delay time.Duration) (*HTTPChainClient, error) {
	client := NewHTTPChainClient(url)

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		status, err := client.GetNetworkStatus(ctx)
		if err == nil {
			logging.Info("Connected to chain node", logging.Chain,
				"url", url, "networkId", status.NetworkId, "height", status.BlockHeight)
			return client, nil
		}

		lastErr = err
		logging.Warn("Chain node not ready, retrying", logging.Chain,
			"url", url, "attempt", attempt, "maxRetries", maxRetries, "error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, errors.Wrapf(lastErr, "chain node unreachable after %d attempts", maxRetries)
}
