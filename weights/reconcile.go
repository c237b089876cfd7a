package weights

import (
	"fmt"

	"miner-node/logging"
)

// Reconcile rebuilds trust state from a persisted weight vector against the
// live registry. The checkpoint's network id must match the live one; a
// mismatch fails without building anything rather than merging state from a
// different network. A live peer set smaller than the persisted vector means
// peers deregistered since the checkpoint, which has no defined merge rule,
// so it is surfaced as an error instead of truncating.
func Reconcile(persisted []float64, persistedNetworkId string, liveN int, liveNetworkId string) (*TrustState, error) {
	if persistedNetworkId != liveNetworkId {
		return nil, fmt.Errorf("checkpoint network id %q does not match live network %q", persistedNetworkId, liveNetworkId)
	}

	delta := liveN - len(persisted)
	if delta < 0 {
		return nil, fmt.Errorf("live peer set (%d) is smaller than persisted weight vector (%d), refusing to truncate", liveN, len(persisted))
	}

	state := NewTrustState(len(persisted))
	if err := state.SetWeights(persisted); err != nil {
		return nil, err
	}
	if err := state.Grow(delta); err != nil {
		return nil, err
	}

	logging.Info("Reconciled persisted weights", logging.Weights,
		"persisted", len(persisted), "live", liveN, "grown", delta)
	return state, nil
}
