package commit

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"miner-node/chainclient"
	"miner-node/logging"
	"miner-node/minerconfig"
	"miner-node/weights"
)

// Worker publishes top-k weight snapshots to the ledger on a cadence
// independent of training steps. Published values are a projection of the
// live trust state and are never written back to it.
type Worker struct {
	state     *weights.TrustState
	bridge    chainclient.ChainBridge
	submitter string
	cfg       minerconfig.CommitConfig

	stop chan struct{}
	done chan struct{}

	mu         sync.Mutex
	lastDigest []byte
	lastCommit time.Time
}

// NewWorker creates and starts a commit worker.
// The worker runs until Close() is called.
func NewWorker(state *weights.TrustState, bridge chainclient.ChainBridge, submitter string, cfg minerconfig.CommitConfig) *Worker {
	w := &Worker{
		state:     state,
		bridge:    bridge,
		submitter: submitter,
		cfg:       cfg,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}

	go w.run()
	logging.Info("Commit worker started", logging.Commit,
		"interval", cfg.Interval().String(), "topk", cfg.TopK)
	return w
}

// Close stops the worker and waits for it to finish.
func (w *Worker) Close() {
	close(w.stop)
	<-w.done
	logging.Info("Commit worker stopped", logging.Commit)
}

func (w *Worker) run() {
	defer close(w.done)
	ticker := time.NewTicker(w.cfg.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.Commit(); err != nil {
				logging.Warn("Weight commit failed, will retry next tick", logging.Commit,
					"error", err.Error())
			}
		case <-w.stop:
			return
		}
	}
}

// Commit publishes one fresh top-k snapshot. Also serves as the admin
// surface's manual trigger. A degenerate snapshot (nothing selectable yet)
// and an unchanged snapshot are both quiet skips; only a rejected or
// timed-out submission is an error, and the next cadence tick recomputes
// from fresh state.
func (w *Worker) Commit() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	pairs, err := BuildPairs(w.state.WeightsSnapshot(), w.cfg.TopK)
	if err != nil {
		logging.Debug("Commit skipped, snapshot is degenerate", logging.Commit,
			"reason", err.Error())
		return nil
	}

	digest := fingerprint(pairs)
	if w.lastDigest != nil && bytes.Equal(w.lastDigest, digest) {
		logging.Debug("Commit skipped, weights unchanged", logging.Commit)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.SubmitTimeout())
	defer cancel()

	if err := w.bridge.SubmitWeights(ctx, w.submitter, pairs, w.cfg.WaitForInclusion); err != nil {
		return fmt.Errorf("submit %d weight pairs: %w", len(pairs), err)
	}

	w.lastDigest = digest
	w.lastCommit = time.Now().UTC()
	logging.Info("Committed weights", logging.Commit, "pairs", len(pairs))
	return nil
}

// LastCommit returns the time of the last accepted submission, zero if none.
func (w *Worker) LastCommit() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastCommit
}
