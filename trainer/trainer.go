package trainer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"miner-node/logging"
	"miner-node/minerconfig"
	"miner-node/nucleus"
	"miner-node/registry"
	"miner-node/scores"
	"miner-node/statestore"
	"miner-node/weights"
)

// Model is the consumer side of the local model. NextBatch produces the
// inputs for one step, Step applies one optimization step against the
// aggregated remote representation and returns the local target loss, and
// LossAt evaluates the loss at a hypothetical aggregate without stepping,
// which the salience probe uses to re-gate the round at perturbed weights.
type Model interface {
	NextBatch() []float64
	Step(ctx context.Context, inputs, aggregate []float64) (float64, error)
	LossAt(inputs, aggregate []float64) (float64, error)
}

type roundRunner interface {
	RunRound(ctx context.Context, snap *registry.Snapshot, inputs []float64) *nucleus.Round
}

// Trainer owns the sequential training loop and is the only writer of trust
// state. Each step runs one query round, one model step and one salience
// fold; each epoch ends with checkpoint-if-improved and a divergence check.
type Trainer struct {
	model   Model
	nucleus roundRunner
	state   *weights.TrustState
	tracker *registry.Tracker
	storage statestore.StateStorage
	scorer  scores.Sensitivity
	cfg     minerconfig.TrainingConfig

	mu         sync.Mutex
	epoch      int
	globalStep int64

	epochLoss      float64
	lastSavedLoss  float64
	lastSyncHeight int64
}

func New(
	model Model,
	nuc *nucleus.Nucleus,
	state *weights.TrustState,
	tracker *registry.Tracker,
	storage statestore.StateStorage,
	cfg minerconfig.TrainingConfig,
) *Trainer {
	return &Trainer{
		model:          model,
		nucleus:        nuc,
		state:          state,
		tracker:        tracker,
		storage:        storage,
		scorer:         scores.NewHessianScorer(),
		cfg:            cfg,
		lastSavedLoss:  math.Inf(1),
		lastSyncHeight: tracker.Height(),
	}
}

// Resume seeds the loop position from a reloaded checkpoint, so a restarted
// node continues its epoch numbering instead of starting at zero.
func (t *Trainer) Resume(cp *statestore.Checkpoint) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.epoch = cp.Epoch
	t.globalStep = cp.GlobalStep
	t.epochLoss = cp.EpochLoss
	t.lastSavedLoss = cp.EpochLoss
}

// Progress reports the loop position for the admin status endpoint.
func (t *Trainer) Progress() (int, int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.epoch, t.globalStep
}

// Run executes epochs until the context is cancelled. Cancellation between
// steps is a clean stop; any other error is surfaced to the caller.
func (t *Trainer) Run(ctx context.Context) error {
	logging.Info("Training loop started", logging.Training,
		"epochLength", t.cfg.EpochLength, "syncBlockInterval", t.cfg.SyncBlockInterval)

	for {
		if err := t.runEpoch(ctx); err != nil {
			if ctx.Err() != nil {
				logging.Info("Training loop stopped", logging.Training)
				return nil
			}
			return err
		}
	}
}

func (t *Trainer) runEpoch(ctx context.Context) error {
	t.state.ResetCounters()
	var totalLoss float64

	for i := 0; i < t.cfg.EpochLength; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		loss, err := t.step(ctx)
		if err != nil {
			return err
		}
		totalLoss += loss

		if t.tracker.Height()-t.lastSyncHeight >= t.cfg.SyncBlockInterval {
			if err := t.syncAndGrow(ctx); err != nil {
				return err
			}
		}
	}

	t.epochLoss = totalLoss / float64(t.cfg.EpochLength)
	t.mu.Lock()
	t.epoch++
	epoch := t.epoch
	t.mu.Unlock()

	logging.Info("Epoch complete", logging.Training,
		"epoch", epoch, "loss", t.epochLoss, "best", t.lastSavedLoss, "peers", t.state.Len())

	return t.checkpoint(ctx)
}

// step runs one query round and one model step, then folds salience into
// the EMA series. The round's aggregate is handed to the model as a frozen
// input. The step loss counts toward the epoch loss exactly once.
func (t *Trainer) step(ctx context.Context) (float64, error) {
	inputs := t.model.NextBatch()
	round := t.nucleus.RunRound(ctx, t.tracker.CurrentSnapshot(), inputs)
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	loss, err := t.model.Step(ctx, inputs, round.Aggregate)
	if err != nil {
		return 0, fmt.Errorf("model step: %w", err)
	}

	probe := round.Probe(func(aggregate []float64) (float64, error) {
		return t.model.LossAt(inputs, aggregate)
	})
	raw, err := t.scorer.Evaluate(probe, t.state.WeightsSnapshot())
	if err != nil {
		logging.Warn("Salience evaluation failed, skipping fold this step", logging.Training,
			"error", err.Error())
	} else if err := scores.Apply(t.state, raw); err != nil {
		return 0, err
	}

	t.mu.Lock()
	t.globalStep++
	t.mu.Unlock()
	return loss, nil
}

// syncAndGrow refreshes the registry and grows trust state into any newly
// registered peers. A transient fetch failure keeps the last snapshot and
// waits out another sync interval; a shrink or network change is surfaced.
func (t *Trainer) syncAndGrow(ctx context.Context) error {
	snap, err := t.tracker.Sync(ctx)
	if err != nil {
		if errors.Is(err, registry.ErrPeerSetShrank) || errors.Is(err, registry.ErrNetworkChanged) {
			return err
		}
		logging.Warn("Registry sync failed, keeping last snapshot", logging.Training,
			"error", err.Error())
		t.lastSyncHeight = t.tracker.Height()
		return nil
	}

	t.lastSyncHeight = snap.SyncHeight
	return t.state.Grow(snap.PeerCount() - t.state.Len())
}

// checkpoint saves the state when the epoch loss matched or beat the best
// saved one, then rolls back if the epoch diverged.
func (t *Trainer) checkpoint(ctx context.Context) error {
	if isFinite(t.epochLoss) {
		if t.lastSavedLoss >= t.epochLoss {
			if err := t.save(ctx); err != nil {
				logging.Warn("Checkpoint save failed", logging.Training, "error", err.Error())
			} else {
				t.lastSavedLoss = t.epochLoss
			}
		}
		return nil
	}

	logging.Error("Epoch loss is not finite, rolling back to last saved state", logging.Training,
		"loss", t.epochLoss)
	return t.rollback(ctx)
}

func (t *Trainer) save(ctx context.Context) error {
	t.mu.Lock()
	epoch, step := t.epoch, t.globalStep
	t.mu.Unlock()

	cp := statestore.Checkpoint{
		Epoch:        epoch,
		EpochLoss:    t.epochLoss,
		GlobalStep:   step,
		WeightVector: t.state.WeightsSnapshot(),
		LearningRate: t.cfg.LearningRate,
		Momentum:     t.cfg.Momentum,
		NetworkId:    t.tracker.NetworkId(),
		SavedAt:      time.Now().UTC(),
	}
	if err := t.storage.Save(ctx, cp); err != nil {
		return err
	}

	logging.Info("Saved checkpoint", logging.Training, "epoch", epoch, "loss", t.epochLoss)
	return nil
}

// rollback restores the weight vector from the last saved checkpoint, grown
// to the live peer count. The EMA series and counters keep their live
// values, only the weights and the loop position are restored.
func (t *Trainer) rollback(ctx context.Context) error {
	cp, err := t.storage.Load(ctx)
	if err != nil {
		return fmt.Errorf("rollback load: %w", err)
	}

	restored, err := weights.Reconcile(cp.WeightVector, cp.NetworkId, t.state.Len(), t.tracker.NetworkId())
	if err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	if err := t.state.SetWeights(restored.WeightsSnapshot()); err != nil {
		return err
	}

	t.mu.Lock()
	t.epoch = cp.Epoch
	t.globalStep = cp.GlobalStep
	t.mu.Unlock()
	t.epochLoss = cp.EpochLoss
	t.lastSavedLoss = cp.EpochLoss

	logging.Info("Rolled back to checkpoint", logging.Training,
		"epoch", cp.Epoch, "loss", cp.EpochLoss)
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
