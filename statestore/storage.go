package statestore

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("checkpoint not found")

// Checkpoint is the persisted training state. Reload validity is decided by
// the weight reconciler (network id match, no shrink); this package only
// stores and retrieves. Unknown or missing auxiliary fields are tolerated on
// load.
type Checkpoint struct {
	Epoch        int       `json:"epoch"`
	EpochLoss    float64   `json:"epoch_loss"`
	GlobalStep   int64     `json:"global_step"`
	WeightVector []float64 `json:"weight_vector"`
	LearningRate float64   `json:"learning_rate"`
	Momentum     float64   `json:"momentum"`
	NetworkId    string    `json:"network_id"`
	SavedAt      time.Time `json:"saved_at"`
}

type StateStorage interface {
	Save(ctx context.Context, cp Checkpoint) error
	// Load returns the latest checkpoint, or ErrNotFound.
	Load(ctx context.Context) (*Checkpoint, error)
	// History returns up to limit checkpoints, newest epoch first.
	History(ctx context.Context, limit int) ([]Checkpoint, error)
	Close()
}
