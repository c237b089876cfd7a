package weights

import (
	"fmt"
	"sync"

	"miner-node/logging"
)

const (
	// DefaultWeight is the neutral trust assigned to a peer we have never scored.
	DefaultWeight = 1.0
	// WeightFloor is the lower bound a weight can be punished down to.
	WeightFloor = -1.0
)

// TrustState is the thread-safe owner of the per-peer weight vector, the
// salience EMA series, and the per-epoch query counters. All arrays are
// positionally aligned to PeerIndex and always have the same length.
// The training loop is the sole writer; the commit worker and the admin
// surface read snapshots.
type TrustState struct {
	mu sync.RWMutex

	weights     []float64
	ema         []float64
	quested     []int64
	responded   []int64
	respondTime []float64
}

// NewTrustState creates state for n peers with neutral defaults:
// weight 1.0, EMA 1/n, counters zero.
func NewTrustState(n int) *TrustState {
	s := &TrustState{
		weights:     make([]float64, n),
		ema:         make([]float64, n),
		quested:     make([]int64, n),
		responded:   make([]int64, n),
		respondTime: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		s.weights[i] = DefaultWeight
		s.ema[i] = 1.0 / float64(n)
	}
	return s
}

func (s *TrustState) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.weights)
}

// Grow appends delta peers with neutral defaults. New entries always append
// at the end in registry order; existing entries never move. The EMA default
// for new peers is 1/n_new. delta of zero is a no-op.
func (s *TrustState) Grow(delta int) error {
	if delta < 0 {
		return fmt.Errorf("negative growth delta %d", delta)
	}
	if delta == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	oldN := len(s.weights)
	newN := oldN + delta
	emaDefault := 1.0 / float64(newN)
	for i := 0; i < delta; i++ {
		s.weights = append(s.weights, DefaultWeight)
		s.ema = append(s.ema, emaDefault)
		s.quested = append(s.quested, 0)
		s.responded = append(s.responded, 0)
		s.respondTime = append(s.respondTime, 0)
	}

	logging.Info("Peer set grew", logging.Weights, "from", oldN, "to", newN)
	return nil
}

// Penalize subtracts punishment from peer i's weight, clamping at the floor.
// Returns the weight after the update. i must be a valid PeerIndex.
func (s *TrustState) Penalize(i int, punishment float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.weights[i] -= punishment
	if s.weights[i] < WeightFloor {
		s.weights[i] = WeightFloor
	}
	return s.weights[i]
}

// RecordQuery updates the query counters for peer i after a round:
// quested always increments, responded only on success, and the observed
// latency accumulates either way.
func (s *TrustState) RecordQuery(i int, responded bool, latencySeconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.quested[i]++
	if responded {
		s.responded[i]++
	}
	s.respondTime[i] += latencySeconds
}

// SetWeights replaces the whole weight vector. The slice is copied.
func (s *TrustState) SetWeights(ws []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(ws) != len(s.weights) {
		return fmt.Errorf("weight vector length %d does not match peer count %d", len(ws), len(s.weights))
	}
	copy(s.weights, ws)
	return nil
}

// FoldEma folds a post-processed score vector into the EMA series:
// ema[i] = decay*ema[i] + (1-decay)*score[i].
func (s *TrustState) FoldEma(score []float64, decay float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(score) != len(s.ema) {
		return fmt.Errorf("score length %d does not match peer count %d", len(score), len(s.ema))
	}
	for i := range s.ema {
		s.ema[i] = decay*s.ema[i] + (1-decay)*score[i]
	}
	return nil
}

// ResetCounters zeroes the per-epoch counters. Weights and EMA are untouched.
func (s *TrustState) ResetCounters() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.quested {
		s.quested[i] = 0
		s.responded[i] = 0
		s.respondTime[i] = 0
	}
}

// WeightsSnapshot returns a copy of the weight vector.
func (s *TrustState) WeightsSnapshot() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]float64, len(s.weights))
	copy(out, s.weights)
	return out
}

// EmaSnapshot returns a copy of the EMA series.
func (s *TrustState) EmaSnapshot() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]float64, len(s.ema))
	copy(out, s.ema)
	return out
}

// View is a consistent copy of all per-peer arrays, served by the admin
// surface and used in epoch summaries.
type View struct {
	Weights     []float64 `json:"weights"`
	Ema         []float64 `json:"ema"`
	Quested     []int64   `json:"quested"`
	Responded   []int64   `json:"responded"`
	RespondTime []float64 `json:"respond_time"`
}

func (s *TrustState) Snapshot() View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := View{
		Weights:     make([]float64, len(s.weights)),
		Ema:         make([]float64, len(s.ema)),
		Quested:     make([]int64, len(s.quested)),
		Responded:   make([]int64, len(s.responded)),
		RespondTime: make([]float64, len(s.respondTime)),
	}
	copy(v.Weights, s.weights)
	copy(v.Ema, s.ema)
	copy(v.Quested, s.quested)
	copy(v.Responded, s.responded)
	copy(v.RespondTime, s.respondTime)
	return v
}
