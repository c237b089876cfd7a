package scores

import (
	"miner-node/weights"
)

// EmaDecay is the fixed decay constant for the salience moving average.
const EmaDecay = 0.995

// PostProcess rectifies a raw score vector (negatives clamp to zero) and
// L1-normalizes it so it sums to 1. A vector with nothing positive falls
// back to uniform.
func PostProcess(raw []float64) []float64 {
	out := make([]float64, len(raw))
	var sum float64
	for i, v := range raw {
		if v > 0 {
			out[i] = v
			sum += v
		}
	}
	if sum == 0 {
		return Uniform(len(raw))
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// Apply post-processes raw salience scores and folds them into the trust
// state's EMA series.
func Apply(state *weights.TrustState, raw []float64) error {
	return state.FoldEma(PostProcess(raw), EmaDecay)
}
