package scores

import (
	"testing"

	"miner-node/weights"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostProcess_RectifiesAndNormalizes(t *testing.T) {
	got := PostProcess([]float64{2, -3, 2})
	assert.Equal(t, []float64{0.5, 0, 0.5}, got)
}

func TestPostProcess_SumsToOne(t *testing.T) {
	got := PostProcess([]float64{0.3, 1.7, 0.01, 4.2})
	var sum float64
	for _, v := range got {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
}

func TestPostProcess_NothingPositiveFallsBackToUniform(t *testing.T) {
	assert.Equal(t, []float64{0.25, 0.25, 0.25, 0.25}, PostProcess([]float64{0, 0, 0, 0}))
	assert.Equal(t, []float64{0.5, 0.5}, PostProcess([]float64{-1, -2}))
}

func TestApply_FoldsIntoEma(t *testing.T) {
	state := weights.NewTrustState(2)

	// ema starts at 0.5 each; post-processed scores are (1, 0)
	require.NoError(t, Apply(state, []float64{3, -1}))

	ema := state.EmaSnapshot()
	assert.InDelta(t, 0.995*0.5+0.005*1.0, ema[0], 1e-12)
	assert.InDelta(t, 0.995*0.5, ema[1], 1e-12)
}

func TestApply_LengthMismatch(t *testing.T) {
	state := weights.NewTrustState(2)
	err := Apply(state, []float64{1, 2, 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match peer count")
}
