package scores

import (
	"errors"
	"fmt"
	"math"
)

// ErrNoGradPath is returned by a LossProbe when the loss has no dependency
// on the peer weights at all, e.g. after a round with zero responders.
var ErrNoGradPath = errors.New("loss has no gradient path to weights")

// LossProbe evaluates the training loss at a hypothetical weight vector
// without mutating live state.
type LossProbe interface {
	Loss(ws []float64) (float64, error)
}

// LossProbeFunc adapts a function to the LossProbe interface.
type LossProbeFunc func(ws []float64) (float64, error)

func (f LossProbeFunc) Loss(ws []float64) (float64, error) { return f(ws) }

// Sensitivity scores how strongly each peer's weight shapes the loss.
type Sensitivity interface {
	Evaluate(probe LossProbe, ws []float64) ([]float64, error)
}

// HessianScorer approximates the diagonal of d²L/dw² by central finite
// differences and scores peer i as 0.5 * h_ii * w_i², so peers whose weight
// most convexly affects the loss score highest. A probe with no gradient
// path yields the uniform 1/n vector: no information, assume uniform trust.
type HessianScorer struct {
	Step float64
}

func NewHessianScorer() *HessianScorer {
	return &HessianScorer{Step: 1e-3}
}

var _ Sensitivity = (*HessianScorer)(nil)

func (h *HessianScorer) Evaluate(probe LossProbe, ws []float64) ([]float64, error) {
	n := len(ws)
	if n == 0 {
		return nil, nil
	}

	base, err := probe.Loss(ws)
	if errors.Is(err, ErrNoGradPath) {
		return Uniform(n), nil
	}
	if err != nil {
		return nil, fmt.Errorf("probe loss: %w", err)
	}
	if math.IsNaN(base) || math.IsInf(base, 0) {
		return nil, fmt.Errorf("loss is not finite: %v", base)
	}

	work := make([]float64, n)
	copy(work, ws)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		w := ws[i]

		work[i] = w + h.Step
		up, err := probe.Loss(work)
		if err != nil {
			return nil, fmt.Errorf("probe loss at +step for peer %d: %w", i, err)
		}

		work[i] = w - h.Step
		down, err := probe.Loss(work)
		if err != nil {
			return nil, fmt.Errorf("probe loss at -step for peer %d: %w", i, err)
		}
		work[i] = w

		second := (up - 2*base + down) / (h.Step * h.Step)
		if math.IsNaN(second) || math.IsInf(second, 0) {
			continue
		}
		out[i] = 0.5 * second * w * w
	}

	return out, nil
}

// Uniform is the 1/n score vector.
func Uniform(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1.0 / float64(n)
	}
	return out
}
