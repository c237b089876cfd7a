package nucleus

import (
	"miner-node/scores"
)

// Probe adapts a completed round into a salience probe: the round's
// responses are re-gated by a softmax over the hypothetical weights of the
// responders and the loss is evaluated at that aggregate. Failed candidates
// contribute nothing, so only responder weights shape the loss. A round
// with no responders leaves no path from the weights to the loss.
func (r *Round) Probe(lossAt func(aggregate []float64) (float64, error)) scores.LossProbe {
	responders := make([]Outcome, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		if o.Ok {
			responders = append(responders, o)
		}
	}
	width := len(r.Aggregate)

	return scores.LossProbeFunc(func(ws []float64) (float64, error) {
		if len(responders) == 0 {
			return 0, scores.ErrNoGradPath
		}

		gates := make([]float64, len(responders))
		for i, o := range responders {
			gates[i] = ws[o.Peer]
		}
		join := softmax(gates)

		aggregate := make([]float64, width)
		for i, o := range responders {
			limit := len(o.Hidden)
			if limit > width {
				limit = width
			}
			for j := 0; j < limit; j++ {
				aggregate[j] += join[i] * o.Hidden[j]
			}
		}
		return lossAt(aggregate)
	})
}
