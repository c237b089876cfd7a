package nucleus

import (
	"math"

	"miner-node/weights"
)

// Aggregate combines responder hidden states into one vector weighted by the
// softmax of their selection scores. Responses are frozen inputs; no training
// signal flows back through them. Every queried-but-failed candidate is
// punished on its weight (clamped at the floor), and query stats are recorded
// for all candidates. Zero responders yields a zero vector and no softmax.
// Returns the aggregate and the responder count.
func Aggregate(state *weights.TrustState, outcomes []Outcome, punishment float64, width int) ([]float64, int) {
	responders := make([]Outcome, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Ok {
			responders = append(responders, o)
		}
	}

	aggregate := make([]float64, width)
	if len(responders) > 0 {
		scores := make([]float64, len(responders))
		for i, o := range responders {
			scores[i] = o.Score
		}
		join := softmax(scores)

		for i, o := range responders {
			limit := len(o.Hidden)
			if limit > width {
				limit = width
			}
			for j := 0; j < limit; j++ {
				aggregate[j] += join[i] * o.Hidden[j]
			}
		}
	}

	for _, o := range outcomes {
		if !o.Ok {
			state.Penalize(o.Peer, punishment)
		}
		state.RecordQuery(o.Peer, o.Ok, o.Latency)
	}

	return aggregate, len(responders)
}

func softmax(xs []float64) []float64 {
	max := xs[0]
	for _, x := range xs[1:] {
		if x > max {
			max = x
		}
	}

	out := make([]float64, len(xs))
	var sum float64
	for i, x := range xs {
		out[i] = math.Exp(x - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
