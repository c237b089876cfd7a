package nucleus

import (
	"math"
	"math/rand"
	"sort"
)

// Candidate is one selected peer with the noisy score that ranked it. The
// score is reused by the aggregator as the softmax input for responders.
type Candidate struct {
	Peer  int
	Score float64
}

// Select picks up to topk active peers by noisy weight ranking. Gaussian
// noise with stddev = stddev(active weights) + 1e-7 is added to each active
// peer's weight before ranking, so a frozen top set still gets explored while
// selection stays biased toward trusted peers. The effective k is
// min(topk, n, active). An empty active set selects nothing.
func Select(rng *rand.Rand, weights []float64, active []int, topk int) []Candidate {
	realK := topk
	if n := len(weights); realK > n {
		realK = n
	}
	if realK > len(active) {
		realK = len(active)
	}
	if realK <= 0 {
		return nil
	}

	sigma := activeStd(weights, active) + 1e-7
	scored := make([]Candidate, 0, len(active))
	for _, i := range active {
		scored = append(scored, Candidate{Peer: i, Score: weights[i] + rng.NormFloat64()*sigma})
	}
	sort.Slice(scored, func(a, b int) bool { return scored[a].Score > scored[b].Score })

	return scored[:realK]
}

// activeStd is the sample standard deviation of the active subset, zero when
// the subset has fewer than two members.
func activeStd(weights []float64, active []int) float64 {
	if len(active) < 2 {
		return 0
	}

	var sum float64
	for _, i := range active {
		sum += weights[i]
	}
	mean := sum / float64(len(active))

	var ss float64
	for _, i := range active {
		d := weights[i] - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(active)-1))
}
