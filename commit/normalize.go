package commit

import (
	"fmt"
	"sort"

	"miner-node/chainclient"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/sha3"
)

// weightScale is the number of decimal places a published weight carries.
const weightScale = 9

// BuildPairs selects the topK heaviest peers, shifts the selected minimum to
// zero and L1-normalizes the rest, so the published weights sum to exactly 1
// and the worst selected peer lands on exactly 0. The rounding remainder is
// assigned to the heaviest peer. Pairs come back in peer-index order.
func BuildPairs(ws []float64, topK int) ([]chainclient.WeightPair, error) {
	n := len(ws)
	if n == 0 {
		return nil, fmt.Errorf("empty weight vector")
	}

	k := topK
	if k <= 0 || k > n {
		k = n
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		if ws[order[a]] != ws[order[b]] {
			return ws[order[a]] > ws[order[b]]
		}
		return order[a] < order[b]
	})
	selected := append([]int(nil), order[:k]...)
	sort.Ints(selected)

	minW := ws[selected[0]]
	for _, i := range selected[1:] {
		if ws[i] < minW {
			minW = ws[i]
		}
	}

	shifted := make([]decimal.Decimal, k)
	total := decimal.Zero
	for j, i := range selected {
		shifted[j] = decimal.NewFromFloat(ws[i] - minW)
		total = total.Add(shifted[j])
	}
	if total.IsZero() {
		return nil, fmt.Errorf("selected weights are uniform after min-shift")
	}

	heaviest := 0
	for j := range shifted {
		if shifted[j].GreaterThan(shifted[heaviest]) {
			heaviest = j
		}
	}

	quantized := make([]decimal.Decimal, k)
	assigned := decimal.Zero
	for j := range shifted {
		if j == heaviest {
			continue
		}
		quantized[j] = shifted[j].Div(total).Round(weightScale)
		assigned = assigned.Add(quantized[j])
	}
	quantized[heaviest] = decimal.NewFromInt(1).Sub(assigned)

	pairs := make([]chainclient.WeightPair, k)
	for j, i := range selected {
		pairs[j] = chainclient.WeightPair{PeerIndex: i, Weight: quantized[j].InexactFloat64()}
	}
	return pairs, nil
}

// fingerprint digests the rounded pairs so unchanged snapshots can skip
// resubmission.
func fingerprint(pairs []chainclient.WeightPair) []byte {
	hash := sha3.New256()
	for _, p := range pairs {
		fmt.Fprintf(hash, "%d:%.*f|", p.PeerIndex, weightScale, p.Weight)
	}
	return hash.Sum(nil)
}
