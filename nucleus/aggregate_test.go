package nucleus

import (
	"errors"
	"math"
	"testing"

	"miner-node/weights"

	"github.com/stretchr/testify/assert"
)

func TestAggregate_SoftmaxCombination(t *testing.T) {
	state := weights.NewTrustState(4)
	outcomes := []Outcome{
		{Peer: 0, Score: 0.0, Hidden: []float64{2, 0}, Ok: true, Latency: 0.1},
		{Peer: 2, Score: 0.0, Hidden: []float64{0, 4}, Ok: true, Latency: 0.2},
	}

	agg, responders := Aggregate(state, outcomes, 0.001, 2)

	assert.Equal(t, 2, responders)
	// equal scores softmax to 0.5 each
	assert.InDelta(t, 1.0, agg[0], 1e-9)
	assert.InDelta(t, 2.0, agg[1], 1e-9)

	// responders keep their weights
	ws := state.WeightsSnapshot()
	assert.Equal(t, 1.0, ws[0])
	assert.Equal(t, 1.0, ws[2])
}

func TestAggregate_UnevenSoftmax(t *testing.T) {
	state := weights.NewTrustState(2)
	outcomes := []Outcome{
		{Peer: 0, Score: math.Log(3), Hidden: []float64{4, 0}, Ok: true, Latency: 0.1},
		{Peer: 1, Score: 0, Hidden: []float64{0, 8}, Ok: true, Latency: 0.1},
	}

	agg, _ := Aggregate(state, outcomes, 0.001, 2)

	// softmax(ln 3, 0) = (0.75, 0.25)
	assert.InDelta(t, 3.0, agg[0], 1e-9)
	assert.InDelta(t, 2.0, agg[1], 1e-9)
}

func TestAggregate_SoleResponderGetsFullWeight(t *testing.T) {
	state := weights.NewTrustState(5)
	outcomes := []Outcome{
		{Peer: 1, Score: 0.4, Hidden: []float64{0.5, -1.5}, Ok: true, Latency: 0.3},
		{Peer: 4, Score: 0.9, Ok: false, Latency: 10.0, Err: errors.New("deadline exceeded")},
	}

	agg, responders := Aggregate(state, outcomes, 0.001, 2)

	assert.Equal(t, 1, responders)
	// a single responder's softmax weight is exactly 1
	assert.Equal(t, []float64{0.5, -1.5}, agg)

	ws := state.WeightsSnapshot()
	assert.InDelta(t, 1.0-0.001, ws[4], 1e-12)
	assert.Equal(t, 1.0, ws[1])

	v := state.Snapshot()
	assert.Equal(t, int64(1), v.Quested[1])
	assert.Equal(t, int64(1), v.Quested[4])
	assert.Equal(t, int64(1), v.Responded[1])
	assert.Zero(t, v.Responded[4])
	assert.InDelta(t, 0.3, v.RespondTime[1], 1e-12)
	assert.InDelta(t, 10.0, v.RespondTime[4], 1e-12)
}

func TestAggregate_ZeroResponders(t *testing.T) {
	state := weights.NewTrustState(3)
	outcomes := []Outcome{
		{Peer: 0, Ok: false, Latency: 10},
		{Peer: 1, Ok: false, Latency: 10},
	}

	agg, responders := Aggregate(state, outcomes, 0.25, 3)

	assert.Zero(t, responders)
	assert.Equal(t, []float64{0, 0, 0}, agg)

	ws := state.WeightsSnapshot()
	assert.InDelta(t, 0.75, ws[0], 1e-12)
	assert.InDelta(t, 0.75, ws[1], 1e-12)
	// never-queried peer untouched
	assert.Equal(t, 1.0, ws[2])
	assert.Zero(t, state.Snapshot().Quested[2])
}

func TestAggregate_RepeatedPunishmentStopsAtFloor(t *testing.T) {
	state := weights.NewTrustState(1)
	outcomes := []Outcome{{Peer: 0, Ok: false, Latency: 1}}

	for i := 0; i < 5; i++ {
		Aggregate(state, outcomes, 0.6, 1)
	}

	assert.Equal(t, -1.0, state.WeightsSnapshot()[0])
}
