package nucleus

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"miner-node/minerconfig"
	"miner-node/peerclient"
	"miner-node/registry"
	"miner-node/weights"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTestSnapshot(n int) *registry.Snapshot {
	peers := make([]registry.Peer, n)
	for i := range peers {
		peers[i] = registry.Peer{
			Address:  fmt.Sprintf("peer-%d", i),
			Stake:    float64(100 * (i + 1)),
			Active:   true,
			Endpoint: fmt.Sprintf("http://peer-%d:8091", i),
		}
	}
	return &registry.Snapshot{NetworkId: "nakamoto", Peers: peers, SyncHeight: 10}
}

func roundTestConfig() minerconfig.NucleusConfig {
	return minerconfig.NucleusConfig{
		TopK:                2,
		PunishmentConstant:  0.001,
		QueryTimeoutSeconds: 1,
		HiddenWidth:         2,
	}
}

func TestRunRound_EmptyActiveSet(t *testing.T) {
	factory := peerclient.NewMockClientFactory()
	state := weights.NewTrustState(2)
	n := New(factory, state, roundTestConfig(), "miner1q2w3e", rand.New(rand.NewSource(1)))

	snap := &registry.Snapshot{
		NetworkId: "nakamoto",
		Peers:     []registry.Peer{{Address: "a"}, {Address: "b"}},
	}

	round := n.RunRound(context.Background(), snap, []float64{1})

	assert.NotEmpty(t, round.Id)
	assert.Empty(t, round.Candidates)
	assert.Zero(t, round.Responders)
	assert.Equal(t, []float64{0, 0}, round.Aggregate)
	// nothing queried, nothing recorded
	assert.Zero(t, state.Snapshot().Quested[0])
	assert.Zero(t, state.Snapshot().Quested[1])
}

func TestRunRound_AggregatesResponders(t *testing.T) {
	snap := roundTestSnapshot(3)
	factory := peerclient.NewMockClientFactory()
	for i := 0; i < 3; i++ {
		mock := peerclient.NewMockPeerClient()
		mock.Response = &peerclient.ForwardResponse{Hidden: []float64{1, 1}}
		factory.ScriptClient(snap.Endpoint(i), mock)
	}

	state := weights.NewTrustState(3)
	n := New(factory, state, roundTestConfig(), "miner1q2w3e", rand.New(rand.NewSource(2)))

	round := n.RunRound(context.Background(), snap, []float64{9, 9})

	require.Len(t, round.Candidates, 2)
	assert.Equal(t, 2, round.Responders)
	// any softmax mix of identical responses reproduces the response
	assert.InDelta(t, 1.0, round.Aggregate[0], 1e-9)
	assert.InDelta(t, 1.0, round.Aggregate[1], 1e-9)

	mock := factory.GetClientForEndpoint(snap.Endpoint(round.Candidates[0].Peer))
	require.NotNil(t, mock)
	req := mock.GetLastRequest()
	assert.Equal(t, round.Id, req.RoundId)
	assert.Equal(t, "miner1q2w3e", req.Requester)
	assert.Equal(t, "nakamoto", req.NetworkId)
	assert.Equal(t, []float64{9, 9}, req.Inputs)
	assert.Equal(t, 2, req.Width)

	v := state.Snapshot()
	var quested int64
	for _, q := range v.Quested {
		quested += q
	}
	assert.Equal(t, int64(2), quested)
}

func TestRunRound_CancelledContextDiscardsResults(t *testing.T) {
	snap := roundTestSnapshot(3)
	factory := peerclient.NewMockClientFactory()
	state := weights.NewTrustState(3)
	n := New(factory, state, roundTestConfig(), "miner1q2w3e", rand.New(rand.NewSource(3)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	round := n.RunRound(ctx, snap, nil)

	assert.Nil(t, round.Outcomes)
	assert.Zero(t, round.Responders)
	v := state.Snapshot()
	for i := 0; i < 3; i++ {
		assert.Zero(t, v.Quested[i])
		assert.Equal(t, 1.0, v.Weights[i])
	}
}
