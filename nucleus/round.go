package nucleus

import (
	"context"
	"math/rand"

	"miner-node/logging"
	"miner-node/minerconfig"
	"miner-node/peerclient"
	"miner-node/registry"
	"miner-node/weights"

	"github.com/google/uuid"
)

// Round is the ephemeral record of one query round. It is folded into trust
// state by the aggregator and then discarded.
type Round struct {
	Id         string
	Candidates []Candidate
	Outcomes   []Outcome
	Aggregate  []float64
	Responders int
}

// Nucleus runs one query round per training step: select candidates, fan the
// request out, aggregate responses into trust state. The training loop is the
// only caller, which keeps all trust-state writes sequential.
type Nucleus struct {
	dispatcher *Dispatcher
	state      *weights.TrustState
	rng        *rand.Rand
	topk       int
	punishment float64
	width      int
	address    string
}

func New(factory peerclient.ClientFactory, state *weights.TrustState, cfg minerconfig.NucleusConfig, address string, rng *rand.Rand) *Nucleus {
	return &Nucleus{
		dispatcher: NewDispatcher(factory, cfg.QueryTimeout()),
		state:      state,
		rng:        rng,
		topk:       cfg.TopK,
		punishment: cfg.PunishmentConstant,
		width:      cfg.HiddenWidth,
		address:    address,
	}
}

// RunRound executes one full query round against the given registry
// snapshot. No active peers yields an empty round with a zero aggregate. If
// the context is cancelled while queries are in flight, the results are
// discarded without touching trust state.
func (n *Nucleus) RunRound(ctx context.Context, snap *registry.Snapshot, inputs []float64) *Round {
	round := &Round{Id: uuid.New().String(), Aggregate: make([]float64, n.width)}

	ws := n.state.WeightsSnapshot()
	active := snap.ActivePeers()
	// Peers past the trust vector registered after the last growth
	// reconcile; they join rounds once the trainer grows into them.
	known := active[:0]
	for _, i := range active {
		if i < len(ws) {
			known = append(known, i)
		}
	}
	round.Candidates = Select(n.rng, ws, known, n.topk)
	if len(round.Candidates) == 0 {
		logging.Warn("Round has no active peers to query", logging.Nucleus, "round", round.Id)
		return round
	}

	endpoints := make([]string, len(round.Candidates))
	for i, c := range round.Candidates {
		endpoints[i] = snap.Endpoint(c.Peer)
	}

	req := peerclient.ForwardRequest{
		RoundId:   round.Id,
		Requester: n.address,
		NetworkId: snap.NetworkId,
		Inputs:    inputs,
		Width:     n.width,
	}
	round.Outcomes = n.dispatcher.Dispatch(ctx, round.Candidates, endpoints, req)

	if ctx.Err() != nil {
		logging.Info("Round discarded on shutdown", logging.Nucleus, "round", round.Id)
		round.Outcomes = nil
		return round
	}

	round.Aggregate, round.Responders = Aggregate(n.state, round.Outcomes, n.punishment, n.width)

	if round.Responders == 0 {
		logging.Warn("No candidates responded this round", logging.Nucleus,
			"round", round.Id, "queried", len(round.Candidates))
	} else {
		logging.Debug("Round aggregated", logging.Nucleus,
			"round", round.Id, "queried", len(round.Candidates), "responded", round.Responders)
	}
	return round
}
