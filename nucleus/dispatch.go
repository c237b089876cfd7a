package nucleus

import (
	"context"
	"sync"
	"time"

	"miner-node/logging"
	"miner-node/peerclient"
)

// Outcome records what happened to one candidate's query.
type Outcome struct {
	Peer    int
	Score   float64
	Hidden  []float64
	Ok      bool
	Latency float64 // seconds
	Err     error
}

// Dispatcher fans one request out to every candidate concurrently and joins
// all outcomes before returning. Each query is bounded by the per-request
// timeout; a failed candidate is recorded with the timeout ceiling as its
// latency. One peer failing never fails the round, and there are no
// per-step retries.
type Dispatcher struct {
	factory peerclient.ClientFactory
	timeout time.Duration
}

func NewDispatcher(factory peerclient.ClientFactory, timeout time.Duration) *Dispatcher {
	return &Dispatcher{factory: factory, timeout: timeout}
}

// Dispatch queries all candidates in parallel. endpoints is positionally
// aligned with candidates.
func (d *Dispatcher) Dispatch(ctx context.Context, candidates []Candidate, endpoints []string, req peerclient.ForwardRequest) []Outcome {
	outcomes := make([]Outcome, len(candidates))

	var wg sync.WaitGroup
	for idx := range candidates {
		wg.Add(1)
		go func(idx int, cand Candidate, endpoint string) {
			defer wg.Done()

			cctx, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()

			client := d.factory.CreateClient(endpoint)
			start := time.Now()
			resp, err := client.Forward(cctx, req)
			if err != nil {
				logging.Debug("Peer query failed", logging.Nucleus,
					"round", req.RoundId, "peer", cand.Peer, "endpoint", endpoint,
					"transport", peerclient.IsTransport(err), "error", err.Error())
				outcomes[idx] = Outcome{Peer: cand.Peer, Score: cand.Score, Latency: d.timeout.Seconds(), Err: err}
				return
			}

			outcomes[idx] = Outcome{
				Peer:    cand.Peer,
				Score:   cand.Score,
				Hidden:  resp.Hidden,
				Ok:      true,
				Latency: time.Since(start).Seconds(),
			}
		}(idx, candidates[idx], endpoints[idx])
	}
	wg.Wait()

	return outcomes
}
