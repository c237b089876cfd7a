package peerapi

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"miner-node/internal/workpool"
	"miner-node/peerclient"

	"github.com/labstack/echo/v4"
)

// BackwardRequest carries a peer's gradient for the hidden states this node
// produced earlier in the round.
type BackwardRequest struct {
	RoundId   string    `json:"round_id"`
	Requester string    `json:"requester"`
	NetworkId string    `json:"network_id"`
	Inputs    []float64 `json:"inputs"`
	Grads     []float64 `json:"grads"`
}

type BackwardResponse struct {
	Accepted bool `json:"accepted"`
}

func (s *Server) postForward(ctx echo.Context) error {
	var req peerclient.ForwardRequest
	if err := ctx.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body: "+err.Error())
	}
	if len(req.Inputs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "inputs required")
	}
	if req.Width != s.model.Width() {
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("unsupported hidden width %d, this node serves %d", req.Width, s.model.Width()))
	}

	stake, err := s.authorize(req.Requester)
	if err != nil {
		return err
	}

	requestCtx := ctx.Request().Context()
	value, err := s.enqueue(priority(stake, len(req.Inputs)), func() (interface{}, error) {
		return s.model.Forward(requestCtx, req.Inputs)
	})
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, peerclient.ForwardResponse{Hidden: value.([]float64)})
}

func (s *Server) postBackward(ctx echo.Context) error {
	var req BackwardRequest
	if err := ctx.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body: "+err.Error())
	}
	if len(req.Inputs) == 0 || len(req.Grads) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "inputs and grads required")
	}

	stake, err := s.authorize(req.Requester)
	if err != nil {
		return err
	}

	requestCtx := ctx.Request().Context()
	_, err = s.enqueue(priority(stake, len(req.Inputs)+len(req.Grads)), func() (interface{}, error) {
		return nil, s.model.Backward(requestCtx, req.Inputs, req.Grads)
	})
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, BackwardResponse{Accepted: true})
}

// authorize resolves the requester's stake from the registry snapshot and
// applies the stake blacklist.
func (s *Server) authorize(requester string) (float64, error) {
	snap := s.tracker.CurrentSnapshot()
	stake, known := snap.StakeByAddress(requester)
	if !known {
		return 0, echo.NewHTTPError(http.StatusForbidden, "unknown requester "+requester)
	}
	if stake < s.cfg.BlacklistStake {
		return 0, echo.NewHTTPError(http.StatusForbidden,
			fmt.Sprintf("stake %g below serving threshold %g", stake, s.cfg.BlacklistStake))
	}
	return stake, nil
}

// priority orders queued work by requester stake per unit of payload, so a
// heavy request does not outrank a light one from an equally staked peer.
func priority(stake float64, payloadLen int) float64 {
	if payloadLen < 1 {
		payloadLen = 1
	}
	return stake / float64(payloadLen)
}

// enqueue schedules work on the stake-priority pool and waits for its result
// under the configured request timeout.
func (s *Server) enqueue(prio float64, run func() (interface{}, error)) (interface{}, error) {
	resultCh, err := s.pool.Submit(workpool.Task{Priority: prio, Run: run})
	if err != nil {
		if errors.Is(err, workpool.ErrQueueFull) {
			return nil, echo.NewHTTPError(http.StatusServiceUnavailable, "work queue is full")
		}
		return nil, err
	}

	select {
	case res := <-resultCh:
		if res.Err != nil {
			return nil, echo.NewHTTPError(http.StatusInternalServerError, res.Err.Error())
		}
		return res.Value, nil
	case <-time.After(s.cfg.RequestTimeout()):
		return nil, echo.NewHTTPError(http.StatusGatewayTimeout, "request timed out waiting for a worker")
	}
}
