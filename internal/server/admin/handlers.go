package admin

import (
	"net/http"
	"time"

	"miner-node/logging"
	"miner-node/weights"

	"github.com/labstack/echo/v4"
)

// WeightsResponse is the full per-peer view: weights, EMA and the epoch
// counters, aligned to the registry addresses.
type WeightsResponse struct {
	NetworkId string   `json:"network_id"`
	Addresses []string `json:"addresses"`
	weights.View
}

type StatusResponse struct {
	Epoch          int                    `json:"epoch"`
	Step           int64                  `json:"step"`
	Peers          int                    `json:"peers"`
	SyncHeight     int64                  `json:"sync_height"`
	Height         int64                  `json:"height"`
	LastCommit     string                 `json:"last_commit,omitempty"`
	RecentWarnings []logging.WarningEntry `json:"recent_warnings"`
}

type SyncResponse struct {
	Status string `json:"status"`
	Peers  int    `json:"peers"`
	Height int64  `json:"height"`
}

type CommitResponse struct {
	Status     string `json:"status"`
	LastCommit string `json:"last_commit,omitempty"`
}

func (s *Server) getWeights(c echo.Context) error {
	var addresses []string
	if snap := s.tracker.CurrentSnapshot(); snap != nil {
		addresses = make([]string, 0, len(snap.Peers))
		for _, p := range snap.Peers {
			addresses = append(addresses, p.Address)
		}
	}

	return c.JSON(http.StatusOK, WeightsResponse{
		NetworkId: s.tracker.NetworkId(),
		Addresses: addresses,
		View:      s.state.Snapshot(),
	})
}

func (s *Server) getStatus(c echo.Context) error {
	resp := StatusResponse{
		Peers:          s.state.Len(),
		Height:         s.tracker.Height(),
		RecentWarnings: logging.RecentWarnings(),
	}
	if snap := s.tracker.CurrentSnapshot(); snap != nil {
		resp.SyncHeight = snap.SyncHeight
	}
	if s.trainer != nil {
		resp.Epoch, resp.Step = s.trainer.Progress()
	}
	if s.committer != nil {
		if last := s.committer.LastCommit(); !last.IsZero() {
			resp.LastCommit = last.Format(time.RFC3339)
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// postSync refreshes the peer set outside the block cadence. Concurrent
// triggers collapse into one ledger fetch.
func (s *Server) postSync(c echo.Context) error {
	snapshot, err := s.tracker.Sync(c.Request().Context())
	if err != nil {
		logging.Error("Manual registry sync failed", logging.Server, "error", err.Error())
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "sync failed: " + err.Error()})
	}
	return c.JSON(http.StatusOK, SyncResponse{
		Status: "success",
		Peers:  snapshot.PeerCount(),
		Height: snapshot.SyncHeight,
	})
}

// postCommit publishes the current snapshot through the same path the
// cadenced worker uses, including the unchanged-snapshot skip.
func (s *Server) postCommit(c echo.Context) error {
	if s.committer == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "commit worker not configured"})
	}
	if err := s.committer.Commit(); err != nil {
		logging.Error("Manual weight commit failed", logging.Server, "error", err.Error())
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "commit failed: " + err.Error()})
	}

	resp := CommitResponse{Status: "success"}
	if last := s.committer.LastCommit(); !last.IsZero() {
		resp.LastCommit = last.Format(time.RFC3339)
	}
	return c.JSON(http.StatusOK, resp)
}
