package admin

import (
	"context"
	"time"

	"miner-node/internal/server/middleware"
	"miner-node/registry"
	"miner-node/weights"

	"github.com/labstack/echo/v4"
)

// TrainingProgress reports the run loop's position for the status endpoint.
type TrainingProgress interface {
	Progress() (epoch int, step int64)
}

// Committer is the slice of the commit worker the admin surface drives:
// a manual out-of-cadence commit and the time of the last accepted one.
type Committer interface {
	Commit() error
	LastCommit() time.Time
}

// Server is the operator-facing surface: inspect the live trust state and
// recent warnings, and trigger a registry sync or weight commit out of
// cadence. All reads go through snapshots, the training loop stays the
// only writer.
type Server struct {
	e         *echo.Echo
	state     *weights.TrustState
	tracker   *registry.Tracker
	trainer   TrainingProgress
	committer Committer
}

func NewServer(
	state *weights.TrustState,
	tracker *registry.Tracker,
	trainer TrainingProgress,
	committer Committer,
) *Server {
	e := echo.New()
	e.HTTPErrorHandler = middleware.TransparentErrorHandler

	s := &Server{
		e:         e,
		state:     state,
		tracker:   tracker,
		trainer:   trainer,
		committer: committer,
	}

	e.Use(middleware.LoggingMiddleware)
	g := e.Group("/admin/v1/")

	g.GET("weights", s.getWeights)
	g.GET("status", s.getStatus)
	g.POST("sync", s.postSync)
	g.POST("commit", s.postCommit)

	return s
}

func (s *Server) Start(addr string) {
	go s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}
