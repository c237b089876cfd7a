package peerapi

import (
	"context"
	"net/http"

	"miner-node/internal/server/middleware"
	"miner-node/internal/workpool"
	"miner-node/minerconfig"
	"miner-node/registry"

	"github.com/labstack/echo/v4"
)

// ServedModel is the compute surface this node serves to its peers. Forward
// returns the hidden representation for a peer's inputs; Backward folds a
// peer's gradient into the local accumulation.
type ServedModel interface {
	Width() int
	Forward(ctx context.Context, inputs []float64) ([]float64, error)
	Backward(ctx context.Context, inputs, grads []float64) error
}

// Server is the HTTP surface other miners query: forward passes, gradient
// accumulation, identity and health.
type Server struct {
	e        *echo.Echo
	model    ServedModel
	tracker  *registry.Tracker
	pool     *workpool.Pool
	cfg      minerconfig.ServerConfig
	address  string
	identity *identityCache
}

func NewServer(
	model ServedModel,
	tracker *registry.Tracker,
	pool *workpool.Pool,
	address string,
	cfg minerconfig.ServerConfig,
) *Server {
	e := echo.New()
	e.HTTPErrorHandler = middleware.TransparentErrorHandler

	s := &Server{
		e:        e,
		model:    model,
		tracker:  tracker,
		pool:     pool,
		cfg:      cfg,
		address:  address,
		identity: newIdentityCache(),
	}

	e.Use(middleware.LoggingMiddleware)
	g := e.Group("/v1/")

	g.POST("forward", s.postForward)
	g.POST("backward", s.postBackward)
	g.GET("identity", s.getIdentity)
	g.GET("health", s.getHealth)

	return s
}

func (s *Server) Start(addr string) {
	go s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

func (s *Server) getHealth(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, struct {
		Status string `json:"status"`
	}{Status: "ok"})
}
