package peerapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

const identityCacheTTL = 5 * time.Minute

type IdentityResponse struct {
	Address   string `json:"address"`
	NetworkId string `json:"network_id"`
	Height    int64  `json:"height"`
	Timestamp string `json:"timestamp"`
}

type identityCache struct {
	mu        sync.RWMutex
	response  *IdentityResponse
	expiresAt time.Time
	cacheTTL  time.Duration
}

func newIdentityCache() *identityCache {
	return &identityCache{cacheTTL: identityCacheTTL}
}

func (c *identityCache) get() (*IdentityResponse, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.response == nil || time.Now().After(c.expiresAt) {
		return nil, false
	}
	return c.response, true
}

func (c *identityCache) set(response *IdentityResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.response = response
	c.expiresAt = time.Now().Add(c.cacheTTL)
}

func (s *Server) getIdentity(ctx echo.Context) error {
	if cached, valid := s.identity.get(); valid {
		return ctx.JSON(http.StatusOK, cached)
	}

	response := &IdentityResponse{
		Address:   s.address,
		NetworkId: s.tracker.NetworkId(),
		Height:    s.tracker.Height(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	s.identity.set(response)

	return ctx.JSON(http.StatusOK, response)
}
