package peerclient

import (
	"context"
	"sync"
	"time"
)

// MockPeerClient is a hand-rolled PeerClient for testing.
type MockPeerClient struct {
	Mu sync.Mutex

	// Response is returned on success. When nil, Forward echoes a zero
	// vector of the requested width.
	Response *ForwardResponse

	// Error injection
	ForwardError error
	// Delay holds Forward open before answering, so tests can trip the
	// caller's deadline.
	Delay time.Duration

	// Call tracking
	ForwardCalled int
	LastRequest   ForwardRequest
}

func NewMockPeerClient() *MockPeerClient {
	return &MockPeerClient{}
}

var _ PeerClient = (*MockPeerClient)(nil)

func (m *MockPeerClient) Forward(ctx context.Context, req ForwardRequest) (*ForwardResponse, error) {
	m.Mu.Lock()
	m.ForwardCalled++
	m.LastRequest = req
	delay := m.Delay
	forwardErr := m.ForwardError
	response := m.Response
	m.Mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, NewTransportError(ctx.Err())
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, NewTransportError(err)
	}
	if forwardErr != nil {
		return nil, forwardErr
	}

	if response == nil {
		return &ForwardResponse{Hidden: make([]float64, req.Width)}, nil
	}
	hidden := make([]float64, len(response.Hidden))
	copy(hidden, response.Hidden)
	return &ForwardResponse{Hidden: hidden}, nil
}

func (m *MockPeerClient) GetForwardCalled() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.ForwardCalled
}

func (m *MockPeerClient) GetLastRequest() ForwardRequest {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.LastRequest
}
