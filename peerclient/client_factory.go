package peerclient

import (
	"net/http"
	"sync"
)

type ClientFactory interface {
	CreateClient(endpoint string) PeerClient
}

// HttpClientFactory shares one http.Client across all peer clients so
// connections pool across the peer set. Per-request deadlines come from the
// dispatcher's contexts, not from the client.
type HttpClientFactory struct {
	client *http.Client
}

func NewHttpClientFactory() *HttpClientFactory {
	return &HttpClientFactory{client: &http.Client{}}
}

func (f *HttpClientFactory) CreateClient(endpoint string) PeerClient {
	return NewHTTPPeerClient(endpoint, f.client)
}

// MockClientFactory hands out one MockPeerClient per endpoint so tests can
// script each peer separately.
type MockClientFactory struct {
	mu      sync.RWMutex
	clients map[string]*MockPeerClient
}

func NewMockClientFactory() *MockClientFactory {
	return &MockClientFactory{
		clients: make(map[string]*MockPeerClient),
	}
}

func (f *MockClientFactory) CreateClient(endpoint string) PeerClient {
	f.mu.Lock()
	defer f.mu.Unlock()

	if client, exists := f.clients[endpoint]; exists {
		return client
	}

	client := NewMockPeerClient()
	f.clients[endpoint] = client
	return client
}

func (f *MockClientFactory) GetClientForEndpoint(endpoint string) *MockPeerClient {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.clients[endpoint]
}

// ScriptClient pre-registers a mock for an endpoint before the code under
// test asks for it.
func (f *MockClientFactory) ScriptClient(endpoint string, client *MockPeerClient) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clients[endpoint] = client
}
