package chainclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPChainClient_GetNetworkStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/status", r.URL.Path)
		json.NewEncoder(w).Encode(NetworkStatus{NetworkId: "nakamoto", BlockHeight: 42})
	}))
	defer srv.Close()

	client := NewHTTPChainClient(srv.URL)
	status, err := client.GetNetworkStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "nakamoto", status.NetworkId)
	assert.Equal(t, int64(42), status.BlockHeight)
}

func TestHTTPChainClient_GetParticipants(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/participants", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"participants": []Participant{
				{Address: "peer0", Stake: 100, Active: true, Endpoint: "http://peer0:8091"},
				{Address: "peer1", Stake: 50, Active: false, Endpoint: "http://peer1:8091"},
			},
		})
	}))
	defer srv.Close()

	client := NewHTTPChainClient(srv.URL)
	participants, err := client.GetParticipants(context.Background())
	require.NoError(t, err)
	require.Len(t, participants, 2)
	assert.Equal(t, "peer0", participants[0].Address)
	assert.True(t, participants[0].Active)
	assert.Equal(t, 50.0, participants[1].Stake)
}

func TestHTTPChainClient_SubmitWeights(t *testing.T) {
	var received SubmitWeightsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/weights", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewHTTPChainClient(srv.URL)
	pairs := []WeightPair{{PeerIndex: 3, Weight: 0.7}, {PeerIndex: 1, Weight: 0.3}}
	err := client.SubmitWeights(context.Background(), "miner1q2w3e", pairs, true)
	require.NoError(t, err)

	assert.Equal(t, "miner1q2w3e", received.Submitter)
	assert.Equal(t, pairs, received.Weights)
	assert.True(t, received.WaitForInclusion)
}

func TestHTTPChainClient_SubmitWeights_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "tx rejected", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	client := NewHTTPChainClient(srv.URL)
	err := client.SubmitWeights(context.Background(), "miner1q2w3e", []WeightPair{{PeerIndex: 0, Weight: 1}}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
}

func TestNewChainClientWithRetry_EventualSuccess(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "starting up", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(NetworkStatus{NetworkId: "nakamoto", BlockHeight: 1})
	}))
	defer srv.Close()

	client, err := NewChainClientWithRetry(context.Background(), srv.URL, 5, 10*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, client)
	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestNewChainClientWithRetry_GivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewChainClientWithRetry(context.Background(), srv.URL, 2, time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unreachable after 2 attempts")
}

type heightRecorder struct {
	heights chan int64
}

func (r *heightRecorder) UpdateHeight(height int64) {
	r.heights <- height
}

func TestBlockSubscriber_DeliversHeights(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		for _, h := range []int64{7, 8} {
			require.NoError(t, conn.WriteJSON(BlockEvent{Type: "new_block", Height: h}))
		}
		// ignored by the subscriber
		require.NoError(t, conn.WriteJSON(BlockEvent{Type: "other", Height: 99}))

		// hold the connection open until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	wsUrl := "ws" + strings.TrimPrefix(srv.URL, "http")
	recorder := &heightRecorder{heights: make(chan int64, 8)}
	subscriber := NewBlockSubscriber(wsUrl, recorder)
	defer subscriber.Close()

	for _, expected := range []int64{7, 8} {
		select {
		case h := <-recorder.heights:
			assert.Equal(t, expected, h)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for height %d", expected)
		}
	}

	select {
	case h := <-recorder.heights:
		t.Fatalf("unexpected extra height %d", h)
	case <-time.After(100 * time.Millisecond):
	}
}
