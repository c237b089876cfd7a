package peerclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"miner-node/utils"

	"github.com/google/uuid"
)

const ForwardPath = "/v1/forward"

// ForwardRequest is the query sent to a peer: project these inputs through
// your model and return a hidden vector of the requested width.
type ForwardRequest struct {
	RoundId   string    `json:"round_id"`
	Requester string    `json:"requester"`
	NetworkId string    `json:"network_id"`
	Inputs    []float64 `json:"inputs"`
	Width     int       `json:"width"`
}

// ForwardResponse carries the peer's hidden-state vector.
type ForwardResponse struct {
	Hidden []float64 `json:"hidden"`
}

// HTTPPeerClient talks to one peer endpoint over HTTP JSON.
type HTTPPeerClient struct {
	endpoint string
	client   *http.Client
}

func NewHTTPPeerClient(endpoint string, client *http.Client) *HTTPPeerClient {
	return &HTTPPeerClient{endpoint: endpoint, client: client}
}

func (c *HTTPPeerClient) Forward(ctx context.Context, req ForwardRequest) (*ForwardResponse, error) {
	requestUrl, err := url.JoinPath(c.endpoint, ForwardPath)
	if err != nil {
		return nil, NewApplicationError(fmt.Errorf("bad peer endpoint %q: %w", c.endpoint, err))
	}

	headers := map[string]string{
		utils.XRequestIdHeader:        uuid.New().String(),
		utils.XRoundIdHeader:          req.RoundId,
		utils.XRequesterAddressHeader: req.Requester,
		utils.XNetworkIdHeader:        req.NetworkId,
	}

	resp, err := utils.SendPostJsonRequestWithHeaders(ctx, c.client, requestUrl, req, headers)
	if err != nil {
		return nil, NewTransportError(fmt.Errorf("forward to %s: %w", c.endpoint, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewTransportError(fmt.Errorf("read forward response from %s: %w", c.endpoint, err))
	}
	if resp.StatusCode >= 400 {
		return nil, NewApplicationError(fmt.Errorf("forward to %s failed with status %d: %s", c.endpoint, resp.StatusCode, string(body)))
	}

	var out ForwardResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, NewApplicationError(fmt.Errorf("decode forward response from %s: %w", c.endpoint, err))
	}
	if len(out.Hidden) != req.Width {
		return nil, NewApplicationError(fmt.Errorf("peer %s returned width %d, want %d", c.endpoint, len(out.Hidden), req.Width))
	}

	return &out, nil
}
