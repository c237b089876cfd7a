package chainclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"miner-node/utils"
)

// HTTPChainClient talks to a chain node's JSON API.
type HTTPChainClient struct {
	baseUrl string
	client  http.Client
}

func NewHTTPChainClient(baseUrl string) *HTTPChainClient {
	return &HTTPChainClient{
		baseUrl: baseUrl,
		client:  http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPChainClient) GetNetworkStatus(ctx context.Context) (*NetworkStatus, error) {
	requestUrl, err := url.JoinPath(c.baseUrl, "/v1/status")
	if err != nil {
		return nil, err
	}

	httpResp, err := utils.SendGetRequest(ctx, &c.client, requestUrl)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	if httpResp.StatusCode >= 400 {
		return nil, fmt.Errorf("GetNetworkStatus failed with status %d: %s", httpResp.StatusCode, string(body))
	}

	var status NetworkStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *HTTPChainClient) GetParticipants(ctx context.Context) ([]Participant, error) {
	requestUrl, err := url.JoinPath(c.baseUrl, "/v1/participants")
	if err != nil {
		return nil, err
	}

	httpResp, err := utils.SendGetRequest(ctx, &c.client, requestUrl)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	if httpResp.StatusCode >= 400 {
		return nil, fmt.Errorf("GetParticipants failed with status %d: %s", httpResp.StatusCode, string(body))
	}

	var resp struct {
		Participants []Participant `json:"participants"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	return resp.Participants, nil
}

// SubmitWeightsRequest is the body for POST /v1/weights.
type SubmitWeightsRequest struct {
	Submitter        string       `json:"submitter"`
	Weights          []WeightPair `json:"weights"`
	WaitForInclusion bool         `json:"wait_for_inclusion"`
}

func (c *HTTPChainClient) SubmitWeights(ctx context.Context, submitter string, pairs []WeightPair, waitForInclusion bool) error {
	requestUrl, err := url.JoinPath(c.baseUrl, "/v1/weights")
	if err != nil {
		return err
	}

	req := SubmitWeightsRequest{
		Submitter:        submitter,
		Weights:          pairs,
		WaitForInclusion: waitForInclusion,
	}

	httpResp, err := utils.SendPostJsonRequest(ctx, &c.client, requestUrl, req)
	if err != nil {
		return err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return err
	}

	if httpResp.StatusCode >= 400 {
		return fmt.Errorf("SubmitWeights failed with status %d: %s", httpResp.StatusCode, string(body))
	}
	return nil
}

var _ ChainBridge = (*HTTPChainClient)(nil)
