package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// SendPostJsonRequest POSTs body as JSON and returns the raw response.
// Callers own the response body and the status check.
func SendPostJsonRequest(ctx context.Context, client *http.Client, url string, body interface{}) (*http.Response, error) {
	return SendPostJsonRequestWithHeaders(ctx, client, url, body, nil)
}

// SendPostJsonRequestWithHeaders is SendPostJsonRequest with extra request headers.
func SendPostJsonRequestWithHeaders(ctx context.Context, client *http.Client, url string, body interface{}, headers map[string]string) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return client.Do(req)
}

// SendGetRequest issues a GET and returns the raw response.
func SendGetRequest(ctx context.Context, client *http.Client, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return client.Do(req)
}
