package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Remote proxies queries to an upstream advisor agent over HTTP.
//
// Every call is bounded by the client timeout — an agent that hangs must
// fail the request, not pin a server goroutine. No locks are held across
// the upstream call; the quota charge has already landed by the time Run
// is invoked and is not refunded if the upstream fails.
type Remote struct {
	url    string
	client *http.Client
}

// NewRemote creates a Remote pointing at url with the given call timeout.
func NewRemote(url string, timeout time.Duration) *Remote {
	return &Remote{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type remoteRequest struct {
	Message string `json:"message"`
}

type remoteResponse struct {
	Response string `json:"response"`
}

// Run POSTs the message to the upstream agent and returns its response.
func (a *Remote) Run(ctx context.Context, message string) (string, error) {
	body, err := json.Marshal(remoteRequest{Message: message})
	if err != nil {
		return "", fmt.Errorf("agent: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("agent: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("agent: calling upstream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("agent: upstream returned status %d", resp.StatusCode)
	}

	var out remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("agent: decoding upstream response: %w", err)
	}

	if out.Response == "" {
		return "", fmt.Errorf("agent: upstream returned an empty response")
	}

	return out.Response, nil
}
