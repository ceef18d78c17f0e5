package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// BankingClient calls the banking backend over HTTP. All failure modes
// (transport errors, non-2xx statuses, malformed bodies) are returned as
// descriptive errors for the pipeline to normalize; nothing panics.
type BankingClient struct {
	baseURL    string
	httpClient *http.Client
}

// BankingClientOptions configures a BankingClient.
type BankingClientOptions struct {
	// HTTPClient defaults to a client with a 30s timeout. Request timeouts
	// are this layer's responsibility, not the pipeline's.
	HTTPClient *http.Client
}

// NewBankingClient creates a client for the backend rooted at baseURL.
func NewBankingClient(baseURL string, optFns ...func(o *BankingClientOptions)) *BankingClient {
	opts := BankingClientOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &BankingClient{baseURL: baseURL, httpClient: opts.HTTPClient}
}

// bankingRequest is the wire shape of a banking tool invocation. Input is
// the caller's payload forwarded verbatim.
type bankingRequest struct {
	Tool  string `json:"tool"`
	Input any    `json:"input"`
}

// Execute POSTs {tool, input} to <baseURL>/tools/execute and returns the
// result payload. Bodies of the form {"result": …} are unwrapped; flat
// bodies are returned as-is.
func (c *BankingClient) Execute(ctx context.Context, toolName string, input any) (any, error) {
	if input == nil {
		input = map[string]any{}
	}
	body, err := json.Marshal(bankingRequest{Tool: toolName, Input: input})
	if err != nil {
		return nil, fmt.Errorf("failed to encode banking request for %s: %w", toolName, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tools/execute", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build banking request for %s: %w", toolName, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("banking backend unreachable for %s: %w", toolName, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read banking response for %s: %w", toolName, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("banking backend returned status %d for %s", resp.StatusCode, toolName)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("banking backend returned malformed body for %s: %w", toolName, err)
	}
	if result, ok := decoded["result"]; ok {
		return result, nil
	}
	return decoded, nil
}
