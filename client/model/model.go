package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/andybalholm/brotli"

	"ghosttab/logger"
	"ghosttab/types"
)

// completionRequest is the wire format for the completions endpoint.
type completionRequest struct {
	Model         string        `json:"model"`
	Messages      []wireMessage `json:"messages"`
	StopSequences []string      `json:"stop_sequences,omitempty"`
	MaxTokens     int           `json:"max_tokens"`
	Temperature   float64       `json:"temperature"`
	TopK          int           `json:"top_k,omitempty"`
}

type wireMessage struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// completionResponse is the wire format of a completion result.
type completionResponse struct {
	Completion string `json:"completion"`
	StopReason string `json:"stop_reason"`
}

// Client is the HTTP client for the external completions service.
type Client struct {
	HTTPClient *http.Client
	URL        string
	AuthToken  string
}

// NewClient creates a completions client. timeoutMs is the HTTP client
// timeout in milliseconds (0 = no timeout; the caller's context still
// applies).
func NewClient(url, apiKey string, timeoutMs int) *Client {
	timeout := time.Duration(0)
	if timeoutMs > 0 {
		timeout = time.Duration(timeoutMs) * time.Millisecond
	}
	return &Client{
		HTTPClient: &http.Client{Timeout: timeout},
		URL:        url,
		AuthToken:  apiKey,
	}
}

// Complete sends one completion request. Retry/backoff is out of scope here;
// the orchestrator treats any error as zero candidates for that branch.
func (c *Client) Complete(ctx context.Context, params *types.CompletionParams) (*types.CompletionResponse, error) {
	defer logger.Trace("model.Complete")()

	req := &completionRequest{
		Model:         params.Model,
		StopSequences: params.StopSequences,
		MaxTokens:     params.MaxTokens,
		Temperature:   params.Temperature,
		TopK:          params.TopK,
	}
	for _, m := range params.Messages {
		req.Messages = append(req.Messages, wireMessage{Speaker: string(m.Speaker), Text: m.Text})
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	// Compress with brotli (quality 1 for speed)
	var compressedBuf bytes.Buffer
	brotliWriter := brotli.NewWriterLevel(&compressedBuf, 1)
	if _, err := brotliWriter.Write(jsonData); err != nil {
		return nil, fmt.Errorf("failed to compress request: %w", err)
	}
	if err := brotliWriter.Close(); err != nil {
		return nil, fmt.Errorf("failed to close brotli writer: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.URL, &compressedBuf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Content-Encoding", "br")
	httpReq.Header.Set("Accept-Encoding", "br")
	if c.AuthToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.AuthToken)
	}

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "br" {
		reader = brotli.NewReader(resp.Body)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(reader)
		return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var apiResp completionResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &types.CompletionResponse{
		Completion: apiResp.Completion,
		StopReason: apiResp.StopReason,
	}, nil
}
