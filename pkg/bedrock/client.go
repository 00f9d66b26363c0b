// Package bedrock is a minimal HTTP client for the AWS Bedrock runtime:
// Converse for chat-style models, InvokeModel for single-turn models, and a
// best-effort CountTokens. Retry and identifier fallback live in the engine,
// not here.
package bedrock

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Message is a role-tagged chat message with text content blocks.
type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// ContentBlock is a single text block within a message.
type ContentBlock struct {
	Text string `json:"text"`
}

// InferenceConfig carries sampling parameters for a Converse call.
type InferenceConfig struct {
	MaxTokens   int     `json:"maxTokens"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"topP"`
}

// ConverseRequest is the chat-style request body.
type ConverseRequest struct {
	Messages        []Message       `json:"messages"`
	InferenceConfig InferenceConfig `json:"inferenceConfig"`
}

// TokenUsage holds authoritative token counts reported by the API.
type TokenUsage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
	TotalTokens  int `json:"totalTokens"`
}

// ConverseResponse is the chat-style response body.
type ConverseResponse struct {
	Output struct {
		Message Message `json:"message"`
	} `json:"output"`
	StopReason string      `json:"stopReason"`
	Usage      *TokenUsage `json:"usage"`
}

// Text concatenates the text blocks of the response message.
func (r *ConverseResponse) Text() string {
	var b strings.Builder
	for _, block := range r.Output.Message.Content {
		b.WriteString(block.Text)
	}
	return b.String()
}

// APIError is a Bedrock error response. Code carries the provider error
// type (e.g. ValidationException) used by the engine to classify retries.
type APIError struct {
	Code       string
	Message    string
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bedrock api error (%s): %s", e.Code, e.Message)
}

// Client calls the Bedrock runtime over HTTPS with SigV4-signed requests.
type Client struct {
	cfg  Config
	http *http.Client
	base string
}

// New creates a Client from the given configuration.
func New(cfg Config) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 120 * time.Second},
		base: cfg.BaseURL(),
	}
}

// Converse calls the chat-style endpoint for modelID.
func (c *Client) Converse(ctx context.Context, modelID string, req ConverseRequest) (*ConverseResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal converse request: %w", err)
	}

	body, err := c.post(ctx, "/model/"+url.PathEscape(modelID)+"/converse", payload)
	if err != nil {
		return nil, err
	}

	var resp ConverseResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse converse response (first bytes: %s): %w", leading(body, 500), err)
	}
	return &resp, nil
}

// Invoke calls the single-turn endpoint for modelID with a provider-specific
// body and returns the raw response body.
func (c *Client) Invoke(ctx context.Context, modelID string, reqBody []byte) ([]byte, error) {
	return c.post(ctx, "/model/"+url.PathEscape(modelID)+"/invoke", reqBody)
}

// CountTokens asks the runtime for the exact billable token count of a
// request body. It is best-effort: any failure returns 0 so callers fall
// back to estimation.
func (c *Client) CountTokens(ctx context.Context, modelID string, reqBody []byte) int {
	body, err := c.post(ctx, "/model/"+url.PathEscape(modelID)+"/count-tokens", reqBody)
	if err != nil {
		return 0
	}
	var resp struct {
		TotalTokens     int `json:"totalTokens"`
		InputTokenCount int `json:"inputTokenCount"`
		TokenCount      int `json:"tokenCount"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0
	}
	switch {
	case resp.TotalTokens > 0:
		return resp.TotalTokens
	case resp.InputTokenCount > 0:
		return resp.InputTokenCount
	default:
		return resp.TokenCount
	}
}

func (c *Client) post(ctx context.Context, path string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	signRequest(req, c.cfg, hexSHA256(payload), time.Now())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, parseAPIError(resp, body)
	}
	return body, nil
}

// parseAPIError extracts the provider error code and message. The code
// arrives in the X-Amzn-Errortype header (possibly suffixed with a URI) or
// in the body's __type field.
func parseAPIError(resp *http.Response, body []byte) *APIError {
	apiErr := &APIError{Code: "Unknown", StatusCode: resp.StatusCode}

	if code := resp.Header.Get("X-Amzn-Errortype"); code != "" {
		apiErr.Code, _, _ = strings.Cut(code, ":")
	}

	var parsed struct {
		Type    string `json:"__type"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if apiErr.Code == "Unknown" && parsed.Type != "" {
			// __type may be a full URI ending in the exception name.
			if i := strings.LastIndex(parsed.Type, "#"); i >= 0 {
				apiErr.Code = parsed.Type[i+1:]
			} else {
				apiErr.Code = parsed.Type
			}
		}
		apiErr.Message = parsed.Message
	}
	if apiErr.Message == "" {
		apiErr.Message = leading(body, 200)
	}
	return apiErr
}

// leading returns at most n leading bytes of b as a string, for diagnostics.
func leading(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
