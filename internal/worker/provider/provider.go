// Package provider is the HTTP client for the external speech-to-text and summary service.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TranscribeRequest is sent to POST /v1/transcriptions.
// AudioURL points at the upload as stored; the provider converts it to the
// Target* format before transcribing.
type TranscribeRequest struct {
	AudioURL         string `json:"audioUrl"`
	ContentType      string `json:"contentType,omitempty"`
	TargetFormat     string `json:"targetFormat"`
	TargetSampleRate int    `json:"targetSampleRate"`
	TargetChannels   int    `json:"targetChannels"`
	Language         string `json:"language,omitempty"`
	Model            string `json:"model,omitempty"`
	Timestamps       bool   `json:"timestamps,omitempty"`
}

// TranscribeResponse is returned by POST /v1/transcriptions.
type TranscribeResponse struct {
	Text            string  `json:"text"`
	Language        string  `json:"language"`
	DurationSeconds float64 `json:"durationSeconds"`
}

// SummarizeRequest is sent to POST /v1/summaries.
type SummarizeRequest struct {
	TranscriptionID string `json:"transcriptionId"`
	Text            string `json:"text,omitempty"`
	Style           string `json:"style,omitempty"`
	MaxLength       int    `json:"maxLength,omitempty"`
}

// SummarizeResponse is returned by POST /v1/summaries.
type SummarizeResponse struct {
	Summary string `json:"summary"`
}

// Transcriber is what the worker needs from a provider.
type Transcriber interface {
	Transcribe(ctx context.Context, req TranscribeRequest) (*TranscribeResponse, error)
	Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error)
}

// APIError is a non-2xx response from the provider.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider error (%d): %s", e.StatusCode, e.Message)
}

// Temporary reports whether retrying the same request may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsPermanent reports whether err is a provider rejection that will not succeed on retry.
func IsPermanent(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return !apiErr.Temporary()
	}
	return false
}

// Client calls the provider over HTTP.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a client. timeout bounds each request.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Transcribe(ctx context.Context, req TranscribeRequest) (*TranscribeResponse, error) {
	var out TranscribeResponse
	if err := c.post(ctx, "/v1/transcriptions", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error) {
	var out SummarizeResponse
	if err := c.post(ctx, "/v1/summaries", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
