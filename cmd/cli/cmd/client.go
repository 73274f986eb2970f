package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"productory/pkg/api"
)

// JobClient handles API calls to the productory controller.
type JobClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewJobClient creates a new client with the given base URL and token.
func NewJobClient(baseURL, token string) *JobClient {
	return &JobClient{
		BaseURL: baseURL,
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// newAPIError prefers the server's error field over the raw body.
func newAPIError(status int, body []byte) *APIError {
	var er api.ErrorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error != "" {
		return &APIError{StatusCode: status, Message: er.Error}
	}
	return &APIError{StatusCode: status, Message: string(bytes.TrimSpace(body))}
}

func (c *JobClient) do(method, path string, body io.Reader, contentType string, out interface{}) error {
	httpReq, err := http.NewRequest(method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if c.Token != "" {
		httpReq.Header.Add("Authorization", fmt.Sprintf("Bearer %s", c.Token))
	}
	if contentType != "" {
		httpReq.Header.Add("Content-Type", contentType)
	}

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, respBody)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *JobClient) doJSON(method, path string, in, out interface{}) error {
	if in == nil {
		return c.do(method, path, nil, "", out)
	}
	bodyBytes, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.do(method, path, bytes.NewReader(bodyBytes), "application/json", out)
}

// CreateUser sends POST /users. The client token must be the admin token, if one is configured.
func (c *JobClient) CreateUser(req api.CreateUserRequest) (*api.CreateUserResponse, error) {
	var result api.CreateUserResponse
	if err := c.doJSON(http.MethodPost, "/users", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateJob sends POST /jobs to enqueue a new job.
func (c *JobClient) CreateJob(req api.CreateJobRequest) (*api.CreateJobResponse, error) {
	var result api.CreateJobResponse
	if err := c.doJSON(http.MethodPost, "/jobs", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetJob sends GET /jobs/{id}.
func (c *JobClient) GetJob(jobID string) (*api.JobResponse, error) {
	var result api.JobResponse
	if err := c.doJSON(http.MethodGet, "/jobs/"+url.PathEscape(jobID), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListJobs sends GET /jobs, filtered by status when it is not empty.
func (c *JobClient) ListJobs(status string) ([]api.JobResponse, error) {
	path := "/jobs"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	var result api.ListJobsResponse
	if err := c.doJSON(http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Jobs, nil
}

// GetLogs sends GET /jobs/{id}/logs.
func (c *JobClient) GetLogs(jobID string) ([]api.LogEntry, error) {
	var result api.GetLogsResponse
	if err := c.doJSON(http.MethodGet, "/jobs/"+url.PathEscape(jobID)+"/logs", nil, &result); err != nil {
		return nil, err
	}
	return result.Logs, nil
}

// UploadFile sends the file at path as the "file" part of POST /files.
func (c *JobClient) UploadFile(path string) (*api.FileResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}

	var result api.FileResponse
	if err := c.do(http.MethodPost, "/files", &buf, mw.FormDataContentType(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListFiles sends GET /files.
func (c *JobClient) ListFiles() ([]api.FileResponse, error) {
	var result api.ListFilesResponse
	if err := c.doJSON(http.MethodGet, "/files", nil, &result); err != nil {
		return nil, err
	}
	return result.Files, nil
}

// FileURLs sends GET /files/{name}/urls.
func (c *JobClient) FileURLs(name string) (*api.FileURLsResponse, error) {
	var result api.FileURLsResponse
	if err := c.doJSON(http.MethodGet, "/files/"+url.PathEscape(name)+"/urls", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteFile sends DELETE /files/{name}.
func (c *JobClient) DeleteFile(name string) error {
	return c.doJSON(http.MethodDelete, "/files/"+url.PathEscape(name), nil, nil)
}
