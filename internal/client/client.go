// Package client calls a running examgen server's breakdown endpoint.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pavelanni/examgen/internal/model"
)

// GeneratePath is the breakdown endpoint relative to the server base URL.
const GeneratePath = "/api/generate-exam"

// ErrGenerationFailed is returned for any non-success response.
var ErrGenerationFailed = errors.New("failed to generate subjects")

// Client is an HTTP client for the breakdown endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the server at baseURL. A nil httpClient uses http.DefaultClient.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// Generate requests a breakdown for examName.
func (c *Client) Generate(ctx context.Context, examName string) (*model.ExamData, error) {
	body, err := json.Marshal(model.GenerateRequest{ExamName: examName})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+GeneratePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeError(resp)
	}

	var data model.ExamData
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrGenerationFailed, err)
	}
	return &data, nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var er model.ErrorResponse
	if err := json.Unmarshal(raw, &er); err != nil || er.Error == "" {
		return fmt.Errorf("%w: status %d", ErrGenerationFailed, resp.StatusCode)
	}
	if er.Details != "" {
		return fmt.Errorf("%w: status %d: %s: %s", ErrGenerationFailed, resp.StatusCode, er.Error, er.Details)
	}
	return fmt.Errorf("%w: status %d: %s", ErrGenerationFailed, resp.StatusCode, er.Error)
}
