// Package client is a Go SDK for the diagnosis-engine HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/terra-clan/diagnosis-engine/internal/models"
)

// Client is a Go SDK for diagnosis-engine API
type Client struct {
	baseURL    string
	userID     string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithUserID scopes every venue request to a user
func WithUserID(userID string) Option {
	return func(c *Client) {
		c.userID = userID
	}
}

// NewClient creates a new diagnosis-engine client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is an error returned by the server in the response envelope
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: %s - %s", e.Code, e.Message)
}

// IsNotFound reports whether err is a 404 returned by the server
func IsNotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Status == http.StatusNotFound
}

// Tally is the correct/incorrect view of a block
type Tally struct {
	BlockID    string `json:"blockId"`
	Correct    int    `json:"correct"`
	Answered   int    `json:"answered"`
	Total      int    `json:"total"`
	Efficiency *int   `json:"efficiency"`
}

// ListCatalogBlocks returns the question catalog
func (c *Client) ListCatalogBlocks(ctx context.Context) ([]*models.Block, error) {
	var data struct {
		Blocks []*models.Block `json:"blocks"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/catalog/blocks", nil, &data); err != nil {
		return nil, err
	}
	return data.Blocks, nil
}

// ListBlocks returns the merged block states of a venue
func (c *Client) ListBlocks(ctx context.Context, venueID string) ([]models.BlockState, error) {
	var data struct {
		Blocks []models.BlockState `json:"blocks"`
	}
	if err := c.call(ctx, http.MethodGet, venuePath(venueID, "/blocks"), nil, &data); err != nil {
		return nil, err
	}
	return data.Blocks, nil
}

// GetBlockEfficiency returns one block's state
func (c *Client) GetBlockEfficiency(ctx context.Context, venueID, blockID string) (*models.BlockState, error) {
	var state models.BlockState
	if err := c.call(ctx, http.MethodGet, venuePath(venueID, "/blocks/"+url.PathEscape(blockID)), nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// GetOverallEfficiency returns the venue average over completed blocks
func (c *Client) GetOverallEfficiency(ctx context.Context, venueID string) (int, error) {
	var data struct {
		Efficiency int `json:"efficiency"`
	}
	if err := c.call(ctx, http.MethodGet, venuePath(venueID, "/efficiency"), nil, &data); err != nil {
		return 0, err
	}
	return data.Efficiency, nil
}

// GetTally returns the correct/incorrect tally of a block
func (c *Client) GetTally(ctx context.Context, venueID, blockID string) (*Tally, error) {
	var tally Tally
	if err := c.call(ctx, http.MethodGet, venuePath(venueID, "/blocks/"+url.PathEscape(blockID)+"/tally"), nil, &tally); err != nil {
		return nil, err
	}
	return &tally, nil
}

// RecordAnswer selects an option for a question and returns the updated block
func (c *Client) RecordAnswer(ctx context.Context, venueID, blockID, questionID, optionID string) (*models.BlockState, error) {
	req := map[string]string{"questionId": questionID, "optionId": optionID}
	var state models.BlockState
	if err := c.call(ctx, http.MethodPut, venuePath(venueID, "/blocks/"+url.PathEscape(blockID)+"/answers"), req, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// ResetBlock clears a block's answers
func (c *Client) ResetBlock(ctx context.Context, venueID, blockID string) error {
	return c.call(ctx, http.MethodDelete, venuePath(venueID, "/blocks/"+url.PathEscape(blockID)+"/answers"), nil, nil)
}

// GetTasksForBlock returns gain-annotated tasks of a block
func (c *Client) GetTasksForBlock(ctx context.Context, venueID, blockID string) ([]models.Task, error) {
	var data struct {
		Tasks []models.Task `json:"tasks"`
	}
	if err := c.call(ctx, http.MethodGet, venuePath(venueID, "/blocks/"+url.PathEscape(blockID)+"/tasks"), nil, &data); err != nil {
		return nil, err
	}
	return data.Tasks, nil
}

// SetTaskCompleted toggles a task's completion flag
func (c *Client) SetTaskCompleted(ctx context.Context, venueID, blockID, taskID string, completed bool) (*models.Task, error) {
	path := venuePath(venueID, "/blocks/"+url.PathEscape(blockID)+"/tasks/"+url.PathEscape(taskID))
	var task models.Task
	if err := c.call(ctx, http.MethodPut, path, map[string]bool{"completed": completed}, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// GetHistory returns the venue's efficiency history
func (c *Client) GetHistory(ctx context.Context, venueID string) (*models.HistoryView, error) {
	var view models.HistoryView
	if err := c.call(ctx, http.MethodGet, venuePath(venueID, "/history"), nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// DeleteHistoryEntry removes a history entry
func (c *Client) DeleteHistoryEntry(ctx context.Context, venueID, entryID string) error {
	return c.call(ctx, http.MethodDelete, venuePath(venueID, "/history/"+url.PathEscape(entryID)), nil, nil)
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	return c.call(ctx, http.MethodGet, "/health", nil, nil)
}

func venuePath(venueID, suffix string) string {
	return "/api/v1/venues/" + url.PathEscape(venueID) + suffix
}

// call performs a request and decodes the envelope's data into out (when non-nil)
func (c *Client) call(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	status, resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	var result struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *APIError       `json:"error"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return fmt.Errorf("failed to unmarshal response (HTTP %d): %w", status, err)
	}

	if !result.Success {
		apiErr := result.Error
		if apiErr == nil {
			apiErr = &APIError{Code: "unknown", Message: http.StatusText(status)}
		}
		apiErr.Status = status
		return apiErr
	}

	if out == nil || len(result.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(result.Data, out); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}
	return nil
}

// doRequest performs an HTTP request
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.userID != "" {
		req.Header.Set("X-User-ID", c.userID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}

	return resp.StatusCode, respBody, nil
}
