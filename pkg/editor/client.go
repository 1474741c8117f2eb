package editor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"post-reorder-backend/pkg/models"
	"post-reorder-backend/pkg/utils"

	"go.uber.org/zap"
)

// SortAction is the ajax action that persists an order.
const SortAction = "post_sort"

// Submission is one post_sort request.
type Submission struct {
	PostType string
	Nonce    string
	Order    string
}

// APIError is a non-success envelope returned by the server. Report is set
// when the server got as far as writing.
type APIError struct {
	Status  int
	Code    string
	Message string
	Report  *models.ReorderReport
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// SubmitResult is delivered by SubmitAsync.
type SubmitResult struct {
	Report models.ReorderReport
	Err    error
}

// Client talks to the listing, nonce and ajax endpoints as one user.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for asynchronous submissions.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient returns a client for the server at baseURL that authenticates
// with a session token.
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *utils.APIError `json:"error"`
}

func (c *Client) do(req *http.Request, out interface{}) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return &APIError{Status: resp.StatusCode, Code: "BAD_RESPONSE", Message: http.StatusText(resp.StatusCode)}
	}
	if !env.Success {
		apiErr := &APIError{Status: resp.StatusCode, Code: "ERROR", Message: http.StatusText(resp.StatusCode)}
		if env.Error != nil {
			apiErr.Code, apiErr.Message = env.Error.Code, env.Error.Message
		}
		if len(env.Data) > 0 && string(env.Data) != "null" {
			var report models.ReorderReport
			if err := json.Unmarshal(env.Data, &report); err == nil && report.Outcome != "" {
				apiErr.Report = &report
			}
		}
		return apiErr
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

// FetchItems lists the items of a post type in the page's order.
func (c *Client) FetchItems(ctx context.Context, postType string) ([]models.Item, error) {
	var items []models.Item
	if err := c.get(ctx, "/api/items", url.Values{"post_type": {postType}}, &items); err != nil {
		return nil, fmt.Errorf("failed to fetch items: %w", err)
	}
	return items, nil
}

// FetchNonce obtains a sort nonce for the current user.
func (c *Client) FetchNonce(ctx context.Context, postType string) (string, error) {
	var payload struct {
		Nonce string `json:"nonce"`
	}
	if err := c.get(ctx, "/api/nonce", url.Values{"post_type": {postType}}, &payload); err != nil {
		return "", fmt.Errorf("failed to fetch nonce: %w", err)
	}
	if payload.Nonce == "" {
		return "", errors.New("server returned an empty nonce")
	}
	return payload.Nonce, nil
}

// Submit sends the order. An empty order is not sent and yields an empty
// full report.
func (c *Client) Submit(ctx context.Context, sub Submission) (models.ReorderReport, error) {
	if strings.TrimSpace(sub.Order) == "" {
		return models.NewReorderReport(0, 0, nil), nil
	}
	form := url.Values{
		"action":    {SortAction},
		"nonce":     {sub.Nonce},
		"order":     {sub.Order},
		"post_type": {sub.PostType},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/admin/ajax", strings.NewReader(form.Encode()))
	if err != nil {
		return models.ReorderReport{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")

	var report models.ReorderReport
	if err := c.do(req, &report); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Report != nil {
			return *apiErr.Report, err
		}
		return models.ReorderReport{}, err
	}
	return report, nil
}

// SubmitAsync sends the order in the background and delivers the outcome on
// the returned channel. There is no retry and no ordering between calls:
// overlapping submissions finish in any order and the last write wins.
func (c *Client) SubmitAsync(ctx context.Context, sub Submission) <-chan SubmitResult {
	ch := make(chan SubmitResult, 1)
	go func() {
		defer close(ch)
		report, err := c.Submit(ctx, sub)
		if err != nil {
			c.logger.Warn("order submission failed", zap.String("post_type", sub.PostType), zap.Error(err))
		}
		ch <- SubmitResult{Report: report, Err: err}
	}()
	return ch
}
