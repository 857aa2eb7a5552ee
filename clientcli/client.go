package clientcli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sagarc03/shelf"
)

// DefaultTimeout is the default HTTP client timeout.
const DefaultTimeout = 30 * time.Second

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// Client performs operations against a shelf server.
type Client struct {
	endpoint   string
	httpClient *http.Client
	tokens     TokenSource
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithTokenSource sets where bearer tokens come from. Without one, requests
// are sent unauthenticated unless Config.Token is set.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// New creates a new Client with the given config and options.
func New(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		endpoint:   strings.TrimSuffix(cfg.Endpoint, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	if cfg.Token != "" {
		c.tokens = StaticToken(cfg.Token)
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Request describes one API call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	// Body is encoded as JSON when non-nil.
	Body any
}

// Do sends req and decodes a successful JSON response into T. An empty
// success body yields the zero T.
//
// Non-2xx responses and transport failures are returned as *APIError.
// Failures to build the request, encode the body, obtain a token or decode
// a success body are returned unchanged.
func Do[T any](ctx context.Context, c *Client, req Request) (T, error) {
	var zero T

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return zero, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return zero, &APIError{Message: DefaultErrorMessage, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return zero, parseServerError(resp.StatusCode, body)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, &APIError{Message: DefaultErrorMessage, Err: err}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return zero, nil
	}

	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		return zero, fmt.Errorf("decode %s %s response: %w", req.Method, req.Path, err)
	}
	return out, nil
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	u := c.endpoint + "/" + strings.TrimPrefix(req.Path, "/")
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("get token: %w", err)
		}
		if token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	return httpReq, nil
}

// parseServerError extracts the message from an error response: the
// "message" field, else the "error" field, else DefaultErrorMessage.
func parseServerError(statusCode int, body []byte) error {
	var payload struct {
		Message any `json:"message"`
		Error   any `json:"error"`
	}

	msg := DefaultErrorMessage
	if err := json.Unmarshal(body, &payload); err == nil {
		if s, ok := payload.Message.(string); ok && s != "" {
			msg = s
		} else if s, ok := payload.Error.(string); ok && s != "" {
			msg = s
		}
	}

	return &APIError{StatusCode: statusCode, Message: msg}
}

// ItemInput is the body of create and update requests.
type ItemInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Health checks that the server is up. It needs no credentials.
func (c *Client) Health(ctx context.Context) (shelf.HealthStatus, error) {
	return Do[shelf.HealthStatus](ctx, c, Request{Method: http.MethodGet, Path: "/health"})
}

// GetItems lists the caller's items.
func (c *Client) GetItems(ctx context.Context) ([]shelf.Item, error) {
	items, err := Do[[]shelf.Item](ctx, c, Request{Method: http.MethodGet, Path: "/items"})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []shelf.Item{}
	}
	return items, nil
}

// GetItem fetches one item.
func (c *Client) GetItem(ctx context.Context, id string) (shelf.Item, error) {
	if id == "" {
		return shelf.Item{}, ErrEmptyID
	}
	return Do[shelf.Item](ctx, c, Request{Method: http.MethodGet, Path: itemPath(id)})
}

// CreateItem creates an item.
func (c *Client) CreateItem(ctx context.Context, in ItemInput) (shelf.Item, error) {
	return Do[shelf.Item](ctx, c, Request{Method: http.MethodPost, Path: "/items", Body: in})
}

// UpdateItem replaces the name and description of an item.
func (c *Client) UpdateItem(ctx context.Context, id string, in ItemInput) (shelf.Item, error) {
	if id == "" {
		return shelf.Item{}, ErrEmptyID
	}
	return Do[shelf.Item](ctx, c, Request{Method: http.MethodPut, Path: itemPath(id), Body: in})
}

// DeleteItem deletes an item.
func (c *Client) DeleteItem(ctx context.Context, id string) (shelf.DeleteResult, error) {
	if id == "" {
		return shelf.DeleteResult{}, ErrEmptyID
	}
	return Do[shelf.DeleteResult](ctx, c, Request{Method: http.MethodDelete, Path: itemPath(id)})
}

func itemPath(id string) string {
	return "/items/" + url.PathEscape(id)
}

// IsAuthError reports whether err means the caller must sign in again.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrNotSignedIn) || errors.Is(err, ErrSessionExpired)
}
