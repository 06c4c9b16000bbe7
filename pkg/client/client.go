// Package client is a Go client for the study rooms API: a typed REST façade, session and
// connection state stores, and a reconnecting realtime websocket client.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTimeout bounds a single REST call.
const DefaultTimeout = 30 * time.Second

// ErrorKind classifies an API failure the way the server's error taxonomy does.
type ErrorKind string

const (
	KindValidation      ErrorKind = "validation"
	KindUnauthenticated ErrorKind = "unauthenticated"
	KindForbidden       ErrorKind = "forbidden"
	KindNotFound        ErrorKind = "not_found"
	KindConflict        ErrorKind = "conflict"
	KindTooLarge        ErrorKind = "too_large"
	KindRateLimited     ErrorKind = "rate_limited"
	KindServer          ErrorKind = "server"
)

// APIError is returned for every non-2xx response.
type APIError struct {
	Status  int
	Kind    ErrorKind
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("%s (%d)", e.Message, e.Status)
	}
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+e.Fields[field])
	}
	return fmt.Sprintf("%s (%d): %s", e.Message, e.Status, strings.Join(parts, "; "))
}

// IsKind reports whether err is an APIError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

func kindForStatus(status int) ErrorKind {
	switch status {
	case http.StatusBadRequest:
		return KindValidation
	case http.StatusUnauthorized:
		return KindUnauthenticated
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	case http.StatusRequestEntityTooLarge:
		return KindTooLarge
	case http.StatusTooManyRequests:
		return KindRateLimited
	default:
		return KindServer
	}
}

// Page is one window of a paginated listing.
type Page[T any] struct {
	Items []T
	Page  int
	Limit int
	Total int64
}

// ListOptions carries paging and filters; zero values are omitted from the query.
type ListOptions struct {
	Page   int
	Limit  int
	Query  string
	Type   string
	Status string
}

func (o ListOptions) values() url.Values {
	values := url.Values{}
	if o.Page > 0 {
		values.Set("page", strconv.Itoa(o.Page))
	}
	if o.Limit > 0 {
		values.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Query != "" {
		values.Set("q", o.Query)
	}
	if o.Type != "" {
		values.Set("type", o.Type)
	}
	if o.Status != "" {
		values.Set("status", o.Status)
	}
	return values
}

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Meta    *pageMeta         `json:"meta"`
	Details map[string]string `json:"details"`
}

type pageMeta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// Client calls the REST API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger

	mu                sync.RWMutex
	token             string
	onUnauthenticated func()
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger.With().Str("component", "api_client").Logger()
	}
}

// WithToken seeds the bearer token.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// New creates a client rooted at baseURL, e.g. "http://localhost:8000".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken replaces the bearer token sent with every request. An empty token sends none.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// OnUnauthenticated registers a hook that runs whenever the server answers 401.
func (c *Client) OnUnauthenticated(hook func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthenticated = hook
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out interface{}) (*pageMeta, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	contentType := ""
	if body != nil {
		contentType = "application/json"
	}
	return c.do(ctx, method, path, query, reader, contentType, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string, out interface{}) (*pageMeta, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var payload envelope
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		if resp.StatusCode >= 300 {
			return nil, c.fail(resp.StatusCode, http.StatusText(resp.StatusCode), nil)
		}
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := payload.Message
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return nil, c.fail(resp.StatusCode, message, payload.Details)
	}

	if out != nil && len(payload.Data) > 0 && string(payload.Data) != "null" {
		if err := json.Unmarshal(payload.Data, out); err != nil {
			return nil, fmt.Errorf("decode response data: %w", err)
		}
	}
	return payload.Meta, nil
}

func (c *Client) fail(status int, message string, fields map[string]string) error {
	apiErr := &APIError{Status: status, Kind: kindForStatus(status), Message: message, Fields: fields}
	c.logger.Debug().Int("status", status).Str("message", message).Msg("api request failed")

	if status == http.StatusUnauthorized {
		c.mu.RLock()
		hook := c.onUnauthenticated
		c.mu.RUnlock()
		if hook != nil {
			hook()
		}
	}
	return apiErr
}

func list[T any](ctx context.Context, c *Client, path string, query url.Values) (Page[T], error) {
	var items []T
	meta, err := c.doJSON(ctx, http.MethodGet, path, query, nil, &items)
	if err != nil {
		return Page[T]{}, err
	}
	page := Page[T]{Items: items}
	if meta != nil {
		page.Page, page.Limit, page.Total = meta.Page, meta.Limit, meta.Total
	}
	return page, nil
}
