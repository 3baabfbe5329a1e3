// Package client talks to the collection REST endpoints on behalf of the
// admin stores. Requests are single shot; nothing is retried.
package client

import (
	"clinicadmin/internal/adapters/exports"
	"clinicadmin/internal/config"
	"clinicadmin/internal/logger"
	"clinicadmin/pkg/domain"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
)

const apiPrefix = "/api/v1"

// APIError is a non-2xx response from the server.
type APIError struct {
	Status     int                 `json:"-"`
	Message    string              `json:"error"`
	Fields     []domain.FieldError `json:"fields,omitempty"`
	Violations []domain.Violation  `json:"violations,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Unwrap lets errors.Is(err, domain.ErrNotFound) match 404 responses.
func (e *APIError) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return domain.ErrNotFound
	}
	return nil
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient swaps the transport, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = resty.NewWithClient(hc)
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// Client is a thin resty wrapper bound to one server.
type Client struct {
	http    *resty.Client
	log     logger.Logger
	baseURL string
}

// New validates cfg and builds a client.
func New(cfg config.ClientConfig, opts ...Option) (*Client, error) {
	base, err := buildBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{http: resty.New(), log: logger.Nop(), baseURL: base}
	for _, opt := range opts {
		opt(c)
	}
	c.http.
		SetBaseURL(base).
		SetHeader("Accept", "application/json").
		SetRetryCount(0)
	if cfg.Timeout > 0 {
		c.http.SetTimeout(cfg.Timeout)
	}
	return c, nil
}

func buildBaseURL(raw string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	if !parsed.IsAbs() || parsed.Host == "" {
		return "", fmt.Errorf("base URL must be absolute, got: %q", raw)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("base URL scheme must be http or https, got: %s", parsed.Scheme)
	}
	return strings.TrimSuffix(parsed.String(), "/") + apiPrefix, nil
}

// BaseURL returns the resolved API root.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	req := c.http.R().SetContext(ctx).SetError(&APIError{})
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	c.log.Debug("api request completed", "method", method, "path", path, "status", resp.StatusCode())
	if !resp.IsError() {
		return nil
	}
	if apiErr, ok := resp.Error().(*APIError); ok && apiErr != nil && apiErr.Message != "" {
		apiErr.Status = resp.StatusCode()
		return apiErr
	}
	return &APIError{Status: resp.StatusCode(), Message: strings.TrimSpace(resp.String())}
}

// Collection is the typed endpoint for one entity.
type Collection[T domain.Record] struct {
	c      *Client
	entity domain.EntityType
}

// For binds a typed collection endpoint.
func For[T domain.Record](c *Client, entity domain.EntityType) *Collection[T] {
	return &Collection[T]{c: c, entity: entity}
}

// Entity returns the endpoint name.
func (col *Collection[T]) Entity() domain.EntityType { return col.entity }

func (col *Collection[T]) path(id int64) string {
	if id == 0 {
		return "/" + string(col.entity)
	}
	return fmt.Sprintf("/%s/%d", col.entity, id)
}

type dataEnvelope[V any] struct {
	Data V `json:"data"`
}

// List fetches the whole collection in server order.
func (col *Collection[T]) List(ctx context.Context) ([]T, error) {
	var out dataEnvelope[[]T]
	if err := col.c.do(ctx, http.MethodGet, col.path(0), nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Get fetches one record.
func (col *Collection[T]) Get(ctx context.Context, id int64) (T, error) {
	var out dataEnvelope[T]
	err := col.c.do(ctx, http.MethodGet, col.path(id), nil, &out)
	return out.Data, err
}

// Create posts rec; the server assigns the id.
func (col *Collection[T]) Create(ctx context.Context, rec T) (T, error) {
	var out dataEnvelope[T]
	err := col.c.do(ctx, http.MethodPost, col.path(0), rec, &out)
	return out.Data, err
}

// Update replaces record id with rec.
func (col *Collection[T]) Update(ctx context.Context, id int64, rec T) (T, error) {
	var out dataEnvelope[T]
	err := col.c.do(ctx, http.MethodPut, col.path(id), rec, &out)
	return out.Data, err
}

// Delete removes record id.
func (col *Collection[T]) Delete(ctx context.Context, id int64) error {
	return col.c.do(ctx, http.MethodDelete, col.path(id), nil, nil)
}

// RequestExport queues an export of entity.
func (c *Client) RequestExport(ctx context.Context, entity domain.EntityType, format exports.Format) (exports.Record, error) {
	var out dataEnvelope[exports.Record]
	err := c.do(ctx, http.MethodPost, "/exports", exports.Input{Entity: entity, Format: format}, &out)
	return out.Data, err
}

// Export reports the status of an export.
func (c *Client) Export(ctx context.Context, id string) (exports.Record, error) {
	var out dataEnvelope[exports.Record]
	err := c.do(ctx, http.MethodGet, "/exports/"+url.PathEscape(id), nil, &out)
	return out.Data, err
}

// DownloadExport copies a finished artifact into w.
func (c *Client) DownloadExport(ctx context.Context, id string, w io.Writer) (int64, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get("/exports/" + url.PathEscape(id) + "/download")
	if err != nil {
		return 0, fmt.Errorf("download export %s: %w", id, err)
	}
	body := resp.RawBody()
	defer func() { _ = body.Close() }()
	if resp.StatusCode() >= http.StatusBadRequest {
		raw, _ := io.ReadAll(body)
		apiErr := &APIError{}
		if json.Unmarshal(raw, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		apiErr.Status = resp.StatusCode()
		return 0, apiErr
	}
	return io.Copy(w, body)
}
