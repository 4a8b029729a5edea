package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Document is one resource as returned by the remote.
type Document map[string]any

// Client talks to the resource API of a Frappe site for a single doctype.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates a Client from the configuration.
func New(cfg Config) *Client {
	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 30
	}
	if cfg.DocType == "" {
		cfg.DocType = "Account"
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")

	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: time.Duration(timeout) * time.Second},
	}
}

// DocType returns the collection this client is bound to.
func (c *Client) DocType() string {
	return c.cfg.DocType
}

// List returns the documents of the collection with the given fields.
// Filters use the remote's list form, e.g. [["company", "=", "ACME"]].
func (c *Client) List(ctx context.Context, fields []string, filters [][]any) ([]Document, error) {
	query := url.Values{}
	if len(fields) > 0 {
		raw, err := json.Marshal(fields)
		if err != nil {
			return nil, fmt.Errorf("failed to encode fields: %w", err)
		}
		query.Set("fields", string(raw))
	}
	if len(filters) > 0 {
		raw, err := json.Marshal(filters)
		if err != nil {
			return nil, fmt.Errorf("failed to encode filters: %w", err)
		}
		query.Set("filters", string(raw))
	}
	if c.cfg.PageLength > 0 {
		query.Set("limit_page_length", strconv.Itoa(c.cfg.PageLength))
	}

	var docs []Document
	if err := c.do(ctx, http.MethodGet, c.collectionPath(), query, nil, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// Get fetches one document by name. A missing document yields (nil, nil).
func (c *Client) Get(ctx context.Context, name string) (Document, error) {
	var doc Document
	if err := c.do(ctx, http.MethodGet, c.documentPath(name), nil, nil, &doc); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return doc, nil
}

// Insert creates a document and returns it as stored.
func (c *Client) Insert(ctx context.Context, doc Document) (Document, error) {
	var out Document
	if err := c.do(ctx, http.MethodPost, c.collectionPath(), nil, doc, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update applies a partial document to the named resource.
func (c *Client) Update(ctx context.Context, name string, doc Document) (Document, error) {
	var out Document
	if err := c.do(ctx, http.MethodPut, c.documentPath(name), nil, doc, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) collectionPath() string {
	return "/api/resource/" + url.PathEscape(c.cfg.DocType)
}

func (c *Client) documentPath(name string) string {
	return c.collectionPath() + "/" + url.PathEscape(name)
}

// do sends one request and decodes the "data" member of the response into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	endpoint := c.cfg.URL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.Key != "" || c.cfg.Secret != "" {
		req.Header.Set("Authorization", "token "+c.cfg.Key+":"+c.cfg.Secret)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Method: method, Path: path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Method: method, Path: path, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(raw),
		}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("failed to decode response from %s %s: %w", method, path, err)
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("failed to decode data from %s %s: %w", method, path, err)
	}
	return nil
}
