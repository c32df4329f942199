// Package boardapi is the HTTP transport for the remote kanban board API.
package boardapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hylla/kanboard/internal/domain"
)

// maxResponseBytes bounds decoded response bodies.
const maxResponseBytes = 1 << 20

// requestIDHeader correlates client log lines with server logs.
const requestIDHeader = "X-Request-ID"

const (
	defaultTimeout         = 15 * time.Second
	defaultGenerateTimeout = 2 * time.Minute
)

// Logger receives request lifecycle events.
type Logger interface {
	Debug(msg string, keyvals ...any)
	Warn(msg string, keyvals ...any)
}

// Options configures a Client.
type Options struct {
	BaseURL         string
	Timeout         time.Duration
	GenerateTimeout time.Duration
	HTTPClient      *http.Client
	Logger          Logger
	NewRequestID    func() string
}

// Client issues board API requests. It holds no board state.
type Client struct {
	base            *url.URL
	http            *http.Client
	timeout         time.Duration
	generateTimeout time.Duration
	logger          Logger
	newRequestID    func() string
}

// New validates opts and builds a client.
func New(opts Options) (*Client, error) {
	raw := strings.TrimSpace(opts.BaseURL)
	if raw == "" {
		return nil, errors.New("board api base url is required")
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse board api base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported board api scheme %q", base.Scheme)
	}
	c := &Client{
		base:            base,
		http:            opts.HTTPClient,
		timeout:         opts.Timeout,
		generateTimeout: opts.GenerateTimeout,
		logger:          opts.Logger,
		newRequestID:    opts.NewRequestID,
	}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.generateTimeout <= 0 {
		c.generateTimeout = defaultGenerateTimeout
	}
	if c.newRequestID == nil {
		c.newRequestID = uuid.NewString
	}
	return c, nil
}

// BaseURL returns the normalized API root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// ListColumns fetches every column with its cards.
func (c *Client) ListColumns(ctx context.Context) ([]domain.Column, error) {
	var columns []domain.Column
	if err := c.do(ctx, c.timeout, http.MethodGet, "/api/columns", nil, nil, &columns); err != nil {
		return nil, err
	}
	if columns == nil {
		columns = []domain.Column{}
	}
	return columns, nil
}

// CreateCard creates a card at the end of columnID.
func (c *Client) CreateCard(ctx context.Context, columnID int64, title, notes string) (domain.Card, error) {
	body := map[string]any{"title": title, "notes": notes, "column_id": columnID}
	var card domain.Card
	err := c.do(ctx, c.timeout, http.MethodPost, "/api/cards", nil, body, &card)
	return card, err
}

// UpdateCard replaces the title and notes of a card.
func (c *Client) UpdateCard(ctx context.Context, cardID int64, title, notes string) (domain.Card, error) {
	body := map[string]any{"title": title, "notes": notes}
	var card domain.Card
	err := c.do(ctx, c.timeout, http.MethodPut, cardPath(cardID), nil, body, &card)
	return card, err
}

// MoveCard reassigns a card to columnID at position.
func (c *Client) MoveCard(ctx context.Context, cardID, columnID int64, position float64) (domain.Card, error) {
	query := url.Values{}
	query.Set("column_id", strconv.FormatInt(columnID, 10))
	query.Set("position", strconv.FormatFloat(position, 'f', -1, 64))
	var card domain.Card
	err := c.do(ctx, c.timeout, http.MethodPatch, cardPath(cardID)+"/move", query, nil, &card)
	return card, err
}

// DeleteCard removes a card.
func (c *Client) DeleteCard(ctx context.Context, cardID int64) error {
	return c.do(ctx, c.timeout, http.MethodDelete, cardPath(cardID), nil, nil, nil)
}

// GeneratePrompt asks the server to append an AI prompt to the card notes.
// It uses the longer generate timeout.
func (c *Client) GeneratePrompt(ctx context.Context, cardID int64) error {
	return c.do(ctx, c.generateTimeout, http.MethodPost, cardPath(cardID)+"/generate-prompt", nil, nil, nil)
}

// CreateColumn appends a column.
func (c *Client) CreateColumn(ctx context.Context, title string) (domain.Column, error) {
	var column domain.Column
	err := c.do(ctx, c.timeout, http.MethodPost, "/api/columns", nil, map[string]any{"title": title}, &column)
	return column, err
}

// RenameColumn sets a new column title.
func (c *Client) RenameColumn(ctx context.Context, columnID int64, title string) (domain.Column, error) {
	var column domain.Column
	err := c.do(ctx, c.timeout, http.MethodPut, columnPath(columnID), nil, map[string]any{"title": title}, &column)
	return column, err
}

// DeleteColumn removes a column and returns the server's message.
func (c *Client) DeleteColumn(ctx context.Context, columnID int64) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	if err := c.do(ctx, c.timeout, http.MethodDelete, columnPath(columnID), nil, nil, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func cardPath(id int64) string {
	return "/api/cards/" + strconv.FormatInt(id, 10)
}

func columnPath(id int64) string {
	return "/api/columns/" + strconv.FormatInt(id, 10)
}

// do performs one request bounded by timeout and decodes a 2xx body into out when out is non-nil.
func (c *Client) do(ctx context.Context, timeout time.Duration, method, path string, query url.Values, in, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	endpoint := *c.base
	endpoint.Path = strings.TrimRight(c.base.Path, "/") + path
	endpoint.RawQuery = query.Encode()

	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return fmt.Errorf("build %s %s request: %w", method, path, err)
	}
	requestID := c.newRequestID()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, requestID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.warn("board api request failed", "method", method, "path", path, "request_id", requestID, "err", err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read %s %s response: %w", method, path, err)
	}
	c.debug("board api request complete", "method", method, "path", path, "status", resp.StatusCode, "request_id", requestID, "elapsed", time.Since(started))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{
			Method:    method,
			Path:      path,
			Status:    resp.StatusCode,
			Detail:    decodeDetail(payload),
			RequestID: requestID,
		}
		c.warn("board api rejected request", "method", method, "path", path, "status", resp.StatusCode, "detail", apiErr.Detail, "request_id", requestID)
		return apiErr
	}
	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func (c *Client) debug(msg string, keyvals ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, keyvals...)
	}
}

func (c *Client) warn(msg string, keyvals ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, keyvals...)
	}
}
