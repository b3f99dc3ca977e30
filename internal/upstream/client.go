// Package upstream fetches private leaderboards from the Advent of Code API.
package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/LavishGent/boardcache/internal/config"
	"github.com/LavishGent/boardcache/internal/types"
)

// Option configures the Client.
type Option func(*Client)

// Client implements types.Fetcher over HTTP.
type Client struct {
	httpClient       *http.Client
	logger           *slog.Logger
	baseURL          string
	userAgent        string
	permissionMarker []byte
	maxBodyBytes     int64
	year             int
}

var _ types.Fetcher = (*Client)(nil)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient builds a client from the upstream section of the config.
func NewClient(cfg config.UpstreamConfig, opts ...Option) (*Client, error) {
	base := strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("upstream: base URL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("upstream: invalid base URL: %w", err)
	}

	c := &Client{
		httpClient:       http.DefaultClient,
		logger:           slog.Default(),
		baseURL:          base,
		userAgent:        cfg.UserAgent,
		permissionMarker: []byte(cfg.PermissionMarker),
		maxBodyBytes:     cfg.MaxBodyBytes,
		year:             cfg.Year,
	}
	if c.userAgent == "" {
		c.userAgent = config.DefaultUserAgent
	}
	if len(c.permissionMarker) == 0 {
		c.permissionMarker = []byte(config.DefaultPermissionMarker)
	}
	if c.maxBodyBytes <= 0 {
		c.maxBodyBytes = config.DefaultConfig().Upstream.MaxBodyBytes
	}
	if c.year <= 0 {
		c.year = config.DefaultYear
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "upstream")
	return c, nil
}

// LeaderboardURL returns the JSON endpoint for a private leaderboard.
func (c *Client) LeaderboardURL(code string) string {
	return fmt.Sprintf("%s/%d/leaderboard/private/view/%s.json", c.baseURL, c.year, url.PathEscape(code))
}

// Fetch performs one GET against the leaderboard endpoint. The body is read
// before the status is inspected so a denial page is reported as a
// permission error whatever status it arrives with.
func (c *Client) Fetch(ctx context.Context, creds types.Credentials) (*types.Leaderboard, error) {
	if !creds.IsComplete() {
		return nil, types.NewConfigurationError(nil)
	}
	if err := types.ValidateCode(creds.LeaderboardCode); err != nil {
		return nil, types.NewConfigurationError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.LeaderboardURL(creds.LeaderboardCode), nil)
	if err != nil {
		return nil, types.NewTransportError(err)
	}
	req.Header.Set("Cookie", "session="+creds.SessionCookie.Value())
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, types.NewTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes+1))
	if err != nil {
		return nil, types.NewTransportError(fmt.Errorf("reading body: %w", err))
	}
	oversized := int64(len(body)) > c.maxBodyBytes
	if oversized {
		body = body[:c.maxBodyBytes]
	}

	if bytes.Contains(body, c.permissionMarker) {
		return nil, types.NewPermissionError(resp.StatusCode, reasonPhrase(resp))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, types.NewStatusError(resp.StatusCode, reasonPhrase(resp))
	}
	if oversized {
		return nil, types.NewParseError(fmt.Errorf("response body exceeds %d bytes", c.maxBodyBytes))
	}

	lb, err := types.ParseLeaderboard(body)
	if err != nil {
		return nil, types.NewParseError(err)
	}

	c.logger.Debug("leaderboard fetched",
		"status", resp.StatusCode,
		"bytes", len(body),
		"members", lb.MemberCount())
	return lb, nil
}

// reasonPhrase extracts the text after the status code, falling back to the
// canonical text for the code.
func reasonPhrase(resp *http.Response) string {
	prefix := strconv.Itoa(resp.StatusCode) + " "
	if reason := strings.TrimPrefix(resp.Status, prefix); reason != resp.Status && reason != "" {
		return reason
	}
	return http.StatusText(resp.StatusCode)
}
