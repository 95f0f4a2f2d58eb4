// Package sea is a client for the Sea timeline API. It normalizes server
// payloads into domain records and keeps recently seen users and posts in
// bounded caches.
package sea

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"golang.org/x/oauth2"

	"github.com/blackmichael/sea-timeline/internal/cache"
	"github.com/blackmichael/sea-timeline/internal/domain"
	"github.com/blackmichael/sea-timeline/internal/normalize"
	"github.com/blackmichael/sea-timeline/internal/richtext"
)

var tracer = otel.Tracer("github.com/blackmichael/sea-timeline/internal/sea")

// Options configures a Client.
type Options struct {
	// BaseURL prefixes every API path, e.g. https://sea.example.com/api.
	BaseURL string

	// StreamURL is the websocket endpoint used by ConnectPublicTimeline.
	StreamURL string

	// Token is a bearer token. It is ignored when TokenSource is set.
	Token string

	// TokenSource supplies bearer tokens, e.g. from an OAuth flow.
	TokenSource oauth2.TokenSource

	// HTTPClient is used as the base for API requests. Its transport is
	// wrapped with tracing and authentication.
	HTTPClient *http.Client

	// Dialer opens stream connections.
	Dialer *websocket.Dialer

	// Cache defaults to a cache.Store.
	Cache domain.EntryCache

	// ParseText defaults to richtext.Parse.
	ParseText domain.TextParser

	// KeepaliveInterval defaults to stream.DefaultKeepaliveInterval.
	KeepaliveInterval time.Duration

	Logger *slog.Logger
}

// Client talks to one Sea server on behalf of one user.
type Client struct {
	baseURL    string
	streamURL  string
	httpClient *http.Client
	tokens     oauth2.TokenSource
	dialer     *websocket.Dialer
	cache      domain.EntryCache
	normalizer *normalize.Normalizer
	keepalive  time.Duration
	logger     *slog.Logger
}

// APIError is returned when the server answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Body)
}

// NewClient creates a Client. BaseURL and either Token or TokenSource are
// required.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}

	tokens := opts.TokenSource
	if tokens == nil {
		if opts.Token == "" {
			return nil, errors.New("token or token source is required")
		}
		tokens = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token, TokenType: "Bearer"})
	}

	httpClient := &http.Client{}
	if opts.HTTPClient != nil {
		copied := *opts.HTTPClient
		httpClient = &copied
	}
	base := httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	httpClient.Transport = &oauth2.Transport{
		Source: tokens,
		Base:   otelhttp.NewTransport(base),
	}

	entries := opts.Cache
	if entries == nil {
		entries = cache.NewStore()
	}
	parse := opts.ParseText
	if parse == nil {
		parse = richtext.Parse
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		streamURL:  opts.StreamURL,
		httpClient: httpClient,
		tokens:     tokens,
		dialer:     opts.Dialer,
		cache:      entries,
		normalizer: normalize.New(parse),
		keepalive:  opts.KeepaliveInterval,
		logger:     logger,
	}, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (any, error) {
	return c.do(ctx, http.MethodGet, path, query, nil)
}

func (c *Client) post(ctx context.Context, path string, body any) (any, error) {
	return c.do(ctx, http.MethodPost, path, nil, body)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (any, error) {
	var reader io.Reader
	if body != nil {
		payload, err := normalize.Encode(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	endpoint := c.baseURL + "/" + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	result, err := normalize.Decode(respBody)
	if err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return result, nil
}
