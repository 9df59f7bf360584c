package retrieval

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-cleanhttp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/echochat/internal/domain/chat"
	"github.com/GriffinCanCode/echochat/internal/infrastructure/tracing"
)

// ErrBadResponse marks a search service reply that could not be used
var ErrBadResponse = errors.New("bad search response")

// Config defines the search service connection
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	RetryWait  time.Duration
}

// DefaultConfig returns settings for a search service on localhost
func DefaultConfig() Config {
	return Config{
		BaseURL:    "http://localhost:8001",
		Timeout:    10 * time.Second,
		MaxRetries: 2,
		RetryWait:  200 * time.Millisecond,
	}
}

// SearchRequest is the body posted to /search
type SearchRequest struct {
	Query string `json:"query"`
	K     int    `json:"k"`
}

// SearchResponse is the body returned by /search
type SearchResponse struct {
	Documents []chat.Document `json:"documents"`
}

// Client searches an external vector index over HTTP. It implements
// chat.DocumentRetriever.
type Client struct {
	resty  *resty.Client
	logger *zap.Logger
}

// NewClient creates a search client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = DefaultConfig().RetryWait
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	// Keep-alive pool sized for one upstream; resty owns the retry policy
	r := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTransport(cleanhttp.DefaultPooledTransport()).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(4*cfg.RetryWait).
		SetHeader("User-Agent", "echochat-retrieval/1.0").
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil {
				return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
			}
			return resp.StatusCode() >= http.StatusInternalServerError || resp.StatusCode() == http.StatusTooManyRequests
		})

	r.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		tracing.InjectTraceContext(req.Context(), req.Header)
		return nil
	})

	return &Client{resty: r, logger: logger.Named("retrieval")}
}

// Search posts the query and returns up to k documents
func (c *Client) Search(ctx context.Context, query string, k int) ([]chat.Document, error) {
	start := time.Now()

	var out SearchResponse
	resp, err := c.resty.R().
		SetContext(ctx).
		SetBody(SearchRequest{Query: query, K: k}).
		SetResult(&out).
		Post("/search")
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: status %d: %s", ErrBadResponse, resp.StatusCode(), truncate(resp.String(), 200))
	}

	docs := out.Documents
	if k > 0 && len(docs) > k {
		docs = docs[:k]
	}

	c.logger.Debug("search complete",
		zap.Int("k", k),
		zap.Int("hits", len(docs)),
		zap.Duration("duration", time.Since(start)),
		zap.Int("attempts", resp.Request.Attempt),
	)
	return docs, nil
}

// Ping checks the search service health endpoint
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.resty.R().SetContext(ctx).Get("/health")
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: health status %d", ErrBadResponse, resp.StatusCode())
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
