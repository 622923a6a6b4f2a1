package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"anime-quiz-service/internal/domain"
	"anime-quiz-service/internal/metrics"
	"go.uber.org/zap"
)

// DefaultURL is the public Shikimori GraphQL endpoint.
const DefaultURL = "https://shikimori.one/api/graphql"

// BatchSize is how many titles one random query asks for.
const BatchSize = 50

const (
	randomQuery = `query GameAnimes($excludeIds: String, $limit: PositiveInt) {
  animes(order: random, limit: $limit, excludeIds: $excludeIds) {
    id
    russian
    screenshots { id originalUrl }
  }
}`
	decoyQuery = `query DecoyAnimes($excludeIds: String, $limit: PositiveInt) {
  animes(order: random, limit: $limit, excludeIds: $excludeIds) {
    id
    russian
  }
}`
	screenshotsQuery = `query AnimeScreenshots($ids: String, $limit: PositiveInt) {
  animes(ids: $ids, limit: $limit) {
    id
    screenshots { id originalUrl }
  }
}`
)

// Client talks to the catalog GraphQL API.
type Client struct {
	endpoint   string
	userAgent  string
	httpClient *http.Client
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.httpClient.Timeout = d }
}

func WithUserAgent(ua string) Option {
	return func(cl *Client) {
		if ua != "" {
			cl.userAgent = ua
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(cl *Client) { cl.metrics = m }
}

func New(endpoint string, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = DefaultURL
	}
	c := &Client{
		endpoint:   endpoint,
		userAgent:  "anime-quiz-service",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchRandomBatch returns up to BatchSize random titles not in excludeIDs.
// Screenshots are requested only when withScreenshots is set.
func (c *Client) FetchRandomBatch(ctx context.Context, excludeIDs []string, withScreenshots bool) ([]domain.Item, error) {
	query, name := decoyQuery, "decoys"
	if withScreenshots {
		query, name = randomQuery, "random"
	}
	vars := map[string]any{"limit": BatchSize}
	if len(excludeIDs) > 0 {
		vars["excludeIds"] = strings.Join(excludeIDs, ",")
	}
	animes, err := c.do(ctx, name, query, vars)
	if err != nil {
		return nil, err
	}
	return toItems(animes, withScreenshots)
}

// FetchScreenshots returns the titles with the given ids and their screenshots.
func (c *Client) FetchScreenshots(ctx context.Context, ids []string) ([]domain.Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	animes, err := c.do(ctx, "screenshots", screenshotsQuery, map[string]any{
		"ids":   strings.Join(ids, ","),
		"limit": BatchSize,
	})
	if err != nil {
		return nil, err
	}
	return toItems(animes, true)
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data *struct {
		Animes *[]anime `json:"animes"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

type anime struct {
	ID          string       `json:"id"`
	Russian     *string      `json:"russian"`
	Screenshots []screenshot `json:"screenshots"`
}

type screenshot struct {
	ID          string `json:"id"`
	OriginalURL string `json:"originalUrl"`
}

func (c *Client) do(ctx context.Context, name, query string, vars map[string]any) (animes []anime, err error) {
	defer func() { c.metrics.ObserveCatalog(name, err) }()

	body, err := json.Marshal(graphQLRequest{Query: query, Variables: vars})
	if err != nil {
		return nil, fmt.Errorf("encode %s query: %w", name, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Query: name, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read catalog %s response: %w", name, err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("catalog request failed", zap.String("query", name), zap.Int("status", resp.StatusCode))
		return nil, &StatusError{Query: name, Code: resp.StatusCode}
	}

	var parsed graphQLResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode %s response: %v", domain.ErrUpstreamInvalid, name, err)
	}
	if len(parsed.Errors) > 0 {
		return nil, fmt.Errorf("%w: %s query: %s", domain.ErrUpstreamInvalid, name, parsed.Errors[0].Message)
	}
	if parsed.Data == nil || parsed.Data.Animes == nil {
		return nil, fmt.Errorf("%w: %s response has no animes", domain.ErrUpstreamInvalid, name)
	}
	return *parsed.Data.Animes, nil
}

// StatusError is a non-200 answer from the catalog.
type StatusError struct {
	Query string
	Code  int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("catalog %s query: unexpected status %d", e.Query, e.Code)
}

// Temporary reports whether retrying may help.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// TransportError is a request that never got an HTTP answer.
type TransportError struct {
	Query string
	Err   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("catalog %s request: %v", e.Query, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Temporary() bool { return true }

func toItems(animes []anime, withScreenshots bool) ([]domain.Item, error) {
	items := make([]domain.Item, 0, len(animes))
	for i, a := range animes {
		if a.ID == "" {
			return nil, fmt.Errorf("%w: anime #%d has no id", domain.ErrUpstreamInvalid, i)
		}
		item := domain.Item{ID: a.ID}
		if a.Russian != nil {
			item.Name = *a.Russian
		}
		if withScreenshots {
			item.Images = make([]domain.ImageRef, 0, len(a.Screenshots))
			for _, s := range a.Screenshots {
				if s.ID == "" || s.OriginalURL == "" {
					return nil, fmt.Errorf("%w: anime %s has an incomplete screenshot", domain.ErrUpstreamInvalid, a.ID)
				}
				item.Images = append(item.Images, domain.ImageRef{ID: s.ID, URL: s.OriginalURL})
			}
		}
		items = append(items, item)
	}
	return items, nil
}
