// Package api is the HTTP client for the place/restaurant/planner backend.
package api

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

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/kass/geo-planner/pkg/models"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultDetailTTL = 5 * time.Minute
	maxBodyBytes     = 4 << 20
)

var ErrMalformedResponse = errors.New("malformed response")

// StatusError is returned when the backend answers with a non-2xx status
type StatusError struct {
	Method string
	URL    string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.Code)
}

// Client talks to the remote API. It is safe for concurrent use.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	limiter *rate.Limiter
	details *cache.Cache
	group   singleflight.Group
	logger  *zap.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRateLimit caps outgoing requests. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithDetailTTL sets how long detail responses are cached. ttl <= 0 disables the cache.
func WithDetailTTL(ttl time.Duration) Option {
	return func(c *Client) {
		if ttl <= 0 {
			c.details = nil
			return
		}
		c.details = cache.New(ttl, 2*ttl)
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a client rooted at baseURL, e.g. "http://localhost:8000"
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: defaultTimeout},
		details: cache.New(defaultDetailTTL, 2*defaultDetailTTL),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Places fetches GET /place/?x=&y=
func (c *Client) Places(ctx context.Context, coord models.Coordinate) ([]models.PlaceRecord, error) {
	var places []models.PlaceRecord
	if err := c.getJSON(ctx, "/place/", coordQuery(coord), &places); err != nil {
		return nil, err
	}
	if places == nil {
		places = []models.PlaceRecord{}
	}
	for i := range places {
		p := &places[i]
		p.ContentID = SanitizeText(p.ContentID)
		p.Name = SanitizeText(p.Name)
		p.Type = SanitizeText(p.Type)
		p.Thumbnail = SanitizeURL(p.Thumbnail)
	}
	return places, nil
}

type restaurantResponse struct {
	Result [][]string `json:"result"`
}

// Restaurants fetches GET /restaurant/?x=&y= and flattens the [name, type] rows
func (c *Client) Restaurants(ctx context.Context, coord models.Coordinate) ([]models.RestaurantRecord, error) {
	var resp restaurantResponse
	if err := c.getJSON(ctx, "/restaurant/", coordQuery(coord), &resp); err != nil {
		return nil, err
	}

	restaurants := make([]models.RestaurantRecord, 0, len(resp.Result))
	for i, row := range resp.Result {
		if len(row) == 0 {
			return nil, fmt.Errorf("%w: restaurant row %d is empty", ErrMalformedResponse, i)
		}
		r := models.RestaurantRecord{Name: SanitizeText(row[0])}
		if len(row) > 1 {
			r.Type = SanitizeText(row[1])
		}
		restaurants = append(restaurants, r)
	}
	return restaurants, nil
}

// Detail fetches GET /place/{contentId}/. The overview markup is sanitized to
// plain text before it is returned.
func (c *Client) Detail(ctx context.Context, contentID string) (models.Detail, error) {
	contentID = strings.TrimSpace(contentID)
	if contentID == "" {
		return models.Detail{}, errors.New("detail: empty content id")
	}

	if c.details != nil {
		if cached, ok := c.details.Get(contentID); ok {
			c.logger.Debug("Detail cache hit", zap.String("content_id", contentID))
			return cached.(models.Detail), nil
		}
	}

	// the shared request must outlive any one caller; each caller still
	// stops waiting when its own ctx is done
	sharedCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(contentID, func() (interface{}, error) {
		var pair []string
		if err := c.getJSON(sharedCtx, "/place/"+url.PathEscape(contentID)+"/", nil, &pair); err != nil {
			return nil, err
		}
		if len(pair) != 2 {
			return nil, fmt.Errorf("%w: detail expects 2 elements, got %d", ErrMalformedResponse, len(pair))
		}
		overview, err := SanitizeOverview(pair[1])
		if err != nil {
			return nil, fmt.Errorf("%w: overview: %v", ErrMalformedResponse, err)
		}
		return models.Detail{
			ContentID: contentID,
			ImageURL:  SanitizeURL(pair[0]),
			Overview:  overview,
		}, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return models.Detail{}, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return models.Detail{}, res.Err
	}

	detail := res.Val.(models.Detail)
	if c.details != nil {
		c.details.Set(contentID, detail, cache.DefaultExpiration)
	}
	if res.Shared {
		c.logger.Debug("Detail request shared", zap.String("content_id", contentID))
	}
	return detail, nil
}

type plannerRequest struct {
	Items []string `json:"items"`
}

// SubmitPlanner posts the ordered item names to POST /planner/
func (c *Client) SubmitPlanner(ctx context.Context, names []string) error {
	if names == nil {
		names = []string{}
	}
	body, err := json.Marshal(plannerRequest{Items: names})
	if err != nil {
		return fmt.Errorf("encode planner: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/planner/", nil, bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	resp, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedResponse, path, err)
	}
	return nil
}

// do performs the request and returns the response only for 2xx statuses
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("Request failed",
			zap.String("method", method),
			zap.String("url", u.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%s %s: %w", method, u.Path, err)
	}

	c.logger.Debug("Request completed",
		zap.String("method", method),
		zap.String("url", u.String()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		resp.Body.Close()
		return nil, &StatusError{Method: method, URL: u.String(), Code: resp.StatusCode}
	}
	return resp, nil
}

// coordQuery encodes x and y in a fixed order so request URLs are stable
func coordQuery(c models.Coordinate) url.Values {
	return url.Values{
		"x": []string{models.FormatFloat(c.X)},
		"y": []string{models.FormatFloat(c.Y)},
	}
}
