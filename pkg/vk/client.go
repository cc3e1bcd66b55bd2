// Package vk provides a client for the VK API surfaces the ingest
// pipeline consumes: market catalogs, wall posts, and group metadata.
//
// Every call is attempted against an ordered list of endpoint mirrors;
// a response carrying VK's error payload counts as that mirror's
// failure and the next mirror is tried. Only when every mirror has
// failed does the call return an UnavailableError.
package vk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/va-pc/buildscout/internal/resilience"
)

// DefaultAPIVersion is the VK API version sent with every request.
const DefaultAPIVersion = "5.199"

// DefaultEndpoints is the mirror priority order.
var DefaultEndpoints = []string{
	"https://api.vk.com/method/",
	"https://vkresult.ru/method/",
}

const (
	marketPageSize = 200
	wallPageSize   = 100
)

// Client defines the VK API operations used by the parser.
type Client interface {
	// Call invokes a raw API method and returns the response payload.
	Call(ctx context.Context, method string, params url.Values) (json.RawMessage, error)
	// MarketItems pages through a group's market catalog, returning at
	// most limit items in fetch order.
	MarketItems(ctx context.Context, groupID int64, limit int) ([]MarketItem, error)
	// WallItems pages through a group's wall, returning market
	// attachments only, at most limit items in fetch order.
	WallItems(ctx context.Context, groupID int64, limit int) ([]MarketItem, error)
	// GroupName resolves a group's display name. Lookup is best-effort:
	// any failure yields a "Group <id>" placeholder, never an error.
	GroupName(ctx context.Context, groupID int64) string
}

// Option configures the client.
type Option func(*httpClient)

// WithEndpoints overrides the endpoint mirror list (for testing).
func WithEndpoints(endpoints ...string) Option {
	return func(c *httpClient) {
		c.endpoints = endpoints
	}
}

// WithAPIVersion overrides the API version parameter.
func WithAPIVersion(v string) Option {
	return func(c *httpClient) {
		c.version = v
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps outgoing requests per second across all mirrors.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

type httpClient struct {
	token     string
	version   string
	endpoints []string
	http      *http.Client
	limiter   *rate.Limiter
	retry     resilience.RetryConfig
}

// NewClient creates a VK API client holding the given access token.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:     token,
		version:   DefaultAPIVersion,
		endpoints: DefaultEndpoints,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(3, 1),
		retry: resilience.RetryConfig{
			MaxAttempts:    2,
			InitialBackoff: 500 * time.Millisecond,
			Multiplier:     2,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call tries each endpoint mirror in priority order. Transport errors
// are retried once per mirror; an API error payload fails the mirror
// without retry.
func (c *httpClient) Call(ctx context.Context, method string, params url.Values) (json.RawMessage, error) {
	q := url.Values{}
	for k, vs := range params {
		q[k] = vs
	}
	q.Set("access_token", c.token)
	q.Set("v", c.version)

	var lastErr error
	for _, base := range c.endpoints {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "vk: rate limiter")
		}

		payload, err := c.callEndpoint(ctx, base, method, q)
		if err == nil {
			return payload, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		zap.L().Debug("vk: endpoint failed, trying next",
			zap.String("endpoint", base),
			zap.String("method", method),
			zap.Error(err),
		)
		lastErr = err
	}

	return nil, &UnavailableError{Method: method, Err: lastErr}
}

func (c *httpClient) callEndpoint(ctx context.Context, base, method string, q url.Values) (json.RawMessage, error) {
	var payload json.RawMessage

	err := resilience.Do(ctx, c.retry, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+method+"?"+q.Encode(), nil)
		if err != nil {
			return eris.Wrap(err, "vk: create request")
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return eris.Wrapf(err, "vk: %s request", method)
		}
		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return eris.Wrap(readErr, "vk: read response body")
		}
		if resp.StatusCode != http.StatusOK {
			statusErr := eris.Errorf("vk: unexpected status %d: %s", resp.StatusCode, string(body))
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return resilience.NewTransientError(statusErr, resp.StatusCode)
			}
			return statusErr
		}

		var env envelope
		if err := json.Unmarshal(body, &env); err != nil {
			return eris.Wrap(err, "vk: decode envelope")
		}
		if env.Error != nil {
			// The mirror answered but VK rejected the call; not retryable
			// against the same mirror.
			return env.Error
		}
		payload = env.Response
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// MarketItems implements Client.
func (c *httpClient) MarketItems(ctx context.Context, groupID int64, limit int) ([]MarketItem, error) {
	var items []MarketItem
	offset := 0

	for len(items) < limit {
		params := url.Values{}
		params.Set("owner_id", strconv.FormatInt(-groupID, 10))
		params.Set("count", strconv.Itoa(marketPageSize))
		params.Set("offset", strconv.Itoa(offset))
		params.Set("extended", "1")

		payload, err := c.Call(ctx, "market.get", params)
		if err != nil {
			return nil, err
		}

		var page marketResponse
		if err := json.Unmarshal(payload, &page); err != nil {
			return nil, eris.Wrap(err, "vk: decode market.get response")
		}
		if len(page.Items) == 0 {
			break
		}

		items = append(items, page.Items...)
		offset += marketPageSize
		if len(page.Items) < marketPageSize {
			break
		}
	}

	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// WallItems implements Client.
func (c *httpClient) WallItems(ctx context.Context, groupID int64, limit int) ([]MarketItem, error) {
	var items []MarketItem
	offset := 0

	for len(items) < limit {
		params := url.Values{}
		params.Set("owner_id", strconv.FormatInt(-groupID, 10))
		params.Set("count", strconv.Itoa(wallPageSize))
		params.Set("offset", strconv.Itoa(offset))

		payload, err := c.Call(ctx, "wall.get", params)
		if err != nil {
			return nil, err
		}

		var page wallResponse
		if err := json.Unmarshal(payload, &page); err != nil {
			return nil, eris.Wrap(err, "vk: decode wall.get response")
		}
		if len(page.Items) == 0 {
			break
		}

		for _, post := range page.Items {
			for _, att := range post.Attachments {
				if att.Type == "market" && att.Market != nil {
					items = append(items, *att.Market)
				}
			}
		}

		offset += wallPageSize
		if len(page.Items) < wallPageSize {
			break
		}
	}

	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// GroupName implements Client.
func (c *httpClient) GroupName(ctx context.Context, groupID int64) string {
	placeholder := fmt.Sprintf("Group %d", groupID)

	params := url.Values{}
	params.Set("group_ids", strconv.FormatInt(groupID, 10))

	payload, err := c.Call(ctx, "groups.getById", params)
	if err != nil {
		zap.L().Warn("vk: group name lookup failed, using placeholder",
			zap.Int64("group_id", groupID),
			zap.Error(err),
		)
		return placeholder
	}

	var groups groupsResponse
	if err := json.Unmarshal(payload, &groups); err != nil || len(groups.Groups) == 0 || groups.Groups[0].Name == "" {
		return placeholder
	}
	return groups.Groups[0].Name
}
