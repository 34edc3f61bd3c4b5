package rankings

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dailyyoga/gridcache/logger"
	"github.com/dailyyoga/gridcache/rangecache"
	"go.uber.org/zap"
)

// maxErrorBody caps how much of an error response is drained before closing
const maxErrorBody = 4 << 10

// Client fetches row windows from the rankings JSON API
type Client struct {
	logger    logger.Logger
	http      *http.Client
	baseURL   string
	userAgent string
}

var _ rangecache.Fetcher = (*Client)(nil)

// NewClient creates a rankings API client
func NewClient(log logger.Logger, cfg *ClientConfig) (*Client, error) {
	if cfg == nil {
		cfg = DefaultClientConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		logger:    log,
		http:      &http.Client{Timeout: cfg.Timeout},
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
	}, nil
}

// URL builds the endpoint address for window under q
func (c *Client) URL(q rangecache.Query, window rangecache.WorkItem) string {
	return fmt.Sprintf("%sapi/rankings%s?start=%d&end=%d&lang=%s&units=%s",
		c.baseURL, q.Selection,
		max(window.StartRow, 0), window.EndRow,
		url.QueryEscape(q.Language), url.QueryEscape(q.Units),
	)
}

// Fetch performs a single GET for window. Aborting ctx aborts the request.
func (c *Client) Fetch(ctx context.Context, q rangecache.Query, window rangecache.WorkItem) (*rangecache.Payload, error) {
	endpoint := c.URL(q, window)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, ErrRequest(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	begin := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, ErrRequest(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return nil, ErrStatus(resp.StatusCode, resp.Status)
	}

	payload, err := decodePayload(resp.Body)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("rankings fetched",
		zap.String("url", endpoint),
		zap.Duration("elapsed", time.Since(begin)),
		zap.Int("rows", len(payload.Rows)),
		zap.Int("total_length", payload.TotalLength),
	)
	return payload, nil
}

// decodePayload keeps numbers as json.Number so sorted indices and lifts
// survive without float rounding.
func decodePayload(r io.Reader) (*rangecache.Payload, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var p rangecache.Payload
	if err := dec.Decode(&p); err != nil {
		return nil, ErrDecode(err)
	}
	return &p, nil
}
