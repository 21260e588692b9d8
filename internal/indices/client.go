package indices

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iwvelando/rent-renewal/pkg/constants"
	"go.uber.org/zap"
)

// Provider supplies the most recent window of monthly observations for a named index.
type Provider interface {
	Series(ctx context.Context, name string, window int) (Series, error)
}

// ClientConfig holds the settings for the BCB SGS client.
type ClientConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	Catalog *Catalog
}

// Client reads index series from the Banco Central do Brasil SGS API.
type Client struct {
	baseURL    string
	token      string
	catalog    *Catalog
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new SGS client.
func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = constants.DefaultProviderBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = constants.DefaultUpstreamTimeout
	}
	if cfg.Catalog == nil {
		cfg.Catalog = DefaultCatalog()
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		catalog: cfg.Catalog,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// Catalog returns the name-to-series mapping used by the client.
func (c *Client) Catalog() *Catalog {
	return c.catalog
}

// Series fetches the last window observations of the named index.
func (c *Client) Series(ctx context.Context, name string, window int) (Series, error) {
	idx, err := c.catalog.Lookup(name)
	if err != nil {
		return Series{}, err
	}
	if window != constants.WindowLatest && window != constants.WindowTrailingYear {
		return Series{}, fmt.Errorf("%w: %d", ErrInvalidWindow, window)
	}

	u, err := url.Parse(fmt.Sprintf("%s/dados/serie/bcdata.sgs.%s/dados/ultimos/%d", c.baseURL, idx.SeriesCode, window))
	if err != nil {
		return Series{}, fmt.Errorf("failed to parse URL: %w", err)
	}
	q := u.Query()
	q.Set("formato", "json")
	u.RawQuery = q.Encode()

	start := time.Now()
	resp, err := c.doRequest(ctx, u.String())
	if err != nil {
		return Series{}, fmt.Errorf("%w: failed to fetch series %s: %w", ErrProviderUnavailable, idx.SeriesCode, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Series{}, &UpstreamError{StatusCode: resp.StatusCode, URL: u.String()}
	}

	var observations []Observation
	if err := json.NewDecoder(resp.Body).Decode(&observations); err != nil {
		return Series{}, fmt.Errorf("%w: failed to decode series %s: %w", ErrProviderUnavailable, idx.SeriesCode, err)
	}

	c.logger.Debug("fetched index series",
		zap.String("op", "indices.Client.Series"),
		zap.String("index", idx.Name),
		zap.String("series", idx.SeriesCode),
		zap.Int("window", window),
		zap.Int("observations", len(observations)),
		zap.Duration("duration", time.Since(start)),
	)

	return Series{Name: idx.Name, Observations: observations}, nil
}

func (c *Client) doRequest(ctx context.Context, urlStr string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.httpClient.Do(req)
}
