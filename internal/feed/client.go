// Package feed fetches and normalizes unusual-options activity records from
// the Barchart core API.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// Flex is a JSON field that may arrive as a string or a number. The raw text
// is kept as-is; normalization owns the tolerant parsing.
type Flex string

// UnmarshalJSON accepts string, number, or null.
func (f *Flex) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = Flex(s)
		return nil
	}
	*f = Flex(b)
	return nil
}

// RawTrade mirrors one row of the core-api options payload.
type RawTrade struct {
	BaseSymbol     string `json:"baseSymbol"`
	SymbolCode     string `json:"symbol"`
	StrikePrice    Flex   `json:"strikePrice"`
	LastPrice      Flex   `json:"lastPrice"`
	BidPrice       Flex   `json:"bidPrice"`
	AskPrice       Flex   `json:"askPrice"`
	Volume         Flex   `json:"volume"`
	OpenInterest   Flex   `json:"openInterest"`
	VolOIRatio     Flex   `json:"volumeOpenInterestRatio"`
	ExpirationDate string `json:"expirationDate"`
	Moneyness      string `json:"moneyness"`
	Delta          Flex   `json:"delta"`
	TradeTime      string `json:"tradeTime"`
}

type optionsResponse struct {
	Count int        `json:"count"`
	Data  []RawTrade `json:"data"`
}

// ClientConfig holds retry and throttling behavior for the feed client.
type ClientConfig struct {
	MaxRetries     int
	RetryDelayBase time.Duration
	RatePerSec     float64
}

// Client provides access to the unusual-options activity endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
	limit      int
}

// NewClient creates a new feed client.
func NewClient(baseURL string, timeout time.Duration, limit int, cfg ClientConfig) *Client {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelayBase <= 0 {
		cfg.RetryDelayBase = time.Second
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1),
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelayBase,
		limit:      limit,
	}
}

// FetchUnusualActivity retrieves the current unusual-activity snapshot.
// An empty batch is a valid outcome, not an error.
func (c *Client) FetchUnusualActivity(ctx context.Context) ([]RawTrade, error) {
	u, err := url.Parse(c.baseURL + "/proxies/core-api/v1/options/get")
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	q := u.Query()
	q.Set("fields", "baseSymbol,symbol,strikePrice,lastPrice,bidPrice,askPrice,"+
		"volume,openInterest,volumeOpenInterestRatio,expirationDate,moneyness,delta,tradeTime")
	q.Set("orderBy", "volumeOpenInterestRatio")
	q.Set("orderDir", "desc")
	q.Set("page", "1")
	q.Set("limit", strconv.Itoa(c.limit))
	q.Set("raw", "1")
	u.RawQuery = q.Encode()

	resp, err := c.doRequest(ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unusual activity: %w", err)
	}
	defer resp.Body.Close()

	var payload optionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode options payload: %w", err)
	}
	return payload.Data, nil
}

// doRequest performs an HTTP GET with rate limiting and linear-backoff retry.
func (c *Client) doRequest(ctx context.Context, urlStr string) (*http.Response, error) {
	var lastErr error

	for i := 0; i < c.maxRetries; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			time.Sleep(c.retryDelay * time.Duration(i+1))
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			time.Sleep(c.retryDelay * time.Duration(i+1))
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
		}

		return resp, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
