// Package tronscan is a read-only client for the TronScan explorer API.
//
// Every fetch method fails soft: transport, status and decode failures are
// logged and reported as "no result" through the boolean return.
package tronscan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"tronscan-crawler/internal/domain"
	"tronscan-crawler/internal/observability"
)

// Default configuration values.
const (
	DefaultBaseURL       = "https://apilist.tronscanapi.com"
	DefaultTimeout       = 30 * time.Second
	DefaultMaxRetries    = 0
	DefaultRetryDelay    = 500 * time.Millisecond
	DefaultMaxDelay      = 5 * time.Second
	DefaultPageThreshold = 10000
)

// APIKeyHeader carries the API credential.
const APIKeyHeader = "TRON-PRO-API-KEY"

// Endpoint paths.
const (
	contractPath = "/api/contract"
	transferPath = "/api/transfer"
	walletPath   = "/api/account/wallet"
)

// Client implements the explorer read API over HTTP.
type Client struct {
	baseURL       string
	apiKey        string
	client        *http.Client
	maxRetries    int
	retryDelay    time.Duration
	maxDelay      time.Duration
	pageThreshold int
	logger        *zap.Logger
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts for throttled or failed requests.
// Retries bypass the crawl pacing clock; the default is a single request.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithPageThreshold sets the transfer page size threshold.
func WithPageThreshold(n int) ClientOption {
	return func(c *Client) {
		c.pageThreshold = n
	}
}

// WithLogger sets the logger used for soft failures.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new explorer API client.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:       baseURL,
		apiKey:        apiKey,
		client:        &http.Client{Timeout: DefaultTimeout},
		maxRetries:    DefaultMaxRetries,
		retryDelay:    DefaultRetryDelay,
		maxDelay:      DefaultMaxDelay,
		pageThreshold: DefaultPageThreshold,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StatusError reports a non-success HTTP status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// retryable reports whether the status is worth another attempt.
func (e *StatusError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// get performs a GET request and decodes the JSON body into out.
// With retries enabled, throttling, 5xx and transport errors are retried
// with exponential backoff.
func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	endpoint := c.baseURL + path + "?" + params.Encode()
	start := time.Now()

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set(APIKeyHeader, c.apiKey)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("http request: %w", err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			statusErr := &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 256)}
			if statusErr.retryable() {
				return statusErr
			}
			return backoff.Permanent(statusErr)
		}

		if err := json.Unmarshal(body, out); err != nil {
			return backoff.Permanent(fmt.Errorf("unmarshal response: %w", err))
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryDelay
	policy.MaxInterval = c.maxDelay
	policy.Multiplier = 2

	retries := c.maxRetries
	if retries < 0 {
		retries = 0
	}
	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(retries)), ctx))

	observability.RecordAPIRequest(path, requestStatus(err), time.Since(start).Seconds())
	return err
}

// FetchContract returns the contract profile for address.
func (c *Client) FetchContract(ctx context.Context, address string) (*Contract, bool) {
	var resp contractResponse
	if err := c.get(ctx, contractPath, url.Values{"contract": {address}}, &resp); err != nil {
		c.logger.Debug("fetch contract failed", zap.String("address", address), zap.Error(err))
		return nil, false
	}
	if len(resp.Data) == 0 {
		return nil, false
	}
	return resp.Data[0].contract(), true
}

// FetchWalletTokens returns the token snapshot for a wallet address.
// A response without a data list counts as no result.
func (c *Client) FetchWalletTokens(ctx context.Context, address string) (*WalletTokens, bool) {
	var resp walletResponse
	if err := c.get(ctx, walletPath, url.Values{"address": {address}}, &resp); err != nil {
		c.logger.Debug("fetch wallet failed", zap.String("address", address), zap.Error(err))
		return nil, false
	}
	if resp.Data == nil {
		return nil, false
	}

	tokens := make([]domain.WalletToken, 0, len(resp.Data))
	for _, raw := range resp.Data {
		tokens = append(tokens, raw.token())
	}
	return &WalletTokens{Tokens: tokens, Count: resp.Count}, true
}

// FetchTransactionHistory returns the full transfer history of target.
//
// Pages are requested until a page reports a total below the page
// threshold. If any page fails, the whole call reports no result and pages
// already accumulated are dropped.
func (c *Client) FetchTransactionHistory(ctx context.Context, target string) ([]Transfer, bool) {
	var transfers []Transfer

	for {
		loaded := len(transfers)
		params := url.Values{
			"address": {target},
			"page":    {strconv.Itoa(loaded / c.pageThreshold)},
			"start":   {strconv.Itoa(loaded)},
		}

		var resp transferResponse
		if err := c.get(ctx, transferPath, params, &resp); err != nil {
			c.logger.Debug("fetch transfers failed",
				zap.String("address", target),
				zap.Int("loaded", loaded),
				zap.Error(err))
			return nil, false
		}
		observability.RecordAPIPage()

		for _, raw := range resp.Data {
			transfers = append(transfers, raw.transfer())
		}

		// An empty page can never advance the window.
		if resp.Total < c.pageThreshold || len(resp.Data) == 0 {
			return transfers, true
		}
	}
}

func requestStatus(err error) string {
	if err == nil {
		return "ok"
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return strconv.Itoa(statusErr.StatusCode)
	}
	return "error"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
