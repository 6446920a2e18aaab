package helius

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"gradwatch/internal/cache"
	"gradwatch/internal/constants"

	"github.com/gagliardetto/solana-go"
	solrpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ErrNoAPIKey is returned when enrichment is attempted without credentials.
// Callers collapse it to the same documented defaults as an upstream failure.
var ErrNoAPIKey = errors.New("helius api key not configured")

// Client answers holder-distribution questions about a mint. Standard token
// RPC (largest accounts, supply) goes through solana-go; the DAS-only
// getTokenAccounts method is called directly with retry and backoff.
type Client struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	sol          *solrpc.Client
	maxRetries   int
	retryBackoff time.Duration
	limiter      *rate.Limiter
	logger       *logrus.Logger

	holders       *cache.TTL[int]
	concentration *cache.TTL[float64]
}

// ClientConfig holds configuration for the Helius client.
type ClientConfig struct {
	APIKey       string
	BaseURL      string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	HolderTTL    time.Duration
	Logger       *logrus.Logger
}

// NewClient creates a Helius client. A missing API key is allowed; every
// call will then short-circuit with ErrNoAPIKey instead of hitting the wire.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://mainnet.helius-rpc.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 2 * time.Second
	}
	if cfg.HolderTTL <= 0 {
		cfg.HolderTTL = constants.HolderCacheTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	endpoint := cfg.BaseURL
	if cfg.APIKey != "" {
		endpoint = fmt.Sprintf("%s/?api-key=%s", cfg.BaseURL, cfg.APIKey)
	}

	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: endpoint,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		sol:           solrpc.New(endpoint),
		maxRetries:    cfg.MaxRetries,
		retryBackoff:  cfg.RetryBackoff,
		limiter:       rate.NewLimiter(rate.Every(120*time.Millisecond), 4),
		logger:        cfg.Logger,
		holders:       cache.NewTTL[int](cfg.HolderTTL),
		concentration: cache.NewTTL[float64](cfg.HolderTTL),
	}
}

// HolderCount returns the number of token accounts holding mint, walking the
// DAS getTokenAccounts pages up to a fixed cap. Counts above the cap are
// reported as the cap; for filter/score purposes "a lot" is enough.
func (c *Client) HolderCount(ctx context.Context, mint string) (int, error) {
	if c.apiKey == "" {
		return 0, ErrNoAPIKey
	}
	if _, err := solana.PublicKeyFromBase58(mint); err != nil {
		return 0, fmt.Errorf("invalid mint %q: %w", mint, err)
	}

	if n, ok := c.holders.Get(mint); ok {
		return n, nil
	}

	const pageSize = 1000
	const maxPages = 5

	count := 0
	for page := 1; page <= maxPages; page++ {
		var resp tokenAccountsResponse
		err := c.call(ctx, "getTokenAccounts", map[string]interface{}{
			"mint":  mint,
			"page":  page,
			"limit": pageSize,
		}, &resp)
		if err != nil {
			return 0, err
		}
		if resp.Error != nil {
			return 0, resp.Error
		}
		if resp.Result == nil {
			break
		}

		count += len(resp.Result.TokenAccounts)
		if len(resp.Result.TokenAccounts) < pageSize {
			break
		}
	}

	c.holders.Set(mint, count)
	return count, nil
}

// TopHolderConcentration returns the percent of supply held by the topN
// largest token accounts. The largest-accounts list routinely includes the
// Raydium pool vault, so the number is an upper bound on insider share.
func (c *Client) TopHolderConcentration(ctx context.Context, mint string, topN int) (float64, error) {
	if c.apiKey == "" {
		return 0, ErrNoAPIKey
	}
	pk, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return 0, fmt.Errorf("invalid mint %q: %w", mint, err)
	}
	if topN <= 0 {
		topN = constants.TopHolderSampleN
	}

	key := fmt.Sprintf("%s:%d", mint, topN)
	if pct, ok := c.concentration.Get(key); ok {
		return pct, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	supply, err := c.sol.GetTokenSupply(ctx, pk, solrpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("get token supply: %w", err)
	}
	if supply == nil || supply.Value == nil {
		return 0, fmt.Errorf("empty supply response for %s", mint)
	}
	total, err := strconv.ParseFloat(supply.Value.Amount, 64)
	if err != nil || total <= 0 {
		return 0, fmt.Errorf("unparseable supply %q for %s", supply.Value.Amount, mint)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	largest, err := c.sol.GetTokenLargestAccounts(ctx, pk, solrpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("get largest accounts: %w", err)
	}
	if largest == nil {
		return 0, fmt.Errorf("empty largest-accounts response for %s", mint)
	}

	held := 0.0
	for i, acct := range largest.Value {
		if i >= topN {
			break
		}
		amt, perr := strconv.ParseFloat(acct.Amount, 64)
		if perr != nil {
			continue
		}
		held += amt
	}

	pct := held / total * 100
	c.concentration.Set(key, pct)
	return pct, nil
}

// call makes a JSON-RPC call with retry and exponential backoff, adapted for
// Helius DAS methods that take a named-parameter object.
func (c *Client) call(ctx context.Context, method string, params interface{}, result interface{}) error {
	body := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	backoff := c.retryBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.WithFields(logrus.Fields{
				"attempt": attempt,
				"backoff": backoff,
				"method":  method,
			}).Debug("retrying helius call")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		resp, err := c.doRequest(ctx, data)
		if err != nil {
			lastErr = err
			continue
		}

		if err := json.Unmarshal(resp, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) doRequest(ctx context.Context, data []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewBuffer(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("rate limited (429)")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}
