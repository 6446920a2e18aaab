package dexscreener

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"gradwatch/internal/cache"
	"gradwatch/internal/constants"
	"gradwatch/internal/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Client fetches Raydium pair listings from the DexScreener public API.
//
// Listing calls are cached for a short TTL keyed by (endpoint, limit) so
// bursts of scans inside the window are served from memory. A partial
// upstream failure degrades to whatever was already collected; only a total
// failure surfaces as an error, so callers can tell "nothing found" from
// "upstream down".
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *logrus.Logger

	listings *cache.TTL[[]models.Pair]
}

// ClientConfig holds configuration for the DexScreener client.
type ClientConfig struct {
	BaseURL     string
	Timeout     time.Duration
	ListingsTTL time.Duration
	Logger      *logrus.Logger
}

// HTTPError carries a non-2xx response for operator-facing logs.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	b := strings.TrimSpace(string(e.Body))
	if b == "" {
		return fmt.Sprintf("dexscreener http %d", e.StatusCode)
	}
	return fmt.Sprintf("dexscreener http %d: %s", e.StatusCode, b)
}

// pairsResponse is the envelope every pair endpoint shares.
type pairsResponse struct {
	Pairs []models.Pair `json:"pairs"`
}

// NewClient creates a DexScreener client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.dexscreener.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 12 * time.Second
	}
	if cfg.ListingsTTL <= 0 {
		cfg.ListingsTTL = constants.ListingsCacheTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
		// DexScreener allows ~300 req/min on the pair endpoints.
		limiter:  rate.NewLimiter(rate.Every(250*time.Millisecond), 5),
		logger:   cfg.Logger,
		listings: cache.NewTTL[[]models.Pair](cfg.ListingsTTL),
	}
}

// RecentListings returns up to limit recently-active Raydium pairs on Solana,
// deduplicated by base token (first occurrence wins). The secondary search
// is only consulted when the primary comes back short.
func (c *Client) RecentListings(ctx context.Context, limit int) ([]models.Pair, error) {
	return c.listingsFor(ctx, "recent", limit, false)
}

// LatestListings is the recency-biased variant: the same upstream searches,
// ordered by pair creation time instead of trading activity.
func (c *Client) LatestListings(ctx context.Context, limit int) ([]models.Pair, error) {
	return c.listingsFor(ctx, "latest", limit, true)
}

func (c *Client) listingsFor(ctx context.Context, endpoint string, limit int, byCreation bool) ([]models.Pair, error) {
	if limit <= 0 {
		limit = 20
	}

	key := fmt.Sprintf("%s:%d", endpoint, limit)
	if pairs, ok := c.listings.Get(key); ok {
		return pairs, nil
	}

	collected, err := c.search(ctx, constants.DexRaydium)
	if err != nil {
		c.logger.WithError(err).Warn("primary listings fetch failed")
	}
	pairs := filterChainDex(collected)

	if len(pairs) < limit {
		more, serr := c.search(ctx, "raydium solana")
		if serr != nil {
			// Degrade to whatever the primary produced.
			c.logger.WithError(serr).Warn("secondary listings fetch failed")
		}
		pairs = append(pairs, filterChainDex(more)...)
	}

	pairs = dedupeByBaseToken(pairs)
	if len(pairs) == 0 && err != nil {
		return nil, err
	}

	if byCreation {
		sort.SliceStable(pairs, func(i, j int) bool {
			return pairs[i].PairCreatedAt > pairs[j].PairCreatedAt
		})
	}
	if len(pairs) > limit {
		pairs = pairs[:limit]
	}

	c.listings.Set(key, pairs)
	return pairs, nil
}

// PairByMint returns the most liquid Solana pair for a token, or nil when
// DexScreener knows no pair for it.
func (c *Client) PairByMint(ctx context.Context, mint string) (*models.Pair, error) {
	mint = strings.TrimSpace(mint)
	if mint == "" {
		return nil, fmt.Errorf("mint is required")
	}

	pairs, err := c.get(ctx, "/latest/dex/tokens/"+url.PathEscape(mint))
	if err != nil {
		return nil, err
	}

	var best *models.Pair
	for i := range pairs {
		p := &pairs[i]
		if p.ChainID != constants.ChainSolana {
			continue
		}
		if best == nil || p.LiquidityUSD() > best.LiquidityUSD() {
			best = p
		}
	}
	return best, nil
}

func (c *Client) search(ctx context.Context, query string) ([]models.Pair, error) {
	return c.get(ctx, "/latest/dex/search?q="+url.QueryEscape(query))
}

func (c *Client) get(ctx context.Context, path string) ([]models.Pair, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: res.StatusCode, Body: body}
	}

	var out pairsResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode dexscreener response: %w", err)
	}
	return out.Pairs, nil
}

func filterChainDex(pairs []models.Pair) []models.Pair {
	out := make([]models.Pair, 0, len(pairs))
	for _, p := range pairs {
		if p.ChainID == constants.ChainSolana && p.DexID == constants.DexRaydium {
			out = append(out, p)
		}
	}
	return out
}

func dedupeByBaseToken(pairs []models.Pair) []models.Pair {
	seen := make(map[string]struct{}, len(pairs))
	out := make([]models.Pair, 0, len(pairs))
	for _, p := range pairs {
		addr := p.BaseToken.Address
		if addr == "" {
			continue
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, p)
	}
	return out
}
