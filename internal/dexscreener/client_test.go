package dexscreener

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"gradwatch/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pair(mint, dex string, liq float64, createdAt int64) models.Pair {
	return models.Pair{
		ChainID:       "solana",
		DexID:         dex,
		PairAddress:   "pair-" + mint,
		BaseToken:     models.Token{Address: mint, Symbol: "TKN"},
		Liquidity:     &models.Liquidity{USD: liq},
		PairCreatedAt: createdAt,
	}
}

func serveJSON(t *testing.T, hits *atomic.Int64, pairs []models.Pair) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"pairs": pairs})
	}))
}

func TestRecentListings_DedupeAndFilter(t *testing.T) {
	pairs := []models.Pair{
		pair("mintA", "raydium", 10_000, 1),
		pair("mintA", "raydium", 99_000, 2), // duplicate base token, dropped
		pair("mintB", "orca", 50_000, 3),    // wrong dex, dropped
		pair("mintC", "raydium", 20_000, 4),
	}

	srv := serveJSON(t, nil, pairs)
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL})
	got, err := c.RecentListings(context.Background(), 10)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "mintA", got[0].BaseToken.Address)
	assert.Equal(t, 10_000.0, got[0].LiquidityUSD()) // first occurrence wins
	assert.Equal(t, "mintC", got[1].BaseToken.Address)
}

func TestRecentListings_ServedFromCache(t *testing.T) {
	var hits atomic.Int64
	srv := serveJSON(t, &hits, []models.Pair{pair("mintA", "raydium", 10_000, 1)})
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, ListingsTTL: time.Minute})

	_, err := c.RecentListings(context.Background(), 1)
	require.NoError(t, err)
	first := hits.Load()

	_, err = c.RecentListings(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, first, hits.Load(), "second call within TTL must not refetch")
}

func TestLatestListings_SortedByCreation(t *testing.T) {
	srv := serveJSON(t, nil, []models.Pair{
		pair("old", "raydium", 10_000, 100),
		pair("new", "raydium", 10_000, 300),
		pair("mid", "raydium", 10_000, 200),
	})
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL})
	got, err := c.LatestListings(context.Background(), 10)
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, "new", got[0].BaseToken.Address)
	assert.Equal(t, "mid", got[1].BaseToken.Address)
	assert.Equal(t, "old", got[2].BaseToken.Address)
}

func TestPairByMint_PicksMostLiquid(t *testing.T) {
	srv := serveJSON(t, nil, []models.Pair{
		pair("mintA", "raydium", 5_000, 1),
		pair("mintA", "raydium", 80_000, 2),
	})
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL})
	got, err := c.PairByMint(context.Background(), "mintA")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 80_000.0, got.LiquidityUSD())
}

func TestPairByMint_NoneFound(t *testing.T) {
	srv := serveJSON(t, nil, nil)
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL})
	got, err := c.PairByMint(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRecentListings_TotalFailureSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL})
	_, err := c.RecentListings(context.Background(), 5)
	assert.Error(t, err)
}
