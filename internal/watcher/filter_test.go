package watcher

import (
	"strings"
	"testing"
	"time"

	"gradwatch/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// healthyPair returns a pair that clears every Default policy rule.
func healthyPair() models.Pair {
	return models.Pair{
		ChainID:       "solana",
		DexID:         "raydium",
		PairAddress:   "pairAddr",
		BaseToken:     models.Token{Address: "mint1", Symbol: "TKN", Name: "Token"},
		PriceUsd:      "0.001",
		Liquidity:     &models.Liquidity{USD: 20_000},
		MarketCap:     100_000,
		Volume:        models.PairWindow{M5: 5_000, H1: 30_000, H24: 100_000},
		Txns:          models.PairTxns{M5: models.TxnCounts{Buys: 30, Sells: 20}},
		PairCreatedAt: testNow.Add(-30 * time.Minute).UnixMilli(),
	}
}

func TestApplyFilter_HealthyPasses(t *testing.T) {
	p := healthyPair()
	m := MetricsFromPair(p, testNow)
	m.Holders = 150
	m.TopHolderConcentration = 25

	res := ApplyFilter(p, m, models.DefaultPolicy(), testNow)
	assert.True(t, res.Passes)
	assert.Empty(t, res.Failures)
}

func TestApplyFilter_PassesIffNoFailures(t *testing.T) {
	p := healthyPair()
	p.Liquidity = &models.Liquidity{USD: 100}
	m := MetricsFromPair(p, testNow)

	res := ApplyFilter(p, m, models.DefaultPolicy(), testNow)
	assert.Equal(t, len(res.Failures) == 0, res.Passes)
	assert.False(t, res.Passes)
}

func TestApplyFilter_UnknownHoldersNeverFails(t *testing.T) {
	policies := []models.FilterPolicy{
		models.DefaultPolicy(),
		models.AggressivePolicy(),
		models.ConservativePolicy(),
	}
	for _, policy := range policies {
		p := healthyPair()
		m := MetricsFromPair(p, testNow)
		m.Holders = 0 // enrichment failed soft

		res := ApplyFilter(p, m, policy, testNow)
		for _, f := range res.Failures {
			assert.NotContains(t, f, "Holders", "policy %s must not reject unknown holder count", policy.Name)
		}
	}
}

func TestApplyFilter_MeasuredLowHoldersFails(t *testing.T) {
	p := healthyPair()
	m := MetricsFromPair(p, testNow)
	m.Holders = 10

	res := ApplyFilter(p, m, models.DefaultPolicy(), testNow)
	require.False(t, res.Passes)
	assert.Contains(t, res.Failures, "Holders 10 < 50")
}

func TestApplyFilter_ConcentrationCapRegardlessOfPolicy(t *testing.T) {
	p := healthyPair()
	m := MetricsFromPair(p, testNow)
	m.Holders = 150
	m.TopHolderConcentration = 51

	for _, policy := range []models.FilterPolicy{models.DefaultPolicy(), models.AggressivePolicy()} {
		res := ApplyFilter(p, m, policy, testNow)
		assert.False(t, res.Passes, "policy %s", policy.Name)
	}
}

func TestApplyFilter_LiquidityRatioBoundary(t *testing.T) {
	cases := []struct {
		name      string
		liquidity float64
		wantFail  bool
	}{
		{"exactly 8 percent", 8_000, true},
		{"just below at 7.99", 7_990, true},
		{"just above at 8.01", 8_010, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := healthyPair()
			p.MarketCap = 100_000
			p.Liquidity = &models.Liquidity{USD: tc.liquidity}
			m := MetricsFromPair(p, testNow)
			m.Holders = 150

			res := ApplyFilter(p, m, models.DefaultPolicy(), testNow)
			failed := false
			for _, f := range res.Failures {
				if strings.Contains(f, "Liquidity ratio") {
					failed = true
					// The message wording must match the inclusive
					// comparison, so equality at the floor reads right.
					assert.Contains(t, f, "at or below")
				}
			}
			assert.Equal(t, tc.wantFail, failed)
		})
	}
}

func TestApplyFilter_BuySellRatio(t *testing.T) {
	p := healthyPair()
	p.Txns.M5 = models.TxnCounts{Buys: 1, Sells: 10}
	m := MetricsFromPair(p, testNow)
	m.Holders = 150

	res := ApplyFilter(p, m, models.DefaultPolicy(), testNow)
	require.False(t, res.Passes)
	assert.Contains(t, res.Failures, "Buy/sell ratio 0.10 < 0.30")

	// No sells at all: rule not evaluated.
	p.Txns.M5 = models.TxnCounts{Buys: 0, Sells: 0}
	res = ApplyFilter(p, metricsWithHolders(p, 150), models.DefaultPolicy(), testNow)
	for _, f := range res.Failures {
		assert.NotContains(t, f, "Buy/sell")
	}
}

func metricsWithHolders(p models.Pair, holders int) models.TokenMetrics {
	m := MetricsFromPair(p, testNow)
	m.Holders = holders
	return m
}

func TestApplyFilter_WashTradingGuard(t *testing.T) {
	p := healthyPair()
	p.MarketCap = 8_000_000
	p.Liquidity = &models.Liquidity{USD: 1_600_000} // ratio 20%, no ratio failure
	p.Volume.H1 = 100_000                           // < 10% of mcap
	p.PairCreatedAt = testNow.Add(-5 * time.Minute).UnixMilli()
	m := metricsWithHolders(p, 300)

	res := ApplyFilter(p, m, models.DefaultPolicy(), testNow)
	require.False(t, res.Passes)
	found := false
	for _, f := range res.Failures {
		if strings.Contains(f, "wash trading") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestApplyFilter_RecordsEveryFailure(t *testing.T) {
	p := healthyPair()
	p.Liquidity = &models.Liquidity{USD: 500}
	p.Volume.M5 = 10
	p.PairCreatedAt = testNow.Add(-10 * time.Hour).UnixMilli()
	m := metricsWithHolders(p, 5)
	m.TopHolderConcentration = 70

	res := ApplyFilter(p, m, models.DefaultPolicy(), testNow)
	// liquidity, volume, age, holders, concentration, liquidity ratio
	assert.GreaterOrEqual(t, len(res.Failures), 5)
}
