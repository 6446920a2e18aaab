package watcher

import (
	"strconv"
	"time"

	"gradwatch/internal/models"
)

// MetricsFromPair maps a raw DexScreener pair onto the normalized metrics
// snapshot. Pure: same pair and clock in, same metrics out. Fields that need
// on-chain introspection (holders, concentration, authority flags, LP state)
// start at safe defaults and are overwritten by the enrichment step.
func MetricsFromPair(pair models.Pair, now time.Time) models.TokenMetrics {
	price, _ := strconv.ParseFloat(pair.PriceUsd, 64)

	ageHours := 0.0
	if pair.PairCreatedAt > 0 {
		ageHours = float64(now.UnixMilli()-pair.PairCreatedAt) / 3_600_000
	}

	return models.TokenMetrics{
		Mint:           pair.BaseToken.Address,
		Symbol:         pair.BaseToken.Symbol,
		Name:           pair.BaseToken.Name,
		Price:          price,
		PriceChange24h: pair.PriceChange.H24,
		Volume24h:      pair.Volume.H24,
		VolumeChange:   pair.Volume.H1,
		Liquidity:      pair.LiquidityUSD(),
		TokenAgeHours:  ageHours,
	}
}

// ageMinutes is the pair age used by the filter's freshness rules.
func ageMinutes(pair models.Pair, now time.Time) float64 {
	if pair.PairCreatedAt <= 0 {
		return 0
	}
	return float64(now.UnixMilli()-pair.PairCreatedAt) / 60_000
}
