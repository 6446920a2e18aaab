package watcher

import (
	"fmt"
	"time"

	"gradwatch/internal/models"
)

// FilterResult is the verdict of one policy evaluation. Every failing rule is
// recorded; Passes is true iff Failures is empty.
type FilterResult struct {
	Passes   bool
	Failures []string
}

// maxTopHolderPct is the whale-concentration ceiling applied regardless of
// policy.
const maxTopHolderPct = 50.0

// ApplyFilter evaluates a candidate against a policy. Rules are independent
// and never short-circuit, so operators see the full list of reasons. Each
// message carries the measured value and the threshold.
func ApplyFilter(pair models.Pair, metrics models.TokenMetrics, policy models.FilterPolicy, now time.Time) FilterResult {
	var failures []string

	liq := pair.LiquidityUSD()
	if liq < policy.MinLiquidity {
		failures = append(failures, fmt.Sprintf("Liquidity $%.0f < $%.0f", liq, policy.MinLiquidity))
	}

	if pair.Volume.M5 < policy.MinVolume5m {
		failures = append(failures, fmt.Sprintf("5m volume $%.0f < $%.0f", pair.Volume.M5, policy.MinVolume5m))
	}

	age := ageMinutes(pair, now)
	if age > policy.MaxAgeMinutes {
		failures = append(failures, fmt.Sprintf("Age %.0fm > %.0fm max", age, policy.MaxAgeMinutes))
	}

	// An unknown holder count (0) is not a rejection: the enrichment call may
	// simply have failed soft. Only a measured-but-low count fails.
	if metrics.Holders > 0 && metrics.Holders < policy.MinHolders {
		failures = append(failures, fmt.Sprintf("Holders %d < %d", metrics.Holders, policy.MinHolders))
	}

	if metrics.TopHolderConcentration > maxTopHolderPct {
		failures = append(failures, fmt.Sprintf("Top-10 holders own %.1f%% > %.0f%% cap",
			metrics.TopHolderConcentration, maxTopHolderPct))
	}

	// Liquidity-to-market-cap ratio, the strongest rug signal: tokens
	// graduate off the bonding curve near 17%, so a ratio at or below the
	// floor means liquidity has been pulled relative to the valuation.
	// Compared cross-multiplied to keep the boundary exact.
	if pair.MarketCap > 0 && liq > 0 {
		if liq*100 <= policy.MinLiquidityRatio*pair.MarketCap {
			ratio := liq / pair.MarketCap * 100
			failures = append(failures, fmt.Sprintf("Liquidity ratio %.2f%% at or below %.1f%% floor", ratio, policy.MinLiquidityRatio))
		}
	}

	if pair.Txns.M5.Sells > 0 {
		ratio := float64(pair.Txns.M5.Buys) / float64(pair.Txns.M5.Sells)
		if ratio < policy.MinBuySellRatio {
			failures = append(failures, fmt.Sprintf("Buy/sell ratio %.2f < %.2f", ratio, policy.MinBuySellRatio))
		}
	}

	// Extreme-outlier guard: an eight-figure implied valuation minutes after
	// graduation with thin hourly volume smells like wash trading.
	if pair.MarketCap > 5_000_000 && age < 15 && pair.Volume.H1 < pair.MarketCap*0.1 {
		failures = append(failures, fmt.Sprintf("Possible wash trading: $%.0f mcap at %.0fm age on $%.0f 1h volume",
			pair.MarketCap, age, pair.Volume.H1))
	}

	return FilterResult{Passes: len(failures) == 0, Failures: failures}
}
