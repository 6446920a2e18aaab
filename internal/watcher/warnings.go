package watcher

import (
	"fmt"

	"gradwatch/internal/models"
)

// Warnings computes advisory badges for the show-everything scan mode, using
// looser thresholds than the filter. hardReject is the single condition this
// mode refuses to surface at all: liquidity effectively gone or near-total
// whale ownership.
func Warnings(pair models.Pair, metrics models.TokenMetrics) (warnings []string, hardReject bool) {
	liq := pair.LiquidityUSD()

	liqRatio := 0.0
	if pair.MarketCap > 0 && liq > 0 {
		liqRatio = liq / pair.MarketCap * 100
	}

	if liqRatio > 0 && liqRatio < 5 {
		warnings = append(warnings, fmt.Sprintf("Liquidity drained: ratio %.1f%% of market cap", liqRatio))
	}
	if metrics.TopHolderConcentration > 60 {
		warnings = append(warnings, fmt.Sprintf("High concentration: top holders own %.0f%%", metrics.TopHolderConcentration))
	}
	if pair.Volume.M5 < 100 && pair.Volume.H1 < 1_000 {
		warnings = append(warnings, fmt.Sprintf("Dead volume: $%.0f in 5m", pair.Volume.M5))
	}
	if pair.Txns.M5.Sells > 0 {
		ratio := float64(pair.Txns.M5.Buys) / float64(pair.Txns.M5.Sells)
		if ratio < 0.5 {
			warnings = append(warnings, fmt.Sprintf("Heavy selling: %d buys / %d sells", pair.Txns.M5.Buys, pair.Txns.M5.Sells))
		}
	}
	if liq > 0 && liq < 3_000 {
		warnings = append(warnings, fmt.Sprintf("Very low liquidity: $%.0f", liq))
	}
	if !pair.HasSocials() {
		warnings = append(warnings, "No social presence")
	}

	hardReject = (liqRatio > 0 && liqRatio < 3) || metrics.TopHolderConcentration > 80
	return warnings, hardReject
}
