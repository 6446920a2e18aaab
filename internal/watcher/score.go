package watcher

import "gradwatch/internal/models"

// Score computes the 0-10 confidence score: base 5, additive adjustments,
// clamped. Unknown enrichment values (holders or concentration at 0) fire no
// branch, mirroring the filter's soft-fail stance.
func Score(pair models.Pair, metrics models.TokenMetrics) float64 {
	score := 5.0

	// Volume momentum: 5m volume against the hourly average rate.
	if pair.Volume.H1 > 0 {
		rate := pair.Volume.M5 / (pair.Volume.H1 / 12)
		switch {
		case rate > 2:
			score += 1.5
		case rate > 1.5:
			score += 1
		case rate < 0.5:
			score -= 1
		}
	}

	// Liquidity tier. Zero means the API gave us nothing; no penalty.
	liq := pair.LiquidityUSD()
	switch {
	case liq > 50_000:
		score += 1
	case liq > 20_000:
		score += 0.5
	case liq > 0 && liq < 5_000:
		score -= 1
	}

	// Buy/sell pressure over the last 5 minutes.
	bsRatio := 1.0
	if pair.Txns.M5.Sells > 0 {
		bsRatio = float64(pair.Txns.M5.Buys) / float64(pair.Txns.M5.Sells)
	} else if pair.Txns.M5.Buys > 0 {
		bsRatio = 2
	}
	switch {
	case bsRatio > 2:
		score += 1
	case bsRatio > 1.5:
		score += 0.5
	case bsRatio < 0.5:
		score -= 1.5
	}

	// Price momentum (5m).
	switch {
	case pair.PriceChange.M5 > 20:
		score += 1
	case pair.PriceChange.M5 > 10:
		score += 0.5
	case pair.PriceChange.M5 < -20:
		score -= 1
	}

	// Market-cap sanity band.
	switch {
	case pair.MarketCap >= 100_000 && pair.MarketCap < 5_000_000:
		score += 0.5
	case pair.MarketCap > 10_000_000:
		score -= 0.5
	}

	// Liquidity ratio, the dominant signal. The two penalty arms are an
	// else-if chain: below 5% takes only the -3.
	if pair.MarketCap > 0 && liq > 0 {
		ratio := liq / pair.MarketCap * 100
		switch {
		case ratio >= 20:
			score += 2
		case ratio >= 15:
			score += 1.5
		case ratio >= 10:
			score += 0.5
		case ratio < 5:
			score -= 3
		case ratio < 8:
			score -= 2
		}
	}

	// Holder count. 0 is unknown, not "no holders".
	switch {
	case metrics.Holders > 200:
		score += 1
	case metrics.Holders > 100:
		score += 0.5
	case metrics.Holders > 0 && metrics.Holders < 30:
		score -= 0.5
	}

	// Top-holder concentration, lower is better. Exactly 0 means unknown.
	if metrics.TopHolderConcentration > 0 {
		switch {
		case metrics.TopHolderConcentration < 20:
			score += 1
		case metrics.TopHolderConcentration < 35:
			score += 0.5
		case metrics.TopHolderConcentration > 60:
			score -= 1
		case metrics.TopHolderConcentration > 45:
			score -= 0.5
		}
	}

	return clampScore(score)
}

func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 10 {
		return 10
	}
	return s
}
