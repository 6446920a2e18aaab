package telegram

import (
	"fmt"
	"html"
	"strings"
	"time"

	"gradwatch/internal/models"
)

// formatCandidate renders one graduation as the full HTML call card.
func formatCandidate(c models.GraduationCandidate) string {
	var b strings.Builder

	fmt.Fprintf(&b, "🎓 <b>%s</b> (%s)\n",
		html.EscapeString(c.Graduation.Name), html.EscapeString(c.Graduation.Symbol))
	fmt.Fprintf(&b, "<code>%s</code>\n\n", c.Graduation.Mint)

	fmt.Fprintf(&b, "Score: <b>%s %.1f/10</b>\n", scoreEmoji(c.Score), c.Score)
	fmt.Fprintf(&b, "💧 Liquidity: $%s\n", formatUSD(c.Metrics.Liquidity))
	fmt.Fprintf(&b, "📊 Market cap: $%s\n", formatUSD(c.Pair.MarketCap))
	fmt.Fprintf(&b, "📈 Vol 5m: $%s | 1h: $%s\n", formatUSD(c.Pair.Volume.M5), formatUSD(c.Pair.Volume.H1))

	if c.Metrics.Holders > 0 {
		fmt.Fprintf(&b, "👥 Holders: %d", c.Metrics.Holders)
		if c.Metrics.TopHolderConcentration > 0 {
			fmt.Fprintf(&b, " (top 10 hold %.1f%%)", c.Metrics.TopHolderConcentration)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "⏱ Age: %s\n", formatAge(c.Metrics.TokenAgeHours))

	if len(c.Warnings) > 0 {
		b.WriteString("\n")
		for _, w := range c.Warnings {
			fmt.Fprintf(&b, "⚠️ %s\n", html.EscapeString(w))
		}
	}
	if len(c.FilterFailures) > 0 {
		b.WriteString("\n")
		for _, f := range c.FilterFailures {
			fmt.Fprintf(&b, "❌ %s\n", html.EscapeString(f))
		}
	}

	fmt.Fprintf(&b, "\n<a href=\"https://dexscreener.com/solana/%s\">DexScreener</a>", c.Graduation.RaydiumPairAddress)
	fmt.Fprintf(&b, " | <a href=\"https://solscan.io/token/%s\">Solscan</a>", c.Graduation.Mint)

	return b.String()
}

// formatCandidateList renders a compact multi-line summary for scan replies.
func formatCandidateList(title string, candidates []models.GraduationCandidate, limit int) string {
	if len(candidates) == 0 {
		return title + "\n\nNothing found this round."
	}
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")
	for i, c := range candidates {
		status := "✅"
		if !c.PassesFilter {
			status = "❌"
		}
		fmt.Fprintf(&b, "\n%d. %s <b>%s</b> %s %.1f | liq $%s | mc $%s\n",
			i+1, status, html.EscapeString(c.Graduation.Symbol),
			scoreEmoji(c.Score), c.Score,
			formatUSD(c.Metrics.Liquidity), formatUSD(c.Pair.MarketCap))
		fmt.Fprintf(&b, "   <code>%s</code>\n", c.Graduation.Mint)
		for _, w := range c.Warnings {
			fmt.Fprintf(&b, "   ⚠️ %s\n", html.EscapeString(w))
		}
		for _, f := range c.FilterFailures {
			fmt.Fprintf(&b, "   ❌ %s\n", html.EscapeString(f))
		}
	}
	return b.String()
}

// formatSettings renders the recipient's current autopost policy.
func formatSettings(cfg models.RecipientConfig) string {
	var b strings.Builder
	b.WriteString("⚙️ <b>Autopost settings</b>\n\n")

	state := "off"
	if cfg.AutopostEnabled {
		state = "on"
	}
	fmt.Fprintf(&b, "Autopost: <b>%s</b>\n", state)
	fmt.Fprintf(&b, "Min score: %.1f\n", cfg.MinConfidenceScore)
	if cfg.MaxCallsPerDay > 0 {
		fmt.Fprintf(&b, "Daily cap: %d (used today: %d)\n", cfg.MaxCallsPerDay, cfg.CallsToday)
	} else {
		b.WriteString("Daily cap: unlimited\n")
	}
	if cfg.QuietHoursStart != nil && cfg.QuietHoursEnd != nil {
		fmt.Fprintf(&b, "Quiet hours: %02d:00-%02d:00 UTC\n", *cfg.QuietHoursStart, *cfg.QuietHoursEnd)
	} else {
		b.WriteString("Quiet hours: none\n")
	}
	return b.String()
}

func scoreEmoji(score float64) string {
	switch {
	case score >= 8:
		return "🟢"
	case score >= 6:
		return "🟡"
	default:
		return "🔴"
	}
}

func formatUSD(v float64) string {
	switch {
	case v >= 1_000_000:
		return fmt.Sprintf("%.2fM", v/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("%.1fK", v/1_000)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}

func formatAge(hours float64) string {
	if hours <= 0 {
		return "unknown"
	}
	d := time.Duration(hours * float64(time.Hour))
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%.1fh", d.Hours())
	}
	return fmt.Sprintf("%.1fd", d.Hours()/24)
}
