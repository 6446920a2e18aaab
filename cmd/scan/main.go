package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"gradwatch/internal/config"
	"gradwatch/internal/dexscreener"
	"gradwatch/internal/helius"
	"gradwatch/internal/models"
	"gradwatch/internal/watcher"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// One-shot scan for cron jobs and manual inspection. Prints candidates to
// stdout and exits; no Telegram, no Redis.
func main() {
	mode := flag.String("mode", "scan", "scan mode: scan, fresh or all")
	policyName := flag.String("policy", "default", "filter policy: default, aggressive or conservative")
	limit := flag.Int("limit", 10, "max candidates to print")
	asJSON := flag.Bool("json", false, "print raw JSON instead of text")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file, using system environment variables")
	}
	cfg := config.Load()

	listings := dexscreener.NewClient(dexscreener.ClientConfig{
		BaseURL:     cfg.DexScreenerBaseURL,
		Timeout:     cfg.HTTPTimeout,
		ListingsTTL: cfg.ListingsCacheTTL,
		Logger:      logger,
	})
	holders := helius.NewClient(helius.ClientConfig{
		APIKey:       cfg.HeliusAPIKey,
		BaseURL:      cfg.HeliusBaseURL,
		Timeout:      cfg.HTTPTimeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		HolderTTL:    cfg.HolderCacheTTL,
		Logger:       logger,
	})
	w := watcher.New(watcher.Config{
		Listings: listings,
		Holders:  holders,
		Logger:   logger,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	policy := models.PolicyByName(*policyName)

	var (
		candidates []models.GraduationCandidate
		err        error
	)
	switch *mode {
	case "scan":
		candidates, err = w.ScanForGraduations(ctx, policy)
	case "fresh":
		candidates, err = w.ScanFreshGraduations(ctx, policy)
	case "all":
		candidates, err = w.ScanAllGraduations(ctx, policy.MaxAgeMinutes)
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", *mode)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "scan failed: %v\n", err)
		os.Exit(1)
	}

	if len(candidates) > *limit {
		candidates = candidates[:*limit]
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(candidates); err != nil {
			fmt.Fprintf(os.Stderr, "encode failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if len(candidates) == 0 {
		fmt.Println("nothing found")
		return
	}
	for i, c := range candidates {
		status := "PASS"
		if !c.PassesFilter {
			status = "FAIL"
		}
		fmt.Printf("%2d. [%s] %-10s score %.1f  liq $%.0f  mc $%.0f  holders %d\n",
			i+1, status, c.Graduation.Symbol, c.Score,
			c.Metrics.Liquidity, c.Pair.MarketCap, c.Metrics.Holders)
		fmt.Printf("    %s\n", c.Graduation.Mint)
		for _, wmsg := range c.Warnings {
			fmt.Printf("    warn: %s\n", wmsg)
		}
		for _, fmsg := range c.FilterFailures {
			fmt.Printf("    fail: %s\n", fmsg)
		}
	}
}
