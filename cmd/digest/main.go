package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"gradwatch/internal/ai"
	"gradwatch/internal/config"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Prints the daily call digest, or answers a free-form question about the
// call archive when -ask is given. Meant for cron and ad-hoc use.
func main() {
	question := flag.String("ask", "", "free-form question about the call archive (default: daily digest)")
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

	if cfg.ClickHouseAddr == "" {
		fmt.Fprintln(os.Stderr, "CLICKHOUSE_ADDR is required for the digest")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	agent, err := ai.NewAgent(ctx, ai.AgentConfig{
		ClickHouseAddr:     cfg.ClickHouseAddr,
		ClickHouseDatabase: cfg.ClickHouseDatabase,
		ClickHouseUsername: cfg.ClickHouseUsername,
		ClickHousePassword: cfg.ClickHousePassword,
		OpenRouterAPIKey:   cfg.OpenRouterAPIKey,
		Model:              cfg.DigestModel,
		Logger:             logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "agent init failed: %v\n", err)
		os.Exit(1)
	}
	defer agent.Close()

	if q := strings.TrimSpace(*question); q != "" {
		res, err := agent.Ask(ctx, q)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ask failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("sql: %s\n\n%s\n", res.SQL, res.Answer)
		return
	}

	summary, err := agent.Digest(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "digest failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(summary)
}
