package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"gradwatch/internal/ai"
	"gradwatch/internal/autopost"
	"gradwatch/internal/config"
	"gradwatch/internal/constants"
	"gradwatch/internal/dexscreener"
	"gradwatch/internal/flags"
	"gradwatch/internal/helius"
	"gradwatch/internal/models"
	"gradwatch/internal/server"
	"gradwatch/internal/storage"
	"gradwatch/internal/stream"
	"gradwatch/internal/telegram"
	"gradwatch/internal/watcher"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// env bootstrap function
func loadEnv(logger *logrus.Logger) {
	// Get the project root directory (where go.mod is)
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	envPath := filepath.Join(projectRoot, ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Warnf("no .env file found at %s, using system environment variables", envPath)
	} else {
		logger.Infof("loaded .env from %s", envPath)
	}
}

// main wires the full bot: scanner, scheduler, Telegram handlers, the hint
// stream and the ops HTTP server, all sharing one watcher instance.
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)

	// load .env BEFORE anything reads os.Getenv
	loadEnv(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	// Recipient state lives in Redis when it is reachable; the in-memory
	// store keeps the bot usable without it, at the cost of durability.
	var store storage.Store
	var flagStore *flags.Store
	rclient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	if err := rclient.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warn("redis unreachable, recipient state will not survive restarts")
		store = storage.NewMemoryStore()
	} else {
		rs, err := storage.NewRedisStore(rclient)
		if err != nil {
			logger.WithError(err).Fatal("failed to create redis store")
		}
		store = rs

		fs, err := flags.NewStore(rclient)
		if err != nil {
			logger.WithError(err).Fatal("failed to create flags store")
		}
		flagStore = fs
	}
	defer store.Close()

	// Optional ClickHouse archive for the digest and offline analysis.
	var archive *storage.Archive
	if cfg.ClickHouseAddr != "" {
		a, err := storage.NewArchive(ctx, storage.ArchiveConfig{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
			Logger:   logger,
		})
		if err != nil {
			logger.WithError(err).Warn("clickhouse unavailable, calls will not be archived")
		} else {
			archive = a
			defer archive.Close()
		}
	}

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

	// Optional AI digest over the archive.
	var agent *ai.Agent
	if cfg.OpenRouterAPIKey != "" && cfg.ClickHouseAddr != "" {
		a, err := ai.NewAgent(ctx, ai.AgentConfig{
			ClickHouseAddr:     cfg.ClickHouseAddr,
			ClickHouseDatabase: cfg.ClickHouseDatabase,
			ClickHouseUsername: cfg.ClickHouseUsername,
			ClickHousePassword: cfg.ClickHousePassword,
			OpenRouterAPIKey:   cfg.OpenRouterAPIKey,
			Model:              cfg.DigestModel,
			Logger:             logger,
		})
		if err != nil {
			logger.WithError(err).Warn("failed to initialize ai agent")
		} else {
			agent = a
			defer agent.Close()
		}
	}

	policy := models.PolicyByName(cfg.FilterPolicyName)

	botCfg := telegram.BotConfig{
		Token:           cfg.TelegramBotToken,
		Scanner:         w,
		Store:           store,
		Logger:          logger,
		DefaultPolicy:   policy,
		DefaultMinScore: cfg.GlobalMinScore,
	}
	if agent != nil {
		botCfg.Digester = agent
	}
	tgBot, err := telegram.NewBot(botCfg)
	if err != nil {
		logger.WithError(err).Fatal("failed to create telegram bot")
	}

	schedCfg := autopost.Config{
		Scanner:        w,
		Store:          store,
		Archive:        archive,
		Notifier:       telegram.NewNotifier(tgBot.API(), logger),
		Logger:         logger,
		Policy:         policy,
		Interval:       cfg.ScanInterval,
		GlobalMinScore: cfg.GlobalMinScore,
		SendDelay:      constants.DelayBetweenSends,
	}
	if flagStore != nil {
		schedCfg.Flags = flagStore
	}
	sched := autopost.New(schedCfg)
	if cfg.AutopostEnabled {
		sched.Start(ctx)
		defer sched.Stop()
	}

	// A migration hint triggers an immediate cycle instead of waiting for
	// the next tick. The cycle's overlap guard absorbs hint bursts.
	if cfg.StreamEnabled && cfg.HeliusAPIKey != "" {
		hints, err := stream.NewHintStream(stream.HintStreamConfig{
			APIKey: cfg.HeliusAPIKey,
			Logger: logger,
		})
		if err != nil {
			logger.WithError(err).Warn("failed to create hint stream")
		} else {
			go hints.Run(ctx)
			go func() {
				for range hints.Hints() {
					if flagStore != nil {
						if paused, ferr := flagStore.Enabled(ctx, flags.KeyStreamPaused); ferr == nil && paused {
							continue
						}
					}
					if err := sched.ScanAndNotify(ctx); err != nil {
						logger.WithError(err).Warn("hint-triggered cycle failed")
					}
				}
			}()
		}
	}

	handlers := &server.Handlers{
		Scanner:        w,
		Store:          store,
		Scheduler:      sched,
		DevMode:        cfg.DevMode,
		Logger:         logger,
		Policy:         policy,
		GlobalMinScore: cfg.GlobalMinScore,
	}
	if agent != nil {
		handlers.Digester = agent
	}
	if flagStore != nil {
		handlers.Flags = flagStore
	}
	srv, err := server.NewServer(server.ServerDeps{
		Handlers: handlers,
		Config: server.ServerConfig{
			Addr:    cfg.ServerAddr,
			DevMode: cfg.DevMode,
			APIKey:  cfg.ServerAPIKey,
		},
		Logger: logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create http server")
	}
	go func() {
		if err := srv.Start(); err != nil && err.Error() != "http: Server closed" {
			logger.WithError(err).Error("http server failed")
		}
	}()

	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
		_ = srv.Shutdown(context.Background())
	}()

	logger.Info("graduation watcher started, awaiting telegram commands")
	tgBot.Run(ctx)

	_ = srv.WaitClosed(context.Background())
	logger.Info("shutdown complete")
}
