package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gradwatch/internal/models"
	"gradwatch/internal/storage"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"
)

// Scanner is the slice of the watcher the command handlers need.
type Scanner interface {
	ScanForGraduations(ctx context.Context, policy models.FilterPolicy) ([]models.GraduationCandidate, error)
	ScanFreshGraduations(ctx context.Context, policy models.FilterPolicy) ([]models.GraduationCandidate, error)
	ScanAllGraduations(ctx context.Context, maxAgeMinutes float64) ([]models.GraduationCandidate, error)
}

// Digester summarizes recent call history on demand.
type Digester interface {
	Digest(ctx context.Context) (string, error)
}

// Bot wires Telegram commands to the watcher, the recipient store and the
// autopost scheduler.
type Bot struct {
	api      *bot.Bot
	scanner  Scanner
	store    storage.Store
	digester Digester
	logger   *logrus.Logger

	defaultPolicy models.FilterPolicy
	defaultScore  float64
}

// BotConfig holds configuration for the Telegram bot.
type BotConfig struct {
	Token    string
	Scanner  Scanner
	Store    storage.Store
	Digester Digester // optional
	Logger   *logrus.Logger

	DefaultPolicy   models.FilterPolicy
	DefaultMinScore float64
}

// NewBot creates the bot and registers all command handlers.
func NewBot(cfg BotConfig) (*Bot, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.DefaultPolicy.Name == "" {
		cfg.DefaultPolicy = models.DefaultPolicy()
	}
	if cfg.DefaultMinScore <= 0 {
		cfg.DefaultMinScore = 6.5
	}

	b := &Bot{
		scanner:       cfg.Scanner,
		store:         cfg.Store,
		digester:      cfg.Digester,
		logger:        cfg.Logger,
		defaultPolicy: cfg.DefaultPolicy,
		defaultScore:  cfg.DefaultMinScore,
	}

	api, err := bot.New(cfg.Token, bot.WithDefaultHandler(b.handleDefault))
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	b.api = api

	api.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, b.handleStart)
	api.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypePrefix, b.handleStart)
	api.RegisterHandler(bot.HandlerTypeMessageText, "/scan", bot.MatchTypePrefix, b.handleScan)
	api.RegisterHandler(bot.HandlerTypeMessageText, "/fresh", bot.MatchTypePrefix, b.handleFresh)
	api.RegisterHandler(bot.HandlerTypeMessageText, "/all", bot.MatchTypePrefix, b.handleAll)
	api.RegisterHandler(bot.HandlerTypeMessageText, "/autopost", bot.MatchTypePrefix, b.handleAutopost)
	api.RegisterHandler(bot.HandlerTypeMessageText, "/settings", bot.MatchTypePrefix, b.handleSettings)
	api.RegisterHandler(bot.HandlerTypeMessageText, "/digest", bot.MatchTypePrefix, b.handleDigest)

	return b, nil
}

// API exposes the underlying client so the notifier can share the session.
func (b *Bot) API() *bot.Bot {
	return b.api
}

// Run starts long polling and blocks until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	b.logger.Info("telegram bot polling started")
	b.api.Start(ctx)
}

func (b *Bot) handleDefault(ctx context.Context, api *bot.Bot, update *tgmodels.Update) {
	// Non-command chatter is ignored.
}

func (b *Bot) handleStart(ctx context.Context, api *bot.Bot, update *tgmodels.Update) {
	chatID := update.Message.Chat.ID

	if _, err := b.store.GetRecipient(ctx, chatID); err == storage.ErrNotFound {
		cfg := models.RecipientConfig{
			ChatID:             chatID,
			Title:              update.Message.Chat.Title,
			AutopostEnabled:    false,
			MinConfidenceScore: b.defaultScore,
			MaxCallsPerDay:     10,
			UpdatedAt:          time.Now().UTC(),
		}
		if serr := b.store.SaveRecipient(ctx, cfg); serr != nil {
			b.logger.WithError(serr).WithField("chat_id", chatID).Warn("failed to register recipient")
		}
	}

	help := `🎓 <b>Graduation watcher</b>

Tracks pump.fun tokens the moment they migrate to Raydium, scores them 0-10 and can post the good ones here automatically.

/scan - score recent graduations
/fresh - only fresh passers (newest first)
/all - everything in the window, with warnings
/autopost on|off - toggle automatic calls
/settings - show or change this chat's policy
/digest - summary of recent calls`

	b.reply(ctx, chatID, help)
}

func (b *Bot) handleScan(ctx context.Context, api *bot.Bot, update *tgmodels.Update) {
	chatID := update.Message.Chat.ID

	candidates, err := b.scanner.ScanForGraduations(ctx, b.defaultPolicy)
	if err != nil {
		b.replyError(ctx, chatID, "scan failed", err)
		return
	}
	b.reply(ctx, chatID, formatCandidateList("🔎 <b>Recent graduations</b>", candidates, 5))
}

func (b *Bot) handleFresh(ctx context.Context, api *bot.Bot, update *tgmodels.Update) {
	chatID := update.Message.Chat.ID

	candidates, err := b.scanner.ScanFreshGraduations(ctx, b.defaultPolicy)
	if err != nil {
		b.replyError(ctx, chatID, "scan failed", err)
		return
	}
	b.reply(ctx, chatID, formatCandidateList("🆕 <b>Fresh graduations</b>", candidates, 5))
}

func (b *Bot) handleAll(ctx context.Context, api *bot.Bot, update *tgmodels.Update) {
	chatID := update.Message.Chat.ID

	candidates, err := b.scanner.ScanAllGraduations(ctx, float64(b.defaultPolicy.MaxAgeMinutes))
	if err != nil {
		b.replyError(ctx, chatID, "scan failed", err)
		return
	}
	b.reply(ctx, chatID, formatCandidateList("📋 <b>All graduations in window</b>", candidates, 10))
}

func (b *Bot) handleAutopost(ctx context.Context, api *bot.Bot, update *tgmodels.Update) {
	chatID := update.Message.Chat.ID
	arg := commandArg(update.Message.Text, 1)

	cfg, err := b.recipientOrDefault(ctx, chatID, update.Message.Chat.Title)
	if err != nil {
		b.replyError(ctx, chatID, "failed to load settings", err)
		return
	}

	switch arg {
	case "on":
		cfg.AutopostEnabled = true
	case "off":
		cfg.AutopostEnabled = false
	default:
		b.reply(ctx, chatID, "Usage: /autopost on|off")
		return
	}
	cfg.UpdatedAt = time.Now().UTC()

	if err := b.store.SaveRecipient(ctx, cfg); err != nil {
		b.replyError(ctx, chatID, "failed to save settings", err)
		return
	}

	if cfg.AutopostEnabled {
		b.reply(ctx, chatID, "✅ Autopost enabled. New graduations that pass the filter will be posted here.")
	} else {
		b.reply(ctx, chatID, "🛑 Autopost disabled.")
	}
}

func (b *Bot) handleSettings(ctx context.Context, api *bot.Bot, update *tgmodels.Update) {
	chatID := update.Message.Chat.ID
	parts := strings.Fields(update.Message.Text)

	cfg, err := b.recipientOrDefault(ctx, chatID, update.Message.Chat.Title)
	if err != nil {
		b.replyError(ctx, chatID, "failed to load settings", err)
		return
	}

	if len(parts) < 3 {
		b.reply(ctx, chatID, formatSettings(cfg)+
			"\nChange with:\n/settings minscore 7.5\n/settings cap 5\n/settings quiet 22 6\n/settings quiet off")
		return
	}

	switch parts[1] {
	case "minscore":
		v, perr := strconv.ParseFloat(parts[2], 64)
		if perr != nil || v < 0 || v > 10 {
			b.reply(ctx, chatID, "Min score must be a number between 0 and 10.")
			return
		}
		cfg.MinConfidenceScore = v
	case "cap":
		n, perr := strconv.Atoi(parts[2])
		if perr != nil || n < 0 {
			b.reply(ctx, chatID, "Daily cap must be a non-negative integer (0 = unlimited).")
			return
		}
		cfg.MaxCallsPerDay = n
	case "quiet":
		if parts[2] == "off" {
			cfg.QuietHoursStart = nil
			cfg.QuietHoursEnd = nil
			break
		}
		if len(parts) < 4 {
			b.reply(ctx, chatID, "Usage: /settings quiet <start-hour> <end-hour> (UTC), or /settings quiet off")
			return
		}
		start, serr := strconv.Atoi(parts[2])
		end, eerr := strconv.Atoi(parts[3])
		if serr != nil || eerr != nil || start < 0 || start > 23 || end < 0 || end > 23 {
			b.reply(ctx, chatID, "Quiet hours must be UTC hours 0-23.")
			return
		}
		cfg.QuietHoursStart = &start
		cfg.QuietHoursEnd = &end
	default:
		b.reply(ctx, chatID, "Unknown setting. Use minscore, cap or quiet.")
		return
	}
	cfg.UpdatedAt = time.Now().UTC()

	if err := b.store.SaveRecipient(ctx, cfg); err != nil {
		b.replyError(ctx, chatID, "failed to save settings", err)
		return
	}
	b.reply(ctx, chatID, formatSettings(cfg))
}

func (b *Bot) handleDigest(ctx context.Context, api *bot.Bot, update *tgmodels.Update) {
	chatID := update.Message.Chat.ID

	if b.digester == nil {
		b.reply(ctx, chatID, "Digest is not configured on this deployment.")
		return
	}

	summary, err := b.digester.Digest(ctx)
	if err != nil {
		b.replyError(ctx, chatID, "digest failed", err)
		return
	}
	b.reply(ctx, chatID, summary)
}

// recipientOrDefault loads the chat's config, falling back to defaults for a
// chat that never ran /start.
func (b *Bot) recipientOrDefault(ctx context.Context, chatID int64, title string) (models.RecipientConfig, error) {
	cfg, err := b.store.GetRecipient(ctx, chatID)
	if err == storage.ErrNotFound {
		return models.RecipientConfig{
			ChatID:             chatID,
			Title:              title,
			MinConfidenceScore: b.defaultScore,
			MaxCallsPerDay:     10,
		}, nil
	}
	if err != nil {
		return models.RecipientConfig{}, err
	}
	return *cfg, nil
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	_, err := b.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: tgmodels.ParseModeHTML,
		LinkPreviewOptions: &tgmodels.LinkPreviewOptions{
			IsDisabled: bot.True(),
		},
	})
	if err != nil {
		b.logger.WithError(err).WithField("chat_id", chatID).Warn("failed to send reply")
	}
}

func (b *Bot) replyError(ctx context.Context, chatID int64, prefix string, err error) {
	b.logger.WithError(err).WithField("chat_id", chatID).Warn(prefix)
	b.reply(ctx, chatID, "⚠️ "+prefix+", try again in a minute.")
}

func commandArg(text string, n int) string {
	parts := strings.Fields(text)
	if n >= len(parts) {
		return ""
	}
	return strings.ToLower(parts[n])
}
