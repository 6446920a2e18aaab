package telegram

import (
	"context"
	"fmt"

	"gradwatch/internal/models"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"
)

// Notifier delivers autopost calls over the same bot session the command
// handlers use. Candidates with token artwork go out as photo posts, the rest
// as plain messages.
type Notifier struct {
	api    *bot.Bot
	logger *logrus.Logger
}

// NewNotifier creates a notifier on an existing bot client.
func NewNotifier(api *bot.Bot, logger *logrus.Logger) *Notifier {
	if logger == nil {
		logger = logrus.New()
	}
	return &Notifier{api: api, logger: logger}
}

// SendCandidate posts one graduation call to one chat.
func (n *Notifier) SendCandidate(ctx context.Context, chatID int64, c models.GraduationCandidate) error {
	text := formatCandidate(c)

	if url := c.Graduation.ImageURL; url != "" {
		_, err := n.api.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:    chatID,
			Photo:     &tgmodels.InputFileString{Data: url},
			Caption:   text,
			ParseMode: tgmodels.ParseModeHTML,
		})
		if err == nil {
			return nil
		}
		// A dead image URL should not cost us the call.
		n.logger.WithError(err).WithFields(logrus.Fields{
			"chat_id": chatID,
			"mint":    c.Graduation.Mint,
		}).Debug("photo send failed, falling back to text")
	}

	_, err := n.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: tgmodels.ParseModeHTML,
		LinkPreviewOptions: &tgmodels.LinkPreviewOptions{
			IsDisabled: bot.True(),
		},
	})
	if err != nil {
		return fmt.Errorf("send call to chat %d: %w", chatID, err)
	}
	return nil
}
