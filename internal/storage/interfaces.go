package storage

import (
	"context"
	"errors"
	"io"

	"gradwatch/internal/models"
)

// ErrNotFound is returned when a recipient has no stored config.
var ErrNotFound = errors.New("not found")

// RecipientStore holds per-chat autopost settings. Saves are last-write-wins;
// there are no transactional guarantees beyond that.
type RecipientStore interface {
	// GetActiveRecipients returns every recipient with autopost enabled.
	GetActiveRecipients(ctx context.Context) ([]models.RecipientConfig, error)

	// GetRecipient returns one recipient's config, or ErrNotFound.
	GetRecipient(ctx context.Context, chatID int64) (*models.RecipientConfig, error)

	// SaveRecipient creates or overwrites a recipient's config.
	SaveRecipient(ctx context.Context, cfg models.RecipientConfig) error
}

// CallLogStore is the append-only record of dispatched candidates, newest
// first. It backs the scheduler's daily caps and per-recipient dedupe.
type CallLogStore interface {
	// AppendCallLog records one dispatch.
	AppendCallLog(ctx context.Context, log models.CallLog) error

	// GetCallLogs returns up to limit most recent logs for a recipient.
	GetCallLogs(ctx context.Context, chatID int64, limit int) ([]models.CallLog, error)
}

// Store is the full storage capability the bot wires at startup.
type Store interface {
	RecipientStore
	CallLogStore

	// Ping checks if the store is reachable.
	Ping(ctx context.Context) error

	io.Closer
}
