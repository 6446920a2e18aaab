package storage

import (
	"context"
	"fmt"

	"gradwatch/internal/models"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/sirupsen/logrus"
)

// Archive is the ClickHouse sink for the full dispatch history. The Redis
// call-log list is trimmed for the scheduler's working set; the archive keeps
// everything, for the digest and offline analysis. Optional: a nil *Archive
// is safe to call.
type Archive struct {
	conn   driver.Conn
	logger *logrus.Logger
}

// ArchiveConfig holds ClickHouse connection settings.
type ArchiveConfig struct {
	Addr     string
	Database string
	Username string
	Password string
	Logger   *logrus.Logger
}

// NewArchive connects to ClickHouse and verifies the connection.
func NewArchive(ctx context.Context, cfg ArchiveConfig) (*Archive, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	cfg.Logger.WithField("addr", cfg.Addr).Info("connected to ClickHouse archive")

	return &Archive{conn: conn, logger: cfg.Logger}, nil
}

// InsertCall appends one dispatched call to the archive.
func (a *Archive) InsertCall(ctx context.Context, log models.CallLog) error {
	if a == nil {
		return nil
	}

	query := `
		INSERT INTO graduation_calls (
			mint, symbol, score, chat_id, sent_at, delivered
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	err := a.conn.Exec(ctx, query,
		log.Mint,
		log.Symbol,
		log.Score,
		log.ChatID,
		log.SentAt,
		log.Delivered,
	)
	if err != nil {
		return fmt.Errorf("failed to insert call: %w", err)
	}
	return nil
}

// RecentCalls returns up to limit archived calls, newest first.
func (a *Archive) RecentCalls(ctx context.Context, limit int) ([]models.CallLog, error) {
	if a == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := a.conn.Query(ctx, `
		SELECT mint, symbol, score, chat_id, sent_at, delivered
		FROM graduation_calls
		ORDER BY sent_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query calls: %w", err)
	}
	defer rows.Close()

	var out []models.CallLog
	for rows.Next() {
		var log models.CallLog
		if err := rows.Scan(&log.Mint, &log.Symbol, &log.Score, &log.ChatID, &log.SentAt, &log.Delivered); err != nil {
			return nil, fmt.Errorf("failed to scan call row: %w", err)
		}
		out = append(out, log)
	}
	return out, rows.Err()
}

// Close closes the ClickHouse connection.
func (a *Archive) Close() error {
	if a == nil {
		return nil
	}
	return a.conn.Close()
}
