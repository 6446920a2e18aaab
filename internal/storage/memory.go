package storage

import (
	"context"
	"sync"

	"gradwatch/internal/constants"
	"gradwatch/internal/models"
)

// MemoryStore is the in-process Store used when no Redis is configured and in
// tests. Contents do not survive a restart.
type MemoryStore struct {
	mu         sync.RWMutex
	recipients map[int64]models.RecipientConfig
	calls      map[int64][]models.CallLog // newest first
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		recipients: make(map[int64]models.RecipientConfig),
		calls:      make(map[int64][]models.CallLog),
	}
}

func (s *MemoryStore) GetActiveRecipients(ctx context.Context) ([]models.RecipientConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.RecipientConfig, 0, len(s.recipients))
	for _, cfg := range s.recipients {
		if cfg.AutopostEnabled {
			out = append(out, cfg)
		}
	}
	return out, nil
}

func (s *MemoryStore) GetRecipient(ctx context.Context, chatID int64) (*models.RecipientConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, ok := s.recipients[chatID]
	if !ok {
		return nil, ErrNotFound
	}
	return &cfg, nil
}

func (s *MemoryStore) SaveRecipient(ctx context.Context, cfg models.RecipientConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recipients[cfg.ChatID] = cfg
	return nil
}

func (s *MemoryStore) AppendCallLog(ctx context.Context, log models.CallLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	logs := append([]models.CallLog{log}, s.calls[log.ChatID]...)
	if len(logs) > constants.MaxTrackedCallLogs {
		logs = logs[:constants.MaxTrackedCallLogs]
	}
	s.calls[log.ChatID] = logs
	return nil
}

func (s *MemoryStore) GetCallLogs(ctx context.Context, chatID int64, limit int) ([]models.CallLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	logs := s.calls[chatID]
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	out := make([]models.CallLog, len(logs))
	copy(out, logs)
	return out, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
