package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"gradwatch/internal/constants"
	"gradwatch/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisStore is the durable Store. Recipient configs are JSON values indexed
// by a set of chat ids; call logs are per-recipient lists, newest first,
// trimmed to a fixed depth.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore creates a store on an existing redis client.
func NewRedisStore(client redis.UniversalClient) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	return &RedisStore{client: client}, nil
}

func recipientKey(chatID int64) string {
	return constants.RedisKeyRecipientPrefix + strconv.FormatInt(chatID, 10)
}

func callLogKey(chatID int64) string {
	return constants.RedisKeyCallLogPrefix + strconv.FormatInt(chatID, 10)
}

func (s *RedisStore) GetActiveRecipients(ctx context.Context) ([]models.RecipientConfig, error) {
	ids, err := s.client.SMembers(ctx, constants.RedisKeyRecipientIndex).Result()
	if err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}

	out := make([]models.RecipientConfig, 0, len(ids))
	for _, id := range ids {
		chatID, perr := strconv.ParseInt(id, 10, 64)
		if perr != nil {
			continue
		}
		cfg, gerr := s.GetRecipient(ctx, chatID)
		if gerr != nil {
			// An index entry without a value is stale; skip it.
			continue
		}
		if cfg.AutopostEnabled {
			out = append(out, *cfg)
		}
	}
	return out, nil
}

func (s *RedisStore) GetRecipient(ctx context.Context, chatID int64) (*models.RecipientConfig, error) {
	b, err := s.client.Get(ctx, recipientKey(chatID)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get recipient: %w", err)
	}

	var cfg models.RecipientConfig
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal recipient: %w", err)
	}
	return &cfg, nil
}

func (s *RedisStore) SaveRecipient(ctx context.Context, cfg models.RecipientConfig) error {
	b, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal recipient: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, recipientKey(cfg.ChatID), b, 0)
	pipe.SAdd(ctx, constants.RedisKeyRecipientIndex, strconv.FormatInt(cfg.ChatID, 10))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save recipient: %w", err)
	}
	return nil
}

func (s *RedisStore) AppendCallLog(ctx context.Context, log models.CallLog) error {
	b, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("marshal call log: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, callLogKey(log.ChatID), b)
	pipe.LTrim(ctx, callLogKey(log.ChatID), 0, constants.MaxTrackedCallLogs-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append call log: %w", err)
	}
	return nil
}

func (s *RedisStore) GetCallLogs(ctx context.Context, chatID int64, limit int) ([]models.CallLog, error) {
	if limit <= 0 {
		limit = constants.MaxTrackedCallLogs
	}

	raw, err := s.client.LRange(ctx, callLogKey(chatID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("get call logs: %w", err)
	}

	out := make([]models.CallLog, 0, len(raw))
	for _, item := range raw {
		var log models.CallLog
		if err := json.Unmarshal([]byte(item), &log); err != nil {
			continue
		}
		out = append(out, log)
	}
	return out, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
