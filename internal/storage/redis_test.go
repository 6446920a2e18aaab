package storage

import (
	"context"
	"testing"
	"time"

	"gradwatch/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   1, // Use different DB for tests
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := client.Ping(ctx).Err()
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	err = client.FlushDB(ctx).Err()
	require.NoError(t, err)

	return client
}

func cleanupTestRedis(client *redis.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_ = client.FlushDB(ctx).Err()
	_ = client.Close()
}

func TestRedisStore_RecipientRoundTrip(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	s, err := NewRedisStore(client)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.GetRecipient(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)

	start, end := 22, 6
	cfg := models.RecipientConfig{
		ChatID:             42,
		AutopostEnabled:    true,
		MinConfidenceScore: 6.5,
		MaxCallsPerDay:     10,
		QuietHoursStart:    &start,
		QuietHoursEnd:      &end,
	}
	require.NoError(t, s.SaveRecipient(ctx, cfg))

	got, err := s.GetRecipient(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, cfg.MinConfidenceScore, got.MinConfidenceScore)
	require.NotNil(t, got.QuietHoursStart)
	assert.Equal(t, 22, *got.QuietHoursStart)

	active, err := s.GetActiveRecipients(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, int64(42), active[0].ChatID)
}

func TestRedisStore_CallLogs(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	s, err := NewRedisStore(client)
	require.NoError(t, err)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.AppendCallLog(ctx, models.CallLog{ChatID: 7, Mint: "first", SentAt: now, Delivered: true}))
	require.NoError(t, s.AppendCallLog(ctx, models.CallLog{ChatID: 7, Mint: "second", SentAt: now.Add(time.Minute), Delivered: true}))

	logs, err := s.GetCallLogs(ctx, 7, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "second", logs[0].Mint)
	assert.Equal(t, "first", logs[1].Mint)

	// Other recipients' logs are isolated.
	logs, err = s.GetCallLogs(ctx, 8, 10)
	require.NoError(t, err)
	assert.Empty(t, logs)
}
