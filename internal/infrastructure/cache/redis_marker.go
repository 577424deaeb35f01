package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"repayment-engine/internal/domain/repayment"
	"time"

	"github.com/redis/go-redis/v9"
)

const processedKeyPrefix = "repayment:processed:"

// RedisLoanMarker records loans whose schedule was persisted. Keys expire
// after ttl so a loan is eventually re-checked by the sync job.
type RedisLoanMarker struct {
	client redis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

var _ repayment.ProcessedLoanMarker = (*RedisLoanMarker)(nil)

func NewRedisLoanMarker(client redis.Cmdable, ttl time.Duration, logger *slog.Logger) *RedisLoanMarker {
	return &RedisLoanMarker{
		client: client,
		ttl:    ttl,
		logger: logger.With("component", "RedisLoanMarker"),
	}
}

func processedKey(loanID int64) string {
	return fmt.Sprintf("%s%d", processedKeyPrefix, loanID)
}

func (m *RedisLoanMarker) IsProcessed(ctx context.Context, loanID int64) (bool, error) {
	key := processedKey(loanID)
	_, err := m.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		m.logger.ErrorContext(ctx, "Failed to read processed marker", "key", key, "error", err)
		return false, fmt.Errorf("failed to read processed marker for loan %d: %w", loanID, err)
	}
	return true, nil
}

func (m *RedisLoanMarker) MarkProcessed(ctx context.Context, loanID int64) error {
	key := processedKey(loanID)
	if err := m.client.Set(ctx, key, time.Now().UTC().Format(time.RFC3339), m.ttl).Err(); err != nil {
		m.logger.ErrorContext(ctx, "Failed to write processed marker", "key", key, "error", err)
		return fmt.Errorf("failed to write processed marker for loan %d: %w", loanID, err)
	}
	m.logger.DebugContext(ctx, "Loan marked as processed", "key", key, "ttl", m.ttl)
	return nil
}
