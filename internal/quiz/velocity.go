package quiz

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/cleaning-quiz-platform/pkg/logging"
)

// SubmissionLimiter caps how many quiz submissions one phone number may make
// inside a window. It fails open when Redis is unavailable.
type SubmissionLimiter struct {
	redis  *redis.Client
	logger *logging.Logger
	max    int
	window time.Duration
}

// NewSubmissionLimiter returns nil when client is nil. A nil limiter allows
// every submission.
func NewSubmissionLimiter(client *redis.Client, max int, window time.Duration, logger *logging.Logger) *SubmissionLimiter {
	if client == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if max <= 0 {
		max = 3
	}
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &SubmissionLimiter{redis: client, logger: logger, max: max, window: window}
}

// Reset clears the counter for phone.
func (l *SubmissionLimiter) Reset(ctx context.Context, phone string) error {
	return l.redis.Del(ctx, fmt.Sprintf("velocity:quiz_submit:%s", phone)).Err()
}

// Allow counts one attempt for phone and reports whether it is within the limit.
func (l *SubmissionLimiter) Allow(ctx context.Context, phone string) bool {
	if l == nil {
		return true
	}
	key := fmt.Sprintf("velocity:quiz_submit:%s", phone)
	count, err := l.incrementWithExpiry(ctx, key)
	if err != nil {
		l.logger.Error("submission velocity check failed", "error", err)
		return true
	}
	if count > int64(l.max) {
		l.logger.Warn("submission velocity exceeded", "count", count, "max", l.max)
		return false
	}
	return true
}

func (l *SubmissionLimiter) incrementWithExpiry(ctx context.Context, key string) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		l.redis.Expire(ctx, key, l.window)
	}
	return count, nil
}
