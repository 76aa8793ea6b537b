package utils

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RewardLedger is the engagement credit balance. It only ever goes up, and
// only when a scan turn runs to completion.
type RewardLedger struct {
	redisClient *redis.Client
}

func NewRewardLedger(redisClient *redis.Client) *RewardLedger {
	return &RewardLedger{redisClient: redisClient}
}

func rewardKey(userID string) string {
	return "rewards:" + userID
}

// Increment adds one credit and returns the new balance.
func (l *RewardLedger) Increment(ctx context.Context, userID string) (int64, error) {
	if l.redisClient == nil {
		return 0, fmt.Errorf("reward ledger is not configured")
	}
	balance, err := l.redisClient.Incr(ctx, rewardKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment reward balance: %w", err)
	}
	return balance, nil
}

// Balance returns the current credit balance, zero for a new user.
func (l *RewardLedger) Balance(ctx context.Context, userID string) (int64, error) {
	if l.redisClient == nil {
		return 0, fmt.Errorf("reward ledger is not configured")
	}
	balance, err := l.redisClient.Get(ctx, rewardKey(userID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read reward balance: %w", err)
	}
	return balance, nil
}
