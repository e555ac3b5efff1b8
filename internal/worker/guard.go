package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// StageGuard claims a (story, stage) pair so redelivered events do not run
// the same stage twice concurrently.
type StageGuard interface {
	// Begin returns true when this process claimed the stage, false when
	// another run already holds it.
	Begin(ctx context.Context, storyID string, stage string) (bool, error)

	// Release frees the claim so a later retry can run the stage again.
	Release(ctx context.Context, storyID string, stage string) error
}

type redisStageGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStageGuard builds a guard backed by Redis SETNX with a TTL, so a
// crashed worker's claim expires instead of wedging the story.
func NewRedisStageGuard(client *redis.Client, ttl time.Duration) StageGuard {
	return &redisStageGuard{client: client, ttl: ttl}
}

func guardKey(storyID, stage string) string {
	return fmt.Sprintf("storybook:stage:%s:%s", storyID, stage)
}

func (g *redisStageGuard) Begin(ctx context.Context, storyID string, stage string) (bool, error) {
	ok, err := g.client.SetNX(ctx, guardKey(storyID, stage), "1", g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim stage %s for story %s: %w", stage, storyID, err)
	}
	return ok, nil
}

func (g *redisStageGuard) Release(ctx context.Context, storyID string, stage string) error {
	if err := g.client.Del(ctx, guardKey(storyID, stage)).Err(); err != nil {
		return fmt.Errorf("failed to release stage %s for story %s: %w", stage, storyID, err)
	}
	return nil
}
