// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jason-s-yu/duel/internal/models"
	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list that carries finished match results.
const DefaultQueueName = "duel_results"

// Connect builds a Redis client and pings it once.
func Connect(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// ResultQueue is a Redis list of JSON-encoded match results. The server
// pushes to the tail and the historian pops from the head.
type ResultQueue struct {
	rdb   redis.Cmdable
	queue string
}

func NewResultQueue(rdb redis.Cmdable, queue string) *ResultQueue {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &ResultQueue{rdb: rdb, queue: queue}
}

// Name returns the list key.
func (q *ResultQueue) Name() string { return q.queue }

// Publish serializes the result and pushes it onto the queue.
func (q *ResultQueue) Publish(ctx context.Context, result models.MatchResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal MatchResult: %w", err)
	}
	if err := q.rdb.RPush(ctx, q.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", q.queue, err)
	}
	return nil
}

// Pop blocks up to timeout for the next result. It returns (nil, nil) when
// the wait expires with nothing queued.
func (q *ResultQueue) Pop(ctx context.Context, timeout time.Duration) (*models.MatchResult, error) {
	res, err := q.rdb.BLPop(ctx, timeout, q.queue).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("BLPop %s: %w", q.queue, err)
	}
	// res[0] is the queue name and res[1] the payload.
	if len(res) < 2 {
		return nil, nil
	}
	var result models.MatchResult
	if err := json.Unmarshal([]byte(res[1]), &result); err != nil {
		return nil, fmt.Errorf("invalid match result record: %w", err)
	}
	return &result, nil
}
