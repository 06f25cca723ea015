package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/duel/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Needs a reachable Redis (REDIS_ADDR, default localhost:6379); skipped otherwise.
func TestResultQueueRoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	ctx := context.Background()
	rdb, err := Connect(ctx, addr, 0)
	if err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	defer rdb.Close()

	q := NewResultQueue(rdb, "duel_results_test_"+uuid.NewString())
	defer rdb.Del(ctx, q.Name())

	want := models.MatchResult{
		SessionID: uuid.New(),
		GameType:  "pong",
		Wager:     0.1,
		Players:   [2]string{"GUEST_a", "GUEST_b"},
		Winner:    "GUEST_b",
		Forfeited: true,
		StartedAt: time.Now().UTC().Truncate(time.Millisecond),
		EndedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, q.Publish(ctx, want))

	got, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.SessionID, got.SessionID)
	assert.Equal(t, want.Winner, got.Winner)
	assert.True(t, got.Forfeited)
	assert.True(t, want.EndedAt.Equal(got.EndedAt))

	empty, err := q.Pop(ctx, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestNewResultQueueDefaultsName(t *testing.T) {
	assert.Equal(t, DefaultQueueName, NewResultQueue(nil, "").Name())
}
