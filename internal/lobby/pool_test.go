package lobby

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/duel/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolPairsSecondArrival(t *testing.T) {
	sessions := &fakeSessions{}
	p := NewPool(sessions, 0, quietLogger())

	x, err := p.Request(game.TypePong, 0.1, ClassGuest, "GUEST_x")
	require.NoError(t, err)
	assert.False(t, x.Matched)
	assert.Nil(t, x.SessionID)
	assert.Equal(t, 1, p.Stats().WaitingCount)

	y, err := p.Request(game.TypePong, 0.1, ClassGuest, "GUEST_y")
	require.NoError(t, err)
	require.True(t, y.Matched)
	require.NotNil(t, y.SessionID)

	polled := p.Poll("GUEST_x")
	require.True(t, polled.Matched)
	assert.Equal(t, *y.SessionID, *polled.SessionID)
	assert.Equal(t, "GUEST_y", polled.Opponent)
	assert.Zero(t, p.Stats().WaitingCount)

	require.Equal(t, 1, sessions.count())
	assert.Equal(t, "GUEST_x", sessions.created[0][0].Identity, "first arrival takes seat 0")
}

func TestPoolKeysAreIsolated(t *testing.T) {
	p := NewPool(&fakeSessions{}, 0, quietLogger())
	for _, req := range []struct {
		gt    game.GameType
		wager float64
		class PlayerClass
		id    string
	}{
		{game.TypePong, 0.1, ClassGuest, "GUEST_a"},
		{game.TypePong, 0.2, ClassGuest, "GUEST_b"},
		{game.TypeDodge, 0.1, ClassGuest, "GUEST_c"},
		{game.TypePong, 0.1, ClassVerified, "wallet-d"},
	} {
		st, err := p.Request(req.gt, req.wager, req.class, req.id)
		require.NoError(t, err)
		assert.False(t, st.Matched)
	}
	assert.Equal(t, 4, p.Stats().WaitingCount)
}

func TestPoolRepeatRequestIsIdempotent(t *testing.T) {
	sessions := &fakeSessions{}
	p := NewPool(sessions, 0, quietLogger())
	for i := 0; i < 3; i++ {
		st, err := p.Request(game.TypeChess, 1, ClassGuest, "GUEST_x")
		require.NoError(t, err)
		assert.False(t, st.Matched, "never paired with itself")
	}
	assert.Equal(t, 1, p.Stats().WaitingCount)

	first, err := p.Request(game.TypeChess, 1, ClassGuest, "GUEST_y")
	require.NoError(t, err)
	again, err := p.Request(game.TypeChess, 1, ClassGuest, "GUEST_y")
	require.NoError(t, err)
	assert.Equal(t, *first.SessionID, *again.SessionID)
	assert.Equal(t, 1, sessions.count())
}

func TestPoolSwitchingKeysLeavesOldQueue(t *testing.T) {
	p := NewPool(&fakeSessions{}, 0, quietLogger())
	_, err := p.Request(game.TypePong, 1, ClassGuest, "GUEST_x")
	require.NoError(t, err)
	_, err = p.Request(game.TypeDodge, 1, ClassGuest, "GUEST_x")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Stats().WaitingCount)

	st, err := p.Request(game.TypePong, 1, ClassGuest, "GUEST_y")
	require.NoError(t, err)
	assert.False(t, st.Matched)
}

func TestPoolCancel(t *testing.T) {
	p := NewPool(&fakeSessions{}, 0, quietLogger())
	_, err := p.Request(game.TypePong, 1, ClassGuest, "GUEST_x")
	require.NoError(t, err)

	assert.NoError(t, p.Cancel(game.TypePong, 1, ClassGuest, "GUEST_y"), "nothing waiting for this identity")
	assert.Equal(t, 1, p.Stats().WaitingCount)
	assert.NoError(t, p.Cancel(game.TypePong, 1, ClassGuest, "GUEST_x"))
	assert.Zero(t, p.Stats().WaitingCount)
	assert.ErrorIs(t, p.Cancel(game.TypePong, 1, ClassGuest, ""), ErrInvalidRequest)
}

func TestPoolCancelWithOtherKeyKeepsEntryAndReportsNotFound(t *testing.T) {
	p := NewPool(&fakeSessions{}, 0, quietLogger())
	_, err := p.Request(game.TypePong, 1, ClassGuest, "GUEST_x")
	require.NoError(t, err)

	for _, tc := range []struct {
		gt    game.GameType
		wager float64
		class PlayerClass
	}{
		{game.TypeChess, 1, ClassGuest},
		{game.TypePong, 2, ClassGuest},
		{game.TypePong, 1, ClassVerified},
	} {
		err := p.Cancel(tc.gt, tc.wager, tc.class, "GUEST_x")
		assert.ErrorIs(t, err, ErrNotFound, "%s/%v/%s", tc.gt, tc.wager, tc.class)
		assert.Equal(t, "not_found", Code(err))
	}
	assert.Equal(t, 1, p.Stats().WaitingCount)

	require.NoError(t, p.Cancel(game.TypePong, 1, ClassGuest, "GUEST_x"))
	assert.Zero(t, p.Stats().WaitingCount)
}

func TestPoolCancelAfterPairingReportsAlreadyMatched(t *testing.T) {
	p := NewPool(&fakeSessions{}, 0, quietLogger())
	_, err := p.Request(game.TypePong, 1, ClassGuest, "GUEST_x")
	require.NoError(t, err)
	_, err = p.Request(game.TypePong, 1, ClassGuest, "GUEST_y")
	require.NoError(t, err)

	err = p.Cancel(game.TypePong, 1, ClassGuest, "GUEST_x")
	assert.ErrorIs(t, err, ErrAlreadyMatched)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, "already_matched", Code(err))
}

func TestPoolForgetClearsOnlyThatSession(t *testing.T) {
	p := NewPool(&fakeSessions{}, 0, quietLogger())
	_, err := p.Request(game.TypePong, 1, ClassGuest, "GUEST_x")
	require.NoError(t, err)
	st, err := p.Request(game.TypePong, 1, ClassGuest, "GUEST_y")
	require.NoError(t, err)

	p.Forget(uuid.New(), "GUEST_x", "GUEST_y")
	assert.True(t, p.Poll("GUEST_x").Matched)

	p.Forget(*st.SessionID, "GUEST_x", "GUEST_y")
	assert.False(t, p.Poll("GUEST_x").Matched)
	assert.False(t, p.Poll("GUEST_y").Matched)
}

func TestPoolSweepExpiresStaleEntries(t *testing.T) {
	p := NewPool(&fakeSessions{}, 5*time.Minute, quietLogger())
	start := time.Now()
	p.now = func() time.Time { return start }
	_, err := p.Request(game.TypePong, 1, ClassGuest, "GUEST_x")
	require.NoError(t, err)

	assert.Zero(t, p.Sweep(start.Add(time.Minute)))
	assert.Equal(t, 1, p.Sweep(start.Add(6*time.Minute)))
	assert.Zero(t, p.Stats().WaitingCount)

	st, err := p.Request(game.TypePong, 1, ClassGuest, "GUEST_y")
	require.NoError(t, err)
	assert.False(t, st.Matched, "expired entry is not paired")
}

// Concurrent arrivals on one key are paired two at a time; nobody is paired twice.
func TestPoolConcurrentArrivals(t *testing.T) {
	sessions := &fakeSessions{}
	p := NewPool(sessions, 0, quietLogger())
	const n = 40
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := p.Request(game.TypeDodge, 0.5, ClassGuest, "GUEST_"+uuid.NewString())
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, n/2, sessions.count())
	assert.Zero(t, p.Stats().WaitingCount)

	seen := map[string]bool{}
	for _, pair := range sessions.created {
		for _, pl := range pair {
			assert.False(t, seen[pl.Identity])
			seen[pl.Identity] = true
		}
	}
}
