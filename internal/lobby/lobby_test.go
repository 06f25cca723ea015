package lobby

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/duel/internal/game"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// fakeSessions records every session the stores ask for.
type fakeSessions struct {
	mu      sync.Mutex
	created [][2]game.Player
	fail    error
}

func (f *fakeSessions) CreateSession(_ game.GameType, _ float64, players [2]game.Player) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return uuid.Nil, f.fail
	}
	f.created = append(f.created, players)
	return uuid.New(), nil
}

func (f *fakeSessions) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

func TestClassDerivedFromIdentity(t *testing.T) {
	assert.Equal(t, ClassGuest, ClassOf("GUEST_1234"))
	assert.Equal(t, ClassVerified, ClassOf("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"))

	c, err := ParsePlayerClass("", "GUEST_x")
	require.NoError(t, err)
	assert.Equal(t, ClassGuest, c)
	c, err = ParsePlayerClass("Verified", "GUEST_x")
	require.NoError(t, err)
	assert.Equal(t, ClassVerified, c)
	_, err = ParsePlayerClass("vip", "x")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestCreateValidatesRequest(t *testing.T) {
	s := NewLobbyStore(&fakeSessions{}, 0, quietLogger())
	cases := map[string]struct {
		gt       game.GameType
		wager    float64
		class    PlayerClass
		identity string
	}{
		"no identity":   {game.TypePong, 1, ClassGuest, ""},
		"unknown game":  {"tetris", 1, ClassGuest, "GUEST_a"},
		"zero wager":    {game.TypePong, 0, ClassGuest, "GUEST_a"},
		"negative":      {game.TypePong, -1, ClassGuest, "GUEST_a"},
		"unknown class": {game.TypePong, 1, "vip", "GUEST_a"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := s.Create(tc.gt, tc.wager, tc.class, tc.identity, "")
			assert.ErrorIs(t, err, ErrInvalidRequest)
			assert.Equal(t, "invalid_request", Code(err))
		})
	}
	assert.Empty(t, s.List("", "", ""))
}

func TestDuplicateLobbyPerClass(t *testing.T) {
	s := NewLobbyStore(&fakeSessions{}, 0, quietLogger())
	_, err := s.Create(game.TypePong, 1, ClassGuest, "GUEST_a", "a")
	require.NoError(t, err)

	_, err = s.Create(game.TypeChess, 2, ClassGuest, "GUEST_a", "a")
	assert.ErrorIs(t, err, ErrDuplicateLobby)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, "duplicate_lobby", Code(err))

	_, err = s.Create(game.TypeChess, 2, ClassVerified, "GUEST_a", "a")
	assert.NoError(t, err, "other class is a separate pool")
}

func TestListFiltersAndOrders(t *testing.T) {
	s := NewLobbyStore(&fakeSessions{}, 0, quietLogger())
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, who := range []string{"GUEST_a", "GUEST_b", "GUEST_c"} {
		s.now = func() time.Time { return base.Add(time.Duration(i) * time.Second) }
		_, err := s.Create(game.TypePong, 1, ClassGuest, who, "")
		require.NoError(t, err)
	}
	_, err := s.Create(game.TypeDodge, 1, ClassGuest, "GUEST_d", "")
	require.NoError(t, err)

	pong := s.List(game.TypePong, ClassGuest, "")
	require.Len(t, pong, 3)
	assert.Equal(t, "GUEST_a", pong[0].CreatorIdentity)
	assert.Equal(t, "GUEST_c", pong[2].CreatorIdentity)

	mine := s.List(game.TypePong, ClassGuest, "GUEST_b")
	assert.Len(t, mine, 2)
	for _, l := range mine {
		assert.NotEqual(t, "GUEST_b", l.CreatorIdentity)
	}
	assert.Empty(t, s.List(game.TypePong, ClassVerified, ""))
	assert.Len(t, s.List("", "", ""), 4)
}

func TestJoinCreatesSessionAndHidesLobby(t *testing.T) {
	sessions := &fakeSessions{}
	s := NewLobbyStore(sessions, 0, quietLogger())
	l, err := s.Create(game.TypeBidding, 0.5, ClassGuest, "GUEST_host", "host")
	require.NoError(t, err)

	_, err = s.Join(l.ID, "GUEST_host", "host", "")
	assert.ErrorIs(t, err, ErrSelfJoin)
	_, err = s.Join(l.ID, "verified-user", "v", "")
	assert.ErrorIs(t, err, ErrClassMismatch)

	id, err := s.Join(l.ID, "GUEST_guest", "guest", "")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
	require.Equal(t, 1, sessions.count())
	assert.Equal(t, "GUEST_host", sessions.created[0][0].Identity, "creator takes seat 0")
	assert.Equal(t, "guest", sessions.created[0][1].Name)

	assert.Empty(t, s.List("", "", ""), "joined lobby is never listed")
	_, err = s.Join(l.ID, "GUEST_late", "", "")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "not_found", Code(err))
}

func TestJoinKeepsLobbyWhenSessionFails(t *testing.T) {
	sessions := &fakeSessions{fail: errors.New("no engine")}
	s := NewLobbyStore(sessions, 0, quietLogger())
	l, err := s.Create(game.TypePong, 1, ClassGuest, "GUEST_a", "")
	require.NoError(t, err)

	_, err = s.Join(l.ID, "GUEST_b", "", "")
	require.Error(t, err)
	assert.Equal(t, "internal", Code(err))
	assert.Len(t, s.List("", "", ""), 1)
}

func TestCancelOnlyByOwner(t *testing.T) {
	s := NewLobbyStore(&fakeSessions{}, 0, quietLogger())
	l, err := s.Create(game.TypePong, 1, ClassGuest, "GUEST_a", "")
	require.NoError(t, err)

	assert.ErrorIs(t, s.Cancel(l.ID, "GUEST_b"), ErrNotOwner)
	assert.NoError(t, s.Cancel(l.ID, "GUEST_a"))
	assert.ErrorIs(t, s.Cancel(l.ID, "GUEST_a"), ErrNotFound)

	_, err = s.Create(game.TypePong, 1, ClassGuest, "GUEST_a", "")
	assert.NoError(t, err, "creator may open a new lobby after cancelling")
}

// Racing cancel and join on one lobby: exactly one wins, the loser sees NotFound.
func TestCancelJoinRace(t *testing.T) {
	for i := 0; i < 200; i++ {
		sessions := &fakeSessions{}
		s := NewLobbyStore(sessions, 0, quietLogger())
		l, err := s.Create(game.TypeDodge, 1, ClassGuest, "GUEST_a", "")
		require.NoError(t, err)

		var wg sync.WaitGroup
		var joinErr, cancelErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, joinErr = s.Join(l.ID, "GUEST_b", "", "")
		}()
		go func() {
			defer wg.Done()
			cancelErr = s.Cancel(l.ID, "GUEST_a")
		}()
		wg.Wait()

		if joinErr == nil {
			assert.ErrorIs(t, cancelErr, ErrNotFound)
			assert.Equal(t, 1, sessions.count())
		} else {
			assert.NoError(t, cancelErr)
			assert.ErrorIs(t, joinErr, ErrNotFound)
			assert.Zero(t, sessions.count())
		}
		assert.Empty(t, s.List("", "", ""))
	}
}

func TestSweepExpiresIdleLobbies(t *testing.T) {
	s := NewLobbyStore(&fakeSessions{}, 10*time.Minute, quietLogger())
	start := time.Now()
	s.now = func() time.Time { return start }
	_, err := s.Create(game.TypePong, 1, ClassGuest, "GUEST_old", "")
	require.NoError(t, err)
	s.now = func() time.Time { return start.Add(8 * time.Minute) }
	_, err = s.Create(game.TypePong, 1, ClassGuest, "GUEST_new", "")
	require.NoError(t, err)

	assert.Equal(t, 1, s.Sweep(start.Add(11*time.Minute)))
	left := s.List("", "", "")
	require.Len(t, left, 1)
	assert.Equal(t, "GUEST_new", left[0].CreatorIdentity)
}
