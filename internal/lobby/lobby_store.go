// internal/lobby/lobby_store.go
package lobby

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/duel/internal/game"
	"github.com/sirupsen/logrus"
)

// LobbyStore holds open lobbies in memory. Join and Cancel on the same lobby
// are serialized by one mutex, so exactly one of them wins.
type LobbyStore struct {
	mu      sync.Mutex
	lobbies map[uuid.UUID]*Lobby

	sessions SessionCreator
	ttl      time.Duration
	now      func() time.Time
	logger   logrus.FieldLogger
}

// NewLobbyStore builds an empty store. Lobbies older than ttl are dropped by
// Sweep; a zero ttl keeps them until joined or cancelled.
func NewLobbyStore(sessions SessionCreator, ttl time.Duration, logger logrus.FieldLogger) *LobbyStore {
	return &LobbyStore{
		lobbies:  make(map[uuid.UUID]*Lobby),
		sessions: sessions,
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
	}
}

// Create opens a lobby. A creator may hold one open lobby per player class.
func (s *LobbyStore) Create(gameType game.GameType, wager float64, class PlayerClass, creator, name string) (*Lobby, error) {
	if err := validate(gameType, wager, class, creator); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.lobbies {
		if l.CreatorIdentity == creator && l.PlayerClass == class {
			return nil, ErrDuplicateLobby
		}
	}
	l := &Lobby{
		ID:              uuid.New(),
		GameType:        gameType,
		Wager:           wager,
		PlayerClass:     class,
		CreatorIdentity: creator,
		CreatorName:     name,
		CreatedAt:       s.now(),
	}
	s.lobbies[l.ID] = l
	s.logger.WithFields(logrus.Fields{
		"lobby":   l.ID,
		"game":    gameType,
		"wager":   wager,
		"class":   class,
		"creator": creator,
	}).Info("lobby created")
	out := *l
	return &out, nil
}

// List returns copies of open lobbies, oldest first. Empty filters match everything;
// exclude drops lobbies created by that identity.
func (s *LobbyStore) List(gameType game.GameType, class PlayerClass, exclude string) []Lobby {
	s.mu.Lock()
	out := make([]Lobby, 0, len(s.lobbies))
	for _, l := range s.lobbies {
		if gameType != "" && l.GameType != gameType {
			continue
		}
		if class != "" && l.PlayerClass != class {
			continue
		}
		if exclude != "" && l.CreatorIdentity == exclude {
			continue
		}
		out = append(out, *l)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Join pairs joiner with the lobby creator and starts the session. The lobby
// is removed only once the session exists. An empty class is derived from the
// joiner's identity.
func (s *LobbyStore) Join(lobbyID uuid.UUID, joiner, name string, class PlayerClass) (uuid.UUID, error) {
	if joiner == "" {
		return uuid.Nil, invalidf("identity is required")
	}
	if class == "" {
		class = ClassOf(joiner)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lobbies[lobbyID]
	if !ok {
		return uuid.Nil, fmt.Errorf("lobby %s: %w", lobbyID, ErrNotFound)
	}
	if l.CreatorIdentity == joiner {
		return uuid.Nil, ErrSelfJoin
	}
	if l.PlayerClass != class {
		return uuid.Nil, ErrClassMismatch
	}

	players := [2]game.Player{
		{Identity: l.CreatorIdentity, Name: l.CreatorName},
		{Identity: joiner, Name: name},
	}
	sessionID, err := s.sessions.CreateSession(l.GameType, l.Wager, players)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create session for lobby %s: %w", lobbyID, err)
	}
	delete(s.lobbies, lobbyID)
	s.logger.WithFields(logrus.Fields{
		"lobby":   lobbyID,
		"session": sessionID,
		"joiner":  joiner,
	}).Info("lobby joined")
	return sessionID, nil
}

// Cancel removes a lobby on behalf of its creator.
func (s *LobbyStore) Cancel(lobbyID uuid.UUID, requester string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lobbies[lobbyID]
	if !ok {
		return fmt.Errorf("lobby %s: %w", lobbyID, ErrNotFound)
	}
	if l.CreatorIdentity != requester {
		return ErrNotOwner
	}
	delete(s.lobbies, lobbyID)
	s.logger.WithField("lobby", lobbyID).Info("lobby cancelled")
	return nil
}

// Sweep drops lobbies that have been open longer than the TTL and reports how many.
func (s *LobbyStore) Sweep(now time.Time) int {
	if s.ttl <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, l := range s.lobbies {
		if now.Sub(l.CreatedAt) > s.ttl {
			delete(s.lobbies, id)
			n++
		}
	}
	if n > 0 {
		s.logger.WithField("count", n).Info("expired idle lobbies")
	}
	return n
}
