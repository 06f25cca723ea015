// internal/match/store.go
package match

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/duel/internal/game"
	"github.com/sirupsen/logrus"
)

// Options are the session lifecycle timings.
type Options struct {
	// ReapDelay is how long a finished session stays addressable after its final broadcast.
	ReapDelay time.Duration
	// FormingTimeout discards sessions whose players never both connect. Zero disables it.
	FormingTimeout time.Duration
}

// DefaultOptions mirrors the production defaults.
func DefaultOptions() Options {
	return Options{
		ReapDelay:      5 * time.Second,
		FormingTimeout: 3 * time.Minute,
	}
}

// SessionStore is the registry of live sessions keyed by id.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session

	factories map[game.GameType]game.Factory
	opts      Options
	sink      ResultSink
	logger    logrus.FieldLogger
	onRemove  []func(*Session)
}

func NewSessionStore(factories map[game.GameType]game.Factory, opts Options, sink ResultSink, logger logrus.FieldLogger) *SessionStore {
	return &SessionStore{
		sessions:  make(map[uuid.UUID]*Session),
		factories: factories,
		opts:      opts,
		sink:      sink,
		logger:    logger,
	}
}

// OnRemove registers a hook run after a session is reaped. Hooks must be
// registered before the first session is created.
func (st *SessionStore) OnRemove(fn func(*Session)) {
	st.onRemove = append(st.onRemove, fn)
}

// Create builds and starts a session for two distinct identities.
func (st *SessionStore) Create(gt game.GameType, wager float64, players [2]game.Player) (*Session, error) {
	factory, ok := st.factories[gt]
	if !ok {
		return nil, fmt.Errorf("no engine registered for game type %q", gt)
	}
	if players[0].Identity == "" || players[0].Identity == players[1].Identity {
		return nil, fmt.Errorf("session needs two distinct players, got %q and %q", players[0].Identity, players[1].Identity)
	}

	s := newSession(uuid.New(), gt, wager, players, factory(), st.opts, st.sink, st.logger, st.reaped)

	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()

	go s.run()
	st.logger.WithFields(logrus.Fields{
		"session": s.ID,
		"game":    gt,
		"wager":   wager,
		"players": []string{players[0].Identity, players[1].Identity},
	}).Info("session created")
	return s, nil
}

// CreateSession is Create for callers that only need the new id.
func (st *SessionStore) CreateSession(gt game.GameType, wager float64, players [2]game.Player) (uuid.UUID, error) {
	s, err := st.Create(gt, wager, players)
	if err != nil {
		return uuid.Nil, err
	}
	return s.ID, nil
}

func (st *SessionStore) Get(id uuid.UUID) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	return s, ok
}

// Sessions returns a snapshot of every registered session.
func (st *SessionStore) Sessions() []*Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		out = append(out, s)
	}
	return out
}

func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

func (st *SessionStore) reaped(s *Session) {
	st.mu.Lock()
	delete(st.sessions, s.ID)
	st.mu.Unlock()
	for _, fn := range st.onRemove {
		fn(s)
	}
}
