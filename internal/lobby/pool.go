package lobby

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/duel/internal/game"
	"github.com/sirupsen/logrus"
)

type poolKey struct {
	gameType game.GameType
	wager    float64
	class    PlayerClass
}

// PoolEntry is one identity waiting for an opponent.
type PoolEntry struct {
	GameType    game.GameType
	Wager       float64
	PlayerClass PlayerClass
	Identity    string
	EnqueuedAt  time.Time
}

// PoolStatus is what a pool request or poll reports back.
type PoolStatus struct {
	Matched   bool       `json:"matched"`
	SessionID *uuid.UUID `json:"sessionId,omitempty"`
	Opponent  string     `json:"-"`
}

type PoolStats struct {
	WaitingCount int `json:"waitingCount"`
}

type poolMatch struct {
	sessionID uuid.UUID
	opponent  string
}

// Pool pairs the first two arrivals for each (game type, wager, class) key.
// A key never holds more than one waiting entry.
type Pool struct {
	mu         sync.Mutex
	waiting    map[poolKey]*PoolEntry
	byIdentity map[string]poolKey
	matches    map[string]poolMatch

	sessions SessionCreator
	ttl      time.Duration
	now      func() time.Time
	logger   logrus.FieldLogger
}

func NewPool(sessions SessionCreator, ttl time.Duration, logger logrus.FieldLogger) *Pool {
	return &Pool{
		waiting:    make(map[poolKey]*PoolEntry),
		byIdentity: make(map[string]poolKey),
		matches:    make(map[string]poolMatch),
		sessions:   sessions,
		ttl:        ttl,
		now:        time.Now,
		logger:     logger,
	}
}

func (m poolMatch) status() PoolStatus {
	id := m.sessionID
	return PoolStatus{Matched: true, SessionID: &id, Opponent: m.opponent}
}

// Request pairs identity with whoever is waiting on the same key, or queues it.
// Repeating a request while waiting or after being paired returns the same status.
func (p *Pool) Request(gameType game.GameType, wager float64, class PlayerClass, identity string) (PoolStatus, error) {
	if err := validate(gameType, wager, class, identity); err != nil {
		return PoolStatus{}, err
	}
	key := poolKey{gameType: gameType, wager: wager, class: class}
	log := p.logger.WithFields(logrus.Fields{
		"game":     gameType,
		"wager":    wager,
		"class":    class,
		"identity": identity,
	})

	p.mu.Lock()
	defer p.mu.Unlock()

	if m, ok := p.matches[identity]; ok {
		return m.status(), nil
	}
	if prev, ok := p.byIdentity[identity]; ok && prev != key {
		delete(p.waiting, prev)
		delete(p.byIdentity, identity)
	}

	w, ok := p.waiting[key]
	if !ok {
		p.waiting[key] = &PoolEntry{
			GameType:    gameType,
			Wager:       wager,
			PlayerClass: class,
			Identity:    identity,
			EnqueuedAt:  p.now(),
		}
		p.byIdentity[identity] = key
		log.Info("waiting in pool")
		return PoolStatus{}, nil
	}
	if w.Identity == identity {
		return PoolStatus{}, nil
	}

	players := [2]game.Player{{Identity: w.Identity}, {Identity: identity}}
	sessionID, err := p.sessions.CreateSession(gameType, wager, players)
	if err != nil {
		return PoolStatus{}, fmt.Errorf("failed to create pool session: %w", err)
	}
	delete(p.waiting, key)
	delete(p.byIdentity, w.Identity)
	p.matches[w.Identity] = poolMatch{sessionID: sessionID, opponent: identity}
	p.matches[identity] = poolMatch{sessionID: sessionID, opponent: w.Identity}
	log.WithFields(logrus.Fields{"session": sessionID, "opponent": w.Identity}).Info("pool match formed")
	return p.matches[identity].status(), nil
}

// Poll reports whether identity has been paired since it queued.
func (p *Pool) Poll(identity string) PoolStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	if m, ok := p.matches[identity]; ok {
		return m.status()
	}
	return PoolStatus{}
}

// Cancel withdraws a waiting entry. It fails with ErrAlreadyMatched when the
// identity was paired before the cancel arrived, and with ErrNotFound when the
// identity is waiting under a different key. It is a no-op when nothing is waiting.
func (p *Pool) Cancel(gameType game.GameType, wager float64, class PlayerClass, identity string) error {
	if identity == "" {
		return invalidf("identity is required")
	}
	key := poolKey{gameType: gameType, wager: wager, class: class}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.matches[identity]; ok {
		return ErrAlreadyMatched
	}
	waitKey, ok := p.byIdentity[identity]
	if !ok {
		return nil
	}
	if waitKey != key {
		return fmt.Errorf("%w: no %s entry at wager %v for class %s", ErrNotFound, gameType, wager, class)
	}
	delete(p.waiting, key)
	delete(p.byIdentity, identity)
	p.logger.WithField("identity", identity).Info("left pool")
	return nil
}

func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{WaitingCount: len(p.waiting)}
}

// Forget drops the pairing records of a finished session.
func (p *Pool) Forget(sessionID uuid.UUID, identities ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range identities {
		if m, ok := p.matches[id]; ok && m.sessionID == sessionID {
			delete(p.matches, id)
		}
	}
}

// Sweep expires waiting entries older than the TTL and reports how many.
func (p *Pool) Sweep(now time.Time) int {
	if p.ttl <= 0 {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for key, w := range p.waiting {
		if now.Sub(w.EnqueuedAt) > p.ttl {
			delete(p.waiting, key)
			delete(p.byIdentity, w.Identity)
			n++
		}
	}
	if n > 0 {
		p.logger.WithField("count", n).Info("expired idle pool entries")
	}
	return n
}
