// internal/match/session.go
package match

import (
	"context"
	"encoding/json"
	"errors"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/duel/internal/game"
	"github.com/jason-s-yu/duel/internal/models"
	"github.com/sirupsen/logrus"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionClosed    = errors.New("session closed")
	ErrSessionOver      = errors.New("session already finished")
	ErrNotSeated        = errors.New("identity is not a player in this session")
	ErrAlreadyConnected = errors.New("player already connected")
)

// State is the lifecycle stage of a session.
type State int32

const (
	StateForming State = iota
	StatePlaying
	StateOver
)

func (s State) String() string {
	switch s {
	case StateForming:
		return "forming"
	case StatePlaying:
		return "playing"
	case StateOver:
		return "over"
	}
	return "unknown"
}

// maxStep bounds the dt handed to real-time engines after a stall.
const maxStep = 100 * time.Millisecond

// Client is one attached connection. Send must not block; it reports false
// when the message was dropped. SendFinal carries the game_over message and
// may discard frames still queued so that it is never the one dropped.
type Client interface {
	Send(msg []byte) bool
	SendFinal(msg []byte) bool
}

// StateMessage is pushed to each client after every change.
type StateMessage struct {
	Type        string        `json:"type"`
	SessionID   uuid.UUID     `json:"sessionId"`
	GameType    game.GameType `json:"gameType"`
	State       any           `json:"state"`
	SoundEvents []string      `json:"soundEvents,omitempty"`
}

// GameOverMessage is the final push of a session; Outcome is relative to the recipient.
type GameOverMessage struct {
	Type        string        `json:"type"`
	SessionID   uuid.UUID     `json:"sessionId"`
	GameType    game.GameType `json:"gameType"`
	GameOver    bool          `json:"gameOver"`
	Outcome     string        `json:"outcome"`
	Forfeited   bool          `json:"forfeited"`
	Fault       bool          `json:"fault,omitempty"`
	State       any           `json:"state"`
	SoundEvents []string      `json:"soundEvents,omitempty"`
}

// Recipient-relative outcomes.
const (
	OutcomeWon  = "won"
	OutcomeLost = "lost"
	OutcomeDraw = "draw"
)

type eventKind int

const (
	evAttach eventKind = iota
	evDetach
	evInput
	evTick
	evTimer
)

type event struct {
	kind     eventKind
	identity string
	name     string
	client   Client
	input    game.Input
	at       time.Time
	timerID  int
	reply    chan error
}

type timer struct {
	t      *time.Timer
	fn     func()
	engine bool
}

type slot struct {
	identity string
	name     string
	client   Client
}

// Session is the live instance of one match. All state below the immutable
// header is owned by the run goroutine; other goroutines only post events.
type Session struct {
	ID        uuid.UUID
	GameType  game.GameType
	Wager     float64
	CreatedAt time.Time

	engine   game.Engine
	realtime bool
	opts     Options
	sink     ResultSink
	logger   logrus.FieldLogger
	onReap   func(*Session)

	inbox       chan event
	done        chan struct{}
	state       atomic.Int32
	tickPending atomic.Bool

	slots     [2]slot
	timers    map[int]*timer
	nextTimer int
	lastTick  time.Time
	startedAt time.Time
	forfeited bool
	fault     bool
	reaped    bool
}

func newSession(id uuid.UUID, gt game.GameType, wager float64, players [2]game.Player, engine game.Engine,
	opts Options, sink ResultSink, logger logrus.FieldLogger, onReap func(*Session)) *Session {
	s := &Session{
		ID:        id,
		GameType:  gt,
		Wager:     wager,
		CreatedAt: time.Now(),
		engine:    engine,
		realtime:  engine.Realtime(),
		opts:      opts,
		sink:      sink,
		logger:    logger.WithFields(logrus.Fields{"session": id, "game": gt}),
		onReap:    onReap,
		inbox:     make(chan event, 64),
		done:      make(chan struct{}),
		timers:    make(map[int]*timer),
	}
	for i, p := range players {
		s.slots[i] = slot{identity: p.Identity, name: p.Name}
	}
	return s
}

// Identities returns the two seated identities in seat order.
func (s *Session) Identities() [2]string {
	return [2]string{s.slots[0].identity, s.slots[1].identity}
}

// State reports the lifecycle stage; safe from any goroutine.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Done is closed once the session has been reaped.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Realtime reports whether the session is driven by the ticker.
func (s *Session) Realtime() bool {
	return s.realtime
}

func (s *Session) post(ev event) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.inbox <- ev:
		return true
	case <-s.done:
		return false
	}
}

func (s *Session) request(ev event) error {
	ev.reply = make(chan error, 1)
	if !s.post(ev) {
		return ErrSessionClosed
	}
	select {
	case err := <-ev.reply:
		return err
	case <-s.done:
		select {
		case err := <-ev.reply:
			return err
		default:
			return ErrSessionClosed
		}
	}
}

// Attach connects a client to its seat. The match starts when both seats are connected.
func (s *Session) Attach(identity, name string, c Client) error {
	return s.request(event{kind: evAttach, identity: identity, name: name, client: c})
}

// Detach removes a client. While playing this forfeits the match for that seat.
func (s *Session) Detach(identity string, c Client) {
	s.post(event{kind: evDetach, identity: identity, client: c})
}

// Input forwards a decoded client message to the engine.
func (s *Session) Input(identity string, in game.Input) {
	s.post(event{kind: evInput, identity: identity, input: in})
}

// Tick queues one engine update. At most one tick is ever pending, so a slow
// session skips ticks instead of building a backlog.
func (s *Session) Tick(now time.Time) {
	if s.State() != StatePlaying || !s.tickPending.CompareAndSwap(false, true) {
		return
	}
	select {
	case s.inbox <- event{kind: evTick, at: now}:
	default:
		s.tickPending.Store(false)
	}
}

func (s *Session) run() {
	defer s.teardown()
	if s.opts.FormingTimeout > 0 {
		s.schedule(s.opts.FormingTimeout, false, func() {
			if s.State() == StateForming {
				s.logger.Info("session never started; discarding")
				s.reaped = true
			}
		})
	}
	for !s.reaped {
		s.handle(<-s.inbox)
	}
}

func (s *Session) teardown() {
	for id, t := range s.timers {
		t.t.Stop()
		delete(s.timers, id)
	}
	if s.onReap != nil {
		s.onReap(s)
	}
	close(s.done)
	s.logger.Debug("session reaped")
}

// handle processes one inbox event. Any panic escaping the engine ends the
// match as a draw flagged as a fault.
func (s *Session) handle(ev event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.WithField("panic", r).Errorf("engine failure:\n%s", debug.Stack())
			s.fault = true
			s.finish()
		}
	}()

	switch ev.kind {
	case evAttach:
		s.attach(ev)
	case evDetach:
		s.detach(ev.identity, ev.client)
	case evInput:
		seat := s.seat(ev.identity)
		if seat < 0 || s.State() != StatePlaying || s.slots[seat].client == nil {
			return
		}
		s.afterChange(s.engine.HandleInput(seat, ev.input))
	case evTick:
		s.tickPending.Store(false)
		if s.State() != StatePlaying {
			return
		}
		dt := ev.at.Sub(s.lastTick)
		s.lastTick = ev.at
		if dt <= 0 {
			return
		}
		s.afterChange(s.engine.Update(min(dt, maxStep)))
	case evTimer:
		t, ok := s.timers[ev.timerID]
		if !ok {
			return
		}
		delete(s.timers, ev.timerID)
		if !t.engine {
			t.fn()
			return
		}
		if s.State() != StatePlaying {
			return
		}
		t.fn()
		s.afterChange(true)
	}
}

func (s *Session) seat(identity string) int {
	for i, sl := range s.slots {
		if sl.identity == identity {
			return i
		}
	}
	return -1
}

func (s *Session) attach(ev event) {
	seat := s.seat(ev.identity)
	switch {
	case seat < 0:
		ev.reply <- ErrNotSeated
		return
	case s.State() == StateOver:
		ev.reply <- ErrSessionOver
		return
	case s.slots[seat].client != nil:
		ev.reply <- ErrAlreadyConnected
		return
	}
	sl := &s.slots[seat]
	sl.client = ev.client
	if ev.name != "" {
		sl.name = ev.name
	}
	ev.reply <- nil
	s.logger.WithFields(logrus.Fields{"identity": ev.identity, "seat": seat}).Info("player attached")

	if s.State() == StateForming && s.slots[0].client != nil && s.slots[1].client != nil {
		s.start()
		return
	}
	s.broadcast()
}

func (s *Session) start() {
	s.state.Store(int32(StatePlaying))
	s.startedAt = time.Now()
	s.lastTick = s.startedAt
	var players [2]game.Player
	for i, sl := range s.slots {
		players[i] = game.Player{Identity: sl.identity, Name: sl.name}
	}
	s.logger.Info("match started")
	s.engine.Start(players, engineScheduler{s})
	s.afterChange(true)
}

func (s *Session) detach(identity string, c Client) {
	seat := s.seat(identity)
	if seat < 0 || s.slots[seat].client == nil || s.slots[seat].client != c {
		return
	}
	s.slots[seat].client = nil
	log := s.logger.WithFields(logrus.Fields{"identity": identity, "seat": seat})

	switch s.State() {
	case StateForming:
		log.Info("player left before the match started; discarding session")
		s.reaped = true
	case StatePlaying:
		log.Info("player disconnected; forfeiting")
		s.engine.Forfeit(seat)
		s.forfeited = true
		s.finish()
	default:
		log.Debug("player left finished session")
	}
}

// afterChange pushes the new state, or finishes the match once terminal.
func (s *Session) afterChange(changed bool) {
	if s.engine.Terminal() {
		s.finish()
		return
	}
	if changed {
		s.broadcast()
	}
}

func (s *Session) finish() {
	if s.State() == StateOver {
		return
	}
	s.state.Store(int32(StateOver))
	for id, t := range s.timers {
		if t.engine {
			t.t.Stop()
			delete(s.timers, id)
		}
	}
	s.schedule(s.opts.ReapDelay, false, func() { s.reaped = true })

	result := s.result()
	s.logger.WithFields(logrus.Fields{
		"winner":    result.Winner,
		"draw":      result.Draw,
		"forfeited": result.Forfeited,
		"fault":     result.Fault,
	}).Info("match over")
	s.broadcast()
	s.publish(result)
}

// winner is NoWinner after a fault, including one raised by Winner itself.
func (s *Session) winner() (w int) {
	if s.fault {
		return game.NoWinner
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.WithField("panic", r).Error("winner lookup failed")
			s.fault = true
			w = game.NoWinner
		}
	}()
	return s.engine.Winner()
}

func (s *Session) result() models.MatchResult {
	w := s.winner()
	r := models.MatchResult{
		SessionID: s.ID,
		GameType:  string(s.GameType),
		Wager:     s.Wager,
		Players:   s.Identities(),
		Forfeited: s.forfeited,
		Fault:     s.fault,
		StartedAt: s.startedAt,
		EndedAt:   time.Now(),
	}
	if w == game.NoWinner {
		r.Draw = true
	} else {
		r.Winner = s.slots[w].identity
	}
	return r
}

func (s *Session) publish(r models.MatchResult) {
	if s.sink == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.sink.Publish(ctx, r); err != nil {
			s.logger.WithError(err).Error("failed to publish match result")
		}
	}()
}

// project is the one engine call allowed to fail without ending the match
// again; it runs from finish after a fault.
func (s *Session) project(seat int) (view any) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.WithField("panic", r).Error("projection failed")
			s.fault = true
			view = nil
		}
	}()
	return s.engine.Project(seat)
}

func (s *Session) drainEvents() (events []string) {
	defer func() {
		if r := recover(); r != nil {
			events = nil
		}
	}()
	return s.engine.DrainEvents()
}

// broadcast sends every attached client its own view of the match.
func (s *Session) broadcast() {
	events := s.drainEvents()
	over := s.State() == StateOver
	winner := game.NoWinner
	if over {
		winner = s.winner()
	}
	for seat, sl := range s.slots {
		if sl.client == nil {
			continue
		}
		var msg any
		if over {
			msg = GameOverMessage{
				Type:        "game_over",
				SessionID:   s.ID,
				GameType:    s.GameType,
				GameOver:    true,
				Outcome:     outcomeFor(seat, winner),
				Forfeited:   s.forfeited,
				Fault:       s.fault,
				State:       s.project(seat),
				SoundEvents: events,
			}
		} else {
			msg = StateMessage{
				Type:        "state",
				SessionID:   s.ID,
				GameType:    s.GameType,
				State:       s.project(seat),
				SoundEvents: events,
			}
		}
		data, err := json.Marshal(msg)
		if err != nil {
			s.logger.WithError(err).Error("failed to marshal state")
			continue
		}
		if over {
			if !sl.client.SendFinal(data) {
				s.logger.WithField("identity", sl.identity).Warn("client closed before game over was delivered")
			}
			continue
		}
		if !sl.client.Send(data) {
			s.logger.WithField("identity", sl.identity).Warn("client send buffer full; dropping state")
		}
	}
}

func outcomeFor(seat, winner int) string {
	switch winner {
	case game.NoWinner:
		return OutcomeDraw
	case seat:
		return OutcomeWon
	}
	return OutcomeLost
}

// schedule arms a timer whose firing re-enters the inbox. The returned func
// cancels it; both run only on the session goroutine.
func (s *Session) schedule(d time.Duration, engine bool, fn func()) func() {
	s.nextTimer++
	id := s.nextTimer
	t := &timer{fn: fn, engine: engine}
	t.t = time.AfterFunc(d, func() {
		s.post(event{kind: evTimer, timerID: id})
	})
	s.timers[id] = t
	return func() {
		if t, ok := s.timers[id]; ok {
			t.t.Stop()
			delete(s.timers, id)
		}
	}
}

type engineScheduler struct {
	s *Session
}

func (es engineScheduler) After(d time.Duration, fn func()) func() {
	return es.s.schedule(d, true, fn)
}
