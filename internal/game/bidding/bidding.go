// internal/game/bidding/bidding.go
package bidding

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/jason-s-yu/duel/internal/game"
)

const (
	// Rounds is the number of rounds in a match; each side holds one card per round.
	Rounds = 5
	// MaxRoundValue bounds the public round values drawn from 1..MaxRoundValue.
	MaxRoundValue = 10

	StartDelay     = 2 * time.Second
	RevealDelay    = 1500 * time.Millisecond
	NextRoundDelay = 3 * time.Second
)

// Phase is the bidding round state machine.
type Phase string

const (
	PhaseWaiting   Phase = "waiting"
	PhaseChoosing  Phase = "choosing"
	PhaseRevealing Phase = "revealing"
	PhaseFinished  Phase = "finished"
)

// RoundResult records one resolved round. Winner is a seat index or game.NoWinner.
type RoundResult struct {
	Round      int
	RoundValue int
	Cards      [2]int
	Winner     int
	Points     int
}

type side struct {
	name   string
	score  int
	cards  []int
	choice int // 0 while nothing is committed
}

func (s *side) holds(card int) bool {
	for _, c := range s.cards {
		if c == card {
			return true
		}
	}
	return false
}

func (s *side) discard(card int) {
	for i, c := range s.cards {
		if c == card {
			s.cards = append(s.cards[:i], s.cards[i+1:]...)
			return
		}
	}
}

// Engine is the simultaneous-choice card bidding game.
type Engine struct {
	game.EventLog

	sched       game.Scheduler
	cancelTask  func()
	roundValues []int

	round       int
	roundValue  int
	sides       [2]side
	phase       Phase
	roundWinner int
	history     []RoundResult
	message     string

	over      bool
	winner    int
	forfeited bool
}

// New builds an engine whose round values are drawn from rng.
func New(rng *rand.Rand) *Engine {
	perm := rng.Perm(MaxRoundValue)
	values := make([]int, Rounds)
	for i := range values {
		values[i] = perm[i] + 1
	}
	return newWithRoundValues(values)
}

// NewEngine is the game.Factory used by the session registry.
func NewEngine() game.Engine {
	return New(rand.New(rand.NewSource(time.Now().UnixNano())))
}

func newWithRoundValues(values []int) *Engine {
	e := &Engine{
		roundValues: values,
		phase:       PhaseWaiting,
		roundWinner: game.NoWinner,
		winner:      game.NoWinner,
		message:     "Waiting for players...",
	}
	for i := range e.sides {
		e.sides[i] = side{
			name:  fmt.Sprintf("Player %d", i+1),
			cards: []int{1, 2, 3, 4, 5},
		}
	}
	return e
}

// Start names both seats and schedules the first round.
func (e *Engine) Start(players [2]game.Player, sched game.Scheduler) {
	e.sched = sched
	for i, p := range players {
		if p.Name != "" {
			e.sides[i].name = p.Name
		}
	}
	e.message = "Game starting..."
	e.schedule(StartDelay, e.startNextRound)
}

func (e *Engine) schedule(d time.Duration, fn func()) {
	if e.sched == nil {
		return
	}
	e.cancelTask = e.sched.After(d, func() {
		e.cancelTask = nil
		fn()
	})
}

func (e *Engine) startNextRound() {
	if e.over {
		return
	}
	e.round++
	e.roundValue = e.roundValues[e.round-1]
	e.sides[0].choice = 0
	e.sides[1].choice = 0
	e.roundWinner = game.NoWinner
	e.phase = PhaseChoosing
	e.message = fmt.Sprintf("Round %d: Place your bet. Round Value: %d", e.round, e.roundValue)
	e.Emit(game.EventRoundStart)
}

// HandleInput commits a card for the round. A card can be committed once per
// round and only while choosing.
func (e *Engine) HandleInput(player int, in game.Input) bool {
	if e.over || e.phase != PhaseChoosing || in.Type != game.InputPlayChoice {
		return false
	}
	if player < 0 || player > 1 {
		return false
	}
	s := &e.sides[player]
	if s.choice != 0 || !s.holds(in.Value) {
		return false
	}
	s.choice = in.Value
	if e.sides[0].choice != 0 && e.sides[1].choice != 0 {
		e.phase = PhaseRevealing
		e.message = "Revealing choices..."
		e.Emit(game.EventReveal)
		e.schedule(RevealDelay, e.resolveRound)
	}
	return true
}

func (e *Engine) resolveRound() {
	if e.over {
		return
	}
	a, b := &e.sides[0], &e.sides[1]
	a.discard(a.choice)
	b.discard(b.choice)

	res := RoundResult{
		Round:      e.round,
		RoundValue: e.roundValue,
		Cards:      [2]int{a.choice, b.choice},
		Winner:     game.NoWinner,
	}
	switch {
	case a.choice > b.choice:
		res.Winner = 0
	case b.choice > a.choice:
		res.Winner = 1
	}
	if res.Winner == game.NoWinner {
		e.message = "It's a draw! No points awarded."
		e.Emit(game.EventRoundDraw)
	} else {
		res.Points = e.roundValue + a.choice + b.choice
		e.sides[res.Winner].score += res.Points
		e.message = fmt.Sprintf("%s wins the round! +%d points.", e.sides[res.Winner].name, res.Points)
		e.Emit(game.EventRoundWin)
	}
	e.roundWinner = res.Winner
	e.history = append(e.history, res)

	if e.round >= Rounds {
		e.schedule(NextRoundDelay, e.finish)
	} else {
		e.schedule(NextRoundDelay, e.startNextRound)
	}
}

func (e *Engine) finish() {
	if e.over {
		return
	}
	switch {
	case e.sides[0].score > e.sides[1].score:
		e.winner = 0
	case e.sides[1].score > e.sides[0].score:
		e.winner = 1
	default:
		e.winner = game.NoWinner
	}
	e.over = true
	e.phase = PhaseFinished
	e.message = "Game Over!"
	e.Emit(game.EventGameOver)
}

// Update is a no-op; the bidding game only moves on input and scheduled tasks.
func (e *Engine) Update(time.Duration) bool { return false }

func (e *Engine) Realtime() bool { return false }

func (e *Engine) Terminal() bool { return e.over }

func (e *Engine) Winner() int { return e.winner }

// Forfeit ends the match in favour of the other seat and drops any pending transition.
func (e *Engine) Forfeit(player int) {
	if e.over {
		return
	}
	if e.cancelTask != nil {
		e.cancelTask()
		e.cancelTask = nil
	}
	e.over = true
	e.forfeited = true
	e.winner = game.Other(player)
	e.phase = PhaseFinished
	e.message = "Opponent left the match."
}

// Scores returns both cumulative scores in seat order.
func (e *Engine) Scores() [2]int {
	return [2]int{e.sides[0].score, e.sides[1].score}
}

// History returns the resolved rounds in order.
func (e *Engine) History() []RoundResult {
	out := make([]RoundResult, len(e.history))
	copy(out, e.history)
	return out
}

// Phase reports the current round phase.
func (e *Engine) Phase() Phase { return e.phase }
