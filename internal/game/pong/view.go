package pong

import (
	"math"

	"github.com/jason-s-yu/duel/internal/game"
)

// PaddleView is one paddle in arena coordinates.
type PaddleView struct {
	Name      string  `json:"nickname"`
	Side      string  `json:"side"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Score     int     `json:"score"`
	RoundsWon int     `json:"roundsWon"`
}

// BallView is the ball position and velocity.
type BallView struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	VX float64 `json:"vx"`
	VY float64 `json:"vy"`
}

// Snapshot is the per-recipient projection of the paddle game.
type Snapshot struct {
	Self      PaddleView `json:"self"`
	Opponent  PaddleView `json:"opponent"`
	Ball      BallView   `json:"ball"`
	Round     int        `json:"round"`
	Countdown int        `json:"countdown,omitempty"`
	Message   string     `json:"message,omitempty"`
	GameOver  bool       `json:"gameOver"`
}

func (e *Engine) paddleView(seat int) PaddleView {
	p := e.paddles[seat]
	side := "left"
	if seat == 1 {
		side = "right"
	}
	return PaddleView{
		Name:      p.name,
		Side:      side,
		X:         paddleX(seat),
		Y:         p.y,
		Score:     p.score,
		RoundsWon: p.roundsWon,
	}
}

func (e *Engine) Project(player int) any {
	snap := Snapshot{
		Self:     e.paddleView(player),
		Opponent: e.paddleView(game.Other(player)),
		Ball:     BallView{X: e.ball.x, Y: e.ball.y, VX: e.ball.vx, VY: e.ball.vy},
		Round:    e.round,
		Message:  e.message,
		GameOver: e.over,
	}
	if e.countdown > 0 {
		snap.Countdown = int(math.Ceil(e.countdown.Seconds()))
	}
	return snap
}
