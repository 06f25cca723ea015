// internal/game/pong/pong.go
package pong

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/jason-s-yu/duel/internal/game"
)

// Arena geometry in pixels; speeds in pixels per second.
const (
	Width         = 600.0
	Height        = 400.0
	PaddleWidth   = 12.0
	PaddleHeight  = 100.0
	PaddleXOffset = 20.0
	BallSize      = 12.0

	PaddleSpeed    = 360.0
	ServeSpeedX    = 300.0
	MaxServeSpeedY = 180.0
	// SpeedUp multiplies the horizontal ball speed on every paddle contact, up to MaxSpeedX.
	SpeedUp   = 1.05
	MaxSpeedX = 900.0
	// SpinFactor converts the contact offset from the paddle centre into vertical speed.
	SpinFactor = 12.0

	PointsPerRound = 3
	RoundsToWin    = 2

	RoundCountdown = 3 * time.Second
	PointCountdown = 1 * time.Second
)

type paddle struct {
	name      string
	y         float64
	dir       float64 // -1 up, 0 idle, +1 down
	score     int
	roundsWon int
}

type ball struct {
	x, y   float64
	vx, vy float64
}

// Engine is the real-time paddle game. Seat 0 defends the left edge, seat 1 the right.
type Engine struct {
	game.EventLog

	rng     *rand.Rand
	paddles [2]paddle
	ball    ball

	round      int
	roundServe float64 // serve direction of the current round's first serve
	serveDir   float64
	countdown  time.Duration
	message    string

	over      bool
	winner    int
	forfeited bool
}

// New builds an idle engine; rng drives the vertical serve angle.
func New(rng *rand.Rand) *Engine {
	e := &Engine{
		rng:        rng,
		round:      1,
		roundServe: -1,
		winner:     game.NoWinner,
		message:    "Waiting for opponent...",
	}
	for i := range e.paddles {
		e.paddles[i] = paddle{
			name: fmt.Sprintf("Player %d", i+1),
			y:    Height/2 - PaddleHeight/2,
		}
	}
	e.centerBall()
	return e
}

// NewEngine is the game.Factory used by the session registry.
func NewEngine() game.Engine {
	return New(rand.New(rand.NewSource(time.Now().UnixNano())))
}

func paddleX(seat int) float64 {
	if seat == 0 {
		return PaddleXOffset
	}
	return Width - PaddleXOffset - PaddleWidth
}

func (e *Engine) centerBall() {
	e.ball = ball{x: Width/2 - BallSize/2, y: Height/2 - BallSize/2}
}

// Start names the seats and begins the first round countdown.
func (e *Engine) Start(players [2]game.Player, _ game.Scheduler) {
	for i, p := range players {
		if p.Name != "" {
			e.paddles[i].name = p.Name
		}
	}
	e.serveDir = e.roundServe
	e.beginCountdown(RoundCountdown, fmt.Sprintf("Round %d", e.round))
}

func (e *Engine) beginCountdown(d time.Duration, msg string) {
	e.centerBall()
	e.countdown = d
	e.message = msg
}

func (e *Engine) serve() {
	e.centerBall()
	e.ball.vx = e.serveDir * ServeSpeedX
	sign := 1.0
	if e.rng.Intn(2) == 0 {
		sign = -1
	}
	e.ball.vy = sign * e.rng.Float64() * MaxServeSpeedY
	e.message = ""
	e.Emit(game.EventRoundStart)
}

// HandleInput sets or clears a paddle's direction.
func (e *Engine) HandleInput(player int, in game.Input) bool {
	if e.over || player < 0 || player > 1 {
		return false
	}
	p := &e.paddles[player]
	var dir float64
	switch in.Direction {
	case "up":
		dir = -1
	case "down":
		dir = 1
	default:
		return false
	}
	switch in.Type {
	case game.InputMovePaddle:
		if p.dir == dir {
			return false
		}
		p.dir = dir
		return true
	case game.InputStopPaddle:
		if p.dir != dir {
			return false
		}
		p.dir = 0
		return true
	}
	return false
}

// maxSubstep keeps the ball's horizontal travel per step under one paddle width
// at the speed cap, so a contact cannot be stepped over.
const maxSubstep = time.Second * time.Duration(PaddleWidth) / time.Duration(MaxSpeedX)

// Update advances paddles and ball by dt, resolving contacts and points.
func (e *Engine) Update(dt time.Duration) bool {
	if e.over {
		return false
	}
	if e.countdown > 0 {
		e.countdown -= dt
		if e.countdown <= 0 {
			e.countdown = 0
			e.serve()
		}
		return true
	}

	for dt > 0 && e.countdown == 0 && !e.over {
		h := min(dt, maxSubstep)
		e.step(h.Seconds())
		dt -= h
	}
	return true
}

func (e *Engine) step(sec float64) {
	for i := range e.paddles {
		p := &e.paddles[i]
		p.y = clamp(p.y+p.dir*PaddleSpeed*sec, 0, Height-PaddleHeight)
	}

	b := &e.ball
	b.x += b.vx * sec
	b.y += b.vy * sec

	if b.y <= 0 {
		b.y = 0
		b.vy = math.Abs(b.vy)
		e.Emit(game.EventWallHit)
	} else if b.y >= Height-BallSize {
		b.y = Height - BallSize
		b.vy = -math.Abs(b.vy)
		e.Emit(game.EventWallHit)
	}

	if b.vx < 0 && e.touches(0) {
		e.bounce(0)
	} else if b.vx > 0 && e.touches(1) {
		e.bounce(1)
	}

	switch {
	case b.x+BallSize < 0:
		e.point(1)
	case b.x > Width:
		e.point(0)
	}
}

func (e *Engine) touches(seat int) bool {
	px, p, b := paddleX(seat), &e.paddles[seat], &e.ball
	return b.x < px+PaddleWidth && b.x+BallSize > px &&
		b.y+BallSize > p.y && b.y < p.y+PaddleHeight
}

func (e *Engine) bounce(seat int) {
	b, p := &e.ball, &e.paddles[seat]
	speed := math.Min(math.Abs(b.vx)*SpeedUp, MaxSpeedX)
	if seat == 0 {
		b.vx = speed
		b.x = paddleX(0) + PaddleWidth
	} else {
		b.vx = -speed
		b.x = paddleX(1) - BallSize
	}
	offset := (b.y + BallSize/2) - (p.y + PaddleHeight/2)
	b.vy = offset * SpinFactor
	e.Emit(game.EventPaddleHit)
}

func (e *Engine) point(scorer int) {
	conceded := game.Other(scorer)
	s := &e.paddles[scorer]
	s.score++
	e.Emit(game.EventScore)

	if s.score < PointsPerRound {
		if conceded == 0 {
			e.serveDir = -1
		} else {
			e.serveDir = 1
		}
		e.beginCountdown(PointCountdown, "Score!")
		return
	}

	s.roundsWon++
	if s.roundsWon >= RoundsToWin {
		e.over = true
		e.winner = scorer
		e.centerBall()
		e.message = fmt.Sprintf("%s wins!", s.name)
		e.Emit(game.EventGameOver)
		return
	}
	e.paddles[0].score, e.paddles[1].score = 0, 0
	e.round++
	e.roundServe = -e.roundServe
	e.serveDir = e.roundServe
	e.beginCountdown(RoundCountdown, fmt.Sprintf("Round %d", e.round))
}

func (e *Engine) Realtime() bool { return true }

func (e *Engine) Terminal() bool { return e.over }

func (e *Engine) Winner() int { return e.winner }

func (e *Engine) Forfeit(player int) {
	if e.over {
		return
	}
	e.over = true
	e.forfeited = true
	e.winner = game.Other(player)
	e.message = "Opponent left the match."
}

// BallSpeedX is the magnitude of the ball's horizontal velocity.
func (e *Engine) BallSpeedX() float64 {
	return math.Abs(e.ball.vx)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
