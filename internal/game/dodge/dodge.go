// internal/game/dodge/dodge.go
package dodge

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/jason-s-yu/duel/internal/game"
)

// Arena geometry in pixels; speeds in pixels per second.
const (
	ArenaWidth  = 350.0
	ArenaHeight = 450.0
	ShipSize    = 20.0
	ShipSpeed   = 240.0
	ShipStartY  = ArenaHeight - 50

	LaserLength = 100.0
	LaserHeight = 5.0
	LaserSpeed  = 300.0

	RoundsToWin    = 3
	RoundCountdown = 3 * time.Second
	WaveDuration   = 15 * time.Second
	MaxWave        = 5
	ExplosionLife  = time.Second
)

// Projectile kinds.
const (
	KindAsteroid = "asteroid"
	KindLaser    = "laser"
)

// asteroidInterval is the spawn period per wave; index 0 is wave 1.
var asteroidInterval = [MaxWave]time.Duration{
	1000 * time.Millisecond,
	800 * time.Millisecond,
	600 * time.Millisecond,
	500 * time.Millisecond,
	400 * time.Millisecond,
}

type ship struct {
	x, y                  float64
	alive                 bool
	up, down, left, right bool
}

type explosion struct {
	x, y float64
	life time.Duration
}

type projectile struct {
	id     int
	kind   string
	x, y   float64
	w, h   float64
	vx, vy float64
}

type pilot struct {
	name       string
	ship       ship
	roundsWon  int
	explosions []explosion
}

// RoundOutcome records which ships were destroyed when a round ended.
type RoundOutcome struct {
	Round     int
	Destroyed [2]bool
}

// Engine is the real-time survival game. Both arenas share one projectile
// stream so each pilot faces identical hazards.
type Engine struct {
	game.EventLog

	rng         *rand.Rand
	pilots      [2]pilot
	projectiles []projectile
	nextID      int

	round         int
	elapsed       time.Duration
	wave          int
	sinceAsteroid time.Duration
	sinceLaser    time.Duration
	laserFromLeft bool
	countdown     time.Duration
	message       string
	outcomes      []RoundOutcome

	over      bool
	winner    int
	forfeited bool
}

// New builds an idle engine; rng drives spawn positions and sizes.
func New(rng *rand.Rand) *Engine {
	e := &Engine{
		rng:     rng,
		round:   1,
		winner:  game.NoWinner,
		message: "Waiting for opponent...",
	}
	for i := range e.pilots {
		e.pilots[i].name = fmt.Sprintf("Player %d", i+1)
	}
	e.resetRound()
	return e
}

// NewEngine is the game.Factory used by the session registry.
func NewEngine() game.Engine {
	return New(rand.New(rand.NewSource(time.Now().UnixNano())))
}

func freshShip() ship {
	return ship{x: ArenaWidth/2 - ShipSize/2, y: ShipStartY, alive: true}
}

func (e *Engine) resetRound() {
	for i := range e.pilots {
		e.pilots[i].ship = freshShip()
	}
	e.projectiles = nil
	e.elapsed = 0
	e.wave = 1
	e.sinceAsteroid = 0
	e.sinceLaser = 0
}

// Start names the seats and begins the first countdown.
func (e *Engine) Start(players [2]game.Player, _ game.Scheduler) {
	for i, p := range players {
		if p.Name != "" {
			e.pilots[i].name = p.Name
		}
	}
	e.countdown = RoundCountdown
	e.message = fmt.Sprintf("Round %d", e.round)
}

// HandleInput tracks held movement keys (WASD or arrows).
func (e *Engine) HandleInput(player int, in game.Input) bool {
	if e.over || player < 0 || player > 1 {
		return false
	}
	var held bool
	switch in.Type {
	case game.InputKeyDown:
		held = true
	case game.InputKeyUp:
		held = false
	default:
		return false
	}
	s := &e.pilots[player].ship
	var flag *bool
	switch in.Key {
	case "w", "W", "ArrowUp":
		flag = &s.up
	case "s", "S", "ArrowDown":
		flag = &s.down
	case "a", "A", "ArrowLeft":
		flag = &s.left
	case "d", "D", "ArrowRight":
		flag = &s.right
	default:
		return false
	}
	if *flag == held {
		return false
	}
	*flag = held
	return true
}

// Update advances ships, spawns and moves projectiles, then resolves collisions.
func (e *Engine) Update(dt time.Duration) bool {
	if e.over {
		return false
	}
	e.ageExplosions(dt)
	if e.countdown > 0 {
		e.countdown -= dt
		if e.countdown <= 0 {
			e.countdown = 0
			e.message = ""
			e.Emit(game.EventRoundStart)
		}
		return true
	}

	sec := dt.Seconds()
	e.elapsed += dt
	e.wave = min(1+int(e.elapsed/WaveDuration), MaxWave)

	for i := range e.pilots {
		s := &e.pilots[i].ship
		if !s.alive {
			continue
		}
		var dx, dy float64
		if s.up {
			dy--
		}
		if s.down {
			dy++
		}
		if s.left {
			dx--
		}
		if s.right {
			dx++
		}
		s.x = clamp(s.x+dx*ShipSpeed*sec, 0, ArenaWidth-ShipSize)
		s.y = clamp(s.y+dy*ShipSpeed*sec, 0, ArenaHeight-ShipSize)
	}

	e.spawn(dt)
	live := e.projectiles[:0]
	for _, p := range e.projectiles {
		p.x += p.vx * sec
		p.y += p.vy * sec
		if p.y < ArenaHeight+20 && p.x+p.w > -10 && p.x < ArenaWidth+10 {
			live = append(live, p)
		}
	}
	e.projectiles = live

	var destroyed [2]bool
	for i := range e.pilots {
		pl := &e.pilots[i]
		if !pl.ship.alive {
			continue
		}
		for _, p := range e.projectiles {
			if overlaps(pl.ship, p) {
				pl.ship.alive = false
				destroyed[i] = true
				pl.explosions = append(pl.explosions, explosion{x: pl.ship.x, y: pl.ship.y, life: ExplosionLife})
				e.Emit(game.EventExplosion)
				break
			}
		}
	}
	if destroyed[0] || destroyed[1] {
		e.endRound(destroyed)
	}
	return true
}

func overlaps(s ship, p projectile) bool {
	return s.x < p.x+p.w && s.x+ShipSize > p.x &&
		s.y < p.y+p.h && s.y+ShipSize > p.y
}

func (e *Engine) ageExplosions(dt time.Duration) {
	for i := range e.pilots {
		pl := &e.pilots[i]
		kept := pl.explosions[:0]
		for _, ex := range pl.explosions {
			ex.life -= dt
			if ex.life > 0 {
				kept = append(kept, ex)
			}
		}
		pl.explosions = kept
	}
}

func (e *Engine) spawn(dt time.Duration) {
	speedScale := 1 + 0.15*float64(e.wave-1)

	e.sinceAsteroid += dt
	if e.sinceAsteroid >= asteroidInterval[e.wave-1] {
		e.sinceAsteroid = 0
		size := 20 + e.rng.Float64()*20
		a := projectile{
			kind: KindAsteroid,
			x:    e.rng.Float64() * (ArenaWidth - size),
			y:    -size,
			w:    size,
			h:    size,
			vy:   (120 + e.rng.Float64()*120) * speedScale,
		}
		if e.wave >= 3 && e.rng.Intn(2) == 0 {
			a.vx = (40 + e.rng.Float64()*60) * float64(1-2*e.rng.Intn(2))
		}
		e.add(a)
	}

	if e.wave < 2 {
		return
	}
	period := 2 * time.Second
	if e.wave >= 4 {
		period = 1500 * time.Millisecond
	}
	e.sinceLaser += dt
	if e.sinceLaser >= period {
		e.sinceLaser = 0
		l := projectile{
			kind: KindLaser,
			y:    e.rng.Float64() * (ArenaHeight / 2),
			w:    LaserLength,
			h:    LaserHeight,
			vx:   LaserSpeed * (1 + 0.1*float64(e.wave-2)),
		}
		if e.laserFromLeft {
			l.x = -LaserLength
		} else {
			l.x = ArenaWidth
			l.vx = -l.vx
		}
		e.laserFromLeft = !e.laserFromLeft
		e.add(l)
	}
}

func (e *Engine) add(p projectile) {
	e.nextID++
	p.id = e.nextID
	e.projectiles = append(e.projectiles, p)
}

func (e *Engine) endRound(destroyed [2]bool) {
	e.outcomes = append(e.outcomes, RoundOutcome{Round: e.round, Destroyed: destroyed})
	switch {
	case destroyed[0] && destroyed[1]:
		e.message = "Both ships destroyed! Round drawn."
		e.Emit(game.EventRoundDraw)
	case destroyed[1]:
		e.pilots[0].roundsWon++
		e.message = fmt.Sprintf("%s survives the round!", e.pilots[0].name)
		e.Emit(game.EventRoundWin)
	default:
		e.pilots[1].roundsWon++
		e.message = fmt.Sprintf("%s survives the round!", e.pilots[1].name)
		e.Emit(game.EventRoundWin)
	}

	for i, pl := range e.pilots {
		if pl.roundsWon >= RoundsToWin {
			e.over = true
			e.winner = i
			e.message = fmt.Sprintf("%s wins!", pl.name)
			e.Emit(game.EventGameOver)
			return
		}
	}
	e.round++
	e.resetRound()
	e.countdown = RoundCountdown
	e.message = fmt.Sprintf("Round %d", e.round)
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

// Outcomes returns how every finished round ended.
func (e *Engine) Outcomes() []RoundOutcome {
	return append([]RoundOutcome(nil), e.outcomes...)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
