package dodge

import (
	"math"

	"github.com/jason-s-yu/duel/internal/game"
)

type ShipView struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Alive bool    `json:"alive"`
}

type ExplosionView struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Life float64 `json:"life"` // seconds remaining
}

// PilotView is one player's arena: their ship and any explosions in it.
type PilotView struct {
	Name       string          `json:"nickname"`
	Ship       ShipView        `json:"ship"`
	RoundsWon  int             `json:"roundsWon"`
	Explosions []ExplosionView `json:"explosions"`
}

type ProjectileView struct {
	ID     int     `json:"id"`
	Kind   string  `json:"kind"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Snapshot is the per-recipient projection. Projectiles apply to both arenas.
type Snapshot struct {
	Self        PilotView        `json:"self"`
	Opponent    PilotView        `json:"opponent"`
	Projectiles []ProjectileView `json:"projectiles"`
	Round       int              `json:"round"`
	Wave        int              `json:"wave"`
	Countdown   int              `json:"countdown,omitempty"`
	Message     string           `json:"message,omitempty"`
	GameOver    bool             `json:"gameOver"`
}

func (e *Engine) pilotView(seat int) PilotView {
	pl := e.pilots[seat]
	v := PilotView{
		Name:       pl.name,
		Ship:       ShipView{X: pl.ship.x, Y: pl.ship.y, Alive: pl.ship.alive},
		RoundsWon:  pl.roundsWon,
		Explosions: make([]ExplosionView, 0, len(pl.explosions)),
	}
	for _, ex := range pl.explosions {
		v.Explosions = append(v.Explosions, ExplosionView{X: ex.x, Y: ex.y, Life: ex.life.Seconds()})
	}
	return v
}

func (e *Engine) Project(player int) any {
	snap := Snapshot{
		Self:        e.pilotView(player),
		Opponent:    e.pilotView(game.Other(player)),
		Projectiles: make([]ProjectileView, 0, len(e.projectiles)),
		Round:       e.round,
		Wave:        e.wave,
		Message:     e.message,
		GameOver:    e.over,
	}
	for _, p := range e.projectiles {
		snap.Projectiles = append(snap.Projectiles, ProjectileView{
			ID: p.id, Kind: p.kind, X: p.x, Y: p.y, Width: p.w, Height: p.h,
		})
	}
	if e.countdown > 0 {
		snap.Countdown = int(math.Ceil(e.countdown.Seconds()))
	}
	return snap
}
