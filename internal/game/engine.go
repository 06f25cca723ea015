// internal/game/engine.go
package game

import (
	"fmt"
	"strings"
	"time"
)

// NoWinner is returned by Engine.Winner when the match is drawn or still running.
const NoWinner = -1

// GameType identifies one of the engines served by this process.
type GameType string

const (
	TypeBidding GameType = "bidding"
	TypePong    GameType = "pong"
	TypeDodge   GameType = "dodge"
	TypeChess   GameType = "chess"
)

// gameTypeAliases maps the historical client names onto the canonical types.
var gameTypeAliases = map[string]GameType{
	"bidding":          TypeBidding,
	"solana-gold-rush": TypeBidding,
	"pong":             TypePong,
	"neon-pong":        TypePong,
	"dodge":            TypeDodge,
	"cosmic-dodge":     TypeDodge,
	"chess":            TypeChess,
}

// ParseGameType resolves a client-supplied game name (canonical or alias).
func ParseGameType(s string) (GameType, error) {
	gt, ok := gameTypeAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("unknown game type %q", s)
	}
	return gt, nil
}

// Player is the identity an engine sees for one seat.
type Player struct {
	Identity string `json:"identity"`
	Name     string `json:"name"`
}

// Input is the decoded form of every in-match client message. Only the fields
// relevant to Type are set.
type Input struct {
	Type      string `json:"type"`
	Value     int    `json:"value,omitempty"`
	Direction string `json:"direction,omitempty"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	Promotion string `json:"promotion,omitempty"`
	Key       string `json:"key,omitempty"`
}

// Input types accepted on the match channel.
const (
	InputPlayChoice = "play_choice"
	InputMovePaddle = "move_paddle"
	InputStopPaddle = "stop_paddle"
	InputMove       = "move"
	InputKeyDown    = "key_down"
	InputKeyUp      = "key_up"
)

// Scheduler runs fn after d on the owning session's event loop. The returned
// func cancels the task if it has not fired yet.
type Scheduler interface {
	After(d time.Duration, fn func()) (cancel func())
}

// Engine is the rules and state of one match. Implementations are not safe for
// concurrent use; the owning session serializes every call.
//
// HandleInput and Update report whether the state changed. Illegal or
// out-of-turn input must return false and leave the state untouched.
type Engine interface {
	// Start assigns seats and kicks off the first round. sched is valid for the
	// lifetime of the match.
	Start(players [2]Player, sched Scheduler)
	HandleInput(player int, in Input) bool
	Update(dt time.Duration) bool
	// Realtime engines are advanced by the session ticker.
	Realtime() bool
	Terminal() bool
	// Winner is 0 or 1, or NoWinner for a draw.
	Winner() int
	// Forfeit ends the match immediately with the other seat as winner.
	Forfeit(player int)
	// Project returns the read-only view for one seat. The result is marshaled
	// to JSON as-is and must not alias engine state.
	Project(player int) any
	// DrainEvents returns and clears the transient sound/event tags.
	DrainEvents() []string
}

// Factory builds a fresh engine for one match.
type Factory func() Engine

// Other returns the opposing seat index.
func Other(player int) int {
	return 1 - player
}
