// internal/models/match_result.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// MatchResult is the settlement record emitted once per finished session. It is
// what the custody service pays out against and what the historian archives.
type MatchResult struct {
	SessionID uuid.UUID `json:"sessionId"`
	GameType  string    `json:"gameType"`
	Wager     float64   `json:"wager"`
	Players   [2]string `json:"players"`
	Winner    string    `json:"winner"` // identity of the winner, empty on a draw
	Draw      bool      `json:"draw"`
	Forfeited bool      `json:"forfeited"`
	// Fault marks a match cut short by a server-side engine failure.
	Fault     bool      `json:"fault"`
	StartedAt time.Time `json:"startedAt"`
	EndedAt   time.Time `json:"endedAt"`
}
