// internal/lobby/lobby.go
package lobby

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/duel/internal/auth"
	"github.com/jason-s-yu/duel/internal/game"
)

// PlayerClass partitions pairing; two parties are only paired within one class.
type PlayerClass string

const (
	ClassGuest    PlayerClass = "guest"
	ClassVerified PlayerClass = "verified"
)

// ClassOf derives the player class from an identity.
func ClassOf(identity string) PlayerClass {
	if strings.HasPrefix(identity, auth.GuestPrefix) {
		return ClassGuest
	}
	return ClassVerified
}

// ParsePlayerClass validates an explicit class, falling back to ClassOf when s is empty.
func ParsePlayerClass(s, identity string) (PlayerClass, error) {
	switch PlayerClass(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return ClassOf(identity), nil
	case ClassGuest:
		return ClassGuest, nil
	case ClassVerified:
		return ClassVerified, nil
	}
	return "", invalidf("unknown player class %q", s)
}

// SessionCreator starts a match for two paired players, seat 0 first.
type SessionCreator interface {
	CreateSession(gameType game.GameType, wager float64, players [2]game.Player) (uuid.UUID, error)
}

// Lobby is an open invitation for one opponent.
type Lobby struct {
	ID              uuid.UUID     `json:"id"`
	GameType        game.GameType `json:"gameType"`
	Wager           float64       `json:"wager"`
	PlayerClass     PlayerClass   `json:"playerClass"`
	CreatorIdentity string        `json:"creatorIdentity"`
	CreatorName     string        `json:"creatorName,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
}

func validate(gameType game.GameType, wager float64, class PlayerClass, identity string) error {
	if identity == "" {
		return invalidf("identity is required")
	}
	if _, err := game.ParseGameType(string(gameType)); err != nil {
		return invalidf("%v", err)
	}
	if math.IsNaN(wager) || math.IsInf(wager, 0) || wager <= 0 {
		return invalidf("wager must be a positive amount")
	}
	if class != ClassGuest && class != ClassVerified {
		return invalidf("unknown player class %q", class)
	}
	return nil
}
