package match

import (
	"github.com/jason-s-yu/duel/internal/game"
	"github.com/jason-s-yu/duel/internal/game/bidding"
	"github.com/jason-s-yu/duel/internal/game/chess"
	"github.com/jason-s-yu/duel/internal/game/dodge"
	"github.com/jason-s-yu/duel/internal/game/pong"
)

// DefaultFactories registers every engine served by this process.
func DefaultFactories() map[game.GameType]game.Factory {
	return map[game.GameType]game.Factory{
		game.TypeBidding: bidding.NewEngine,
		game.TypePong:    pong.NewEngine,
		game.TypeDodge:   dodge.NewEngine,
		game.TypeChess:   chess.NewEngine,
	}
}
