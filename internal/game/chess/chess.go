// internal/game/chess/chess.go
package chess

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	nchess "github.com/notnil/chess"

	"github.com/jason-s-yu/duel/internal/game"
)

// Engine wraps a notnil/chess game with seat assignment and the turn-based
// engine contract. Rules, check detection and draw conditions come from the
// library.
type Engine struct {
	game.EventLog

	g      *nchess.Game
	names  [2]string
	colors [2]nchess.Color

	message   string
	forfeited bool
	winner    int
	over      bool
}

// New builds an engine that assigns white to a random seat.
func New(rng *rand.Rand) *Engine {
	return newWithGame(nchess.NewGame(), rng.Intn(2))
}

// NewEngine is the game.Factory used by the session registry.
func NewEngine() game.Engine {
	return New(rand.New(rand.NewSource(time.Now().UnixNano())))
}

func newWithGame(g *nchess.Game, whiteSeat int) *Engine {
	e := &Engine{g: g, winner: game.NoWinner, names: [2]string{"Player 1", "Player 2"}}
	e.colors[whiteSeat] = nchess.White
	e.colors[game.Other(whiteSeat)] = nchess.Black
	return e
}

func (e *Engine) Start(players [2]game.Player, _ game.Scheduler) {
	for i, p := range players {
		if p.Name != "" {
			e.names[i] = p.Name
		}
	}
	e.message = fmt.Sprintf("%s plays white", e.names[e.seatOf(nchess.White)])
	e.Emit(game.EventRoundStart)
}

func (e *Engine) seatOf(c nchess.Color) int {
	if e.colors[0] == c {
		return 0
	}
	return 1
}

// Color reports which side a seat plays.
func (e *Engine) Color(player int) nchess.Color {
	return e.colors[player]
}

var promotions = map[string]nchess.PieceType{
	"":       nchess.Queen,
	"q":      nchess.Queen,
	"queen":  nchess.Queen,
	"r":      nchess.Rook,
	"rook":   nchess.Rook,
	"b":      nchess.Bishop,
	"bishop": nchess.Bishop,
	"n":      nchess.Knight,
	"knight": nchess.Knight,
}

// findMove resolves from/to squares against the legal move list. A promotion
// without an explicit piece becomes a queen.
func (e *Engine) findMove(in game.Input) *nchess.Move {
	promo, ok := promotions[strings.ToLower(in.Promotion)]
	if !ok {
		return nil
	}
	from, to := strings.ToLower(in.From), strings.ToLower(in.To)
	for _, m := range e.g.ValidMoves() {
		if m.S1().String() != from || m.S2().String() != to {
			continue
		}
		if m.Promo() == nchess.NoPieceType || m.Promo() == promo {
			return m
		}
	}
	return nil
}

// HandleInput applies a move for the side to play. Out-of-turn and illegal
// moves are rejected without touching the position.
func (e *Engine) HandleInput(player int, in game.Input) bool {
	if e.over || player < 0 || player > 1 || in.Type != game.InputMove {
		return false
	}
	if e.g.Position().Turn() != e.colors[player] {
		return false
	}
	m := e.findMove(in)
	if m == nil {
		return false
	}
	if err := e.g.Move(m); err != nil {
		return false
	}
	e.Emit(game.EventMove)
	if m.HasTag(nchess.Check) {
		e.Emit(game.EventCheck)
	}
	e.message = ""

	// Threefold repetition and the fifty-move rule are claimable rather than
	// automatic in the library; claim them on the player's behalf.
	if e.g.Outcome() == nchess.NoOutcome {
		for _, method := range e.g.EligibleDraws() {
			if method == nchess.ThreefoldRepetition || method == nchess.FiftyMoveRule {
				if err := e.g.Draw(method); err == nil {
					break
				}
			}
		}
	}
	e.settle()
	return true
}

// settle records a finished game once the library reports an outcome.
func (e *Engine) settle() {
	switch e.g.Outcome() {
	case nchess.NoOutcome:
		return
	case nchess.WhiteWon:
		e.winner = e.seatOf(nchess.White)
	case nchess.BlackWon:
		e.winner = e.seatOf(nchess.Black)
	default:
		e.winner = game.NoWinner
	}
	e.over = true
	if e.winner == game.NoWinner {
		e.message = fmt.Sprintf("Draw by %s", methodName(e.g.Method()))
	} else {
		e.message = fmt.Sprintf("%s wins by %s", e.names[e.winner], methodName(e.g.Method()))
	}
	e.Emit(game.EventGameOver)
}

func (e *Engine) Update(time.Duration) bool { return false }

func (e *Engine) Realtime() bool { return false }

func (e *Engine) Terminal() bool { return e.over }

func (e *Engine) Winner() int { return e.winner }

func (e *Engine) Forfeit(player int) {
	if e.over {
		return
	}
	e.g.Resign(e.colors[player])
	e.forfeited = true
	e.over = true
	e.winner = game.Other(player)
	e.message = "Opponent left the match."
}

// FEN is the current position in Forsyth-Edwards notation.
func (e *Engine) FEN() string {
	return e.g.FEN()
}

func methodName(m nchess.Method) string {
	switch m {
	case nchess.Checkmate:
		return "checkmate"
	case nchess.Resignation:
		return "resignation"
	case nchess.Stalemate:
		return "stalemate"
	case nchess.InsufficientMaterial:
		return "insufficient material"
	case nchess.ThreefoldRepetition:
		return "threefold repetition"
	case nchess.FivefoldRepetition:
		return "fivefold repetition"
	case nchess.FiftyMoveRule:
		return "fifty-move rule"
	case nchess.SeventyFiveMoveRule:
		return "seventy-five-move rule"
	case nchess.DrawOffer:
		return "agreement"
	}
	return ""
}

func colorName(c nchess.Color) string {
	if c == nchess.White {
		return "white"
	}
	return "black"
}
