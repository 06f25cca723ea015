package chess

import (
	nchess "github.com/notnil/chess"

	"github.com/jason-s-yu/duel/internal/game"
)

type SideView struct {
	Name  string `json:"nickname"`
	Color string `json:"color"`
}

type MoveView struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

// Snapshot is the per-recipient board view. PossibleMoves is only filled in
// for the side to move.
type Snapshot struct {
	FEN           string     `json:"fen"`
	Turn          string     `json:"turn"`
	Color         string     `json:"color"`
	IsPlayerTurn  bool       `json:"isPlayerTurn"`
	IsCheck       bool       `json:"isCheck"`
	LastMove      *MoveView  `json:"lastMove,omitempty"`
	PossibleMoves []MoveView `json:"possibleMoves"`
	Self          SideView   `json:"self"`
	Opponent      SideView   `json:"opponent"`
	Method        string     `json:"method,omitempty"`
	Message       string     `json:"message,omitempty"`
	GameOver      bool       `json:"gameOver"`
}

func moveView(m *nchess.Move) MoveView {
	v := MoveView{From: m.S1().String(), To: m.S2().String()}
	if m.Promo() != nchess.NoPieceType {
		v.Promotion = m.Promo().String()
	}
	return v
}

func (e *Engine) Project(player int) any {
	turn := e.g.Position().Turn()
	opp := game.Other(player)
	snap := Snapshot{
		FEN:           e.g.FEN(),
		Turn:          colorName(turn),
		Color:         colorName(e.colors[player]),
		IsPlayerTurn:  !e.over && turn == e.colors[player],
		PossibleMoves: []MoveView{},
		Self:          SideView{Name: e.names[player], Color: colorName(e.colors[player])},
		Opponent:      SideView{Name: e.names[opp], Color: colorName(e.colors[opp])},
		Message:       e.message,
		GameOver:      e.over,
	}
	if moves := e.g.Moves(); len(moves) > 0 {
		last := moves[len(moves)-1]
		lv := moveView(last)
		snap.LastMove = &lv
		snap.IsCheck = last.HasTag(nchess.Check)
	}
	if snap.IsPlayerTurn {
		for _, m := range e.g.ValidMoves() {
			snap.PossibleMoves = append(snap.PossibleMoves, moveView(m))
		}
	}
	if e.over {
		snap.Method = methodName(e.g.Method())
	}
	return snap
}
