package bidding

import "github.com/jason-s-yu/duel/internal/game"

// ChoiceHidden stands in for an opponent card that is committed but not yet revealed.
const ChoiceHidden = "chosen"

// SelfView is the recipient's own seat.
type SelfView struct {
	Name   string `json:"name"`
	Score  int    `json:"score"`
	Cards  []int  `json:"cards"`
	Choice *int   `json:"choice"`
}

// OpponentView is the other seat. Choice is nil, ChoiceHidden or the revealed card.
type OpponentView struct {
	Name   string `json:"name"`
	Score  int    `json:"score"`
	Cards  []int  `json:"cards"`
	Choice any    `json:"choice"`
}

// RoundView is a resolved round seen from the recipient.
type RoundView struct {
	Round        int    `json:"round"`
	RoundValue   int    `json:"roundValue"`
	SelfCard     int    `json:"selfCard"`
	OpponentCard int    `json:"opponentCard"`
	Result       string `json:"result"`
	Points       int    `json:"points"`
}

// Snapshot is the per-recipient projection of the bidding game.
type Snapshot struct {
	Round              int          `json:"round"`
	TotalRounds        int          `json:"totalRounds"`
	RoundValue         int          `json:"roundValue,omitempty"`
	Phase              Phase        `json:"phase"`
	RoundMessage       string       `json:"roundMessage"`
	RoundResult        string       `json:"roundResult,omitempty"`
	Self               SelfView     `json:"self"`
	Opponent           OpponentView `json:"opponent"`
	IsPlayerTurn       bool         `json:"isPlayerTurn"`
	ShowOpponentChoice bool         `json:"showOpponentChoice"`
	History            []RoundView  `json:"history"`
	GameOver           bool         `json:"gameOver"`
}

func relativeResult(winner, player int) string {
	switch winner {
	case game.NoWinner:
		return "draw"
	case player:
		return "won"
	default:
		return "lost"
	}
}

// Project builds the view for one seat. The opponent's committed card stays
// hidden until both sides have committed.
func (e *Engine) Project(player int) any {
	me, opp := &e.sides[player], &e.sides[game.Other(player)]
	reveal := e.phase == PhaseRevealing || e.phase == PhaseFinished

	snap := Snapshot{
		Round:              e.round,
		TotalRounds:        Rounds,
		RoundValue:         e.roundValue,
		Phase:              e.phase,
		RoundMessage:       e.message,
		IsPlayerTurn:       e.phase == PhaseChoosing && me.choice == 0,
		ShowOpponentChoice: reveal,
		GameOver:           e.over,
		Self: SelfView{
			Name:  me.name,
			Score: me.score,
			Cards: append([]int(nil), me.cards...),
		},
		Opponent: OpponentView{
			Name:  opp.name,
			Score: opp.score,
			Cards: append([]int(nil), opp.cards...),
		},
		History: make([]RoundView, 0, len(e.history)),
	}
	if me.choice != 0 {
		c := me.choice
		snap.Self.Choice = &c
	}
	if opp.choice != 0 {
		if reveal {
			snap.Opponent.Choice = opp.choice
		} else {
			snap.Opponent.Choice = ChoiceHidden
		}
	}
	if n := len(e.history); n > 0 && e.history[n-1].Round == e.round && e.phase != PhaseChoosing {
		snap.RoundResult = relativeResult(e.history[n-1].Winner, player)
	}
	for _, r := range e.history {
		snap.History = append(snap.History, RoundView{
			Round:        r.Round,
			RoundValue:   r.RoundValue,
			SelfCard:     r.Cards[player],
			OpponentCard: r.Cards[game.Other(player)],
			Result:       relativeResult(r.Winner, player),
			Points:       r.Points,
		})
	}
	return snap
}
