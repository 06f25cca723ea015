package bidding

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/jason-s-yu/duel/internal/game"
	"github.com/jason-s-yu/duel/internal/game/gametest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPlayers = [2]game.Player{
	{Identity: "GUEST_a", Name: "alice"},
	{Identity: "GUEST_b", Name: "bob"},
}

// startedEngine returns an engine already in round 1's choosing phase.
func startedEngine(t *testing.T, values ...int) (*Engine, *gametest.ManualScheduler) {
	t.Helper()
	if len(values) == 0 {
		values = []int{7, 1, 2, 3, 4}
	}
	e := newWithRoundValues(values)
	sched := &gametest.ManualScheduler{}
	e.Start(testPlayers, sched)
	require.Equal(t, PhaseWaiting, e.Phase())
	sched.Advance(StartDelay)
	require.Equal(t, PhaseChoosing, e.Phase())
	return e, sched
}

func play(e *Engine, player, card int) bool {
	return e.HandleInput(player, game.Input{Type: game.InputPlayChoice, Value: card})
}

func TestRoundValuesArePermutationPrefix(t *testing.T) {
	e := New(rand.New(rand.NewSource(42)))
	require.Len(t, e.roundValues, Rounds)
	seen := map[int]bool{}
	for _, v := range e.roundValues {
		assert.GreaterOrEqual(t, v, 1)
		assert.LessOrEqual(t, v, MaxRoundValue)
		assert.False(t, seen[v], "round value %d repeated", v)
		seen[v] = true
	}
}

func TestWinnerScoresRoundValuePlusBothCards(t *testing.T) {
	e, sched := startedEngine(t, 7, 1, 2, 3, 4)

	require.True(t, play(e, 0, 4))
	require.True(t, play(e, 1, 2))
	assert.Equal(t, PhaseRevealing, e.Phase())

	sched.Advance(RevealDelay)
	assert.Equal(t, [2]int{13, 0}, e.Scores())
	hist := e.History()
	require.Len(t, hist, 1)
	assert.Equal(t, 0, hist[0].Winner)
	assert.Equal(t, 13, hist[0].Points)
}

func TestEqualCardsDrawRound(t *testing.T) {
	e, sched := startedEngine(t)
	require.True(t, play(e, 0, 3))
	require.True(t, play(e, 1, 3))
	sched.Advance(RevealDelay)

	assert.Equal(t, [2]int{0, 0}, e.Scores())
	assert.Equal(t, game.NoWinner, e.History()[0].Winner)
	assert.Contains(t, e.DrainEvents(), game.EventRoundDraw)
}

func TestIllegalChoicesAreIgnored(t *testing.T) {
	e, sched := startedEngine(t)

	assert.False(t, play(e, 0, 6), "card out of range")
	assert.False(t, play(e, 0, 0), "zero card")
	assert.False(t, e.HandleInput(0, game.Input{Type: game.InputMove, From: "e2", To: "e4"}), "wrong input type")

	require.True(t, play(e, 0, 5))
	assert.False(t, play(e, 0, 4), "second commit in the same round")
	require.True(t, play(e, 1, 1))
	assert.False(t, play(e, 1, 2), "commit while revealing")

	sched.Advance(RevealDelay + NextRoundDelay)
	require.Equal(t, PhaseChoosing, e.Phase())
	assert.False(t, play(e, 0, 5), "card already played")
	assert.True(t, play(e, 0, 4))
}

func TestRepeatedIllegalMoveLeavesStateIdentical(t *testing.T) {
	e, _ := startedEngine(t)
	require.True(t, play(e, 0, 2))

	before, err := json.Marshal(e.Project(0))
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		assert.False(t, play(e, 0, 2))
		after, err := json.Marshal(e.Project(0))
		require.NoError(t, err)
		assert.Equal(t, string(before), string(after))
	}
}

func TestOpponentChoiceHiddenUntilBothCommit(t *testing.T) {
	e, sched := startedEngine(t)

	require.True(t, play(e, 0, 4))
	viewB := e.Project(1).(Snapshot)
	assert.Equal(t, ChoiceHidden, viewB.Opponent.Choice)
	assert.True(t, viewB.IsPlayerTurn)
	assert.False(t, viewB.ShowOpponentChoice)

	viewA := e.Project(0).(Snapshot)
	require.NotNil(t, viewA.Self.Choice)
	assert.Equal(t, 4, *viewA.Self.Choice)
	assert.Nil(t, viewA.Opponent.Choice)
	assert.False(t, viewA.IsPlayerTurn)

	require.True(t, play(e, 1, 1))
	viewB = e.Project(1).(Snapshot)
	assert.Equal(t, 4, viewB.Opponent.Choice)
	assert.True(t, viewB.ShowOpponentChoice)

	sched.Advance(RevealDelay)
	assert.Equal(t, "won", e.Project(0).(Snapshot).RoundResult)
	assert.Equal(t, "lost", e.Project(1).(Snapshot).RoundResult)
}

func TestProjectionLabelsRecipientAsSelf(t *testing.T) {
	e, _ := startedEngine(t)
	assert.Equal(t, "alice", e.Project(0).(Snapshot).Self.Name)
	assert.Equal(t, "bob", e.Project(0).(Snapshot).Opponent.Name)
	assert.Equal(t, "bob", e.Project(1).(Snapshot).Self.Name)
	assert.Equal(t, "alice", e.Project(1).(Snapshot).Opponent.Name)
}

// Every completed match: each score equals the sum over rounds won of
// roundValue + both cards; drawn rounds add nothing.
func TestScoresMatchRoundHistory(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		e := New(rng)
		sched := &gametest.ManualScheduler{}
		e.Start(testPlayers, sched)
		sched.Advance(StartDelay)

		for !e.Terminal() {
			require.Equal(t, PhaseChoosing, e.Phase())
			for p := 0; p < 2; p++ {
				hand := e.sides[p].cards
				require.True(t, play(e, p, hand[rng.Intn(len(hand))]))
			}
			sched.Advance(RevealDelay + NextRoundDelay)
		}

		var want [2]int
		for _, r := range e.History() {
			if r.Winner != game.NoWinner {
				want[r.Winner] += r.RoundValue + r.Cards[0] + r.Cards[1]
			}
		}
		require.Len(t, e.History(), Rounds)
		assert.Equal(t, want, e.Scores())

		scores := e.Scores()
		switch {
		case scores[0] > scores[1]:
			assert.Equal(t, 0, e.Winner())
		case scores[1] > scores[0]:
			assert.Equal(t, 1, e.Winner())
		default:
			assert.Equal(t, game.NoWinner, e.Winner())
		}
	}
}

func TestForfeitCancelsPendingTransition(t *testing.T) {
	e, sched := startedEngine(t)
	require.True(t, play(e, 0, 1))
	require.True(t, play(e, 1, 5))
	require.Equal(t, 1, sched.Pending())

	e.Forfeit(1)
	assert.Equal(t, 0, sched.Pending())
	assert.True(t, e.Terminal())
	assert.Equal(t, 0, e.Winner())

	e.Forfeit(0)
	assert.Equal(t, 0, e.Winner(), "winner never revised")
	assert.False(t, play(e, 0, 2))
}
