// internal/database/results.go
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/duel/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS match_results (
	session_id  UUID PRIMARY KEY,
	game_type   TEXT NOT NULL,
	wager       DOUBLE PRECISION NOT NULL,
	player_one  TEXT NOT NULL,
	player_two  TEXT NOT NULL,
	winner      TEXT,
	outcome     TEXT NOT NULL,
	forfeited   BOOLEAN NOT NULL DEFAULT FALSE,
	fault       BOOLEAN NOT NULL DEFAULT FALSE,
	started_at  TIMESTAMPTZ NOT NULL,
	ended_at    TIMESTAMPTZ NOT NULL,
	archived_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Redelivered results are ignored.
const insertResultQ = `
	INSERT INTO match_results (
		session_id, game_type, wager, player_one, player_two,
		winner, outcome, forfeited, fault, started_at, ended_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (session_id) DO NOTHING
`

// TxBeginner is satisfied by *pgxpool.Pool and pgx.Conn.
type TxBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// ResultArchive stores finished matches for audit and history.
type ResultArchive struct {
	db TxBeginner
}

func NewResultArchive(db TxBeginner) *ResultArchive {
	return &ResultArchive{db: db}
}

// EnsureSchema creates the match_results table if it does not exist.
func (a *ResultArchive) EnsureSchema(ctx context.Context) error {
	return pgx.BeginTxFunc(ctx, a.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, schema)
		return err
	})
}

// InsertBatch writes every result in one transaction.
func (a *ResultArchive) InsertBatch(ctx context.Context, results []models.MatchResult) error {
	if len(results) == 0 {
		return nil
	}
	err := pgx.BeginTxFunc(ctx, a.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, r := range results {
			if _, err := tx.Exec(ctx, insertResultQ, resultArgs(r)...); err != nil {
				return fmt.Errorf("insert result %s: %w", r.SessionID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx insert match results: %w", err)
	}
	return nil
}

// Outcome labels one row: "win", "draw" or "fault".
func Outcome(r models.MatchResult) string {
	switch {
	case r.Fault:
		return "fault"
	case r.Draw || r.Winner == "":
		return "draw"
	}
	return "win"
}

func resultArgs(r models.MatchResult) []any {
	var winner *string
	if r.Winner != "" {
		w := r.Winner
		winner = &w
	}
	return []any{
		r.SessionID, r.GameType, r.Wager, r.Players[0], r.Players[1],
		winner, Outcome(r), r.Forfeited, r.Fault, r.StartedAt, r.EndedAt,
	}
}
