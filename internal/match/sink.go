package match

import (
	"context"

	"github.com/jason-s-yu/duel/internal/models"
	"github.com/sirupsen/logrus"
)

// ResultSink receives the settlement record of every finished session.
type ResultSink interface {
	Publish(ctx context.Context, result models.MatchResult) error
}

// LogSink writes results to the log only. It is the default when no queue is configured.
type LogSink struct {
	Logger logrus.FieldLogger
}

func (s LogSink) Publish(_ context.Context, r models.MatchResult) error {
	s.Logger.WithFields(logrus.Fields{
		"session":   r.SessionID,
		"game":      r.GameType,
		"wager":     r.Wager,
		"winner":    r.Winner,
		"draw":      r.Draw,
		"forfeited": r.Forfeited,
		"fault":     r.Fault,
	}).Info("match result")
	return nil
}
