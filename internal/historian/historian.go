// internal/historian/historian.go
package historian

import (
	"context"
	"time"

	"github.com/jason-s-yu/duel/internal/models"
	"github.com/sirupsen/logrus"
)

// Source yields queued results; Pop returns (nil, nil) when the wait expires.
type Source interface {
	Pop(ctx context.Context, timeout time.Duration) (*models.MatchResult, error)
}

// Archive persists a batch atomically.
type Archive interface {
	InsertBatch(ctx context.Context, results []models.MatchResult) error
}

const popTimeout = time.Second

// Service drains the result queue into the archive in batches.
type Service struct {
	src        Source
	archive    Archive
	batchSize  int
	flushDelay time.Duration
	logger     logrus.FieldLogger

	batch     []models.MatchResult
	lastFlush time.Time
}

func New(src Source, archive Archive, batchSize int, flushDelay time.Duration, logger logrus.FieldLogger) *Service {
	if batchSize <= 0 {
		batchSize = 20
	}
	return &Service{
		src:        src,
		archive:    archive,
		batchSize:  batchSize,
		flushDelay: flushDelay,
		logger:     logger,
		batch:      make([]models.MatchResult, 0, batchSize),
	}
}

// Run pops until ctx is cancelled, flushing whenever the batch is full or
// flushDelay has passed. Whatever is buffered at shutdown is flushed once more.
func (hs *Service) Run(ctx context.Context) {
	hs.lastFlush = time.Now()
	hs.logger.Info("historian started")
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		hs.flush(shutdownCtx)
		hs.logger.Info("historian stopped")
	}()

	for {
		if ctx.Err() != nil {
			return
		}
		rec, err := hs.src.Pop(ctx, popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			hs.logger.WithError(err).Error("pop failed")
			time.Sleep(popTimeout)
		}
		if rec != nil {
			hs.batch = append(hs.batch, *rec)
		}
		if len(hs.batch) >= hs.batchSize || time.Since(hs.lastFlush) >= hs.flushDelay {
			hs.flush(ctx)
		}
	}
}

// flush writes the pending batch. On failure the batch is kept for the next attempt.
func (hs *Service) flush(ctx context.Context) {
	hs.lastFlush = time.Now()
	if len(hs.batch) == 0 {
		return
	}
	if err := hs.archive.InsertBatch(ctx, hs.batch); err != nil {
		hs.logger.WithError(err).WithField("pending", len(hs.batch)).Error("flush failed")
		return
	}
	hs.logger.Infof("Flushed %d results to DB.", len(hs.batch))
	hs.batch = hs.batch[:0]
}
