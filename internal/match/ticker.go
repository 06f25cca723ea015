package match

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Ticker drives every playing real-time session from one shared clock.
type Ticker struct {
	store    *SessionStore
	interval time.Duration
	logger   logrus.FieldLogger
}

// NewTicker ticks at rate hertz.
func NewTicker(store *SessionStore, rate int, logger logrus.FieldLogger) *Ticker {
	if rate <= 0 {
		rate = 60
	}
	return &Ticker{store: store, interval: time.Second / time.Duration(rate), logger: logger}
}

// Run blocks until ctx is cancelled.
func (t *Ticker) Run(ctx context.Context) {
	tk := time.NewTicker(t.interval)
	defer tk.Stop()
	t.logger.WithField("interval", t.interval).Info("tick scheduler started")
	for {
		select {
		case <-ctx.Done():
			t.logger.Info("tick scheduler stopped")
			return
		case now := <-tk.C:
			t.tick(now)
		}
	}
}

func (t *Ticker) tick(now time.Time) {
	for _, s := range t.store.Sessions() {
		if s.Realtime() && s.State() == StatePlaying {
			s.Tick(now)
		}
	}
}
