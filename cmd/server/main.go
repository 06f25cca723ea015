// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/duel/internal/auth"
	"github.com/jason-s-yu/duel/internal/bus"
	"github.com/jason-s-yu/duel/internal/cache"
	"github.com/jason-s-yu/duel/internal/config"
	"github.com/jason-s-yu/duel/internal/handlers"
	"github.com/jason-s-yu/duel/internal/lobby"
	"github.com/jason-s-yu/duel/internal/match"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal(err)
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Warnf("unknown LOG_LEVEL %q, using info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	issuer, err := newIssuer(cfg)
	if err != nil {
		logger.Fatalf("auth: %v", err)
	}

	sink, closeSink, err := newResultSink(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("result sink: %v", err)
	}
	defer closeSink()

	sessions := match.NewSessionStore(match.DefaultFactories(), match.Options{
		ReapDelay:      cfg.ReapDelay,
		FormingTimeout: cfg.FormingTimeout,
	}, sink, logger)
	lobbies := lobby.NewLobbyStore(sessions, cfg.LobbyTTL, logger)
	pool := lobby.NewPool(sessions, cfg.PoolTTL, logger)
	sessions.OnRemove(func(s *match.Session) {
		ids := s.Identities()
		pool.Forget(s.ID, ids[0], ids[1])
	})

	go match.NewTicker(sessions, cfg.TickRate, logger).Run(ctx)
	go sweep(ctx, cfg.SweepInterval, lobbies, pool)

	srv := handlers.NewServer(lobbies, pool, sessions, issuer, cfg.RequireAuth, logger)
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("http shutdown")
		}
	}()

	logger.Infof("Running on %s (result sink: %s)", httpServer.Addr, cfg.ResultSink)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("server exited: %v", err)
	}
	logger.Info("server stopped")
}

func newIssuer(cfg *config.Config) (*auth.Issuer, error) {
	if cfg.PrivateKeyPath != "" && cfg.PublicKeyPath != "" {
		return auth.NewIssuerFromPath(cfg.PrivateKeyPath, cfg.PublicKeyPath, cfg.TokenExpireTime)
	}
	return auth.NewIssuer(cfg.TokenExpireTime)
}

// newResultSink connects the configured settlement sink and returns its closer.
func newResultSink(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (match.ResultSink, func(), error) {
	switch cfg.ResultSink {
	case config.SinkRedis:
		rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		logger.Infof("publishing results to redis list %s", cfg.ResultsQueue)
		return cache.NewResultQueue(rdb, cfg.ResultsQueue), func() { rdb.Close() }, nil
	case config.SinkNATS:
		nc, err := bus.Connect(cfg.NatsURL, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Infof("publishing results to nats subject %s", cfg.ResultsSubject)
		return bus.NewResultPublisher(nc, cfg.ResultsSubject), func() { nc.Drain() }, nil
	}
	return match.LogSink{Logger: logger}, func() {}, nil
}

// sweep expires idle lobbies and pool entries.
func sweep(ctx context.Context, interval time.Duration, lobbies *lobby.LobbyStore, pool *lobby.Pool) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			lobbies.Sweep(now)
			pool.Sweep(now)
		}
	}
}
