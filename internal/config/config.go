// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jason-s-yu/duel/internal/auth"
)

// Result sink kinds.
const (
	SinkLog   = "log"
	SinkRedis = "redis"
	SinkNATS  = "nats"
)

// Config is the environment-derived configuration shared by both binaries.
type Config struct {
	Port     string
	LogLevel string

	TickRate       int
	ReapDelay      time.Duration
	FormingTimeout time.Duration
	LobbyTTL       time.Duration
	PoolTTL        time.Duration
	SweepInterval  time.Duration

	RequireAuth     bool
	TokenExpireTime time.Duration
	// Both paths set loads a fixed ed25519 key pair; otherwise one is generated per process.
	PrivateKeyPath string
	PublicKeyPath  string

	ResultSink     string
	RedisAddr      string
	RedisDB        int
	ResultsQueue   string
	NatsURL        string
	ResultsSubject string

	PostgresUser     string
	PostgresPassword string
	PGHost           string
	PGPort           string
	PGDatabase       string

	HistorianBatchSize int
	HistorianFlush     time.Duration
}

// Load reads the process environment. Unset variables take their defaults;
// malformed ones are an error.
func Load() (*Config, error) {
	var errs []string
	dur := func(key string, def time.Duration) time.Duration {
		d, err := getEnvDuration(key, def)
		if err != nil {
			errs = append(errs, err.Error())
		}
		return d
	}
	num := func(key string, def int) int {
		n, err := getEnvInt(key, def)
		if err != nil {
			errs = append(errs, err.Error())
		}
		return n
	}

	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		TickRate:       num("TICK_RATE", 60),
		ReapDelay:      dur("REAP_DELAY", 5*time.Second),
		FormingTimeout: dur("FORMING_TIMEOUT", 3*time.Minute),
		LobbyTTL:       dur("LOBBY_TTL", 10*time.Minute),
		PoolTTL:        dur("POOL_TTL", 5*time.Minute),
		SweepInterval:  dur("SWEEP_INTERVAL", 30*time.Second),

		RequireAuth:    getEnvBool("REQUIRE_AUTH", false),
		PrivateKeyPath: os.Getenv("AUTH_PRIVATE_KEY_PATH"),
		PublicKeyPath:  os.Getenv("AUTH_PUBLIC_KEY_PATH"),

		ResultSink:     strings.ToLower(getEnv("RESULT_SINK", SinkLog)),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:        num("REDIS_DB", 0),
		ResultsQueue:   getEnv("RESULTS_QUEUE", "duel_results"),
		NatsURL:        getEnv("NATS_URL", "nats://localhost:4222"),
		ResultsSubject: getEnv("RESULTS_SUBJECT", "duel.results"),

		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PGHost:           getEnv("PG_HOST", "localhost"),
		PGPort:           getEnv("PG_PORT", "5432"),
		PGDatabase:       getEnv("PG_DATABASE", "duel"),

		HistorianBatchSize: num("HISTORIAN_BATCH_SIZE", 20),
		HistorianFlush:     time.Duration(num("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
	}

	ttl, err := auth.ParseTokenExpireTime(os.Getenv("TOKEN_EXPIRE_TIME"))
	if err != nil {
		errs = append(errs, err.Error())
	}
	cfg.TokenExpireTime = ttl

	if cfg.TickRate <= 0 || cfg.TickRate > 1000 {
		errs = append(errs, fmt.Sprintf("TICK_RATE must be between 1 and 1000, got %d", cfg.TickRate))
	}
	switch cfg.ResultSink {
	case SinkLog, SinkRedis, SinkNATS:
	default:
		errs = append(errs, fmt.Sprintf("RESULT_SINK must be one of log, redis, nats; got %q", cfg.ResultSink))
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

// PostgresURL is the pgx connection string built from the POSTGRES_* and PG_* variables.
func (c *Config) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		c.PostgresUser, c.PostgresPassword, c.PGHost, c.PGPort, c.PGDatabase)
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

// getEnvDuration accepts Go durations ("90s") or a bare number of seconds.
func getEnvDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getEnvBool(key string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}
