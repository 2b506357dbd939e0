package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"certprep"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Postgres Postgres
	Redis    Redis
	Security Security
	Practice Practice
	Progress Progress
	Cache    Cache
	CORS     CORS
}

// Postgres captures connection info for the SQL database.
type Postgres struct {
	Host     string `env:"PG_HOST,notEmpty"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER,notEmpty"`
	Password string `env:"PG_PASSWORD,notEmpty"`
	Database string `env:"PG_DATABASE,notEmpty"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
	MaxConns int    `env:"PG_MAX_CONNS" envDefault:"10"`
}

// DSN renders a keyword/value connection string for database/sql drivers.
func (p Postgres) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

// ConnString is DSN plus the pgxpool sizing parameters.
func (p Postgres) ConnString() string {
	return fmt.Sprintf("%s pool_max_conns=%d", p.DSN(), p.MaxConns)
}

// Redis holds cache, snapshot and pub/sub configuration.
type Redis struct {
	Addr           string `env:"REDIS_ADDR,notEmpty"`
	DB             int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize       int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
	ResultsChannel string `env:"REDIS_RESULTS_CHANNEL" envDefault:"practice:results"`
}

// Security stores secrets for token validation.
type Security struct {
	JWTSecret string `env:"JWT_SECRET,notEmpty"`
	JWTIssuer string `env:"JWT_ISSUER" envDefault:"certprep"`
}

// Practice groups session defaults.
type Practice struct {
	SecondsPerQuestion int           `env:"PRACTICE_SECONDS_PER_QUESTION" envDefault:"90"`
	TickInterval       time.Duration `env:"PRACTICE_TICK_INTERVAL" envDefault:"1s"`
	CompletedRetention time.Duration `env:"PRACTICE_COMPLETED_RETENTION" envDefault:"10m"`
	SweepInterval      time.Duration `env:"PRACTICE_SWEEP_INTERVAL" envDefault:"1m"`
	SnapshotTTL        time.Duration `env:"PRACTICE_SNAPSHOT_TTL" envDefault:"2h"`
	ResultQueueSize    int           `env:"PRACTICE_RESULT_QUEUE_SIZE" envDefault:"256"`
	ResultTimeout      time.Duration `env:"PRACTICE_RESULT_TIMEOUT" envDefault:"5s"`
	WSPongWait         time.Duration `env:"PRACTICE_WS_PONG_WAIT" envDefault:"60s"`
}

// Progress configures the per-certification boards.
type Progress struct {
	TopN      int           `env:"PROGRESS_TOP_N" envDefault:"50"`
	WindowTTL time.Duration `env:"PROGRESS_WINDOW_TTL" envDefault:"336h"`
}

// Cache governs the question pool cache.
type Cache struct {
	QuestionPoolTTL time.Duration `env:"QUESTION_POOL_CACHE_TTL" envDefault:"5m"`
}

// CORS holds Cross-Origin Resource Sharing configuration.
type CORS struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://127.0.0.1:3000"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS" envSeparator:"," envDefault:"GET,POST,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS" envSeparator:"," envDefault:"Content-Type,Authorization"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS" envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE" envDefault:"3600"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Practice.SecondsPerQuestion <= 0 {
		return nil, fmt.Errorf("PRACTICE_SECONDS_PER_QUESTION must be positive")
	}
	return cfg, nil
}
