package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/certprep/internal/auth"
	"github.com/gokatarajesh/certprep/internal/auth/jwt"
	"github.com/gokatarajesh/certprep/internal/config"
	"github.com/gokatarajesh/certprep/internal/db"
	"github.com/gokatarajesh/certprep/internal/db/repository"
	"github.com/gokatarajesh/certprep/internal/logging"
	"github.com/gokatarajesh/certprep/internal/practice"
	"github.com/gokatarajesh/certprep/internal/progress"
	"github.com/gokatarajesh/certprep/internal/question"
	"github.com/gokatarajesh/certprep/internal/results"
	"github.com/gokatarajesh/certprep/internal/server"
	ws "github.com/gokatarajesh/certprep/pkg/http/ws"
)

// Application aggregates shared infrastructure (DB, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server

	manager     *practice.Manager
	resultSink  *results.AsyncSink
	broadcaster *results.Broadcaster
	bgCancels   []context.CancelFunc
}

// New bootstraps configs, logger, Postgres, Redis and HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	pool, err := pgxpool.New(ctx, cfg.Postgres.ConnString())
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	queries := db.New(pool)
	questionRepo := repository.NewQuestionRepository(queries)
	attemptRepo := repository.NewAttemptRepository(queries)

	tokens := jwt.NewManager(jwt.TokenConfig{
		Secret: []byte(cfg.Security.JWTSecret),
		Issuer: cfg.Security.JWTIssuer,
	})

	// Question bank
	questionSvc := question.NewService(
		questionRepo,
		question.NewCache(redisClient, cfg.Cache.QuestionPoolTTL),
		logger,
	)

	// Result sinks
	boards := progress.NewService(redisClient, logger, progress.ServiceOptions{
		TopN:      cfg.Progress.TopN,
		WindowTTL: cfg.Progress.WindowTTL,
	})
	resultMetrics := results.NewMetrics(prometheus.DefaultRegisterer)
	resultStore := results.NewStore(attemptRepo)
	resultSink := results.NewAsyncSink(
		// Nothing is counted or announced unless it was persisted.
		results.Chain{
			resultStore,
			results.Fanout{
				resultMetrics,
				boards,
				results.NewPublisher(redisClient, cfg.Redis.ResultsChannel),
			},
		},
		cfg.Practice.ResultQueueSize,
		cfg.Practice.ResultTimeout,
		resultMetrics,
		logger,
	)

	// Live sessions
	wsHub := ws.NewHub(logger)
	manager := practice.NewManager(
		questionSvc,
		resultSink,
		practice.NewSnapshotStore(redisClient, cfg.Practice.SnapshotTTL),
		wsHub,
		practice.Options{
			TickInterval:       cfg.Practice.TickInterval,
			SecondsPerQuestion: cfg.Practice.SecondsPerQuestion,
			CompletedRetention: cfg.Practice.CompletedRetention,
			SweepInterval:      cfg.Practice.SweepInterval,
			Metrics:            practice.NewMetrics(prometheus.DefaultRegisterer),
		},
		logger,
	)

	sessionHTTP := practice.NewHTTPHandlers(manager, questionSvc, logger)
	sessionWS := practice.NewWSHandler(manager, wsHub, server.NewWSUpgrader(cfg.CORS.AllowedOrigins), logger,
		ws.WithPongWait(cfg.Practice.WSPongWait))
	historyHTTP := results.NewHTTPHandler(resultStore, logger)
	broadcaster := results.NewBroadcaster(redisClient, wsHub, cfg.Redis.ResultsChannel, logger)

	checks := []server.HealthCheck{
		pool.Ping,
		func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	}

	apiServer := server.NewHTTPServer(cfg, logger, checks, server.Routes{
		Sessions:  sessionHTTP,
		Progress:  progress.NewHTTPHandler(boards, logger),
		SessionWS: sessionWS.HandleWebSocket,
		History:   historyHTTP.HandleHistory,
		Auth:      auth.Middleware(tokens, logger),
	})

	return &Application{
		cfg:         cfg,
		logger:      logger,
		pool:        pool,
		redis:       redisClient,
		http:        apiServer,
		manager:     manager,
		resultSink:  resultSink,
		broadcaster: broadcaster,
		bgCancels:   make([]context.CancelFunc, 0, 3),
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.startBackgroundWorkers(ctx)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	for _, cancel := range a.bgCancels {
		cancel()
	}

	// Completed sessions may still be queued; let the sink flush them.
	select {
	case <-a.resultSink.Done():
	case <-shutdownCtx.Done():
		a.logger.Warn().Msg("result sink did not drain before shutdown deadline")
	}

	a.pool.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}

func (a *Application) startBackgroundWorkers(ctx context.Context) {
	a.spawn(ctx, "session manager", a.manager.Run)
	a.spawn(ctx, "result sink", a.resultSink.Run)
	a.spawn(ctx, "results broadcaster", a.broadcaster.Run)
}

func (a *Application) spawn(ctx context.Context, name string, run func(context.Context) error) {
	bgCtx, cancel := context.WithCancel(ctx)
	a.bgCancels = append(a.bgCancels, cancel)
	go func() {
		if err := run(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn().Err(err).Str("worker", name).Msg("background worker stopped")
		}
	}()
}
