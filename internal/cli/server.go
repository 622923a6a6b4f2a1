package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"anime-quiz-service/internal/app"
	"anime-quiz-service/internal/auth"
	"anime-quiz-service/internal/catalog"
	"anime-quiz-service/internal/config"
	"anime-quiz-service/internal/infra/memory"
	pgstore "anime-quiz-service/internal/infra/postgres"
	redisstore "anime-quiz-service/internal/infra/redis"
	"anime-quiz-service/internal/metrics"
	transport "anime-quiz-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the game server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), opts)
		},
	}
}

// stores holds the persistence chosen by config: Postgres wins over Redis,
// and memory is the fallback for local play.
type stores struct {
	sessions app.SessionStore
	redis    *redis.Client
	pool     *pgxpool.Pool
}

func (s *stores) Close() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
}

func openStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (*stores, error) {
	s := &stores{}
	if cfg.Redis.Addr != "" {
		s.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.pool = pool
	}

	switch {
	case s.pool != nil:
		s.sessions = pgstore.NewSessionStore(s.pool)
		logger.Info("using postgres session store")
	case s.redis != nil:
		s.sessions = redisstore.NewSessionStore(s.redis)
		logger.Info("using redis session store", zap.String("addr", cfg.Redis.Addr))
	default:
		s.sessions = memory.NewSessionStore()
		logger.Warn("using in-memory session store; sessions are lost on restart")
	}
	return s, nil
}

func runServer(ctx context.Context, opts *options) error {
	logger, err := newLogger(opts.logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwtSecret must be configured")
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
			return err
		}
	}

	port := config.StringOr(opts.port, config.StringOr(cfg.Server.Port, "8080"))

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	m := metrics.New()
	client := catalog.New(
		config.StringOr(cfg.Catalog.URL, catalog.DefaultURL),
		catalog.WithTimeout(config.Duration(cfg.Catalog.Timeout, 10*time.Second)),
		catalog.WithUserAgent(cfg.Catalog.UserAgent),
		catalog.WithLogger(logger.Named("catalog")),
		catalog.WithMetrics(m),
	)

	policy := app.DefaultRetryPolicy()
	policy.MaxBatches = config.IntOr(cfg.Game.MaxBatches, policy.MaxBatches)
	policy.MaxRetries = config.SetIntOr(cfg.Game.MaxRetries, policy.MaxRetries)

	roundTTL := config.Duration(cfg.Game.RoundDataTTL, time.Hour)
	decoys := app.NewDecoyFetcher(client, policy)
	var rounds app.RoundDataRepository
	if st.redis != nil {
		rounds = redisstore.NewRoundRepository(st.redis, decoys, roundTTL)
	} else {
		rounds = memory.NewRoundRepository(decoys, roundTTL)
	}

	service := app.NewGameService(st.sessions, rounds, app.NewSelector(client, policy), logger.Named("game"), m)

	sweeper := app.NewSweeper(st.sessions, config.Duration(cfg.Sweeper.Threshold, app.DefaultStaleAfter), logger.Named("sweeper"), m)
	scheduler, err := sweeper.Schedule(config.StringOr(cfg.Sweeper.Schedule, "@every 1m"), 30*time.Second)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	router := transport.NewRouter(transport.RouterDeps{
		API:     transport.NewAPIHandler(service, sweeper, cfg.Auth.CronSecret, logger.Named("api")),
		WS:      transport.NewWSHandler(service, logger.Named("ws")),
		Auth:    auth.NewAuthenticator(cfg.Auth.JWTSecret),
		Metrics: m.Handler(),
		Logger:  logger.Named("http"),
	})

	server := &http.Server{
		Addr:        ":" + port,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting game service", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
