package cli

import (
	"context"
	"database/sql"
	"fmt"

	"anime-quiz-service/internal/config"
	pgmigrations "anime-quiz-service/internal/infra/postgres/migrations"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"
)

// NewMigrateCmd applies database migrations.
func NewMigrateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the game_sessions schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(opts.logLevel)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			return runMigrationsWithConfig(cmd.Context(), cfg, logger)
		},
	}
}

func runMigrationsWithConfig(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	group, err := migrator.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	if group.IsZero() {
		logger.Info("schema up to date")
		return nil
	}
	logger.Info("migrations applied", zap.String("group", group.String()))
	return nil
}
