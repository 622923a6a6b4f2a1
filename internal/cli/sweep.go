package cli

import (
	"time"

	"anime-quiz-service/internal/app"
	"anime-quiz-service/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewSweepCmd runs a single stale-session sweep, for external schedulers.
func NewSweepCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete unfinished games idle longer than the configured threshold",
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

			st, err := openStores(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			threshold := config.Duration(cfg.Sweeper.Threshold, app.DefaultStaleAfter)
			n, err := app.NewSweeper(st.sessions, threshold, logger, nil).Sweep(cmd.Context())
			if err != nil {
				return err
			}
			logger.Info("sweep complete", zap.Int64("deleted", n), zap.Duration("threshold", threshold), zap.Time("at", time.Now()))
			return nil
		},
	}
}
