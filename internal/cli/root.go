package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type options struct {
	port       string
	configPath string
	logLevel   string
}

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	v := viper.New()
	v.SetEnvPrefix("ANIMEQUIZ")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "anime-quiz",
		Short:         "Anime screenshot trivia game service",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return applyEnv(cmd.Root().PersistentFlags(), v)
		},
	}

	fs := cmd.PersistentFlags()
	fs.StringVar(&opts.port, "port", "", "port to listen on, overrides the config file (env: ANIMEQUIZ_PORT)")
	fs.StringVar(&opts.configPath, "config", "config/config.yaml", "path to YAML config (env: ANIMEQUIZ_CONFIG)")
	fs.StringVar(&opts.logLevel, "log-level", "info", "debug, info, warn or error (env: ANIMEQUIZ_LOG_LEVEL)")

	cmd.AddCommand(NewStartCmd(opts))
	cmd.AddCommand(NewMigrateCmd(opts))
	cmd.AddCommand(NewSweepCmd(opts))
	cmd.CompletionOptions.HiddenDefaultCmd = true
	return cmd
}

// applyEnv copies ANIMEQUIZ_* variables into flags the user did not set.
func applyEnv(fs *pflag.FlagSet, v *viper.Viper) error {
	var firstErr error
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			if err := fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name))); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("flag %s: %w", f.Name, err)
			}
		}
	})
	return firstErr
}
