package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/FairForge/heritageload/internal/config"
	"github.com/FairForge/heritageload/internal/logging"
)

// app is the state shared by every sub-command, filled in before RunE.
type app struct {
	configPath string
	logLevel   string
	cfg        *config.Config
	logger     *zap.Logger
}

// RootCmd is the root Cobra command that gets called from the main func.
// All other sub-commands should be registered here.
func RootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "heritageload",
		Short: "heritageload drives reader and contributor load against the UI Heritage archive API.",
		Long: `heritageload drives reader and contributor load against the UI Heritage archive API.

Settings are read from a YAML file (--config), then HERITAGE_* environment
variables, then command-line flags. Example:

target:
  base_url: http://localhost:8081/api/v1
  api_key: stub-api-key
fixtures:
  dir: ./payload
  contributors: ./contributor_logins.json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to a YAML config file.")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Override the log level (debug, info, warn, error).")

	cmd.AddCommand(
		runCmd(a),
		reportCmd(a),
		seedCmd(a),
		stubCmd(a),
	)
	return cmd
}

func (a *app) init() error {
	cfg := config.Default()
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	config.LoadFromEnv(cfg)
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(&cfg.Log)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

// signalContext is cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
