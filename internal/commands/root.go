package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/actualbridge/actualbridge/internal/actual"
	"github.com/actualbridge/actualbridge/internal/bridge"
	"github.com/actualbridge/actualbridge/internal/buildinfo"
	"github.com/actualbridge/actualbridge/internal/config"
	"github.com/actualbridge/actualbridge/internal/log"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:     "actualbridge",
		Short:   "Bridge an Actual Budget server into home-automation sensors",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "actualbridge.yaml", "path to config file")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newValidateCommand(&configPath))
	rootCmd.AddCommand(newServeCommand(&configPath))
	rootCmd.AddCommand(newAccountsCommand(&configPath))
	rootCmd.AddCommand(newBudgetsCommand(&configPath))
	rootCmd.AddCommand(newTransactionsCommand(&configPath))

	return rootCmd
}

// setup loads the config and wires a Bridge against the configured server.
func setup(configPath string) (*config.Config, *bridge.Bridge, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	logger := log.New(cfg.Logging.Level, log.Format(cfg.Logging.Format), os.Stderr)

	opts := actual.Options{
		Endpoint:           cfg.Budget.Endpoint,
		Password:           cfg.Budget.Password,
		File:               cfg.Budget.File,
		EncryptionPassword: cfg.Budget.EncryptionPassword,
		DataDir:            cfg.Budget.DataDir,
	}
	if cfg.Budget.Cert == config.CertSkip {
		opts.SkipVerify = true
	} else {
		opts.CertPath = cfg.Budget.Cert
	}

	client, err := actual.NewClient(opts, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	return cfg, bridge.New(client, cfg.Session.IdleTimeout.Std(), logger), logger, nil
}
