// Package commands implements dashctl, the admin CLI for the invoice store.
package commands

import (
	"context"

	"github.com/spf13/cobra"

	"invoicedash/internal/backend"
	"invoicedash/internal/cli"
	"invoicedash/internal/config"
	"invoicedash/internal/log"
)

// app is the state shared by every subcommand, populated before RunE.
type app struct {
	cfg    *config.Config
	logger *log.Logger
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	a := &app{}
	var envFile string

	rootCmd := &cobra.Command{
		Use:   "dashctl",
		Short: "Administer the invoice analytics store",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if envFile != "" {
				cli.LoadEnvFile(envFile)
			} else {
				cli.LoadEnvFile()
			}

			cfg := config.Load()
			if err := cfg.Validate(); err != nil {
				return err
			}
			a.cfg = cfg

			logCfg := log.DefaultConfig()
			logCfg.Format = cfg.LogFormat
			logCfg.Component = log.ComponentCLI
			logCfg.Output = cmd.ErrOrStderr()
			if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
				logCfg.Level = level
			}
			a.logger = log.New(logCfg)
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "load environment from this file instead of .env")

	rootCmd.AddCommand(
		newMigrateCommand(a),
		newLoadCommand(a),
		newNotifyCommand(a),
		newReportCommand(a),
	)
	return rootCmd
}

func (a *app) openBackend(ctx context.Context) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(a.cfg)
	if err != nil {
		return nil, err
	}
	return backend.NewFactory(a.logger.WithComponent(log.ComponentBackend).Logger).CreateBackend(ctx, bcfg)
}
