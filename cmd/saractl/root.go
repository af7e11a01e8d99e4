package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Roan1982/saraianew/internal/bootstrap"
	"github.com/Roan1982/saraianew/internal/config"
	"github.com/Roan1982/saraianew/internal/logging"
)

// cli carries state resolved once in the root PersistentPreRunE.
type cli struct {
	v      *viper.Viper
	cfg    config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{v: config.New()}

	root := &cobra.Command{
		Use:           "saractl",
		Short:         "Operate a SARA deployment.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "YAML config file (defaults to $SARA_CONFIG)")
	flags.String("store", "", "store backend: postgres or memory")
	flags.String("postgres-url", "", "Postgres connection string")
	flags.String("timezone", "", "IANA zone calendar days are evaluated in")
	flags.String("log-level", "", "log level")
	flags.String("log-format", "", "log encoder: json or console")

	for key, flag := range map[string]string{
		"store":        "store",
		"postgres_url": "postgres-url",
		"timezone":     "timezone",
		"log_level":    "log-level",
		"log_format":   "log-format",
	} {
		_ = c.v.BindPFlag(key, flags.Lookup(flag))
	}

	root.AddCommand(
		newMigrateCmd(c),
		newSeedCmd(c),
		newReportCmd(c),
		newChatCmd(c),
		newTokenCmd(c),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = c.v.GetString("config")
	}
	if path != "" {
		c.v.SetConfigFile(path)
		if err := c.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg, err := config.FromViper(c.v)
	if err != nil {
		return err
	}
	c.cfg = cfg

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	c.logger = logger
	return nil
}

// runtime opens the configured store for commands that need the domain service.
func (c *cli) runtime(ctx context.Context) (*bootstrap.Runtime, error) {
	return bootstrap.Open(ctx, c.cfg, c.logger)
}
