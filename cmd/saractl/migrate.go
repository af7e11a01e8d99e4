package main

import (
	"github.com/spf13/cobra"

	"github.com/Roan1982/saraianew/internal/persistence/postgres"
)

func newMigrateCmd(c *cli) *cobra.Command {
	var version int
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded schema migrations",
		Long: `Migrate the Postgres schema. Without --version the schema is brought to the
latest version; --version 0 rolls every migration back.`,
		Args: cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return postgres.Migrate(c.cfg.PostgresURL, version, c.logger)
		},
	}
	cmd.Flags().IntVar(&version, "version", postgres.LatestVersion, "target schema version")
	return cmd
}
