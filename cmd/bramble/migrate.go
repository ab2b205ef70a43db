package main

import (
	"github.com/spf13/cobra"
)

func newMigrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Bring the database schema up to date and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// opening the store runs migrations
			return c.withApp(cmd, func(a *app) error {
				a.logger.Infof("Schema is up to date for driver %s", a.cfg.DatabaseDriver)
				return nil
			})
		},
	}
}
