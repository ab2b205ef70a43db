package main

import (
	"github.com/Gobusters/ectologger"
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/bramble/config"
)

// cli carries the loaded config and logger from the root pre-run into subcommands.
type cli struct {
	envFile string
	cfg     *config.Config
	logger  ectologger.Logger
	sync    func()
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "bramble",
		Short:         "Crawl the content API into a relational mirror and export it as wiki pages",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.envFile)
			if err != nil {
				return err
			}
			logger, sync, err := newLogger(cfg)
			if err != nil {
				return err
			}
			c.cfg, c.logger, c.sync = cfg, logger, sync
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.sync != nil {
				c.sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "Optional dotenv file loaded before the environment")

	root.AddCommand(
		newServeCmd(c),
		newCrawlCmd(c),
		newImportCmd(c),
		newExportCmd(c),
		newMigrateCmd(c),
		newSchemaCmd(c),
	)
	return root
}

// withApp starts the app's dependencies, runs fn and stops them again.
func (c *cli) withApp(cmd *cobra.Command, fn func(a *app) error) error {
	a := newApp(c.cfg, c.logger)
	if err := a.start(cmd.Context()); err != nil {
		return err
	}
	defer a.stop()
	return fn(a)
}
