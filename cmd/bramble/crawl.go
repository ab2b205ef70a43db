package main

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	appctx "github.com/Ramsey-B/bramble/pkg/context"
	"github.com/Ramsey-B/bramble/pkg/crawl"
	"github.com/Ramsey-B/bramble/pkg/models"
)

func newCrawlCmd(c *cli) *cobra.Command {
	var (
		id       int64
		workers  int
		maxItems int
		runID    string
	)

	cmd := &cobra.Command{
		Use:   "crawl <resource-type>",
		Short: "Import a resource type, or one entity with --id, and everything it relates to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("workers") {
				workers = c.cfg.CrawlWorkers
			}
			if !cmd.Flags().Changed("max-items") {
				maxItems = c.cfg.CrawlMaxItems
			}
			if runID == "" {
				runID = uuid.New().String()
			}

			return c.withApp(cmd, func(a *app) error {
				def, err := a.registry.Definition(args[0])
				if err != nil {
					return err
				}

				ctx := appctx.SetRunID(cmd.Context(), runID)
				visited := a.visitedSet(runID)

				var publisher crawl.Publisher
				if a.publisher != nil {
					publisher = a.publisher
				}

				runner := crawl.NewRunner(a.engine(visited), a.contentClient(), visited, publisher, crawl.RunnerConfig{
					Workers:  workers,
					MaxItems: maxItems,
					PageSize: a.cfg.ContentAPIPageSize,
				}, a.logger)

				seeds := []models.CrawlFrontierItem{{ResourceType: def.Name, ExternalID: id}}
				if id == 0 {
					if seeds, err = runner.SeedType(ctx, def.Name); err != nil {
						return err
					}
				}

				stats, err := runner.Run(ctx, seeds)
				if err != nil {
					return err
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"run_id": runID,
					"stats":  stats,
				})
			})
		},
	}

	cmd.Flags().Int64Var(&id, "id", 0, "Crawl outward from a single entity instead of the whole type")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent fetch and import workers (default CRAWL_WORKERS)")
	cmd.Flags().IntVar(&maxItems, "max-items", 0, "Stop after this many frontier items, 0 for no limit (default CRAWL_MAX_ITEMS)")
	cmd.Flags().StringVar(&runID, "run-id", "", "Share a visited set with other crawlers using the same id (requires redis)")
	return cmd
}
