package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/bramble/pkg/export"
	"github.com/Ramsey-B/bramble/pkg/redis"
)

func newExportCmd(c *cli) *cobra.Command {
	var (
		id        int64
		out       string
		batchSize int
	)

	cmd := &cobra.Command{
		Use:   "export <resource-type>",
		Short: "Render stored rows of a type into a MediaWiki XML bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				out = c.cfg.ExportOutputDir
			}
			if batchSize <= 0 {
				batchSize = c.cfg.ExportBatchSize
			}

			return c.withApp(cmd, func(a *app) (err error) {
				sink := export.NewXMLSink(out, a.cfg.ExportUsername)
				defer func() {
					if cerr := sink.Close(); err == nil {
						err = cerr
					}
				}()

				driver := export.NewDriver(a.registry, a.store, a.renderer(), sink, export.Config{BatchSize: batchSize}, a.logger)
				if a.redis != nil {
					driver.WithLocker(redis.NewLocker(a.redis, ""))
				}

				sel := export.Selector{}
				if id > 0 {
					sel.ID = &id
				}
				stats, err := driver.Export(cmd.Context(), args[0], sel)
				if err != nil {
					return err
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"path":  sink.Path(stats.Bundle),
					"stats": stats,
				})
			})
		},
	}

	cmd.Flags().Int64Var(&id, "id", 0, "Export a single entity")
	cmd.Flags().StringVar(&out, "out", "", "Output directory (default EXPORT_OUTPUT_DIR)")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Documents per sink batch (default EXPORT_BATCH_SIZE)")
	return cmd
}
