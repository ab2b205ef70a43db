package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/bramble/pkg/crawl"
	perrors "github.com/Ramsey-B/bramble/pkg/errors"
	"github.com/Ramsey-B/bramble/pkg/models"
)

func newImportCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "import <resource-type> <file.json>",
		Short: "Import saved content API payloads without fetching",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			records, err := decodeRecords(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[1], err)
			}

			return c.withApp(cmd, func(a *app) error {
				engine := a.engine(crawl.NewMemoryVisitedSet())
				frontier := []models.CrawlFrontierItem{}
				imported, skipped := 0, 0
				for _, record := range records {
					_, adds, err := engine.Import(cmd.Context(), args[0], record)
					if perrors.Skippable(err) {
						fields := map[string]any{"resource_type": args[0]}
						if pe, ok := perrors.AsPipelineError(err); ok {
							fields = pe.LogFields()
						}
						a.logger.WithContext(cmd.Context()).WithError(err).WithFields(fields).Warn("Skipping record")
						skipped++
						continue
					}
					if err != nil {
						return err
					}
					imported++
					frontier = append(frontier, adds...)
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"imported": imported,
					"skipped":  skipped,
					"frontier": frontier,
				})
			})
		},
	}
}

// decodeRecords accepts a single record, an array of records or a full API
// envelope whose results hold either.
func decodeRecords(data []byte) ([]models.EntityRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	if envelope, ok := payload.(map[string]any); ok {
		if results, ok := envelope["results"]; ok {
			payload = results
		}
	}

	switch v := payload.(type) {
	case map[string]any:
		return []models.EntityRecord{v}, nil
	case []any:
		records := make([]models.EntityRecord, 0, len(v))
		for i, item := range v {
			record, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("result %d is not an object", i)
			}
			records = append(records, record)
		}
		return records, nil
	default:
		return nil, fmt.Errorf("expected an object or an array of objects")
	}
}
