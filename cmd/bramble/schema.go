package main

import (
	"fmt"
	"strings"

	"github.com/huandu/go-sqlbuilder"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Ramsey-B/bramble/pkg/registry"
	"github.com/Ramsey-B/bramble/pkg/store"
)

func newSchemaCmd(_ *cli) *cobra.Command {
	var (
		ddl    bool
		flavor string
	)

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the resource type registry as YAML, or its DDL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := registry.Default()
			if !ddl {
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(reg.Summaries())
			}

			var f sqlbuilder.Flavor
			switch strings.ToLower(flavor) {
			case "postgres":
				f = sqlbuilder.PostgreSQL
			case "sqlite":
				f = sqlbuilder.SQLite
			default:
				return fmt.Errorf("unknown flavor %q, expected postgres or sqlite", flavor)
			}
			for _, stmt := range store.Schema(f, reg) {
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s;\n", stmt); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&ddl, "ddl", false, "Print CREATE TABLE statements instead of YAML")
	cmd.Flags().StringVar(&flavor, "flavor", "postgres", "SQL dialect for --ddl: postgres or sqlite")
	return cmd
}
