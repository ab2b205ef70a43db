package store

import (
	"context"
	"fmt"

	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/bramble/pkg/database"
	"github.com/Ramsey-B/bramble/pkg/registry"
)

func columnType(flavor sqlbuilder.Flavor, col registry.Column) []string {
	switch {
	case col.Name == "release_date_type":
		return []string{"INTEGER", "NOT NULL", "DEFAULT 0"}
	case col.Name == "page_name":
		return []string{"TEXT", "NOT NULL", "DEFAULT ''"}
	case col.Kind == registry.Text:
		return []string{"TEXT", "NOT NULL", "DEFAULT ''"}
	case col.Kind == registry.Integer:
		return []string{bigint(flavor)}
	default:
		return []string{"TEXT"}
	}
}

func bigint(flavor sqlbuilder.Flavor) string {
	if flavor == sqlbuilder.SQLite {
		return "INTEGER"
	}
	return "BIGINT"
}

// Schema generates idempotent DDL for the image table, every primary table and
// every distinct join table in reg.
func Schema(flavor sqlbuilder.Flavor, reg *registry.Registry) []string {
	var stmts []string

	image := database.NewCreateTableBuilder(flavor).CreateTable(registry.ImageTable).IfNotExists()
	if flavor == sqlbuilder.SQLite {
		image.Define(ColumnID, "INTEGER", "PRIMARY KEY", "AUTOINCREMENT")
	} else {
		image.Define(ColumnID, "BIGSERIAL", "PRIMARY KEY")
	}
	image.Define(ColumnAssocTypeID, "INTEGER", "NOT NULL")
	image.Define(ColumnAssocID, bigint(flavor), "NOT NULL")
	image.Define(ColumnImage, "TEXT", "NOT NULL", "DEFAULT ''")
	image.Define("UNIQUE", fmt.Sprintf("(%s, %s)", ColumnAssocTypeID, ColumnAssocID))
	stmts = append(stmts, image.String())

	for _, def := range reg.Definitions() {
		ctb := database.NewCreateTableBuilder(flavor).CreateTable(def.TableName).IfNotExists()
		if flavor == sqlbuilder.SQLite {
			ctb.Define(ColumnID, "INTEGER", "PRIMARY KEY")
		} else {
			ctb.Define(ColumnID, "BIGINT", "PRIMARY KEY")
		}
		ctb.Define(ColumnImageID, bigint(flavor))
		for _, col := range def.Columns {
			ctb.Define(append([]string{col.Name}, columnType(flavor, col)...)...)
		}
		stmts = append(stmts, ctb.String())
	}

	for _, jt := range reg.JoinTables() {
		ctb := database.NewCreateTableBuilder(flavor).CreateTable(jt.Name).IfNotExists()
		for _, col := range jt.Columns {
			ctb.Define(col, bigint(flavor), "NOT NULL")
		}
		ctb.Define("PRIMARY KEY", fmt.Sprintf("(%s, %s)", jt.Columns[0], jt.Columns[1]))
		stmts = append(stmts, ctb.String())
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s (%s)", jt.Name, jt.Columns[1], jt.Name, jt.Columns[1]))
	}

	return stmts
}

// EnsureSchema creates any missing tables. Postgres deployments use the versioned
// migrations instead; this serves sqlite files and tests.
func EnsureSchema(ctx context.Context, db database.DB, reg *registry.Registry) error {
	for _, stmt := range Schema(db.Flavor(), reg) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply %q: %w", stmt, err)
		}
	}
	return nil
}
