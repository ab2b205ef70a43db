package database

import (
	"fmt"
	"strings"

	"github.com/huandu/go-sqlbuilder"
)

func Excluded(column string) string {
	return fmt.Sprintf("EXCLUDED.%s", column)
}

// UpsertSuffix renders the ON CONFLICT clause that overwrites every non-key column.
// Postgres and SQLite share this syntax.
func UpsertSuffix(keyColumns, columns []string, returning ...string) string {
	var sets []string
	for _, col := range columns {
		if contains(keyColumns, col) {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = %s", col, Excluded(col)))
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf(" ON CONFLICT (%s)", strings.Join(keyColumns, ", ")))
	if len(sets) == 0 {
		// keep the statement an update so RETURNING still yields the existing row
		b.WriteString(fmt.Sprintf(" DO UPDATE SET %s = %s", keyColumns[0], Excluded(keyColumns[0])))
	} else {
		b.WriteString(" DO UPDATE SET " + strings.Join(sets, ", "))
	}
	if len(returning) > 0 {
		b.WriteString(" RETURNING " + strings.Join(returning, ", "))
	}
	return b.String()
}

const OnConflictDoNothing = " ON CONFLICT DO NOTHING"

func NewInsertBuilder(flavor sqlbuilder.Flavor) *sqlbuilder.InsertBuilder {
	return flavor.NewInsertBuilder()
}

func NewSelectBuilder(flavor sqlbuilder.Flavor) *sqlbuilder.SelectBuilder {
	return flavor.NewSelectBuilder()
}

func NewCreateTableBuilder(flavor sqlbuilder.Flavor) *sqlbuilder.CreateTableBuilder {
	return flavor.NewCreateTableBuilder()
}

// StringAgg returns the dialect's comma-joining aggregate over expr.
func StringAgg(flavor sqlbuilder.Flavor, expr string) string {
	if flavor == sqlbuilder.SQLite {
		return fmt.Sprintf("group_concat(%s, ',')", expr)
	}
	return fmt.Sprintf("string_agg(%s, ',')", expr)
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
