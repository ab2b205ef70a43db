package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/huandu/go-sqlbuilder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/bramble/pkg/registry"
)

func TestSchema_Postgres(t *testing.T) {
	stmts := Schema(sqlbuilder.PostgreSQL, registry.Default())
	ddl := strings.Join(stmts, ";\n")

	assert.Contains(t, ddl, "CREATE TABLE IF NOT EXISTS image (id BIGSERIAL PRIMARY KEY")
	assert.Contains(t, ddl, "UNIQUE (assoc_type_id, assoc_id)")
	assert.Contains(t, ddl, "CREATE TABLE IF NOT EXISTS wiki_game (id BIGINT PRIMARY KEY, image_id BIGINT")
	assert.Contains(t, ddl, "release_date_type INTEGER NOT NULL DEFAULT 0")
	assert.Contains(t, ddl, "CREATE TABLE IF NOT EXISTS wiki_assoc_game_developer (company_id BIGINT NOT NULL, game_id BIGINT NOT NULL, PRIMARY KEY (company_id, game_id))")
	assert.Equal(t, 1, strings.Count(ddl, "TABLE IF NOT EXISTS wiki_assoc_game_developer "))
}

func TestSchema_SQLite(t *testing.T) {
	ddl := strings.Join(Schema(sqlbuilder.SQLite, registry.Default()), ";\n")
	assert.Contains(t, ddl, "id INTEGER PRIMARY KEY AUTOINCREMENT")
	assert.NotContains(t, ddl, "BIGSERIAL")
}

// The versioned postgres migrations must create every table the registry writes to.
func TestSchema_MigrationsCoverRegistry(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("..", "..", "db", "pg", "*.up.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	var all strings.Builder
	for _, f := range files {
		b, err := os.ReadFile(f)
		require.NoError(t, err)
		all.Write(b)
	}
	migrations := all.String()

	tables := []string{registry.ImageTable}
	for _, def := range registry.Default().Definitions() {
		tables = append(tables, def.TableName)
		for _, col := range def.Columns {
			assert.Contains(t, migrations, "    "+col.Name+" ", "%s.%s", def.TableName, col.Name)
		}
	}
	for _, jt := range registry.Default().JoinTables() {
		tables = append(tables, jt.Name)
	}
	for _, table := range tables {
		assert.Contains(t, migrations, "CREATE TABLE IF NOT EXISTS "+table+" (", table)
	}
}
