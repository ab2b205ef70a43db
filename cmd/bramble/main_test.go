package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Ramsey-B/bramble/pkg/registry"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestSchemaCmd_YAML(t *testing.T) {
	out, err := run(t, "schema")
	require.NoError(t, err)

	var summaries []registry.TypeSummary
	require.NoError(t, yaml.Unmarshal([]byte(out), &summaries))
	assert.Len(t, summaries, len(registry.Default().Definitions()))
}

func TestSchemaCmd_DDL(t *testing.T) {
	out, err := run(t, "schema", "--ddl", "--flavor", "sqlite")
	require.NoError(t, err)
	assert.Contains(t, out, "CREATE TABLE IF NOT EXISTS wiki_game (")
	assert.Contains(t, out, "AUTOINCREMENT")

	_, err = run(t, "schema", "--ddl", "--flavor", "mysql")
	assert.Error(t, err)
}

func TestDecodeRecords(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantIDs []string
		wantErr bool
	}{
		{name: "single record", input: `{"id": 1, "name": "a"}`, wantIDs: []string{"1"}},
		{name: "array", input: `[{"id": 1}, {"id": 2}]`, wantIDs: []string{"1", "2"}},
		{name: "envelope with object", input: `{"status_code": 1, "results": {"id": 9}}`, wantIDs: []string{"9"}},
		{name: "envelope with array", input: `{"status_code": 1, "results": [{"id": 3}]}`, wantIDs: []string{"3"}},
		{name: "scalar", input: `42`, wantErr: true},
		{name: "array of scalars", input: `[1]`, wantErr: true},
		{name: "malformed", input: `{`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := decodeRecords([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			ids := []string{}
			for _, r := range records {
				ids = append(ids, string(r["id"].(json.Number)))
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestImportCmd_SkipsRecordsWithoutID(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_SQLITE_PATH", filepath.Join(dir, "bramble.db"))
	t.Setenv("STARTUP_MAX_ATTEMPTS", "1")

	payload := filepath.Join(dir, "games.json")
	require.NoError(t, os.WriteFile(payload, []byte(`[{"id": 1, "name": "Halo"}, {"name": "no id"}, {"id": 2, "name": "Borderlands"}]`), 0o644))

	out, err := run(t, "import", "games", payload)
	require.NoError(t, err)

	var result struct {
		Imported int `json:"imported"`
		Skipped  int `json:"skipped"`
	}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out)), &result))
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.Skipped)

	out, err = run(t, "export", "game", "--id", "2", "--out", filepath.Join(dir, "out"))
	require.NoError(t, err)
	assert.Contains(t, out, `"pages":1`)
}

func TestImportThenExport_SQLite(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_SQLITE_PATH", filepath.Join(dir, "bramble.db"))
	t.Setenv("STARTUP_MAX_ATTEMPTS", "1")

	payload := filepath.Join(dir, "games.json")
	require.NoError(t, os.WriteFile(payload, []byte(`{"status_code": 1, "results": [
		{"id": 1, "name": "Halo", "deck": "Shooter", "developers": [{"id": 7, "name": "Bungie"}]},
		{"id": 2, "name": "Borderlands"}
	]}`), 0o644))

	out, err := run(t, "import", "games", payload)
	require.NoError(t, err)
	assert.Contains(t, out, `"imported":2`)
	assert.Contains(t, out, `"resource_type":"company"`)

	exportDir := filepath.Join(dir, "out")
	out, err = run(t, "export", "game", "--out", exportDir, "--batch-size", "1")
	require.NoError(t, err)

	var result struct {
		Path  string `json:"path"`
		Stats struct {
			Pages   int `json:"pages"`
			Batches int `json:"batches"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out)), &result))
	assert.Equal(t, 2, result.Stats.Pages)
	assert.Equal(t, 2, result.Stats.Batches)
	assert.Equal(t, filepath.Join(exportDir, "game_pages.xml"), result.Path)

	xml, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	assert.Contains(t, string(xml), "<title>Games/Halo</title>")
	assert.Contains(t, string(xml), "<title>Games/Borderlands</title>")
	assert.True(t, strings.HasSuffix(string(xml), "</mediawiki>\n"))
}
