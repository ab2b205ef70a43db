package render

import (
	"context"
	"strings"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ramsey-B/bramble/pkg/crawl"
	perrors "github.com/Ramsey-B/bramble/pkg/errors"
	"github.com/Ramsey-B/bramble/pkg/importer"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/registry"
	"github.com/Ramsey-B/bramble/pkg/store"
)

func getTestLogger() ectologger.Logger {
	return zapadapter.NewZapEctoLogger(zap.NewNop(), nil)
}

func newRenderer(st store.Store) *Renderer {
	return NewRenderer(registry.Default(), NewRelationReader(registry.Default(), st), 0, getTestLogger())
}

func edge(ownerColumn, otherColumn string, owner, other int64) models.Row {
	var row models.Row
	row.Set(ownerColumn, owner)
	row.Set(otherColumn, other)
	return row
}

func named(id int64, name string) models.Row {
	var row models.Row
	row.Set("id", id)
	row.Set("name", name)
	return row
}

func countLines(body, prefix string) int {
	n := 0
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, prefix) {
			n++
		}
	}
	return n
}

func TestTemplate(t *testing.T) {
	tmpl := NewTemplate("Game").
		Add("Name", "", true).
		Add("Guid", "3030-1", true).
		Add("Aliases", "", false).
		Add("Deck", "Short", false).
		Block("| Developers=Bungie")

	assert.Equal(t, "{{Game\n| Name=\n| Guid=3030-1\n| Deck=Short\n| Developers=Bungie\n}}\n", tmpl.String())
}

func TestEscapeXML(t *testing.T) {
	assert.Equal(t, "Tom &amp; Jerry&apos;s &lt;b&gt;&quot;Show&quot;&lt;/b&gt;", EscapeXML(`Tom & Jerry's <b>"Show"</b>`))
}

func TestImageName(t *testing.T) {
	tests := map[string]string{
		"https://www.giantbomb.com/a/uploads/original/1/13/halo.jpg": "halo.jpg",
		"https://img.example/x/cover.png?width=100":                  "cover.png",
		"/uploads/plain.gif":                                         "plain.gif",
		"":                                                           "",
		"https://img.example/":                                       "",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, ImageName(in))
		})
	}
}

func TestRelationReader_RelationsAsText(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	for _, row := range []models.Row{named(7, "Bungie"), named(8, "Gearbox")} {
		_, err := st.Upsert(ctx, "wiki_company", []string{"id"}, row)
		require.NoError(t, err)
	}
	for _, other := range []int64{8, 7} {
		_, err := st.InsertIgnore(ctx, "wiki_assoc_game_developer", edge("game_id", "company_id", 42, other))
		require.NoError(t, err)
	}

	reader := NewRelationReader(registry.Default(), st)
	text, err := reader.RelationsAsText(ctx, "game", 42)
	require.NoError(t, err)

	game, err := registry.Default().Definition("game")
	require.NoError(t, err)

	lines := strings.Split(text, "\n")
	require.Len(t, lines, len(game.Relations))
	for i, rel := range game.Relations {
		assert.True(t, strings.HasPrefix(lines[i], "| "+rel.TemplateKey()+"="), lines[i])
	}
	assert.Contains(t, lines, "| Developers=Gearbox,Bungie")
	assert.Contains(t, lines, "| Publishers=")
	assert.Contains(t, lines, "| SimilarGames=")
	assert.False(t, strings.HasSuffix(text, "\n"))

	t.Run("unknown type", func(t *testing.T) {
		_, err := reader.RelationsAsText(ctx, "review", 1)
		assert.ErrorIs(t, err, perrors.ErrUnknownResourceType)
	})
}

func TestRenderer_Render(t *testing.T) {
	ctx := context.Background()
	renderer := newRenderer(store.NewMemoryStore())

	t.Run("type without relations", func(t *testing.T) {
		docs, err := renderer.Render(ctx, "accessory", []models.StoredEntityRow{{
			ID:       5,
			ImageURL: "https://img.example/x/glove.jpg",
			Fields: map[string]string{
				"name":      "Power Glove",
				"page_name": "Accessories/Power Glove",
				"deck":      "A glove & more",
			},
		}})
		require.NoError(t, err)
		require.Len(t, docs, 1)

		assert.Equal(t, models.PageDocument{
			Title:     "Accessories/Power Glove",
			Namespace: 0,
			Body:      "{{Accessory\n| Name=Power Glove\n| Guid=3000-5\n| Deck=A glove &amp; more\n| Image=glove.jpg\n| Caption=image of Power Glove\n}}\nA glove &amp; more",
		}, docs[0])
	})

	t.Run("aliases are emitted only when present", func(t *testing.T) {
		rows := []models.StoredEntityRow{
			{ID: 1, Fields: map[string]string{"name": "Halo", "aliases": ""}},
			{ID: 2, Fields: map[string]string{"name": "Halo 2", "aliases": "Halo II\nHalo <2>"}},
		}
		docs, err := renderer.Render(ctx, "concept", rows)
		require.NoError(t, err)
		require.Len(t, docs, 2)

		assert.Equal(t, 0, countLines(docs[0].Body, "| Aliases="))
		assert.Equal(t, 1, countLines(docs[1].Body, "| Aliases="))
		assert.Contains(t, docs[1].Body, "\n| Aliases=Halo II,Halo &lt;2&gt;\n")
	})

	t.Run("free text is escaped once and identifiers are not", func(t *testing.T) {
		docs, err := renderer.Render(ctx, "concept", []models.StoredEntityRow{{
			ID:       9,
			ImageURL: "https://img.example/a&b.png",
			Fields: map[string]string{
				"name":                  "Rock & Roll",
				"formatted_description": "== History ==\nIt's <loud>.",
				"deck":                  "unused",
			},
		}})
		require.NoError(t, err)
		body := docs[0].Body

		assert.Contains(t, body, "| Name=Rock &amp; Roll\n")
		assert.Contains(t, body, "| Guid=3015-9\n")
		assert.Contains(t, body, "| Image=a&amp;b.png\n")
		assert.Contains(t, body, "| Caption=image of Rock &amp; Roll\n")
		assert.True(t, strings.HasSuffix(body, "}}\n== History ==\nIt&apos;s &lt;loud&gt;."))
	})

	t.Run("body is empty without description or deck", func(t *testing.T) {
		docs, err := renderer.Render(ctx, "genre", []models.StoredEntityRow{{ID: 3, Fields: map[string]string{"name": "Racing"}}})
		require.NoError(t, err)
		assert.Equal(t, "{{Genre\n| Name=Racing\n| Guid=3060-3\n}}\n", docs[0].Body)
	})

	t.Run("type specific fields", func(t *testing.T) {
		// the content API encodes character gender as 0 unknown, 1 male, 2 female and 3 other
		docs, err := renderer.Render(ctx, "character", []models.StoredEntityRow{
			{ID: 1, Fields: map[string]string{"name": "Master Chief", "real_name": "John-117", "gender": "1", "birthday": "2511-03-07"}},
			{ID: 2, Fields: map[string]string{"name": "Cortana", "gender": "2"}},
			{ID: 3, Fields: map[string]string{"name": "Guilty Spark", "gender": "0"}},
			{ID: 4, Fields: map[string]string{"name": "Other", "gender": "3"}},
		})
		require.NoError(t, err)

		assert.Contains(t, docs[0].Body, "| RealName=John-117\n| Gender=Male\n| Birthday=2511-03-07\n")
		assert.Contains(t, docs[1].Body, "| Gender=Female\n")
		assert.Equal(t, 0, countLines(docs[2].Body, "| Gender="))
		assert.Contains(t, docs[3].Body, "| Gender=Non-Binary\n")
	})

	t.Run("release date type", func(t *testing.T) {
		docs, err := renderer.Render(ctx, "game", []models.StoredEntityRow{
			{ID: 1, Fields: map[string]string{"name": "A", "release_date": "2020-02-01", "release_date_type": "3"}},
			{ID: 2, Fields: map[string]string{"name": "B", "release_date_type": "0"}},
		})
		require.NoError(t, err)
		assert.Contains(t, docs[0].Body, "| ReleaseDate=2020-02-01\n| ReleaseDateType=Quarter\n")
		assert.Equal(t, 0, countLines(docs[1].Body, "| ReleaseDate"))
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := renderer.Render(ctx, "review", nil)
		assert.ErrorIs(t, err, perrors.ErrUnknownResourceType)
	})
}

func TestImportThenRender(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	relations := crawl.NewRelationImporter(registry.Default(), st, crawl.NewMemoryVisitedSet(), getTestLogger())
	engine := importer.NewEngine(registry.Default(), st, relations, getTestLogger())

	id, adds, err := engine.Import(ctx, "game", models.EntityRecord{
		"id":                    float64(42),
		"name":                  "Foo",
		"developers":            []any{map[string]any{"id": float64(7)}},
		"original_release_date": "2020-05-01",
	})
	require.NoError(t, err)
	assert.Equal(t, []models.CrawlFrontierItem{{ResourceType: "company", ExternalID: 7}}, adds)

	_, _, err = engine.Import(ctx, "company", models.EntityRecord{"id": float64(7), "name": "Bar Studios"})
	require.NoError(t, err)

	game, err := registry.Default().Definition("game")
	require.NoError(t, err)
	row, err := st.SelectByID(ctx, Query(game), id)
	require.NoError(t, err)
	require.NotNil(t, row)

	docs, err := newRenderer(st).Render(ctx, "game", []models.StoredEntityRow{*row})
	require.NoError(t, err)
	require.Len(t, docs, 1)

	assert.Equal(t, "Games/Foo", docs[0].Title)
	body := docs[0].Body
	assert.Contains(t, body, "| Name=Foo\n")
	assert.Contains(t, body, "| Guid=3030-42\n")
	assert.Contains(t, body, "| ReleaseDateType=Full\n")
	assert.Equal(t, 1, countLines(body, "| Developers=Bar Studios"))
}
