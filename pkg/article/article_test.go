package article

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtnitsch/wikigraph/models"
	"github.com/dtnitsch/wikigraph/pkg/mapreduce"
	"github.com/dtnitsch/wikigraph/pkg/table"
	"github.com/dtnitsch/wikigraph/pkg/titleindex"
	"github.com/dtnitsch/wikigraph/pkg/wikitext"
)

var roots = []int64{5, 43229}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func titles() *titleindex.Index {
	pages := []models.Page{
		{ID: 3, Title: "C"},
		{ID: 1, Title: "A"},
		{ID: 2, Title: "B", IsRedirect: true},
	}
	return titleindex.Build(pages, []models.ResolvedRedirect{{SourceID: 2, SourceTitle: "B", TargetID: 3, TargetTitle: "C"}})
}

func readAll(t *testing.T, path string) [][]string {
	t.Helper()
	var rows [][]string
	require.NoError(t, table.Each(path, nil, table.Options{Strict: true}, func(r table.Row) error {
		rows = append(rows, append([]string(nil), r...))
		return nil
	}))
	return rows
}

func writeTable(t *testing.T, path string, header []string, rows ...[]string) {
	t.Helper()
	w, err := table.Create(path, header)
	require.NoError(t, err)
	for _, r := range rows {
		require.NoError(t, w.Write(r))
	}
	require.NoError(t, w.Close())
}

func TestBuildPre(t *testing.T) {
	props := []models.PageProp{{PageID: 1, ItemID: 42}, {PageID: 2, ItemID: 99}}
	tags := map[int64][]bool{42: {true, false}}

	pre := BuildPre(titles(), props, tags, roots)
	assert.Equal(t, []Pre{
		{PageID: 1, Title: "A", ItemID: 42, Isa: []bool{true, false}},
		{PageID: 3, Title: "C", ItemID: NoItem, Isa: []bool{false, false}},
	}, pre)

	path := filepath.Join(t.TempDir(), "article-pre.csv")
	require.NoError(t, WritePre(path, pre, roots))
	assert.Equal(t, [][]string{
		{"1", "A", "42", "1", "0"},
		{"3", "C", "-1", "0", "0"},
	}, readAll(t, path))

	back, err := ReadPre(path, roots, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, pre, back)
}

func TestWriteJoinsStatistics(t *testing.T) {
	dir := t.TempDir()
	paths := StatsPaths{
		InOutCounts: filepath.Join(dir, "in-out-counts.csv"),
		Lengths:     filepath.Join(dir, "lengths.csv"),
		Templates:   filepath.Join(dir, "templates.csv"),
	}
	writeTable(t, paths.InOutCounts, mapreduce.InOutHeader, []string{"3", "2", "1"}, []string{"1", "1", "2"})
	writeTable(t, paths.Lengths, wikitext.LengthsHeader, []string{"1", "48", "31"})
	writeTable(t, paths.Templates, wikitext.TemplatesHeader, []string{"1", "1", "0", "0", "1"}, []string{"bad", "0", "0", "0", "0"})

	stats, err := LoadStats(paths, discardLogger())
	require.NoError(t, err)
	assert.Len(t, stats.Templates, 1, "malformed template row is skipped")

	pre := BuildPre(titles(), []models.PageProp{{PageID: 1, ItemID: 42}}, map[int64][]bool{42: {false, true}}, roots)
	out := filepath.Join(dir, "article.csv")
	n, err := Write(out, pre, stats, roots)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, []string{
		"page_id", "item_id", "page_title", "len_article_chars", "len_intro_chars",
		"in_link_count", "out_link_count",
		"tmpl_good_article", "tmpl_featured_article", "tmpl_pseudoscience", "tmpl_conspiracy_theories",
		"isa_Q5", "isa_Q43229",
	}, Header(roots))
	assert.Equal(t, [][]string{
		{"1", "42", "A", "48", "31", "1", "2", "1", "0", "0", "1", "0", "1"},
		{"3", "-1", "C", "0", "0", "2", "1", "0", "0", "0", "0", "0", "0"},
	}, readAll(t, out))
}
