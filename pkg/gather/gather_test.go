package gather

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtnitsch/wikigraph/models"
	"github.com/dtnitsch/wikigraph/pkg/layout"
	"github.com/dtnitsch/wikigraph/pkg/mapreduce"
	"github.com/dtnitsch/wikigraph/pkg/scatter"
	"github.com/dtnitsch/wikigraph/pkg/table"
)

var linksHeader = []string{"source_page_id", "section_idx", "paragraph_idx", "anchor_text", "anchor_start", "target_page_id"}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testLayout(t *testing.T) layout.Layout {
	t.Helper()
	return layout.Layout{DataPath: t.TempDir(), Wiki: "enwiki", WikipediaDate: "20240101", WikidataDate: "20240102"}
}

func writeChunk(t *testing.T, path string, header []string, rows ...[]string) {
	t.Helper()
	w, err := table.Create(path, header)
	require.NoError(t, err)
	for _, r := range rows {
		require.NoError(t, w.Write(r))
	}
	require.NoError(t, w.Close())
}

func readAll(t *testing.T, path string) [][]string {
	t.Helper()
	var rows [][]string
	err := table.Each(path, nil, table.Options{Strict: true}, func(r table.Row) error {
		rows = append(rows, append([]string(nil), r...))
		return nil
	})
	require.NoError(t, err)
	return rows
}

// partition writes the links and statistics chunks of one partition.
func partition(t *testing.T, l layout.Layout, idx int, links ...[]string) scatter.Result {
	t.Helper()
	chunk := func(name string) string { return l.ChunkPath(layout.DatasetWikipedia, name, idx) }
	writeChunk(t, chunk(layout.TableLinks), linksHeader, links...)

	counts, degrees := mapreduce.Map(linkEdges(t, links))

	atc, err := table.Create(chunk(layout.TableAnchorTarget), mapreduce.AnchorTargetHeader)
	require.NoError(t, err)
	require.NoError(t, mapreduce.WriteAnchorCounts(atc, counts))
	require.NoError(t, atc.Close())

	ioc, err := table.Create(chunk(layout.TableInOutCounts), mapreduce.InOutHeader)
	require.NoError(t, err)
	require.NoError(t, mapreduce.WriteDegrees(ioc, degrees))
	require.NoError(t, ioc.Close())

	return scatter.Result{Index: idx, Manifest: scatter.Manifest{
		Partition: idx,
		Records:   len(links),
		Outputs: map[string]string{
			layout.TableLinks:        chunk(layout.TableLinks),
			layout.TableAnchorTarget: chunk(layout.TableAnchorTarget),
			layout.TableInOutCounts:  chunk(layout.TableInOutCounts),
		},
	}}
}

func linkEdges(t *testing.T, rows [][]string) []models.LinkEdge {
	t.Helper()
	var out []models.LinkEdge
	for _, r := range rows {
		row := table.Row(r)
		src, err := row.Int(0)
		require.NoError(t, err)
		dst, err := row.Int(5)
		require.NoError(t, err)
		out = append(out, models.LinkEdge{SourcePageID: src, AnchorText: r[3], TargetPageID: dst})
	}
	return out
}

var wikipediaTables = []string{layout.TableLinks, layout.TableAnchorTarget, layout.TableInOutCounts}

func TestGatherMergesPartitionsInOrder(t *testing.T) {
	l := testLayout(t)
	// Results arrive out of order; merged rows follow partition order.
	results := []scatter.Result{
		partition(t, l, 1, []string{"3", "0", "0", "A", "8", "1"}),
		partition(t, l, 0,
			[]string{"1", "0", "0", "B", "9", "3"},
			[]string{"1", "0", "0", "see", "15", "3"},
		),
	}

	rep, err := Gather(context.Background(), discardLogger(), results, Options{
		Layout: l, Dataset: layout.DatasetWikipedia, Tables: wikipediaTables, Workers: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, rep.Partitions)
	assert.Equal(t, 2, rep.Successful)
	assert.Empty(t, rep.Missing)

	links := l.MergedPath(layout.DatasetWikipedia, layout.TableLinks)
	assert.Equal(t, [][]string{
		{"1", "0", "0", "B", "9", "3"},
		{"1", "0", "0", "see", "15", "3"},
		{"3", "0", "0", "A", "8", "1"},
	}, readAll(t, links))

	assert.Equal(t, [][]string{{"3", "2", "1"}, {"1", "1", "2"}},
		readAll(t, l.MergedPath(layout.DatasetWikipedia, layout.TableInOutCounts)))
	assert.Equal(t, [][]string{{"A", "1", "1"}, {"B", "3", "1"}, {"see", "3", "1"}},
		readAll(t, l.MergedPath(layout.DatasetWikipedia, layout.TableAnchorTarget)))

	assert.Equal(t, [][]string{{"1", "3"}, {"1", "3"}, {"3", "1"}},
		readAll(t, l.MergedPath(layout.DatasetWikipedia, layout.TableLinksEdges)))
	assert.Equal(t, [][]string{{"1", "0", "0", "3"}, {"1", "0", "0", "3"}, {"3", "0", "0", "1"}},
		readAll(t, l.MergedPath(layout.DatasetWikipedia, layout.TableLinksEdgesPlus)))

	stat, ok := rep.Table(layout.TableLinks)
	require.True(t, ok)
	assert.EqualValues(t, 3, stat.Rows)
	assert.Equal(t, 2, stat.Chunks)
	assert.Positive(t, stat.Bytes)

	edges, ok := rep.Table(layout.TableLinksEdges)
	require.True(t, ok)
	assert.EqualValues(t, 3, edges.Rows)

	assert.Equal(t, []string{"A->1:1", "B->3:1", "see->3:1"}, rep.TopAnchors)
}

func TestGatherReportsFailedPartitions(t *testing.T) {
	l := testLayout(t)
	ok := partition(t, l, 0, []string{"1", "0", "0", "B", "9", "3"})
	incomplete := partition(t, l, 2, []string{"3", "0", "0", "A", "8", "1"})
	delete(incomplete.Manifest.Outputs, layout.TableInOutCounts)
	failed := scatter.Result{Index: 1, Error: errors.New("boom"), ErrorType: scatter.ErrorTypeProcess}

	rep, err := Gather(context.Background(), discardLogger(), []scatter.Result{ok, failed, incomplete}, Options{
		Layout: l, Dataset: layout.DatasetWikipedia, Tables: wikipediaTables,
	})
	require.NoError(t, err)

	assert.Equal(t, []int{1}, rep.Failed)
	assert.Equal(t, 2, rep.Successful)
	assert.Equal(t, []Missing{
		{Partition: 1, Reason: scatter.ErrorTypeProcess},
		{Partition: 2, Table: layout.TableInOutCounts, Reason: "not in manifest"},
	}, rep.Missing)

	assert.Len(t, readAll(t, l.MergedPath(layout.DatasetWikipedia, layout.TableLinks)), 2)
	assert.Equal(t, [][]string{{"3", "1", "0"}, {"1", "0", "1"}},
		readAll(t, l.MergedPath(layout.DatasetWikipedia, layout.TableInOutCounts)))
}

func TestGatherJSONLConcatenation(t *testing.T) {
	l := testLayout(t)
	var results []scatter.Result
	for i, body := range []string{"{\"id\":\"Q1\"}\n{\"id\":\"Q2\"}\n", "{\"id\":\"Q3\"}\n"} {
		path := l.ChunkPath(layout.DatasetWikidata, layout.TableArticleJSONL, i)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0750))
		require.NoError(t, os.WriteFile(path, []byte(body), 0644))
		results = append(results, scatter.Result{Index: i, Manifest: scatter.Manifest{
			Partition: i,
			Outputs:   map[string]string{layout.TableArticleJSONL: path},
		}})
	}

	rep, err := Gather(context.Background(), discardLogger(), results, Options{
		Layout: l, Dataset: layout.DatasetWikidata, Tables: []string{layout.TableArticleJSONL},
	})
	require.NoError(t, err)

	data, err := os.ReadFile(l.MergedPath(layout.DatasetWikidata, layout.TableArticleJSONL))
	require.NoError(t, err)
	assert.Equal(t, "{\"id\":\"Q1\"}\n{\"id\":\"Q2\"}\n{\"id\":\"Q3\"}\n", string(data))

	stat, ok := rep.Table(layout.TableArticleJSONL)
	require.True(t, ok)
	assert.EqualValues(t, 3, stat.Rows)
	_, ok = rep.Table(layout.TableLinksEdges)
	assert.False(t, ok, "wikidata gather must not project links")
}

func TestGatherFromManifests(t *testing.T) {
	l := testLayout(t)
	r := partition(t, l, 4, []string{"1", "0", "0", "B", "9", "3"})

	results := FromManifests([]scatter.Manifest{r.Manifest})
	require.Len(t, results, 1)
	assert.Equal(t, 4, results[0].Index)

	rep, err := Gather(context.Background(), discardLogger(), results, Options{
		Layout: l, Dataset: layout.DatasetWikipedia, Tables: wikipediaTables,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Successful)
}

func TestGatherCanceled(t *testing.T) {
	l := testLayout(t)
	r := partition(t, l, 0, []string{"1", "0", "0", "B", "9", "3"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Gather(ctx, discardLogger(), []scatter.Result{r}, Options{
		Layout: l, Dataset: layout.DatasetWikipedia, Tables: wikipediaTables,
	})
	require.ErrorIs(t, err, context.Canceled)
	_, statErr := os.Stat(l.MergedPath(layout.DatasetWikipedia, layout.TableLinks))
	assert.True(t, os.IsNotExist(statErr))
}
