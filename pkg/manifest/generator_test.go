package manifest

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtnitsch/wikigraph/pkg/gather"
	"github.com/dtnitsch/wikigraph/pkg/storage"
)

func sampleReport() *gather.Report {
	return &gather.Report{
		Dataset:    "wikipedia",
		Partitions: 3,
		Successful: 2,
		Failed:     []int{1},
		Missing:    []gather.Missing{{Partition: 1, Reason: "process_error"}},
		Tables: []gather.TableStat{
			{Name: "links", Path: "links/links.csv", Rows: 3, Bytes: 2048, Chunks: 2},
		},
		TopAnchors: []string{"A->1:1"},
	}
}

func TestFromReport(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	m := FromReport("gather-wikitext", "20240101", sampleReport(), now)

	assert.Equal(t, "2024-01-02T03:04:05Z", m.GeneratedAt)
	assert.Equal(t, PartitionCount{Total: 3, Successful: 2, Failed: 1}, m.Partitions)
	require.Len(t, m.Tables, 1)
	assert.Equal(t, "2.0 kB", m.Tables[0].Size)
	assert.Equal(t, []MissingEntry{{Partition: 1, Reason: "process_error"}}, m.Missing)
	assert.Equal(t, []string{"A->1:1"}, m.TopAnchors)
}

func TestGenerateSummaryRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wikipedia-derived-20240101", "manifest.yaml")
	got, err := GenerateSummary(path, "gather-wikitext", "20240101", sampleReport(), &storage.Storage{})
	require.NoError(t, err)
	assert.Equal(t, path, got)

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gather-wikitext", m.Stage)
	assert.Equal(t, "wikipedia", m.Dataset)
	assert.EqualValues(t, 3, m.Tables[0].Rows)
	assert.Equal(t, 1, m.Partitions.Failed)
}
