package manifest

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/dtnitsch/wikigraph/pkg/gather"
	"github.com/dtnitsch/wikigraph/pkg/storage"
)

// FromReport converts a gather report into a summary manifest.
func FromReport(stage, dumpDate string, rep *gather.Report, now time.Time) SummaryManifest {
	m := SummaryManifest{
		GeneratedAt: now.Format(time.RFC3339),
		Stage:       stage,
		Dataset:     rep.Dataset,
		DumpDate:    dumpDate,
		Partitions: PartitionCount{
			Total:      rep.Partitions,
			Successful: rep.Successful,
			Failed:     len(rep.Failed),
		},
		TopAnchors: rep.TopAnchors,
	}

	for _, t := range rep.Tables {
		m.Tables = append(m.Tables, TableSummary{
			Name:      t.Name,
			Path:      t.Path,
			Rows:      t.Rows,
			SizeBytes: t.Bytes,
			Size:      humanize.Bytes(uint64(t.Bytes)),
			Chunks:    t.Chunks,
		})
	}
	for _, miss := range rep.Missing {
		m.Missing = append(m.Missing, MissingEntry(miss))
	}
	return m
}

// GenerateSummary writes the summary of rep to path and returns the path.
func GenerateSummary(path, stage, dumpDate string, rep *gather.Report, s *storage.Storage) (string, error) {
	manifest := FromReport(stage, dumpDate, rep, time.Now())

	data, err := yaml.Marshal(manifest)
	if err != nil {
		return "", fmt.Errorf("error marshalling manifest: %w", err)
	}

	if err := s.SaveFile(path, data); err != nil {
		return "", fmt.Errorf("error saving manifest: %w", err)
	}

	return path, nil
}

// Load reads a summary manifest back.
func Load(path string) (SummaryManifest, error) {
	var m SummaryManifest
	rc, err := (&storage.Storage{}).Open(path)
	if err != nil {
		return m, err
	}
	defer rc.Close()
	if err := yaml.NewDecoder(rc).Decode(&m); err != nil {
		return m, fmt.Errorf("error reading manifest %s: %w", path, err)
	}
	return m, nil
}
