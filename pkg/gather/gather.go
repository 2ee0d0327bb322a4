// Package gather merges the partition-local tables written by a scatter stage
// into one corpus-wide file per table.
package gather

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/dtnitsch/wikigraph/pkg/layout"
	"github.com/dtnitsch/wikigraph/pkg/mapreduce"
	"github.com/dtnitsch/wikigraph/pkg/scatter"
	"github.com/dtnitsch/wikigraph/pkg/storage"
	"github.com/dtnitsch/wikigraph/pkg/table"
)

// TopAnchorCount is how many anchor/target pairs a Report keeps.
const TopAnchorCount = 25

// Options configures Gather.
type Options struct {
	Layout  layout.Layout
	Dataset string
	// Tables are the table names every successful partition should have produced.
	Tables  []string
	Workers int
}

// Missing records rows absent from the merged output. An empty Table means
// the whole partition failed.
type Missing struct {
	Partition int    `yaml:"partition"`
	Table     string `yaml:"table,omitempty"`
	Reason    string `yaml:"reason"`
}

// TableStat describes one merged file.
type TableStat struct {
	Name   string `yaml:"name"`
	Path   string `yaml:"path"`
	Rows   int64  `yaml:"rows"`
	Bytes  int64  `yaml:"bytes"`
	Chunks int    `yaml:"chunks"`
}

// Report summarizes one gather.
type Report struct {
	Dataset    string
	Partitions int
	Successful int
	Failed     []int
	Missing    []Missing
	Tables     []TableStat
	TopAnchors []string
}

// Gather merges the outputs listed in results. Failed partitions and tables a
// manifest lacks are logged and listed in Report.Missing; they never fail the
// gather. Any error reading or writing a chunk does.
func Gather(ctx context.Context, logger *slog.Logger, results []scatter.Result, opts Options) (*Report, error) {
	sorted := append([]scatter.Result(nil), results...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	rep := &Report{Dataset: opts.Dataset, Partitions: len(sorted)}
	chunks := make(map[string][]string, len(opts.Tables))
	for _, r := range sorted {
		if r.Error != nil {
			logger.Warn("Partition failed, its rows are missing from every merged table",
				"partition", r.Index, "error_type", r.ErrorType, "error", r.Error)
			rep.Failed = append(rep.Failed, r.Index)
			rep.Missing = append(rep.Missing, Missing{Partition: r.Index, Reason: r.ErrorType})
			continue
		}
		rep.Successful++
		for _, name := range opts.Tables {
			path, ok := r.Manifest.Outputs[name]
			if !ok {
				logger.Warn("Partition manifest lacks table", "partition", r.Index, "table", name)
				rep.Missing = append(rep.Missing, Missing{Partition: r.Index, Table: name, Reason: "not in manifest"})
				continue
			}
			chunks[name] = append(chunks[name], path)
		}
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var mu sync.Mutex
	for _, name := range opts.Tables {
		paths := chunks[name]
		if len(paths) == 0 {
			logger.Warn("No partition produced table, skipping merge", "table", name)
			continue
		}
		g.Go(func() error {
			m := &merger{logger: logger, dst: opts.Layout.MergedPath(opts.Dataset, name), paths: paths}
			stat, top, err := m.merge(gctx, name)
			if err != nil {
				return fmt.Errorf("failed to gather %s: %w", name, err)
			}
			mu.Lock()
			rep.Tables = append(rep.Tables, stat)
			if top != nil {
				rep.TopAnchors = top
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if links, ok := rep.Table(layout.TableLinks); ok && opts.Dataset == layout.DatasetWikipedia {
		stats, err := projectLinks(ctx, logger, opts.Layout, links.Path)
		if err != nil {
			return nil, err
		}
		rep.Tables = append(rep.Tables, stats...)
	}

	sort.Slice(rep.Tables, func(i, j int) bool { return rep.Tables[i].Name < rep.Tables[j].Name })
	for i := range rep.Tables {
		if fs, err := (&storage.Storage{}).GetFileStats(rep.Tables[i].Path); err == nil {
			rep.Tables[i].Bytes = fs.SizeBytes
		}
		logger.Info("Merged table", "table", rep.Tables[i].Name,
			"rows", humanize.Comma(rep.Tables[i].Rows),
			"size", humanize.Bytes(uint64(rep.Tables[i].Bytes)))
	}
	logger.Info("Gather complete", "dataset", opts.Dataset,
		"partitions", rep.Partitions, "failed", len(rep.Failed), "missing", len(rep.Missing))
	return rep, nil
}

// Table returns the stat of the named merged table.
func (r *Report) Table(name string) (TableStat, bool) {
	for _, t := range r.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return TableStat{}, false
}

// FromManifests wraps manifests loaded from a ledger as successful results.
func FromManifests(manifests []scatter.Manifest) []scatter.Result {
	out := make([]scatter.Result, len(manifests))
	for i, m := range manifests {
		out[i] = scatter.Result{Index: m.Partition, Input: m.Input, Manifest: m}
	}
	return out
}

type merger struct {
	logger *slog.Logger
	dst    string
	paths  []string
}

func (m *merger) merge(ctx context.Context, name string) (TableStat, []string, error) {
	stat := TableStat{Name: name, Path: m.dst, Chunks: len(m.paths)}
	var err error
	var top []string
	// Statistics are summed by key, everything else is concatenated.
	switch {
	case name == layout.TableAnchorTarget:
		stat.Rows, top, err = m.anchorCounts(ctx)
	case name == layout.TableInOutCounts:
		stat.Rows, err = m.degrees(ctx)
	case layout.JSONLTables[name]:
		stat.Rows, err = m.concatLines(ctx)
	default:
		stat.Rows, err = m.concatCSV(ctx)
	}
	return stat, top, err
}

func (m *merger) anchorCounts(ctx context.Context) (int64, []string, error) {
	parts := make([]mapreduce.AnchorCounts, 0, len(m.paths))
	for _, p := range m.paths {
		if err := ctx.Err(); err != nil {
			return 0, nil, err
		}
		c, err := mapreduce.ReadAnchorCounts(p, m.logger)
		if err != nil {
			return 0, nil, err
		}
		parts = append(parts, c)
	}
	total := mapreduce.ReduceAnchorCounts(parts)
	rows, err := writeTable(m.dst, mapreduce.AnchorTargetHeader, func(w *table.Writer) error {
		return mapreduce.WriteAnchorCounts(w, total)
	})
	if err != nil {
		return 0, nil, err
	}
	return rows, mapreduce.TopAnchors(total, TopAnchorCount), nil
}

func (m *merger) degrees(ctx context.Context) (int64, error) {
	parts := make([]mapreduce.Degrees, 0, len(m.paths))
	for _, p := range m.paths {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		d, err := mapreduce.ReadDegrees(p, m.logger)
		if err != nil {
			return 0, err
		}
		parts = append(parts, d)
	}
	total := mapreduce.ReduceDegrees(parts)
	return writeTable(m.dst, mapreduce.InOutHeader, func(w *table.Writer) error {
		return mapreduce.WriteDegrees(w, total)
	})
}
