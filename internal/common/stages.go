package common

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dtnitsch/wikigraph/pkg/db"
	"github.com/dtnitsch/wikigraph/pkg/gather"
	"github.com/dtnitsch/wikigraph/pkg/manifest"
	"github.com/dtnitsch/wikigraph/pkg/scatter"
)

// Scatter runs process over tasks and records every result in the ledger.
// Some failed partitions give an ErrPartial error, all failed a plain one;
// the results are returned either way.
func (e *Env) Scatter(ctx context.Context, stage, dataset string, tasks []scatter.Task, process scatter.ProcessFunc) ([]scatter.Result, error) {
	var runID int64
	if e.Ledger != nil {
		var err error
		runID, err = e.Ledger.StartRun(stage, dataset, e.DumpDate(dataset), e.ConfigHash, len(tasks))
		if err != nil {
			return nil, err
		}
	}

	results, runErr := scatter.Run(ctx, e.Logger, tasks, scatter.Options{
		Workers:        e.Config.WorkerCount,
		Progress:       e.Config.Progress,
		ProgressOutput: os.Stderr,
		Name:           stage,
	}, process)

	failed := 0
	for _, r := range results {
		if r.Error != nil {
			failed++
		}
	}

	if e.Ledger != nil {
		if err := e.Ledger.RecordResults(runID, results); err != nil {
			e.Logger.Warn("Failed to record partition results", "stage", stage, "error", err)
		}
		if err := e.Ledger.FinishRun(runID, len(tasks), failed); err != nil {
			e.Logger.Warn("Failed to finish ledger run", "stage", stage, "error", err)
		}
	}

	return results, outcome(failed, len(tasks), runErr)
}

func outcome(failed, total int, err error) error {
	switch {
	case failed == 0:
		return nil
	case failed >= total:
		return fmt.Errorf("all %d partitions failed: %w", total, err)
	default:
		return fmt.Errorf("%w: %d of %d partitions failed", ErrPartial, failed, total)
	}
}

// Gather merges the results of scatterStage into the corpus-wide tables and
// writes the run summary. With nil results, the latest recorded run of
// scatterStage is loaded from the ledger.
func (e *Env) Gather(ctx context.Context, scatterStage, stage, dataset string, results []scatter.Result, tables []string) (*gather.Report, error) {
	date := e.DumpDate(dataset)
	if results == nil {
		if e.Ledger == nil {
			return nil, fmt.Errorf("%s needs the ledger to find the %s results", stage, scatterStage)
		}
		run, err := e.Ledger.LatestRun(scatterStage, dataset, date)
		if errors.Is(err, db.ErrNoRun) {
			return nil, fmt.Errorf("no finished %s run for %s; run %s first: %w", scatterStage, date, scatterStage, err)
		}
		if err != nil {
			return nil, err
		}
		if results, err = e.Ledger.LoadResults(run.RunID); err != nil {
			return nil, err
		}
		e.Logger.Info("Loaded scatter results from ledger", "run_id", run.RunID, "partitions", len(results))
	}

	var runID int64
	if e.Ledger != nil {
		var err error
		runID, err = e.Ledger.StartRun(stage, dataset, date, e.ConfigHash, len(results))
		if err != nil {
			return nil, err
		}
	}

	rep, err := gather.Gather(ctx, e.Logger, results, gather.Options{
		Layout:  e.Layout,
		Dataset: dataset,
		Tables:  tables,
		Workers: e.Config.WorkerCount,
	})
	if err != nil {
		if e.Ledger != nil {
			_ = e.Ledger.FinishRun(runID, len(results), len(results))
		}
		return nil, err
	}

	path, err := manifest.GenerateSummary(e.Layout.ManifestPath(dataset), stage, date, rep, e.Storage)
	if err != nil {
		return rep, err
	}
	e.Logger.Info("Summary written", "path", path)

	if e.Ledger != nil {
		if err := e.Ledger.FinishRun(runID, rep.Partitions, len(rep.Failed)); err != nil {
			e.Logger.Warn("Failed to finish ledger run", "stage", stage, "error", err)
		}
	}

	if len(rep.Missing) > 0 {
		return rep, fmt.Errorf("%w: %d partition outputs missing from the merge", ErrPartial, len(rep.Missing))
	}
	return rep, nil
}
