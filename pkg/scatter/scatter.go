// Package scatter runs one extraction task per partition on a bounded worker
// pool and collects each task's output manifest.
package scatter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-multierror"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/dtnitsch/wikigraph/pkg/storage"
)

// Task is one partition to process.
type Task struct {
	Index int
	Input string
}

// Manifest lists the files a task produced, keyed by table name.
type Manifest struct {
	Partition int               `yaml:"partition"`
	Input     string            `yaml:"input"`
	Outputs   map[string]string `yaml:"outputs"`
	Records   int               `yaml:"records"`
}

// Result holds the outcome of one task.
type Result struct {
	Index     int
	Input     string
	Manifest  Manifest
	Error     error
	ErrorType string
	Duration  time.Duration
}

// Error types recorded on failed results.
const (
	ErrorTypeMissingInput = "missing_input"
	ErrorTypeCanceled     = "canceled"
	ErrorTypeProcess      = "process_error"
)

// ProcessFunc extracts one partition. It must only write to paths derived
// from the task's index.
type ProcessFunc func(ctx context.Context, task Task) (Manifest, error)

// Options configures Run.
type Options struct {
	Workers int
	// Progress draws a progress bar to ProgressOutput.
	Progress       bool
	ProgressOutput io.Writer
	Name           string
}

// Tasks numbers inputs in the order given.
func Tasks(inputs []string) []Task {
	tasks := make([]Task, len(inputs))
	for i, in := range inputs {
		tasks[i] = Task{Index: i, Input: in}
	}
	return tasks
}

// Run processes every task and returns all results sorted by task index. It
// returns once every worker has stopped. The error combines every task failure;
// results are complete either way. When ctx is canceled, tasks not yet started
// are reported as canceled.
func Run(ctx context.Context, logger *slog.Logger, tasks []Task, opts Options, process ProcessFunc) ([]Result, error) {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(tasks) && len(tasks) > 0 {
		workers = len(tasks)
	}

	var progress *mpb.Progress
	var bar *mpb.Bar
	if opts.Progress && opts.ProgressOutput != nil && len(tasks) > 0 {
		progress = mpb.New(mpb.WithOutput(opts.ProgressOutput), mpb.WithWidth(60))
		bar = progress.AddBar(int64(len(tasks)),
			mpb.PrependDecorators(decor.Name(opts.Name), decor.CountersNoUnit(" %d / %d")),
			mpb.AppendDecorators(decor.Percentage()),
		)
	}

	logger.Info("Starting scatter phase", "stage", opts.Name, "partitions", len(tasks), "workers", workers)

	var wg sync.WaitGroup
	jobs := make(chan Task, len(tasks))
	results := make(chan Result, len(tasks))

	for w := 1; w <= workers; w++ {
		wg.Add(1)
		go worker(ctx, w, logger, process, &wg, jobs, results)
	}

	for _, t := range tasks {
		jobs <- t
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	all := make([]Result, 0, len(tasks))
	var errs *multierror.Error
	failed := 0
	records := 0
	for r := range results {
		if bar != nil {
			bar.Increment()
		}
		if r.Error != nil {
			failed++
			errs = multierror.Append(errs, fmt.Errorf("partition %d: %w", r.Index, r.Error))
		} else {
			records += r.Manifest.Records
		}
		all = append(all, r)
	}
	if progress != nil {
		progress.Wait()
	}

	sort.Slice(all, func(i, j int) bool { return all[i].Index < all[j].Index })

	logger.Info("All scatter workers finished", "stage", opts.Name,
		"succeeded", len(all)-failed, "failed", failed, "records", humanize.Comma(int64(records)))
	return all, errs.ErrorOrNil()
}

func worker(ctx context.Context, id int, logger *slog.Logger, process ProcessFunc, wg *sync.WaitGroup, jobs <-chan Task, results chan<- Result) {
	defer wg.Done()
	for task := range jobs {
		result := Result{Index: task.Index, Input: task.Input}

		if err := ctx.Err(); err != nil {
			result.Error = err
			result.ErrorType = ErrorTypeCanceled
			results <- result
			continue
		}

		logger.Info("Worker started partition", "worker_id", id, "partition", task.Index, "input", task.Input)
		start := time.Now()
		manifest, err := process(ctx, task)
		result.Duration = time.Since(start)
		if err != nil {
			logger.Error("Error processing partition", "worker_id", id, "partition", task.Index, "error", err)
			result.Error = err
			result.ErrorType = classify(err)
			results <- result
			continue
		}

		manifest.Partition = task.Index
		manifest.Input = task.Input
		result.Manifest = manifest
		results <- result
		logger.Info("Worker finished partition", "worker_id", id, "partition", task.Index,
			"records", manifest.Records, "duration", result.Duration.Round(time.Millisecond))
	}
}

func classify(err error) string {
	switch {
	case errors.Is(err, storage.ErrMissingInput):
		return ErrorTypeMissingInput
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrorTypeCanceled
	}
	return ErrorTypeProcess
}

// Manifests returns the manifests of successful results, in index order.
func Manifests(results []Result) []Manifest {
	out := make([]Manifest, 0, len(results))
	for _, r := range results {
		if r.Error == nil {
			out = append(out, r.Manifest)
		}
	}
	return out
}
