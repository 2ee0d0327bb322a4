package db

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/wikigraph/internal/common"
	dbpkg "github.com/dtnitsch/wikigraph/pkg/db"
)

// RunsAction lists recent ledger runs, or the partitions of one run when a
// run id is given.
func RunsAction(c *cli.Context) error {
	env, err := common.Setup(c)
	if err != nil {
		return err
	}
	defer env.Close()

	if env.Ledger == nil {
		return errors.New("the ledger is disabled")
	}
	if c.NArg() > 0 {
		runID, err := ParseRunID(c.Args().First())
		if err != nil {
			return err
		}
		return printRun(env.Ledger, runID)
	}
	return printRuns(env.Ledger, c.Int("limit"))
}

func printRuns(database *dbpkg.DB, limit int) error {
	runs, err := database.ListRuns(limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No runs found")
		return nil
	}

	fmt.Printf("%-6s %-20s %-18s %-10s %-10s %-8s %-6s %-6s\n",
		"ID", "Started", "Stage", "Dataset", "Dump", "Status", "Parts", "Failed")
	fmt.Println(strings.Repeat("-", 92))

	for _, r := range runs {
		fmt.Printf("%-6d %-20s %-18s %-10s %-10s %-8s %-6d %-6d\n",
			r.RunID,
			r.StartedAt.Format("2006-01-02 15:04:05"),
			r.Stage,
			r.Dataset,
			r.DumpDate,
			r.Status,
			r.Partitions,
			r.Failed,
		)
	}

	fmt.Printf("\nTotal: %d runs\n", len(runs))
	fmt.Printf("\nTip: Use 'wikigraph runs <id>' to see partition results\n")
	return nil
}

func printRun(database *dbpkg.DB, runID int64) error {
	run, err := database.GetRunByID(runID)
	if err != nil {
		return err
	}
	results, err := database.LoadResults(runID)
	if err != nil {
		return err
	}

	fmt.Printf("Run %d\n", run.RunID)
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Stage:       %s\n", run.Stage)
	fmt.Printf("Dataset:     %s %s\n", run.Dataset, run.DumpDate)
	fmt.Printf("Started:     %s\n", run.StartedAt.Format("2006-01-02 15:04:05"))
	if run.FinishedAt.Valid {
		fmt.Printf("Finished:    %s (%s)\n", run.FinishedAt.Time.Format("2006-01-02 15:04:05"),
			run.FinishedAt.Time.Sub(run.StartedAt).Round(time.Millisecond))
	}
	fmt.Printf("Status:      %s (%d partitions, %d failed)\n", run.Status, run.Partitions, run.Failed)
	if run.ConfigHash != "" {
		fmt.Printf("Config:      %s\n", run.ConfigHash)
	}

	if len(results) == 0 {
		return nil
	}
	fmt.Printf("\nPartitions (%d):\n", len(results))
	fmt.Println(strings.Repeat("-", 60))
	for _, r := range results {
		if r.Error != nil {
			fmt.Printf("%4d. [failed] %s\n", r.Index, r.Input)
			fmt.Printf("      Error: [%s] %s\n", r.ErrorType, r.Error)
			continue
		}
		fmt.Printf("%4d. [success] %s\n", r.Index, r.Input)
		fmt.Printf("      Records: %s | Tables: %d | Took: %s\n",
			humanize.Comma(int64(r.Manifest.Records)), len(r.Manifest.Outputs), r.Duration)
	}
	return nil
}
