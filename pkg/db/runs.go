package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dtnitsch/wikigraph/pkg/scatter"
)

// Run statuses.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// ErrNoRun is returned when no run matches a lookup.
var ErrNoRun = errors.New("no matching run")

// Run is one stage invocation.
type Run struct {
	RunID      int64
	Stage      string
	Dataset    string
	DumpDate   string
	ConfigHash string
	StartedAt  time.Time
	FinishedAt sql.NullTime
	Status     string
	Partitions int
	Failed     int
}

// StartRun records the beginning of a stage and returns its run id.
func (db *DB) StartRun(stage, dataset, dumpDate, configHash string, partitions int) (int64, error) {
	result, err := db.Exec(`
		INSERT INTO runs (stage, dataset, dump_date, config_hash, started_at, status, partitions)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, stage, dataset, dumpDate, configHash, time.Now().UTC(), StatusRunning, partitions)
	if err != nil {
		return 0, fmt.Errorf("failed to create run: %w", err)
	}

	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run ID: %w", err)
	}
	return runID, nil
}

// FinishRun closes a run. The status follows from the failure count: none is
// success, some is partial, all is failed.
func (db *DB) FinishRun(runID int64, partitions, failed int) error {
	status := StatusSuccess
	switch {
	case failed > 0 && failed >= partitions:
		status = StatusFailed
	case failed > 0:
		status = StatusPartial
	}
	_, err := db.Exec(`
		UPDATE runs
		SET finished_at = ?, status = ?, partitions = ?, failed = ?
		WHERE run_id = ?
	`, time.Now().UTC(), status, partitions, failed, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// RecordResults stores every partition result and the outputs of successful
// ones in a single transaction.
func (db *DB) RecordResults(runID int64, results []scatter.Result) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	resultStmt, err := tx.Prepare(`
		INSERT INTO partition_results (run_id, partition_idx, input_path, status, error_type, error_message, records, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare result insert: %w", err)
	}
	defer resultStmt.Close()

	outputStmt, err := tx.Prepare(`
		INSERT INTO partition_outputs (run_id, partition_idx, table_name, file_path)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare output insert: %w", err)
	}
	defer outputStmt.Close()

	for _, r := range results {
		status := "success"
		var errorType, errorMessage interface{}
		if r.Error != nil {
			status = "error"
			errorType = r.ErrorType
			errorMessage = r.Error.Error()
		}
		if _, err := resultStmt.Exec(runID, r.Index, r.Input, status, errorType, errorMessage,
			r.Manifest.Records, r.Duration.Milliseconds()); err != nil {
			return fmt.Errorf("failed to insert result for partition %d: %w", r.Index, err)
		}
		if r.Error != nil {
			continue
		}
		for name, path := range r.Manifest.Outputs {
			if _, err := outputStmt.Exec(runID, r.Index, name, path); err != nil {
				return fmt.Errorf("failed to insert output %s for partition %d: %w", name, r.Index, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit results: %w", err)
	}
	return nil
}

const runColumns = `run_id, stage, dataset, dump_date, COALESCE(config_hash, ''), started_at, finished_at, status, partitions, failed`

func scanRun(row interface{ Scan(...any) error }) (*Run, error) {
	var r Run
	err := row.Scan(&r.RunID, &r.Stage, &r.Dataset, &r.DumpDate, &r.ConfigHash,
		&r.StartedAt, &r.FinishedAt, &r.Status, &r.Partitions, &r.Failed)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetRunByID retrieves a run by its ID
func (db *DB) GetRunByID(runID int64) (*Run, error) {
	r, err := scanRun(db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %d: %w", runID, ErrNoRun)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return r, nil
}

// LatestRun returns the most recent finished run of a stage for one dump.
// Runs that failed outright or never finished are ignored.
func (db *DB) LatestRun(stage, dataset, dumpDate string) (*Run, error) {
	r, err := scanRun(db.QueryRow(`
		SELECT `+runColumns+`
		FROM runs
		WHERE stage = ? AND dataset = ? AND dump_date = ? AND status IN (?, ?)
		ORDER BY run_id DESC
		LIMIT 1
	`, stage, dataset, dumpDate, StatusSuccess, StatusPartial))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s %s %s: %w", stage, dataset, dumpDate, ErrNoRun)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find latest run: %w", err)
	}
	return r, nil
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`SELECT `+runColumns+` FROM runs ORDER BY run_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// LoadResults rebuilds the partition results of a run in partition order.
// Failed partitions come back with a non-nil Error so a gather reports them.
func (db *DB) LoadResults(runID int64) ([]scatter.Result, error) {
	rows, err := db.Query(`
		SELECT partition_idx, input_path, status, COALESCE(error_type, ''), COALESCE(error_message, ''), records, duration_ms
		FROM partition_results
		WHERE run_id = ?
		ORDER BY partition_idx
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load results: %w", err)
	}
	defer rows.Close()

	var results []scatter.Result
	byPartition := make(map[int]int)
	for rows.Next() {
		var r scatter.Result
		var status, errorMessage string
		var durationMS int64
		if err := rows.Scan(&r.Index, &r.Input, &status, &r.ErrorType, &errorMessage, &r.Manifest.Records, &durationMS); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		if status != "success" {
			r.Error = errors.New(errorMessage)
		} else {
			r.Manifest.Partition = r.Index
			r.Manifest.Input = r.Input
			r.Manifest.Outputs = make(map[string]string)
		}
		byPartition[r.Index] = len(results)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	outputs, err := db.Query(`
		SELECT partition_idx, table_name, file_path
		FROM partition_outputs
		WHERE run_id = ?
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load outputs: %w", err)
	}
	defer outputs.Close()

	for outputs.Next() {
		var partition int
		var name, path string
		if err := outputs.Scan(&partition, &name, &path); err != nil {
			return nil, fmt.Errorf("failed to scan output: %w", err)
		}
		if i, ok := byPartition[partition]; ok && results[i].Manifest.Outputs != nil {
			results[i].Manifest.Outputs[name] = path
		}
	}
	return results, outputs.Err()
}
