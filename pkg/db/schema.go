package db

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA foreign_keys = ON;
PRAGMA temp_store = MEMORY;

-- Runs: one row per stage invocation
CREATE TABLE IF NOT EXISTS runs (
    run_id INTEGER PRIMARY KEY AUTOINCREMENT,
    stage TEXT NOT NULL,          -- scatter-wikidata, gather-wikitext, ...
    dataset TEXT NOT NULL,        -- wikipedia or wikidata
    dump_date TEXT NOT NULL,
    config_hash TEXT,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP,
    status TEXT NOT NULL,         -- running, success, partial, failed
    partitions INTEGER NOT NULL DEFAULT 0,
    failed INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_runs_stage ON runs(stage, dataset, dump_date);

-- Partition results: the outcome of every task in a scatter run
CREATE TABLE IF NOT EXISTS partition_results (
    result_id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL,
    partition_idx INTEGER NOT NULL,
    input_path TEXT NOT NULL,
    status TEXT NOT NULL,         -- success or error
    error_type TEXT,
    error_message TEXT,
    records INTEGER NOT NULL DEFAULT 0,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE,
    UNIQUE(run_id, partition_idx)
);

CREATE INDEX IF NOT EXISTS idx_partition_results_run ON partition_results(run_id);

-- Partition outputs: chunk files listed in each partition manifest
CREATE TABLE IF NOT EXISTS partition_outputs (
    output_id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL,
    partition_idx INTEGER NOT NULL,
    table_name TEXT NOT NULL,
    file_path TEXT NOT NULL,
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE,
    UNIQUE(run_id, partition_idx, table_name)
);

CREATE INDEX IF NOT EXISTS idx_partition_outputs_run ON partition_outputs(run_id, partition_idx);
`
