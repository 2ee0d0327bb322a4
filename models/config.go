// Package models defines data structures for configuration and the derived tables.
package models

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultWorkerCount = 4
	DefaultChunkSize   = 500_000
	DefaultWiki        = "enwiki"

	// DefaultMaxRecords is large enough to never trigger on a real dump.
	DefaultMaxRecords = 1 << 62
)

// DefaultRootIDs are the numeric item ids whose subclass trees tag articles.
var DefaultRootIDs = []int64{
	17442446, // Wikimedia internal item
	14795564, // point in time with respect to recurrent timeframe
	18340514, // events in a specific year or time period
	5,        // human
	2221906,  // geographic location
	43229,    // organization
	4830453,  // business
}

// DefaultSkipIDs are instance-of targets whose entities go to the skipped table.
var DefaultSkipIDs = []int64{
	13442814, // scholarly article
}

// PipelineConfig holds runtime configuration for every stage.
// Values come from an optional YAML file and are overridden by CLI flags.
type PipelineConfig struct {
	DataPath      string  `yaml:"data_path"`
	Wiki          string  `yaml:"wiki"`
	WikipediaDate string  `yaml:"wikipedia_date"`
	WikidataDate  string  `yaml:"wikidata_date"`
	WorkerCount   int     `yaml:"workers"`
	MaxRecords    int64   `yaml:"max_records"`
	ChunkSize     int     `yaml:"chunk_size"`
	RootIDs       []int64 `yaml:"root_ids"`
	SkipIDs       []int64 `yaml:"skip_ids"`
	Statements    bool    `yaml:"include_item_statements"`
	LedgerPath    string  `yaml:"ledger"`
	Progress      bool    `yaml:"progress"`
}

// DefaultConfig returns a config populated with the pipeline defaults.
func DefaultConfig() *PipelineConfig {
	return &PipelineConfig{
		DataPath:    ".",
		Wiki:        DefaultWiki,
		WorkerCount: DefaultWorkerCount,
		MaxRecords:  DefaultMaxRecords,
		ChunkSize:   DefaultChunkSize,
		RootIDs:     append([]int64(nil), DefaultRootIDs...),
		SkipIDs:     append([]int64(nil), DefaultSkipIDs...),
	}
}

// LoadConfig reads a YAML config on top of the defaults.
// A missing file is not an error; the defaults are returned.
func LoadConfig(path string) (*PipelineConfig, error) {
	config := DefaultConfig()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return config, nil
}

// Validate checks the values every stage relies on.
func (c *PipelineConfig) Validate() error {
	if c.WorkerCount < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.WorkerCount)
	}
	if c.ChunkSize < 1 {
		return fmt.Errorf("chunk size must be at least 1, got %d", c.ChunkSize)
	}
	if c.MaxRecords < 1 {
		return fmt.Errorf("max records must be at least 1, got %d", c.MaxRecords)
	}
	if c.Wiki == "" {
		return errors.New("wiki must not be empty")
	}
	return nil
}
