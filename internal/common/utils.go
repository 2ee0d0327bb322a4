package common

import (
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/dtnitsch/wikigraph/models"
	"github.com/dtnitsch/wikigraph/pkg/db"
)

// ContentHash computes SHA256 hash of content and returns hex string.
func ContentHash(data []byte) string {
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash)
}

// ConfigHash identifies the effective configuration of a run in the ledger.
func ConfigHash(cfg *models.PipelineConfig) string {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return ""
	}
	return ContentHash(data)[:16]
}

// NewLogger builds the process logger from the global flags. JSON is the
// default; "text" renders through charmbracelet/log for terminals.
func NewLogger(c *cli.Context) *slog.Logger {
	return newLogger(os.Stderr, c.String("log-format"), c.Bool("quiet"), c.Bool("debug"))
}

func newLogger(w io.Writer, format string, quiet, debug bool) *slog.Logger {
	logLevel := slog.LevelInfo
	switch {
	case quiet:
		logLevel = slog.LevelError
	case debug:
		logLevel = slog.LevelDebug
	}

	if format == "text" {
		return slog.New(log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			Level:           log.Level(logLevel),
		}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logLevel}))
}

// LoadEnv reads a .env file from the working directory if there is one.
func LoadEnv(logger *slog.Logger) {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file loaded", "error", err)
	}
}

// LoadConfig layers the YAML config file under the command line. Flags also
// pick up their WIKIGRAPH_* environment variables, so an explicitly set
// variable overrides the file too.
func LoadConfig(c *cli.Context) (*models.PipelineConfig, error) {
	cfg, err := models.LoadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}

	if c.IsSet("data-path") {
		cfg.DataPath = c.String("data-path")
	}
	if c.IsSet("wiki") {
		cfg.Wiki = c.String("wiki")
	}
	if c.IsSet("wikipedia-date") {
		cfg.WikipediaDate = c.String("wikipedia-date")
	}
	if c.IsSet("wikidata-date") {
		cfg.WikidataDate = c.String("wikidata-date")
	}
	if c.IsSet("workers") {
		cfg.WorkerCount = c.Int("workers")
	}
	if c.IsSet("max-records") {
		cfg.MaxRecords = c.Int64("max-records")
	}
	if c.IsSet("chunk-size") {
		cfg.ChunkSize = c.Int("chunk-size")
	}
	if c.IsSet("roots") {
		cfg.RootIDs = c.Int64Slice("roots")
	}
	if c.IsSet("skip-ids") {
		cfg.SkipIDs = c.Int64Slice("skip-ids")
	}
	if c.IsSet("statements") {
		cfg.Statements = c.Bool("statements")
	}
	if c.IsSet("progress") {
		cfg.Progress = c.Bool("progress")
	}

	// An explicitly empty --ledger disables the ledger; unset means the default file.
	if c.IsSet("ledger") {
		cfg.LedgerPath = c.String("ledger")
	} else if cfg.LedgerPath == "" {
		cfg.LedgerPath = filepath.Join(cfg.DataPath, db.DefaultDBName)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
