package common

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/wikigraph/models"
	"github.com/dtnitsch/wikigraph/pkg/db"
	"github.com/dtnitsch/wikigraph/pkg/layout"
	"github.com/dtnitsch/wikigraph/pkg/storage"
)

// Stage names, as recorded in the ledger.
const (
	StageRedirects       = "redirects"
	StageTitles          = "titles"
	StageSplit           = "split"
	StageScatterWikidata = "scatter-wikidata"
	StageGatherWikidata  = "gather-wikidata"
	StageTag             = "tag"
	StageScatterWikitext = "scatter-wikitext"
	StageGatherWikitext  = "gather-wikitext"
	StageArticle         = "article"
)

// ErrPartial marks a stage that finished with some partitions failed.
var ErrPartial = errors.New("partial failure")

// Env is everything a stage needs, built once per command.
type Env struct {
	Config     *models.PipelineConfig
	Layout     layout.Layout
	Logger     *slog.Logger
	Storage    *storage.Storage
	ConfigHash string
	// Ledger is nil when the ledger is disabled.
	Ledger *db.DB
}

// Setup reads the environment, configuration and ledger for a command.
func Setup(c *cli.Context) (*Env, error) {
	logger := NewLogger(c)
	LoadEnv(logger)

	cfg, err := LoadConfig(c)
	if err != nil {
		return nil, err
	}

	env := &Env{
		Config: cfg,
		Layout: layout.Layout{
			DataPath:      cfg.DataPath,
			Wiki:          cfg.Wiki,
			WikipediaDate: cfg.WikipediaDate,
			WikidataDate:  cfg.WikidataDate,
		},
		Logger:     logger,
		Storage:    &storage.Storage{},
		ConfigHash: ConfigHash(cfg),
	}

	if cfg.LedgerPath != "" {
		env.Ledger, err = db.Open(cfg.LedgerPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open ledger: %w", err)
		}
	}
	return env, nil
}

// Close releases the ledger.
func (e *Env) Close() error {
	if e.Ledger == nil {
		return nil
	}
	return e.Ledger.Close()
}

// DumpDate returns the configured date of dataset.
func (e *Env) DumpDate(dataset string) string {
	if dataset == layout.DatasetWikidata {
		return e.Config.WikidataDate
	}
	return e.Config.WikipediaDate
}

// RequireDates fails unless every dataset has a dump date configured.
func (e *Env) RequireDates(datasets ...string) error {
	for _, d := range datasets {
		if e.DumpDate(d) == "" {
			return fmt.Errorf("%s dump date is required (--%s-date)", d, d)
		}
	}
	return nil
}

// Stage runs a single-step stage and records it in the ledger as one
// partition.
func (e *Env) Stage(stage, dataset string, fn func() error) error {
	var runID int64
	if e.Ledger != nil {
		var err error
		runID, err = e.Ledger.StartRun(stage, dataset, e.DumpDate(dataset), e.ConfigHash, 1)
		if err != nil {
			return err
		}
	}

	err := fn()

	if e.Ledger != nil {
		failed := 0
		if err != nil {
			failed = 1
		}
		if ferr := e.Ledger.FinishRun(runID, 1, failed); ferr != nil {
			e.Logger.Warn("Failed to finish ledger run", "stage", stage, "error", ferr)
		}
	}
	return err
}

// Exit ends a command. A partial failure exits 1, any other failure 2.
func Exit(logger *slog.Logger, stage string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrPartial) {
		logger.Warn("Stage finished with failures", "stage", stage, "error", err)
		os.Exit(1)
	}
	logger.Error("Stage failed", "stage", stage, "error", err)
	os.Exit(2)
	return nil
}
