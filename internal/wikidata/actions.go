package wikidata

import (
	"context"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/wikigraph/internal/common"
	"github.com/dtnitsch/wikigraph/pkg/layout"
	"github.com/dtnitsch/wikigraph/pkg/scatter"
	"github.com/dtnitsch/wikigraph/pkg/splitter"
	wd "github.com/dtnitsch/wikigraph/pkg/wikidata"
)

func SplitAction(c *cli.Context) error {
	env, err := common.Setup(c)
	if err != nil {
		return err
	}
	defer env.Close()

	return common.Exit(env.Logger, common.StageSplit, Split(c.Context, env))
}

func ScatterAction(c *cli.Context) error {
	env, err := common.Setup(c)
	if err != nil {
		return err
	}
	defer env.Close()

	_, err = Scatter(c.Context, env)
	return common.Exit(env.Logger, common.StageScatterWikidata, err)
}

func GatherAction(c *cli.Context) error {
	env, err := common.Setup(c)
	if err != nil {
		return err
	}
	defer env.Close()

	return common.Exit(env.Logger, common.StageGatherWikidata, Gather(c.Context, env, nil))
}

// Split cuts the entity dump into compressed chunks of ChunkSize entities.
func Split(ctx context.Context, env *common.Env) error {
	if err := env.RequireDates(layout.DatasetWikidata); err != nil {
		return err
	}
	return env.Stage(common.StageSplit, layout.DatasetWikidata, func() error {
		l, cfg := env.Layout, env.Config
		res, err := splitter.Split(ctx, env.Logger, l.WikidataDump(), l.WikidataChunkPath, splitter.Options{
			ChunkSize:   cfg.ChunkSize,
			MaxRecords:  cfg.MaxRecords,
			Concurrency: cfg.WorkerCount,
		})
		if err != nil {
			return err
		}
		env.Logger.Info("Dump split", "chunks", len(res.Chunks), "records", humanize.Comma(res.Records))
		return nil
	})
}

func worker(env *common.Env) *wd.Worker {
	cfg := env.Config
	return wd.NewWorker(env.Logger, wd.Options{
		Layout:     env.Layout,
		Wiki:       cfg.Wiki,
		SkipIDs:    cfg.SkipIDs,
		MaxRecords: cfg.MaxRecords,
		Statements: cfg.Statements,
	})
}

// Scatter extracts the entity tables from every chunk.
func Scatter(ctx context.Context, env *common.Env) ([]scatter.Result, error) {
	if err := env.RequireDates(layout.DatasetWikidata); err != nil {
		return nil, err
	}
	chunks, err := env.Layout.WikidataChunks()
	if err != nil {
		return nil, err
	}
	return env.Scatter(ctx, common.StageScatterWikidata, layout.DatasetWikidata,
		scatter.Tasks(chunks), worker(env).Process)
}

// Gather merges the chunk tables of results, or of the latest recorded
// scatter when results is nil.
func Gather(ctx context.Context, env *common.Env, results []scatter.Result) error {
	if err := env.RequireDates(layout.DatasetWikidata); err != nil {
		return err
	}
	_, err := env.Gather(ctx, common.StageScatterWikidata, common.StageGatherWikidata,
		layout.DatasetWikidata, results, worker(env).Tables())
	return err
}
