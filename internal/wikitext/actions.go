package wikitext

import (
	"context"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/wikigraph/internal/common"
	"github.com/dtnitsch/wikigraph/pkg/layout"
	"github.com/dtnitsch/wikigraph/pkg/scatter"
	"github.com/dtnitsch/wikigraph/pkg/titleindex"
	wt "github.com/dtnitsch/wikigraph/pkg/wikitext"
)

func ScatterAction(c *cli.Context) error {
	env, err := common.Setup(c)
	if err != nil {
		return err
	}
	defer env.Close()

	_, err = Scatter(c.Context, env)
	return common.Exit(env.Logger, common.StageScatterWikitext, err)
}

func GatherAction(c *cli.Context) error {
	env, err := common.Setup(c)
	if err != nil {
		return err
	}
	defer env.Close()

	return common.Exit(env.Logger, common.StageGatherWikitext, Gather(c.Context, env, nil))
}

// Scatter extracts links, paragraphs and page statistics from every article
// dump file. The title index is loaded once and shared by all workers.
func Scatter(ctx context.Context, env *common.Env) ([]scatter.Result, error) {
	if err := env.RequireDates(layout.DatasetWikipedia); err != nil {
		return nil, err
	}
	l := env.Layout

	dumps, err := l.ArticleDumps()
	if err != nil {
		return nil, err
	}
	titles, err := titleindex.Load(l.TablePath(layout.TableTitleMapper), env.Logger)
	if err != nil {
		return nil, err
	}
	env.Logger.Info("Title index loaded", "titles", humanize.Comma(int64(titles.Len())))

	w := wt.NewWorker(env.Logger, titles, nil, wt.Options{
		Layout:     l,
		MaxRecords: env.Config.MaxRecords,
	})
	return env.Scatter(ctx, common.StageScatterWikitext, layout.DatasetWikipedia, scatter.Tasks(dumps), w.Process)
}

// Gather merges the partition tables and reduces the partition counters.
func Gather(ctx context.Context, env *common.Env, results []scatter.Result) error {
	if err := env.RequireDates(layout.DatasetWikipedia); err != nil {
		return err
	}
	w := wt.NewWorker(env.Logger, nil, nil, wt.Options{Layout: env.Layout})
	rep, err := env.Gather(ctx, common.StageScatterWikitext, common.StageGatherWikitext,
		layout.DatasetWikipedia, results, w.Tables())
	if rep != nil && len(rep.TopAnchors) > 0 {
		env.Logger.Debug("Top anchors", "anchors", rep.TopAnchors)
	}
	return err
}
