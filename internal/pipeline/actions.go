package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/wikigraph/internal/article"
	"github.com/dtnitsch/wikigraph/internal/common"
	"github.com/dtnitsch/wikigraph/internal/redirects"
	"github.com/dtnitsch/wikigraph/internal/tag"
	"github.com/dtnitsch/wikigraph/internal/titles"
	"github.com/dtnitsch/wikigraph/internal/wikidata"
	"github.com/dtnitsch/wikigraph/internal/wikitext"
	"github.com/dtnitsch/wikigraph/pkg/scatter"
)

// Stages lists every stage in execution order.
var Stages = []string{
	common.StageRedirects,
	common.StageTitles,
	common.StageSplit,
	common.StageScatterWikidata,
	common.StageGatherWikidata,
	common.StageTag,
	common.StageScatterWikitext,
	common.StageGatherWikitext,
	common.StageArticle,
}

func RunAction(c *cli.Context) error {
	env, err := common.Setup(c)
	if err != nil {
		return err
	}
	defer env.Close()

	return common.Exit(env.Logger, "run", Run(c.Context, env, c.String("from")))
}

type step struct {
	name string
	run  func(ctx context.Context) error
}

func steps(env *common.Env) []step {
	// Scatter results go straight to the matching gather. A gather whose
	// scatter was skipped loads them from the ledger.
	var wikidataResults, wikitextResults []scatter.Result

	return []step{
		{common.StageRedirects, func(ctx context.Context) error { return redirects.Run(ctx, env) }},
		{common.StageTitles, func(ctx context.Context) error { return titles.Run(ctx, env) }},
		{common.StageSplit, func(ctx context.Context) error { return wikidata.Split(ctx, env) }},
		{common.StageScatterWikidata, func(ctx context.Context) error {
			var err error
			wikidataResults, err = wikidata.Scatter(ctx, env)
			return err
		}},
		{common.StageGatherWikidata, func(ctx context.Context) error {
			return wikidata.Gather(ctx, env, wikidataResults)
		}},
		{common.StageTag, func(ctx context.Context) error { return tag.Run(ctx, env) }},
		{common.StageScatterWikitext, func(ctx context.Context) error {
			var err error
			wikitextResults, err = wikitext.Scatter(ctx, env)
			return err
		}},
		{common.StageGatherWikitext, func(ctx context.Context) error {
			return wikitext.Gather(ctx, env, wikitextResults)
		}},
		{common.StageArticle, func(ctx context.Context) error { return article.Run(ctx, env) }},
	}
}

// Run executes every stage from the named one onwards. A stage with failed
// partitions does not stop the pipeline; any other failure does.
func Run(ctx context.Context, env *common.Env, from string) error {
	all := steps(env)
	start := 0
	if from != "" {
		start = -1
		for i, s := range all {
			if s.name == from {
				start = i
				break
			}
		}
		if start < 0 {
			return fmt.Errorf("unknown stage %q, expected one of: %s", from, strings.Join(Stages, ", "))
		}
	}

	var partial error
	for _, s := range all[start:] {
		if err := ctx.Err(); err != nil {
			return err
		}
		began := time.Now()
		env.Logger.Info("Stage started", "stage", s.name)

		err := s.run(ctx)
		switch {
		case err == nil:
		case errors.Is(err, common.ErrPartial):
			env.Logger.Warn("Stage finished with failures", "stage", s.name, "error", err)
			partial = multierror.Append(partial, fmt.Errorf("%s: %w", s.name, err))
		default:
			return fmt.Errorf("%s: %w", s.name, err)
		}
		env.Logger.Info("Stage finished", "stage", s.name, "duration", time.Since(began).Round(time.Millisecond).String())
	}
	return partial
}
