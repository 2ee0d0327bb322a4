package article

import (
	"context"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/wikigraph/internal/common"
	art "github.com/dtnitsch/wikigraph/pkg/article"
	"github.com/dtnitsch/wikigraph/pkg/claimgraph"
	"github.com/dtnitsch/wikigraph/pkg/layout"
	"github.com/dtnitsch/wikigraph/pkg/titleindex"
)

func ArticleAction(c *cli.Context) error {
	env, err := common.Setup(c)
	if err != nil {
		return err
	}
	defer env.Close()

	return common.Exit(env.Logger, common.StageArticle, Run(c.Context, env))
}

// Run writes article-pre (page, item and class tags) and then the article
// table that adds the gathered link and text statistics.
func Run(_ context.Context, env *common.Env) error {
	if err := env.RequireDates(layout.DatasetWikipedia, layout.DatasetWikidata); err != nil {
		return err
	}
	return env.Stage(common.StageArticle, layout.DatasetWikipedia, func() error {
		l, logger, roots := env.Layout, env.Logger, env.Config.RootIDs

		titles, err := titleindex.Load(l.TablePath(layout.TableTitleMapper), logger)
		if err != nil {
			return err
		}
		props, err := titleindex.ReadPageProps(l.TablePath(layout.TablePageProps), logger)
		if err != nil {
			return err
		}
		tags, err := claimgraph.ReadTags(l.MergedPath(layout.DatasetWikidata, layout.TableItemIsa), roots, logger)
		if err != nil {
			return err
		}

		pre := art.BuildPre(titles, props, tags, roots)
		if err := art.WritePre(l.TablePath(layout.TableArticlePre), pre, roots); err != nil {
			return err
		}
		logger.Info("Article-pre written", "articles", humanize.Comma(int64(len(pre))))

		stats, err := art.LoadStats(art.StatsPaths{
			InOutCounts: l.MergedPath(layout.DatasetWikipedia, layout.TableInOutCounts),
			Lengths:     l.MergedPath(layout.DatasetWikipedia, layout.TableLengths),
			Templates:   l.MergedPath(layout.DatasetWikipedia, layout.TableTemplates),
		}, logger)
		if err != nil {
			return err
		}

		n, err := art.Write(l.TablePath(layout.TableArticle), pre, stats, roots)
		if err != nil {
			return err
		}
		logger.Info("Article table written", "rows", humanize.Comma(int64(n)))
		return nil
	})
}
