package titles

import (
	"context"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/wikigraph/internal/common"
	"github.com/dtnitsch/wikigraph/pkg/layout"
	"github.com/dtnitsch/wikigraph/pkg/redirect"
	"github.com/dtnitsch/wikigraph/pkg/titleindex"
)

func TitlesAction(c *cli.Context) error {
	env, err := common.Setup(c)
	if err != nil {
		return err
	}
	defer env.Close()

	return common.Exit(env.Logger, common.StageTitles, Run(c.Context, env))
}

// Run builds the title-mapper table from the page table and the resolved
// redirects.
func Run(_ context.Context, env *common.Env) error {
	if err := env.RequireDates(layout.DatasetWikipedia); err != nil {
		return err
	}
	return env.Stage(common.StageTitles, layout.DatasetWikipedia, func() error {
		l, logger := env.Layout, env.Logger

		pages, err := titleindex.ReadPages(l.TablePath(layout.TablePage), logger)
		if err != nil {
			return err
		}
		resolved, err := redirect.ReadResolved(l.TablePath(layout.TableUltimateRedirect), logger)
		if err != nil {
			return err
		}

		idx := titleindex.Build(pages, resolved)
		if err := idx.Write(l.TablePath(layout.TableTitleMapper)); err != nil {
			return err
		}
		logger.Info("Title index written", "titles", humanize.Comma(int64(idx.Len())))
		return nil
	})
}
