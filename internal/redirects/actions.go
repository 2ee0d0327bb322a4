package redirects

import (
	"context"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/wikigraph/internal/common"
	"github.com/dtnitsch/wikigraph/pkg/layout"
	"github.com/dtnitsch/wikigraph/pkg/redirect"
	"github.com/dtnitsch/wikigraph/pkg/titleindex"
)

func RedirectsAction(c *cli.Context) error {
	env, err := common.Setup(c)
	if err != nil {
		return err
	}
	defer env.Close()

	return common.Exit(env.Logger, common.StageRedirects, Run(c.Context, env))
}

// Run attaches the raw redirect table to the page table and collapses every
// redirect chain to its terminal page.
func Run(_ context.Context, env *common.Env) error {
	if err := env.RequireDates(layout.DatasetWikipedia); err != nil {
		return err
	}
	return env.Stage(common.StageRedirects, layout.DatasetWikipedia, func() error {
		l, logger := env.Layout, env.Logger

		pages, err := titleindex.ReadPages(l.TablePath(layout.TablePage), logger)
		if err != nil {
			return err
		}
		raw, err := redirect.ReadRaw(l.TablePath(layout.TableRedirect), logger)
		if err != nil {
			return err
		}

		edges := redirect.Attach(raw, pages, logger)
		if err := redirect.WriteEdges(l.TablePath(layout.TableRedirectAttached), edges); err != nil {
			return err
		}

		res := redirect.Resolve(edges, logger)
		if err := redirect.WriteResolved(l.TablePath(layout.TableUltimateRedirect), res.Redirects); err != nil {
			return err
		}

		logger.Info("Redirects resolved",
			"pages", humanize.Comma(int64(len(pages))),
			"raw", humanize.Comma(int64(len(raw))),
			"attached", humanize.Comma(int64(len(edges))),
			"resolved", humanize.Comma(int64(len(res.Redirects))),
			"cycles", len(res.Cycles),
			"dropped", res.Dropped,
			"duplicates", res.Duplicates)
		return nil
	})
}
