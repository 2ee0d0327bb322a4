package tag

import (
	"context"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/wikigraph/internal/common"
	"github.com/dtnitsch/wikigraph/pkg/claimgraph"
	"github.com/dtnitsch/wikigraph/pkg/layout"
)

func TagAction(c *cli.Context) error {
	env, err := common.Setup(c)
	if err != nil {
		return err
	}
	defer env.Close()

	return common.Exit(env.Logger, common.StageTag, Run(c.Context, env))
}

// Run tags every item with the configured roots its instance-of claims fall
// under, following the subclass-of closure of each root.
func Run(_ context.Context, env *common.Env) error {
	if err := env.RequireDates(layout.DatasetWikidata); err != nil {
		return err
	}
	return env.Stage(common.StageTag, layout.DatasetWikidata, func() error {
		l, logger, roots := env.Layout, env.Logger, env.Config.RootIDs

		subclass, err := claimgraph.ReadClaims(l.MergedPath(layout.DatasetWikidata, layout.TableP279Claim), logger)
		if err != nil {
			return err
		}
		instances, err := claimgraph.ReadClaims(l.MergedPath(layout.DatasetWikidata, layout.TableP31Claim), logger)
		if err != nil {
			return err
		}

		g := claimgraph.NewGraph(subclass)
		for _, root := range roots {
			logger.Info("Closure built", "root", claimgraph.Column(root),
				"members", humanize.Comma(int64(g.Closure(root).Len())))
		}

		tags := g.Tag(instances, roots)
		n, err := claimgraph.WriteTags(l.MergedPath(layout.DatasetWikidata, layout.TableItemIsa), tags, roots)
		if err != nil {
			return err
		}
		logger.Info("Items tagged", "nodes", humanize.Comma(int64(g.Nodes())), "tagged", humanize.Comma(int64(n)))
		return nil
	})
}
