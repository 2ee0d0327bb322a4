package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/wikigraph/internal/article"
	"github.com/dtnitsch/wikigraph/internal/db"
	"github.com/dtnitsch/wikigraph/internal/pipeline"
	"github.com/dtnitsch/wikigraph/internal/redirects"
	"github.com/dtnitsch/wikigraph/internal/tag"
	"github.com/dtnitsch/wikigraph/internal/titles"
	"github.com/dtnitsch/wikigraph/internal/wikidata"
	"github.com/dtnitsch/wikigraph/internal/wikitext"
	"github.com/dtnitsch/wikigraph/models"
)

func env(name string) []string {
	return []string{"WIKIGRAPH_" + name}
}

var globalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "YAML config file; flags override its values",
		EnvVars: env("CONFIG"),
	},
	&cli.StringFlag{
		Name:    "data-path",
		Aliases: []string{"d"},
		Value:   ".",
		Usage:   "Directory holding the raw dumps and derived tables",
		EnvVars: env("DATA_PATH"),
	},
	&cli.StringFlag{
		Name:    "wiki",
		Value:   models.DefaultWiki,
		Usage:   "Wiki whose articles and sitelinks are extracted",
		EnvVars: env("WIKI"),
	},
	&cli.StringFlag{
		Name:    "wikipedia-date",
		Usage:   "Wikipedia dump date (YYYYMMDD)",
		EnvVars: env("WIKIPEDIA_DATE"),
	},
	&cli.StringFlag{
		Name:    "wikidata-date",
		Usage:   "Wikidata dump date (YYYYMMDD)",
		EnvVars: env("WIKIDATA_DATE"),
	},
	&cli.IntFlag{
		Name:    "workers",
		Aliases: []string{"w"},
		Value:   models.DefaultWorkerCount,
		Usage:   "Number of partitions processed concurrently",
		EnvVars: env("WORKERS"),
	},
	&cli.Int64Flag{
		Name:    "max-records",
		Value:   models.DefaultMaxRecords,
		Usage:   "Stop each partition (and the splitter) after this many records",
		EnvVars: env("MAX_RECORDS"),
	},
	&cli.IntFlag{
		Name:    "chunk-size",
		Value:   models.DefaultChunkSize,
		Usage:   "Entities per Wikidata chunk",
		EnvVars: env("CHUNK_SIZE"),
	},
	&cli.Int64SliceFlag{
		Name:    "roots",
		Value:   cli.NewInt64Slice(models.DefaultRootIDs...),
		Usage:   "Root item ids whose subclass trees tag articles",
		EnvVars: env("ROOTS"),
	},
	&cli.Int64SliceFlag{
		Name:    "skip-ids",
		Value:   cli.NewInt64Slice(models.DefaultSkipIDs...),
		Usage:   "Instance-of targets whose entities are skipped",
		EnvVars: env("SKIP_IDS"),
	},
	&cli.BoolFlag{
		Name:    "statements",
		Usage:   "Also write the item-statements table",
		EnvVars: env("STATEMENTS"),
	},
	&cli.StringFlag{
		Name:    "ledger",
		Usage:   "SQLite run ledger (default <data-path>/wikigraph.db, empty disables)",
		EnvVars: env("LEDGER"),
	},
	&cli.BoolFlag{
		Name:    "progress",
		Usage:   "Draw a progress bar while scattering",
		EnvVars: env("PROGRESS"),
	},
	&cli.StringFlag{
		Name:    "log-format",
		Value:   "json",
		Usage:   "Log format: json or text",
		EnvVars: env("LOG_FORMAT"),
	},
	&cli.BoolFlag{
		Name:    "quiet",
		Aliases: []string{"q"},
		Usage:   "Only log errors",
	},
	&cli.BoolFlag{
		Name:  "debug",
		Usage: "Log debug messages",
	},
}

func main() {
	app := &cli.App{
		Name:  "wikigraph",
		Usage: "Derive an entity/link graph and statistics from Wikipedia and Wikidata dumps",
		Flags: globalFlags,
		Commands: []*cli.Command{
			{
				Name:   "redirects",
				Usage:  "Attach and resolve redirect chains",
				Action: redirects.RedirectsAction,
			},
			{
				Name:   "titles",
				Usage:  "Build the title-mapper table from pages and resolved redirects",
				Action: titles.TitlesAction,
			},
			{
				Name:   "split",
				Usage:  "Split the Wikidata dump into compressed chunks",
				Action: wikidata.SplitAction,
			},
			{
				Name:   "scatter-wikidata",
				Usage:  "Extract entity tables from every Wikidata chunk",
				Action: wikidata.ScatterAction,
			},
			{
				Name:   "gather-wikidata",
				Usage:  "Merge the latest Wikidata scatter run",
				Action: wikidata.GatherAction,
			},
			{
				Name:   "tag",
				Usage:  "Tag items with the roots of their instance-of classes",
				Action: tag.TagAction,
			},
			{
				Name:   "scatter-wikitext",
				Usage:  "Extract links, paragraphs and page statistics from every article dump",
				Action: wikitext.ScatterAction,
			},
			{
				Name:   "gather-wikitext",
				Usage:  "Merge the latest wikitext scatter run",
				Action: wikitext.GatherAction,
			},
			{
				Name:   "article",
				Usage:  "Join pages, items, tags and statistics into the article table",
				Action: article.ArticleAction,
			},
			{
				Name:   "run",
				Usage:  "Run every stage in order",
				Action: pipeline.RunAction,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "from",
						Usage: "Start at this stage: " + strings.Join(pipeline.Stages, ", "),
					},
				},
			},
			{
				Name:      "runs",
				Usage:     "List ledger runs, or show the partitions of one run",
				ArgsUsage: "[run-id]",
				Action:    db.RunsAction,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Value: 20,
						Usage: "Number of runs to list",
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
}
