package article

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dtnitsch/wikigraph/pkg/mapreduce"
	"github.com/dtnitsch/wikigraph/pkg/table"
	"github.com/dtnitsch/wikigraph/pkg/wikitext"
)

// Lengths are the character counts of one article.
type Lengths struct {
	Article int64
	Intro   int64
}

// Stats holds the merged per-page statistics of the wikitext stage.
type Stats struct {
	Degrees   mapreduce.Degrees
	Lengths   map[int64]Lengths
	Templates map[int64][]bool
}

// StatsPaths locates the merged statistics tables.
type StatsPaths struct {
	InOutCounts string
	Lengths     string
	Templates   string
}

// LoadStats reads the merged statistics tables.
func LoadStats(paths StatsPaths, logger *slog.Logger) (*Stats, error) {
	degrees, err := mapreduce.ReadDegrees(paths.InOutCounts, logger)
	if err != nil {
		return nil, err
	}
	stats := &Stats{
		Degrees:   degrees,
		Lengths:   make(map[int64]Lengths),
		Templates: make(map[int64][]bool),
	}

	err = table.Each(paths.Lengths, wikitext.LengthsHeader, table.Options{Logger: logger}, func(r table.Row) error {
		id, err1 := r.Int(0)
		article, err2 := r.Int(1)
		intro, err3 := r.Int(2)
		if err := errors.Join(err1, err2, err3); err != nil {
			return errors.Join(table.ErrMalformedRow, err)
		}
		stats.Lengths[id] = Lengths{Article: article, Intro: intro}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read lengths: %w", err)
	}

	err = table.Each(paths.Templates, wikitext.TemplatesHeader, table.Options{Logger: logger}, func(r table.Row) error {
		id, err := r.Int(0)
		if err != nil {
			return errors.Join(table.ErrMalformedRow, err)
		}
		flags := make([]bool, len(wikitext.TemplateNames))
		for i := range flags {
			if flags[i], err = r.Bool(i + 1); err != nil {
				return errors.Join(table.ErrMalformedRow, err)
			}
		}
		stats.Templates[id] = flags
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read templates: %w", err)
	}
	return stats, nil
}
