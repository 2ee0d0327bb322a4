package claimgraph

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/dtnitsch/wikigraph/models"
	"github.com/dtnitsch/wikigraph/pkg/table"
)

// ClaimHeader is the column layout of the p31, p279 and qpq claim tables.
var ClaimHeader = []string{"source_id", "target_id", "rnk"}

// ReadClaims loads a claim table. Rows that fail to parse are skipped.
func ReadClaims(path string, logger *slog.Logger) ([]models.ClaimEdge, error) {
	var out []models.ClaimEdge
	err := table.Each(path, ClaimHeader, table.Options{Logger: logger}, func(r table.Row) error {
		source, err1 := r.Int(0)
		target, err2 := r.Int(1)
		rank, err3 := r.Int(2)
		if err := errors.Join(err1, err2, err3); err != nil {
			return errors.Join(table.ErrMalformedRow, err)
		}
		if rank < int64(models.RankPreferred) || rank > int64(models.RankDeprecated) {
			return fmt.Errorf("%w: rank %d", table.ErrMalformedRow, rank)
		}
		out = append(out, models.ClaimEdge{SourceID: source, TargetID: target, Rank: models.Rank(rank)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read claims: %w", err)
	}
	return out, nil
}

// TagsHeader is the header of the item-isa table for the given roots.
func TagsHeader(roots []int64) []string {
	return append([]string{"item_id"}, Columns(roots)...)
}

// WriteTags writes one row per entity that matched at least one root, sorted
// by entity id, with a 0/1 column per root.
func WriteTags(path string, tags map[int64]Tags, roots []int64) (int, error) {
	ids := make([]int64, 0, len(tags))
	for id, t := range tags {
		if t.Any() {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	w, err := table.Create(path, TagsHeader(roots))
	if err != nil {
		return 0, err
	}
	rec := make([]string, len(roots)+1)
	for _, id := range ids {
		rec[0] = table.FormatInt(id)
		for i, tag := range tags[id] {
			rec[i+1] = table.FormatBool(tag.Matched)
		}
		if err := w.Write(rec); err != nil {
			w.Abort()
			return 0, err
		}
	}
	return len(ids), w.Close()
}

// ReadTags loads an item-isa table into per-entity flags in root order.
func ReadTags(path string, roots []int64, logger *slog.Logger) (map[int64][]bool, error) {
	out := make(map[int64][]bool)
	err := table.Each(path, TagsHeader(roots), table.Options{Logger: logger}, func(r table.Row) error {
		id, err := r.Int(0)
		if err != nil {
			return errors.Join(table.ErrMalformedRow, err)
		}
		flags := make([]bool, len(roots))
		for i := range roots {
			if flags[i], err = r.Bool(i + 1); err != nil {
				return errors.Join(table.ErrMalformedRow, err)
			}
		}
		out[id] = flags
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read tags: %w", err)
	}
	return out, nil
}
