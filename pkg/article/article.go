// Package article joins page-level tables into one row per article: its
// structured-knowledge item, class tags, link degrees, lengths and template
// flags.
package article

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dtnitsch/wikigraph/models"
	"github.com/dtnitsch/wikigraph/pkg/claimgraph"
	"github.com/dtnitsch/wikigraph/pkg/table"
	"github.com/dtnitsch/wikigraph/pkg/titleindex"
	"github.com/dtnitsch/wikigraph/pkg/wikitext"
)

// NoItem is the item id of an article with no structured-knowledge item.
const NoItem int64 = -1

// Pre is one article-pre row.
type Pre struct {
	PageID int64
	Title  string
	ItemID int64
	Isa    []bool
}

// PreHeader is the article-pre column layout for roots.
func PreHeader(roots []int64) []string {
	return append([]string{"page_id", "page_title", "item_id"}, claimgraph.Columns(roots)...)
}

// BuildPre lists every non-redirect page of titles with its item and tags.
// Pages are in page id order. Items without tags get all-false flags.
func BuildPre(titles *titleindex.Index, props []models.PageProp, tags map[int64][]bool, roots []int64) []Pre {
	items := make(map[int64]int64, len(props))
	for _, p := range props {
		if _, dup := items[p.PageID]; !dup {
			items[p.PageID] = p.ItemID
		}
	}

	var out []Pre
	for _, e := range titles.Entries() {
		if e.IsRedirect {
			continue
		}
		row := Pre{PageID: e.SourceID, Title: e.SourceTitle, ItemID: NoItem, Isa: make([]bool, len(roots))}
		if item, ok := items[e.SourceID]; ok {
			row.ItemID = item
			copy(row.Isa, tags[item])
		}
		out = append(out, row)
	}
	return out
}

// WritePre stores rows as the article-pre table.
func WritePre(path string, rows []Pre, roots []int64) error {
	w, err := table.Create(path, PreHeader(roots))
	if err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{table.FormatInt(r.PageID), r.Title, table.FormatInt(r.ItemID)}
		for _, f := range r.Isa {
			rec = append(rec, table.FormatBool(f))
		}
		if err := w.Write(rec); err != nil {
			w.Abort()
			return err
		}
	}
	return w.Close()
}

// ReadPre loads an article-pre table written for the same roots.
func ReadPre(path string, roots []int64, logger *slog.Logger) ([]Pre, error) {
	var out []Pre
	err := table.Each(path, PreHeader(roots), table.Options{Logger: logger}, func(r table.Row) error {
		page, err1 := r.Int(0)
		item, err2 := r.Int(2)
		if err := errors.Join(err1, err2); err != nil {
			return errors.Join(table.ErrMalformedRow, err)
		}
		row := Pre{PageID: page, Title: r[1], ItemID: item, Isa: make([]bool, len(roots))}
		for i := range roots {
			f, err := r.Bool(3 + i)
			if err != nil {
				return errors.Join(table.ErrMalformedRow, err)
			}
			row.Isa[i] = f
		}
		out = append(out, row)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read article-pre: %w", err)
	}
	return out, nil
}

// Header is the article column layout for roots.
func Header(roots []int64) []string {
	h := []string{
		"page_id", "item_id", "page_title",
		"len_article_chars", "len_intro_chars",
		"in_link_count", "out_link_count",
	}
	for _, name := range wikitext.TemplateNames {
		h = append(h, "tmpl_"+name)
	}
	return append(h, claimgraph.Columns(roots)...)
}

// Write joins pre with stats and stores the article table. Pages absent from
// a statistics table get zeros. It returns the number of rows written.
func Write(path string, pre []Pre, stats *Stats, roots []int64) (int, error) {
	w, err := table.Create(path, Header(roots))
	if err != nil {
		return 0, err
	}
	for _, p := range pre {
		deg := stats.Degrees[p.PageID]
		lengths := stats.Lengths[p.PageID]
		rec := []string{
			table.FormatInt(p.PageID),
			table.FormatInt(p.ItemID),
			p.Title,
			table.FormatInt(lengths.Article),
			table.FormatInt(lengths.Intro),
			table.FormatInt(deg.In),
			table.FormatInt(deg.Out),
		}
		flags := stats.Templates[p.PageID]
		for i := range wikitext.TemplateNames {
			rec = append(rec, table.FormatBool(i < len(flags) && flags[i]))
		}
		for _, f := range p.Isa {
			rec = append(rec, table.FormatBool(f))
		}
		if err := w.Write(rec); err != nil {
			w.Abort()
			return 0, err
		}
	}
	return w.Rows(), w.Close()
}
