// Package titleindex maps every known page title to the canonical page it
// refers to. Scatter workers share one Index read-only.
package titleindex

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dtnitsch/wikigraph/models"
	"github.com/dtnitsch/wikigraph/pkg/table"
)

// Header is the column layout of the title-mapper table.
var Header = []string{"source_id", "source_title", "target_id", "target_title", "is_redirect"}

// Index is an immutable title lookup.
type Index struct {
	entries []models.TitleIndexEntry
	byTitle map[string]int
}

// Build combines the page table with resolved redirects. Redirect pages with
// no resolved row (their chain cycled) get no entry. A page that appears as a
// resolved source is a redirect even if the page table says otherwise.
func Build(pages []models.Page, resolved []models.ResolvedRedirect) *Index {
	targets := make(map[int64]models.ResolvedRedirect, len(resolved))
	for _, r := range resolved {
		targets[r.SourceID] = r
	}

	entries := make([]models.TitleIndexEntry, 0, len(pages))
	for _, p := range pages {
		if r, ok := targets[p.ID]; ok {
			entries = append(entries, models.TitleIndexEntry{
				SourceID:    p.ID,
				SourceTitle: p.Title,
				TargetID:    r.TargetID,
				TargetTitle: r.TargetTitle,
				IsRedirect:  true,
			})
			continue
		}
		if p.IsRedirect {
			continue
		}
		entries = append(entries, models.TitleIndexEntry{
			SourceID:    p.ID,
			SourceTitle: p.Title,
			TargetID:    p.ID,
			TargetTitle: p.Title,
		})
	}
	return fromEntries(entries)
}

func fromEntries(entries []models.TitleIndexEntry) *Index {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].SourceID < entries[j].SourceID
	})
	idx := &Index{entries: entries, byTitle: make(map[string]int, len(entries))}
	for i, e := range entries {
		if _, ok := idx.byTitle[e.SourceTitle]; !ok {
			idx.byTitle[e.SourceTitle] = i
		}
	}
	return idx
}

// Lookup finds the entry for a title as written in a wikilink.
func (idx *Index) Lookup(title string) (models.TitleIndexEntry, bool) {
	i, ok := idx.byTitle[Normalize(title)]
	if !ok {
		return models.TitleIndexEntry{}, false
	}
	return idx.entries[i], true
}

// Len returns the number of titles.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Entries returns all entries sorted by source id. Callers must not modify it.
func (idx *Index) Entries() []models.TitleIndexEntry {
	return idx.entries
}

// Normalize turns link text into the stored title form: the fragment is
// dropped, spaces become underscores and the first letter is upper-cased.
func Normalize(title string) string {
	if i := strings.IndexByte(title, '#'); i >= 0 {
		title = title[:i]
	}
	title = strings.TrimSpace(title)
	title = strings.ReplaceAll(title, " ", "_")
	r, size := utf8.DecodeRuneInString(title)
	if r == utf8.RuneError || unicode.IsUpper(r) {
		return title
	}
	return string(unicode.ToUpper(r)) + title[size:]
}

// Write stores the index as a title-mapper table.
func (idx *Index) Write(path string) error {
	w, err := table.Create(path, Header)
	if err != nil {
		return err
	}
	for _, e := range idx.entries {
		rec := []string{
			table.FormatInt(e.SourceID),
			e.SourceTitle,
			table.FormatInt(e.TargetID),
			e.TargetTitle,
			table.FormatBool(e.IsRedirect),
		}
		if err := w.Write(rec); err != nil {
			w.Abort()
			return err
		}
	}
	return w.Close()
}

// Load reads a title-mapper table back into an Index.
func Load(path string, logger *slog.Logger) (*Index, error) {
	var entries []models.TitleIndexEntry
	err := table.Each(path, Header, table.Options{Logger: logger}, func(r table.Row) error {
		source, err1 := r.Int(0)
		target, err2 := r.Int(2)
		redirect, err3 := r.Bool(4)
		if err := errors.Join(err1, err2, err3); err != nil {
			return errors.Join(table.ErrMalformedRow, err)
		}
		entries = append(entries, models.TitleIndexEntry{
			SourceID:    source,
			SourceTitle: r[1],
			TargetID:    target,
			TargetTitle: r[3],
			IsRedirect:  redirect,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load title index: %w", err)
	}
	return fromEntries(entries), nil
}
