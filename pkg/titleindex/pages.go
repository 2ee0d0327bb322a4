package titleindex

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dtnitsch/wikigraph/models"
	"github.com/dtnitsch/wikigraph/pkg/table"
)

var pageColumns = []string{"page_id", "page_title", "page_is_redirect"}

// ReadPages loads the article-namespace page table converted from the SQL dump.
func ReadPages(path string, logger *slog.Logger) ([]models.Page, error) {
	var pages []models.Page
	err := table.Each(path, pageColumns, table.Options{Logger: logger}, func(r table.Row) error {
		id, err := r.Int(0)
		if err != nil {
			return errors.Join(table.ErrMalformedRow, err)
		}
		redirect, err := r.Bool(2)
		if err != nil {
			return errors.Join(table.ErrMalformedRow, err)
		}
		pages = append(pages, models.Page{ID: id, Title: r[1], IsRedirect: redirect})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read pages: %w", err)
	}
	return pages, nil
}

var pagePropColumns = []string{"page_id", "wikibase_item"}

// ReadPageProps loads page to item links. Items are stored as "Q<n>"; pages
// with an empty item are skipped.
func ReadPageProps(path string, logger *slog.Logger) ([]models.PageProp, error) {
	var props []models.PageProp
	err := table.Each(path, pagePropColumns, table.Options{Logger: logger}, func(r table.Row) error {
		if r[1] == "" {
			return nil
		}
		page, err := r.Int(0)
		if err != nil {
			return errors.Join(table.ErrMalformedRow, err)
		}
		item, err := models.ParseEntityID(r[1])
		if err != nil {
			return errors.Join(table.ErrMalformedRow, err)
		}
		props = append(props, models.PageProp{PageID: page, ItemID: item})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read page props: %w", err)
	}
	return props, nil
}
