package redirect

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dtnitsch/wikigraph/models"
	"github.com/dtnitsch/wikigraph/pkg/table"
)

// Header is the column layout of attached and resolved redirect tables.
var Header = []string{"source_id", "source_title", "target_id", "target_title"}

// rawColumns are the columns of the redirect table converted from the SQL dump.
var rawColumns = []string{"rd_from", "rd_title"}

// ReadRaw loads the dump's redirect table. Any malformed row is fatal.
func ReadRaw(path string, logger *slog.Logger) ([]models.RawRedirect, error) {
	var out []models.RawRedirect
	err := table.Each(path, rawColumns, table.Options{Strict: true, Logger: logger}, func(r table.Row) error {
		id, err := r.Int(0)
		if err != nil {
			return errors.Join(table.ErrMalformedRow, err)
		}
		out = append(out, models.RawRedirect{SourceID: id, TargetTitle: r[1]})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read redirects: %w", err)
	}
	return out, nil
}

// ReadEdges loads an attached or resolved redirect table. Any malformed row is fatal.
func ReadEdges(path string, logger *slog.Logger) ([]models.RedirectEdge, error) {
	var out []models.RedirectEdge
	err := table.Each(path, Header, table.Options{Strict: true, Logger: logger}, func(r table.Row) error {
		source, err := r.Int(0)
		if err != nil {
			return errors.Join(table.ErrMalformedRow, err)
		}
		target, err := r.Int(2)
		if err != nil {
			return errors.Join(table.ErrMalformedRow, err)
		}
		out = append(out, models.RedirectEdge{
			SourceID:    source,
			SourceTitle: r[1],
			TargetID:    target,
			TargetTitle: r[3],
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read redirect edges: %w", err)
	}
	return out, nil
}

// ReadResolved loads a resolved redirect table.
func ReadResolved(path string, logger *slog.Logger) ([]models.ResolvedRedirect, error) {
	edges, err := ReadEdges(path, logger)
	if err != nil {
		return nil, err
	}
	out := make([]models.ResolvedRedirect, len(edges))
	for i, e := range edges {
		out[i] = models.ResolvedRedirect(e)
	}
	return out, nil
}

// WriteEdges writes attached redirect edges in the given order.
func WriteEdges(path string, edges []models.RedirectEdge) error {
	w, err := table.Create(path, Header)
	if err != nil {
		return err
	}
	for _, e := range edges {
		if err := w.Write(edgeRecord(e)); err != nil {
			w.Abort()
			return err
		}
	}
	return w.Close()
}

// WriteResolved writes resolved redirects in the given order.
func WriteResolved(path string, resolved []models.ResolvedRedirect) error {
	return WriteEdges(path, Edges(resolved))
}

func edgeRecord(e models.RedirectEdge) []string {
	return []string{
		table.FormatInt(e.SourceID),
		e.SourceTitle,
		table.FormatInt(e.TargetID),
		e.TargetTitle,
	}
}
