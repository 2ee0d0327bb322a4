package gather

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/dtnitsch/wikigraph/pkg/layout"
	"github.com/dtnitsch/wikigraph/pkg/storage"
	"github.com/dtnitsch/wikigraph/pkg/table"
)

// Column layouts of the link projections.
var (
	EdgesHeader     = []string{"source", "target"}
	EdgesPlusHeader = []string{"source", "section_idx", "paragraph_idx", "target"}
)

// writeTable creates dst, lets fill write rows and commits the file. The file
// is discarded if fill fails.
func writeTable(dst string, header []string, fill func(*table.Writer) error) (int64, error) {
	w, err := table.Create(dst, header)
	if err != nil {
		return 0, err
	}
	if err := fill(w); err != nil {
		w.Abort()
		return 0, err
	}
	if err := w.Close(); err != nil {
		return 0, err
	}
	return int64(w.Rows()), nil
}

// concatCSV copies every chunk's rows under the first chunk's header.
func (m *merger) concatCSV(ctx context.Context) (int64, error) {
	first, err := table.Open(m.paths[0], nil, table.Options{Logger: m.logger})
	if err != nil {
		return 0, err
	}
	header := append([]string(nil), first.Header()...)
	_ = first.Close()

	return writeTable(m.dst, header, func(w *table.Writer) error {
		for _, p := range m.paths {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := copyRows(w, p, header, m.logger); err != nil {
				return err
			}
		}
		return nil
	})
}

func copyRows(w *table.Writer, path string, header []string, logger *slog.Logger) error {
	r, err := table.Open(path, header, table.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer r.Close()
	for {
		row, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to copy %s: %w", path, err)
		}
	}
}

// lineCounter counts newlines passing through it.
type lineCounter struct {
	w     io.Writer
	lines int64
}

func (c *lineCounter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.lines += int64(bytes.Count(p[:n], []byte{'\n'}))
	return n, err
}

// concatLines appends the chunks of a line-oriented table byte for byte.
func (m *merger) concatLines(ctx context.Context) (int64, error) {
	s := &storage.Storage{}
	fw, err := s.Create(m.dst)
	if err != nil {
		return 0, err
	}
	lc := &lineCounter{w: fw}
	for _, p := range m.paths {
		if err := ctx.Err(); err != nil {
			fw.Abort()
			return 0, err
		}
		if err := appendFile(lc, p); err != nil {
			fw.Abort()
			return 0, err
		}
	}
	if err := fw.Close(); err != nil {
		return 0, err
	}
	return lc.lines, nil
}

func appendFile(dst io.Writer, path string) error {
	rc, err := (&storage.Storage{}).Open(path)
	if err != nil {
		return err
	}
	defer rc.Close()
	if _, err := io.Copy(dst, rc); err != nil {
		return fmt.Errorf("failed to copy %s: %w", path, err)
	}
	return nil
}

// projectLinks derives the edge lists from the merged links table.
func projectLinks(ctx context.Context, logger *slog.Logger, l layout.Layout, linksPath string) ([]TableStat, error) {
	edgesPath := l.MergedPath(layout.DatasetWikipedia, layout.TableLinksEdges)
	plusPath := l.MergedPath(layout.DatasetWikipedia, layout.TableLinksEdgesPlus)

	edges, err := table.Create(edgesPath, EdgesHeader)
	if err != nil {
		return nil, err
	}
	plus, err := table.Create(plusPath, EdgesPlusHeader)
	if err != nil {
		edges.Abort()
		return nil, err
	}
	abort := func(err error) ([]TableStat, error) {
		edges.Abort()
		plus.Abort()
		return nil, fmt.Errorf("failed to project links: %w", err)
	}

	want := []string{"source_page_id", "section_idx", "paragraph_idx", "target_page_id"}
	r, err := table.Open(linksPath, want, table.Options{Logger: logger})
	if err != nil {
		return abort(err)
	}
	defer r.Close()

	for n := 0; ; n++ {
		if n%100_000 == 0 {
			if err := ctx.Err(); err != nil {
				return abort(err)
			}
		}
		row, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return abort(err)
		}
		if err := edges.Write([]string{row[0], row[3]}); err != nil {
			return abort(err)
		}
		if err := plus.Write(row); err != nil {
			return abort(err)
		}
	}

	if err := edges.Close(); err != nil {
		plus.Abort()
		return nil, err
	}
	if err := plus.Close(); err != nil {
		return nil, err
	}
	return []TableStat{
		{Name: layout.TableLinksEdges, Path: edgesPath, Rows: int64(edges.Rows())},
		{Name: layout.TableLinksEdgesPlus, Path: plusPath, Rows: int64(plus.Rows())},
	}, nil
}
