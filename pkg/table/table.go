// Package table reads and writes the flat, header-first CSV tables every stage
// exchanges. Compression is chosen from the file extension by pkg/storage.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"unicode/utf8"

	"github.com/dtnitsch/wikigraph/pkg/storage"
)

// ErrMalformedRow marks a row with the wrong field count or undecodable bytes.
var ErrMalformedRow = errors.New("malformed row")

// Writer writes rows under a fixed header.
type Writer struct {
	fw   *storage.FileWriter
	cw   *csv.Writer
	cols int
	rows int
}

// Create starts a new table at path and writes its header.
func Create(path string, header []string) (*Writer, error) {
	s := &storage.Storage{}
	fw, err := s.Create(path)
	if err != nil {
		return nil, err
	}
	w := &Writer{fw: fw, cw: csv.NewWriter(fw), cols: len(header)}
	if err := w.cw.Write(header); err != nil {
		fw.Abort()
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	return w, nil
}

// Write appends one row. The row must match the header width.
func (w *Writer) Write(record []string) error {
	if len(record) != w.cols {
		return fmt.Errorf("%w: got %d fields, want %d", ErrMalformedRow, len(record), w.cols)
	}
	if err := w.cw.Write(record); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	w.rows++
	return nil
}

// Rows returns the number of data rows written.
func (w *Writer) Rows() int {
	return w.rows
}

// Path returns the final location of the table.
func (w *Writer) Path() string {
	return w.fw.Path()
}

// Close flushes the table and moves it into place.
func (w *Writer) Close() error {
	w.cw.Flush()
	if err := w.cw.Error(); err != nil {
		w.fw.Abort()
		return fmt.Errorf("failed to flush table: %w", err)
	}
	return w.fw.Close()
}

// Abort drops the partially written table.
func (w *Writer) Abort() {
	w.fw.Abort()
}

// Options controls how a Reader treats bad rows.
type Options struct {
	// Strict turns malformed rows into errors instead of skipping them.
	Strict bool
	Logger *slog.Logger
}

// Reader yields rows projected onto a requested set of columns.
type Reader struct {
	rc      io.ReadCloser
	cr      *csv.Reader
	path    string
	header  []string
	idx     []int
	opts    Options
	line    int
	skipped int
	row     Row
}

// Open opens the table at path and checks that it has every wanted column.
// With no wanted columns the full header is used.
func Open(path string, want []string, opts Options) (*Reader, error) {
	s := &storage.Storage{}
	rc, err := s.Open(path)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(rc)
	cr.ReuseRecord = true
	header, err := cr.Read()
	if err != nil {
		_ = rc.Close()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("table %s has no header", path)
		}
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	header = append([]string(nil), header...)
	cr.FieldsPerRecord = len(header)

	if len(want) == 0 {
		want = header
	}
	positions := make(map[string]int, len(header))
	for i, name := range header {
		positions[name] = i
	}
	idx := make([]int, len(want))
	for i, name := range want {
		pos, ok := positions[name]
		if !ok {
			_ = rc.Close()
			return nil, fmt.Errorf("table %s is missing column %q", path, name)
		}
		idx[i] = pos
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Reader{
		rc:     rc,
		cr:     cr,
		path:   path,
		header: header,
		idx:    idx,
		opts:   opts,
		line:   1,
		row:    make(Row, len(want)),
	}, nil
}

// Header returns the file's full header.
func (r *Reader) Header() []string {
	return r.header
}

// Skipped returns how many malformed rows were dropped.
func (r *Reader) Skipped() int {
	return r.skipped
}

// Next returns the next row. The returned Row is reused by the following call.
// io.EOF marks the end of the table.
func (r *Reader) Next() (Row, error) {
	for {
		record, err := r.cr.Read()
		r.line++
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return nil, fmt.Errorf("failed to read %s: %w", r.path, err)
			}
			if err := r.malformed(err); err != nil {
				return nil, err
			}
			continue
		}

		valid := true
		for i, pos := range r.idx {
			if !utf8.ValidString(record[pos]) {
				valid = false
				break
			}
			r.row[i] = record[pos]
		}
		if !valid {
			if err := r.malformed(errors.New("invalid utf-8")); err != nil {
				return nil, err
			}
			continue
		}
		return r.row, nil
	}
}

// Malformed reports a row the caller could not interpret, such as a bad integer.
// It returns an error only in strict mode.
func (r *Reader) Malformed(cause error) error {
	return r.malformed(cause)
}

func (r *Reader) malformed(cause error) error {
	if r.opts.Strict {
		return fmt.Errorf("%w in %s line %d: %v", ErrMalformedRow, r.path, r.line, cause)
	}
	r.skipped++
	r.opts.Logger.Warn("Skipping malformed row", "file", r.path, "line", r.line, "error", cause)
	return nil
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	return r.rc.Close()
}

// Row is a projected record in the order of the requested columns.
type Row []string

// Int parses column i as a base-10 integer.
func (r Row) Int(i int) (int64, error) {
	v, err := strconv.ParseInt(r[i], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("column %d: %w", i, err)
	}
	return v, nil
}

// Bool parses column i, accepting the spellings the upstream tools emit.
func (r Row) Bool(i int) (bool, error) {
	switch r[i] {
	case "1", "true", "True", "TRUE":
		return true, nil
	case "0", "false", "False", "FALSE", "":
		return false, nil
	}
	return false, fmt.Errorf("column %d: invalid boolean %q", i, r[i])
}

// FormatInt is the inverse of Row.Int.
func FormatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

// FormatBool writes booleans the way the tables store them.
func FormatBool(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

// Each calls fn for every row of the table at path, closing it afterwards.
// Rows whose fn returns an error wrapping ErrMalformedRow are handled by the
// reader's strictness; any other error stops the scan.
func Each(path string, want []string, opts Options, fn func(Row) error) error {
	r, err := Open(path, want, opts)
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
		if err := fn(row); err != nil {
			if !errors.Is(err, ErrMalformedRow) {
				return err
			}
			if err := r.Malformed(err); err != nil {
				return err
			}
		}
	}
}
