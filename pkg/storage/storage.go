package storage

import (
	"bufio"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
)

// ErrMissingInput is returned when a stage input file or directory does not exist.
var ErrMissingInput = errors.New("missing input")

type Storage struct {
	// EncoderConcurrency bounds the goroutines each zstd stream compresses
	// with. Zero keeps the encoder default.
	EncoderConcurrency int
}

// FileStats holds metadata about a file without reading its contents.
type FileStats struct {
	SizeBytes int64
	ModTime   time.Time
}

func (s *Storage) SaveFile(filePath string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0750); err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}
	if err := os.WriteFile(filePath, content, 0644); err != nil {
		return fmt.Errorf("error saving file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !os.IsNotExist(err)
}

func (s *Storage) HasFile(fn string) bool {
	return fileExists(fn)
}

// GetFileStats returns metadata about a file using os.Stat (no I/O overhead).
func (s *Storage) GetFileStats(filePath string) (*FileStats, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("error getting file stats: %w", err)
	}

	return &FileStats{
		SizeBytes: info.Size(),
		ModTime:   info.ModTime(),
	}, nil
}

type readCloser struct {
	io.Reader
	closers []func() error
}

func (r *readCloser) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Open opens a file for reading, decompressing .bz2 and .zst transparently.
// A missing file is reported as ErrMissingInput.
func (s *Storage) Open(filePath string) (io.ReadCloser, error) {
	f, err := os.Open(filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrMissingInput, filePath)
	}
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}

	buffered := bufio.NewReaderSize(f, 1<<20)
	switch {
	case strings.HasSuffix(filePath, ".bz2"):
		return &readCloser{Reader: bzip2.NewReader(buffered), closers: []func() error{f.Close}}, nil
	case strings.HasSuffix(filePath, ".zst"):
		dec, err := zstd.NewReader(buffered)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("error opening zstd stream: %w", err)
		}
		return &readCloser{Reader: dec, closers: []func() error{
			func() error { dec.Close(); return nil },
			f.Close,
		}}, nil
	}
	return &readCloser{Reader: buffered, closers: []func() error{f.Close}}, nil
}

// FileWriter writes to a temporary file that only appears under its final
// name once Close succeeds. Abort discards it.
type FileWriter struct {
	path    string
	tmp     *os.File
	buf     *bufio.Writer
	enc     *zstd.Encoder
	w       io.Writer
	written int64
	done    bool
}

// Create starts an atomic write of filePath, creating parent directories.
// Files ending in .zst are zstd-compressed.
func (s *Storage) Create(filePath string) (*FileWriter, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0750); err != nil {
		return nil, fmt.Errorf("error creating directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(filePath), filepath.Base(filePath)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("error creating file: %w", err)
	}

	fw := &FileWriter{path: filePath, tmp: tmp, buf: bufio.NewWriterSize(tmp, 1<<20)}
	fw.w = fw.buf
	if strings.HasSuffix(filePath, ".zst") {
		var eopts []zstd.EOption
		if s.EncoderConcurrency > 0 {
			eopts = append(eopts, zstd.WithEncoderConcurrency(s.EncoderConcurrency))
		}
		enc, err := zstd.NewWriter(fw.buf, eopts...)
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
			return nil, fmt.Errorf("error creating zstd stream: %w", err)
		}
		fw.enc = enc
		fw.w = enc
	}
	return fw, nil
}

func (fw *FileWriter) Write(p []byte) (int, error) {
	n, err := fw.w.Write(p)
	fw.written += int64(n)
	return n, err
}

// Written returns the number of uncompressed bytes written so far.
func (fw *FileWriter) Written() int64 {
	return fw.written
}

// Path returns the final path of the file.
func (fw *FileWriter) Path() string {
	return fw.path
}

// Close flushes the file and renames it into place.
func (fw *FileWriter) Close() error {
	if fw.done {
		return nil
	}
	fw.done = true

	if fw.enc != nil {
		if err := fw.enc.Close(); err != nil {
			fw.discard()
			return fmt.Errorf("error finishing zstd stream: %w", err)
		}
	}
	if err := fw.buf.Flush(); err != nil {
		fw.discard()
		return fmt.Errorf("error flushing file: %w", err)
	}
	if err := fw.tmp.Close(); err != nil {
		_ = os.Remove(fw.tmp.Name())
		return fmt.Errorf("error closing file: %w", err)
	}
	if err := os.Rename(fw.tmp.Name(), fw.path); err != nil {
		_ = os.Remove(fw.tmp.Name())
		return fmt.Errorf("error renaming file into place: %w", err)
	}
	return nil
}

// Abort discards everything written. It is safe to call after Close.
func (fw *FileWriter) Abort() {
	if fw.done {
		return
	}
	fw.done = true
	if fw.enc != nil {
		_ = fw.enc.Close()
	}
	fw.discard()
}

func (fw *FileWriter) discard() {
	_ = fw.tmp.Close()
	_ = os.Remove(fw.tmp.Name())
}
