// Package splitter cuts the structured-knowledge JSON dump into fixed-size,
// compressed, one-entity-per-line chunks.
package splitter

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/dustin/go-humanize"

	"github.com/dtnitsch/wikigraph/pkg/storage"
)

// Options configures Split.
type Options struct {
	ChunkSize  int
	MaxRecords int64
	// Concurrency bounds the goroutines compressing the open chunk.
	Concurrency int
}

// Result describes the written chunks.
type Result struct {
	Chunks  []string
	Records int64
}

// Split streams the dump at input and writes chunks to chunkPath(i). The
// dump is a JSON array with one entity per line; the brackets and trailing
// commas are removed. Writing stops once MaxRecords entities are written.
// Each line goes straight to the open chunk, so memory does not grow with
// ChunkSize.
func Split(ctx context.Context, logger *slog.Logger, input string, chunkPath func(int) string, opts Options) (Result, error) {
	if opts.ChunkSize < 1 {
		return Result{}, fmt.Errorf("chunk size must be positive, got %d", opts.ChunkSize)
	}

	s := &storage.Storage{EncoderConcurrency: opts.Concurrency}
	rc, err := s.Open(input)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open dump: %w", err)
	}
	defer rc.Close()

	var res Result
	var chunk *storage.FileWriter
	inChunk := 0

	finish := func() error {
		if err := chunk.Close(); err != nil {
			return fmt.Errorf("failed to finish chunk %s: %w", chunk.Path(), err)
		}
		logger.Info("Wrote chunk", "chunk", len(res.Chunks), "path", chunk.Path(), "records", inChunk)
		res.Chunks = append(res.Chunks, chunk.Path())
		chunk, inChunk = nil, 0
		return nil
	}
	fail := func(err error) (Result, error) {
		if chunk != nil {
			chunk.Abort()
		}
		return res, err
	}

	reader := bufio.NewReaderSize(rc, 1<<20)
	for res.Records < opts.MaxRecords {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		line, readErr := reader.ReadBytes('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return fail(fmt.Errorf("failed to read dump: %w", readErr))
		}

		if entity := trimEntity(line); entity != nil {
			if chunk == nil {
				if chunk, err = s.Create(chunkPath(len(res.Chunks))); err != nil {
					return res, fmt.Errorf("failed to create chunk: %w", err)
				}
			}
			if err := writeLine(chunk, entity); err != nil {
				return fail(err)
			}
			res.Records++
			inChunk++
			if inChunk == opts.ChunkSize {
				if err := finish(); err != nil {
					return res, err
				}
			}
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
	}
	if chunk != nil {
		if err := finish(); err != nil {
			return res, err
		}
	}

	logger.Info("Split complete", "chunks", len(res.Chunks), "records", humanize.Comma(res.Records))
	return res, nil
}

// trimEntity strips the array punctuation around one dump line. It returns nil
// for lines without an entity.
func trimEntity(line []byte) []byte {
	line = bytes.TrimRight(line, "\r\n")
	line = bytes.TrimRight(line, ",")
	line = bytes.TrimSpace(line)
	if len(line) == 0 || bytes.Equal(line, []byte("[")) || bytes.Equal(line, []byte("]")) {
		return nil
	}
	return line
}

func writeLine(fw *storage.FileWriter, entity []byte) error {
	if _, err := fw.Write(entity); err != nil {
		return fmt.Errorf("failed to write chunk %s: %w", fw.Path(), err)
	}
	if _, err := fw.Write([]byte{'\n'}); err != nil {
		return fmt.Errorf("failed to write chunk %s: %w", fw.Path(), err)
	}
	return nil
}
