package mapreduce

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dtnitsch/wikigraph/pkg/table"
)

// Column layouts of the statistics tables. Chunk and merged files share them.
var (
	AnchorTargetHeader = []string{"anchor_text", "target_id", "count"}
	InOutHeader        = []string{"page_id", "in_count", "out_count"}
)

// ReadAnchorCounts loads one anchor-target-counts file. Repeated keys are summed.
func ReadAnchorCounts(path string, logger *slog.Logger) (AnchorCounts, error) {
	counts := make(AnchorCounts)
	err := table.Each(path, AnchorTargetHeader, table.Options{Logger: logger}, func(r table.Row) error {
		target, err := r.Int(1)
		if err != nil {
			return errors.Join(table.ErrMalformedRow, err)
		}
		n, err := r.Int(2)
		if err != nil {
			return errors.Join(table.ErrMalformedRow, err)
		}
		counts[AnchorKey{AnchorText: r[0], TargetID: target}] += n
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read anchor counts %s: %w", path, err)
	}
	return counts, nil
}

// ReadDegrees loads one in-out-counts file. Repeated pages are summed.
func ReadDegrees(path string, logger *slog.Logger) (Degrees, error) {
	degrees := make(Degrees)
	err := table.Each(path, InOutHeader, table.Options{Logger: logger}, func(r table.Row) error {
		id, err := r.Int(0)
		if err != nil {
			return errors.Join(table.ErrMalformedRow, err)
		}
		in, err := r.Int(1)
		if err != nil {
			return errors.Join(table.ErrMalformedRow, err)
		}
		out, err := r.Int(2)
		if err != nil {
			return errors.Join(table.ErrMalformedRow, err)
		}
		d := degrees[id]
		d.In += in
		d.Out += out
		degrees[id] = d
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read degrees %s: %w", path, err)
	}
	return degrees, nil
}

// WriteAnchorCounts writes c in Sorted order.
func WriteAnchorCounts(w *table.Writer, c AnchorCounts) error {
	for _, a := range c.Sorted() {
		if err := w.Write([]string{a.AnchorText, table.FormatInt(a.TargetID), table.FormatInt(a.Count)}); err != nil {
			return err
		}
	}
	return nil
}

// WriteDegrees writes d in Sorted order.
func WriteDegrees(w *table.Writer, d Degrees) error {
	for _, p := range d.Sorted() {
		if err := w.Write([]string{table.FormatInt(p.PageID), table.FormatInt(p.InCount), table.FormatInt(p.OutCount)}); err != nil {
			return err
		}
	}
	return nil
}
