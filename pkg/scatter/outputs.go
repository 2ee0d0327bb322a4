package scatter

import (
	"fmt"

	"github.com/dtnitsch/wikigraph/pkg/storage"
	"github.com/dtnitsch/wikigraph/pkg/table"
)

// Outputs tracks the files one task writes. Nothing becomes visible under its
// final name until Close; Abort discards every file.
type Outputs struct {
	names  []string
	paths  map[string]string
	tables map[string]*table.Writer
	files  map[string]*storage.FileWriter
}

// NewOutputs returns an empty output set.
func NewOutputs() *Outputs {
	return &Outputs{
		paths:  make(map[string]string),
		tables: make(map[string]*table.Writer),
		files:  make(map[string]*storage.FileWriter),
	}
}

// Table opens a CSV table registered under name.
func (o *Outputs) Table(name, path string, header []string) (*table.Writer, error) {
	if _, dup := o.paths[name]; dup {
		return nil, fmt.Errorf("output %q opened twice", name)
	}
	w, err := table.Create(path, header)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	o.register(name, path)
	o.tables[name] = w
	return w, nil
}

// File opens a raw file registered under name.
func (o *Outputs) File(name, path string) (*storage.FileWriter, error) {
	if _, dup := o.paths[name]; dup {
		return nil, fmt.Errorf("output %q opened twice", name)
	}
	s := &storage.Storage{}
	fw, err := s.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	o.register(name, path)
	o.files[name] = fw
	return fw, nil
}

func (o *Outputs) register(name, path string) {
	o.names = append(o.names, name)
	o.paths[name] = path
}

// Close commits every file and returns the table name to path mapping. If any
// file fails, the rest are discarded.
func (o *Outputs) Close() (map[string]string, error) {
	for i, name := range o.names {
		var err error
		if w, ok := o.tables[name]; ok {
			err = w.Close()
		} else {
			err = o.files[name].Close()
		}
		if err != nil {
			for _, rest := range o.names[i+1:] {
				o.abort(rest)
			}
			return nil, fmt.Errorf("failed to close %s: %w", name, err)
		}
	}
	out := make(map[string]string, len(o.paths))
	for k, v := range o.paths {
		out[k] = v
	}
	return out, nil
}

// Abort discards every file not yet committed.
func (o *Outputs) Abort() {
	for _, name := range o.names {
		o.abort(name)
	}
}

func (o *Outputs) abort(name string) {
	if w, ok := o.tables[name]; ok {
		w.Abort()
		return
	}
	o.files[name].Abort()
}
