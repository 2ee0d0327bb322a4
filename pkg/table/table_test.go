package table

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func writeRaw(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestWriterRoundTrip(t *testing.T) {
	for _, name := range []string{"t.csv", "t.csv.zst"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			w, err := Create(path, []string{"source_id", "title"})
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			if err := w.Write([]string{"1", "Foo, \"bar\""}); err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			if err := w.Write([]string{"2"}); !errors.Is(err, ErrMalformedRow) {
				t.Errorf("Write() short row error = %v, want ErrMalformedRow", err)
			}
			if err := w.Close(); err != nil {
				t.Fatalf("Close() error = %v", err)
			}
			if w.Rows() != 1 {
				t.Errorf("Rows() = %d, want 1", w.Rows())
			}

			var got [][]string
			err = Each(path, []string{"title", "source_id"}, Options{}, func(r Row) error {
				got = append(got, append([]string(nil), r...))
				return nil
			})
			if err != nil {
				t.Fatalf("Each() error = %v", err)
			}
			if len(got) != 1 || got[0][0] != "Foo, \"bar\"" || got[0][1] != "1" {
				t.Errorf("Each() rows = %v", got)
			}
		})
	}
}

func TestWriterAbortLeavesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone.csv")
	w, err := Create(path, []string{"a"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	_ = w.Write([]string{"x"})
	w.Abort()

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("aborted table exists, stat error = %v", err)
	}
}

func TestReaderMalformedRows(t *testing.T) {
	content := "id,title\n1,A\n2\n3,C\n4,\xff\xfe\n"

	tests := []struct {
		name     string
		strict   bool
		wantRows int
		wantErr  bool
	}{
		{"lenient skips", false, 2, false},
		{"strict fails", true, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeRaw(t, "rows.csv", content)
			r, err := Open(path, nil, Options{Strict: tt.strict})
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer r.Close()

			rows := 0
			for {
				_, err := r.Next()
				if err == io.EOF {
					break
				}
				if err != nil {
					if !tt.wantErr {
						t.Fatalf("Next() error = %v", err)
					}
					if !errors.Is(err, ErrMalformedRow) {
						t.Errorf("Next() error = %v, want ErrMalformedRow", err)
					}
					break
				}
				rows++
			}
			if rows != tt.wantRows {
				t.Errorf("rows = %d, want %d", rows, tt.wantRows)
			}
			if !tt.strict && r.Skipped() != 2 {
				t.Errorf("Skipped() = %d, want 2", r.Skipped())
			}
		})
	}
}

func TestOpenMissingColumn(t *testing.T) {
	path := writeRaw(t, "cols.csv", "a,b\n1,2\n")
	if _, err := Open(path, []string{"c"}, Options{}); err == nil {
		t.Error("Open() with unknown column error = nil")
	}
}

func TestEachCallerMalformed(t *testing.T) {
	path := writeRaw(t, "ids.csv", "id\n1\nx\n3\n")

	var sum int64
	err := Each(path, []string{"id"}, Options{}, func(r Row) error {
		v, err := r.Int(0)
		if err != nil {
			return errors.Join(ErrMalformedRow, err)
		}
		sum += v
		return nil
	})
	if err != nil {
		t.Fatalf("Each() error = %v", err)
	}
	if sum != 4 {
		t.Errorf("sum = %d, want 4", sum)
	}

	err = Each(path, []string{"id"}, Options{Strict: true}, func(r Row) error {
		if _, err := r.Int(0); err != nil {
			return errors.Join(ErrMalformedRow, err)
		}
		return nil
	})
	if !errors.Is(err, ErrMalformedRow) {
		t.Errorf("strict Each() error = %v, want ErrMalformedRow", err)
	}
}

func TestRowBool(t *testing.T) {
	tests := []struct {
		in      string
		want    bool
		wantErr bool
	}{
		{"1", true, false},
		{"True", true, false},
		{"0", false, false},
		{"", false, false},
		{"maybe", false, true},
	}
	for _, tt := range tests {
		got, err := Row{tt.in}.Bool(0)
		if (err != nil) != tt.wantErr {
			t.Errorf("Bool(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("Bool(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
