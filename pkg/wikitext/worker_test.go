package wikitext

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/dtnitsch/wikigraph/models"
	"github.com/dtnitsch/wikigraph/pkg/layout"
	"github.com/dtnitsch/wikigraph/pkg/scatter"
	"github.com/dtnitsch/wikigraph/pkg/table"
	"github.com/dtnitsch/wikigraph/pkg/titleindex"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// threePages is A(1) and C(3) as articles with B(2) redirecting to C.
func threePages() *titleindex.Index {
	pages := []models.Page{
		{ID: 1, Title: "A"},
		{ID: 2, Title: "B", IsRedirect: true},
		{ID: 3, Title: "C"},
	}
	resolved := []models.ResolvedRedirect{{SourceID: 2, SourceTitle: "B", TargetID: 3, TargetTitle: "C"}}
	return titleindex.Build(pages, resolved)
}

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	var rows [][]string
	err := table.Each(path, nil, table.Options{Strict: true}, func(r table.Row) error {
		rows = append(rows, append([]string(nil), r...))
		return nil
	})
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return rows
}

func runDump(t *testing.T, opts Options, pages ...fixturePage) (scatter.Manifest, error) {
	t.Helper()
	dir := t.TempDir()
	input := filepath.Join(dir, "enwiki-20240101-pages-articles1.xml-p1p10")
	if err := os.WriteFile(input, []byte(dumpXML(pages...)), 0644); err != nil {
		t.Fatal(err)
	}
	opts.Layout = layout.Layout{DataPath: dir, Wiki: "enwiki", WikipediaDate: "20240101", WikidataDate: "20240102"}
	w := NewWorker(discardLogger(), threePages(), nil, opts)
	return w.Process(context.Background(), scatter.Task{Index: 3, Input: input})
}

var articlePages = []fixturePage{
	{id: 1, title: "A", text: "{{Good article}}\nLinks to [[B]] and [[C|see]] and [[Missing]].\n\n== More ==\nSecond paragraph."},
	{id: 2, title: "B", redirect: "C", text: "#REDIRECT [[C]]"},
	{id: 3, title: "C", text: "Back to [[A]]."},
	{id: 9, ns: 1, title: "Talk:A", text: "See [[A]]."},
}

func TestProcessRoutesRedirectLinks(t *testing.T) {
	m, err := runDump(t, Options{}, articlePages...)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if m.Records != 2 {
		t.Errorf("Records = %d, want 2", m.Records)
	}

	tests := []struct {
		table string
		want  [][]string
	}{
		{layout.TableLinks, [][]string{
			{"1", "0", "0", "B", "9", "3"},
			{"1", "0", "0", "see", "15", "3"},
			{"3", "0", "0", "A", "8", "1"},
		}},
		{layout.TableParagraphs, [][]string{
			{"1", "0", "0", "Links to B and see and Missing."},
			{"1", "1", "1", "Second paragraph."},
			{"3", "0", "0", "Back to A."},
		}},
		{layout.TableSectionNames, [][]string{
			{"1", "0", IntroSection},
			{"3", "0", IntroSection},
		}},
		{layout.TableTemplates, [][]string{
			{"1", "1", "0", "0", "0"},
			{"3", "0", "0", "0", "0"},
		}},
		{layout.TableLengths, [][]string{
			{"1", "48", "31"},
			{"3", "10", "10"},
		}},
		{layout.TableAnchorTarget, [][]string{
			{"A", "1", "1"},
			{"B", "3", "1"},
			{"see", "3", "1"},
		}},
		{layout.TableInOutCounts, [][]string{
			{"3", "2", "1"},
			{"1", "1", "2"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			path, ok := m.Outputs[tt.table]
			if !ok {
				t.Fatalf("manifest has no %s", tt.table)
			}
			if want := filepath.Base(path); want != "wikigraph-enwiki-20240101-"+tt.table+"-0003.csv" {
				t.Errorf("chunk file = %s", want)
			}
			if got := readRows(t, path); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("rows = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProcessAnnotatedText(t *testing.T) {
	m, err := runDump(t, Options{}, articlePages...)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	f, err := os.Open(m.Outputs[layout.TableLinkAnnotated])
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var docs []AnnotatedPage
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var doc AnnotatedPage
		if err := json.Unmarshal(sc.Bytes(), &doc); err != nil {
			t.Fatalf("line %q: %v", sc.Text(), err)
		}
		docs = append(docs, doc)
	}
	if len(docs) != 2 {
		t.Fatalf("documents = %d, want 2", len(docs))
	}

	a := docs[0]
	if a.PageID != 1 || a.RevisionID != 100 || a.PageTitle != "A" {
		t.Errorf("document header = %d %d %q", a.PageID, a.RevisionID, a.PageTitle)
	}
	if len(a.Paragraphs) != 2 {
		t.Fatalf("paragraphs = %d, want 2", len(a.Paragraphs))
	}
	if !reflect.DeepEqual(a.Paragraphs[0].TargetPageIDs, []int64{3, 3}) {
		t.Errorf("target ids = %v, want [3 3]", a.Paragraphs[0].TargetPageIDs)
	}
	if !reflect.DeepEqual(a.Paragraphs[0].AnchorSpans, [][2]int{{9, 10}, {15, 18}}) {
		t.Errorf("anchor spans = %v", a.Paragraphs[0].AnchorSpans)
	}
	if a.Paragraphs[1].SectionName != "More" || len(a.Paragraphs[1].TargetPageIDs) != 0 {
		t.Errorf("second paragraph = %+v", a.Paragraphs[1])
	}
}

func TestProcessMaxRecords(t *testing.T) {
	m, err := runDump(t, Options{MaxRecords: 1}, articlePages...)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if m.Records != 1 {
		t.Errorf("Records = %d, want 1", m.Records)
	}
	if rows := readRows(t, m.Outputs[layout.TableLengths]); len(rows) != 1 || rows[0][0] != "1" {
		t.Errorf("lengths rows = %v, want only page 1", rows)
	}
}

func TestProcessSkipsUndecodablePage(t *testing.T) {
	m, err := runDump(t, Options{},
		fixturePage{id: 1, title: "A", text: "Links to [[C]]."},
		fixturePage{id: 3, title: "C", text: "Bad byte \xff here [[A]]."},
		fixturePage{id: 4, title: "D", text: "See [[A]]."},
	)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if m.Records != 2 {
		t.Errorf("Records = %d, want 2", m.Records)
	}
	want := [][]string{
		{"1", "0", "0", "C", "9", "3"},
		{"4", "0", "0", "A", "4", "1"},
	}
	if got := readRows(t, m.Outputs[layout.TableLinks]); !reflect.DeepEqual(got, want) {
		t.Errorf("links rows = %q, want %q", got, want)
	}
}

func TestProcessFailureLeavesNoOutput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "broken.xml")
	if err := os.WriteFile(input, []byte("<mediawiki><page><title>A</title><id>1"), 0644); err != nil {
		t.Fatal(err)
	}
	l := layout.Layout{DataPath: dir, Wiki: "enwiki", WikipediaDate: "20240101"}
	w := NewWorker(discardLogger(), threePages(), nil, Options{Layout: l})
	if _, err := w.Process(context.Background(), scatter.Task{Index: 0, Input: input}); err == nil {
		t.Fatal("Process() error = nil for truncated dump")
	}
	if _, err := os.Stat(l.ChunkPath(layout.DatasetWikipedia, layout.TableLinks, 0)); !os.IsNotExist(err) {
		t.Errorf("links chunk exists after failure: %v", err)
	}
}
