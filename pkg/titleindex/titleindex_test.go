package titleindex

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/dtnitsch/wikigraph/models"
	"github.com/dtnitsch/wikigraph/pkg/redirect"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuild(t *testing.T) {
	pages := []models.Page{
		{ID: 3, Title: "C"},
		{ID: 1, Title: "A"},
		{ID: 2, Title: "B", IsRedirect: true},
		{ID: 4, Title: "Loop", IsRedirect: true},
		{ID: 5, Title: "Unflagged"},
	}
	resolved := []models.ResolvedRedirect{
		{SourceID: 2, SourceTitle: "B", TargetID: 3, TargetTitle: "C"},
		{SourceID: 5, SourceTitle: "Unflagged", TargetID: 1, TargetTitle: "A"},
	}

	idx := Build(pages, resolved)

	want := []models.TitleIndexEntry{
		{SourceID: 1, SourceTitle: "A", TargetID: 1, TargetTitle: "A"},
		{SourceID: 2, SourceTitle: "B", TargetID: 3, TargetTitle: "C", IsRedirect: true},
		{SourceID: 3, SourceTitle: "C", TargetID: 3, TargetTitle: "C"},
		{SourceID: 5, SourceTitle: "Unflagged", TargetID: 1, TargetTitle: "A", IsRedirect: true},
	}
	if !reflect.DeepEqual(idx.Entries(), want) {
		t.Errorf("Entries() = %v, want %v", idx.Entries(), want)
	}
	if _, ok := idx.Lookup("Loop"); ok {
		t.Error("Lookup(Loop) found a cycled redirect")
	}
}

func TestEndToEndRouting(t *testing.T) {
	pages := []models.Page{
		{ID: 1, Title: "A"},
		{ID: 2, Title: "B", IsRedirect: true},
		{ID: 3, Title: "C"},
	}
	edges := redirect.Attach([]models.RawRedirect{{SourceID: 2, TargetTitle: "C"}}, pages, discardLogger())
	res := redirect.Resolve(edges, discardLogger())
	idx := Build(pages, res.Redirects)

	entry, ok := idx.Lookup("B")
	if !ok {
		t.Fatal("Lookup(B) not found")
	}
	if entry.TargetID != 3 {
		t.Errorf("Lookup(B).TargetID = %d, want 3", entry.TargetID)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"united states", "United_states"},
		{"Foo bar#History", "Foo_bar"},
		{" ängström ", "Ängström"},
		{"#Section", ""},
		{"Already_Fine", "Already_Fine"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriteLoad(t *testing.T) {
	idx := Build([]models.Page{{ID: 1, Title: "A"}, {ID: 2, Title: "B", IsRedirect: true}},
		[]models.ResolvedRedirect{{SourceID: 2, SourceTitle: "B", TargetID: 1, TargetTitle: "A"}})

	path := filepath.Join(t.TempDir(), "title-mapper.csv")
	if err := idx.Write(path); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	loaded, err := Load(path, discardLogger())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(loaded.Entries(), idx.Entries()) {
		t.Errorf("Load() = %v, want %v", loaded.Entries(), idx.Entries())
	}
	if e, ok := loaded.Lookup("b"); !ok || e.TargetID != 1 {
		t.Errorf("Lookup(b) = %v, %v", e, ok)
	}
}

func TestReadPagesAndProps(t *testing.T) {
	dir := t.TempDir()
	pagePath := filepath.Join(dir, "page.csv")
	propPath := filepath.Join(dir, "props.csv")
	if err := os.WriteFile(pagePath, []byte("page_id,page_namespace,page_title,page_is_redirect\n1,0,A,0\n2,0,B,1\nx,0,Bad,0\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(propPath, []byte("page_id,wikibase_item\n1,Q42\n2,\n3,nope\n"), 0644); err != nil {
		t.Fatal(err)
	}

	pages, err := ReadPages(pagePath, discardLogger())
	if err != nil {
		t.Fatalf("ReadPages() error = %v", err)
	}
	wantPages := []models.Page{{ID: 1, Title: "A"}, {ID: 2, Title: "B", IsRedirect: true}}
	if !reflect.DeepEqual(pages, wantPages) {
		t.Errorf("ReadPages() = %v, want %v", pages, wantPages)
	}

	props, err := ReadPageProps(propPath, discardLogger())
	if err != nil {
		t.Fatalf("ReadPageProps() error = %v", err)
	}
	wantProps := []models.PageProp{{PageID: 1, ItemID: 42}}
	if !reflect.DeepEqual(props, wantProps) {
		t.Errorf("ReadPageProps() = %v, want %v", props, wantProps)
	}
}
