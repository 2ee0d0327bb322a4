package wikitext

import (
	"reflect"
	"testing"
)

func TestStructure(t *testing.T) {
	text := "'''Alpha''' is a [[Beta|letter]] and [[gamma]]s.\n\n" +
		"== History ==\n" +
		"See [[Category:Letters]] text [[Delta]].\n"

	doc, err := MarkupStructurer{}.Structure(text)
	if err != nil {
		t.Fatalf("Structure() error = %v", err)
	}
	if len(doc.Paragraphs) != 2 {
		t.Fatalf("paragraphs = %d, want 2: %+v", len(doc.Paragraphs), doc.Paragraphs)
	}

	intro := doc.Paragraphs[0]
	if intro.Plaintext != "Alpha is a letter and gammas." {
		t.Errorf("intro plaintext = %q", intro.Plaintext)
	}
	if intro.SectionIdx != 0 || intro.SectionName != IntroSection {
		t.Errorf("intro section = %d %q", intro.SectionIdx, intro.SectionName)
	}
	wantLinks := []Wikilink{
		{Target: "Beta", Anchor: "letter", Start: 11, End: 17},
		{Target: "gamma", Anchor: "gammas", Start: 22, End: 28},
	}
	if !reflect.DeepEqual(intro.Wikilinks, wantLinks) {
		t.Errorf("intro links = %+v, want %+v", intro.Wikilinks, wantLinks)
	}

	history := doc.Paragraphs[1]
	if history.SectionIdx != 1 || history.SectionName != "History" {
		t.Errorf("history section = %d %q", history.SectionIdx, history.SectionName)
	}
	if history.Plaintext != "See  text Delta." {
		t.Errorf("history plaintext = %q", history.Plaintext)
	}
	if len(history.Wikilinks) != 1 || history.Wikilinks[0].Target != "Delta" || history.Wikilinks[0].Start != 10 {
		t.Errorf("history links = %+v", history.Wikilinks)
	}
	if !reflect.DeepEqual(doc.Categories, []string{"Letters"}) {
		t.Errorf("categories = %v", doc.Categories)
	}

	article, introLen := Lengths(doc)
	if article != 45 || introLen != 29 {
		t.Errorf("Lengths() = %d, %d, want 45, 29", article, introLen)
	}
}

func TestStructureStripsMarkup(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"template", "{{Infobox|name={{nested}}}}Plain text.", []string{"Plain text."}},
		{"reference", "Text<ref>cite [[X]]</ref> more.<ref name=a/> end", []string{"Text more. end"}},
		{"table", "Before\n{|\n| cell\n|}\nAfter", []string{"Before", "After"}},
		{"external link", "See [https://example.org the site] now", []string{"See the site now"}},
		{"file link", "[[File:Pic.jpg|thumb|caption]]Body", []string{"Body"}},
		{"entity", "Fish &amp; chips", []string{"Fish & chips"}},
		{"list", "* first item", []string{"first item"}},
		{"less than", "Holds when x<y for all inputs.", []string{"Holds when x<y for all inputs."}},
		{"comment", "Before<!-- hidden [[X]] -->after", []string{"Beforeafter"}},
		{"unknown tag is text", "Use <textarea>input</textarea> here", []string{"Use <textarea>input</textarea> here"}},
		{"html table", "<table><tr><td>one</td><td>two</td></tr></table>", []string{"one  two"}},
		{"inline formatting", `A <small>tiny</small> <span style="color:red">word</span>`, []string{"A tiny word"}},
		{"source element", `Code <source lang="go">x := 1</source> done`, []string{"Code  done"}},
		{"break", "one<br/>two", []string{"one two"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := MarkupStructurer{}.Structure(tt.text)
			if err != nil {
				t.Fatalf("Structure() error = %v", err)
			}
			var got []string
			for _, p := range doc.Paragraphs {
				got = append(got, p.Plaintext)
				if len(p.Wikilinks) != 0 {
					t.Errorf("links = %+v, want none", p.Wikilinks)
				}
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("paragraphs = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStructureBareAngleBracketKeepsLinks(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		plain []string
		links [][]Wikilink
	}{
		{
			name:  "later paragraph",
			text:  "Holds when x<y for all inputs; see [[B]].\n\nMore on [[C]].",
			plain: []string{"Holds when x<y for all inputs; see B.", "More on C."},
			links: [][]Wikilink{
				{{Target: "B", Anchor: "B", Start: 35, End: 36}},
				{{Target: "C", Anchor: "C", Start: 8, End: 9}},
			},
		},
		{
			name:  "same paragraph",
			text:  "Values where x<y hold, see [[B]] and [[C]].",
			plain: []string{"Values where x<y hold, see B and C."},
			links: [][]Wikilink{{
				{Target: "B", Anchor: "B", Start: 27, End: 28},
				{Target: "C", Anchor: "C", Start: 33, End: 34},
			}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := MarkupStructurer{}.Structure(tt.text)
			if err != nil {
				t.Fatalf("Structure() error = %v", err)
			}
			var plain []string
			var links [][]Wikilink
			for _, p := range doc.Paragraphs {
				plain = append(plain, p.Plaintext)
				links = append(links, p.Wikilinks)
			}
			if !reflect.DeepEqual(plain, tt.plain) {
				t.Errorf("paragraphs = %q, want %q", plain, tt.plain)
			}
			if !reflect.DeepEqual(links, tt.links) {
				t.Errorf("links = %+v, want %+v", links, tt.links)
			}
		})
	}
}

func TestParseInlineOffsetsAreRunes(t *testing.T) {
	plain, links, _ := parseInline("  Über [[Zürich|Zürich]] und [[Bern]]")
	if plain != "Über Zürich und Bern" {
		t.Fatalf("plain = %q", plain)
	}
	want := []Wikilink{
		{Target: "Zürich", Anchor: "Zürich", Start: 5, End: 11},
		{Target: "Bern", Anchor: "Bern", Start: 16, End: 20},
	}
	if !reflect.DeepEqual(links, want) {
		t.Errorf("links = %+v, want %+v", links, want)
	}
}

func TestTemplateFlags(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []bool
	}{
		{"none", "plain text", []bool{false, false, false, false}},
		{"good", "{{Good article}}", []bool{true, false, false, false}},
		{"featured", "{{featured article}}", []bool{false, true, false, false}},
		{"pseudoscience with params", "{{Pseudoscience|date=May 2020}}", []bool{false, false, true, false}},
		{"conspiracy underscore", "{{Conspiracy_theories}}", []bool{false, false, false, true}},
		{"conspiracy space", "{{conspiracy theories|x}}", []bool{false, false, false, true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TemplateFlags(tt.text); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("TemplateFlags() = %v, want %v", got, tt.want)
			}
		})
	}
}
