// Package wikitext extracts paragraphs, resolved links and per-page statistics
// from one file of the article XML dump.
package wikitext

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// ErrUndecodable is returned with a page whose title or text held bytes that
// are not valid UTF-8 or not allowed in XML. The reader stays usable.
var ErrUndecodable = errors.New("undecodable page")

// Page is one <page> element of the dump.
type Page struct {
	Title     string     `xml:"title"`
	Ns        int        `xml:"ns"`
	ID        int64      `xml:"id"`
	Redirect  *Redirect  `xml:"redirect"`
	Revisions []Revision `xml:"revision"`
}

// Redirect marks a redirect page.
type Redirect struct {
	Title string `xml:"title,attr"`
}

// Revision is one revision of a page. Article dumps carry only the latest.
type Revision struct {
	ID    int64  `xml:"id"`
	Model string `xml:"model"`
	Text  *Text  `xml:"text"`
}

// Text is the revision body. Deleted is set when the text was suppressed.
type Text struct {
	Deleted *string `xml:"deleted,attr"`
	Body    string  `xml:",chardata"`
}

// Wikitext returns the revision text, or false when the revision carries no
// usable wikitext.
func (r Revision) Wikitext() (string, bool) {
	if r.Text == nil || r.Text.Deleted != nil {
		return "", false
	}
	if r.Model != "" && r.Model != "wikitext" {
		return "", false
	}
	return r.Text.Body, true
}

// PageReader streams pages from a dump.
type PageReader struct {
	dec *xml.Decoder
}

// xmlChar maps everything outside the XML character range, including
// ill-formed UTF-8, to utf8.RuneError.
func xmlChar(r rune) rune {
	switch {
	case r == '\t' || r == '\n' || r == '\r':
		return r
	case r < 0x20, r >= 0xD800 && r < 0xE000, r == 0xFFFE, r == 0xFFFF, r > utf8.MaxRune:
		return utf8.RuneError
	}
	return r
}

// NewPageReader reads pages from r. Bytes the XML decoder would reject are
// replaced so one bad page never ends the stream.
func NewPageReader(r io.Reader) *PageReader {
	dec := xml.NewDecoder(transform.NewReader(r, runes.Map(xmlChar)))
	dec.Strict = false
	return &PageReader{dec: dec}
}

// Next returns the next page, or io.EOF after the last one. A page that held
// replaced bytes comes back with ErrUndecodable.
func (pr *PageReader) Next() (*Page, error) {
	for {
		tok, err := pr.dec.Token()
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read dump: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "page" {
			continue
		}
		var p Page
		if err := pr.dec.DecodeElement(&p, &start); err != nil {
			return nil, fmt.Errorf("failed to decode page: %w", err)
		}
		if p.undecodable() {
			return &p, fmt.Errorf("%w: page %d", ErrUndecodable, p.ID)
		}
		return &p, nil
	}
}

func (p *Page) undecodable() bool {
	bad := func(s string) bool { return strings.ContainsRune(s, utf8.RuneError) }
	if bad(p.Title) || (p.Redirect != nil && bad(p.Redirect.Title)) {
		return true
	}
	for _, r := range p.Revisions {
		if r.Text != nil && bad(r.Text.Body) {
			return true
		}
	}
	return false
}
