package wikitext

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// IntroSection names the text before the first heading.
const IntroSection = "Introduction"

// Wikilink is an internal link found in a paragraph. Start and End are rune
// offsets of the anchor in the paragraph's plain text.
type Wikilink struct {
	Target string
	Anchor string
	Start  int
	End    int
}

// Paragraph is one block of plain text and the links inside it.
type Paragraph struct {
	SectionIdx  int
	SectionName string
	Plaintext   string
	Wikilinks   []Wikilink
}

// Document is the structured form of one page.
type Document struct {
	Paragraphs []Paragraph
	Categories []string
}

// Structurer turns raw wikitext into paragraphs and links. Implementations
// must be safe for concurrent use.
type Structurer interface {
	Structure(text string) (Document, error)
}

// forbiddenPrefixes are namespaces whose links never become edges.
var forbiddenPrefixes = map[string]bool{
	"category": true,
	"file":     true,
	"image":    true,
}

// droppedElements are tags removed together with their content.
var droppedElements = map[string]bool{
	"ref": true, "references": true, "gallery": true, "math": true, "chem": true,
	"ce": true, "score": true, "timeline": true, "syntaxhighlight": true, "source": true,
	"imagemap": true, "templatedata": true, "graph": true, "hiero": true,
	"includeonly": true, "categorytree": true, "mapframe": true, "indicator": true,
}

// layoutElements lose their tags but keep their content. They are not given
// to the HTML parser, which would move table text around.
var layoutElements = map[string]bool{
	"table": true, "tbody": true, "thead": true, "tfoot": true, "caption": true,
	"tr": true, "td": true, "th": true, "col": true, "colgroup": true,
	"pre": true, "hr": true, "br": true,
}

// inlineElements are the formatting tags left for goquery to strip.
var inlineElements = map[string]bool{
	"b": true, "i": true, "u": true, "s": true, "em": true, "strong": true,
	"small": true, "big": true, "sup": true, "sub": true, "span": true, "font": true,
	"abbr": true, "cite": true, "code": true, "tt": true, "kbd": true, "var": true,
	"samp": true, "q": true, "mark": true, "del": true, "ins": true, "strike": true,
	"center": true, "blockquote": true, "div": true, "p": true, "dfn": true,
	"bdi": true, "bdo": true, "nowiki": true, "poem": true, "section": true,
	"noinclude": true, "onlyinclude": true, "ul": true, "ol": true, "li": true,
	"dl": true, "dt": true, "dd": true,
}

var (
	markupTag = regexp.MustCompile(`^<(/?)([A-Za-z][A-Za-z0-9]*)` +
		`(?:\s+[A-Za-z_:][-A-Za-z0-9_:.]*(?:\s*=\s*(?:"[^"]*"|'[^']*'|[^\s"'<>/=]+))?)*\s*(/?)>`)
	magicWord = regexp.MustCompile(`__[A-Z]+__`)
	heading   = regexp.MustCompile(`^(={2,6})\s*(.+?)\s*={2,6}\s*$`)
)

// MarkupStructurer is a small structurer for article text. Inline HTML is
// stripped with goquery; templates, tables and formatting are dropped;
// wikilinks keep their anchor text.
type MarkupStructurer struct{}

// Structure implements Structurer.
func (MarkupStructurer) Structure(text string) (Document, error) {
	text = stripTemplates(text)
	text, err := stripHTML(text)
	if err != nil {
		return Document{}, err
	}
	text = magicWord.ReplaceAllString(text, "")

	var doc Document
	sectionIdx := 0
	sectionName := IntroSection
	var block []string

	flush := func() {
		if len(block) == 0 {
			return
		}
		plain, links, cats := parseInline(strings.Join(block, "\n"))
		block = block[:0]
		doc.Categories = append(doc.Categories, cats...)
		if plain == "" {
			return
		}
		doc.Paragraphs = append(doc.Paragraphs, Paragraph{
			SectionIdx:  sectionIdx,
			SectionName: sectionName,
			Plaintext:   plain,
			Wikilinks:   links,
		})
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if m := heading.FindStringSubmatch(line); m != nil {
			flush()
			sectionIdx++
			name, _, _ := parseInline(m[2])
			sectionName = name
			continue
		}
		if line == "" {
			flush()
			continue
		}
		line = strings.TrimLeft(line, "*#:; ")
		if line != "" {
			block = append(block, line)
		}
	}
	flush()
	return doc, nil
}

// stripTemplates removes {{...}} transclusions and {| ... |} tables,
// including nested ones.
func stripTemplates(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	braces, tables := 0, 0
	lineStart := true
	for i := 0; i < len(s); {
		switch {
		case strings.HasPrefix(s[i:], "{{"):
			braces++
			i += 2
		case braces > 0 && strings.HasPrefix(s[i:], "}}"):
			braces--
			i += 2
		case lineStart && strings.HasPrefix(s[i:], "{|"):
			tables++
			i += 2
		case tables > 0 && lineStart && strings.HasPrefix(s[i:], "|}"):
			tables--
			i += 2
		default:
			if braces == 0 && tables == 0 {
				b.WriteByte(s[i])
			}
			i++
		}
		lineStart = i > 0 && s[i-1] == '\n'
	}
	return b.String()
}

// stripHTML removes comments and inline HTML, dropping the content of
// reference-like elements and decoding entities. A '<' that does not open a
// known tag is kept as text.
func stripHTML(s string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(cleanMarkup(s)))
	if err != nil {
		return "", fmt.Errorf("failed to parse inline html: %w", err)
	}
	return doc.Text(), nil
}

// cleanMarkup escapes every '<' the HTML parser should not see as a tag and
// handles comments, dropped elements and layout tags itself. Only inline
// formatting tags are left in the output.
func cleanMarkup(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		lt := strings.IndexByte(s[i:], '<')
		if lt < 0 {
			b.WriteString(s[i:])
			break
		}
		b.WriteString(s[i : i+lt])
		i += lt

		if strings.HasPrefix(s[i:], "<!--") {
			end := strings.Index(s[i+4:], "-->")
			if end < 0 {
				break
			}
			i += 4 + end + 3
			continue
		}

		m := markupTag.FindStringSubmatch(s[i:])
		if m == nil {
			b.WriteString("&lt;")
			i++
			continue
		}
		name := strings.ToLower(m[2])
		closing, selfClosing := m[1] == "/", m[3] == "/"
		switch {
		case droppedElements[name]:
			i += len(m[0])
			if !closing && !selfClosing {
				if end := closingTag(s[i:], name); end >= 0 {
					i += end
				}
			}
		case layoutElements[name]:
			i += len(m[0])
			b.WriteByte(' ')
		case inlineElements[name]:
			i += len(m[0])
			if !selfClosing {
				b.WriteString(m[0])
			}
		default:
			b.WriteString("&lt;")
			i++
		}
	}
	return b.String()
}

// closingTag returns the index just past the first </name> in s, or -1.
func closingTag(s, name string) int {
	for i := 0; ; {
		j := strings.Index(s[i:], "</")
		if j < 0 {
			return -1
		}
		i += j + 2
		if len(s)-i < len(name) || !strings.EqualFold(s[i:i+len(name)], name) {
			continue
		}
		k := i + len(name)
		for k < len(s) && (s[k] == ' ' || s[k] == '\t' || s[k] == '\n') {
			k++
		}
		if k < len(s) && s[k] == '>' {
			return k + 1
		}
	}
}

// parseInline resolves links and formatting in a block of text. It returns
// the plain text, the internal links with rune offsets and any category names.
func parseInline(s string) (string, []Wikilink, []string) {
	var out strings.Builder
	var links []Wikilink
	var cats []string
	pos := 0

	emit := func(text string) {
		out.WriteString(text)
		pos += utf8.RuneCountInString(text)
	}

	for i := 0; i < len(s); {
		switch {
		case strings.HasPrefix(s[i:], "[["):
			end := matchBrackets(s, i)
			if end < 0 {
				emit(s[i:])
				i = len(s)
				continue
			}
			inner := s[i+2 : end]
			i = end + 2

			target, anchor, hasPipe := strings.Cut(inner, "|")
			target = strings.TrimSpace(target)
			leadingColon := strings.HasPrefix(target, ":")
			target = strings.TrimPrefix(target, ":")
			if prefix, rest, ok := strings.Cut(target, ":"); ok && forbiddenPrefixes[strings.ToLower(strings.TrimSpace(prefix))] {
				if strings.EqualFold(strings.TrimSpace(prefix), "category") && !leadingColon {
					cats = append(cats, strings.TrimSpace(rest))
				}
				continue
			}
			if !hasPipe || strings.TrimSpace(anchor) == "" {
				anchor = target
			}
			anchor, _, _ = parseInline(anchor)

			// Letters right after the link extend the anchor: [[bus]]es.
			trail := i
			for trail < len(s) && s[trail] >= 'a' && s[trail] <= 'z' {
				trail++
			}
			anchor += s[i:trail]
			i = trail

			if target == "" || anchor == "" {
				emit(anchor)
				continue
			}
			start := pos
			emit(anchor)
			links = append(links, Wikilink{Target: target, Anchor: anchor, Start: start, End: pos})

		case s[i] == '[' && isExternal(s[i+1:]):
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				emit(s[i:])
				i = len(s)
				continue
			}
			if _, label, ok := strings.Cut(s[i+1:i+end], " "); ok {
				emit(strings.TrimSpace(label))
			}
			i += end + 1

		case strings.HasPrefix(s[i:], "''"):
			for i < len(s) && s[i] == '\'' {
				i++
			}

		default:
			_, size := utf8.DecodeRuneInString(s[i:])
			emit(s[i : i+size])
			i += size
		}
	}

	return trimWithOffsets(out.String(), links), links, cats
}

func isExternal(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "//")
}

// matchBrackets returns the index of the "]]" closing the "[[" at i, or -1.
func matchBrackets(s string, i int) int {
	depth := 0
	for j := i; j+1 < len(s); {
		switch {
		case s[j] == '[' && s[j+1] == '[':
			depth++
			j += 2
		case s[j] == ']' && s[j+1] == ']':
			depth--
			if depth == 0 {
				return j
			}
			j += 2
		default:
			j++
		}
	}
	return -1
}

// trimWithOffsets trims surrounding whitespace and shifts link offsets to match.
func trimWithOffsets(s string, links []Wikilink) string {
	trimmed := strings.TrimLeftFunc(s, unicode.IsSpace)
	shift := utf8.RuneCountInString(s) - utf8.RuneCountInString(trimmed)
	if shift > 0 {
		for i := range links {
			links[i].Start -= shift
			links[i].End -= shift
		}
	}
	return strings.TrimRightFunc(trimmed, unicode.IsSpace)
}
