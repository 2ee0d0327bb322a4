package wikitext

import (
	"regexp"
	"unicode/utf8"
)

// Template flags, in output column order.
var TemplateNames = []string{"good_article", "featured_article", "pseudoscience", "conspiracy_theories"}

var templatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i){{good article}}`),
	regexp.MustCompile(`(?i){{featured article}}`),
	regexp.MustCompile(`(?i){{pseudoscience(\|.*?)?}}`),
	regexp.MustCompile(`(?i){{conspiracy(_| )theories(\|.*?)?}}`),
}

// TemplateFlags reports, per TemplateNames entry, whether the raw page text
// transcludes that template.
func TemplateFlags(text string) []bool {
	flags := make([]bool, len(templatePatterns))
	for i, re := range templatePatterns {
		flags[i] = re.MatchString(text)
	}
	return flags
}

// Lengths returns the rune count of the whole article and of its first paragraph.
func Lengths(doc Document) (article, intro int) {
	for i, p := range doc.Paragraphs {
		n := utf8.RuneCountInString(p.Plaintext)
		article += n
		if i == 0 {
			intro = n
		}
	}
	return article, intro
}
