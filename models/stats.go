package models

// AnchorTargetCount counts how often an anchor text linked to a target page.
type AnchorTargetCount struct {
	AnchorText string
	TargetID   int64
	Count      int64
}

// PageDegree holds the number of resolved links into and out of a page.
type PageDegree struct {
	PageID   int64
	InCount  int64
	OutCount int64
}

// LinkEdge is one resolved wikilink found in a paragraph.
type LinkEdge struct {
	SourcePageID int64
	SectionIdx   int
	ParagraphIdx int
	AnchorText   string
	AnchorStart  int
	TargetPageID int64
}
