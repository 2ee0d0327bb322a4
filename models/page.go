package models

// Page is one row of the article-namespace page table.
type Page struct {
	ID         int64
	Title      string
	IsRedirect bool
}

// RawRedirect is a redirect as it comes out of the SQL dump: a source page id
// and the title it points at.
type RawRedirect struct {
	SourceID    int64
	TargetTitle string
}

// RedirectEdge is a redirect with both ends resolved to page ids.
// There is at most one edge per source by convention of the upstream data.
type RedirectEdge struct {
	SourceID    int64
	SourceTitle string
	TargetID    int64
	TargetTitle string
}

// ResolvedRedirect is a RedirectEdge whose target is never itself a redirect source.
type ResolvedRedirect RedirectEdge

// TitleIndexEntry maps a known title to the canonical page it refers to.
type TitleIndexEntry struct {
	SourceID    int64
	SourceTitle string
	TargetID    int64
	TargetTitle string
	IsRedirect  bool
}

// PageProp links a page to its structured-knowledge item.
type PageProp struct {
	PageID int64
	ItemID int64
}
