package mapreduce

import (
	"fmt"
	"sort"

	"github.com/dtnitsch/wikigraph/models"
)

// Sorted returns the counts ordered by count descending, then anchor text,
// then target id.
func (c AnchorCounts) Sorted() []models.AnchorTargetCount {
	out := make([]models.AnchorTargetCount, 0, len(c))
	for k, v := range c {
		out = append(out, models.AnchorTargetCount{AnchorText: k.AnchorText, TargetID: k.TargetID, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.AnchorText != b.AnchorText {
			return a.AnchorText < b.AnchorText
		}
		return a.TargetID < b.TargetID
	})
	return out
}

// Sorted returns page degrees ordered by in count descending, then out count
// descending, then page id.
func (d Degrees) Sorted() []models.PageDegree {
	out := make([]models.PageDegree, 0, len(d))
	for id, deg := range d {
		out = append(out, models.PageDegree{PageID: id, InCount: deg.In, OutCount: deg.Out})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.InCount != b.InCount {
			return a.InCount > b.InCount
		}
		if a.OutCount != b.OutCount {
			return a.OutCount > b.OutCount
		}
		return a.PageID < b.PageID
	})
	return out
}

// TopAnchors returns the n most frequent anchor/target pairs formatted as
// "anchor->target:count".
func TopAnchors(c AnchorCounts, n int) []string {
	sorted := c.Sorted()
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	out := make([]string, len(sorted))
	for i, a := range sorted {
		out[i] = fmt.Sprintf("%s->%d:%d", a.AnchorText, a.TargetID, a.Count)
	}
	return out
}
