package mapreduce

import "github.com/dtnitsch/wikigraph/models"

// AnchorKey identifies one anchor text pointing at one target page.
type AnchorKey struct {
	AnchorText string
	TargetID   int64
}

// AnchorCounts maps anchor/target pairs to how often they were linked.
type AnchorCounts map[AnchorKey]int64

// Degree holds link counts into and out of a page.
type Degree struct {
	In  int64
	Out int64
}

// Degrees maps page ids to their link counts.
type Degrees map[int64]Degree

// Map counts the links of a single partition.
func Map(links []models.LinkEdge) (AnchorCounts, Degrees) {
	counts := make(AnchorCounts)
	degrees := make(Degrees)
	for _, l := range links {
		counts[AnchorKey{AnchorText: l.AnchorText, TargetID: l.TargetPageID}]++

		out := degrees[l.SourcePageID]
		out.Out++
		degrees[l.SourcePageID] = out

		in := degrees[l.TargetPageID]
		in.In++
		degrees[l.TargetPageID] = in
	}
	return counts, degrees
}

// MergeAnchorCounts returns the key-wise sum of a and b. Neither input is modified.
func MergeAnchorCounts(a, b AnchorCounts) AnchorCounts {
	out := make(AnchorCounts, len(a)+len(b))
	for k, v := range a {
		out[k] += v
	}
	for k, v := range b {
		out[k] += v
	}
	return out
}

// MergeDegrees returns the page-wise sum of a and b. Neither input is modified.
func MergeDegrees(a, b Degrees) Degrees {
	out := make(Degrees, len(a)+len(b))
	for _, src := range []Degrees{a, b} {
		for id, d := range src {
			cur := out[id]
			cur.In += d.In
			cur.Out += d.Out
			out[id] = cur
		}
	}
	return out
}

// ReduceAnchorCounts folds all partition counters into one.
func ReduceAnchorCounts(parts []AnchorCounts) AnchorCounts {
	final := make(AnchorCounts)
	for _, p := range parts {
		for k, v := range p {
			final[k] += v
		}
	}
	return final
}

// ReduceDegrees folds all partition degree tables into one.
func ReduceDegrees(parts []Degrees) Degrees {
	final := make(Degrees)
	for _, p := range parts {
		for id, d := range p {
			cur := final[id]
			cur.In += d.In
			cur.Out += d.Out
			final[id] = cur
		}
	}
	return final
}
