package claimgraph

import (
	"fmt"

	"github.com/dtnitsch/wikigraph/models"
)

// Match is the instance-of edge that put an entity under a root.
type Match struct {
	TargetID int64
	Rank     models.Rank
}

// Tag is the outcome for one root.
type Tag struct {
	Root    int64
	Matched bool
	Match   Match
}

// Tags holds one Tag per configured root, in root order.
type Tags []Tag

// Any reports whether at least one root matched.
func (t Tags) Any() bool {
	for _, tag := range t {
		if tag.Matched {
			return true
		}
	}
	return false
}

// Column returns the output column name for a root.
func Column(root int64) string {
	return fmt.Sprintf("isa_Q%d", root)
}

// Columns returns the output column names for roots, in order.
func Columns(roots []int64) []string {
	cols := make([]string, len(roots))
	for i, r := range roots {
		cols[i] = Column(r)
	}
	return cols
}

// Tag evaluates every entity with instance-of edges against each root's
// closure. Deprecated edges never qualify. When several edges qualify for a
// root, the one with the lowest rank wins, then the smallest target id.
func (g *Graph) Tag(instances []models.ClaimEdge, roots []int64) map[int64]Tags {
	claims := make([]models.ClaimEdge, 0, len(instances))
	for _, c := range instances {
		if c.Rank != models.RankDeprecated {
			claims = append(claims, c)
		}
	}
	sortClaims(claims)

	closures := make([]*Closure, len(roots))
	for i, r := range roots {
		closures[i] = g.Closure(r)
	}

	out := make(map[int64]Tags)
	for start := 0; start < len(claims); {
		end := start
		for end < len(claims) && claims[end].SourceID == claims[start].SourceID {
			end++
		}
		group := claims[start:end]

		tags := make(Tags, len(roots))
		for i, c := range closures {
			tags[i].Root = c.Root
			for _, claim := range group {
				if c.Contains(claim.TargetID) {
					tags[i].Matched = true
					tags[i].Match = Match{TargetID: claim.TargetID, Rank: claim.Rank}
					break
				}
			}
		}
		out[group[0].SourceID] = tags
		start = end
	}
	return out
}
