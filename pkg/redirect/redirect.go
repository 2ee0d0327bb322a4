// Package redirect collapses redirect chains so every surviving source points
// straight at a page that is not itself a redirect.
package redirect

import (
	"log/slog"
	"sort"

	"github.com/dtnitsch/wikigraph/models"
)

// Result is the outcome of Resolve.
type Result struct {
	Redirects []models.ResolvedRedirect
	// Cycles lists each distinct cycle once, as the ids in walk order.
	Cycles [][]int64
	// Dropped counts sources removed because their chain ran into a cycle.
	Dropped int
	// Duplicates counts raw rows ignored because their source was already seen.
	Duplicates int
}

// Attach joins raw redirect rows with the page table, adding the source title
// and the target id. Rows whose source id or target title is not a known page
// are dropped.
func Attach(raw []models.RawRedirect, pages []models.Page, logger *slog.Logger) []models.RedirectEdge {
	titles := make(map[int64]string, len(pages))
	ids := make(map[string]int64, len(pages))
	for _, p := range pages {
		titles[p.ID] = p.Title
		if _, ok := ids[p.Title]; !ok {
			ids[p.Title] = p.ID
		}
	}

	edges := make([]models.RedirectEdge, 0, len(raw))
	unknown := 0
	for _, r := range raw {
		source, ok := titles[r.SourceID]
		if !ok {
			unknown++
			continue
		}
		target, ok := ids[r.TargetTitle]
		if !ok {
			unknown++
			continue
		}
		edges = append(edges, models.RedirectEdge{
			SourceID:    r.SourceID,
			SourceTitle: source,
			TargetID:    target,
			TargetTitle: r.TargetTitle,
		})
	}
	if unknown > 0 {
		logger.Info("Dropped redirects with unknown endpoints", "count", unknown)
	}
	return edges
}

type hop struct {
	target int64
	title  string
}

type walkState uint8

const (
	unvisited walkState = iota
	onPath
	terminal
	cyclic
)

// Resolve follows every chain to its terminal page. A source whose chain
// reaches a cycle is dropped, together with every member of the cycle.
// Output is sorted by source id. Resolving an already resolved table is a
// no-op.
func Resolve(edges []models.RedirectEdge, logger *slog.Logger) Result {
	var res Result

	index := make(map[int64]hop, len(edges))
	sources := make(map[int64]string, len(edges))
	order := make([]int64, 0, len(edges))
	for _, e := range edges {
		if _, dup := index[e.SourceID]; dup {
			res.Duplicates++
			logger.Debug("Ignoring duplicate redirect source", "source_id", e.SourceID, "target_id", e.TargetID)
			continue
		}
		index[e.SourceID] = hop{target: e.TargetID, title: e.TargetTitle}
		sources[e.SourceID] = e.SourceTitle
		order = append(order, e.SourceID)
	}
	if res.Duplicates > 0 {
		logger.Warn("Ignored duplicate redirect sources", "count", res.Duplicates)
	}

	state := make(map[int64]walkState, len(index))
	final := make(map[int64]hop, len(index))
	var path []int64

	for _, start := range order {
		if state[start] != unvisited {
			continue
		}

		path = path[:0]
		node := start
		var end hop
		var outcome walkState
		for {
			switch state[node] {
			case terminal:
				end, outcome = final[node], terminal
			case cyclic:
				outcome = cyclic
			case onPath:
				res.Cycles = append(res.Cycles, cycleFrom(path, node))
				outcome = cyclic
			default:
				next, isSource := index[node]
				if !isSource {
					// node is the terminal page; the last hop carries its title.
					end, outcome = final[path[len(path)-1]], terminal
					break
				}
				state[node] = onPath
				path = append(path, node)
				final[node] = next
				node = next.target
				continue
			}
			break
		}

		for _, id := range path {
			state[id] = outcome
			if outcome == terminal {
				final[id] = end
			} else {
				delete(final, id)
			}
		}
	}

	res.Redirects = make([]models.ResolvedRedirect, 0, len(final))
	for _, id := range order {
		if state[id] != terminal {
			res.Dropped++
			continue
		}
		h := final[id]
		res.Redirects = append(res.Redirects, models.ResolvedRedirect{
			SourceID:    id,
			SourceTitle: sources[id],
			TargetID:    h.target,
			TargetTitle: h.title,
		})
	}
	sort.Slice(res.Redirects, func(i, j int) bool {
		return res.Redirects[i].SourceID < res.Redirects[j].SourceID
	})

	for _, c := range res.Cycles {
		logger.Warn("Dropped redirect cycle", "nodes", c)
	}
	if res.Dropped > 0 {
		logger.Info("Redirect sources dropped by cycles", "count", res.Dropped)
	}
	return res
}

// cycleFrom returns the tail of path starting at the repeated node.
func cycleFrom(path []int64, repeated int64) []int64 {
	for i, id := range path {
		if id == repeated {
			return append([]int64(nil), path[i:]...)
		}
	}
	return []int64{repeated}
}

// Edges converts resolved rows back into plain edges, so a resolved table can
// be fed through Resolve again.
func Edges(resolved []models.ResolvedRedirect) []models.RedirectEdge {
	out := make([]models.RedirectEdge, len(resolved))
	for i, r := range resolved {
		out[i] = models.RedirectEdge(r)
	}
	return out
}
