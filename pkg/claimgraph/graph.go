// Package claimgraph answers "is this entity an instance of something under
// root R" over the subclass-of graph.
package claimgraph

import (
	"sort"
	"sync"

	"github.com/weaviate/sroar"

	"github.com/dtnitsch/wikigraph/models"
)

// Graph is the subclass-of relation over dense node indexes. Edges point from
// child to parent. A Graph is safe for concurrent use once built.
type Graph struct {
	ids      []int64
	index    map[int64]int32
	parents  [][]int32
	children [][]int32

	mu       sync.Mutex
	closures map[int64]*Closure
}

// NewGraph builds the graph from subclass-of edges. Deprecated edges are ignored.
func NewGraph(edges []models.ClaimEdge) *Graph {
	g := &Graph{
		index:    make(map[int64]int32),
		closures: make(map[int64]*Closure),
	}
	for _, e := range edges {
		if e.Rank == models.RankDeprecated {
			continue
		}
		child := g.node(e.SourceID)
		parent := g.node(e.TargetID)
		g.parents[child] = append(g.parents[child], parent)
		g.children[parent] = append(g.children[parent], child)
	}
	return g
}

func (g *Graph) node(id int64) int32 {
	if n, ok := g.index[id]; ok {
		return n
	}
	n := int32(len(g.ids))
	g.ids = append(g.ids, id)
	g.index[id] = n
	g.parents = append(g.parents, nil)
	g.children = append(g.children, nil)
	return n
}

// Nodes returns the number of distinct entities in the graph.
func (g *Graph) Nodes() int {
	return len(g.ids)
}

// Parents returns the direct superclasses of id.
func (g *Graph) Parents(id int64) []int64 {
	n, ok := g.index[id]
	if !ok {
		return nil
	}
	out := make([]int64, len(g.parents[n]))
	for i, p := range g.parents[n] {
		out[i] = g.ids[p]
	}
	return out
}

// Closure is the set of entities with a subclass-of path into Root, Root included.
type Closure struct {
	Root int64
	set  *sroar.Bitmap
}

// Contains reports whether id is in the closure.
func (c *Closure) Contains(id int64) bool {
	if id < 0 {
		return false
	}
	return c.set.Contains(uint64(id))
}

// Len returns the closure size.
func (c *Closure) Len() int {
	return c.set.GetCardinality()
}

// IDs returns the members in ascending order.
func (c *Closure) IDs() []int64 {
	raw := c.set.ToArray()
	out := make([]int64, len(raw))
	for i, v := range raw {
		out[i] = int64(v)
	}
	return out
}

// Closure computes the ancestor closure of root once and caches it. A root
// that is not in the graph has the closure {root}.
func (g *Graph) Closure(root int64) *Closure {
	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.closures[root]; ok {
		return c
	}
	c := g.closure(root)
	g.closures[root] = c
	return c
}

func (g *Graph) closure(root int64) *Closure {
	set := sroar.NewBitmap()
	set.Set(uint64(root))

	start, ok := g.index[root]
	if !ok {
		return &Closure{Root: root, set: set}
	}

	visited := make([]bool, len(g.ids))
	visited[start] = true
	queue := []int32{start}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, child := range g.children[n] {
			if visited[child] {
				continue
			}
			visited[child] = true
			set.Set(uint64(g.ids[child]))
			queue = append(queue, child)
		}
	}
	return &Closure{Root: root, set: set}
}

// sortClaims orders claims by source, then rank, then target.
func sortClaims(claims []models.ClaimEdge) {
	sort.Slice(claims, func(i, j int) bool {
		a, b := claims[i], claims[j]
		if a.SourceID != b.SourceID {
			return a.SourceID < b.SourceID
		}
		if a.Rank != b.Rank {
			return a.Rank < b.Rank
		}
		return a.TargetID < b.TargetID
	})
}
