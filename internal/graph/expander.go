// Package graph expands the connection graph around a profile.
package graph

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/apptype"
)

// NeighborSource is the read side of a connection store.
type NeighborSource interface {
	NeighborsOf(ctx context.Context, id int64, minScore float64) ([]apptype.Connection, error)
}

// Expander walks a NeighborSource breadth first.
type Expander struct {
	store NeighborSource
}

// NewExpander returns an Expander reading from store.
func NewExpander(store NeighborSource) *Expander {
	return &Expander{store: store}
}

type pairKey struct{ a, b int64 }

// Expand collects every profile within maxDepth hops of root over connections
// scoring at least minScore. Each node is reported once at its shortest-hop
// depth. Every qualifying connection between two reported nodes is returned
// once, with the depth of the level that first reached it. A maxDepth of zero
// or less yields the root alone.
func (e *Expander) Expand(ctx context.Context, root int64, minScore float64, maxDepth int) (apptype.GraphView, error) {
	if maxDepth < 0 {
		maxDepth = 0
	}
	depth := map[int64]int{root: 0}
	edges := make(map[pairKey]apptype.GraphEdge)
	frontier := []int64{root}

	for level := 0; len(frontier) > 0; level++ {
		expand := level < maxDepth
		var next []int64
		for _, id := range frontier {
			if err := ctx.Err(); err != nil {
				return apptype.GraphView{}, err
			}
			conns, err := e.store.NeighborsOf(ctx, id, minScore)
			if err != nil {
				return apptype.GraphView{}, fmt.Errorf("expand neighbors of %d: %w", id, err)
			}
			for _, c := range conns {
				other := c.Counterpart(id)
				if _, seen := depth[other]; !seen {
					if !expand {
						// last level: only edges inside the visited set count
						continue
					}
					depth[other] = level + 1
					next = append(next, other)
				}
				k := pairKey{c.UserA, c.UserB}
				if _, ok := edges[k]; !ok {
					edges[k] = apptype.GraphEdge{Connection: c, Depth: min(depth[c.UserA], depth[c.UserB]) + 1}
				}
			}
		}
		if !expand {
			break
		}
		slices.Sort(next)
		frontier = next
	}

	view := apptype.GraphView{
		Root:  root,
		Nodes: make([]apptype.GraphNode, 0, len(depth)),
		Edges: make([]apptype.GraphEdge, 0, len(edges)),
	}
	for id, d := range depth {
		view.Nodes = append(view.Nodes, apptype.GraphNode{ID: id, Depth: d})
	}
	slices.SortFunc(view.Nodes, func(a, b apptype.GraphNode) int {
		return cmp.Or(cmp.Compare(a.Depth, b.Depth), cmp.Compare(a.ID, b.ID))
	})
	for _, edge := range edges {
		view.Edges = append(view.Edges, edge)
	}
	slices.SortFunc(view.Edges, func(a, b apptype.GraphEdge) int {
		return cmp.Or(
			cmp.Compare(a.Depth, b.Depth),
			cmp.Compare(b.Connection.Result.OverallScore, a.Connection.Result.OverallScore),
			cmp.Compare(a.Connection.UserA, b.Connection.UserA),
			cmp.Compare(a.Connection.UserB, b.Connection.UserB),
		)
	})
	return view, nil
}
