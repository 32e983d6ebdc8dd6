package partitions

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"
)

// GraphGrowing is a pure Go fallback for GraphPartition. It orders the dual
// graph breadth first from the lowest unvisited vertex of each component
// and cuts that order into nparts chunks of equal size, which keeps every
// chunk close to contiguous.
type GraphGrowing struct{}

// PartGraphKway implements GraphPartitioner
func (GraphGrowing) PartGraphKway(g *DualGraph, nparts int) ([]int, Status) {
	n := g.NumVertices()
	if nparts < 1 {
		return nil, StatusInvalidInput
	}
	if n == 0 {
		return []int{}, StatusOK
	}

	order := bfsOrder(g)
	labels := make([]int, n)
	chunk := (n + nparts - 1) / nparts
	for pos, v := range order {
		labels[v] = min(pos/chunk, nparts-1)
	}
	return labels, StatusOK
}

// bfsOrder returns the vertices in breadth first order. Within a component
// vertices are sorted by depth and then by id, so the order does not depend
// on map iteration in the graph.
func bfsOrder(g *DualGraph) []int {
	ug := simple.NewUndirectedGraph()
	for v := 0; v < g.NumVertices(); v++ {
		ug.AddNode(simple.Node(v))
	}
	for v := 0; v < g.NumVertices(); v++ {
		for _, u := range g.Neighbors(v) {
			if int(u) > v {
				ug.SetEdge(ug.NewEdge(simple.Node(v), simple.Node(int64(u))))
			}
		}
	}

	type visit struct {
		v, depth int
	}
	order := make([]int, 0, g.NumVertices())
	var bf traverse.BreadthFirst
	for v := 0; v < g.NumVertices(); v++ {
		start := simple.Node(v)
		if bf.Visited(start) {
			continue
		}
		var component []visit
		bf.Walk(ug, start, func(n graph.Node, d int) bool {
			component = append(component, visit{v: int(n.ID()), depth: d})
			return false
		})
		sort.Slice(component, func(i, j int) bool {
			if component[i].depth != component[j].depth {
				return component[i].depth < component[j].depth
			}
			return component[i].v < component[j].v
		})
		for _, c := range component {
			order = append(order, c.v)
		}
	}
	return order
}
