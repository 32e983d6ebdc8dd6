package partitions

import (
	"github.com/cmesse/belfem-sub005/mesh"
)

// DualGraph is the element adjacency of the flagged elements in CSR form.
// Vertex v stands for element Elements[v]; its neighbors are
// Adjncy[Xadj[v]:Xadj[v+1]]. Unflagged elements are not part of the graph.
type DualGraph struct {
	Xadj     []int32
	Adjncy   []int32
	Elements []int // vertex → element index

	vertex []int // element index → vertex, -1 when unflagged
}

// BuildDualGraph builds the dual graph over the flagged elements, using the
// element → element relation of a finalized mesh. Arrays are sized in a
// counting pass first.
func BuildDualGraph(m *mesh.Mesh, flagged []bool) *DualGraph {
	elements := m.Elements()
	assertf(len(flagged) == len(elements), "%d flags for %d elements", len(flagged), len(elements))
	g := &DualGraph{vertex: make([]int, len(elements))}
	for k := range elements {
		g.vertex[k] = -1
		if flagged[k] {
			g.vertex[k] = len(g.Elements)
			g.Elements = append(g.Elements, k)
		}
	}

	g.Xadj = make([]int32, len(g.Elements)+1)
	for v, k := range g.Elements {
		n := 0
		for _, o := range elements[k].Neighbors {
			if g.vertex[o] >= 0 {
				n++
			}
		}
		g.Xadj[v+1] = g.Xadj[v] + int32(n)
	}

	g.Adjncy = make([]int32, g.Xadj[len(g.Elements)])
	for v, k := range g.Elements {
		pos := g.Xadj[v]
		for _, o := range elements[k].Neighbors {
			if u := g.vertex[o]; u >= 0 {
				g.Adjncy[pos] = int32(u)
				pos++
			}
		}
		assertf(pos == g.Xadj[v+1], "vertex %d filled %d of %d neighbors", v, pos-g.Xadj[v], g.Xadj[v+1]-g.Xadj[v])
	}
	return g
}

// NumVertices returns the number of graph vertices
func (g *DualGraph) NumVertices() int { return len(g.Elements) }

// NumEdges returns the number of undirected edges
func (g *DualGraph) NumEdges() int { return len(g.Adjncy) / 2 }

// Neighbors returns the adjacency of vertex v
func (g *DualGraph) Neighbors(v int) []int32 { return g.Adjncy[g.Xadj[v]:g.Xadj[v+1]] }

// Vertex returns the vertex of an element index, -1 when not in the graph
func (g *DualGraph) Vertex(element int) int {
	if element < 0 || element >= len(g.vertex) {
		return -1
	}
	return g.vertex[element]
}
