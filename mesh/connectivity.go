package mesh

import "slices"

// unique sorts s in place and drops repeated values
func unique(s []int) []int {
	slices.Sort(s)
	return slices.Compact(s)
}

// linkNodeElements builds node → element in two passes, counting first so
// every list is allocated once
func (m *Mesh) linkNodeElements() {
	counts := make([]int, len(m.nodes))
	for _, e := range m.elements {
		for _, n := range e.Nodes {
			counts[n]++
		}
	}
	for i, n := range m.nodes {
		n.Elements = make([]int, 0, counts[i])
	}
	for _, e := range m.elements {
		for _, n := range e.Nodes {
			node := m.nodes[n]
			node.Elements = append(node.Elements, e.Index)
		}
	}
}

// linkNodeFacets builds node → facet over the facet container
func (m *Mesh) linkNodeFacets() {
	counts := make([]int, len(m.nodes))
	for _, f := range m.facets {
		for _, n := range f.Element.Nodes {
			counts[n]++
		}
	}
	for i, n := range m.nodes {
		n.Facets = make([]int, 0, counts[i])
	}
	for _, f := range m.facets {
		for _, n := range f.Element.Nodes {
			node := m.nodes[n]
			node.Facets = append(node.Facets, f.Index)
		}
	}
}

// linkElementNeighbors builds element → element. Neighbors are same
// dimension elements sharing a node, plus the master/slave pair of every
// facet and connector. Ghost elements are left to relinkGhosts.
func (m *Mesh) linkElementNeighbors() {
	var candidates []int
	for _, e := range m.elements {
		if e.Ghost {
			continue
		}
		dim := e.Dimension()
		candidates = candidates[:0]
		for _, n := range e.Nodes {
			for _, k := range m.nodes[n].Elements {
				o := m.elements[k]
				if k == e.Index || o.Ghost || o.Dimension() != dim {
					continue
				}
				candidates = append(candidates, k)
			}
		}
		e.Neighbors = unique(slices.Clone(candidates))
	}

	// first-degree facet links, never chained through ghost layers
	touched := make(map[int]struct{})
	link := func(f *Facet) {
		if f.IsGhost() || f.Master == NoElement || !f.HasSlave() {
			return
		}
		a, b := m.elements[f.Master], m.elements[f.Slave]
		if a.Ghost || b.Ghost {
			return
		}
		a.Neighbors = append(a.Neighbors, b.Index)
		b.Neighbors = append(b.Neighbors, a.Index)
		touched[a.Index] = struct{}{}
		touched[b.Index] = struct{}{}
	}
	for _, f := range m.facets {
		link(f)
	}
	for _, f := range m.connectors {
		link(f)
	}
	for k := range touched {
		m.elements[k].Neighbors = unique(m.elements[k].Neighbors)
	}
}

// linkNodeNeighbors builds node → node by walking every node's elements.
// A flag on the visited nodes suppresses duplicates and is cleared again
// after each node is recorded.
func (m *Mesh) linkNodeNeighbors() {
	for _, n := range m.nodes {
		var neighbors []int
		n.flag = true
		for _, k := range n.Elements {
			for _, o := range m.elements[k].Nodes {
				other := m.nodes[o]
				if !other.flag {
					other.flag = true
					neighbors = append(neighbors, o)
				}
			}
		}
		n.flag = false
		for _, o := range neighbors {
			m.nodes[o].flag = false
		}
		slices.Sort(neighbors)
		n.Neighbors = neighbors
	}
}

// collectSideSetNodes stores the sorted node set of every sideset
func (m *Mesh) collectSideSetNodes() {
	for _, s := range m.sideSets {
		var nodes []int
		for _, f := range s.Facets {
			nodes = append(nodes, f.Element.Nodes...)
		}
		s.Nodes = unique(nodes)
	}
}
