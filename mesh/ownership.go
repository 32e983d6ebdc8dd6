package mesh

import "fmt"

// OwnerSweeps counts the passes each owner fixpoint needed to settle
type OwnerSweeps struct {
	Ghosts     int
	Nodes      int
	Connectors int
}

// SettleFacetOwners sets every non-ghost facet's owner to the smaller owner
// of its master and slave
func (m *Mesh) SettleFacetOwners() {
	for _, f := range m.facets {
		if f.IsGhost() || f.Master == NoElement {
			continue
		}
		o := m.elements[f.Master].Owner
		if f.HasSlave() {
			o = min(o, m.elements[f.Slave].Owner)
		}
		f.Owner = o
		f.Element.Owner = o
	}
}

// SettleOwners propagates settled element and facet owners to everything
// that depends on them, in dependency order: ghost layers, edges and
// faces, nodes, vertices, connectors.
func (m *Mesh) SettleOwners() (OwnerSweeps, error) {
	var sweeps OwnerSweeps
	if !m.finalized {
		return sweeps, ErrNotFinalized
	}
	n, err := m.settleGhostOwners()
	if err != nil {
		return sweeps, err
	}
	sweeps.Ghosts = n
	m.settleEdgeOwners()
	m.settleFaceOwners()
	sweeps.Nodes = m.settleNodeOwners()
	m.settleVertexOwners()
	sweeps.Connectors = m.settleConnectorOwners()
	return sweeps, nil
}

// settleGhostOwners copies each ghost facet's owner from the facet it was
// cloned from, and hands it on to the ghost element. Ghosts always live
// with their source.
func (m *Mesh) settleGhostOwners() (int, error) {
	changed := false
	for _, f := range m.facets {
		if !f.IsGhost() {
			continue
		}
		src, ok := m.facetMap[f.SourceID]
		assertf(ok, "ghost facet %d has unknown source %d", f.ID, f.SourceID)
		if !ok {
			return 0, fmt.Errorf("mesh: ghost facet %d has unknown source %d", f.ID, f.SourceID)
		}
		if f.Owner != src.Owner || f.Element.Owner != src.Owner {
			changed = true
		}
		f.Owner = src.Owner
		f.Element.Owner = src.Owner
	}
	if changed {
		return 1, nil
	}
	return 0, nil
}

func (m *Mesh) settleEdgeOwners() {
	for _, e := range m.edges {
		if len(e.Elements) == 0 {
			continue
		}
		o := m.elements[e.Elements[0]].Owner
		for _, k := range e.Elements[1:] {
			o = min(o, m.elements[k].Owner)
		}
		e.Owner = o
	}
}

func (m *Mesh) settleFaceOwners() {
	for _, f := range m.faces {
		if len(f.Elements) == 0 {
			continue
		}
		o := m.elements[f.Elements[0]].Owner
		for _, k := range f.Elements[1:] {
			o = min(o, m.elements[k].Owner)
		}
		f.Owner = o
	}
}

// settleNodeOwners sets each node to the smallest owner of its elements,
// then sweeps the cut duplicate groups until every group agrees on its
// minimum. Owners only ever decrease.
func (m *Mesh) settleNodeOwners() int {
	for _, n := range m.nodes {
		if len(n.Elements) == 0 {
			continue
		}
		o := m.elements[n.Elements[0]].Owner
		for _, k := range n.Elements[1:] {
			o = min(o, m.elements[k].Owner)
		}
		n.Owner = o
	}
	sweeps := 0
	for {
		sweeps++
		changed := false
		for _, n := range m.nodes {
			for _, d := range n.Duplicates {
				if o := m.nodes[d].Owner; o < n.Owner {
					n.Owner = o
					changed = true
				}
			}
		}
		if !changed {
			return sweeps
		}
	}
}

func (m *Mesh) settleVertexOwners() {
	for _, v := range m.vertices {
		switch v.Kind {
		case NodeVertex:
			v.Owner = m.nodes[v.Ref].Owner
		case EdgeVertex:
			v.Owner = m.edges[v.Ref].Owner
		}
	}
}

// settleConnectorOwners gives each connector the smallest owner among the
// elements of its corner nodes and their duplicates
func (m *Mesh) settleConnectorOwners() int {
	if len(m.connectors) == 0 {
		return 0
	}
	for _, f := range m.connectors {
		o := -1
		visit := func(n int) {
			for _, k := range m.nodes[n].Elements {
				if eo := m.elements[k].Owner; o < 0 || eo < o {
					o = eo
				}
			}
		}
		for _, c := range f.Element.Corners() {
			visit(c)
			for _, d := range m.nodes[c].Duplicates {
				visit(d)
			}
		}
		if o >= 0 {
			f.Owner = o
			f.Element.Owner = o
		}
	}
	return 1
}
