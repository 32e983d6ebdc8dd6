package mesh

import "fmt"

// linkFacets finds master and slave of every facet and connector that was
// not linked explicitly
func (m *Mesh) linkFacets() error {
	for _, f := range m.facets {
		if err := m.matchFacet(f); err != nil {
			return err
		}
	}
	for _, f := range m.connectors {
		if err := m.matchFacet(f); err != nil {
			return err
		}
	}
	return nil
}

// matchFacet flags the facet's corner nodes and their cut duplicates, then
// counts flagged corners on every local facet of each candidate element.
// A full count is a match. The first two matches become master and slave;
// of two matches the element with the smaller id is master.
func (m *Mesh) matchFacet(f *Facet) error {
	if f.IsGhost() || f.pendingMaster != 0 {
		return nil
	}
	corners := f.Element.Corners()
	numCorners := len(corners)
	dim := f.Element.Dimension() + 1

	var flagged, candidates []int
	mark := func(n int) {
		node := m.nodes[n]
		if !node.flag {
			node.flag = true
			flagged = append(flagged, n)
		}
	}
	for _, c := range corners {
		mark(c)
		candidates = append(candidates, m.nodes[c].Elements...)
		for _, d := range m.nodes[c].Duplicates {
			mark(d)
			candidates = append(candidates, m.nodes[d].Elements...)
		}
	}
	defer func() {
		for _, n := range flagged {
			m.nodes[n].flag = false
		}
	}()
	candidates = unique(candidates)

	master, slave := NoElement, NoElement
	masterLocal, slaveLocal := 0, 0
	for _, k := range candidates {
		e := m.elements[k]
		if e.Ghost || e.Dimension() != dim {
			continue
		}
		for i := 0; i < e.Type.NumFacets(); i++ {
			nc := e.Type.FacetType(i).NumCorners()
			if nc != numCorners {
				continue
			}
			count := 0
			for _, p := range e.Type.LocalFacet(i)[:nc] {
				if m.nodes[e.Nodes[p]].flag {
					count++
				}
			}
			if count != numCorners {
				continue
			}
			switch {
			case master == NoElement:
				master, masterLocal = k, i
			case slave == NoElement:
				slave, slaveLocal = k, i
			default:
				return fmt.Errorf("%w: facet %d", ErrNonManifoldFacet, f.ID)
			}
			break
		}
	}
	if master == NoElement {
		return fmt.Errorf("%w: facet %d", ErrNoFacetMaster, f.ID)
	}
	if slave != NoElement && m.elements[slave].ID < m.elements[master].ID {
		master, slave = slave, master
		masterLocal, slaveLocal = slaveLocal, masterLocal
	}
	f.Master, f.MasterLocal = master, masterLocal
	f.Slave, f.SlaveLocal = slave, slaveLocal
	return nil
}

// resolvePendingLinks turns element ids given to LinkFacet into indices
func (m *Mesh) resolvePendingLinks() error {
	resolve := func(f *Facet) error {
		if f.pendingMaster == 0 {
			return nil
		}
		e, ok := m.elementMap[f.pendingMaster]
		if !ok {
			return fmt.Errorf("%w: master %d of facet %d", ErrUnknownElement, f.pendingMaster, f.ID)
		}
		assertf(e.Index >= 0 && e.Index < len(m.elements) && m.elements[e.Index] == e,
			"master %d of facet %d is not at index %d", e.ID, f.ID, e.Index)
		f.Master = e.Index
		f.Slave = NoElement
		if f.pendingSlave != 0 {
			s, ok := m.elementMap[f.pendingSlave]
			if !ok {
				return fmt.Errorf("%w: slave %d of facet %d", ErrUnknownElement, f.pendingSlave, f.ID)
			}
			assertf(s.Index >= 0 && s.Index < len(m.elements) && m.elements[s.Index] == s,
				"slave %d of facet %d is not at index %d", s.ID, f.ID, s.Index)
			f.Slave = s.Index
		}
		return nil
	}
	for _, f := range m.facets {
		if err := resolve(f); err != nil {
			return err
		}
	}
	for _, f := range m.connectors {
		if err := resolve(f); err != nil {
			return err
		}
	}
	return nil
}
