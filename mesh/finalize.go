package mesh

import (
	"fmt"
	"time"
)

// Finalize derives every container, index and adjacency relation. The heavy
// steps only run on an unfinalized mesh; block ids, max order, facet
// orientation and ghost tables are refreshed on every call.
//
// Fragments (every mesh on a worker process, see AsFragment) are received
// from the master. They only renumber, resolve explicit facet links and
// rebuild maps.
func (m *Mesh) Finalize() error {
	if m.IsFragment() {
		return m.finalizeFragment()
	}
	log := m.ctx.Logger()
	if !m.finalized {
		start := time.Now()
		if len(m.elements) == 0 {
			if err := m.collectElements(); err != nil {
				return err
			}
		}
		m.renumberNodes()
		m.renumberElements()
		if len(m.facets) == 0 && len(m.connectors) == 0 {
			if err := m.collectFacets(); err != nil {
				return err
			}
		}
		m.renumberFacets()
		if err := m.resolvePendingLinks(); err != nil {
			return err
		}

		if m.computeConnectivity {
			m.linkNodeElements()
			if !m.facetsLinked {
				if err := m.linkFacets(); err != nil {
					return err
				}
			}
			m.linkNodeFacets()
			m.linkElementNeighbors()
			m.linkNodeNeighbors()
			m.collectSideSetNodes()
		}
		m.buildMaps()
		m.createVertices()
		m.markCurved()
		m.finalized = true
		m.settleDefaultOwners()

		log.Debug("mesh finalized",
			"nodes", len(m.nodes),
			"elements", len(m.elements),
			"facets", len(m.facets),
			"connectors", len(m.connectors),
			"elapsed", time.Since(start))
	}

	m.setBlockIDs()
	m.computeMaxOrder()
	m.orientFacets()
	return m.relinkGhosts()
}

// finalizeFragment is the worker side of Finalize
func (m *Mesh) finalizeFragment() error {
	if m.finalized {
		m.setBlockIDs()
		m.computeMaxOrder()
		m.orientFacets()
		return nil
	}
	if len(m.elements) == 0 {
		if err := m.collectElements(); err != nil {
			return err
		}
	}
	m.renumberNodes()
	m.renumberElements()
	if len(m.facets) == 0 && len(m.connectors) == 0 {
		if err := m.collectFacets(); err != nil {
			return err
		}
	}
	m.renumberFacets()
	m.buildMaps()
	if err := m.resolvePendingLinks(); err != nil {
		return err
	}
	m.createVertices()
	m.finalized = true
	m.setBlockIDs()
	m.computeMaxOrder()
	m.orientFacets()
	return nil
}

// Unfinalize clears the derived containers and every back-reference so new
// entities can be inserted. The facets-linked flag is kept. Workers do
// nothing.
func (m *Mesh) Unfinalize() {
	if m.IsFragment() {
		return
	}
	m.elements = nil
	m.facets = nil
	m.connectors = nil
	m.vertices = nil
	m.vertexMap = make(map[uint64]*Vertex)

	for _, n := range m.nodes {
		n.Elements, n.Edges, n.Faces, n.Facets, n.Neighbors = nil, nil, nil, nil, nil
	}
	for _, e := range m.edges {
		e.Elements, e.Faces, e.Neighbors = nil, nil, nil
	}
	for _, f := range m.faces {
		f.Elements, f.Edges = nil, nil
	}
	for _, b := range m.blocks {
		for _, e := range b.Elements {
			e.Neighbors, e.Facets = nil, nil
		}
	}
	for _, s := range m.sideSets {
		s.Nodes = nil
	}
	m.finalized = false
	m.edgesFinalized = false
	m.facesFinalized = false
}

// collectElements fills the element container from the blocks in block
// order. Blocks are append-only, so element indices survive a cycle of
// Unfinalize and Finalize.
func (m *Mesh) collectElements() error {
	if len(m.elements) != 0 {
		return fmt.Errorf("%w: elements", ErrContainerPopulated)
	}
	n := 0
	for _, b := range m.blocks {
		n += len(b.Elements)
	}
	m.elements = make([]*Element, 0, n)
	for _, b := range m.blocks {
		m.elements = append(m.elements, b.Elements...)
	}
	return nil
}

// collectFacets fills the facet container from boundary and ghost sidesets
// and the connector container from cut sidesets
func (m *Mesh) collectFacets() error {
	if len(m.facets) != 0 || len(m.connectors) != 0 {
		return fmt.Errorf("%w: facets", ErrContainerPopulated)
	}
	for _, s := range m.sideSets {
		if s.Kind == Cut {
			m.connectors = append(m.connectors, s.Facets...)
		} else {
			m.facets = append(m.facets, s.Facets...)
		}
	}
	return nil
}

func (m *Mesh) renumberNodes() {
	for i, n := range m.nodes {
		n.Index = i
	}
}

func (m *Mesh) renumberElements() {
	for i, e := range m.elements {
		e.Index = i
	}
}

// renumberFacets numbers facets and connectors, each in their own
// container. The wrapped element carries the facet's index unless it is a
// ghost block element, which keeps its element index.
func (m *Mesh) renumberFacets() {
	for i, f := range m.facets {
		f.Index = i
		if !f.IsGhost() {
			f.Element.Index = i
		}
	}
	for i, f := range m.connectors {
		f.Index = i
		f.Element.Index = i
	}
}

func (m *Mesh) setBlockIDs() {
	for _, b := range m.blocks {
		for _, e := range b.Elements {
			e.BlockID = b.ID
			e.Ghost = b.Ghost
		}
	}
}

func (m *Mesh) computeMaxOrder() {
	m.maxOrder = 0
	for _, e := range m.elements {
		m.maxOrder = max(m.maxOrder, e.Type.Order())
	}
}

// settleDefaultOwners derives facet, node, vertex and connector owners from
// the element owners, which are all 0 until a partitioner runs
func (m *Mesh) settleDefaultOwners() {
	m.SettleFacetOwners()
	if !m.computeConnectivity {
		return
	}
	if _, err := m.SettleOwners(); err != nil {
		m.ctx.Logger().Warn("owner settlement failed", "error", err)
	}
}
