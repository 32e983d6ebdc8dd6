package mesh

// buildMaps rebuilds every id→entity lookup from the raw containers
func (m *Mesh) buildMaps() {
	m.nodeMap = make(map[uint64]*Node, len(m.nodes))
	for _, n := range m.nodes {
		m.nodeMap[n.ID] = n
	}
	m.edgeMap = make(map[uint64]*Edge, len(m.edges))
	for _, e := range m.edges {
		m.edgeMap[e.ID] = e
	}
	m.faceMap = make(map[uint64]*Face, len(m.faces))
	for _, f := range m.faces {
		m.faceMap[f.ID] = f
	}

	m.blockMap = make(map[uint64]*Block, len(m.blocks))
	m.elementMap = make(map[uint64]*Element, len(m.elements))
	for _, b := range m.blocks {
		m.blockMap[b.ID] = b
		for _, e := range b.Elements {
			m.elementMap[e.ID] = e
		}
	}

	m.sideSetMap = make(map[uint64]*SideSet, len(m.sideSets))
	m.facetMap = make(map[uint64]*Facet, len(m.facets)+len(m.connectors))
	for _, s := range m.sideSets {
		m.sideSetMap[s.ID] = s
		for _, f := range s.Facets {
			m.facetMap[f.ID] = f
		}
	}

	m.vertexMap = make(map[uint64]*Vertex, len(m.vertices))
	for _, v := range m.vertices {
		m.vertexMap[v.ID] = v
	}

	assertf(len(m.nodeMap) == len(m.nodes), "%d node ids for %d nodes", len(m.nodeMap), len(m.nodes))
	assertf(len(m.elementMap) == len(m.elements), "%d element ids for %d elements", len(m.elementMap), len(m.elements))
	assertf(len(m.facetMap) == len(m.facets)+len(m.connectors),
		"%d facet ids for %d facets and %d connectors", len(m.facetMap), len(m.facets), len(m.connectors))
}

// createVertices gives every node a generalized vertex. Edge vertices are
// appended by FinalizeEdges.
func (m *Mesh) createVertices() {
	m.vertices = make([]*Vertex, len(m.nodes))
	for i, n := range m.nodes {
		m.vertices[i] = &Vertex{ID: n.ID, Index: i, Kind: NodeVertex, Ref: i, Owner: n.Owner}
	}
	m.vertexMap = make(map[uint64]*Vertex, len(m.vertices))
	for _, v := range m.vertices {
		m.vertexMap[v.ID] = v
	}
}

func (m *Mesh) appendEdgeVertices() {
	offset := m.MaxNodeID()
	m.vertices = m.vertices[:len(m.nodes)]
	for _, e := range m.edges {
		v := &Vertex{ID: offset + e.ID, Index: len(m.vertices), Kind: EdgeVertex, Ref: e.Index, Owner: e.Owner}
		m.vertices = append(m.vertices, v)
		m.vertexMap[v.ID] = v
	}
}
