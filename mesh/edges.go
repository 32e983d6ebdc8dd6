package mesh

import (
	"fmt"
	"slices"
)

// CreateEdges builds the unique edges of the elements in the given blocks,
// or of every non-ghost element when no block is named. Element.Edges is
// filled in local edge order. Must run on a finalized mesh.
func (m *Mesh) CreateEdges(blockIDs ...uint64) error {
	if !m.finalized {
		return ErrNotFinalized
	}
	if len(m.edges) != 0 {
		return fmt.Errorf("%w: edges", ErrContainerPopulated)
	}
	elements, err := m.edgeElements(blockIDs)
	if err != nil {
		return err
	}

	type key [2]int
	index := make(map[key]int)
	next := uint64(1)
	for _, e := range elements {
		mids := e.Type.midsideNodes()
		e.Edges = make([]int, e.Type.NumEdges())
		for i := range e.Edges {
			pair := e.Type.LocalEdge(i)
			a, b := e.Nodes[pair[0]], e.Nodes[pair[1]]
			k := key{min(a, b), max(a, b)}
			if j, ok := index[k]; ok {
				e.Edges[i] = j
				continue
			}
			nodes := []int{a, b}
			for _, mid := range mids {
				if (mid[1] == pair[0] && mid[2] == pair[1]) || (mid[1] == pair[1] && mid[2] == pair[0]) {
					nodes = append(nodes, e.Nodes[mid[0]])
				}
			}
			edge := &Edge{ID: next, Index: len(m.edges), Nodes: nodes}
			next++
			index[k] = edge.Index
			m.edges = append(m.edges, edge)
			e.Edges[i] = edge.Index
		}
	}
	if len(blockIDs) > 0 {
		m.edgeBlocks = slices.Clone(blockIDs)
	}
	m.ctx.Logger().Debug("edges created", "edges", len(m.edges), "elements", len(elements))
	return nil
}

// AddEdgeBlock extends the element subset edges live on, used when ghost
// layers carry cloned edges
func (m *Mesh) AddEdgeBlock(id uint64) {
	if m.edgeBlocks != nil && !slices.Contains(m.edgeBlocks, id) {
		m.edgeBlocks = append(m.edgeBlocks, id)
	}
}

func (m *Mesh) edgeElements(blockIDs []uint64) ([]*Element, error) {
	if len(blockIDs) == 0 {
		var elements []*Element
		for _, b := range m.blocks {
			if !b.Ghost {
				elements = append(elements, b.Elements...)
			}
		}
		return elements, nil
	}
	var elements []*Element
	for _, id := range blockIDs {
		b, ok := m.blockMap[id]
		if !ok {
			return nil, fmt.Errorf("mesh: unknown block %d", id)
		}
		elements = append(elements, b.Elements...)
	}
	return elements, nil
}

// CreateFaces builds the unique faces of every 3D element. A face's master
// is the element with the smallest id among those sharing it.
func (m *Mesh) CreateFaces() error {
	if !m.finalized {
		return ErrNotFinalized
	}
	if len(m.faces) != 0 {
		return fmt.Errorf("%w: faces", ErrContainerPopulated)
	}
	if m.numDims != 3 {
		return nil
	}
	index := make(map[string]int)
	next := uint64(1)
	for _, e := range m.elements {
		if e.Ghost || e.Dimension() != 3 {
			continue
		}
		e.Faces = make([]int, e.Type.NumFacets())
		for i := range e.Faces {
			local := e.Type.LocalFacet(i)
			nodes := make([]int, len(local))
			for j, p := range local {
				nodes[j] = e.Nodes[p]
			}
			k := faceKey(nodes[:e.Type.FacetType(i).NumCorners()])
			if j, ok := index[k]; ok {
				e.Faces[i] = j
				f := m.faces[j]
				if e.ID < m.elements[f.Master].ID {
					f.Master, f.MasterLocal, f.Nodes = e.Index, i, nodes
				}
				continue
			}
			f := &Face{ID: next, Index: len(m.faces), Nodes: nodes, Master: e.Index, MasterLocal: i}
			next++
			index[k] = f.Index
			m.faces = append(m.faces, f)
			e.Faces[i] = f.Index
		}
	}
	m.ctx.Logger().Debug("faces created", "faces", len(m.faces))
	return nil
}

func faceKey(corners []int) string {
	s := slices.Clone(corners)
	slices.Sort(s)
	return fmt.Sprint(s)
}

// FinalizeEdges runs the edge connectivity pass: node → edge, edge →
// element over the edge subset, and edge → edge. Edge vertices are appended
// and edge owners settled.
func (m *Mesh) FinalizeEdges() error {
	if !m.finalized {
		return ErrNotFinalized
	}
	if m.edgesFinalized || len(m.edges) == 0 {
		return nil
	}
	for i, e := range m.edges {
		e.Index = i
	}
	for _, n := range m.nodes {
		n.Edges = nil
	}
	for _, e := range m.edges {
		e.Elements = nil
		for _, n := range e.Nodes {
			m.nodes[n].Edges = append(m.nodes[n].Edges, e.Index)
		}
	}

	elements, err := m.edgeElements(m.edgeBlocks)
	if err != nil {
		return err
	}
	if m.edgeBlocks == nil {
		// ghost layers may bring their own cloned edges
		for _, b := range m.blocks {
			if b.Ghost {
				elements = append(elements, b.Elements...)
			}
		}
	}
	for _, el := range elements {
		for _, k := range el.Edges {
			edge := m.edges[k]
			edge.Elements = append(edge.Elements, el.Index)
		}
	}
	for _, e := range m.edges {
		e.Elements = unique(e.Elements)
	}

	// edge → edge through shared elements, flag-deduplicated like node → node
	for _, e := range m.edges {
		var neighbors []int
		e.flag = true
		for _, k := range e.Elements {
			for _, o := range m.elements[k].Edges {
				other := m.edges[o]
				if !other.flag {
					other.flag = true
					neighbors = append(neighbors, o)
				}
			}
		}
		e.flag = false
		for _, o := range neighbors {
			m.edges[o].flag = false
		}
		slices.Sort(neighbors)
		e.Neighbors = neighbors
	}

	m.edgeMap = make(map[uint64]*Edge, len(m.edges))
	for _, e := range m.edges {
		m.edgeMap[e.ID] = e
	}
	m.settleEdgeOwners()
	m.appendEdgeVertices()
	m.edgesFinalized = true
	return nil
}

// FinalizeFaces links faces to their elements and nodes and builds face ↔
// edge from the master's local facet edges. Edges must be finalized first
// when they exist.
func (m *Mesh) FinalizeFaces() error {
	if !m.finalized {
		return ErrNotFinalized
	}
	if m.facesFinalized || len(m.faces) == 0 {
		return nil
	}
	for i, f := range m.faces {
		f.Index = i
		f.Elements = nil
		f.Edges = nil
	}
	for _, n := range m.nodes {
		n.Faces = nil
	}
	for _, e := range m.edges {
		e.Faces = nil
	}
	for _, el := range m.elements {
		for _, k := range el.Faces {
			m.faces[k].Elements = append(m.faces[k].Elements, el.Index)
		}
	}
	for _, f := range m.faces {
		f.Elements = unique(f.Elements)
		for _, n := range f.Nodes {
			m.nodes[n].Faces = append(m.nodes[n].Faces, f.Index)
		}
		master := m.elements[f.Master]
		if len(master.Edges) == 0 {
			continue
		}
		// a ghost face is its own master element; all of its edges lie on it
		edges := master.Edges
		if !master.Ghost {
			edges = nil
			for _, le := range master.Type.FacetEdges(f.MasterLocal) {
				edges = append(edges, master.Edges[le])
			}
		}
		for _, k := range edges {
			f.Edges = append(f.Edges, k)
			m.edges[k].Faces = append(m.edges[k].Faces, f.Index)
		}
	}
	m.faceMap = make(map[uint64]*Face, len(m.faces))
	for _, f := range m.faces {
		m.faceMap[f.ID] = f
	}
	m.settleFaceOwners()
	m.facesFinalized = true
	return nil
}
