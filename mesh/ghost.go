package mesh

import (
	"fmt"
	"slices"
)

// GhostStack records one selected sideset and the layers stacked on it.
// Blocks[i] and SideSets[i] belong to layer i. Every layer clones the same
// facets of Source in the same order: SideSets[i].Facets[j] is the layer i
// clone of the j-th selected facet.
type GhostStack struct {
	Source   uint64
	Blocks   []uint64
	SideSets []uint64
}

// Layers returns the number of layers in the stack
func (s GhostStack) Layers() int { return len(s.Blocks) }

// GhostStacks returns the registered ghost stacks in registration order
func (m *Mesh) GhostStacks() []GhostStack { return m.ghosts }

// RegisterGhostStack adds a stack to the table relinked on every Finalize
func (m *Mesh) RegisterGhostStack(s GhostStack) error {
	if len(s.Blocks) != len(s.SideSets) {
		return fmt.Errorf("%w: %d blocks, %d sidesets", ErrGhostCountMismatch, len(s.Blocks), len(s.SideSets))
	}
	m.ghosts = append(m.ghosts, s)
	return nil
}

// InsertLayer moves a cloned bundle into the mesh. The layer's nodes, edges
// and faces are appended to the arenas, its block becomes a ghost block and
// its sideset a hidden ghost sideset. The mesh must be unfinalized.
func (m *Mesh) InsertLayer(l *Layer) error {
	if l.inserted {
		return ErrLayerInserted
	}
	if m.finalized {
		return fmt.Errorf("%w: unfinalize before inserting a layer", ErrContainerPopulated)
	}
	if err := m.checkLayer(l); err != nil {
		return err
	}

	m.nodes = slices.Grow(m.nodes, len(l.Nodes))
	for _, n := range l.Nodes {
		n.Index = len(m.nodes)
		m.nodes = append(m.nodes, n)
		m.nodeMap[n.ID] = n
	}
	m.edges = slices.Grow(m.edges, len(l.Edges))
	for _, e := range l.Edges {
		e.Index = len(m.edges)
		m.edges = append(m.edges, e)
		m.edgeMap[e.ID] = e
	}
	m.faces = slices.Grow(m.faces, len(l.Faces))
	for _, f := range l.Faces {
		f.Index = len(m.faces)
		m.faces = append(m.faces, f)
		m.faceMap[f.ID] = f
	}

	if b := l.Block; b != nil {
		b.Ghost = true
		for _, e := range b.Elements {
			e.Ghost = true
			e.BlockID = b.ID
			m.elementMap[e.ID] = e
		}
		m.blocks = append(m.blocks, b)
		m.blockMap[b.ID] = b
		if len(l.Edges) > 0 {
			m.AddEdgeBlock(b.ID)
		}
	}
	if s := l.SideSet; s != nil {
		s.Kind = GhostLayer
		s.Hidden = true
		for _, f := range s.Facets {
			m.facetMap[f.ID] = f
		}
		m.sideSets = append(m.sideSets, s)
		m.sideSetMap[s.ID] = s
	}
	l.inserted = true
	return nil
}

func inMap[T any](ids map[uint64]T) func(uint64) bool {
	return func(id uint64) bool {
		_, ok := ids[id]
		return ok
	}
}

// checkLayer rejects a layer whose ids collide with the mesh or with each
// other, before anything is moved
func (m *Mesh) checkLayer(l *Layer) error {
	if l.Block != nil {
		if _, ok := m.blockMap[l.Block.ID]; ok {
			return fmt.Errorf("%w: block %d", ErrDuplicateID, l.Block.ID)
		}
	}
	if l.SideSet != nil {
		if _, ok := m.sideSetMap[l.SideSet.ID]; ok {
			return fmt.Errorf("%w: sideset %d", ErrDuplicateID, l.SideSet.ID)
		}
	}
	claim := func(kind string, taken func(uint64) bool) func(uint64) error {
		seen := make(map[uint64]bool)
		return func(id uint64) error {
			if seen[id] || taken(id) {
				return fmt.Errorf("%w: %s %d", ErrDuplicateID, kind, id)
			}
			seen[id] = true
			return nil
		}
	}
	node := claim("node", inMap(m.nodeMap))
	for _, n := range l.Nodes {
		if err := node(n.ID); err != nil {
			return err
		}
	}
	edge := claim("edge", inMap(m.edgeMap))
	for _, e := range l.Edges {
		if err := edge(e.ID); err != nil {
			return err
		}
	}
	face := claim("face", inMap(m.faceMap))
	for _, f := range l.Faces {
		if err := face(f.ID); err != nil {
			return err
		}
	}
	if l.Block != nil {
		element := claim("element", inMap(m.elementMap))
		for _, e := range l.Block.Elements {
			if err := element(e.ID); err != nil {
				return err
			}
		}
	}
	if l.SideSet != nil {
		facet := claim("facet", inMap(m.facetMap))
		for _, f := range l.SideSet.Facets {
			if err := facet(f.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// relinkGhosts rebuilds the ghost facet tables of the volume elements next
// to each stack and the element → element relation among ghost elements
func (m *Mesh) relinkGhosts() error {
	if len(m.ghosts) == 0 {
		return nil
	}
	for _, e := range m.elements {
		e.Facets = nil
	}
	for _, stack := range m.ghosts {
		src, ok := m.sideSetMap[stack.Source]
		if !ok {
			return fmt.Errorf("mesh: ghost stack on unknown sideset %d", stack.Source)
		}
		layers := make([]*SideSet, stack.Layers())
		var ghostElements []*Element
		for i := range layers {
			s, ok := m.sideSetMap[stack.SideSets[i]]
			if !ok {
				return fmt.Errorf("mesh: unknown ghost sideset %d", stack.SideSets[i])
			}
			b, ok := m.blockMap[stack.Blocks[i]]
			if !ok {
				return fmt.Errorf("mesh: unknown ghost block %d", stack.Blocks[i])
			}
			if len(s.Facets) != len(b.Elements) || len(s.Facets) > len(src.Facets) ||
				(i > 0 && len(s.Facets) != len(layers[0].Facets)) {
				return fmt.Errorf("%w: sideset %d has %d facets, block %d has %d elements, source has %d facets",
					ErrGhostCountMismatch, s.ID, len(s.Facets), b.ID, len(b.Elements), len(src.Facets))
			}
			layers[i] = s
			ghostElements = append(ghostElements, b.Elements...)
		}

		// per selected facet, its layers in declared order
		for j := range layers[0].Facets {
			for _, s := range layers {
				g := s.Facets[j]
				assertf(g.Index >= 0, "ghost facet %d is not numbered", g.ID)
				assertf(g.SourceID == layers[0].Facets[j].SourceID,
					"ghost facet %d of sideset %d is out of layer order", g.ID, s.ID)
				assertf(g.Master < len(m.elements) && g.Slave < len(m.elements),
					"ghost facet %d links past the element container", g.ID)
				if g.Master != NoElement {
					master := m.elements[g.Master]
					master.Facets = append(master.Facets, g.Index)
				}
				if g.HasSlave() {
					slave := m.elements[g.Slave]
					slave.Facets = append(slave.Facets, g.Index)
				}
			}
		}
		m.linkGhostNeighbors(ghostElements)
	}
	return nil
}

// linkGhostNeighbors is element → element restricted to the ghost elements
// of one stack. Node degrees are counted first, then node → ghost element
// lists are filled in a flat array and every element collects the elements
// of its nodes.
func (m *Mesh) linkGhostNeighbors(ghosts []*Element) {
	if len(ghosts) == 0 {
		return
	}
	local := make(map[int]int) // node index → slot
	var degree []int
	for _, e := range ghosts {
		for _, n := range e.Nodes {
			slot, ok := local[n]
			if !ok {
				slot = len(degree)
				local[n] = slot
				degree = append(degree, 0)
			}
			degree[slot]++
		}
	}
	offsets := make([]int, len(degree)+1)
	for i, d := range degree {
		offsets[i+1] = offsets[i] + d
	}
	fill := slices.Clone(offsets[:len(degree)])
	flat := make([]int, offsets[len(degree)])
	for _, e := range ghosts {
		for _, n := range e.Nodes {
			slot := local[n]
			flat[fill[slot]] = e.Index
			fill[slot]++
		}
	}
	for _, e := range ghosts {
		var neighbors []int
		for _, n := range e.Nodes {
			slot := local[n]
			for _, k := range flat[offsets[slot]:offsets[slot+1]] {
				if k != e.Index {
					neighbors = append(neighbors, k)
				}
			}
		}
		e.Neighbors = unique(neighbors)
	}
}
