// Package mesh holds the entity containers of a finite element mesh and
// derives every adjacency relation from the raw element→node incidence.
//
// The Mesh is an arena: it owns all nodes, edges, faces, blocks (and through
// them elements) and sidesets (and through them facets). Every other
// reference is a dense integer index into one of the Mesh containers.
// Indices are renumbered by Finalize; the node and element containers are
// append-only, so indices held across a Finalize stay valid.
package mesh

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/cmesse/belfem-sub005/proc"
)

// Mesh owns every entity container
type Mesh struct {
	ctx                 proc.Context
	numDims             int
	computeConnectivity bool
	fragment            bool

	// raw containers
	nodes    []*Node
	edges    []*Edge
	faces    []*Face
	blocks   []*Block
	sideSets []*SideSet

	// derived containers
	elements   []*Element
	facets     []*Facet
	connectors []*Facet
	vertices   []*Vertex

	nodeMap    map[uint64]*Node
	edgeMap    map[uint64]*Edge
	faceMap    map[uint64]*Face
	elementMap map[uint64]*Element
	facetMap   map[uint64]*Facet
	blockMap   map[uint64]*Block
	sideSetMap map[uint64]*SideSet
	vertexMap  map[uint64]*Vertex

	finalized      bool
	edgesFinalized bool
	facesFinalized bool
	facetsLinked   bool // one-way, survives Unfinalize
	maxOrder       int

	edgeBlocks []uint64 // blocks edges were created on, nil means all
	ghosts     []GhostStack
}

// Option configures a Mesh
type Option func(*Mesh)

// WithoutConnectivity disables the connectivity pass of Finalize, e.g. for
// meshes that are only read and written
func WithoutConnectivity() Option {
	return func(m *Mesh) { m.computeConnectivity = false }
}

// AsFragment marks a mesh holding a partition fragment received from the
// master. Fragments never derive connectivity and Unfinalize leaves them alone.
func AsFragment() Option {
	return func(m *Mesh) {
		m.fragment = true
		m.computeConnectivity = false
	}
}

// New creates an empty mesh of the given spatial dimension
func New(ctx proc.Context, numDims int, opts ...Option) *Mesh {
	m := &Mesh{
		ctx:                 ctx,
		numDims:             numDims,
		computeConnectivity: true,
		nodeMap:             make(map[uint64]*Node),
		edgeMap:             make(map[uint64]*Edge),
		faceMap:             make(map[uint64]*Face),
		elementMap:          make(map[uint64]*Element),
		facetMap:            make(map[uint64]*Facet),
		blockMap:            make(map[uint64]*Block),
		sideSetMap:          make(map[uint64]*SideSet),
		vertexMap:           make(map[uint64]*Vertex),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Context returns the process context the mesh was created with
func (m *Mesh) Context() proc.Context { return m.ctx }

// NumDimensions returns the spatial dimension
func (m *Mesh) NumDimensions() int { return m.numDims }

// IsFinalized reports the state of the finalization state machine
func (m *Mesh) IsFinalized() bool { return m.finalized }

// FacetsLinked reports whether facet matching is skipped on Finalize
func (m *Mesh) FacetsLinked() bool { return m.facetsLinked }

// MarkFacetsLinked permanently skips facet matching. There is no way back.
func (m *Mesh) MarkFacetsLinked() { m.facetsLinked = true }

// IsFragment reports whether the mesh is a worker-side fragment
func (m *Mesh) IsFragment() bool { return m.fragment || !m.ctx.IsMaster() }

// ConnectivityEnabled reports whether Finalize runs the connectivity pass
func (m *Mesh) ConnectivityEnabled() bool { return m.computeConnectivity }

// MaxOrder is the highest interpolation order of any element
func (m *Mesh) MaxOrder() int { return m.maxOrder }

// AddNode appends a node to the node arena
func (m *Mesh) AddNode(id uint64, coords ...float64) (*Node, error) {
	if _, ok := m.nodeMap[id]; ok {
		return nil, fmt.Errorf("%w: node %d", ErrDuplicateID, id)
	}
	if len(coords) > 3 {
		return nil, fmt.Errorf("mesh: node %d has %d coordinates", id, len(coords))
	}
	n := &Node{ID: id, Index: len(m.nodes)}
	copy(n.Coords[:], coords)
	m.nodes = append(m.nodes, n)
	m.nodeMap[id] = n
	return n, nil
}

// LinkDuplicateNodes records that two nodes are copies across a domain cut
func (m *Mesh) LinkDuplicateNodes(a, b uint64) error {
	na, ok := m.nodeMap[a]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownNode, a)
	}
	nb, ok := m.nodeMap[b]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownNode, b)
	}
	if a == b {
		return nil
	}
	na.Duplicates = appendUnique(na.Duplicates, nb.Index)
	nb.Duplicates = appendUnique(nb.Duplicates, na.Index)
	return nil
}

// AddBlock creates an empty block
func (m *Mesh) AddBlock(id uint64, label string) (*Block, error) {
	if _, ok := m.blockMap[id]; ok {
		return nil, fmt.Errorf("%w: block %d", ErrDuplicateID, id)
	}
	b := &Block{ID: id, Label: label}
	m.blocks = append(m.blocks, b)
	m.blockMap[id] = b
	return b, nil
}

// AddElement creates an element from node ids and appends it to block
func (m *Mesh) AddElement(b *Block, id uint64, typ ElementType, nodeIDs ...uint64) (*Element, error) {
	if _, ok := m.elementMap[id]; ok {
		return nil, fmt.Errorf("%w: element %d", ErrDuplicateID, id)
	}
	e, err := m.newElement(id, typ, nodeIDs)
	if err != nil {
		return nil, err
	}
	e.BlockID = b.ID
	e.Ghost = b.Ghost
	b.Elements = append(b.Elements, e)
	m.elementMap[id] = e
	return e, nil
}

// AddSideSet creates an empty sideset
func (m *Mesh) AddSideSet(id uint64, label string, kind SideSetKind) (*SideSet, error) {
	if _, ok := m.sideSetMap[id]; ok {
		return nil, fmt.Errorf("%w: sideset %d", ErrDuplicateID, id)
	}
	s := &SideSet{ID: id, Label: label, Kind: kind}
	m.sideSets = append(m.sideSets, s)
	m.sideSetMap[id] = s
	return s, nil
}

// AddFacet creates a facet wrapping a new lower-dimensional element
func (m *Mesh) AddFacet(s *SideSet, id uint64, typ ElementType, nodeIDs ...uint64) (*Facet, error) {
	if _, ok := m.facetMap[id]; ok {
		return nil, fmt.Errorf("%w: facet %d", ErrDuplicateID, id)
	}
	e, err := m.newElement(id, typ, nodeIDs)
	if err != nil {
		return nil, err
	}
	f := &Facet{
		ID:        id,
		Index:     -1,
		Element:   e,
		Master:    NoElement,
		Slave:     NoElement,
		SideSetID: s.ID,
	}
	s.Facets = append(s.Facets, f)
	m.facetMap[id] = f
	return f, nil
}

// LinkFacet sets master and slave by element id instead of matching. The
// ids are resolved on the next Finalize; slaveID 0 means no slave.
func (m *Mesh) LinkFacet(f *Facet, masterID, slaveID uint64, masterLocal, slaveLocal int) {
	f.pendingMaster, f.pendingSlave = masterID, slaveID
	f.MasterLocal, f.SlaveLocal = masterLocal, slaveLocal
}

func (m *Mesh) newElement(id uint64, typ ElementType, nodeIDs []uint64) (*Element, error) {
	if len(nodeIDs) != typ.NumNodes() {
		return nil, fmt.Errorf("%w: %s element %d has %d nodes", ErrNodeCount, typ, id, len(nodeIDs))
	}
	e := &Element{ID: id, Index: -1, Type: typ, Nodes: make([]int, len(nodeIDs))}
	for i, nid := range nodeIDs {
		n, ok := m.nodeMap[nid]
		if !ok {
			return nil, fmt.Errorf("%w: %d in element %d", ErrUnknownNode, nid, id)
		}
		e.Nodes[i] = n.Index
	}
	return e, nil
}

// Nodes returns the node container; position equals Node.Index
func (m *Mesh) Nodes() []*Node { return m.nodes }

// Edges returns the edge container
func (m *Mesh) Edges() []*Edge { return m.edges }

// Faces returns the face container
func (m *Mesh) Faces() []*Face { return m.faces }

// Elements returns the derived element container
func (m *Mesh) Elements() []*Element { return m.elements }

// Facets returns the derived facet container (non-cut sidesets)
func (m *Mesh) Facets() []*Facet { return m.facets }

// Connectors returns the derived connector container (cut sidesets)
func (m *Mesh) Connectors() []*Facet { return m.connectors }

// Vertices returns the generalized vertex container
func (m *Mesh) Vertices() []*Vertex { return m.vertices }

// Blocks returns the blocks in creation order
func (m *Mesh) Blocks() []*Block { return m.blocks }

// SideSets returns the sidesets in creation order
func (m *Mesh) SideSets() []*SideSet { return m.sideSets }

// NodeByID looks up a node by its external id
func (m *Mesh) NodeByID(id uint64) (*Node, bool) {
	n, ok := m.nodeMap[id]
	return n, ok
}

// EdgeByID looks up an edge by its external id
func (m *Mesh) EdgeByID(id uint64) (*Edge, bool) {
	e, ok := m.edgeMap[id]
	return e, ok
}

// FaceByID looks up a face by its external id
func (m *Mesh) FaceByID(id uint64) (*Face, bool) {
	f, ok := m.faceMap[id]
	return f, ok
}

// ElementByID looks up an element by its external id
func (m *Mesh) ElementByID(id uint64) (*Element, bool) {
	e, ok := m.elementMap[id]
	return e, ok
}

// FacetByID looks up a facet or connector by its external id
func (m *Mesh) FacetByID(id uint64) (*Facet, bool) {
	f, ok := m.facetMap[id]
	return f, ok
}

// BlockByID looks up a block
func (m *Mesh) BlockByID(id uint64) (*Block, bool) {
	b, ok := m.blockMap[id]
	return b, ok
}

// SideSetByID looks up a sideset
func (m *Mesh) SideSetByID(id uint64) (*SideSet, bool) {
	s, ok := m.sideSetMap[id]
	return s, ok
}

// VertexByID looks up a generalized vertex
func (m *Mesh) VertexByID(id uint64) (*Vertex, bool) {
	v, ok := m.vertexMap[id]
	return v, ok
}

// Coordinates returns the node coordinates as a len(nodes)×NumDimensions matrix
func (m *Mesh) Coordinates() *mat.Dense {
	if len(m.nodes) == 0 || m.numDims == 0 {
		return nil
	}
	x := mat.NewDense(len(m.nodes), m.numDims, nil)
	for i, n := range m.nodes {
		x.SetRow(i, n.Coords[:m.numDims])
	}
	return x
}

// MaxNodeID returns the largest node id, 0 for an empty mesh
func (m *Mesh) MaxNodeID() uint64 {
	var id uint64
	for _, n := range m.nodes {
		id = max(id, n.ID)
	}
	return id
}

// MaxElementID returns the largest element id over all blocks
func (m *Mesh) MaxElementID() uint64 {
	var id uint64
	for _, b := range m.blocks {
		for _, e := range b.Elements {
			id = max(id, e.ID)
		}
	}
	return id
}

// MaxFacetID returns the largest facet id over all sidesets
func (m *Mesh) MaxFacetID() uint64 {
	var id uint64
	for _, s := range m.sideSets {
		for _, f := range s.Facets {
			id = max(id, f.ID)
		}
	}
	return id
}

// MaxEdgeID returns the largest edge id
func (m *Mesh) MaxEdgeID() uint64 {
	var id uint64
	for _, e := range m.edges {
		id = max(id, e.ID)
	}
	return id
}

// MaxFaceID returns the largest face id
func (m *Mesh) MaxFaceID() uint64 {
	var id uint64
	for _, f := range m.faces {
		id = max(id, f.ID)
	}
	return id
}

func appendUnique(s []int, v int) []int {
	for _, x := range s {
		if x == v {
			return s
		}
	}
	return append(s, v)
}
