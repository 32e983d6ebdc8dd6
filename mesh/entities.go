package mesh

// NoElement marks an absent master or slave
const NoElement = -1

// Node is a mesh point. Back-reference lists hold dense indices into the
// owning Mesh's containers and are rebuilt on every Finalize.
type Node struct {
	ID     uint64
	Index  int
	Coords [3]float64
	Owner  int

	Elements  []int // node → element
	Edges     []int // node → edge
	Faces     []int // node → face
	Facets    []int // node → facet
	Neighbors []int // node → node

	// Duplicates are copies of this node created by a domain cut; all of
	// them carry one shared owner. Indices into the node arena.
	Duplicates []int

	flag bool
}

// Edge is a higher-order topological entity between two corner nodes
type Edge struct {
	ID    uint64
	Index int
	Nodes []int
	Owner int

	Elements  []int
	Faces     []int
	Neighbors []int // edge → edge

	flag bool
}

// Face is a 3D topological entity. Master is the lower-id element it was
// created from; its edges follow the master's local facet definition.
type Face struct {
	ID          uint64
	Index       int
	Nodes       []int
	Owner       int
	Master      int
	MasterLocal int

	Elements []int
	Edges    []int
}

// Element is a mesh cell. Nodes is the primitive element→node incidence.
type Element struct {
	ID          uint64
	Index       int
	Type        ElementType
	Nodes       []int
	GeometryTag int
	PhysicalTag int
	Owner       int
	BlockID     uint64
	Curved      bool
	Ghost       bool

	Edges     []int // set by CreateEdges, local edge order
	Faces     []int // set by CreateFaces, local facet order
	Neighbors []int // element → element
	Facets    []int // ghost facet layers, declared layer order

	flag bool
}

// Dimension of the element
func (e *Element) Dimension() int { return e.Type.Dimension() }

// Corners returns the corner node indices
func (e *Element) Corners() []int { return e.Nodes[:e.Type.NumCorners()] }

// Facet wraps one lower-dimensional element and links it to its master
// (and optional slave) volume element with the local facet index on each.
// Orientation is never stored: after Finalize the wrapped element's nodes
// follow the master's local facet ordering.
type Facet struct {
	ID          uint64
	Index       int
	Element     *Element
	Master      int
	Slave       int
	MasterLocal int
	SlaveLocal  int
	Owner       int
	SideSetID   uint64

	// SourceID is the facet a ghost layer facet was cloned from, 0 otherwise
	SourceID uint64

	pendingMaster, pendingSlave uint64
}

// HasSlave reports whether the facet is interior
func (f *Facet) HasSlave() bool { return f.Slave != NoElement }

// IsGhost reports whether this facet belongs to a ghost layer
func (f *Facet) IsGhost() bool { return f.SourceID != 0 }

// Block is a named group of same-family elements (a physical region)
type Block struct {
	ID       uint64
	Label    string
	Elements []*Element
	Ghost    bool
}

// SideSetKind distinguishes what a sideset represents
type SideSetKind uint8

const (
	Boundary SideSetKind = iota
	Cut
	GhostLayer
)

func (k SideSetKind) String() string {
	switch k {
	case Cut:
		return "cut"
	case GhostLayer:
		return "ghost"
	default:
		return "boundary"
	}
}

// SideSet is a named group of facets. Hidden sidesets are not exported.
type SideSet struct {
	ID     uint64
	Label  string
	Kind   SideSetKind
	Hidden bool
	Facets []*Facet

	// Nodes collected from the facets on Finalize
	Nodes []int
}

// VertexKind says what a generalized vertex stands for
type VertexKind uint8

const (
	NodeVertex VertexKind = iota
	EdgeVertex
)

// Vertex treats nodes and edges uniformly for edge-conforming discretizations
type Vertex struct {
	ID    uint64
	Index int
	Kind  VertexKind
	Ref   int // index of the defining node or edge
	Owner int
}

// Layer is a bundle of freshly cloned entities. Ownership passes to the
// Mesh on InsertLayer; the bundle must not be reused afterwards.
type Layer struct {
	Nodes    []*Node
	Edges    []*Edge
	Faces    []*Face
	Block    *Block
	SideSet  *SideSet
	inserted bool
}
