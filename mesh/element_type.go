package mesh

import "fmt"

// Geometry identifies the shape family of an element
type Geometry uint8

const (
	UndefinedGeometry Geometry = iota
	Line
	Tri
	Quad
	Tet
	Hex
	Prism
)

func (g Geometry) String() string {
	switch g {
	case Line:
		return "line"
	case Tri:
		return "tri"
	case Quad:
		return "quad"
	case Tet:
		return "tet"
	case Hex:
		return "hex"
	case Prism:
		return "prism"
	default:
		return "undefined"
	}
}

// ElementType is the concrete element kind. Everything that depends on the
// kind (node counts, local facets, local edges, curvature and orientation
// checks) is answered by the switch tables below.
type ElementType uint8

const (
	UndefinedType ElementType = iota
	Line2
	Line3
	Tri3
	Tri6
	Quad4
	Quad9
	Tet4
	Tet10
	Hex8
	Penta6
)

func (t ElementType) String() string {
	switch t {
	case Line2:
		return "LINE2"
	case Line3:
		return "LINE3"
	case Tri3:
		return "TRI3"
	case Tri6:
		return "TRI6"
	case Quad4:
		return "QUAD4"
	case Quad9:
		return "QUAD9"
	case Tet4:
		return "TET4"
	case Tet10:
		return "TET10"
	case Hex8:
		return "HEX8"
	case Penta6:
		return "PENTA6"
	default:
		return fmt.Sprintf("ElementType(%d)", uint8(t))
	}
}

// Geometry returns the shape family
func (t ElementType) Geometry() Geometry {
	switch t {
	case Line2, Line3:
		return Line
	case Tri3, Tri6:
		return Tri
	case Quad4, Quad9:
		return Quad
	case Tet4, Tet10:
		return Tet
	case Hex8:
		return Hex
	case Penta6:
		return Prism
	default:
		return UndefinedGeometry
	}
}

// Dimension returns the topological dimension
func (t ElementType) Dimension() int {
	switch t.Geometry() {
	case Line:
		return 1
	case Tri, Quad:
		return 2
	case Tet, Hex, Prism:
		return 3
	default:
		return 0
	}
}

// NumNodes returns the number of nodes including higher-order ones
func (t ElementType) NumNodes() int {
	switch t {
	case Line2:
		return 2
	case Line3, Tri3:
		return 3
	case Quad4, Tet4:
		return 4
	case Tri6, Penta6:
		return 6
	case Hex8:
		return 8
	case Quad9:
		return 9
	case Tet10:
		return 10
	default:
		return 0
	}
}

// NumCorners returns the number of corner (vertex) nodes
func (t ElementType) NumCorners() int {
	switch t.Geometry() {
	case Line:
		return 2
	case Tri:
		return 3
	case Quad, Tet:
		return 4
	case Prism:
		return 6
	case Hex:
		return 8
	default:
		return 0
	}
}

// Order returns the interpolation order
func (t ElementType) Order() int {
	switch t {
	case Line3, Tri6, Quad9, Tet10:
		return 2
	case UndefinedType:
		return 0
	default:
		return 1
	}
}

// Local facet tables, full node lists in facet-element node order. Facets of
// volume elements are oriented so that a positively oriented element has
// outward facet normals.
var (
	triFacets    = [][]int{{0, 1}, {1, 2}, {2, 0}}
	tri6Facets   = [][]int{{0, 1, 3}, {1, 2, 4}, {2, 0, 5}}
	quadFacets   = [][]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}}
	quad9Facets  = [][]int{{0, 1, 4}, {1, 2, 5}, {2, 3, 6}, {3, 0, 7}}
	tetFacets    = [][]int{{0, 1, 3}, {1, 2, 3}, {0, 3, 2}, {0, 2, 1}}
	tet10Facets  = [][]int{{0, 1, 3, 4, 9, 7}, {1, 2, 3, 5, 8, 9}, {0, 3, 2, 7, 8, 6}, {0, 2, 1, 6, 5, 4}}
	hexFacets    = [][]int{{0, 3, 2, 1}, {0, 1, 5, 4}, {1, 2, 6, 5}, {2, 3, 7, 6}, {3, 0, 4, 7}, {4, 5, 6, 7}}
	pentaFacets  = [][]int{{0, 1, 4, 3}, {1, 2, 5, 4}, {2, 0, 3, 5}, {0, 2, 1}, {3, 4, 5}}
	noLocalLists = [][]int{}
)

// Local edge tables, corner-node pairs
var (
	lineEdges  = [][2]int{{0, 1}}
	triEdges   = [][2]int{{0, 1}, {1, 2}, {2, 0}}
	quadEdges  = [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}}
	tetEdges   = [][2]int{{0, 1}, {1, 2}, {2, 0}, {0, 3}, {1, 3}, {2, 3}}
	hexEdges   = [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}, {0, 4}, {1, 5}, {2, 6}, {3, 7}, {4, 5}, {5, 6}, {6, 7}, {7, 4}}
	pentaEdges = [][2]int{{0, 1}, {1, 2}, {2, 0}, {0, 3}, {1, 4}, {2, 5}, {3, 4}, {4, 5}, {5, 3}}
)

// Midside nodes of second-order types as {mid, cornerA, cornerB}
var (
	line3Mids = [][3]int{{2, 0, 1}}
	tri6Mids  = [][3]int{{3, 0, 1}, {4, 1, 2}, {5, 2, 0}}
	quad9Mids = [][3]int{{4, 0, 1}, {5, 1, 2}, {6, 2, 3}, {7, 3, 0}}
	tet10Mids = [][3]int{{4, 0, 1}, {5, 1, 2}, {6, 2, 0}, {7, 3, 0}, {8, 3, 2}, {9, 3, 1}}
)

func (t ElementType) localFacets() [][]int {
	switch t {
	case Tri3:
		return triFacets
	case Tri6:
		return tri6Facets
	case Quad4:
		return quadFacets
	case Quad9:
		return quad9Facets
	case Tet4:
		return tetFacets
	case Tet10:
		return tet10Facets
	case Hex8:
		return hexFacets
	case Penta6:
		return pentaFacets
	default:
		return noLocalLists
	}
}

// NumFacets returns the number of local facets
func (t ElementType) NumFacets() int { return len(t.localFacets()) }

// LocalFacet returns the element-local node positions of facet i
func (t ElementType) LocalFacet(i int) []int { return t.localFacets()[i] }

// FacetType returns the element type of local facet i
func (t ElementType) FacetType(i int) ElementType {
	switch t {
	case Tri3, Quad4:
		return Line2
	case Tri6, Quad9:
		return Line3
	case Tet4:
		return Tri3
	case Tet10:
		return Tri6
	case Hex8:
		return Quad4
	case Penta6:
		if i < 3 {
			return Quad4
		}
		return Tri3
	default:
		return UndefinedType
	}
}

func (t ElementType) localEdges() [][2]int {
	switch t.Geometry() {
	case Line:
		return lineEdges
	case Tri:
		return triEdges
	case Quad:
		return quadEdges
	case Tet:
		return tetEdges
	case Hex:
		return hexEdges
	case Prism:
		return pentaEdges
	default:
		return nil
	}
}

// NumEdges returns the number of local edges
func (t ElementType) NumEdges() int { return len(t.localEdges()) }

// LocalEdge returns the corner positions of local edge i
func (t ElementType) LocalEdge(i int) [2]int { return t.localEdges()[i] }

// FacetEdges returns the local edges lying on local facet i
func (t ElementType) FacetEdges(i int) []int {
	corners := t.LocalFacet(i)[:t.FacetType(i).NumCorners()]
	in := func(c int) bool {
		for _, k := range corners {
			if k == c {
				return true
			}
		}
		return false
	}
	var edges []int
	for e, pair := range t.localEdges() {
		if in(pair[0]) && in(pair[1]) {
			edges = append(edges, e)
		}
	}
	return edges
}

func (t ElementType) midsideNodes() [][3]int {
	switch t {
	case Line3:
		return line3Mids
	case Tri6:
		return tri6Mids
	case Quad9:
		return quad9Mids
	case Tet10:
		return tet10Mids
	default:
		return nil
	}
}

// TypeFromNodeCount guesses the type of a dim-dimensional element with n nodes
func TypeFromNodeCount(dim, n int) (ElementType, error) {
	switch {
	case dim == 1 && n == 2:
		return Line2, nil
	case dim == 1 && n == 3:
		return Line3, nil
	case dim == 2 && n == 3:
		return Tri3, nil
	case dim == 2 && n == 4:
		return Quad4, nil
	case dim == 2 && n == 6:
		return Tri6, nil
	case dim == 2 && n == 9:
		return Quad9, nil
	case dim == 3 && n == 4:
		return Tet4, nil
	case dim == 3 && n == 6:
		return Penta6, nil
	case dim == 3 && n == 8:
		return Hex8, nil
	case dim == 3 && n == 10:
		return Tet10, nil
	}
	return UndefinedType, fmt.Errorf("mesh: no %d-dimensional element with %d nodes", dim, n)
}
