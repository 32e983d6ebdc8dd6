package mesh

import "math"

// curvatureTol is the relative midside offset above which an element counts
// as curved
const curvatureTol = 1e-9

// orientFacets rewrites each facet element's node list in the local facet
// order of its master, so a facet normal always points out of the master.
// Ghost facets wrap block elements and are oriented by the linker.
func (m *Mesh) orientFacets() {
	orient := func(f *Facet) {
		if f.IsGhost() || f.Master == NoElement || f.Master >= len(m.elements) {
			return
		}
		master := m.elements[f.Master]
		local := master.Type.LocalFacet(f.MasterLocal)
		if len(local) != len(f.Element.Nodes) {
			return
		}
		for i, p := range local {
			f.Element.Nodes[i] = master.Nodes[p]
		}
	}
	for _, f := range m.facets {
		orient(f)
	}
	for _, f := range m.connectors {
		orient(f)
	}
}

// markCurved flags second-order elements whose midside nodes leave the
// straight line between their corners
func (m *Mesh) markCurved() {
	for _, e := range m.elements {
		e.Curved = m.isCurved(e)
	}
}

func (m *Mesh) isCurved(e *Element) bool {
	for _, mid := range e.Type.midsideNodes() {
		a := m.nodes[e.Nodes[mid[1]]].Coords
		b := m.nodes[e.Nodes[mid[2]]].Coords
		x := m.nodes[e.Nodes[mid[0]]].Coords
		var dev, length float64
		for d := 0; d < 3; d++ {
			c := 0.5 * (a[d] + b[d])
			dev += (x[d] - c) * (x[d] - c)
			length += (b[d] - a[d]) * (b[d] - a[d])
		}
		if dev > curvatureTol*curvatureTol*length {
			return true
		}
	}
	return false
}

// InvertedElements returns the ids of elements with a non-positive signed
// measure. Lines and elements below the mesh dimension are skipped.
func (m *Mesh) InvertedElements() []uint64 {
	var ids []uint64
	for _, e := range m.elements {
		if e.Ghost || e.Dimension() != m.numDims {
			continue
		}
		if m.signedMeasure(e) <= 0 {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

// signedMeasure dispatches on the element geometry. Quads and 3D elements
// other than tets are checked on the simplex at corner 0.
func (m *Mesh) signedMeasure(e *Element) float64 {
	x := func(i int) [3]float64 { return m.nodes[e.Nodes[i]].Coords }
	switch e.Type.Geometry() {
	case Tri:
		return area(x(0), x(1), x(2))
	case Quad:
		return math.Min(area(x(0), x(1), x(3)), area(x(2), x(3), x(1)))
	case Tet:
		return volume(x(0), x(1), x(2), x(3))
	case Hex:
		return volume(x(0), x(1), x(3), x(4))
	case Prism:
		return volume(x(0), x(1), x(2), x(3))
	default:
		return 1
	}
}

func area(a, b, c [3]float64) float64 {
	return 0.5 * ((b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0]))
}

func volume(a, b, c, d [3]float64) float64 {
	u := [3]float64{b[0] - a[0], b[1] - a[1], b[2] - a[2]}
	v := [3]float64{c[0] - a[0], c[1] - a[1], c[2] - a[2]}
	w := [3]float64{d[0] - a[0], d[1] - a[1], d[2] - a[2]}
	return (u[0]*(v[1]*w[2]-v[2]*w[1]) - u[1]*(v[0]*w[2]-v[2]*w[0]) + u[2]*(v[0]*w[1]-v[1]*w[0])) / 6
}
