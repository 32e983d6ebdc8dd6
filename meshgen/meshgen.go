// Package meshgen produces small structured meshes as unfinalized entity
// containers. They feed tests and the example driver.
package meshgen

import (
	"fmt"

	"github.com/cmesse/belfem-sub005/mesh"
	"github.com/cmesse/belfem-sub005/proc"
)

// Sideset ids used by the generators
const (
	BoundarySideSet  uint64 = 1
	InterfaceSideSet uint64 = 2
)

// Grid describes a structured quad grid on [0,Width]×[0,Height]
type Grid struct {
	NX, NY        int
	Width, Height float64
	// Interface adds sideset 2 on the interior horizontal line at row NY/2
	Interface bool
}

// NodeID returns the id of grid node (i, j)
func (g Grid) NodeID(i, j int) uint64 { return uint64(j*(g.NX+1) + i + 1) }

// ElementID returns the id of grid cell (i, j)
func (g Grid) ElementID(i, j int) uint64 { return uint64(j*g.NX + i + 1) }

// Build creates the grid with block 1 and boundary sideset 1
func (g Grid) Build(ctx proc.Context) (*mesh.Mesh, error) {
	if g.NX < 1 || g.NY < 1 {
		return nil, fmt.Errorf("meshgen: grid needs at least one cell, got %dx%d", g.NX, g.NY)
	}
	if g.Width == 0 {
		g.Width = 1
	}
	if g.Height == 0 {
		g.Height = 1
	}
	m := mesh.New(ctx, 2)
	dx, dy := g.Width/float64(g.NX), g.Height/float64(g.NY)
	for j := 0; j <= g.NY; j++ {
		for i := 0; i <= g.NX; i++ {
			if _, err := m.AddNode(g.NodeID(i, j), float64(i)*dx, float64(j)*dy); err != nil {
				return nil, err
			}
		}
	}
	block, err := m.AddBlock(1, "grid")
	if err != nil {
		return nil, err
	}
	for j := 0; j < g.NY; j++ {
		for i := 0; i < g.NX; i++ {
			_, err := m.AddElement(block, g.ElementID(i, j), mesh.Quad4,
				g.NodeID(i, j), g.NodeID(i+1, j), g.NodeID(i+1, j+1), g.NodeID(i, j+1))
			if err != nil {
				return nil, err
			}
		}
	}

	boundary, err := m.AddSideSet(BoundarySideSet, "boundary", mesh.Boundary)
	if err != nil {
		return nil, err
	}
	id := uint64(1)
	addLine := func(s *mesh.SideSet, a, b uint64) error {
		_, err := m.AddFacet(s, id, mesh.Line2, a, b)
		id++
		return err
	}
	for i := 0; i < g.NX; i++ {
		if err := addLine(boundary, g.NodeID(i, 0), g.NodeID(i+1, 0)); err != nil {
			return nil, err
		}
		if err := addLine(boundary, g.NodeID(i+1, g.NY), g.NodeID(i, g.NY)); err != nil {
			return nil, err
		}
	}
	for j := 0; j < g.NY; j++ {
		if err := addLine(boundary, g.NodeID(0, j+1), g.NodeID(0, j)); err != nil {
			return nil, err
		}
		if err := addLine(boundary, g.NodeID(g.NX, j), g.NodeID(g.NX, j+1)); err != nil {
			return nil, err
		}
	}

	if g.Interface && g.NY > 1 {
		iface, err := m.AddSideSet(InterfaceSideSet, "interface", mesh.Boundary)
		if err != nil {
			return nil, err
		}
		j := g.NY / 2
		for i := 0; i < g.NX; i++ {
			if err := addLine(iface, g.NodeID(i, j), g.NodeID(i+1, j)); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// TrianglePair builds two triangles sharing the edge between nodes 2 and 3.
// Triangle 1 is (1,2,3), triangle 2 is (2,4,3). The shared edge is facet 1
// of sideset 2; the outer edges form sideset 1.
func TrianglePair(ctx proc.Context) (*mesh.Mesh, error) {
	m := mesh.New(ctx, 2)
	coords := [][2]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}}
	for i, c := range coords {
		if _, err := m.AddNode(uint64(i+1), c[0], c[1]); err != nil {
			return nil, err
		}
	}
	b, err := m.AddBlock(1, "triangles")
	if err != nil {
		return nil, err
	}
	if _, err := m.AddElement(b, 1, mesh.Tri3, 1, 2, 3); err != nil {
		return nil, err
	}
	if _, err := m.AddElement(b, 2, mesh.Tri3, 2, 4, 3); err != nil {
		return nil, err
	}
	outer, err := m.AddSideSet(BoundarySideSet, "outer", mesh.Boundary)
	if err != nil {
		return nil, err
	}
	for i, pair := range [][2]uint64{{1, 2}, {2, 4}, {4, 3}, {3, 1}} {
		if _, err := m.AddFacet(outer, uint64(i+2), mesh.Line2, pair[0], pair[1]); err != nil {
			return nil, err
		}
	}
	iface, err := m.AddSideSet(InterfaceSideSet, "shared", mesh.Boundary)
	if err != nil {
		return nil, err
	}
	if _, err := m.AddFacet(iface, 1, mesh.Line2, 2, 3); err != nil {
		return nil, err
	}
	return m, nil
}

// TetPair builds two positively oriented tets with ids lo and hi sharing the
// face (1,2,3). The shared face is facet 1 of sideset 2.
func TetPair(ctx proc.Context, lo, hi uint64) (*mesh.Mesh, error) {
	m := mesh.New(ctx, 3)
	coords := [][3]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {0, 0, -1}}
	for i, c := range coords {
		if _, err := m.AddNode(uint64(i+1), c[0], c[1], c[2]); err != nil {
			return nil, err
		}
	}
	b, err := m.AddBlock(1, "tets")
	if err != nil {
		return nil, err
	}
	// the higher id goes in first so matching cannot rely on discovery order
	if _, err := m.AddElement(b, hi, mesh.Tet4, 1, 3, 2, 5); err != nil {
		return nil, err
	}
	if _, err := m.AddElement(b, lo, mesh.Tet4, 1, 2, 3, 4); err != nil {
		return nil, err
	}
	iface, err := m.AddSideSet(InterfaceSideSet, "shared", mesh.Boundary)
	if err != nil {
		return nil, err
	}
	if _, err := m.AddFacet(iface, 1, mesh.Tri3, 3, 2, 1); err != nil {
		return nil, err
	}
	return m, nil
}
