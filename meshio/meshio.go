// Package meshio loads external mesh files into unfinalized entity
// containers. Parsing is delegated to the gocfd readers (Gambit neutral,
// Gmsh and SU2); this package only maps their flat arrays onto mesh ids.
package meshio

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	gocfdmesh "github.com/notargets/gocfd/DG3D/mesh"
	"github.com/notargets/gocfd/DG3D/mesh/readers"

	"github.com/cmesse/belfem-sub005/mesh"
	"github.com/cmesse/belfem-sub005/proc"
)

// Ids assigned to what the import creates
const (
	VolumeBlock     uint64 = 1
	ExteriorSideSet uint64 = 1
)

// ReadFile reads a mesh file and converts it. The format is chosen by the
// file extension.
func ReadFile(ctx proc.Context, path string, opts ...mesh.Option) (*mesh.Mesh, error) {
	gm, err := readers.ReadMeshFile(path)
	if err != nil {
		return nil, fmt.Errorf("meshio: read %s: %w", path, err)
	}
	m, err := FromGoCFD(ctx, gm, opts...)
	if err != nil {
		return nil, fmt.Errorf("meshio: convert %s: %w", path, err)
	}
	return m, nil
}

// FromGoCFD copies a gocfd mesh into a new 3D entity container. Vertex i
// becomes node i+1, element k becomes element k+1 of block 1. A preset
// partition vector becomes the element owners. The exterior faces are
// collected into sideset 1 because gocfd keeps boundary groups by face
// position rather than as facet elements.
func FromGoCFD(ctx proc.Context, gm *gocfdmesh.Mesh, opts ...mesh.Option) (*mesh.Mesh, error) {
	if gm == nil {
		return nil, fmt.Errorf("meshio: nil mesh")
	}
	if gm.EToP != nil && len(gm.EToP) != len(gm.EtoV) {
		return nil, fmt.Errorf("meshio: partition vector has %d entries for %d elements", len(gm.EToP), len(gm.EtoV))
	}
	m := mesh.New(ctx, 3, opts...)
	for i, v := range gm.Vertices {
		var c [3]float64
		copy(c[:], v)
		if _, err := m.AddNode(uint64(i+1), c[0], c[1], c[2]); err != nil {
			return nil, err
		}
	}
	block, err := m.AddBlock(VolumeBlock, "volume")
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, 10)
	for k, conn := range gm.EtoV {
		typ, err := mesh.TypeFromNodeCount(3, len(conn))
		if err != nil {
			return nil, fmt.Errorf("meshio: element %d: %w", k, err)
		}
		ids = ids[:0]
		for _, v := range conn {
			if v < 0 || v >= len(gm.Vertices) {
				return nil, fmt.Errorf("meshio: element %d references vertex %d of %d", k, v, len(gm.Vertices))
			}
			ids = append(ids, uint64(v+1))
		}
		e, err := m.AddElement(block, uint64(k+1), typ, ids...)
		if err != nil {
			return nil, err
		}
		if gm.EToP != nil {
			e.Owner = gm.EToP[k]
		}
	}
	n, err := AddExteriorSideSet(m, ExteriorSideSet, "exterior")
	if err != nil {
		return nil, err
	}
	ctx.Logger().Info("mesh imported",
		"nodes", len(gm.Vertices), "elements", len(gm.EtoV), "exterior", n)
	return m, nil
}

// faceKey identifies a facet by its sorted corner node indices
func faceKey(corners []int) string {
	s := slices.Clone(corners)
	slices.Sort(s)
	var b strings.Builder
	for _, c := range s {
		b.WriteString(strconv.Itoa(c))
		b.WriteByte(',')
	}
	return b.String()
}

// AddExteriorSideSet adds a sideset with one facet per element facet that
// no other element shares. The facets follow the element's local facet
// ordering and take ids after the highest existing facet id. It returns
// the number of facets created.
func AddExteriorSideSet(m *mesh.Mesh, id uint64, label string) (int, error) {
	if m.IsFinalized() {
		return 0, fmt.Errorf("meshio: exterior sideset on a finalized mesh")
	}
	type local struct {
		e *mesh.Element
		f int
	}
	var (
		order []string
		seen  = make(map[string][]local)
		dim   = m.NumDimensions()
	)
	for _, b := range m.Blocks() {
		for _, e := range b.Elements {
			if e.Dimension() != dim {
				continue
			}
			for f := 0; f < e.Type.NumFacets(); f++ {
				idx := e.Type.LocalFacet(f)
				corners := make([]int, 0, len(idx))
				for _, i := range idx[:e.Type.FacetType(f).NumCorners()] {
					corners = append(corners, e.Nodes[i])
				}
				key := faceKey(corners)
				if _, ok := seen[key]; !ok {
					order = append(order, key)
				}
				seen[key] = append(seen[key], local{e, f})
			}
		}
	}

	s, err := m.AddSideSet(id, label, mesh.Boundary)
	if err != nil {
		return 0, err
	}
	nodes := m.Nodes()
	next := m.MaxFacetID() + 1
	count := 0
	for _, key := range order {
		hits := seen[key]
		if len(hits) != 1 {
			continue
		}
		e, f := hits[0].e, hits[0].f
		idx := e.Type.LocalFacet(f)
		nids := make([]uint64, len(idx))
		for i, k := range idx {
			nids[i] = nodes[e.Nodes[k]].ID
		}
		if _, err := m.AddFacet(s, next, e.Type.FacetType(f), nids...); err != nil {
			return count, err
		}
		next++
		count++
	}
	return count, nil
}
