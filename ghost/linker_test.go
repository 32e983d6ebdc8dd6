package ghost

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmesse/belfem-sub005/mesh"
	"github.com/cmesse/belfem-sub005/meshgen"
	"github.com/cmesse/belfem-sub005/proc"
)

func finalizedPair(t *testing.T) *mesh.Mesh {
	t.Helper()
	m, err := meshgen.TrianglePair(proc.Default())
	require.NoError(t, err)
	require.NoError(t, m.Finalize())
	return m
}

func threeLayers() Request {
	return Request{
		SideSets: []uint64{meshgen.InterfaceSideSet, 10, 11, 12},
		Blocks:   []uint64{10, 11, 12},
	}
}

func nodeIDs(m *mesh.Mesh, e *mesh.Element) []uint64 {
	ids := make([]uint64, len(e.Nodes))
	for i, k := range e.Nodes {
		ids[i] = m.Nodes()[k].ID
	}
	return ids
}

func TestThreeLayersOnSharedEdge(t *testing.T) {
	m := finalizedPair(t)
	shared, _ := m.FacetByID(1)
	want := nodeIDs(m, shared.Element)

	require.NoError(t, NewLinker(proc.Default()).Link(m, threeLayers()))
	assert.False(t, m.IsFinalized())
	assert.True(t, m.FacetsLinked())
	require.NoError(t, m.Finalize())

	seen := make(map[uint64]bool)
	for i, id := range []uint64{10, 11, 12} {
		s, ok := m.SideSetByID(id)
		require.True(t, ok, "sideset %d", id)
		assert.True(t, s.Hidden)
		assert.Equal(t, mesh.GhostLayer, s.Kind)
		require.Len(t, s.Facets, 1)

		b, ok := m.BlockByID(id)
		require.True(t, ok, "block %d", id)
		assert.True(t, b.Ghost)
		require.Len(t, b.Elements, 1)
		g := b.Elements[0]
		assert.True(t, g.Ghost)
		assert.Equal(t, mesh.Line2, g.Type)
		assert.Equal(t, want, nodeIDs(m, g))
		assert.False(t, seen[g.ID], "ghost element id %d reused", g.ID)
		seen[g.ID] = true

		f := s.Facets[0]
		assert.Same(t, g, f.Element)
		assert.Equal(t, uint64(1), f.SourceID)
		assert.Equal(t, shared.Master, f.Master)
		assert.Equal(t, shared.Slave, f.Slave)
		assert.Equal(t, shared.MasterLocal, f.MasterLocal)
		assert.Equal(t, shared.SlaveLocal, f.SlaveLocal)
		assert.Equal(t, 2+i, g.Index)
	}

	// both triangles see the three layers in declared order
	for _, id := range []uint64{1, 2} {
		e, _ := m.ElementByID(id)
		require.Len(t, e.Facets, 3, "element %d", id)
		for i, k := range e.Facets {
			assert.Equal(t, uint64(10+i), m.Facets()[k].SideSetID)
		}
		assert.Len(t, e.Neighbors, 1, "ghosts are not volume neighbors")
	}

	// ghost elements of one stack all share the interface nodes
	for _, id := range []uint64{10, 11, 12} {
		b, _ := m.BlockByID(id)
		assert.Len(t, b.Elements[0].Neighbors, 2)
	}
}

func TestLinkSurvivesRefinalize(t *testing.T) {
	m := finalizedPair(t)
	require.NoError(t, NewLinker(proc.Default()).Link(m, threeLayers()))
	require.NoError(t, m.Finalize())
	require.NoError(t, m.Finalize())

	m.Unfinalize()
	require.NoError(t, m.Finalize())
	e, _ := m.ElementByID(1)
	assert.Len(t, e.Facets, 3)
	assert.Len(t, m.Elements(), 5)
	assert.Len(t, m.GhostStacks(), 1)
}

func TestGhostOwnersFollowSource(t *testing.T) {
	m := finalizedPair(t)
	require.NoError(t, NewLinker(proc.Default()).Link(m, threeLayers()))
	require.NoError(t, m.Finalize())

	e1, _ := m.ElementByID(1)
	e2, _ := m.ElementByID(2)
	e1.Owner, e2.Owner = 3, 1
	m.SettleFacetOwners()
	_, err := m.SettleOwners()
	require.NoError(t, err)

	for _, f := range m.Facets() {
		if f.IsGhost() {
			assert.Equal(t, 1, f.Owner)
			assert.Equal(t, 1, f.Element.Owner)
		}
	}
}

func TestCloneNodes(t *testing.T) {
	m := finalizedPair(t)
	req := threeLayers()
	req.CloneNodes = true
	require.NoError(t, NewLinker(proc.Default()).Link(m, req))
	require.NoError(t, m.Finalize())

	assert.Len(t, m.Nodes(), 4+3*2)
	n2, _ := m.NodeByID(2)
	assert.Len(t, n2.Duplicates, 3)

	seen := make(map[uint64]bool)
	for _, id := range []uint64{10, 11, 12} {
		b, _ := m.BlockByID(id)
		for _, nid := range nodeIDs(m, b.Elements[0]) {
			assert.Greater(t, nid, uint64(4))
			assert.False(t, seen[nid], "node %d shared between layers", nid)
			seen[nid] = true
		}
		// cloned layers do not touch each other
		assert.Empty(t, b.Elements[0].Neighbors)
	}

	e1, _ := m.ElementByID(1)
	e1.Owner = 2
	e2, _ := m.ElementByID(2)
	e2.Owner = 2
	m.SettleFacetOwners()
	_, err := m.SettleOwners()
	require.NoError(t, err)
	for _, k := range n2.Duplicates {
		assert.Equal(t, n2.Owner, m.Nodes()[k].Owner)
	}
}

func TestTetLayersCloneEdgesAndFaces(t *testing.T) {
	m, err := meshgen.TetPair(proc.Default(), 1, 2)
	require.NoError(t, err)
	require.NoError(t, m.Finalize())
	require.NoError(t, m.CreateEdges())
	require.NoError(t, m.FinalizeEdges())
	require.NoError(t, m.CreateFaces())
	require.NoError(t, m.FinalizeFaces())
	require.Len(t, m.Edges(), 9)
	require.Len(t, m.Faces(), 7)

	req := Request{SideSets: []uint64{meshgen.InterfaceSideSet, 20, 21}, Blocks: []uint64{20, 21}}
	require.NoError(t, NewLinker(proc.Default()).Link(m, req))
	require.NoError(t, m.Finalize())
	require.NoError(t, m.FinalizeEdges())
	require.NoError(t, m.FinalizeFaces())

	assert.Len(t, m.Edges(), 9+2*3)
	assert.Len(t, m.Faces(), 7+2)
	for _, id := range []uint64{20, 21} {
		b, _ := m.BlockByID(id)
		g := b.Elements[0]
		assert.Equal(t, mesh.Tri3, g.Type)
		require.Len(t, g.Edges, 3)
		require.Len(t, g.Faces, 1)
		face := m.Faces()[g.Faces[0]]
		assert.Equal(t, g.Index, face.Master)
		assert.Equal(t, []int{g.Index}, face.Elements)
		assert.ElementsMatch(t, g.Edges, face.Edges)
		for _, k := range g.Edges {
			assert.Equal(t, []int{g.Index}, m.Edges()[k].Elements)
		}
	}
	lo, _ := m.ElementByID(1)
	assert.Len(t, lo.Facets, 2)
}

func TestLinkRejectsBadRequests(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"no layers", Request{SideSets: []uint64{2}}},
		{"sideset count", Request{SideSets: []uint64{2, 10}, Blocks: []uint64{10, 11}}},
		{"unknown source", Request{SideSets: []uint64{9, 10}, Blocks: []uint64{10}}},
		{"existing sideset", Request{SideSets: []uint64{2, 1}, Blocks: []uint64{10}}},
		{"existing block", Request{SideSets: []uint64{2, 10}, Blocks: []uint64{1}}},
		{"repeated id", Request{SideSets: []uint64{2, 10, 10}, Blocks: []uint64{10, 11}}},
		{"foreign facet", Request{SideSets: []uint64{2, 10}, Blocks: []uint64{10}, Facets: []uint64{2}}},
		{"unknown facet", Request{SideSets: []uint64{2, 10}, Blocks: []uint64{10}, Facets: []uint64{42}}},
		{"repeated facet", Request{SideSets: []uint64{2, 10}, Blocks: []uint64{10}, Facets: []uint64{1, 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := finalizedPair(t)
			err := NewLinker(proc.Default()).Link(m, tt.req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
			assert.True(t, m.IsFinalized(), "a rejected request must not touch the mesh")
		})
	}

	m := finalizedPair(t)
	err := NewLinker(proc.Default()).Link(m,
		Request{SideSets: []uint64{2, 10}, Blocks: []uint64{10}},
		Request{SideSets: []uint64{1, 10}, Blocks: []uint64{11}})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	m.Unfinalize()
	assert.ErrorIs(t, NewLinker(proc.Default()).Link(m, threeLayers()), mesh.ErrNotFinalized)
}

func TestLayersOnFacetSubset(t *testing.T) {
	m, err := meshgen.Grid{NX: 4, NY: 4, Interface: true}.Build(proc.Default())
	require.NoError(t, err)
	require.NoError(t, m.Finalize())

	// interface facets are 17..20, two layers over the last and second one
	req := Request{
		SideSets: []uint64{meshgen.InterfaceSideSet, 10, 11},
		Blocks:   []uint64{10, 11},
		Facets:   []uint64{20, 18},
	}
	require.NoError(t, NewLinker(proc.Default()).Link(m, req))
	require.NoError(t, m.Finalize())

	for _, id := range []uint64{10, 11} {
		s, ok := m.SideSetByID(id)
		require.True(t, ok)
		require.Len(t, s.Facets, 2)
		assert.Equal(t, uint64(20), s.Facets[0].SourceID)
		assert.Equal(t, uint64(18), s.Facets[1].SourceID)
		b, _ := m.BlockByID(id)
		require.Len(t, b.Elements, 2)
		assert.Same(t, s.Facets[0].Element, b.Elements[0])
	}
	require.Len(t, m.GhostStacks(), 1)

	for _, id := range []uint64{17, 19} {
		f, _ := m.FacetByID(id)
		assert.Empty(t, m.Elements()[f.Master].Facets, "facet %d is not layered", id)
		assert.Empty(t, m.Elements()[f.Slave].Facets, "facet %d is not layered", id)
	}
	for _, id := range []uint64{18, 20} {
		f, _ := m.FacetByID(id)
		assert.Len(t, m.Elements()[f.Master].Facets, 2, "facet %d", id)
		assert.Len(t, m.Elements()[f.Slave].Facets, 2, "facet %d", id)
	}
}
