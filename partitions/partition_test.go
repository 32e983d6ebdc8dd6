package partitions

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmesse/belfem-sub005/mesh"
	"github.com/cmesse/belfem-sub005/meshgen"
	"github.com/cmesse/belfem-sub005/proc"
)

func finalizedGrid(t *testing.T, g meshgen.Grid) *mesh.Mesh {
	t.Helper()
	m, err := g.Build(proc.Default())
	require.NoError(t, err)
	require.NoError(t, m.Finalize())
	return m
}

// checkOwnerInvariants verifies every facet and every node, not a sample
func checkOwnerInvariants(t *testing.T, m *mesh.Mesh) {
	t.Helper()
	elements := m.Elements()
	for _, f := range m.Facets() {
		want := elements[f.Master].Owner
		if f.HasSlave() {
			want = min(want, elements[f.Slave].Owner)
		}
		if f.Owner != want {
			t.Errorf("facet %d: owner %d, want min of adjacent owners %d", f.ID, f.Owner, want)
		}
	}
	for _, n := range m.Nodes() {
		want := elements[n.Elements[0]].Owner
		for _, k := range n.Elements {
			want = min(want, elements[k].Owner)
		}
		if n.Owner != want {
			t.Errorf("node %d: owner %d, want %d", n.ID, n.Owner, want)
		}
	}
}

// TestGridFourPartitions runs the 10×10 contiguity smoke test for every
// strategy that works without METIS
func TestGridFourPartitions(t *testing.T) {
	strategies := []PartitionStrategy{BlockPartition, RoundRobin, GraphGrowth}
	for _, s := range strategies {
		t.Run(s.String(), func(t *testing.T) {
			m := finalizedGrid(t, meshgen.Grid{NX: 10, NY: 10, Interface: true})
			p := NewPartitioner(proc.Default(), 4, WithStrategy(s))

			res, err := p.Partition(m)
			require.NoError(t, err)
			assert.False(t, res.Degraded)
			require.NoError(t, res.Layout.ValidateLayout())
			assert.Equal(t, 100, res.Layout.TotalElements)
			assert.LessOrEqual(t, res.Repair.FacetSweeps, 4)

			for _, e := range m.Elements() {
				assert.GreaterOrEqual(t, e.Owner, 0)
				assert.Less(t, e.Owner, 4)
			}
			checkOwnerInvariants(t, m)
		})
	}
}

func TestFacetRepairLowersAcrossInterface(t *testing.T) {
	g := meshgen.Grid{NX: 10, NY: 10, Interface: true}
	m := finalizedGrid(t, g)
	res, err := NewPartitioner(proc.Default(), 4, WithStrategy(BlockPartition)).Partition(m)
	require.NoError(t, err)

	// block cut: row 4 ends in partition 1, row 5 starts partition 2 and is
	// pulled down to 1 across the interface
	assert.Equal(t, 2, res.Repair.FacetSweeps)
	for i := 0; i < g.NX; i++ {
		below, _ := m.ElementByID(g.ElementID(i, 4))
		above, _ := m.ElementByID(g.ElementID(i, 5))
		assert.Equal(t, 1, below.Owner)
		assert.Equal(t, 1, above.Owner)
	}
	// owners never go up
	far, _ := m.ElementByID(g.ElementID(9, 9))
	assert.Equal(t, 3, far.Owner)
}

func TestPartitionDegradesWithoutGraphPartitioner(t *testing.T) {
	m := finalizedGrid(t, meshgen.Grid{NX: 4, NY: 4})
	res, err := NewPartitioner(proc.Default(), 3, WithGraphPartitioner(nil)).Partition(m)
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.Equal(t, 1, res.Layout.NumPartitions)
	for _, e := range m.Elements() {
		assert.Equal(t, 0, e.Owner)
	}
	for _, n := range m.Nodes() {
		assert.Equal(t, 0, n.Owner)
	}
}

func TestPartitionStatusIsFatal(t *testing.T) {
	statuses := []Status{StatusInvalidInput, StatusMemoryError, StatusUnknown}
	for _, s := range statuses {
		t.Run(s.String(), func(t *testing.T) {
			m := finalizedGrid(t, meshgen.Grid{NX: 2, NY: 2})
			failing := GraphPartitionerFunc(func(*DualGraph, int) ([]int, Status) { return nil, s })
			_, err := NewPartitioner(proc.Default(), 2, WithGraphPartitioner(failing)).Partition(m)
			require.ErrorIs(t, err, ErrPartitionFailed)
			var se *StatusError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, s, se.Status)
		})
	}
}

func TestPartitionRejectsBadLabels(t *testing.T) {
	m := finalizedGrid(t, meshgen.Grid{NX: 2, NY: 2})
	bad := GraphPartitionerFunc(func(g *DualGraph, _ int) ([]int, Status) {
		return make([]int, g.NumVertices()-1), StatusOK
	})
	_, err := NewPartitioner(proc.Default(), 2, WithGraphPartitioner(bad)).Partition(m)
	assert.ErrorIs(t, err, ErrPartitionFailed)

	_, err = NewPartitioner(proc.Default(), 0).Partition(m)
	assert.ErrorIs(t, err, ErrInvalidPartitionCount)
}

func TestPartitionNeedsFinalizedMesh(t *testing.T) {
	m, err := meshgen.Grid{NX: 2, NY: 2}.Build(proc.Default())
	require.NoError(t, err)
	_, err = NewPartitioner(proc.Default(), 2).Partition(m)
	assert.ErrorIs(t, err, mesh.ErrNotFinalized)
}

// twoBlockRow builds four unit quads in a row; blocks 1 and 2 hold two each
func twoBlockRow(t *testing.T) *mesh.Mesh {
	t.Helper()
	m := mesh.New(proc.Default(), 2)
	for j := 0; j <= 1; j++ {
		for i := 0; i <= 4; i++ {
			_, err := m.AddNode(uint64(j*5+i+1), float64(i), float64(j))
			require.NoError(t, err)
		}
	}
	for b := 0; b < 2; b++ {
		block, err := m.AddBlock(uint64(b+1), "row")
		require.NoError(t, err)
		for c := 0; c < 2; c++ {
			i := uint64(2*b + c)
			_, err := m.AddElement(block, i+1, mesh.Quad4, i+1, i+2, i+7, i+6)
			require.NoError(t, err)
		}
	}
	require.NoError(t, m.Finalize())
	return m
}

func TestUnflaggedElementsGetSentinel(t *testing.T) {
	m := twoBlockRow(t)
	res, err := NewPartitioner(proc.Default(), 2, WithStrategy(BlockPartition), WithBlocks(1)).Partition(m)
	require.NoError(t, err)

	owners := make([]int, 0, 4)
	for _, e := range m.Elements() {
		owners = append(owners, e.Owner)
	}
	assert.Equal(t, []int{0, 1, 2, 2}, owners)
	assert.Equal(t, 2, res.Graph.NumVertices())
	assert.Equal(t, 2, res.Layout.TotalElements)
	assert.Equal(t, -1, res.Layout.GetPartition(2))

	// node 3 sits between element 2 (owner 1) and element 3 (sentinel)
	n, _ := m.NodeByID(3)
	assert.Equal(t, 1, n.Owner)

	_, err = NewPartitioner(proc.Default(), 2, WithBlocks(9)).Partition(m)
	assert.Error(t, err)
}

func TestDualGraphCSR(t *testing.T) {
	m := finalizedGrid(t, meshgen.Grid{NX: 2, NY: 2})
	all := []bool{true, true, true, true}
	g := BuildDualGraph(m, all)
	if g.NumVertices() != 4 {
		t.Fatalf("Expected 4 vertices, got %d", g.NumVertices())
	}
	assert.Equal(t, []int32{0, 3, 6, 9, 12}, g.Xadj)
	assert.Equal(t, 6, g.NumEdges())

	// dropping element 3 removes it from the graph, not just from output
	g = BuildDualGraph(m, []bool{true, true, true, false})
	assert.Equal(t, []int32{0, 2, 4, 6}, g.Xadj)
	assert.Len(t, g.Adjncy, 6)
	assert.Equal(t, -1, g.Vertex(3))
	for v := 0; v < g.NumVertices(); v++ {
		for _, u := range g.Neighbors(v) {
			if int(u) == v {
				t.Errorf("vertex %d lists itself", v)
			}
			assert.Contains(t, g.Neighbors(int(u)), int32(v))
		}
	}
}

func TestGraphGrowingBalancedAndDeterministic(t *testing.T) {
	m := finalizedGrid(t, meshgen.Grid{NX: 10, NY: 10})
	flagged := make([]bool, len(m.Elements()))
	for i := range flagged {
		flagged[i] = true
	}
	g := BuildDualGraph(m, flagged)

	first, status := GraphGrowing{}.PartGraphKway(g, 4)
	require.Equal(t, StatusOK, status)
	second, _ := GraphGrowing{}.PartGraphKway(g, 4)
	assert.Equal(t, first, second)

	counts := make([]int, 4)
	for _, l := range first {
		counts[l]++
	}
	assert.Equal(t, []int{25, 25, 25, 25}, counts)

	_, status = GraphGrowing{}.PartGraphKway(g, 0)
	assert.Equal(t, StatusInvalidInput, status)
}

func TestLayoutMetrics(t *testing.T) {
	m := finalizedGrid(t, meshgen.Grid{NX: 10, NY: 10})
	res, err := NewPartitioner(proc.Default(), 2, WithStrategy(BlockPartition)).Partition(m)
	require.NoError(t, err)

	metrics := res.Layout.Metrics(res.Graph)
	// rows 0-4 against rows 5-9 with corner neighbors
	assert.Equal(t, 28, metrics.EdgeCut)
	assert.Equal(t, []int{1, 1}, metrics.NumNeighbors)

	stats := res.Layout.PartitionStatistics()
	assert.Equal(t, 50, stats.MinElements)
	assert.Equal(t, 50, stats.MaxElements)
	assert.InDelta(t, 1.0, stats.Imbalance, 1e-12)
}

// TestValidateLayout tests the layout consistency checks
func TestValidateLayout(t *testing.T) {
	layout := &PartitionLayout{
		Partitions: []Partition{
			{ID: 0, Elements: []int{0, 1}, NumElements: 2, MaxElements: 2},
			{ID: 1, Elements: []int{2}, NumElements: 1, MaxElements: 2},
		},
		KpartMax:      2,
		TotalElements: 3,
		NumPartitions: 2,
		EToP:          []int{0, 0, 1},
	}
	if err := layout.ValidateLayout(); err != nil {
		t.Fatalf("valid layout rejected: %v", err)
	}

	// Test 1: wrong KpartMax
	layout.KpartMax = 3
	if err := layout.ValidateLayout(); err == nil {
		t.Errorf("Expected KpartMax mismatch to fail")
	}
	layout.KpartMax = 2

	// Test 2: element listed under the wrong partition
	layout.EToP[2] = 0
	if err := layout.ValidateLayout(); err == nil {
		t.Errorf("Expected EToP mismatch to fail")
	}
	layout.EToP[2] = 1

	// Test 3: element count
	layout.TotalElements = 4
	if err := layout.ValidateLayout(); err == nil {
		t.Errorf("Expected total mismatch to fail")
	}
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in   string
		want PartitionStrategy
	}{
		{"graph", GraphPartition},
		{"", GraphPartition},
		{"block", BlockPartition},
		{"round_robin", RoundRobin},
		{"Graph_Growing", GraphGrowth},
	}
	for _, tt := range tests {
		got, err := ParseStrategy(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
	_, err := ParseStrategy("hilbert")
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

// TestRepairStaircase chains the owners 3,2,1,0 up a column of quads. The
// facets are swept bottom to top, so every sweep moves the lowest owner one
// row further and the fixpoint needs all P sweeps.
func TestRepairStaircase(t *testing.T) {
	const P = 4
	g := meshgen.Grid{NX: 1, NY: P}
	m, err := g.Build(proc.Default())
	require.NoError(t, err)
	stairs, err := m.AddSideSet(3, "stairs", mesh.Boundary)
	require.NoError(t, err)
	id := m.MaxFacetID() + 1
	for j := 1; j < P; j++ {
		_, err := m.AddFacet(stairs, id, mesh.Line2, g.NodeID(0, j), g.NodeID(1, j))
		require.NoError(t, err)
		id++
	}
	require.NoError(t, m.Finalize())

	flagged := make([]bool, len(m.Elements()))
	before := make(map[uint64]int)
	for j := 0; j < P; j++ {
		e, _ := m.ElementByID(g.ElementID(0, j))
		e.Owner = P - 1 - j
		flagged[e.Index] = true
		before[e.ID] = e.Owner
	}

	report, err := RepairOwners(m, flagged)
	require.NoError(t, err)
	assert.Equal(t, P, report.FacetSweeps)
	assert.LessOrEqual(t, report.FacetSweeps, P)
	for _, e := range m.Elements() {
		assert.Equal(t, 0, e.Owner, "element %d", e.ID)
		assert.LessOrEqual(t, e.Owner, before[e.ID])
	}
	checkOwnerInvariants(t, m)
}
