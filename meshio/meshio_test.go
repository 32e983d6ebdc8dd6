package meshio

import (
	"os"
	"path/filepath"
	"testing"

	gocfdmesh "github.com/notargets/gocfd/DG3D/mesh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmesse/belfem-sub005/mesh"
	"github.com/cmesse/belfem-sub005/proc"
)

const twoTets = `        CONTROL INFO 2.0.0
** GAMBIT NEUTRAL FILE
Two tetrahedra
PROGRAM:                  Test     VERSION:  1.0
Mon Jan  1 00:00:00 2025
     NUMNP     NELEM     NGRPS    NBSETS     NDFCD     NDFVL
         8         2         1         2         3         3
ENDOFSECTION
   NODAL COORDINATES 2.0.0
         1   0.00000000000e+00   0.00000000000e+00   0.00000000000e+00
         2   1.00000000000e+00   0.00000000000e+00   0.00000000000e+00
         3   0.00000000000e+00   1.00000000000e+00   0.00000000000e+00
         4   0.00000000000e+00   0.00000000000e+00   1.00000000000e+00
         5   1.00000000000e+00   1.00000000000e+00   0.00000000000e+00
         6   1.00000000000e+00   0.00000000000e+00   1.00000000000e+00
         7   0.00000000000e+00   1.00000000000e+00   1.00000000000e+00
         8   1.00000000000e+00   1.00000000000e+00   1.00000000000e+00
ENDOFSECTION
   ELEMENTS/CELLS 2.0.0
         1         6         4         1         2         3         4
         2         6         4         2         5         6         8
ENDOFSECTION
       BOUNDARY CONDITIONS 2.0.0
inlet           1         2         0         0         0         0         0         0
         1         6         1
         1         6         2
wall            1         3         0         0         0         0         0         0
         1         6         3
         2         6         1
         2         6         4
ENDOFSECTION`

func TestReadGambitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "two_tets.neu")
	require.NoError(t, os.WriteFile(path, []byte(twoTets), 0o644))

	m, err := ReadFile(proc.Default(), path)
	require.NoError(t, err)
	assert.Equal(t, 3, m.NumDimensions())
	assert.Len(t, m.Nodes(), 8)

	b, ok := m.BlockByID(VolumeBlock)
	require.True(t, ok)
	require.Len(t, b.Elements, 2)
	for _, e := range b.Elements {
		assert.Equal(t, mesh.Tet4, e.Type)
	}
	// the tets touch in a single node, so every face is exterior
	s, ok := m.SideSetByID(ExteriorSideSet)
	require.True(t, ok)
	assert.Len(t, s.Facets, 8)

	_, err = ReadFile(proc.Default(), filepath.Join(t.TempDir(), "missing.neu"))
	assert.Error(t, err)
}

func tetPair() *gocfdmesh.Mesh {
	return &gocfdmesh.Mesh{
		Vertices: [][]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {0, 0, -1}},
		EtoV:     [][]int{{0, 1, 2, 3}, {0, 2, 1, 4}},
		EToP:     []int{0, 1},
	}
}

func TestFromGoCFD(t *testing.T) {
	m, err := FromGoCFD(proc.Default(), tetPair())
	require.NoError(t, err)

	e1, ok := m.ElementByID(1)
	require.True(t, ok)
	e2, ok := m.ElementByID(2)
	require.True(t, ok)
	assert.Equal(t, 0, e1.Owner)
	assert.Equal(t, 1, e2.Owner)

	s, ok := m.SideSetByID(ExteriorSideSet)
	require.True(t, ok)
	require.Len(t, s.Facets, 6, "the shared face is interior")

	require.NoError(t, m.Finalize())
	assert.Equal(t, []int{e2.Index}, e1.Neighbors)
	for _, f := range s.Facets {
		assert.NotEqual(t, mesh.NoElement, f.Master, "facet %d", f.ID)
		assert.False(t, f.HasSlave(), "facet %d", f.ID)
	}
	assert.Empty(t, m.InvertedElements())
}

func TestFromGoCFDRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		gm   *gocfdmesh.Mesh
	}{
		{"nil", nil},
		{"partition length", &gocfdmesh.Mesh{
			Vertices: [][]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
			EtoV:     [][]int{{0, 1, 2, 3}},
			EToP:     []int{0, 1},
		}},
		{"vertex range", &gocfdmesh.Mesh{
			Vertices: [][]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
			EtoV:     [][]int{{0, 1, 2, 4}},
		}},
		{"node count", &gocfdmesh.Mesh{
			Vertices: [][]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
			EtoV:     [][]int{{0, 1, 2}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromGoCFD(proc.Default(), tt.gm)
			assert.Error(t, err)
		})
	}
}

func TestExteriorSideSetNeedsRawMesh(t *testing.T) {
	m, err := FromGoCFD(proc.Default(), tetPair())
	require.NoError(t, err)
	require.NoError(t, m.Finalize())
	_, err = AddExteriorSideSet(m, 5, "again")
	assert.Error(t, err)
}
