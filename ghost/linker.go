// Package ghost inserts thin layers of ghost elements on selected sidesets.
// A ghost element wraps a copy of each selected facet; its facet keeps the
// master and slave of the facet it was cloned from, so volume elements next
// to the interface see every layer in order through Element.Facets.
package ghost

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/cmesse/belfem-sub005/mesh"
	"github.com/cmesse/belfem-sub005/proc"
)

// ErrInvalidRequest indicates a ghost request that cannot be linked
var ErrInvalidRequest = errors.New("ghost: invalid request")

// Request describes one stack of N layers on one sideset.
//
// SideSets has N+1 entries: SideSets[0] is the existing sideset the stack
// grows on, SideSets[i] receives the facets of layer i. Blocks has N
// entries, Blocks[i-1] receives the ghost elements of layer i.
type Request struct {
	SideSets []uint64
	Blocks   []uint64

	// Facets optionally restricts the stack to these facets of SideSets[0],
	// in the given order. Empty means every facet of the sideset.
	Facets []uint64

	// CloneNodes gives every layer its own copy of the interface nodes,
	// linked to the originals as duplicates. Otherwise ghost elements
	// reference the original nodes.
	CloneNodes bool
}

// Layers returns the number of layers requested
func (r Request) Layers() int { return len(r.Blocks) }

// validate checks r against m and returns the source sideset and the
// facets to clone
func (r Request) validate(m *mesh.Mesh) (*mesh.SideSet, []*mesh.Facet, error) {
	if len(r.Blocks) == 0 {
		return nil, nil, fmt.Errorf("%w: no layers", ErrInvalidRequest)
	}
	if len(r.SideSets) != len(r.Blocks)+1 {
		return nil, nil, fmt.Errorf("%w: %d layers need %d sidesets, got %d",
			ErrInvalidRequest, len(r.Blocks), len(r.Blocks)+1, len(r.SideSets))
	}
	src, ok := m.SideSetByID(r.SideSets[0])
	if !ok {
		return nil, nil, fmt.Errorf("%w: unknown sideset %d", ErrInvalidRequest, r.SideSets[0])
	}
	if src.Kind != mesh.Boundary {
		return nil, nil, fmt.Errorf("%w: sideset %d is a %s sideset", ErrInvalidRequest, src.ID, src.Kind)
	}
	for _, id := range r.SideSets[1:] {
		if _, ok := m.SideSetByID(id); ok {
			return nil, nil, fmt.Errorf("%w: sideset %d exists", ErrInvalidRequest, id)
		}
	}
	for _, id := range r.Blocks {
		if _, ok := m.BlockByID(id); ok {
			return nil, nil, fmt.Errorf("%w: block %d exists", ErrInvalidRequest, id)
		}
	}
	if hasDuplicates(r.SideSets) || hasDuplicates(r.Blocks) {
		return nil, nil, fmt.Errorf("%w: repeated id", ErrInvalidRequest)
	}
	selected := src.Facets
	if len(r.Facets) > 0 {
		if hasDuplicates(r.Facets) {
			return nil, nil, fmt.Errorf("%w: repeated facet", ErrInvalidRequest)
		}
		selected = make([]*mesh.Facet, len(r.Facets))
		for i, id := range r.Facets {
			f, ok := m.FacetByID(id)
			if !ok || f.SideSetID != src.ID {
				return nil, nil, fmt.Errorf("%w: facet %d is not in sideset %d", ErrInvalidRequest, id, src.ID)
			}
			selected[i] = f
		}
	}
	for _, f := range selected {
		if f.Master == mesh.NoElement {
			return nil, nil, fmt.Errorf("%w: facet %d has no master", ErrInvalidRequest, f.ID)
		}
	}
	return src, selected, nil
}

func hasDuplicates(ids []uint64) bool {
	s := slices.Clone(ids)
	slices.Sort(s)
	return len(slices.Compact(s)) != len(ids)
}

// claim marks ids as taken across requests
func claim(taken map[uint64]bool, ids []uint64) error {
	for _, id := range ids {
		if taken[id] {
			return fmt.Errorf("%w: id %d used by two requests", ErrInvalidRequest, id)
		}
		taken[id] = true
	}
	return nil
}

// Linker builds and inserts ghost layers on the master process
type Linker struct {
	ctx proc.Context
}

// NewLinker creates a linker
func NewLinker(ctx proc.Context) *Linker {
	return &Linker{ctx: ctx}
}

// counters hand out fresh ids and predict the arena index an entity gets
// once its layer is inserted and the mesh finalized again
type counters struct {
	nodeID, elementID, facetID, edgeID, faceID uint64
	node, element, edge, face                  int
}

func newCounters(m *mesh.Mesh) *counters {
	return &counters{
		nodeID:    m.MaxNodeID() + 1,
		elementID: m.MaxElementID() + 1,
		facetID:   m.MaxFacetID() + 1,
		edgeID:    m.MaxEdgeID() + 1,
		faceID:    m.MaxFaceID() + 1,
		node:      len(m.Nodes()),
		element:   len(m.Elements()),
		edge:      len(m.Edges()),
		face:      len(m.Faces()),
	}
}

// Link builds every requested stack, inserts it and marks the facets as
// linked. The mesh must be finalized on entry and is left unfinalized; the
// caller finalizes it again, which wires the ghost facets into the volume
// elements. Fragments are left alone.
func (l *Linker) Link(m *mesh.Mesh, reqs ...Request) error {
	if m.IsFragment() {
		return nil
	}
	if !m.IsFinalized() {
		return mesh.ErrNotFinalized
	}
	if len(reqs) == 0 {
		return nil
	}
	start := time.Now()

	sources := make([]*mesh.SideSet, len(reqs))
	selected := make([][]*mesh.Facet, len(reqs))
	sideSets, blocks := make(map[uint64]bool), make(map[uint64]bool)
	for i, r := range reqs {
		src, facets, err := r.validate(m)
		if err != nil {
			return err
		}
		if err := claim(sideSets, r.SideSets[1:]); err != nil {
			return err
		}
		if err := claim(blocks, r.Blocks); err != nil {
			return err
		}
		sources[i], selected[i] = src, facets
	}

	// everything is cloned from finalized data before the mesh is touched
	c := newCounters(m)
	stacks := make([][]*layer, len(reqs))
	for i, r := range reqs {
		stacks[i] = l.buildStack(m, r, sources[i], selected[i], c)
	}

	m.Unfinalize()
	for i, r := range reqs {
		for _, ly := range stacks[i] {
			if err := m.InsertLayer(ly.Layer); err != nil {
				return err
			}
			for _, d := range ly.duplicates {
				if err := m.LinkDuplicateNodes(d[1], d[0]); err != nil {
					return err
				}
			}
		}
		stack := mesh.GhostStack{
			Source:   r.SideSets[0],
			Blocks:   slices.Clone(r.Blocks),
			SideSets: slices.Clone(r.SideSets[1:]),
		}
		if err := m.RegisterGhostStack(stack); err != nil {
			return err
		}
	}
	m.MarkFacetsLinked()

	ghosts := 0
	for i, r := range reqs {
		ghosts += r.Layers() * len(selected[i])
	}
	l.ctx.Logger().Info("ghost layers linked",
		"stacks", len(reqs),
		"elements", ghosts,
		"elapsed", time.Since(start))
	return nil
}

// layer is a mesh.Layer plus the (clone, original) node id pairs that
// become duplicates after insertion
type layer struct {
	*mesh.Layer
	duplicates [][2]uint64
}

// buildStack clones the selected facets of src once per layer
func (l *Linker) buildStack(m *mesh.Mesh, r Request, src *mesh.SideSet, selected []*mesh.Facet, c *counters) []*layer {
	elements := m.Elements()
	nodes := m.Nodes()
	edges := m.Edges()
	faces := m.Faces()

	out := make([]*layer, 0, r.Layers())
	for i := 1; i <= r.Layers(); i++ {
		ly := &layer{
			Layer: &mesh.Layer{
				Block:   &mesh.Block{ID: r.Blocks[i-1], Label: fmt.Sprintf("%s_ghost_%d", src.Label, i)},
				SideSet: &mesh.SideSet{ID: r.SideSets[i], Label: fmt.Sprintf("%s_ghost_%d", src.Label, i)},
			},
		}

		nodeOf := func(k int) int { return k }
		if r.CloneNodes {
			clones := make(map[int]int)
			nodeOf = func(k int) int {
				if j, ok := clones[k]; ok {
					return j
				}
				orig := nodes[k]
				n := &mesh.Node{ID: c.nodeID, Index: c.node, Coords: orig.Coords, Owner: orig.Owner}
				c.nodeID++
				c.node++
				clones[k] = n.Index
				ly.Nodes = append(ly.Nodes, n)
				ly.duplicates = append(ly.duplicates, [2]uint64{n.ID, orig.ID})
				return n.Index
			}
		}

		edgeClones := make(map[int]int)
		for _, f := range selected {
			master := elements[f.Master]
			ge := &mesh.Element{
				ID:    c.elementID,
				Index: c.element,
				Type:  f.Element.Type,
				Nodes: make([]int, len(f.Element.Nodes)),
				Owner: f.Owner,
			}
			c.elementID++
			c.element++
			for j, k := range f.Element.Nodes {
				ge.Nodes[j] = nodeOf(k)
			}

			if len(master.Edges) > 0 {
				ge.Edges = l.cloneEdges(ly, ge, f, master, edges, nodeOf, edgeClones, c)
			}
			if len(master.Faces) > 0 {
				orig := faces[master.Faces[f.MasterLocal]]
				face := &mesh.Face{
					ID:     c.faceID,
					Index:  c.face,
					Nodes:  slices.Clone(ge.Nodes),
					Owner:  orig.Owner,
					Master: ge.Index,
				}
				c.faceID++
				c.face++
				ly.Faces = append(ly.Faces, face)
				ge.Faces = []int{face.Index}
			}

			gf := &mesh.Facet{
				ID:          c.facetID,
				Index:       -1,
				Element:     ge,
				Master:      f.Master,
				Slave:       f.Slave,
				MasterLocal: f.MasterLocal,
				SlaveLocal:  f.SlaveLocal,
				Owner:       f.Owner,
				SideSetID:   ly.SideSet.ID,
				SourceID:    f.ID,
			}
			c.facetID++
			ly.Block.Elements = append(ly.Block.Elements, ge)
			ly.SideSet.Facets = append(ly.SideSet.Facets, gf)
		}
		out = append(out, ly)
	}
	return out
}

// cloneEdges copies the master's edges lying on the facet and returns the
// ghost element's edges in its local edge order
func (l *Linker) cloneEdges(ly *layer, ge *mesh.Element, f *mesh.Facet, master *mesh.Element,
	edges []*mesh.Edge, nodeOf func(int) int, clones map[int]int, c *counters) []int {

	type key [2]int
	byCorners := make(map[key]int)
	for _, le := range master.Type.FacetEdges(f.MasterLocal) {
		k := master.Edges[le]
		orig := edges[k]
		j, ok := clones[k]
		if !ok {
			e := &mesh.Edge{ID: c.edgeID, Index: c.edge, Owner: orig.Owner, Nodes: make([]int, len(orig.Nodes))}
			for p, n := range orig.Nodes {
				e.Nodes[p] = nodeOf(n)
			}
			c.edgeID++
			c.edge++
			ly.Edges = append(ly.Edges, e)
			clones[k] = e.Index
			j = e.Index
		}
		a, b := nodeOf(orig.Nodes[0]), nodeOf(orig.Nodes[1])
		byCorners[key{min(a, b), max(a, b)}] = j
	}

	out := make([]int, 0, ge.Type.NumEdges())
	for i := 0; i < ge.Type.NumEdges(); i++ {
		pair := ge.Type.LocalEdge(i)
		a, b := ge.Nodes[pair[0]], ge.Nodes[pair[1]]
		if j, ok := byCorners[key{min(a, b), max(a, b)}]; ok {
			out = append(out, j)
		}
	}
	return out
}
