package coordinator

import (
	"fmt"
	"slices"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/cmesse/belfem-sub005/comm"
	"github.com/cmesse/belfem-sub005/mesh"
	"github.com/cmesse/belfem-sub005/utils"
)

// Halo lists the elements exchanged with one peer rank
type Halo struct {
	Rank    int
	Send    []uint64 // own elements the peer needs
	Receive []uint64 // peer elements this rank needs, in halo slot order
}

// Fragment is the part of the mesh one rank owns
type Fragment struct {
	Mesh *mesh.Mesh
	Halo []Halo
}

// HaloWith returns the halo shared with rank, if any
func (f *Fragment) HaloWith(rank int) (Halo, bool) {
	for _, h := range f.Halo {
		if h.Rank == rank {
			return h, true
		}
	}
	return Halo{}, false
}

type nodePayload struct {
	ID         uint64
	Owner      int
	Duplicates []uint64
}

type elementPayload struct {
	ID          uint64
	Type        mesh.ElementType
	Nodes       []uint64
	Owner       int
	GeometryTag int
	PhysicalTag int
}

type blockPayload struct {
	ID       uint64
	Label    string
	Ghost    bool
	Elements []elementPayload
}

type facetPayload struct {
	ID          uint64
	Type        mesh.ElementType
	Nodes       []uint64
	Master      uint64
	Slave       uint64
	MasterLocal int
	SlaveLocal  int
	Owner       int
	SourceID    uint64
	Element     uint64 // ghost element wrapped by a ghost facet
}

type sideSetPayload struct {
	ID     uint64
	Label  string
	Kind   mesh.SideSetKind
	Block  uint64 // ghost block of a ghost sideset
	Facets []facetPayload
}

type fragmentPayload struct {
	Dims     int
	Nodes    []nodePayload
	Blocks   []blockPayload
	SideSets []sideSetPayload
	Halo     []Halo
}

// Distribute ships every rank the elements it owns, the facets touching
// them, their nodes and the halo lists, and finalizes the result as a
// fragment. On workers m is ignored. Elements owned by a rank outside the
// communicator (the unflagged sentinel) go nowhere.
func (c *Coordinator) Distribute(m *mesh.Mesh) (*Fragment, error) {
	cm := c.ctx.Communicator()
	size := cm.Size()
	log := c.ctx.Logger()
	start := time.Now()

	var (
		payloads []fragmentPayload
		coords   []*mat.Dense
	)
	err := c.OnMaster(func() error {
		if m == nil || !m.IsFinalized() {
			return mesh.ErrNotFinalized
		}
		var err error
		payloads, coords, err = buildPayloads(m, size)
		return err
	})
	if err != nil {
		return nil, err
	}

	// every rank has left its previous step before fragments move
	if err := cm.Barrier(); err != nil {
		return nil, fmt.Errorf("coordinator: barrier before distribution: %w", err)
	}

	var (
		p fragmentPayload
		x *mat.Dense
	)
	if c.ctx.IsMaster() {
		for r := 1; r < size; r++ {
			if err := cm.Send(r, &payloads[r]); err != nil {
				return nil, fmt.Errorf("coordinator: send fragment to rank %d: %w", r, err)
			}
			if err := comm.SendMatrix(cm, r, coords[r]); err != nil {
				return nil, fmt.Errorf("coordinator: send coordinates to rank %d: %w", r, err)
			}
		}
		p, x = payloads[comm.Master], coords[comm.Master]
	} else {
		if err := cm.Receive(comm.Master, &p); err != nil {
			return nil, fmt.Errorf("coordinator: receive fragment: %w", err)
		}
		d, err := comm.ReceiveMatrix(cm, comm.Master)
		if err != nil {
			return nil, fmt.Errorf("coordinator: receive coordinates: %w", err)
		}
		x = d
	}

	frag, err := c.buildFragment(p, x)
	if err != nil {
		return nil, err
	}
	log.Info("fragment received",
		"nodes", len(frag.Mesh.Nodes()),
		"elements", len(frag.Mesh.Elements()),
		"facets", len(frag.Mesh.Facets()),
		"peers", len(frag.Halo),
		"elapsed", time.Since(start))

	if err := cm.Barrier(); err != nil {
		return nil, fmt.Errorf("coordinator: barrier after distribution: %w", err)
	}
	return frag, nil
}

// buildPayloads splits m into one payload per rank
func buildPayloads(m *mesh.Mesh, size int) ([]fragmentPayload, []*mat.Dense, error) {
	elements := m.Elements()
	nodes := m.Nodes()
	rankOf := func(k int) int {
		if k == mesh.NoElement {
			return -1
		}
		o := elements[k].Owner
		if o < 0 || o >= size {
			return -1
		}
		return o
	}

	payloads := make([]fragmentPayload, size)
	used := make([][]bool, size) // [rank][node index]
	for r := range payloads {
		payloads[r].Dims = m.NumDimensions()
		used[r] = make([]bool, len(nodes))
	}
	nodeIDs := func(r int, idx []int) []uint64 {
		ids := make([]uint64, len(idx))
		for i, k := range idx {
			ids[i] = nodes[k].ID
			used[r][k] = true
		}
		return ids
	}

	for _, b := range m.Blocks() {
		per := make([][]elementPayload, size)
		for _, e := range b.Elements {
			r := rankOf(e.Index)
			if r < 0 {
				continue
			}
			per[r] = append(per[r], elementPayload{
				ID:          e.ID,
				Type:        e.Type,
				Nodes:       nodeIDs(r, e.Nodes),
				Owner:       e.Owner,
				GeometryTag: e.GeometryTag,
				PhysicalTag: e.PhysicalTag,
			})
		}
		for r, list := range per {
			if len(list) > 0 {
				payloads[r].Blocks = append(payloads[r].Blocks, blockPayload{ID: b.ID, Label: b.Label, Ghost: b.Ghost, Elements: list})
			}
		}
	}

	ghostBlock := make(map[uint64]uint64)
	for _, s := range m.GhostStacks() {
		for i, id := range s.SideSets {
			ghostBlock[id] = s.Blocks[i]
		}
	}
	for _, s := range m.SideSets() {
		per := make([][]facetPayload, size)
		for _, f := range s.Facets {
			if f.Master == mesh.NoElement {
				return nil, nil, fmt.Errorf("%w: facet %d", mesh.ErrNoFacetMaster, f.ID)
			}
			master, slave := f.Master, f.Slave
			masterLocal, slaveLocal := f.MasterLocal, f.SlaveLocal
			rm, rs := rankOf(master), rankOf(slave)

			var targets []int
			switch {
			case f.IsGhost():
				if r := rankOf(f.Element.Index); r >= 0 {
					targets = []int{r}
				}
			default:
				if rm >= 0 {
					targets = append(targets, rm)
				}
				if rs >= 0 && rs != rm {
					targets = append(targets, rs)
				}
			}
			for _, r := range targets {
				fp := facetPayload{
					ID:       f.ID,
					Type:     f.Element.Type,
					Nodes:    nodeIDs(r, f.Element.Nodes),
					Owner:    f.Owner,
					SourceID: f.SourceID,
				}
				if f.IsGhost() {
					fp.Element = f.Element.ID
				}
				// the fragment's master is always a local element
				switch {
				case rm == r && rs == r:
					fp.Master, fp.Slave = elements[master].ID, elements[slave].ID
					fp.MasterLocal, fp.SlaveLocal = masterLocal, slaveLocal
				case rm == r:
					fp.Master, fp.MasterLocal = elements[master].ID, masterLocal
				case rs == r:
					fp.Master, fp.MasterLocal = elements[slave].ID, slaveLocal
				default:
					// a ghost whose source sides live elsewhere keeps its
					// own element as master
					fp.Master = f.Element.ID
				}
				per[r] = append(per[r], fp)
			}
		}
		for r, list := range per {
			if len(list) > 0 {
				payloads[r].SideSets = append(payloads[r].SideSets, sideSetPayload{
					ID: s.ID, Label: s.Label, Kind: s.Kind, Block: ghostBlock[s.ID], Facets: list,
				})
			}
		}
	}

	dims := m.NumDimensions()
	coords := make([]*mat.Dense, size)
	for r := range payloads {
		var data []float64
		for k, ok := range used[r] {
			if !ok {
				continue
			}
			n := nodes[k]
			np := nodePayload{ID: n.ID, Owner: n.Owner}
			for _, d := range n.Duplicates {
				if used[r][d] {
					np.Duplicates = append(np.Duplicates, nodes[d].ID)
				}
			}
			payloads[r].Nodes = append(payloads[r].Nodes, np)
			data = append(data, n.Coords[:dims]...)
		}
		if len(data) > 0 {
			coords[r] = mat.NewDense(len(payloads[r].Nodes), dims, data)
		}
	}

	halo, err := buildHalo(m, size)
	if err != nil {
		return nil, nil, err
	}
	for r := range payloads {
		payloads[r].Halo = halo[r]
	}
	return payloads, coords, nil
}

// buildHalo derives per rank halo lists from element → element
func buildHalo(m *mesh.Mesh, size int) ([][]Halo, error) {
	elements := m.Elements()
	EToP := make([]int, len(elements))
	var pairs [][2]int
	for k, e := range elements {
		EToP[k] = e.Owner
		if e.Ghost {
			EToP[k] = -1
			continue
		}
		for _, o := range e.Neighbors {
			if o > k && !elements[o].Ghost {
				pairs = append(pairs, [2]int{k, o})
			}
		}
	}
	hc, err := utils.NewHaloConnector(size, EToP, pairs)
	if err != nil {
		return nil, err
	}
	if err := hc.Verify(); err != nil {
		return nil, fmt.Errorf("coordinator: halo: %w", err)
	}

	ids := func(idx []int) []uint64 {
		out := make([]uint64, len(idx))
		for i, k := range idx {
			out[i] = elements[k].ID
		}
		return out
	}
	out := make([][]Halo, size)
	for r := 0; r < size; r++ {
		for q := 0; q < size; q++ {
			if q == r {
				continue
			}
			h := Halo{Rank: q, Send: ids(hc.PickedElements(r, q)), Receive: ids(hc.PickedElements(q, r))}
			if len(h.Send) > 0 || len(h.Receive) > 0 {
				out[r] = append(out[r], h)
			}
		}
	}
	return out, nil
}

// buildFragment turns a payload into a finalized fragment mesh
func (c *Coordinator) buildFragment(p fragmentPayload, x *mat.Dense) (*Fragment, error) {
	rows := 0
	if x != nil {
		rows, _ = x.Dims()
	}
	if rows != len(p.Nodes) {
		return nil, fmt.Errorf("coordinator: %d coordinate rows for %d nodes", rows, len(p.Nodes))
	}
	m := mesh.New(c.ctx, p.Dims, mesh.AsFragment())
	for i, np := range p.Nodes {
		n, err := m.AddNode(np.ID, mat.Row(nil, i, x)...)
		if err != nil {
			return nil, err
		}
		n.Owner = np.Owner
	}
	for _, np := range p.Nodes {
		for _, d := range np.Duplicates {
			if err := m.LinkDuplicateNodes(np.ID, d); err != nil {
				return nil, err
			}
		}
	}

	ghostBlocks := make(map[uint64]blockPayload)
	for _, bp := range p.Blocks {
		if bp.Ghost {
			ghostBlocks[bp.ID] = bp
			continue
		}
		b, err := m.AddBlock(bp.ID, bp.Label)
		if err != nil {
			return nil, err
		}
		for _, ep := range bp.Elements {
			e, err := m.AddElement(b, ep.ID, ep.Type, ep.Nodes...)
			if err != nil {
				return nil, err
			}
			e.Owner, e.GeometryTag, e.PhysicalTag = ep.Owner, ep.GeometryTag, ep.PhysicalTag
		}
	}

	for _, sp := range p.SideSets {
		if sp.Kind == mesh.GhostLayer {
			if err := insertGhostLayer(m, sp, ghostBlocks); err != nil {
				return nil, err
			}
			continue
		}
		s, err := m.AddSideSet(sp.ID, sp.Label, sp.Kind)
		if err != nil {
			return nil, err
		}
		for _, fp := range sp.Facets {
			f, err := m.AddFacet(s, fp.ID, fp.Type, fp.Nodes...)
			if err != nil {
				return nil, err
			}
			f.Owner = fp.Owner
			m.LinkFacet(f, fp.Master, fp.Slave, fp.MasterLocal, fp.SlaveLocal)
		}
	}

	if err := m.Finalize(); err != nil {
		return nil, fmt.Errorf("coordinator: finalize fragment: %w", err)
	}
	slices.SortFunc(p.Halo, func(a, b Halo) int { return a.Rank - b.Rank })
	return &Fragment{Mesh: m, Halo: p.Halo}, nil
}

// insertGhostLayer rebuilds one ghost layer of a fragment. Ghost facets
// wrap the ghost block's elements, so the layer goes in as a bundle.
func insertGhostLayer(m *mesh.Mesh, sp sideSetPayload, blocks map[uint64]blockPayload) error {
	bp, ok := blocks[sp.Block]
	if !ok {
		return fmt.Errorf("coordinator: ghost sideset %d without block %d", sp.ID, sp.Block)
	}
	nodeIndex := func(ids []uint64) ([]int, error) {
		idx := make([]int, len(ids))
		for i, id := range ids {
			n, ok := m.NodeByID(id)
			if !ok {
				return nil, fmt.Errorf("%w: %d", mesh.ErrUnknownNode, id)
			}
			idx[i] = n.Index
		}
		return idx, nil
	}

	block := &mesh.Block{ID: bp.ID, Label: bp.Label}
	byID := make(map[uint64]*mesh.Element, len(bp.Elements))
	for _, ep := range bp.Elements {
		idx, err := nodeIndex(ep.Nodes)
		if err != nil {
			return err
		}
		e := &mesh.Element{ID: ep.ID, Index: -1, Type: ep.Type, Nodes: idx, Owner: ep.Owner,
			GeometryTag: ep.GeometryTag, PhysicalTag: ep.PhysicalTag}
		block.Elements = append(block.Elements, e)
		byID[e.ID] = e
	}

	s := &mesh.SideSet{ID: sp.ID, Label: sp.Label}
	for _, fp := range sp.Facets {
		e, ok := byID[fp.Element]
		if !ok {
			return fmt.Errorf("%w: ghost element %d of facet %d", mesh.ErrUnknownElement, fp.Element, fp.ID)
		}
		f := &mesh.Facet{
			ID: fp.ID, Index: -1, Element: e, Master: mesh.NoElement, Slave: mesh.NoElement,
			Owner: fp.Owner, SideSetID: sp.ID, SourceID: fp.SourceID,
		}
		m.LinkFacet(f, fp.Master, fp.Slave, fp.MasterLocal, fp.SlaveLocal)
		s.Facets = append(s.Facets, f)
	}
	delete(blocks, bp.ID)
	return m.InsertLayer(&mesh.Layer{Block: block, SideSet: s})
}
