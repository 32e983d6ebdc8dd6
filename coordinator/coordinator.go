// Package coordinator centralizes every "master does X, then tells the
// others" step. Each method is collective: all ranks of the communicator
// must call it in the same order.
package coordinator

import (
	"errors"
	"fmt"

	"github.com/cmesse/belfem-sub005/comm"
	"github.com/cmesse/belfem-sub005/mesh"
	"github.com/cmesse/belfem-sub005/proc"
)

// ErrMasterFailed is returned on workers when the master's step failed
var ErrMasterFailed = errors.New("coordinator: master step failed")

// Coordinator runs collective steps for one process
type Coordinator struct {
	ctx proc.Context
}

// New creates a coordinator
func New(ctx proc.Context) *Coordinator {
	return &Coordinator{ctx: ctx}
}

// Context returns the process context
func (c *Coordinator) Context() proc.Context { return c.ctx }

// OnMaster runs fn on the master only and broadcasts its outcome, so every
// rank returns an error when the master's step failed
func (c *Coordinator) OnMaster(fn func() error) error {
	var (
		msg string
		err error
	)
	if c.ctx.IsMaster() {
		if err = fn(); err != nil {
			msg = err.Error()
		}
	}
	if berr := comm.Broadcast(c.ctx.Communicator(), &msg); berr != nil {
		return fmt.Errorf("coordinator: broadcast outcome: %w", berr)
	}
	switch {
	case err != nil:
		return err
	case msg != "":
		return fmt.Errorf("%w: %s", ErrMasterFailed, msg)
	}
	return nil
}

// OwnerTable maps element and node ids to their owner rank
type OwnerTable struct {
	Elements map[uint64]int
	Nodes    map[uint64]int
}

// Apply copies the owners onto the entities of m that appear in the table
func (t OwnerTable) Apply(m *mesh.Mesh) {
	for _, e := range m.Elements() {
		if o, ok := t.Elements[e.ID]; ok {
			e.Owner = o
		}
	}
	for _, n := range m.Nodes() {
		if o, ok := t.Nodes[n.ID]; ok {
			n.Owner = o
		}
	}
}

// BroadcastOwners sends the master's settled element and node owners to
// every rank. Workers apply them to their fragment m when it is not nil.
// Barriers gate the step on both sides.
func (c *Coordinator) BroadcastOwners(m *mesh.Mesh) (OwnerTable, error) {
	var table OwnerTable
	err := c.OnMaster(func() error {
		if m == nil || !m.IsFinalized() {
			return mesh.ErrNotFinalized
		}
		table.Elements = make(map[uint64]int, len(m.Elements()))
		for _, e := range m.Elements() {
			table.Elements[e.ID] = e.Owner
		}
		table.Nodes = make(map[uint64]int, len(m.Nodes()))
		for _, n := range m.Nodes() {
			table.Nodes[n.ID] = n.Owner
		}
		return nil
	})
	if err != nil {
		return OwnerTable{}, err
	}
	cm := c.ctx.Communicator()
	if err := cm.Barrier(); err != nil {
		return OwnerTable{}, fmt.Errorf("coordinator: barrier before owners: %w", err)
	}
	if err := comm.Broadcast(cm, &table); err != nil {
		return OwnerTable{}, fmt.Errorf("coordinator: broadcast owners: %w", err)
	}
	if !c.ctx.IsMaster() && m != nil {
		table.Apply(m)
	}
	if err := cm.Barrier(); err != nil {
		return OwnerTable{}, fmt.Errorf("coordinator: barrier after owners: %w", err)
	}
	c.ctx.Logger().Debug("owners broadcast", "elements", len(table.Elements), "nodes", len(table.Nodes))
	return table, nil
}
