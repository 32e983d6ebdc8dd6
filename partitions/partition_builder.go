package partitions

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cmesse/belfem-sub005/mesh"
	"github.com/cmesse/belfem-sub005/proc"
)

// PartitionStrategy defines how flagged elements are grouped
type PartitionStrategy int

const (
	// Simple strategies
	BlockPartition PartitionStrategy = iota // Consecutive elements
	RoundRobin                              // Distribute cyclically

	// Graph-based strategies
	GraphPartition // External k-way partitioner (METIS)
	GraphGrowth    // Breadth first growth over the dual graph
)

func (s PartitionStrategy) String() string {
	switch s {
	case BlockPartition:
		return "block"
	case RoundRobin:
		return "round_robin"
	case GraphPartition:
		return "graph"
	case GraphGrowth:
		return "graph_growing"
	default:
		return fmt.Sprintf("PartitionStrategy(%d)", int(s))
	}
}

// ParseStrategy maps a configuration name to a strategy
func ParseStrategy(name string) (PartitionStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "graph", "metis":
		return GraphPartition, nil
	case "block":
		return BlockPartition, nil
	case "round_robin", "roundrobin":
		return RoundRobin, nil
	case "graph_growing":
		return GraphGrowth, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

// Partitioner splits the flagged elements of a finalized mesh into
// NumPartitions owner ranks and settles every dependent owner
type Partitioner struct {
	ctx proc.Context

	NumPartitions int
	Strategy      PartitionStrategy

	// Graph is used by GraphPartition; nil means the strategy degrades to a
	// single partition
	Graph GraphPartitioner

	// Blocks restricts partitioning to elements of these blocks; empty
	// means every non-ghost element
	Blocks []uint64
}

// Option configures a Partitioner
type Option func(*Partitioner)

// WithStrategy selects the partitioning strategy
func WithStrategy(s PartitionStrategy) Option {
	return func(p *Partitioner) { p.Strategy = s }
}

// WithGraphPartitioner replaces the external graph partitioner
func WithGraphPartitioner(g GraphPartitioner) Option {
	return func(p *Partitioner) { p.Graph = g }
}

// WithBlocks restricts the flagged subset to the given blocks
func WithBlocks(ids ...uint64) Option {
	return func(p *Partitioner) { p.Blocks = append(p.Blocks, ids...) }
}

// NewPartitioner creates a partitioner using GraphPartition with the
// default graph partitioner
func NewPartitioner(ctx proc.Context, numPartitions int, opts ...Option) *Partitioner {
	p := &Partitioner{
		ctx:           ctx,
		NumPartitions: numPartitions,
		Strategy:      GraphPartition,
		Graph:         DefaultGraphPartitioner(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Result is the outcome of one partitioning run
type Result struct {
	Layout   *PartitionLayout
	Graph    *DualGraph
	Repair   RepairReport
	Degraded bool // no graph partitioner was available
}

// Partition assigns owners to every element of m. Flagged elements get
// their partition label, all others the sentinel NumPartitions. Facet
// owners are then repaired and every dependent owner settled.
func (p *Partitioner) Partition(m *mesh.Mesh) (*Result, error) {
	if p.NumPartitions < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPartitionCount, p.NumPartitions)
	}
	if !m.IsFinalized() {
		return nil, mesh.ErrNotFinalized
	}
	if !m.ConnectivityEnabled() {
		return nil, mesh.ErrNoConnectivity
	}
	log := p.ctx.Logger()
	start := time.Now()

	flagged, err := p.flag(m)
	if err != nil {
		return nil, err
	}
	g := BuildDualGraph(m, flagged)

	labels, degraded, err := p.partitionElements(g)
	if err != nil {
		return nil, err
	}
	numPartitions := p.NumPartitions
	if degraded {
		log.Warn("no graph partitioner available, mesh stays on one partition",
			"requested", p.NumPartitions)
		numPartitions = 1
	}

	// step 3: labels for flagged elements, sentinel for the rest
	for k, e := range m.Elements() {
		switch v := g.Vertex(k); {
		case v >= 0:
			e.Owner = labels[v]
		case degraded:
			e.Owner = 0
		default:
			e.Owner = numPartitions
		}
	}

	report, err := RepairOwners(m, flagged)
	if err != nil {
		return nil, err
	}
	layout, err := buildLayout(m, flagged, numPartitions)
	if err != nil {
		return nil, err
	}

	stats := layout.PartitionStatistics()
	log.Info("mesh partitioned",
		"strategy", p.Strategy.String(),
		"partitions", numPartitions,
		"elements", g.NumVertices(),
		"imbalance", stats.Imbalance,
		"facet_sweeps", report.FacetSweeps,
		"node_sweeps", report.Nodes,
		"elapsed", time.Since(start))

	return &Result{Layout: layout, Graph: g, Repair: report, Degraded: degraded}, nil
}

// flag marks the elements taking part in the partition
func (p *Partitioner) flag(m *mesh.Mesh) ([]bool, error) {
	flagged := make([]bool, len(m.Elements()))
	if len(p.Blocks) == 0 {
		for k, e := range m.Elements() {
			flagged[k] = !e.Ghost
		}
		return flagged, nil
	}
	for _, id := range p.Blocks {
		b, ok := m.BlockByID(id)
		if !ok {
			return nil, fmt.Errorf("partitions: unknown block %d", id)
		}
		if b.Ghost {
			continue
		}
		for _, e := range b.Elements {
			flagged[e.Index] = true
		}
	}
	return flagged, nil
}

// partitionElements computes a label per dual graph vertex
func (p *Partitioner) partitionElements(g *DualGraph) ([]int, bool, error) {
	n := g.NumVertices()
	labels := make([]int, n)
	if p.NumPartitions == 1 || n == 0 {
		return labels, false, nil
	}

	switch p.Strategy {
	case BlockPartition:
		// Simple block partitioning
		elementsPerPartition := int(math.Ceil(float64(n) / float64(p.NumPartitions)))
		for i := 0; i < n; i++ {
			labels[i] = min(i/elementsPerPartition, p.NumPartitions-1)
		}

	case RoundRobin:
		// Distribute elements cyclically
		for i := 0; i < n; i++ {
			labels[i] = i % p.NumPartitions
		}

	case GraphPartition, GraphGrowth:
		gp := p.Graph
		if p.Strategy == GraphGrowth {
			gp = GraphGrowing{}
		}
		if gp == nil {
			return labels, true, nil
		}
		out, status := gp.PartGraphKway(g, p.NumPartitions)
		if status != StatusOK {
			return nil, false, &StatusError{Status: status}
		}
		if len(out) != n {
			return nil, false, fmt.Errorf("%w: %d labels for %d vertices", ErrPartitionFailed, len(out), n)
		}
		for _, l := range out {
			if l < 0 || l >= p.NumPartitions {
				return nil, false, fmt.Errorf("%w: label %d outside [0,%d)", ErrPartitionFailed, l, p.NumPartitions)
			}
		}
		labels = out

	default:
		return nil, false, fmt.Errorf("%w: %s", ErrUnknownStrategy, p.Strategy)
	}
	return labels, false, nil
}
