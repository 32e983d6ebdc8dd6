package partitions

import (
	"fmt"
	"math"
	"sort"

	"github.com/cmesse/belfem-sub005/mesh"
)

// Partition is the set of elements one rank owns
type Partition struct {
	// Unique identifier for this partition, equal to the owner rank
	ID int

	// Element membership
	Elements    []int // Element indices in this partition
	NumElements int   // Actual number of elements
	MaxElements int   // Largest partition size, for uniform buffers

	// Mixed element support
	TypeGroups []ElementGroup // Grouped by element type
}

// ElementGroup represents elements of the same type within a partition
type ElementGroup struct {
	ElementType mesh.ElementType
	StartIndex  int   // Starting position in the partition's grouped order
	Count       int   // Number of elements of this type
	Np          int   // Nodes per element for this type
	LocalIDs    []int // Positions within Partition.Elements
}

// PartitionLayout describes the decomposition of the flagged elements
type PartitionLayout struct {
	// All partitions in the mesh
	Partitions []Partition

	// Global sizing information
	KpartMax      int // max(NumElements) across all partitions
	TotalElements int // Number of partitioned (flagged) elements
	NumPartitions int // Total number of partitions

	// Element to partition mapping, by element index. Elements outside the
	// partitioned subset map to -1.
	EToP []int
}

// PartitionMetrics tracks how well a layout cuts the dual graph
type PartitionMetrics struct {
	EdgeCut      int   // Dual graph edges between different partitions
	NumNeighbors []int // Number of adjacent partitions, per partition
}

// GetPartition returns the partition containing element k
func (pl *PartitionLayout) GetPartition(elementID int) int {
	if elementID < 0 || elementID >= len(pl.EToP) {
		return -1
	}
	return pl.EToP[elementID]
}

// ValidateLayout checks partition consistency
func (pl *PartitionLayout) ValidateLayout() error {
	// Verify KpartMax
	actualMax := 0
	total := 0
	for _, p := range pl.Partitions {
		if p.NumElements > actualMax {
			actualMax = p.NumElements
		}
		if p.MaxElements != pl.KpartMax {
			return fmt.Errorf("partition %d: MaxElements %d != KpartMax %d",
				p.ID, p.MaxElements, pl.KpartMax)
		}
		if len(p.Elements) != p.NumElements {
			return fmt.Errorf("partition %d: %d elements listed, NumElements %d",
				p.ID, len(p.Elements), p.NumElements)
		}
		for _, k := range p.Elements {
			if got := pl.GetPartition(k); got != p.ID {
				return fmt.Errorf("partition %d lists element %d mapped to %d", p.ID, k, got)
			}
		}
		total += p.NumElements
	}
	if actualMax != pl.KpartMax {
		return fmt.Errorf("computed KpartMax %d != stored KpartMax %d",
			actualMax, pl.KpartMax)
	}
	if total != pl.TotalElements {
		return fmt.Errorf("partitions hold %d elements, layout expects %d", total, pl.TotalElements)
	}
	return nil
}

// PartitionStatistics computes load balance metrics
func (pl *PartitionLayout) PartitionStatistics() PartitionStats {
	stats := PartitionStats{
		NumPartitions: pl.NumPartitions,
		MinElements:   math.MaxInt32,
		MaxElements:   0,
	}
	if pl.NumPartitions > 0 {
		stats.AvgElements = float64(pl.TotalElements) / float64(pl.NumPartitions)
	}

	for _, p := range pl.Partitions {
		if p.NumElements < stats.MinElements {
			stats.MinElements = p.NumElements
		}
		if p.NumElements > stats.MaxElements {
			stats.MaxElements = p.NumElements
		}
	}
	if len(pl.Partitions) == 0 {
		stats.MinElements = 0
	}

	if stats.AvgElements > 0 {
		stats.Imbalance = float64(stats.MaxElements) / stats.AvgElements
	}

	return stats
}

// PartitionStats summarizes the element balance of a layout
type PartitionStats struct {
	NumPartitions int
	MinElements   int
	MaxElements   int
	AvgElements   float64
	Imbalance     float64 // MaxElements / AvgElements
}

// Metrics measures the layout against the dual graph it was cut from
func (pl *PartitionLayout) Metrics(g *DualGraph) PartitionMetrics {
	neighbors := make([]map[int]struct{}, pl.NumPartitions)
	for i := range neighbors {
		neighbors[i] = make(map[int]struct{})
	}
	cut := 0
	for v := 0; v < g.NumVertices(); v++ {
		pv := pl.GetPartition(g.Elements[v])
		for _, u := range g.Neighbors(v) {
			pu := pl.GetPartition(g.Elements[u])
			if pu == pv || pu < 0 || pv < 0 {
				continue
			}
			neighbors[pv][pu] = struct{}{}
			if int(u) > v {
				cut++
			}
		}
	}
	metrics := PartitionMetrics{EdgeCut: cut, NumNeighbors: make([]int, pl.NumPartitions)}
	for i, n := range neighbors {
		metrics.NumNeighbors[i] = len(n)
	}
	return metrics
}

// buildLayout groups the partitioned elements by their owner
func buildLayout(m *mesh.Mesh, flagged []bool, numPartitions int) (*PartitionLayout, error) {
	elements := m.Elements()
	eToP := make([]int, len(elements))
	partitions := make([]Partition, numPartitions)
	for i := range partitions {
		partitions[i] = Partition{ID: i, Elements: make([]int, 0)}
	}

	total := 0
	for k, e := range elements {
		if !flagged[k] {
			eToP[k] = -1
			continue
		}
		if e.Owner < 0 || e.Owner >= numPartitions {
			return nil, fmt.Errorf("element %d has owner %d outside [0,%d)", e.ID, e.Owner, numPartitions)
		}
		eToP[k] = e.Owner
		partitions[e.Owner].Elements = append(partitions[e.Owner].Elements, k)
		partitions[e.Owner].NumElements++
		total++
	}

	kpartMax := 0
	for i := range partitions {
		kpartMax = max(kpartMax, partitions[i].NumElements)
		partitions[i].TypeGroups = createElementGroups(elements, &partitions[i])
	}
	for i := range partitions {
		partitions[i].MaxElements = kpartMax
	}

	layout := &PartitionLayout{
		Partitions:    partitions,
		KpartMax:      kpartMax,
		TotalElements: total,
		NumPartitions: numPartitions,
		EToP:          eToP,
	}
	if err := layout.ValidateLayout(); err != nil {
		return nil, fmt.Errorf("invalid partition layout: %w", err)
	}
	return layout, nil
}

// createElementGroups organizes elements by type within a partition, in
// element type order
func createElementGroups(elements []*mesh.Element, p *Partition) []ElementGroup {
	if p.NumElements == 0 {
		return nil
	}

	byType := make(map[mesh.ElementType][]int)
	for i, k := range p.Elements {
		t := elements[k].Type
		byType[t] = append(byType[t], i)
	}
	types := make([]mesh.ElementType, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	groups := make([]ElementGroup, 0, len(types))
	currentIndex := 0
	for _, t := range types {
		indices := byType[t]
		groups = append(groups, ElementGroup{
			ElementType: t,
			StartIndex:  currentIndex,
			Count:       len(indices),
			Np:          t.NumNodes(),
			LocalIDs:    indices,
		})
		currentIndex += len(indices)
	}
	return groups
}
