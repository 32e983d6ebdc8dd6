package utils

import (
	"fmt"
)

// HaloConnector manages pick and place indices for element values that
// cross a partition boundary through a shared facet. A partition picks the
// values of its own elements another partition needs and places the values
// it receives into its halo buffer.
type HaloConnector struct {
	NumPartitions int
	K             int // Total elements

	// Input connectivity
	EToP []int // Element → partition mapping, outside [0,NumPartitions) means unassigned

	// Partition mappings
	ElemsPerPartition []int         // Elements per partition
	GlobalToLocalElem []map[int]int // [partition][globalElem] → localElem
	LocalToGlobalElem [][]int       // [partition][localElem] → globalElem
	HaloSize          []int         // Halo slots per partition

	// Pick/Place indices per partition
	PickIndices  [][]PickBuffer  // [sourcePartition][targetPartition]
	PlaceIndices [][]PlaceBuffer // [targetPartition][sourcePartition]
}

// PickBuffer contains indices for gathering values to send
type PickBuffer struct {
	Indices         []int // Local element indices
	TargetPartition int
}

// PlaceBuffer contains indices for scattering received values
type PlaceBuffer struct {
	Indices         []int // Halo buffer positions
	SourcePartition int
}

// NewHaloConnector creates a halo connector from the element pairs that
// share a facet. pairs holds global element indices.
func NewHaloConnector(numPartitions int, EToP []int, pairs [][2]int) (*HaloConnector, error) {
	if numPartitions <= 0 {
		return nil, fmt.Errorf("invalid partition count %d", numPartitions)
	}
	K := len(EToP)
	for i, pair := range pairs {
		for _, e := range pair {
			if e < 0 || e >= K {
				return nil, fmt.Errorf("pair %d references element %d outside [0,%d)", i, e, K)
			}
		}
	}

	hc := &HaloConnector{
		NumPartitions: numPartitions,
		K:             K,
		EToP:          EToP,
	}

	// Build partition mappings
	hc.buildPartitionMappings()

	// Initialize pick/place buffers
	hc.initializeBuffers()

	// Build indices
	hc.BuildIndices(pairs)

	return hc, nil
}

func (hc *HaloConnector) assigned(e int) bool {
	p := hc.EToP[e]
	return p >= 0 && p < hc.NumPartitions
}

// buildPartitionMappings creates bidirectional mappings between global and local element numbering
func (hc *HaloConnector) buildPartitionMappings() {
	// Count elements per partition
	hc.ElemsPerPartition = make([]int, hc.NumPartitions)
	for e := 0; e < hc.K; e++ {
		if hc.assigned(e) {
			hc.ElemsPerPartition[hc.EToP[e]]++
		}
	}

	hc.GlobalToLocalElem = make([]map[int]int, hc.NumPartitions)
	hc.LocalToGlobalElem = make([][]int, hc.NumPartitions)
	for p := 0; p < hc.NumPartitions; p++ {
		hc.GlobalToLocalElem[p] = make(map[int]int)
		hc.LocalToGlobalElem[p] = make([]int, 0, hc.ElemsPerPartition[p])
	}

	for globalElem := 0; globalElem < hc.K; globalElem++ {
		if !hc.assigned(globalElem) {
			continue
		}
		partition := hc.EToP[globalElem]
		localElem := len(hc.LocalToGlobalElem[partition])

		hc.GlobalToLocalElem[partition][globalElem] = localElem
		hc.LocalToGlobalElem[partition] = append(hc.LocalToGlobalElem[partition], globalElem)
	}
}

// initializeBuffers creates empty pick and place buffer structures
func (hc *HaloConnector) initializeBuffers() {
	hc.HaloSize = make([]int, hc.NumPartitions)
	hc.PickIndices = make([][]PickBuffer, hc.NumPartitions)
	hc.PlaceIndices = make([][]PlaceBuffer, hc.NumPartitions)

	for p := 0; p < hc.NumPartitions; p++ {
		hc.PickIndices[p] = make([]PickBuffer, hc.NumPartitions)
		hc.PlaceIndices[p] = make([]PlaceBuffer, hc.NumPartitions)

		for q := 0; q < hc.NumPartitions; q++ {
			hc.PickIndices[p][q] = PickBuffer{TargetPartition: q}
			hc.PlaceIndices[p][q] = PlaceBuffer{SourcePartition: q}
		}
	}
}

// BuildIndices fills the pick and place lists. Every off-partition
// neighbor is received once per target partition, however many facets
// connect them.
func (hc *HaloConnector) BuildIndices(pairs [][2]int) {
	// [target] → global element already in its halo
	inHalo := make([]map[int]bool, hc.NumPartitions)
	for p := range inHalo {
		inHalo[p] = make(map[int]bool)
	}

	need := func(target, globalSourceElem int) {
		sourcePartition := hc.EToP[globalSourceElem]
		if inHalo[target][globalSourceElem] {
			return
		}
		inHalo[target][globalSourceElem] = true

		// Add to pick indices: source partition needs to send this element to target
		localSourceElem := hc.GlobalToLocalElem[sourcePartition][globalSourceElem]
		hc.PickIndices[sourcePartition][target].Indices = append(
			hc.PickIndices[sourcePartition][target].Indices, localSourceElem)

		// Add to place indices: target places the received value in its next halo slot
		hc.PlaceIndices[target][sourcePartition].Indices = append(
			hc.PlaceIndices[target][sourcePartition].Indices, hc.HaloSize[target])
		hc.HaloSize[target]++
	}

	for _, pair := range pairs {
		a, b := pair[0], pair[1]
		if !hc.assigned(a) || !hc.assigned(b) || hc.EToP[a] == hc.EToP[b] {
			continue
		}
		need(hc.EToP[a], b)
		need(hc.EToP[b], a)
	}
}

// GetPickIndices returns pick indices for sending from source to target partition
func (hc *HaloConnector) GetPickIndices(sourcePartition, targetPartition int) []int {
	if sourcePartition < 0 || sourcePartition >= hc.NumPartitions ||
		targetPartition < 0 || targetPartition >= hc.NumPartitions {
		return nil
	}
	return hc.PickIndices[sourcePartition][targetPartition].Indices
}

// GetPlaceIndices returns place indices for target partition receiving from source
func (hc *HaloConnector) GetPlaceIndices(targetPartition, sourcePartition int) []int {
	if targetPartition < 0 || targetPartition >= hc.NumPartitions ||
		sourcePartition < 0 || sourcePartition >= hc.NumPartitions {
		return nil
	}
	return hc.PlaceIndices[targetPartition][sourcePartition].Indices
}

// PickedElements returns the global elements source sends to target, in
// pick order. The i-th entry lands in the target's halo slot
// GetPlaceIndices(target, source)[i].
func (hc *HaloConnector) PickedElements(sourcePartition, targetPartition int) []int {
	pick := hc.GetPickIndices(sourcePartition, targetPartition)
	out := make([]int, len(pick))
	for i, local := range pick {
		out[i] = hc.LocalToGlobalElem[sourcePartition][local]
	}
	return out
}

// Exchange runs one in-memory pick, exchange and place round. values[p]
// holds one value per local element of partition p; the result holds the
// halo buffer of every partition.
func (hc *HaloConnector) Exchange(values [][]float64) ([][]float64, error) {
	if len(values) != hc.NumPartitions {
		return nil, fmt.Errorf("got values for %d partitions, want %d", len(values), hc.NumPartitions)
	}
	halo := make([][]float64, hc.NumPartitions)
	for p := range halo {
		halo[p] = make([]float64, hc.HaloSize[p])
	}
	for p := 0; p < hc.NumPartitions; p++ {
		for q := 0; q < hc.NumPartitions; q++ {
			pick := hc.GetPickIndices(p, q)
			place := hc.GetPlaceIndices(q, p)
			for i, idx := range pick {
				if idx >= len(values[p]) {
					return nil, fmt.Errorf("pick index %d out of bounds for partition %d", idx, p)
				}
				halo[q][place[i]] = values[p][idx]
			}
		}
	}
	return halo, nil
}

// Verify checks index validity and conservation properties
func (hc *HaloConnector) Verify() error {
	// Verify 1: Local validity - all pick indices are within bounds
	for p := 0; p < hc.NumPartitions; p++ {
		for q := 0; q < hc.NumPartitions; q++ {
			for _, idx := range hc.PickIndices[p][q].Indices {
				if idx < 0 || idx >= hc.ElemsPerPartition[p] {
					return fmt.Errorf("invalid pick index %d for partition %d (max %d)",
						idx, p, hc.ElemsPerPartition[p]-1)
				}
			}
		}
	}

	// Verify 2: Correspondence - pick and place arrays have same length
	for p := 0; p < hc.NumPartitions; p++ {
		for q := 0; q < hc.NumPartitions; q++ {
			pickLen := len(hc.PickIndices[p][q].Indices)
			placeLen := len(hc.PlaceIndices[q][p].Indices)
			if pickLen != placeLen {
				return fmt.Errorf("length mismatch: pick[%d][%d]=%d, place[%d][%d]=%d",
					p, q, pickLen, q, p, placeLen)
			}
		}
	}

	// Verify 3: Conservation - every halo slot is placed exactly once
	for p := 0; p < hc.NumPartitions; p++ {
		used := make([]bool, hc.HaloSize[p])
		for q := 0; q < hc.NumPartitions; q++ {
			for _, idx := range hc.PlaceIndices[p][q].Indices {
				if idx < 0 || idx >= hc.HaloSize[p] {
					return fmt.Errorf("invalid place index %d for partition %d (halo %d)", idx, p, hc.HaloSize[p])
				}
				if used[idx] {
					return fmt.Errorf("conservation error: halo slot %d of partition %d placed twice", idx, p)
				}
				used[idx] = true
			}
		}
		for idx, ok := range used {
			if !ok {
				return fmt.Errorf("conservation error: halo slot %d of partition %d never placed", idx, p)
			}
		}
	}

	return nil
}
