package utils

import (
	"fmt"
	"testing"
)

// rowPairs connects K elements in a row
func rowPairs(K int) [][2]int {
	pairs := make([][2]int, 0, K-1)
	for e := 0; e+1 < K; e++ {
		pairs = append(pairs, [2]int{e, e + 1})
	}
	return pairs
}

// globalValues gives every local element its global index as value
func globalValues(hc *HaloConnector) [][]float64 {
	values := make([][]float64, hc.NumPartitions)
	for p := range values {
		values[p] = make([]float64, hc.ElemsPerPartition[p])
		for local, global := range hc.LocalToGlobalElem[p] {
			values[p][local] = float64(global)
		}
	}
	return values
}

// TestHaloConnector_Unpartitioned tests that a single partition has no halo
func TestHaloConnector_Unpartitioned(t *testing.T) {
	hc, err := NewHaloConnector(1, []int{0, 0, 0, 0}, rowPairs(4))
	if err != nil {
		t.Fatalf("Failed to create HaloConnector: %v", err)
	}
	if hc.HaloSize[0] != 0 {
		t.Errorf("Expected empty halo, got %d slots", hc.HaloSize[0])
	}
	if err := hc.Verify(); err != nil {
		t.Errorf("Verification failed: %v", err)
	}
}

// TestHaloConnector_RowPartitioned splits a row of six elements in the middle
func TestHaloConnector_RowPartitioned(t *testing.T) {
	EToP := []int{0, 0, 0, 1, 1, 1}
	hc, err := NewHaloConnector(2, EToP, rowPairs(6))
	if err != nil {
		t.Fatalf("Failed to create HaloConnector: %v", err)
	}

	halo, err := hc.Exchange(globalValues(hc))
	if err != nil {
		t.Fatalf("Failed to exchange: %v", err)
	}

	expected := [][]float64{{3}, {2}}
	for p := 0; p < 2; p++ {
		t.Run(fmt.Sprintf("Partition%d", p), func(t *testing.T) {
			if len(halo[p]) != len(expected[p]) {
				t.Fatalf("Expected %d halo values, got %d", len(expected[p]), len(halo[p]))
			}
			for i := range halo[p] {
				if halo[p][i] != expected[p][i] {
					t.Errorf("Halo slot %d: expected %f, got %f", i, expected[p][i], halo[p][i])
				}
			}
		})
	}

	if got := hc.PickedElements(1, 0); len(got) != 1 || got[0] != 3 {
		t.Errorf("Expected partition 1 to send element 3 to 0, got %v", got)
	}
	if err := hc.Verify(); err != nil {
		t.Errorf("Verification failed: %v", err)
	}
}

// TestHaloConnector_ReceivesOnce tests that a neighbor shared by several
// facets lands in a single halo slot
func TestHaloConnector_ReceivesOnce(t *testing.T) {
	// element 2 touches elements 0 and 1 of partition 0
	pairs := [][2]int{{0, 1}, {0, 2}, {1, 2}, {2, 3}}
	EToP := []int{0, 0, 1, 1}
	hc, err := NewHaloConnector(2, EToP, pairs)
	if err != nil {
		t.Fatalf("Failed to create HaloConnector: %v", err)
	}

	// Test 1: partition 0 receives element 2 once
	if hc.HaloSize[0] != 1 {
		t.Errorf("Expected 1 halo slot on partition 0, got %d", hc.HaloSize[0])
	}
	// Test 2: partition 1 receives elements 0 and 1
	if hc.HaloSize[1] != 2 {
		t.Errorf("Expected 2 halo slots on partition 1, got %d", hc.HaloSize[1])
	}

	halo, err := hc.Exchange(globalValues(hc))
	if err != nil {
		t.Fatalf("Failed to exchange: %v", err)
	}
	if halo[1][0] != 0 || halo[1][1] != 1 {
		t.Errorf("Expected partition 1 halo [0 1], got %v", halo[1])
	}
	if err := hc.Verify(); err != nil {
		t.Errorf("Verification failed: %v", err)
	}
}

// TestHaloConnector_SkipsUnassigned tests that elements outside every
// partition never take part in an exchange
func TestHaloConnector_SkipsUnassigned(t *testing.T) {
	EToP := []int{0, 1, 2, 2}
	hc, err := NewHaloConnector(2, EToP, rowPairs(4))
	if err != nil {
		t.Fatalf("Failed to create HaloConnector: %v", err)
	}
	if hc.ElemsPerPartition[0] != 1 || hc.ElemsPerPartition[1] != 1 {
		t.Errorf("Expected one element per partition, got %v", hc.ElemsPerPartition)
	}
	if hc.HaloSize[0] != 1 || hc.HaloSize[1] != 1 {
		t.Errorf("Expected one halo slot per partition, got %v", hc.HaloSize)
	}
}

// TestHaloConnector_VerifyDetectsCorruption tests the consistency checks
func TestHaloConnector_VerifyDetectsCorruption(t *testing.T) {
	newConnector := func() *HaloConnector {
		hc, err := NewHaloConnector(2, []int{0, 0, 1, 1}, rowPairs(4))
		if err != nil {
			t.Fatalf("Failed to create HaloConnector: %v", err)
		}
		return hc
	}

	// Test 1: pick index out of range
	hc := newConnector()
	hc.PickIndices[0][1].Indices[0] = 7
	if err := hc.Verify(); err == nil {
		t.Error("Expected out of range pick index to fail")
	}

	// Test 2: pick without place
	hc = newConnector()
	hc.PickIndices[0][1].Indices = append(hc.PickIndices[0][1].Indices, 0)
	if err := hc.Verify(); err == nil {
		t.Error("Expected length mismatch to fail")
	}

	// Test 3: a halo slot never placed
	hc = newConnector()
	hc.HaloSize[1] = 2
	if err := hc.Verify(); err == nil {
		t.Error("Expected unplaced halo slot to fail")
	}

	if _, err := NewHaloConnector(0, nil, nil); err == nil {
		t.Error("Expected zero partitions to fail")
	}
	if _, err := NewHaloConnector(1, []int{0}, [][2]int{{0, 3}}); err == nil {
		t.Error("Expected out of range pair to fail")
	}
}
