//go:build !metis

package partitions

// Without METIS there is no external graph partitioner. The Partitioner
// then keeps the mesh on a single partition.
func defaultGraphPartitioner() GraphPartitioner { return nil }
