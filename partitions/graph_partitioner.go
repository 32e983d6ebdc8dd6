package partitions

import (
	"errors"
	"fmt"
)

// Status is the result code of an external graph partitioner
type Status int

const (
	StatusOK Status = iota
	StatusInvalidInput
	StatusMemoryError
	StatusUnknown
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusInvalidInput:
		return "INVALID_INPUT"
	case StatusMemoryError:
		return "MEMORY_ERROR"
	default:
		return "UNKNOWN"
	}
}

var (
	// ErrPartitionFailed wraps every non-OK status of the graph partitioner
	ErrPartitionFailed = errors.New("partitions: graph partitioner failed")
	// ErrInvalidPartitionCount indicates fewer than one partition was requested
	ErrInvalidPartitionCount = errors.New("partitions: partition count must be at least 1")
	// ErrUnknownStrategy indicates a strategy name that does not parse
	ErrUnknownStrategy = errors.New("partitions: unknown strategy")
)

// StatusError carries the partitioner status behind ErrPartitionFailed
type StatusError struct {
	Status Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v: status %s", ErrPartitionFailed, e.Status)
}

func (e *StatusError) Unwrap() error { return ErrPartitionFailed }

// GraphPartitioner computes a k-way partition of a dual graph. It must
// return contiguous, communication volume minimizing partitions with
// zero-based labels, one per vertex.
type GraphPartitioner interface {
	PartGraphKway(g *DualGraph, nparts int) ([]int, Status)
}

// GraphPartitionerFunc adapts a function to GraphPartitioner
type GraphPartitionerFunc func(g *DualGraph, nparts int) ([]int, Status)

// PartGraphKway calls f
func (f GraphPartitionerFunc) PartGraphKway(g *DualGraph, nparts int) ([]int, Status) {
	return f(g, nparts)
}

// DefaultGraphPartitioner returns the METIS adapter, or nil when the
// binary was built without the metis tag
func DefaultGraphPartitioner() GraphPartitioner {
	return defaultGraphPartitioner()
}
