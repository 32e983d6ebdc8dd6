//go:build metis

package partitions

import (
	"strings"

	metis "github.com/notargets/go-metis"
)

type metisPartitioner struct{}

func defaultGraphPartitioner() GraphPartitioner { return metisPartitioner{} }

// PartGraphKway runs METIS k-way partitioning with contiguous parts, total
// communication volume as objective and C numbering. Graphs METIS cannot
// take (one part, no edges) are split without it.
func (metisPartitioner) PartGraphKway(g *DualGraph, nparts int) ([]int, Status) {
	n := g.NumVertices()
	if n == 0 || nparts < 1 {
		return nil, StatusInvalidInput
	}
	labels := make([]int, n)
	switch {
	case nparts == 1:
		return labels, StatusOK
	case len(g.Adjncy) == 0:
		// isolated vertices, any split is contiguous
		for i := range labels {
			labels[i] = i * nparts / n
		}
		return labels, StatusOK
	}

	options := make([]int32, metis.NoOptions)
	if err := metis.SetDefaultOptions(options); err != nil {
		return nil, metisStatus(err)
	}
	options[metis.OptionObjType] = metis.ObjTypeVol
	options[metis.OptionContig] = 1
	options[metis.OptionNumbering] = 0

	part, _, err := metis.PartGraphKway(g.Xadj, g.Adjncy, int32(nparts), options)
	if err != nil {
		return nil, metisStatus(err)
	}
	for i, p := range part {
		labels[i] = int(p)
	}
	return labels, StatusOK
}

func metisStatus(err error) Status {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "input"):
		return StatusInvalidInput
	case strings.Contains(msg, "memory"):
		return StatusMemoryError
	default:
		return StatusUnknown
	}
}
